package common

import (
	"encoding/json"
	"errors"
	"net/http"

	pkgerrors "jarvis-backend/pkg/errors"
)

// DefaultMaxBodyBytes bounds request bodies
const DefaultMaxBodyBytes = 1 << 20

// RespondJSON sends a JSON response
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// ParseJSONBody decodes the request body into v, rejecting unknown fields and
// bodies over maxBytes. Failures are VALIDATION errors.
func ParseJSONBody(w http.ResponseWriter, r *http.Request, v interface{}, maxBytes int64) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return pkgerrors.NewValidationError("request body too large")
		}
		return pkgerrors.NewValidationError("invalid request body: " + err.Error())
	}
	return nil
}
