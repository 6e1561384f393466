package valueobjects

import (
	"errors"

	"github.com/google/uuid"
)

// SessionID is a value object identifying one tutoring session
type SessionID struct {
	value string
}

// NewSessionID creates a new random SessionID
func NewSessionID() SessionID {
	return SessionID{value: uuid.New().String()}
}

// NewSessionIDFromString creates a SessionID from an existing string
func NewSessionIDFromString(id string) (SessionID, error) {
	if id == "" {
		return SessionID{}, errors.New("session ID cannot be empty")
	}
	if _, err := uuid.Parse(id); err != nil {
		return SessionID{}, errors.New("session ID must be a valid UUID")
	}
	return SessionID{value: id}, nil
}

// String returns the string representation of the SessionID
func (id SessionID) String() string {
	return id.value
}

// Equals checks if two SessionIDs are equal
func (id SessionID) Equals(other SessionID) bool {
	return id.value == other.value
}

// IsZero checks if the SessionID is the zero value
func (id SessionID) IsZero() bool {
	return id.value == ""
}

// MarshalJSON implements json.Marshaler
func (id SessionID) MarshalJSON() ([]byte, error) {
	return []byte(`"` + id.value + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler
func (id *SessionID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return errors.New("SessionID must be a string")
	}
	id.value = string(data[1 : len(data)-1])
	return nil
}
