package handlers

import (
	"net/http"

	"jarvis-backend/application/queries"
	querybus "jarvis-backend/application/queries/bus"
	"jarvis-backend/pkg/common"
	pkgerrors "jarvis-backend/pkg/errors"
)

// AdminHandler serves the admin dashboard
type AdminHandler struct {
	queryBus *querybus.QueryBus
	errors   *pkgerrors.ErrorHandler
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(queryBus *querybus.QueryBus, errors *pkgerrors.ErrorHandler) *AdminHandler {
	return &AdminHandler{queryBus: queryBus, errors: errors}
}

// GetStats handles GET /admin/stats
func (h *AdminHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	result, err := h.queryBus.Ask(r.Context(), queries.GetAdminStatsQuery{})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}
