package handler

import (
	"net/http"

	"github.com/segyhp/pawn-ledger/internal/service"
	"github.com/segyhp/pawn-ledger/pkg/response"
)

type DashboardHandler struct {
	ledger service.Ledger
}

func NewDashboardHandler(ledger service.Ledger) *DashboardHandler {
	return &DashboardHandler{ledger: ledger}
}

// Summary handles GET /summary
func (h *DashboardHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.ledger.Summary(r.Context())
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, summary)
}

// Defaults handles GET /settings/defaults
func (h *DashboardHandler) Defaults(w http.ResponseWriter, r *http.Request) {
	response.Success(w, h.ledger.Defaults())
}
