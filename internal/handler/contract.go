package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/segyhp/pawn-ledger/internal/domain"
	"github.com/segyhp/pawn-ledger/internal/service"
	"github.com/segyhp/pawn-ledger/internal/statement"
	"github.com/segyhp/pawn-ledger/pkg/response"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type ContractHandler struct {
	ledger    service.Ledger
	validator *validator.Validate
	logger    *slog.Logger
}

func NewContractHandler(ledger service.Ledger, logger *slog.Logger) *ContractHandler {
	return &ContractHandler{
		ledger:    ledger,
		validator: newValidator(),
		logger:    logger,
	}
}

// Create handles POST /contracts
func (h *ContractHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateContractRequest
	if !decode(w, r, h.validator, &req, false) {
		return
	}

	view, err := h.ledger.CreateContract(r.Context(), &req)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Created(w, view)
}

// List handles GET /contracts?status=&q=&customer_id=
func (h *ContractHandler) List(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	query := service.ContractQuery{
		Status: strings.TrimSpace(params.Get("status")),
		Query:  params.Get("q"),
	}
	if raw := params.Get("customer_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			response.BadRequest(w, "Invalid customer_id", err)
			return
		}
		query.CustomerID = &id
	}

	views, err := h.ledger.ListContracts(r.Context(), query)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, views)
}

// Get handles GET /contracts/{id}
func (h *ContractHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	view, err := h.ledger.GetContract(r.Context(), id)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, view)
}

// Edit handles PATCH /contracts/{id}
func (h *ContractHandler) Edit(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var patch domain.ContractPatch
	if !decode(w, r, h.validator, &patch, false) {
		return
	}

	view, err := h.ledger.EditContract(r.Context(), id, patch)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, view)
}

// Renew handles POST /contracts/{id}/renew
func (h *ContractHandler) Renew(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req domain.RenewRequest
	if !decode(w, r, h.validator, &req, false) {
		return
	}

	view, err := h.ledger.Renew(r.Context(), id, req.Amount)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, view)
}

// Redeem handles POST /contracts/{id}/redeem. Without an amount the contract
// settles at its current redemption total.
func (h *ContractHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req domain.RedeemRequest
	if !decode(w, r, h.validator, &req, true) {
		return
	}

	view, err := h.ledger.Redeem(r.Context(), id, req.Amount)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, view)
}

// AdjustPrincipal handles POST /contracts/{id}/adjust-principal
func (h *ContractHandler) AdjustPrincipal(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req domain.AdjustPrincipalRequest
	if !decode(w, r, h.validator, &req, false) {
		return
	}

	view, err := h.ledger.AdjustPrincipal(r.Context(), id, req.Direction, req.Amount)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, view)
}

// Cancel handles POST /contracts/{id}/cancel
func (h *ContractHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req domain.CloseRequest
	if !decode(w, r, h.validator, &req, true) {
		return
	}

	view, err := h.ledger.Cancel(r.Context(), id, req.Reason)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, view)
}

// Forfeit handles POST /contracts/{id}/forfeit
func (h *ContractHandler) Forfeit(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req domain.CloseRequest
	if !decode(w, r, h.validator, &req, true) {
		return
	}

	view, err := h.ledger.Forfeit(r.Context(), id, req.Reason)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, view)
}

// Statement handles GET /contracts/{id}/statement. It renders HTML unless
// format=markdown is requested or the client accepts text/markdown.
func (h *ContractHandler) Statement(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	md, err := h.ledger.Statement(r.Context(), id)
	if err != nil {
		response.FromError(w, err)
		return
	}

	if wantsMarkdown(r) {
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(md))
		return
	}

	html, err := statement.HTML(md)
	if err != nil {
		h.logger.Error("failed to render statement", slog.String("contract_id", id.String()), slog.String("error", err.Error()))
		response.InternalServerError(w, "Failed to render statement", nil)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(html)
}

func wantsMarkdown(r *http.Request) bool {
	if strings.EqualFold(r.URL.Query().Get("format"), "markdown") {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "text/markdown")
}
