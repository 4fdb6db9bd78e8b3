package handler

import (
	"net/http"

	"github.com/segyhp/pawn-ledger/internal/domain"
	"github.com/segyhp/pawn-ledger/internal/service"
	"github.com/segyhp/pawn-ledger/pkg/response"

	"github.com/go-playground/validator/v10"
)

type CustomerHandler struct {
	ledger    service.Ledger
	validator *validator.Validate
}

func NewCustomerHandler(ledger service.Ledger) *CustomerHandler {
	return &CustomerHandler{
		ledger:    ledger,
		validator: newValidator(),
	}
}

func (h *CustomerHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateCustomerRequest
	if !decode(w, r, h.validator, &req, false) {
		return
	}

	customer, err := h.ledger.CreateCustomer(r.Context(), &req)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Created(w, customer)
}

func (h *CustomerHandler) List(w http.ResponseWriter, r *http.Request) {
	customers, err := h.ledger.ListCustomers(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, customers)
}

func (h *CustomerHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	customer, err := h.ledger.GetCustomer(r.Context(), id)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, customer)
}

func (h *CustomerHandler) Contracts(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	views, err := h.ledger.CustomerContracts(r.Context(), id)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, views)
}
