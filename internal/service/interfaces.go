package service

import (
	"context"
	"time"

	"github.com/segyhp/pawn-ledger/internal/advisory"
	"github.com/segyhp/pawn-ledger/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Ledger is the application surface used by the HTTP handlers, the
// scheduler and the CLI.
type Ledger interface {
	Today() time.Time
	Defaults() domain.Defaults

	CreateContract(ctx context.Context, req *domain.CreateContractRequest) (*domain.ContractView, error)
	GetContract(ctx context.Context, id uuid.UUID) (*domain.ContractView, error)
	ListContracts(ctx context.Context, query ContractQuery) ([]*domain.ContractView, error)
	EditContract(ctx context.Context, id uuid.UUID, patch domain.ContractPatch) (*domain.ContractView, error)
	Renew(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (*domain.ContractView, error)
	Redeem(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (*domain.ContractView, error)
	AdjustPrincipal(ctx context.Context, id uuid.UUID, direction domain.AdjustDirection, amount decimal.Decimal) (*domain.ContractView, error)
	Cancel(ctx context.Context, id uuid.UUID, reason string) (*domain.ContractView, error)
	Forfeit(ctx context.Context, id uuid.UUID, reason string) (*domain.ContractView, error)
	Statement(ctx context.Context, id uuid.UUID) (string, error)

	CreateCustomer(ctx context.Context, req *domain.CreateCustomerRequest) (*domain.Customer, error)
	GetCustomer(ctx context.Context, id uuid.UUID) (*domain.CustomerResponse, error)
	ListCustomers(ctx context.Context, query string) ([]*domain.Customer, error)
	CustomerContracts(ctx context.Context, id uuid.UUID) ([]*domain.ContractView, error)

	Summary(ctx context.Context) (*domain.Summary, error)
	OverdueContracts(ctx context.Context) ([]*domain.ContractView, error)
	DueWithin(ctx context.Context, days int) ([]*domain.ContractView, error)

	ValuationAdvice(ctx context.Context, req *domain.ValuationRequest) *advisory.Valuation
	AnalyzeDeviceImage(ctx context.Context, image []byte, mimeType string) string
}

// ContractQuery filters contract lists. Status is matched against the
// display status, so "overdue" selects Active contracts past due and
// "active" selects every Active contract.
type ContractQuery struct {
	Status     string
	Query      string
	CustomerID *uuid.UUID
}
