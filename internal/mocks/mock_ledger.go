package mocks

import (
	"context"
	"time"

	"github.com/segyhp/pawn-ledger/internal/advisory"
	"github.com/segyhp/pawn-ledger/internal/domain"
	"github.com/segyhp/pawn-ledger/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

var _ service.Ledger = (*MockLedger)(nil)

type MockLedger struct {
	mock.Mock
}

// NewMockLedger creates a new mock ledger instance
func NewMockLedger() *MockLedger {
	return &MockLedger{}
}

func (m *MockLedger) Today() time.Time {
	args := m.Called()
	return args.Get(0).(time.Time)
}

func (m *MockLedger) Defaults() domain.Defaults {
	args := m.Called()
	return args.Get(0).(domain.Defaults)
}

func (m *MockLedger) CreateContract(ctx context.Context, req *domain.CreateContractRequest) (*domain.ContractView, error) {
	args := m.Called(ctx, req)
	return view(args)
}

func (m *MockLedger) GetContract(ctx context.Context, id uuid.UUID) (*domain.ContractView, error) {
	args := m.Called(ctx, id)
	return view(args)
}

func (m *MockLedger) ListContracts(ctx context.Context, query service.ContractQuery) ([]*domain.ContractView, error) {
	args := m.Called(ctx, query)
	return views(args)
}

func (m *MockLedger) EditContract(ctx context.Context, id uuid.UUID, patch domain.ContractPatch) (*domain.ContractView, error) {
	args := m.Called(ctx, id, patch)
	return view(args)
}

func (m *MockLedger) Renew(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (*domain.ContractView, error) {
	args := m.Called(ctx, id, amount)
	return view(args)
}

func (m *MockLedger) Redeem(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (*domain.ContractView, error) {
	args := m.Called(ctx, id, amount)
	return view(args)
}

func (m *MockLedger) AdjustPrincipal(ctx context.Context, id uuid.UUID, direction domain.AdjustDirection, amount decimal.Decimal) (*domain.ContractView, error) {
	args := m.Called(ctx, id, direction, amount)
	return view(args)
}

func (m *MockLedger) Cancel(ctx context.Context, id uuid.UUID, reason string) (*domain.ContractView, error) {
	args := m.Called(ctx, id, reason)
	return view(args)
}

func (m *MockLedger) Forfeit(ctx context.Context, id uuid.UUID, reason string) (*domain.ContractView, error) {
	args := m.Called(ctx, id, reason)
	return view(args)
}

func (m *MockLedger) Statement(ctx context.Context, id uuid.UUID) (string, error) {
	args := m.Called(ctx, id)
	return args.String(0), args.Error(1)
}

func (m *MockLedger) CreateCustomer(ctx context.Context, req *domain.CreateCustomerRequest) (*domain.Customer, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Customer), args.Error(1)
}

func (m *MockLedger) GetCustomer(ctx context.Context, id uuid.UUID) (*domain.CustomerResponse, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CustomerResponse), args.Error(1)
}

func (m *MockLedger) ListCustomers(ctx context.Context, query string) ([]*domain.Customer, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Customer), args.Error(1)
}

func (m *MockLedger) CustomerContracts(ctx context.Context, id uuid.UUID) ([]*domain.ContractView, error) {
	args := m.Called(ctx, id)
	return views(args)
}

func (m *MockLedger) Summary(ctx context.Context) (*domain.Summary, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Summary), args.Error(1)
}

func (m *MockLedger) OverdueContracts(ctx context.Context) ([]*domain.ContractView, error) {
	args := m.Called(ctx)
	return views(args)
}

func (m *MockLedger) DueWithin(ctx context.Context, days int) ([]*domain.ContractView, error) {
	args := m.Called(ctx, days)
	return views(args)
}

func (m *MockLedger) ValuationAdvice(ctx context.Context, req *domain.ValuationRequest) *advisory.Valuation {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(*advisory.Valuation)
}

func (m *MockLedger) AnalyzeDeviceImage(ctx context.Context, image []byte, mimeType string) string {
	args := m.Called(ctx, image, mimeType)
	return args.String(0)
}

func view(args mock.Arguments) (*domain.ContractView, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ContractView), args.Error(1)
}

func views(args mock.Arguments) ([]*domain.ContractView, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ContractView), args.Error(1)
}
