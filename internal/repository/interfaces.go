package repository

import (
	"context"
	"errors"

	"github.com/segyhp/pawn-ledger/internal/domain"

	"github.com/google/uuid"
)

// ContractRepository defines the interface for contract data operations.
// Contracts are stored as aggregates: segments and transactions travel with
// the contract row.
type ContractRepository interface {
	// Create inserts a new contract with its segments and transactions
	Create(ctx context.Context, contract *domain.Contract) error

	// GetByID retrieves a contract by its ID
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Contract, error)

	// Update replaces the stored contract when its version still matches
	// contract.Version, then increments contract.Version
	Update(ctx context.Context, contract *domain.Contract) error

	// List returns contracts matching the filter, newest first
	List(ctx context.Context, filter domain.ContractFilter) ([]*domain.Contract, error)

	// ListByCustomer returns the contracts of one customer, newest first
	ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]*domain.Contract, error)
}

// CustomerRepository defines the interface for customer data operations
type CustomerRepository interface {
	Create(ctx context.Context, customer *domain.Customer) error

	GetByID(ctx context.Context, id uuid.UUID) (*domain.Customer, error)

	// FindMatch returns the customer with the same name (case-insensitive)
	// and phone, or failing that the customer with the same non-empty phone.
	// An empty phone only matches a same-name customer without a phone.
	FindMatch(ctx context.Context, name, phone string) (*domain.Customer, error)

	// Delete removes a customer; ErrNotFound if absent
	Delete(ctx context.Context, id uuid.UUID) error

	// List returns customers matching the filter, ordered by name
	List(ctx context.Context, filter domain.CustomerFilter) ([]*domain.Customer, error)
}

// PreferenceRepository persists the shop defaults used for new contracts
type PreferenceRepository interface {
	// LoadDefaults returns ErrNotFound when nothing has been saved yet
	LoadDefaults(ctx context.Context) (domain.Defaults, error)

	SaveDefaults(ctx context.Context, defaults domain.Defaults) error
}

var (
	ErrNotFound        = errors.New("not found")
	ErrDuplicate       = errors.New("duplicate entry")
	ErrVersionConflict = errors.New("version conflict")
)
