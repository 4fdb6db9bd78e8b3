package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/segyhp/pawn-ledger/internal/domain"
	"github.com/segyhp/pawn-ledger/internal/repository"

	"github.com/google/uuid"
)

type ContractRepository struct {
	mu            sync.RWMutex
	contracts     map[uuid.UUID]*domain.Contract
	customerIndex map[uuid.UUID][]uuid.UUID
}

func NewContractRepository() *ContractRepository {
	return &ContractRepository{
		contracts:     make(map[uuid.UUID]*domain.Contract),
		customerIndex: make(map[uuid.UUID][]uuid.UUID),
	}
}

func (r *ContractRepository) Create(ctx context.Context, contract *domain.Contract) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.contracts[contract.ID]; exists {
		return fmt.Errorf("%w: contract %s", repository.ErrDuplicate, contract.ID)
	}

	stored := contract.Clone()
	r.contracts[contract.ID] = &stored
	r.customerIndex[contract.CustomerID] = append(r.customerIndex[contract.CustomerID], contract.ID)
	return nil
}

func (r *ContractRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Contract, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	contract, exists := r.contracts[id]
	if !exists {
		return nil, fmt.Errorf("%w: contract %s", repository.ErrNotFound, id)
	}
	out := contract.Clone()
	return &out, nil
}

func (r *ContractRepository) Update(ctx context.Context, contract *domain.Contract) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, exists := r.contracts[contract.ID]
	if !exists {
		return fmt.Errorf("%w: contract %s", repository.ErrNotFound, contract.ID)
	}
	if current.Version != contract.Version {
		return fmt.Errorf("%w: contract %s at version %d, stored %d",
			repository.ErrVersionConflict, contract.ID, contract.Version, current.Version)
	}

	contract.Version++
	stored := contract.Clone()
	if stored.CustomerID != current.CustomerID {
		r.unindex(current.CustomerID, current.ID)
		r.customerIndex[stored.CustomerID] = append(r.customerIndex[stored.CustomerID], stored.ID)
	}
	r.contracts[contract.ID] = &stored
	return nil
}

func (r *ContractRepository) List(ctx context.Context, filter domain.ContractFilter) ([]*domain.Contract, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*domain.Contract, 0, len(r.contracts))
	for _, contract := range r.contracts {
		if filter.Matches(contract) {
			out := contract.Clone()
			result = append(result, &out)
		}
	}
	sortNewestFirst(result)
	return result, nil
}

func (r *ContractRepository) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]*domain.Contract, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := r.customerIndex[customerID]
	result := make([]*domain.Contract, 0, len(ids))
	for _, id := range ids {
		if contract, exists := r.contracts[id]; exists {
			out := contract.Clone()
			result = append(result, &out)
		}
	}
	sortNewestFirst(result)
	return result, nil
}

func (r *ContractRepository) unindex(customerID, contractID uuid.UUID) {
	ids := r.customerIndex[customerID]
	for i, id := range ids {
		if id == contractID {
			r.customerIndex[customerID] = append(ids[:i], ids[i+1:]...)
			return
		}
	}
}
