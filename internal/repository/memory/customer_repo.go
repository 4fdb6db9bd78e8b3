package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/segyhp/pawn-ledger/internal/domain"
	"github.com/segyhp/pawn-ledger/internal/repository"

	"github.com/google/uuid"
)

type CustomerRepository struct {
	mu        sync.RWMutex
	customers map[uuid.UUID]*domain.Customer
}

func NewCustomerRepository() *CustomerRepository {
	return &CustomerRepository{
		customers: make(map[uuid.UUID]*domain.Customer),
	}
}

func (r *CustomerRepository) Create(ctx context.Context, customer *domain.Customer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.customers[customer.ID]; exists {
		return fmt.Errorf("%w: customer %s", repository.ErrDuplicate, customer.ID)
	}
	stored := *customer
	r.customers[customer.ID] = &stored
	return nil
}

func (r *CustomerRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	customer, exists := r.customers[id]
	if !exists {
		return nil, fmt.Errorf("%w: customer %s", repository.ErrNotFound, id)
	}
	out := *customer
	return &out, nil
}

func (r *CustomerRepository) FindMatch(ctx context.Context, name, phone string) (*domain.Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	name, phone = strings.TrimSpace(name), strings.TrimSpace(phone)
	var byPhone *domain.Customer
	for _, c := range r.customers {
		if c.Phone != phone {
			continue
		}
		if strings.EqualFold(c.Name, name) {
			out := *c
			return &out, nil
		}
		if phone != "" && (byPhone == nil || c.CreatedAt.Before(byPhone.CreatedAt)) {
			byPhone = c
		}
	}
	if byPhone != nil {
		out := *byPhone
		return &out, nil
	}
	return nil, fmt.Errorf("%w: customer %q %q", repository.ErrNotFound, name, phone)
}

func (r *CustomerRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.customers[id]; !exists {
		return fmt.Errorf("%w: customer %s", repository.ErrNotFound, id)
	}
	delete(r.customers, id)
	return nil
}

func (r *CustomerRepository) List(ctx context.Context, filter domain.CustomerFilter) ([]*domain.Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*domain.Customer, 0, len(r.customers))
	for _, c := range r.customers {
		if filter.Matches(c) {
			out := *c
			result = append(result, &out)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		a, b := strings.ToLower(result[i].Name), strings.ToLower(result[j].Name)
		if a != b {
			return a < b
		}
		return result[i].ID.String() < result[j].ID.String()
	})
	return result, nil
}
