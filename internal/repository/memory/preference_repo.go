package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/segyhp/pawn-ledger/internal/domain"
	"github.com/segyhp/pawn-ledger/internal/repository"
)

type PreferenceRepository struct {
	mu       sync.RWMutex
	defaults *domain.Defaults
}

func NewPreferenceRepository() *PreferenceRepository {
	return &PreferenceRepository{}
}

func (r *PreferenceRepository) LoadDefaults(ctx context.Context) (domain.Defaults, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.defaults == nil {
		return domain.Defaults{}, fmt.Errorf("%w: defaults", repository.ErrNotFound)
	}
	return *r.defaults, nil
}

func (r *PreferenceRepository) SaveDefaults(ctx context.Context, defaults domain.Defaults) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.defaults = &defaults
	return nil
}
