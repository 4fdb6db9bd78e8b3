// Package redisstore keeps shop preferences and scheduler snapshots in redis.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/segyhp/pawn-ledger/internal/domain"
	"github.com/segyhp/pawn-ledger/internal/repository"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

const (
	DefaultsKey = "pawn:defaults"

	fieldInterestRate = "interest_rate"
	fieldDurationDays = "duration_days"
)

var _ repository.PreferenceRepository = (*PreferenceRepository)(nil)

type PreferenceRepository struct {
	client *redis.Client
}

func NewPreferenceRepository(client *redis.Client) *PreferenceRepository {
	return &PreferenceRepository{client: client}
}

func (r *PreferenceRepository) LoadDefaults(ctx context.Context) (domain.Defaults, error) {
	values, err := r.client.HGetAll(ctx, DefaultsKey).Result()
	if err != nil {
		return domain.Defaults{}, fmt.Errorf("failed to load defaults: %w", err)
	}
	if len(values) == 0 {
		return domain.Defaults{}, fmt.Errorf("%w: %s", repository.ErrNotFound, DefaultsKey)
	}

	rate, err := decimal.NewFromString(values[fieldInterestRate])
	if err != nil {
		return domain.Defaults{}, fmt.Errorf("invalid %s.%s: %w", DefaultsKey, fieldInterestRate, err)
	}
	days, err := strconv.Atoi(values[fieldDurationDays])
	if err != nil {
		return domain.Defaults{}, fmt.Errorf("invalid %s.%s: %w", DefaultsKey, fieldDurationDays, err)
	}
	return domain.Defaults{InterestRate: rate, DurationDays: days}, nil
}

func (r *PreferenceRepository) SaveDefaults(ctx context.Context, defaults domain.Defaults) error {
	err := r.client.HSet(ctx, DefaultsKey,
		fieldInterestRate, defaults.InterestRate.String(),
		fieldDurationDays, strconv.Itoa(defaults.DurationDays),
	).Err()
	if err != nil {
		return fmt.Errorf("failed to save defaults: %w", err)
	}
	return nil
}

// IsNil reports whether err is a redis miss.
func IsNil(err error) bool {
	return errors.Is(err, redis.Nil)
}
