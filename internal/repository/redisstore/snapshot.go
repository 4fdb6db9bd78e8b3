package redisstore

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

const OverdueSnapshotKey = "pawn:overdue:latest"

// OverdueEntry is one contract in an overdue snapshot.
type OverdueEntry struct {
	ContractID   string `json:"contract_id"`
	CustomerName string `json:"customer_name"`
	Device       string `json:"device"`
	DueDate      string `json:"due_date"`
	OverdueDays  int    `json:"overdue_days"`
	InterestOwed string `json:"interest_owed"`
}

// OverdueSnapshot is the result of one overdue sweep.
type OverdueSnapshot struct {
	ReferenceDate string         `json:"reference_date"`
	GeneratedAt   time.Time      `json:"generated_at"`
	Contracts     []OverdueEntry `json:"contracts"`
}

// SnapshotStore caches the latest overdue sweep.
type SnapshotStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSnapshotStore(client *redis.Client, ttl time.Duration) *SnapshotStore {
	return &SnapshotStore{client: client, ttl: ttl}
}

func (s *SnapshotStore) SaveOverdue(ctx context.Context, snapshot OverdueSnapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, OverdueSnapshotKey, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache overdue snapshot: %w", err)
	}
	return nil
}

// LatestOverdue returns the cached sweep, or nil when none is cached.
func (s *SnapshotStore) LatestOverdue(ctx context.Context) (*OverdueSnapshot, error) {
	data, err := s.client.Get(ctx, OverdueSnapshotKey).Bytes()
	if IsNil(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read overdue snapshot: %w", err)
	}

	var snapshot OverdueSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}
