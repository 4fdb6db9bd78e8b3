// Package repotest holds behaviour tests shared by every repository
// implementation.
package repotest

import (
	"context"
	"testing"
	"time"

	"github.com/segyhp/pawn-ledger/internal/domain"
	"github.com/segyhp/pawn-ledger/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var d0 = time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)

func day(n int) time.Time { return d0.AddDate(0, 0, n) }

// NewContract builds an Active contract with one open segment and a pawn
// transaction.
func NewContract(customer *domain.Customer, device string, principal int64, created time.Time) *domain.Contract {
	amount := decimal.NewFromInt(principal)
	rate := decimal.NewFromInt(2000)
	return &domain.Contract{
		ID:            uuid.New(),
		CustomerID:    customer.ID,
		CustomerName:  customer.Name,
		CustomerPhone: customer.Phone,
		Device:        device,
		LoanAmount:    amount,
		InterestRate:  rate,
		PawnDate:      day(0),
		DueDate:       day(30),
		LastPaidDate:  day(0),
		Status:        domain.StatusActive,
		Segments: []domain.InterestSegment{{
			StartDate:    day(0),
			Principal:    amount,
			InterestRate: rate,
		}},
		Transactions: []domain.Transaction{{
			ID:          uuid.New(),
			Kind:        domain.TransactionPawn,
			OccurredAt:  created,
			Amount:      amount,
			Description: "New pawn contract",
		}},
		CreatedAt: created,
		UpdatedAt: created,
	}
}

// NewCustomer builds a customer created at the given time.
func NewCustomer(name, phone string, created time.Time) *domain.Customer {
	c := &domain.Customer{
		ID:        uuid.New(),
		Name:      name,
		Phone:     phone,
		CreatedAt: created,
	}
	if len(phone) >= 4 {
		c.IDCard = "0792010" + phone[len(phone)-4:]
	}
	return c
}

// ContractRepository exercises a ContractRepository. Customers are created
// through customers first so SQL foreign keys hold.
func ContractRepository(t *testing.T, contracts repository.ContractRepository, customers repository.CustomerRepository) {
	ctx := context.Background()
	created := time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)

	alice := NewCustomer("Nguyen Van A", "0901111111", created)
	bob := NewCustomer("Tran Thi B", "0902222222", created)
	require.NoError(t, customers.Create(ctx, alice))
	require.NoError(t, customers.Create(ctx, bob))

	first := NewContract(alice, "iPhone 15 Pro Max", 25_000_000, created)
	second := NewContract(alice, "MacBook Air M2", 12_000_000, created.Add(time.Hour))
	third := NewContract(bob, "Galaxy S24 Ultra", 8_000_000, created.Add(2*time.Hour))
	for _, c := range []*domain.Contract{first, second, third} {
		require.NoError(t, contracts.Create(ctx, c))
	}

	t.Run("create duplicate", func(t *testing.T) {
		err := contracts.Create(ctx, first)
		assert.ErrorIs(t, err, repository.ErrDuplicate)
	})

	t.Run("get by id", func(t *testing.T) {
		got, err := contracts.GetByID(ctx, first.ID)
		require.NoError(t, err)

		assert.Equal(t, first.Device, got.Device)
		assert.Equal(t, first.CustomerID, got.CustomerID)
		assert.True(t, got.LoanAmount.Equal(first.LoanAmount))
		assert.True(t, got.PawnDate.Equal(first.PawnDate))
		assert.Equal(t, domain.StatusActive, got.Status)
		require.Len(t, got.Segments, 1)
		assert.True(t, got.Segments[0].IsOpen())
		require.Len(t, got.Transactions, 1)
		assert.Equal(t, domain.TransactionPawn, got.Transactions[0].Kind)
	})

	t.Run("get missing", func(t *testing.T) {
		_, err := contracts.GetByID(ctx, uuid.New())
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("update appends ledger rows and bumps version", func(t *testing.T) {
		got, err := contracts.GetByID(ctx, first.ID)
		require.NoError(t, err)

		got.Segments[0] = got.Segments[0].Closed(day(4))
		got.Segments = append(got.Segments, domain.InterestSegment{
			StartDate:    day(5),
			Principal:    decimal.NewFromInt(30_000_000),
			InterestRate: got.InterestRate,
		})
		got.LoanAmount = decimal.NewFromInt(30_000_000)
		got.Transactions = append(got.Transactions, domain.Transaction{
			ID:         uuid.New(),
			Kind:       domain.TransactionPrincipalIncrease,
			OccurredAt: created.Add(5 * 24 * time.Hour),
			Amount:     decimal.NewFromInt(5_000_000),
		})
		got.Notes = "box included"
		version := got.Version
		require.NoError(t, contracts.Update(ctx, got))
		assert.Equal(t, version+1, got.Version)

		reloaded, err := contracts.GetByID(ctx, first.ID)
		require.NoError(t, err)
		assert.Equal(t, version+1, reloaded.Version)
		assert.Equal(t, "box included", reloaded.Notes)
		assert.True(t, reloaded.LoanAmount.Equal(decimal.NewFromInt(30_000_000)))
		require.Len(t, reloaded.Segments, 2)
		require.NotNil(t, reloaded.Segments[0].EndDate)
		assert.True(t, reloaded.Segments[0].EndDate.Equal(day(4)))
		assert.True(t, reloaded.Segments[1].IsOpen())
		assert.True(t, reloaded.Segments[1].Principal.Equal(decimal.NewFromInt(30_000_000)))
		require.Len(t, reloaded.Transactions, 2)
		assert.Equal(t, domain.TransactionPrincipalIncrease, reloaded.Transactions[1].Kind)
	})

	t.Run("stale update is rejected", func(t *testing.T) {
		a, err := contracts.GetByID(ctx, second.ID)
		require.NoError(t, err)
		b, err := contracts.GetByID(ctx, second.ID)
		require.NoError(t, err)

		a.Status = domain.StatusRedeemed
		require.NoError(t, contracts.Update(ctx, a))

		b.Status = domain.StatusCancelled
		assert.ErrorIs(t, contracts.Update(ctx, b), repository.ErrVersionConflict)

		got, err := contracts.GetByID(ctx, second.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusRedeemed, got.Status)
	})

	t.Run("update missing", func(t *testing.T) {
		missing := NewContract(alice, "Pixel 8", 1_000_000, created)
		assert.ErrorIs(t, contracts.Update(ctx, missing), repository.ErrNotFound)
	})

	t.Run("list", func(t *testing.T) {
		all, err := contracts.List(ctx, domain.ContractFilter{})
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, third.ID, all[0].ID)
		assert.Equal(t, second.ID, all[1].ID)
		assert.Equal(t, first.ID, all[2].ID)
		assert.NotEmpty(t, all[2].Segments)
		assert.NotEmpty(t, all[2].Transactions)

		active, err := contracts.List(ctx, domain.ContractFilter{Statuses: []domain.ContractStatus{domain.StatusActive}})
		require.NoError(t, err)
		assert.Len(t, active, 2)

		byQuery, err := contracts.List(ctx, domain.ContractFilter{Query: "galaxy"})
		require.NoError(t, err)
		require.Len(t, byQuery, 1)
		assert.Equal(t, third.ID, byQuery[0].ID)

		byName, err := contracts.List(ctx, domain.ContractFilter{Query: "VAN A"})
		require.NoError(t, err)
		assert.Len(t, byName, 2)

		byCustomer, err := contracts.List(ctx, domain.ContractFilter{CustomerID: &bob.ID})
		require.NoError(t, err)
		assert.Len(t, byCustomer, 1)
	})

	t.Run("list by customer", func(t *testing.T) {
		got, err := contracts.ListByCustomer(ctx, alice.ID)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, second.ID, got[0].ID)
		assert.Equal(t, first.ID, got[1].ID)

		none, err := contracts.ListByCustomer(ctx, uuid.New())
		require.NoError(t, err)
		assert.Empty(t, none)
	})
}

// CustomerRepository exercises a CustomerRepository.
func CustomerRepository(t *testing.T, customers repository.CustomerRepository) {
	ctx := context.Background()
	created := time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)

	alice := NewCustomer("Nguyen Van A", "0901111111", created)
	samePhone := NewCustomer("Nguyen Thi C", "0901111111", created.Add(time.Hour))
	bob := NewCustomer("Tran Thi B", "0902222222", created)
	for _, c := range []*domain.Customer{alice, samePhone, bob} {
		require.NoError(t, customers.Create(ctx, c))
	}

	t.Run("create duplicate", func(t *testing.T) {
		assert.ErrorIs(t, customers.Create(ctx, alice), repository.ErrDuplicate)
	})

	t.Run("get by id", func(t *testing.T) {
		got, err := customers.GetByID(ctx, bob.ID)
		require.NoError(t, err)
		assert.Equal(t, bob.Name, got.Name)
		assert.Equal(t, bob.Phone, got.Phone)

		_, err = customers.GetByID(ctx, uuid.New())
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("find match", func(t *testing.T) {
		got, err := customers.FindMatch(ctx, "nguyen thi c", "0901111111")
		require.NoError(t, err)
		assert.Equal(t, samePhone.ID, got.ID)

		// phone alone falls back to the earliest customer with that phone
		got, err = customers.FindMatch(ctx, "Someone Else", "0901111111")
		require.NoError(t, err)
		assert.Equal(t, alice.ID, got.ID)

		_, err = customers.FindMatch(ctx, "Tran Thi B", "")
		assert.ErrorIs(t, err, repository.ErrNotFound)

		_, err = customers.FindMatch(ctx, "Tran Thi B", "0999999999")
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("list", func(t *testing.T) {
		all, err := customers.List(ctx, domain.CustomerFilter{})
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, samePhone.ID, all[0].ID)
		assert.Equal(t, alice.ID, all[1].ID)
		assert.Equal(t, bob.ID, all[2].ID)

		byPhone, err := customers.List(ctx, domain.CustomerFilter{Query: "2222"})
		require.NoError(t, err)
		require.Len(t, byPhone, 1)
		assert.Equal(t, bob.ID, byPhone[0].ID)

		byName, err := customers.List(ctx, domain.CustomerFilter{Query: "NGUYEN"})
		require.NoError(t, err)
		assert.Len(t, byName, 2)
	})

	t.Run("find match without phone", func(t *testing.T) {
		walkIn := NewCustomer("Le Van D", "", created.Add(2*time.Hour))
		require.NoError(t, customers.Create(ctx, walkIn))
		defer customers.Delete(ctx, walkIn.ID)

		got, err := customers.FindMatch(ctx, "le van d", "")
		require.NoError(t, err)
		assert.Equal(t, walkIn.ID, got.ID)

		// a phone-less name never matches a customer who has a phone
		_, err = customers.FindMatch(ctx, "Tran Thi B", "")
		assert.ErrorIs(t, err, repository.ErrNotFound)

		_, err = customers.FindMatch(ctx, "Le Van D", "0903333333")
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		gone := NewCustomer("Pham Van E", "0904444444", created)
		require.NoError(t, customers.Create(ctx, gone))

		require.NoError(t, customers.Delete(ctx, gone.ID))
		_, err := customers.GetByID(ctx, gone.ID)
		assert.ErrorIs(t, err, repository.ErrNotFound)
		assert.ErrorIs(t, customers.Delete(ctx, gone.ID), repository.ErrNotFound)

		all, err := customers.List(ctx, domain.CustomerFilter{})
		require.NoError(t, err)
		assert.Len(t, all, 3)
	})
}

// PreferenceRepository exercises a PreferenceRepository that starts empty.
func PreferenceRepository(t *testing.T, prefs repository.PreferenceRepository) {
	ctx := context.Background()

	_, err := prefs.LoadDefaults(ctx)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	saved := domain.Defaults{InterestRate: decimal.NewFromInt(1800), DurationDays: 45}
	require.NoError(t, prefs.SaveDefaults(ctx, saved))

	got, err := prefs.LoadDefaults(ctx)
	require.NoError(t, err)
	assert.True(t, got.InterestRate.Equal(saved.InterestRate))
	assert.Equal(t, 45, got.DurationDays)
}
