package lifecycle

import (
	"testing"
	"time"

	"github.com/segyhp/pawn-ledger/internal/accrual"
	"github.com/segyhp/pawn-ledger/internal/domain"
	customError "github.com/segyhp/pawn-ledger/pkg/errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var d0 = time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)

func day(n int) time.Time { return d0.AddDate(0, 0, n) }

// testClock is a settable clock for the manager.
type testClock struct{ t time.Time }

func (c *testClock) Now() time.Time { return c.t }

func (c *testClock) set(n int) { c.t = day(n).Add(10 * time.Hour) }

func newTestManager(t *testing.T) (*Manager, *testClock) {
	t.Helper()
	clock := &testClock{}
	clock.set(0)
	return NewManager(WithClock(clock.Now)), clock
}

var defaults = domain.Defaults{InterestRate: decimal.NewFromInt(2000), DurationDays: 30}

func newContract(t *testing.T, m *Manager) domain.Contract {
	t.Helper()
	c, err := m.Create(CreateInput{
		Customer:  domain.Customer{ID: uuid.New(), Name: "Nguyen Van A", Phone: "0901234567"},
		Device:    "iPhone 15 Pro Max",
		Principal: decimal.NewFromInt(25_000_000),
	}, defaults)
	require.NoError(t, err)
	return c
}

func TestCreate(t *testing.T) {
	m, _ := newTestManager(t)
	c := newContract(t, m)

	assert.Equal(t, domain.StatusActive, c.Status)
	assert.Equal(t, d0, c.PawnDate)
	assert.Equal(t, day(30), c.DueDate)
	assert.Equal(t, d0, c.LastPaidDate)
	assert.True(t, c.InterestRate.Equal(decimal.NewFromInt(2000)))

	require.Len(t, c.Segments, 1)
	assert.True(t, c.Segments[0].IsOpen())
	assert.True(t, c.Segments[0].Principal.Equal(c.LoanAmount))

	require.Len(t, c.Transactions, 1)
	assert.Equal(t, domain.TransactionPawn, c.Transactions[0].Kind)
	assert.True(t, c.Transactions[0].Amount.Equal(decimal.NewFromInt(25_000_000)))
}

func TestCreateExplicitTerms(t *testing.T) {
	m, _ := newTestManager(t)
	rate := decimal.NewFromInt(1500)

	c, err := m.Create(CreateInput{
		Customer:     domain.Customer{ID: uuid.New(), Name: "Tran Thi B"},
		Device:       "Galaxy S24",
		Principal:    decimal.NewFromInt(8_000_000),
		InterestRate: &rate,
		PawnDate:     day(-5),
		DurationDays: 15,
	}, defaults)
	require.NoError(t, err)

	assert.Equal(t, day(-5), c.PawnDate)
	assert.Equal(t, day(10), c.DueDate)
	assert.True(t, c.InterestRate.Equal(rate))
	assert.True(t, c.Segments[0].InterestRate.Equal(rate))
}

func TestCreateValidation(t *testing.T) {
	m, _ := newTestManager(t)
	negative := decimal.NewFromInt(-1)

	tests := []struct {
		name  string
		input CreateInput
	}{
		{"zero principal", CreateInput{Customer: domain.Customer{Name: "A"}, Device: "Phone", Principal: decimal.Zero}},
		{"negative principal", CreateInput{Customer: domain.Customer{Name: "A"}, Device: "Phone", Principal: decimal.NewFromInt(-5)}},
		{"empty customer name", CreateInput{Customer: domain.Customer{Name: "  "}, Device: "Phone", Principal: decimal.NewFromInt(1)}},
		{"empty device", CreateInput{Customer: domain.Customer{Name: "A"}, Device: "", Principal: decimal.NewFromInt(1)}},
		{"negative rate", CreateInput{Customer: domain.Customer{Name: "A"}, Device: "Phone", Principal: decimal.NewFromInt(1), InterestRate: &negative}},
		{"negative duration", CreateInput{Customer: domain.Customer{Name: "A"}, Device: "Phone", Principal: decimal.NewFromInt(1), DurationDays: -3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Create(tt.input, defaults)
			assert.ErrorIs(t, err, customError.ErrValidation)
		})
	}
}

func TestRenew(t *testing.T) {
	m, clock := newTestManager(t)
	c := newContract(t, m)

	clock.set(9)
	owed := accrual.ForContract(&c, m.Today())
	require.True(t, owed.InterestOwed.Equal(decimal.NewFromInt(500_000)))

	renewed, err := m.Renew(c, owed.InterestOwed)
	require.NoError(t, err)

	assert.Equal(t, domain.StatusActive, renewed.Status)
	assert.Equal(t, day(9), renewed.LastPaidDate)
	require.Len(t, renewed.Segments, 2)
	assert.Equal(t, day(8), *renewed.Segments[0].EndDate)
	assert.True(t, renewed.Segments[1].IsOpen())
	assert.Equal(t, day(9), renewed.Segments[1].StartDate)
	assert.True(t, renewed.Segments[1].Principal.Equal(c.LoanAmount))

	last := renewed.Transactions[len(renewed.Transactions)-1]
	assert.Equal(t, domain.TransactionInterestPayment, last.Kind)
	assert.True(t, last.Amount.Equal(decimal.NewFromInt(500_000)))
	assert.Contains(t, last.Description, "10 days")

	// the input contract is untouched
	assert.Len(t, c.Segments, 1)
	assert.True(t, c.Segments[0].IsOpen())
	assert.Len(t, c.Transactions, 1)

	// the accrual clock restarts on the settlement day
	clock.set(12)
	after := accrual.ForContract(&renewed, m.Today())
	assert.Equal(t, 4, after.TotalDays)
	assert.True(t, after.InterestOwed.Equal(decimal.NewFromInt(200_000)))
}

func TestRenewRejectsPaymentBelowOneDay(t *testing.T) {
	m, _ := newTestManager(t)
	c := newContract(t, m)

	_, err := m.Renew(c, decimal.NewFromInt(49_999))
	assert.ErrorIs(t, err, customError.ErrValidation)

	_, err = m.Renew(c, decimal.Zero)
	assert.ErrorIs(t, err, customError.ErrValidation)
}

func TestRenewAcceptsHugePayment(t *testing.T) {
	m, _ := newTestManager(t)
	c := newContract(t, m)

	renewed, err := m.Renew(c, decimal.RequireFromString("1000000000000000000"))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, renewed.Status)
	assert.Equal(t, domain.TransactionInterestPayment, renewed.Transactions[len(renewed.Transactions)-1].Kind)
}

func TestAdjustPrincipal(t *testing.T) {
	tests := []struct {
		name      string
		direction domain.AdjustDirection
		delta     int64
		expected  int64
		kind      domain.TransactionKind
	}{
		{"increase", domain.AdjustIncrease, 5_000_000, 30_000_000, domain.TransactionPrincipalIncrease},
		{"decrease", domain.AdjustDecrease, 5_000_000, 20_000_000, domain.TransactionPrincipalDecrease},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, clock := newTestManager(t)
			c := newContract(t, m)
			clock.set(5)

			adjusted, err := m.AdjustPrincipal(c, tt.direction, decimal.NewFromInt(tt.delta))
			require.NoError(t, err)

			assert.True(t, adjusted.LoanAmount.Equal(decimal.NewFromInt(tt.expected)))
			require.Len(t, adjusted.Segments, 2)
			require.NotNil(t, adjusted.Segments[0].EndDate)
			assert.Equal(t, day(4), *adjusted.Segments[0].EndDate)
			assert.True(t, adjusted.Segments[0].Principal.Equal(c.LoanAmount))

			open, ok := adjusted.OpenSegment()
			require.True(t, ok)
			assert.Equal(t, day(5), open.StartDate)
			assert.True(t, open.Principal.Equal(adjusted.LoanAmount))
			assert.True(t, open.InterestRate.Equal(c.InterestRate))

			last := adjusted.Transactions[len(adjusted.Transactions)-1]
			assert.Equal(t, tt.kind, last.Kind)
			assert.True(t, last.Amount.Equal(decimal.NewFromInt(tt.delta)))

			// 5 days at 25M plus 2 days at the new principal
			clock.set(6)
			res := accrual.ForContract(&adjusted, m.Today())
			assert.Equal(t, 7, res.TotalDays)
			expected := decimal.NewFromInt(250_000).Add(decimal.NewFromInt(tt.expected / 1_000_000 * 2000 * 2))
			assert.True(t, res.InterestOwed.Equal(expected), "Expected %v, but got %v", expected, res.InterestOwed)
		})
	}
}

func TestAdjustPrincipalRejectsNonPositiveResult(t *testing.T) {
	m, _ := newTestManager(t)
	c := newContract(t, m)

	_, err := m.AdjustPrincipal(c, domain.AdjustDecrease, decimal.NewFromInt(25_000_000))
	assert.ErrorIs(t, err, customError.ErrValidation)

	_, err = m.AdjustPrincipal(c, domain.AdjustIncrease, decimal.Zero)
	assert.ErrorIs(t, err, customError.ErrValidation)

	_, err = m.AdjustPrincipal(c, "sideways", decimal.NewFromInt(1))
	assert.ErrorIs(t, err, customError.ErrValidation)
}

func TestRedeemIsTerminal(t *testing.T) {
	m, _ := newTestManager(t)
	c := newContract(t, m)

	total := decimal.NewFromInt(25_050_000)
	redeemed, err := m.Redeem(c, total)
	require.NoError(t, err)

	assert.Equal(t, domain.StatusRedeemed, redeemed.Status)
	assert.Equal(t, c.Segments, redeemed.Segments)
	last := redeemed.Transactions[len(redeemed.Transactions)-1]
	assert.Equal(t, domain.TransactionRedemption, last.Kind)
	assert.True(t, last.Amount.Equal(total))

	_, err = m.Renew(redeemed, decimal.NewFromInt(500_000))
	assert.ErrorIs(t, err, customError.ErrInvalidStateTransition)
	_, err = m.Redeem(redeemed, total)
	assert.ErrorIs(t, err, customError.ErrInvalidStateTransition)
	_, err = m.AdjustPrincipal(redeemed, domain.AdjustIncrease, decimal.NewFromInt(1))
	assert.ErrorIs(t, err, customError.ErrInvalidStateTransition)
	_, err = m.Cancel(redeemed, "")
	assert.ErrorIs(t, err, customError.ErrInvalidStateTransition)
	_, err = m.Forfeit(redeemed, "")
	assert.ErrorIs(t, err, customError.ErrInvalidStateTransition)
}

func TestCancelAndForfeitAppendAuditTransaction(t *testing.T) {
	m, _ := newTestManager(t)
	c := newContract(t, m)

	cancelled, err := m.Cancel(c, "customer changed mind")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, cancelled.Status)
	last := cancelled.Transactions[len(cancelled.Transactions)-1]
	assert.Equal(t, domain.TransactionCancellation, last.Kind)
	assert.True(t, last.Amount.IsZero())
	assert.Contains(t, last.Description, "customer changed mind")

	forfeited, err := m.Forfeit(c, "")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusForfeited, forfeited.Status)
	assert.Equal(t, domain.TransactionForfeiture, forfeited.Transactions[len(forfeited.Transactions)-1].Kind)
}

func TestEditMetadata(t *testing.T) {
	m, clock := newTestManager(t)
	c := newContract(t, m)

	name, notes := "Nguyen Van An", "screen scratched"
	edited, err := m.EditMetadata(c, domain.ContractPatch{CustomerName: &name, Notes: &notes})
	require.NoError(t, err)
	assert.Equal(t, name, edited.CustomerName)
	assert.Equal(t, notes, edited.Notes)
	assert.Len(t, edited.Segments, 1)
	assert.Len(t, edited.Transactions, 1)

	// metadata edits stay allowed after the contract closes
	redeemed, err := m.Redeem(edited, decimal.NewFromInt(25_000_000))
	require.NoError(t, err)
	device := "iPhone 15 Pro Max 256GB"
	_, err = m.EditMetadata(redeemed, domain.ContractPatch{Device: &device})
	assert.NoError(t, err)

	empty := " "
	_, err = m.EditMetadata(c, domain.ContractPatch{CustomerName: &empty})
	assert.ErrorIs(t, err, customError.ErrValidation)

	clock.set(3)
	rate := decimal.NewFromInt(1500)
	repriced, err := m.EditMetadata(c, domain.ContractPatch{InterestRate: &rate})
	require.NoError(t, err)
	assert.True(t, repriced.InterestRate.Equal(rate))
	require.Len(t, repriced.Segments, 2)
	assert.Equal(t, day(2), *repriced.Segments[0].EndDate)
	assert.True(t, repriced.Segments[0].InterestRate.Equal(decimal.NewFromInt(2000)))
	assert.True(t, repriced.Segments[1].InterestRate.Equal(rate))
	assert.Equal(t, domain.TransactionRateChange, repriced.Transactions[len(repriced.Transactions)-1].Kind)

	_, err = m.EditMetadata(redeemed, domain.ContractPatch{InterestRate: &rate})
	assert.ErrorIs(t, err, customError.ErrInvalidStateTransition)
}

func TestTodayUsesShopTimezone(t *testing.T) {
	saigon, err := time.LoadLocation("Asia/Ho_Chi_Minh")
	require.NoError(t, err)

	m := NewManager(WithLocation(saigon), WithClock(func() time.Time {
		return time.Date(2025, 1, 9, 18, 0, 0, 0, time.UTC)
	}))
	assert.Equal(t, d0, m.Today())
}
