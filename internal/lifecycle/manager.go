// Package lifecycle applies pawn contract operations. Every operation
// validates first and then works on a deep copy, so a failed call leaves the
// input untouched and a successful one returns the next contract state.
package lifecycle

import (
	"fmt"
	"strings"
	"time"

	"github.com/segyhp/pawn-ledger/internal/accrual"
	"github.com/segyhp/pawn-ledger/internal/domain"
	customError "github.com/segyhp/pawn-ledger/pkg/errors"
	"github.com/segyhp/pawn-ledger/pkg/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Manager holds the clock and id source used to stamp operations.
type Manager struct {
	now   func() time.Time
	loc   *time.Location
	newID func() uuid.UUID
}

type Option func(*Manager)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithLocation sets the shop timezone that decides which calendar day "today" is.
func WithLocation(loc *time.Location) Option {
	return func(m *Manager) {
		if loc != nil {
			m.loc = loc
		}
	}
}

// WithIDs overrides uuid.New.
func WithIDs(newID func() uuid.UUID) Option {
	return func(m *Manager) { m.newID = newID }
}

func NewManager(opts ...Option) *Manager {
	m := &Manager{
		now:   time.Now,
		loc:   time.UTC,
		newID: uuid.New,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Today is the current calendar day in the shop timezone.
func (m *Manager) Today() time.Time {
	return utils.Today(m.now(), m.loc)
}

// Now is the current instant in UTC.
func (m *Manager) Now() time.Time {
	return m.now().UTC()
}

// NewID returns a fresh identifier from the manager's id source.
func (m *Manager) NewID() uuid.UUID {
	return m.newID()
}

// CreateInput describes a new pawn. Nil rate and zero duration or pawn date
// fall back to Defaults and today.
type CreateInput struct {
	Customer     domain.Customer
	Device       string
	Principal    decimal.Decimal
	InterestRate *decimal.Decimal
	PawnDate     time.Time
	DurationDays int
	Paperless    bool
	Notes        string
}

// Create opens a new Active contract with a single open segment and a pawn
// transaction.
func (m *Manager) Create(in CreateInput, defaults domain.Defaults) (domain.Contract, error) {
	rate := defaults.InterestRate
	if in.InterestRate != nil {
		rate = *in.InterestRate
	}
	duration := in.DurationDays
	if duration == 0 {
		duration = defaults.DurationDays
	}
	pawnDate := utils.DateOf(in.PawnDate)
	if in.PawnDate.IsZero() {
		pawnDate = m.Today()
	}

	switch {
	case !in.Principal.IsPositive():
		return domain.Contract{}, customError.Validation("principal must be greater than 0, got %s", in.Principal)
	case strings.TrimSpace(in.Customer.Name) == "":
		return domain.Contract{}, customError.Validation("customer name is required")
	case strings.TrimSpace(in.Device) == "":
		return domain.Contract{}, customError.Validation("device description is required")
	case rate.IsNegative():
		return domain.Contract{}, customError.Validation("interest rate must not be negative, got %s", rate)
	case duration <= 0:
		return domain.Contract{}, customError.Validation("duration must be greater than 0 days, got %d", duration)
	}

	now := m.now().UTC()
	c := domain.Contract{
		ID:            m.newID(),
		CustomerID:    in.Customer.ID,
		CustomerName:  strings.TrimSpace(in.Customer.Name),
		CustomerPhone: in.Customer.Phone,
		Device:        strings.TrimSpace(in.Device),
		LoanAmount:    in.Principal,
		InterestRate:  rate,
		PawnDate:      pawnDate,
		DueDate:       utils.AddDays(pawnDate, duration),
		LastPaidDate:  pawnDate,
		Status:        domain.StatusActive,
		Paperless:     in.Paperless,
		Notes:         in.Notes,
		Segments: []domain.InterestSegment{{
			StartDate:    pawnDate,
			Principal:    in.Principal,
			InterestRate: rate,
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}
	c.Transactions = []domain.Transaction{m.transaction(domain.TransactionPawn, in.Principal,
		fmt.Sprintf("New pawn contract for %s, %d days", utils.FormatMoney(in.Principal), duration))}
	return c, nil
}

// Renew settles interest with a payment. The open segment is closed the day
// before settlement and an identical one starts on the settlement day, which
// becomes the new last-paid date.
func (m *Manager) Renew(c domain.Contract, amount decimal.Decimal) (domain.Contract, error) {
	if err := requireActive(&c, "renew"); err != nil {
		return domain.Contract{}, err
	}
	if !amount.IsPositive() {
		return domain.Contract{}, customError.Validation("payment amount must be greater than 0, got %s", amount)
	}
	days := accrual.DaysCovered(amount, c.LoanAmount, c.InterestRate)
	if days <= 0 {
		return domain.Contract{}, customError.Validation("payment of %s does not cover a single day of interest (%s per day)",
			utils.FormatMoney(amount), accrual.DailyInterest(c.LoanAmount, c.InterestRate).StringFixed(0))
	}

	today := m.Today()
	next := c.Clone()
	next.Segments = m.rollSegment(next.Segments, today, next.LoanAmount, next.InterestRate)
	next.LastPaidDate = today
	next.Transactions = append(next.Transactions, m.transaction(domain.TransactionInterestPayment, amount,
		fmt.Sprintf("Interest payment of %s covering %d days", utils.FormatMoney(amount), days)))
	return m.touch(next), nil
}

// AdjustPrincipal lends more or takes a partial repayment. The open segment
// closes yesterday and a segment with the new principal starts today.
func (m *Manager) AdjustPrincipal(c domain.Contract, direction domain.AdjustDirection, delta decimal.Decimal) (domain.Contract, error) {
	if err := requireActive(&c, "adjust principal of"); err != nil {
		return domain.Contract{}, err
	}
	if !delta.IsPositive() {
		return domain.Contract{}, customError.Validation("adjustment amount must be greater than 0, got %s", delta)
	}

	var (
		principal   decimal.Decimal
		kind        domain.TransactionKind
		description string
	)
	switch direction {
	case domain.AdjustIncrease:
		principal = c.LoanAmount.Add(delta)
		kind = domain.TransactionPrincipalIncrease
		description = fmt.Sprintf("Additional loan of %s", utils.FormatMoney(delta))
	case domain.AdjustDecrease:
		principal = c.LoanAmount.Sub(delta)
		kind = domain.TransactionPrincipalDecrease
		description = fmt.Sprintf("Principal repayment of %s", utils.FormatMoney(delta))
		if !principal.IsPositive() {
			return domain.Contract{}, customError.Validation("repayment of %s would leave principal at %s, redeem the contract instead",
				utils.FormatMoney(delta), utils.FormatMoney(principal))
		}
	default:
		return domain.Contract{}, customError.Validation("unknown adjustment direction %q", direction)
	}

	next := c.Clone()
	next.Segments = m.rollSegment(next.Segments, m.Today(), principal, next.InterestRate)
	next.LoanAmount = principal
	next.Transactions = append(next.Transactions, m.transaction(kind, delta, description))
	return m.touch(next), nil
}

// Redeem closes the contract against the settlement total.
func (m *Manager) Redeem(c domain.Contract, total decimal.Decimal) (domain.Contract, error) {
	if err := requireActive(&c, "redeem"); err != nil {
		return domain.Contract{}, err
	}
	if !total.IsPositive() {
		return domain.Contract{}, customError.Validation("settlement amount must be greater than 0, got %s", total)
	}

	next := c.Clone()
	next.Status = domain.StatusRedeemed
	next.Transactions = append(next.Transactions, m.transaction(domain.TransactionRedemption, total,
		fmt.Sprintf("Redeemed for %s", utils.FormatMoney(total))))
	return m.touch(next), nil
}

// Cancel voids the contract.
func (m *Manager) Cancel(c domain.Contract, reason string) (domain.Contract, error) {
	return m.close(c, domain.StatusCancelled, domain.TransactionCancellation, "cancel", "Contract cancelled", reason)
}

// Forfeit closes the contract with the shop keeping the device.
func (m *Manager) Forfeit(c domain.Contract, reason string) (domain.Contract, error) {
	return m.close(c, domain.StatusForfeited, domain.TransactionForfeiture, "forfeit", "Device forfeited", reason)
}

func (m *Manager) close(c domain.Contract, status domain.ContractStatus, kind domain.TransactionKind, op, description, reason string) (domain.Contract, error) {
	if err := requireActive(&c, op); err != nil {
		return domain.Contract{}, err
	}
	if reason = strings.TrimSpace(reason); reason != "" {
		description += ": " + reason
	}

	next := c.Clone()
	next.Status = status
	next.Transactions = append(next.Transactions, m.transaction(kind, decimal.Zero, description))
	return m.touch(next), nil
}

// EditMetadata overwrites descriptive fields in any status. A rate change is
// a ledger event: it needs an Active contract and starts a new segment today.
func (m *Manager) EditMetadata(c domain.Contract, patch domain.ContractPatch) (domain.Contract, error) {
	if patch.CustomerName != nil && strings.TrimSpace(*patch.CustomerName) == "" {
		return domain.Contract{}, customError.Validation("customer name is required")
	}
	if patch.Device != nil && strings.TrimSpace(*patch.Device) == "" {
		return domain.Contract{}, customError.Validation("device description is required")
	}
	rateChanged := patch.InterestRate != nil && !patch.InterestRate.Equal(c.InterestRate)
	if rateChanged {
		if err := requireActive(&c, "change interest rate of"); err != nil {
			return domain.Contract{}, err
		}
		if patch.InterestRate.IsNegative() {
			return domain.Contract{}, customError.Validation("interest rate must not be negative, got %s", patch.InterestRate)
		}
	}

	next := c.Clone()
	if patch.CustomerName != nil {
		next.CustomerName = strings.TrimSpace(*patch.CustomerName)
	}
	if patch.CustomerPhone != nil {
		next.CustomerPhone = *patch.CustomerPhone
	}
	if patch.Device != nil {
		next.Device = strings.TrimSpace(*patch.Device)
	}
	if patch.Notes != nil {
		next.Notes = *patch.Notes
	}
	if patch.Paperless != nil {
		next.Paperless = *patch.Paperless
	}
	if rateChanged {
		rate := *patch.InterestRate
		next.Segments = m.rollSegment(next.Segments, m.Today(), next.LoanAmount, rate)
		next.Transactions = append(next.Transactions, m.transaction(domain.TransactionRateChange, decimal.Zero,
			fmt.Sprintf("Interest rate changed from %s to %s per million per day", c.InterestRate, rate)))
		next.InterestRate = rate
	}
	return m.touch(next), nil
}

// rollSegment closes the open segment on the day before from and appends a
// new open segment starting on from.
func (m *Manager) rollSegment(segments []domain.InterestSegment, from time.Time, principal, rate decimal.Decimal) []domain.InterestSegment {
	if n := len(segments); n > 0 && segments[n-1].IsOpen() {
		segments[n-1] = segments[n-1].Closed(utils.AddDays(from, -1))
	}
	return append(segments, domain.InterestSegment{
		StartDate:    from,
		Principal:    principal,
		InterestRate: rate,
	})
}

func (m *Manager) transaction(kind domain.TransactionKind, amount decimal.Decimal, description string) domain.Transaction {
	return domain.Transaction{
		ID:          m.newID(),
		Kind:        kind,
		OccurredAt:  m.now().UTC(),
		Amount:      amount,
		Description: description,
	}
}

func (m *Manager) touch(c domain.Contract) domain.Contract {
	c.UpdatedAt = m.now().UTC()
	return c
}

func requireActive(c *domain.Contract, operation string) error {
	if c.Status != domain.StatusActive {
		return customError.WrapInvalidStateTransition(c.ID.String(), string(c.Status), operation)
	}
	return nil
}
