package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InterestSegment is a period with a fixed principal and rate. A nil EndDate
// marks the open segment.
type InterestSegment struct {
	StartDate    time.Time       `json:"start_date" db:"start_date"`
	EndDate      *time.Time      `json:"end_date,omitempty" db:"end_date"`
	Principal    decimal.Decimal `json:"principal" db:"principal"`
	InterestRate decimal.Decimal `json:"interest_rate" db:"interest_rate"`
}

func (s InterestSegment) IsOpen() bool {
	return s.EndDate == nil
}

// Closed returns a copy of the segment ending on end.
func (s InterestSegment) Closed(end time.Time) InterestSegment {
	s.EndDate = &end
	return s
}

func (s InterestSegment) clone() InterestSegment {
	if s.EndDate != nil {
		end := *s.EndDate
		s.EndDate = &end
	}
	return s
}

// TransactionKind classifies ledger events.
type TransactionKind string

const (
	TransactionPawn              TransactionKind = "pawn"
	TransactionRenewal           TransactionKind = "renewal"
	TransactionInterestPayment   TransactionKind = "interest_payment"
	TransactionPrincipalIncrease TransactionKind = "principal_increase"
	TransactionPrincipalDecrease TransactionKind = "principal_decrease"
	TransactionRedemption        TransactionKind = "redemption"
	TransactionRateChange        TransactionKind = "rate_change"
	TransactionCancellation      TransactionKind = "cancellation"
	TransactionForfeiture        TransactionKind = "forfeiture"
)

// Transaction is an immutable audit record.
type Transaction struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	Kind        TransactionKind `json:"kind" db:"kind"`
	OccurredAt  time.Time       `json:"occurred_at" db:"occurred_at"`
	Amount      decimal.Decimal `json:"amount" db:"amount"`
	Description string          `json:"description" db:"description"`
}

// Customer is an identity record.
type Customer struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Phone     string    `json:"phone" db:"phone"`
	Address   string    `json:"address" db:"address"`
	IDCard    string    `json:"id_card" db:"id_card"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// CustomerFilter selects customers by a case-insensitive substring of name,
// phone or id card.
type CustomerFilter struct {
	Query string
}

// Matches applies the filter to a single customer.
func (f CustomerFilter) Matches(c *Customer) bool {
	q := strings.ToLower(strings.TrimSpace(f.Query))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(c.Name), q) ||
		strings.Contains(strings.ToLower(c.Phone), q) ||
		strings.Contains(strings.ToLower(c.IDCard), q)
}
