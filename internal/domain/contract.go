package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ContractStatus is the lifecycle state of a contract.
type ContractStatus string

const (
	StatusActive    ContractStatus = "Active"
	StatusRedeemed  ContractStatus = "Redeemed"
	StatusForfeited ContractStatus = "Forfeited"
	StatusCancelled ContractStatus = "Cancelled"

	// StatusOverdue is a display label for Active contracts past their due
	// date. It is never persisted.
	StatusOverdue ContractStatus = "Overdue"
)

// IsTerminal reports whether no further lifecycle operation may be applied.
func (s ContractStatus) IsTerminal() bool {
	return s == StatusRedeemed || s == StatusForfeited || s == StatusCancelled
}

// IsPersisted reports whether s may be stored on a contract.
func (s ContractStatus) IsPersisted() bool {
	return s == StatusActive || s.IsTerminal()
}

// ParseStatus matches a status name case-insensitively, including the
// derived Overdue label.
func ParseStatus(s string) (ContractStatus, bool) {
	for _, st := range []ContractStatus{StatusActive, StatusOverdue, StatusRedeemed, StatusForfeited, StatusCancelled} {
		if strings.EqualFold(s, string(st)) {
			return st, true
		}
	}
	return "", false
}

// Contract is the pawn contract aggregate.
type Contract struct {
	ID            uuid.UUID         `json:"id" db:"id"`
	CustomerID    uuid.UUID         `json:"customer_id" db:"customer_id"`
	CustomerName  string            `json:"customer_name" db:"customer_name"`
	CustomerPhone string            `json:"customer_phone" db:"customer_phone"`
	Device        string            `json:"device" db:"device"`
	LoanAmount    decimal.Decimal   `json:"loan_amount" db:"loan_amount"`
	InterestRate  decimal.Decimal   `json:"interest_rate" db:"interest_rate"` // per 1,000,000 principal per day
	PawnDate      time.Time         `json:"pawn_date" db:"pawn_date"`
	DueDate       time.Time         `json:"due_date" db:"due_date"`
	LastPaidDate  time.Time         `json:"last_paid_date" db:"last_paid_date"`
	Status        ContractStatus    `json:"status" db:"status"`
	Paperless     bool              `json:"paperless" db:"paperless"`
	Notes         string            `json:"notes" db:"notes"`
	Segments      []InterestSegment `json:"segments" db:"-"`
	Transactions  []Transaction     `json:"transactions" db:"-"`
	Version       int               `json:"version" db:"version"`
	CreatedAt     time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at" db:"updated_at"`
}

// OpenSegment returns the segment without an end date, if any.
func (c *Contract) OpenSegment() (InterestSegment, bool) {
	if n := len(c.Segments); n > 0 && c.Segments[n-1].IsOpen() {
		return c.Segments[n-1], true
	}
	return InterestSegment{}, false
}

// AccruingSegments returns the segments that still bear unsettled interest:
// those ending on or after LastPaidDate, with their start clamped to it.
// Closed segments remain in Segments as audit history.
func (c *Contract) AccruingSegments() []InterestSegment {
	out := make([]InterestSegment, 0, len(c.Segments))
	for _, seg := range c.Segments {
		if seg.EndDate != nil && seg.EndDate.Before(c.LastPaidDate) {
			continue
		}
		if seg.StartDate.Before(c.LastPaidDate) {
			seg.StartDate = c.LastPaidDate
		}
		out = append(out, seg)
	}
	return out
}

// Clone returns a deep copy so segment and transaction slices are never shared.
func (c Contract) Clone() Contract {
	out := c
	out.Segments = make([]InterestSegment, len(c.Segments))
	for i, seg := range c.Segments {
		out.Segments[i] = seg.clone()
	}
	out.Transactions = append([]Transaction(nil), c.Transactions...)
	return out
}

// ContractPatch holds metadata edits; nil fields are left unchanged.
type ContractPatch struct {
	CustomerName  *string          `json:"customer_name,omitempty" validate:"omitempty,min=1"`
	CustomerPhone *string          `json:"customer_phone,omitempty"`
	Device        *string          `json:"device,omitempty" validate:"omitempty,min=1"`
	Notes         *string          `json:"notes,omitempty"`
	Paperless     *bool            `json:"paperless,omitempty"`
	InterestRate  *decimal.Decimal `json:"interest_rate,omitempty" validate:"omitempty,gte=0"`
}

// IsEmpty reports whether the patch changes nothing.
func (p ContractPatch) IsEmpty() bool {
	return p.CustomerName == nil && p.CustomerPhone == nil && p.Device == nil &&
		p.Notes == nil && p.Paperless == nil && p.InterestRate == nil
}

// ContractFilter selects contracts. Statuses are persisted statuses; the
// derived Overdue label is resolved by the service.
type ContractFilter struct {
	Statuses   []ContractStatus
	Query      string
	CustomerID *uuid.UUID
}

// Matches applies the filter to a single contract.
func (f ContractFilter) Matches(c *Contract) bool {
	if len(f.Statuses) > 0 {
		found := false
		for _, s := range f.Statuses {
			if c.Status == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.CustomerID != nil && c.CustomerID != *f.CustomerID {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		return strings.Contains(strings.ToLower(c.CustomerName), q) ||
			strings.Contains(strings.ToLower(c.Device), q)
	}
	return true
}

// Defaults are the values Create falls back to when a request omits them.
type Defaults struct {
	InterestRate decimal.Decimal `json:"interest_rate"`
	DurationDays int             `json:"duration_days"`
}
