// Package accrual computes interest owed on a contract from its principal
// segments. Rates are expressed in currency per 1,000,000 of principal per
// day. Every function here is pure.
package accrual

import (
	"math"
	"time"

	"github.com/segyhp/pawn-ledger/internal/domain"
	"github.com/segyhp/pawn-ledger/pkg/utils"

	"github.com/shopspring/decimal"
)

var (
	perMillion = decimal.NewFromInt(1_000_000)
	maxDays    = decimal.NewFromInt(math.MaxInt32)
)

// Result is the accrual position at a reference date.
type Result struct {
	InterestOwed decimal.Decimal
	TotalDays    int
	OverdueDays  int
}

// Domain converts the result into its API shape.
func (r Result) Domain() domain.Accrual {
	return domain.Accrual{
		InterestOwed: r.InterestOwed,
		TotalDays:    r.TotalDays,
		OverdueDays:  r.OverdueDays,
	}
}

// Compute sums segment interest up to ref and reports overdue days for
// Active contracts.
func Compute(segments []domain.InterestSegment, dueDate time.Time, status domain.ContractStatus, ref time.Time) Result {
	res := Result{InterestOwed: decimal.Zero}
	for _, seg := range segments {
		days := SegmentDays(seg, ref)
		res.TotalDays += days
		res.InterestOwed = res.InterestOwed.Add(SegmentInterest(seg.Principal, seg.InterestRate, days))
	}
	res.OverdueDays = OverdueDays(dueDate, status, ref)
	return res
}

// ForContract computes the accrual of the contract's unsettled segments.
func ForContract(c *domain.Contract, ref time.Time) Result {
	return Compute(c.AccruingSegments(), c.DueDate, c.Status, ref)
}

// SegmentDays counts calendar days in the segment, both ends inclusive. An
// open segment runs until ref. A segment ending before it starts has no days.
func SegmentDays(seg domain.InterestSegment, ref time.Time) int {
	end := ref
	if seg.EndDate != nil {
		end = *seg.EndDate
	}
	days := utils.DaysBetween(seg.StartDate, end) + 1
	if days < 0 {
		return 0
	}
	return days
}

// SegmentInterest is round(principal / 1e6 * rate * days), half-up to whole
// currency units.
func SegmentInterest(principal, rate decimal.Decimal, days int) decimal.Decimal {
	if days <= 0 {
		return decimal.Zero
	}
	return DailyInterest(principal, rate).Mul(decimal.NewFromInt(int64(days))).Round(0)
}

// DailyInterest is the unrounded interest for one day.
func DailyInterest(principal, rate decimal.Decimal) decimal.Decimal {
	return principal.Div(perMillion).Mul(rate)
}

// DaysCovered is how many whole days of interest amount pays for, capped at
// math.MaxInt32. It is zero when the contract accrues nothing per day.
func DaysCovered(amount, principal, rate decimal.Decimal) int {
	daily := DailyInterest(principal, rate)
	if !daily.IsPositive() || !amount.IsPositive() {
		return 0
	}
	days := amount.Div(daily).Floor()
	if days.GreaterThan(maxDays) {
		days = maxDays
	}
	return int(days.IntPart())
}

// OverdueDays counts whole days past due for Active contracts.
func OverdueDays(dueDate time.Time, status domain.ContractStatus, ref time.Time) int {
	if status != domain.StatusActive {
		return 0
	}
	if days := utils.DaysBetween(dueDate, ref); days > 0 {
		return days
	}
	return 0
}

// DisplayStatus derives the label shown for a contract: Active contracts past
// due read as Overdue.
func DisplayStatus(c *domain.Contract, ref time.Time) domain.ContractStatus {
	if OverdueDays(c.DueDate, c.Status, ref) > 0 {
		return domain.StatusOverdue
	}
	return c.Status
}
