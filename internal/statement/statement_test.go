package statement

import (
	"testing"
	"time"

	"github.com/segyhp/pawn-ledger/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleView() *domain.ContractView {
	d0 := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	end := d0.AddDate(0, 0, 4)
	return &domain.ContractView{
		Contract: domain.Contract{
			ID:            uuid.MustParse("3f2a9c1e-1111-4222-8333-444455556666"),
			CustomerName:  "Nguyen Van A",
			CustomerPhone: "0901234567",
			Device:        "iPhone 15 Pro Max",
			LoanAmount:    decimal.NewFromInt(30_000_000),
			InterestRate:  decimal.NewFromInt(2000),
			PawnDate:      d0,
			DueDate:       d0.AddDate(0, 0, 30),
			LastPaidDate:  d0,
			Status:        domain.StatusActive,
			Notes:         "Box and charger kept",
			Segments: []domain.InterestSegment{
				{StartDate: d0, EndDate: &end, Principal: decimal.NewFromInt(25_000_000), InterestRate: decimal.NewFromInt(2000)},
				{StartDate: d0.AddDate(0, 0, 5), Principal: decimal.NewFromInt(30_000_000), InterestRate: decimal.NewFromInt(2000)},
			},
			Transactions: []domain.Transaction{
				{Kind: domain.TransactionPawn, OccurredAt: d0.Add(9 * time.Hour), Amount: decimal.NewFromInt(25_000_000), Description: "New pawn contract"},
				{Kind: domain.TransactionPrincipalIncrease, OccurredAt: d0.AddDate(0, 0, 5), Amount: decimal.NewFromInt(5_000_000), Description: "Additional loan | cash"},
			},
		},
		DisplayStatus:   domain.StatusActive,
		Accrual:         domain.Accrual{InterestOwed: decimal.NewFromInt(370_000), TotalDays: 7},
		DailyInterest:   decimal.NewFromInt(60_000),
		RedemptionTotal: decimal.NewFromInt(30_370_000),
		ReferenceDate:   "2025-01-16",
	}
}

func TestMarkdown(t *testing.T) {
	md, err := Markdown(sampleView())
	require.NoError(t, err)

	assert.Contains(t, md, "# Pawn contract 3F2A9C1E")
	assert.Contains(t, md, "**Customer:** Nguyen Van A (0901234567)")
	assert.Contains(t, md, "| Due date | 2025-02-09 |")
	assert.Contains(t, md, "## Position on 2025-01-16")
	assert.Contains(t, md, "| 1 | 2025-01-10 | 2025-01-14 |")
	assert.Contains(t, md, "| 2 | 2025-01-15 | open |")
	assert.Contains(t, md, "| 2025-01-10 09:00 | pawn |")
	assert.Contains(t, md, `Additional loan \| cash`)
	assert.Contains(t, md, "30.370.000")
	assert.Contains(t, md, "Box and charger kept")
}

func TestHTML(t *testing.T) {
	md, err := Markdown(sampleView())
	require.NoError(t, err)

	html, err := HTML(md)
	require.NoError(t, err)
	assert.Contains(t, string(html), "<h1>Pawn contract 3F2A9C1E</h1>")
	assert.Contains(t, string(html), "<table>")
	assert.Contains(t, string(html), ">open</td>")
}

func TestContractsMarkdown(t *testing.T) {
	view := sampleView()
	view.Accrual.OverdueDays = 4

	md, err := ContractsMarkdown("Overdue contracts", "2025-02-13", []*domain.ContractView{view})
	require.NoError(t, err)
	assert.Contains(t, md, "# Overdue contracts on 2025-02-13")
	assert.Contains(t, md, "| 3F2A9C1E | Nguyen Van A | iPhone 15 Pro Max | 2025-02-09 | 4 |")

	empty, err := ContractsMarkdown("Due soon", "2025-02-13", nil)
	require.NoError(t, err)
	assert.Contains(t, empty, "No contracts.")
	assert.NotContains(t, empty, "| Contract |")
}

func TestSummaryMarkdown(t *testing.T) {
	md, err := SummaryMarkdown(&domain.Summary{
		ActiveContracts:      3,
		OutstandingPrincipal: decimal.NewFromInt(45_000_000),
		InterestOwed:         decimal.NewFromInt(1_250_000),
		OverdueContracts:     1,
		ReferenceDate:        "2025-02-13",
	})
	require.NoError(t, err)
	assert.Contains(t, md, "# Book on 2025-02-13")
	assert.Contains(t, md, "| Active contracts | 3 |")
	assert.Contains(t, md, "45.000.000")
	assert.Contains(t, md, "| Due today | 0 |")
}
