package cli_test

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/segyhp/pawn-ledger/internal/advisory"
	"github.com/segyhp/pawn-ledger/internal/cli"
	"github.com/segyhp/pawn-ledger/internal/domain"
	"github.com/segyhp/pawn-ledger/internal/mocks"
	"github.com/segyhp/pawn-ledger/internal/repository/redisstore"
	customError "github.com/segyhp/pawn-ledger/pkg/errors"
	"github.com/segyhp/pawn-ledger/pkg/utils"

	"github.com/google/subcommands"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var today = time.Date(2025, 2, 12, 0, 0, 0, 0, time.UTC)

type fakeSnapshots struct {
	snapshot *redisstore.OverdueSnapshot
	err      error
}

func (f *fakeSnapshots) LatestOverdue(context.Context) (*redisstore.OverdueSnapshot, error) {
	return f.snapshot, f.err
}

type harness struct {
	ledger *mocks.MockLedger
	env    *cli.Env
	out    *bytes.Buffer
	errOut *bytes.Buffer
	closed int
}

func newHarness(snapshots cli.SnapshotReader) *harness {
	h := &harness{ledger: mocks.NewMockLedger(), out: &bytes.Buffer{}, errOut: &bytes.Buffer{}}
	h.env = &cli.Env{
		Out: h.out,
		Err: h.errOut,
		Raw: true,
		Open: func(context.Context) (*cli.Session, error) {
			return &cli.Session{Ledger: h.ledger, Snapshots: snapshots, Close: func() { h.closed++ }}, nil
		},
	}
	return h
}

func (h *harness) run(t *testing.T, name string, args ...string) subcommands.ExitStatus {
	t.Helper()
	for _, cmd := range cli.Commands(h.env) {
		if cmd.Name() != name {
			continue
		}
		fs := flag.NewFlagSet(name, flag.ContinueOnError)
		cmd.SetFlags(fs)
		require.NoError(t, fs.Parse(args))
		return cmd.Execute(context.Background(), fs)
	}
	t.Fatalf("no command %q", name)
	return subcommands.ExitFailure
}

func sampleView() *domain.ContractView {
	return &domain.ContractView{
		Contract: domain.Contract{
			ID:           uuid.MustParse("5f3c1a2b-0000-4000-8000-000000000001"),
			CustomerName: "Nguyen Van A",
			Device:       "iPhone 13",
			LoanAmount:   decimal.NewFromInt(25_000_000),
			InterestRate: decimal.NewFromInt(2000),
			DueDate:      time.Date(2025, 2, 9, 0, 0, 0, 0, time.UTC),
			Status:       domain.StatusActive,
		},
		DisplayStatus:   domain.StatusOverdue,
		Accrual:         domain.Accrual{InterestOwed: decimal.NewFromInt(1_700_000), TotalDays: 34, OverdueDays: 3},
		RedemptionTotal: decimal.NewFromInt(26_700_000),
		ReferenceDate:   "2025-02-12",
	}
}

func TestAccrualCalculator(t *testing.T) {
	h := newHarness(nil)

	status := h.run(t, "accrual", "-principal", "25000000", "-rate", "2000", "-from", "2025-01-01", "-to", "2025-01-10", "-pay", "150000")

	assert.Equal(t, subcommands.ExitSuccess, status)
	out := h.out.String()
	assert.Contains(t, out, "# Accrual from 2025-01-01 to 2025-01-10")
	assert.Contains(t, out, "| Days | 10 |")
	assert.Contains(t, out, "| Interest | "+utils.FormatMoney(decimal.NewFromInt(500_000))+" |")
	assert.Contains(t, out, "covers | 3 days |")
	assert.Zero(t, h.closed, "the calculator does not open the ledger")
}

func TestAccrualRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"missing principal", []string{"-from", "2025-01-01"}},
		{"negative principal", []string{"-principal", "-5", "-from", "2025-01-01"}},
		{"bad date", []string{"-principal", "1000000", "-from", "01/01/2025"}},
		{"bad payment", []string{"-principal", "1000000", "-from", "2025-01-01", "-pay", "abc"}},
		{"bad id", []string{"-id", "not-a-uuid"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(nil)
			assert.Equal(t, subcommands.ExitUsageError, h.run(t, "accrual", tt.args...))
			assert.Contains(t, h.errOut.String(), "Error:")
		})
	}
}

func TestAccrualOfStoredContract(t *testing.T) {
	h := newHarness(nil)
	v := sampleView()
	v.PawnDate = time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	v.LastPaidDate = v.PawnDate
	v.Segments = []domain.InterestSegment{{StartDate: v.PawnDate, Principal: v.LoanAmount, InterestRate: v.InterestRate}}
	h.ledger.On("GetContract", mock.Anything, v.ID).Return(v, nil).Once()
	h.ledger.On("Today").Return(today).Once()

	status := h.run(t, "accrual", "-id", v.ID.String())

	assert.Equal(t, subcommands.ExitSuccess, status)
	out := h.out.String()
	assert.Contains(t, out, "# Accrual of iPhone 13 on 2025-02-12")
	assert.Contains(t, out, "| 2025-01-10 | open |")
	assert.Contains(t, out, "over 34 days, 3 days overdue")
	assert.Equal(t, 1, h.closed)
	h.ledger.AssertExpectations(t)
}

func TestStatementCommand(t *testing.T) {
	id := uuid.New()
	md := "# Pawn contract ABC\n\n| Term | Value |\n|:---|---:|\n| Principal | 1 |\n"

	t.Run("markdown", func(t *testing.T) {
		h := newHarness(nil)
		h.ledger.On("Statement", mock.Anything, id).Return(md, nil).Once()

		assert.Equal(t, subcommands.ExitSuccess, h.run(t, "statement", id.String()))
		assert.Equal(t, md, h.out.String())
	})

	t.Run("html", func(t *testing.T) {
		h := newHarness(nil)
		h.ledger.On("Statement", mock.Anything, id).Return(md, nil).Once()

		assert.Equal(t, subcommands.ExitSuccess, h.run(t, "statement", "-html", id.String()))
		assert.Contains(t, h.out.String(), "<h1")
		assert.Contains(t, h.out.String(), "<table>")
	})

	t.Run("needs an id", func(t *testing.T) {
		h := newHarness(nil)
		assert.Equal(t, subcommands.ExitUsageError, h.run(t, "statement"))
	})

	t.Run("unknown contract", func(t *testing.T) {
		h := newHarness(nil)
		h.ledger.On("Statement", mock.Anything, id).Return("", customError.WrapContractNotFound(id.String())).Once()

		assert.Equal(t, subcommands.ExitFailure, h.run(t, "statement", id.String()))
		assert.Contains(t, h.errOut.String(), "Error:")
	})
}

func TestOverdueCommand(t *testing.T) {
	h := newHarness(nil)
	h.ledger.On("OverdueContracts", mock.Anything).Return([]*domain.ContractView{sampleView()}, nil).Once()
	h.ledger.On("Today").Return(today).Once()

	assert.Equal(t, subcommands.ExitSuccess, h.run(t, "overdue"))
	out := h.out.String()
	assert.Contains(t, out, "# Overdue contracts on 2025-02-12")
	assert.Contains(t, out, "| 5F3C1A2B | Nguyen Van A | iPhone 13 | 2025-02-09 | 3 |")
	h.ledger.AssertExpectations(t)
}

func TestOverdueCommandCached(t *testing.T) {
	snap := &redisstore.OverdueSnapshot{
		ReferenceDate: "2025-02-12",
		GeneratedAt:   time.Date(2025, 2, 12, 1, 0, 0, 0, time.UTC),
		Contracts: []redisstore.OverdueEntry{{
			ContractID:   "5f3c1a2b-0000-4000-8000-000000000001",
			CustomerName: "Nguyen Van A",
			Device:       "iPhone 13",
			DueDate:      "2025-02-09",
			OverdueDays:  3,
			InterestOwed: "1700000",
		}},
	}

	t.Run("prints the snapshot", func(t *testing.T) {
		h := newHarness(&fakeSnapshots{snapshot: snap})

		assert.Equal(t, subcommands.ExitSuccess, h.run(t, "overdue", "-cached"))
		out := h.out.String()
		assert.Contains(t, out, "# Overdue snapshot of 2025-02-12")
		assert.Contains(t, out, "| 5F3C1A2B | Nguyen Van A | iPhone 13 | 2025-02-09 | 3 | "+utils.FormatMoney(decimal.NewFromInt(1_700_000))+" |")
		h.ledger.AssertNotCalled(t, "OverdueContracts", mock.Anything)
	})

	t.Run("nothing cached", func(t *testing.T) {
		h := newHarness(&fakeSnapshots{})
		assert.Equal(t, subcommands.ExitFailure, h.run(t, "overdue", "-cached"))
		assert.Contains(t, h.errOut.String(), "no overdue snapshot")
	})

	t.Run("no redis", func(t *testing.T) {
		h := newHarness(nil)
		assert.Equal(t, subcommands.ExitFailure, h.run(t, "overdue", "-cached"))
		assert.Contains(t, h.errOut.String(), "REDIS_HOST")
	})

	t.Run("store failure", func(t *testing.T) {
		h := newHarness(&fakeSnapshots{err: errors.New("connection refused")})
		assert.Equal(t, subcommands.ExitFailure, h.run(t, "overdue", "-cached"))
		assert.Contains(t, h.errOut.String(), "connection refused")
	})
}

func TestDueCommand(t *testing.T) {
	h := newHarness(nil)
	h.ledger.On("DueWithin", mock.Anything, 5).Return([]*domain.ContractView{}, nil).Once()
	h.ledger.On("Today").Return(today).Once()

	assert.Equal(t, subcommands.ExitSuccess, h.run(t, "due", "-days", "5"))
	assert.Contains(t, h.out.String(), "# Due within 5 days on 2025-02-12")
	assert.Contains(t, h.out.String(), "No contracts.")
	h.ledger.AssertExpectations(t)
}

func TestDueCommandRejectedDays(t *testing.T) {
	h := newHarness(nil)
	h.ledger.On("DueWithin", mock.Anything, -1).Return(nil, customError.Validation("days must not be negative")).Once()

	assert.Equal(t, subcommands.ExitFailure, h.run(t, "due", "-days", "-1"))
	assert.Contains(t, h.errOut.String(), "days must not be negative")
}

func TestSummaryCommand(t *testing.T) {
	h := newHarness(nil)
	h.ledger.On("Summary", mock.Anything).Return(&domain.Summary{
		ActiveContracts:      3,
		OutstandingPrincipal: decimal.NewFromInt(48_000_000),
		InterestOwed:         decimal.NewFromInt(1_780_000),
		OverdueContracts:     2,
		ReferenceDate:        "2025-02-12",
	}, nil).Once()

	assert.Equal(t, subcommands.ExitSuccess, h.run(t, "summary"))
	out := h.out.String()
	assert.Contains(t, out, "# Book on 2025-02-12")
	assert.Contains(t, out, "| Active contracts | 3 |")
	assert.Contains(t, out, "| Overdue | 2 |")
}

func TestAdviseCommand(t *testing.T) {
	t.Run("valuation", func(t *testing.T) {
		h := newHarness(nil)
		h.ledger.On("ValuationAdvice", mock.Anything, &domain.ValuationRequest{Brand: "Apple", Model: "iPhone 14", Condition: "good"}).
			Return(&advisory.Valuation{
				ResalePriceRange: "12-14M",
				SafeLoanRange:    "7-8M",
				KeyChecks:        []string{"iCloud lock", "battery health"},
				MarketNote:       "Prices are stable.",
			}).Once()

		assert.Equal(t, subcommands.ExitSuccess, h.run(t, "advise", "-brand", "Apple", "-model", "iPhone 14", "-condition", "good"))
		out := h.out.String()
		assert.Contains(t, out, "# Apple iPhone 14")
		assert.Contains(t, out, "| Safe loan | 7-8M |")
		assert.Contains(t, out, "- iCloud lock")
		assert.Contains(t, out, "> Prices are stable.")
	})

	t.Run("advisor unavailable", func(t *testing.T) {
		h := newHarness(nil)
		h.ledger.On("ValuationAdvice", mock.Anything, &domain.ValuationRequest{Model: "Pixel 7"}).Return(nil).Once()

		assert.Equal(t, subcommands.ExitFailure, h.run(t, "advise", "-model", "Pixel 7"))
		assert.Contains(t, h.errOut.String(), "unavailable")
	})

	t.Run("image", func(t *testing.T) {
		png := []byte("\x89PNG\r\n\x1a\n0000")
		path := filepath.Join(t.TempDir(), "phone.png")
		require.NoError(t, os.WriteFile(path, png, 0o600))

		h := newHarness(nil)
		h.ledger.On("AnalyzeDeviceImage", mock.Anything, png, "image/png").Return("Screen is cracked.").Once()

		assert.Equal(t, subcommands.ExitSuccess, h.run(t, "advise", "-image", path))
		assert.Contains(t, h.out.String(), "Screen is cracked.")
	})

	t.Run("needs a model or image", func(t *testing.T) {
		h := newHarness(nil)
		assert.Equal(t, subcommands.ExitUsageError, h.run(t, "advise"))
	})
}

func TestOpenFailure(t *testing.T) {
	env := &cli.Env{
		Out: &bytes.Buffer{},
		Err: &bytes.Buffer{},
		Open: func(context.Context) (*cli.Session, error) {
			return nil, errors.New("unsupported database driver")
		},
	}
	for _, cmd := range cli.Commands(env) {
		if cmd.Name() != "summary" {
			continue
		}
		fs := flag.NewFlagSet("summary", flag.ContinueOnError)
		cmd.SetFlags(fs)
		assert.Equal(t, subcommands.ExitFailure, cmd.Execute(context.Background(), fs))
	}
	assert.Contains(t, env.Err.(*bytes.Buffer).String(), "unsupported database driver")
}

func TestRegisterDispatches(t *testing.T) {
	h := newHarness(nil)
	h.ledger.On("Summary", mock.Anything).Return(&domain.Summary{ReferenceDate: "2025-02-12"}, nil).Once()

	fs := flag.NewFlagSet("pawnctl", flag.ContinueOnError)
	commander := subcommands.NewCommander(fs, "pawnctl")
	commander.Output = h.out
	commander.Error = h.errOut
	cli.Register(commander, h.env)
	require.NoError(t, fs.Parse([]string{"summary"}))

	assert.Equal(t, subcommands.ExitSuccess, commander.Execute(context.Background()))
	assert.Contains(t, h.out.String(), "# Book on 2025-02-12")
}

func TestCompletion(t *testing.T) {
	cmd := cli.Completion(&cli.Env{})

	for _, name := range []string{"accrual", "statement", "overdue", "due", "summary", "advise", "help"} {
		assert.Contains(t, cmd.Sub, name)
	}
	assert.Contains(t, cmd.Flags, "env")
	assert.Contains(t, cmd.Sub["accrual"].Flags, "principal")
	assert.Contains(t, cmd.Sub["advise"].Flags, "image")
	assert.Contains(t, cmd.Sub["overdue"].Flags, "cached")
	assert.NotNil(t, cmd.Sub["help"].Args)
}
