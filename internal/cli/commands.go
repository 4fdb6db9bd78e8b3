package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/segyhp/pawn-ledger/internal/accrual"
	"github.com/segyhp/pawn-ledger/internal/domain"
	"github.com/segyhp/pawn-ledger/internal/statement"
	"github.com/segyhp/pawn-ledger/pkg/utils"

	"github.com/google/subcommands"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type accrualCmd struct {
	env       *Env
	id        string
	principal string
	rate      string
	from      string
	to        string
	pay       string
}

func (*accrualCmd) Name() string     { return "accrual" }
func (*accrualCmd) Synopsis() string { return "compute interest for a contract or a single segment" }
func (*accrualCmd) Usage() string {
	return `pawnctl accrual -id <contract> [-to <date>]
pawnctl accrual -principal <amount> -rate <rate> -from <date> [-to <date>] [-pay <amount>]

  Computes interest owed. With -id the stored contract is used; otherwise a
  single segment is priced. -pay reports how many days a payment covers.
`
}

func (c *accrualCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.id, "id", "", "contract id")
	f.StringVar(&c.principal, "principal", "", "principal amount")
	f.StringVar(&c.rate, "rate", "2000", "interest per 1,000,000 principal per day")
	f.StringVar(&c.from, "from", "", "segment start date (YYYY-MM-DD)")
	f.StringVar(&c.to, "to", "", "reference date (YYYY-MM-DD, defaults to today)")
	f.StringVar(&c.pay, "pay", "", "payment amount to convert into covered days")
}

func (c *accrualCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.id != "" {
		id, err := uuid.Parse(c.id)
		if err != nil {
			return c.env.fail(subcommands.ExitUsageError, err)
		}
		return c.env.withLedger(ctx, func(s *Session) error {
			view, err := s.Ledger.GetContract(ctx, id)
			if err != nil {
				return err
			}
			ref := s.Ledger.Today()
			if c.to != "" {
				if ref, err = utils.ParseDate(c.to); err != nil {
					return err
				}
			}
			return c.env.printMarkdown(contractAccrual(&view.Contract, ref))
		})
	}

	seg, ref, err := c.segment()
	if err != nil {
		fmt.Fprintln(c.env.stderr(), c.Usage())
		return c.env.fail(subcommands.ExitUsageError, err)
	}
	var pay decimal.Decimal
	if c.pay != "" {
		if pay, err = decimal.NewFromString(c.pay); err != nil {
			return c.env.fail(subcommands.ExitUsageError, fmt.Errorf("invalid -pay: %w", err))
		}
	}
	if err := c.env.printMarkdown(segmentAccrual(seg, ref, pay)); err != nil {
		return c.env.fail(subcommands.ExitFailure, err)
	}
	return subcommands.ExitSuccess
}

func (c *accrualCmd) segment() (domain.InterestSegment, time.Time, error) {
	var seg domain.InterestSegment
	principal, err := decimal.NewFromString(c.principal)
	if err != nil || !principal.IsPositive() {
		return seg, time.Time{}, fmt.Errorf("-principal must be a positive amount, got %q", c.principal)
	}
	rate, err := decimal.NewFromString(c.rate)
	if err != nil || rate.IsNegative() {
		return seg, time.Time{}, fmt.Errorf("-rate must be a non-negative number, got %q", c.rate)
	}
	from, err := utils.ParseDate(c.from)
	if err != nil {
		return seg, time.Time{}, fmt.Errorf("-from: %w", err)
	}
	ref := utils.DateOf(time.Now())
	if c.to != "" {
		if ref, err = utils.ParseDate(c.to); err != nil {
			return seg, time.Time{}, fmt.Errorf("-to: %w", err)
		}
	}
	return domain.InterestSegment{StartDate: from, Principal: principal, InterestRate: rate}, ref, nil
}

func segmentAccrual(seg domain.InterestSegment, ref time.Time, pay decimal.Decimal) string {
	days := accrual.SegmentDays(seg, ref)
	var b strings.Builder
	fmt.Fprintf(&b, "# Accrual from %s to %s\n\n", utils.FormatDate(seg.StartDate), utils.FormatDate(ref))
	b.WriteString("| | |\n|:---|---:|\n")
	fmt.Fprintf(&b, "| Principal | %s |\n", utils.FormatMoney(seg.Principal))
	fmt.Fprintf(&b, "| Rate (per million per day) | %s |\n", seg.InterestRate)
	fmt.Fprintf(&b, "| Daily interest | %s |\n", accrual.DailyInterest(seg.Principal, seg.InterestRate).StringFixed(2))
	fmt.Fprintf(&b, "| Days | %d |\n", days)
	fmt.Fprintf(&b, "| Interest | %s |\n", utils.FormatMoney(accrual.SegmentInterest(seg.Principal, seg.InterestRate, days)))
	if pay.IsPositive() {
		fmt.Fprintf(&b, "| %s covers | %d days |\n", utils.FormatMoney(pay), accrual.DaysCovered(pay, seg.Principal, seg.InterestRate))
	}
	return b.String()
}

func contractAccrual(c *domain.Contract, ref time.Time) string {
	res := accrual.ForContract(c, ref)
	var b strings.Builder
	fmt.Fprintf(&b, "# Accrual of %s on %s\n\n", c.Device, utils.FormatDate(ref))
	b.WriteString("| From | To | Principal | Rate | Days | Interest |\n|:---|:---|---:|---:|---:|---:|\n")
	for _, seg := range c.AccruingSegments() {
		end := "open"
		if seg.EndDate != nil {
			end = utils.FormatDate(*seg.EndDate)
		}
		days := accrual.SegmentDays(seg, ref)
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %d | %s |\n",
			utils.FormatDate(seg.StartDate), end, utils.FormatMoney(seg.Principal), seg.InterestRate, days,
			utils.FormatMoney(accrual.SegmentInterest(seg.Principal, seg.InterestRate, days)))
	}
	fmt.Fprintf(&b, "\n**Interest owed:** %s over %d days", utils.FormatMoney(res.InterestOwed), res.TotalDays)
	if res.OverdueDays > 0 {
		fmt.Fprintf(&b, ", %d days overdue", res.OverdueDays)
	}
	b.WriteString("\n")
	return b.String()
}

type statementCmd struct {
	env  *Env
	html bool
}

func (*statementCmd) Name() string     { return "statement" }
func (*statementCmd) Synopsis() string { return "print the statement of a contract" }
func (*statementCmd) Usage() string {
	return `pawnctl statement [-html] <contract id>

  Prints the contract statement: terms, position, segments and transactions.
`
}

func (c *statementCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.html, "html", false, "print HTML instead of rendering for the terminal")
}

func (c *statementCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(c.env.stderr(), c.Usage())
		return subcommands.ExitUsageError
	}
	id, err := uuid.Parse(f.Arg(0))
	if err != nil {
		return c.env.fail(subcommands.ExitUsageError, err)
	}

	return c.env.withLedger(ctx, func(s *Session) error {
		md, err := s.Ledger.Statement(ctx, id)
		if err != nil {
			return err
		}
		if !c.html {
			return c.env.printMarkdown(md)
		}
		html, err := statement.HTML(md)
		if err != nil {
			return err
		}
		_, err = c.env.stdout().Write(html)
		return err
	})
}

type overdueCmd struct {
	env    *Env
	cached bool
}

func (*overdueCmd) Name() string     { return "overdue" }
func (*overdueCmd) Synopsis() string { return "list Active contracts past their due date" }
func (*overdueCmd) Usage() string {
	return `pawnctl overdue [-cached]

  Lists overdue contracts, most overdue first. -cached prints the last
  snapshot taken by the scheduler instead of querying the ledger.
`
}

func (c *overdueCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.cached, "cached", false, "print the scheduler's latest overdue snapshot")
}

func (c *overdueCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.env.withLedger(ctx, func(s *Session) error {
		if c.cached {
			return c.printSnapshot(ctx, s)
		}
		views, err := s.Ledger.OverdueContracts(ctx)
		if err != nil {
			return err
		}
		md, err := statement.ContractsMarkdown("Overdue contracts", utils.FormatDate(s.Ledger.Today()), views)
		if err != nil {
			return err
		}
		return c.env.printMarkdown(md)
	})
}

func (c *overdueCmd) printSnapshot(ctx context.Context, s *Session) error {
	if s.Snapshots == nil {
		return errors.New("no snapshot store configured, set REDIS_HOST")
	}
	snap, err := s.Snapshots.LatestOverdue(ctx)
	if err != nil {
		return err
	}
	if snap == nil {
		return errors.New("no overdue snapshot cached yet")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Overdue snapshot of %s\n\n_generated %s_\n\n", snap.ReferenceDate, snap.GeneratedAt.Format(time.RFC3339))
	b.WriteString("| Contract | Customer | Device | Due | Overdue days | Interest owed |\n|:---|:---|:---|:---|---:|---:|\n")
	for _, e := range snap.Contracts {
		owed := e.InterestOwed
		if d, err := decimal.NewFromString(e.InterestOwed); err == nil {
			owed = utils.FormatMoney(d)
		}
		id := e.ContractID
		if len(id) > 8 {
			id = id[:8]
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %d | %s |\n", strings.ToUpper(id), e.CustomerName, e.Device, e.DueDate, e.OverdueDays, owed)
	}
	return c.env.printMarkdown(b.String())
}

type dueCmd struct {
	env  *Env
	days int
}

func (*dueCmd) Name() string     { return "due" }
func (*dueCmd) Synopsis() string { return "list Active contracts falling due soon" }
func (*dueCmd) Usage() string {
	return `pawnctl due [-days n]

  Lists Active contracts due between today and today+n, soonest first.
`
}

func (c *dueCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.days, "days", 3, "days ahead to look")
}

func (c *dueCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.env.withLedger(ctx, func(s *Session) error {
		views, err := s.Ledger.DueWithin(ctx, c.days)
		if err != nil {
			return err
		}
		md, err := statement.ContractsMarkdown(fmt.Sprintf("Due within %d days", c.days), utils.FormatDate(s.Ledger.Today()), views)
		if err != nil {
			return err
		}
		return c.env.printMarkdown(md)
	})
}

type summaryCmd struct {
	env *Env
}

func (*summaryCmd) Name() string     { return "summary" }
func (*summaryCmd) Synopsis() string { return "print the dashboard totals" }
func (*summaryCmd) Usage() string {
	return `pawnctl summary

  Prints active count, outstanding principal, interest owed, overdue and
  due-today counts.
`
}

func (*summaryCmd) SetFlags(*flag.FlagSet) {}

func (c *summaryCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.env.withLedger(ctx, func(s *Session) error {
		summary, err := s.Ledger.Summary(ctx)
		if err != nil {
			return err
		}
		md, err := statement.SummaryMarkdown(summary)
		if err != nil {
			return err
		}
		return c.env.printMarkdown(md)
	})
}

type adviseCmd struct {
	env       *Env
	brand     string
	model     string
	condition string
	image     string
}

func (*adviseCmd) Name() string     { return "advise" }
func (*adviseCmd) Synopsis() string { return "ask the advisory model about a device" }
func (*adviseCmd) Usage() string {
	return `pawnctl advise -model <model> [-brand <brand>] [-condition <text>]
pawnctl advise -image <photo>

  Prints a valuation range and checks for a device, or a condition report
  for a photo. Needs ADVISORY_API_KEY.
`
}

func (c *adviseCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.brand, "brand", "", "device brand")
	f.StringVar(&c.model, "model", "", "device model")
	f.StringVar(&c.condition, "condition", "", "device condition")
	f.StringVar(&c.image, "image", "", "path to a device photo")
}

func (c *adviseCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.model == "" && c.image == "" {
		fmt.Fprintln(c.env.stderr(), c.Usage())
		return subcommands.ExitUsageError
	}

	return c.env.withLedger(ctx, func(s *Session) error {
		if c.image != "" {
			data, err := os.ReadFile(c.image)
			if err != nil {
				return err
			}
			analysis := s.Ledger.AnalyzeDeviceImage(ctx, data, http.DetectContentType(data))
			if analysis == "" {
				return errors.New("image analysis is unavailable")
			}
			return c.env.printMarkdown("# Device condition\n\n" + analysis + "\n")
		}

		v := s.Ledger.ValuationAdvice(ctx, &domain.ValuationRequest{Brand: c.brand, Model: c.model, Condition: c.condition})
		if v == nil {
			return errors.New("valuation advice is unavailable")
		}
		var b strings.Builder
		fmt.Fprintf(&b, "# %s\n\n", strings.TrimSpace(c.brand+" "+c.model))
		fmt.Fprintf(&b, "| | |\n|:---|:---|\n| Resale price | %s |\n| Safe loan | %s |\n\n", v.ResalePriceRange, v.SafeLoanRange)
		if len(v.KeyChecks) > 0 {
			b.WriteString("## Checks\n\n")
			for _, check := range v.KeyChecks {
				fmt.Fprintf(&b, "- %s\n", check)
			}
			b.WriteString("\n")
		}
		if v.MarketNote != "" {
			fmt.Fprintf(&b, "> %s\n", v.MarketNote)
		}
		return c.env.printMarkdown(b.String())
	})
}
