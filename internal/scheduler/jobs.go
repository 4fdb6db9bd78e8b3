// Package scheduler runs the periodic ledger jobs: the overdue sweep and the
// due-soon reminders.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/segyhp/pawn-ledger/internal/domain"
	"github.com/segyhp/pawn-ledger/internal/repository/redisstore"
	"github.com/segyhp/pawn-ledger/internal/service"
	"github.com/segyhp/pawn-ledger/pkg/utils"

	"github.com/robfig/cron/v3"
)

// SnapshotWriter stores the result of an overdue sweep.
type SnapshotWriter interface {
	SaveOverdue(ctx context.Context, snapshot redisstore.OverdueSnapshot) error
}

type Config struct {
	OverdueCron       string
	ReminderCron      string
	Location          *time.Location
	ReminderDaysAhead int
	JobTimeout        time.Duration
}

type Jobs struct {
	ledger    service.Ledger
	snapshots SnapshotWriter
	logger    *slog.Logger
	cfg       Config
}

// NewJobs builds the jobs. snapshots may be nil when redis is not configured.
func NewJobs(ledger service.Ledger, snapshots SnapshotWriter, logger *slog.Logger, cfg Config) *Jobs {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = time.Minute
	}
	return &Jobs{
		ledger:    ledger,
		snapshots: snapshots,
		logger:    logger,
		cfg:       cfg,
	}
}

// Register schedules both jobs on c. Specs use the six-field format with
// seconds.
func (j *Jobs) Register(c *cron.Cron) error {
	if _, err := c.AddFunc(j.cfg.OverdueCron, j.run("overdue sweep", j.SweepOverdue)); err != nil {
		return fmt.Errorf("schedule overdue sweep %q: %w", j.cfg.OverdueCron, err)
	}
	if _, err := c.AddFunc(j.cfg.ReminderCron, j.run("due reminders", j.SendReminders)); err != nil {
		return fmt.Errorf("schedule due reminders %q: %w", j.cfg.ReminderCron, err)
	}
	return nil
}

// NewCron returns a cron runner in the configured timezone that logs through
// slog and recovers job panics.
func (j *Jobs) NewCron() *cron.Cron {
	logger := cronLogger{j.logger}
	return cron.New(
		cron.WithSeconds(),
		cron.WithLocation(j.cfg.Location),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
}

func (j *Jobs) run(name string, job func(context.Context) error) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), j.cfg.JobTimeout)
		defer cancel()

		start := time.Now()
		if err := job(ctx); err != nil {
			j.logger.Error("job failed", slog.String("job", name), slog.String("error", err.Error()))
			return
		}
		j.logger.Info("job finished", slog.String("job", name), slog.Duration("duration", time.Since(start)))
	}
}

// SweepOverdue logs every overdue contract, refreshes the portfolio gauges
// and caches the list as the latest overdue snapshot.
func (j *Jobs) SweepOverdue(ctx context.Context) error {
	overdue, err := j.ledger.OverdueContracts(ctx)
	if err != nil {
		return err
	}
	if _, err := j.ledger.Summary(ctx); err != nil {
		return err
	}

	snapshot := redisstore.OverdueSnapshot{
		ReferenceDate: utils.FormatDate(j.ledger.Today()),
		GeneratedAt:   time.Now().UTC(),
		Contracts:     make([]redisstore.OverdueEntry, 0, len(overdue)),
	}
	for _, v := range overdue {
		j.logger.Warn("contract overdue",
			slog.String("contract_id", v.ID.String()),
			slog.String("customer", v.CustomerName),
			slog.String("phone", v.CustomerPhone),
			slog.String("device", v.Device),
			slog.String("due_date", utils.FormatDate(v.DueDate)),
			slog.Int("overdue_days", v.Accrual.OverdueDays),
			slog.String("interest_owed", v.Accrual.InterestOwed.String()))
		snapshot.Contracts = append(snapshot.Contracts, entry(v))
	}
	j.logger.Info("overdue sweep complete", slog.Int("overdue", len(overdue)))

	if j.snapshots == nil {
		return nil
	}
	return j.snapshots.SaveOverdue(ctx, snapshot)
}

// SendReminders logs the Active contracts falling due within the reminder
// window.
func (j *Jobs) SendReminders(ctx context.Context) error {
	due, err := j.ledger.DueWithin(ctx, j.cfg.ReminderDaysAhead)
	if err != nil {
		return err
	}

	today := j.ledger.Today()
	for _, v := range due {
		j.logger.Info("payment reminder",
			slog.String("contract_id", v.ID.String()),
			slog.String("customer", v.CustomerName),
			slog.String("phone", v.CustomerPhone),
			slog.String("due_date", utils.FormatDate(v.DueDate)),
			slog.Int("days_left", utils.DaysBetween(today, v.DueDate)),
			slog.String("redemption_total", utils.FormatMoney(v.RedemptionTotal)))
	}
	j.logger.Info("reminders complete", slog.Int("due", len(due)), slog.Int("days_ahead", j.cfg.ReminderDaysAhead))
	return nil
}

func entry(v *domain.ContractView) redisstore.OverdueEntry {
	return redisstore.OverdueEntry{
		ContractID:   v.ID.String(),
		CustomerName: v.CustomerName,
		Device:       v.Device,
		DueDate:      utils.FormatDate(v.DueDate),
		OverdueDays:  v.Accrual.OverdueDays,
		InterestOwed: v.Accrual.InterestOwed.String(),
	}
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct{ logger *slog.Logger }

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, slog.String("error", err.Error()))...)
}
