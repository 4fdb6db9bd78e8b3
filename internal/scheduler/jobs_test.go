package scheduler

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/segyhp/pawn-ledger/internal/domain"
	"github.com/segyhp/pawn-ledger/internal/lifecycle"
	"github.com/segyhp/pawn-ledger/internal/repository/memory"
	"github.com/segyhp/pawn-ledger/internal/repository/redisstore"
	"github.com/segyhp/pawn-ledger/internal/service"
	"github.com/segyhp/pawn-ledger/pkg/logger"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var d0 = time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)

type recordingWriter struct {
	saved []redisstore.OverdueSnapshot
	err   error
}

func (w *recordingWriter) SaveOverdue(_ context.Context, s redisstore.OverdueSnapshot) error {
	w.saved = append(w.saved, s)
	return w.err
}

// seedLedger pawns three 30-day contracts on day 0, 5 and 2, then moves the
// clock to day 33.
func seedLedger(t *testing.T) *service.LedgerService {
	t.Helper()
	now := d0
	clock := func() time.Time { return now }

	svc := service.NewLedgerService(service.Deps{
		Contracts: memory.NewContractRepository(),
		Customers: memory.NewCustomerRepository(),
		Manager:   lifecycle.NewManager(lifecycle.WithClock(clock)),
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		Defaults:  domain.Defaults{InterestRate: decimal.NewFromInt(2000), DurationDays: 30},
	})

	for _, p := range []struct {
		day    int
		name   string
		device string
	}{
		{0, "Nguyen Van A", "iPhone 12"},
		{5, "Tran Thi B", "Galaxy S21"},
		{2, "Le Van C", "Pixel 6"},
	} {
		now = d0.AddDate(0, 0, p.day)
		_, err := svc.CreateContract(context.Background(), &domain.CreateContractRequest{
			Customer:  domain.CustomerInput{Name: p.name, Phone: "09" + p.name[:2]},
			Device:    p.device,
			Principal: decimal.NewFromInt(10_000_000),
		})
		require.NoError(t, err)
	}

	now = d0.AddDate(0, 0, 33)
	return svc
}

func TestSweepOverdue(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter(&buf, "info", "json")
	svc := seedLedger(t)
	writer := &recordingWriter{}

	jobs := NewJobs(svc, writer, log, Config{})
	require.NoError(t, jobs.SweepOverdue(context.Background()))

	require.Len(t, writer.saved, 1)
	snap := writer.saved[0]
	assert.Equal(t, "2025-02-12", snap.ReferenceDate)
	require.Len(t, snap.Contracts, 2)
	// most overdue first
	assert.Equal(t, "iPhone 12", snap.Contracts[0].Device)
	assert.Equal(t, 3, snap.Contracts[0].OverdueDays)
	assert.Equal(t, "680000", snap.Contracts[0].InterestOwed)
	assert.Equal(t, "Pixel 6", snap.Contracts[1].Device)
	assert.Equal(t, 1, snap.Contracts[1].OverdueDays)

	assert.Contains(t, buf.String(), `"msg":"contract overdue"`)
	assert.Contains(t, buf.String(), `"overdue":2`)
}

func TestSweepOverdueWithoutSnapshots(t *testing.T) {
	svc := seedLedger(t)
	jobs := NewJobs(svc, nil, slog.New(slog.NewTextHandler(io.Discard, nil)), Config{})
	require.NoError(t, jobs.SweepOverdue(context.Background()))
}

func TestSweepOverdueReportsSnapshotFailure(t *testing.T) {
	svc := seedLedger(t)
	writer := &recordingWriter{err: errors.New("redis down")}
	jobs := NewJobs(svc, writer, slog.New(slog.NewTextHandler(io.Discard, nil)), Config{})

	require.Error(t, jobs.SweepOverdue(context.Background()))
}

func TestSendReminders(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter(&buf, "info", "json")
	svc := seedLedger(t)

	jobs := NewJobs(svc, nil, log, Config{ReminderDaysAhead: 3})
	require.NoError(t, jobs.SendReminders(context.Background()))

	// only the day-5 pawn is due on day 35
	out := buf.String()
	assert.Contains(t, out, `"msg":"payment reminder"`)
	assert.Contains(t, out, `"customer":"Tran Thi B"`)
	assert.Contains(t, out, `"days_left":2`)
	assert.NotContains(t, out, `"customer":"Nguyen Van A"`)
	assert.Contains(t, out, `"due":1`)
}

func TestRegister(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := seedLedger(t)

	jobs := NewJobs(svc, nil, log, Config{
		OverdueCron:  "0 5 0 * * *",
		ReminderCron: "0 0 9 * * *",
		Location:     time.UTC,
	})
	c := jobs.NewCron()
	require.NoError(t, jobs.Register(c))
	assert.Len(t, c.Entries(), 2)

	bad := NewJobs(svc, nil, log, Config{OverdueCron: "every day", ReminderCron: "0 0 9 * * *"})
	assert.Error(t, bad.Register(bad.NewCron()))
}

func TestJobWrapperLogsFailure(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter(&buf, "info", "json")
	jobs := NewJobs(nil, nil, log, Config{JobTimeout: time.Second})

	jobs.run("broken", func(ctx context.Context) error {
		_, ok := ctx.Deadline()
		assert.True(t, ok)
		return errors.New("boom")
	})()

	assert.Contains(t, buf.String(), `"msg":"job failed"`)
	assert.Contains(t, buf.String(), `"error":"boom"`)
}
