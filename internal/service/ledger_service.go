package service

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/segyhp/pawn-ledger/internal/accrual"
	"github.com/segyhp/pawn-ledger/internal/advisory"
	"github.com/segyhp/pawn-ledger/internal/domain"
	"github.com/segyhp/pawn-ledger/internal/lifecycle"
	"github.com/segyhp/pawn-ledger/internal/repository"
	"github.com/segyhp/pawn-ledger/internal/statement"
	customError "github.com/segyhp/pawn-ledger/pkg/errors"
	"github.com/segyhp/pawn-ledger/pkg/metrics"
	"github.com/segyhp/pawn-ledger/pkg/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var _ Ledger = (*LedgerService)(nil)

// Deps wires a LedgerService. Advisor, Metrics and Logger are optional.
type Deps struct {
	Contracts   repository.ContractRepository
	Customers   repository.CustomerRepository
	Preferences repository.PreferenceRepository
	Manager     *lifecycle.Manager
	Advisor     advisory.Advisor
	Metrics     *metrics.Collector
	Logger      *slog.Logger
	Defaults    domain.Defaults
}

type LedgerService struct {
	contracts   repository.ContractRepository
	customers   repository.CustomerRepository
	preferences repository.PreferenceRepository
	manager     *lifecycle.Manager
	advisor     advisory.Advisor
	metrics     *metrics.Collector
	logger      *slog.Logger
	locks       *keyedMutex

	mu       sync.RWMutex
	defaults domain.Defaults
}

func NewLedgerService(deps Deps) *LedgerService {
	if deps.Manager == nil {
		deps.Manager = lifecycle.NewManager()
	}
	if deps.Advisor == nil {
		deps.Advisor = advisory.Noop{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &LedgerService{
		contracts:   deps.Contracts,
		customers:   deps.Customers,
		preferences: deps.Preferences,
		manager:     deps.Manager,
		advisor:     deps.Advisor,
		metrics:     deps.Metrics,
		logger:      deps.Logger,
		locks:       newKeyedMutex(),
		defaults:    deps.Defaults,
	}
}

// LoadDefaults replaces the configured defaults with the persisted ones, if
// any were saved.
func (s *LedgerService) LoadDefaults(ctx context.Context) error {
	if s.preferences == nil {
		return nil
	}
	saved, err := s.preferences.LoadDefaults(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return customError.WrapCacheError(err)
	}

	s.mu.Lock()
	s.defaults = saved
	s.mu.Unlock()
	s.logger.Info("loaded saved defaults",
		slog.String("interest_rate", saved.InterestRate.String()),
		slog.Int("duration_days", saved.DurationDays))
	return nil
}

func (s *LedgerService) Defaults() domain.Defaults {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.defaults
}

func (s *LedgerService) Today() time.Time {
	return s.manager.Today()
}

// CreateContract resolves or creates the customer, opens the contract and
// remembers its rate and duration as the new defaults.
func (s *LedgerService) CreateContract(ctx context.Context, req *domain.CreateContractRequest) (*domain.ContractView, error) {
	start := time.Now()
	view, err := s.createContract(ctx, req)
	s.record("create", start, err)
	return view, err
}

func (s *LedgerService) createContract(ctx context.Context, req *domain.CreateContractRequest) (*domain.ContractView, error) {
	customer, isNew, err := s.resolveCustomer(ctx, req.Customer)
	if err != nil {
		return nil, err
	}

	var pawnDate time.Time
	if req.PawnDate != "" {
		if pawnDate, err = utils.ParseDate(req.PawnDate); err != nil {
			return nil, customError.Validation("pawn_date: %v", err)
		}
	}

	defaults := s.Defaults()
	contract, err := s.manager.Create(lifecycle.CreateInput{
		Customer:     *customer,
		Device:       req.Device,
		Principal:    req.Principal,
		InterestRate: req.InterestRate,
		PawnDate:     pawnDate,
		DurationDays: req.DurationDays,
		Paperless:    req.Paperless,
		Notes:        req.Notes,
	}, defaults)
	if err != nil {
		return nil, err
	}

	if isNew {
		if err := s.customers.Create(ctx, customer); err != nil {
			return nil, customError.WrapDatabaseError(err)
		}
	}
	if err := s.contracts.Create(ctx, &contract); err != nil {
		if isNew {
			s.discardCustomer(ctx, customer.ID)
		}
		return nil, customError.WrapDatabaseError(err)
	}

	s.rememberDefaults(ctx, domain.Defaults{
		InterestRate: contract.InterestRate,
		DurationDays: utils.DaysBetween(contract.PawnDate, contract.DueDate),
	})

	s.logger.Info("contract created",
		slog.String("contract_id", contract.ID.String()),
		slog.String("customer_id", contract.CustomerID.String()),
		slog.String("principal", contract.LoanAmount.String()),
		slog.String("due_date", utils.FormatDate(contract.DueDate)))
	return s.view(&contract, s.Today()), nil
}

// discardCustomer removes a customer saved for a contract that failed to
// persist.
func (s *LedgerService) discardCustomer(ctx context.Context, id uuid.UUID) {
	if err := s.customers.Delete(ctx, id); err != nil {
		s.logger.Error("failed to remove customer of failed contract",
			slog.String("customer_id", id.String()),
			slog.String("error", err.Error()))
	}
}

// resolveCustomer returns the referenced customer, an existing customer with
// the same name and phone (or the same phone), or a new unsaved one.
func (s *LedgerService) resolveCustomer(ctx context.Context, in domain.CustomerInput) (*domain.Customer, bool, error) {
	if in.ID != nil {
		customer, err := s.customers.GetByID(ctx, *in.ID)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, false, customError.WrapCustomerNotFound(in.ID.String())
		}
		if err != nil {
			return nil, false, customError.WrapDatabaseError(err)
		}
		return customer, false, nil
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, false, customError.Validation("customer name is required")
	}
	phone := strings.TrimSpace(in.Phone)

	existing, err := s.customers.FindMatch(ctx, name, phone)
	switch {
	case err == nil:
		return existing, false, nil
	case !errors.Is(err, repository.ErrNotFound):
		return nil, false, customError.WrapDatabaseError(err)
	}

	return &domain.Customer{
		ID:        s.manager.NewID(),
		Name:      name,
		Phone:     phone,
		Address:   strings.TrimSpace(in.Address),
		IDCard:    strings.TrimSpace(in.IDCard),
		CreatedAt: s.manager.Now(),
	}, true, nil
}

func (s *LedgerService) rememberDefaults(ctx context.Context, d domain.Defaults) {
	s.mu.Lock()
	s.defaults = d
	s.mu.Unlock()

	if s.preferences == nil {
		return
	}
	if err := s.preferences.SaveDefaults(ctx, d); err != nil {
		s.logger.Warn("failed to save defaults", slog.String("error", err.Error()))
	}
}

func (s *LedgerService) GetContract(ctx context.Context, id uuid.UUID) (*domain.ContractView, error) {
	contract, err := s.contracts.GetByID(ctx, id)
	if err != nil {
		return nil, contractError(err, id)
	}
	return s.view(contract, s.Today()), nil
}

func (s *LedgerService) ListContracts(ctx context.Context, query ContractQuery) ([]*domain.ContractView, error) {
	filter := domain.ContractFilter{Query: query.Query, CustomerID: query.CustomerID}

	var display domain.ContractStatus
	if query.Status != "" {
		status, ok := domain.ParseStatus(query.Status)
		if !ok {
			return nil, customError.Validation("unknown status %q", query.Status)
		}
		display = status
		if status == domain.StatusOverdue {
			status = domain.StatusActive
		}
		filter.Statuses = []domain.ContractStatus{status}
	}

	contracts, err := s.contracts.List(ctx, filter)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	today := s.Today()
	views := make([]*domain.ContractView, 0, len(contracts))
	for _, c := range contracts {
		v := s.view(c, today)
		if display == domain.StatusOverdue && v.DisplayStatus != domain.StatusOverdue {
			continue
		}
		views = append(views, v)
	}
	return views, nil
}

func (s *LedgerService) EditContract(ctx context.Context, id uuid.UUID, patch domain.ContractPatch) (*domain.ContractView, error) {
	if patch.IsEmpty() {
		return nil, customError.Validation("nothing to update")
	}
	return s.mutate(ctx, id, "edit", func(c domain.Contract) (domain.Contract, error) {
		return s.manager.EditMetadata(c, patch)
	})
}

func (s *LedgerService) Renew(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (*domain.ContractView, error) {
	return s.mutate(ctx, id, "renew", func(c domain.Contract) (domain.Contract, error) {
		return s.manager.Renew(c, amount)
	})
}

// Redeem settles the contract. A zero amount settles at the current quote.
func (s *LedgerService) Redeem(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (*domain.ContractView, error) {
	return s.mutate(ctx, id, "redeem", func(c domain.Contract) (domain.Contract, error) {
		total := amount
		if total.IsZero() {
			total = s.view(&c, s.Today()).RedemptionTotal
		}
		return s.manager.Redeem(c, total)
	})
}

func (s *LedgerService) AdjustPrincipal(ctx context.Context, id uuid.UUID, direction domain.AdjustDirection, amount decimal.Decimal) (*domain.ContractView, error) {
	return s.mutate(ctx, id, "adjust_principal", func(c domain.Contract) (domain.Contract, error) {
		return s.manager.AdjustPrincipal(c, direction, amount)
	})
}

func (s *LedgerService) Cancel(ctx context.Context, id uuid.UUID, reason string) (*domain.ContractView, error) {
	return s.mutate(ctx, id, "cancel", func(c domain.Contract) (domain.Contract, error) {
		return s.manager.Cancel(c, reason)
	})
}

func (s *LedgerService) Forfeit(ctx context.Context, id uuid.UUID, reason string) (*domain.ContractView, error) {
	return s.mutate(ctx, id, "forfeit", func(c domain.Contract) (domain.Contract, error) {
		return s.manager.Forfeit(c, reason)
	})
}

// mutate runs one lifecycle operation under the contract's lock and writes
// the result back with a version check.
func (s *LedgerService) mutate(ctx context.Context, id uuid.UUID, operation string, apply func(domain.Contract) (domain.Contract, error)) (view *domain.ContractView, err error) {
	start := time.Now()
	defer func() { s.record(operation, start, err) }()

	unlock := s.locks.Lock(id)
	defer unlock()

	current, err := s.contracts.GetByID(ctx, id)
	if err != nil {
		return nil, contractError(err, id)
	}

	next, err := apply(*current)
	if err != nil {
		return nil, err
	}

	if err := s.contracts.Update(ctx, &next); err != nil {
		return nil, contractError(err, id)
	}

	attrs := []any{
		slog.String("contract_id", id.String()),
		slog.String("status", string(next.Status)),
		slog.String("principal", next.LoanAmount.String()),
	}
	if n := len(next.Transactions); n > 0 {
		last := next.Transactions[n-1]
		attrs = append(attrs, slog.String("kind", string(last.Kind)), slog.String("amount", last.Amount.String()))
	}
	s.logger.Info("contract "+operation, attrs...)

	return s.view(&next, s.Today()), nil
}

func (s *LedgerService) Statement(ctx context.Context, id uuid.UUID) (string, error) {
	view, err := s.GetContract(ctx, id)
	if err != nil {
		return "", err
	}
	return statement.Markdown(view)
}

func (s *LedgerService) CreateCustomer(ctx context.Context, req *domain.CreateCustomerRequest) (*domain.Customer, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, customError.Validation("customer name is required")
	}

	customer := &domain.Customer{
		ID:        s.manager.NewID(),
		Name:      name,
		Phone:     strings.TrimSpace(req.Phone),
		Address:   strings.TrimSpace(req.Address),
		IDCard:    strings.TrimSpace(req.IDCard),
		CreatedAt: s.manager.Now(),
	}
	if err := s.customers.Create(ctx, customer); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	s.logger.Info("customer created", slog.String("customer_id", customer.ID.String()))
	return customer, nil
}

func (s *LedgerService) GetCustomer(ctx context.Context, id uuid.UUID) (*domain.CustomerResponse, error) {
	customer, err := s.customers.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, customError.WrapCustomerNotFound(id.String())
	}
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	contracts, err := s.CustomerContracts(ctx, id)
	if err != nil {
		return nil, err
	}
	return &domain.CustomerResponse{Customer: customer, Contracts: contracts}, nil
}

func (s *LedgerService) ListCustomers(ctx context.Context, query string) ([]*domain.Customer, error) {
	customers, err := s.customers.List(ctx, domain.CustomerFilter{Query: query})
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	return customers, nil
}

func (s *LedgerService) CustomerContracts(ctx context.Context, id uuid.UUID) ([]*domain.ContractView, error) {
	contracts, err := s.contracts.ListByCustomer(ctx, id)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	return s.views(contracts), nil
}

// Summary rolls up the Active book as of today and refreshes the portfolio
// gauges.
func (s *LedgerService) Summary(ctx context.Context) (*domain.Summary, error) {
	active, err := s.activeViews(ctx)
	if err != nil {
		return nil, err
	}

	today := s.Today()
	summary := &domain.Summary{
		OutstandingPrincipal: decimal.Zero,
		InterestOwed:         decimal.Zero,
		ReferenceDate:        utils.FormatDate(today),
	}
	for _, v := range active {
		summary.ActiveContracts++
		summary.OutstandingPrincipal = summary.OutstandingPrincipal.Add(v.LoanAmount)
		summary.InterestOwed = summary.InterestOwed.Add(v.Accrual.InterestOwed)
		if v.DisplayStatus == domain.StatusOverdue {
			summary.OverdueContracts++
		}
		if v.DueDate.Equal(today) {
			summary.DueToday++
		}
	}

	if s.metrics != nil {
		s.metrics.SetPortfolio(summary.ActiveContracts, summary.OutstandingPrincipal.InexactFloat64(), summary.OverdueContracts)
	}
	return summary, nil
}

// OverdueContracts lists Active contracts past their due date, most overdue
// first.
func (s *LedgerService) OverdueContracts(ctx context.Context) ([]*domain.ContractView, error) {
	active, err := s.activeViews(ctx)
	if err != nil {
		return nil, err
	}

	var overdue []*domain.ContractView
	for _, v := range active {
		if v.Accrual.OverdueDays > 0 {
			overdue = append(overdue, v)
		}
	}
	sortViews(overdue, func(a, b *domain.ContractView) bool {
		return a.Accrual.OverdueDays > b.Accrual.OverdueDays
	})
	return overdue, nil
}

// DueWithin lists Active contracts due between today and today+days, soonest
// first.
func (s *LedgerService) DueWithin(ctx context.Context, days int) ([]*domain.ContractView, error) {
	if days < 0 {
		return nil, customError.Validation("days must not be negative, got %d", days)
	}
	active, err := s.activeViews(ctx)
	if err != nil {
		return nil, err
	}

	today := s.Today()
	var due []*domain.ContractView
	for _, v := range active {
		if left := utils.DaysBetween(today, v.DueDate); left >= 0 && left <= days {
			due = append(due, v)
		}
	}
	sortViews(due, func(a, b *domain.ContractView) bool {
		return a.DueDate.Before(b.DueDate)
	})
	return due, nil
}

func (s *LedgerService) ValuationAdvice(ctx context.Context, req *domain.ValuationRequest) *advisory.Valuation {
	v := s.advisor.ValuationAdvice(ctx, req.Brand, req.Model, req.Condition)
	if s.metrics != nil {
		s.metrics.RecordAdvisory("valuation", v != nil)
	}
	return v
}

func (s *LedgerService) AnalyzeDeviceImage(ctx context.Context, image []byte, mimeType string) string {
	text := s.advisor.AnalyzeDeviceImage(ctx, image, mimeType)
	if s.metrics != nil {
		s.metrics.RecordAdvisory("image", text != "")
	}
	return text
}

func (s *LedgerService) activeViews(ctx context.Context) ([]*domain.ContractView, error) {
	contracts, err := s.contracts.List(ctx, domain.ContractFilter{
		Statuses: []domain.ContractStatus{domain.StatusActive},
	})
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	return s.views(contracts), nil
}

func (s *LedgerService) views(contracts []*domain.Contract) []*domain.ContractView {
	today := s.Today()
	views := make([]*domain.ContractView, 0, len(contracts))
	for _, c := range contracts {
		views = append(views, s.view(c, today))
	}
	return views
}

// view derives the read-time values of a contract at ref.
func (s *LedgerService) view(c *domain.Contract, ref time.Time) *domain.ContractView {
	res := accrual.ForContract(c, ref)
	return &domain.ContractView{
		Contract:        *c,
		DisplayStatus:   accrual.DisplayStatus(c, ref),
		Accrual:         res.Domain(),
		DailyInterest:   accrual.DailyInterest(c.LoanAmount, c.InterestRate).Round(0),
		RedemptionTotal: c.LoanAmount.Add(res.InterestOwed),
		ReferenceDate:   utils.FormatDate(ref),
	}
}

func (s *LedgerService) record(operation string, start time.Time, err error) {
	if s.metrics == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
		var bizErr *customError.BusinessError
		if errors.As(err, &bizErr) {
			outcome = bizErr.Code
		}
	}
	s.metrics.RecordOperation(operation, outcome, time.Since(start))
}

// contractError translates repository errors for a contract id.
func contractError(err error, id uuid.UUID) error {
	var bizErr *customError.BusinessError
	switch {
	case errors.As(err, &bizErr):
		return err
	case errors.Is(err, repository.ErrNotFound):
		return customError.WrapContractNotFound(id.String())
	case errors.Is(err, repository.ErrVersionConflict):
		return customError.WrapConcurrentUpdate(id.String())
	default:
		return customError.WrapDatabaseError(err)
	}
}

func sortViews(views []*domain.ContractView, less func(a, b *domain.ContractView) bool) {
	sort.SliceStable(views, func(i, j int) bool { return less(views[i], views[j]) })
}
