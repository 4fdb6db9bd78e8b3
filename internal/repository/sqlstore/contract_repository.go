package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/segyhp/pawn-ledger/internal/domain"
	"github.com/segyhp/pawn-ledger/internal/repository"
	"github.com/segyhp/pawn-ledger/pkg/utils"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const contractColumns = `id, customer_id, customer_name, customer_phone, device, loan_amount, interest_rate,
	pawn_date, due_date, last_paid_date, status, paperless, notes, version, created_at, updated_at`

type segmentRow struct {
	ContractID uuid.UUID `db:"contract_id"`
	Seq        int       `db:"seq"`
	domain.InterestSegment
}

type transactionRow struct {
	ContractID uuid.UUID `db:"contract_id"`
	Seq        int       `db:"seq"`
	domain.Transaction
}

type ContractRepository struct {
	db *sqlx.DB
}

func NewContractRepository(db *sqlx.DB) *ContractRepository {
	return &ContractRepository{db: db}
}

func (r *ContractRepository) Create(ctx context.Context, contract *domain.Contract) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := tx.Rebind(`
		INSERT INTO contracts (` + contractColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	_, err = tx.ExecContext(ctx, query,
		contract.ID,
		contract.CustomerID,
		contract.CustomerName,
		contract.CustomerPhone,
		contract.Device,
		contract.LoanAmount,
		contract.InterestRate,
		utils.DateOf(contract.PawnDate),
		utils.DateOf(contract.DueDate),
		utils.DateOf(contract.LastPaidDate),
		contract.Status,
		contract.Paperless,
		contract.Notes,
		contract.Version,
		contract.CreatedAt.UTC(),
		contract.UpdatedAt.UTC(),
	)
	if err != nil {
		return translate(err, "contract "+contract.ID.String())
	}

	if err := writeLedger(ctx, tx, contract); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *ContractRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Contract, error) {
	query := r.db.Rebind(`SELECT ` + contractColumns + ` FROM contracts WHERE id = ?`)

	var contract domain.Contract
	if err := r.db.GetContext(ctx, &contract, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: contract %s", repository.ErrNotFound, id)
		}
		return nil, err
	}

	contracts := []*domain.Contract{&contract}
	if err := r.loadLedger(ctx, contracts); err != nil {
		return nil, err
	}
	return &contract, nil
}

// Update writes the contract row, closes and appends segments and appends
// new transactions in one database transaction. Rows already stored are
// never rewritten except for a segment's end date.
func (r *ContractRepository) Update(ctx context.Context, contract *domain.Contract) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := tx.Rebind(`
		UPDATE contracts
		SET customer_id = ?, customer_name = ?, customer_phone = ?, device = ?, loan_amount = ?,
			interest_rate = ?, due_date = ?, last_paid_date = ?, status = ?, paperless = ?, notes = ?,
			version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?
	`)
	res, err := tx.ExecContext(ctx, query,
		contract.CustomerID,
		contract.CustomerName,
		contract.CustomerPhone,
		contract.Device,
		contract.LoanAmount,
		contract.InterestRate,
		utils.DateOf(contract.DueDate),
		utils.DateOf(contract.LastPaidDate),
		contract.Status,
		contract.Paperless,
		contract.Notes,
		contract.UpdatedAt.UTC(),
		contract.ID,
		contract.Version,
	)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		var stored int
		err := tx.GetContext(ctx, &stored, tx.Rebind(`SELECT version FROM contracts WHERE id = ?`), contract.ID)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: contract %s", repository.ErrNotFound, contract.ID)
		}
		if err != nil {
			return err
		}
		return fmt.Errorf("%w: contract %s at version %d, stored %d",
			repository.ErrVersionConflict, contract.ID, contract.Version, stored)
	}

	if err := writeLedger(ctx, tx, contract); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	contract.Version++
	return nil
}

func (r *ContractRepository) List(ctx context.Context, filter domain.ContractFilter) ([]*domain.Contract, error) {
	var (
		where []string
		args  []any
	)
	if len(filter.Statuses) > 0 {
		where = append(where, "status IN (?)")
		args = append(args, filter.Statuses)
	}
	if filter.CustomerID != nil {
		where = append(where, "customer_id = ?")
		args = append(args, *filter.CustomerID)
	}
	if q := strings.ToLower(strings.TrimSpace(filter.Query)); q != "" {
		where = append(where, "(LOWER(customer_name) LIKE ? OR LOWER(device) LIKE ?)")
		args = append(args, "%"+q+"%", "%"+q+"%")
	}

	query := `SELECT ` + contractColumns + ` FROM contracts`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC, id DESC`

	if len(filter.Statuses) > 0 {
		var err error
		query, args, err = sqlx.In(query, args...)
		if err != nil {
			return nil, err
		}
	}
	return r.selectContracts(ctx, r.db.Rebind(query), args...)
}

func (r *ContractRepository) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]*domain.Contract, error) {
	return r.List(ctx, domain.ContractFilter{CustomerID: &customerID})
}

func (r *ContractRepository) selectContracts(ctx context.Context, query string, args ...any) ([]*domain.Contract, error) {
	contracts := []*domain.Contract{}
	if err := r.db.SelectContext(ctx, &contracts, query, args...); err != nil {
		return nil, err
	}
	if err := r.loadLedger(ctx, contracts); err != nil {
		return nil, err
	}
	return contracts, nil
}

// loadLedger fills segments and transactions for the given contracts and
// normalizes stored dates to calendar days.
func (r *ContractRepository) loadLedger(ctx context.Context, contracts []*domain.Contract) error {
	if len(contracts) == 0 {
		return nil
	}

	byID := make(map[uuid.UUID]*domain.Contract, len(contracts))
	ids := make([]uuid.UUID, 0, len(contracts))
	for _, c := range contracts {
		c.PawnDate = utils.DateOf(c.PawnDate)
		c.DueDate = utils.DateOf(c.DueDate)
		c.LastPaidDate = utils.DateOf(c.LastPaidDate)
		c.CreatedAt = c.CreatedAt.UTC()
		c.UpdatedAt = c.UpdatedAt.UTC()
		c.Segments = []domain.InterestSegment{}
		c.Transactions = []domain.Transaction{}
		byID[c.ID] = c
		ids = append(ids, c.ID)
	}

	query, args, err := sqlx.In(`
		SELECT contract_id, seq, start_date, end_date, principal, interest_rate
		FROM interest_segments
		WHERE contract_id IN (?)
		ORDER BY contract_id, seq
	`, ids)
	if err != nil {
		return err
	}
	var segments []segmentRow
	if err := r.db.SelectContext(ctx, &segments, r.db.Rebind(query), args...); err != nil {
		return err
	}
	for _, row := range segments {
		seg := row.InterestSegment
		seg.StartDate = utils.DateOf(seg.StartDate)
		if seg.EndDate != nil {
			seg = seg.Closed(utils.DateOf(*seg.EndDate))
		}
		c := byID[row.ContractID]
		c.Segments = append(c.Segments, seg)
	}

	query, args, err = sqlx.In(`
		SELECT contract_id, seq, id, kind, occurred_at, amount, description
		FROM contract_transactions
		WHERE contract_id IN (?)
		ORDER BY contract_id, seq
	`, ids)
	if err != nil {
		return err
	}
	var transactions []transactionRow
	if err := r.db.SelectContext(ctx, &transactions, r.db.Rebind(query), args...); err != nil {
		return err
	}
	for _, row := range transactions {
		t := row.Transaction
		t.OccurredAt = t.OccurredAt.UTC()
		c := byID[row.ContractID]
		c.Transactions = append(c.Transactions, t)
	}
	return nil
}

// writeLedger upserts segments by position and inserts transactions that
// are not stored yet.
func writeLedger(ctx context.Context, tx *sqlx.Tx, contract *domain.Contract) error {
	segmentQuery := tx.Rebind(`
		INSERT INTO interest_segments (contract_id, seq, start_date, end_date, principal, interest_rate)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (contract_id, seq) DO UPDATE SET end_date = excluded.end_date
	`)
	for i, seg := range contract.Segments {
		var end any
		if seg.EndDate != nil {
			end = utils.DateOf(*seg.EndDate)
		}
		_, err := tx.ExecContext(ctx, segmentQuery,
			contract.ID, i, utils.DateOf(seg.StartDate), end, seg.Principal, seg.InterestRate)
		if err != nil {
			return fmt.Errorf("failed to write segment %d: %w", i, err)
		}
	}

	transactionQuery := tx.Rebind(`
		INSERT INTO contract_transactions (id, contract_id, seq, kind, occurred_at, amount, description)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING
	`)
	for i, t := range contract.Transactions {
		_, err := tx.ExecContext(ctx, transactionQuery,
			t.ID, contract.ID, i, t.Kind, t.OccurredAt.UTC(), t.Amount, t.Description)
		if err != nil {
			return fmt.Errorf("failed to write transaction %s: %w", t.ID, err)
		}
	}
	return nil
}
