package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/segyhp/pawn-ledger/internal/domain"
	"github.com/segyhp/pawn-ledger/internal/repository"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const customerColumns = `id, name, phone, address, id_card, created_at`

type CustomerRepository struct {
	db *sqlx.DB
}

func NewCustomerRepository(db *sqlx.DB) *CustomerRepository {
	return &CustomerRepository{db: db}
}

func (r *CustomerRepository) Create(ctx context.Context, customer *domain.Customer) error {
	query := r.db.Rebind(`INSERT INTO customers (` + customerColumns + `) VALUES (?, ?, ?, ?, ?, ?)`)

	_, err := r.db.ExecContext(ctx, query,
		customer.ID,
		customer.Name,
		customer.Phone,
		customer.Address,
		customer.IDCard,
		customer.CreatedAt.UTC(),
	)
	if err != nil {
		return translate(err, "customer "+customer.ID.String())
	}
	return nil
}

func (r *CustomerRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
	query := r.db.Rebind(`SELECT ` + customerColumns + ` FROM customers WHERE id = ?`)

	var customer domain.Customer
	if err := r.db.GetContext(ctx, &customer, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: customer %s", repository.ErrNotFound, id)
		}
		return nil, err
	}
	customer.CreatedAt = customer.CreatedAt.UTC()
	return &customer, nil
}

func (r *CustomerRepository) FindMatch(ctx context.Context, name, phone string) (*domain.Customer, error) {
	name, phone = strings.TrimSpace(name), strings.TrimSpace(phone)
	lower := strings.ToLower(name)

	// without a phone only the name can identify the customer
	where := `phone = ?`
	args := []any{phone}
	if phone == "" {
		where += ` AND LOWER(name) = ?`
		args = append(args, lower)
	}
	query := r.db.Rebind(`
		SELECT ` + customerColumns + `
		FROM customers
		WHERE ` + where + `
		ORDER BY CASE WHEN LOWER(name) = ? THEN 0 ELSE 1 END, created_at, id
		LIMIT 1
	`)
	args = append(args, lower)

	var customer domain.Customer
	if err := r.db.GetContext(ctx, &customer, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: customer %q %q", repository.ErrNotFound, name, phone)
		}
		return nil, err
	}
	customer.CreatedAt = customer.CreatedAt.UTC()
	return &customer, nil
}

func (r *CustomerRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM customers WHERE id = ?`), id)
	if err != nil {
		return translate(err, "customer "+id.String())
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: customer %s", repository.ErrNotFound, id)
	}
	return nil
}

func (r *CustomerRepository) List(ctx context.Context, filter domain.CustomerFilter) ([]*domain.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers`
	var args []any
	if q := strings.ToLower(strings.TrimSpace(filter.Query)); q != "" {
		query += ` WHERE LOWER(name) LIKE ? OR LOWER(phone) LIKE ? OR LOWER(id_card) LIKE ?`
		pattern := "%" + q + "%"
		args = append(args, pattern, pattern, pattern)
	}
	query += ` ORDER BY LOWER(name), id`

	customers := []*domain.Customer{}
	if err := r.db.SelectContext(ctx, &customers, r.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	for _, c := range customers {
		c.CreatedAt = c.CreatedAt.UTC()
	}
	return customers, nil
}
