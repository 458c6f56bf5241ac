package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"

	"loantrack-core/internal/domain/entity"
)

// PostgresStore is the relational record store for loans and payments.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(dsn string, maxConns int) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(maxConns / 2)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &PostgresStore{db: db}, nil
}

// NewPostgresFromDB wraps an existing connection; tests use this with sqlmock.
func NewPostgresFromDB(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// EnsureSchema creates the two tables when they do not exist yet.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS loans (
	id              TEXT PRIMARY KEY,
	name            TEXT NOT NULL,
	original_amount NUMERIC(12,2) NOT NULL,
	current_balance NUMERIC(12,2) NOT NULL,
	term_months     INTEGER NOT NULL,
	loan_date       TEXT NOT NULL,
	loan_type       TEXT NOT NULL DEFAULT 'general',
	lender          TEXT NOT NULL DEFAULT '',
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS payments (
	id           TEXT PRIMARY KEY,
	loan_id      TEXT NOT NULL REFERENCES loans(id) ON DELETE CASCADE,
	amount       NUMERIC(12,2) NOT NULL,
	paid_by      TEXT NOT NULL,
	payment_date TEXT NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);`
	_, err := s.db.ExecContext(ctx, ddl)
	return err
}

func (s *PostgresStore) CreateLoan(ctx context.Context, loan *entity.Loan) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO loans (id, name, original_amount, current_balance, term_months, loan_date, loan_type, lender, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		loan.ID, loan.Name, loan.OriginalAmount, loan.CurrentBalance,
		loan.TermMonths, loan.LoanDate, loan.LoanType, loan.Lender, loan.CreatedAt,
	)
	return err
}

func (s *PostgresStore) ListLoans(ctx context.Context) ([]entity.Loan, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, original_amount, current_balance, term_months, loan_date, loan_type, lender, created_at
		 FROM loans ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var loans []entity.Loan
	for rows.Next() {
		var loan entity.Loan
		if err := rows.Scan(&loan.ID, &loan.Name, &loan.OriginalAmount, &loan.CurrentBalance,
			&loan.TermMonths, &loan.LoanDate, &loan.LoanType, &loan.Lender, &loan.CreatedAt); err != nil {
			return nil, err
		}
		loans = append(loans, loan)
	}
	return loans, rows.Err()
}

func (s *PostgresStore) GetLoanByID(ctx context.Context, id string) (*entity.Loan, error) {
	var loan entity.Loan
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, original_amount, current_balance, term_months, loan_date, loan_type, lender, created_at
		 FROM loans WHERE id = $1`, id).
		Scan(&loan.ID, &loan.Name, &loan.OriginalAmount, &loan.CurrentBalance,
			&loan.TermMonths, &loan.LoanDate, &loan.LoanType, &loan.Lender, &loan.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: id %s", entity.ErrLoanNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &loan, nil
}

func (s *PostgresStore) ListPayments(ctx context.Context, loanID string) ([]entity.Payment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, loan_id, amount, paid_by, payment_date, created_at
		 FROM payments WHERE loan_id = $1 ORDER BY payment_date`, loanID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []entity.Payment
	for rows.Next() {
		var p entity.Payment
		if err := rows.Scan(&p.ID, &p.LoanID, &p.Amount, &p.PaidBy, &p.PaymentDate, &p.CreatedAt); err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// RecordPayment inserts the payment and decrements the loan balance as one
// transaction, via a single atomic decrement floored at zero in SQL. No
// read-then-write path: any error after the first statement has aborted the
// transaction, so a recovery query inside it could never run.
func (s *PostgresStore) RecordPayment(ctx context.Context, p *entity.Payment) (decimal.Decimal, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return decimal.Zero, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO payments (id, loan_id, amount, paid_by, payment_date, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		p.ID, p.LoanID, p.Amount, p.PaidBy, p.PaymentDate, p.CreatedAt,
	); err != nil {
		return decimal.Zero, err
	}

	var balance decimal.Decimal
	err = tx.QueryRowContext(ctx,
		`UPDATE loans SET current_balance = GREATEST(current_balance - $1, 0)
		 WHERE id = $2 RETURNING current_balance`,
		p.Amount, p.LoanID,
	).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, fmt.Errorf("%w: id %s", entity.ErrLoanNotFound, p.LoanID)
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("decrement balance: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return decimal.Zero, err
	}
	return balance, nil
}

// DeleteLoan removes the loan and its payments as one transaction.
func (s *PostgresStore) DeleteLoan(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM payments WHERE loan_id = $1`, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM loans WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: id %s", entity.ErrLoanNotFound, id)
	}
	return tx.Commit()
}
