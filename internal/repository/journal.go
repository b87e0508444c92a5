package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"ahlan-reserve/internal/domain"

	"github.com/google/uuid"
)

const journalSchema = `CREATE TABLE IF NOT EXISTS reservation_journal (
	id UUID PRIMARY KEY,
	session_id TEXT NOT NULL,
	apartment_id BIGINT NOT NULL,
	client_id BIGINT,
	created_client BOOLEAN NOT NULL DEFAULT FALSE,
	payment_id BIGINT,
	payment_type TEXT NOT NULL,
	total_amount NUMERIC(14,2) NOT NULL,
	monthly_payment NUMERIC(14,2) NOT NULL,
	outcome TEXT NOT NULL,
	error TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS reservation_journal_apartment_idx ON reservation_journal (apartment_id, created_at DESC)`

const defaultJournalLimit = 50

type JournalRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewJournalRepository(db *sql.DB) *JournalRepository {
	return &JournalRepository{db: db, now: time.Now}
}

func (r *JournalRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, journalSchema); err != nil {
		return fmt.Errorf("create reservation_journal: %w", err)
	}
	return nil
}

// Append stores e, filling ID and CreatedAt when they are zero.
func (r *JournalRepository) Append(ctx context.Context, e domain.JournalEntry) (domain.JournalEntry, error) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = r.now().UTC()
	}

	const query = `INSERT INTO reservation_journal
		(id, session_id, apartment_id, client_id, created_client, payment_id, payment_type, total_amount, monthly_payment, outcome, error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.db.ExecContext(ctx, query,
		e.ID,
		e.SessionID,
		e.ApartmentID,
		nullInt64(e.ClientID),
		e.CreatedClient,
		nullInt64(e.PaymentID),
		string(e.PaymentType),
		e.TotalAmount,
		e.MonthlyPayment,
		string(e.Outcome),
		e.Error,
		e.CreatedAt,
	)
	if err != nil {
		return domain.JournalEntry{}, fmt.Errorf("insert journal entry: %w", err)
	}
	return e, nil
}

// ListByApartment returns the newest entries first.
func (r *JournalRepository) ListByApartment(ctx context.Context, apartmentID int64, limit int) ([]domain.JournalEntry, error) {
	if limit <= 0 {
		limit = defaultJournalLimit
	}

	const query = `SELECT id, session_id, apartment_id, client_id, created_client, payment_id, payment_type,
		total_amount, monthly_payment, outcome, error, created_at
		FROM reservation_journal WHERE apartment_id = $1 ORDER BY created_at DESC LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, apartmentID, limit)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	defer rows.Close()

	out := make([]domain.JournalEntry, 0)
	for rows.Next() {
		var (
			e           domain.JournalEntry
			clientID    sql.NullInt64
			paymentID   sql.NullInt64
			paymentType string
			outcome     string
		)
		if err := rows.Scan(
			&e.ID,
			&e.SessionID,
			&e.ApartmentID,
			&clientID,
			&e.CreatedClient,
			&paymentID,
			&paymentType,
			&e.TotalAmount,
			&e.MonthlyPayment,
			&outcome,
			&e.Error,
			&e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan journal entry: %w", err)
		}
		if clientID.Valid {
			e.ClientID = &clientID.Int64
		}
		if paymentID.Valid {
			e.PaymentID = &paymentID.Int64
		}
		e.PaymentType = domain.PaymentType(paymentType)
		e.Outcome = domain.SubmissionOutcome(outcome)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}
