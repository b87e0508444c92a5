package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"ahlan-reserve/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var journalColumns = []string{
	"id", "session_id", "apartment_id", "client_id", "created_client", "payment_id", "payment_type",
	"total_amount", "monthly_payment", "outcome", "error", "created_at",
}

func newJournal(t *testing.T) (*JournalRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := NewJournalRepository(db)
	repo.now = func() time.Time { return time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC) }
	return repo, mock
}

func TestJournal_AppendCommitted(t *testing.T) {
	repo, mock := newJournal(t)
	clientID, paymentID := int64(1001), int64(77)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO reservation_journal")).
		WithArgs(
			sqlmock.AnyArg(),
			"sess-1",
			int64(12),
			clientID,
			true,
			paymentID,
			"muddatli",
			decimal.RequireFromString("50000000"),
			decimal.RequireFromString("5833333.33"),
			"committed",
			"",
			time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC),
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	e, err := repo.Append(context.Background(), domain.JournalEntry{
		SessionID:      "sess-1",
		ApartmentID:    12,
		ClientID:       &clientID,
		CreatedClient:  true,
		PaymentID:      &paymentID,
		PaymentType:    domain.PaymentInstallment,
		TotalAmount:    decimal.RequireFromString("50000000"),
		MonthlyPayment: decimal.RequireFromString("5833333.33"),
		Outcome:        domain.OutcomeCommitted,
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, e.ID)
	assert.Equal(t, 2026, e.CreatedAt.Year())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJournal_AppendFailureWithoutIDs(t *testing.T) {
	repo, mock := newJournal(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO reservation_journal")).
		WithArgs(
			sqlmock.AnyArg(), "sess-2", int64(12), nil, false, nil, "naqd",
			sqlmock.AnyArg(), sqlmock.AnyArg(), "client_creation_failed", "phone: already exists", sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	_, err := repo.Append(context.Background(), domain.JournalEntry{
		SessionID:   "sess-2",
		ApartmentID: 12,
		PaymentType: domain.PaymentCash,
		Outcome:     domain.OutcomeClientCreationFailed,
		Error:       "phone: already exists",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJournal_AppendError(t *testing.T) {
	repo, mock := newJournal(t)
	mock.ExpectExec("INSERT INTO reservation_journal").WillReturnError(errors.New("connection refused"))

	_, err := repo.Append(context.Background(), domain.JournalEntry{SessionID: "s"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestJournal_ListByApartment(t *testing.T) {
	repo, mock := newJournal(t)
	id := uuid.New()
	at := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows(journalColumns).
		AddRow(id.String(), "sess-1", int64(12), int64(1001), true, int64(77), "muddatli", "50000000.00", "5833333.33", "committed", "", at).
		AddRow(uuid.New().String(), "sess-1", int64(12), nil, false, nil, "muddatli", "50000000.00", "0.00", "amount_overflow", "too large", at.Add(-time.Minute))

	mock.ExpectQuery(regexp.QuoteMeta("FROM reservation_journal WHERE apartment_id = $1")).
		WithArgs(int64(12), 50).
		WillReturnRows(rows)

	entries, err := repo.ListByApartment(context.Background(), 12, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, id, entries[0].ID)
	require.NotNil(t, entries[0].ClientID)
	assert.Equal(t, int64(1001), *entries[0].ClientID)
	assert.Equal(t, int64(77), *entries[0].PaymentID)
	assert.Equal(t, domain.PaymentInstallment, entries[0].PaymentType)
	assert.True(t, entries[0].MonthlyPayment.Equal(decimal.RequireFromString("5833333.33")))
	assert.Equal(t, domain.OutcomeCommitted, entries[0].Outcome)

	assert.Nil(t, entries[1].ClientID)
	assert.Nil(t, entries[1].PaymentID)
	assert.Equal(t, domain.OutcomeAmountOverflow, entries[1].Outcome)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJournal_EnsureSchema(t *testing.T) {
	repo, mock := newJournal(t)
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS reservation_journal")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
