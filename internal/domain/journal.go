package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type SubmissionOutcome string

const (
	OutcomeCommitted            SubmissionOutcome = "committed"
	OutcomeInvalid              SubmissionOutcome = "invalid"
	OutcomeAmountOverflow       SubmissionOutcome = "amount_overflow"
	OutcomeClientCreationFailed SubmissionOutcome = "client_creation_failed"
	OutcomePaymentFailed        SubmissionOutcome = "payment_failed"
)

// JournalEntry records one submission attempt. ClientID and PaymentID stay nil when the attempt
// failed before those records existed.
type JournalEntry struct {
	ID             uuid.UUID
	SessionID      string
	ApartmentID    int64
	ClientID       *int64
	CreatedClient  bool
	PaymentID      *int64
	PaymentType    PaymentType
	TotalAmount    decimal.Decimal
	MonthlyPayment decimal.Decimal
	Outcome        SubmissionOutcome
	Error          string
	CreatedAt      time.Time
}
