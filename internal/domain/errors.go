package domain

import "errors"

var (
	ErrDataLoad          = errors.New("data load failed")
	ErrClientCreation    = errors.New("client creation failed")
	ErrAmountOverflow    = errors.New("monthly payment exceeds 12 digits")
	ErrPaymentSubmission = errors.New("payment submission failed")
	ErrContractRender    = errors.New("contract render failed")

	ErrInvalidTerm           = errors.New("term must be a positive number of months")
	ErrInvalidInitialPayment = errors.New("initial payment must be between 0 and the total price")
	ErrInvalidInterestRate   = errors.New("interest rate must not be negative")
	ErrInvalidPaymentType    = errors.New("unknown payment type")
	ErrClientRequired        = errors.New("no client selected")
	ErrApartmentUnavailable  = errors.New("apartment is not available for reservation")
	ErrUnknownClient         = errors.New("selected client is not in the loaded client list")
	ErrSessionNotFound       = errors.New("reservation session not found")
	ErrInvalidState          = errors.New("operation not allowed in the current reservation state")
	ErrSubmitInProgress      = errors.New("a submission is already in progress")
	ErrNoContract            = errors.New("no contract has been generated for this session")
)

// UserError pairs a sentinel kind with the message shown to staff.
type UserError struct {
	Kind    error
	Message string
	Err     error
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *UserError) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

func NewUserError(kind error, message string, err error) *UserError {
	return &UserError{Kind: kind, Message: message, Err: err}
}

// UserMessage returns the staff-facing message of err, or fallback when err carries none.
func UserMessage(err error, fallback string) string {
	var ue *UserError
	if errors.As(err, &ue) && ue.Message != "" {
		return ue.Message
	}
	return fallback
}
