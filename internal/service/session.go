package service

import (
	"encoding/json"
	"errors"
	"time"

	"ahlan-reserve/internal/contract"
	"ahlan-reserve/internal/domain"
	"ahlan-reserve/internal/installment"

	"github.com/shopspring/decimal"
)

type State string

const (
	StateLoading       State = "loading"
	StateReady         State = "ready"
	StateSubmitting    State = "submitting"
	StateContractReady State = "contract_ready"
	StateLoadFailed    State = "load_failed"
	StateCancelled     State = "cancelled"
)

// ClientSelection is either an existing client id or the fields of a client to create.
// The zero value selects nothing.
type ClientSelection struct {
	existingID int64
	newClient  *domain.NewClient
}

func SelectExisting(id int64) ClientSelection {
	return ClientSelection{existingID: id}
}

func SelectNew(c domain.NewClient) ClientSelection {
	return ClientSelection{newClient: &c}
}

func (s ClientSelection) Existing() (int64, bool) {
	return s.existingID, s.newClient == nil && s.existingID != 0
}

func (s ClientSelection) New() (domain.NewClient, bool) {
	if s.newClient == nil {
		return domain.NewClient{}, false
	}
	return *s.newClient, true
}

func (s ClientSelection) IsZero() bool {
	return s.existingID == 0 && s.newClient == nil
}

type clientSelectionJSON struct {
	ExistingID int64             `json:"existing_id,omitempty"`
	New        *domain.NewClient `json:"new,omitempty"`
}

func (s ClientSelection) MarshalJSON() ([]byte, error) {
	return json.Marshal(clientSelectionJSON{ExistingID: s.existingID, New: s.newClient})
}

func (s *ClientSelection) UnmarshalJSON(data []byte) error {
	var raw clientSelectionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.ExistingID != 0 && raw.New != nil {
		return errors.New("client selection must be either existing_id or new")
	}
	*s = ClientSelection{existingID: raw.ExistingID, newClient: raw.New}
	return nil
}

// Form is what staff fill in on the reservation page.
type Form struct {
	Client         ClientSelection    `json:"client"`
	Guarantor      *domain.Guarantor  `json:"guarantor,omitempty"`
	PaymentType    domain.PaymentType `json:"payment_type"`
	InitialPayment decimal.Decimal    `json:"initial_payment"`
	TermMonths     int                `json:"term_months"`
	InterestRate   *decimal.Decimal   `json:"interest_rate,omitempty"`
	Notes          string             `json:"notes,omitempty"`
}

func (f Form) planInput() installment.PlanInput {
	return installment.PlanInput{
		Type:           f.PaymentType,
		InitialPayment: f.InitialPayment,
		TermMonths:     f.TermMonths,
		InterestRate:   f.InterestRate,
	}
}

// Contract is the outcome of a committed submission.
type Contract struct {
	PaymentID int64             `json:"payment_id"`
	Client    domain.Client     `json:"client"`
	Terms     installment.Terms `json:"terms"`
	DueDay    int               `json:"due_day"`
	IssuedAt  time.Time         `json:"issued_at"`
	Document  contract.Document `json:"document"`
	// Artifacts maps a rendition kind to its download URL.
	Artifacts map[string]string `json:"artifacts,omitempty"`
}

type Session struct {
	ID          string           `json:"id"`
	ApartmentID int64            `json:"apartment_id"`
	State       State            `json:"state"`
	Apartment   domain.Apartment `json:"apartment"`
	Clients     []domain.Client  `json:"clients"`
	// CreatedClientID is the client this session created, kept so a retry never creates it twice.
	CreatedClientID int64 `json:"created_client_id,omitempty"`
	// Form holds the last submitted form so a failed attempt can be corrected.
	Form      *Form     `json:"form,omitempty"`
	Contract  *Contract `json:"contract,omitempty"`
	LastError string    `json:"last_error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	// SubmitStartedAt is when the last submission entered Submitting.
	SubmitStartedAt time.Time `json:"submit_started_at"`
}

func (s *Session) findClient(id int64) (domain.Client, bool) {
	for _, c := range s.Clients {
		if c.ID == id {
			return c, true
		}
	}
	return domain.Client{}, false
}
