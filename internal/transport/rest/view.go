package rest

import (
	"time"

	"ahlan-reserve/internal/contract"
	"ahlan-reserve/internal/domain"
	"ahlan-reserve/internal/installment"
	"ahlan-reserve/internal/service"

	"github.com/shopspring/decimal"
)

type ApartmentView struct {
	ID         int64           `json:"id"`
	ObjectID   int64           `json:"object_id"`
	ObjectName string          `json:"object_name"`
	RoomNumber string          `json:"room_number"`
	Floor      int             `json:"floor"`
	Rooms      int             `json:"rooms"`
	Area       decimal.Decimal `json:"area"`
	Price      decimal.Decimal `json:"price"`
	Status     string          `json:"status"`
}

type GuarantorView struct {
	Name    string `json:"name"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
}

type ClientView struct {
	ID        int64          `json:"id"`
	FullName  string         `json:"full_name"`
	Phone     string         `json:"phone"`
	Email     *string        `json:"email,omitempty"`
	Passport  string         `json:"passport,omitempty"`
	Address   string         `json:"address,omitempty"`
	Guarantor *GuarantorView `json:"guarantor,omitempty"`
}

type TermsView struct {
	PaymentType    string          `json:"payment_type"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	InitialPayment decimal.Decimal `json:"initial_payment"`
	InterestRate   decimal.Decimal `json:"interest_rate"`
	DurationMonths int             `json:"duration_months"`
	MonthlyPayment decimal.Decimal `json:"monthly_payment"`
	Financed       decimal.Decimal `json:"financed_amount"`
}

type InstallmentView struct {
	Number    int             `json:"number"`
	DueDate   string          `json:"due_date"`
	Amount    decimal.Decimal `json:"amount"`
	Remaining decimal.Decimal `json:"remaining"`
}

type QuoteView struct {
	Terms    TermsView         `json:"terms"`
	Schedule []InstallmentView `json:"schedule"`
}

type ContractView struct {
	PaymentID int64             `json:"payment_id"`
	FileName  string            `json:"file_name"`
	Client    ClientView        `json:"client"`
	Terms     TermsView         `json:"terms"`
	IssuedAt  time.Time         `json:"issued_at"`
	Text      string            `json:"text,omitempty"`
	Blocks    []contract.Block  `json:"blocks,omitempty"`
	Artifacts map[string]string `json:"artifacts,omitempty"`
}

type SessionView struct {
	ID          string        `json:"id"`
	ApartmentID int64         `json:"apartment_id"`
	State       string        `json:"state"`
	Apartment   ApartmentView `json:"apartment"`
	Clients     []ClientView  `json:"clients"`
	Form        *service.Form `json:"form,omitempty"`
	Contract    *ContractView `json:"contract,omitempty"`
	LastError   string        `json:"last_error,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

type JournalEntryView struct {
	ID             string          `json:"id"`
	SessionID      string          `json:"session_id"`
	ClientID       *int64          `json:"client_id"`
	CreatedClient  bool            `json:"created_client"`
	PaymentID      *int64          `json:"payment_id"`
	PaymentType    string          `json:"payment_type"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	MonthlyPayment decimal.Decimal `json:"monthly_payment"`
	Outcome        string          `json:"outcome"`
	Error          string          `json:"error,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

func apartmentView(a domain.Apartment) ApartmentView {
	return ApartmentView{
		ID:         a.ID,
		ObjectID:   a.ObjectID,
		ObjectName: a.ObjectName,
		RoomNumber: a.RoomNumber,
		Floor:      a.Floor,
		Rooms:      a.Rooms,
		Area:       a.Area,
		Price:      a.Price,
		Status:     string(a.Status),
	}
}

func clientView(c domain.Client) ClientView {
	v := ClientView{
		ID:       c.ID,
		FullName: c.FullName,
		Phone:    c.Phone,
		Email:    c.Email,
		Passport: c.Passport,
		Address:  c.Address,
	}
	if c.Guarantor != nil {
		v.Guarantor = &GuarantorView{Name: c.Guarantor.Name, Phone: c.Guarantor.Phone, Address: c.Guarantor.Address}
	}
	return v
}

func termsView(t installment.Terms) TermsView {
	return TermsView{
		PaymentType:    string(t.Type),
		TotalAmount:    t.TotalAmount,
		InitialPayment: t.InitialPayment,
		InterestRate:   t.InterestRate,
		DurationMonths: t.DurationMonths,
		MonthlyPayment: t.MonthlyPayment,
		Financed:       t.Financed(),
	}
}

func quoteView(q service.Quote) QuoteView {
	rows := make([]InstallmentView, len(q.Schedule))
	for i, r := range q.Schedule {
		rows[i] = InstallmentView{
			Number:    r.Number,
			DueDate:   r.DueDate.Format(time.DateOnly),
			Amount:    r.Amount,
			Remaining: r.Remaining,
		}
	}
	return QuoteView{Terms: termsView(q.Terms), Schedule: rows}
}

// contractView includes the document only when withText is set; session views
// stay small.
func contractView(c *service.Contract, withText bool) *ContractView {
	if c == nil {
		return nil
	}
	v := &ContractView{
		PaymentID: c.PaymentID,
		FileName:  c.Document.FileName(),
		Client:    clientView(c.Client),
		Terms:     termsView(c.Terms),
		IssuedAt:  c.IssuedAt,
		Artifacts: c.Artifacts,
	}
	if withText {
		v.Text = c.Document.Text()
		v.Blocks = c.Document.Blocks
	}
	return v
}

func sessionView(s *service.Session) SessionView {
	clients := make([]ClientView, len(s.Clients))
	for i, c := range s.Clients {
		clients[i] = clientView(c)
	}
	return SessionView{
		ID:          s.ID,
		ApartmentID: s.ApartmentID,
		State:       string(s.State),
		Apartment:   apartmentView(s.Apartment),
		Clients:     clients,
		Form:        s.Form,
		Contract:    contractView(s.Contract, false),
		LastError:   s.LastError,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}

func journalView(entries []domain.JournalEntry) []JournalEntryView {
	out := make([]JournalEntryView, len(entries))
	for i, e := range entries {
		out[i] = JournalEntryView{
			ID:             e.ID.String(),
			SessionID:      e.SessionID,
			ClientID:       e.ClientID,
			CreatedClient:  e.CreatedClient,
			PaymentID:      e.PaymentID,
			PaymentType:    string(e.PaymentType),
			TotalAmount:    e.TotalAmount,
			MonthlyPayment: e.MonthlyPayment,
			Outcome:        string(e.Outcome),
			Error:          e.Error,
			CreatedAt:      e.CreatedAt,
		}
	}
	return out
}
