package backend

import (
	"encoding/json"
	"fmt"
	"strings"

	"ahlan-reserve/internal/domain"

	"github.com/shopspring/decimal"
)

type apartmentDTO struct {
	ID     int64 `json:"id"`
	Object struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	} `json:"object"`
	RoomNumber string          `json:"roomNumber"`
	Floor      int             `json:"floor"`
	Rooms      int             `json:"rooms"`
	Area       decimal.Decimal `json:"area"`
	Price      decimal.Decimal `json:"price"`
	Status     string          `json:"status"`
}

func (a apartmentDTO) toDomain() domain.Apartment {
	return domain.Apartment{
		ID:         a.ID,
		ObjectID:   a.Object.ID,
		ObjectName: a.Object.Name,
		RoomNumber: a.RoomNumber,
		Floor:      a.Floor,
		Rooms:      a.Rooms,
		Area:       a.Area,
		Price:      a.Price,
		Status:     domain.ApartmentStatus(a.Status),
	}
}

type userDTO struct {
	ID               int64   `json:"id,omitempty"`
	FIO              string  `json:"fio"`
	PhoneNumber      string  `json:"phone_number"`
	Email            *string `json:"email,omitempty"`
	Passport         string  `json:"passport,omitempty"`
	Address          string  `json:"address,omitempty"`
	UserType         string  `json:"user_type,omitempty"`
	Password         string  `json:"password,omitempty"`
	KafilFIO         *string `json:"kafil_fio"`
	KafilPhoneNumber *string `json:"kafil_phone_number"`
	KafilAddress     *string `json:"kafil_address"`
}

func (u userDTO) toDomain() domain.Client {
	c := domain.Client{
		ID:       u.ID,
		FullName: u.FIO,
		Phone:    u.PhoneNumber,
		Email:    u.Email,
		Passport: u.Passport,
		Address:  u.Address,
	}
	if u.KafilFIO != nil && strings.TrimSpace(*u.KafilFIO) != "" {
		c.Guarantor = &domain.Guarantor{
			Name:    *u.KafilFIO,
			Phone:   deref(u.KafilPhoneNumber),
			Address: deref(u.KafilAddress),
		}
	}
	return c
}

func newUserDTO(c domain.NewClient) userDTO {
	u := userDTO{
		FIO:         c.FullName,
		PhoneNumber: c.Phone,
		Email:       c.Email,
		Passport:    c.Passport,
		Address:     c.Address,
		UserType:    domain.ClientUserType,
		Password:    c.Password(),
	}
	if g := c.Guarantor; g != nil {
		u.KafilFIO = optional(g.Name)
		u.KafilPhoneNumber = optional(g.Phone)
		u.KafilAddress = optional(g.Address)
	}
	return u
}

// usersPage is the paginated list envelope. Some deployments return a bare
// array instead; decodeUsers handles both.
type usersPage struct {
	Next    *string   `json:"next"`
	Results []userDTO `json:"results"`
}

func decodeUsers(body []byte) ([]userDTO, string, error) {
	trimmed := strings.TrimSpace(string(body))
	if strings.HasPrefix(trimmed, "[") {
		var list []userDTO
		if err := json.Unmarshal(body, &list); err != nil {
			return nil, "", fmt.Errorf("decode users: %w", err)
		}
		return list, "", nil
	}

	var page usersPage
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, "", fmt.Errorf("decode users: %w", err)
	}
	return page.Results, deref(page.Next), nil
}

type paymentDTO struct {
	ID             int64           `json:"id,omitempty"`
	User           int64           `json:"user"`
	Apartment      int64           `json:"apartment"`
	PaymentType    string          `json:"payment_type"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	InitialPayment decimal.Decimal `json:"initial_payment"`
	InterestRate   decimal.Decimal `json:"interest_rate"`
	DurationMonths int             `json:"duration_months"`
	MonthlyPayment decimal.Decimal `json:"monthly_payment"`
	DueDate        int             `json:"due_date"`
	PaidAmount     decimal.Decimal `json:"paid_amount"`
	Status         string          `json:"status"`
	AdditionalInfo string          `json:"additional_info"`
}

func newPaymentDTO(p domain.PaymentPlan) paymentDTO {
	return paymentDTO{
		User:           p.ClientID,
		Apartment:      p.ApartmentID,
		PaymentType:    string(p.Type),
		TotalAmount:    p.TotalAmount,
		InitialPayment: p.InitialPayment,
		InterestRate:   p.InterestRate,
		DurationMonths: p.DurationMonths,
		MonthlyPayment: p.MonthlyPayment,
		DueDate:        p.DueDay,
		PaidAmount:     p.PaidAmount,
		Status:         string(p.Status),
		AdditionalInfo: p.Notes,
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func optional(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}
