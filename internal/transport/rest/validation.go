package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"ahlan-reserve/internal/domain"
	"ahlan-reserve/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

type OpenReservationRequest struct {
	ApartmentID int64 `json:"apartment_id" validate:"required,gt=0"`
}

type GuarantorRequest struct {
	Name    string `json:"name" validate:"required,max=255"`
	Phone   string `json:"phone" validate:"omitempty,max=32"`
	Address string `json:"address" validate:"omitempty,max=500"`
}

type NewClientRequest struct {
	FullName string  `json:"full_name" validate:"required,max=255"`
	Phone    string  `json:"phone" validate:"required,max=32"`
	Email    *string `json:"email" validate:"omitempty,email"`
	Passport string  `json:"passport" validate:"required,max=32"`
	Address  string  `json:"address" validate:"omitempty,max=500"`
}

// FormRequest is the reservation form. Exactly one of client_id and new_client
// selects the buyer; leaving both out is reported by the reservation itself.
type FormRequest struct {
	ClientID       int64             `json:"client_id" validate:"omitempty,gt=0,excluded_with=NewClient"`
	NewClient      *NewClientRequest `json:"new_client" validate:"omitempty"`
	Guarantor      *GuarantorRequest `json:"guarantor" validate:"omitempty"`
	PaymentType    string            `json:"payment_type" validate:"required,oneof=naqd muddatli ipoteka cash installment mortgage"`
	InitialPayment decimal.Decimal   `json:"initial_payment"`
	TermMonths     int               `json:"term_months" validate:"gte=0,lte=600"`
	InterestRate   *decimal.Decimal  `json:"interest_rate"`
	Notes          string            `json:"notes" validate:"max=1000"`
}

func (r FormRequest) ToForm() (service.Form, error) {
	pt, err := domain.ParsePaymentType(r.PaymentType)
	if err != nil {
		return service.Form{}, &ValidationError{Field: "payment_type", Message: err.Error()}
	}

	f := service.Form{
		PaymentType:    pt,
		InitialPayment: r.InitialPayment,
		TermMonths:     r.TermMonths,
		InterestRate:   r.InterestRate,
		Notes:          strings.TrimSpace(r.Notes),
	}
	switch {
	case r.NewClient != nil:
		f.Client = service.SelectNew(domain.NewClient{
			FullName: strings.TrimSpace(r.NewClient.FullName),
			Phone:    strings.TrimSpace(r.NewClient.Phone),
			Email:    r.NewClient.Email,
			Passport: strings.ToUpper(strings.TrimSpace(r.NewClient.Passport)),
			Address:  strings.TrimSpace(r.NewClient.Address),
		})
	case r.ClientID != 0:
		f.Client = service.SelectExisting(r.ClientID)
	}
	if r.Guarantor != nil {
		f.Guarantor = &domain.Guarantor{
			Name:    strings.TrimSpace(r.Guarantor.Name),
			Phone:   strings.TrimSpace(r.Guarantor.Phone),
			Address: strings.TrimSpace(r.Guarantor.Address),
		}
	}
	return f, nil
}

// decodeAndValidate reads a JSON body into dst and runs its validate tags.
// Malformed JSON and failed rules both come back as *ValidationError.
func decodeAndValidate(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return &ValidationError{Message: "request body is required"}
		}
		return &ValidationError{Message: "invalid JSON: " + err.Error()}
	}
	return validationError(validate.Struct(dst))
}

func validationError(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &ValidationError{Message: err.Error()}
	}
	fe := verrs[0]
	field := strings.TrimPrefix(fe.Namespace(), topLevel(fe.Namespace()))
	return &ValidationError{Field: field, Message: ruleMessage(field, fe)}
}

// topLevel returns the struct name prefix of a validator namespace, e.g. "FormRequest.".
func topLevel(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[:i+1]
	}
	return ""
}

func ruleMessage(field string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gte", "lte", "max":
		return fmt.Sprintf("%s is out of range (%s %s)", field, fe.Tag(), fe.Param())
	case "email":
		return fmt.Sprintf("%s must be a valid email", field)
	case "excluded_with":
		return "client_id and new_client cannot be used together"
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
