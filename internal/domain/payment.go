package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

type PaymentType string

const (
	PaymentCash        PaymentType = "naqd"
	PaymentInstallment PaymentType = "muddatli"
	PaymentMortgage    PaymentType = "ipoteka"
)

func ParsePaymentType(s string) (PaymentType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "naqd", "cash":
		return PaymentCash, nil
	case "muddatli", "installment":
		return PaymentInstallment, nil
	case "ipoteka", "mortgage":
		return PaymentMortgage, nil
	default:
		return "", fmt.Errorf("unknown payment type %q", s)
	}
}

// Financed reports whether the plan is paid off in monthly installments.
func (t PaymentType) Financed() bool {
	return t == PaymentInstallment || t == PaymentMortgage
}

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentOverdue PaymentStatus = "overdue"
)

type PaymentPlan struct {
	ID             int64
	ApartmentID    int64
	ClientID       int64
	Type           PaymentType
	TotalAmount    decimal.Decimal
	InitialPayment decimal.Decimal
	InterestRate   decimal.Decimal
	DurationMonths int
	MonthlyPayment decimal.Decimal
	DueDay         int
	PaidAmount     decimal.Decimal
	Status         PaymentStatus
	Notes          string
}
