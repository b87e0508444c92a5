// Package installment computes payment plan terms for apartment sales.
//
// Interest is flat: the rate is applied once to the whole remaining principal
// and the result is split evenly across the term. This matches the figures the
// sales office has always quoted and must not be replaced by a declining-balance
// schedule.
package installment

import (
	"fmt"
	"strings"

	"ahlan-reserve/internal/domain"

	"github.com/shopspring/decimal"
)

// MaxAmountDigits is the widest amount the backend payment fields accept,
// counted over integer and fractional digits of the two-decimal form.
const MaxAmountDigits = 12

var hundred = decimal.NewFromInt(100)

// MonthlyPayment returns round((total-initial) * (1 + rate/100) / term, 2).
func MonthlyPayment(total, initial, ratePercent decimal.Decimal, termMonths int) (decimal.Decimal, error) {
	if termMonths <= 0 {
		return decimal.Zero, domain.ErrInvalidTerm
	}
	if initial.IsNegative() || initial.GreaterThan(total) {
		return decimal.Zero, domain.ErrInvalidInitialPayment
	}
	if ratePercent.IsNegative() {
		return decimal.Zero, domain.ErrInvalidInterestRate
	}

	withInterest := WithInterest(total.Sub(initial), ratePercent)
	monthly := withInterest.Div(decimal.NewFromInt(int64(termMonths))).Round(2)

	if n := DigitCount(monthly); n > MaxAmountDigits {
		return decimal.Zero, fmt.Errorf("%w: %s has %d digits", domain.ErrAmountOverflow, monthly.StringFixed(2), n)
	}
	return monthly, nil
}

// WithInterest returns principal * (1 + rate/100).
func WithInterest(principal, ratePercent decimal.Decimal) decimal.Decimal {
	return principal.Mul(hundred.Add(ratePercent)).Div(hundred)
}

// DigitCount counts the digits of d formatted with two decimals, ignoring sign and separator.
func DigitCount(d decimal.Decimal) int {
	s := d.Abs().StringFixed(2)
	return len(strings.Replace(s, ".", "", 1))
}

type PlanInput struct {
	Type           domain.PaymentType
	InitialPayment decimal.Decimal
	TermMonths     int
	// InterestRate nil means "use the default for the payment type".
	InterestRate *decimal.Decimal
}

// Terms is a normalized plan ready to be submitted as a payment record.
type Terms struct {
	Type           domain.PaymentType
	TotalAmount    decimal.Decimal
	InitialPayment decimal.Decimal
	InterestRate   decimal.Decimal
	DurationMonths int
	MonthlyPayment decimal.Decimal
}

func (t Terms) Principal() decimal.Decimal {
	return t.TotalAmount.Sub(t.InitialPayment)
}

// Financed returns the amount repaid in monthly installments.
func (t Terms) Financed() decimal.Decimal {
	if !t.Type.Financed() {
		return decimal.Zero
	}
	return WithInterest(t.Principal(), t.InterestRate)
}

type Calculator struct {
	// MortgageRate applies to mortgage plans submitted without an explicit rate.
	MortgageRate decimal.Decimal
}

func NewCalculator(mortgageRate decimal.Decimal) Calculator {
	return Calculator{MortgageRate: mortgageRate}
}

// Plan normalizes in against the apartment price. Cash plans are paid in full
// up front and never go through the monthly computation.
func (c Calculator) Plan(total decimal.Decimal, in PlanInput) (Terms, error) {
	switch {
	case in.Type == domain.PaymentCash:
		return Terms{
			Type:           domain.PaymentCash,
			TotalAmount:    total,
			InitialPayment: total,
			InterestRate:   decimal.Zero,
			DurationMonths: 0,
			MonthlyPayment: decimal.Zero,
		}, nil
	case in.Type.Financed():
	default:
		return Terms{}, fmt.Errorf("unsupported payment type %q", in.Type)
	}

	rate := decimal.Zero
	if in.Type == domain.PaymentMortgage {
		rate = c.MortgageRate
	}
	if in.InterestRate != nil {
		rate = *in.InterestRate
	}

	monthly, err := MonthlyPayment(total, in.InitialPayment, rate, in.TermMonths)
	if err != nil {
		return Terms{}, err
	}

	return Terms{
		Type:           in.Type,
		TotalAmount:    total,
		InitialPayment: in.InitialPayment,
		InterestRate:   rate,
		DurationMonths: in.TermMonths,
		MonthlyPayment: monthly,
	}, nil
}
