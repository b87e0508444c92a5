package installment

import (
	"time"

	"github.com/shopspring/decimal"
)

type Installment struct {
	Number    int
	DueDate   time.Time
	Amount    decimal.Decimal
	Remaining decimal.Decimal
}

// Schedule lays out the monthly installments of t starting the month after
// start, each due on dueDay (clamped to the month's last day). The final row
// takes the rounding remainder so the rows sum to t.Financed() exactly.
// Cash plans yield a single row for the full amount on start.
func Schedule(t Terms, start time.Time, dueDay int) []Installment {
	start = dateOnly(start)

	if !t.Type.Financed() || t.DurationMonths <= 0 {
		return []Installment{{
			Number:    1,
			DueDate:   start,
			Amount:    t.TotalAmount,
			Remaining: decimal.Zero,
		}}
	}

	total := t.Financed()
	remaining := total
	rows := make([]Installment, 0, t.DurationMonths)

	for i := 1; i <= t.DurationMonths; i++ {
		amount := t.MonthlyPayment
		if i == t.DurationMonths || amount.GreaterThan(remaining) {
			amount = remaining
		}
		remaining = remaining.Sub(amount)

		rows = append(rows, Installment{
			Number:    i,
			DueDate:   dueDate(start, i, dueDay),
			Amount:    amount,
			Remaining: remaining,
		})
	}
	return rows
}

func dueDate(start time.Time, monthOffset, day int) time.Time {
	if day < 1 {
		day = 1
	}
	first := time.Date(start.Year(), start.Month()+time.Month(monthOffset), 1, 0, 0, 0, 0, start.Location())
	last := first.AddDate(0, 1, -1).Day()
	if day > last {
		day = last
	}
	return first.AddDate(0, 0, day-1)
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
