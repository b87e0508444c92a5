package installment

import (
	"testing"
	"time"

	"ahlan-reserve/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedule_LastRowTakesRemainder(t *testing.T) {
	terms, err := NewCalculator(decimal.Zero).Plan(d("50000000"), PlanInput{
		Type:           domain.PaymentInstallment,
		InitialPayment: d("15000000"),
		TermMonths:     6,
	})
	require.NoError(t, err)

	start := time.Date(2026, time.March, 10, 15, 4, 5, 0, time.UTC)
	rows := Schedule(terms, start, 5)
	require.Len(t, rows, 6)

	sum := decimal.Zero
	for i, row := range rows {
		assert.Equal(t, i+1, row.Number)
		sum = sum.Add(row.Amount)
	}
	assertDecimal(t, "35000000", sum)

	for _, row := range rows[:5] {
		assertDecimal(t, "5833333.33", row.Amount)
	}
	assertDecimal(t, "5833333.35", rows[5].Amount)
	assert.True(t, rows[5].Remaining.IsZero())

	assert.Equal(t, time.Date(2026, time.April, 5, 0, 0, 0, 0, time.UTC), rows[0].DueDate)
	assert.Equal(t, time.Date(2026, time.September, 5, 0, 0, 0, 0, time.UTC), rows[5].DueDate)
}

func TestSchedule_DueDayClampedToMonthEnd(t *testing.T) {
	terms := Terms{
		Type:           domain.PaymentInstallment,
		TotalAmount:    d("3000"),
		InitialPayment: decimal.Zero,
		InterestRate:   decimal.Zero,
		DurationMonths: 3,
		MonthlyPayment: d("1000"),
	}

	rows := Schedule(terms, time.Date(2026, time.January, 31, 0, 0, 0, 0, time.UTC), 31)
	require.Len(t, rows, 3)
	assert.Equal(t, time.Date(2026, time.February, 28, 0, 0, 0, 0, time.UTC), rows[0].DueDate)
	assert.Equal(t, time.Date(2026, time.March, 31, 0, 0, 0, 0, time.UTC), rows[1].DueDate)
	assert.Equal(t, time.Date(2026, time.April, 30, 0, 0, 0, 0, time.UTC), rows[2].DueDate)
}

func TestSchedule_CrossesYearBoundary(t *testing.T) {
	terms := Terms{
		Type:           domain.PaymentMortgage,
		TotalAmount:    d("1200"),
		InterestRate:   decimal.Zero,
		DurationMonths: 2,
		MonthlyPayment: d("600"),
	}

	rows := Schedule(terms, time.Date(2026, time.November, 20, 0, 0, 0, 0, time.UTC), 1)
	require.Len(t, rows, 2)
	assert.Equal(t, time.Date(2026, time.December, 1, 0, 0, 0, 0, time.UTC), rows[0].DueDate)
	assert.Equal(t, time.Date(2027, time.January, 1, 0, 0, 0, 0, time.UTC), rows[1].DueDate)
}

func TestSchedule_Cash(t *testing.T) {
	terms, err := NewCalculator(decimal.Zero).Plan(d("42000000"), PlanInput{Type: domain.PaymentCash})
	require.NoError(t, err)

	start := time.Date(2026, time.May, 2, 9, 0, 0, 0, time.UTC)
	rows := Schedule(terms, start, 10)
	require.Len(t, rows, 1)
	assertDecimal(t, "42000000", rows[0].Amount)
	assert.Equal(t, time.Date(2026, time.May, 2, 0, 0, 0, 0, time.UTC), rows[0].DueDate)
}

func TestSchedule_WithInterestSumsToFinanced(t *testing.T) {
	terms, err := NewCalculator(d("10")).Plan(d("100000000"), PlanInput{
		Type:           domain.PaymentMortgage,
		InitialPayment: d("30000000"),
		TermMonths:     12,
	})
	require.NoError(t, err)

	sum := decimal.Zero
	for _, row := range Schedule(terms, time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC), 1) {
		sum = sum.Add(row.Amount)
	}
	assertDecimal(t, "77000000", sum)
}
