package contract

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"
)

const currency = "so'm"

var monthNames = [...]string{
	"yanvar", "fevral", "mart", "aprel", "may", "iyun",
	"iyul", "avgust", "sentabr", "oktabr", "noyabr", "dekabr",
}

// FormatAmount renders money the way contracts print it: thousands grouped
// with spaces, a comma before kopecks, kopecks omitted when zero.
// 150000000 -> "150 000 000 so'm", 5833333.33 -> "5 833 333,33 so'm".
func FormatAmount(d decimal.Decimal) string {
	d = d.Round(2)
	s := d.Abs().StringFixed(2)
	if strings.HasSuffix(s, ".00") {
		s = strings.TrimSuffix(s, ".00")
	}
	return formatDigits(d.IsNegative(), s) + " " + currency
}

// FormatNumber groups the integer part of d and keeps its significant
// fraction digits after a comma.
func FormatNumber(d decimal.Decimal) string {
	return formatDigits(d.IsNegative(), d.Abs().String())
}

func formatDigits(negative bool, s string) string {
	intPart, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	if negative {
		b.WriteByte('-')
	}
	b.WriteString(groupThousands(intPart))
	if frac != "" {
		b.WriteByte(',')
		b.WriteString(frac)
	}
	return b.String()
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

func formatRate(rate decimal.Decimal) string {
	return FormatNumber(rate) + "%"
}

// FormatDate prints t as "2026-yil 15-oktabr".
func FormatDate(t time.Time) string {
	return fmt.Sprintf("%d-yil %d-%s", t.Year(), t.Day(), monthNames[t.Month()-1])
}

// clean normalizes user-entered text before it is interpolated so visually
// identical names always produce identical bytes.
func clean(s string) string {
	s = norm.NFC.String(strings.TrimSpace(s))
	return strings.Join(strings.Fields(s), " ")
}

func orDash(s string) string {
	if s = clean(s); s == "" {
		return "-"
	}
	return s
}
