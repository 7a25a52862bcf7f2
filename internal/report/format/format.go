// Package format holds the pure display formatters used when a report is
// turned into a document. Nothing here touches the database or filesystem.
package format

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Placeholder = "Não informado"
	EmptyList   = "Nenhum item informado"
	PhotoMarker = "FOTO"
)

var ErrInvalidDecimal = errors.New("invalid_decimal")

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02/01/2006",
}

// Text returns the trimmed value or the placeholder.
func Text(value string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return Placeholder
}

// Date prints a timestamp as dd/mm/yyyy. A timestamp sitting exactly on UTC
// midnight is a calendar date and prints its UTC day; anything else prints
// the day it falls on in loc.
func Date(t *time.Time, loc *time.Location) string {
	if t == nil || t.IsZero() {
		return Placeholder
	}
	utc := t.UTC()
	if utc.Hour() == 0 && utc.Minute() == 0 && utc.Second() == 0 && utc.Nanosecond() == 0 {
		return utc.Format("02/01/2006")
	}
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format("02/01/2006")
}

// DateString parses raw with the accepted layouts and formats it like Date.
func DateString(raw string, loc *time.Location) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Placeholder
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return Date(&t, loc)
		}
	}
	return Placeholder
}

// Legend normalizes a photo or item code. Codes starting with FOTO are only
// upper-cased; other codes of four or more characters get a "/" before the
// last character, so 205A becomes 205/A.
func Legend(code string) string {
	c := strings.ToUpper(strings.TrimSpace(code))
	if strings.HasPrefix(c, PhotoMarker) {
		return c
	}
	runes := []rune(c)
	if len(runes) < 4 {
		return c
	}
	if runes[len(runes)-2] == '/' {
		return c
	}
	return string(runes[:len(runes)-1]) + "/" + string(runes[len(runes)-1])
}

// ParseDecimal accepts both 1.234,56 and 1,234.56 style input. When both
// separators are present the rightmost one is the decimal mark; a single
// kind of separator appearing more than once is a thousands separator.
func ParseDecimal(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "R$")
	s = strings.Join(strings.Fields(s), "")
	if s == "" {
		return decimal.Zero, ErrInvalidDecimal
	}

	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")
	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		if strings.Count(s, ",") > 1 {
			s = strings.ReplaceAll(s, ",", "")
		} else {
			s = strings.Replace(s, ",", ".", 1)
		}
	case lastDot >= 0:
		if strings.Count(s, ".") > 1 {
			s = strings.ReplaceAll(s, ".", "")
		}
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidDecimal
	}
	return d, nil
}

// Currency renders an amount as Brazilian reais, e.g. R$ 1.234,56.
func Currency(amount decimal.Decimal) string {
	sign := ""
	if amount.IsNegative() {
		sign = "-"
		amount = amount.Neg()
	}
	fixed := amount.StringFixed(2)
	intPart, frac, _ := strings.Cut(fixed, ".")
	return sign + "R$ " + groupThousands(intPart) + "," + frac
}

// Quantity prints a quantity without trailing zeros, using a decimal comma.
func Quantity(q decimal.Decimal) string {
	return strings.Replace(q.String(), ".", ",", 1)
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
			b.WriteByte('.')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// Lines splits newline-delimited text into its non-empty trimmed lines.
func Lines(text string) []string {
	raw := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(raw))
	for _, line := range raw {
		line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "-•*"))
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}
