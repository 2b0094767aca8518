package utils

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// ErrInvalidAmount is returned by ParseBRL for strings it cannot read back.
var ErrInvalidAmount = errors.New("invalid BRL amount")

var brl = message.NewPrinter(language.BrazilianPortuguese)

// brlRE accepts "1.234,56" (grouped) and "1234,56" (ungrouped).
var brlRE = regexp.MustCompile(`^(\d{1,3}(?:\.\d{3})*|\d+),(\d{2})$`)

// FormatBRL renders an amount in centavos as Brazilian Real, e.g.
// 2000000 -> "R$ 20.000,00". Stored prices stay integers; this is display only.
func FormatBRL(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return sign + "R$ " + brl.Sprintf("%d", cents/100) + "," + twoDigits(cents%100)
}

func twoDigits(n int64) string {
	if n < 10 {
		return "0" + strconv.FormatInt(n, 10)
	}
	return strconv.FormatInt(n, 10)
}

// ParseBRL is the inverse of FormatBRL for non-negative amounts. The "R$"
// prefix and surrounding spaces are optional.
func ParseBRL(s string) (int64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "R$")
	s = strings.TrimSpace(strings.ReplaceAll(s, "\u00a0", " "))

	m := brlRE.FindStringSubmatch(s)
	if m == nil {
		return 0, ErrInvalidAmount
	}
	reais, err := strconv.ParseInt(strings.ReplaceAll(m[1], ".", ""), 10, 64)
	if err != nil || reais > (1<<63-1)/100-1 {
		return 0, ErrInvalidAmount
	}
	cents, _ := strconv.ParseInt(m[2], 10, 64)
	return reais*100 + cents, nil
}
