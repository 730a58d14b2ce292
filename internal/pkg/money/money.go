// Package money formats euro-cent amounts for Dutch readers.
package money

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.Dutch)

// Format renders cents as "€ 1.495,00".
func Format(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return sign + "€ " + printer.Sprintf("%.2f", float64(cents)/100)
}

// Euros renders whole euros without decimals, e.g. "€ 1.495".
func Euros(cents int64) string {
	return "€ " + printer.Sprintf("%d", cents/100)
}
