// Package export renders summaries and records for people: terminal tables
// and spreadsheet workbooks.
package export

import (
	"strings"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"fintrack/internal/core"
)

// Currency formats minor-unit amounts with a locale's separators and symbol.
type Currency struct {
	Code    string
	unit    currency.Unit
	tag     language.Tag
	printer *message.Printer
}

var homeLocale = map[string]language.Tag{
	"EUR": language.Italian,
	"USD": language.AmericanEnglish,
	"GBP": language.BritishEnglish,
	"CHF": language.German,
	"SEK": language.Swedish,
	"JPY": language.Japanese,
}

// symbol placement is not exposed by x/text, so prefix currencies are listed.
var prefixSymbol = map[string]bool{"USD": true, "GBP": true, "JPY": true}

// NewCurrency returns the formatter for an ISO 4217 code. Unknown codes
// format with the code itself as the symbol.
func NewCurrency(code string) Currency {
	code = strings.ToUpper(strings.TrimSpace(code))
	tag, ok := homeLocale[code]
	if !ok {
		tag = language.English
	}
	return NewCurrencyWithLocale(code, tag)
}

func NewCurrencyWithLocale(code string, tag language.Tag) Currency {
	code = strings.ToUpper(strings.TrimSpace(code))
	unit, err := currency.ParseISO(code)
	if err != nil {
		unit = currency.XXX
	}
	return Currency{
		Code:    code,
		unit:    unit,
		tag:     tag,
		printer: message.NewPrinter(tag),
	}
}

func (c Currency) symbol() string {
	if c.unit == currency.XXX {
		return c.Code
	}
	return c.printer.Sprint(currency.NarrowSymbol(c.unit))
}

// Number formats m with two fraction digits and no symbol.
func (c Currency) Number(m core.Money) string {
	cents := m.Cents
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	major := float64(cents) / 100
	return sign + c.printer.Sprint(number.Decimal(major, number.MinFractionDigits(2), number.MaxFractionDigits(2)))
}

// Format formats m with the currency symbol, e.g. "$1,234.50" or "1.234,50 €".
func (c Currency) Format(m core.Money) string {
	formatted := c.Number(m)
	sign := ""
	if strings.HasPrefix(formatted, "-") {
		sign, formatted = "-", formatted[1:]
	}
	if prefixSymbol[c.Code] {
		return sign + c.symbol() + formatted
	}
	return sign + formatted + " " + c.symbol()
}

// Percent formats a 0..100 share with one decimal.
func (c Currency) Percent(share float64) string {
	return c.printer.Sprint(number.Decimal(share, number.MinFractionDigits(1), number.MaxFractionDigits(1))) + "%"
}
