// Package money renders minor-unit amounts for display.
package money

import (
	"fmt"
	"math"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Languages whose number format puts the currency sign after the amount,
// separated by a no-break space ("12,50 €").
var symbolAfter = map[string]bool{
	"bg": true, "cs": true, "da": true, "de": true, "el": true, "es": true,
	"et": true, "fi": true, "fr": true, "hr": true, "hu": true, "is": true,
	"it": true, "lt": true, "lv": true, "nb": true, "nn": true, "no": true,
	"pl": true, "ro": true, "ru": true, "sk": true, "sl": true, "sr": true,
	"sv": true, "uk": true, "vi": true,
}

// Regions that use the prefix form even though their language does not.
var symbolBeforeRegion = map[string]bool{
	"CH": true,
}

// Format renders amount, given in minor units of currencyCode, with the
// currency symbol and the digit grouping of locale. Unknown codes fall back
// to USD and en-US.
func Format(amount int, currencyCode, locale string) string {
	unit, err := currency.ParseISO(currencyCode)
	if err != nil {
		unit = currency.USD
	}
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.AmericanEnglish
	}

	scale, _ := currency.Standard.Rounding(unit)
	value := float64(amount) / math.Pow10(scale)

	p := message.NewPrinter(tag)
	symbol := p.Sprint(currency.Symbol(unit))
	number := p.Sprintf(fmt.Sprintf("%%.%df", scale), value)
	if suffixed(tag) {
		return number + "\u00a0" + symbol
	}
	return symbol + number
}

func suffixed(tag language.Tag) bool {
	base, _ := tag.Base()
	region, _ := tag.Region()
	if symbolBeforeRegion[region.String()] {
		return false
	}
	return symbolAfter[base.String()]
}
