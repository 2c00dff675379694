package billing

import (
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// FormatInvoiceNumber zero-pads n to five digits and wraps it with prefix and
// suffix. Numbers wider than five digits are printed in full.
func FormatInvoiceNumber(n int64, prefix, suffix string) string {
	return fmt.Sprintf("%s%05d%s", prefix, n, suffix)
}

var moneyPrinter = message.NewPrinter(language.MustParse("en-CA"))

// FormatMoney renders an amount for documents, e.g. "$1,036.00" or "-$5.25".
func FormatMoney(amount decimal.Decimal) string {
	rounded := RoundMoney(amount)
	sign := ""
	if rounded.IsNegative() {
		sign = "-"
		rounded = rounded.Neg()
	}
	units := rounded.IntPart()
	cents := rounded.Sub(decimal.NewFromInt(units)).Shift(MoneyPlaces).IntPart()
	return sign + "$" + moneyPrinter.Sprintf("%d", units) + fmt.Sprintf(".%02d", cents)
}
