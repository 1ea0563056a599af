package checkout

import (
	"strings"

	"github.com/shopspring/decimal"
)

var currencySymbols = map[string]string{
	"INR": "₹",
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
}

// FormatAmount renders an amount given in minor units (paise, cents).
func FormatAmount(minor int64, currency string) string {
	value := decimal.New(minor, -2).StringFixed(2)
	code := strings.ToUpper(currency)
	if sym, ok := currencySymbols[code]; ok {
		return sym + value
	}
	if code == "" {
		return value
	}
	return code + " " + value
}

// ToMinorUnits converts a listed major-unit price to minor units.
func ToMinorUnits(major int64) int64 {
	return decimal.NewFromInt(major).Mul(decimal.NewFromInt(100)).IntPart()
}
