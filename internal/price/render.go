package price

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Render builds the alert text for one symbol.
func Render(symbol string, currentPrice, percentile30 float64) string {
	symbol = strings.ToUpper(symbol)
	return fmt.Sprintf("%s is a %s today. The current price of %s is higher than %s of closing prices during the last 30 days.",
		symbol, Classify(percentile30), formatUSD(currentPrice), formatPercent(percentile30))
}

// formatUSD renders "$1,234.57".
func formatUSD(v float64) string {
	d := decimal.NewFromFloat(v).Round(2)
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Abs()
	}
	return sign + "$" + addCommas(d.StringFixed(2))
}

// formatPercent renders "45.3%".
func formatPercent(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(1) + "%"
}

func addCommas(s string) string {
	parts := strings.SplitN(s, ".", 2)
	intPart := parts[0]
	n := len(intPart)
	var result []byte
	for i, c := range intPart {
		if i > 0 && (n-i)%3 == 0 {
			result = append(result, ',')
		}
		result = append(result, byte(c))
	}
	if len(parts) == 2 {
		return string(result) + "." + parts[1]
	}
	return string(result)
}
