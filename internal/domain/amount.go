package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	// MaxAmountInput is the longest raw amount accepted from a requester.
	MaxAmountInput = 20
	// MaxAmountDecimals is the most fractional digits an amount may carry.
	MaxAmountDecimals = 8
)

// MaxAmount is the exclusive upper bound on a single amount.
var MaxAmount = decimal.New(1, 13)

var amountReplacer = strings.NewReplacer("€", "", "$", "", ",", ".", " ", "")

// ParseAmount normalizes free-text money input ("€12,50", "$ 7") and returns
// it as entered. Exponent notation is refused. It fails unless the amount is
// worth at least one cent and stays below MaxAmount.
func ParseAmount(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, fmt.Errorf("amount is empty")
	}
	if len(s) > MaxAmountInput {
		return decimal.Zero, fmt.Errorf("amount is longer than %d characters", MaxAmountInput)
	}

	s = amountReplacer.Replace(s)
	if strings.ContainsAny(s, "eE") {
		return decimal.Zero, fmt.Errorf("amount %q is not a number", raw)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("amount %q is not a number", raw)
	}
	if d.Exponent() < -MaxAmountDecimals {
		return decimal.Zero, fmt.Errorf("amount has more than %d decimal places", MaxAmountDecimals)
	}
	if !d.Round(2).IsPositive() {
		return decimal.Zero, fmt.Errorf("amount must be greater than zero")
	}
	if d.GreaterThanOrEqual(MaxAmount) {
		return decimal.Zero, fmt.Errorf("amount must be less than %s", MaxAmount.String())
	}
	return d, nil
}
