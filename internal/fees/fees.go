// Package fees computes the fee breakdown for an exchange. Fees are always
// charged on the amount the requester sends.
package fees

import (
	"github.com/dvloznov/exchange-desk/internal/domain"
	"github.com/shopspring/decimal"
)

const (
	NoteCryptoToCrypto = "Crypto to Crypto exchange"
	NoteCryptoToOther  = "Crypto to other method (0% fee)"
	NoteMinimumFee     = "Minimum fee of $3 applied"
)

var (
	hundred      = decimal.NewFromInt(100)
	cashAppFloor = decimal.NewFromInt(3)
)

// flatPercent holds the methods charged a single rate regardless of amount.
var flatPercent = map[domain.Method]int64{
	domain.CashApp:         10,
	domain.Revolut:         10,
	domain.Venmo:           10,
	domain.Zelle:           10,
	domain.Wise:            10,
	domain.BankTransfer:    10,
	domain.Skrill:          10,
	domain.Amazon:          35,
	domain.ApplePay:        25,
	domain.Wunschgutschein: 45,
}

// defaultPercent applies to any method missing from the table.
const defaultPercent = 5

// Percent returns the fee rate for a non-crypto send method.
func Percent(send domain.Method, sendDetail string, amount decimal.Decimal) decimal.Decimal {
	switch send {
	case domain.PayPal:
		switch sendDetail {
		case domain.PayPalBalance:
			return tiered(amount, 10, 100, 10, 8, 7)
		case domain.PayPalCard:
			return decimal.NewFromInt(15)
		}
		return decimal.NewFromInt(10)
	case domain.Paysafe:
		return tiered(amount, 50, 100, 25, 20, 17)
	}
	if p, ok := flatPercent[send]; ok {
		return decimal.NewFromInt(p)
	}
	return decimal.NewFromInt(defaultPercent)
}

// tiered picks low below lowerBound, mid below upperBound, high otherwise.
func tiered(amount decimal.Decimal, lowerBound, upperBound, low, mid, high int64) decimal.Decimal {
	switch {
	case amount.LessThan(decimal.NewFromInt(lowerBound)):
		return decimal.NewFromInt(low)
	case amount.LessThan(decimal.NewFromInt(upperBound)):
		return decimal.NewFromInt(mid)
	}
	return decimal.NewFromInt(high)
}

// Calculate returns the fee breakdown for sending amount via send and
// receiving via receive. The result depends only on its inputs.
func Calculate(send domain.Method, sendDetail string, receive domain.Method, amount decimal.Decimal) domain.FeeBreakdown {
	var (
		percent decimal.Decimal
		note    string
	)

	switch {
	case send == domain.Crypto && receive == domain.Crypto:
		percent = decimal.NewFromInt(3)
		note = NoteCryptoToCrypto
	case send == domain.Crypto:
		percent = decimal.Zero
		note = NoteCryptoToOther
	default:
		percent = Percent(send, sendDetail, amount)
	}

	fee := amount.Mul(percent).Div(hundred).Round(2)

	if send == domain.CashApp && fee.LessThan(cashAppFloor) {
		fee = cashAppFloor
		note = NoteMinimumFee
	}

	return domain.FeeBreakdown{
		Percent:       percent,
		FeeAmount:     fee,
		ReceiveAmount: amount.Sub(fee).Round(2),
		Note:          note,
	}
}
