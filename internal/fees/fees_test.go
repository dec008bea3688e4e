package fees

import (
	"testing"

	"github.com/dvloznov/exchange-desk/internal/domain"
	"github.com/shopspring/decimal"
)

func TestCalculate(t *testing.T) {
	tests := []struct {
		name        string
		send        domain.Method
		sendDetail  string
		receive     domain.Method
		amount      string
		wantPercent string
		wantFee     string
		wantReceive string
		wantNote    string
	}{
		{
			name: "paypal balance under 10", send: domain.PayPal, sendDetail: domain.PayPalBalance,
			receive: domain.Crypto, amount: "9.99",
			wantPercent: "10", wantFee: "1.00", wantReceive: "8.99",
		},
		{
			name: "paypal balance tier chosen before rounding", send: domain.PayPal, sendDetail: domain.PayPalBalance,
			receive: domain.Crypto, amount: "9.999",
			wantPercent: "10", wantFee: "1.00", wantReceive: "9.00",
		},
		{
			name: "paypal balance 10 to 99", send: domain.PayPal, sendDetail: domain.PayPalBalance,
			receive: domain.Crypto, amount: "50",
			wantPercent: "8", wantFee: "4.00", wantReceive: "46.00",
		},
		{
			name: "paypal balance lower tier boundary", send: domain.PayPal, sendDetail: domain.PayPalBalance,
			receive: domain.Wise, amount: "10",
			wantPercent: "8", wantFee: "0.80", wantReceive: "9.20",
		},
		{
			name: "paypal balance 100 and over", send: domain.PayPal, sendDetail: domain.PayPalBalance,
			receive: domain.Wise, amount: "100",
			wantPercent: "7", wantFee: "7.00", wantReceive: "93.00",
		},
		{
			name: "paypal card", send: domain.PayPal, sendDetail: domain.PayPalCard,
			receive: domain.Crypto, amount: "20",
			wantPercent: "15", wantFee: "3.00", wantReceive: "17.00",
		},
		{
			name: "paypal without detail", send: domain.PayPal,
			receive: domain.Crypto, amount: "20",
			wantPercent: "10", wantFee: "2.00", wantReceive: "18.00",
		},
		{
			name: "crypto to crypto", send: domain.Crypto, sendDetail: "BTC",
			receive: domain.Crypto, amount: "100",
			wantPercent: "3", wantFee: "3.00", wantReceive: "97.00", wantNote: NoteCryptoToCrypto,
		},
		{
			name: "crypto to paypal", send: domain.Crypto, sendDetail: "LTC",
			receive: domain.PayPal, amount: "100",
			wantPercent: "0", wantFee: "0.00", wantReceive: "100.00", wantNote: NoteCryptoToOther,
		},
		{
			name: "cashapp minimum fee", send: domain.CashApp,
			receive: domain.PayPal, amount: "10",
			wantPercent: "10", wantFee: "3.00", wantReceive: "7.00", wantNote: NoteMinimumFee,
		},
		{
			name: "cashapp above minimum", send: domain.CashApp,
			receive: domain.PayPal, amount: "50",
			wantPercent: "10", wantFee: "5.00", wantReceive: "45.00",
		},
		{
			name: "paysafe under 50", send: domain.Paysafe,
			receive: domain.PayPal, amount: "40",
			wantPercent: "25", wantFee: "10.00", wantReceive: "30.00",
		},
		{
			name: "paysafe 50 to 99", send: domain.Paysafe,
			receive: domain.PayPal, amount: "50",
			wantPercent: "20", wantFee: "10.00", wantReceive: "40.00",
		},
		{
			name: "paysafe 100 and over", send: domain.Paysafe,
			receive: domain.PayPal, amount: "200",
			wantPercent: "17", wantFee: "34.00", wantReceive: "166.00",
		},
		{
			name: "amazon", send: domain.Amazon, receive: domain.PayPal, amount: "10",
			wantPercent: "35", wantFee: "3.50", wantReceive: "6.50",
		},
		{
			name: "apple pay", send: domain.ApplePay, receive: domain.PayPal, amount: "10",
			wantPercent: "25", wantFee: "2.50", wantReceive: "7.50",
		},
		{
			name: "wunschgutschein", send: domain.Wunschgutschein, receive: domain.PayPal, amount: "10",
			wantPercent: "45", wantFee: "4.50", wantReceive: "5.50",
		},
		{
			name: "unlisted method", send: domain.Method("Gift Card"), receive: domain.PayPal, amount: "10",
			wantPercent: "5", wantFee: "0.50", wantReceive: "9.50",
		},
		{
			name: "fee rounds to cents", send: domain.Revolut, receive: domain.PayPal, amount: "12.345",
			wantPercent: "10", wantFee: "1.23", wantReceive: "11.12",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Calculate(tt.send, tt.sendDetail, tt.receive, decimal.RequireFromString(tt.amount))

			if !got.Percent.Equal(decimal.RequireFromString(tt.wantPercent)) {
				t.Errorf("percent = %s, want %s", got.Percent, tt.wantPercent)
			}
			if got.FeeAmount.StringFixed(2) != tt.wantFee {
				t.Errorf("fee = %s, want %s", got.FeeAmount.StringFixed(2), tt.wantFee)
			}
			if got.ReceiveAmount.StringFixed(2) != tt.wantReceive {
				t.Errorf("receive = %s, want %s", got.ReceiveAmount.StringFixed(2), tt.wantReceive)
			}
			if got.Note != tt.wantNote {
				t.Errorf("note = %q, want %q", got.Note, tt.wantNote)
			}
		})
	}
}

func TestCalculateDeterministic(t *testing.T) {
	amount := decimal.RequireFromString("73.21")
	first := Calculate(domain.PayPal, domain.PayPalBalance, domain.Crypto, amount)
	for i := 0; i < 10; i++ {
		again := Calculate(domain.PayPal, domain.PayPalBalance, domain.Crypto, amount)
		if !again.FeeAmount.Equal(first.FeeAmount) || !again.ReceiveAmount.Equal(first.ReceiveAmount) || again.Note != first.Note {
			t.Fatalf("run %d: got %+v, want %+v", i, again, first)
		}
	}
}

func TestScheduleCoversCatalog(t *testing.T) {
	rows := Schedule()
	if len(rows) != 15 {
		t.Fatalf("len(Schedule()) = %d, want 15", len(rows))
	}
}
