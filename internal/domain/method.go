package domain

// Method is a payment method a requester can send or receive.
type Method string

const (
	PayPal          Method = "PayPal"
	Crypto          Method = "Crypto"
	CashApp         Method = "CashApp"
	Revolut         Method = "Revolut"
	Venmo           Method = "Venmo"
	Zelle           Method = "Zelle"
	Skrill          Method = "Skrill"
	Paysafe         Method = "Paysafe"
	Amazon          Method = "Amazon"
	ApplePay        Method = "Apple Pay"
	Wise            Method = "Wise"
	BankTransfer    Method = "Bank Transfer"
	Wunschgutschein Method = "Wunschgutschein"
)

// PayPal details.
const (
	PayPalBalance = "PayPal Balance"
	PayPalCard    = "Card"
)

// Catalog is the ordered list of supported payment methods.
var Catalog = []Method{
	PayPal, Crypto, CashApp, Revolut, Venmo,
	Zelle, Skrill, Paysafe, Amazon, ApplePay,
	Wise, BankTransfer, Wunschgutschein,
}

// compoundDetails lists the methods that need a disambiguating detail step.
var compoundDetails = map[Method][]string{
	PayPal: {PayPalBalance, PayPalCard},
	Crypto: {"LTC", "BTC", "Solana", "ETH", "Other"},
}

// IsKnown reports whether m is in the catalog.
func (m Method) IsKnown() bool {
	for _, c := range Catalog {
		if c == m {
			return true
		}
	}
	return false
}

// IsCompound reports whether m requires a detail sub-step.
func (m Method) IsCompound() bool {
	_, ok := compoundDetails[m]
	return ok
}

// Details returns the allowed details for a compound method, or nil.
func (m Method) Details() []string {
	d := compoundDetails[m]
	if d == nil {
		return nil
	}
	out := make([]string, len(d))
	copy(out, d)
	return out
}

// AcceptsDetail reports whether detail is one of m's allowed details.
func (m Method) AcceptsDetail(detail string) bool {
	for _, d := range compoundDetails[m] {
		if d == detail {
			return true
		}
	}
	return false
}

// ReceiveOptions returns the catalog without the chosen send method.
func ReceiveOptions(send Method) []Method {
	out := make([]Method, 0, len(Catalog)-1)
	for _, m := range Catalog {
		if m != send {
			out = append(out, m)
		}
	}
	return out
}

// Label renders a method with its optional detail, e.g. "PayPal (Card)".
func Label(m Method, detail string) string {
	if detail == "" {
		return string(m)
	}
	return string(m) + " (" + detail + ")"
}
