package fees

// ScheduleRow is one line of the published fee table.
type ScheduleRow struct {
	Route string `json:"route"`
	Rate  string `json:"rate"`
}

// Schedule returns the fee table shown to requesters.
func Schedule() []ScheduleRow {
	return []ScheduleRow{
		{"PayPal Balance → Anything", "Under €10: 10% | €10–99: 8% | €100+: 7%"},
		{"PayPal Card → Anything", "15%"},
		{"Crypto → Other Methods", "0%"},
		{"Crypto → Crypto", "3%"},
		{"CashApp → Anything", "10% (min. $3, USD only)"},
		{"Revolut → Anything", "10%"},
		{"Venmo → Anything", "10%"},
		{"Zelle → Anything", "10%"},
		{"Wise → Anything", "10%"},
		{"Bank Transfer → Anything", "10%"},
		{"Skrill → Anything", "10%"},
		{"Paysafe → Anything", "Under €50: 25% | €50–99: 20% | €100+: 17%"},
		{"Amazon → Anything", "35%"},
		{"Apple Pay → Anything", "25%"},
		{"Wunschgutschein → Anything", "45%"},
	}
}
