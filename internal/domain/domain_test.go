package domain

import "testing"

func TestReceiveOptionsExcludeSendMethod(t *testing.T) {
	for _, m := range Catalog {
		opts := ReceiveOptions(m)
		if len(opts) != len(Catalog)-1 {
			t.Fatalf("ReceiveOptions(%s) has %d entries, want %d", m, len(opts), len(Catalog)-1)
		}
		seen := map[Method]bool{}
		for _, o := range opts {
			if o == m {
				t.Errorf("ReceiveOptions(%s) contains the send method", m)
			}
			seen[o] = true
		}
		for _, c := range Catalog {
			if c != m && !seen[c] {
				t.Errorf("ReceiveOptions(%s) is missing %s", m, c)
			}
		}
	}
}

func TestCompoundMethods(t *testing.T) {
	if !PayPal.IsCompound() || !Crypto.IsCompound() {
		t.Error("PayPal and Crypto must be compound")
	}
	if Zelle.IsCompound() {
		t.Error("Zelle must not be compound")
	}
	if !PayPal.AcceptsDetail(PayPalCard) || PayPal.AcceptsDetail("BTC") {
		t.Error("PayPal detail acceptance is wrong")
	}
	if Zelle.Details() != nil {
		t.Error("Zelle.Details() must be nil")
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{"50", "50.00", false},
		{"€12,50", "12.50", false},
		{"$ 7.5", "7.50", false},
		{" 9.999 ", "10.00", false},
		{"0", "", true},
		{"-3", "", true},
		{"0.001", "", true},
		{"abc", "", true},
		{"", "", true},
		{"123456789012345678901", "", true},
		{"9999999999999.99", "9999999999999.99", false},
		{"10000000000000", "", true},
		{"99999999999999999", "", true},
		{"1e30", "", true},
		{"9e999999", "", true},
		{"9E9", "", true},
		{"1.000000001", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseAmount(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseAmount(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			}
			if !tt.wantErr && got.StringFixed(2) != tt.want {
				t.Errorf("ParseAmount(%q) = %s, want %s", tt.raw, got.StringFixed(2), tt.want)
			}
		})
	}
}

func TestParseAmount_KeepsEnteredPrecision(t *testing.T) {
	got, err := ParseAmount("9.999")
	if err != nil {
		t.Fatalf("ParseAmount() error = %v", err)
	}
	if got.String() != "9.999" {
		t.Errorf("ParseAmount(9.999) = %s, want 9.999", got)
	}
}

func TestLabel(t *testing.T) {
	if got := Label(Crypto, "LTC"); got != "Crypto (LTC)" {
		t.Errorf("Label = %q", got)
	}
	if got := Label(Zelle, ""); got != "Zelle" {
		t.Errorf("Label = %q", got)
	}
}
