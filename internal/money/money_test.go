package money

import (
	"strings"
	"testing"
)

func TestFormatUSD(t *testing.T) {
	got := Format(150, "USD", "en-US")
	if !strings.Contains(got, "1.50") {
		t.Errorf("Format(150, USD) = %q, want it to contain %q", got, "1.50")
	}
	if !strings.Contains(got, "$") {
		t.Errorf("Format(150, USD) = %q, want a dollar sign", got)
	}
}

func TestFormatZeroDecimalCurrency(t *testing.T) {
	got := Format(500, "JPY", "ja-JP")
	if strings.Contains(got, ".") {
		t.Errorf("Format(500, JPY) = %q, want no decimal point", got)
	}
	if !strings.Contains(got, "500") {
		t.Errorf("Format(500, JPY) = %q, want it to contain 500", got)
	}
}

func TestFormatFallsBack(t *testing.T) {
	got := Format(1234, "nope", "???")
	if !strings.Contains(got, "12.34") {
		t.Errorf("Format fallback = %q, want it to contain %q", got, "12.34")
	}
}

func TestFormatSymbolPlacement(t *testing.T) {
	tests := []struct {
		currency string
		locale   string
		want     string
	}{
		{"EUR", "de-DE", "12,50\u00a0€"},
		{"EUR", "fr-FR", "12,50\u00a0€"},
		{"EUR", "en-IE", "€12.50"},
		{"USD", "en-US", "$12.50"},
	}
	for _, tt := range tests {
		t.Run(tt.locale, func(t *testing.T) {
			if got := Format(1250, tt.currency, tt.locale); got != tt.want {
				t.Errorf("Format(1250, %s, %s) = %q, want %q", tt.currency, tt.locale, got, tt.want)
			}
		})
	}
}
