package contract

import (
	"testing"

	"github.com/xrf-labs/asset-registry/internal/app/fault"
)

func TestParseCurrencyAliases(t *testing.T) {
	cases := map[string]Currency{
		"USD":            USD,
		"usd":            USD,
		"Euro":           EUR,
		"eur":            EUR,
		"Pound Sterling": GBP,
		"Cardano":        ADA,
		"Ripple":         XRP,
		"BITCOIN":        BTC,
		"Argentine Peso": ARS,
	}
	for in, want := range cases {
		got, err := ParseCurrency(in)
		if err != nil {
			t.Fatalf("%q: %v", in, err)
		}
		if got != want {
			t.Fatalf("%q: expected %s, got %s", in, want, got)
		}
	}
}

func TestParseCurrencyInvalid(t *testing.T) {
	for _, in := range []string{"", "INVALID", "  EUR  ", "EUR ", " GBP", "YEN", "USD EUR", "USD."} {
		if _, err := ParseCurrency(in); err == nil {
			t.Fatalf("%q: expected error", in)
		}
	}
}

func TestParseCurrencies(t *testing.T) {
	got, err := ParseCurrencies([]string{"usd", "Euro", "USD", "btc"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := []Currency{USD, EUR, BTC}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order not preserved: expected %v, got %v", want, got)
		}
	}

	if _, err := ParseCurrencies(nil); !fault.IsCode(err, fault.InvalidArgument) {
		t.Fatalf("empty list must fail, got %v", err)
	}
	if _, err := ParseCurrencies([]string{"USD", "Unknown"}); !fault.IsCode(err, fault.InvalidArgument) {
		t.Fatalf("unknown entry must fail, got %v", err)
	}
}

func TestIsCrypto(t *testing.T) {
	if !BTC.IsCrypto() || !XRFQ.IsCrypto() {
		t.Fatalf("crypto codes misclassified")
	}
	if USD.IsCrypto() || GBP.IsCrypto() {
		t.Fatalf("fiat codes misclassified")
	}
}
