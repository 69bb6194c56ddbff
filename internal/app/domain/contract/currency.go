package contract

import (
	"strings"

	"github.com/xrf-labs/asset-registry/internal/app/fault"
)

// Currency is a canonical accepted-currency code.
type Currency string

const (
	USD  Currency = "USD"
	EUR  Currency = "EUR"
	GBP  Currency = "GBP"
	JPY  Currency = "JPY"
	CNY  Currency = "CNY"
	RUB  Currency = "RUB"
	ARS  Currency = "ARS"
	BRL  Currency = "BRL"
	MXN  Currency = "MXN"
	QAR  Currency = "QAR"
	BTC  Currency = "BTC"
	ETH  Currency = "ETH"
	SOL  Currency = "SOL"
	ADA  Currency = "ADA"
	XRP  Currency = "XRP"
	DOGE Currency = "DOGE"
	USDT Currency = "USDT"
	BNB  Currency = "BNB"
	XRFQ Currency = "XRFQ"
)

// currencyAliases maps lowercased codes and spelled-out names to their
// canonical code. Matching is exact after lowercasing; no trimming, so a
// padded input like "EUR " stays invalid.
var currencyAliases = map[string]Currency{
	"usd": USD, "us dollar": USD,
	"eur": EUR, "euro": EUR,
	"gbp": GBP, "british pound": GBP, "pound sterling": GBP,
	"jpy": JPY, "japanese yen": JPY,
	"cny": CNY, "chinese yuan": CNY,
	"rub": RUB, "russian ruble": RUB,
	"ars": ARS, "argentine peso": ARS,
	"brl": BRL, "brazilian real": BRL,
	"mxn": MXN, "mexican peso": MXN,
	"qar": QAR, "qatari rial": QAR,
	"btc": BTC, "bitcoin": BTC,
	"eth": ETH, "ethereum": ETH,
	"sol": SOL, "solana": SOL,
	"ada": ADA, "cardano": ADA,
	"xrp": XRP, "ripple": XRP,
	"doge": DOGE, "dogecoin": DOGE,
	"usdt": USDT, "tether": USDT,
	"bnb": BNB, "binance coin": BNB, "bnb coin": BNB, "binancecoin": BNB,
	"xrfq": XRFQ,
}

var cryptoCurrencies = map[Currency]bool{
	BTC: true, ETH: true, SOL: true, ADA: true, XRP: true,
	DOGE: true, USDT: true, BNB: true, XRFQ: true,
}

// IsCrypto reports whether the currency is a crypto asset.
func (c Currency) IsCrypto() bool { return cryptoCurrencies[c] }

func (c Currency) String() string { return string(c) }

// ParseCurrency resolves a code or spelled-out name to its canonical code.
func ParseCurrency(s string) (Currency, error) {
	if c, ok := currencyAliases[strings.ToLower(s)]; ok {
		return c, nil
	}
	return "", fault.Errorf(fault.InvalidArgument, "unknown currency %q", s)
}

// ParseCurrencies canonicalizes a caller-supplied currency list, preserving
// first-seen order and dropping duplicates. An empty list or any unknown
// entry is rejected.
func ParseCurrencies(raw []string) ([]Currency, error) {
	if len(raw) == 0 {
		return nil, fault.New(fault.InvalidArgument, "accepted_currencies must not be empty")
	}

	var invalid []string
	seen := make(map[Currency]bool, len(raw))
	out := make([]Currency, 0, len(raw))
	for _, s := range raw {
		c, err := ParseCurrency(s)
		if err != nil {
			invalid = append(invalid, s)
			continue
		}
		if seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	if len(invalid) > 0 {
		return nil, fault.Errorf(fault.InvalidArgument,
			"invalid currencies provided: %s", strings.Join(invalid, ", "))
	}
	return out, nil
}

// CurrencyStrings converts canonical codes to their wire form.
func CurrencyStrings(cs []Currency) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = string(c)
	}
	return out
}
