// Package symbols converts between unified BASE/QUOTE[:SETTLE] symbols and
// venue-native contract ids.
package symbols

import (
	"fmt"
	"strings"
)

var quoteAssets = []string{"FDUSD", "USDT", "USDC", "BUSD", "USD"}

// Market is a parsed unified symbol.
type Market struct {
	Base   string
	Quote  string
	Settle string
}

func (m Market) String() string {
	if m.Settle != "" {
		return m.Base + "/" + m.Quote + ":" + m.Settle
	}
	return m.Base + "/" + m.Quote
}

// Parse splits a unified symbol such as "BTC/USDT" or "BTC/USDT:USDT".
// Venue-native ids without a separator are split on a known quote asset.
func Parse(sym string) (Market, error) {
	sym = strings.ToUpper(strings.TrimSpace(sym))
	if sym == "" {
		return Market{}, fmt.Errorf("empty symbol")
	}

	var m Market
	if i := strings.Index(sym, ":"); i >= 0 {
		m.Settle = sym[i+1:]
		sym = sym[:i]
	}
	if base, quote, ok := strings.Cut(sym, "/"); ok {
		m.Base, m.Quote = base, quote
	} else {
		sym = strings.ReplaceAll(sym, "-", "")
		for _, q := range quoteAssets {
			if strings.HasSuffix(sym, q) && len(sym) > len(q) {
				m.Base, m.Quote = strings.TrimSuffix(sym, q), q
				break
			}
		}
	}
	if m.Base == "" || m.Quote == "" {
		return Market{}, fmt.Errorf("cannot parse symbol %q", sym)
	}
	return m, nil
}

// ToVenue converts a unified symbol into the venue's contract id.
func ToVenue(venue, sym string) (string, error) {
	m, err := Parse(sym)
	if err != nil {
		return "", err
	}
	switch strings.ToLower(venue) {
	case "kucoin":
		base := m.Base
		if base == "BTC" {
			base = "XBT"
		}
		return base + m.Quote + "M", nil
	default:
		return m.Base + m.Quote, nil
	}
}

// ToUnified converts a venue contract id into BASE/QUOTE:SETTLE form. Linear
// perpetuals settle in their quote asset. Unparsable ids are returned as-is.
func ToUnified(venue, id string) string {
	id = strings.ToUpper(strings.TrimSpace(id))
	if strings.ToLower(venue) == "kucoin" {
		id = NormalizeKucoinSymbol(id)
	}
	m, err := Parse(id)
	if err != nil {
		return id
	}
	m.Settle = m.Quote
	return m.String()
}

// NormalizeKucoinSymbol converts KuCoin futures symbols to a common format.
//
//	XBTUSDTM -> BTCUSDT
//	ETHUSDTM -> ETHUSDT
func NormalizeKucoinSymbol(sym string) string {
	sym = strings.ReplaceAll(sym, "-", "")
	sym = strings.TrimSuffix(sym, "M")
	if strings.HasPrefix(sym, "XBT") {
		sym = "BTC" + sym[3:]
	}
	return sym
}
