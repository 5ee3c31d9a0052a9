package symbols

import "testing"

func TestToVenue(t *testing.T) {
	tests := []struct {
		venue string
		in    string
		want  string
	}{
		{"binance", "BTC/USDT", "BTCUSDT"},
		{"binance", "BTC/USDT:USDT", "BTCUSDT"},
		{"binance", "ETHUSDT", "ETHUSDT"},
		{"bybit", "xrp/usdt", "XRPUSDT"},
		{"bybit", "1000PEPE/USDT", "1000PEPEUSDT"},
		{"kucoin", "BTC/USDT", "XBTUSDTM"},
		{"kucoin", "ETH/USDT:USDT", "ETHUSDTM"},
	}
	for _, tt := range tests {
		got, err := ToVenue(tt.venue, tt.in)
		if err != nil {
			t.Errorf("ToVenue(%s,%s) error: %v", tt.venue, tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ToVenue(%s,%s)=%s want %s", tt.venue, tt.in, got, tt.want)
		}
	}
}

func TestToVenueRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "BTC", "/USDT"} {
		if _, err := ToVenue("binance", in); err == nil {
			t.Errorf("ToVenue(%q) expected error", in)
		}
	}
}

func TestToUnified(t *testing.T) {
	tests := []struct {
		venue string
		in    string
		want  string
	}{
		{"binance", "BTCUSDT", "BTC/USDT:USDT"},
		{"bybit", "SOLUSDC", "SOL/USDC:USDC"},
		{"kucoin", "XBTUSDTM", "BTC/USDT:USDT"},
		{"kucoin", "XBT-USDTM", "BTC/USDT:USDT"},
		{"binance", "WEIRD", "WEIRD"},
	}
	for _, tt := range tests {
		if got := ToUnified(tt.venue, tt.in); got != tt.want {
			t.Errorf("ToUnified(%s,%s)=%s want %s", tt.venue, tt.in, got, tt.want)
		}
	}
}
