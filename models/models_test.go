package models

import (
	"errors"
	"math"
	"testing"
	"time"
)

func ptr(v float64) *float64 { return &v }

func TestNewOrderRequestLimit(t *testing.T) {
	params := map[string]string{ParamTimeInForce: "GTC"}
	req, err := NewOrderRequest("XRP/USDT", SideBuy, OrderTypeLimit, 2.0, ptr(2.8), params)
	if err != nil {
		t.Fatalf("new order request: %v", err)
	}
	if req.Price == nil || *req.Price != 2.8 {
		t.Fatalf("unexpected price: %v", req.Price)
	}
	params[ParamTimeInForce] = "IOC"
	if v, _ := req.Param(ParamTimeInForce); v != "GTC" {
		t.Fatalf("params not copied, got %q", v)
	}
}

func TestNewOrderRequestMarketDropsPrice(t *testing.T) {
	req, err := NewOrderRequest("BTC/USDT", SideSell, OrderTypeMarket, 0.5, ptr(100), nil)
	if err != nil {
		t.Fatalf("new order request: %v", err)
	}
	if req.Price != nil {
		t.Fatalf("market order kept price %v", *req.Price)
	}
}

func TestNewOrderRequestRejects(t *testing.T) {
	cases := []struct {
		name   string
		symbol string
		side   Side
		typ    OrderType
		amount float64
		price  *float64
	}{
		{"empty symbol", "", SideBuy, OrderTypeMarket, 1, nil},
		{"zero amount", "BTC/USDT", SideBuy, OrderTypeMarket, 0, nil},
		{"negative amount", "BTC/USDT", SideBuy, OrderTypeMarket, -1, nil},
		{"nan amount", "BTC/USDT", SideBuy, OrderTypeMarket, math.NaN(), nil},
		{"limit without price", "BTC/USDT", SideBuy, OrderTypeLimit, 1, nil},
		{"limit zero price", "BTC/USDT", SideBuy, OrderTypeLimit, 1, ptr(0)},
		{"bad side", "BTC/USDT", Side("hold"), OrderTypeMarket, 1, nil},
		{"bad type", "BTC/USDT", SideBuy, OrderType("stop"), 1, nil},
	}
	for _, c := range cases {
		if _, err := NewOrderRequest(c.symbol, c.side, c.typ, c.amount, c.price, nil); !errors.Is(err, ErrInvalidOrder) {
			t.Errorf("%s: expected ErrInvalidOrder, got %v", c.name, err)
		}
	}
}

func TestParseTransport(t *testing.T) {
	cases := map[string]Transport{
		"":       TransportAuto,
		"AUTO":   TransportAuto,
		"ws":     TransportStream,
		"stream": TransportStream,
		"rest":   TransportPoll,
		"poll":   TransportPoll,
	}
	for in, want := range cases {
		got, err := ParseTransport(in)
		if err != nil || got != want {
			t.Errorf("ParseTransport(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseTransport("carrier-pigeon"); err == nil {
		t.Fatal("expected error for unknown transport")
	}
}

func TestNewOrderBookOrdering(t *testing.T) {
	ob := NewOrderBook("binance", "BTC/USDT",
		[]PriceLevel{{Price: 99, Amount: 1}, {Price: 101, Amount: 2}, {Price: 100, Amount: 3}, {Price: 0, Amount: 1}},
		[]PriceLevel{{Price: 104, Amount: 1}, {Price: 102, Amount: 1}, {Price: 103, Amount: -1}},
		time.Unix(0, 0), nil)

	for i := 1; i < len(ob.Bids); i++ {
		if ob.Bids[i].Price > ob.Bids[i-1].Price {
			t.Fatalf("bids not descending: %+v", ob.Bids)
		}
	}
	for i := 1; i < len(ob.Asks); i++ {
		if ob.Asks[i].Price < ob.Asks[i-1].Price {
			t.Fatalf("asks not ascending: %+v", ob.Asks)
		}
	}
	if len(ob.Bids) != 3 || len(ob.Asks) != 2 {
		t.Fatalf("invalid levels not dropped: bids=%+v asks=%+v", ob.Bids, ob.Asks)
	}
	if ob.Timestamp.Location() != time.UTC {
		t.Fatalf("timestamp not UTC: %v", ob.Timestamp)
	}
}

func TestNewOrderBookUncrosses(t *testing.T) {
	ob := NewOrderBook("bybit", "ETH/USDT",
		[]PriceLevel{{Price: 105, Amount: 0.1}, {Price: 100, Amount: 1}},
		[]PriceLevel{{Price: 101, Amount: 2}, {Price: 102, Amount: 1}},
		time.Now(), nil)

	bid, _ := ob.BestBid()
	ask, _ := ob.BestAsk()
	if bid.Price > ask.Price {
		t.Fatalf("book crossed: bid=%v ask=%v", bid.Price, ask.Price)
	}
}

func TestNewBalanceInvariant(t *testing.T) {
	cases := []struct {
		name              string
		free, used, total *float64
		want              Balance
	}{
		{"all parts", ptr(1), ptr(2), ptr(3), Balance{Free: 1, Used: 2, Total: 3}},
		{"derive used", ptr(1), nil, ptr(3), Balance{Free: 1, Used: 2, Total: 3}},
		{"derive free", nil, ptr(2), ptr(3), Balance{Free: 1, Used: 2, Total: 3}},
		{"total only", nil, nil, ptr(5), Balance{Free: 5, Used: 0, Total: 5}},
		{"free exceeds total", ptr(5), nil, ptr(3), Balance{Free: 5, Used: 0, Total: 5}},
		{"nothing", nil, nil, nil, Balance{}},
	}
	for _, c := range cases {
		got := NewBalance(c.free, c.used, c.total)
		if got != c.want {
			t.Errorf("%s: got %+v want %+v", c.name, got, c.want)
		}
		if !got.Consistent() {
			t.Errorf("%s: inconsistent balance %+v", c.name, got)
		}
	}
}

func TestTickerReferencePrice(t *testing.T) {
	if p := (Ticker{Last: ptr(2.79), Close: ptr(2.7)}).ReferencePrice(); p == nil || *p != 2.79 {
		t.Fatalf("expected last price, got %v", p)
	}
	if p := (Ticker{Last: ptr(0), Close: ptr(2.7)}).ReferencePrice(); p == nil || *p != 2.7 {
		t.Fatalf("expected close fallback, got %v", p)
	}
	if p := (Ticker{}).ReferencePrice(); p != nil {
		t.Fatalf("expected no reference price, got %v", *p)
	}
}

func TestNewCandleSeriesSorts(t *testing.T) {
	s := NewCandleSeries("bybit", "BTC/USDT", "1m", []Candle{
		{Timestamp: time.UnixMilli(2000)},
		{Timestamp: time.UnixMilli(1000)},
	})
	if !s.Candles[0].Timestamp.Before(s.Candles[1].Timestamp) {
		t.Fatalf("candles not ascending: %+v", s.Candles)
	}
}
