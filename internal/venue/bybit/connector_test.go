package bybit

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"atlas/config"
	"atlas/internal/venue"
	"atlas/logger"
	"atlas/models"
)

type recorder struct {
	mu     sync.Mutex
	bodies map[string]string
}

func (r *recorder) body(path string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.bodies[path]
}

// newTestConnector answers each path with a canned v5 envelope.
func newTestConnector(t *testing.T, routes map[string]string) (*Connector, *recorder) {
	t.Helper()
	rec := &recorder{bodies: map[string]string{}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		rec.mu.Lock()
		rec.bodies[r.URL.Path] = string(body) + r.URL.RawQuery
		rec.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if resp, ok := routes[r.URL.Path]; ok {
			io.WriteString(w, resp)
			return
		}
		io.WriteString(w, `{"retCode":10001,"retMsg":"unknown path","result":{},"time":1700000000000}`)
	}))
	t.Cleanup(srv.Close)

	cfg := config.Default().Venues.Bybit
	cfg.BaseURL = srv.URL
	cfg.APIKey, cfg.APISecret = "key", "secret"
	cfg.RateLimit = config.RateLimitConfig{RequestsPerSecond: 1000, BurstSize: 1000}
	c := New(cfg, config.Default().Reader, logger.Discard())
	t.Cleanup(func() { c.Close() })
	return c, rec
}

func ok(result string) string {
	return `{"retCode":0,"retMsg":"OK","result":` + result + `,"retExtInfo":{},"time":1700000000000}`
}

const tickers = `{"category":"linear","list":[{"symbol":"BTCUSDT","lastPrice":"65000.5","prevPrice24h":"64000","highPrice24h":"66000","lowPrice24h":"63000","volume24h":"1200","turnover24h":"78000000","bid1Price":"65000","ask1Price":"65001","markPrice":"65000.2","indexPrice":"64999.9","fundingRate":"0.0001","nextFundingTime":"1700006400000"}]}`

func TestFetchTicker(t *testing.T) {
	c, _ := newTestConnector(t, map[string]string{"/v5/market/tickers": ok(tickers)})

	tk, err := c.FetchTicker(context.Background(), "BTC/USDT")
	if err != nil {
		t.Fatalf("FetchTicker: %v", err)
	}
	if tk.Venue != Name || tk.Symbol != "BTC/USDT" {
		t.Fatalf("unexpected identity: %+v", tk)
	}
	if tk.Last == nil || *tk.Last != 65000.5 {
		t.Fatalf("unexpected last: %v", tk.Last)
	}
	if tk.Bid == nil || *tk.Bid != 65000 || tk.Ask == nil || *tk.Ask != 65001 {
		t.Fatalf("unexpected bid/ask: %+v", tk)
	}
}

func TestFetchFundingRate(t *testing.T) {
	c, _ := newTestConnector(t, map[string]string{"/v5/market/tickers": ok(tickers)})

	fr, err := c.FetchFundingRate(context.Background(), "BTC/USDT")
	if err != nil {
		t.Fatalf("FetchFundingRate: %v", err)
	}
	if fr.Rate == nil || *fr.Rate != 0.0001 {
		t.Fatalf("unexpected rate: %v", fr.Rate)
	}
	if fr.NextFundingTime == nil || !fr.NextFundingTime.Equal(time.UnixMilli(1700006400000)) {
		t.Fatalf("unexpected next funding time: %v", fr.NextFundingTime)
	}
}

func TestFetchOrderBook(t *testing.T) {
	c, _ := newTestConnector(t, map[string]string{
		"/v5/market/orderbook": ok(`{"s":"BTCUSDT","b":[["64999","1"],["65000","2"],["64998","3"]],"a":[["65002","1"],["65001","4"]],"ts":1700000000000,"u":42}`),
	})

	ob, err := c.FetchOrderBook(context.Background(), "BTC/USDT", 2)
	if err != nil {
		t.Fatalf("FetchOrderBook: %v", err)
	}
	if len(ob.Bids) != 2 || ob.Bids[0].Price != 65000 {
		t.Fatalf("unexpected bids: %+v", ob.Bids)
	}
	if ob.Asks[0].Price != 65001 {
		t.Fatalf("unexpected asks: %+v", ob.Asks)
	}
	if ob.Nonce == nil || *ob.Nonce != 42 {
		t.Fatalf("unexpected nonce: %v", ob.Nonce)
	}
}

func TestFetchCandlesAscending(t *testing.T) {
	c, _ := newTestConnector(t, map[string]string{
		"/v5/market/kline": ok(`{"category":"linear","symbol":"BTCUSDT","list":[["1700000120000","3","3","3","3","1","3"],["1700000060000","2","2","2","2","1","2"],["1700000000000","1","1","1","1","1","1"]]}`),
	})

	series, err := c.FetchCandles(context.Background(), "BTC/USDT", "1m", nil, 3)
	if err != nil {
		t.Fatalf("FetchCandles: %v", err)
	}
	if len(series.Candles) != 3 {
		t.Fatalf("expected 3 candles, got %d", len(series.Candles))
	}
	if series.Candles[0].Open != 1 || series.Candles[2].Open != 3 {
		t.Fatalf("candles not ascending: %+v", series.Candles)
	}
}

func TestFetchBalance(t *testing.T) {
	c, _ := newTestConnector(t, map[string]string{
		"/v5/account/wallet-balance": ok(`{"list":[{"accountType":"UNIFIED","coin":[{"coin":"USDT","walletBalance":"1000","locked":"0","totalOrderIM":"100","totalPositionIM":"150"},{"coin":"BTC","walletBalance":"","locked":"0"}]}]}`),
	})

	snap, err := c.FetchBalance(context.Background())
	if err != nil {
		t.Fatalf("FetchBalance: %v", err)
	}
	usdt, found := snap.Currencies["USDT"]
	if !found {
		t.Fatalf("USDT missing: %+v", snap.Currencies)
	}
	if usdt.Free != 750 || usdt.Used != 250 || usdt.Total != 1000 {
		t.Fatalf("unexpected balance: %+v", usdt)
	}
	if _, found := snap.Currencies["BTC"]; found {
		t.Fatal("coin without a wallet balance should be skipped")
	}
}

func TestFetchPositions(t *testing.T) {
	c, _ := newTestConnector(t, map[string]string{
		"/v5/position/list": ok(`{"list":[{"symbol":"ETHUSDT","side":"Sell","size":"0.5","avgPrice":"3000","positionValue":"1500","leverage":"5","markPrice":"2990","liqPrice":"","unrealisedPnl":"5","tradeMode":1},{"symbol":"BTCUSDT","side":"","size":"0"}]}`),
	})

	positions, err := c.FetchPositions(context.Background(), nil)
	if err != nil {
		t.Fatalf("FetchPositions: %v", err)
	}
	if len(positions) != 1 {
		t.Fatalf("expected 1 position, got %+v", positions)
	}
	p := positions[0]
	if p.Symbol != "ETH/USDT:USDT" || p.Side != models.PositionShort || p.MarginMode != models.MarginIsolated {
		t.Fatalf("unexpected position: %+v", p)
	}
	if p.LiquidationPrice != nil {
		t.Fatalf("empty liquidation price should be absent, got %v", *p.LiquidationPrice)
	}
}

func TestCreateOrderLimit(t *testing.T) {
	c, rec := newTestConnector(t, map[string]string{
		"/v5/order/create":   ok(`{"orderId":"abc-1","orderLinkId":"link-1"}`),
		"/v5/order/realtime": ok(`{"list":[{"orderId":"abc-1","orderLinkId":"link-1","symbol":"XRPUSDT","orderStatus":"New","qty":"2","cumExecQty":"0","leavesQty":"2","price":"2.8","avgPrice":"","updatedTime":"1700000000000"}]}`),
	})
	price := 2.8
	req, err := models.NewOrderRequest("XRP/USDT", models.SideBuy, models.OrderTypeLimit, 2, &price, nil)
	if err != nil {
		t.Fatalf("NewOrderRequest: %v", err)
	}

	res, err := c.CreateOrder(context.Background(), req)
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if res.OrderID != "abc-1" || res.Status != "new" || res.Filled != 0 || res.Remaining != 2 {
		t.Fatalf("unexpected result: %+v", res)
	}
	body := rec.body("/v5/order/create")
	for _, want := range []string{`"orderType":"Limit"`, `"qty":"2"`, `"price":"2.8"`, `"timeInForce":"GTC"`, `"side":"Buy"`} {
		if !strings.Contains(body, want) {
			t.Errorf("request body %s missing %s", body, want)
		}
	}
}

func TestCreateMarketOrderFilled(t *testing.T) {
	c, rec := newTestConnector(t, map[string]string{
		"/v5/order/create":   ok(`{"orderId":"mkt-1","orderLinkId":"link-2"}`),
		"/v5/order/realtime": ok(`{"list":[{"orderId":"mkt-1","orderLinkId":"link-2","symbol":"BTCUSDT","orderStatus":"Filled","qty":"1","cumExecQty":"1","leavesQty":"0","price":"0","avgPrice":"65000.5","updatedTime":"1700000000000"}]}`),
	})
	req, err := models.NewOrderRequest("BTC/USDT", models.SideSell, models.OrderTypeMarket, 1, nil, nil)
	if err != nil {
		t.Fatalf("NewOrderRequest: %v", err)
	}

	res, err := c.CreateOrder(context.Background(), req)
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if res.Status != "filled" || res.Filled != 1 || res.Remaining != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.PartiallyOpen() {
		t.Fatal("filled market order reported as partially open")
	}
	if res.Price == nil || *res.Price != 65000.5 {
		t.Fatalf("expected average fill price, got %v", res.Price)
	}
	if q := rec.body("/v5/order/realtime"); !strings.Contains(q, "orderId=mkt-1") {
		t.Fatalf("status lookup did not use the order id: %s", q)
	}
}

func TestCreateOrderStatusUnavailable(t *testing.T) {
	c, _ := newTestConnector(t, map[string]string{
		"/v5/order/create": ok(`{"orderId":"abc-2","orderLinkId":"link-3"}`),
	})
	req, err := models.NewOrderRequest("BTC/USDT", models.SideBuy, models.OrderTypeMarket, 1, nil, nil)
	if err != nil {
		t.Fatalf("NewOrderRequest: %v", err)
	}

	res, err := c.CreateOrder(context.Background(), req)
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if res.OrderID != "abc-2" || res.Status != "new" || res.Remaining != 0 || res.PartiallyOpen() {
		t.Fatalf("unexpected fallback result: %+v", res)
	}
}

func TestCancelOrder(t *testing.T) {
	c, _ := newTestConnector(t, map[string]string{
		"/v5/order/cancel": ok(`{"orderId":"abc-1","orderLinkId":""}`),
	})
	res, err := c.CancelOrder(context.Background(), "XRP/USDT", "abc-1")
	if err != nil {
		t.Fatalf("CancelOrder: %v", err)
	}
	if res.OrderID != "abc-1" || res.Status != "canceled" {
		t.Fatalf("unexpected ack: %+v", res)
	}
}

func TestFetchOrderFallsBackToHistory(t *testing.T) {
	c, _ := newTestConnector(t, map[string]string{
		"/v5/order/realtime": ok(`{"list":[]}`),
		"/v5/order/history":  ok(`{"list":[{"orderId":"abc-1","symbol":"XRPUSDT","orderStatus":"PartiallyFilled","qty":"2","cumExecQty":"0.5","leavesQty":"1.5","avgPrice":"2.79","price":"2.8","updatedTime":"1700000000000"}]}`),
	})
	res, err := c.FetchOrder(context.Background(), "XRP/USDT", "abc-1")
	if err != nil {
		t.Fatalf("FetchOrder: %v", err)
	}
	if res.Status != "partiallyfilled" || res.Filled != 0.5 || res.Remaining != 1.5 {
		t.Fatalf("unexpected order: %+v", res)
	}
	if res.Price == nil || *res.Price != 2.79 {
		t.Fatalf("expected average price, got %v", res.Price)
	}
}

func TestRetCodeBecomesAPIError(t *testing.T) {
	c, _ := newTestConnector(t, map[string]string{
		"/v5/market/tickers": `{"retCode":10001,"retMsg":"params error: symbol invalid","result":{},"time":1700000000000}`,
	})
	_, err := c.FetchTicker(context.Background(), "BTC/USDT")
	var apiErr *venue.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != "10001" {
		t.Fatalf("expected APIError 10001, got %v", err)
	}
	var verr *venue.Error
	if !errors.As(err, &verr) || verr.Venue != Name {
		t.Fatalf("expected venue error, got %v", err)
	}
}

func TestSetLeverageNotModifiedIsOK(t *testing.T) {
	c, _ := newTestConnector(t, map[string]string{
		"/v5/position/set-leverage": `{"retCode":110043,"retMsg":"leverage not modified","result":{},"time":1700000000000}`,
	})
	if err := c.SetLeverage(context.Background(), 5, "BTC/USDT"); err != nil {
		t.Fatalf("SetLeverage: %v", err)
	}
	if err := c.SetLeverage(context.Background(), 0, "BTC/USDT"); err == nil {
		t.Fatal("expected error for zero leverage")
	}
}

func TestKlineInterval(t *testing.T) {
	cases := map[string]string{"1m": "1", "15m": "15", "1h": "60", "4h": "240", "12h": "720", "1d": "D", "1w": "W"}
	for tf, want := range cases {
		got, err := klineInterval(tf)
		if err != nil || got != want {
			t.Errorf("klineInterval(%q) = %q, %v; want %q", tf, got, err, want)
		}
	}
	if _, err := klineInterval("7m"); err == nil {
		t.Fatal("expected error for unsupported timeframe")
	}
}
