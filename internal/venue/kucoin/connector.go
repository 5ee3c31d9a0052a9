// Package kucoin implements the public market data half of the venue
// contract for KuCoin USDT-margined futures. Account and trading operations
// report ErrUnsupportedCapability.
package kucoin

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"atlas/config"
	"atlas/internal/symbols"
	"atlas/internal/venue"
	"atlas/logger"
	"atlas/models"

	sdkapi "github.com/Kucoin/kucoin-universal-sdk/sdk/golang/pkg/api"
	futuresmarket "github.com/Kucoin/kucoin-universal-sdk/sdk/golang/pkg/generate/futures/market"
	sdktype "github.com/Kucoin/kucoin-universal-sdk/sdk/golang/pkg/types"
)

const (
	Name      = "kucoin"
	component = "kucoin_connector"

	defaultBaseURL = "https://api-futures.kucoin.com"
	testnetBaseURL = "https://api-sandbox-futures.kucoin.com"
)

// Connector reads KuCoin futures market data through the universal SDK.
type Connector struct {
	market  futuresmarket.MarketAPI
	session *venue.Session
	log     *logger.Entry
}

func New(cfg config.VenueConfig, reader config.ReaderConfig, log *logger.Log) *Connector {
	entry := log.WithComponent(component)
	session := venue.NewSession(Name, cfg, reader, entry)

	if cfg.LocalIP != "" {
		entry.WithFields(logger.Fields{"local_ip": cfg.LocalIP}).Warn("kucoin SDK dials on its own transport; local_ip is ignored")
	}
	client := sdkapi.NewClient(clientOption(cfg, reader, nil))
	return &Connector{
		market:  client.RestService().GetFuturesService().GetMarketAPI(),
		session: session,
		log:     entry,
	}
}

// agentInterceptor stamps the configured User-Agent on requests the SDK
// sends through its own http.Client.
type agentInterceptor string

func (a agentInterceptor) Before(req *http.Request) (*http.Request, error) {
	req.Header.Set("User-Agent", string(a))
	return req, nil
}

func (a agentInterceptor) After(_ *http.Request, resp *http.Response, err error) (*http.Response, error) {
	return resp, err
}

// clientOption mirrors the pooled transport settings onto the SDK client.
// The SDK keeps its http.Transport private, so keep-alive is off and no
// connection outlives the request that opened it.
func clientOption(cfg config.VenueConfig, reader config.ReaderConfig, ws *sdktype.WebSocketClientOption) *sdktype.ClientOption {
	pool := cfg.ConnectionPool
	tb := sdktype.NewTransportOptionBuilder().
		SetKeepAlive(false).
		SetMaxIdleConns(pool.MaxIdleConns).
		SetMaxIdleConnsPerHost(pool.MaxIdleConns).
		SetMaxConnsPerHost(pool.MaxConnsPerHost).
		SetIdleConnTimeout(pool.IdleConnTimeout).
		SetTimeout(reader.Timeout)
	if reader.UserAgent != "" {
		tb = tb.AddInterceptors(agentInterceptor(reader.UserAgent))
	}
	transport := tb.Build()

	builder := sdktype.NewClientOptionBuilder().
		WithKey(cfg.APIKey).
		WithSecret(cfg.APISecret).
		WithPassphrase(cfg.APIPassphrase).
		WithFuturesEndpoint(BaseURL(cfg)).
		WithTransportOption(transport)
	if ws != nil {
		builder = builder.WithWebSocketClientOption(ws)
	}
	return builder.Build()
}

// BaseURL resolves the futures REST endpoint for cfg.
func BaseURL(cfg config.VenueConfig) string {
	if cfg.BaseURL != "" {
		return strings.TrimRight(cfg.BaseURL, "/")
	}
	if cfg.Testnet {
		return testnetBaseURL
	}
	return defaultBaseURL
}

func (c *Connector) ID() string { return Name }

// Close stops the throttle so later calls fail. The SDK transport holds no
// idle connections to release.
func (c *Connector) Close() error { return c.session.Close() }

func marketID(sym string) (string, error) {
	id, err := symbols.ToVenue(Name, sym)
	if err != nil {
		return "", venue.Wrap(Name, "symbol", err)
	}
	return id, nil
}

// nanos converts KuCoin's nanosecond timestamps.
func nanos(n venue.Number) time.Time {
	v, err := strconv.ParseInt(n.String(), 10, 64)
	if err != nil || v <= 0 {
		return time.Time{}
	}
	return time.Unix(0, v).UTC()
}

type tickerData struct {
	Symbol       string       `json:"symbol"`
	Price        venue.Number `json:"price"`
	BestBidPrice venue.Number `json:"bestBidPrice"`
	BestAskPrice venue.Number `json:"bestAskPrice"`
	Ts           venue.Number `json:"ts"`
}

func (c *Connector) FetchTicker(ctx context.Context, symbol string) (models.Ticker, error) {
	id, err := marketID(symbol)
	if err != nil {
		return models.Ticker{}, err
	}
	var data tickerData
	if err := c.session.Call(ctx, "fetch_ticker", func() error {
		req := futuresmarket.NewGetTickerReqBuilder().SetSymbol(id).Build()
		resp, err := c.market.GetTicker(req, ctx)
		if err != nil {
			return err
		}
		return venue.Roundtrip(resp, &data)
	}); err != nil {
		return models.Ticker{}, err
	}
	return models.Ticker{
		Venue:     Name,
		Symbol:    symbol,
		Last:      data.Price.Opt(),
		Close:     data.Price.Opt(),
		Bid:       data.BestBidPrice.Opt(),
		Ask:       data.BestAskPrice.Opt(),
		Timestamp: venue.TimeOrNow(nanos(data.Ts)),
	}, nil
}

type bookData struct {
	Sequence int64            `json:"sequence"`
	Bids     [][]venue.Number `json:"bids"`
	Asks     [][]venue.Number `json:"asks"`
	Ts       venue.Number     `json:"ts"`
}

func levels(raw [][]venue.Number) []models.PriceLevel {
	out := make([]models.PriceLevel, 0, len(raw))
	for _, l := range raw {
		if len(l) < 2 {
			continue
		}
		out = append(out, models.PriceLevel{Price: l[0].Float(), Amount: l[1].Float()})
	}
	return out
}

func truncate(ob models.OrderBook, limit int) models.OrderBook {
	if limit <= 0 {
		return ob
	}
	if len(ob.Bids) > limit {
		ob.Bids = ob.Bids[:limit]
	}
	if len(ob.Asks) > limit {
		ob.Asks = ob.Asks[:limit]
	}
	return ob
}

func (c *Connector) FetchOrderBook(ctx context.Context, symbol string, limit int) (models.OrderBook, error) {
	id, err := marketID(symbol)
	if err != nil {
		return models.OrderBook{}, err
	}
	size := "20"
	if limit > 20 {
		size = "100"
	}
	var data bookData
	if err := c.session.Call(ctx, "fetch_order_book", func() error {
		req := futuresmarket.NewGetPartOrderBookReqBuilder().SetSize(size).SetSymbol(id).Build()
		resp, err := c.market.GetPartOrderBook(req, ctx)
		if err != nil {
			return err
		}
		return venue.Roundtrip(resp, &data)
	}); err != nil {
		return models.OrderBook{}, err
	}
	nonce := data.Sequence
	ob := models.NewOrderBook(Name, symbol, levels(data.Bids), levels(data.Asks), venue.TimeOrNow(nanos(data.Ts)), &nonce)
	return truncate(ob, limit), nil
}

var granularities = map[int64]bool{1: true, 5: true, 15: true, 30: true, 60: true, 120: true, 240: true, 480: true, 720: true, 1440: true, 10080: true}

// granularity maps a timeframe onto KuCoin's kline granularity in minutes.
func granularity(timeframe string) (int64, error) {
	d, err := venue.ParseTimeframe(timeframe)
	if err != nil {
		return 0, err
	}
	minutes := int64(d / time.Minute)
	if !granularities[minutes] {
		return 0, fmt.Errorf("unsupported timeframe %q", timeframe)
	}
	return minutes, nil
}

func (c *Connector) FetchCandles(ctx context.Context, symbol, timeframe string, since *time.Time, limit int) (models.CandleSeries, error) {
	id, err := marketID(symbol)
	if err != nil {
		return models.CandleSeries{}, err
	}
	gran, err := granularity(timeframe)
	if err != nil {
		return models.CandleSeries{}, venue.Wrap(Name, "fetch_candles", err)
	}

	builder := futuresmarket.NewGetKlinesReqBuilder().SetSymbol(id).SetGranularity(gran)
	if since != nil {
		builder = builder.SetFrom(since.UnixMilli())
		if limit > 0 {
			builder = builder.SetTo(since.Add(time.Duration(int64(limit)*gran) * time.Minute).UnixMilli())
		}
	}

	var data struct {
		Data [][]venue.Number `json:"data"`
	}
	if err := c.session.Call(ctx, "fetch_candles", func() error {
		resp, err := c.market.GetKlines(builder.Build(), ctx)
		if err != nil {
			return err
		}
		return venue.Roundtrip(resp, &data)
	}); err != nil {
		return models.CandleSeries{}, err
	}

	candles := make([]models.Candle, 0, len(data.Data))
	for _, row := range data.Data {
		if len(row) < 6 {
			continue
		}
		candles = append(candles, models.Candle{
			Timestamp: row[0].Millis(),
			Open:      row[1].Float(),
			High:      row[2].Float(),
			Low:       row[3].Float(),
			Close:     row[4].Float(),
			Volume:    row[5].Float(),
		})
	}
	series := models.NewCandleSeries(Name, symbol, timeframe, candles)
	if limit > 0 && len(series.Candles) > limit {
		series.Candles = series.Candles[len(series.Candles)-limit:]
	}
	return series, nil
}

type contractData struct {
	Symbol              string       `json:"symbol"`
	MarkPrice           venue.Number `json:"markPrice"`
	IndexPrice          venue.Number `json:"indexPrice"`
	FundingFeeRate      venue.Number `json:"fundingFeeRate"`
	NextFundingRateTime venue.Number `json:"nextFundingRateTime"`
}

// FetchFundingRate reads the contract details. nextFundingRateTime is the
// time remaining until settlement, in milliseconds.
func (c *Connector) FetchFundingRate(ctx context.Context, symbol string) (models.FundingRate, error) {
	id, err := marketID(symbol)
	if err != nil {
		return models.FundingRate{}, err
	}
	var data contractData
	if err := c.session.Call(ctx, "fetch_funding_rate", func() error {
		req := futuresmarket.NewGetSymbolReqBuilder().SetSymbol(id).Build()
		resp, err := c.market.GetSymbol(req, ctx)
		if err != nil {
			return err
		}
		return venue.Roundtrip(resp, &data)
	}); err != nil {
		return models.FundingRate{}, err
	}

	now := time.Now().UTC()
	fr := models.FundingRate{
		Venue:      Name,
		Symbol:     symbol,
		Rate:       data.FundingFeeRate.Opt(),
		MarkPrice:  data.MarkPrice.Opt(),
		IndexPrice: data.IndexPrice.Opt(),
		Timestamp:  now,
	}
	if remaining, ok := venue.ParseFloat(data.NextFundingRateTime.String()); ok && remaining > 0 {
		next := now.Add(time.Duration(remaining) * time.Millisecond)
		fr.NextFundingTime = &next
	}
	return fr, nil
}

func (c *Connector) FetchStatus(ctx context.Context) (models.VenueStatus, error) {
	var data struct {
		Status string `json:"status"`
		Msg    string `json:"msg"`
	}
	if err := c.session.Call(ctx, "fetch_status", func() error {
		resp, err := c.market.GetServiceStatus(ctx)
		if err != nil {
			return err
		}
		return venue.Roundtrip(resp, &data)
	}); err != nil {
		return models.VenueStatus{}, err
	}
	status := "ok"
	if !strings.EqualFold(data.Status, "open") {
		status = "maintenance"
	}
	now := time.Now().UTC()
	return models.VenueStatus{Venue: Name, Status: status, Updated: &now}, nil
}

func (c *Connector) FetchBalance(context.Context) (models.BalanceSnapshot, error) {
	return models.BalanceSnapshot{}, venue.Unsupported(Name, "fetch_balance")
}

func (c *Connector) FetchPositions(context.Context, []string) ([]models.Position, error) {
	return nil, venue.Unsupported(Name, "fetch_positions")
}

func (c *Connector) CreateOrder(context.Context, models.OrderRequest) (models.OrderResult, error) {
	return models.OrderResult{}, venue.Unsupported(Name, "create_order")
}

func (c *Connector) CancelOrder(context.Context, string, string) (models.OrderResult, error) {
	return models.OrderResult{}, venue.Unsupported(Name, "cancel_order")
}

func (c *Connector) FetchOrder(context.Context, string, string) (models.OrderResult, error) {
	return models.OrderResult{}, venue.Unsupported(Name, "fetch_order")
}

func (c *Connector) FetchOpenOrders(context.Context, string) ([]models.OrderResult, error) {
	return nil, venue.Unsupported(Name, "fetch_open_orders")
}

func (c *Connector) FetchClosedOrders(context.Context, string) ([]models.OrderResult, error) {
	return nil, venue.Unsupported(Name, "fetch_closed_orders")
}

func (c *Connector) SetLeverage(context.Context, int, string) error {
	return venue.Unsupported(Name, "set_leverage")
}

func (c *Connector) SetMarginMode(context.Context, models.MarginMode, string) error {
	return venue.Unsupported(Name, "set_margin_mode")
}
