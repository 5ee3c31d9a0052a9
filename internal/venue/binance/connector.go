// Package binance implements the venue contract for Binance USDⓈ-M futures.
package binance

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"atlas/config"
	"atlas/internal/symbols"
	"atlas/internal/venue"
	"atlas/logger"
	"atlas/models"

	"github.com/adshao/go-binance/v2/common"
	futures "github.com/adshao/go-binance/v2/futures"
	"github.com/google/uuid"
)

const (
	Name      = "binance"
	component = "binance_connector"

	defaultBaseURL = "https://fapi.binance.com"
	testnetBaseURL = "https://testnet.binancefuture.com"

	// codeNoNeedToChangeMarginType is returned when the margin type already matches.
	codeNoNeedToChangeMarginType = -4046
)

// Connector talks to Binance futures REST through go-binance.
type Connector struct {
	client  *futures.Client
	session *venue.Session
	log     *logger.Entry
}

// New builds an authenticated connector. Empty credentials still allow public calls.
func New(cfg config.VenueConfig, reader config.ReaderConfig, log *logger.Log) *Connector {
	entry := log.WithComponent(component)
	session := venue.NewSession(Name, cfg, reader, entry)
	session.Translate = translateError

	client := futures.NewClient(cfg.APIKey, cfg.APISecret)
	client.HTTPClient = session.Client
	client.SetApiEndpoint(BaseURL(cfg))

	return &Connector{client: client, session: session, log: entry}
}

// BaseURL resolves the REST endpoint for cfg.
func BaseURL(cfg config.VenueConfig) string {
	if cfg.BaseURL != "" {
		return strings.TrimRight(cfg.BaseURL, "/")
	}
	if cfg.Testnet {
		return testnetBaseURL
	}
	return defaultBaseURL
}

func translateError(err error) error {
	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		return &venue.APIError{Code: strconv.FormatInt(apiErr.Code, 10), Message: apiErr.Message}
	}
	return err
}

func (c *Connector) ID() string { return Name }

func (c *Connector) Close() error { return c.session.Close() }

func marketID(sym string) (string, error) {
	id, err := symbols.ToVenue(Name, sym)
	if err != nil {
		return "", venue.Wrap(Name, "symbol", err)
	}
	return id, nil
}

type tickerStats struct {
	Symbol      string       `json:"symbol"`
	LastPrice   venue.Number `json:"lastPrice"`
	OpenPrice   venue.Number `json:"openPrice"`
	HighPrice   venue.Number `json:"highPrice"`
	LowPrice    venue.Number `json:"lowPrice"`
	Volume      venue.Number `json:"volume"`
	QuoteVolume venue.Number `json:"quoteVolume"`
	CloseTime   venue.Number `json:"closeTime"`
}

type bookTicker struct {
	BidPrice venue.Number `json:"bidPrice"`
	AskPrice venue.Number `json:"askPrice"`
}

func (c *Connector) FetchTicker(ctx context.Context, symbol string) (models.Ticker, error) {
	id, err := marketID(symbol)
	if err != nil {
		return models.Ticker{}, err
	}

	var stats []tickerStats
	if err := c.session.Call(ctx, "fetch_ticker", func() error {
		res, err := c.client.NewListPriceChangeStatsService().Symbol(id).Do(ctx)
		if err != nil {
			return err
		}
		return venue.Roundtrip(res, &stats)
	}); err != nil {
		return models.Ticker{}, err
	}
	if len(stats) == 0 {
		return models.Ticker{}, venue.Wrap(Name, "fetch_ticker", fmt.Errorf("no ticker for %s", id))
	}

	var books []bookTicker
	if err := c.session.Call(ctx, "fetch_book_ticker", func() error {
		res, err := c.client.NewListBookTickersService().Symbol(id).Do(ctx)
		if err != nil {
			return err
		}
		return venue.Roundtrip(res, &books)
	}); err != nil {
		return models.Ticker{}, err
	}

	s := stats[0]
	t := models.Ticker{
		Venue:       Name,
		Symbol:      symbol,
		Last:        s.LastPrice.Opt(),
		Close:       s.LastPrice.Opt(),
		Open:        s.OpenPrice.Opt(),
		High:        s.HighPrice.Opt(),
		Low:         s.LowPrice.Opt(),
		BaseVolume:  s.Volume.Opt(),
		QuoteVolume: s.QuoteVolume.Opt(),
		Timestamp:   venue.TimeOrNow(s.CloseTime.Millis()),
	}
	if len(books) > 0 {
		t.Bid = books[0].BidPrice.Opt()
		t.Ask = books[0].AskPrice.Opt()
	}
	return t, nil
}

var depthLimits = []int{5, 10, 20, 50, 100, 500, 1000}

// depthLimit rounds limit up to a depth the endpoint accepts.
func depthLimit(limit int) int {
	if limit <= 0 {
		return 100
	}
	for _, l := range depthLimits {
		if limit <= l {
			return l
		}
	}
	return depthLimits[len(depthLimits)-1]
}

func (c *Connector) FetchOrderBook(ctx context.Context, symbol string, limit int) (models.OrderBook, error) {
	id, err := marketID(symbol)
	if err != nil {
		return models.OrderBook{}, err
	}

	var res *futures.DepthResponse
	if err := c.session.Call(ctx, "fetch_order_book", func() error {
		var err error
		res, err = c.client.NewDepthService().Symbol(id).Limit(depthLimit(limit)).Do(ctx)
		return err
	}); err != nil {
		return models.OrderBook{}, err
	}

	bids := make([]models.PriceLevel, 0, len(res.Bids))
	for _, b := range res.Bids {
		bids = append(bids, models.PriceLevel{Price: venue.Float(b.Price), Amount: venue.Float(b.Quantity)})
	}
	asks := make([]models.PriceLevel, 0, len(res.Asks))
	for _, a := range res.Asks {
		asks = append(asks, models.PriceLevel{Price: venue.Float(a.Price), Amount: venue.Float(a.Quantity)})
	}
	nonce := res.LastUpdateID
	ob := models.NewOrderBook(Name, symbol, bids, asks, time.Now(), &nonce)
	return truncateBook(ob, limit), nil
}

func truncateBook(ob models.OrderBook, limit int) models.OrderBook {
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

func (c *Connector) FetchCandles(ctx context.Context, symbol, timeframe string, since *time.Time, limit int) (models.CandleSeries, error) {
	id, err := marketID(symbol)
	if err != nil {
		return models.CandleSeries{}, err
	}
	if _, err := venue.ParseTimeframe(timeframe); err != nil {
		return models.CandleSeries{}, venue.Wrap(Name, "fetch_candles", err)
	}

	var klines []*futures.Kline
	if err := c.session.Call(ctx, "fetch_candles", func() error {
		svc := c.client.NewKlinesService().Symbol(id).Interval(timeframe)
		if since != nil {
			svc = svc.StartTime(since.UnixMilli())
		}
		if limit > 0 {
			svc = svc.Limit(limit)
		}
		var err error
		klines, err = svc.Do(ctx)
		return err
	}); err != nil {
		return models.CandleSeries{}, err
	}

	candles := make([]models.Candle, 0, len(klines))
	for _, k := range klines {
		candles = append(candles, models.Candle{
			Timestamp: time.UnixMilli(k.OpenTime).UTC(),
			Open:      venue.Float(k.Open),
			High:      venue.Float(k.High),
			Low:       venue.Float(k.Low),
			Close:     venue.Float(k.Close),
			Volume:    venue.Float(k.Volume),
		})
	}
	return models.NewCandleSeries(Name, symbol, timeframe, candles), nil
}

type premiumIndex struct {
	Symbol          string       `json:"symbol"`
	MarkPrice       venue.Number `json:"markPrice"`
	IndexPrice      venue.Number `json:"indexPrice"`
	LastFundingRate venue.Number `json:"lastFundingRate"`
	NextFundingTime venue.Number `json:"nextFundingTime"`
	Time            venue.Number `json:"time"`
}

func (c *Connector) FetchFundingRate(ctx context.Context, symbol string) (models.FundingRate, error) {
	id, err := marketID(symbol)
	if err != nil {
		return models.FundingRate{}, err
	}

	var items []premiumIndex
	if err := c.session.Call(ctx, "fetch_funding_rate", func() error {
		res, err := c.client.NewPremiumIndexService().Symbol(id).Do(ctx)
		if err != nil {
			return err
		}
		return venue.Roundtrip(res, &items)
	}); err != nil {
		return models.FundingRate{}, err
	}
	if len(items) == 0 {
		return models.FundingRate{}, venue.Wrap(Name, "fetch_funding_rate", fmt.Errorf("no premium index for %s", id))
	}

	p := items[0]
	fr := models.FundingRate{
		Venue:      Name,
		Symbol:     symbol,
		Rate:       p.LastFundingRate.Opt(),
		MarkPrice:  p.MarkPrice.Opt(),
		IndexPrice: p.IndexPrice.Opt(),
		Timestamp:  venue.TimeOrNow(p.Time.Millis()),
	}
	if next := p.NextFundingTime.Millis(); !next.IsZero() {
		fr.NextFundingTime = &next
	}
	return fr, nil
}

func (c *Connector) FetchStatus(ctx context.Context) (models.VenueStatus, error) {
	if err := c.session.Call(ctx, "fetch_status", func() error {
		return c.client.NewPingService().Do(ctx)
	}); err != nil {
		return models.VenueStatus{}, err
	}
	now := time.Now().UTC()
	return models.VenueStatus{Venue: Name, Status: "ok", Updated: &now}, nil
}

func (c *Connector) FetchBalance(ctx context.Context) (models.BalanceSnapshot, error) {
	var balances []*futures.Balance
	if err := c.session.Call(ctx, "fetch_balance", func() error {
		var err error
		balances, err = c.client.NewGetBalanceService().Do(ctx)
		return err
	}); err != nil {
		return models.BalanceSnapshot{}, err
	}

	snap := models.BalanceSnapshot{Venue: Name, Timestamp: time.Now().UTC(), Currencies: map[string]models.Balance{}}
	for _, b := range balances {
		total := venue.OptFloat(b.Balance)
		free := venue.OptFloat(b.AvailableBalance)
		if total == nil && free == nil {
			continue
		}
		snap.Currencies[strings.ToUpper(b.Asset)] = models.NewBalance(free, nil, total)
	}
	return snap, nil
}

type positionRisk struct {
	Symbol           string       `json:"symbol"`
	PositionAmt      venue.Number `json:"positionAmt"`
	EntryPrice       venue.Number `json:"entryPrice"`
	MarkPrice        venue.Number `json:"markPrice"`
	LiquidationPrice venue.Number `json:"liquidationPrice"`
	Leverage         venue.Number `json:"leverage"`
	Notional         venue.Number `json:"notional"`
	UnRealizedProfit venue.Number `json:"unRealizedProfit"`
	MarginType       string       `json:"marginType"`
}

func (c *Connector) FetchPositions(ctx context.Context, syms []string) ([]models.Position, error) {
	var risks []positionRisk
	if err := c.session.Call(ctx, "fetch_positions", func() error {
		res, err := c.client.NewGetPositionRiskService().Do(ctx)
		if err != nil {
			return err
		}
		return venue.Roundtrip(res, &risks)
	}); err != nil {
		return nil, err
	}

	wanted := map[string]bool{}
	for _, s := range syms {
		if id, err := symbols.ToVenue(Name, s); err == nil {
			wanted[id] = true
		}
	}

	positions := []models.Position{}
	for _, r := range risks {
		amt := r.PositionAmt.Float()
		if amt == 0 {
			continue
		}
		if len(wanted) > 0 && !wanted[r.Symbol] {
			continue
		}
		side := models.PositionLong
		if amt < 0 {
			side = models.PositionShort
		}
		var notional *float64
		if n := r.Notional.Opt(); n != nil {
			v := math.Abs(*n)
			notional = &v
		}
		positions = append(positions, models.Position{
			Symbol:           symbols.ToUnified(Name, r.Symbol),
			Side:             side,
			Contracts:        math.Abs(amt),
			Notional:         notional,
			Leverage:         r.Leverage.Opt(),
			EntryPrice:       r.EntryPrice.Opt(),
			MarkPrice:        r.MarkPrice.Opt(),
			LiquidationPrice: venue.PositiveFloat(r.LiquidationPrice.String()),
			MarginMode:       marginMode(r.MarginType),
			UnrealizedPnl:    r.UnRealizedProfit.Opt(),
		})
	}
	return positions, nil
}

func marginMode(s string) models.MarginMode {
	m, err := models.ParseMarginMode(s)
	if err != nil {
		return ""
	}
	return m
}

type orderPayload struct {
	Symbol        string       `json:"symbol"`
	OrderID       venue.Number `json:"orderId"`
	ClientOrderID string       `json:"clientOrderId"`
	Status        string       `json:"status"`
	Price         venue.Number `json:"price"`
	AvgPrice      venue.Number `json:"avgPrice"`
	OrigQuantity  venue.Number `json:"origQty"`
	ExecutedQty   venue.Number `json:"executedQty"`
	UpdateTime    venue.Number `json:"updateTime"`
	Time          venue.Number `json:"time"`
}

func (p orderPayload) result(symbol string) models.OrderResult {
	filled := math.Max(p.ExecutedQty.Float(), 0)
	remaining := math.Max(p.OrigQuantity.Float()-filled, 0)

	price := venue.PositiveFloat(p.AvgPrice.String())
	if price == nil {
		price = venue.PositiveFloat(p.Price.String())
	}

	ts := p.UpdateTime.Millis()
	if ts.IsZero() {
		ts = p.Time.Millis()
	}
	if symbol == "" {
		symbol = symbols.ToUnified(Name, p.Symbol)
	}

	return models.OrderResult{
		Venue:         Name,
		OrderID:       p.OrderID.String(),
		ClientOrderID: p.ClientOrderID,
		Symbol:        symbol,
		Status:        strings.ToLower(p.Status),
		Filled:        filled,
		Remaining:     remaining,
		Price:         price,
		Timestamp:     venue.TimeOrNow(ts),
	}
}

func (c *Connector) CreateOrder(ctx context.Context, req models.OrderRequest) (models.OrderResult, error) {
	id, err := marketID(req.Symbol)
	if err != nil {
		return models.OrderResult{}, err
	}

	clientID, ok := req.Param(models.ParamClientOrderID)
	if !ok || clientID == "" {
		clientID = uuid.NewString()
	}

	svc := c.client.NewCreateOrderService().
		Symbol(id).
		Side(futures.SideType(strings.ToUpper(string(req.Side)))).
		Type(futures.OrderType(strings.ToUpper(string(req.Type)))).
		Quantity(venue.FormatAmount(req.Amount)).
		NewClientOrderID(clientID)

	if req.Type == models.OrderTypeLimit {
		tif := futures.TimeInForceTypeGTC
		if v, ok := req.Param(models.ParamTimeInForce); ok && v != "" {
			tif = futures.TimeInForceType(strings.ToUpper(v))
		}
		svc = svc.Price(venue.FormatAmount(*req.Price)).TimeInForce(tif)
	}
	if v, ok := req.Param(models.ParamReduceOnly); ok {
		if b, err := strconv.ParseBool(v); err == nil && b {
			svc = svc.ReduceOnly(true)
		}
	}
	if v, ok := req.Param(models.ParamPositionSide); ok && v != "" {
		svc = svc.PositionSide(futures.PositionSideType(strings.ToUpper(v)))
	}

	var payload orderPayload
	if err := c.session.Call(ctx, "create_order", func() error {
		res, err := svc.Do(ctx)
		if err != nil {
			return err
		}
		return venue.Roundtrip(res, &payload)
	}); err != nil {
		return models.OrderResult{}, err
	}
	return payload.result(req.Symbol), nil
}

func (c *Connector) CancelOrder(ctx context.Context, symbol, orderID string) (models.OrderResult, error) {
	id, err := marketID(symbol)
	if err != nil {
		return models.OrderResult{}, err
	}

	svc := c.client.NewCancelOrderService().Symbol(id)
	if n, err := strconv.ParseInt(orderID, 10, 64); err == nil {
		svc = svc.OrderID(n)
	} else {
		svc = svc.OrigClientOrderID(orderID)
	}

	var payload orderPayload
	if err := c.session.Call(ctx, "cancel_order", func() error {
		res, err := svc.Do(ctx)
		if err != nil {
			return err
		}
		return venue.Roundtrip(res, &payload)
	}); err != nil {
		return models.OrderResult{}, err
	}
	return payload.result(symbol), nil
}

func (c *Connector) FetchOrder(ctx context.Context, symbol, orderID string) (models.OrderResult, error) {
	id, err := marketID(symbol)
	if err != nil {
		return models.OrderResult{}, err
	}

	svc := c.client.NewGetOrderService().Symbol(id)
	if n, err := strconv.ParseInt(orderID, 10, 64); err == nil {
		svc = svc.OrderID(n)
	} else {
		svc = svc.OrigClientOrderID(orderID)
	}

	var payload orderPayload
	if err := c.session.Call(ctx, "fetch_order", func() error {
		res, err := svc.Do(ctx)
		if err != nil {
			return err
		}
		return venue.Roundtrip(res, &payload)
	}); err != nil {
		return models.OrderResult{}, err
	}
	return payload.result(symbol), nil
}

func (c *Connector) FetchOpenOrders(ctx context.Context, symbol string) ([]models.OrderResult, error) {
	svc := c.client.NewListOpenOrdersService()
	if symbol != "" {
		id, err := marketID(symbol)
		if err != nil {
			return nil, err
		}
		svc = svc.Symbol(id)
	}

	var payloads []orderPayload
	if err := c.session.Call(ctx, "fetch_open_orders", func() error {
		res, err := svc.Do(ctx)
		if err != nil {
			return err
		}
		return venue.Roundtrip(res, &payloads)
	}); err != nil {
		return nil, err
	}

	out := make([]models.OrderResult, 0, len(payloads))
	for _, p := range payloads {
		out = append(out, p.result(""))
	}
	return out, nil
}

var closedStatuses = map[string]bool{"filled": true, "canceled": true, "expired": true, "rejected": true}

// FetchClosedOrders needs a symbol; the all-orders endpoint is per symbol.
func (c *Connector) FetchClosedOrders(ctx context.Context, symbol string) ([]models.OrderResult, error) {
	if symbol == "" {
		return nil, venue.Wrap(Name, "fetch_closed_orders", venue.ErrSymbolRequired)
	}
	id, err := marketID(symbol)
	if err != nil {
		return nil, err
	}

	var payloads []orderPayload
	if err := c.session.Call(ctx, "fetch_closed_orders", func() error {
		res, err := c.client.NewListOrdersService().Symbol(id).Do(ctx)
		if err != nil {
			return err
		}
		return venue.Roundtrip(res, &payloads)
	}); err != nil {
		return nil, err
	}

	out := make([]models.OrderResult, 0, len(payloads))
	for _, p := range payloads {
		r := p.result(symbol)
		if closedStatuses[r.Status] {
			out = append(out, r)
		}
	}
	return out, nil
}

func (c *Connector) SetLeverage(ctx context.Context, leverage int, symbol string) error {
	if leverage <= 0 {
		return venue.Wrap(Name, "set_leverage", fmt.Errorf("leverage must be positive, got %d", leverage))
	}
	id, err := marketID(symbol)
	if err != nil {
		return err
	}
	return c.session.Call(ctx, "set_leverage", func() error {
		_, err := c.client.NewChangeLeverageService().Symbol(id).Leverage(leverage).Do(ctx)
		return err
	})
}

func (c *Connector) SetMarginMode(ctx context.Context, mode models.MarginMode, symbol string) error {
	id, err := marketID(symbol)
	if err != nil {
		return err
	}
	marginType := futures.MarginTypeCrossed
	if mode == models.MarginIsolated {
		marginType = futures.MarginTypeIsolated
	}
	return c.session.Call(ctx, "set_margin_mode", func() error {
		err := c.client.NewChangeMarginTypeService().Symbol(id).MarginType(marginType).Do(ctx)
		var apiErr *common.APIError
		if errors.As(err, &apiErr) && apiErr.Code == codeNoNeedToChangeMarginType {
			return nil
		}
		return err
	})
}
