// Package bybit implements the venue contract for Bybit v5 linear perpetuals.
package bybit

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"atlas/config"
	"atlas/internal/symbols"
	"atlas/internal/venue"
	"atlas/logger"
	"atlas/models"

	bybit "github.com/bybit-exchange/bybit.go.api"
	"github.com/google/uuid"
)

const (
	Name      = "bybit"
	component = "bybit_connector"
	category  = "linear"

	defaultBaseURL = "https://api.bybit.com"
	testnetBaseURL = "https://api-testnet.bybit.com"

	codeLeverageNotModified   = 110043
	codeMarginModeNotModified = 110026
)

// Connector talks to Bybit v5 REST through bybit.go.api.
type Connector struct {
	client  *bybit.Client
	session *venue.Session
	log     *logger.Entry
}

// New builds an authenticated connector. Empty credentials still allow public calls.
func New(cfg config.VenueConfig, reader config.ReaderConfig, log *logger.Log) *Connector {
	entry := log.WithComponent(component)
	session := venue.NewSession(Name, cfg, reader, entry)

	client := bybit.NewBybitHttpClient(cfg.APIKey, cfg.APISecret, bybit.WithBaseURL(BaseURL(cfg)))
	client.HTTPClient = session.Client

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

func (c *Connector) ID() string { return Name }

func (c *Connector) Close() error { return c.session.Close() }

type envelope struct {
	RetCode int             `json:"retCode"`
	RetMsg  string          `json:"retMsg"`
	Result  json.RawMessage `json:"result"`
	Time    venue.Number    `json:"time"`
}

// request runs one SDK call, rejects non-zero retCodes other than accept and
// decodes the result into out.
func (c *Connector) request(ctx context.Context, op string, call func() (any, error), out any, accept ...int) error {
	return c.session.Call(ctx, op, func() error {
		resp, err := call()
		if err != nil {
			return err
		}
		var env envelope
		if err := venue.Roundtrip(resp, &env); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		if env.RetCode != 0 {
			for _, code := range accept {
				if env.RetCode == code {
					return nil
				}
			}
			return &venue.APIError{Code: strconv.Itoa(env.RetCode), Message: env.RetMsg}
		}
		if out == nil || len(env.Result) == 0 || string(env.Result) == "null" {
			return nil
		}
		return json.Unmarshal(env.Result, out)
	})
}

func marketID(sym string) (string, error) {
	id, err := symbols.ToVenue(Name, sym)
	if err != nil {
		return "", venue.Wrap(Name, "symbol", err)
	}
	return id, nil
}

type tickerItem struct {
	Symbol          string       `json:"symbol"`
	LastPrice       venue.Number `json:"lastPrice"`
	PrevPrice24h    venue.Number `json:"prevPrice24h"`
	HighPrice24h    venue.Number `json:"highPrice24h"`
	LowPrice24h     venue.Number `json:"lowPrice24h"`
	Volume24h       venue.Number `json:"volume24h"`
	Turnover24h     venue.Number `json:"turnover24h"`
	Bid1Price       venue.Number `json:"bid1Price"`
	Ask1Price       venue.Number `json:"ask1Price"`
	MarkPrice       venue.Number `json:"markPrice"`
	IndexPrice      venue.Number `json:"indexPrice"`
	FundingRate     venue.Number `json:"fundingRate"`
	NextFundingTime venue.Number `json:"nextFundingTime"`
}

func (c *Connector) fetchTickerItem(ctx context.Context, op, symbol string) (tickerItem, error) {
	id, err := marketID(symbol)
	if err != nil {
		return tickerItem{}, err
	}
	var result struct {
		List []tickerItem `json:"list"`
	}
	params := map[string]interface{}{"category": category, "symbol": id}
	if err := c.request(ctx, op, func() (any, error) {
		return c.client.NewUtaBybitServiceWithParams(params).GetMarketTickers(ctx)
	}, &result); err != nil {
		return tickerItem{}, err
	}
	if len(result.List) == 0 {
		return tickerItem{}, venue.Wrap(Name, op, fmt.Errorf("no ticker for %s", id))
	}
	return result.List[0], nil
}

func (c *Connector) FetchTicker(ctx context.Context, symbol string) (models.Ticker, error) {
	item, err := c.fetchTickerItem(ctx, "fetch_ticker", symbol)
	if err != nil {
		return models.Ticker{}, err
	}
	return tickerFromItem(symbol, item, time.Now().UTC()), nil
}

func tickerFromItem(symbol string, item tickerItem, ts time.Time) models.Ticker {
	return models.Ticker{
		Venue:       Name,
		Symbol:      symbol,
		Last:        item.LastPrice.Opt(),
		Close:       item.LastPrice.Opt(),
		Open:        item.PrevPrice24h.Opt(),
		High:        item.HighPrice24h.Opt(),
		Low:         item.LowPrice24h.Opt(),
		Bid:         item.Bid1Price.Opt(),
		Ask:         item.Ask1Price.Opt(),
		BaseVolume:  item.Volume24h.Opt(),
		QuoteVolume: item.Turnover24h.Opt(),
		Mark:        item.MarkPrice.Opt(),
		Index:       item.IndexPrice.Opt(),
		Timestamp:   ts,
	}
}

type bookResult struct {
	Symbol string           `json:"s"`
	Bids   [][]venue.Number `json:"b"`
	Asks   [][]venue.Number `json:"a"`
	Ts     venue.Number     `json:"ts"`
	Update int64            `json:"u"`
}

func (b bookResult) book(symbol string, limit int) models.OrderBook {
	nonce := b.Update
	ob := models.NewOrderBook(Name, symbol, levels(b.Bids), levels(b.Asks), venue.TimeOrNow(b.Ts.Millis()), &nonce)
	return truncate(ob, limit)
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

func (c *Connector) FetchOrderBook(ctx context.Context, symbol string, limit int) (models.OrderBook, error) {
	id, err := marketID(symbol)
	if err != nil {
		return models.OrderBook{}, err
	}
	params := map[string]interface{}{"category": category, "symbol": id}
	if limit > 0 {
		params["limit"] = min(limit, 500)
	}
	var result bookResult
	if err := c.request(ctx, "fetch_order_book", func() (any, error) {
		return c.client.NewUtaBybitServiceWithParams(params).GetOrderBookInfo(ctx)
	}, &result); err != nil {
		return models.OrderBook{}, err
	}
	return result.book(symbol, limit), nil
}

// klineInterval maps a timeframe onto Bybit's interval names.
func klineInterval(timeframe string) (string, error) {
	d, err := venue.ParseTimeframe(timeframe)
	if err != nil {
		return "", err
	}
	switch {
	case d == 24*time.Hour:
		return "D", nil
	case d == 7*24*time.Hour:
		return "W", nil
	case d == 30*24*time.Hour:
		return "M", nil
	}
	minutes := int(d / time.Minute)
	switch minutes {
	case 1, 3, 5, 15, 30, 60, 120, 240, 360, 720:
		return strconv.Itoa(minutes), nil
	}
	return "", fmt.Errorf("unsupported timeframe %q", timeframe)
}

func (c *Connector) FetchCandles(ctx context.Context, symbol, timeframe string, since *time.Time, limit int) (models.CandleSeries, error) {
	id, err := marketID(symbol)
	if err != nil {
		return models.CandleSeries{}, err
	}
	interval, err := klineInterval(timeframe)
	if err != nil {
		return models.CandleSeries{}, venue.Wrap(Name, "fetch_candles", err)
	}

	params := map[string]interface{}{"category": category, "symbol": id, "interval": interval}
	if since != nil {
		params["start"] = since.UnixMilli()
	}
	if limit > 0 {
		params["limit"] = min(limit, 1000)
	}

	var result struct {
		List [][]venue.Number `json:"list"`
	}
	if err := c.request(ctx, "fetch_candles", func() (any, error) {
		return c.client.NewUtaBybitServiceWithParams(params).GetMarketKline(ctx)
	}, &result); err != nil {
		return models.CandleSeries{}, err
	}

	candles := make([]models.Candle, 0, len(result.List))
	for _, row := range result.List {
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
	return models.NewCandleSeries(Name, symbol, timeframe, candles), nil
}

func (c *Connector) FetchFundingRate(ctx context.Context, symbol string) (models.FundingRate, error) {
	item, err := c.fetchTickerItem(ctx, "fetch_funding_rate", symbol)
	if err != nil {
		return models.FundingRate{}, err
	}
	fr := models.FundingRate{
		Venue:      Name,
		Symbol:     symbol,
		Rate:       item.FundingRate.Opt(),
		MarkPrice:  item.MarkPrice.Opt(),
		IndexPrice: item.IndexPrice.Opt(),
		Timestamp:  time.Now().UTC(),
	}
	if next := item.NextFundingTime.Millis(); !next.IsZero() {
		fr.NextFundingTime = &next
	}
	return fr, nil
}

func (c *Connector) FetchStatus(ctx context.Context) (models.VenueStatus, error) {
	var result struct {
		TimeSecond venue.Number `json:"timeSecond"`
	}
	if err := c.request(ctx, "fetch_status", func() (any, error) {
		return c.client.NewUtaBybitServiceWithParams(map[string]interface{}{}).GetServerTime(ctx)
	}, &result); err != nil {
		return models.VenueStatus{}, err
	}
	now := time.Now().UTC()
	return models.VenueStatus{Venue: Name, Status: "ok", Updated: &now}, nil
}

type walletCoin struct {
	Coin            string       `json:"coin"`
	WalletBalance   venue.Number `json:"walletBalance"`
	Locked          venue.Number `json:"locked"`
	TotalOrderIM    venue.Number `json:"totalOrderIM"`
	TotalPositionIM venue.Number `json:"totalPositionIM"`
}

func (c *Connector) FetchBalance(ctx context.Context) (models.BalanceSnapshot, error) {
	var result struct {
		List []struct {
			AccountType string       `json:"accountType"`
			Coin        []walletCoin `json:"coin"`
		} `json:"list"`
	}
	params := map[string]interface{}{"accountType": "UNIFIED"}
	if err := c.request(ctx, "fetch_balance", func() (any, error) {
		return c.client.NewUtaBybitServiceWithParams(params).GetAccountWallet(ctx)
	}, &result); err != nil {
		return models.BalanceSnapshot{}, err
	}

	snap := models.BalanceSnapshot{Venue: Name, Timestamp: time.Now().UTC(), Currencies: map[string]models.Balance{}}
	for _, account := range result.List {
		for _, coin := range account.Coin {
			total := coin.WalletBalance.Opt()
			if total == nil {
				continue
			}
			used := coin.Locked.Float() + coin.TotalOrderIM.Float() + coin.TotalPositionIM.Float()
			used = math.Min(math.Max(used, 0), *total)
			snap.Currencies[strings.ToUpper(coin.Coin)] = models.NewBalance(nil, &used, total)
		}
	}
	return snap, nil
}

type positionItem struct {
	Symbol        string       `json:"symbol"`
	Side          string       `json:"side"`
	Size          venue.Number `json:"size"`
	AvgPrice      venue.Number `json:"avgPrice"`
	PositionValue venue.Number `json:"positionValue"`
	Leverage      venue.Number `json:"leverage"`
	MarkPrice     venue.Number `json:"markPrice"`
	LiqPrice      venue.Number `json:"liqPrice"`
	UnrealisedPnl venue.Number `json:"unrealisedPnl"`
	TradeMode     int          `json:"tradeMode"`
}

func (c *Connector) positionList(ctx context.Context, op string, params map[string]interface{}) ([]positionItem, error) {
	var result struct {
		List []positionItem `json:"list"`
	}
	if err := c.request(ctx, op, func() (any, error) {
		return c.client.NewUtaBybitServiceWithParams(params).GetPositionList(ctx)
	}, &result); err != nil {
		return nil, err
	}
	return result.List, nil
}

func (c *Connector) FetchPositions(ctx context.Context, syms []string) ([]models.Position, error) {
	params := map[string]interface{}{"category": category, "settleCoin": "USDT"}
	if len(syms) == 1 {
		id, err := marketID(syms[0])
		if err != nil {
			return nil, err
		}
		params = map[string]interface{}{"category": category, "symbol": id}
	}
	items, err := c.positionList(ctx, "fetch_positions", params)
	if err != nil {
		return nil, err
	}

	wanted := map[string]bool{}
	for _, s := range syms {
		if id, err := symbols.ToVenue(Name, s); err == nil {
			wanted[id] = true
		}
	}

	positions := []models.Position{}
	for _, p := range items {
		size := p.Size.Float()
		if size == 0 || p.Side == "" {
			continue
		}
		if len(wanted) > 0 && !wanted[p.Symbol] {
			continue
		}
		side := models.PositionLong
		if strings.EqualFold(p.Side, "Sell") {
			side = models.PositionShort
		}
		mode := models.MarginCross
		if p.TradeMode == 1 {
			mode = models.MarginIsolated
		}
		positions = append(positions, models.Position{
			Symbol:           symbols.ToUnified(Name, p.Symbol),
			Side:             side,
			Contracts:        math.Abs(size),
			Notional:         p.PositionValue.Opt(),
			Leverage:         p.Leverage.Opt(),
			EntryPrice:       p.AvgPrice.Opt(),
			MarkPrice:        p.MarkPrice.Opt(),
			LiquidationPrice: venue.PositiveFloat(p.LiqPrice.String()),
			MarginMode:       mode,
			UnrealizedPnl:    p.UnrealisedPnl.Opt(),
		})
	}
	return positions, nil
}

type orderItem struct {
	OrderID     string       `json:"orderId"`
	OrderLinkID string       `json:"orderLinkId"`
	Symbol      string       `json:"symbol"`
	OrderStatus string       `json:"orderStatus"`
	Price       venue.Number `json:"price"`
	AvgPrice    venue.Number `json:"avgPrice"`
	Qty         venue.Number `json:"qty"`
	CumExecQty  venue.Number `json:"cumExecQty"`
	LeavesQty   venue.Number `json:"leavesQty"`
	UpdatedTime venue.Number `json:"updatedTime"`
	CreatedTime venue.Number `json:"createdTime"`
}

func (o orderItem) result(symbol string) models.OrderResult {
	filled := math.Max(o.CumExecQty.Float(), 0)
	remaining := math.Max(o.Qty.Float()-filled, 0)
	if leaves := o.LeavesQty.Opt(); leaves != nil {
		remaining = math.Max(*leaves, 0)
	}
	price := venue.PositiveFloat(o.AvgPrice.String())
	if price == nil {
		price = venue.PositiveFloat(o.Price.String())
	}
	ts := o.UpdatedTime.Millis()
	if ts.IsZero() {
		ts = o.CreatedTime.Millis()
	}
	if symbol == "" {
		symbol = symbols.ToUnified(Name, o.Symbol)
	}
	return models.OrderResult{
		Venue:         Name,
		OrderID:       o.OrderID,
		ClientOrderID: o.OrderLinkID,
		Symbol:        symbol,
		Status:        strings.ToLower(o.OrderStatus),
		Filled:        filled,
		Remaining:     remaining,
		Price:         price,
		Timestamp:     venue.TimeOrNow(ts),
	}
}

func sideParam(s models.Side) string {
	if s == models.SideSell {
		return "Sell"
	}
	return "Buy"
}

// CreateOrder submits the order. The create call only acknowledges ids, so
// the fill state is read back once from the realtime order list. When that
// read fails the acknowledgement is returned as a new order with no known
// remaining amount.
func (c *Connector) CreateOrder(ctx context.Context, req models.OrderRequest) (models.OrderResult, error) {
	id, err := marketID(req.Symbol)
	if err != nil {
		return models.OrderResult{}, err
	}

	linkID, ok := req.Param(models.ParamClientOrderID)
	if !ok || linkID == "" {
		linkID = uuid.NewString()
	}

	params := map[string]interface{}{
		"category":    category,
		"symbol":      id,
		"side":        sideParam(req.Side),
		"orderType":   "Market",
		"qty":         venue.FormatAmount(req.Amount),
		"orderLinkId": linkID,
	}
	if req.Type == models.OrderTypeLimit {
		params["orderType"] = "Limit"
		params["price"] = venue.FormatAmount(*req.Price)
		tif := string(models.TimeInForceGTC)
		if v, ok := req.Param(models.ParamTimeInForce); ok && v != "" {
			tif = strings.ToUpper(v)
		}
		params["timeInForce"] = tif
	}
	if v, ok := req.Param(models.ParamReduceOnly); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			params["reduceOnly"] = b
		}
	}
	if v, ok := req.Param(models.ParamPositionSide); ok {
		switch strings.ToLower(v) {
		case "long":
			params["positionIdx"] = 1
		case "short":
			params["positionIdx"] = 2
		}
	}

	var ack struct {
		OrderID     string `json:"orderId"`
		OrderLinkID string `json:"orderLinkId"`
	}
	if err := c.request(ctx, "create_order", func() (any, error) {
		return c.client.NewUtaBybitServiceWithParams(params).PlaceOrder(ctx)
	}, &ack); err != nil {
		return models.OrderResult{}, err
	}

	lookup := map[string]interface{}{"category": category, "symbol": id, "orderId": ack.OrderID}
	items, err := c.listOrders(ctx, "create_order_status", true, lookup)
	if err == nil {
		for _, o := range items {
			if o.OrderID == ack.OrderID {
				return o.result(req.Symbol), nil
			}
		}
		err = fmt.Errorf("order %s not in realtime list", ack.OrderID)
	}
	c.log.WithError(err).WithFields(logger.Fields{"order_id": ack.OrderID, "symbol": req.Symbol}).
		Warn("order state unavailable after create")

	return models.OrderResult{
		Venue:         Name,
		OrderID:       ack.OrderID,
		ClientOrderID: ack.OrderLinkID,
		Symbol:        req.Symbol,
		Status:        "new",
		Price:         req.Price,
		Timestamp:     time.Now().UTC(),
	}, nil
}

func (c *Connector) CancelOrder(ctx context.Context, symbol, orderID string) (models.OrderResult, error) {
	id, err := marketID(symbol)
	if err != nil {
		return models.OrderResult{}, err
	}
	params := map[string]interface{}{"category": category, "symbol": id, "orderId": orderID}
	var ack struct {
		OrderID     string `json:"orderId"`
		OrderLinkID string `json:"orderLinkId"`
	}
	if err := c.request(ctx, "cancel_order", func() (any, error) {
		return c.client.NewUtaBybitServiceWithParams(params).CancelOrder(ctx)
	}, &ack); err != nil {
		return models.OrderResult{}, err
	}
	if ack.OrderID == "" {
		ack.OrderID = orderID
	}
	return models.OrderResult{
		Venue:         Name,
		OrderID:       ack.OrderID,
		ClientOrderID: ack.OrderLinkID,
		Symbol:        symbol,
		Status:        "canceled",
		Timestamp:     time.Now().UTC(),
	}, nil
}

func (c *Connector) listOrders(ctx context.Context, op string, open bool, params map[string]interface{}) ([]orderItem, error) {
	var result struct {
		List []orderItem `json:"list"`
	}
	if err := c.request(ctx, op, func() (any, error) {
		if open {
			return c.client.NewUtaBybitServiceWithParams(params).GetOpenOrders(ctx)
		}
		return c.client.NewUtaBybitServiceWithParams(params).GetOrderHistory(ctx)
	}, &result); err != nil {
		return nil, err
	}
	return result.List, nil
}

// FetchOrder looks in the open book first and then in history.
func (c *Connector) FetchOrder(ctx context.Context, symbol, orderID string) (models.OrderResult, error) {
	id, err := marketID(symbol)
	if err != nil {
		return models.OrderResult{}, err
	}
	params := map[string]interface{}{"category": category, "symbol": id, "orderId": orderID}
	for _, open := range []bool{true, false} {
		items, err := c.listOrders(ctx, "fetch_order", open, params)
		if err != nil {
			return models.OrderResult{}, err
		}
		for _, o := range items {
			if o.OrderID == orderID || o.OrderLinkID == orderID {
				return o.result(symbol), nil
			}
		}
	}
	return models.OrderResult{}, venue.Wrap(Name, "fetch_order", fmt.Errorf("order %s not found", orderID))
}

func (c *Connector) FetchOpenOrders(ctx context.Context, symbol string) ([]models.OrderResult, error) {
	params := map[string]interface{}{"category": category, "settleCoin": "USDT"}
	if symbol != "" {
		id, err := marketID(symbol)
		if err != nil {
			return nil, err
		}
		params = map[string]interface{}{"category": category, "symbol": id}
	}
	items, err := c.listOrders(ctx, "fetch_open_orders", true, params)
	if err != nil {
		return nil, err
	}
	out := make([]models.OrderResult, 0, len(items))
	for _, o := range items {
		out = append(out, o.result(""))
	}
	return out, nil
}

var closedStatuses = map[string]bool{"filled": true, "cancelled": true, "rejected": true, "deactivated": true}

func (c *Connector) FetchClosedOrders(ctx context.Context, symbol string) ([]models.OrderResult, error) {
	params := map[string]interface{}{"category": category}
	if symbol != "" {
		id, err := marketID(symbol)
		if err != nil {
			return nil, err
		}
		params["symbol"] = id
	}
	items, err := c.listOrders(ctx, "fetch_closed_orders", false, params)
	if err != nil {
		return nil, err
	}
	out := make([]models.OrderResult, 0, len(items))
	for _, o := range items {
		r := o.result("")
		if closedStatuses[r.Status] {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
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
	lev := strconv.Itoa(leverage)
	params := map[string]interface{}{"category": category, "symbol": id, "buyLeverage": lev, "sellLeverage": lev}
	return c.request(ctx, "set_leverage", func() (any, error) {
		return c.client.NewUtaBybitServiceWithParams(params).SetPositionLeverage(ctx)
	}, nil, codeLeverageNotModified)
}

// SetMarginMode switches between cross and isolated. Bybit requires the
// leverage alongside the mode, so the current position is read first.
func (c *Connector) SetMarginMode(ctx context.Context, mode models.MarginMode, symbol string) error {
	id, err := marketID(symbol)
	if err != nil {
		return err
	}
	items, err := c.positionList(ctx, "set_margin_mode", map[string]interface{}{"category": category, "symbol": id})
	if err != nil {
		return err
	}
	lev := "10"
	if len(items) > 0 && items[0].Leverage != "" {
		lev = items[0].Leverage.String()
	}
	tradeMode := 0
	if mode == models.MarginIsolated {
		tradeMode = 1
	}
	params := map[string]interface{}{
		"category":     category,
		"symbol":       id,
		"tradeMode":    tradeMode,
		"buyLeverage":  lev,
		"sellLeverage": lev,
	}
	return c.request(ctx, "set_margin_mode", func() (any, error) {
		return c.client.NewUtaBybitServiceWithParams(params).SwitchPositionMargin(ctx)
	}, nil, codeMarginModeNotModified)
}
