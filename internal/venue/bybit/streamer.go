package bybit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"atlas/config"
	"atlas/internal/venue"
	"atlas/logger"
	"atlas/models"
)

const (
	defaultWSURL = "wss://stream.bybit.com/v5/public/linear"
	testnetWSURL = "wss://stream-testnet.bybit.com/v5/public/linear"
)

var heartbeat = map[string]string{"op": "ping"}

// Streamer opens public v5 linear streams.
type Streamer struct {
	wsURL   string
	localIP string
	log     *logger.Entry
}

func NewStreamer(cfg config.VenueConfig, log *logger.Log) *Streamer {
	url := strings.TrimRight(cfg.WSURL, "/")
	if url == "" {
		url = defaultWSURL
		if cfg.Testnet {
			url = testnetWSURL
		}
	}
	return &Streamer{wsURL: url, localIP: cfg.LocalIP, log: log.WithComponent(component)}
}

func (s *Streamer) ID() string { return Name }

type subscribe struct {
	Op   string   `json:"op"`
	Args []string `json:"args"`
}

// frame is the envelope of every topic push. Acks and pongs carry no topic.
type frame struct {
	Topic string          `json:"topic"`
	Type  string          `json:"type"`
	Ts    venue.Number    `json:"ts"`
	Data  json.RawMessage `json:"data"`
}

func (s *Streamer) WatchTicker(ctx context.Context, symbol string) (venue.Subscription[models.Ticker], error) {
	id, err := marketID(symbol)
	if err != nil {
		return nil, err
	}
	topic := "tickers." + id
	state := &tickerState{}
	spec := venue.StreamSpec[models.Ticker]{
		URL:       s.wsURL,
		Subscribe: subscribe{Op: "subscribe", Args: []string{topic}},
		Heartbeat: heartbeat,
		LocalIP:   s.localIP,
		Decode: func(raw []byte) (models.Ticker, bool, error) {
			return state.decode(symbol, topic, raw)
		},
	}
	feed, err := venue.OpenStream(ctx, spec, s.log)
	if err != nil {
		return nil, venue.Wrap(Name, "watch_ticker", err)
	}
	return feed, nil
}

// tickerState merges delta pushes onto the last snapshot.
type tickerState struct {
	fields map[string]json.RawMessage
}

func (st *tickerState) decode(symbol, topic string, raw []byte) (models.Ticker, bool, error) {
	var f frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return models.Ticker{}, false, err
	}
	if f.Topic != topic || len(f.Data) == 0 {
		return models.Ticker{}, false, nil
	}
	var update map[string]json.RawMessage
	if err := json.Unmarshal(f.Data, &update); err != nil {
		return models.Ticker{}, false, err
	}
	if f.Type == "snapshot" || st.fields == nil {
		st.fields = map[string]json.RawMessage{}
	}
	for k, v := range update {
		st.fields[k] = v
	}
	var item tickerItem
	if err := venue.Roundtrip(st.fields, &item); err != nil {
		return models.Ticker{}, false, err
	}
	return tickerFromItem(symbol, item, venue.TimeOrNow(f.Ts.Millis())), true, nil
}

// bookDepth rounds depth up to a supported linear orderbook stream depth.
func bookDepth(depth int) int {
	switch {
	case depth == 1:
		return 1
	case depth > 0 && depth <= 50:
		return 50
	default:
		return 200
	}
}

func (s *Streamer) WatchOrderBook(ctx context.Context, symbol string, depth int) (venue.Subscription[models.OrderBook], error) {
	id, err := marketID(symbol)
	if err != nil {
		return nil, err
	}
	topic := fmt.Sprintf("orderbook.%d.%s", bookDepth(depth), id)
	state := newBookState()
	spec := venue.StreamSpec[models.OrderBook]{
		URL:       s.wsURL,
		Subscribe: subscribe{Op: "subscribe", Args: []string{topic}},
		Heartbeat: heartbeat,
		LocalIP:   s.localIP,
		Decode: func(raw []byte) (models.OrderBook, bool, error) {
			return state.decode(symbol, topic, depth, raw)
		},
	}
	feed, err := venue.OpenStream(ctx, spec, s.log)
	if err != nil {
		return nil, venue.Wrap(Name, "watch_order_book", err)
	}
	return feed, nil
}

// bookState keeps the local book that deltas apply to. A zero size removes
// the level.
type bookState struct {
	bids, asks map[string]venue.Number
	synced     bool
}

func newBookState() *bookState {
	return &bookState{bids: map[string]venue.Number{}, asks: map[string]venue.Number{}}
}

func (st *bookState) decode(symbol, topic string, depth int, raw []byte) (models.OrderBook, bool, error) {
	var f frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return models.OrderBook{}, false, err
	}
	if f.Topic != topic || len(f.Data) == 0 {
		return models.OrderBook{}, false, nil
	}
	var data bookResult
	if err := json.Unmarshal(f.Data, &data); err != nil {
		return models.OrderBook{}, false, err
	}

	switch f.Type {
	case "snapshot":
		st.bids = map[string]venue.Number{}
		st.asks = map[string]venue.Number{}
		st.synced = true
	case "delta":
		if !st.synced {
			return models.OrderBook{}, false, nil
		}
	}
	apply(st.bids, data.Bids)
	apply(st.asks, data.Asks)

	nonce := data.Update
	ts := venue.TimeOrNow(f.Ts.Millis())
	ob := models.NewOrderBook(Name, symbol, flatten(st.bids), flatten(st.asks), ts, &nonce)
	return truncate(ob, depth), true, nil
}

func apply(side map[string]venue.Number, raw [][]venue.Number) {
	for _, l := range raw {
		if len(l) < 2 {
			continue
		}
		if l[1].Float() == 0 {
			delete(side, l[0].String())
			continue
		}
		side[l[0].String()] = l[1]
	}
}

func flatten(side map[string]venue.Number) []models.PriceLevel {
	out := make([]models.PriceLevel, 0, len(side))
	for price, amount := range side {
		out = append(out, models.PriceLevel{Price: venue.Float(price), Amount: amount.Float()})
	}
	return out
}
