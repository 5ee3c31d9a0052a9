package binance

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
	defaultWSURL = "wss://fstream.binance.com/ws"
	testnetWSURL = "wss://stream.binancefuture.com/ws"
)

// Streamer opens public futures market streams.
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

type wsTicker struct {
	Event       string       `json:"e"`
	Time        venue.Number `json:"E"`
	Symbol      string       `json:"s"`
	Close       venue.Number `json:"c"`
	Open        venue.Number `json:"o"`
	High        venue.Number `json:"h"`
	Low         venue.Number `json:"l"`
	BaseVolume  venue.Number `json:"v"`
	QuoteVolume venue.Number `json:"q"`
}

func (s *Streamer) WatchTicker(ctx context.Context, symbol string) (venue.Subscription[models.Ticker], error) {
	id, err := marketID(symbol)
	if err != nil {
		return nil, err
	}
	spec := venue.StreamSpec[models.Ticker]{
		URL:     fmt.Sprintf("%s/%s@ticker", s.wsURL, strings.ToLower(id)),
		LocalIP: s.localIP,
		Decode: func(raw []byte) (models.Ticker, bool, error) {
			return decodeTicker(symbol, raw)
		},
	}
	feed, err := venue.OpenStream(ctx, spec, s.log)
	if err != nil {
		return nil, venue.Wrap(Name, "watch_ticker", err)
	}
	return feed, nil
}

func decodeTicker(symbol string, raw []byte) (models.Ticker, bool, error) {
	var ev wsTicker
	if err := json.Unmarshal(raw, &ev); err != nil {
		return models.Ticker{}, false, err
	}
	if ev.Event != "24hrTicker" {
		return models.Ticker{}, false, nil
	}
	return models.Ticker{
		Venue:       Name,
		Symbol:      symbol,
		Last:        ev.Close.Opt(),
		Close:       ev.Close.Opt(),
		Open:        ev.Open.Opt(),
		High:        ev.High.Opt(),
		Low:         ev.Low.Opt(),
		BaseVolume:  ev.BaseVolume.Opt(),
		QuoteVolume: ev.QuoteVolume.Opt(),
		Timestamp:   venue.TimeOrNow(ev.Time.Millis()),
	}, true, nil
}

type wsDepth struct {
	Event        string           `json:"e"`
	Time         venue.Number     `json:"E"`
	LastUpdateID int64            `json:"u"`
	Bids         [][]venue.Number `json:"b"`
	Asks         [][]venue.Number `json:"a"`
}

// partialDepth rounds depth up to a partial book stream size.
func partialDepth(depth int) int {
	switch {
	case depth > 0 && depth <= 5:
		return 5
	case depth > 5 && depth <= 10:
		return 10
	default:
		return 20
	}
}

func (s *Streamer) WatchOrderBook(ctx context.Context, symbol string, depth int) (venue.Subscription[models.OrderBook], error) {
	id, err := marketID(symbol)
	if err != nil {
		return nil, err
	}
	spec := venue.StreamSpec[models.OrderBook]{
		URL:     fmt.Sprintf("%s/%s@depth%d@100ms", s.wsURL, strings.ToLower(id), partialDepth(depth)),
		LocalIP: s.localIP,
		Decode: func(raw []byte) (models.OrderBook, bool, error) {
			return decodeDepth(symbol, depth, raw)
		},
	}
	feed, err := venue.OpenStream(ctx, spec, s.log)
	if err != nil {
		return nil, venue.Wrap(Name, "watch_order_book", err)
	}
	return feed, nil
}

func decodeDepth(symbol string, depth int, raw []byte) (models.OrderBook, bool, error) {
	var ev wsDepth
	if err := json.Unmarshal(raw, &ev); err != nil {
		return models.OrderBook{}, false, err
	}
	if ev.Event != "depthUpdate" {
		return models.OrderBook{}, false, nil
	}
	nonce := ev.LastUpdateID
	ob := models.NewOrderBook(Name, symbol, levels(ev.Bids), levels(ev.Asks), venue.TimeOrNow(ev.Time.Millis()), &nonce)
	return truncateBook(ob, depth), true, nil
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
