package kucoin

import (
	"context"
	"errors"

	"atlas/config"
	"atlas/internal/venue"
	"atlas/logger"
	"atlas/models"

	sdkapi "github.com/Kucoin/kucoin-universal-sdk/sdk/golang/pkg/api"
	"github.com/Kucoin/kucoin-universal-sdk/sdk/golang/pkg/generate/futures/futurespublic"
	sdktype "github.com/Kucoin/kucoin-universal-sdk/sdk/golang/pkg/types"
)

var errStreamStart = errors.New("kucoin futures websocket unavailable")

// Streamer opens public futures topics through the SDK websocket service.
// Each subscription owns its own connection.
type Streamer struct {
	cfg    config.VenueConfig
	reader config.ReaderConfig
	log    *logger.Entry
}

func NewStreamer(cfg config.VenueConfig, reader config.ReaderConfig, log *logger.Log) *Streamer {
	return &Streamer{cfg: cfg, reader: reader, log: log.WithComponent(component)}
}

func (s *Streamer) ID() string { return Name }

// start connects a public futures websocket. The SDK dial does not take a
// context, so a cancelled ctx abandons the dial and stops it once it returns.
func (s *Streamer) start(ctx context.Context) (futurespublic.FuturesPublicWS, error) {
	wsOpt := sdktype.NewWebSocketClientOptionBuilder()
	wsOpt.WithEventCallback(func(event sdktype.WebSocketEvent, msg string) {
		if event == sdktype.EventErrorReceived || event == sdktype.EventClientFail {
			s.log.WithFields(logger.Fields{"event": event.String(), "message": msg}).Warn("kucoin websocket event")
		}
	})

	client := sdkapi.NewClient(clientOption(s.cfg, s.reader, wsOpt.Build()))
	ws := client.WsService().NewFuturesPublicWS()
	if ws == nil {
		return nil, errStreamStart
	}

	done := make(chan error, 1)
	go func() { done <- ws.Start() }()

	select {
	case err := <-done:
		if err != nil {
			return nil, err
		}
		return ws, nil
	case <-ctx.Done():
		go func() {
			if err := <-done; err == nil {
				ws.Stop()
			}
		}()
		return nil, ctx.Err()
	}
}

func release(ws futurespublic.FuturesPublicWS, id *string) func() error {
	return func() error {
		if *id != "" {
			ws.UnSubscribe(*id)
		}
		return ws.Stop()
	}
}

type tickerEvent struct {
	Symbol       string       `json:"symbol"`
	BestBidPrice venue.Number `json:"bestBidPrice"`
	BestAskPrice venue.Number `json:"bestAskPrice"`
	Ts           venue.Number `json:"ts"`
}

func (s *Streamer) WatchTicker(ctx context.Context, symbol string) (venue.Subscription[models.Ticker], error) {
	id, err := marketID(symbol)
	if err != nil {
		return nil, err
	}
	ws, err := s.start(ctx)
	if err != nil {
		return nil, venue.Wrap(Name, "watch_ticker", err)
	}

	var subID string
	feed := venue.NewFeed[models.Ticker](release(ws, &subID))
	subID, err = ws.TickerV2(id, func(topic, subject string, data *futurespublic.TickerV2Event) error {
		if data == nil {
			return nil
		}
		var ev tickerEvent
		if err := venue.Roundtrip(data, &ev); err != nil {
			return err
		}
		feed.Publish(tickerFromEvent(symbol, ev))
		return nil
	})
	if err != nil {
		feed.Close()
		return nil, venue.Wrap(Name, "watch_ticker", err)
	}
	return feed, nil
}

// tickerFromEvent uses the mid of the touch as the last price; the v2
// ticker topic only carries the top of book.
func tickerFromEvent(symbol string, ev tickerEvent) models.Ticker {
	tk := models.Ticker{
		Venue:     Name,
		Symbol:    symbol,
		Bid:       ev.BestBidPrice.Opt(),
		Ask:       ev.BestAskPrice.Opt(),
		Timestamp: venue.TimeOrNow(nanos(ev.Ts)),
	}
	if tk.Bid != nil && tk.Ask != nil {
		mid := (*tk.Bid + *tk.Ask) / 2
		tk.Last = &mid
	}
	return tk
}

type depthEvent struct {
	Sequence int64            `json:"sequence"`
	Bids     [][]venue.Number `json:"bids"`
	Asks     [][]venue.Number `json:"asks"`
	Ts       venue.Number     `json:"timestamp"`
}

func bookFromEvent(symbol string, depth int, ev depthEvent) models.OrderBook {
	nonce := ev.Sequence
	ob := models.NewOrderBook(Name, symbol, levels(ev.Bids), levels(ev.Asks), venue.TimeOrNow(ev.Ts.Millis()), &nonce)
	return truncate(ob, depth)
}

func (s *Streamer) WatchOrderBook(ctx context.Context, symbol string, depth int) (venue.Subscription[models.OrderBook], error) {
	id, err := marketID(symbol)
	if err != nil {
		return nil, err
	}
	ws, err := s.start(ctx)
	if err != nil {
		return nil, venue.Wrap(Name, "watch_order_book", err)
	}

	var subID string
	feed := venue.NewFeed[models.OrderBook](release(ws, &subID))
	publish := func(data any) error {
		var ev depthEvent
		if err := venue.Roundtrip(data, &ev); err != nil {
			return err
		}
		feed.Publish(bookFromEvent(symbol, depth, ev))
		return nil
	}

	if depth > 0 && depth <= 5 {
		subID, err = ws.OrderbookLevel5(id, func(topic, subject string, data *futurespublic.OrderbookLevel5Event) error {
			if data == nil {
				return nil
			}
			return publish(data)
		})
	} else {
		subID, err = ws.OrderbookLevel50(id, func(topic, subject string, data *futurespublic.OrderbookLevel50Event) error {
			if data == nil {
				return nil
			}
			return publish(data)
		})
	}
	if err != nil {
		feed.Close()
		return nil, venue.Wrap(Name, "watch_order_book", err)
	}
	return feed, nil
}
