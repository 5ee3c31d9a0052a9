// Package marketdata serves tickers, books and candles over a venue's stream
// or REST API. In auto mode a stream gets a bounded window to produce its
// first update before the service polls instead.
package marketdata

import (
	"context"
	"time"

	"atlas/config"
	"atlas/internal/venue"
	"atlas/logger"
	"atlas/models"
)

const (
	component = "marketdata"

	defaultProbeTimeout = 2 * time.Second
)

type ConnectorFactory interface {
	Create(name string) (venue.Connector, error)
}

type StreamFactory interface {
	Streamer(name string) (venue.Streamer, error)
}

type Service struct {
	connectors   ConnectorFactory
	streams      StreamFactory
	probeTimeout time.Duration
	depth        int
	log          *logger.Log
}

func NewService(connectors ConnectorFactory, streams StreamFactory, cfg config.MarketDataConfig, log *logger.Log) *Service {
	probe := cfg.StreamProbeTimeout
	if probe <= 0 {
		probe = defaultProbeTimeout
	}
	return &Service{
		connectors:   connectors,
		streams:      streams,
		probeTimeout: probe,
		depth:        cfg.OrderBookDepth,
		log:          log,
	}
}

func (s *Service) Ticker(ctx context.Context, venueName, symbol string, transport models.Transport) (models.Ticker, error) {
	watch := func(ctx context.Context, st venue.Streamer) (venue.Subscription[models.Ticker], error) {
		return st.WatchTicker(ctx, symbol)
	}
	fetch := func(ctx context.Context, c venue.Connector) (models.Ticker, error) {
		return c.FetchTicker(ctx, symbol)
	}
	return serve(ctx, s, venueName, "ticker", transport, watch, fetch)
}

// OrderBook returns up to limit levels per side. A non-positive limit uses
// the configured default depth.
func (s *Service) OrderBook(ctx context.Context, venueName, symbol string, limit int, transport models.Transport) (models.OrderBook, error) {
	if limit <= 0 {
		limit = s.depth
	}
	watch := func(ctx context.Context, st venue.Streamer) (venue.Subscription[models.OrderBook], error) {
		return st.WatchOrderBook(ctx, symbol, limit)
	}
	fetch := func(ctx context.Context, c venue.Connector) (models.OrderBook, error) {
		return c.FetchOrderBook(ctx, symbol, limit)
	}
	return serve(ctx, s, venueName, "order_book", transport, watch, fetch)
}

// Candles are only offered over REST.
func (s *Service) Candles(ctx context.Context, venueName, symbol, timeframe string, since *time.Time, limit int, transport models.Transport) (models.CandleSeries, error) {
	if transport == models.TransportStream {
		return models.CandleSeries{}, venue.Unsupported(venueName, "watch_candles")
	}
	return poll(ctx, s, venueName, func(ctx context.Context, c venue.Connector) (models.CandleSeries, error) {
		return c.FetchCandles(ctx, symbol, timeframe, since, limit)
	})
}

func (s *Service) FundingRate(ctx context.Context, venueName, symbol string) (models.FundingRate, error) {
	return poll(ctx, s, venueName, func(ctx context.Context, c venue.Connector) (models.FundingRate, error) {
		return c.FetchFundingRate(ctx, symbol)
	})
}

func (s *Service) Status(ctx context.Context, venueName string) (models.VenueStatus, error) {
	return poll(ctx, s, venueName, func(ctx context.Context, c venue.Connector) (models.VenueStatus, error) {
		return c.FetchStatus(ctx)
	})
}

type watchFunc[T any] func(ctx context.Context, st venue.Streamer) (venue.Subscription[T], error)

type fetchFunc[T any] func(ctx context.Context, c venue.Connector) (T, error)

func serve[T any](ctx context.Context, s *Service, venueName, kind string, transport models.Transport, watch watchFunc[T], fetch fetchFunc[T]) (T, error) {
	switch transport {
	case models.TransportStream:
		return stream(ctx, s, venueName, watch)
	case models.TransportPoll:
		return poll(ctx, s, venueName, fetch)
	}

	probeCtx, cancel := context.WithTimeout(ctx, s.probeTimeout)
	v, err := stream(probeCtx, s, venueName, watch)
	cancel()
	if err == nil {
		return v, nil
	}
	if ctx.Err() != nil {
		var zero T
		return zero, ctx.Err()
	}

	logger.IncrementStreamFallbacks()
	s.log.WithComponent(component).WithFields(logger.Fields{
		"venue":         venueName,
		"kind":          kind,
		"probe_timeout": s.probeTimeout.String(),
	}).WithError(err).Debug("stream unavailable, falling back to polling")
	return poll(ctx, s, venueName, fetch)
}

type subscribed[T any] struct {
	sub venue.Subscription[T]
	err error
}

// stream subscribes, takes the first update and closes the subscription.
// The dial runs in its own goroutine so an expired ctx returns promptly; a
// subscription that completes afterwards is closed as soon as it arrives.
func stream[T any](ctx context.Context, s *Service, venueName string, watch watchFunc[T]) (T, error) {
	var zero T
	st, err := s.streams.Streamer(venueName)
	if err != nil {
		return zero, err
	}

	ch := make(chan subscribed[T], 1)
	go func() {
		sub, err := watch(ctx, st)
		ch <- subscribed[T]{sub: sub, err: err}
	}()

	var sub venue.Subscription[T]
	select {
	case r := <-ch:
		if r.err != nil {
			return zero, r.err
		}
		sub = r.sub
	case <-ctx.Done():
		go func() {
			if r := <-ch; r.err == nil && r.sub != nil {
				r.sub.Close()
			}
		}()
		return zero, ctx.Err()
	}
	defer func() {
		if err := sub.Close(); err != nil {
			s.log.WithComponent(component).WithFields(logger.Fields{"venue": venueName}).WithError(err).Debug("failed to close subscription")
		}
	}()

	return sub.Next(ctx)
}

func poll[T any](ctx context.Context, s *Service, venueName string, fetch fetchFunc[T]) (T, error) {
	var zero T
	conn, err := s.connectors.Create(venueName)
	if err != nil {
		return zero, err
	}
	defer func() {
		if err := conn.Close(); err != nil {
			s.log.WithComponent(component).WithFields(logger.Fields{"venue": venueName}).WithError(err).Warn("failed to close connector")
		}
	}()
	return fetch(ctx, conn)
}
