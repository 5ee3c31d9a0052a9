// Package venue defines the uniform contract every trading venue connector
// satisfies, plus the helpers the connectors share: error taxonomy, numeric
// coercion, HTTP transport, throttling and streaming subscriptions.
package venue

import (
	"context"
	"time"

	"atlas/models"
)

// Connector is one authenticated session with a venue. A Connector belongs to
// a single operation and must be closed when that operation ends.
type Connector interface {
	ID() string

	FetchTicker(ctx context.Context, symbol string) (models.Ticker, error)
	// FetchOrderBook returns up to limit levels per side; limit <= 0 means the venue default.
	FetchOrderBook(ctx context.Context, symbol string, limit int) (models.OrderBook, error)
	FetchCandles(ctx context.Context, symbol, timeframe string, since *time.Time, limit int) (models.CandleSeries, error)
	FetchFundingRate(ctx context.Context, symbol string) (models.FundingRate, error)
	FetchStatus(ctx context.Context) (models.VenueStatus, error)

	FetchBalance(ctx context.Context) (models.BalanceSnapshot, error)
	// FetchPositions returns an empty list for venues without derivatives.
	FetchPositions(ctx context.Context, symbols []string) ([]models.Position, error)

	CreateOrder(ctx context.Context, req models.OrderRequest) (models.OrderResult, error)
	CancelOrder(ctx context.Context, symbol, orderID string) (models.OrderResult, error)
	FetchOrder(ctx context.Context, symbol, orderID string) (models.OrderResult, error)
	FetchOpenOrders(ctx context.Context, symbol string) ([]models.OrderResult, error)
	FetchClosedOrders(ctx context.Context, symbol string) ([]models.OrderResult, error)

	SetLeverage(ctx context.Context, leverage int, symbol string) error
	SetMarginMode(ctx context.Context, mode models.MarginMode, symbol string) error

	// Close releases the session. It is idempotent.
	Close() error
}

// Streamer opens public streaming subscriptions on a venue.
type Streamer interface {
	ID() string
	WatchTicker(ctx context.Context, symbol string) (Subscription[models.Ticker], error)
	WatchOrderBook(ctx context.Context, symbol string, depth int) (Subscription[models.OrderBook], error)
}

// Subscription yields streamed updates until closed.
type Subscription[T any] interface {
	// Next blocks until an update arrives, the stream fails or ctx ends.
	Next(ctx context.Context) (T, error)
	// Close tears the stream down. It is idempotent.
	Close() error
}
