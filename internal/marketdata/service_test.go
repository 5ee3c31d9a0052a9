package marketdata

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"atlas/config"
	"atlas/internal/venue"
	"atlas/internal/venue/mock"
	"atlas/logger"
	"atlas/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type fakeFactory struct {
	conn      venue.Connector
	streamer  venue.Streamer
	created   atomic.Int32
	streamErr error
}

func (f *fakeFactory) Create(string) (venue.Connector, error) {
	f.created.Add(1)
	if f.conn == nil {
		return nil, venue.ErrUnsupportedVenue
	}
	return f.conn, nil
}

func (f *fakeFactory) Streamer(string) (venue.Streamer, error) {
	if f.streamErr != nil {
		return nil, f.streamErr
	}
	return f.streamer, nil
}

const probe = 100 * time.Millisecond

func newService(f *fakeFactory) *Service {
	return NewService(f, f, config.MarketDataConfig{StreamProbeTimeout: probe, OrderBookDepth: 20}, logger.Discard())
}

func price(v float64) *float64 { return &v }

func TestAutoFallsBackWhenStreamHangs(t *testing.T) {
	ctrl := gomock.NewController(t)
	conn := mock.NewMockConnector(ctrl)
	st := mock.NewMockStreamer(ctrl)
	sub := mock.NewMockSubscription[models.Ticker](ctrl)

	st.EXPECT().WatchTicker(gomock.Any(), "BTC/USDT").Return(sub, nil)
	sub.EXPECT().Next(gomock.Any()).DoAndReturn(func(ctx context.Context) (models.Ticker, error) {
		<-ctx.Done()
		return models.Ticker{}, ctx.Err()
	})
	sub.EXPECT().Close().Return(nil).Times(1)
	conn.EXPECT().FetchTicker(gomock.Any(), "BTC/USDT").Return(models.Ticker{Venue: "binance", Last: price(65000)}, nil)
	conn.EXPECT().Close().Return(nil)

	svc := newService(&fakeFactory{conn: conn, streamer: st})

	before := logger.Snapshot().StreamFallbacks
	start := time.Now()
	tk, err := svc.Ticker(context.Background(), "binance", "BTC/USDT", models.TransportAuto)
	elapsed := time.Since(start)

	require.NoError(t, err)
	require.NotNil(t, tk.Last)
	assert.Equal(t, 65000.0, *tk.Last)
	assert.Less(t, elapsed, probe+time.Second)
	assert.GreaterOrEqual(t, elapsed, probe)
	assert.Greater(t, logger.Snapshot().StreamFallbacks, before)
}

func TestAutoClosesSubscriptionThatArrivesLate(t *testing.T) {
	ctrl := gomock.NewController(t)
	conn := mock.NewMockConnector(ctrl)
	st := mock.NewMockStreamer(ctrl)
	sub := mock.NewMockSubscription[models.OrderBook](ctrl)

	release := make(chan struct{})
	closed := make(chan struct{})
	st.EXPECT().WatchOrderBook(gomock.Any(), "ETH/USDT", 20).DoAndReturn(
		func(context.Context, string, int) (venue.Subscription[models.OrderBook], error) {
			<-release
			return sub, nil
		})
	sub.EXPECT().Close().DoAndReturn(func() error {
		close(closed)
		return nil
	}).Times(1)
	conn.EXPECT().FetchOrderBook(gomock.Any(), "ETH/USDT", 20).Return(models.OrderBook{Venue: "bybit"}, nil)
	conn.EXPECT().Close().Return(nil)

	svc := newService(&fakeFactory{conn: conn, streamer: st})

	ob, err := svc.OrderBook(context.Background(), "bybit", "ETH/USDT", 0, models.TransportAuto)
	require.NoError(t, err)
	assert.Equal(t, "bybit", ob.Venue)

	close(release)
	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("late subscription was never closed")
	}
}

func TestAutoUsesStreamWhenItDelivers(t *testing.T) {
	ctrl := gomock.NewController(t)
	st := mock.NewMockStreamer(ctrl)
	sub := mock.NewMockSubscription[models.Ticker](ctrl)

	st.EXPECT().WatchTicker(gomock.Any(), "BTC/USDT").Return(sub, nil)
	sub.EXPECT().Next(gomock.Any()).Return(models.Ticker{Venue: "stream", Last: price(1)}, nil)
	sub.EXPECT().Close().Return(nil)

	f := &fakeFactory{streamer: st}
	tk, err := newService(f).Ticker(context.Background(), "binance", "BTC/USDT", models.TransportAuto)
	require.NoError(t, err)
	assert.Equal(t, "stream", tk.Venue)
	assert.Zero(t, f.created.Load(), "no connector should be created when the stream delivers")
}

func TestStreamOnlyPropagatesErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	st := mock.NewMockStreamer(ctrl)

	boom := errors.New("handshake failed")
	st.EXPECT().WatchTicker(gomock.Any(), gomock.Any()).Return(nil, boom)

	f := &fakeFactory{streamer: st}
	_, err := newService(f).Ticker(context.Background(), "binance", "BTC/USDT", models.TransportStream)
	require.ErrorIs(t, err, boom)
	assert.Zero(t, f.created.Load())
}

func TestPollOnlySkipsStream(t *testing.T) {
	ctrl := gomock.NewController(t)
	conn := mock.NewMockConnector(ctrl)
	st := mock.NewMockStreamer(ctrl)

	conn.EXPECT().FetchTicker(gomock.Any(), "BTC/USDT").Return(models.Ticker{Venue: "rest"}, nil)
	conn.EXPECT().Close().Return(nil)

	tk, err := newService(&fakeFactory{conn: conn, streamer: st}).Ticker(context.Background(), "binance", "BTC/USDT", models.TransportPoll)
	require.NoError(t, err)
	assert.Equal(t, "rest", tk.Venue)
}

func TestAutoFallsBackWhenVenueHasNoStreamer(t *testing.T) {
	ctrl := gomock.NewController(t)
	conn := mock.NewMockConnector(ctrl)

	conn.EXPECT().FetchTicker(gomock.Any(), gomock.Any()).Return(models.Ticker{Venue: "rest"}, nil)
	conn.EXPECT().Close().Return(nil)

	f := &fakeFactory{conn: conn, streamErr: venue.Unsupported("kucoin", "watch_ticker")}
	tk, err := newService(f).Ticker(context.Background(), "kucoin", "BTC/USDT", models.TransportAuto)
	require.NoError(t, err)
	assert.Equal(t, "rest", tk.Venue)
}

func TestCandlesStreamOnlyUnsupported(t *testing.T) {
	f := &fakeFactory{}
	_, err := newService(f).Candles(context.Background(), "binance", "BTC/USDT", "1m", nil, 10, models.TransportStream)
	require.ErrorIs(t, err, venue.ErrUnsupportedCapability)
	assert.Zero(t, f.created.Load())
}

func TestCandlesAutoPolls(t *testing.T) {
	ctrl := gomock.NewController(t)
	conn := mock.NewMockConnector(ctrl)

	conn.EXPECT().FetchCandles(gomock.Any(), "BTC/USDT", "1h", nil, 5).Return(models.CandleSeries{Timeframe: "1h"}, nil)
	conn.EXPECT().Close().Return(nil)

	series, err := newService(&fakeFactory{conn: conn}).Candles(context.Background(), "binance", "BTC/USDT", "1h", nil, 5, models.TransportAuto)
	require.NoError(t, err)
	assert.Equal(t, "1h", series.Timeframe)
}

func TestUnknownVenuePropagates(t *testing.T) {
	f := &fakeFactory{streamErr: venue.ErrUnsupportedVenue}
	_, err := newService(f).Status(context.Background(), "mtgox")
	require.ErrorIs(t, err, venue.ErrUnsupportedVenue)
}
