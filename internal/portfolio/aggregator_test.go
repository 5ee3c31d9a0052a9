package portfolio

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"atlas/config"
	"atlas/internal/venue"
	"atlas/internal/venue/mock"
	"atlas/logger"
	"atlas/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type mapFactory struct {
	mu    sync.Mutex
	conns map[string]venue.Connector
	errs  map[string]error
}

func (f *mapFactory) Create(name string) (venue.Connector, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs[name]; err != nil {
		return nil, err
	}
	if c, ok := f.conns[name]; ok {
		return c, nil
	}
	return nil, venue.ErrUnsupportedVenue
}

func healthy(ctrl *gomock.Controller, name string) *mock.MockConnector {
	c := mock.NewMockConnector(ctrl)
	c.EXPECT().FetchBalance(gomock.Any()).Return(models.BalanceSnapshot{
		Venue:      name,
		Currencies: map[string]models.Balance{"USDT": models.NewBalance(nil, nil, func() *float64 { v := 100.0; return &v }())},
	}, nil)
	c.EXPECT().FetchPositions(gomock.Any(), gomock.Any()).Return([]models.Position{{Symbol: "BTC/USDT:USDT", Side: models.PositionLong, Contracts: 1}}, nil)
	c.EXPECT().Close().Return(nil).Times(1)
	return c
}

func TestFetchPortfolioIsolatesFailures(t *testing.T) {
	ctrl := gomock.NewController(t)
	f := &mapFactory{
		conns: map[string]venue.Connector{"A": healthy(ctrl, "A"), "C": healthy(ctrl, "C")},
		errs:  map[string]error{"B": errors.New("connect refused")},
	}

	snap := NewAggregator(f, config.PortfolioConfig{}, logger.Discard()).
		FetchPortfolio(context.Background(), []string{"A", "B", "C"})

	require.Len(t, snap.Venues, 3)
	assert.Equal(t, "A", snap.Venues[0].Venue)
	assert.True(t, snap.Venues[0].OK())
	assert.Equal(t, 100.0, snap.Venues[0].Balances.Currencies["USDT"].Total)

	assert.Equal(t, "B", snap.Venues[1].Venue)
	assert.False(t, snap.Venues[1].OK())
	assert.Equal(t, "connect refused", snap.Venues[1].Error)
	assert.Nil(t, snap.Venues[1].Balances)

	assert.Equal(t, "C", snap.Venues[2].Venue)
	assert.True(t, snap.Venues[2].OK())
	assert.Len(t, snap.Venues[2].Positions, 1)
}

func TestFetchPortfolioPositionsDegrade(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewMockConnector(ctrl)
	c.EXPECT().FetchBalance(gomock.Any()).Return(models.BalanceSnapshot{Venue: "kucoin"}, nil)
	c.EXPECT().FetchPositions(gomock.Any(), gomock.Any()).Return(nil, venue.Unsupported("kucoin", "fetch_positions"))
	c.EXPECT().Close().Return(nil)

	f := &mapFactory{conns: map[string]venue.Connector{"kucoin": c}}
	snap := NewAggregator(f, config.PortfolioConfig{MaxConcurrency: 1}, logger.Discard()).
		FetchPortfolio(context.Background(), []string{"kucoin"})

	require.Len(t, snap.Venues, 1)
	v := snap.Venues[0]
	assert.True(t, v.OK())
	assert.NotNil(t, v.Positions)
	assert.Empty(t, v.Positions)

	out, err := json.Marshal(v)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"positions":[]`)
	assert.NotContains(t, string(out), `"error"`)
}

func TestFetchPortfolioBalanceFailureClosesConnector(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewMockConnector(ctrl)
	c.EXPECT().FetchBalance(gomock.Any()).Return(models.BalanceSnapshot{}, errors.New("invalid api key"))
	c.EXPECT().FetchPositions(gomock.Any(), gomock.Any()).Times(0)
	c.EXPECT().Close().Return(nil).Times(1)

	f := &mapFactory{conns: map[string]venue.Connector{"bybit": c}}
	snap := NewAggregator(f, config.PortfolioConfig{}, logger.Discard()).
		FetchPortfolio(context.Background(), []string{"bybit"})

	require.Len(t, snap.Venues, 1)
	assert.Equal(t, "invalid api key", snap.Venues[0].Error)
}

func TestFetchPortfolioEmpty(t *testing.T) {
	snap := NewAggregator(&mapFactory{}, config.PortfolioConfig{}, logger.Discard()).
		FetchPortfolio(context.Background(), nil)
	assert.Empty(t, snap.Venues)
}
