// Package portfolio collects balances and positions from several venues at
// once. A failing venue is reported in its own slot and never affects the
// others.
package portfolio

import (
	"context"
	"time"

	"atlas/config"
	"atlas/internal/venue"
	"atlas/logger"
	"atlas/models"

	"golang.org/x/sync/errgroup"
)

const component = "portfolio"

type ConnectorFactory interface {
	Create(name string) (venue.Connector, error)
}

// VenueSnapshot is one venue's slot in a Snapshot. Exactly one of Balances
// and Error is set.
type VenueSnapshot struct {
	Venue     string                  `json:"venue"`
	Balances  *models.BalanceSnapshot `json:"balances,omitempty"`
	Positions []models.Position       `json:"positions"`
	Err       error                   `json:"-"`
	Error     string                  `json:"error,omitempty"`
}

// OK reports whether the venue was read successfully.
func (v VenueSnapshot) OK() bool { return v.Err == nil }

// Snapshot holds one entry per requested venue, in request order.
type Snapshot struct {
	Timestamp time.Time       `json:"timestamp"`
	Venues    []VenueSnapshot `json:"venues"`
}

type Aggregator struct {
	connectors     ConnectorFactory
	maxConcurrency int
	log            *logger.Log
}

func NewAggregator(connectors ConnectorFactory, cfg config.PortfolioConfig, log *logger.Log) *Aggregator {
	return &Aggregator{connectors: connectors, maxConcurrency: cfg.MaxConcurrency, log: log}
}

// FetchPortfolio reads every venue concurrently. It never fails as a whole;
// per-venue errors are in the returned slots.
func (a *Aggregator) FetchPortfolio(ctx context.Context, venues []string) Snapshot {
	results := make([]VenueSnapshot, len(venues))

	var g errgroup.Group
	if a.maxConcurrency > 0 {
		g.SetLimit(a.maxConcurrency)
	}
	for i, name := range venues {
		g.Go(func() error {
			results[i] = a.fetchVenue(ctx, name)
			return nil
		})
	}
	g.Wait()

	failed := 0
	for _, r := range results {
		if !r.OK() {
			failed++
		}
	}
	a.log.WithComponent(component).WithFields(logger.Fields{
		"venues": len(venues),
		"failed": failed,
	}).Info("portfolio collected")

	return Snapshot{Timestamp: time.Now().UTC(), Venues: results}
}

func (a *Aggregator) fetchVenue(ctx context.Context, name string) VenueSnapshot {
	log := a.log.WithComponent(component).WithFields(logger.Fields{"venue": name})
	fail := func(err error) VenueSnapshot {
		log.WithError(err).Warn("venue unavailable")
		return VenueSnapshot{Venue: name, Err: err, Error: err.Error()}
	}

	conn, err := a.connectors.Create(name)
	if err != nil {
		return fail(err)
	}
	defer func() {
		if err := conn.Close(); err != nil {
			log.WithError(err).Warn("failed to close connector")
		}
	}()

	balances, err := conn.FetchBalance(ctx)
	if err != nil {
		return fail(err)
	}

	positions, err := conn.FetchPositions(ctx, nil)
	if err != nil {
		log.WithFields(logger.Fields{"degradation": "PartialDegradation"}).WithError(err).Warn("positions unavailable, reporting balances only")
		positions = []models.Position{}
	}
	if positions == nil {
		positions = []models.Position{}
	}

	return VenueSnapshot{Venue: name, Balances: &balances, Positions: positions}
}
