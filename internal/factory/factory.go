// Package factory resolves venue names to connectors and streamers.
package factory

import (
	"fmt"
	"sort"
	"strings"

	"atlas/config"
	"atlas/internal/venue"
	"atlas/internal/venue/binance"
	"atlas/internal/venue/bybit"
	"atlas/internal/venue/kucoin"
	"atlas/logger"
)

// Factory builds a fresh session per call. Nothing is cached, so every
// caller owns and closes what it gets.
type Factory struct {
	cfg *config.Config
	log *logger.Log
}

func New(cfg *config.Config, log *logger.Log) *Factory {
	return &Factory{cfg: cfg, log: log}
}

// Supported lists the venue names Create accepts, sorted.
func Supported() []string {
	names := []string{binance.Name, bybit.Name, kucoin.Name}
	sort.Strings(names)
	return names
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Create returns an authenticated connector for name using that venue's
// credentials and endpoints from config.
func (f *Factory) Create(name string) (venue.Connector, error) {
	v := f.cfg.Venues
	switch normalize(name) {
	case binance.Name:
		return binance.New(v.Binance, f.cfg.Reader, f.log), nil
	case bybit.Name:
		return bybit.New(v.Bybit, f.cfg.Reader, f.log), nil
	case kucoin.Name:
		return kucoin.New(v.Kucoin, f.cfg.Reader, f.log), nil
	}
	return nil, fmt.Errorf("%w: %q (supported: %s)", venue.ErrUnsupportedVenue, name, strings.Join(Supported(), ", "))
}

// Streamer returns the public stream opener for name.
func (f *Factory) Streamer(name string) (venue.Streamer, error) {
	v := f.cfg.Venues
	switch normalize(name) {
	case binance.Name:
		return binance.NewStreamer(v.Binance, f.log), nil
	case bybit.Name:
		return bybit.NewStreamer(v.Bybit, f.log), nil
	case kucoin.Name:
		return kucoin.NewStreamer(v.Kucoin, f.cfg.Reader, f.log), nil
	}
	return nil, fmt.Errorf("%w: %q", venue.ErrUnsupportedVenue, name)
}
