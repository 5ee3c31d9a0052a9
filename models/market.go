package models

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Ticker is a normalized 24h ticker. Fields the venue did not report are nil.
type Ticker struct {
	Venue       string    `json:"venue"`
	Symbol      string    `json:"symbol"`
	Last        *float64  `json:"last"`
	Close       *float64  `json:"close"`
	Open        *float64  `json:"open"`
	High        *float64  `json:"high"`
	Low         *float64  `json:"low"`
	Bid         *float64  `json:"bid"`
	Ask         *float64  `json:"ask"`
	BaseVolume  *float64  `json:"base_volume"`
	QuoteVolume *float64  `json:"quote_volume"`
	Mark        *float64  `json:"mark,omitempty"`
	Index       *float64  `json:"index,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// ReferencePrice returns Last, falling back to Close. Zero counts as absent.
func (t Ticker) ReferencePrice() *float64 {
	for _, p := range []*float64{t.Last, t.Close} {
		if p != nil && *p > 0 {
			v := *p
			return &v
		}
	}
	return nil
}

// Candle is one OHLCV bar.
type Candle struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// CandleSeries holds bars ordered by ascending timestamp.
type CandleSeries struct {
	Venue     string   `json:"venue"`
	Symbol    string   `json:"symbol"`
	Timeframe string   `json:"timeframe"`
	Candles   []Candle `json:"candles"`
}

// NewCandleSeries sorts candles by time. Venues disagree on ordering.
func NewCandleSeries(venue, symbol, timeframe string, candles []Candle) CandleSeries {
	out := make([]Candle, len(candles))
	copy(out, candles)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return CandleSeries{Venue: venue, Symbol: symbol, Timeframe: timeframe, Candles: out}
}

// FundingRate is the current funding state of a perpetual contract.
type FundingRate struct {
	Venue           string     `json:"venue"`
	Symbol          string     `json:"symbol"`
	Rate            *float64   `json:"rate"`
	MarkPrice       *float64   `json:"mark_price,omitempty"`
	IndexPrice      *float64   `json:"index_price,omitempty"`
	NextFundingTime *time.Time `json:"next_funding_time,omitempty"`
	Timestamp       time.Time  `json:"timestamp"`
}

// VenueStatus reports venue availability ("ok", "maintenance", ...).
type VenueStatus struct {
	Venue   string     `json:"venue"`
	Status  string     `json:"status"`
	Updated *time.Time `json:"updated,omitempty"`
	ETA     *time.Time `json:"eta,omitempty"`
	URL     string     `json:"url,omitempty"`
}

// Transport selects how market data is retrieved.
type Transport string

const (
	TransportAuto   Transport = "auto"
	TransportStream Transport = "stream"
	TransportPoll   Transport = "poll"
)

// ParseTransport accepts auto, stream|ws and poll|rest. Empty means auto.
func ParseTransport(s string) (Transport, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return TransportAuto, nil
	case "stream", "ws", "websocket":
		return TransportStream, nil
	case "poll", "rest", "http":
		return TransportPoll, nil
	}
	return "", fmt.Errorf("unknown transport %q", s)
}
