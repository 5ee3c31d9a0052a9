package models

import (
	"sort"
	"time"
)

// PriceLevel represents a single price level in the order book
type PriceLevel struct {
	Price  float64 `json:"price"`
	Amount float64 `json:"amount"`
}

// OrderBook is a normalized L2 snapshot. Bids are sorted by price
// descending and asks ascending; the best bid never exceeds the best ask.
type OrderBook struct {
	Venue     string       `json:"venue"`
	Symbol    string       `json:"symbol"`
	Bids      []PriceLevel `json:"bids"`
	Asks      []PriceLevel `json:"asks"`
	Timestamp time.Time    `json:"timestamp"`
	Nonce     *int64       `json:"nonce,omitempty"`
}

// NewOrderBook sorts and sanitizes raw levels into an OrderBook.
// Levels with a non-positive price or negative amount are dropped, and
// crossed levels are trimmed from the side with the smaller size at the
// touch so the result is never crossed.
func NewOrderBook(venue, symbol string, bids, asks []PriceLevel, ts time.Time, nonce *int64) OrderBook {
	b := sanitizeLevels(bids)
	a := sanitizeLevels(asks)

	sort.SliceStable(b, func(i, j int) bool { return b[i].Price > b[j].Price })
	sort.SliceStable(a, func(i, j int) bool { return a[i].Price < a[j].Price })

	for len(b) > 0 && len(a) > 0 && b[0].Price > a[0].Price {
		if b[0].Amount <= a[0].Amount {
			b = b[1:]
		} else {
			a = a[1:]
		}
	}

	return OrderBook{
		Venue:     venue,
		Symbol:    symbol,
		Bids:      b,
		Asks:      a,
		Timestamp: ts.UTC(),
		Nonce:     nonce,
	}
}

func sanitizeLevels(in []PriceLevel) []PriceLevel {
	out := make([]PriceLevel, 0, len(in))
	for _, lvl := range in {
		if !(lvl.Price > 0) || !(lvl.Amount >= 0) {
			continue
		}
		out = append(out, lvl)
	}
	return out
}

// BestBid returns the highest bid level.
func (ob OrderBook) BestBid() (PriceLevel, bool) {
	if len(ob.Bids) == 0 {
		return PriceLevel{}, false
	}
	return ob.Bids[0], true
}

// BestAsk returns the lowest ask level.
func (ob OrderBook) BestAsk() (PriceLevel, bool) {
	if len(ob.Asks) == 0 {
		return PriceLevel{}, false
	}
	return ob.Asks[0], true
}
