package models

import (
	"math"
	"time"
)

// BalanceTolerance is the allowed |total - (free + used)| drift.
const BalanceTolerance = 1e-5

// Balance is the holding of one currency.
type Balance struct {
	Free  float64 `json:"free"`
	Used  float64 `json:"used"`
	Total float64 `json:"total"`
}

// NewBalance builds a Balance from whatever parts the venue reported.
// Missing parts are derived from the others, negatives are clamped to
// zero, and Total is recomputed as Free+Used.
func NewBalance(free, used, total *float64) Balance {
	f, u, t := value(free), value(used), value(total)
	switch {
	case free != nil && used != nil:
	case free != nil && total != nil:
		u = t - f
	case used != nil && total != nil:
		f = t - u
	case total != nil:
		f = t
	}
	f = math.Max(f, 0)
	u = math.Max(u, 0)
	return Balance{Free: f, Used: u, Total: f + u}
}

func value(p *float64) float64 {
	if p == nil || math.IsNaN(*p) || math.IsInf(*p, 0) {
		return 0
	}
	return *p
}

// Consistent reports whether the balance satisfies the total invariant.
func (b Balance) Consistent() bool {
	return math.Abs(b.Total-(b.Free+b.Used)) < BalanceTolerance
}

// BalanceSnapshot maps currency codes to balances for one venue.
type BalanceSnapshot struct {
	Venue      string             `json:"venue"`
	Timestamp  time.Time          `json:"timestamp"`
	Currencies map[string]Balance `json:"currencies"`
}

// PositionSide is the direction of a derivatives position.
type PositionSide string

const (
	PositionLong  PositionSide = "long"
	PositionShort PositionSide = "short"
)

// Position is a normalized derivatives position.
type Position struct {
	Symbol           string       `json:"symbol"`
	Side             PositionSide `json:"side"`
	Contracts        float64      `json:"contracts"`
	Notional         *float64     `json:"notional,omitempty"`
	Leverage         *float64     `json:"leverage,omitempty"`
	EntryPrice       *float64     `json:"entry_price,omitempty"`
	MarkPrice        *float64     `json:"mark_price,omitempty"`
	LiquidationPrice *float64     `json:"liquidation_price,omitempty"`
	MarginMode       MarginMode   `json:"margin_mode,omitempty"`
	UnrealizedPnl    *float64     `json:"unrealized_pnl,omitempty"`
}
