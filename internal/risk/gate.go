// Package risk holds the pre-trade checks every order passes before it
// reaches a venue.
package risk

import (
	"context"
	"errors"
	"fmt"
	"math"

	"atlas/config"
	"atlas/models"
)

// ErrNotionalExceeded matches any Violation of kind NotionalExceeded.
var ErrNotionalExceeded = errors.New("order notional exceeds limit")

type Kind string

const NotionalExceeded Kind = "notional_exceeded"

// Violation reports a rejected order and the numbers behind the decision.
type Violation struct {
	Kind     Kind
	Notional float64
	Limit    float64
}

func (v *Violation) Error() string {
	return fmt.Sprintf("risk violation %s: notional %.2f exceeds limit %.2f", v.Kind, v.Notional, v.Limit)
}

func (v *Violation) Is(target error) bool {
	return target == ErrNotionalExceeded && v.Kind == NotionalExceeded
}

// Gate enforces the configured per-order limit. It is stateless and safe
// for concurrent use.
type Gate struct {
	limits config.RiskConfig
}

func NewGate(limits config.RiskConfig) *Gate {
	return &Gate{limits: limits}
}

func (g *Gate) Limits() config.RiskConfig { return g.limits }

// Validate checks |amount x referencePrice| against the per-order limit.
// A missing or non-positive reference price skips the check.
func (g *Gate) Validate(req models.OrderRequest, referencePrice *float64) error {
	if referencePrice == nil || !(*referencePrice > 0) {
		return nil
	}
	notional := math.Abs(req.Amount * *referencePrice)
	if notional > g.limits.MaxOrderNotional {
		return &Violation{Kind: NotionalExceeded, Notional: notional, Limit: g.limits.MaxOrderNotional}
	}
	return nil
}

// OnPartialFill runs after a submission that left part of the order open.
// No follow-up policy is applied yet.
func (g *Gate) OnPartialFill(_ context.Context, _ models.OrderRequest, _ models.OrderResult) error {
	return nil
}
