// Package trading runs orders through the execution pipeline: reference
// price, request construction, pre-trade risk, a single submission and the
// partial-fill hook.
package trading

import (
	"context"
	"errors"
	"time"

	"atlas/internal/venue"
	"atlas/logger"
	"atlas/models"
)

const component = "trading"

// ConnectorFactory hands out one connector per operation.
type ConnectorFactory interface {
	Create(name string) (venue.Connector, error)
}

// RiskGate is the pre-trade check and post-trade hook the pipeline calls.
type RiskGate interface {
	Validate(req models.OrderRequest, referencePrice *float64) error
	OnPartialFill(ctx context.Context, req models.OrderRequest, result models.OrderResult) error
}

type Service struct {
	connectors ConnectorFactory
	gate       RiskGate
	log        *logger.Log
}

func NewService(connectors ConnectorFactory, gate RiskGate, log *logger.Log) *Service {
	return &Service{connectors: connectors, gate: gate, log: log}
}

// PlaceOrderInput is an order as the caller states it.
type PlaceOrderInput struct {
	Venue  string
	Symbol string
	Side   models.Side
	Type   models.OrderType
	Amount float64
	Price  *float64
	Params map[string]string
}

func (s *Service) open(name string) (venue.Connector, func(), error) {
	conn, err := s.connectors.Create(name)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if err := conn.Close(); err != nil {
			s.log.WithComponent(component).WithFields(logger.Fields{"venue": name}).WithError(err).Warn("failed to close connector")
		}
	}
	return conn, closeFn, nil
}

// PlaceOrder submits one order. The venue sees at most one CreateOrder call
// and none when the request is invalid or the risk gate rejects it.
func (s *Service) PlaceOrder(ctx context.Context, in PlaceOrderInput) (models.OrderResult, error) {
	log := s.log.WithComponent(component).WithFields(logger.Fields{
		"venue":  in.Venue,
		"symbol": in.Symbol,
		"side":   string(in.Side),
		"type":   string(in.Type),
		"amount": in.Amount,
	})
	start := time.Now()

	conn, done, err := s.open(in.Venue)
	if err != nil {
		log.WithError(err).Error("failed to create connector")
		return models.OrderResult{}, err
	}
	defer done()

	ticker, err := conn.FetchTicker(ctx, in.Symbol)
	if err != nil {
		log.WithError(err).Error("failed to fetch reference price")
		return models.OrderResult{}, err
	}
	ref := ticker.ReferencePrice()
	if ref == nil {
		log.Warn("no reference price available, skipping notional check")
	}

	req, err := models.NewOrderRequest(in.Symbol, in.Side, in.Type, in.Amount, in.Price, in.Params)
	if err != nil {
		log.WithError(err).Warn("rejected invalid order request")
		return models.OrderResult{}, err
	}

	if err := s.gate.Validate(req, ref); err != nil {
		logger.IncrementRiskRejections()
		log.WithError(err).Warn("order rejected by risk gate")
		log.LogMetric(component, "risk_rejections", 1, "counter", logger.Fields{"venue": in.Venue})
		return models.OrderResult{}, err
	}

	result, err := conn.CreateOrder(ctx, req)
	if err != nil {
		log.WithError(err).Error("order submission failed")
		return models.OrderResult{}, venue.Wrap(in.Venue, "create_order", err)
	}
	logger.IncrementOrdersSubmitted()
	log.WithFields(logger.Fields{
		"order_id":  result.OrderID,
		"status":    result.Status,
		"filled":    result.Filled,
		"remaining": result.Remaining,
	}).Info("order submitted")
	log.LogMetric(component, "orders_submitted", 1, "counter", logger.Fields{"venue": in.Venue})
	logger.LogPerformanceEntry(log, component, "place_order", time.Since(start), nil)

	if result.PartiallyOpen() {
		if err := s.gate.OnPartialFill(ctx, req, result); err != nil {
			log.WithFields(logger.Fields{"order_id": result.OrderID}).WithError(err).Error("partial fill hook failed")
		}
	}
	return result, nil
}

// CancelOrder cancels orderID and returns the venue's acknowledgement.
func (s *Service) CancelOrder(ctx context.Context, venueName, symbol, orderID string) (models.OrderResult, error) {
	if orderID == "" {
		return models.OrderResult{}, errors.New("order id is required")
	}
	conn, done, err := s.open(venueName)
	if err != nil {
		return models.OrderResult{}, err
	}
	defer done()

	result, err := conn.CancelOrder(ctx, symbol, orderID)
	if err != nil {
		s.log.WithComponent(component).WithFields(logger.Fields{"venue": venueName, "symbol": symbol, "order_id": orderID}).
			WithError(err).Error("cancel failed")
		return models.OrderResult{}, err
	}
	s.log.WithComponent(component).WithFields(logger.Fields{"venue": venueName, "order_id": result.OrderID}).Info("order canceled")
	return result, nil
}

func (s *Service) FetchOrder(ctx context.Context, venueName, symbol, orderID string) (models.OrderResult, error) {
	conn, done, err := s.open(venueName)
	if err != nil {
		return models.OrderResult{}, err
	}
	defer done()
	return conn.FetchOrder(ctx, symbol, orderID)
}

func (s *Service) OpenOrders(ctx context.Context, venueName, symbol string) ([]models.OrderResult, error) {
	conn, done, err := s.open(venueName)
	if err != nil {
		return nil, err
	}
	defer done()
	return conn.FetchOpenOrders(ctx, symbol)
}

func (s *Service) ClosedOrders(ctx context.Context, venueName, symbol string) ([]models.OrderResult, error) {
	conn, done, err := s.open(venueName)
	if err != nil {
		return nil, err
	}
	defer done()
	return conn.FetchClosedOrders(ctx, symbol)
}

func (s *Service) SetLeverage(ctx context.Context, venueName string, leverage int, symbol string) error {
	conn, done, err := s.open(venueName)
	if err != nil {
		return err
	}
	defer done()
	if err := conn.SetLeverage(ctx, leverage, symbol); err != nil {
		return err
	}
	s.log.WithComponent(component).WithFields(logger.Fields{"venue": venueName, "symbol": symbol, "leverage": leverage}).Info("leverage updated")
	return nil
}

func (s *Service) SetMarginMode(ctx context.Context, venueName string, mode models.MarginMode, symbol string) error {
	conn, done, err := s.open(venueName)
	if err != nil {
		return err
	}
	defer done()
	if err := conn.SetMarginMode(ctx, mode, symbol); err != nil {
		return err
	}
	s.log.WithComponent(component).WithFields(logger.Fields{"venue": venueName, "symbol": symbol, "margin_mode": string(mode)}).Info("margin mode updated")
	return nil
}
