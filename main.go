package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"atlas/config"
	"atlas/internal/factory"
	"atlas/internal/marketdata"
	"atlas/internal/portfolio"
	"atlas/internal/risk"
	"atlas/internal/trading"
	"atlas/logger"
	"atlas/models"
)

type options struct {
	action    string
	venue     string
	venues    string
	symbol    string
	side      string
	orderType string
	amount    float64
	price     float64
	transport string
	timeframe string
	since     string
	limit     int
	leverage  int
	margin    string
	orderID   string
}

func main() {
	log := logger.GetLogger()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Error loading .env file")
	}

	configPath := flag.String("config", config.DefaultPath, "Path to configuration file")
	var opts options
	flag.StringVar(&opts.action, "action", "", "ticker|orderbook|candles|funding|status|order|cancel|fetch-order|open-orders|closed-orders|leverage|margin-mode|portfolio")
	flag.StringVar(&opts.venue, "venue", "binance", "Venue name ("+strings.Join(factory.Supported(), ", ")+")")
	flag.StringVar(&opts.venues, "venues", "", "Comma separated venues for -action portfolio")
	flag.StringVar(&opts.symbol, "symbol", "", "Unified symbol, e.g. BTC/USDT")
	flag.StringVar(&opts.side, "side", "buy", "Order side: buy|sell")
	flag.StringVar(&opts.orderType, "type", "limit", "Order type: market|limit")
	flag.Float64Var(&opts.amount, "amount", 0, "Order amount in base units")
	flag.Float64Var(&opts.price, "price", 0, "Limit price")
	flag.StringVar(&opts.transport, "transport", "auto", "Market data transport: auto|stream|poll")
	flag.StringVar(&opts.timeframe, "timeframe", "1h", "Candle timeframe")
	flag.StringVar(&opts.since, "since", "", "Candle start time (RFC3339)")
	flag.IntVar(&opts.limit, "limit", 0, "Order book depth or candle count")
	flag.IntVar(&opts.leverage, "leverage", 0, "Leverage for -action leverage")
	flag.StringVar(&opts.margin, "margin", "", "Margin mode for -action margin-mode: cross|isolated")
	flag.StringVar(&opts.orderID, "order-id", "", "Order id for cancel and fetch-order")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}

	if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAge); err != nil {
		log.WithError(err).Error("Failed to configure logger")
		os.Exit(1)
	}

	appEnv := config.AppEnvironment()
	log.WithFields(logger.Fields{
		"service": cfg.Gateway.Name,
		"version": cfg.Gateway.Version,
		"env":     appEnv,
		"action":  opts.action,
	}).Info("starting atlas")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Logging.CloudWatch.Enabled {
		cw := cfg.Logging.CloudWatch
		logger.InitCloudWatch(ctx, logger.CloudWatchOptions{
			Region:          cw.Region,
			Namespace:       cw.Namespace,
			Dashboard:       cw.Dashboard,
			AccessKeyID:     cw.AccessKeyID,
			SecretAccessKey: cw.SecretAccessKey,
		})
	}
	if cfg.Logging.ReportInterval > 0 {
		logger.StartReport(ctx, log, cfg.Logging.ReportInterval)
	}

	if config.IsProductionLike(appEnv) {
		for name, v := range map[string]config.VenueConfig{
			"binance": cfg.Venues.Binance,
			"bybit":   cfg.Venues.Bybit,
			"kucoin":  cfg.Venues.Kucoin,
		} {
			if v.Testnet {
				log.WithFields(logger.Fields{"venue": name, "env": appEnv}).Warn("testnet venue configured in a production-like environment")
			}
		}
	}

	result, err := run(ctx, cfg, log, opts)
	if err != nil {
		log.WithComponent("main").WithError(err).Error("action failed")
		os.Exit(1)
	}
	if err := printJSON(os.Stdout, result); err != nil {
		log.WithError(err).Error("failed to write result")
		os.Exit(1)
	}
}

// run wires the services from cfg and executes one action.
func run(ctx context.Context, cfg *config.Config, log *logger.Log, opts options) (any, error) {
	venues := factory.New(cfg, log)
	market := marketdata.NewService(venues, venues, cfg.MarketData, log)
	orders := trading.NewService(venues, risk.NewGate(cfg.Risk), log)

	needSymbol := func() error {
		if strings.TrimSpace(opts.symbol) == "" {
			return fmt.Errorf("-symbol is required for -action %s", opts.action)
		}
		return nil
	}

	switch opts.action {
	case "ticker", "orderbook", "candles":
		if err := needSymbol(); err != nil {
			return nil, err
		}
		transport, err := models.ParseTransport(opts.transport)
		if err != nil {
			return nil, err
		}
		switch opts.action {
		case "ticker":
			return market.Ticker(ctx, opts.venue, opts.symbol, transport)
		case "orderbook":
			return market.OrderBook(ctx, opts.venue, opts.symbol, opts.limit, transport)
		}
		var since *time.Time
		if opts.since != "" {
			t, err := time.Parse(time.RFC3339, opts.since)
			if err != nil {
				return nil, fmt.Errorf("invalid -since: %w", err)
			}
			since = &t
		}
		return market.Candles(ctx, opts.venue, opts.symbol, opts.timeframe, since, opts.limit, transport)

	case "funding":
		if err := needSymbol(); err != nil {
			return nil, err
		}
		return market.FundingRate(ctx, opts.venue, opts.symbol)

	case "status":
		return market.Status(ctx, opts.venue)

	case "order":
		if err := needSymbol(); err != nil {
			return nil, err
		}
		side, err := models.ParseSide(opts.side)
		if err != nil {
			return nil, err
		}
		typ, err := models.ParseOrderType(opts.orderType)
		if err != nil {
			return nil, err
		}
		var price *float64
		if opts.price > 0 {
			price = &opts.price
		}
		return orders.PlaceOrder(ctx, trading.PlaceOrderInput{
			Venue:  opts.venue,
			Symbol: opts.symbol,
			Side:   side,
			Type:   typ,
			Amount: opts.amount,
			Price:  price,
		})

	case "cancel":
		if err := needSymbol(); err != nil {
			return nil, err
		}
		return orders.CancelOrder(ctx, opts.venue, opts.symbol, opts.orderID)

	case "fetch-order":
		if err := needSymbol(); err != nil {
			return nil, err
		}
		return orders.FetchOrder(ctx, opts.venue, opts.symbol, opts.orderID)

	case "open-orders":
		return orders.OpenOrders(ctx, opts.venue, opts.symbol)

	case "closed-orders":
		return orders.ClosedOrders(ctx, opts.venue, opts.symbol)

	case "leverage":
		if err := needSymbol(); err != nil {
			return nil, err
		}
		if err := orders.SetLeverage(ctx, opts.venue, opts.leverage, opts.symbol); err != nil {
			return nil, err
		}
		return map[string]any{"venue": opts.venue, "symbol": opts.symbol, "leverage": opts.leverage}, nil

	case "margin-mode":
		if err := needSymbol(); err != nil {
			return nil, err
		}
		mode, err := models.ParseMarginMode(opts.margin)
		if err != nil {
			return nil, err
		}
		if err := orders.SetMarginMode(ctx, opts.venue, mode, opts.symbol); err != nil {
			return nil, err
		}
		return map[string]any{"venue": opts.venue, "symbol": opts.symbol, "margin_mode": mode}, nil

	case "portfolio":
		names := splitVenues(opts.venues)
		if len(names) == 0 {
			names = []string{opts.venue}
		}
		return portfolio.NewAggregator(venues, cfg.Portfolio, log).FetchPortfolio(ctx, names), nil

	case "":
		return nil, errors.New("-action is required")
	}
	return nil, fmt.Errorf("unknown action %q", opts.action)
}

func splitVenues(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
