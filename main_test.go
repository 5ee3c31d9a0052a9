package main

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"atlas/config"
	"atlas/internal/venue"
	"atlas/logger"
	"atlas/models"
)

func TestSplitVenues(t *testing.T) {
	got := splitVenues(" binance, ,bybit,kucoin ")
	want := []string{"binance", "bybit", "kucoin"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("splitVenues = %v, want %v", got, want)
	}
	if got := splitVenues(""); len(got) != 0 {
		t.Fatalf("expected no venues, got %v", got)
	}
}

func TestRunRejectsBadInput(t *testing.T) {
	cfg := config.Default()
	cases := []struct {
		name string
		opts options
	}{
		{"missing action", options{}},
		{"unknown action", options{action: "teleport"}},
		{"ticker without symbol", options{action: "ticker", venue: "binance"}},
		{"bad transport", options{action: "ticker", venue: "binance", symbol: "BTC/USDT", transport: "pigeon"}},
		{"bad side", options{action: "order", venue: "binance", symbol: "BTC/USDT", side: "hold", orderType: "limit"}},
		{"bad margin", options{action: "margin-mode", venue: "bybit", symbol: "BTC/USDT", margin: "portfolio"}},
	}
	for _, c := range cases {
		if _, err := run(context.Background(), &cfg, logger.Discard(), c.opts); err == nil {
			t.Errorf("%s: expected error", c.name)
		}
	}
}

func TestRunUnknownVenue(t *testing.T) {
	cfg := config.Default()
	_, err := run(context.Background(), &cfg, logger.Discard(), options{action: "status", venue: "mtgox", transport: "poll"})
	if !errors.Is(err, venue.ErrUnsupportedVenue) {
		t.Fatalf("expected ErrUnsupportedVenue, got %v", err)
	}
}

func TestRunCandlesStreamUnsupported(t *testing.T) {
	cfg := config.Default()
	_, err := run(context.Background(), &cfg, logger.Discard(), options{
		action: "candles", venue: "binance", symbol: "BTC/USDT", transport: "stream", timeframe: "1h",
	})
	if !errors.Is(err, venue.ErrUnsupportedCapability) {
		t.Fatalf("expected ErrUnsupportedCapability, got %v", err)
	}
}

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := printJSON(&buf, models.VenueStatus{Venue: "bybit", Status: "ok"}); err != nil {
		t.Fatalf("printJSON: %v", err)
	}
	if !strings.Contains(buf.String(), "\"status\": \"ok\"") {
		t.Fatalf("unexpected output: %s", buf.String())
	}
}
