package venue

import (
	"net/http"
	"strconv"
	"strings"

	"atlas/logger"
)

// usageHeaders lists, per venue, where the REST quota consumption is reported.
var usageHeaders = map[string]func(http.Header) (used, limit float64, ok bool){
	"binance": binanceUsage,
	"bybit":   bybitUsage,
}

func binanceUsage(h http.Header) (float64, float64, bool) {
	for _, key := range []string{"X-MBX-USED-WEIGHT-1M", "X-MBX-USED-WEIGHT"} {
		if v := h.Get(key); v != "" {
			used, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			return used, 0, err == nil
		}
	}
	return 0, 0, false
}

// bybitUsage derives consumption from the per-endpoint limit and the
// remaining quota.
func bybitUsage(h http.Header) (float64, float64, bool) {
	limit, err1 := strconv.ParseFloat(strings.TrimSpace(h.Get("X-Bapi-Limit")), 64)
	remaining, err2 := strconv.ParseFloat(strings.TrimSpace(h.Get("X-Bapi-Limit-Status")), 64)
	if err1 != nil || err2 != nil || limit <= 0 {
		return 0, 0, false
	}
	used := limit - remaining
	if used < 0 {
		used = 0
	}
	return used, limit, true
}

// usageTransport reports the venue's rate-limit headers as gauges.
type usageTransport struct {
	venue string
	parse func(http.Header) (float64, float64, bool)
	log   *logger.Entry
	base  http.RoundTripper
}

func (t usageTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if err != nil || resp == nil {
		return resp, err
	}
	if used, limit, ok := t.parse(resp.Header); ok {
		fields := logger.Fields{"venue": t.venue, "path": req.URL.Path}
		t.log.LogMetric(t.venue+"_connector", "used_weight", used, "gauge", fields)
		if limit > 0 {
			t.log.LogMetric(t.venue+"_connector", "weight_limit", limit, "gauge", fields)
		}
	}
	return resp, nil
}

func (t usageTransport) CloseIdleConnections() { closeIdle(t.base) }

// withUsage wraps client so responses from venue feed the used-weight gauges.
// Venues without known headers are left untouched.
func withUsage(venue string, client *http.Client, log *logger.Entry) *http.Client {
	parse, ok := usageHeaders[venue]
	if !ok || log == nil {
		return client
	}
	base := client.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	client.Transport = usageTransport{venue: venue, parse: parse, log: log, base: base}
	return client
}
