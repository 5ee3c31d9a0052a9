package venue

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"atlas/config"
	"atlas/logger"

	"golang.org/x/time/rate"
)

type userAgentTransport struct {
	agent string
	base  http.RoundTripper
}

func (t userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", t.agent)
	return t.base.RoundTrip(req)
}

func (t userAgentTransport) CloseIdleConnections() { closeIdle(t.base) }

func closeIdle(rt http.RoundTripper) {
	if c, ok := rt.(interface{ CloseIdleConnections() }); ok {
		c.CloseIdleConnections()
	}
}

// NewHTTPClient builds the pooled client a connector uses for REST calls.
// Outbound connections bind to cfg.LocalIP when it is a valid address.
func NewHTTPClient(cfg config.VenueConfig, reader config.ReaderConfig) *http.Client {
	pool := cfg.ConnectionPool
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        pool.MaxIdleConns,
		MaxIdleConnsPerHost: pool.MaxIdleConns,
		MaxConnsPerHost:     pool.MaxConnsPerHost,
		IdleConnTimeout:     pool.IdleConnTimeout,
		DisableCompression:  false,
	}
	if dialer := localDialer(cfg.LocalIP); dialer != nil {
		transport.DialContext = dialer.DialContext
	}

	var rt http.RoundTripper = transport
	if reader.UserAgent != "" {
		rt = userAgentTransport{agent: reader.UserAgent, base: transport}
	}
	return &http.Client{Transport: rt, Timeout: reader.Timeout}
}

func localDialer(localIP string) *net.Dialer {
	if localIP == "" {
		return nil
	}
	ip := net.ParseIP(localIP)
	if ip == nil {
		return nil
	}
	return &net.Dialer{LocalAddr: &net.TCPAddr{IP: ip}, Timeout: 30 * time.Second}
}

// NewLimiter builds the per-connector request throttle.
func NewLimiter(cfg config.RateLimitConfig) *rate.Limiter {
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 5
	}
	burst := cfg.BurstSize
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

// Session bundles what every REST connector owns: the HTTP client, the
// throttle and a one-shot close.
type Session struct {
	Venue  string
	Client *http.Client
	// Translate maps SDK errors into the venue error taxonomy.
	Translate func(error) error

	log     *logger.Entry
	limiter *rate.Limiter
	closed  chan struct{}
	once    sync.Once
}

// NewSession creates the HTTP client and limiter for one connector.
func NewSession(venue string, cfg config.VenueConfig, reader config.ReaderConfig, log *logger.Entry) *Session {
	return &Session{
		Venue:   venue,
		Client:  withUsage(venue, NewHTTPClient(cfg, reader), log),
		log:     log,
		limiter: NewLimiter(cfg.RateLimit),
		closed:  make(chan struct{}),
	}
}

// Call throttles, times and wraps one venue request.
func (s *Session) Call(ctx context.Context, op string, fn func() error) error {
	if err := s.Wait(ctx); err != nil {
		return Wrap(s.Venue, op, err)
	}
	start := time.Now()
	err := fn()
	if s.log != nil {
		logger.LogPerformanceEntry(s.log, s.Venue+"_connector", op, time.Since(start), logger.Fields{"venue": s.Venue})
	}
	if err == nil {
		return nil
	}
	if s.Translate != nil {
		err = s.Translate(err)
	}
	logger.IncrementVenueErrors()
	return Wrap(s.Venue, op, err)
}

// Wait blocks until the throttle admits one request.
func (s *Session) Wait(ctx context.Context) error {
	select {
	case <-s.closed:
		return &Error{Venue: s.Venue, Op: "request", Err: net.ErrClosed}
	default:
	}
	return s.limiter.Wait(ctx)
}

// Close releases idle connections. Later calls are no-ops.
func (s *Session) Close() error {
	s.once.Do(func() {
		close(s.closed)
		s.Client.CloseIdleConnections()
	})
	return nil
}
