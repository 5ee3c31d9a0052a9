package venue

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseTimeframe parses candle timeframes such as "1m", "4h", "1d" and "1w".
func ParseTimeframe(tf string) (time.Duration, error) {
	tf = strings.TrimSpace(tf)
	if len(tf) < 2 {
		return 0, fmt.Errorf("invalid timeframe %q", tf)
	}
	n, err := strconv.Atoi(tf[:len(tf)-1])
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid timeframe %q", tf)
	}
	var unit time.Duration
	switch tf[len(tf)-1] {
	case 'm':
		unit = time.Minute
	case 'h':
		unit = time.Hour
	case 'd':
		unit = 24 * time.Hour
	case 'w':
		unit = 7 * 24 * time.Hour
	case 'M':
		unit = 30 * 24 * time.Hour
	default:
		return 0, fmt.Errorf("invalid timeframe %q", tf)
	}
	return time.Duration(n) * unit, nil
}
