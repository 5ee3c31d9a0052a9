package venue

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ParseFloat coerces a venue numeric string. Empty, "null", "NaN" and
// unparsable input report ok=false.
func ParseFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "null", "nan", "none", "-":
		return 0, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, false
	}
	f, _ := d.Float64()
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// OptFloat is ParseFloat returning nil for absent values.
func OptFloat(s string) *float64 {
	f, ok := ParseFloat(s)
	if !ok {
		return nil
	}
	return &f
}

// Float returns ParseFloat's value, or zero when absent.
func Float(s string) float64 {
	f, _ := ParseFloat(s)
	return f
}

// PositiveFloat is OptFloat that also treats zero and negatives as absent.
func PositiveFloat(s string) *float64 {
	f, ok := ParseFloat(s)
	if !ok || f <= 0 {
		return nil
	}
	return &f
}

// FormatAmount renders a quantity or price without float noise.
func FormatAmount(v float64) string {
	return decimal.NewFromFloat(v).String()
}

// Number decodes JSON numbers and numeric strings alike. Venues are not
// consistent about which they send.
type Number string

func (n *Number) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*n = ""
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*n = Number(str)
		return nil
	}
	*n = Number(s)
	return nil
}

func (n Number) String() string { return string(n) }

// Opt is OptFloat for a Number.
func (n Number) Opt() *float64 { return OptFloat(string(n)) }

// Float is Float for a Number.
func (n Number) Float() float64 { return Float(string(n)) }

// Millis converts a millisecond epoch Number into UTC time. Absent or
// non-positive values yield the zero time.
func (n Number) Millis() time.Time {
	ms, err := strconv.ParseInt(strings.TrimSpace(string(n)), 10, 64)
	if err != nil {
		f, ok := ParseFloat(string(n))
		if !ok {
			return time.Time{}
		}
		ms = int64(f)
	}
	if ms <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

// TimeOrNow returns t, or the current UTC time when t is zero.
func TimeOrNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}

// Roundtrip re-decodes an SDK value into a local struct through JSON. SDK
// response types differ between releases; the JSON they carry does not.
func Roundtrip(src, dst any) error {
	raw, err := json.Marshal(src)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}
