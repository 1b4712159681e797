package client

import (
	"math"
	"time"
)

// Backoff computes reconnect delays: base * factor^(attempt-1), capped.
type Backoff struct {
	Base   time.Duration
	Factor float64
	Cap    time.Duration
}

// DefaultBackoff starts at 3s and grows by 1.5x up to 30s.
var DefaultBackoff = Backoff{Base: 3 * time.Second, Factor: 1.5, Cap: 30 * time.Second}

// Delay returns the wait before reconnect attempt n (1-based). The delay
// never exceeds Cap regardless of attempt count.
func (b Backoff) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := float64(b.Base) * math.Pow(b.Factor, float64(attempt-1))
	if d >= float64(b.Cap) {
		return b.Cap
	}
	return time.Duration(d)
}
