package signal

import (
	"github.com/dkeye/Relay/internal/config"
	"golang.org/x/time/rate"
)

// newMessageLimiter builds the per-connection inbound limiter. A
// non-positive rate disables limiting.
func newMessageLimiter(cfg config.RateLimit) *rate.Limiter {
	if cfg.PerSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(cfg.PerSecond), burst)
}
