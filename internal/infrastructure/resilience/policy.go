package resilience

import (
	"strings"
	"time"
)

// RetryPolicy bounds the attempts made for one call and the exponential
// backoff between them. Jitter is the fraction of each delay that is
// randomised; zero keeps delays deterministic.
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64
	Jitter         float64
}

// BreakerPolicy configures the circuit breaker shared by every operation of
// one dependency.
type BreakerPolicy struct {
	Enabled          bool
	MinRequests      uint32
	FailureRatio     float64
	OpenTimeout      time.Duration
	HalfOpenMaxCalls uint32
}

type Policy struct {
	Retry   RetryPolicy
	Breaker BreakerPolicy
}

// Config carries the default policy plus overrides keyed by dependency name,
// the part of an operation name before the first dot ("qdrant" for
// "qdrant.search").
type Config struct {
	Default      Policy
	Dependencies map[string]Policy
}

func DefaultPolicy() Policy {
	return Policy{
		Retry: RetryPolicy{
			MaxAttempts:    3,
			InitialBackoff: 100 * time.Millisecond,
			MaxBackoff:     400 * time.Millisecond,
			Multiplier:     2.0,
			Jitter:         0.2,
		},
		Breaker: BreakerPolicy{
			Enabled:          true,
			MinRequests:      10,
			FailureRatio:     0.5,
			OpenTimeout:      30 * time.Second,
			HalfOpenMaxCalls: 2,
		},
	}
}

func DefaultConfig() Config {
	return Config{Default: DefaultPolicy()}
}

// For returns the normalized policy for dependency, falling back to Default.
func (c Config) For(dependency string) Policy {
	if p, ok := c.Dependencies[dependency]; ok {
		return p.normalize()
	}
	return c.Default.normalize()
}

func (p Policy) normalize() Policy {
	def := DefaultPolicy()
	out := p

	r := &out.Retry
	if r.MaxAttempts <= 0 {
		r.MaxAttempts = def.Retry.MaxAttempts
	}
	if r.InitialBackoff <= 0 {
		r.InitialBackoff = def.Retry.InitialBackoff
	}
	if r.MaxBackoff < r.InitialBackoff {
		r.MaxBackoff = max(def.Retry.MaxBackoff, r.InitialBackoff)
	}
	if r.Multiplier < 1 {
		r.Multiplier = def.Retry.Multiplier
	}
	if r.Jitter < 0 || r.Jitter > 1 {
		r.Jitter = 0
	}

	b := &out.Breaker
	if b.MinRequests == 0 {
		b.MinRequests = def.Breaker.MinRequests
	}
	if b.FailureRatio <= 0 || b.FailureRatio > 1 {
		b.FailureRatio = def.Breaker.FailureRatio
	}
	if b.OpenTimeout <= 0 {
		b.OpenTimeout = def.Breaker.OpenTimeout
	}
	if b.HalfOpenMaxCalls == 0 {
		b.HalfOpenMaxCalls = def.Breaker.HalfOpenMaxCalls
	}
	return out
}

// delay is the wait after the given failed attempt (1-based). roll returns a
// value in [0, 1).
func (r RetryPolicy) delay(attempt int, roll func() float64) time.Duration {
	d := float64(r.InitialBackoff)
	for i := 1; i < attempt; i++ {
		d *= r.Multiplier
		if d >= float64(r.MaxBackoff) {
			d = float64(r.MaxBackoff)
			break
		}
	}
	if r.Jitter > 0 && roll != nil {
		d -= d * r.Jitter * roll()
	}
	return time.Duration(d)
}

// dependencyOf maps "qdrant.search" to "qdrant".
func dependencyOf(operation string) string {
	dep, _, _ := strings.Cut(operation, ".")
	return dep
}
