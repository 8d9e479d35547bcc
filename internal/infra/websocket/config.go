package websocket

import (
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultReadTimeout     = 60 * time.Second
	defaultWriteTimeout    = 10 * time.Second
	defaultPingInterval    = 54 * time.Second
	defaultMaxMessageBytes = 64 * 1024
	sendBufferSize         = 256
)

// RateLimitConfig bounds how many frames a single connection may send.
type RateLimitConfig struct {
	// MessagesPerSecond is the sustained frame rate.
	MessagesPerSecond rate.Limit
	// Burst is the token bucket capacity.
	Burst   int
	Enabled bool
}

// Config tunes connection keepalive and limits.
type Config struct {
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	PingInterval    time.Duration
	MaxMessageBytes int64
	RateLimit       RateLimitConfig
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		ReadTimeout:     defaultReadTimeout,
		WriteTimeout:    defaultWriteTimeout,
		PingInterval:    defaultPingInterval,
		MaxMessageBytes: defaultMaxMessageBytes,
		RateLimit: RateLimitConfig{
			MessagesPerSecond: 20,
			Burst:             40,
			Enabled:           true,
		},
	}
}

func (c Config) withDefaults() Config {
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = defaultReadTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = defaultWriteTimeout
	}
	if c.PingInterval <= 0 || c.PingInterval >= c.ReadTimeout {
		c.PingInterval = c.ReadTimeout * 9 / 10
	}
	if c.MaxMessageBytes <= 0 {
		c.MaxMessageBytes = defaultMaxMessageBytes
	}
	return c
}

func (r RateLimitConfig) limiter() *rate.Limiter {
	if !r.Enabled || r.MessagesPerSecond <= 0 {
		return nil
	}
	burst := r.Burst
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(r.MessagesPerSecond, burst)
}
