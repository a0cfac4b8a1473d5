package ratelimit

import (
	"context"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/idadmin/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const keySignIn = "signin:addr:"

// SignInLimiter throttles console sign-in attempts per client address.
// A nil limiter allows everything.
type SignInLimiter struct {
	bucket *TokenBucket
	prefix string
	rate   float64
	burst  int
}

type Params struct {
	fx.In

	Client redis.UniversalClient `optional:"true"`
	Config config.Config
	Log    *zap.Logger
}

func NewSignInLimiter(p Params) *SignInLimiter {
	cfg := p.Config.RateLimit
	if p.Client == nil || !cfg.Enabled {
		return nil
	}
	if cfg.SignInRate <= 0 || cfg.SignInBurst <= 0 {
		p.Log.Warn("sign-in rate limit disabled: rate and burst must be positive",
			zap.Float64("rate", cfg.SignInRate),
			zap.Int("burst", cfg.SignInBurst),
		)
		return nil
	}
	return &SignInLimiter{
		bucket: NewTokenBucket(p.Client),
		prefix: p.Config.Redis.KeyPrefix,
		rate:   cfg.SignInRate,
		burst:  cfg.SignInBurst,
	}
}

func (l *SignInLimiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

func (l *SignInLimiter) Allow(ctx context.Context, addr string) (*Result, error) {
	if !l.Enabled() {
		return &Result{Allowed: true}, nil
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		addr = "unknown"
	}
	return l.bucket.Allow(ctx, l.prefix+keySignIn+addr, l.rate, l.burst)
}
