package ratelimit

import (
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

var Module = fx.Module("rate.limit",
	fx.Provide(NewSignInLimiter),
	fx.Provide(provideLocker),
)

type lockerParams struct {
	fx.In

	Client redis.UniversalClient `optional:"true"`
}

func provideLocker(p lockerParams) *Locker {
	return NewLocker(p.Client)
}
