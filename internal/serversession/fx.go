package serversession

import (
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/idadmin/internal/clock"
	"github.com/smallbiznis/idadmin/internal/config"
	"github.com/smallbiznis/idadmin/internal/serversession/domain"
	"github.com/smallbiznis/idadmin/internal/serversession/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("serversession",
	fx.Provide(Provide),
)

type Params struct {
	fx.In

	Client redis.UniversalClient `optional:"true"`
	Config config.Config
	Clock  clock.Clock
}

// Provide yields a nil Store when Redis is not configured.
func Provide(p Params) domain.Store {
	if p.Client == nil {
		return nil
	}
	return repository.NewRedisStore(p.Client, p.Config.Redis.KeyPrefix, p.Clock)
}
