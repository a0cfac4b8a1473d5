package seed

import (
	"context"
	"errors"

	"github.com/smallbiznis/idadmin/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("seed",
	fx.Provide(New),
	fx.Invoke(register),
)

func register(lc fx.Lifecycle, cfg config.Config, log *zap.Logger, s *Seeder) {
	if !cfg.SeedDemoData {
		return
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			err := s.Run(ctx)
			if errors.Is(err, ErrSeedLocked) {
				log.Named("seed").Info("seed skipped: lock held elsewhere")
				return nil
			}
			return err
		},
	})
}
