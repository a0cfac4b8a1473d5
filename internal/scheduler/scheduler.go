package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/smallbiznis/idadmin/internal/clock"
	"github.com/smallbiznis/idadmin/internal/config"
	grantdomain "github.com/smallbiznis/idadmin/internal/grant/domain"
	obsmetrics "github.com/smallbiznis/idadmin/internal/observability/metrics"
	"github.com/smallbiznis/idadmin/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const lockKey = "scheduler:grant_cleanup"

var ErrInvalidConfig = errors.New("scheduler: missing dependency")

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	Repo      grantdomain.Repository
	Clock     clock.Clock
	Config    Config              `optional:"true"`
	AppConfig config.Config       `optional:"true"`
	Locker    *ratelimit.Locker   `optional:"true"`
	Metrics   *obsmetrics.Metrics `optional:"true"`
}

// Scheduler periodically deletes persisted grants whose expiration has
// passed. With Redis configured only one instance sweeps per run.
type Scheduler struct {
	db      *gorm.DB
	log     *zap.Logger
	repo    grantdomain.Repository
	clock   clock.Clock
	cfg     Config
	locker  *ratelimit.Locker
	lockKey string
	metrics *obsmetrics.Metrics
}

func New(p Params) (*Scheduler, error) {
	if p.DB == nil || p.Log == nil || p.Repo == nil || p.Clock == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		db:      p.DB,
		log:     p.Log.Named("scheduler").With(zap.String("job", "grant_cleanup")),
		repo:    p.Repo,
		clock:   p.Clock,
		cfg:     p.Config.withDefaults(),
		locker:  p.Locker,
		lockKey: p.AppConfig.Redis.KeyPrefix + lockKey,
		metrics: p.Metrics,
	}, nil
}

// RunOnce removes expired grants in batches and returns how many were
// deleted. A run that finds the lock held elsewhere removes nothing.
func (s *Scheduler) RunOnce(parent context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(parent, s.cfg.JobTimeout)
	defer cancel()

	if s.locker != nil {
		token, ok, err := s.locker.TryLock(ctx, s.lockKey, s.cfg.JobTimeout)
		if err != nil {
			return 0, fmt.Errorf("acquire cleanup lock: %w", err)
		}
		if !ok {
			s.log.Debug("grant cleanup skipped: lock held elsewhere")
			return 0, nil
		}
		defer func() {
			if err := s.locker.Release(context.WithoutCancel(ctx), s.lockKey, token); err != nil {
				s.log.Warn("failed to release cleanup lock", zap.Error(err))
			}
		}()
	}

	start := time.Now()
	cutoff := s.clock.Now()
	var total int64
	for i := 0; i < s.cfg.MaxBatches; i++ {
		removed, err := s.repo.DeleteExpired(ctx, s.db, cutoff, s.cfg.BatchSize)
		total += removed
		if err != nil {
			s.metrics.RecordExpiredGrantsRemoved(ctx, total)
			return total, fmt.Errorf("grant_cleanup: %w", err)
		}
		if removed < int64(s.cfg.BatchSize) {
			break
		}
	}
	s.metrics.RecordExpiredGrantsRemoved(ctx, total)

	if total > 0 {
		s.log.Info("expired grants removed",
			zap.Int64("count", total),
			zap.Time("cutoff", cutoff),
			zap.Duration("duration", time.Since(start)),
		)
	}
	return total, nil
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if _, err := s.RunOnce(ctx); err != nil {
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
				s.log.Warn("grant cleanup timed out", zap.Duration("timeout", s.cfg.JobTimeout), zap.Error(err))
			} else {
				s.log.Warn("grant cleanup failed", zap.Error(err))
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
