package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"dexingest/internal/config"
	"dexingest/internal/repository"
)

// ExpirySweepService marks open orders whose on-chain expiry has passed as
// expired. The order book stops matching such orders but emits no log for
// them, so the snapshot table needs this sweep to reflect their real state.
type ExpirySweepService struct {
	Repo   repository.Repository
	Config config.SweeperConfig
	Logger *zap.Logger
}

func (s *ExpirySweepService) RunOnce(ctx context.Context) error {
	if s == nil || s.Repo == nil {
		return nil
	}
	if !s.Config.Enabled {
		return nil
	}
	batch := s.Config.BatchSize
	if batch <= 0 || batch > 10000 {
		batch = 500
	}
	n, err := s.Repo.ExpireDueOrders(ctx, time.Now().UTC(), batch)
	if err != nil {
		if s.Logger != nil {
			s.Logger.Warn("expiry sweep failed", zap.Error(err))
		}
		return err
	}
	if n > 0 && s.Logger != nil {
		s.Logger.Info("expired stale orders", zap.Int64("count", n))
	}
	return nil
}
