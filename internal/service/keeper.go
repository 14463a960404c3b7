package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const defaultKeeperInterval = 30 * time.Second

// KeeperService advances every debate on a schedule so phases and
// finalizations happen without user traffic.
type KeeperService struct {
	phases *PhaseService
	logger *zap.Logger

	interval time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

func NewKeeperService(phases *PhaseService, logger *zap.Logger) *KeeperService {
	return &KeeperService{
		phases:   phases,
		logger:   logger,
		interval: defaultKeeperInterval,
		stopCh:   make(chan struct{}),
	}
}

func (s *KeeperService) SetInterval(d time.Duration) {
	if d > 0 {
		s.interval = d
	}
}

// Start runs the keeper in a background goroutine.
func (s *KeeperService) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.logger.Info("phase keeper started", zap.Duration("interval", s.interval))

		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				s.run(ctx)
				cancel()
			case <-s.stopCh:
				s.logger.Info("phase keeper stopped")
				return
			}
		}
	}()
}

// Stop gracefully stops the keeper.
func (s *KeeperService) Stop() {
	close(s.stopCh)
	s.wg.Wait()
}

func (s *KeeperService) run(ctx context.Context) {
	count := s.phases.DebateCount(ctx)
	for id := uint64(0); id < count; id++ {
		if ctx.Err() != nil {
			return
		}
		if _, err := s.phases.AdvancePhase(ctx, id); err != nil {
			s.logger.Warn("failed to advance debate", zap.Uint64("debate_id", id), zap.Error(err))
		}
	}
}
