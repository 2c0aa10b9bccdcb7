package service

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

type expiryMarker interface {
	MarkExpired(ctx context.Context, now time.Time, grace time.Duration) (int64, error)
}

// ExpiryService periodically marks stale ACTIVE reservations as EXPIRED.
// The sweep is a materialization of what readers already derive, so running
// it twice, late, or never changes nothing observable. Expired reservations
// keep their capacity consumed.
type ExpiryService struct {
	reservations expiryMarker
	grace        time.Duration
	cron         *cron.Cron
	metrics      *MetricsService
	logger       *zap.Logger
}

// NewExpiryService constructs ExpiryService.
func NewExpiryService(reservations expiryMarker, grace time.Duration, metrics *MetricsService, logger *zap.Logger) *ExpiryService {
	if grace <= 0 {
		grace = 2 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExpiryService{
		reservations: reservations,
		grace:        grace,
		cron:         cron.New(),
		metrics:      metrics,
		logger:       logger,
	}
}

// Start schedules the sweep with the given cron spec and begins running it.
func (s *ExpiryService) Start(spec string) error {
	_, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		s.Sweep(ctx)
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("reservation expiry sweep started", zap.String("spec", spec))
	return nil
}

// Stop halts the scheduler and waits for a running sweep to finish.
func (s *ExpiryService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// Sweep marks every ACTIVE reservation whose slot ended more than the grace
// period ago.
func (s *ExpiryService) Sweep(ctx context.Context) {
	count, err := s.reservations.MarkExpired(ctx, time.Now(), s.grace)
	if err != nil {
		s.logger.Error("expiry sweep failed", zap.Error(err))
		return
	}
	s.metrics.RecordExpirySweep()
	if count > 0 {
		s.logger.Info("reservations expired", zap.Int64("count", count))
	}
}
