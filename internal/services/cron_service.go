package services

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// CronService manages scheduled background jobs
type CronService struct {
	cron          *cron.Cron
	holdExpirySvc *HoldExpiryService
	logger        *logrus.Logger
}

// NewCronService creates a new CronService
func NewCronService(holdExpirySvc *HoldExpiryService, logger *logrus.Logger) *CronService {
	c := cron.New(cron.WithSeconds())

	return &CronService{
		cron:          c,
		holdExpirySvc: holdExpirySvc,
		logger:        logger,
	}
}

// Start starts all cron jobs
func (s *CronService) Start() error {
	// Reclaim expired seat holds every minute
	_, err := s.cron.AddFunc("0 * * * * *", s.reclaimExpiredHoldsJob)
	if err != nil {
		return fmt.Errorf("failed to schedule hold reclaim job: %w", err)
	}

	s.cron.Start()
	s.logger.Info("Cron service started, hold reclaim scheduled every minute")

	return nil
}

// Stop stops all cron jobs and waits for running ones to finish
func (s *CronService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Cron service stopped")
}

func (s *CronService) reclaimExpiredHoldsJob() {
	start := time.Now()

	reclaimed, err := s.holdExpirySvc.ReclaimExpired()
	if err != nil {
		s.logger.WithError(err).Error("Hold reclaim job failed")
		return
	}

	if reclaimed > 0 {
		s.logger.WithFields(logrus.Fields{
			"orders":   reclaimed,
			"duration": time.Since(start).String(),
		}).Info("Hold reclaim job completed")
	}
}
