package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hiciefte/bisq2-support-agent-sub005/internal/ports/primary"
	"github.com/hiciefte/bisq2-support-agent-sub005/internal/ports/secondary"
)

// MaintenanceService runs the background hygiene loop: releasing expired
// claims, auto-closing stale escalations, and purging retained records.
type MaintenanceService struct {
	repo         secondary.EscalationRepository
	claimTTL     time.Duration
	autoCloseAge time.Duration
	retentionAge time.Duration
	interval     time.Duration
	logger       *zap.Logger
}

var _ primary.MaintenanceService = (*MaintenanceService)(nil)

// NewMaintenanceService creates a maintenance service with its dependencies.
func NewMaintenanceService(
	repo secondary.EscalationRepository,
	claimTTL time.Duration,
	autoCloseAge time.Duration,
	retentionAge time.Duration,
	interval time.Duration,
	logger *zap.Logger,
) *MaintenanceService {
	return &MaintenanceService{
		repo:         repo,
		claimTTL:     claimTTL,
		autoCloseAge: autoCloseAge,
		retentionAge: retentionAge,
		interval:     interval,
		logger:       logger,
	}
}

// RunSweep performs one maintenance cycle. The three sweeps are fault
// independent: a failing sweep is recorded and the next one still runs.
func (s *MaintenanceService) RunSweep(ctx context.Context) *primary.SweepResult {
	now := time.Now().UTC()
	result := &primary.SweepResult{}

	released, err := s.repo.ReleaseExpiredClaims(ctx, now.Add(-s.claimTTL))
	if err != nil {
		result.Errors = append(result.Errors, fmt.Errorf("failed to release expired claims: %w", err))
	} else {
		result.ClaimsReleased = released
	}

	closed, err := s.repo.AutoCloseOlderThan(ctx, now.Add(-s.autoCloseAge), primary.CloseReasonTimeout)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Errorf("failed to auto-close stale escalations: %w", err))
	} else {
		result.AutoClosed = closed
	}

	purged, err := s.repo.PurgeTerminalOlderThan(ctx, now.Add(-s.retentionAge))
	if err != nil {
		result.Errors = append(result.Errors, fmt.Errorf("failed to purge expired records: %w", err))
	} else {
		result.Purged = purged
	}

	if result.ClaimsReleased > 0 || result.AutoClosed > 0 || result.Purged > 0 {
		s.logger.Info("Maintenance sweep completed",
			zap.Int64("claims_released", result.ClaimsReleased),
			zap.Int64("auto_closed", result.AutoClosed),
			zap.Int64("purged", result.Purged))
	}
	for _, sweepErr := range result.Errors {
		s.logger.Error("Maintenance sweep error", zap.Error(sweepErr))
	}
	return result
}

// Run executes sweeps on the configured interval until ctx is cancelled.
// An in-flight sweep finishes before shutdown; no new sweep starts after.
func (s *MaintenanceService) Run(ctx context.Context) {
	s.logger.Info("Maintenance loop started", zap.Duration("interval", s.interval))
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// One sweep at startup so a long interval never delays recovery of
	// expired claims after a restart.
	s.RunSweep(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Maintenance loop stopped")
			return
		case <-ticker.C:
			s.RunSweep(ctx)
		}
	}
}
