package app

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hiciefte/bisq2-support-agent-sub005/internal/ports/primary"
	"github.com/hiciefte/bisq2-support-agent-sub005/internal/ports/secondary"
)

// DeliveryService pushes notifications to the originating channel with a
// bounded retry budget. Dispatch is asynchronous so request handlers never
// wait on channel transports.
type DeliveryService struct {
	repo          secondary.EscalationRepository
	registry      secondary.ChannelRegistry
	maxRetries    int
	backoff       time.Duration
	timeout       time.Duration
	supportHandle string
	logger        *zap.Logger

	wg sync.WaitGroup
}

var _ Notifier = (*DeliveryService)(nil)

// NewDeliveryService creates a delivery service with its dependencies.
func NewDeliveryService(
	repo secondary.EscalationRepository,
	registry secondary.ChannelRegistry,
	maxRetries int,
	backoff time.Duration,
	timeout time.Duration,
	supportHandle string,
	logger *zap.Logger,
) *DeliveryService {
	return &DeliveryService{
		repo:          repo,
		registry:      registry,
		maxRetries:    maxRetries,
		backoff:       backoff,
		timeout:       timeout,
		supportHandle: supportHandle,
		logger:        logger,
	}
}

// NotifyEscalationCreated delivers the escalation acknowledgment to the user.
func (s *DeliveryService) NotifyEscalationCreated(esc *primary.Escalation) {
	s.dispatch(esc, func(adapter secondary.ChannelAdapter) string {
		return adapter.FormatEscalationMessage(esc.Username, esc.MessageID, s.supportHandle)
	})
}

// NotifyStaffResponse delivers the staff answer to the user.
func (s *DeliveryService) NotifyStaffResponse(esc *primary.Escalation) {
	s.dispatch(esc, func(adapter secondary.ChannelAdapter) string {
		return adapter.FormatStaffResponse(esc.Username, esc.StaffAnswer)
	})
}

// Wait blocks until all in-flight deliveries finish. Used on shutdown.
func (s *DeliveryService) Wait() {
	s.wg.Wait()
}

func (s *DeliveryService) dispatch(esc *primary.Escalation, format func(secondary.ChannelAdapter) string) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.deliver(esc, format)
	}()
}

// deliver runs the retry loop for one notification. Each attempt gets its
// own timeout; a failed final attempt marks the delivery terminally failed.
func (s *DeliveryService) deliver(esc *primary.Escalation, format func(secondary.ChannelAdapter) string) {
	// Deliveries outlive the originating request, so attempts run against
	// the background context rather than the request's.
	ctx := context.Background()

	adapter, err := s.registry.Resolve(esc.Channel)
	if err != nil {
		s.fail(ctx, esc, err.Error(), true)
		return
	}
	target, err := adapter.GetDeliveryTarget(esc.ChannelMetadata)
	if err != nil {
		s.fail(ctx, esc, err.Error(), true)
		return
	}
	if target == "" {
		return
	}
	text := format(adapter)

	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, s.timeout)
		err := adapter.Send(attemptCtx, target, text)
		cancel()

		if err == nil {
			if markErr := s.repo.MarkDelivered(ctx, esc.ID, time.Now().UTC()); markErr != nil {
				s.logger.Error("Failed to record delivery success",
					zap.Int64("id", esc.ID), zap.Error(markErr))
			}
			s.logger.Info("Notification delivered",
				zap.Int64("id", esc.ID),
				zap.String("channel", esc.Channel),
				zap.Int("attempt", attempt))
			return
		}

		final := attempt == s.maxRetries
		s.fail(ctx, esc, err.Error(), final)
		s.logger.Warn("Delivery attempt failed",
			zap.Int64("id", esc.ID),
			zap.String("channel", esc.Channel),
			zap.Int("attempt", attempt),
			zap.Bool("final", final),
			zap.Error(err))
		if !final {
			time.Sleep(s.backoff * time.Duration(attempt))
		}
	}
}

func (s *DeliveryService) fail(ctx context.Context, esc *primary.Escalation, deliveryError string, final bool) {
	if err := s.repo.RecordDeliveryFailure(ctx, esc.ID, deliveryError, final); err != nil {
		s.logger.Error("Failed to record delivery failure",
			zap.Int64("id", esc.ID), zap.Error(err))
	}
}
