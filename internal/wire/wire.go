// Package wire provides dependency injection for the supportd application.
// It creates singleton services with lazy initialization.
package wire

import (
	"log"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hiciefte/bisq2-support-agent-sub005/internal/adapters/sqlite"
	"github.com/hiciefte/bisq2-support-agent-sub005/internal/app"
	"github.com/hiciefte/bisq2-support-agent-sub005/internal/channels"
	"github.com/hiciefte/bisq2-support-agent-sub005/internal/config"
	"github.com/hiciefte/bisq2-support-agent-sub005/internal/core/routing"
	"github.com/hiciefte/bisq2-support-agent-sub005/internal/db"
	"github.com/hiciefte/bisq2-support-agent-sub005/internal/logger"
	"github.com/hiciefte/bisq2-support-agent-sub005/internal/ports/primary"
	"github.com/hiciefte/bisq2-support-agent-sub005/internal/web"
)

var (
	cfg                *config.Config
	zapLogger          *zap.Logger
	escalationService  primary.EscalationService
	faqService         primary.FAQService
	maintenanceService primary.MaintenanceService
	deliveryService    *app.DeliveryService
	bisq2Adapter       *channels.Bisq2Adapter
	webServer          *web.Server
	once               sync.Once
)

// Config returns the loaded configuration.
func Config() *config.Config {
	once.Do(initServices)
	return cfg
}

// Logger returns the singleton structured logger.
func Logger() *zap.Logger {
	once.Do(initServices)
	return zapLogger
}

// EscalationService returns the singleton EscalationService instance.
func EscalationService() primary.EscalationService {
	once.Do(initServices)
	return escalationService
}

// FAQService returns the singleton FAQService instance.
func FAQService() primary.FAQService {
	once.Do(initServices)
	return faqService
}

// MaintenanceService returns the singleton MaintenanceService instance.
func MaintenanceService() primary.MaintenanceService {
	once.Do(initServices)
	return maintenanceService
}

// DeliveryService returns the singleton DeliveryService instance.
func DeliveryService() *app.DeliveryService {
	once.Do(initServices)
	return deliveryService
}

// Bisq2Adapter returns the singleton Bisq2 channel adapter, exposed so the
// serve command can start its realtime transport.
func Bisq2Adapter() *channels.Bisq2Adapter {
	once.Do(initServices)
	return bisq2Adapter
}

// WebServer returns the singleton web server.
func WebServer() *web.Server {
	once.Do(initServices)
	return webServer
}

// initServices initializes all services and their dependencies.
// This is called once via sync.Once.
func initServices() {
	var err error
	cfg, err = config.Load("")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zapLogger, err = logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}

	dbPath, err := cfg.DatabasePath()
	if err != nil {
		log.Fatalf("failed to resolve database path: %v", err)
	}
	database, err := db.Open(dbPath)
	if err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}

	// Repository adapters (secondary ports) with injected DB.
	escalationRepo := sqlite.NewEscalationRepository(database)
	faqRepo := sqlite.NewFAQRepository(database)

	// Channel adapters behind one registry.
	bisq2Adapter = channels.NewBisq2Adapter(cfg.Bisq2, zapLogger)
	registry := channels.NewRegistry(
		channels.NewWebAdapter(),
		channels.NewMatrixAdapter(cfg.Matrix, zapLogger),
		bisq2Adapter,
	)

	deliveryService = app.NewDeliveryService(
		escalationRepo,
		registry,
		cfg.Delivery.MaxRetries,
		time.Duration(cfg.Delivery.BackoffSeconds)*time.Second,
		time.Duration(cfg.Delivery.TimeoutSeconds)*time.Second,
		cfg.Escalation.SupportHandle,
		zapLogger,
	)

	policy := routing.Policy{
		ConfidenceThreshold:        cfg.Escalation.ConfidenceThreshold,
		EscalateOnNegativeFeedback: cfg.Escalation.EscalateOnNegativeFeedback,
	}

	// Services (primary ports implementation).
	escalationService = app.NewEscalationService(
		escalationRepo, registry, deliveryService, policy, cfg.ClaimTTL(), zapLogger)
	faqService = app.NewFAQService(faqRepo, escalationRepo, zapLogger)
	maintenanceService = app.NewMaintenanceService(
		escalationRepo,
		cfg.ClaimTTL(),
		cfg.AutoCloseAge(),
		cfg.RetentionAge(),
		time.Duration(cfg.Maintenance.IntervalMinutes)*time.Minute,
		zapLogger,
	)

	webServer = web.NewServer(escalationService, faqService, zapLogger)
}
