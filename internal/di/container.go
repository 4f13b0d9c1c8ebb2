package di

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/justsurfingit/applytrail/internal/auth"
	"github.com/justsurfingit/applytrail/internal/config"
	"github.com/justsurfingit/applytrail/internal/database"
	"github.com/justsurfingit/applytrail/internal/handlers"
	"github.com/justsurfingit/applytrail/internal/logging"
	"github.com/justsurfingit/applytrail/internal/services"
)

// BuildContainer creates and configures a dependency injection container
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	providers := []interface{}{
		// Configuration and logging
		config.New,
		logging.InitLogger,
		func(cfg *config.Config) (config.SyncConfig, error) { return cfg.GetSync() },
		func(cfg *config.Config) (config.NERConfig, error) { return cfg.GetNER() },
		func(cfg *config.Config) config.ExtractorConfig { return cfg.GetExtractor() },
		func(cfg *config.Config) (config.ServerConfig, error) { return cfg.GetServer() },
		services.NewRealClock,

		// Record store
		database.Connect,
		database.NewJobStore,
		database.NewUserStore,

		// Mailbox access
		auth.NewCredentialSupplier,
		func(creds *auth.CredentialSupplier, logger *zap.Logger, cfg config.SyncConfig) services.MailboxConnector {
			return services.NewGmailConnector(creds, logger, cfg.FetchAttempts)
		},

		// Extraction and reconciliation
		func(cfg config.NERConfig, logger *zap.Logger) services.NERClient {
			return services.NewHuggingFaceNER(cfg, logger)
		},
		func(client services.NERClient, cfg config.ExtractorConfig, logger *zap.Logger) services.Extractor {
			return services.NewEntityExtractor(client, cfg, logger)
		},
		func(jobs *database.JobStore) *services.Reconciler { return services.NewReconciler(jobs) },

		// Orchestration
		services.NewEmailService,
		func(users *database.UserStore, emails *services.EmailService, clock services.Clock, logger *zap.Logger, cfg config.SyncConfig) *services.Scheduler {
			return services.NewScheduler(users, emails, clock, logger, cfg)
		},
		services.NewJobService,

		// HTTP
		handlers.NewJobHandler,
		func(s *services.Scheduler, logger *zap.Logger) *handlers.SyncHandler {
			return handlers.NewSyncHandler(s, logger)
		},
		func(cfg config.ServerConfig, users *database.UserStore, jobs *handlers.JobHandler, sync *handlers.SyncHandler, logger *zap.Logger) *gin.Engine {
			return handlers.NewRouter(cfg, users, jobs, sync, logger)
		},
	}

	for _, p := range providers {
		if err := container.Provide(p); err != nil {
			return nil, err
		}
	}

	return container, nil
}
