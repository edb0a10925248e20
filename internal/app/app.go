package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"hireflow-backend/internal/config"
	"hireflow-backend/internal/logger"
	"hireflow-backend/internal/notify"
	"hireflow-backend/internal/repository/postgres"
	"hireflow-backend/internal/security"
	"hireflow-backend/internal/service"
)

// App is the assembled workflow engine: every service bound to one store, one
// authorizer and one notification dispatcher. Transport layers call the
// exported services.
type App struct {
	Store      *postgres.Store
	Dispatcher *notify.Dispatcher
	Tokens     security.TokenManager

	Pipeline       service.PipelineService
	Approvals      service.ApprovalChainService
	Decisions      service.HiringDecisionService
	I9             service.I9Service
	AdverseActions service.AdverseActionService
	Notifications  service.NotificationService

	journal *notify.RedisJournal
}

// New wires the engine. The dispatcher is built but not started; call Start.
func New(ctx context.Context, cfg *config.Config, db *sql.DB) (*App, error) {
	store := postgres.NewStore(db)

	redisJournal, err := notify.OpenRedisJournal(ctx, cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("failed to open notification journal: %w", err)
	}
	var journal notify.Journal
	if redisJournal != nil {
		journal = redisJournal
		logger.Info("Notification journal enabled", "redis", cfg.Redis.Addr, "key", cfg.Redis.QueueKey)
	} else {
		logger.Info("Notification journal disabled, pending notices are lost on restart")
	}

	dispatcher := notify.NewDispatcher(notify.NewSender(cfg.SendGrid), store.Notifications, journal, cfg.Notifications)
	authorizer := security.NewRoleAuthorizer()
	now := service.Clock(time.Now)

	return &App{
		Store:      store,
		Dispatcher: dispatcher,
		Tokens:     security.NewTokenManager(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.AccessTokenTTL()),

		Pipeline:       service.NewPipelineService(store, dispatcher, authorizer, now),
		Approvals:      service.NewApprovalChainService(store, dispatcher, authorizer, now),
		Decisions:      service.NewHiringDecisionService(store, nil, dispatcher, authorizer, now),
		I9:             service.NewI9Service(store, dispatcher, authorizer, now),
		AdverseActions: service.NewAdverseActionService(store, dispatcher, authorizer, now, cfg.Workflow.WaitingPeriodDays),
		Notifications:  service.NewNotificationService(store.Notifications),

		journal: redisJournal,
	}, nil
}

// Start launches the notification workers. They stop when ctx is cancelled.
func (a *App) Start(ctx context.Context) {
	a.Dispatcher.Start(ctx)
}

// Close waits for the notification workers to drain and releases Redis.
// Cancel the context passed to Start first.
func (a *App) Close() {
	a.Dispatcher.Wait()
	if a.journal != nil {
		if err := a.journal.Close(); err != nil {
			logger.Warn("Failed to close notification journal", "error", err)
		}
	}
}
