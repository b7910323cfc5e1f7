package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"storefront.chapter42.de/mailer/internal/attemptlog"
	"storefront.chapter42.de/mailer/internal/auth"
	"storefront.chapter42.de/mailer/internal/data"
	"storefront.chapter42.de/mailer/internal/delivery"
	"storefront.chapter42.de/mailer/internal/external"
	"storefront.chapter42.de/mailer/internal/handlers"
	"storefront.chapter42.de/mailer/internal/notify"
	"storefront.chapter42.de/mailer/internal/persistence"
	"storefront.chapter42.de/mailer/internal/processor"
	timebackoff "storefront.chapter42.de/mailer/internal/time_backoff"
	"storefront.chapter42.de/mailer/internal/tmpl"
)

const verifyTimeout = 30 * time.Second

type app struct {
	router   *gin.Engine
	queue    *processor.Queue
	attempts *attemptlog.Logger
	orch     *delivery.Orchestrator
	notifier *notify.Notifier
	closers  []func() error
}

// buildApp wires every component from cfg. Nothing is started except the
// queue, which runs jobs as soon as they are submitted.
func buildApp(ctx context.Context, cfg *data.MailerConfig, log *zap.Logger) (*app, error) {
	a := &app{}

	store, err := a.buildStore(ctx, cfg.AttemptLog)
	if err != nil {
		return nil, err
	}
	a.attempts = attemptlog.New(store, log.Named("attemptlog"),
		attemptlog.WithMemoryCapacity(cfg.AttemptLog.MemoryCapacity),
		attemptlog.WithDurableCapacity(cfg.AttemptLog.DurableCapacity))
	if err := a.attempts.Restore(ctx); err != nil {
		log.Warn("Fehler beim Wiederherstellen des E-Mail-Protokolls:", zap.Error(err))
	}

	primary, err := external.NewSender("primary", cfg.Tiers.Primary, log.Named("external"))
	if err != nil {
		return nil, a.fail(err)
	}
	fallback, err := external.NewSender("fallback", cfg.Tiers.Fallback, log.Named("external"))
	if err != nil {
		return nil, a.fail(err)
	}

	verifyCtx, cancel := context.WithTimeout(ctx, verifyTimeout)
	selector, err := delivery.SelectTier(verifyCtx, primary, fallback, cfg.Tiers.AllowSimulated, log.Named("delivery"))
	cancel()
	if err != nil {
		log.Error("Kein Versandweg erreichbar, Jobs werden wiederholt:", zap.Error(err))
	}

	a.orch, err = delivery.New(selector, primary, fallback, a.attempts, log.Named("delivery"))
	if err != nil {
		return nil, a.fail(err)
	}

	backoff, err := timebackoff.Parse(cfg.Queue.Backoff)
	if err != nil {
		return nil, a.fail(err)
	}

	templates, err := tmpl.PrepareTemplates()
	if err != nil {
		return nil, a.fail(err)
	}

	a.queue = processor.New(log.Named("processor"), processor.WithConcurrency(cfg.Queue.Concurrency))
	a.notifier = notify.New(a.queue, a.orch.DeliverJob, templates, notify.Config{
		StoreName:  cfg.StoreName,
		AdminEmail: cfg.Admin.Email,
		Options: processor.Options{
			MaxRetries: cfg.Queue.MaxRetries,
			RetryDelay: cfg.Queue.RetryDelay,
			Backoff:    backoff,
		},
	}, log.Named("notify"))

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.Admin.JWTSecret == "" {
		log.Warn("Kein admin.jwt_secret gesetzt, Annahme und Admin-Endpunkte antworten mit 503")
	}
	a.router = handlers.NewRouter(handlers.Deps{
		Notifier:   a.notifier,
		Queue:      a.queue,
		AttemptLog: a.attempts,
		Tiers:      a.orch,
		Admin:      auth.NewAdminVerifier(cfg.Admin.JWTSecret),
	}, cfg.Cors.AllowedOrigins)

	log.Info("Mailer bereit:",
		zap.Stringer("selector", selector),
		zap.Int("concurrency", cfg.Queue.Concurrency),
		zap.Int("max_retries", cfg.Queue.MaxRetries),
		zap.Duration("retry_delay", cfg.Queue.RetryDelay))
	return a, nil
}

func (a *app) buildStore(ctx context.Context, cfg data.AttemptLogConfig) (attemptlog.Store, error) {
	switch cfg.Backend {
	case "file":
		return persistence.NewFileStore(cfg.Path), nil
	case "redis":
		store, err := persistence.DialRedis(ctx, cfg.RedisAddr, cfg.RedisDB, cfg.RedisKey)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, store.Close)
		return store, nil
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown attempt log backend %q", cfg.Backend)
	}
}

// shutdown waits for queued mail until ctx expires, then stops the queue and
// releases the store.
func (a *app) shutdown(ctx context.Context) error {
	drainErr := a.queue.Drain(ctx)
	a.queue.Stop()
	return errors.Join(drainErr, a.close())
}

func (a *app) close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *app) fail(err error) error {
	return errors.Join(err, a.close())
}
