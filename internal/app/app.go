// Package app builds the dialer object graph from configuration. Both the
// API process and the operator CLI construct their dependencies here.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"voice-dialer/internal/agent"
	"voice-dialer/internal/audit"
	"voice-dialer/internal/auth"
	"voice-dialer/internal/calls"
	"voice-dialer/internal/config"
	"voice-dialer/internal/dialer"
	"voice-dialer/internal/reporting"
	"voice-dialer/internal/speech"
	"voice-dialer/internal/telephony"
	"voice-dialer/pkg/utils"

	"github.com/redis/go-redis/v9"
)

type App struct {
	Config config.Config
	Log    *slog.Logger

	DB    *sql.DB
	Redis *redis.Client // nil when REDIS_HOST is unset

	Store        *calls.SQLStore
	Events       *calls.Events
	Reporting    *reporting.Service
	Audit        *audit.Service
	Auth         *auth.Manager
	Telephony    telephony.Provider
	Orchestrator *dialer.Orchestrator
	Dispatcher   *dialer.Dispatcher
}

// New opens storage, migrates the call record schema and wires the providers.
// Missing provider credentials are not an error here; adapters report them on first use.
func New(ctx context.Context, cfg config.Config, log *slog.Logger) (*App, error) {
	if log == nil {
		log = slog.Default()
	}
	a := &App{Config: cfg, Log: log}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("auth init: %w", err)
	}
	a.Auth = authManager

	db, dialect, err := openDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.DB = db

	store := calls.NewSQLStore(db, dialect)
	if err := store.Migrate(ctx); err != nil {
		a.Close(0)
		return nil, fmt.Errorf("migrate call records: %w", err)
	}
	a.Store = store
	a.Events = calls.NewEvents(store)
	a.Reporting = reporting.NewService(store)

	auditRepo := audit.NewSQLRepo(db, dialect == calls.DialectSQLite)
	if err := auditRepo.Migrate(ctx); err != nil {
		a.Close(0)
		return nil, fmt.Errorf("migrate audit events: %w", err)
	}
	a.Audit = audit.NewService(auditRepo)

	audio, err := openAudioStore(cfg.Audio)
	if err != nil {
		a.Close(0)
		return nil, err
	}
	timeout := cfg.Dialer.ProviderTimeout
	tts := speech.NewElevenLabs(cfg.ElevenLabs, audio, timeout)

	a.Telephony = newTelephony(cfg, log)
	vapi := agent.NewVapi(cfg.Vapi, cfg.Twilio, timeout)

	a.Orchestrator = dialer.NewOrchestrator(store, tts, a.Telephony, vapi, dialer.Options{
		DefaultRegion:   cfg.Dialer.DefaultRegion,
		PublicBaseURL:   cfg.App.PublicBaseURL,
		Pacing:          cfg.Dialer.Pacing,
		ProviderTimeout: timeout,
	}, log)

	var limiter dialer.Limiter
	if addr := cfg.RedisAddr(); addr != "" {
		rdb, err := utils.OpenRedis(ctx, utils.RedisConfig{Addr: addr})
		if err != nil {
			a.Close(0)
			return nil, fmt.Errorf("redis init: %w", err)
		}
		a.Redis = rdb
		limiter = dialer.NewRedisLimiter(rdb, cfg.Dialer.MaxSessionsPerOwner, 0, log)
	}

	a.Dispatcher, err = dialer.NewDispatcher(a.Orchestrator, cfg.Dialer.Workers, limiter, cfg.Dialer.UseAgent, log)
	if err != nil {
		a.Close(0)
		return nil, err
	}

	log.Info("dialer wired",
		"db_driver", cfg.DB.Driver,
		"audio_store", cfg.Audio.Store,
		"telephony", a.Telephony.Name(),
		"twilio_account", telephony.MaskSID(cfg.Twilio.AccountSID),
		"session_cap", a.Redis != nil,
		"use_agent", cfg.Dialer.UseAgent,
	)
	return a, nil
}

// Ping reports database readiness.
func (a *App) Ping(ctx context.Context) error {
	return utils.HealthCheck(ctx, a.DB, 2*time.Second)
}

// Close waits up to timeout for running sessions, then releases storage.
// Sessions cannot be cancelled, so when some are still running after timeout
// storage is left open for them and only the drain error is returned.
func (a *App) Close(timeout time.Duration) error {
	var errs []error
	if a.Dispatcher != nil {
		if err := a.Dispatcher.Shutdown(timeout); err != nil {
			if running := a.Dispatcher.Running(); running > 0 {
				a.Log.Warn("dial sessions still running, leaving storage open", "running_sessions", running, "err", err)
				return fmt.Errorf("dispatcher shutdown: %d sessions abandoned: %w", running, err)
			}
			errs = append(errs, fmt.Errorf("dispatcher shutdown: %w", err))
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func openDB(ctx context.Context, cfg config.Config) (*sql.DB, calls.Dialect, error) {
	driver, dsn := cfg.DatabaseDSN()
	if driver == "sqlite" {
		db, err := utils.OpenSQLite(ctx, dsn)
		if err != nil {
			return nil, "", fmt.Errorf("sqlite init: %w", err)
		}
		return db, calls.DialectSQLite, nil
	}
	db, err := utils.OpenPostgres(ctx, dsn, utils.PoolConfig{})
	if err != nil {
		return nil, "", fmt.Errorf("postgres init: %w", err)
	}
	return db, calls.DialectPostgres, nil
}

func openAudioStore(cfg config.AudioConfig) (speech.AudioStore, error) {
	if cfg.Store == config.AudioStoreS3 {
		s, err := speech.NewS3Store(cfg.S3Bucket, cfg.S3Region)
		if err != nil {
			return nil, fmt.Errorf("s3 audio store: %w", err)
		}
		return s, nil
	}
	s, err := speech.NewLocalStore(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("local audio store: %w", err)
	}
	return s, nil
}

func newTelephony(cfg config.Config, log *slog.Logger) telephony.Provider {
	if cfg.Twilio.Provider == config.TelephonyDryRun {
		return &telephony.DryRunProvider{From: cfg.Twilio.FromNumber, Log: log}
	}
	return telephony.NewTwilioProvider(cfg.Twilio, cfg.App.PublicBaseURL, cfg.Dialer.ProviderTimeout, log)
}
