package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"caricature_studio/core"
	"caricature_studio/db"
	"caricature_studio/imagegen"
	"caricature_studio/logging"
	"caricature_studio/messages"
	"caricature_studio/metrics"
	"caricature_studio/shutdown"
	"caricature_studio/studio"
	"caricature_studio/webui"
	"caricature_studio/webui/auth"
)

const (
	metricsNamespace = "studio"
	cleanupInterval  = 5 * time.Minute
)

// app is the wired studio. Every resource it opens is registered with the
// shutdown manager as soon as it exists.
type app struct {
	cfg     *core.Config
	logger  *logging.Logger
	manager *shutdown.Manager
	server  *webui.Server
}

// newApp builds the studio from cfg. Background work is bound to the
// manager's context.
func newApp(cfg *core.Config, logger *logging.Logger, manager *shutdown.Manager) (*app, error) {
	ctx := manager.Context()

	store := metrics.NewStore(metrics.StoreConfig{HistoryCapacity: 100, Version: core.Version}, time.Now())
	collector := metrics.NewCollector(metricsNamespace)

	orch, err := newOrchestrator(ctx, cfg, logger, metrics.Observers{store, collector})
	if err != nil {
		return nil, err
	}

	if err := core.EnsureParentDir(cfg.DatabasePath); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}
	database, err := db.Open(ctx, cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	manager.Register("database", shutdown.PriorityStorage, func(context.Context) error {
		return database.Close()
	})
	repo := db.NewRepository(database).WithInitialCredits(cfg.InitialCredits)

	writer := db.NewAsyncWriter(repo, logger, db.DefaultAsyncWriterConfig())
	writer.Start()
	manager.Register("history writer", shutdown.PriorityHistory, func(context.Context) error {
		if !writer.Stop() {
			return fmt.Errorf("%d history writes dropped", writer.Pending())
		}
		return nil
	})

	cleanupLog := logger.Named("cleanup")
	database.StartCleanupScheduler(ctx, db.CleanupSchedulerConfig{
		RetentionDays: cfg.HistoryRetentionDays,
		MaxPerUser:    cfg.HistoryMaxPerUser,
		OnCleanup: func(result db.CleanupResult, err error) {
			if err != nil {
				cleanupLog.Error("history cleanup failed", zap.Error(err))
				return
			}
			if result.Total() > 0 {
				cleanupLog.Info("history cleanup",
					zap.Int64("removed", result.Total()),
					logging.Duration(result.Duration),
				)
			}
		},
	})

	svc, err := studio.NewService(studio.Options{
		Orchestrator:  orch,
		Credits:       repo,
		History:       writer,
		Metrics:       collector,
		Logger:        logger,
		MaxConcurrent: cfg.MaxConcurrent,
		SessionTTL:    cfg.RefineSessionTTL,
		Source: imagegen.SourceOptions{
			MaxBytes:     cfg.MaxImageBytes,
			MaxDimension: cfg.MaxImageDimension,
		},
	})
	if err != nil {
		return nil, err
	}

	catalog, err := messages.Load(cfg.DefaultLocale)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	respond := webui.NewResponder(catalog, cfg.DevMode, logger)

	authCfg := auth.DefaultConfig()
	authCfg.SessionTTL = cfg.SessionTTL
	authCfg.SecureCookies = cfg.SecureCookies
	authCfg.OnLogout = svc.EndSession
	authMw := auth.NewAuthMiddleware(repo, respond, logger, authCfg)
	authMw.SessionStore().StartCleanupTicker(ctx, cleanupInterval)
	authMw.RateLimiter().StartCleanupTicker(ctx, cleanupInterval)

	limiter := webui.NewGenerateLimiter(cfg.GenerateRatePerMinute)
	limiter.StartCleanupTicker(ctx, cleanupInterval)

	serverCfg := webui.DefaultServerConfig()
	serverCfg.Port = cfg.Port
	serverCfg.DevMode = cfg.DevMode
	serverCfg.HistoryLimit = cfg.HistoryMaxPerUser
	serverCfg.TrustedProxies = cfg.TrustedProxies
	// base64 inflates the photo by a third
	if body := int64(cfg.MaxImageBytes)*4/3 + 1<<20; body > serverCfg.MaxBodyBytes {
		serverCfg.MaxBodyBytes = body
	}

	server, err := webui.NewServer(serverCfg, webui.Dependencies{
		Studio:   svc,
		Accounts: repo,
		Auth:     authMw,
		Catalog:  catalog,
		Health:   database,
		Status:   store,
		Metrics:  collector,
		Limiter:  limiter,
		Logger:   logger,
	})
	if err != nil {
		return nil, err
	}
	manager.Register("http server", shutdown.PriorityServer, server.Shutdown)

	return &app{cfg: cfg, logger: logger, manager: manager, server: server}, nil
}

// newOrchestrator creates a client for every provider with a key. A
// provider without one stays nil and requests for it are refused.
func newOrchestrator(ctx context.Context, cfg *core.Config, logger *logging.Logger, observer imagegen.Observer) (*imagegen.Orchestrator, error) {
	policy, err := imagegen.ParsePrivacyPolicy(cfg.PrivacyPolicy)
	if err != nil {
		return nil, err
	}
	opts := imagegen.OrchestratorOptions{
		Policy:      policy,
		CallTimeout: cfg.AITimeout,
		Logger:      logger,
		Observer:    observer,
	}

	if cfg.HasGemini() {
		gemini, err := imagegen.NewGeminiProvider(ctx, imagegen.GeminiOptionsFromConfig(cfg))
		if err != nil {
			return nil, fmt.Errorf("gemini client: %w", err)
		}
		opts.Direct = gemini
	}
	if cfg.HasOpenAI() {
		openAIOpts := imagegen.OpenAIOptionsFromConfig(cfg, logger)
		describer, err := imagegen.NewOpenAIDescriber(openAIOpts)
		if err != nil {
			return nil, fmt.Errorf("openai client: %w", err)
		}
		provider, err := imagegen.NewOpenAIProvider(openAIOpts)
		if err != nil {
			return nil, fmt.Errorf("openai client: %w", err)
		}
		opts.Describer = describer
		opts.FromDescription = provider
	}

	logger.Info("providers configured",
		zap.Bool("gemini", cfg.HasGemini()),
		zap.Bool("openai", cfg.HasOpenAI()),
		zap.String("privacy_policy", string(policy)),
	)
	return imagegen.NewOrchestrator(opts), nil
}

// serve runs the HTTP server until the manager's context ends. A listener
// failure triggers shutdown and is returned.
func (a *app) serve() error {
	errCh := make(chan error, 1)
	go func() {
		var err error
		if a.cfg.HasTLS() {
			err = a.server.StartTLS(a.cfg.TLSCertFile, a.cfg.TLSKeyFile)
		} else {
			err = a.server.Start()
		}
		errCh <- err
		if err != nil {
			a.logger.Error("server failed", zap.Error(err))
			a.manager.Trigger("http server failed")
		}
	}()

	<-a.manager.Context().Done()
	select {
	case err := <-errCh:
		return err
	default:
		return nil
	}
}
