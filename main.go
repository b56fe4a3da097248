package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"caricature_studio/core"
	"caricature_studio/core/validation"
	"caricature_studio/logging"
	"caricature_studio/shutdown"
)

func main() {
	if HandleServiceCommand(os.Args) {
		return
	}

	isService, err := RunAsService()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Service error: %v\n", err)
		os.Exit(core.ExitCodeError)
	}
	if isService {
		return
	}

	os.Exit(run(nil))
}

// run starts the studio and blocks until it stops, returning the process
// exit code. Closing stop ends the run the way a signal does; with a nil
// stop, SIGINT and SIGTERM are handled directly.
func run(stop <-chan struct{}) int {
	if err := godotenv.Load(); err != nil {
		// Use fmt here since logger isn't initialized yet
		fmt.Printf("Warning: .env file not found: %v\n", err)
	}

	cfg, err := core.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		return core.ExitCodeConfig
	}

	logger, err := logging.New(logging.Options{
		Development: cfg.DevMode,
		Level:       logging.ParseLogLevel("LOG_LEVEL", defaultLevel(cfg.DevMode)),
		FilePath:    cfg.LogFile,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return core.ExitCodeError
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "Failed to sync logger: %v\n", syncErr)
		}
	}()

	if code := runStartupValidation(cfg, logger, stop == nil); code != core.ExitCodeSuccess {
		return code
	}

	logger.Info("configuration loaded",
		zap.String("version", core.GetVersionInfo()),
		zap.Int("port", cfg.Port),
		zap.Bool("tls", cfg.HasTLS()),
		zap.String("database", cfg.DatabasePath),
		zap.String("privacy_policy", cfg.PrivacyPolicy),
		zap.Duration("ai_timeout", cfg.AITimeout),
		zap.Int("max_concurrent", cfg.MaxConcurrent),
		zap.Int("initial_credits", cfg.InitialCredits),
		zap.String("default_locale", cfg.DefaultLocale),
		zap.Bool("allow_self_signed_certs", cfg.AllowSelfSignedCerts),
		zap.Bool("dev_mode", cfg.DevMode),
	)

	manager := shutdown.NewManager(logger)
	if stop == nil {
		manager.Start()
	} else {
		go func() {
			select {
			case <-stop:
				manager.Trigger("service stop")
			case <-manager.Context().Done():
			}
		}()
	}

	a, err := newApp(cfg, logger, manager)
	if err != nil {
		logger.Error("failed to start studio", zap.Error(err))
		manager.Shutdown()
		return core.ExitCodeError
	}

	serveErr := a.serve()
	shutdownErr := manager.Shutdown()

	switch {
	case serveErr != nil:
		return core.ExitCodeError
	case shutdownErr != nil:
		return core.ExitCodeError
	}
	logger.Info("Goodbye!")
	return manager.ExitCode()
}

func defaultLevel(dev bool) zapcore.Level {
	if dev {
		return zapcore.DebugLevel
	}
	return zapcore.InfoLevel
}

// runStartupValidation runs the configuration checks before anything is
// opened. It returns ExitCodeConfig when a check fails.
func runStartupValidation(cfg *core.Config, logger *logging.Logger, showProgress bool) int {
	logger.Info("Starting startup validation...")

	result := validation.NewValidationSuite(cfg).
		WithShowProgress(showProgress).
		Validate()

	if !result.Success {
		logger.Error("Configuration validation failed",
			zap.Int("passed", result.PassedSteps),
			zap.Int("failed", result.FailedSteps),
			zap.Duration("duration", result.Duration),
		)
		for _, step := range result.Steps {
			if step.Status == validation.StepFailed {
				logger.Error("Validation step failed",
					zap.String("step", step.Name),
					zap.String("message", step.Message),
					zap.Error(step.Error),
				)
			}
		}
		return core.ExitCodeConfig
	}

	logger.Info("Configuration validation passed",
		zap.Int("checks_passed", result.PassedSteps),
		zap.Int("warnings", result.Warnings),
		zap.Duration("duration", result.Duration),
	)
	return core.ExitCodeSuccess
}
