// Package shutdown coordinates stopping the studio: it turns SIGINT and
// SIGTERM into context cancellation and then releases resources in a fixed
// order.
package shutdown

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"caricature_studio/core"
	"caricature_studio/logging"
)

// DefaultTimeout bounds the whole hook sequence.
const DefaultTimeout = 60 * time.Second

// Manager owns the root context of the process.
//
// It composes:
//   - Registry: hooks run in priority order on Shutdown
//   - SignalCounter: the second signal forces an immediate exit
//
// Usage:
//
//	m := shutdown.NewManager(logger)
//	m.Register("http server", shutdown.PriorityServer, srv.Shutdown)
//	m.Register("database", shutdown.PriorityStorage, func(context.Context) error {
//	    return database.Close()
//	})
//	m.Start()
//	<-m.Context().Done()
//	err := m.Shutdown()
type Manager struct {
	logger  *logging.Logger
	timeout time.Duration
	exit    func(code int)

	mu       sync.Mutex
	started  bool
	done     bool
	received os.Signal

	ctx    context.Context
	cancel context.CancelFunc

	registry *Registry
	signals  *SignalCounter
	sigChan  chan os.Signal
}

// Option configures a Manager.
type Option func(*Manager)

// WithTimeout sets the shutdown timeout. Default is DefaultTimeout.
func WithTimeout(timeout time.Duration) Option {
	return func(m *Manager) {
		if timeout > 0 {
			m.timeout = timeout
		}
	}
}

// WithExit replaces os.Exit for the forced exit on a second signal.
func WithExit(exit func(code int)) Option {
	return func(m *Manager) {
		m.exit = exit
	}
}

func NewManager(logger *logging.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())

	m := &Manager{
		logger:   logger.Named("shutdown"),
		timeout:  DefaultTimeout,
		exit:     os.Exit,
		ctx:      ctx,
		cancel:   cancel,
		registry: NewRegistry(),
		sigChan:  make(chan os.Signal, 1),
	}
	for _, opt := range opts {
		opt(m)
	}

	m.signals = NewSignalCounter(2, func() {
		m.logger.Warn("second signal received, forcing exit")
		m.exit(core.ExitCodeError)
	})
	return m
}

// Context is cancelled when a signal arrives or Trigger is called.
func (m *Manager) Context() context.Context {
	return m.ctx
}

// Register adds a hook for Shutdown. See the Priority constants.
func (m *Manager) Register(name string, priority int, fn Func) {
	m.registry.Register(name, priority, fn)
	m.logger.Debug("registered shutdown hook",
		zap.String("name", name),
		zap.Int("priority", priority),
	)
}

// Start listens for SIGINT and SIGTERM. Calling it twice is a no-op.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started || m.done {
		return
	}
	m.started = true

	signal.Notify(m.sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		for sig := range m.sigChan {
			m.handleSignal(sig)
		}
	}()
}

func (m *Manager) handleSignal(sig os.Signal) {
	if m.signals.Increment() != 1 {
		return
	}
	m.mu.Lock()
	m.received = sig
	m.mu.Unlock()

	m.logger.Info("signal received, shutting down", zap.String("signal", sig.String()))
	m.cancel()
}

// Trigger cancels the context without a signal, e.g. when the service
// manager asks the process to stop or the HTTP server fails.
func (m *Manager) Trigger(reason string) {
	if m.ctx.Err() == nil {
		m.logger.Info("shutdown requested", zap.String("reason", reason))
	}
	m.cancel()
}

// Shutdown cancels the context and runs every hook within the timeout. It
// returns the joined hook errors. Later calls return nil.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	if m.done {
		m.mu.Unlock()
		return nil
	}
	m.done = true
	started := m.started
	m.mu.Unlock()

	m.cancel()
	start := time.Now()
	m.logger.Info("running shutdown hooks",
		zap.Strings("hooks", m.registry.Names()),
		zap.Duration("timeout", m.timeout),
	)

	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()
	errs := m.registry.Run(ctx)

	if started {
		signal.Stop(m.sigChan)
		close(m.sigChan)
	}

	for _, err := range errs {
		m.logger.Error("shutdown hook failed", zap.Error(err))
	}
	m.logger.Info("shutdown complete",
		logging.Duration(time.Since(start)),
		zap.Int("errors", len(errs)),
	)
	return errors.Join(errs...)
}

// ExitCode maps the signal that stopped the process to 128+n, or success
// when none did.
func (m *Manager) ExitCode() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.received {
	case os.Interrupt:
		return core.ExitCodeSIGINT
	case syscall.SIGTERM:
		return core.ExitCodeSIGTERM
	default:
		return core.ExitCodeSuccess
	}
}

func (m *Manager) Hooks() []string {
	return m.registry.Names()
}
