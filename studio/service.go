// Package studio runs caricature generations for signed-in users: it checks
// and charges credits, admits one generation per user, bounds provider
// concurrency and keeps the state a refinement needs.
package studio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"caricature_studio/core"
	"caricature_studio/db"
	"caricature_studio/imagegen"
	"caricature_studio/logging"
)

// CreditCharger reads and deducts credits.
type CreditCharger interface {
	Credits(ctx context.Context, userID string) (int, error)
	ChargeCredit(ctx context.Context, userID string) (int, error)
}

// HistoryRecorder keeps finished caricatures. db.AsyncWriter implements it.
type HistoryRecorder interface {
	Enqueue(item db.HistoryItem) bool
}

// Recorder receives service-level counters. metrics.Collector implements it.
type Recorder interface {
	GenerationStarted()
	GenerationDone()
	CreditCharged()
}

// Options configures a Service. Orchestrator and Credits are required.
type Options struct {
	Orchestrator *imagegen.Orchestrator
	Credits      CreditCharger
	History      HistoryRecorder
	Metrics      Recorder
	Logger       *logging.Logger

	// MaxConcurrent caps generations running at once across all users.
	MaxConcurrent int

	// SessionTTL is how long a refinement session lives without use.
	SessionTTL time.Duration

	Source imagegen.SourceOptions
}

// Outcome is a successful generation plus the balance after charging.
type Outcome struct {
	Result  imagegen.GenerationResult
	Credits int
}

type Service struct {
	orch     *imagegen.Orchestrator
	credits  CreditCharger
	history  HistoryRecorder
	metrics  Recorder
	logger   *logging.Logger
	source   imagegen.SourceOptions
	sem      *semaphore.Weighted
	guard    *inFlight
	sessions *sessionStore
}

func NewService(opts Options) (*Service, error) {
	if opts.Orchestrator == nil {
		return nil, errors.New("studio: orchestrator is required")
	}
	if opts.Credits == nil {
		return nil, errors.New("studio: credit charger is required")
	}
	if opts.MaxConcurrent < 1 {
		opts.MaxConcurrent = 1
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	return &Service{
		orch:     opts.Orchestrator,
		credits:  opts.Credits,
		history:  opts.History,
		metrics:  opts.Metrics,
		logger:   opts.Logger.Named("studio"),
		source:   opts.Source,
		sem:      semaphore.NewWeighted(int64(opts.MaxConcurrent)),
		guard:    newInFlight(),
		sessions: newSessionStore(opts.SessionTTL),
	}, nil
}

// Generate produces a caricature of the photo in imageDataURI. One credit is
// charged only when an image is returned.
func (s *Service) Generate(ctx context.Context, userID, imageDataURI string, cfg imagegen.GenerationConfig) (Outcome, error) {
	ctx = withCorrelationID(ctx)

	var (
		session *imagegen.Session
		result  imagegen.GenerationResult
	)
	err := s.run(ctx, userID, func(ctx context.Context) error {
		img, err := imagegen.ParseSourceImage(imageDataURI, s.source)
		if err != nil {
			return err
		}
		session, result, err = s.orch.StartSession(ctx, img, cfg)
		return err
	})
	if err != nil {
		return Outcome{}, err
	}

	s.sessions.put(userID, session)
	return s.finish(ctx, userID, cfg, result), nil
}

// Refine regenerates the user's last caricature from the original photo with
// instruction layered on top.
func (s *Service) Refine(ctx context.Context, userID, instruction string) (Outcome, error) {
	ctx = withCorrelationID(ctx)

	session, ok := s.sessions.get(userID)
	if !ok {
		return Outcome{}, ErrNoSession
	}
	if strings.TrimSpace(instruction) == "" {
		return Outcome{}, fmt.Errorf("%w: refinement instruction is required", imagegen.ErrInvalidConfig)
	}

	var result imagegen.GenerationResult
	err := s.run(ctx, userID, func(ctx context.Context) error {
		var err error
		result, err = session.Refine(ctx, instruction)
		return err
	})
	if err != nil {
		return Outcome{}, err
	}

	s.sessions.put(userID, session)
	return s.finish(ctx, userID, session.Config(), result), nil
}

// InProgress reports whether userID has a generation running.
func (s *Service) InProgress(userID string) bool {
	return s.guard.has(userID)
}

// HasSession reports whether userID can refine.
func (s *Service) HasSession(userID string) bool {
	_, ok := s.sessions.get(userID)
	return ok
}

// EndSession drops the user's refinement state, e.g. on logout.
func (s *Service) EndSession(userID string) {
	s.sessions.delete(userID)
}

// run applies the admission steps shared by Generate and Refine: credits,
// the per-user guard, then the global semaphore.
func (s *Service) run(ctx context.Context, userID string, generate func(context.Context) error) error {
	balance, err := s.credits.Credits(ctx, userID)
	if err != nil {
		return fmt.Errorf("studio: read credits: %w", err)
	}
	if balance < 1 {
		return ErrNoCredits
	}

	if !s.guard.acquire(userID) {
		return ErrGenerationInProgress
	}
	defer s.guard.release(userID)

	if err := s.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("studio: wait for a free slot: %w", err)
	}
	defer s.sem.Release(1)

	if s.metrics != nil {
		s.metrics.GenerationStarted()
		defer s.metrics.GenerationDone()
	}

	if err := generate(ctx); err != nil {
		s.logger.Info("generation not charged",
			logging.UserID(userID),
			logging.CorrelationID(logging.CorrelationIDFromContext(ctx)),
			logging.ErrorKind(string(imagegen.KindOf(err))),
			zap.Error(err))
		return err
	}
	return nil
}

// finish charges the credit and records history for a successful result.
// A failed charge is logged, not returned: the image was already produced.
func (s *Service) finish(ctx context.Context, userID string, cfg imagegen.GenerationConfig, result imagegen.GenerationResult) Outcome {
	log := s.logger.With(
		logging.UserID(userID),
		logging.CorrelationID(logging.CorrelationIDFromContext(ctx)),
	)

	// The charge must not be lost to a client disconnect.
	chargeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	balance, err := s.credits.ChargeCredit(chargeCtx, userID)
	switch {
	case err == nil:
		if s.metrics != nil {
			s.metrics.CreditCharged()
		}
		log.Info("credit charged", zap.Int("credits", balance), logging.Provider(string(result.ProviderUsed)))
	case errors.Is(err, db.ErrInsufficientCredits):
		log.Warn("generation delivered without a credit to charge")
	default:
		log.Error("failed to charge credit", zap.Error(err))
		if current, readErr := s.credits.Credits(chargeCtx, userID); readErr == nil {
			balance = current
		}
	}

	if s.history != nil {
		configJSON, _ := json.Marshal(cfg)
		s.history.Enqueue(db.HistoryItem{
			UserID:     userID,
			ImageData:  result.ImageData,
			ConfigJSON: string(configJSON),
			Provider:   string(result.ProviderUsed),
			Model:      result.Model,
		})
	}

	return Outcome{Result: result, Credits: balance}
}

func withCorrelationID(ctx context.Context) context.Context {
	if logging.CorrelationIDFromContext(ctx) != "" {
		return ctx
	}
	return logging.ContextWithCorrelationID(ctx, core.NewCorrelationID())
}
