package imagegen

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Refine regenerates from the original photo with previous plus instruction.
// It is a full regeneration, never an edit of the last output, and a new
// instruction replaces any earlier one.
func (o *Orchestrator) Refine(ctx context.Context, original SourceImage, previous GenerationConfig, instruction string) (GenerationResult, error) {
	if strings.TrimSpace(instruction) == "" {
		return GenerationResult{}, fmt.Errorf("%w: refinement instruction is required", ErrInvalidConfig)
	}
	return o.Generate(ctx, original, previous.WithRefinement(instruction))
}

// Session keeps what a refinement needs: the original photo and the config
// of the last successful generation.
type Session struct {
	orch     *Orchestrator
	original SourceImage

	mu     sync.Mutex
	config GenerationConfig
}

// StartSession runs a first generation and, on success, returns a Session
// that can refine it.
func (o *Orchestrator) StartSession(ctx context.Context, img SourceImage, cfg GenerationConfig) (*Session, GenerationResult, error) {
	result, err := o.Generate(ctx, img, cfg)
	if err != nil {
		return nil, GenerationResult{}, err
	}
	return newSession(o, img, cfg), result, nil
}

// newSession records a successful generation of cfg from original.
func newSession(orch *Orchestrator, original SourceImage, cfg GenerationConfig) *Session {
	return &Session{
		orch:     orch,
		original: original,
		config:   cfg,
	}
}

// Refine regenerates with instruction. On success the session moves to the
// refined config; on failure it is unchanged.
func (s *Session) Refine(ctx context.Context, instruction string) (GenerationResult, error) {
	cfg := s.Config()
	result, err := s.orch.Refine(ctx, s.original, cfg, instruction)
	if err != nil {
		return GenerationResult{}, err
	}

	s.mu.Lock()
	s.config = cfg.WithRefinement(instruction)
	s.mu.Unlock()
	return result, nil
}

func (s *Session) Config() GenerationConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.config
}

