package imagegen

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"caricature_studio/logging"
)

// Describer produces a physical description of the person in a photo.
type Describer interface {
	Describe(ctx context.Context, img SourceImage) (string, error)
}

// DirectSynthesizer edits the photo in one call and has a text-only fallback
// for when the editing model is over quota.
type DirectSynthesizer interface {
	SynthesizeDirect(ctx context.Context, img SourceImage, prompt, aspectRatio string) (Image, error)
	SynthesizeFallback(ctx context.Context, prompt, aspectRatio string) (Image, error)
	Model() string
	FallbackModel() string
}

// DescriptionSynthesizer renders an image from text only.
type DescriptionSynthesizer interface {
	SynthesizeFromDescription(ctx context.Context, description, prompt, size string) (Image, error)
	Model() string
}

// Observer receives one call per finished generation. usedFallback is true
// whenever the quota fallback ran, whether or not it succeeded. kind is empty on
// success.
type Observer interface {
	ObserveGeneration(provider ProviderKind, kind ErrorKind, usedFallback bool, elapsed time.Duration)
}

// PrivacyPolicy decides what happens when the vision model refuses to
// describe the photo.
type PrivacyPolicy string

const (
	// PolicySubstitute continues with GenericDescription.
	PolicySubstitute PrivacyPolicy = "substitute"
	// PolicyAbort fails the generation with KindPrivacyRefusal.
	PolicyAbort PrivacyPolicy = "abort"
)

// ParsePrivacyPolicy accepts "substitute" or "abort", case-insensitively.
// Empty means PolicySubstitute.
func ParsePrivacyPolicy(s string) (PrivacyPolicy, error) {
	switch PrivacyPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicySubstitute:
		return PolicySubstitute, nil
	case PolicyAbort:
		return PolicyAbort, nil
	default:
		return "", fmt.Errorf("imagegen: unknown privacy policy %q", s)
	}
}

// OrchestratorOptions wires the providers. A nil provider means its API key
// is not configured; requests for it fail with KindInvalidCredential.
type OrchestratorOptions struct {
	Direct          DirectSynthesizer
	Describer       Describer
	FromDescription DescriptionSynthesizer

	Policy PrivacyPolicy

	// CallTimeout bounds each provider call. Zero leaves it to ctx.
	CallTimeout time.Duration

	Logger   *logging.Logger
	Observer Observer
}

// Orchestrator runs one generation request end to end: prompt, provider
// calls, the quota fallback and error classification.
//
// It holds no per-request state and is safe for concurrent use.
type Orchestrator struct {
	direct    DirectSynthesizer
	describer Describer
	fromText  DescriptionSynthesizer

	policy      PrivacyPolicy
	callTimeout time.Duration

	logger   *logging.Logger
	observer Observer
}

func NewOrchestrator(opts OrchestratorOptions) *Orchestrator {
	if opts.Policy == "" {
		opts.Policy = PolicySubstitute
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	return &Orchestrator{
		direct:      opts.Direct,
		describer:   opts.Describer,
		fromText:    opts.FromDescription,
		policy:      opts.Policy,
		callTimeout: opts.CallTimeout,
		logger:      opts.Logger.Named("orchestrator"),
		observer:    opts.Observer,
	}
}

// Policy returns the configured privacy policy.
func (o *Orchestrator) Policy() PrivacyPolicy {
	return o.policy
}

// Generate produces a caricature of img according to cfg.
//
// An invalid cfg returns an error wrapping ErrInvalidConfig before any
// provider is called. Every provider failure is a *GenerationError.
func (o *Orchestrator) Generate(ctx context.Context, img SourceImage, cfg GenerationConfig) (GenerationResult, error) {
	if err := cfg.Validate(); err != nil {
		return GenerationResult{}, err
	}
	if len(img.Data) == 0 {
		return GenerationResult{}, ErrEmptyImage
	}

	log := o.logger.With(
		logging.CorrelationID(logging.CorrelationIDFromContext(ctx)),
		logging.Provider(string(cfg.Provider)),
		zap.String(logging.KeyStyle, string(cfg.Style)),
		zap.String(logging.KeyFraming, string(cfg.Framing)),
		zap.Bool("refinement", cfg.Refinement != ""),
	)
	log.Info("generation started")
	started := time.Now()

	var (
		result GenerationResult
		err    error
	)
	switch cfg.Provider {
	case ProviderA:
		result, err = o.runDirect(ctx, log, img, cfg)
	case ProviderB:
		result, err = o.runDescribed(ctx, log, img, cfg)
	}
	elapsed := time.Since(started)

	if err != nil {
		kind := KindOf(err)
		log.Warn("generation failed",
			logging.ErrorKind(string(kind)),
			logging.Duration(elapsed),
			zap.Error(err),
		)
		o.observe(cfg.Provider, kind, IsBusy(err), elapsed)
		return GenerationResult{}, err
	}

	log.Info("generation finished",
		logging.Model(result.Model),
		zap.Bool("used_fallback", result.UsedFallback),
		zap.Bool("substituted_description", result.SubstitutedDescription),
		logging.Duration(elapsed),
	)
	o.observe(cfg.Provider, "", result.UsedFallback, elapsed)
	return result, nil
}

// runDirect is the Provider A path: one edit call, and on quota exhaustion
// exactly one fallback call.
func (o *Orchestrator) runDirect(ctx context.Context, log *logging.Logger, img SourceImage, cfg GenerationConfig) (GenerationResult, error) {
	if o.direct == nil {
		return GenerationResult{}, missingProvider(ProviderA)
	}

	prompt := BuildPrompt(cfg)
	aspect := cfg.AspectRatio()

	out, err := o.call(ctx, func(ctx context.Context) (Image, error) {
		return o.direct.SynthesizeDirect(ctx, img, prompt, aspect)
	})
	if err == nil {
		return newResult(out, ProviderA, o.direct.Model(), prompt), nil
	}

	switch KindOf(err) {
	case KindQuotaExceeded:
		log.Warn("edit model over quota, trying fallback", logging.Model(o.direct.FallbackModel()), zap.Error(err))
		out, fbErr := o.call(ctx, func(ctx context.Context) (Image, error) {
			return o.direct.SynthesizeFallback(ctx, prompt, aspect)
		})
		if fbErr != nil {
			return GenerationResult{}, &GenerationError{
				Kind:     KindQuotaExceeded,
				Provider: ProviderA,
				Op:       opFallback,
				Message:  "provider is busy, try again in a minute",
				Busy:     true,
				Err:      fbErr,
			}
		}
		result := newResult(out, ProviderA, o.direct.FallbackModel(), prompt+FallbackSubjectSuffix)
		result.UsedFallback = true
		return result, nil
	case KindInvalidCredential:
		return GenerationResult{}, err
	default:
		return GenerationResult{}, asTerminal(err, ProviderA, opSynthesize)
	}
}

// runDescribed is the Provider B path: describe, then generate from text.
func (o *Orchestrator) runDescribed(ctx context.Context, log *logging.Logger, img SourceImage, cfg GenerationConfig) (GenerationResult, error) {
	if o.describer == nil || o.fromText == nil {
		return GenerationResult{}, missingProvider(ProviderB)
	}

	var description string
	err := o.callErr(ctx, func(ctx context.Context) error {
		var err error
		description, err = o.describer.Describe(ctx, img)
		return err
	})

	substituted := false
	if err != nil {
		if !IsKind(err, KindPrivacyRefusal) {
			return GenerationResult{}, asUnknown(err, ProviderB, opDescribe)
		}
		if o.policy == PolicyAbort {
			return GenerationResult{}, err
		}
		log.Warn("vision model refused, using generic description")
		description = GenericDescription
		substituted = true
	}

	prompt := BuildDescriptionPrompt(cfg, description)
	out, err := o.call(ctx, func(ctx context.Context) (Image, error) {
		return o.fromText.SynthesizeFromDescription(ctx, description, prompt, cfg.OutputSize())
	})
	if err != nil {
		switch KindOf(err) {
		case KindQuotaExceeded, KindInvalidCredential:
			return GenerationResult{}, err
		default:
			return GenerationResult{}, asTerminal(err, ProviderB, opSynthesize)
		}
	}

	result := newResult(out, ProviderB, o.fromText.Model(), prompt)
	result.SubstitutedDescription = substituted
	return result, nil
}

func (o *Orchestrator) call(ctx context.Context, fn func(context.Context) (Image, error)) (Image, error) {
	var out Image
	err := o.callErr(ctx, func(ctx context.Context) error {
		var err error
		out, err = fn(ctx)
		return err
	})
	return out, err
}

// callErr applies CallTimeout to a single provider call.
func (o *Orchestrator) callErr(ctx context.Context, fn func(context.Context) error) error {
	if o.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.callTimeout)
		defer cancel()
	}
	return fn(ctx)
}

func (o *Orchestrator) observe(provider ProviderKind, kind ErrorKind, usedFallback bool, elapsed time.Duration) {
	if o.observer != nil {
		o.observer.ObserveGeneration(provider, kind, usedFallback, elapsed)
	}
}

func newResult(img Image, provider ProviderKind, model, prompt string) GenerationResult {
	return GenerationResult{
		ImageData:    ToDataURI(img.Data, img.MIMEType),
		ProviderUsed: provider,
		Model:        model,
		Prompt:       prompt,
	}
}

func missingProvider(provider ProviderKind) *GenerationError {
	return &GenerationError{
		Kind:     KindInvalidCredential,
		Provider: provider,
		Op:       opSynthesize,
		Message:  "no API key configured",
		Err:      ErrProviderNotConfigured,
	}
}

// asTerminal keeps SafetyRefusal and NoImageReturned and folds every other
// failure into KindUnknown with the provider message intact.
func asTerminal(err error, provider ProviderKind, op string) error {
	switch KindOf(err) {
	case KindSafetyRefusal, KindNoImageReturned:
		return err
	}
	return asUnknown(err, provider, op)
}

func asUnknown(err error, provider ProviderKind, op string) error {
	var genErr *GenerationError
	if !errors.As(err, &genErr) {
		return classifyTransport(provider, op, err)
	}
	if genErr.Kind == KindUnknown {
		return err
	}
	return &GenerationError{
		Kind:       KindUnknown,
		Provider:   genErr.Provider,
		Op:         genErr.Op,
		Message:    genErr.Message,
		StatusCode: genErr.StatusCode,
		Err:        err,
	}
}
