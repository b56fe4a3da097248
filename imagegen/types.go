package imagegen

import (
	"fmt"
	"strings"
)

// Style selects one of the two fixed rendering styles.
type Style string

const (
	StyleThreeD Style = "3D"
	StyleTwoD   Style = "2D"
)

// Framing selects the composition of the caricature. It also decides the
// output aspect ratio requested from the synthesizers.
type Framing string

const (
	FramingPortrait Framing = "PORTRAIT"
	FramingFullBody Framing = "FULL_BODY"
)

// Background selects one of the fixed scene fragments.
type Background string

const (
	BackgroundStudio  Background = "STUDIO"
	BackgroundCampus  Background = "CAMPUS"
	BackgroundFestive Background = "FESTIVE"
)

// ProviderKind identifies which external AI provider runs a generation.
type ProviderKind string

const (
	// ProviderA edits the source photo directly (Gemini multimodal).
	ProviderA ProviderKind = "GEMINI"
	// ProviderB describes the photo first and generates from text (OpenAI).
	ProviderB ProviderKind = "OPENAI"
)

// Output sizes requested from text-to-image models, keyed by framing.
const (
	SizeSquare = "1024x1024"
	SizeTall   = "1024x1792"
)

// Aspect ratios requested from the direct-edit model, keyed by framing.
const (
	AspectSquare = "1:1"
	AspectTall   = "9:16"
)

// GenerationConfig is the user's choice for a single generation.
//
// It is a value type: a refinement request clones it with WithRefinement
// instead of mutating the caller's copy.
type GenerationConfig struct {
	CourseName string       `json:"courseName"`
	Style      Style        `json:"style"`
	Framing    Framing      `json:"framing"`
	Background Background   `json:"background"`
	Provider   ProviderKind `json:"provider"`

	// Refinement is an optional free-text instruction layered on top of the
	// base configuration. Empty for first generations.
	Refinement string `json:"refinement,omitempty"`
}

// Validate checks that the config can be turned into a prompt.
// Background has no implicit default; an empty value is rejected.
func (c GenerationConfig) Validate() error {
	if strings.TrimSpace(c.CourseName) == "" {
		return fmt.Errorf("%w: course name is required", ErrInvalidConfig)
	}
	switch c.Style {
	case StyleThreeD, StyleTwoD:
	default:
		return fmt.Errorf("%w: unknown style %q", ErrInvalidConfig, c.Style)
	}
	switch c.Framing {
	case FramingPortrait, FramingFullBody:
	default:
		return fmt.Errorf("%w: unknown framing %q", ErrInvalidConfig, c.Framing)
	}
	switch c.Background {
	case BackgroundStudio, BackgroundCampus, BackgroundFestive:
	default:
		return fmt.Errorf("%w: unknown background %q", ErrInvalidConfig, c.Background)
	}
	switch c.Provider {
	case ProviderA, ProviderB:
	default:
		return fmt.Errorf("%w: unknown provider %q", ErrInvalidConfig, c.Provider)
	}
	return nil
}

// WithRefinement returns a copy of c carrying the given instruction.
// Any previous refinement is replaced, so refinements never stack.
func (c GenerationConfig) WithRefinement(instruction string) GenerationConfig {
	clone := c
	clone.Refinement = strings.TrimSpace(instruction)
	return clone
}

// AspectRatio returns the aspect ratio for the direct-edit path.
func (c GenerationConfig) AspectRatio() string {
	if c.Framing == FramingFullBody {
		return AspectTall
	}
	return AspectSquare
}

// OutputSize returns the pixel size for the text-to-image path.
func (c GenerationConfig) OutputSize() string {
	if c.Framing == FramingFullBody {
		return SizeTall
	}
	return SizeSquare
}

// Image is raw image bytes returned by a synthesizer.
type Image struct {
	Data     []byte
	MIMEType string
}

// GenerationResult is the outcome of one successful orchestrated call.
type GenerationResult struct {
	// ImageData is a data URI ready for display or download.
	ImageData string `json:"imageData"`

	// ProviderUsed is the provider that produced the image.
	ProviderUsed ProviderKind `json:"providerUsed"`

	// Model is the concrete model that produced the image.
	Model string `json:"model"`

	// Prompt is the final instruction sent to the synthesizer.
	Prompt string `json:"-"`

	// UsedFallback is true when the quota fallback model produced the image.
	UsedFallback bool `json:"usedFallback"`

	// SubstitutedDescription is true when a privacy refusal was replaced
	// with the generic description.
	SubstitutedDescription bool `json:"substitutedDescription"`
}
