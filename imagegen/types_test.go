package imagegen

import (
	"errors"
	"testing"
)

func TestGenerationConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*GenerationConfig)
		ok     bool
	}{
		{"valid", func(*GenerationConfig) {}, true},
		{"blank course", func(c *GenerationConfig) { c.CourseName = "  " }, false},
		{"unknown style", func(c *GenerationConfig) { c.Style = "4D" }, false},
		{"unknown framing", func(c *GenerationConfig) { c.Framing = "WIDE" }, false},
		{"missing background", func(c *GenerationConfig) { c.Background = "" }, false},
		{"unknown provider", func(c *GenerationConfig) { c.Provider = "MIDJOURNEY" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := lawConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.ok && err != nil {
				t.Errorf("Validate() error = %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Validate() error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestGenerationConfig_WithRefinementClones(t *testing.T) {
	base := lawConfig()
	first := base.WithRefinement("add glasses")
	second := first.WithRefinement("  remove the hat  ")

	if base.Refinement != "" {
		t.Error("WithRefinement mutated the receiver")
	}
	if first.Refinement != "add glasses" {
		t.Errorf("first.Refinement = %q", first.Refinement)
	}
	if second.Refinement != "remove the hat" {
		t.Errorf("second.Refinement = %q, want the newest instruction only", second.Refinement)
	}
}

func TestGenerationConfig_OutputShape(t *testing.T) {
	tests := []struct {
		framing Framing
		aspect  string
		size    string
	}{
		{FramingFullBody, "9:16", "1024x1792"},
		{FramingPortrait, "1:1", "1024x1024"},
	}
	for _, tt := range tests {
		t.Run(string(tt.framing), func(t *testing.T) {
			cfg := lawConfig()
			cfg.Framing = tt.framing
			if got := cfg.AspectRatio(); got != tt.aspect {
				t.Errorf("AspectRatio() = %q, want %q", got, tt.aspect)
			}
			if got := cfg.OutputSize(); got != tt.size {
				t.Errorf("OutputSize() = %q, want %q", got, tt.size)
			}
		})
	}
}
