package validation

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"

	"caricature_studio/core"
)

// ValidationStep is a single named check and its outcome.
type ValidationStep struct {
	Name    string
	Status  StepStatus
	Message string
	Error   error
	Latency time.Duration
}

type StepStatus int

const (
	StepPending StepStatus = iota
	StepRunning
	StepPassed
	StepFailed
	StepWarning
	StepSkipped
)

func (s StepStatus) String() string {
	switch s {
	case StepPending:
		return "pending"
	case StepRunning:
		return "running"
	case StepPassed:
		return "passed"
	case StepFailed:
		return "failed"
	case StepWarning:
		return "warning"
	case StepSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// SuiteResult is the complete result of a suite run.
type SuiteResult struct {
	Steps       []ValidationStep
	TotalSteps  int
	PassedSteps int
	FailedSteps int
	Warnings    int
	Duration    time.Duration
	Success     bool
}

// ValidationSuite runs the startup checks in order and prints colored
// progress. It makes no network calls; provider keys are only proven valid by
// the first real request.
type ValidationSuite struct {
	output       io.Writer
	validator    *ConfigValidator
	showProgress bool
	failFast     bool
}

func NewValidationSuite(cfg *core.Config) *ValidationSuite {
	return &ValidationSuite{
		output:       os.Stdout,
		validator:    NewConfigValidator(cfg),
		showProgress: true,
	}
}

func (s *ValidationSuite) WithOutput(w io.Writer) *ValidationSuite {
	s.output = w
	return s
}

func (s *ValidationSuite) WithShowProgress(show bool) *ValidationSuite {
	s.showProgress = show
	return s
}

// WithFailFast stops at the first failed step; remaining steps are skipped.
func (s *ValidationSuite) WithFailFast(failFast bool) *ValidationSuite {
	s.failFast = failFast
	return s
}

func (s *ValidationSuite) WithEnvPath(path string) *ValidationSuite {
	s.validator.WithEnvPath(path)
	return s
}

// Validate runs every check and returns the aggregated result.
func (s *ValidationSuite) Validate() SuiteResult {
	startTime := time.Now()

	if s.showProgress {
		s.printHeader("Caricature Studio Configuration Validation")
	}

	checks := []struct {
		name string
		fn   func() ValidationResult
	}{
		{"Environment File", s.validator.CheckEnvFile},
		{"Provider Credentials", s.validator.CheckProviderCredentials},
		{"Provider Endpoints", s.validator.CheckProviderEndpoints},
		{"Privacy Policy", s.validator.CheckPrivacyPolicy},
		{"Database Location", s.validator.CheckDatabasePath},
		{"Disk Space", s.validator.CheckDiskSpace},
	}

	steps := make([]ValidationStep, 0, len(checks))
	failed := false
	for _, check := range checks {
		if failed && s.failFast {
			step := ValidationStep{Name: check.name, Status: StepSkipped, Message: "Skipped after earlier failure"}
			if s.showProgress {
				s.printStep(step)
			}
			steps = append(steps, step)
			continue
		}
		step := s.runStep(check.name, check.fn)
		if step.Status == StepFailed {
			failed = true
		}
		steps = append(steps, step)
	}

	result := buildResult(steps, startTime)
	if s.showProgress {
		s.printSummary(result)
	}
	return result
}

func (s *ValidationSuite) runStep(name string, fn func() ValidationResult) ValidationStep {
	if s.showProgress {
		fmt.Fprintf(s.output, "  ◌ %s...", name)
	}

	started := time.Now()
	res := fn()
	step := ValidationStep{
		Name:    name,
		Message: res.Message,
		Error:   res.Error,
		Latency: time.Since(started),
	}
	switch {
	case !res.Valid:
		step.Status = StepFailed
	case res.Warning:
		step.Status = StepWarning
	default:
		step.Status = StepPassed
	}

	if s.showProgress {
		s.printStep(step)
	}
	return step
}

func buildResult(steps []ValidationStep, startTime time.Time) SuiteResult {
	result := SuiteResult{
		Steps:      steps,
		TotalSteps: len(steps),
		Duration:   time.Since(startTime),
		Success:    true,
	}
	for _, step := range steps {
		switch step.Status {
		case StepPassed:
			result.PassedSteps++
		case StepFailed:
			result.FailedSteps++
			result.Success = false
		case StepWarning:
			result.Warnings++
		}
	}
	return result
}

func (s *ValidationSuite) printHeader(title string) {
	fmt.Fprintln(s.output)
	color.New(color.FgCyan, color.Bold).Fprintf(s.output, "━━━ %s ━━━\n", title)
	fmt.Fprintln(s.output)
}

func (s *ValidationSuite) printStep(step ValidationStep) {
	var icon string
	var clr *color.Color

	switch step.Status {
	case StepPassed:
		icon, clr = "✓", color.New(color.FgGreen)
	case StepFailed:
		icon, clr = "✗", color.New(color.FgRed)
	case StepWarning:
		icon, clr = "!", color.New(color.FgYellow)
	case StepSkipped:
		icon, clr = "○", color.New(color.FgHiBlack)
	default:
		icon, clr = "?", color.New(color.FgWhite)
	}

	fmt.Fprintf(s.output, "\r")
	clr.Fprintf(s.output, "  %s %s", icon, step.Name)
	if step.Message != "" {
		color.New(color.FgHiBlack).Fprintf(s.output, " - %s", step.Message)
	}
	fmt.Fprintln(s.output)

	if step.Status == StepFailed && step.Error != nil {
		color.New(color.FgRed).Fprintf(s.output, "    └─ %s\n", step.Error.Error())
	}
}

func (s *ValidationSuite) printSummary(result SuiteResult) {
	fmt.Fprintln(s.output)
	if result.Success {
		c := color.New(color.FgGreen, color.Bold)
		c.Fprintf(s.output, "━━━ Validation Passed ")
		color.New(color.FgHiBlack).Fprintf(s.output, "(%d/%d checks passed, %d warnings)",
			result.PassedSteps, result.TotalSteps, result.Warnings)
		c.Fprintln(s.output, " ━━━")
	} else {
		c := color.New(color.FgRed, color.Bold)
		c.Fprintf(s.output, "━━━ Validation Failed ")
		color.New(color.FgHiBlack).Fprintf(s.output, "(%d passed, %d failed)",
			result.PassedSteps, result.FailedSteps)
		c.Fprintln(s.output, " ━━━")
	}
	fmt.Fprintln(s.output)
}

// GetFirstError returns the error of the first failed step, or nil.
func (r SuiteResult) GetFirstError() error {
	for _, step := range r.Steps {
		if step.Status == StepFailed && step.Error != nil {
			return step.Error
		}
	}
	return nil
}

func (r SuiteResult) Summary() string {
	var sb strings.Builder
	if r.Success {
		sb.WriteString("Validation Passed: ")
	} else {
		sb.WriteString("Validation Failed: ")
	}
	fmt.Fprintf(&sb, "%d/%d checks passed", r.PassedSteps, r.TotalSteps)
	if r.FailedSteps > 0 {
		fmt.Fprintf(&sb, ", %d failed", r.FailedSteps)
	}
	if r.Warnings > 0 {
		fmt.Fprintf(&sb, ", %d warnings", r.Warnings)
	}
	return sb.String()
}
