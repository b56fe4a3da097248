package imagegen

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestRefine_RegeneratesFromOriginal(t *testing.T) {
	direct := &fakeDirect{}
	orch := NewOrchestrator(OrchestratorOptions{Direct: direct})

	result, err := orch.Refine(context.Background(), testSource, lawConfig(), "add round glasses")
	if err != nil {
		t.Fatalf("Refine() error = %v", err)
	}
	if direct.directCalls != 1 {
		t.Errorf("directCalls = %d, want 1", direct.directCalls)
	}
	lines := strings.Split(direct.lastPrompt, "\n")
	if lines[len(lines)-1] != RefinementMarker+": add round glasses" {
		t.Errorf("last prompt line = %q", lines[len(lines)-1])
	}
	if result.ProviderUsed != ProviderA {
		t.Errorf("ProviderUsed = %s", result.ProviderUsed)
	}
}

func TestRefine_BlankInstruction(t *testing.T) {
	direct := &fakeDirect{}
	orch := NewOrchestrator(OrchestratorOptions{Direct: direct})

	_, err := orch.Refine(context.Background(), testSource, lawConfig(), "  ")
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("err = %v, want ErrInvalidConfig", err)
	}
	if direct.directCalls != 0 {
		t.Error("provider called for a blank instruction")
	}
}

func TestSession_RefinementsDoNotCompose(t *testing.T) {
	direct := &fakeDirect{}
	orch := NewOrchestrator(OrchestratorOptions{Direct: direct})

	session, _, err := orch.StartSession(context.Background(), testSource, lawConfig())
	if err != nil {
		t.Fatalf("StartSession() error = %v", err)
	}

	if _, err := session.Refine(context.Background(), "make it sunset"); err != nil {
		t.Fatalf("first Refine() error = %v", err)
	}
	if _, err := session.Refine(context.Background(), "add a dog"); err != nil {
		t.Fatalf("second Refine() error = %v", err)
	}

	if strings.Contains(direct.lastPrompt, "sunset") {
		t.Error("earlier refinement leaked into the newest prompt")
	}
	if strings.Count(direct.lastPrompt, RefinementMarker) != 1 {
		t.Error("refinement marker should appear exactly once")
	}
	if got := session.Config().Refinement; got != "add a dog" {
		t.Errorf("session refinement = %q", got)
	}
	if session.Config().CourseName != "Law" {
		t.Error("base config lost")
	}
}

func TestSession_FailureKeepsState(t *testing.T) {
	direct := &fakeDirect{}
	orch := NewOrchestrator(OrchestratorOptions{Direct: direct})

	session, first, err := orch.StartSession(context.Background(), testSource, lawConfig())
	if err != nil {
		t.Fatalf("StartSession() error = %v", err)
	}

	direct.directErr = &GenerationError{Kind: KindSafetyRefusal, Provider: ProviderA, Message: "blocked"}
	if _, err := session.Refine(context.Background(), "something odd"); !IsKind(err, KindSafetyRefusal) {
		t.Fatalf("err = %v, want SAFETY_REFUSAL", err)
	}

	if session.Config().Refinement != "" {
		t.Error("failed refinement changed the session config")
	}
	if len(session.original.Data) == 0 {
		t.Error("original image lost")
	}

	direct.directErr = nil
	if _, err := session.Refine(context.Background(), "bigger smile"); err != nil {
		t.Fatalf("Refine() after failure error = %v", err)
	}
	if strings.Contains(direct.lastPrompt, "something odd") || !strings.Contains(direct.lastPrompt, "bigger smile") {
		t.Errorf("retry prompt carries the failed instruction:\n%s", direct.lastPrompt)
	}
	if first.ImageData == "" {
		t.Error("first generation returned no image")
	}
}

func TestStartSession_Failure(t *testing.T) {
	orch := NewOrchestrator(OrchestratorOptions{Direct: &fakeDirect{directErr: errors.New("boom")}})
	session, _, err := orch.StartSession(context.Background(), testSource, lawConfig())
	if err == nil || session != nil {
		t.Errorf("StartSession() = %v, %v; want nil session and error", session, err)
	}
}
