package core

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestExitCodeName(t *testing.T) {
	tests := map[int]string{
		ExitCodeSuccess: "success",
		ExitCodeConfig:  "configuration error",
		ExitCodeSIGINT:  "interrupted (SIGINT)",
		99:              "unknown",
	}
	for code, want := range tests {
		if got := ExitCodeName(code); got != want {
			t.Errorf("ExitCodeName(%d) = %q, want %q", code, got, want)
		}
	}
	if !IsSignalExit(ExitCodeSIGTERM) || IsSignalExit(ExitCodeConfig) {
		t.Error("IsSignalExit misclassified")
	}
}

func TestBuildLdflags(t *testing.T) {
	got := BuildLdflags("v1.0.0", "", "abc1234")
	want := "-X caricature_studio/core.Version=v1.0.0 -X caricature_studio/core.GitCommit=abc1234"
	if got != want {
		t.Errorf("BuildLdflags() = %q, want %q", got, want)
	}
	if BuildLdflags("", "", "") != "" {
		t.Error("BuildLdflags with no values should be empty")
	}
	if !strings.Contains(GetVersionInfo(), Version) {
		t.Error("GetVersionInfo() should include Version")
	}
}

func TestGetDataFilePath(t *testing.T) {
	path := GetDataFilePath("studio.db")
	if filepath.Base(path) != "studio.db" || filepath.Dir(path) != GetDataDirectory() {
		t.Errorf("GetDataFilePath() = %q", path)
	}
}

func TestEnsureParentDir(t *testing.T) {
	dir := t.TempDir()
	if err := EnsureParentDir(filepath.Join(dir, "a", "b", "studio.db")); err != nil {
		t.Fatalf("EnsureParentDir() error = %v", err)
	}
	if err := EnsureParentDir("studio.db"); err != nil {
		t.Errorf("EnsureParentDir(bare name) error = %v", err)
	}
}
