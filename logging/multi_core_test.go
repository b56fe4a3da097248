package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewMultiCoreWithWriters_Development(t *testing.T) {
	var consoleBuf, fileBuf bytes.Buffer

	core := NewMultiCoreWithWriters(zapcore.InfoLevel,
		zapcore.AddSync(&consoleBuf), zapcore.AddSync(&fileBuf), true)
	logger := zap.New(core)
	logger.Info("test message", zap.String("key", "value"))
	_ = logger.Sync()

	if strings.HasPrefix(strings.TrimSpace(consoleBuf.String()), "{") {
		t.Errorf("development console output should not be JSON: %s", consoleBuf.String())
	}

	var entry map[string]interface{}
	if err := json.Unmarshal(fileBuf.Bytes(), &entry); err != nil {
		t.Fatalf("file output is not JSON: %v", err)
	}
	if entry[FieldMessage] != "test message" {
		t.Errorf("message = %v", entry[FieldMessage])
	}
	if entry["key"] != "value" {
		t.Errorf("key = %v", entry["key"])
	}
}

func TestNewMultiCoreWithWriters_ProductionIsJSON(t *testing.T) {
	var consoleBuf, fileBuf bytes.Buffer

	core := NewMultiCoreWithWriters(zapcore.InfoLevel,
		zapcore.AddSync(&consoleBuf), zapcore.AddSync(&fileBuf), false)
	logger := zap.New(core)
	logger.Debug("filtered")
	logger.Info("kept")
	_ = logger.Sync()

	var entry map[string]interface{}
	if err := json.Unmarshal(consoleBuf.Bytes(), &entry); err != nil {
		t.Fatalf("production console output is not JSON: %v", err)
	}
	if strings.Contains(fileBuf.String(), "filtered") {
		t.Error("debug entry should be filtered at info level")
	}
}

func TestApplyFileWriterDefaults(t *testing.T) {
	got := applyFileWriterDefaults(FileWriterConfig{MaxBackups: 2})
	if got.MaxSizeMB != DefaultMaxSizeMB || got.MaxAgeDays != DefaultMaxAgeDays {
		t.Errorf("defaults not applied: %+v", got)
	}
	if got.MaxBackups != 2 {
		t.Errorf("explicit MaxBackups overwritten: %d", got.MaxBackups)
	}
}
