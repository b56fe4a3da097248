package logging

import (
	"go.uber.org/zap/zapcore"
)

// NewMultiCoreWithWriters tees entries to a console writer and a file writer.
// The file side is always JSON. The console side is colored text in
// development and JSON otherwise.
//
// Example:
//
//	var buf bytes.Buffer
//	core := NewMultiCoreWithWriters(zapcore.DebugLevel, os.Stdout, zapcore.AddSync(&buf), true)
//	logger := NewFromCore(core)
func NewMultiCoreWithWriters(level zapcore.Level, consoleWriter, fileWriter zapcore.WriteSyncer, isDev bool) zapcore.Core {
	fileCore := zapcore.NewCore(
		zapcore.NewJSONEncoder(NewEncoderConfig()),
		fileWriter,
		level,
	)
	return zapcore.NewTee(NewConsoleCore(level, consoleWriter, isDev), fileCore)
}

// NewConsoleCore builds the console half of the tee on its own, used when no
// log file is configured.
func NewConsoleCore(level zapcore.Level, consoleWriter zapcore.WriteSyncer, isDev bool) zapcore.Core {
	var encoder zapcore.Encoder
	if isDev {
		encoder = zapcore.NewConsoleEncoder(NewConsoleEncoderConfig())
	} else {
		encoder = zapcore.NewJSONEncoder(NewEncoderConfig())
	}
	return zapcore.NewCore(encoder, consoleWriter, level)
}
