package logging

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap.Logger and redacts credentials before anything is written.
//
// It composes:
//   - FileWriter (rotation via lumberjack)
//   - MultiCore (tee to console + JSON file)
//   - SensitiveFilter (API key, password and session redaction)
//
// Example:
//
//	logger, err := NewLogger(true, "studio.log")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer logger.Sync()
//
//	logger.Info("server started", zap.Int("port", 3000))
type Logger struct {
	zap   *zap.Logger
	sugar *zap.SugaredLogger

	isDevelopment bool
	logFilePath   string
}

// Options configures a Logger.
type Options struct {
	// Development switches the console to colored, human-readable output.
	Development bool

	// Level is the minimum level written. Zero value is Info.
	Level zapcore.Level

	// FilePath is the rotated JSON log file. Empty disables file output.
	FilePath string

	// File tunes rotation. Zero fields fall back to defaults.
	File FileWriterConfig
}

// NewLogger creates a Logger for the given environment. Development mode logs
// at debug level, production at info.
func NewLogger(isDevelopment bool, logFilePath string) (*Logger, error) {
	level := zapcore.InfoLevel
	if isDevelopment {
		level = zapcore.DebugLevel
	}
	return New(Options{
		Development: isDevelopment,
		Level:       level,
		FilePath:    logFilePath,
		File:        DefaultFileWriterConfig(),
	})
}

// New builds a Logger from explicit options.
func New(opts Options) (*Logger, error) {
	console := zapcore.AddSync(os.Stdout)

	var core zapcore.Core
	if opts.FilePath == "" {
		core = NewConsoleCore(opts.Level, console, opts.Development)
	} else {
		if err := ensureLogDir(opts.FilePath); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		file := NewFileWriterWithConfig(opts.FilePath, opts.File)
		core = NewMultiCoreWithWriters(opts.Level, console, file, opts.Development)
	}

	l := NewFromCore(core)
	l.isDevelopment = opts.Development
	l.logFilePath = opts.FilePath
	return l, nil
}

// NewFromCore wraps an existing core. Tests use it with zaptest/observer.
func NewFromCore(core zapcore.Core) *Logger {
	zapLogger := zap.New(core,
		zap.AddCaller(),
		zap.AddCallerSkip(1), // skip this wrapper
	)
	return &Logger{
		zap:   zapLogger,
		sugar: zapLogger.Sugar(),
	}
}

// NewNop returns a Logger that discards everything.
func NewNop() *Logger {
	return NewFromCore(zapcore.NewNopCore())
}

// Sync flushes buffered entries. Call before exit.
func (l *Logger) Sync() error {
	if l == nil || l.zap == nil {
		return nil
	}
	return l.zap.Sync()
}

func (l *Logger) Debug(msg string, fields ...zap.Field) {
	l.zap.Debug(msg, l.redactFields(fields)...)
}

func (l *Logger) Info(msg string, fields ...zap.Field) {
	l.zap.Info(msg, l.redactFields(fields)...)
}

func (l *Logger) Warn(msg string, fields ...zap.Field) {
	l.zap.Warn(msg, l.redactFields(fields)...)
}

func (l *Logger) Error(msg string, fields ...zap.Field) {
	l.zap.Error(msg, l.redactFields(fields)...)
}

// Fatal logs then calls os.Exit(1).
func (l *Logger) Fatal(msg string, fields ...zap.Field) {
	l.zap.Fatal(msg, l.redactFields(fields)...)
}

// Debugw logs with loosely-typed key-value pairs.
func (l *Logger) Debugw(msg string, keysAndValues ...interface{}) {
	l.sugar.Debugw(msg, l.redactKeysAndValues(keysAndValues)...)
}

func (l *Logger) Infow(msg string, keysAndValues ...interface{}) {
	l.sugar.Infow(msg, l.redactKeysAndValues(keysAndValues)...)
}

func (l *Logger) Warnw(msg string, keysAndValues ...interface{}) {
	l.sugar.Warnw(msg, l.redactKeysAndValues(keysAndValues)...)
}

func (l *Logger) Errorw(msg string, keysAndValues ...interface{}) {
	l.sugar.Errorw(msg, l.redactKeysAndValues(keysAndValues)...)
}

// Infof logs a formatted message. Arguments are not redacted, so never pass
// credentials here.
func (l *Logger) Infof(template string, args ...interface{}) {
	l.sugar.Infof(template, args...)
}

func (l *Logger) Warnf(template string, args ...interface{}) {
	l.sugar.Warnf(template, args...)
}

func (l *Logger) Errorf(template string, args ...interface{}) {
	l.sugar.Errorf(template, args...)
}

// With creates a child logger carrying fields on every entry.
//
// Example:
//
//	log := logger.With(CorrelationID(id), UserID(userID))
//	log.Info("generation started")
func (l *Logger) With(fields ...zap.Field) *Logger {
	newZap := l.zap.With(l.redactFields(fields)...)
	return &Logger{
		zap:           newZap,
		sugar:         newZap.Sugar(),
		isDevelopment: l.isDevelopment,
		logFilePath:   l.logFilePath,
	}
}

// Named adds a sub-logger name, e.g. "orchestrator" or "http".
func (l *Logger) Named(name string) *Logger {
	newZap := l.zap.Named(name)
	return &Logger{
		zap:           newZap,
		sugar:         newZap.Sugar(),
		isDevelopment: l.isDevelopment,
		logFilePath:   l.logFilePath,
	}
}

func (l *Logger) IsDevelopment() bool {
	return l.isDevelopment
}

func (l *Logger) LogFilePath() string {
	return l.logFilePath
}

func (l *Logger) redactFields(fields []zap.Field) []zap.Field {
	if len(fields) == 0 {
		return fields
	}
	result := make([]zap.Field, len(fields))
	for i, field := range fields {
		result[i] = redactField(field)
	}
	return result
}

func redactField(field zap.Field) zap.Field {
	if IsSensitiveField(field.Key) {
		return zap.String(field.Key, RedactedPlaceholder)
	}
	if field.Type == zapcore.StringType {
		if redacted := RedactSensitiveData(field.String); redacted != field.String {
			return zap.String(field.Key, redacted)
		}
	}
	return field
}

// redactKeysAndValues filters pairs used by the sugared methods. Even indices
// are keys, odd indices values.
func (l *Logger) redactKeysAndValues(keysAndValues []interface{}) []interface{} {
	if len(keysAndValues) == 0 {
		return keysAndValues
	}
	result := make([]interface{}, len(keysAndValues))
	copy(result, keysAndValues)

	for i := 0; i < len(result)-1; i += 2 {
		key, ok := result[i].(string)
		if !ok {
			continue
		}
		if IsSensitiveField(key) {
			result[i+1] = RedactedPlaceholder
			continue
		}
		if value, ok := result[i+1].(string); ok {
			result[i+1] = RedactSensitiveData(value)
		}
	}
	return result
}
