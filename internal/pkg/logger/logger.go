package logger

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/gofiber/fiber/v2/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Setup builds a zap logger and installs it behind fiber's log package, so
// log.Infof / log.Warnw calls across the app end up as structured zap entries.
func Setup(level string, dev bool) (*zap.Logger, error) {
	var cfg zap.Config
	if dev {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	atom := zap.NewAtomicLevelAt(parseLevel(level))
	cfg.Level = atom

	z, err := cfg.Build(zap.AddCallerSkip(2))
	if err != nil {
		return nil, fmt.Errorf("build zap logger: %w", err)
	}
	zap.ReplaceGlobals(z)
	log.SetLogger(&fiberLogger{sugar: z.Sugar(), level: atom})
	return z, nil
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug", "trace":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// fiberLogger adapts a zap SugaredLogger to fiber's log.AllLogger.
type fiberLogger struct {
	sugar *zap.SugaredLogger
	level zap.AtomicLevel
}

var _ log.AllLogger = (*fiberLogger)(nil)

func (l *fiberLogger) Trace(v ...interface{}) { l.sugar.Debug(v...) }
func (l *fiberLogger) Debug(v ...interface{}) { l.sugar.Debug(v...) }
func (l *fiberLogger) Info(v ...interface{})  { l.sugar.Info(v...) }
func (l *fiberLogger) Warn(v ...interface{})  { l.sugar.Warn(v...) }
func (l *fiberLogger) Error(v ...interface{}) { l.sugar.Error(v...) }
func (l *fiberLogger) Fatal(v ...interface{}) { l.sugar.Fatal(v...) }
func (l *fiberLogger) Panic(v ...interface{}) { l.sugar.Panic(v...) }

func (l *fiberLogger) Tracef(format string, v ...interface{}) { l.sugar.Debugf(format, v...) }
func (l *fiberLogger) Debugf(format string, v ...interface{}) { l.sugar.Debugf(format, v...) }
func (l *fiberLogger) Infof(format string, v ...interface{})  { l.sugar.Infof(format, v...) }
func (l *fiberLogger) Warnf(format string, v ...interface{})  { l.sugar.Warnf(format, v...) }
func (l *fiberLogger) Errorf(format string, v ...interface{}) { l.sugar.Errorf(format, v...) }
func (l *fiberLogger) Fatalf(format string, v ...interface{}) { l.sugar.Fatalf(format, v...) }
func (l *fiberLogger) Panicf(format string, v ...interface{}) { l.sugar.Panicf(format, v...) }

func (l *fiberLogger) Tracew(msg string, kv ...interface{}) { l.sugar.Debugw(msg, kv...) }
func (l *fiberLogger) Debugw(msg string, kv ...interface{}) { l.sugar.Debugw(msg, kv...) }
func (l *fiberLogger) Infow(msg string, kv ...interface{})  { l.sugar.Infow(msg, kv...) }
func (l *fiberLogger) Warnw(msg string, kv ...interface{})  { l.sugar.Warnw(msg, kv...) }
func (l *fiberLogger) Errorw(msg string, kv ...interface{}) { l.sugar.Errorw(msg, kv...) }
func (l *fiberLogger) Fatalw(msg string, kv ...interface{}) { l.sugar.Fatalw(msg, kv...) }
func (l *fiberLogger) Panicw(msg string, kv ...interface{}) { l.sugar.Panicw(msg, kv...) }

func (l *fiberLogger) SetLevel(lv log.Level) {
	switch lv {
	case log.LevelTrace, log.LevelDebug:
		l.level.SetLevel(zapcore.DebugLevel)
	case log.LevelInfo:
		l.level.SetLevel(zapcore.InfoLevel)
	case log.LevelWarn:
		l.level.SetLevel(zapcore.WarnLevel)
	case log.LevelError:
		l.level.SetLevel(zapcore.ErrorLevel)
	case log.LevelFatal:
		l.level.SetLevel(zapcore.FatalLevel)
	case log.LevelPanic:
		l.level.SetLevel(zapcore.PanicLevel)
	}
}

// SetOutput is a no-op; zap sinks are fixed at build time.
func (l *fiberLogger) SetOutput(io.Writer) {}

func (l *fiberLogger) WithContext(ctx context.Context) log.CommonLogger {
	return l
}
