package log

import (
	"context"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the logging contract used across the application.
type Logger interface {
	Debug(ctx context.Context, arg ...any)
	Debugf(ctx context.Context, template string, arg ...any)
	Info(ctx context.Context, arg ...any)
	Infof(ctx context.Context, template string, arg ...any)
	Warn(ctx context.Context, arg ...any)
	Warnf(ctx context.Context, template string, arg ...any)
	Error(ctx context.Context, arg ...any)
	Errorf(ctx context.Context, template string, arg ...any)
	Fatal(ctx context.Context, arg ...any)
	Fatalf(ctx context.Context, template string, arg ...any)
}

// ZapConfig controls how Init builds the zap logger.
type ZapConfig struct {
	Level        string
	Mode         string // "production" or anything else for development
	Encoding     string // "json" or "console"
	ColorEnabled bool
}

type zapLogger struct {
	sugar *zap.SugaredLogger
}

// Init builds a Logger backed by zap.
func Init(cfg ZapConfig) Logger {
	level := zapcore.InfoLevel
	if err := level.UnmarshalText([]byte(strings.ToLower(cfg.Level))); err != nil || cfg.Level == "" {
		level = zapcore.InfoLevel
	}

	var encCfg zapcore.EncoderConfig
	if cfg.Mode == "production" {
		encCfg = zap.NewProductionEncoderConfig()
	} else {
		encCfg = zap.NewDevelopmentEncoderConfig()
	}
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	if cfg.ColorEnabled && cfg.Encoding != "json" {
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	}

	var encoder zapcore.Encoder
	if cfg.Encoding == "json" {
		encoder = zapcore.NewJSONEncoder(encCfg)
	} else {
		encoder = zapcore.NewConsoleEncoder(encCfg)
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), zap.NewAtomicLevelAt(level))
	return &zapLogger{sugar: zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)).Sugar()}
}

// NewNop returns a Logger that discards everything.
func NewNop() Logger {
	return &zapLogger{sugar: zap.NewNop().Sugar()}
}

// Zap exposes the underlying zap logger so third-party integrations can share it.
func Zap(l Logger) *zap.SugaredLogger {
	if zl, ok := l.(*zapLogger); ok {
		return zl.sugar
	}
	return zap.NewNop().Sugar()
}

func (l *zapLogger) Debug(_ context.Context, arg ...any) { l.sugar.Debug(arg...) }
func (l *zapLogger) Debugf(_ context.Context, template string, arg ...any) {
	l.sugar.Debugf(template, arg...)
}
func (l *zapLogger) Info(_ context.Context, arg ...any) { l.sugar.Info(arg...) }
func (l *zapLogger) Infof(_ context.Context, template string, arg ...any) {
	l.sugar.Infof(template, arg...)
}
func (l *zapLogger) Warn(_ context.Context, arg ...any) { l.sugar.Warn(arg...) }
func (l *zapLogger) Warnf(_ context.Context, template string, arg ...any) {
	l.sugar.Warnf(template, arg...)
}
func (l *zapLogger) Error(_ context.Context, arg ...any) { l.sugar.Error(arg...) }
func (l *zapLogger) Errorf(_ context.Context, template string, arg ...any) {
	l.sugar.Errorf(template, arg...)
}
func (l *zapLogger) Fatal(_ context.Context, arg ...any) { l.sugar.Fatal(arg...) }
func (l *zapLogger) Fatalf(_ context.Context, template string, arg ...any) {
	l.sugar.Fatalf(template, arg...)
}
