package logger

import (
	"contract_deployer/internal/app/port"

	"go.uber.org/zap"
)

// slogAdapter implements port.Logger on top of the package-level slog functions.
type slogAdapter struct{}

// NewSlogAdapter creates a port.Logger backed by the global slog logger.
func NewSlogAdapter() port.Logger {
	return &slogAdapter{}
}

func (a *slogAdapter) Info(msg string, args ...any)  { Info(msg, args...) }
func (a *slogAdapter) Debug(msg string, args ...any) { Debug(msg, args...) }
func (a *slogAdapter) Warn(msg string, args ...any)  { Warn(msg, args...) }
func (a *slogAdapter) Error(msg string, args ...any) { Error(msg, args...) }

// zapAdapter implements port.Logger with a sugared zap logger, using key/value pairs.
type zapAdapter struct {
	sugar *zap.SugaredLogger
}

// NewZapAdapter wraps a zap logger, e.g. zaptest.NewLogger(t) in tests or a Named runtime logger.
func NewZapAdapter(l *zap.Logger) port.Logger {
	return &zapAdapter{sugar: l.Sugar()}
}

func (a *zapAdapter) Info(msg string, args ...any)  { a.sugar.Infow(msg, args...) }
func (a *zapAdapter) Debug(msg string, args ...any) { a.sugar.Debugw(msg, args...) }
func (a *zapAdapter) Warn(msg string, args ...any)  { a.sugar.Warnw(msg, args...) }
func (a *zapAdapter) Error(msg string, args ...any) { a.sugar.Errorw(msg, args...) }
