/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package flogging

import (
	"os"
	"strings"
	"sync"

	logfmt "github.com/sykesm/zap-logfmt"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// SpecEnvKey is the environment variable consulted for the default logging spec.
const SpecEnvKey = "SECLEND_LOGGING_SPEC"

var (
	once sync.Once
	root *zap.Logger
	lvl  zap.AtomicLevel
)

func initRoot() {
	lvl = zap.NewAtomicLevelAt(levelFromSpec(os.Getenv(SpecEnvKey)))
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "name",
		MessageKey:     "msg",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	}
	core := zapcore.NewCore(
		logfmt.NewEncoder(encoderConfig),
		zapcore.Lock(os.Stderr),
		lvl,
	)
	root = zap.New(core)
}

func levelFromSpec(spec string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(spec)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "panic":
		return zapcore.PanicLevel
	default:
		return zapcore.InfoLevel
	}
}

// Logger is a named logger.
type Logger struct {
	s *zap.SugaredLogger
}

// MustGetLogger returns a named logger. It panics only if the logging
// subsystem cannot be initialized.
func MustGetLogger(name string) *Logger {
	once.Do(initRoot)
	return &Logger{s: root.Named(name).Sugar()}
}

// ActivateSpec overrides the level of all loggers created by this package.
func ActivateSpec(spec string) {
	once.Do(initRoot)
	lvl.SetLevel(levelFromSpec(spec))
}

// IsEnabledFor returns true if the logger emits records at the given level.
func (l *Logger) IsEnabledFor(level zapcore.Level) bool {
	once.Do(initRoot)
	return lvl.Enabled(level)
}

func (l *Logger) Debugf(template string, args ...interface{}) {
	l.s.Debugf(template, args...)
}

func (l *Logger) Infof(template string, args ...interface{}) {
	l.s.Infof(template, args...)
}

func (l *Logger) Warnf(template string, args ...interface{}) {
	l.s.Warnf(template, args...)
}

func (l *Logger) Errorf(template string, args ...interface{}) {
	l.s.Errorf(template, args...)
}

func (l *Logger) Debug(args ...interface{}) { l.s.Debug(args...) }
func (l *Logger) Info(args ...interface{})  { l.s.Info(args...) }
func (l *Logger) Warn(args ...interface{})  { l.s.Warn(args...) }
func (l *Logger) Error(args ...interface{}) { l.s.Error(args...) }

// Warningf is kept for callers ported from loggers with the longer name.
func (l *Logger) Warningf(template string, args ...interface{}) {
	l.s.Warnf(template, args...)
}
