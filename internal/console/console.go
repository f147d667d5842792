// Package console provides the process-wide logger used by the CLI and the
// pipeline. Built on zap with a console encoder; quiet mode discards
// everything below warn.
package console

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the package-level logger. It defaults to info level and may be
// reconfigured once at startup via Init.
var Logger = mustBuild(zapcore.InfoLevel)

// Init reconfigures the global logger. verbose enables debug output; quiet
// suppresses everything below warn. verbose wins when both are set.
func Init(verbose, quiet bool) {
	level := zapcore.InfoLevel
	switch {
	case verbose:
		level = zapcore.DebugLevel
	case quiet:
		level = zapcore.WarnLevel
	}
	Logger = mustBuild(level)
}

func mustBuild(level zapcore.Level) *zap.SugaredLogger {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.DisableStacktrace = true
	cfg.DisableCaller = true
	logger, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	return logger.Sugar()
}
