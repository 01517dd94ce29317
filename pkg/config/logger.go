package config

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger contains node logger configuration.
type Logger struct {
	LogEncoding  string `yaml:"LogEncoding"`
	LogLevel     string `yaml:"LogLevel"`
	LogPath      string `yaml:"LogPath"`
	LogTimestamp *bool  `yaml:"LogTimestamp,omitempty"`
}

// Validate returns an error if Logger configuration is not valid.
func (l Logger) Validate() error {
	if len(l.LogEncoding) > 0 && l.LogEncoding != "console" && l.LogEncoding != "json" {
		return fmt.Errorf("invalid LogEncoding: %s", l.LogEncoding)
	}
	if len(l.LogLevel) > 0 {
		if _, err := zapcore.ParseLevel(l.LogLevel); err != nil {
			return fmt.Errorf("log setting: %w", err)
		}
	}
	return nil
}

// Build constructs a *zap.Logger from l, defaulting to info/console the way
// Default() does. LogPath, when set, additionally writes to that file path
// on top of stderr.
func (l Logger) Build() (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if len(l.LogLevel) > 0 {
		parsed, err := zapcore.ParseLevel(l.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("log setting: %w", err)
		}
		level = parsed
	}
	encoding := "console"
	if len(l.LogEncoding) > 0 {
		encoding = l.LogEncoding
	}

	cc := zap.NewProductionConfig()
	cc.DisableStacktrace = true
	cc.Encoding = encoding
	cc.Level = zap.NewAtomicLevelAt(level)
	cc.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	cc.EncoderConfig.EncodeDuration = zapcore.StringDurationEncoder
	if l.LogTimestamp != nil && !*l.LogTimestamp {
		cc.EncoderConfig.EncodeTime = func(_ time.Time, _ zapcore.PrimitiveArrayEncoder) {}
	} else {
		cc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	if l.LogPath != "" {
		cc.OutputPaths = append(cc.OutputPaths, l.LogPath)
		cc.ErrorOutputPaths = append(cc.ErrorOutputPaths, l.LogPath)
	}

	return cc.Build()
}
