// Package logger builds the zap logger used as the diagnostic side channel.
package logger

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type LoggerConfig struct {
	IsDebug bool
	// IsJSON switches from console to JSON encoding.
	IsJSON        bool
	InitialFields []zap.Field

	// Cores are tee'd next to the stderr core.
	Cores []zapcore.Core
}

func NewLogger(loggerConfig LoggerConfig) (*zap.Logger, error) {
	var level zap.AtomicLevel
	if loggerConfig.IsDebug {
		level = zap.NewAtomicLevelAt(zap.DebugLevel)
	} else {
		level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	encoding := "console"
	if loggerConfig.IsJSON {
		encoding = "json"
	}

	config := zap.Config{
		Level:             level,
		Development:       loggerConfig.IsDebug,
		DisableStacktrace: !loggerConfig.IsDebug,
		DisableCaller:     !loggerConfig.IsDebug,
		Sampling:          nil,
		Encoding:          encoding,
		EncoderConfig:     GetEncoderConfig(zapcore.DefaultLineEnding),
		OutputPaths: []string{
			"stderr",
		},
		ErrorOutputPaths: []string{
			"stderr",
		},
	}

	cores := append([]zapcore.Core(nil), loggerConfig.Cores...)

	logger, err := config.Build(
		zap.WrapCore(func(c zapcore.Core) zapcore.Core {
			return zapcore.NewTee(append(cores, c)...)
		}),
		zap.Fields(zap.Int("pid", os.Getpid())),
		zap.Fields(loggerConfig.InitialFields...),
	)
	if err != nil {
		return nil, fmt.Errorf("error building logger: %w", err)
	}

	return logger, nil
}

func GetEncoderConfig(lineEnding string) zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:       "timestamp",
		MessageKey:    "message",
		LevelKey:      "level",
		EncodeLevel:   zapcore.LowercaseLevelEncoder,
		NameKey:       "logger",
		CallerKey:     "caller",
		EncodeCaller:  zapcore.ShortCallerEncoder,
		StacktraceKey: "stacktrace",
		EncodeTime:    zapcore.RFC3339TimeEncoder,
		LineEnding:    lineEnding,
	}
}
