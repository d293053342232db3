package common

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var Logger *zap.Logger

// InitLogger builds the process logger: console always, plus a rotated JSON
// file when cfg.LogFilePath is set. Safe to call more than once.
func InitLogger(cfg *Config) {
	if Logger != nil {
		return
	}
	isProd := cfg != nil && cfg.Environment == "production"

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "timestamp"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	jsonEnc := zapcore.NewJSONEncoder(encCfg)

	var consoleEnc zapcore.Encoder
	if isProd {
		consoleEnc = jsonEnc
	} else {
		consoleEnc = zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	}
	cores := []zapcore.Core{
		zapcore.NewCore(consoleEnc, zapcore.Lock(os.Stderr), zap.InfoLevel),
	}
	if cfg != nil && cfg.LogFilePath != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.LogFilePath,
			MaxSize:    10, // megabytes
			MaxBackups: 5,
			MaxAge:     30, // days
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(jsonEnc, zapcore.AddSync(rotator), zap.InfoLevel))
	}
	Logger = zap.New(zapcore.NewTee(cores...))
}

// L returns the process logger, initializing a default one if InitLogger was
// never called (library use without CLI bootstrap).
func L() *zap.Logger {
	if Logger == nil {
		l, _ := zap.NewProduction()
		Logger = l
	}
	return Logger
}
