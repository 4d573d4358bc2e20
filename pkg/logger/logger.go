package logger

import (
	"os"

	"go-botlens/pkg/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Log 全局日志对象，Init 之前为空操作日志
var Log = zap.NewNop().Sugar()

func Init(cfg config.Log) error {
	writeSyncer := zapcore.AddSync(&lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    100,
		MaxBackups: 3,
		MaxAge:     7,
		Compress:   true,
	})
	if cfg.Stdout {
		writeSyncer = zapcore.NewMultiWriteSyncer(writeSyncer, zapcore.AddSync(os.Stdout))
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		writeSyncer,
		zap.NewAtomicLevelAt(getLogLevel(cfg.Level)),
	)

	Log = zap.New(core, zap.AddCaller()).Sugar()
	return nil
}

// Set 替换全局日志对象，测试中用于挂载 observer
func Set(l *zap.SugaredLogger) {
	Log = l
}

// Sync 退出前刷新缓冲
func Sync() {
	_ = Log.Sync()
}

func getLogLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
