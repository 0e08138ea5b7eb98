package logger

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Config struct {
	ServiceName string `yaml:"service_name" env:"LOGGER_SERVICE_NAME" env-default:"fastproxy" env-description:"Service name"`
	Level       string `yaml:"level" env:"LOGGER_LEVEL" env-default:"debug" env-description:"Enabled verbose logging"`
	Pretty      bool   `yaml:"pretty" env:"LOGGER_PRETTY" env-default:"false" env-description:"Enables human readable logging. Otherwise, uses json output"`
	Path        string `yaml:"path" env:"LOGGER_PATH" env-default:"logs" env-description:"Directory for rotated log files"`
}

func New(cfg Config) *zap.SugaredLogger {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.DebugLevel
	}

	atomicLevel := zap.NewAtomicLevelAt(level)

	fileWriter := getLogWriter(cfg.Path, cfg.ServiceName)
	fileCore := zapcore.NewCore(getEncoder(cfg.Pretty), fileWriter, atomicLevel)

	consoleWriter := zapcore.Lock(os.Stdout)
	consoleCore := zapcore.NewCore(getEncoder(cfg.Pretty), consoleWriter, atomicLevel)

	core := zapcore.NewTee(fileCore, consoleCore)

	logger := zap.New(core, zap.AddCaller()).Sugar()

	return logger
}

func getEncoder(pretty bool) zapcore.Encoder {
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
		EncodeLevel:    CustomLevelEncoder,
	}
	if pretty {
		return zapcore.NewConsoleEncoder(encoderConfig)
	}

	encoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder
	return zapcore.NewJSONEncoder(encoderConfig)
}

func getLogWriter(path, serviceName string) zapcore.WriteSyncer {
	if path == "" {
		path = "logs"
	}
	lumberJackLogger := &lumberjack.Logger{
		Filename:   filepath.Join(path, serviceName+".log"),
		MaxSize:    200, // MB
		MaxBackups: 30,
		MaxAge:     90, // days
		Compress:   true,
	}
	return zapcore.AddSync(lumberJackLogger)
}

func CustomLevelEncoder(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString("[" + getIcon(level) + level.CapitalString() + "]")
}

func getIcon(lvl zapcore.Level) string {
	switch lvl {
	case zapcore.InfoLevel:
		return "🔵 "
	case zapcore.DebugLevel:
		return "🟢 "
	case zapcore.WarnLevel:
		return "🟡️ "
	case zapcore.ErrorLevel:
		return "🔴 "
	case zapcore.FatalLevel, zapcore.PanicLevel:
		return "⚫ "
	default:
		return ""
	}
}
