// Package log provides a thin key-value logging facade for the service,
// backed by zap. Call Init once during startup; the package-level helpers
// can be used from any package afterwards.
package log

import (
	"os"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log levels accepted by Init.
const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

var (
	logger atomic.Pointer[zap.SugaredLogger]
	level  atomic.Value // string
)

func init() {
	// A usable default so tests and tools can log before Init is called.
	Init(LogLevelInfo, "stdout")
}

// Init configures the global logger with the given level and output
// ("stdout", "stderr" or a file path).
func Init(logLevel, output string) {
	zapLevel := zapcore.InfoLevel
	switch logLevel {
	case LogLevelDebug:
		zapLevel = zapcore.DebugLevel
	case LogLevelInfo:
		zapLevel = zapcore.InfoLevel
	case LogLevelWarn:
		zapLevel = zapcore.WarnLevel
	case LogLevelError:
		zapLevel = zapcore.ErrorLevel
	}

	var sink zapcore.WriteSyncer
	switch output {
	case "stdout", "":
		sink = zapcore.AddSync(os.Stdout)
	case "stderr":
		sink = zapcore.AddSync(os.Stderr)
	default:
		f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			sink = zapcore.AddSync(os.Stderr)
		} else {
			sink = zapcore.AddSync(f)
		}
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), sink, zapLevel)
	logger.Store(zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)).Sugar())
	level.Store(logLevel)
}

// Level returns the level the logger was initialized with.
func Level() string {
	l, _ := level.Load().(string)
	return l
}

func l() *zap.SugaredLogger { return logger.Load() }

func Debug(args ...any)                 { l().Debug(args...) }
func Debugf(format string, args ...any) { l().Debugf(format, args...) }
func Debugw(msg string, kv ...any)      { l().Debugw(msg, kv...) }
func Info(args ...any)                  { l().Info(args...) }
func Infof(format string, args ...any)  { l().Infof(format, args...) }
func Infow(msg string, kv ...any)       { l().Infow(msg, kv...) }
func Warn(args ...any)                  { l().Warn(args...) }
func Warnf(format string, args ...any)  { l().Warnf(format, args...) }
func Warnw(msg string, kv ...any)       { l().Warnw(msg, kv...) }
func Error(args ...any)                 { l().Error(args...) }
func Errorf(format string, args ...any) { l().Errorf(format, args...) }
func Errorw(err error, msg string)      { l().Errorw(msg, "error", err) }
func Fatal(args ...any)                 { l().Fatal(args...) }
func Fatalf(format string, args ...any) { l().Fatalf(format, args...) }
