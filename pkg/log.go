package pkg

import (
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/charmbracelet/log"
)

// Component identifies a subsystem for log filtering.
type Component string

// Component identifiers.
const (
	ComponentHandle    Component = "handle"
	ComponentEngine    Component = "engine"
	ComponentTransport Component = "transport"
	ComponentDir       Component = "dir"
	ComponentImage     Component = "image"
	ComponentTransfer  Component = "transfer"
)

// LogFormat specifies the output format for logging.
type LogFormat int

// Log format options.
const (
	LogFormatText   LogFormat = iota // Text format (default)
	LogFormatJSON                    // JSON format
	LogFormatLogfmt                  // logfmt key=value format
)

var (
	// DefaultLogger is the default logger used by the nspire stack.
	DefaultLogger *slog.Logger

	// logLevel controls the minimum log level of loggers created by this package.
	logLevel = new(slog.LevelVar)

	// defaultHandler backs DefaultLogger until SetLogger replaces it.
	defaultHandler *log.Logger

	// logMutex protects logger configuration.
	logMutex sync.RWMutex
)

func init() {
	logLevel.Set(slog.LevelWarn)
	defaultHandler = newHandler(os.Stderr, log.TextFormatter, logLevel.Level(), false)
	DefaultLogger = slog.New(defaultHandler)
}

// newHandler creates a charmbracelet logger usable as an slog.Handler.
// charmbracelet levels share slog's numeric values.
func newHandler(w io.Writer, f log.Formatter, level slog.Level, caller bool) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		Level:        log.Level(level),
		Formatter:    f,
		ReportCaller: caller,
	})
}

// SetLogLevel sets the minimum log level for all nspire stack logging.
func SetLogLevel(level slog.Level) {
	logMutex.Lock()
	defer logMutex.Unlock()
	logLevel.Set(level)
	if defaultHandler != nil {
		defaultHandler.SetLevel(log.Level(level))
	}
}

// GetLogLevel returns the current minimum log level.
func GetLogLevel() slog.Level {
	logMutex.RLock()
	defer logMutex.RUnlock()
	return logLevel.Level()
}

// SetLogger replaces the default logger with a custom logger.
func SetLogger(logger *slog.Logger) {
	logMutex.Lock()
	defer logMutex.Unlock()
	DefaultLogger = logger
	defaultHandler = nil
}

// SetLogFormat configures the default logger to use the specified format.
// The logger writes to os.Stderr and uses the current log level.
func SetLogFormat(format LogFormat) {
	logMutex.Lock()
	defer logMutex.Unlock()
	defaultHandler = newHandler(os.Stderr, formatter(format), logLevel.Level(), false)
	DefaultLogger = slog.New(defaultHandler)
}

func formatter(format LogFormat) log.Formatter {
	switch format {
	case LogFormatJSON:
		return log.JSONFormatter
	case LogFormatLogfmt:
		return log.LogfmtFormatter
	default:
		return log.TextFormatter
	}
}

func handlerLevel(opts *slog.HandlerOptions) slog.Level {
	if opts == nil || opts.Level == nil {
		return logLevel.Level()
	}
	return opts.Level.Level()
}

// NewLogger creates a new text logger writing to the given writer.
// A nil opts uses the current package log level.
func NewLogger(w io.Writer, opts *slog.HandlerOptions) *slog.Logger {
	return slog.New(newHandler(w, log.TextFormatter, handlerLevel(opts), opts != nil && opts.AddSource))
}

// NewJSONLogger creates a new JSON logger writing to the given writer.
func NewJSONLogger(w io.Writer, opts *slog.HandlerOptions) *slog.Logger {
	return slog.New(newHandler(w, log.JSONFormatter, handlerLevel(opts), opts != nil && opts.AddSource))
}

// NewLogfmtLogger creates a new logfmt logger writing to the given writer.
func NewLogfmtLogger(w io.Writer, opts *slog.HandlerOptions) *slog.Logger {
	return slog.New(newHandler(w, log.LogfmtFormatter, handlerLevel(opts), opts != nil && opts.AddSource))
}

// Logger returns the current default logger.
func Logger() *slog.Logger {
	logMutex.RLock()
	defer logMutex.RUnlock()
	return DefaultLogger
}

// LogDebug logs a debug message with the given component.
func LogDebug(component Component, msg string, args ...any) {
	Logger().Debug(msg, append([]any{"component", string(component)}, args...)...)
}

// LogInfo logs an info message with the given component.
func LogInfo(component Component, msg string, args ...any) {
	Logger().Info(msg, append([]any{"component", string(component)}, args...)...)
}

// LogWarn logs a warning message with the given component.
func LogWarn(component Component, msg string, args ...any) {
	Logger().Warn(msg, append([]any{"component", string(component)}, args...)...)
}

// LogError logs an error message with the given component.
func LogError(component Component, msg string, args ...any) {
	Logger().Error(msg, append([]any{"component", string(component)}, args...)...)
}
