// Package logger defines the logging contract shared by every pairwatch
// component. Concrete backends live in the zerolog and logrus subpackages.
package logger

import (
	"fmt"
	"strings"
)

type Level int8

const (
	Disabled   Level = -1   // Disabled turns logging off.
	TraceLevel Level = iota // TraceLevel is used for request level tracing.
	DebugLevel              // DebugLevel is used for debugging information.
	InfoLevel               // InfoLevel is used for informational messages.
	WarnLevel               // WarnLevel is used for recoverable problems.
	ErrorLevel              // ErrorLevel is used for failures that were handled.
	FatalLevel              // FatalLevel logs and exits the program.
	PanicLevel              // PanicLevel logs and panics.
	NoLevel                 // NoLevel is used for no logging level.
)

var levelNames = map[Level]string{
	Disabled:   "disabled",
	TraceLevel: "trace",
	DebugLevel: "debug",
	InfoLevel:  "info",
	WarnLevel:  "warn",
	ErrorLevel: "error",
	FatalLevel: "fatal",
	PanicLevel: "panic",
	NoLevel:    "",
}

// String returns the lower case name of the level.
func (l Level) String() string {
	return levelNames[l]
}

// ParseLevel converts a level name such as "info" or "WARN" into a Level.
func ParseLevel(name string) (Level, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "warning" {
		name = "warn"
	}

	for level, levelName := range levelNames {
		if level != NoLevel && levelName == name {
			return level, nil
		}
	}

	return NoLevel, fmt.Errorf("unknown log level: %q", name)
}

// Fields is a set of structured key/value pairs attached to a log entry.
type Fields = map[string]any

type Logger interface {
	// Returns a logger derived from the receiver and decorated with the given context.
	WithField(key string, value any) Logger // WithField returns a logger with the given key-value pair.
	WithFields(fields Fields) Logger        // WithFields returns a logger with the given fields.
	WithError(err error) Logger             // WithError returns a logger with the given error.

	Print(args ...any) // Print logs the message with the default level.
	Trace(args ...any) // Trace logs the message with the trace level.
	Debug(args ...any) // Debug logs the message with the debug level.
	Info(args ...any)  // Info logs the message with the info level.
	Warn(args ...any)  // Warn logs the message with the warning level.
	Error(args ...any) // Error logs the message with the error level.
	Fatal(args ...any) // Fatal logs the message and then exits the program.
	Panic(args ...any) // Panic logs the message and then panics.

	Printf(format string, args ...any)
	Tracef(format string, args ...any)
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Fatalf(format string, args ...any)
	Panicf(format string, args ...any)

	SetLevel(level Level) // SetLevel sets the minimum level written by the logger.
	GetLevel() Level      // GetLevel returns the minimum level written by the logger.
}
