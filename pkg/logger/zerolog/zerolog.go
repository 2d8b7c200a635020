package zerolog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/goterm/term"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"
)

const (
	messageWidth  = 80
	callerWidth   = 18
	lineNoWidth   = 4
	callerSkipped = 3
)

// Options configures the console logger built by New.
type Options struct {
	Level      string
	TimeLayout string
	Colored    bool
	JSON       bool

	// Output defaults to os.Stdout.
	Output io.Writer
}

// New builds a zerolog logger writing to the console. With JSON set the
// raw zerolog JSON lines are written instead of the padded, colored layout.
func New(opts Options) (*zerolog.Logger, error) {
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack

	level, err := zerolog.ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}

	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	var logger zerolog.Logger
	if opts.JSON {
		logger = zerolog.New(out).With().Timestamp().Logger()
	} else {
		console := zerolog.ConsoleWriter{
			Out:             out,
			NoColor:         !opts.Colored,
			TimeFormat:      opts.TimeLayout,
			FormatLevel:     formatLevel,
			FormatMessage:   formatMessage,
			FormatCaller:    formatCaller,
			FormatTimestamp: func(i any) string { return formatTimestamp(i, opts.TimeLayout) },
		}

		logger = zerolog.New(console).
			With().
			Timestamp().
			CallerWithSkipFrameCount(callerSkipped).
			Logger()
	}

	logger = logger.Level(level)
	return &logger, nil
}

func formatLevel(i any) string {
	level, _ := i.(string)

	switch level {
	case zerolog.LevelTraceValue:
		return term.Cyanf("[TRC]")
	case zerolog.LevelDebugValue:
		return term.Cyanf("[DBG]")
	case zerolog.LevelInfoValue:
		return term.Greenf("[INF]")
	case zerolog.LevelWarnValue:
		return term.Yellowf("[WAR]")
	case zerolog.LevelErrorValue:
		return term.Redf("[ERR]")
	case zerolog.LevelFatalValue:
		return term.Redf("[FTL]")
	case zerolog.LevelPanicValue:
		return term.Redf("[PAN]")
	default:
		return term.Whitef("[UNK]")
	}
}

func formatMessage(i any) string {
	msg, ok := i.(string)
	if !ok || msg == "" {
		return ">"
	}

	// alerts are multi-line, keep the console on one line per entry
	msg = strings.ReplaceAll(msg, "\n", " | ")

	if len(msg) > messageWidth {
		msg = msg[:messageWidth]
	}

	return term.Whitef("> %-*s", messageWidth, msg)
}

func formatCaller(i any) string {
	name, ok := i.(string)
	if !ok || name == "" {
		return ""
	}

	file, line, found := strings.Cut(filepath.Base(name), ":")
	if !found {
		return file
	}

	if len(file) > callerWidth {
		file = file[:callerWidth]
	}

	if len(line) > lineNoWidth {
		line = line[len(line)-lineNoWidth:]
	}

	return term.Yellowf("[%s]", fmt.Sprintf("%-*s:%*s", callerWidth, file, lineNoWidth, line))
}

func formatTimestamp(i any, layout string) string {
	raw, ok := i.(string)
	if !ok {
		return term.Cyanf("[%v]", i)
	}

	if ts, err := time.ParseInLocation(time.RFC3339, raw, time.Local); err == nil {
		raw = ts.In(time.Local).Format(layout)
	}

	return term.Cyanf("[%s]", raw)
}
