// Package zerolog adapts github.com/rs/zerolog to logger.Logger.
package zerolog

import (
	"fmt"

	"github.com/raykavin/pairwatch/pkg/logger"
	"github.com/rs/zerolog"
)

type ZerologAdapter struct {
	*zerolog.Logger
}

func NewAdapter(logger *zerolog.Logger) *ZerologAdapter {
	return &ZerologAdapter{logger}
}

// Nop returns a logger that discards everything
func Nop() *ZerologAdapter {
	nop := zerolog.Nop()
	return &ZerologAdapter{&nop}
}

// GetLevel implements logger.Logger.
func (z *ZerologAdapter) GetLevel() logger.Level {
	return toLevel(z.Logger.GetLevel())
}

// SetLevel implements logger.Logger.
func (z *ZerologAdapter) SetLevel(level logger.Level) {
	leveled := z.Logger.Level(toZerologLevel(level))
	z.Logger = &leveled
}

func (z *ZerologAdapter) Print(args ...any) { z.Logger.Print(args...) }
func (z *ZerologAdapter) Trace(args ...any) { z.Logger.Trace().Msg(fmt.Sprint(args...)) }
func (z *ZerologAdapter) Debug(args ...any) { z.Logger.Debug().Msg(fmt.Sprint(args...)) }
func (z *ZerologAdapter) Info(args ...any)  { z.Logger.Info().Msg(fmt.Sprint(args...)) }
func (z *ZerologAdapter) Warn(args ...any)  { z.Logger.Warn().Msg(fmt.Sprint(args...)) }
func (z *ZerologAdapter) Error(args ...any) { z.Logger.Error().Msg(fmt.Sprint(args...)) }
func (z *ZerologAdapter) Fatal(args ...any) { z.Logger.Fatal().Msg(fmt.Sprint(args...)) }
func (z *ZerologAdapter) Panic(args ...any) { z.Logger.Panic().Msg(fmt.Sprint(args...)) }

func (z *ZerologAdapter) Printf(format string, args ...any) { z.Logger.Printf(format, args...) }
func (z *ZerologAdapter) Tracef(format string, args ...any) { z.Logger.Trace().Msgf(format, args...) }
func (z *ZerologAdapter) Debugf(format string, args ...any) { z.Logger.Debug().Msgf(format, args...) }
func (z *ZerologAdapter) Infof(format string, args ...any)  { z.Logger.Info().Msgf(format, args...) }
func (z *ZerologAdapter) Warnf(format string, args ...any)  { z.Logger.Warn().Msgf(format, args...) }
func (z *ZerologAdapter) Errorf(format string, args ...any) { z.Logger.Error().Msgf(format, args...) }
func (z *ZerologAdapter) Fatalf(format string, args ...any) { z.Logger.Fatal().Msgf(format, args...) }
func (z *ZerologAdapter) Panicf(format string, args ...any) { z.Logger.Panic().Msgf(format, args...) }

// WithError implements logger.Logger.
func (z *ZerologAdapter) WithError(err error) logger.Logger {
	child := z.With().Err(err).Logger()
	return &ZerologAdapter{&child}
}

// WithField implements logger.Logger.
func (z *ZerologAdapter) WithField(key string, value any) logger.Logger {
	child := z.With().Interface(key, value).Logger()
	return &ZerologAdapter{&child}
}

// WithFields implements logger.Logger.
func (z *ZerologAdapter) WithFields(fields logger.Fields) logger.Logger {
	child := z.With().Fields(fields).Logger()
	return &ZerologAdapter{&child}
}

var levels = map[zerolog.Level]logger.Level{
	zerolog.Disabled:   logger.Disabled,
	zerolog.NoLevel:    logger.NoLevel,
	zerolog.TraceLevel: logger.TraceLevel,
	zerolog.DebugLevel: logger.DebugLevel,
	zerolog.InfoLevel:  logger.InfoLevel,
	zerolog.WarnLevel:  logger.WarnLevel,
	zerolog.ErrorLevel: logger.ErrorLevel,
	zerolog.FatalLevel: logger.FatalLevel,
	zerolog.PanicLevel: logger.PanicLevel,
}

func toLevel(level zerolog.Level) logger.Level {
	if l, ok := levels[level]; ok {
		return l
	}
	return logger.NoLevel
}

func toZerologLevel(level logger.Level) zerolog.Level {
	for zl, l := range levels {
		if l == level {
			return zl
		}
	}
	return zerolog.NoLevel
}
