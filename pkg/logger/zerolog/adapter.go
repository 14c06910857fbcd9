package zerolog

import (
	"fmt"

	"github.com/raykavin/trailstop/pkg/logger"
	"github.com/rs/zerolog"
)

// Adapter exposes a zerolog.Logger through logger.Logger.
type Adapter struct {
	zl *zerolog.Logger
}

// NewAdapter wraps an existing zerolog logger
func NewAdapter(zl *zerolog.Logger) *Adapter {
	return &Adapter{zl: zl}
}

// Nop returns an adapter that discards everything, handy in tests.
func Nop() *Adapter {
	zl := zerolog.Nop()
	return &Adapter{zl: &zl}
}

// Zerolog returns the underlying logger.
func (a *Adapter) Zerolog() *zerolog.Logger { return a.zl }

func (a *Adapter) WithField(key string, value any) logger.Logger {
	zl := a.zl.With().Interface(key, fmt.Sprint(value)).Logger()
	return &Adapter{zl: &zl}
}

func (a *Adapter) WithFields(fields map[string]any) logger.Logger {
	zl := a.zl.With().Fields(fields).Logger()
	return &Adapter{zl: &zl}
}

func (a *Adapter) WithError(err error) logger.Logger {
	zl := a.zl.With().Err(err).Logger()
	return &Adapter{zl: &zl}
}

func (a *Adapter) Trace(args ...any) { a.zl.Trace().Msg(fmt.Sprint(args...)) }
func (a *Adapter) Debug(args ...any) { a.zl.Debug().Msg(fmt.Sprint(args...)) }
func (a *Adapter) Info(args ...any)  { a.zl.Info().Msg(fmt.Sprint(args...)) }
func (a *Adapter) Warn(args ...any)  { a.zl.Warn().Msg(fmt.Sprint(args...)) }
func (a *Adapter) Error(args ...any) { a.zl.Error().Msg(fmt.Sprint(args...)) }

func (a *Adapter) Tracef(format string, args ...any) { a.zl.Trace().Msgf(format, args...) }
func (a *Adapter) Debugf(format string, args ...any) { a.zl.Debug().Msgf(format, args...) }
func (a *Adapter) Infof(format string, args ...any)  { a.zl.Info().Msgf(format, args...) }
func (a *Adapter) Warnf(format string, args ...any)  { a.zl.Warn().Msgf(format, args...) }
func (a *Adapter) Errorf(format string, args ...any) { a.zl.Error().Msgf(format, args...) }

// SetLevel changes the global zerolog level.
func (a *Adapter) SetLevel(level logger.Level) {
	zerolog.SetGlobalLevel(toZerologLevel(level))
}

func (a *Adapter) GetLevel() logger.Level {
	return toLevel(a.zl.GetLevel())
}

var levels = map[logger.Level]zerolog.Level{
	logger.Disabled:   zerolog.Disabled,
	logger.NoLevel:    zerolog.NoLevel,
	logger.TraceLevel: zerolog.TraceLevel,
	logger.DebugLevel: zerolog.DebugLevel,
	logger.InfoLevel:  zerolog.InfoLevel,
	logger.WarnLevel:  zerolog.WarnLevel,
	logger.ErrorLevel: zerolog.ErrorLevel,
}

func toZerologLevel(level logger.Level) zerolog.Level {
	if zl, ok := levels[level]; ok {
		return zl
	}
	return zerolog.NoLevel
}

func toLevel(level zerolog.Level) logger.Level {
	for l, zl := range levels {
		if zl == level {
			return l
		}
	}
	return logger.NoLevel
}
