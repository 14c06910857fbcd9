package logger

type Level int8

const (
	Disabled   Level = -1   // Disabled turns logging off.
	TraceLevel Level = iota // TraceLevel logs index movements.
	DebugLevel              // DebugLevel logs rebalances and hook decisions.
	InfoLevel               // InfoLevel logs placements, fills and claims.
	WarnLevel               // WarnLevel logs recoverable failures such as storage writes.
	ErrorLevel              // ErrorLevel logs failed operations.
	NoLevel                 // NoLevel is used for no logging level.
)

// Logger is the logging surface used across the module.
type Logger interface {
	WithField(key string, value any) Logger
	WithFields(fields map[string]any) Logger
	WithError(err error) Logger

	Trace(args ...any)
	Debug(args ...any)
	Info(args ...any)
	Warn(args ...any)
	Error(args ...any)

	Tracef(format string, args ...any)
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)

	SetLevel(level Level)
	GetLevel() Level
}
