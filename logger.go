package eventchannel

// Logger is the leveled logging surface the channel client writes to.
// Production callers will typically wrap zerolog via NewZerologLogger;
// anything satisfying this interface works.
type Logger interface {
	WithField(key string, value any) Logger
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}
