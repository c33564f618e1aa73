package logger

// Logger exposes logging methods for common severity levels.
type Logger interface {
	Debugf(format string, args ...any)
	// Debugw logs a message with structured fields.
	Debugw(msg string, fields map[string]any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// FieldLogger derives loggers carrying extra fields, e.g. a cluster ID.
type FieldLogger interface {
	Logger
	With(fields map[string]any) Logger
}

// With returns l enriched with fields when supported, l otherwise.
func With(l Logger, fields map[string]any) Logger {
	if fl, ok := l.(FieldLogger); ok {
		return fl.With(fields)
	}
	return l
}
