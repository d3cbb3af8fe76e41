package logger

// Info logs a printf-style boot/info message
func Info(format string, args ...interface{}) {
	zlog.Info().Msgf(format, args...)
}

// Warn logs a printf-style warning
func Warn(format string, args ...interface{}) {
	zlog.Warn().Msgf(format, args...)
}

// Error logs a printf-style error
func Error(format string, args ...interface{}) {
	zlog.Error().Msgf(format, args...)
}
