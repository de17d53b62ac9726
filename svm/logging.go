package svm

import (
	"os"

	"github.com/rs/zerolog"
)

// NewLogger builds the component logger used across the module. The
// level comes from GOSVM_LOGLEVEL; solver progress is logged at debug
// so library consumers stay quiet by default.
func NewLogger(component string) zerolog.Logger {
	level := zerolog.WarnLevel
	switch os.Getenv("GOSVM_LOGLEVEL") {
	case "DEBUG":
		level = zerolog.DebugLevel
	case "INFO":
		level = zerolog.InfoLevel
	case "ERROR":
		level = zerolog.ErrorLevel
	}
	return zerolog.New(os.Stderr).
		With().
		Str("component", component).
		Timestamp().
		Logger().
		Level(level)
}

var logger = NewLogger("svm")
