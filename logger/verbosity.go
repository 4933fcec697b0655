package logger

import "go.uber.org/zap/zapcore"

// Verbosity level constants for CLI flag counts.
const (
	VerbosityUser  = 0 // No flags: warnings and errors only
	VerbosityInfo  = 1 // -v: + startup, peer connects, mutations
	VerbosityDebug = 2 // -vv: + frame routing, correlator lifecycle
)

// VerbosityToLevel maps verbosity flags (-v, -vv) to zap log levels
func VerbosityToLevel(verbosity int) zapcore.Level {
	switch verbosity {
	case VerbosityUser:
		return zapcore.WarnLevel
	case VerbosityInfo:
		return zapcore.InfoLevel
	default:
		return zapcore.DebugLevel
	}
}

// LevelName names a verbosity level for banners and status output
func LevelName(verbosity int) string {
	switch verbosity {
	case VerbosityUser:
		return "user (warnings only)"
	case VerbosityInfo:
		return "info"
	default:
		return "debug"
	}
}
