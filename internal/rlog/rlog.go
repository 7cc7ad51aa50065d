// Package rlog provides the leveled logging facade used across ringcp.
//
// It mirrors the call shape of rclone's fs.Debugf/Infof/Logf/Errorf: every
// call site takes an "object" describing what the message is about (a path,
// an Fs, or nil) followed by a printf-style format string.
package rlog

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Level controls which calls actually produce output.
type Level int

const (
	// Quiet suppresses everything except Errorf.
	Quiet Level = iota
	// Normal is the default: Logf and Errorf are shown.
	Normal
	// Verbose additionally shows Warnf and fall-back notices.
	Verbose
	// Debug shows everything including Debugf.
	Debug
)

var (
	std      = logrus.New()
	minLevel = Normal
)

func init() {
	std.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
}

// SetLevel sets the minimum level that will be emitted.
func SetLevel(l Level) {
	minLevel = l
}

func describe(o any) string {
	if o == nil {
		return ""
	}
	if s, ok := o.(string); ok {
		return s
	}
	if str, ok := o.(fmt.Stringer); ok {
		return str.String()
	}
	return fmt.Sprintf("%v", o)
}

func emit(entry *logrus.Entry, o any, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if d := describe(o); d != "" {
		msg = d + ": " + msg
	}
	entry.Info(msg)
}

// Debugf logs a debug-level trace, shown only at Debug level.
func Debugf(o any, format string, args ...any) {
	if minLevel < Debug {
		return
	}
	emit(std.WithField("level", "DEBUG"), o, format, args...)
}

// Logf logs a normal per-file event (Discovered, Completed), shown unless Quiet.
func Logf(o any, format string, args ...any) {
	if minLevel < Normal {
		return
	}
	emit(std.WithField("level", "INFO"), o, format, args...)
}

// Warnf logs a non-fatal classified warning (fall-back, PermissionDrop),
// shown only at Verbose or above.
func Warnf(o any, format string, args ...any) {
	if minLevel < Verbose {
		return
	}
	emit(std.WithField("level", "WARN"), o, format, args...)
}

// Errorf logs a fatal or per-file error; always shown, even in Quiet mode.
func Errorf(o any, format string, args ...any) {
	emit(std.WithField("level", "ERROR"), o, format, args...)
}
