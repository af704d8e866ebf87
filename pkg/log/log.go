// Package log wraps klog with the verbosity levels used across the driver.
//
// Run the CLI with -v=2 to follow session state changes and -v=5 to see
// every APDU on the wire.
package log

import (
	"fmt"

	"k8s.io/klog/v2"
)

// enum defining logging levels.
const (
	Default klog.Level = iota + 1
	Useful
	Extended
	Debug
	Trace
)

// ErrorLog logs an error message.
func ErrorLog(message string, args ...interface{}) {
	klog.ErrorDepth(1, fmt.Sprintf(message, args...))
}

// WarningLog logs a warning message.
func WarningLog(message string, args ...interface{}) {
	klog.WarningDepth(1, fmt.Sprintf(message, args...))
}

// DefaultLog logs at klog level 1.
func DefaultLog(message string, args ...interface{}) {
	logAt(Default, message, args...)
}

// UsefulLog logs at klog level 2.
func UsefulLog(message string, args ...interface{}) {
	logAt(Useful, message, args...)
}

// ExtendedLog logs at klog level 3.
func ExtendedLog(message string, args ...interface{}) {
	logAt(Extended, message, args...)
}

// DebugLog logs at klog level 4.
func DebugLog(message string, args ...interface{}) {
	logAt(Debug, message, args...)
}

// TraceLog logs at klog level 5.
func TraceLog(message string, args ...interface{}) {
	logAt(Trace, message, args...)
}

func logAt(level klog.Level, message string, args ...interface{}) {
	// If logging is disabled, don't evaluate the arguments
	if klog.V(level).Enabled() {
		klog.InfoDepth(2, fmt.Sprintf(message, args...))
	}
}
