// Package monitoring reports run progress for long hit files.
package monitoring

import "log"

// Logf is the progress logger. It defaults to log.Printf; SetLogger may
// redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil mutes it.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}
