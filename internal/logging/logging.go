// Package logging builds the component loggers used across the service.
package logging

import (
	"io"
	"strings"
	"sync"

	"github.com/labstack/gommon/log"
)

const header = "${time_rfc3339} ${level} [${prefix}]"

var (
	mu     sync.Mutex
	level  = log.INFO
	output io.Writer
)

// ParseLevel maps a config string to a gommon level. Unknown values map to INFO.
func ParseLevel(s string) log.Lvl {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return log.DEBUG
	case "warn", "warning":
		return log.WARN
	case "error":
		return log.ERROR
	case "off", "none":
		return log.OFF
	default:
		return log.INFO
	}
}

// SetLevel sets the level for loggers created afterwards.
func SetLevel(s string) {
	mu.Lock()
	defer mu.Unlock()
	level = ParseLevel(s)
}

// SetOutput redirects loggers created afterwards. A nil writer restores stdout.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

// New returns a logger tagged with the component name.
func New(component string) *log.Logger {
	mu.Lock()
	defer mu.Unlock()

	l := log.New(component)
	l.SetHeader(header)
	l.SetLevel(level)
	if output != nil {
		l.SetOutput(output)
	}
	return l
}

// Nop returns a logger that discards everything.
func Nop() *log.Logger {
	l := log.New("nop")
	l.SetOutput(io.Discard)
	l.SetLevel(log.OFF)
	return l
}
