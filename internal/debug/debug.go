// Package debug holds the logger shared by the rest of the module and
// the WAYLAND_DEBUG wire trace.
package debug

import (
	"io"
	"os"
	"strconv"

	"github.com/charmbracelet/log"
)

var (
	logger = log.NewWithOptions(os.Stderr, log.Options{
		Prefix:          "kyo",
		Level:           log.WarnLevel,
		ReportTimestamp: true,
	})

	trace bool
)

func init() {
	debugLevel, err := strconv.ParseInt(os.Getenv("WAYLAND_DEBUG"), 10, 0)
	if err != nil {
		return
	}
	trace = debugLevel > 0
}

// Log returns the module's logger.
func Log() *log.Logger {
	return logger
}

// SetLevel sets the minimum level that is logged. Valid levels are
// debug, info, warn, error and fatal.
func SetLevel(level string) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return err
	}
	logger.SetLevel(lvl)
	return nil
}

// SetOutput redirects all logging to w.
func SetOutput(w io.Writer) {
	logger.SetOutput(w)
}

// Tracing reports whether wire tracing is enabled.
func Tracing() bool {
	return trace
}

// Printf prints a wire trace line if $WAYLAND_DEBUG is set to a
// positive number. Trace lines are printed regardless of the log
// level.
func Printf(str string, args ...any) {
	if trace {
		logger.Printf(str, args...)
	}
}
