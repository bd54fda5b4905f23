// Package logging builds the process logger: a logr.Logger backed by zap.
//
// Status lines for the user go through provisioning.Observer on stdout. The
// logger carries debug detail (events, HTTP retries, container logs) and
// writes to stderr.
package logging

import (
	"io"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options configures New.
type Options struct {
	// Verbose enables V(1) records.
	Verbose bool
	// JSON selects the JSON encoder instead of the console encoder.
	JSON bool
}

// New returns a logger writing to w and a function that flushes it.
func New(w io.Writer, opts Options) (logr.Logger, func()) {
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if opts.Verbose {
		// zapr maps V(n) to zap level -n.
		level.SetLevel(zapcore.DebugLevel)
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.000")

	var encoder zapcore.Encoder
	if opts.JSON {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	} else {
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(w), level)
	zl := zap.New(core)
	return zapr.NewLogger(zl), func() { _ = zl.Sync() }
}
