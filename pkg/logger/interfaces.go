//go:generate mockgen -destination=mock_logger.go -package=logger github.com/brewlink/relay/pkg/logger Logger

package logger

import (
	"io"

	"github.com/rs/zerolog"
)

// Logger is the narrow logging surface relay and proxy components
// depend on, so tests can inject a discard logger instead of reaching
// for the global one.
type Logger interface {
	Debug() *zerolog.Event
	Info() *zerolog.Event
	Warn() *zerolog.Event
	Error() *zerolog.Event
	With() zerolog.Context
	WithComponent(component string) zerolog.Logger
}

type wrapped struct {
	z zerolog.Logger
}

// New wraps an existing zerolog.Logger as a Logger.
func New(z zerolog.Logger) Logger {
	return &wrapped{z: z}
}

func (w *wrapped) Debug() *zerolog.Event { return w.z.Debug() }
func (w *wrapped) Info() *zerolog.Event  { return w.z.Info() }
func (w *wrapped) Warn() *zerolog.Event  { return w.z.Warn() }
func (w *wrapped) Error() *zerolog.Event { return w.z.Error() }
func (w *wrapped) With() zerolog.Context { return w.z.With() }
func (w *wrapped) WithComponent(component string) zerolog.Logger {
	return w.z.With().Str("component", component).Logger()
}

// NewTestLogger creates a no-op logger for testing that discards all output.
func NewTestLogger() Logger {
	return &wrapped{z: zerolog.New(io.Discard).Level(zerolog.Disabled)}
}
