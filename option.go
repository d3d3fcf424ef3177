package arena

import (
	"github.com/benbjohnson/clock"
)

// Option configures an Engine during NewEngine before any component is built.
type Option func(*Engine)

// WithClock swaps the wall clock for a caller-supplied one. Tests use a mock
// clock to drive the match cycle deterministically.
func WithClock(c clock.Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithConfig replaces the environment-derived config wholesale.
func WithConfig(cfg Config) Option {
	return func(e *Engine) {
		e.config = cfg
	}
}
