package logging

import (
	"testing"

	"github.com/rs/zerolog"
)

// NewTesting returns a logger that writes through the test log.
func NewTesting(t *testing.T) zerolog.Logger {
	return zerolog.New(zerolog.NewTestWriter(t)).
		Level(zerolog.DebugLevel).
		With().
		Timestamp().
		Logger()
}
