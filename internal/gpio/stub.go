//go:build !linux

package gpio

import (
	"errors"

	"github.com/sweeney/laser-interlock/internal/logic"
)

// RealLines is not available on non-Linux platforms.
type RealLines struct{}

// NewRealLines returns an error on non-Linux platforms.
func NewRealLines(cfg Config) (*RealLines, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// Read is not implemented on non-Linux platforms.
func (r *RealLines) Read() (logic.Snapshot, error) {
	return logic.Snapshot{}, errors.New("gpio: not supported")
}

// Write is not implemented on non-Linux platforms.
func (r *RealLines) Write(a logic.Assertion) error {
	return errors.New("gpio: not supported")
}

// Err always returns nil on non-Linux platforms.
func (r *RealLines) Err() error {
	return nil
}

// Interlocks returns no interlocks on non-Linux platforms.
func (r *RealLines) Interlocks() logic.Interlocks {
	return nil
}

// Close is not implemented on non-Linux platforms.
func (r *RealLines) Close() error {
	return nil
}
