// SPDX-License-Identifier: MIT
package transport

import (
	"errors"

	"bandfx/internal/result"
)

// Transport defines a generic interface for sending effect data or events.
// Implementations should be thread-safe.
type Transport interface {
	Send(data any) error
	Close() error
}

// BandFrame carries the 12 band intensities of one tick to effect
// consumers.
type BandFrame struct {
	Tick  int                       `json:"tick"`
	Bands [result.BandCount]float64 `json:"bands"`
	Level float64                   `json:"level"` // output peak of the last chunk
}

// Multi fans every payload out to a set of transports.
type Multi []Transport

// Send delivers data to every transport and joins their errors.
func (m Multi) Send(data any) error {
	var errs []error
	for _, t := range m {
		if err := t.Send(data); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every transport and joins their errors.
func (m Multi) Close() error {
	var errs []error
	for _, t := range m {
		if err := t.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var _ Transport = Multi(nil)
