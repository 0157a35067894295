// SPDX-License-Identifier: MIT
package result

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// BandCount is the number of fixed analysis bands.
const BandCount = 12

// TickRate is the number of result ticks per second.
const TickRate = 20

// ErrInvalid is returned for results that fail validation.
var ErrInvalid = errors.New("result: invalid frequency result")

const (
	validationTicks   = 100
	validationEpsilon = 1e-6
)

// Frequency is the normalized per-tick onset intensity of all bands for
// one track. A Frequency is either loading (no data, zero duration) or
// fully populated; it is replaced wholesale on re-analysis and never
// mutated once published.
type Frequency struct {
	Bands         [BandCount][]float64
	DurationTicks int
	Loading       bool
	StartTime     time.Time
}

// NewLoading returns the placeholder published while analysis runs.
func NewLoading(start time.Time) *Frequency {
	return &Frequency{Loading: true, StartTime: start}
}

// New builds a populated result. Every band must have the same length,
// which becomes the duration in ticks.
func New(bands [BandCount][]float64, start time.Time) (*Frequency, error) {
	ticks := len(bands[0])
	for i, b := range bands {
		if len(b) != ticks {
			return nil, fmt.Errorf("%w: band %d has %d ticks, band 0 has %d", ErrInvalid, i, len(b), ticks)
		}
	}
	return &Frequency{Bands: bands, DurationTicks: ticks, StartTime: start}, nil
}

// Intensity returns band's value at tick, or 0 when either is out of
// range or the result is still loading.
func (f *Frequency) Intensity(band, tick int) float64 {
	if f == nil || band < 0 || band >= BandCount {
		return 0
	}
	series := f.Bands[band]
	if tick < 0 || tick >= len(series) {
		return 0
	}
	return series[tick]
}

// TickAt converts an offset from the start of the track into a tick.
func TickAt(offset time.Duration) int {
	if offset < 0 {
		return -1
	}
	return int(offset.Seconds() * TickRate)
}

// Snapshot copies the 12 band values at tick into dst.
func (f *Frequency) Snapshot(tick int, dst *[BandCount]float64) {
	for b := range BandCount {
		dst[b] = f.Intensity(b, tick)
	}
}

// Duration returns the covered playing time.
func (f *Frequency) Duration() time.Duration {
	if f == nil {
		return 0
	}
	return time.Duration(f.DurationTicks) * time.Second / TickRate
}

// Validate decides whether a result can be trusted: it needs a positive
// duration, at least one populated band, and some non-trivial content in
// its first ticks.
func (f *Frequency) Validate() error {
	if f == nil {
		return fmt.Errorf("%w: nil", ErrInvalid)
	}
	if f.Loading {
		return fmt.Errorf("%w: still loading", ErrInvalid)
	}
	if f.DurationTicks <= 0 {
		return fmt.Errorf("%w: duration %d ticks", ErrInvalid, f.DurationTicks)
	}

	populated := false
	var sum float64
	for _, series := range f.Bands {
		if len(series) == 0 {
			continue
		}
		populated = true
		for _, v := range series[:min(validationTicks, len(series))] {
			sum += math.Abs(v)
		}
	}
	if !populated {
		return fmt.Errorf("%w: no populated bands", ErrInvalid)
	}
	if !(sum > validationEpsilon) {
		return fmt.Errorf("%w: trivial content (sum %.3g)", ErrInvalid, sum)
	}
	return nil
}
