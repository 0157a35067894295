// SPDX-License-Identifier: MIT
package analysis

import (
	"bandfx/pkg/bitint"
	"context"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
)

const (
	DefaultWindowSize = 2048
	DefaultHopSize    = 110

	// powerFloor keeps silent bands finite: 10*log10(1e-10) = -100 dB.
	powerFloor = 1e-10

	// ctxCheckInterval is how many frames are analyzed between
	// cancellation checks.
	ctxCheckInterval = 512
)

var ErrInvalidConfig = errors.New("analysis: invalid configuration")

// spectralWorkspace holds pre-allocated buffers so that computing a frame
// does not allocate.
type spectralWorkspace struct {
	input     []float64    // windowed input samples
	fftOutput []complex128 // FFT coefficients, N/2+1 values
}

// SpectralAnalyzer windows mono samples, runs a real FFT per window and
// folds the bins into the fixed bands. It is not safe for concurrent use;
// each analysis creates its own.
type SpectralAnalyzer struct {
	fftCalculator *fourier.FFT
	windowSize    int
	hopSize       int
	sampleRate    float64
	window        []float64
	binBand       []int // band index of bins 0..N/2-1
	workspace     spectralWorkspace
}

// NewSpectralAnalyzer validates the window geometry and precomputes the
// window coefficients and the bin to band mapping for sampleRate.
func NewSpectralAnalyzer(windowSize, hopSize int, windowType WindowFunc, sampleRate float64) (*SpectralAnalyzer, error) {
	if !bitint.IsPowerOfTwo(windowSize) {
		return nil, fmt.Errorf("%w: window size must be a power of 2, got %d", ErrInvalidConfig, windowSize)
	}
	if hopSize <= 0 {
		return nil, fmt.Errorf("%w: hop size must be positive, got %d", ErrInvalidConfig, hopSize)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("%w: sample rate must be positive, got %f", ErrInvalidConfig, sampleRate)
	}

	binCount := windowSize / 2
	binBand := make([]int, binCount)
	for k := range binBand {
		binBand[k] = BandForFrequency(float64(k) * sampleRate / float64(windowSize))
	}

	return &SpectralAnalyzer{
		fftCalculator: fourier.NewFFT(windowSize),
		windowSize:    windowSize,
		hopSize:       hopSize,
		sampleRate:    sampleRate,
		window:        windowCoefficients(windowSize, windowType),
		binBand:       binBand,
		workspace: spectralWorkspace{
			input:     make([]float64, windowSize),
			fftOutput: make([]complex128, windowSize/2+1),
		},
	}, nil
}

// FrameCount returns how many full windows fit in n samples.
func (a *SpectralAnalyzer) FrameCount(n int) int {
	if n < a.windowSize {
		return 0
	}
	return (n-a.windowSize)/a.hopSize + 1
}

// Frame analyzes the window starting at samples[0] into dst. samples must
// hold at least one full window.
func (a *SpectralAnalyzer) Frame(samples []float64, dst *Frame) {
	ws := &a.workspace
	for i, w := range a.window {
		ws.input[i] = samples[i] * w
	}

	a.fftCalculator.Coefficients(ws.fftOutput, ws.input)

	var power [BandCount]float64
	for k, band := range a.binBand {
		c := ws.fftOutput[k]
		re, im := real(c), imag(c)
		power[band] += re*re + im*im
	}

	for b, p := range power {
		dst[b] = 10 * math.Log10(p+powerFloor)
	}
}

// Analyze returns one Frame per hop over samples. Input shorter than one
// window yields no frames.
func (a *SpectralAnalyzer) Analyze(ctx context.Context, samples []float64) ([]Frame, error) {
	frames := make([]Frame, a.FrameCount(len(samples)))
	for f := range frames {
		if f%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		a.Frame(samples[f*a.hopSize:], &frames[f])
	}
	return frames, nil
}

// HopSize returns the sample advance between frames.
func (a *SpectralAnalyzer) HopSize() int { return a.hopSize }

// SampleRate returns the rate the bin mapping was built for.
func (a *SpectralAnalyzer) SampleRate() float64 { return a.sampleRate }

// FrequencyForBin returns the center frequency (Hz) of FFT bin k.
func (a *SpectralAnalyzer) FrequencyForBin(k int) float64 {
	if k < 0 || k > a.windowSize/2 {
		return 0
	}
	return float64(k) * a.sampleRate / float64(a.windowSize)
}
