// SPDX-License-Identifier: MIT
package analysis

import (
	"context"
	"errors"
	"fmt"
	"time"

	applog "bandfx/internal/log"
	"bandfx/internal/pcm"
	"bandfx/internal/result"

	"golang.org/x/sync/errgroup"
)

var logger = applog.For("analysis")

var (
	ErrUnsupportedBitDepth = errors.New("analysis: only 16-bit PCM is supported")
	ErrNoData              = errors.New("analysis: track too short to analyze")
)

// Config controls the spectral geometry of a Pipeline.
type Config struct {
	WindowSize int
	HopSize    int
	Window     WindowFunc
	Parallel   bool // run the per-band onset stage concurrently
}

// DefaultConfig returns the standard 2048/110 Hann analysis.
func DefaultConfig() Config {
	return Config{
		WindowSize: DefaultWindowSize,
		HopSize:    DefaultHopSize,
		Window:     Hann,
		Parallel:   true,
	}
}

// Pipeline turns a decoded track into a normalized per-band onset
// result. It holds no per-track state and may be shared.
type Pipeline struct {
	cfg Config
	now func() time.Time
}

// NewPipeline validates cfg and returns a Pipeline.
func NewPipeline(cfg Config) (*Pipeline, error) {
	// Validate geometry once so per-track failures are only about input.
	if _, err := NewSpectralAnalyzer(cfg.WindowSize, cfg.HopSize, cfg.Window, 44100); err != nil {
		return nil, err
	}
	return &Pipeline{cfg: cfg, now: time.Now}, nil
}

// Analyze runs spectral analysis, tick aggregation, onset detection and
// normalization over buf. The output depends only on buf and the
// configuration.
func (p *Pipeline) Analyze(ctx context.Context, buf *pcm.Buffer) (*result.Frequency, error) {
	start := p.now()
	if err := buf.Validate(); err != nil {
		return nil, err
	}
	if buf.BitDepth != 16 {
		return nil, fmt.Errorf("%w: got %d bits", ErrUnsupportedBitDepth, buf.BitDepth)
	}

	sampleRate := float64(buf.SampleRate)
	analyzer, err := NewSpectralAnalyzer(p.cfg.WindowSize, p.cfg.HopSize, p.cfg.Window, sampleRate)
	if err != nil {
		return nil, err
	}

	mono := buf.Mono()
	frames, err := analyzer.Analyze(ctx, mono)
	if err != nil {
		return nil, err
	}
	if len(frames) == 0 {
		return nil, fmt.Errorf("%w: %d frames, window is %d", ErrNoData, len(mono), p.cfg.WindowSize)
	}

	energy := Aggregate(frames, sampleRate, p.cfg.HopSize)
	ticks := len(energy[0])
	if err := CheckDuration(ticks, buf.Frames(), sampleRate); err != nil {
		logger.Warnf("%v", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	bands, err := p.onsets(ctx, energy)
	if err != nil {
		return nil, err
	}

	res, err := result.New(bands, start)
	if err != nil {
		return nil, err
	}
	logger.Debugf("analyzed %d frames into %d ticks in %v", len(frames), ticks, p.now().Sub(start))
	return res, nil
}

// onsets detects and normalizes every band. Each band writes only its
// own slot, so the parallel and sequential paths produce identical
// output.
func (p *Pipeline) onsets(ctx context.Context, energy Series) ([BandCount][]float64, error) {
	var out [BandCount][]float64
	band := func(ctx context.Context, b int) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		series := DetectOnsets(energy[b])
		Normalize(series)
		out[b] = series
		return nil
	}

	if !p.cfg.Parallel {
		for b := range BandCount {
			if err := band(ctx, b); err != nil {
				return out, err
			}
		}
		return out, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for b := range BandCount {
		g.Go(func() error { return band(gctx, b) })
	}
	return out, g.Wait()
}
