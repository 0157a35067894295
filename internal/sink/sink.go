// SPDX-License-Identifier: MIT
/*
Package sink provides the output devices a playback stream writes its
processed 16-bit PCM to.

A Sink accepts interleaved little-endian chunks in the format it was
opened with. Write may block while the device drains its buffer, which is
the backpressure that paces a stream. Drain waits for queued audio to
finish; Close releases the device.
*/
package sink

import (
	"errors"
	"fmt"
	"strings"

	applog "bandfx/internal/log"
	"bandfx/internal/pcm"
)

var logger = applog.For("sink")

var (
	ErrDevice            = errors.New("sink: device failure")
	ErrUnsupportedFormat = errors.New("sink: unsupported format")
	ErrClosed            = errors.New("sink: closed")
)

// Sink is an opened output.
type Sink interface {
	Write(chunk []byte) error
	Drain() error
	Close() error
}

// Opener opens a Sink for a PCM format.
type Opener func(format pcm.Format) (Sink, error)

// Config selects and parameterizes a sink by name.
type Config struct {
	Name            string // portaudio, oto, wav or discard
	Device          int    // portaudio device index, MinDeviceID for default
	LowLatency      bool
	FramesPerBuffer int
	WAVPath         string
}

// ByName returns the Opener described by cfg.
func ByName(cfg Config) (Opener, error) {
	switch strings.ToLower(cfg.Name) {
	case "", "portaudio":
		return OpenPortAudio(cfg.Device, cfg.LowLatency, cfg.FramesPerBuffer), nil
	case "oto":
		return OpenOto, nil
	case "wav":
		if cfg.WAVPath == "" {
			return nil, fmt.Errorf("sink: wav sink needs an output path")
		}
		return OpenWAV(cfg.WAVPath), nil
	case "discard":
		return Discard, nil
	default:
		return nil, fmt.Errorf("sink: unknown sink %q", cfg.Name)
	}
}

func checkFormat(f pcm.Format) error {
	if err := f.Validate(); err != nil {
		return err
	}
	if f.BitDepth != 16 {
		return fmt.Errorf("%w: %d-bit", ErrUnsupportedFormat, f.BitDepth)
	}
	return nil
}
