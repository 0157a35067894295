// SPDX-License-Identifier: MIT
package sink

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"bandfx/internal/pcm"

	"github.com/ebitengine/oto/v3"
)

const otoDrainTimeout = 5 * time.Second

// oto allows one context per process, so its format is fixed by the
// first stream that opens it.
var (
	otoCtx     *oto.Context
	otoFormat  pcm.Format
	otoOnce    sync.Once
	otoInitErr error
)

func initOto(format pcm.Format) (*oto.Context, error) {
	otoOnce.Do(func() {
		op := &oto.NewContextOptions{
			SampleRate:   format.SampleRate,
			ChannelCount: format.Channels,
			Format:       oto.FormatSignedInt16LE,
		}
		var ready chan struct{}
		otoCtx, ready, otoInitErr = oto.NewContext(op)
		if otoInitErr == nil {
			<-ready
			otoFormat = format
		}
	})
	if otoInitErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrDevice, otoInitErr)
	}
	if err := sameFormat(otoFormat, format); err != nil {
		return nil, err
	}
	return otoCtx, nil
}

func sameFormat(have, want pcm.Format) error {
	if have != want {
		return fmt.Errorf("%w: output runs at %d Hz/%d ch, stream needs %d Hz/%d ch",
			ErrUnsupportedFormat, have.SampleRate, have.Channels, want.SampleRate, want.Channels)
	}
	return nil
}

// OtoSink feeds an oto player through a pipe, so Write blocks until the
// player has consumed the chunk.
type OtoSink struct {
	pw     *io.PipeWriter
	player *oto.Player
	once   sync.Once
}

// OpenOto is an Opener backed by ebitengine/oto.
func OpenOto(format pcm.Format) (Sink, error) {
	if err := checkFormat(format); err != nil {
		return nil, err
	}
	ctx, err := initOto(format)
	if err != nil {
		return nil, err
	}

	pr, pw := io.Pipe()
	player := ctx.NewPlayer(pr)
	player.Play()
	return &OtoSink{pw: pw, player: player}, nil
}

func (s *OtoSink) Write(chunk []byte) error {
	if _, err := s.pw.Write(chunk); err != nil {
		if errors.Is(err, io.ErrClosedPipe) {
			return ErrClosed
		}
		return fmt.Errorf("%w: %v", ErrDevice, err)
	}
	return nil
}

func (s *OtoSink) closeWriter() {
	s.once.Do(func() { s.pw.Close() })
}

// Drain ends the input and waits until the player has played out.
func (s *OtoSink) Drain() error {
	s.closeWriter()
	deadline := time.Now().Add(otoDrainTimeout)
	for s.player.IsPlaying() {
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: drain timed out", ErrDevice)
		}
		time.Sleep(10 * time.Millisecond)
	}
	return s.player.Err()
}

// Close ends the input and stops the player; the player itself is
// released with its reader.
func (s *OtoSink) Close() error {
	s.closeWriter()
	s.player.Pause()
	return nil
}

var _ Sink = (*OtoSink)(nil)
