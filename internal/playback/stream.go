// SPDX-License-Identifier: MIT
/*
Package playback drives one decoded track through the DSP chain into an
output sink.

Thread Safety:
  - One goroutine per stream owns the dsp.Session and the sink
  - Settings are read through an atomic snapshot once per chunk
  - Control calls (Pause, Resume, Seek, Stop) are safe from any goroutine
*/
package playback

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"bandfx/internal/dsp"
	applog "bandfx/internal/log"
	"bandfx/internal/pcm"
	"bandfx/internal/quality"
	"bandfx/internal/result"
	"bandfx/internal/sink"
	"bandfx/internal/transport"
)

var logger = applog.For("playback")

const (
	DefaultChunkFrames = 1024
	DefaultStopTimeout = 250 * time.Millisecond
)

var (
	ErrStopTimeout = errors.New("playback: stream did not stop in time")
	ErrStarted     = errors.New("playback: stream already started")
)

// State is the lifecycle position of a Stream.
type State int32

const (
	Idle State = iota
	Running
	Paused
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Paused:
		return "paused"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Options configure a Stream. Zero fields take their defaults.
type Options struct {
	ChunkFrames int
	Loop        bool
	Seek        time.Duration // initial position
	StopTimeout time.Duration
	DSP         dsp.Options
	Profile     *quality.Profile    // nil disables automatic adjustment
	Transport   transport.Transport // receives a BandFrame per tick, optional
}

// DefaultOptions returns options with the standard DSP chain.
func DefaultOptions() Options {
	return Options{
		ChunkFrames: DefaultChunkFrames,
		StopTimeout: DefaultStopTimeout,
		DSP:         dsp.DefaultOptions(),
	}
}

// Stream plays one pcm.Buffer.
type Stream struct {
	buf      *pcm.Buffer
	open     sink.Opener
	settings *dsp.Settings
	opts     Options

	state    atomic.Int32
	volume   atomic.Uint64 // float64 bits
	seek     atomic.Int64  // pending byte offset, -1 when none
	position atomic.Int64  // byte offset of the next chunk
	freq     atomic.Pointer[result.Frequency]

	mu     sync.Mutex
	cancel context.CancelFunc
	resume chan struct{} // non-nil while paused
	done   chan struct{}
	err    error
}

// NewStream prepares a stream of buf into the sink opened by open. A nil
// settings store plays with dsp.DefaultParams.
func NewStream(buf *pcm.Buffer, open sink.Opener, settings *dsp.Settings, opts Options) (*Stream, error) {
	if buf == nil || buf.Frames() == 0 {
		return nil, fmt.Errorf("%w: empty buffer", pcm.ErrInvalidFormat)
	}
	if err := buf.Validate(); err != nil {
		return nil, err
	}
	if open == nil {
		return nil, fmt.Errorf("%w: no sink", sink.ErrDevice)
	}
	if settings == nil {
		settings = dsp.NewSettings(dsp.DefaultParams())
	}
	if opts.ChunkFrames <= 0 {
		opts.ChunkFrames = DefaultChunkFrames
	}
	if opts.StopTimeout <= 0 {
		opts.StopTimeout = DefaultStopTimeout
	}
	if opts.DSP.EQQ <= 0 {
		opts.DSP.EQQ = dsp.DefaultEQQ
	}

	s := &Stream{
		buf:      buf,
		open:     open,
		settings: settings,
		opts:     opts,
		done:     make(chan struct{}),
	}
	s.volume.Store(math.Float64bits(1))
	s.seek.Store(-1)
	s.position.Store(int64(buf.SeekOffset(opts.Seek)))
	return s, nil
}

// Start opens the sink and begins playback. A sink failure ends this
// stream only.
func (s *Stream) Start(ctx context.Context) error {
	// cancel is set before Running is visible so Stop never sees a
	// running stream it cannot cancel.
	s.mu.Lock()
	if State(s.state.Load()) != Idle {
		s.mu.Unlock()
		return ErrStarted
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.state.Store(int32(Running))
	s.mu.Unlock()

	session, err := dsp.NewSession(s.buf.Format, s.opts.Profile, s.opts.DSP)
	if err != nil {
		cancel()
		s.finish(err)
		return err
	}
	out, err := s.open(s.buf.Format)
	if err != nil {
		if !errors.Is(err, sink.ErrDevice) && !errors.Is(err, sink.ErrUnsupportedFormat) {
			err = fmt.Errorf("%w: %w", sink.ErrDevice, err)
		}
		cancel()
		s.finish(err)
		return err
	}

	logger.Debugf("starting %v, %d frames per chunk", s.buf.Duration(), s.opts.ChunkFrames)
	go s.run(ctx, out, session)
	return nil
}

func (s *Stream) finish(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
	s.state.Store(int32(Stopped))
	close(s.done)
}

func (s *Stream) run(ctx context.Context, out sink.Sink, session *dsp.Session) {
	err := s.play(ctx, out, session)
	if cerr := out.Close(); cerr != nil {
		logger.Warnf("closing sink: %v", cerr)
	}
	if err != nil {
		logger.Errorf("stream ended: %v", err)
	}
	s.finish(err)
}

func (s *Stream) play(ctx context.Context, out sink.Sink, session *dsp.Session) error {
	data := s.buf.Data
	bpf := s.buf.BytesPerFrame()
	scratch := make([]byte, s.opts.ChunkFrames*bpf)
	pos := int(s.position.Load())
	lastTick := -1

	for {
		if err := s.waitIfPaused(ctx); err != nil {
			return nil
		}
		if off := s.seek.Swap(-1); off >= 0 {
			pos = int(off)
			lastTick = -1
		}
		if pos >= len(data) {
			if !s.opts.Loop {
				s.position.Store(int64(pos))
				return out.Drain()
			}
			pos = 0
			lastTick = -1
		}

		chunk := scratch[:copy(scratch, data[pos:])]
		session.Process(chunk, s.settings.Snapshot(), s.Volume())
		if err := out.Write(chunk); err != nil {
			return fmt.Errorf("%w: %w", sink.ErrDevice, err)
		}

		// A chunk can span several ticks; each one is published once.
		first := pos / bpf * result.TickRate / s.buf.SampleRate
		last := ((pos+len(chunk))/bpf - 1) * result.TickRate / s.buf.SampleRate
		for tick := max(first, lastTick+1); tick <= last; tick++ {
			s.publish(tick, chunk)
		}
		lastTick = max(lastTick, last)

		pos += len(chunk)
		s.position.Store(int64(pos))

		select {
		case <-ctx.Done():
			return nil
		default:
		}
	}
}

func (s *Stream) waitIfPaused(ctx context.Context) error {
	s.mu.Lock()
	resume := s.resume
	s.mu.Unlock()
	if resume == nil {
		return nil
	}
	select {
	case <-resume:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Stream) publish(tick int, chunk []byte) {
	t := s.opts.Transport
	freq := s.freq.Load()
	if t == nil || freq == nil || freq.Loading {
		return
	}
	frame := transport.BandFrame{Tick: tick, Level: dsp.PeakLevel(chunk)}
	freq.Snapshot(tick, &frame.Bands)
	if err := t.Send(frame); err != nil {
		logger.Debugf("publishing tick %d: %v", tick, err)
	}
}

// SetFrequency installs the band analysis that drives effect
// publication. It may arrive after playback started.
func (s *Stream) SetFrequency(f *result.Frequency) {
	s.freq.Store(f)
}

// SetVolume sets the per-stream volume multiplier.
func (s *Stream) SetVolume(v float64) {
	s.volume.Store(math.Float64bits(max(0, v)))
}

// Volume returns the per-stream volume multiplier.
func (s *Stream) Volume() float64 {
	return math.Float64frombits(s.volume.Load())
}

// Seek moves playback to pos, clamped to the track, from the next chunk.
func (s *Stream) Seek(pos time.Duration) {
	off := int64(s.buf.SeekOffset(pos))
	s.seek.Store(off)
	if s.State() == Idle {
		s.position.Store(off)
	}
}

// Position returns the playing position of the next chunk.
func (s *Stream) Position() time.Duration {
	frames := s.position.Load() / int64(s.buf.BytesPerFrame())
	return time.Duration(frames) * time.Second / time.Duration(s.buf.SampleRate)
}

// State returns the current lifecycle state.
func (s *Stream) State() State {
	return State(s.state.Load())
}

// Pause holds playback at the next chunk boundary. The sink stays open.
func (s *Stream) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.CompareAndSwap(int32(Running), int32(Paused)) {
		s.resume = make(chan struct{})
	}
}

// Resume continues a paused stream.
func (s *Stream) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.CompareAndSwap(int32(Paused), int32(Running)) {
		close(s.resume)
		s.resume = nil
	}
}

// Stop ends playback and waits for the sink to be released. It returns
// ErrStopTimeout when the stream goroutine does not finish within the
// configured timeout; the goroutine still exits once its sink write
// returns.
func (s *Stream) Stop() error {
	s.mu.Lock()
	cancel := s.cancel
	if cancel == nil {
		if s.state.CompareAndSwap(int32(Idle), int32(Stopped)) {
			close(s.done)
		}
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()
	cancel()

	select {
	case <-s.done:
		return nil
	case <-time.After(s.opts.StopTimeout):
		logger.Warnf("stream still busy after %v", s.opts.StopTimeout)
		return ErrStopTimeout
	}
}

// Done is closed once the stream has stopped and released its sink.
func (s *Stream) Done() <-chan struct{} {
	return s.done
}

// Err returns the error that ended the stream, if any.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}
