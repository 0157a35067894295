// SPDX-License-Identifier: MIT
package sink

import (
	"encoding/binary"
	"errors"
	"fmt"

	"bandfx/internal/pcm"

	"github.com/gordonklaus/portaudio"
)

// DefaultFramesPerBuffer is used when no buffer size is configured.
const DefaultFramesPerBuffer = 1024

// PortAudioSink writes through a blocking PortAudio output stream.
type PortAudioSink struct {
	stream *portaudio.Stream
	buffer []int16 // handed to PortAudio at open; filled before each Write
	fill   int
	closed bool
}

// OpenPortAudio returns an Opener for deviceID (MinDeviceID for the
// system default).
func OpenPortAudio(deviceID int, lowLatency bool, framesPerBuffer int) Opener {
	if framesPerBuffer <= 0 {
		framesPerBuffer = DefaultFramesPerBuffer
	}
	return func(format pcm.Format) (Sink, error) {
		if err := checkFormat(format); err != nil {
			return nil, err
		}
		if err := Initialize(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDevice, err)
		}

		s, err := openPortAudio(format, deviceID, lowLatency, framesPerBuffer)
		if err != nil {
			Terminate()
			return nil, err
		}
		return s, nil
	}
}

func openPortAudio(format pcm.Format, deviceID int, lowLatency bool, framesPerBuffer int) (*PortAudioSink, error) {
	device, err := OutputDevice(deviceID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDevice, err)
	}
	if device.MaxOutputChannels < format.Channels {
		return nil, fmt.Errorf("%w: %s supports %d channels, need %d",
			ErrUnsupportedFormat, device.Name, device.MaxOutputChannels, format.Channels)
	}

	latency := device.DefaultHighOutputLatency
	if lowLatency {
		latency = device.DefaultLowOutputLatency
	}

	s := &PortAudioSink{buffer: make([]int16, framesPerBuffer*format.Channels)}
	params := portaudio.StreamParameters{
		Output: portaudio.StreamDeviceParameters{
			Device:   device,
			Channels: format.Channels,
			Latency:  latency,
		},
		SampleRate:      float64(format.SampleRate),
		FramesPerBuffer: framesPerBuffer,
	}

	stream, err := portaudio.OpenStream(params, s.buffer)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return nil, fmt.Errorf("%w: %v", ErrDevice, err)
	}
	s.stream = stream

	logger.Infof("opened %s (%d Hz, %d ch, latency %s)", device.Name, format.SampleRate, format.Channels, latency)
	return s, nil
}

func (s *PortAudioSink) Write(chunk []byte) error {
	if s.closed {
		return ErrClosed
	}
	for i := 0; i+1 < len(chunk); i += 2 {
		s.buffer[s.fill] = int16(binary.LittleEndian.Uint16(chunk[i:]))
		s.fill++
		if s.fill == len(s.buffer) {
			if err := s.flush(); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *PortAudioSink) flush() error {
	s.fill = 0
	err := s.stream.Write()
	if errors.Is(err, portaudio.OutputUnderflowed) {
		logger.Debugf("output underflow")
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDevice, err)
	}
	return nil
}

// Drain pads and writes any partial buffer, then waits for PortAudio to
// play everything queued.
func (s *PortAudioSink) Drain() error {
	if s.closed {
		return ErrClosed
	}
	if s.fill > 0 {
		clear(s.buffer[s.fill:])
		if err := s.flush(); err != nil {
			return err
		}
	}
	return s.stream.Stop()
}

// Close stops the stream and releases PortAudio.
func (s *PortAudioSink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	err := s.stream.Abort()
	if errors.Is(err, portaudio.StreamIsStopped) {
		err = nil
	}
	return errors.Join(err, s.stream.Close(), Terminate())
}

var _ Sink = (*PortAudioSink)(nil)
