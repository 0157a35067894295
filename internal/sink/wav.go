// SPDX-License-Identifier: MIT
package sink

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"

	"bandfx/internal/pcm"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WAVSink renders a stream to a 16-bit PCM WAV file.
type WAVSink struct {
	outputFile *os.File
	wavEncoder *wav.Encoder
	sampleBuf  *audio.IntBuffer // reused for format conversion
}

// OpenWAV returns an Opener that creates path.
func OpenWAV(path string) Opener {
	return func(format pcm.Format) (Sink, error) {
		if err := checkFormat(format); err != nil {
			return nil, err
		}
		file, err := os.Create(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDevice, err)
		}
		logger.Infof("rendering to %s", path)

		return &WAVSink{
			outputFile: file,
			wavEncoder: wav.NewEncoder(file, format.SampleRate, 16, format.Channels, 1),
			sampleBuf: &audio.IntBuffer{
				Format: &audio.Format{
					NumChannels: format.Channels,
					SampleRate:  format.SampleRate,
				},
				SourceBitDepth: 16,
			},
		}, nil
	}
}

func (s *WAVSink) Write(chunk []byte) error {
	if s.wavEncoder == nil {
		return ErrClosed
	}
	n := len(chunk) / 2
	if cap(s.sampleBuf.Data) < n {
		s.sampleBuf.Data = make([]int, n)
	}
	s.sampleBuf.Data = s.sampleBuf.Data[:n]
	for i := range n {
		s.sampleBuf.Data[i] = int(int16(binary.LittleEndian.Uint16(chunk[i*2:])))
	}
	if err := s.wavEncoder.Write(s.sampleBuf); err != nil {
		return fmt.Errorf("%w: %v", ErrDevice, err)
	}
	return nil
}

// Drain is a no-op; the file is complete once closed.
func (s *WAVSink) Drain() error { return nil }

// Close finalizes the WAV header and closes the file.
func (s *WAVSink) Close() error {
	if s.wavEncoder == nil {
		return nil
	}
	err := s.wavEncoder.Close()
	s.wavEncoder = nil
	return errors.Join(err, s.outputFile.Close())
}

var _ Sink = (*WAVSink)(nil)
