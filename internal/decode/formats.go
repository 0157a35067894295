// SPDX-License-Identifier: MIT
package decode

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"bandfx/internal/pcm"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
	"github.com/mewkiz/flac"
)

// toInt16 rescales a signed integer sample of the given bit depth to 16
// bits.
func toInt16(sample, bitDepth int) int16 {
	switch {
	case bitDepth > 16:
		sample >>= bitDepth - 16
	case bitDepth < 16:
		sample <<= 16 - bitDepth
	}
	return int16(max(math.MinInt16, min(math.MaxInt16, sample)))
}

// floatToInt16 converts a float sample in [-1, 1] to 16 bits.
func floatToInt16(s float32) int16 {
	v := math.Round(float64(s) * 32767)
	return int16(max(-32768, min(32767, v)))
}

func decodeWAV(r io.ReadSeeker) (*pcm.Buffer, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%w: invalid WAV file", ErrDecode)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("%w: reading WAV PCM data: %w", ErrDecode, err)
	}
	channels := int(dec.NumChans)
	if err := checkChannels(channels); err != nil {
		return nil, err
	}

	bitDepth := int(dec.BitDepth)
	data := make([]byte, len(buf.Data)*2)
	for i, s := range buf.Data {
		// 8-bit WAV is unsigned.
		if bitDepth == 8 {
			s -= 128
		}
		binary.LittleEndian.PutUint16(data[i*2:], uint16(toInt16(s, bitDepth)))
	}
	return pcm.New(pcm.Format{SampleRate: int(dec.SampleRate), Channels: channels, BitDepth: 16}, trimFrames(data, channels))
}

func decodeMP3(r io.ReadSeeker) (*pcm.Buffer, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	// go-mp3 always produces 16-bit stereo.
	data, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return pcm.New(pcm.Format{SampleRate: dec.SampleRate(), Channels: 2, BitDepth: 16}, trimFrames(data, 2))
}

func decodeOGG(r io.ReadSeeker) (*pcm.Buffer, error) {
	dec, err := oggvorbis.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	channels := dec.Channels()
	if err := checkChannels(channels); err != nil {
		return nil, err
	}

	var data []byte
	samples := make([]float32, 4096*channels)
	for {
		n, err := dec.Read(samples)
		for _, s := range samples[:n] {
			data = binary.LittleEndian.AppendUint16(data, uint16(floatToInt16(s)))
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDecode, err)
		}
		if n == 0 {
			break
		}
	}
	return pcm.New(pcm.Format{SampleRate: dec.SampleRate(), Channels: channels, BitDepth: 16}, trimFrames(data, channels))
}

func decodeFLAC(r io.ReadSeeker) (*pcm.Buffer, error) {
	stream, err := flac.New(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	defer stream.Close()

	channels := int(stream.Info.NChannels)
	if err := checkChannels(channels); err != nil {
		return nil, err
	}
	bps := int(stream.Info.BitsPerSample)

	data := make([]byte, 0, int(stream.Info.NSamples)*channels*2)
	for {
		frame, err := stream.ParseNext()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDecode, err)
		}
		for i := range int(frame.Subframes[0].NSamples) {
			for ch := range channels {
				s := toInt16(int(frame.Subframes[ch].Samples[i]), bps)
				data = binary.LittleEndian.AppendUint16(data, uint16(s))
			}
		}
	}
	return pcm.New(pcm.Format{SampleRate: int(stream.Info.SampleRate), Channels: channels, BitDepth: 16}, data)
}

// trimFrames drops a trailing partial frame.
func trimFrames(data []byte, channels int) []byte {
	frame := channels * 2
	return data[:len(data)-len(data)%frame]
}
