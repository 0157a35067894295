// SPDX-License-Identifier: MIT
package sink

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"bandfx/internal/pcm"

	"github.com/go-audio/wav"
	"github.com/gordonklaus/portaudio"
)

var stereo = pcm.Format{SampleRate: 44100, Channels: 2, BitDepth: 16}

func TestByName(t *testing.T) {
	tests := []struct {
		cfg     Config
		wantErr bool
	}{
		{Config{Name: "discard"}, false},
		{Config{Name: "oto"}, false},
		{Config{Name: "PortAudio"}, false},
		{Config{Name: "wav", WAVPath: "out.wav"}, false},
		{Config{Name: "wav"}, true},
		{Config{Name: "alsa"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.cfg.Name, func(t *testing.T) {
			open, err := ByName(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ByName(%+v) error = %v, wantErr %v", tt.cfg, err, tt.wantErr)
			}
			if !tt.wantErr && open == nil {
				t.Error("expected an opener")
			}
		})
	}
}

func TestSinksRejectWideSamples(t *testing.T) {
	wide := pcm.Format{SampleRate: 44100, Channels: 2, BitDepth: 24}
	openers := map[string]Opener{
		"discard": Discard,
		"memory":  NewMemory().Opener(),
		"wav":     OpenWAV(filepath.Join(t.TempDir(), "x.wav")),
	}
	for name, open := range openers {
		if _, err := open(wide); !errors.Is(err, ErrUnsupportedFormat) {
			t.Errorf("%s: expected ErrUnsupportedFormat, got %v", name, err)
		}
	}
}

func TestMemorySink(t *testing.T) {
	m := NewMemory()
	s, err := m.Opener()(stereo)
	if err != nil {
		t.Fatal(err)
	}
	s.Write([]byte{1, 2, 3, 4})
	s.Write([]byte{5, 6, 7, 8})
	if err := s.Drain(); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	if !bytes.Equal(m.Bytes(), []byte{1, 2, 3, 4, 5, 6, 7, 8}) || m.Writes() != 2 {
		t.Errorf("unexpected contents %v after %d writes", m.Bytes(), m.Writes())
	}
	if !m.Drained() || !m.Closed() || m.Format() != stereo {
		t.Error("memory sink lost its lifecycle state")
	}
	if err := s.Write([]byte{0, 0}); !errors.Is(err, ErrClosed) {
		t.Errorf("write after close: expected ErrClosed, got %v", err)
	}
}

func TestWAVSinkRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")
	s, err := OpenWAV(path)(stereo)
	if err != nil {
		t.Fatal(err)
	}

	samples, err := pcm.FromInt16(44100, 2, []int16{0, 1, -1, 32767, -32768, 1234})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Write(samples.Data); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		t.Fatal(err)
	}
	if dec.SampleRate != 44100 || dec.NumChans != 2 || dec.BitDepth != 16 {
		t.Errorf("header %d Hz %d ch %d bit", dec.SampleRate, dec.NumChans, dec.BitDepth)
	}
	want := []int{0, 1, -1, 32767, -32768, 1234}
	if fmt.Sprint(buf.Data) != fmt.Sprint(want) {
		t.Errorf("decoded %v, want %v", buf.Data, want)
	}
}

func TestSameFormat(t *testing.T) {
	if err := sameFormat(stereo, stereo); err != nil {
		t.Errorf("identical formats rejected: %v", err)
	}
	mono := pcm.Format{SampleRate: 48000, Channels: 1, BitDepth: 16}
	if err := sameFormat(stereo, mono); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func setupPortAudio(t *testing.T) {
	t.Helper()
	if err := Initialize(); err != nil {
		t.Skipf("PortAudio unavailable: %v", err)
	}
	t.Cleanup(func() {
		if err := Terminate(); err != nil {
			t.Errorf("Failed to terminate PortAudio: %v", err)
		}
	})
}

func TestHostDevices(t *testing.T) {
	setupPortAudio(t)

	devices, err := HostDevices()
	if err != nil {
		t.Fatalf("HostDevices error: %v", err)
	}
	if len(devices) == 0 {
		t.Skip("No audio devices found on system")
	}
	for i, d := range devices {
		if d.ID != i {
			t.Errorf("Device ID mismatch: got %d, want %d", d.ID, i)
		}
		if d.Name == "" {
			t.Errorf("Device %d has empty name", i)
		}
	}
}

func TestHostDevices_paDevicesError(t *testing.T) {
	orig := paDevicesFunc
	defer func() { paDevicesFunc = orig }()
	paDevicesFunc = func() ([]*portaudio.DeviceInfo, error) {
		return nil, fmt.Errorf("mock error")
	}

	if _, err := HostDevices(); err == nil || !strings.Contains(err.Error(), "mock error") {
		t.Errorf("expected mock error, got %v", err)
	}
	if _, err := OutputDevice(3); err == nil || !strings.Contains(err.Error(), "mock error") {
		t.Errorf("expected mock error from OutputDevice, got %v", err)
	}
}

func TestOutputDeviceValidation(t *testing.T) {
	orig := paDevicesFunc
	defer func() { paDevicesFunc = orig }()
	paDevicesFunc = func() ([]*portaudio.DeviceInfo, error) {
		return []*portaudio.DeviceInfo{
			{Name: "mic", MaxInputChannels: 1},
			{Name: "speakers", MaxOutputChannels: 2, DefaultSampleRate: 48000},
		}, nil
	}

	if _, err := OutputDevice(5); err == nil {
		t.Error("expected error for out of range device")
	}
	if _, err := OutputDevice(0); err == nil {
		t.Error("expected error for input-only device")
	}
	d, err := OutputDevice(1)
	if err != nil || d.Name != "speakers" {
		t.Errorf("OutputDevice(1) = %v, %v", d, err)
	}

	var out bytes.Buffer
	if err := ListDevices(&out); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(out.String(), "mic") || !strings.Contains(out.String(), "[1] speakers") {
		t.Errorf("unexpected listing:\n%s", out.String())
	}
}
