package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"bandfx/internal/decode"
	"bandfx/internal/sink"
	"bandfx/pkg/utils"
)

// writeTrack renders a one second stereo sine to a WAV file.
func writeTrack(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tone.wav")
	buf := utils.SineBuffer(1, 44100, 2, 1000, 0.5)
	s, err := sink.OpenWAV(path)(buf.Format)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Write(buf.Data); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestAnalyzeJSON(t *testing.T) {
	out, err := run(t, "analyze", "--json", writeTrack(t))
	if err != nil {
		t.Fatal(err)
	}
	var res jsonResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}
	if res.TickRate != 20 || res.DurationTicks != 20 || len(res.Bands) != 12 {
		t.Errorf("unexpected result header: rate %d, ticks %d, bands %d", res.TickRate, res.DurationTicks, len(res.Bands))
	}
	for _, b := range res.Bands {
		if len(b.Ticks) != res.DurationTicks {
			t.Errorf("band %s has %d ticks", b.Name, len(b.Ticks))
		}
	}
	if res.Bands[11].HighHz != 0 {
		t.Error("the top band has no upper edge")
	}
}

func TestAnalyzeSummary(t *testing.T) {
	out, err := run(t, "analyze", writeTrack(t))
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"tone.wav: 20 ticks", "upper mid", "800-1200 Hz", "> 12000 Hz"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary is missing %q:\n%s", want, out)
		}
	}
}

func TestProfile(t *testing.T) {
	out, err := run(t, "profile", writeTrack(t))
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"tag:", "peak:          0.500", "gain:          1.80"} {
		if !strings.Contains(out, want) {
			t.Errorf("profile is missing %q:\n%s", want, out)
		}
	}
}

func TestPlayRendersToWAV(t *testing.T) {
	track := writeTrack(t)
	rendered := filepath.Join(t.TempDir(), "out.wav")

	if _, err := run(t, "play", "--sink", "wav", "-o", rendered, track); err != nil {
		t.Fatal(err)
	}

	buf, err := decode.DefaultRegistry().DecodeFile(rendered)
	if err != nil {
		t.Fatal(err)
	}
	if buf.Frames() != 44100 || buf.Channels != 2 {
		t.Errorf("rendered %d frames, %d channels", buf.Frames(), buf.Channels)
	}
}

func TestPlaySeekAndDiscard(t *testing.T) {
	track := writeTrack(t)
	if _, err := run(t, "play", "--sink", "discard", "--seek", "500ms", track, track); err != nil {
		t.Fatal(err)
	}
}

func TestMissingTrack(t *testing.T) {
	_, err := run(t, "analyze", filepath.Join(t.TempDir(), "missing.flac"))
	if !errors.Is(err, decode.ErrDecode) || !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected a decode error for a missing file, got %v", err)
	}
}

func TestInvalidSinkFlag(t *testing.T) {
	if _, err := run(t, "play", "--sink", "alsa", writeTrack(t)); err == nil {
		t.Error("expected an error for an unknown sink")
	}
}

func TestTrackIDChangesWithContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.wav")
	if err := os.WriteFile(path, []byte("one"), 0o644); err != nil {
		t.Fatal(err)
	}
	first, err := trackID(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("three"), 0o644); err != nil {
		t.Fatal(err)
	}
	second, err := trackID(path)
	if err != nil {
		t.Fatal(err)
	}
	if first == second {
		t.Error("track identity must change when the file changes")
	}
}
