package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"time"

	"bandfx/internal/analysis"
	"bandfx/internal/playback"
	"bandfx/internal/quality"
	"bandfx/internal/result"
	"bandfx/internal/sink"
	"bandfx/internal/transport"
	"bandfx/internal/tui"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

func newAnalyzeCommand(opts *options) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "analyze <file>",
		Short: "Compute the per-tick band onset intensities of a track",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			id, buf, err := a.load(args[0])
			if err != nil {
				return err
			}
			res, err := a.service.Load(cmd.Context(), id, buf).Wait(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			return writeSummary(cmd.OutOrStdout(), filepath.Base(args[0]), res)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full result as JSON")
	return cmd
}

type jsonBand struct {
	Name   string    `json:"name"`
	LowHz  float64   `json:"low_hz"`
	HighHz float64   `json:"high_hz,omitempty"`
	Ticks  []float64 `json:"ticks"`
}

type jsonResult struct {
	TickRate      int        `json:"tick_rate"`
	DurationTicks int        `json:"duration_ticks"`
	Bands         []jsonBand `json:"bands"`
}

func writeJSON(w io.Writer, res *result.Frequency) error {
	out := jsonResult{TickRate: result.TickRate, DurationTicks: res.DurationTicks}
	for _, b := range analysis.Bands {
		jb := jsonBand{Name: b.Name, LowHz: b.LowHz, Ticks: res.Bands[b.Index]}
		if b.Index < analysis.BandCount-1 {
			jb.HighHz = b.HighHz
		}
		out.Bands = append(out.Bands, jb)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func writeSummary(w io.Writer, name string, res *result.Frequency) error {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("band", "range", "mean", "onsets", "peak tick")

	for _, b := range analysis.Bands {
		series := res.Bands[b.Index]
		var sum float64
		var onsets, peak int
		for i, v := range series {
			sum += v
			if v >= 0.5 {
				onsets++
			}
			if v > series[peak] {
				peak = i
			}
		}
		mean := 0.0
		if len(series) > 0 {
			mean = sum / float64(len(series))
		}
		t.Row(b.Name, bandRange(b), fmt.Sprintf("%.3f", mean), strconv.Itoa(onsets), strconv.Itoa(peak))
	}

	_, err := fmt.Fprintf(w, "%s: %d ticks (%v)\n%s\n", name, res.DurationTicks, res.Duration(), t.Render())
	return err
}

func bandRange(b analysis.FrequencyBand) string {
	if b.Index == analysis.BandCount-1 {
		return fmt.Sprintf("> %.0f Hz", b.LowHz)
	}
	return fmt.Sprintf("%.0f-%.0f Hz", b.LowHz, b.HighHz)
}

func newProfileCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "profile <file>",
		Short: "Measure loudness and balance and print the recommended adjustments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			_, buf, err := a.load(args[0])
			if err != nil {
				return err
			}
			p, err := quality.Analyze(buf)
			if err != nil {
				return err
			}
			writeProfile(cmd.OutOrStdout(), p)
			return nil
		},
	}
}

func writeProfile(w io.Writer, p *quality.Profile) {
	fmt.Fprintf(w, "tag:           %s\n", p.Tag)
	fmt.Fprintf(w, "peak:          %.3f\n", p.Peak)
	fmt.Fprintf(w, "rms:           %.3f\n", p.RMS)
	fmt.Fprintf(w, "crest factor:  %.1f dB\n", p.CrestFactorDB)
	fmt.Fprintf(w, "dynamic range: %.1f dB\n", p.DynamicRangeDB)
	fmt.Fprintf(w, "clipping:      %.2f%% (clipped: %t)\n", p.ClippingRatio*100, p.HasClipping())
	fmt.Fprintf(w, "balance:       bass %.2f, mid %.2f, high %.2f\n", p.Balance.Bass, p.Balance.Mid, p.Balance.High)
	fmt.Fprintf(w, "low level:     %t\n", p.IsLowLevel())
	fmt.Fprintf(w, "gain:          %.2f\n", p.RecommendedGain)
	fmt.Fprintf(w, "eq (dB):       %v\n", p.RecommendedEQ)
}

type playFlags struct {
	seek    time.Duration
	loop    bool
	useTUI  bool
	sink    string
	device  int
	wavPath string
}

func newPlayCommand(opts *options) *cobra.Command {
	var pf playFlags
	cmd := &cobra.Command{
		Use:   "play <file>...",
		Short: "Play tracks through the effect chain and publish band frames",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("sink") {
				cfg.Playback.Sink = pf.sink
			}
			if cmd.Flags().Changed("device") {
				cfg.Playback.OutputDevice = pf.device
			}
			if cmd.Flags().Changed("wav") {
				cfg.Playback.WAVPath = pf.wavPath
			}
			if pf.loop {
				cfg.Playback.Loop = true
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			ts, err := a.transports()
			if err != nil {
				return err
			}
			defer ts.Close()

			for i, path := range args {
				seek := time.Duration(0)
				if i == 0 {
					seek = pf.seek
				}
				if err := a.play(cmd.Context(), path, seek, pf.useTUI, ts); err != nil {
					return err
				}
				if cmd.Context().Err() != nil {
					return nil
				}
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&pf.seek, "seek", 0, "Start position of the first track (e.g. 1m30s)")
	cmd.Flags().BoolVar(&pf.loop, "loop", false, "Repeat each track until interrupted")
	cmd.Flags().BoolVar(&pf.useTUI, "tui", false, "Show the live band meter")
	cmd.Flags().StringVar(&pf.sink, "sink", "", "Output sink: portaudio, oto, wav or discard")
	cmd.Flags().IntVarP(&pf.device, "device", "d", sink.MinDeviceID, "PortAudio output device ID, see 'devices'")
	cmd.Flags().StringVarP(&pf.wavPath, "wav", "o", "", "Output file for the wav sink")
	return cmd
}

// play runs one track to completion, interruption, or user quit.
func (a *app) play(ctx context.Context, path string, seek time.Duration, useTUI bool, ts transport.Multi) error {
	id, buf, err := a.load(path)
	if err != nil {
		return err
	}
	profile, err := quality.Analyze(buf)
	if err != nil {
		logger.Warnf("no quality profile for %s: %v", path, err)
		profile = quality.Neutral()
	} else {
		logger.Infof("profile: %s", profile)
	}

	task := a.service.Load(ctx, id, buf)
	defer task.Cancel()

	var meter *tui.Meter
	outputs := ts
	if useTUI {
		meter = tui.NewMeter()
		defer meter.Close()
		outputs = append(transport.Multi{meter}, ts...)
	}

	open, err := sink.ByName(a.cfg.SinkConfig())
	if err != nil {
		return err
	}
	popts := a.cfg.PlaybackOptions()
	popts.Seek = seek
	popts.Profile = profile
	if len(outputs) > 0 {
		popts.Transport = outputs
	}
	stream, err := playback.NewStream(buf, open, a.settings, popts)
	if err != nil {
		return err
	}
	stream.SetFrequency(result.NewLoading(time.Now()))
	go func() {
		res, err := task.Wait(ctx)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				logger.Warnf("no band data for %s: %v", path, err)
			}
			return
		}
		stream.SetFrequency(res)
	}()

	if err := stream.Start(ctx); err != nil {
		return err
	}

	if useTUI {
		if err := tui.RunPlayer(filepath.Base(path), buf.Duration(), stream, a.settings, meter); err != nil {
			logger.Errorf("player UI: %v", err)
		}
	} else {
		select {
		case <-stream.Done():
		case <-ctx.Done():
		}
	}

	if err := stream.Stop(); err != nil {
		logger.Warnf("%v", err)
	}
	return stream.Err()
}

func newDevicesCommand(opts *options) *cobra.Command {
	var pick bool
	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List available audio output devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := opts.load(); err != nil {
				return err
			}
			if err := sink.Initialize(); err != nil {
				return err
			}
			defer sink.Terminate()

			if !pick {
				return sink.ListDevices(cmd.OutOrStdout())
			}
			id, err := tui.PickDevice()
			if err != nil {
				return err
			}
			if id == sink.MinDeviceID {
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d\n", id)
			return nil
		},
	}
	cmd.Flags().BoolVar(&pick, "pick", false, "Choose a device interactively and print its ID")
	return cmd
}
