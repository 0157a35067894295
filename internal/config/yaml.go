// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"bandfx/internal/analysis"
	"bandfx/internal/dsp"
	applog "bandfx/internal/log"
	"bandfx/internal/playback"
	"bandfx/internal/sink"
	"bandfx/pkg/bitint"

	"gopkg.in/yaml.v3"
)

var logger = applog.For("config")

var ErrInvalid = errors.New("config: invalid configuration")

// Config represents the main application configuration structure, loaded from YAML.
type Config struct {
	LogLevel  string          `yaml:"log_level"` // debug, info, warn or error
	Analysis  AnalysisConfig  `yaml:"analysis"`
	DSP       DSPConfig       `yaml:"dsp"`
	Playback  PlaybackConfig  `yaml:"playback"`
	Cache     CacheConfig     `yaml:"cache"`
	Transport TransportConfig `yaml:"transport"`
}

// AnalysisConfig holds the spectral analysis geometry.
type AnalysisConfig struct {
	WindowSize int    `yaml:"window_size"` // FFT size in samples, a power of two
	HopSize    int    `yaml:"hop_size"`    // samples between analysis frames
	Window     string `yaml:"window"`      // window function name (e.g., "hann", "blackman")
	Parallel   bool   `yaml:"parallel"`    // run per-band onset detection concurrently
}

// DSPConfig holds the initial effect settings and the fixed chain layout.
type DSPConfig struct {
	Enhancements  bool      `yaml:"enhancements"`
	MasterVolume  float64   `yaml:"master_volume"`  // 0..2
	SourceVolume  float64   `yaml:"source_volume"`  // 0..1
	EQGains       []float64 `yaml:"eq_gains"`       // dB per band, up to 10 values
	BassBoost     float64   `yaml:"bass_boost"`     // 0..1
	SurroundLevel float64   `yaml:"surround_level"` // 0..1
	StereoWidth   float64   `yaml:"stereo_width"`   // 0..2, 1 is neutral
	EQQ           float64   `yaml:"eq_q"`
	SurroundDelay int       `yaml:"surround_delay"` // samples
	SurroundMix   float64   `yaml:"surround_mix"`
	AutoGain      bool      `yaml:"auto_gain"`
	AutoEQ        bool      `yaml:"auto_eq"`
}

// PlaybackConfig selects the output sink and the stream behaviour.
type PlaybackConfig struct {
	Sink            string        `yaml:"sink"`              // portaudio, oto, wav or discard
	OutputDevice    int           `yaml:"output_device"`     // PortAudio device index (-1 for default)
	FramesPerBuffer int           `yaml:"frames_per_buffer"` // PortAudio buffer size
	LowLatency      bool          `yaml:"low_latency"`       // Request low latency settings from PortAudio device.
	ChunkFrames     int           `yaml:"chunk_frames"`      // frames processed per DSP chunk
	Loop            bool          `yaml:"loop"`
	StopTimeout     time.Duration `yaml:"stop_timeout"`
	WAVPath         string        `yaml:"wav_path"` // output file for the wav sink
}

// CacheConfig bounds the in-memory caches.
type CacheConfig struct {
	Results int `yaml:"results"` // analysis results kept
	PCM     int `yaml:"pcm"`     // decoded tracks kept
}

// TransportConfig holds settings related to sending effect data over the network.
type TransportConfig struct {
	UDPEnabled       bool          `yaml:"udp_enabled"`        // Enable sending band frames over UDP.
	UDPTargetAddress string        `yaml:"udp_target_address"` // Target address and port for UDP packets (e.g., "127.0.0.1:9090").
	UDPSendInterval  time.Duration `yaml:"udp_send_interval"`  // Interval between sending UDP packets.
	WSEnabled        bool          `yaml:"ws_enabled"`         // Serve band frames over a WebSocket.
	WSAddress        string        `yaml:"ws_address"`         // Listen address for the WebSocket server.
	LogFrames        bool          `yaml:"log_frames"`         // Log every band frame at debug level.
}

// Default returns the built-in configuration.
func Default() Config {
	an := analysis.DefaultConfig()
	opts := dsp.DefaultOptions()
	params := dsp.DefaultParams()
	return Config{
		LogLevel: "info",
		Analysis: AnalysisConfig{
			WindowSize: an.WindowSize,
			HopSize:    an.HopSize,
			Window:     an.Window.String(),
			Parallel:   an.Parallel,
		},
		DSP: DSPConfig{
			Enhancements:  true,
			MasterVolume:  params.MasterVolume,
			SourceVolume:  params.SourceVolume,
			StereoWidth:   params.StereoWidth,
			EQQ:           opts.EQQ,
			SurroundDelay: opts.SurroundDelay,
			SurroundMix:   opts.SurroundMix,
			AutoGain:      opts.AutoGain,
			AutoEQ:        opts.AutoEQ,
		},
		Playback: PlaybackConfig{
			Sink:            "portaudio",
			OutputDevice:    sink.MinDeviceID, // -1 for default device.
			FramesPerBuffer: 1024,
			ChunkFrames:     playback.DefaultChunkFrames,
			StopTimeout:     playback.DefaultStopTimeout,
		},
		Cache: CacheConfig{
			Results: 32,
			PCM:     4,
		},
		Transport: TransportConfig{
			UDPTargetAddress: "127.0.0.1:9090",
			UDPSendInterval:  16 * time.Millisecond, // ~60Hz.
			WSAddress:        "localhost:8080",
		},
	}
}

// searchPaths lists the files tried, in order, when no path is given.
func searchPaths() []string {
	candidates := []string{"bandfx.yaml", "config.yaml"}
	if dir, err := os.UserConfigDir(); err == nil {
		candidates = append(candidates, filepath.Join(dir, "bandfx", "config.yaml"))
	}
	return candidates
}

// LoadConfig loads configuration from a YAML file specified by path. If path is empty,
// it searches the default locations. If no file is found, it uses built-in
// defaults. After loading defaults or from file, it applies environment variable
// overrides and validates the final configuration.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		for _, candidate := range searchPaths() {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		logger.Debugf("loaded %s", path)
	}

	// Apply environment variable overrides AFTER loading from file.
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	if _, ok := applog.ParseLevel(c.LogLevel); !ok {
		return fmt.Errorf("%w: log_level %q", ErrInvalid, c.LogLevel)
	}

	a := c.Analysis
	if !bitint.IsPowerOfTwo(a.WindowSize) {
		return fmt.Errorf("%w: analysis.window_size %d is not a power of two", ErrInvalid, a.WindowSize)
	}
	if a.HopSize <= 0 || a.HopSize > a.WindowSize {
		return fmt.Errorf("%w: analysis.hop_size %d must be in 1..%d", ErrInvalid, a.HopSize, a.WindowSize)
	}
	if _, err := analysis.ParseWindowFunc(a.Window); err != nil {
		return fmt.Errorf("%w: analysis.window: %w", ErrInvalid, err)
	}

	d := c.DSP
	if len(d.EQGains) > dsp.EQBands {
		return fmt.Errorf("%w: dsp.eq_gains has %d values, at most %d allowed", ErrInvalid, len(d.EQGains), dsp.EQBands)
	}
	if d.EQQ <= 0 {
		return fmt.Errorf("%w: dsp.eq_q must be positive", ErrInvalid)
	}
	if d.SurroundDelay < 0 {
		return fmt.Errorf("%w: dsp.surround_delay must not be negative", ErrInvalid)
	}

	p := c.Playback
	if _, err := sink.ByName(c.SinkConfig()); err != nil {
		return fmt.Errorf("%w: playback: %w", ErrInvalid, err)
	}
	if p.OutputDevice < sink.MinDeviceID {
		return fmt.Errorf("%w: playback.output_device %d", ErrInvalid, p.OutputDevice)
	}
	if p.ChunkFrames <= 0 {
		return fmt.Errorf("%w: playback.chunk_frames must be positive", ErrInvalid)
	}
	if p.StopTimeout <= 0 {
		return fmt.Errorf("%w: playback.stop_timeout must be positive", ErrInvalid)
	}

	if c.Cache.Results <= 0 || c.Cache.PCM <= 0 {
		return fmt.Errorf("%w: cache sizes must be positive", ErrInvalid)
	}

	t := c.Transport
	if t.UDPEnabled {
		if !strings.Contains(t.UDPTargetAddress, ":") {
			return fmt.Errorf("%w: transport.udp_target_address %q appears invalid (missing port?)", ErrInvalid, t.UDPTargetAddress)
		}
		if t.UDPSendInterval <= 0 {
			return fmt.Errorf("%w: transport.udp_send_interval must be positive when UDP is enabled", ErrInvalid)
		}
	}
	if t.WSEnabled && t.WSAddress == "" {
		return fmt.Errorf("%w: transport.ws_address must be set when the WebSocket is enabled", ErrInvalid)
	}
	return nil
}

// AnalysisConfig converts the analysis section. The window name has
// already been validated.
func (c *Config) AnalysisConfig() analysis.Config {
	w, _ := analysis.ParseWindowFunc(c.Analysis.Window)
	return analysis.Config{
		WindowSize: c.Analysis.WindowSize,
		HopSize:    c.Analysis.HopSize,
		Window:     w,
		Parallel:   c.Analysis.Parallel,
	}
}

// DSPParams returns the initial, clamped effect settings.
func (c *Config) DSPParams() dsp.Params {
	p := dsp.Params{
		MasterVolume:  c.DSP.MasterVolume,
		SourceVolume:  c.DSP.SourceVolume,
		BassBoost:     c.DSP.BassBoost,
		SurroundLevel: c.DSP.SurroundLevel,
		StereoWidth:   c.DSP.StereoWidth,
		Enhancements:  c.DSP.Enhancements,
	}
	copy(p.EQGains[:], c.DSP.EQGains)
	return p.Clamped()
}

// SinkConfig converts the playback section into a sink selection.
func (c *Config) SinkConfig() sink.Config {
	return sink.Config{
		Name:            c.Playback.Sink,
		Device:          c.Playback.OutputDevice,
		LowLatency:      c.Playback.LowLatency,
		FramesPerBuffer: c.Playback.FramesPerBuffer,
		WAVPath:         c.Playback.WAVPath,
	}
}

// PlaybackOptions returns stream options without a profile or transport.
func (c *Config) PlaybackOptions() playback.Options {
	return playback.Options{
		ChunkFrames: c.Playback.ChunkFrames,
		Loop:        c.Playback.Loop,
		StopTimeout: c.Playback.StopTimeout,
		DSP: dsp.Options{
			EQQ:           c.DSP.EQQ,
			SurroundDelay: c.DSP.SurroundDelay,
			SurroundMix:   c.DSP.SurroundMix,
			AutoGain:      c.DSP.AutoGain,
			AutoEQ:        c.DSP.AutoEQ,
		},
	}
}

// applyEnvOverrides applies ENV_* variables on top of the file. Values
// that do not parse are ignored with a warning.
func (c *Config) applyEnvOverrides() {
	// ENV_{...}
	// These are general overrides.
	envString("ENV_LOG_LEVEL", &c.LogLevel)
	envString("ENV_SINK", &c.Playback.Sink)
	envInt("ENV_OUTPUT_DEVICE", &c.Playback.OutputDevice)
	envString("ENV_WAV_PATH", &c.Playback.WAVPath)
	envBool("ENV_ENHANCEMENTS", &c.DSP.Enhancements)

	// ENV_UDP_{...}
	// These are specific to the transport layer.
	envBool("ENV_UDP_ENABLED", &c.Transport.UDPEnabled)
	envString("ENV_UDP_TARGET_ADDRESS", &c.Transport.UDPTargetAddress)
	envDuration("ENV_UDP_SEND_INTERVAL", &c.Transport.UDPSendInterval)

	// ENV_WS_{...}
	envBool("ENV_WS_ENABLED", &c.Transport.WSEnabled)
	envString("ENV_WS_ADDRESS", &c.Transport.WSAddress)
}

func envString(key string, dst *string) {
	if val, ok := os.LookupEnv(key); ok {
		*dst = val
		logger.Infof("overriding from %s: %s", key, val)
	}
}

func envBool(key string, dst *bool) {
	parse(key, dst, strconv.ParseBool)
}

func envInt(key string, dst *int) {
	parse(key, dst, strconv.Atoi)
}

func envDuration(key string, dst *time.Duration) {
	parse(key, dst, time.ParseDuration)
}

func parse[T any](key string, dst *T, fn func(string) (T, error)) {
	val, ok := os.LookupEnv(key)
	if !ok {
		return
	}
	v, err := fn(val)
	if err != nil {
		logger.Warnf("ignoring %s=%q: %v", key, val, err)
		return
	}
	*dst = v
	logger.Infof("overriding from %s: %v", key, v)
}
