package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"bandfx/internal/analysis"
	"bandfx/internal/config"
	"bandfx/internal/decode"
	"bandfx/internal/dsp"
	applog "bandfx/internal/log"
	"bandfx/internal/pcm"
	"bandfx/internal/result"
	"bandfx/internal/transport"
	"bandfx/internal/transport/udp"
)

var logger = applog.For("cli")

// app holds the long-lived objects shared by the tracks of one command.
type app struct {
	cfg      *config.Config
	decoders *decode.Registry
	tracks   *pcm.Cache
	service  *analysis.Service
	settings *dsp.Settings
}

func newApp(cfg *config.Config) (*app, error) {
	pipeline, err := analysis.NewPipeline(cfg.AnalysisConfig())
	if err != nil {
		return nil, err
	}
	return &app{
		cfg:      cfg,
		decoders: decode.DefaultRegistry(),
		tracks:   pcm.NewCache(cfg.Cache.PCM),
		service:  analysis.NewService(pipeline, result.NewCache(cfg.Cache.Results)),
		settings: dsp.NewSettings(cfg.DSPParams()),
	}, nil
}

// trackID identifies a file by path, size and modification time so an
// edited file is never served from a cache.
func trackID(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("%w: %w", decode.ErrDecode, err)
	}
	return fmt.Sprintf("%s:%d:%d", abs, info.Size(), info.ModTime().UnixNano()), nil
}

// load decodes path, reusing a cached buffer when the file is unchanged.
func (a *app) load(path string) (string, *pcm.Buffer, error) {
	id, err := trackID(path)
	if err != nil {
		return "", nil, err
	}
	if buf, ok := a.tracks.Get(id); ok {
		logger.Debugf("decoded buffer cached for %s", path)
		return id, buf, nil
	}
	buf, err := a.decoders.DecodeFile(path)
	if err != nil {
		return "", nil, fmt.Errorf("%s: %w", path, err)
	}
	logger.Infof("decoded %s: %d Hz, %d ch, %v", filepath.Base(path), buf.SampleRate, buf.Channels, buf.Duration())
	a.tracks.Put(id, buf)
	return id, buf, nil
}

// transports opens the effect outputs enabled in the configuration.
func (a *app) transports() (transport.Multi, error) {
	tc := a.cfg.Transport
	var ts transport.Multi

	if tc.LogFrames {
		ts = append(ts, transport.NewLoggingTransport())
	}
	if tc.WSEnabled {
		ws, err := transport.NewWebSocketTransport(tc.WSAddress)
		if err != nil {
			return nil, fmt.Errorf("websocket transport: %w", err)
		}
		logger.Infof("serving band frames on ws://%s/ws", ws.Addr())
		ts = append(ts, ws)
	}
	if tc.UDPEnabled {
		sender, err := udp.NewUDPSender(tc.UDPTargetAddress)
		if err != nil {
			ts.Close()
			return nil, fmt.Errorf("udp transport: %w", err)
		}
		pub, err := udp.NewUDPPublisher(tc.UDPSendInterval, sender)
		if err != nil {
			sender.Close()
			ts.Close()
			return nil, fmt.Errorf("udp transport: %w", err)
		}
		pub.Start()
		ts = append(ts, pub)
	}
	return ts, nil
}
