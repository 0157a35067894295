// SPDX-License-Identifier: MIT
package tui

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"bandfx/internal/analysis"
	"bandfx/internal/dsp"
	"bandfx/internal/playback"
	"bandfx/internal/transport"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	barWidth     = 40
	seekStep     = 5 * time.Second
	volumeStep   = 0.1
	refreshEvery = 100 * time.Millisecond
)

var ErrMeterClosed = errors.New("tui: meter closed")

var (
	bandNameStyle = lipgloss.NewStyle().Width(13).Foreground(lipgloss.Color("#A0A0A0"))
	barStyles     = [...]lipgloss.Style{
		lipgloss.NewStyle().Foreground(lipgloss.Color("#25A065")),
		lipgloss.NewStyle().Foreground(lipgloss.Color("#E5C07B")),
		lipgloss.NewStyle().Foreground(lipgloss.Color("#E06C75")),
	}
)

// Meter is a transport that hands band frames to the player UI. A frame
// the UI has not picked up yet is replaced by the newer one.
type Meter struct {
	frames chan transport.BandFrame
	done   chan struct{}
	once   sync.Once
	mu     sync.Mutex
}

// NewMeter returns an open Meter.
func NewMeter() *Meter {
	return &Meter{
		frames: make(chan transport.BandFrame, 1),
		done:   make(chan struct{}),
	}
}

// Send accepts transport.BandFrame payloads only.
func (m *Meter) Send(data any) error {
	frame, ok := data.(transport.BandFrame)
	if !ok {
		return fmt.Errorf("tui: unexpected payload %T", data)
	}
	select {
	case <-m.done:
		return ErrMeterClosed
	default:
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	select {
	case <-m.frames:
	default:
	}
	m.frames <- frame
	return nil
}

// Close wakes any waiting UI command.
func (m *Meter) Close() error {
	m.once.Do(func() { close(m.done) })
	return nil
}

var _ transport.Transport = (*Meter)(nil)

// Controls is the part of a playback stream the player drives.
type Controls interface {
	Pause()
	Resume()
	Seek(pos time.Duration)
	Position() time.Duration
	State() playback.State
	Done() <-chan struct{}
}

type playerKeys struct {
	Pause        key.Binding
	Back         key.Binding
	Forward      key.Binding
	VolumeUp     key.Binding
	VolumeDown   key.Binding
	Enhancements key.Binding
	Bass         key.Binding
	Quit         key.Binding
}

func (k playerKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Pause, k.Back, k.Forward, k.VolumeUp, k.VolumeDown, k.Enhancements, k.Bass, k.Quit}
}

func (k playerKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

var defaultPlayerKeys = playerKeys{
	Pause:        key.NewBinding(key.WithKeys(" ", "p"), key.WithHelp("space", "pause")),
	Back:         key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←", "-5s")),
	Forward:      key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→", "+5s")),
	VolumeUp:     key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "volume")),
	VolumeDown:   key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "volume")),
	Enhancements: key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "effects")),
	Bass:         key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "bass")),
	Quit:         quitKey,
}

type (
	frameMsg   transport.BandFrame
	refreshMsg time.Time
	doneMsg    struct{}
)

// PlayerModel shows the live band intensities of a playing stream.
type PlayerModel struct {
	title    string
	duration time.Duration
	ctl      Controls
	settings *dsp.Settings
	meter    *Meter

	frame    transport.BandFrame
	position time.Duration
	finished bool

	keys     playerKeys
	help     help.Model
	progress progress.Model
}

// NewPlayerModel builds the player for one stream. meter must be the
// transport the stream publishes to.
func NewPlayerModel(title string, duration time.Duration, ctl Controls, settings *dsp.Settings, meter *Meter) PlayerModel {
	return PlayerModel{
		title:    title,
		duration: duration,
		ctl:      ctl,
		settings: settings,
		meter:    meter,
		keys:     defaultPlayerKeys,
		help:     help.New(),
		progress: progress.New(progress.WithDefaultGradient(), progress.WithWidth(barWidth+13)),
	}
}

func (m PlayerModel) Init() tea.Cmd {
	return tea.Batch(m.waitFrame(), m.waitDone(), refresh())
}

func (m PlayerModel) waitFrame() tea.Cmd {
	meter := m.meter
	return func() tea.Msg {
		select {
		case f := <-meter.frames:
			return frameMsg(f)
		case <-meter.done:
			return nil
		}
	}
}

func (m PlayerModel) waitDone() tea.Cmd {
	done := m.ctl.Done()
	return func() tea.Msg {
		<-done
		return doneMsg{}
	}
}

func refresh() tea.Cmd {
	return tea.Tick(refreshEvery, func(t time.Time) tea.Msg { return refreshMsg(t) })
}

func (m PlayerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.help.Width = msg.Width

	case frameMsg:
		m.frame = transport.BandFrame(msg)
		return m, m.waitFrame()

	case refreshMsg:
		m.position = m.ctl.Position()
		return m, refresh()

	case doneMsg:
		m.finished = true
		return m, tea.Quit

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Pause):
			if m.ctl.State() == playback.Paused {
				m.ctl.Resume()
			} else {
				m.ctl.Pause()
			}
		case key.Matches(msg, m.keys.Back):
			m.seek(-seekStep)
		case key.Matches(msg, m.keys.Forward):
			m.seek(seekStep)
		case key.Matches(msg, m.keys.VolumeUp):
			m.settings.Update(func(p *dsp.Params) { p.MasterVolume += volumeStep })
		case key.Matches(msg, m.keys.VolumeDown):
			m.settings.Update(func(p *dsp.Params) { p.MasterVolume -= volumeStep })
		case key.Matches(msg, m.keys.Enhancements):
			m.settings.Update(func(p *dsp.Params) { p.Enhancements = !p.Enhancements })
		case key.Matches(msg, m.keys.Bass):
			m.settings.Update(func(p *dsp.Params) {
				p.BassBoost += 0.25
				if p.BassBoost > 1 {
					p.BassBoost = 0
				}
			})
		}
	}
	return m, nil
}

func (m *PlayerModel) seek(delta time.Duration) {
	pos := max(0, min(m.duration, m.ctl.Position()+delta))
	m.ctl.Seek(pos)
	m.position = pos
}

// View renders the UI
func (m PlayerModel) View() string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render(m.title))
	sb.WriteString("\n\n")

	for i, band := range analysis.Bands {
		sb.WriteString(bandNameStyle.Render(band.Name))
		sb.WriteString(renderBar(m.frame.Bands[i]))
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
	sb.WriteString(bandNameStyle.Render("level"))
	sb.WriteString(renderBar(m.frame.Level))
	sb.WriteString("\n\n")

	var pct float64
	if m.duration > 0 {
		pct = float64(m.position) / float64(m.duration)
	}
	sb.WriteString(m.progress.ViewAs(pct))
	sb.WriteString("\n")

	p := m.settings.Snapshot()
	state := m.ctl.State().String()
	if m.finished {
		state = "finished"
	}
	effects := "off"
	if p.Enhancements {
		effects = "on"
	}
	sb.WriteString(infoStyle.Render(fmt.Sprintf("%s / %s  %s  volume %.1f  effects %s  bass %.2f",
		m.position.Truncate(time.Second), m.duration.Truncate(time.Second), state, p.MasterVolume, effects, p.BassBoost)))
	sb.WriteString("\n\n")
	sb.WriteString(m.help.View(m.keys))
	return sb.String()
}

func renderBar(v float64) string {
	v = max(0, min(1, v))
	n := int(math.Round(v * barWidth))
	style := barStyles[min(len(barStyles)-1, int(v*float64(len(barStyles))))]
	return style.Render(strings.Repeat("█", n)) + strings.Repeat(" ", barWidth-n)
}

// RunPlayer blocks until the stream finishes or the user quits.
func RunPlayer(title string, duration time.Duration, ctl Controls, settings *dsp.Settings, meter *Meter) error {
	p := tea.NewProgram(NewPlayerModel(title, duration, ctl, settings, meter), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
