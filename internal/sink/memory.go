// SPDX-License-Identifier: MIT
package sink

import (
	"bytes"
	"sync"

	"bandfx/internal/pcm"
)

type discardSink struct{}

func (discardSink) Write([]byte) error { return nil }
func (discardSink) Drain() error       { return nil }
func (discardSink) Close() error       { return nil }

// Discard opens a sink that drops everything, for dry runs.
func Discard(format pcm.Format) (Sink, error) {
	if err := checkFormat(format); err != nil {
		return nil, err
	}
	return discardSink{}, nil
}

// Memory collects everything written to it. It is safe to inspect while
// a stream is writing.
type Memory struct {
	mu      sync.Mutex
	format  pcm.Format
	data    bytes.Buffer
	writes  int
	drained bool
	closed  bool
}

// NewMemory returns an empty Memory sink.
func NewMemory() *Memory { return &Memory{} }

// Opener returns an Opener that hands out m.
func (m *Memory) Opener() Opener {
	return func(format pcm.Format) (Sink, error) {
		if err := checkFormat(format); err != nil {
			return nil, err
		}
		m.mu.Lock()
		m.format = format
		m.mu.Unlock()
		return m, nil
	}
}

func (m *Memory) Write(chunk []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.data.Write(chunk)
	m.writes++
	return nil
}

func (m *Memory) Drain() error {
	m.mu.Lock()
	m.drained = true
	m.mu.Unlock()
	return nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

// Bytes returns a copy of everything written so far.
func (m *Memory) Bytes() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return bytes.Clone(m.data.Bytes())
}

// Writes returns the number of Write calls.
func (m *Memory) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

// Format returns the format the sink was opened with.
func (m *Memory) Format() pcm.Format {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.format
}

// Drained reports whether Drain was called.
func (m *Memory) Drained() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.drained
}

// Closed reports whether Close was called.
func (m *Memory) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

var (
	_ Sink = discardSink{}
	_ Sink = (*Memory)(nil)
)
