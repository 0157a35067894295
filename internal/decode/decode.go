// SPDX-License-Identifier: MIT
/*
Package decode turns audio files into pcm.Buffers. Every decoder emits
interleaved 16-bit little-endian samples at the file's own sample rate;
mono and stereo are supported.
*/
package decode

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"bandfx/internal/pcm"
)

var (
	ErrDecode            = errors.New("decode: cannot decode track")
	ErrUnsupportedFormat = fmt.Errorf("%w: unsupported format", ErrDecode)
)

// Decoder decodes a complete stream into memory.
type Decoder interface {
	Decode(r io.ReadSeeker) (*pcm.Buffer, error)
}

// DecoderFunc adapts a function to Decoder.
type DecoderFunc func(r io.ReadSeeker) (*pcm.Buffer, error)

func (f DecoderFunc) Decode(r io.ReadSeeker) (*pcm.Buffer, error) { return f(r) }

// Registry maps file extensions to decoders.
type Registry struct {
	mu     sync.RWMutex
	codecs map[string]Decoder
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{codecs: make(map[string]Decoder)}
}

// DefaultRegistry returns a Registry with wav, mp3, ogg and flac.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(".wav", DecoderFunc(decodeWAV))
	r.Register(".mp3", DecoderFunc(decodeMP3))
	r.Register(".ogg", DecoderFunc(decodeOGG))
	r.Register(".flac", DecoderFunc(decodeFLAC))
	return r
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(ext)
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// Register adds or replaces the decoder for ext.
func (r *Registry) Register(ext string, d Decoder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codecs[normalizeExt(ext)] = d
}

// Get returns the decoder registered for ext.
func (r *Registry) Get(ext string) (Decoder, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.codecs[normalizeExt(ext)]
	return d, ok
}

// Extensions lists the registered extensions in sorted order.
func (r *Registry) Extensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	exts := make([]string, 0, len(r.codecs))
	for ext := range r.codecs {
		exts = append(exts, ext)
	}
	slices.Sort(exts)
	return exts
}

// Decode picks a decoder by ext and decodes rs. Every failure wraps
// ErrDecode.
func (r *Registry) Decode(ext string, rs io.ReadSeeker) (*pcm.Buffer, error) {
	d, ok := r.Get(ext)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	buf, err := d.Decode(rs)
	if err != nil {
		if errors.Is(err, ErrDecode) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return buf, nil
}

// DecodeFile opens path and decodes it by extension.
func (r *Registry) DecodeFile(path string) (*pcm.Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	defer f.Close()
	return r.Decode(filepath.Ext(path), f)
}

func checkChannels(n int) error {
	if n < 1 || n > 2 {
		return fmt.Errorf("%w: %d channels", ErrUnsupportedFormat, n)
	}
	return nil
}
