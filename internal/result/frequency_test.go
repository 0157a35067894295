// SPDX-License-Identifier: MIT
package result

import (
	"errors"
	"testing"
	"time"
)

func populated(ticks int, value float64) [BandCount][]float64 {
	var bands [BandCount][]float64
	for b := range bands {
		bands[b] = make([]float64, ticks)
		for i := range bands[b] {
			bands[b][i] = value
		}
	}
	return bands
}

func TestNewRequiresEqualLengths(t *testing.T) {
	bands := populated(10, 0.5)
	bands[3] = bands[3][:9]

	if _, err := New(bands, time.Time{}); !errors.Is(err, ErrInvalid) {
		t.Errorf("New() = %v, want ErrInvalid", err)
	}
}

func TestIntensityOutOfRange(t *testing.T) {
	f, err := New(populated(5, 0.25), time.Time{})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name       string
		band, tick int
		want       float64
	}{
		{"In range", 2, 4, 0.25},
		{"Negative tick", 2, -1, 0},
		{"Past end", 2, 5, 0},
		{"Bad band", 12, 0, 0},
		{"Negative band", -1, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.Intensity(tt.band, tt.tick); got != tt.want {
				t.Errorf("Intensity(%d, %d) = %v, want %v", tt.band, tt.tick, got, tt.want)
			}
		})
	}

	var loading *Frequency
	if loading.Intensity(0, 0) != 0 {
		t.Error("nil result should read as zero")
	}
}

func TestTickAt(t *testing.T) {
	if got := TickAt(1500 * time.Millisecond); got != 30 {
		t.Errorf("TickAt(1.5s) = %d, want 30", got)
	}
	if got := TickAt(-time.Millisecond); got != -1 {
		t.Errorf("TickAt(-1ms) = %d, want -1", got)
	}
}

func TestValidate(t *testing.T) {
	good, _ := New(populated(20, 0.5), time.Time{})

	zeroed, _ := New(populated(20, 0), time.Time{})

	var sparse [BandCount][]float64
	sparse[4] = []float64{0, 0.8, 0.1}
	partial := &Frequency{Bands: sparse, DurationTicks: 3}

	tests := []struct {
		name string
		f    *Frequency
		ok   bool
	}{
		{"Populated", good, true},
		{"One band populated", partial, true},
		{"Loading", NewLoading(time.Now()), false},
		{"Zero duration", &Frequency{}, false},
		{"Zeroed bands", zeroed, false},
		{"Nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.f.Validate()
			if tt.ok && err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
			if !tt.ok && !errors.Is(err, ErrInvalid) {
				t.Errorf("Validate() = %v, want ErrInvalid", err)
			}
		})
	}
}
