// SPDX-License-Identifier: MIT
/*
Package quality inspects a decoded track once before playback and
derives loudness statistics, a coarse tonal balance and the auto-gain and
auto-EQ adjustments the DSP chain starts from.
*/
package quality

import (
	"errors"
	"fmt"
	"math"

	"bandfx/internal/pcm"
)

var ErrUnsupportedBitDepth = errors.New("quality: only 16-bit PCM is supported")

// EQBands is the number of auto-EQ bands, matching the DSP chain.
const EQBands = 10

const (
	targetSamples   = 44100
	clipLevel       = 0.99
	dbFloor         = 1e-10
	lowLevelRMS     = 0.0316 // -30 dBFS
	clippingRatio   = 0.001
	targetPeak      = 0.9
	minGain         = 0.5
	maxGain         = 2.0
	maxEQAdjustDB   = 4.0
	excessScale     = 2.0
	bassEnd         = 0.15
	midEnd          = 0.60
	bassThreshold   = 0.45
	trebleThreshold = 0.40
	midThreshold    = 0.50
)

// Tag classifies the tonal balance of a track.
type Tag int

const (
	Balanced Tag = iota
	BassHeavy
	MidHeavy
	TrebleHeavy
)

func (t Tag) String() string {
	switch t {
	case BassHeavy:
		return "BASS_HEAVY"
	case MidHeavy:
		return "MID_HEAVY"
	case TrebleHeavy:
		return "TREBLE_HEAVY"
	default:
		return "BALANCED"
	}
}

// Balance holds the normalized bass, mid and high proxies. They sum to 1
// unless the track is silent, in which case all are 0.
type Balance struct {
	Bass, Mid, High float64
}

// Profile is the outcome of one quality pass.
type Profile struct {
	Peak            float64
	RMS             float64
	CrestFactorDB   float64
	DynamicRangeDB  float64
	ClippingRatio   float64
	Balance         Balance
	Tag             Tag
	RecommendedGain float64
	RecommendedEQ   [EQBands]float64 // dB per band, 32 Hz .. 16 kHz
}

// Neutral returns a profile that leaves the signal untouched. It stands
// in when a track cannot be analyzed.
func Neutral() *Profile {
	return &Profile{RecommendedGain: 1}
}

// HasClipping reports whether more than 0.1% of inspected samples clip.
func (p *Profile) HasClipping() bool { return p.ClippingRatio > clippingRatio }

// IsLowLevel reports whether RMS is below -30 dBFS.
func (p *Profile) IsLowLevel() bool { return p.RMS < lowLevelRMS }

func (p *Profile) String() string {
	return fmt.Sprintf("%s peak=%.3f rms=%.3f crest=%.1fdB range=%.1fdB clip=%.2f%% gain=%.2f",
		p.Tag, p.Peak, p.RMS, p.CrestFactorDB, p.DynamicRangeDB, p.ClippingRatio*100, p.RecommendedGain)
}

func toDB(x float64) float64 {
	return 20 * math.Log10(math.Max(x, dbFloor))
}

// Analyze inspects about 44100 evenly spaced frames of buf.
func Analyze(buf *pcm.Buffer) (*Profile, error) {
	if err := buf.Validate(); err != nil {
		return nil, err
	}
	if buf.BitDepth != 16 {
		return nil, fmt.Errorf("%w: got %d bits", ErrUnsupportedBitDepth, buf.BitDepth)
	}

	frames := buf.Frames()
	step := max(1, frames/targetSamples)
	ch := buf.Channels

	var (
		peak, sumSquares float64
		clipped, count   int
		buckets          [3]float64
	)
	for f := 0; f < frames; f += step {
		var sum float64
		for c := range ch {
			sum += float64(buf.Sample(f*ch+c)) / pcm.Scale
		}
		v := math.Abs(sum / float64(ch))

		peak = math.Max(peak, v)
		sumSquares += v * v
		if v > clipLevel {
			clipped++
		}

		// Positional thirds: a temporal proxy for tonal balance.
		switch pos := float64(f) / float64(frames); {
		case pos < bassEnd:
			buckets[0] += v
		case pos < midEnd:
			buckets[1] += v
		default:
			buckets[2] += v
		}
		count++
	}

	p := &Profile{Peak: peak}
	if count > 0 {
		p.RMS = math.Sqrt(sumSquares / float64(count))
		p.ClippingRatio = float64(clipped) / float64(count)
	}
	p.CrestFactorDB = toDB(p.Peak) - toDB(p.RMS)
	p.DynamicRangeDB = math.Max(0, toDB(p.Peak)-toDB(p.RMS*0.01))

	if total := buckets[0] + buckets[1] + buckets[2]; total > 0 {
		p.Balance = Balance{Bass: buckets[0] / total, Mid: buckets[1] / total, High: buckets[2] / total}
	}
	p.Tag = classify(p.Balance)
	p.RecommendedGain = recommendGain(p.Peak)
	p.RecommendedEQ = recommendEQ(p.Tag, p.Balance)
	return p, nil
}

func classify(b Balance) Tag {
	switch {
	case b.Bass > bassThreshold && b.Bass > b.Mid && b.Bass > b.High:
		return BassHeavy
	case b.High > trebleThreshold && b.High > b.Bass:
		return TrebleHeavy
	case b.Mid > midThreshold:
		return MidHeavy
	default:
		return Balanced
	}
}

// recommendGain brings the peak to 0.9, within [0.5, 2]. Silence gets
// the lower bound rather than an unbounded boost.
func recommendGain(peak float64) float64 {
	if peak <= 0 {
		return minGain
	}
	return math.Max(minGain, math.Min(maxGain, targetPeak/peak))
}
