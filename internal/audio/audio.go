// Package audio plays the reference tone of a note.
package audio

import (
	"math"
	"sync"
	"time"

	"github.com/hajimehoshi/ebiten/v2/audio"
)

const (
	// SampleRate is the playback rate of synthesized tones.
	SampleRate = 44100
	// DefaultVolume matches the quiet gain of the staff trainer.
	DefaultVolume = 0.15
	// ToneDuration is the length of one note tone.
	ToneDuration = 500 * time.Millisecond

	// Attack and release ramps keep the tone from clicking.
	rampMS     = 10
	maxPlayers = 8
)

// Player plays a tone. Play must not block.
type Player interface {
	Play(freq float64, dur time.Duration)
}

// Nop discards every tone.
type Nop struct{}

// Play does nothing.
func (Nop) Play(float64, time.Duration) {}

// Tone plays sine tones through an ebiten audio context.
type Tone struct {
	ctx    *audio.Context
	volume float64

	mu      sync.Mutex
	players map[*audio.Player]struct{}
}

// NewTone returns a tone player at the given volume (0..1). The process-wide
// ebiten context is created on first use and reused afterwards.
func NewTone(volume float64) *Tone {
	ctx := audio.CurrentContext()
	if ctx == nil {
		ctx = audio.NewContext(SampleRate)
	}
	return &Tone{
		ctx:     ctx,
		volume:  clampVolume(volume),
		players: make(map[*audio.Player]struct{}),
	}
}

// Play synthesizes freq for dur and starts playback.
func (t *Tone) Play(freq float64, dur time.Duration) {
	if freq <= 0 || dur <= 0 {
		return
	}
	pcm := Stereo(Sine(freq, t.ctx.SampleRate(), dur))
	p := t.ctx.NewPlayerFromBytes(pcm)
	p.SetVolume(t.volume)

	t.mu.Lock()
	for sp := range t.players {
		if !sp.IsPlaying() {
			// Best-effort close of a finished player.
			_ = sp.Close()
			delete(t.players, sp)
		}
	}
	if len(t.players) >= maxPlayers {
		t.mu.Unlock()
		_ = p.Close()
		return
	}
	t.players[p] = struct{}{}
	t.mu.Unlock()

	p.Play()
}

// Close stops and releases every player.
func (t *Tone) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for sp := range t.players {
		// Best-effort close; playback is being torn down anyway.
		_ = sp.Close()
		delete(t.players, sp)
	}
	return nil
}

// Sine generates a mono sine wave with short linear fade in and out.
func Sine(freq float64, rate int, dur time.Duration) []int16 {
	n := int(int64(rate) * dur.Milliseconds() / 1000)
	if n <= 0 {
		return nil
	}
	ramp := min(rate*rampMS/1000, n/2)
	samples := make([]int16, n)
	for i := 0; i < n; i++ {
		v := math.Sin(2 * math.Pi * freq * float64(i) / float64(rate))
		gain := 1.0
		if ramp > 0 {
			switch {
			case i < ramp:
				gain = float64(i) / float64(ramp)
			case i >= n-ramp:
				gain = float64(n-1-i) / float64(ramp)
			}
		}
		samples[i] = int16(v * gain * math.MaxInt16)
	}
	return samples
}

// Stereo encodes mono samples as 16-bit little-endian interleaved stereo,
// the format the audio context plays.
func Stereo(samples []int16) []byte {
	buf := make([]byte, 0, len(samples)*4)
	for _, v := range samples {
		lo, hi := byte(v), byte(uint16(v)>>8)
		buf = append(buf, lo, hi, lo, hi)
	}
	return buf
}

func clampVolume(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
