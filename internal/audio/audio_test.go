package audio

import (
	"encoding/binary"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSineLength(t *testing.T) {
	samples := Sine(440, SampleRate, ToneDuration)
	assert.Len(t, samples, SampleRate/2)
	assert.Nil(t, Sine(440, SampleRate, 0))
}

func TestSineFadesAtEdges(t *testing.T) {
	samples := Sine(261.63, SampleRate, ToneDuration)
	require.NotEmpty(t, samples)
	assert.Zero(t, samples[0])
	assert.Zero(t, samples[len(samples)-1])

	peak := 0
	for _, v := range samples {
		if a := int(math.Abs(float64(v))); a > peak {
			peak = a
		}
	}
	assert.Greater(t, peak, math.MaxInt16*9/10)
	assert.LessOrEqual(t, peak, math.MaxInt16)
}

func TestSineFrequency(t *testing.T) {
	// 440 Hz over one second crosses zero upward 440 times.
	samples := Sine(440, SampleRate, time.Second)
	crossings := 0
	for i := 1; i < len(samples); i++ {
		if samples[i-1] < 0 && samples[i] >= 0 {
			crossings++
		}
	}
	assert.InDelta(t, 440, crossings, 2)
}

func TestStereoInterleaves(t *testing.T) {
	buf := Stereo([]int16{1, -2, math.MaxInt16})
	require.Len(t, buf, 12)
	for i, want := range []int16{1, -2, math.MaxInt16} {
		left := int16(binary.LittleEndian.Uint16(buf[i*4:]))
		right := int16(binary.LittleEndian.Uint16(buf[i*4+2:]))
		assert.Equal(t, want, left)
		assert.Equal(t, want, right)
	}
}

func TestClampVolume(t *testing.T) {
	assert.Equal(t, 0.0, clampVolume(-1))
	assert.Equal(t, 0.0, clampVolume(math.NaN()))
	assert.Equal(t, 1.0, clampVolume(3))
	assert.Equal(t, DefaultVolume, clampVolume(DefaultVolume))
}

func TestNopSatisfiesPlayer(t *testing.T) {
	var p Player = Nop{}
	p.Play(440, ToneDuration)
}
