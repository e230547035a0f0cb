package loop

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeTokens(t *testing.T) {
	cases := []struct {
		in    string
		ticks float64
		secs  float64
	}{
		{"0:0:0", 0, 0},
		{"0:1:0", PPQ, 0},
		{"0:0:2", PPQ / 2, 0},
		{"1:0:0", TicksPerBar, 0},
		{"1:3:3", TicksPerBar + 3*PPQ + 3*PPQ/4, 0},
		{"0:0:1.5", PPQ / 4 * 1.5, 0},
		{"1:2", TicksPerBar + 2*PPQ, 0},
		{"4n", PPQ, 0},
		{"8n", PPQ / 2, 0},
		{"16n", PPQ / 4, 0},
		{"32n", PPQ / 8, 0},
		{"64n", PPQ / 16, 0},
		{"1n", TicksPerBar, 0},
		{"8n.", PPQ / 2 * 1.5, 0},
		{"8t", PPQ / 3, 0},
		{"1m", TicksPerBar, 0},
		{"2m", LoopTicks, 0},
		{"96i", 96, 0},
		{"0.5", 0, 0.5},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			span, err := ParseTime(tc.in)
			require.NoError(t, err)
			assert.InDelta(t, tc.ticks, span.Ticks, 1e-9)
			assert.InDelta(t, tc.secs, span.Seconds, 1e-9)
		})
	}
}

func TestParseTimeRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "abc", "0:x:0", "1:2:3:4", "0n", "-1:0:0", "n"} {
		_, err := ParseTime(in)
		assert.ErrorIs(t, err, ErrBadTime, in)
	}
}

func TestSpanConversions(t *testing.T) {
	quarter := Span{Ticks: PPQ}
	assert.InDelta(t, 0.5, quarter.SecondsAt(120), 1e-9)
	half := Span{Seconds: 0.5}
	assert.InDelta(t, PPQ, half.TicksAt(120), 1e-9)
}

func TestPositionTicks(t *testing.T) {
	tick, err := PositionTicks("0:2:0", 124)
	require.NoError(t, err)
	assert.Equal(t, int64(2*PPQ), tick)

	for _, late := range []string{"2:0:0", "2m", "1e17m", "1e300"} {
		_, err := PositionTicks(late, 124)
		assert.ErrorIs(t, err, ErrBadTime, late)
	}
	tick, err = PositionTicks("1:3:3.9", 124)
	require.NoError(t, err)
	assert.Less(t, tick, int64(LoopTicks))
}

func TestParseDurationRejectsZero(t *testing.T) {
	_, err := ParseDuration("0")
	assert.ErrorIs(t, err, ErrBadDuration)
	_, err = ParseDuration("bogus")
	assert.ErrorIs(t, err, ErrBadDuration)
}

func TestMIDINote(t *testing.T) {
	cases := map[string]int{"C4": 60, "A4": 69, "C1": 24, "F#3": 54, "Bb1": 34, "Ebb2": 38, "C-1": 0, "g#2": 44}
	for in, want := range cases {
		got, err := MIDINote(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := MIDINote("H2")
	assert.ErrorIs(t, err, ErrBadPitch)
}

func TestFrequency(t *testing.T) {
	f, err := Frequency("A4")
	require.NoError(t, err)
	assert.InDelta(t, 440, f, 1e-9)

	f, err = Frequency("220hz")
	require.NoError(t, err)
	assert.InDelta(t, 220, f, 1e-9)

	_, err = Frequency("loud")
	assert.ErrorIs(t, err, ErrBadPitch)

	assert.Equal(t, 60, FreqToMIDI(MIDIToFreq(60)))
	assert.False(t, math.IsNaN(MIDIToFreq(0)))
}
