package loop

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const houseLoop = `{
  "name": "Deep  House Ref",
  "bpm": 124,
  "key": "F Minor",
  "description": "driving",
  "tracks": [
    {"id": "k", "type": "kick", "name": "Kick", "notes": [
      {"time": "0:0:0", "note": "C1", "duration": "4n", "velocity": 1},
      {"time": "0:1:0", "note": "C1", "duration": "4n", "velocity": 1}
    ]},
    {"id": "", "type": "hihat", "name": "Hat", "notes": []},
    {"id": "k", "type": "bass", "name": "Bass", "notes": [
      {"time": "0:0:2", "note": "F1", "duration": "8n", "velocity": 0.8}
    ]}
  ]
}`

func TestDecodeParsesLoop(t *testing.T) {
	l, err := DecodeString(houseLoop)
	require.NoError(t, err)
	assert.Equal(t, "Deep  House Ref", l.Name)
	assert.Equal(t, 124.0, l.Tempo())
	require.Len(t, l.Tracks, 3)
	assert.Equal(t, Kick, l.Tracks[0].Type)
	assert.Len(t, l.Tracks[0].Notes, 2)
}

func TestDecodeRejectsMissingTracks(t *testing.T) {
	_, err := DecodeString(`{"name": "x", "bpm": 120, "key": "C"}`)
	require.ErrorIs(t, err, ErrInvalidLoop)

	_, err = DecodeString(`not json`)
	require.ErrorIs(t, err, ErrInvalidLoop)
}

func TestDecodeAllowsUnknownType(t *testing.T) {
	l, err := DecodeString(`{"name":"x","bpm":90,"key":"C","tracks":[{"id":"a","type":"theremin","name":"?","notes":[]}]}`)
	require.NoError(t, err)
	assert.False(t, l.Tracks[0].Type.Known())
}

func TestTempoDefaults(t *testing.T) {
	for _, bpm := range []float64{0, -10, math.NaN(), math.Inf(-1)} {
		l := &Loop{BPM: bpm}
		assert.Equal(t, DefaultBPM, l.Tempo())
	}
	for bpm, want := range map[float64]float64{
		1e8:         MaxBPM,
		math.Inf(1): MaxBPM,
		401:         MaxBPM,
		5:           MinBPM,
		174:         174,
	} {
		l := &Loop{BPM: bpm}
		assert.Equal(t, want, l.Tempo(), bpm)
	}
	var nilLoop *Loop
	assert.Equal(t, DefaultBPM, nilLoop.Tempo())
}

func TestRepairIDsFillsMissingAndDuplicate(t *testing.T) {
	l, err := DecodeString(houseLoop)
	require.NoError(t, err)
	l.RepairIDs()

	assert.Equal(t, "k", l.Tracks[0].ID)
	assert.True(t, strings.HasPrefix(l.Tracks[1].ID, "track-1-"))
	assert.True(t, strings.HasPrefix(l.Tracks[2].ID, "track-2-"))
	assert.NotEqual(t, l.Tracks[1].ID, l.Tracks[2].ID)
}

func TestFileNameCollapsesWhitespace(t *testing.T) {
	assert.Equal(t, "Deep-House-Ref.wav", (&Loop{Name: "Deep  House\tRef"}).FileName(".wav"))
	assert.Equal(t, "loop.mid", (&Loop{Name: "  "}).FileName(".mid"))
}

func TestCloneIsIndependent(t *testing.T) {
	l, err := DecodeString(houseLoop)
	require.NoError(t, err)
	c := l.Clone()
	c.Tracks[0].Muted = true
	c.Tracks[0].Notes[0].Velocity = 0.1
	assert.False(t, l.Tracks[0].Muted)
	assert.Equal(t, 1.0, l.Tracks[0].Notes[0].Velocity)
}
