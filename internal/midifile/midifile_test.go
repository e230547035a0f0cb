package midifile

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/cbegin/loopgen-go/internal/loop"
)

type noteOn struct {
	tick uint32
	ch   uint8
	key  uint8
	vel  uint8
}

func readNoteOns(t *testing.T, data []byte) (*smf.SMF, [][]noteOn) {
	t.Helper()
	rd, err := smf.ReadFrom(bytes.NewReader(data))
	require.NoError(t, err)
	out := make([][]noteOn, len(rd.Tracks))
	for i, tr := range rd.Tracks {
		var abs uint32
		for _, ev := range tr {
			abs += ev.Delta
			var ch, key, vel uint8
			if midi.Message(ev.Message).GetNoteStart(&ch, &key, &vel) {
				out[i] = append(out[i], noteOn{abs, ch, key, vel})
			}
		}
	}
	return rd, out
}

func TestEncodeLoop(t *testing.T) {
	l := &loop.Loop{
		Name: "Groove",
		BPM:  124,
		Tracks: []loop.Track{
			{ID: "k", Type: loop.Kick, Notes: []loop.NoteEvent{
				{Time: "0:0:0", Note: "C1", Duration: "8n", Velocity: 1},
				{Time: "1:0:0", Note: "C1", Duration: "8n", Velocity: 0.5},
			}},
			{ID: "b", Type: loop.Bass, Notes: []loop.NoteEvent{
				{Time: "0:2:0", Note: "E1", Duration: "4n", Velocity: 0.8},
				{Time: "0:0:2", Note: "A1", Duration: "16n", Velocity: 1.4},
			}},
		},
	}
	data, err := Encode(l)
	require.NoError(t, err)

	rd, notes := readNoteOns(t, data)
	require.Len(t, rd.Tracks, 3)

	tempos := rd.TempoChanges()
	require.NotEmpty(t, tempos)
	assert.InDelta(t, 124, tempos[0].BPM, 0.01)

	assert.Equal(t, []noteOn{
		{0, DrumChannel, 36, 127},
		{loop.TicksPerBar, DrumChannel, 36, 64},
	}, notes[1])

	// bass notes come out in time order on the first melodic channel
	assert.Equal(t, []noteOn{
		{96, 0, 33, 127},
		{384, 0, 28, 102},
	}, notes[2])
}

func TestEncodeSkipsBadNotes(t *testing.T) {
	l := &loop.Loop{BPM: 120, Tracks: []loop.Track{
		{ID: "s", Type: loop.Synth, Notes: []loop.NoteEvent{
			{Time: "zz", Note: "C4", Duration: "4n", Velocity: 1},
			{Time: "0:0:0", Note: "H9", Duration: "4n", Velocity: 1},
			{Time: "0:0:0", Note: "C4", Duration: "bogus", Velocity: 1},
			{Time: "3:0:0", Note: "C4", Duration: "4n", Velocity: 1},
			{Time: "0:1:0", Note: "440hz", Duration: "4n", Velocity: 1},
		}},
	}}
	data, err := Encode(l)
	require.NoError(t, err)

	_, notes := readNoteOns(t, data)
	require.Len(t, notes[1], 1)
	assert.Equal(t, uint8(69), notes[1][0].key)
}

func TestEncodeNil(t *testing.T) {
	_, err := Encode(nil)
	assert.ErrorIs(t, err, loop.ErrInvalidLoop)
}
