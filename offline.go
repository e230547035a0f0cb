package loopgen

import (
	"encoding/binary"
	"log"
	"math"
	"time"

	"github.com/cbegin/loopgen-go/internal/loop"
	"github.com/cbegin/loopgen-go/internal/scheduler"
)

// ExportDuration is the length of two bars at bpm. Non-positive tempos use
// the default.
func ExportDuration(bpm float64) time.Duration {
	if bpm <= 0 || math.IsNaN(bpm) || math.IsInf(bpm, 0) {
		bpm = loop.DefaultBPM
	}
	seconds := 60 / bpm * loop.BeatsPerBar * loop.Bars
	return time.Duration(seconds * float64(time.Second))
}

func durationFrames(d time.Duration, sampleRate int) int64 {
	return int64(math.Round(d.Seconds() * float64(sampleRate)))
}

// RenderLoop renders l from the top of the loop for the given number of
// seconds through a private graph, without an output device.
func RenderLoop(l *loop.Loop, sampleRate int, seconds float64) []float32 {
	g := newGraph(sampleRate, scheduler.DefaultHumanize, log.Default(), scheduler.Options{})
	g.bus.Prepare()
	g.sched.Load(l.Clone())
	g.clock.Start()
	frames := int(float64(sampleRate) * seconds)
	out := make([]float32, frames*2)
	g.render(out)
	return out
}

func EncodeWAVFloat32LE(samples []float32, sampleRate int, channels int) []byte {
	dataSize := len(samples) * 4
	byteRate := sampleRate * channels * 4
	blockAlign := channels * 4
	chunkSize := 36 + dataSize
	out := make([]byte, 44+dataSize)
	copy(out[0:], []byte("RIFF"))
	binary.LittleEndian.PutUint32(out[4:], uint32(chunkSize))
	copy(out[8:], []byte("WAVE"))
	copy(out[12:], []byte("fmt "))
	binary.LittleEndian.PutUint32(out[16:], 16)
	binary.LittleEndian.PutUint16(out[20:], 3)
	binary.LittleEndian.PutUint16(out[22:], uint16(channels))
	binary.LittleEndian.PutUint32(out[24:], uint32(sampleRate))
	binary.LittleEndian.PutUint32(out[28:], uint32(byteRate))
	binary.LittleEndian.PutUint16(out[32:], uint16(blockAlign))
	binary.LittleEndian.PutUint16(out[34:], 32)
	copy(out[36:], []byte("data"))
	binary.LittleEndian.PutUint32(out[40:], uint32(dataSize))
	for i, s := range samples {
		binary.LittleEndian.PutUint32(out[44+i*4:], math.Float32bits(s))
	}
	return out
}
