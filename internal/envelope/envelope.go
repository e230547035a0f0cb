package envelope

import (
	"errors"
	"math"
)

type Stage int

const (
	Idle Stage = iota
	Attack
	Decay
	Sustain
	Release
)

// ADSR holds stage times in seconds and the sustain level (0..1).
type ADSR struct {
	Attack  float64
	Decay   float64
	Sustain float64
	Release float64
}

func (a ADSR) Validate() error {
	for _, v := range []float64{a.Attack, a.Decay, a.Release} {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.New("envelope times must be finite and non-negative")
		}
	}
	if a.Sustain < 0 || a.Sustain > 1 || math.IsNaN(a.Sustain) {
		return errors.New("envelope sustain must be within 0..1")
	}
	return nil
}

// Env is a linear ADSR generator advanced one frame at a time.
type Env struct {
	adsr        ADSR
	sampleRate  float64
	stage       Stage
	level       float64
	releaseStep float64
}

func New(sampleRate int, adsr ADSR) Env {
	return Env{adsr: adsr, sampleRate: float64(sampleRate)}
}

// Trigger restarts the attack from the current level so retriggers do not click.
func (e *Env) Trigger() {
	e.stage = Attack
}

func (e *Env) Release() {
	if e.stage == Idle || e.stage == Release {
		return
	}
	e.stage = Release
	frames := e.adsr.Release * e.sampleRate
	if frames < 1 {
		frames = 1
	}
	e.releaseStep = e.level / frames
}

func (e *Env) Reset() {
	e.stage = Idle
	e.level = 0
}

func (e *Env) Stage() Stage   { return e.stage }
func (e *Env) Level() float64 { return e.level }
func (e *Env) Active() bool   { return e.stage != Idle }

// Next advances one frame and returns the new level.
func (e *Env) Next() float64 {
	switch e.stage {
	case Attack:
		e.level += e.step(1, e.adsr.Attack)
		if e.level >= 1 {
			e.level = 1
			e.stage = Decay
		}
	case Decay:
		e.level -= e.step(1-e.adsr.Sustain, e.adsr.Decay)
		if e.level <= e.adsr.Sustain {
			e.level = e.adsr.Sustain
			e.stage = Sustain
			if e.level <= 0 {
				e.stage = Idle
			}
		}
	case Sustain:
		e.level = e.adsr.Sustain
	case Release:
		e.level -= e.releaseStep
		if e.level <= 0.0001 {
			e.level = 0
			e.stage = Idle
		}
	case Idle:
		e.level = 0
	}
	return e.level
}

func (e *Env) step(span, sec float64) float64 {
	frames := sec * e.sampleRate
	if frames < 1 {
		return span + 1
	}
	return span / frames
}
