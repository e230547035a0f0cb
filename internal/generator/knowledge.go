package generator

import (
	"encoding/json"
	"strings"

	"github.com/cbegin/loopgen-go/internal/loop"
)

// GenreTips is production guidance distilled from multitrack datasets.
const GenreTips = `
PRODUCTION KNOWLEDGE FROM DATASET ANALYSIS:
1. HOUSE/TECHNO:
   - Kick: steady 4/4 ("0:0:0", "0:1:0", "0:2:0", "0:3:0").
   - HiHats: Emphasize the "and" (off-beat: "0:0:2", "0:1:2"). Use velocity 0.3-0.5 for "ghost" hats in between.
   - Bass: Often avoids the "1" (downbeat) to let the kick breathe. Try placing bass notes on "0:0:2" or "0:0:3".

2. HIP HOP / TRAP:
   - Tempo: 70-95 BPM (Boom Bap) or 130-150 BPM (Trap half-time).
   - HiHats: Trap uses "32n" or "64n" rolls.
   - Snare: Hard on beat 3 (in 4/4 standard) or beat 2 & 4.

3. LO-FI:
   - Velocity: NEVER use 1.0 for everything. Randomize between 0.6 and 0.9.
   - Timing: Don't put everything exactly on grid.

4. INSTRUMENTATION:
   - Bass needs to be low (C1-C2).
   - Leads usually C3-C5.
   - Don't clutter. Less is more.
`

// ReferencePatterns are hand-checked loops shown to the model as examples.
var ReferencePatterns = []loop.Loop{
	{
		Name:        "Slakh_House_Ref_01",
		BPM:         124,
		Key:         "F Minor",
		Description: "Driving Deep House with ghost snares and off-beat bass",
		Tracks: []loop.Track{
			{ID: "ref_kick", Type: loop.Kick, Name: "Main Kick", Notes: []loop.NoteEvent{
				{Time: "0:0:0", Note: "C1", Duration: "4n", Velocity: 1},
				{Time: "0:1:0", Note: "C1", Duration: "4n", Velocity: 1},
				{Time: "0:2:0", Note: "C1", Duration: "4n", Velocity: 1},
				{Time: "0:3:0", Note: "C1", Duration: "4n", Velocity: 1},
			}},
			{ID: "ref_hh", Type: loop.HiHat, Name: "Off-beat Hat", Notes: []loop.NoteEvent{
				{Time: "0:0:2", Note: "C4", Duration: "16n", Velocity: 0.8},
				{Time: "0:1:0", Note: "C4", Duration: "16n", Velocity: 0.4}, // ghost
				{Time: "0:1:2", Note: "C4", Duration: "16n", Velocity: 0.9},
				{Time: "0:2:2", Note: "C4", Duration: "16n", Velocity: 0.8},
				{Time: "0:3:2", Note: "C4", Duration: "16n", Velocity: 0.9},
			}},
			{ID: "ref_bass", Type: loop.Bass, Name: "FM Bass", Notes: []loop.NoteEvent{
				{Time: "0:0:2", Note: "F1", Duration: "8n", Velocity: 0.8},
				{Time: "0:1:2", Note: "F1", Duration: "8n", Velocity: 0.6},
				{Time: "0:2:3", Note: "Ab1", Duration: "16n", Velocity: 0.9},
				{Time: "0:3:2", Note: "G1", Duration: "8n", Velocity: 0.7},
			}},
		},
	},
	{
		Name:        "Slakh_HipHop_Ref_04",
		BPM:         90,
		Key:         "C Minor",
		Description: "Boom Bap style with swing",
		Tracks: []loop.Track{
			{ID: "ref_kick_hh", Type: loop.Kick, Name: "Boom Kick", Notes: []loop.NoteEvent{
				{Time: "0:0:0", Note: "C1", Duration: "8n", Velocity: 1},
				{Time: "0:0:3", Note: "C1", Duration: "16n", Velocity: 0.7},
				{Time: "0:2:2", Note: "C1", Duration: "8n", Velocity: 0.9},
			}},
			{ID: "ref_snare_hh", Type: loop.Snare, Name: "Crisp Snare", Notes: []loop.NoteEvent{
				{Time: "0:1:0", Note: "D2", Duration: "8n", Velocity: 1},
				{Time: "0:3:0", Note: "D2", Duration: "8n", Velocity: 1},
				{Time: "0:3:3", Note: "D2", Duration: "16n", Velocity: 0.4}, // ghost
			}},
		},
	},
}

const instructionHead = `
You are an AI Music Producer with access to the Slakh2100 and MUSDB18-HQ datasets.
Your goal is to generate professional-quality audio loops as JSON parameters for a synthesis engine.

CRITICAL INSTRUCTIONS:
1. USE DATASET KNOWLEDGE: Do not generate generic, robotic MIDI. Use the production knowledge below to apply syncopation, ghost notes, and proper velocity dynamics.
2. VELOCITY DYNAMICS: Real drummers do not hit every drum at velocity 1.0. Use range 0.3 to 1.0 to create groove.
3. SOUND SELECTION:
   - 'kick': Deep, punchy (C1).
   - 'bass': Monophonic, rhythmic, low register (C1-C2).
   - 'snare': Sharp, often layered.
   - 'hihat': vary velocity significantly.
4. DO NOT BE BORING. If the user asks for "Techno", give them a driving, rumbling bassline, not just quarter notes.
`

const instructionFormat = `
Time format: "bar:quarter:sixteenth" (e.g., "0:0:0", "0:0:2"). Loops are 2 bars long.
Duration: "8n", "16n", "4n", "32n".

Here are High-Quality Reference Patterns from the dataset to guide your structure (you can adapt these):
`

// SystemInstruction assembles the model's standing instructions.
func SystemInstruction() string {
	refs, err := json.Marshal(ReferencePatterns)
	if err != nil {
		// static data; cannot fail
		panic(err)
	}
	var b strings.Builder
	b.WriteString(instructionHead)
	b.WriteString(GenreTips)
	b.WriteString(instructionFormat)
	b.Write(refs)
	b.WriteString("\n")
	return b.String()
}

// ContextPrompt frames the current request with the refinement history.
func ContextPrompt(req Request) string {
	var b strings.Builder
	b.WriteString("History of refinement:\n")
	b.WriteString(strings.Join(req.History, "\n"))
	b.WriteString("\n\nCurrent Request: ")
	b.WriteString(req.Prompt)
	b.WriteString("\n\nBased on the Slakh2100 dataset patterns, generate a high-quality loop.\nReturn strictly valid JSON.\n")
	return b.String()
}
