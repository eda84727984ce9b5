package main

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/ebitengine/oto/v3"
)

/// Square wave streamed to oto for the terminal backend, which has no
/// SDL audio device.
///
type otoBeeper struct {
	ctx    *oto.Context
	player *oto.Player

	// set from the frame loop, read by the audio thread
	on atomic.Bool

	// sample position within the wave, audio thread only
	phase int
}

/// Open the default audio output with oto.
///
func openOto() (beeper, error) {
	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 1,
		Format:       oto.FormatFloat32LE,
		BufferSize:   50 * time.Millisecond,
	}

	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("opening audio output: %w", err)
	}
	<-ready

	b := &otoBeeper{ctx: ctx}
	b.player = ctx.NewPlayer(b)
	b.player.Play()

	return b, nil
}

/// Tone turns the square wave on or off.
///
func (b *otoBeeper) Tone(on bool) {
	b.on.Store(on)
}

/// Read fills the player with float samples, silence while off.
///
func (b *otoBeeper) Read(p []byte) (int, error) {
	n := len(p) / 4
	on := b.on.Load()

	for i := range n {
		b.phase = (b.phase + 1) % (sampleRate / toneFreq)

		var v float32
		if on {
			v = squareSample(b.phase, sampleRate/toneFreq)
		}

		binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(v))
	}

	return n * 4, nil
}

/// Close the player.
///
func (b *otoBeeper) Close() error {
	return b.player.Close()
}

/// A single sample of a square wave at a phase within its period.
///
func squareSample(phase, period int) float32 {
	if phase < period/2 {
		return toneVolume / 128.0
	}

	return -toneVolume / 128.0
}
