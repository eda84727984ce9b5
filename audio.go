package main

import (
	"fmt"

	"github.com/retroenv/retrogolib/log"
	"github.com/veandco/go-sdl2/sdl"
)

const (
	/// Sample rate of the tone, and the pitch it's played at.
	///
	sampleRate = 44100
	toneFreq   = 441

	/// Tone amplitude above or below silence.
	///
	toneVolume = 32
)

/// beeper sounds a constant tone while the sound timer is set.
///
type beeper interface {
	Tone(on bool)
	Close() error
}

/// SDL audio device playing a square wave from a queue.
///
type sdlBeeper struct {
	id sdl.AudioDeviceID

	// a whole number of periods of the wave, about a frame long
	wave []byte

	// sdl queue calls, swapped out in tests
	queue  func(sdl.AudioDeviceID, []byte) error
	queued func(sdl.AudioDeviceID) uint32

	// set once queueing failed, the beeper stays silent after that
	failed bool
	logger *log.Logger
}

/// Initialize an audio device for the CHIP-8 sound timer.
///
func openAudio(logger *log.Logger) (beeper, error) {
	spec := &sdl.AudioSpec{
		Freq:     sampleRate,
		Format:   sdl.AUDIO_U8,
		Channels: 1,
		Samples:  512,
	}

	var actual sdl.AudioSpec

	id, err := sdl.OpenAudioDevice("", false, spec, &actual, 0)
	if err != nil {
		return nil, fmt.Errorf("opening audio device: %w", err)
	}

	b := &sdlBeeper{
		id:     id,
		wave:   squareWave(actual.Silence, sampleRate/toneFreq, 8),
		queue:  sdl.QueueAudio,
		queued: sdl.GetQueuedAudioSize,
		logger: logger,
	}

	// start playing the queue immediately, it's empty until a tone
	sdl.PauseAudioDevice(id, false)

	return b, nil
}

/// Tone keeps the queue topped up while on, and drains it when off.
///
func (b *sdlBeeper) Tone(on bool) {
	if b.failed {
		return
	}

	if !on {
		sdl.ClearQueuedAudio(b.id)
		return
	}

	// keep about two frames worth queued
	if b.queued(b.id) < uint32(2*len(b.wave)) {
		if err := b.queue(b.id, b.wave); err != nil {
			b.logger.Warn("Sound disabled", log.Err(err))
			b.failed = true
		}
	}
}

/// Close the audio device.
///
func (b *sdlBeeper) Close() error {
	sdl.CloseAudioDevice(b.id)
	return nil
}

/// Create n periods of an unsigned 8-bit square wave around silence.
///
func squareWave(silence byte, period, n int) []byte {
	wave := make([]byte, 0, period*n)

	for range n {
		for i := range period {
			if i < period/2 {
				wave = append(wave, silence+toneVolume)
			} else {
				wave = append(wave, silence-toneVolume)
			}
		}
	}

	return wave
}
