package main

import (
	"github.com/foufoujoujou/chip8/chip8"
	"github.com/retroenv/retrogolib/log"
	"github.com/veandco/go-sdl2/sdl"
)

var (
	/// Mapping of modern keyboard to CHIP-8 keys.
	///
	KeyMap = map[sdl.Scancode]uint{
		sdl.SCANCODE_X: 0x0,
		sdl.SCANCODE_1: 0x1,
		sdl.SCANCODE_2: 0x2,
		sdl.SCANCODE_3: 0x3,
		sdl.SCANCODE_Q: 0x4,
		sdl.SCANCODE_W: 0x5,
		sdl.SCANCODE_E: 0x6,
		sdl.SCANCODE_A: 0x7,
		sdl.SCANCODE_S: 0x8,
		sdl.SCANCODE_D: 0x9,
		sdl.SCANCODE_Z: 0xA,
		sdl.SCANCODE_C: 0xB,
		sdl.SCANCODE_4: 0xC,
		sdl.SCANCODE_R: 0xD,
		sdl.SCANCODE_F: 0xE,
		sdl.SCANCODE_V: 0xF,
	}
)

/// Poll events from SDL and map keys to the CHIP-8 keypad. Returns true
/// once the window is closed or escape is pressed.
///
func (win *Window) Poll(keys *chip8.Keypad) (bool, error) {
	for e := sdl.PollEvent(); e != nil; e = sdl.PollEvent() {
		switch ev := e.(type) {
		case *sdl.QuitEvent:
			return true, nil
		case *sdl.KeyboardEvent:
			if key, ok := KeyMap[ev.Keysym.Scancode]; ok {
				if ev.Type == sdl.KEYDOWN {
					keys.Press(key)
				} else {
					keys.Release(key)
				}
				continue
			}

			if ev.Type != sdl.KEYDOWN || ev.Repeat != 0 {
				continue
			}

			switch ev.Keysym.Scancode {
			case sdl.SCANCODE_ESCAPE:
				return true, nil
			case sdl.SCANCODE_BACKSPACE:
				win.logger.Info("Reset")
				win.vm.Reset()
			case sdl.SCANCODE_F5, sdl.SCANCODE_SPACE:
				win.paused = !win.paused

				if win.paused {
					win.logger.Info("Paused", log.Uint16("pc", win.vm.PC))
					win.window.SetTitle("CHIP-8 (paused)")
				} else {
					win.logger.Info("Resumed")
					win.window.SetTitle("CHIP-8")
				}
			}
		}
	}

	return false, nil
}
