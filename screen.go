package main

import (
	"fmt"

	"github.com/foufoujoujou/chip8/chip8"
	"github.com/retroenv/retrogolib/log"
	"github.com/veandco/go-sdl2/sdl"
)

/// Window is the SDL backend: a window the video memory is scaled into,
/// the keyboard, and a tone for the sound timer.
///
type Window struct {
	window   *sdl.Window
	renderer *sdl.Renderer

	// render target the size of the video memory
	screen *sdl.Texture

	// scaled size of the screen in the window
	w, h int32

	vm     *chip8.CHIP_8
	beeper beeper
	logger *log.Logger
	paused bool
}

/// Open the SDL window for a virtual machine.
///
func openWindow(vm *chip8.CHIP_8, opts Options, logger *log.Logger) (*Window, error) {
	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_AUDIO); err != nil {
		return nil, fmt.Errorf("initializing sdl: %w", err)
	}

	win := &Window{
		w:      int32(chip8.Width * opts.Scale),
		h:      int32(chip8.Height * opts.Scale),
		vm:     vm,
		logger: logger,
	}

	var err error

	win.window, err = sdl.CreateWindow("CHIP-8", int32(sdl.WINDOWPOS_CENTERED), int32(sdl.WINDOWPOS_CENTERED), win.w, win.h, uint32(sdl.WINDOW_SHOWN))
	if err != nil {
		sdl.Quit()
		return nil, fmt.Errorf("creating window: %w", err)
	}

	win.renderer, err = sdl.CreateRenderer(win.window, -1, uint32(sdl.RENDERER_ACCELERATED))
	if err != nil {
		_ = win.Close()
		return nil, fmt.Errorf("creating renderer: %w", err)
	}

	// create a render target for the display
	win.screen, err = win.renderer.CreateTexture(uint32(sdl.PIXELFORMAT_RGB888), int(sdl.TEXTUREACCESS_TARGET), chip8.Width, chip8.Height)
	if err != nil {
		_ = win.Close()
		return nil, fmt.Errorf("creating screen: %w", err)
	}

	if !opts.Mute {
		if win.beeper, err = openAudio(logger); err != nil {
			logger.Warn("Sound disabled", log.Err(err))
		}
	}

	return win, nil
}

/// Present the video memory, and sound the tone while ST is set.
///
func (win *Window) Present(vm *chip8.CHIP_8) error {
	if win.beeper != nil {
		win.beeper.Tone(vm.ST > 0 && !win.paused)
	}

	if err := win.refreshScreen(vm); err != nil {
		return err
	}

	if err := win.renderer.SetDrawColor(0, 0, 0, 255); err != nil {
		return err
	}
	if err := win.renderer.Clear(); err != nil {
		return err
	}

	// stretch the render target to fit
	if err := win.renderer.Copy(win.screen, nil, &sdl.Rect{W: win.w, H: win.h}); err != nil {
		return err
	}

	win.renderer.Present()
	return nil
}

/// Redraw the render target from the video memory.
///
func (win *Window) refreshScreen(vm *chip8.CHIP_8) error {
	if err := win.renderer.SetRenderTarget(win.screen); err != nil {
		return err
	}

	// restore the render target
	defer func() {
		_ = win.renderer.SetRenderTarget(nil)
	}()

	// the background color for the screen
	if err := win.renderer.SetDrawColor(143, 145, 133, 255); err != nil {
		return err
	}
	if err := win.renderer.Clear(); err != nil {
		return err
	}

	// set the pixel color
	if err := win.renderer.SetDrawColor(17, 29, 43, 255); err != nil {
		return err
	}

	for y := range chip8.Height {
		for x := range chip8.Width {
			if vm.Pixel(x, y) == 0 {
				continue
			}

			if err := win.renderer.DrawPoint(int32(x), int32(y)); err != nil {
				return err
			}
		}
	}

	return nil
}

/// Paused is true while the user has paused emulation.
///
func (win *Window) Paused() bool {
	return win.paused
}

/// Close the window and shut down SDL.
///
func (win *Window) Close() error {
	if win.beeper != nil {
		_ = win.beeper.Close()
	}
	if win.screen != nil {
		_ = win.screen.Destroy()
	}
	if win.renderer != nil {
		_ = win.renderer.Destroy()
	}
	if win.window != nil {
		_ = win.window.Destroy()
	}

	sdl.Quit()
	return nil
}
