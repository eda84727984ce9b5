package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/foufoujoujou/chip8/chip8"
	"github.com/retroenv/retrogolib/log"
	"golang.org/x/term"
)

/// Frames a key stays down after it was typed. Terminals don't report
/// key releases.
///
const holdFrames = 6

var (
	/// Mapping of typed characters to CHIP-8 keys, same layout as KeyMap.
	///
	TermKeyMap = map[byte]uint{
		'x': 0x0,
		'1': 0x1,
		'2': 0x2,
		'3': 0x3,
		'q': 0x4,
		'w': 0x5,
		'e': 0x6,
		'a': 0x7,
		's': 0x8,
		'd': 0x9,
		'z': 0xA,
		'c': 0xB,
		'4': 0xC,
		'r': 0xD,
		'f': 0xE,
		'v': 0xF,
	}
)

/// Escape sequence parsing state.
///
type escState uint8

const (
	escNone escState = iota
	escStart
	escSequence
)

/// Terminal is the text backend: raw stdin for the keypad and the video
/// memory drawn with half blocks, two pixel rows per line.
///
type Terminal struct {
	out io.Writer
	buf bytes.Buffer

	// raw mode state restored on close
	fd    int
	state *term.State

	// bytes read from stdin
	keys chan byte

	// frames left before each held key is released
	held [chip8.KeyCount]int

	esc    escState
	vm     *chip8.CHIP_8
	beeper beeper
	logger *log.Logger
	paused bool
}

/// Switch the terminal to raw mode and start reading keys.
///
func openTerminal(vm *chip8.CHIP_8, opts Options, logger *log.Logger) (*Terminal, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil, errors.New("stdin is not a terminal")
	}

	state, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("setting raw mode: %w", err)
	}

	t := newTerminal(os.Stdout, vm, logger)
	t.fd = fd
	t.state = state

	go t.read(os.Stdin)

	if !opts.Mute {
		if t.beeper, err = openOto(); err != nil {
			logger.Warn("Sound disabled", log.Err(err))
		}
	}

	// hide the cursor and clear the screen
	_, _ = fmt.Fprint(t.out, "\x1b[?25l\x1b[2J")

	return t, nil
}

func newTerminal(out io.Writer, vm *chip8.CHIP_8, logger *log.Logger) *Terminal {
	return &Terminal{
		out:    out,
		keys:   make(chan byte, 64),
		vm:     vm,
		logger: logger,
	}
}

/// Forward bytes from stdin until it's closed.
///
func (t *Terminal) read(r io.Reader) {
	buf := make([]byte, 64)

	for {
		n, err := r.Read(buf)
		for _, b := range buf[:n] {
			t.keys <- b
		}

		if err != nil {
			close(t.keys)
			return
		}
	}
}

/// Poll typed keys into the keypad. Returns true on ctrl-c, on escape
/// one frame later, or once stdin is closed.
///
func (t *Terminal) Poll(keys *chip8.Keypad) (bool, error) {
	for k := range t.held {
		if t.held[k] > 0 {
			if t.held[k]--; t.held[k] == 0 {
				keys.Release(uint(k))
			}
		}
	}

	// an escape left over from the last frame
	pending := t.esc == escStart

	for {
		select {
		case b, ok := <-t.keys:
			if !ok {
				return true, nil
			}

			if t.key(b, keys) {
				return true, nil
			}

			pending = false
		default:
			// the rest of a sequence may still be on its way, so an
			// escape is only the escape key once a whole frame passed
			// with nothing after it
			return t.esc == escStart && pending, nil
		}
	}
}

/// Handle a single typed byte. Returns true to quit.
///
func (t *Terminal) key(b byte, keys *chip8.Keypad) bool {
	switch t.esc {
	case escStart:
		if b == '[' || b == 'O' {
			t.esc = escSequence
			return false
		}

		// escape followed by anything else
		return true
	case escSequence:
		// sequences end with a final byte in @-~
		if b >= 0x40 && b <= 0x7E {
			t.esc = escNone
		}
		return false
	}

	if b >= 'A' && b <= 'Z' {
		b += 'a' - 'A'
	}

	if key, ok := TermKeyMap[b]; ok {
		// typed again while still held is a new press
		if keys.Down(key) {
			keys.Release(key)
		}

		keys.Press(key)
		t.held[key] = holdFrames
		return false
	}

	switch b {
	case 0x03:
		return true
	case 0x1B:
		t.esc = escStart
	case 0x7F, 0x08:
		t.logger.Info("Reset")
		t.vm.Reset()
		t.held = [chip8.KeyCount]int{}
	case ' ':
		t.paused = !t.paused
		t.logger.Info("Paused", log.String("state", pauseState(t.paused)))
	}

	return false
}

/// Present the video memory and sound the tone while ST is set.
///
func (t *Terminal) Present(vm *chip8.CHIP_8) error {
	if t.beeper != nil {
		t.beeper.Tone(vm.ST > 0 && !t.paused)
	}

	t.buf.Reset()

	// draw from the top left corner every frame
	t.buf.WriteString("\x1b[H")

	for y := 0; y < chip8.Height; y += 2 {
		for x := range chip8.Width {
			t.buf.WriteString(halfBlock(vm.Pixel(x, y), vm.Pixel(x, y+1)))
		}

		t.buf.WriteString("\r\n")
	}

	fmt.Fprintf(&t.buf, "PC %04X  I %04X  DT %02X  ST %02X  %-8s\r\n", vm.PC, vm.I, vm.DT, vm.ST, pauseState(t.paused))

	_, err := t.out.Write(t.buf.Bytes())
	return err
}

/// Paused is true while the user has paused emulation.
///
func (t *Terminal) Paused() bool {
	return t.paused
}

/// Close restores the terminal.
///
func (t *Terminal) Close() error {
	if t.beeper != nil {
		_ = t.beeper.Close()
	}

	// show the cursor again
	_, _ = fmt.Fprint(t.out, "\x1b[?25h\r\n")

	if t.state != nil {
		return term.Restore(t.fd, t.state)
	}

	return nil
}

/// The character showing two vertically stacked pixels.
///
func halfBlock(top, bottom byte) string {
	switch {
	case top != 0 && bottom != 0:
		return "█"
	case top != 0:
		return "▀"
	case bottom != 0:
		return "▄"
	}

	return " "
}

func pauseState(paused bool) string {
	if paused {
		return "paused"
	}

	return "running"
}
