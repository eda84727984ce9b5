package chip8

/// KeyCount is the number of keys on the hex keypad.
///
const KeyCount = 16

/// Keypad is the latch for the 16-key hex keypad. The host's input
/// source writes it, and the CPU reads it.
///
type Keypad struct {
	down [KeyCount]bool

	// hit records keys pressed since the key wait last sampled them, so
	// a tap shorter than a frame is never lost
	hit [KeyCount]bool
}

/// Press marks a key as down.
///
func (k *Keypad) Press(key uint) {
	if key < KeyCount {
		if !k.down[key] {
			k.hit[key] = true
		}

		k.down[key] = true
	}
}

/// Release marks a key as up.
///
func (k *Keypad) Release(key uint) {
	if key < KeyCount {
		k.down[key] = false
	}
}

/// Set the state of every key at once.
///
func (k *Keypad) Set(state [KeyCount]bool) {
	for key, down := range state {
		if down {
			k.Press(uint(key))
		} else {
			k.Release(uint(key))
		}
	}
}

/// Down is true if the key is currently held.
///
func (k *Keypad) Down(key uint) bool {
	return key < KeyCount && k.down[key]
}

/// State returns a copy of the latch.
///
func (k *Keypad) State() [KeyCount]bool {
	return k.down
}

/// forget any pressed edges seen so far.
///
func (k *Keypad) clearHits() {
	k.hit = [KeyCount]bool{}
}

/// take the lowest key that went down since the last sample.
///
func (k *Keypad) takeHit() (uint, bool) {
	for key, hit := range k.hit {
		if hit {
			k.clearHits()
			return uint(key), true
		}
	}

	return 0, false
}
