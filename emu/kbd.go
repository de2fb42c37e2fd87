package emu

// matrixOverlay is the set of matrix contacts one key closes, one line
// bitmask per column.
type matrixOverlay [8]uint8

const (
	kbdMaxPressed   = 4
	kbdStickyFrames = 3
)

type pressedKey struct {
	code     uint8
	overlay  matrixOverlay
	frame    int
	released bool
}

// Keyboard tracks the 8x8 key matrix. Key presses stay active for a few
// frames even when released immediately, so that short host key events
// survive long enough for the OS keyboard scan to see them.
type Keyboard struct {
	keys    [256]matrixOverlay
	pressed [kbdMaxPressed]pressedKey

	activeColumns uint8
	activeLines   uint8

	frame       int
	frameMicros int
	microsAcc   int
}

// NewKeyboard creates a matrix driver whose sticky-key frame length is
// frameMicros microseconds.
func NewKeyboard(frameMicros int) *Keyboard {
	return &Keyboard{
		keys:        buildKeymap(),
		frameMicros: frameMicros,
	}
}

// KeyDown presses the key with the given code. Unknown codes and
// overflow beyond the pressed-key slots are ignored.
func (k *Keyboard) KeyDown(code uint8) {
	overlay := k.keys[code]
	if overlay == (matrixOverlay{}) {
		return
	}
	for i := range k.pressed {
		if k.pressed[i].code == code && !k.pressed[i].released {
			return
		}
	}
	for i := range k.pressed {
		if k.pressed[i].code == 0 {
			k.pressed[i] = pressedKey{code: code, overlay: overlay, frame: k.frame}
			return
		}
	}
}

// KeyUp releases the key. The matrix contact opens once the key has been
// held for the sticky frame count.
func (k *Keyboard) KeyUp(code uint8) {
	for i := range k.pressed {
		if k.pressed[i].code == code {
			k.pressed[i].released = true
		}
	}
}

// Update advances the sticky-key frame counter by micros microseconds of
// emulated time and drops released keys whose sticky period has passed.
func (k *Keyboard) Update(micros int) {
	k.microsAcc += micros
	for k.microsAcc >= k.frameMicros {
		k.microsAcc -= k.frameMicros
		k.frame++
	}
	for i := range k.pressed {
		p := &k.pressed[i]
		if p.code != 0 && p.released && k.frame >= p.frame+kbdStickyFrames {
			*p = pressedKey{}
		}
	}
}

// SetActiveColumns sets the column mask driven by the scanning side of
// the matrix.
func (k *Keyboard) SetActiveColumns(columns uint8) {
	k.activeColumns = columns
}

// SetActiveLines sets the line mask for reverse scanning.
func (k *Keyboard) SetActiveLines(lines uint8) {
	k.activeLines = lines
}

// ScanLines returns the line bits pulled active by pressed keys in the
// currently active columns.
func (k *Keyboard) ScanLines() uint8 {
	var lines uint8
	for i := range k.pressed {
		p := &k.pressed[i]
		if p.code == 0 {
			continue
		}
		for col := 0; col < 8; col++ {
			if k.activeColumns&(1<<col) != 0 {
				lines |= p.overlay[col]
			}
		}
	}
	return lines
}

// ScanColumns returns the column bits connected to the currently active
// lines through pressed keys, for scanning the matrix in the other
// direction.
func (k *Keyboard) ScanColumns() uint8 {
	var columns uint8
	for i := range k.pressed {
		p := &k.pressed[i]
		if p.code == 0 {
			continue
		}
		for col := 0; col < 8; col++ {
			if p.overlay[col]&k.activeLines != 0 {
				columns |= 1 << col
			}
		}
	}
	return columns
}

func (k *Keyboard) Reset() {
	k.pressed = [kbdMaxPressed]pressedKey{}
	k.activeColumns = 0
	k.activeLines = 0
	k.frame = 0
	k.microsAcc = 0
}
