package emu

import "testing"

func TestVideo_Decode8Pixels(t *testing.T) {
	var dst [8]uint8

	// Alternating bits, white on black
	decode8Pixels(dst[:], 0xAA, 0x70)
	want := [8]uint8{7, 0, 7, 0, 7, 0, 7, 0}
	if dst != want {
		t.Errorf("0xAA decode: expected %v, got %v", want, dst)
	}

	// All foreground
	decode8Pixels(dst[:], 0xFF, 0x70)
	for i, px := range dst {
		if px != 7 {
			t.Errorf("0xFF decode pixel %d: expected 7, got %d", i, px)
		}
	}

	// All background
	decode8Pixels(dst[:], 0x00, 0x72)
	for i, px := range dst {
		if px != 2 {
			t.Errorf("0x00 decode pixel %d: expected 2, got %d", i, px)
		}
	}

	// MSB is the leftmost pixel
	decode8Pixels(dst[:], 0x80, 0x30)
	if dst[0] != 3 {
		t.Errorf("Leftmost pixel: expected 3, got %d", dst[0])
	}
	for i := 1; i < 8; i++ {
		if dst[i] != 0 {
			t.Errorf("Pixel %d: expected 0, got %d", i, dst[i])
		}
	}
}

func TestVideo_GlyphRender(t *testing.T) {
	m := newTestMachine(t, ModelKC87)

	// Install a recognizable glyph for 'A' and put it in the top-left
	// character cell, green on black
	rows := [8]uint8{0x18, 0x24, 0x42, 0x7E, 0x42, 0x42, 0x42, 0x00}
	copy(m.romFont[0x41*8:], rows[:])
	m.mem.Write(0xEC00, 0x41)
	m.mem.Write(0xE800, 0x20)

	m.decodeFramebuffer()

	fb := m.Framebuffer()
	for py := 0; py < 8; py++ {
		row := fb[py*FramebufferWidth : py*FramebufferWidth+8]
		for px := 0; px < 8; px++ {
			want := uint8(0)
			if rows[py]&(0x80>>px) != 0 {
				want = 2
			}
			if row[px] != want {
				t.Errorf("Pixel (%d,%d): expected %d, got %d", px, py, want, row[px])
			}
		}
	}
}

func TestVideo_BlinkAttribute(t *testing.T) {
	m := newTestMachine(t, ModelKC87)

	copy(m.romFont[0x41*8:], []uint8{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF})
	m.mem.Write(0xEC00, 0x41)
	m.mem.Write(0xE800, 0xA3) // blink, purple on yellow

	// Flip-flop low: normal colors
	m.blinkFlipFlop = 0
	m.decodeFramebuffer()
	if got := m.Framebuffer()[0]; got != 2 {
		t.Errorf("Foreground with blink low: expected 2, got %d", got)
	}

	// Flip-flop high: foreground and background swap
	m.blinkFlipFlop = 0x80
	m.decodeFramebuffer()
	if got := m.Framebuffer()[0]; got != 3 {
		t.Errorf("Foreground with blink high: expected 3, got %d", got)
	}
}

func TestVideo_Z9001Monochrome(t *testing.T) {
	m := newTestMachine(t, ModelZ9001)

	copy(m.romFont[0x41*8:], []uint8{0xAA, 0, 0, 0, 0, 0, 0, 0})
	m.mem.Write(0xEC00, 0x41)

	m.decodeFramebuffer()
	fb := m.Framebuffer()
	if fb[0] != 7 || fb[1] != 0 {
		t.Errorf("Monochrome decode: expected 7,0, got %d,%d", fb[0], fb[1])
	}
}

func TestVideo_CellAddressing(t *testing.T) {
	m := newTestMachine(t, ModelKC87)

	// Solid glyph in the last cell of the second row
	copy(m.romFont[0x42*8:], []uint8{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF})
	m.mem.Write(0xEC00+40+39, 0x42)
	m.mem.Write(0xE800+40+39, 0x70)
	// Blank everywhere else
	m.mem.Write(0xEC00, 0x00)

	m.decodeFramebuffer()
	fb := m.Framebuffer()

	// Scanline 8 is the first line of character row 1
	const x = 39 * 8
	if got := fb[8*FramebufferWidth+x]; got != 7 {
		t.Errorf("Cell (39,1): expected 7, got %d", got)
	}
}

func TestVideo_PaletteSize(t *testing.T) {
	if len(Palette) != 8 {
		t.Errorf("Palette must have 8 entries, got %d", len(Palette))
	}
	if Palette[0] != 0xFF000000 {
		t.Errorf("Palette entry 0 should be opaque black, got 0x%08X", Palette[0])
	}
	if Palette[7] != 0xFFFFFFFF {
		t.Errorf("Palette entry 7 should be white, got 0x%08X", Palette[7])
	}
}
