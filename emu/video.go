package emu

import (
	"encoding/binary"
)

// Framebuffer geometry. The decoded framebuffer is wider than the
// visible area; frontends present the top-left 320x192 window.
const (
	FramebufferWidth  = 512
	FramebufferHeight = 192
	DisplayWidth      = 320
	DisplayHeight     = 192
)

// Palette is the fixed 8-color hardware palette of the color video
// board, as RGBA. Framebuffer bytes index into it.
var Palette = [8]uint32{
	0xFF000000, // black
	0xFF0000FF, // red
	0xFF00FF00, // green
	0xFF00FFFF, // yellow
	0xFFFF0000, // blue
	0xFFFF00FF, // purple
	0xFFFFFF00, // cyan
	0xFFFFFFFF, // white
}

// expands a pixel nibble into 4 mask bytes, 0x00 or 0xFF per pixel,
// most significant bit first
var pixelNibble = [16]uint32{
	0x00000000, 0xFF000000, 0x00FF0000, 0xFFFF0000,
	0x0000FF00, 0xFF00FF00, 0x00FFFF00, 0xFFFFFF00,
	0x000000FF, 0xFF0000FF, 0x00FF00FF, 0xFFFF00FF,
	0x0000FFFF, 0xFF00FFFF, 0x00FFFFFF, 0xFFFFFFFF,
}

// decode8Pixels expands one font byte into 8 palette-index bytes. The
// low 3 bits of colors select the background, bits 4-6 the foreground.
func decode8Pixels(dst []uint8, pixels, colors uint8) {
	colors32 := uint32(colors) * 0x01010101
	bg32 := colors32 & 0x07070707
	fg32 := (colors32 >> 4) & 0x07070707
	xor32 := bg32 ^ fg32
	binary.LittleEndian.PutUint32(dst[0:], bg32^(xor32&pixelNibble[pixels>>4]))
	binary.LittleEndian.PutUint32(dst[4:], bg32^(xor32&pixelNibble[pixels&0xF]))
}

/* decodeFramebuffer renders the 40x24 character screen into the
   framebuffer. On the KC87 each character cell has a color attribute
   byte in color RAM; bit 7 of the attribute blinks the cell by swapping
   foreground and background while the blink flip flop is high. The
   Z9001 without the color board always renders white on black.
*/
func (m *Machine) decodeFramebuffer() {
	vidmem := m.ram[0xEC00 : 0xEC00+0x400]
	font := m.romFont[:]
	if m.model == ModelKC87 {
		colmem := m.ram[0xE800 : 0xE800+0x400]
		offset := 0
		for y := 0; y < 24; y++ {
			for py := 0; py < 8; py++ {
				dst := m.fb[(y*8+py)*FramebufferWidth:]
				for x := 0; x < 40; x++ {
					chr := vidmem[offset+x]
					pixels := font[int(chr)<<3|py]
					colors := colmem[offset+x]
					if colors&m.blinkFlipFlop&0x80 != 0 {
						colors = (colors&7)<<4 | (colors >> 4 & 7)
					}
					decode8Pixels(dst[x*8:], pixels, colors)
				}
			}
			offset += 40
		}
	} else {
		offset := 0
		for y := 0; y < 24; y++ {
			for py := 0; py < 8; py++ {
				dst := m.fb[(y*8+py)*FramebufferWidth:]
				for x := 0; x < 40; x++ {
					chr := vidmem[offset+x]
					pixels := font[int(chr)<<3|py]
					decode8Pixels(dst[x*8:], pixels, 0x70)
				}
			}
			offset += 40
		}
	}
}

// Framebuffer returns the palette-index framebuffer. Pixels beyond
// DisplayWidth on each scanline are not part of the visible picture.
func (m *Machine) Framebuffer() []uint8 {
	return m.fb[:]
}
