package emu

// 8x8 keyboard matrix layout. The shift key sits at column 0, line 7;
// shifted characters press their own position plus shift.
const (
	shiftColumn = 0
	shiftLine   = 7
)

// unshifted and shifted printable characters, indexed [line][column]
var keymapPlain = [6]string{
	"01234567",
	"89:;,=.?",
	"@ABCDEFG",
	"HIJKLMNO",
	"PQRSTUVW",
	"XYZ   ^ ",
}

var keymapShift = [6]string{
	"_!\"#$%&'",
	"()*+<->/",
	" abcdefg",
	"hijklmno",
	"pqrstuvw",
	"xyz     ",
}

// control and editing keys
var keymapSpecial = []struct {
	code   uint8
	column int
	line   int
}{
	{0x03, 6, 6}, // stop
	{0x08, 0, 6}, // cursor left
	{0x09, 1, 6}, // cursor right
	{0x0A, 2, 6}, // cursor up
	{0x0B, 3, 6}, // cursor down
	{0x0D, 5, 6}, // enter
	{0x13, 4, 5}, // pause
	{0x14, 1, 7}, // color
	{0x19, 3, 5}, // home
	{0x1A, 5, 5}, // insert
	{0x1B, 4, 6}, // esc
	{0x1C, 4, 7}, // list
	{0x1D, 5, 7}, // run
	{0x20, 7, 6}, // space
}

// buildKeymap maps each key code to the matrix overlay it presses: one
// line bit per active column.
func buildKeymap() [256]matrixOverlay {
	var keys [256]matrixOverlay
	press := func(code uint8, column, line int, shift bool) {
		keys[code][column] |= 1 << line
		if shift {
			keys[code][shiftColumn] |= 1 << shiftLine
		}
	}
	for line := 0; line < 6; line++ {
		for column := 0; column < 8; column++ {
			if c := keymapPlain[line][column]; c != ' ' {
				press(c, column, line, false)
			}
			if c := keymapShift[line][column]; c != ' ' {
				press(c, column, line, true)
			}
		}
	}
	for _, k := range keymapSpecial {
		press(k.code, k.column, k.line, false)
	}
	return keys
}
