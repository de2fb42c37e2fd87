package emu

// The bus is modeled as a single 64-bit pin word threaded through every
// component once per clock tick. Bits 0-15 are the address bus, 16-23 the
// data bus, 24 and up the control lines. The PIO and CTC reuse the same
// device-select bit positions since only one chip is ever selected per
// bus cycle, and the PIO port A/B data lines live in the top 16 bits.
const (
	// address and data bus
	PinA0 uint64 = 1 << 0
	PinA1 uint64 = 1 << 1
	PinA3 uint64 = 1 << 3
	PinA4 uint64 = 1 << 4
	PinA5 uint64 = 1 << 5
	PinA6 uint64 = 1 << 6
	PinA7 uint64 = 1 << 7

	// CPU control lines
	PinM1   uint64 = 1 << 24
	PinMREQ uint64 = 1 << 25
	PinIORQ uint64 = 1 << 26
	PinRD   uint64 = 1 << 27
	PinWR   uint64 = 1 << 28
	PinHALT uint64 = 1 << 29
	PinINT  uint64 = 1 << 30
	PinNMI  uint64 = 1 << 31

	// virtual daisy-chain lines: IEIO is the interrupt-enable signal
	// passed from chip to chip, RETI marks the bus cycle in which the
	// CPU executes a RETI opcode
	PinIEIO uint64 = 1 << 34
	PinRETI uint64 = 1 << 35

	// device select lines, shared between the PIO and the CTC
	PinCE    uint64 = 1 << 36
	PinBASEL uint64 = 1 << 37 // PIO: port B/A select
	PinCDSEL uint64 = 1 << 38 // PIO: control/data select
	PinCS0   uint64 = 1 << 37 // CTC: channel select bit 0
	PinCS1   uint64 = 1 << 38 // CTC: channel select bit 1

	// CTC trigger inputs and zero-count/timeout outputs
	PinCLKTRG0 uint64 = 1 << 39
	PinCLKTRG1 uint64 = 1 << 40
	PinCLKTRG2 uint64 = 1 << 41
	PinCLKTRG3 uint64 = 1 << 42
	PinZCTO0   uint64 = 1 << 43
	PinZCTO1   uint64 = 1 << 44
	PinZCTO2   uint64 = 1 << 45
)

const (
	pinAddrMask uint64 = 0xFFFF
	pinDataMask uint64 = 0xFF << 16

	// bus lines shared by all chips; device-specific select, trigger and
	// output pins are stripped again after each chip has ticked
	pinBusMask uint64 = (1 << 36) - 1
)

// GetAddr returns the 16-bit address bus value.
func GetAddr(pins uint64) uint16 { return uint16(pins & pinAddrMask) }

// SetAddr places a 16-bit address on the address bus.
func SetAddr(pins uint64, addr uint16) uint64 {
	return (pins &^ pinAddrMask) | uint64(addr)
}

// GetData returns the 8-bit data bus value.
func GetData(pins uint64) uint8 { return uint8(pins >> 16) }

// SetData places a byte on the data bus.
func SetData(pins uint64, data uint8) uint64 {
	return (pins &^ pinDataMask) | uint64(data)<<16
}

// GetPortA returns the PIO port A data lines (bits 48-55).
func GetPortA(pins uint64) uint8 { return uint8(pins >> 48) }

// GetPortB returns the PIO port B data lines (bits 56-63).
func GetPortB(pins uint64) uint8 { return uint8(pins >> 56) }

// SetPortAB places both PIO port values on their pin positions.
func SetPortAB(pins uint64, pa, pb uint8) uint64 {
	return (pins & 0x0000FFFFFFFFFFFF) | uint64(pa)<<48 | uint64(pb)<<56
}

// IO address decoding. All peripheral chips sit in the 0x80-0xBF port
// window (A7=1, A6=0, not an interrupt-acknowledge cycle); A5-A3 pick the
// chip, A1-A0 pick the register pair. Each register is mapped twice.
const (
	ioSelMask = PinIORQ | PinM1 | PinA7 | PinA6
	ioSelPins = PinIORQ | PinA7

	// CTC at ports 0x80-0x87
	ctcSelMask = ioSelMask | PinA5 | PinA4 | PinA3
	ctcSelPins = ioSelPins

	// PIO1 at ports 0x88-0x8F
	pio1SelMask = ioSelMask | PinA5 | PinA4 | PinA3
	pio1SelPins = ioSelPins | PinA3

	// PIO2 at ports 0x90-0x97
	pio2SelMask = ioSelMask | PinA5 | PinA4 | PinA3
	pio2SelPins = ioSelPins | PinA4
)
