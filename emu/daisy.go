package emu

// Interrupt daisy-chain bookkeeping shared by the PIO ports and the CTC
// channels. Every interrupt source sits at a fixed position in the chain
// (PIO1-A, PIO1-B, PIO2-A, PIO2-B, CTC 0-3); the IEIO pin carries the
// chain's enable signal into each source in priority order, and a source
// with an unserviced request blocks every source behind it.

type intState uint8

const (
	intNeeded   intState = 1 << 0 // interrupt condition hit, not yet acknowledged
	intServiced intState = 1 << 1 // acknowledged, waiting for RETI
)

type intCtrl struct {
	vector uint8
	state  intState
}

// tick runs one daisy-chain step for this source. During an
// interrupt-acknowledge cycle (M1|IORQ) the highest-priority source with a
// pending request places its vector on the data bus and enters service.
// A RETI cycle releases only the highest-priority source under service;
// the releasing source consumes the RETI so that with nested interrupts
// each serviced source waits for its own RETI. In all cases a source with
// any outstanding state pulls IEIO low for the sources behind it, and a
// pending request with IEIO high asserts INT.
func (c *intCtrl) tick(pins uint64) uint64 {
	if pins&PinIEIO != 0 {
		if c.state&intNeeded != 0 && pins&(PinM1|PinIORQ) == (PinM1|PinIORQ) {
			pins = SetData(pins, c.vector)
			c.state = intServiced
		}
		if pins&PinRETI != 0 && c.state&intServiced != 0 {
			c.state &^= intServiced
			pins &^= PinRETI
		}
	}
	if c.state&intNeeded != 0 && c.state&intServiced == 0 && pins&PinIEIO != 0 {
		pins |= PinINT
	}
	if c.state != 0 {
		pins &^= PinIEIO
	}
	return pins
}

func (c *intCtrl) request() { c.state |= intNeeded }

func (c *intCtrl) reset() { c.state = 0 }
