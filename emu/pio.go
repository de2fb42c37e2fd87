package emu

// PIO port operating modes
const (
	pioModeOutput        = 0
	pioModeInput         = 1
	pioModeBidirectional = 2
	pioModeBitControl    = 3
)

// interrupt control word bits
const (
	pioIntEI         = 1 << 7
	pioIntANDOR      = 1 << 6 // 1: AND all monitored bits, 0: OR
	pioIntHighLow    = 1 << 5 // 1: active high, 0: active low
	pioIntMaskFollow = 1 << 4 // next control write is the mask
)

type pioPort struct {
	mode     uint8
	output   uint8
	input    uint8
	ioSelect uint8 // bit-control mode: 1 bits are inputs
	intCtrlW uint8
	intMask  uint8 // bit-control mode: 0 bits are monitored
	match    bool  // current bit-control interrupt condition

	expectIOSelect bool
	expectIntMask  bool

	irq intCtrl
}

// PIO emulates the Z80-PIO parallel I/O controller: two 8-bit ports with
// output, input, bidirectional and bit-control modes, and one interrupt
// daisy-chain slot per port.
type PIO struct {
	ports [2]pioPort
}

const (
	pioPortA = 0
	pioPortB = 1
)

func NewPIO() *PIO {
	p := &PIO{}
	p.Reset()
	return p
}

// Reset puts both ports into input mode with interrupts disabled, as
// after an external reset pulse.
func (p *PIO) Reset() {
	for i := range p.ports {
		port := &p.ports[i]
		port.mode = pioModeInput
		port.output = 0
		port.ioSelect = 0
		port.intCtrlW = 0
		port.intMask = 0
		port.match = false
		port.expectIOSelect = false
		port.expectIntMask = false
		port.irq.reset()
	}
}

// Tick advances the PIO one bus cycle: daisy-chain handling for
// interrupt-acknowledge/RETI cycles, otherwise a possible register access
// followed by re-evaluating the bit-control interrupt condition against
// the port input pins.
func (p *PIO) Tick(pins uint64) uint64 {
	if pins&(PinM1|PinIORQ) == (PinM1|PinIORQ) || pins&PinRETI != 0 {
		return p.tickDaisy(pins)
	}
	if pins&PinCE != 0 {
		sel := pioPortA
		if pins&PinBASEL != 0 {
			sel = pioPortB
		}
		switch {
		case pins&PinRD != 0 && pins&PinCDSEL == 0:
			pins = SetData(pins, p.readData(sel))
		case pins&PinWR != 0 && pins&PinCDSEL == 0:
			p.writeData(sel, GetData(pins))
		case pins&PinWR != 0:
			p.writeControl(sel, GetData(pins))
		}
	}
	p.setInput(pioPortA, GetPortA(pins))
	p.setInput(pioPortB, GetPortB(pins))
	pins = SetPortAB(pins, p.portPins(pioPortA), p.portPins(pioPortB))
	return p.tickDaisy(pins)
}

func (p *PIO) tickDaisy(pins uint64) uint64 {
	for i := range p.ports {
		pins = p.ports[i].irq.tick(pins)
	}
	return pins
}

// portPins returns the value the port drives onto its pins.
func (p *PIO) portPins(sel int) uint8 {
	port := &p.ports[sel]
	switch port.mode {
	case pioModeOutput, pioModeBidirectional:
		return port.output
	case pioModeBitControl:
		return (port.input & port.ioSelect) | (port.output &^ port.ioSelect)
	default:
		return port.input
	}
}

func (p *PIO) readData(sel int) uint8 {
	port := &p.ports[sel]
	switch port.mode {
	case pioModeOutput:
		return port.output
	case pioModeBitControl:
		return (port.input & port.ioSelect) | (port.output &^ port.ioSelect)
	default:
		return port.input
	}
}

func (p *PIO) writeData(sel int, data uint8) {
	p.ports[sel].output = data
}

// setInput latches the port input pins and, in bit-control mode,
// re-evaluates the interrupt condition. The interrupt fires on the
// inactive-to-active transition of the programmed match expression.
func (p *PIO) setInput(sel int, data uint8) {
	port := &p.ports[sel]
	port.input = data
	if port.mode != pioModeBitControl || port.intCtrlW&pioIntEI == 0 {
		return
	}
	monitored := ^port.intMask & port.ioSelect
	val := data
	if port.intCtrlW&pioIntHighLow == 0 {
		val = ^data
	}
	var match bool
	if port.intCtrlW&pioIntANDOR != 0 {
		match = monitored != 0 && val&monitored == monitored
	} else {
		match = val&monitored != 0
	}
	if match && !port.match {
		port.irq.request()
	}
	port.match = match
}

func (p *PIO) writeControl(sel int, data uint8) {
	port := &p.ports[sel]
	switch {
	case port.expectIOSelect:
		port.ioSelect = data
		port.expectIOSelect = false
	case port.expectIntMask:
		port.intMask = data
		port.expectIntMask = false
		port.match = false
	case data&0x01 == 0:
		port.irq.vector = data
	case data&0x0F == 0x0F:
		// mode control word
		port.mode = data >> 6
		if port.mode == pioModeBitControl {
			port.expectIOSelect = true
		}
	case data&0x0F == 0x07:
		// interrupt control word
		port.intCtrlW = data & 0xF0
		if data&pioIntMaskFollow != 0 {
			port.expectIntMask = true
		}
		port.match = false
		if data&pioIntEI == 0 {
			port.irq.reset()
		}
	case data&0x0F == 0x03:
		// interrupt enable/disable flip without touching the mode
		port.intCtrlW = (port.intCtrlW &^ pioIntEI) | (data & pioIntEI)
	}
}
