package emu

import "testing"

// pioCycle builds one PIO bus cycle. Port pins idle high, like the
// open-collector keyboard matrix with no key pressed.
func pioCycle(p *PIO, pins uint64, pa, pb uint8) uint64 {
	return p.Tick(SetPortAB(PinIEIO|pins, pa, pb))
}

func pioWriteControl(p *PIO, port int, data uint8) {
	pins := PinCE | PinWR | PinCDSEL
	if port == pioPortB {
		pins |= PinBASEL
	}
	pioCycle(p, SetData(pins, data), 0xFF, 0xFF)
}

func pioWriteData(p *PIO, port int, data uint8) {
	pins := PinCE | PinWR
	if port == pioPortB {
		pins |= PinBASEL
	}
	pioCycle(p, SetData(pins, data), 0xFF, 0xFF)
}

func pioReadData(p *PIO, port int, pa, pb uint8) uint8 {
	pins := PinCE | PinRD
	if port == pioPortB {
		pins |= PinBASEL
	}
	return GetData(pioCycle(p, pins, pa, pb))
}

func TestPIO_OutputMode(t *testing.T) {
	p := NewPIO()

	pioWriteControl(p, pioPortA, 0x0F) // mode 0: output
	pioWriteData(p, pioPortA, 0x5A)

	// The output register drives the port pins
	pins := pioCycle(p, 0, 0xFF, 0xFF)
	if got := GetPortA(pins); got != 0x5A {
		t.Errorf("Port A pins: expected 0x5A, got 0x%02X", got)
	}

	// Reading an output port returns the output register
	if got := pioReadData(p, pioPortA, 0xFF, 0xFF); got != 0x5A {
		t.Errorf("Port A read: expected 0x5A, got 0x%02X", got)
	}
}

func TestPIO_InputMode(t *testing.T) {
	p := NewPIO()

	pioWriteControl(p, pioPortB, 0x4F) // mode 1: input

	// The port latches its pins each cycle; a read returns the latch
	pioCycle(p, 0, 0xFF, 0xA5)
	if got := pioReadData(p, pioPortB, 0xFF, 0xA5); got != 0xA5 {
		t.Errorf("Port B read: expected 0xA5, got 0x%02X", got)
	}
}

func TestPIO_BitControlMode(t *testing.T) {
	p := NewPIO()

	// Mode 3 with the low nibble as inputs, high nibble as outputs
	pioWriteControl(p, pioPortA, 0xCF)
	pioWriteControl(p, pioPortA, 0x0F) // I/O select follows the mode word
	pioWriteData(p, pioPortA, 0x30)

	// Reads mix the latched input pins and the output register per the
	// I/O select
	pioCycle(p, 0, 0xFA, 0xFF)
	if got := pioReadData(p, pioPortA, 0xFA, 0xFF); got != 0x3A {
		t.Errorf("Bit-control read: expected 0x3A, got 0x%02X", got)
	}

	// The driven pins mix the same way
	pins := pioCycle(p, 0, 0xFA, 0xFF)
	if got := GetPortA(pins); got != 0x3A {
		t.Errorf("Bit-control pins: expected 0x3A, got 0x%02X", got)
	}
}

func TestPIO_InterruptVector(t *testing.T) {
	p := NewPIO()

	// A control write with bit 0 clear sets the port's vector
	pioWriteControl(p, pioPortB, 0x20)
	if p.ports[pioPortB].irq.vector != 0x20 {
		t.Errorf("Port B vector: expected 0x20, got 0x%02X", p.ports[pioPortB].irq.vector)
	}
	if p.ports[pioPortA].irq.vector != 0 {
		t.Error("Port A vector must not change on a port B write")
	}
}

func TestPIO_BitControlInterrupt(t *testing.T) {
	p := NewPIO()

	// Keyboard-style setup: all bits input, interrupt on any monitored
	// bit going low (OR, active low)
	pioWriteControl(p, pioPortB, 0xCF)
	pioWriteControl(p, pioPortB, 0xFF) // all inputs
	pioWriteControl(p, pioPortB, 0x97) // EI, OR, active low, mask follows
	pioWriteControl(p, pioPortB, 0x00) // monitor every bit

	// Idle lines stay high: no interrupt
	pins := pioCycle(p, 0, 0xFF, 0xFF)
	if pins&PinINT != 0 {
		t.Fatal("INT asserted with idle inputs")
	}

	// A line pulled low fires the interrupt
	pins = pioCycle(p, 0, 0xFF, 0xFE)
	if pins&PinINT == 0 {
		t.Fatal("Expected INT when a monitored line went low")
	}

	// Acknowledge returns the port vector
	pioWriteControl(p, pioPortB, 0x20)
	ack := p.Tick(PinIEIO | PinM1 | PinIORQ)
	if GetData(ack) != 0x20 {
		t.Errorf("Acknowledge vector: expected 0x20, got 0x%02X", GetData(ack))
	}
}

func TestPIO_BitControlInterruptEdgeOnly(t *testing.T) {
	p := NewPIO()

	pioWriteControl(p, pioPortB, 0xCF)
	pioWriteControl(p, pioPortB, 0xFF)
	pioWriteControl(p, pioPortB, 0x97)
	pioWriteControl(p, pioPortB, 0x00)

	// Fire and service one interrupt
	pioCycle(p, 0, 0xFF, 0xFE)
	p.Tick(PinIEIO | PinM1 | PinIORQ)
	p.Tick(PinIEIO | PinRETI)

	// The line is still low: no second request without a new transition
	pins := pioCycle(p, 0, 0xFF, 0xFE)
	if pins&PinINT != 0 {
		t.Error("INT re-asserted without a new inactive-to-active transition")
	}

	// Release and press again
	pioCycle(p, 0, 0xFF, 0xFF)
	pins = pioCycle(p, 0, 0xFF, 0xFE)
	if pins&PinINT == 0 {
		t.Error("Expected INT on the next transition")
	}
}

func TestPIO_InterruptDisable(t *testing.T) {
	p := NewPIO()

	pioWriteControl(p, pioPortB, 0xCF)
	pioWriteControl(p, pioPortB, 0xFF)
	pioWriteControl(p, pioPortB, 0x97)
	pioWriteControl(p, pioPortB, 0x00)

	// An interrupt control word with EI clear drops a pending request
	pioCycle(p, 0, 0xFF, 0xFE)
	pioWriteControl(p, pioPortB, 0x07)

	pins := pioCycle(p, 0, 0xFF, 0xFE)
	if pins&PinINT != 0 {
		t.Error("INT asserted with interrupts disabled")
	}
}

func TestPIO_InterruptMask(t *testing.T) {
	p := NewPIO()

	pioWriteControl(p, pioPortB, 0xCF)
	pioWriteControl(p, pioPortB, 0xFF)
	pioWriteControl(p, pioPortB, 0x97)
	pioWriteControl(p, pioPortB, 0xFE) // monitor bit 0 only

	// Unmonitored lines do not interrupt
	pins := pioCycle(p, 0, 0xFF, 0x7F)
	if pins&PinINT != 0 {
		t.Fatal("INT from a masked line")
	}

	pins = pioCycle(p, 0, 0xFF, 0xFE)
	if pins&PinINT == 0 {
		t.Error("Expected INT from the monitored line")
	}
}

func TestPIO_DaisyChainPriority(t *testing.T) {
	p := NewPIO()
	p.ports[pioPortA].irq.vector = 0x10
	p.ports[pioPortB].irq.vector = 0x12
	p.ports[pioPortA].irq.request()
	p.ports[pioPortB].irq.request()

	// Port A wins, port B waits for RETI
	ack := p.Tick(PinIEIO | PinM1 | PinIORQ)
	if GetData(ack) != 0x10 {
		t.Errorf("Expected port A vector 0x10, got 0x%02X", GetData(ack))
	}
	p.Tick(PinIEIO | PinRETI)
	ack = p.Tick(PinIEIO | PinM1 | PinIORQ)
	if GetData(ack) != 0x12 {
		t.Errorf("Expected port B vector 0x12, got 0x%02X", GetData(ack))
	}
}

func TestPIO_Reset(t *testing.T) {
	p := NewPIO()

	pioWriteControl(p, pioPortA, 0x0F)
	pioWriteData(p, pioPortA, 0xFF)
	p.ports[pioPortA].irq.request()

	p.Reset()
	if p.ports[pioPortA].mode != pioModeInput {
		t.Error("Port A not in input mode after reset")
	}
	if p.ports[pioPortA].output != 0 {
		t.Error("Output register survived reset")
	}
	if pins := pioCycle(p, 0, 0xFF, 0xFF); pins&PinINT != 0 {
		t.Error("Interrupt request survived reset")
	}
}
