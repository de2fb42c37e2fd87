package emu

import "testing"

// ackCycle runs one interrupt-acknowledge bus cycle through the given
// sources in priority order and returns the vector placed on the bus.
func ackCycle(sources ...*intCtrl) uint8 {
	pins := PinIEIO | PinM1 | PinIORQ
	for _, s := range sources {
		pins = s.tick(pins)
	}
	return GetData(pins)
}

// retiCycle runs one RETI bus cycle through the given sources in
// priority order.
func retiCycle(sources ...*intCtrl) {
	pins := PinIEIO | PinRETI
	for _, s := range sources {
		pins = s.tick(pins)
	}
}

func TestIntCtrl_AckEntersService(t *testing.T) {
	c := &intCtrl{vector: 0x42}
	c.request()

	if v := ackCycle(c); v != 0x42 {
		t.Errorf("Acknowledge vector: expected 0x42, got 0x%02X", v)
	}
	if c.state&intServiced == 0 {
		t.Error("Source not in service after acknowledge")
	}
	if c.state&intNeeded != 0 {
		t.Error("Request still pending after acknowledge")
	}
}

func TestIntCtrl_ServicedBlocksLowerPriority(t *testing.T) {
	hi := &intCtrl{vector: 0x10}
	lo := &intCtrl{vector: 0x20}
	hi.request()
	ackCycle(hi, lo)

	// the serviced source pulls IEIO low, so a request behind it must
	// not reach INT
	lo.request()
	pins := lo.tick(hi.tick(PinIEIO))
	if pins&PinINT != 0 {
		t.Error("Lower-priority request asserted INT while a higher source is in service")
	}
}

func TestIntCtrl_NestedRETIReleasesOneSource(t *testing.T) {
	hi := &intCtrl{vector: 0x10}
	lo := &intCtrl{vector: 0x20}

	// the low-priority source gets acknowledged first, then the
	// high-priority one interrupts its handler
	lo.request()
	if v := ackCycle(hi, lo); v != 0x20 {
		t.Fatalf("First acknowledge: expected vector 0x20, got 0x%02X", v)
	}
	hi.request()
	if v := ackCycle(hi, lo); v != 0x10 {
		t.Fatalf("Nested acknowledge: expected vector 0x10, got 0x%02X", v)
	}

	// the first RETI ends only the nested (high-priority) handler
	retiCycle(hi, lo)
	if hi.state&intServiced != 0 {
		t.Error("High-priority source still in service after its RETI")
	}
	if lo.state&intServiced == 0 {
		t.Error("Low-priority source released by the nested handler's RETI")
	}

	// the second RETI ends the outer handler
	retiCycle(hi, lo)
	if lo.state&intServiced != 0 {
		t.Error("Low-priority source still in service after the second RETI")
	}
}
