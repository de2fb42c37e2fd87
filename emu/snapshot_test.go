package emu

import (
	"bytes"
	"testing"
)

func TestSnapshot_RoundTrip(t *testing.T) {
	m1 := newTestMachine(t, ModelKC87)

	// Put the machine into a non-trivial state
	m1.Exec(20000)
	m1.KeyDown('A')
	m1.Exec(20000)
	m1.mem.Write(0x2000, 0x42)
	m1.Out(0x80, 0x10) // CTC vector

	state, err := m1.Serialize()
	if err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}

	m2 := newTestMachine(t, ModelKC87)
	if err := m2.Deserialize(state); err != nil {
		t.Fatalf("Deserialize failed: %v", err)
	}

	// Re-serializing the restored machine is bit-identical
	state2, err := m2.Serialize()
	if err != nil {
		t.Fatalf("Serialize of restored machine failed: %v", err)
	}
	if !bytes.Equal(state, state2) {
		t.Error("Save state round trip is not bit-identical")
	}

	// Spot checks on the restored state
	if m2.cpu.GetPC() != m1.cpu.GetPC() {
		t.Errorf("PC: expected 0x%04X, got 0x%04X", m1.cpu.GetPC(), m2.cpu.GetPC())
	}
	if m2.mem.Read(0x2000) != 0x42 {
		t.Error("RAM not restored")
	}
	if m2.ctc.chn[2].irq.vector != m1.ctc.chn[2].irq.vector {
		t.Error("CTC vectors not restored")
	}

	// Both machines continue identically
	m1.Exec(20000)
	m2.Exec(20000)
	if m1.cpu.GetPC() != m2.cpu.GetPC() {
		t.Error("Machines diverged after restore")
	}
}

func TestSnapshot_SerializeSize(t *testing.T) {
	m := newTestMachine(t, ModelZ9001)

	state, err := m.Serialize()
	if err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}
	if len(state) != SerializeSize() {
		t.Errorf("State size: expected %d, got %d", SerializeSize(), len(state))
	}
}

func TestSnapshot_FramebufferRedecoded(t *testing.T) {
	m1 := newTestMachine(t, ModelKC87)
	copy(m1.romFont[0x41*8:], []uint8{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF})
	m1.mem.Write(0xEC00, 0x41)
	m1.mem.Write(0xE800, 0x70)

	state, err := m1.Serialize()
	if err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}

	m2 := newTestMachine(t, ModelKC87)
	copy(m2.romFont[0x41*8:], []uint8{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF})
	if err := m2.Deserialize(state); err != nil {
		t.Fatalf("Deserialize failed: %v", err)
	}
	if got := m2.Framebuffer()[0]; got != 7 {
		t.Errorf("Framebuffer not re-decoded after restore, pixel 0 is %d", got)
	}
}

func TestSnapshot_VersionMismatch(t *testing.T) {
	m := newTestMachine(t, ModelKC87)
	m.Exec(20000)

	state, err := m.Serialize()
	if err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}
	reference, _ := m.Serialize()

	// A newer version must be rejected and must not touch the machine
	state[12] = 0xFF
	if err := m.VerifyState(state); err == nil {
		t.Error("VerifyState accepted a future version")
	}
	if err := m.Deserialize(state); err == nil {
		t.Error("Deserialize accepted a future version")
	}

	after, _ := m.Serialize()
	if !bytes.Equal(reference, after) {
		t.Error("Rejected load modified the machine")
	}
}

func TestSnapshot_ROMMismatch(t *testing.T) {
	m1 := newTestMachine(t, ModelKC87)
	state, err := m1.Serialize()
	if err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}

	// A machine on different firmware refuses the state
	roms := createTestROMs(ModelKC87)
	roms.OS[0] = 0x00
	m2, err := NewMachine(Desc{Model: ModelKC87, ROMs: roms})
	if err != nil {
		t.Fatalf("NewMachine failed: %v", err)
	}
	if err := m2.VerifyState(state); err == nil {
		t.Error("VerifyState accepted a state for different ROMs")
	}
}

func TestSnapshot_CorruptedData(t *testing.T) {
	m := newTestMachine(t, ModelKC87)
	state, err := m.Serialize()
	if err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}

	state[stateHeaderSize+10] ^= 0xFF
	if err := m.VerifyState(state); err == nil {
		t.Error("VerifyState accepted corrupted data")
	}
}

func TestSnapshot_BadMagic(t *testing.T) {
	m := newTestMachine(t, ModelKC87)
	state, _ := m.Serialize()

	state[0] = 'X'
	if err := m.VerifyState(state); err == nil {
		t.Error("VerifyState accepted a bad magic")
	}
}

func TestSnapshot_TooShort(t *testing.T) {
	m := newTestMachine(t, ModelKC87)

	if err := m.VerifyState([]byte{1, 2, 3}); err == nil {
		t.Error("VerifyState accepted a truncated state")
	}
	if err := m.Deserialize(nil); err == nil {
		t.Error("Deserialize accepted nil")
	}
}
