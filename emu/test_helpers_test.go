package emu

import "testing"

// createTestROMs builds a firmware image set of the right sizes for the
// given model. Every ROM byte is HALT (0x76), so a machine booted on
// these ROMs executes a single HALT and then burns cycles until a test
// pokes something more interesting into memory.
func createTestROMs(model Model) ROMDesc {
	fill := func(size int) []uint8 {
		buf := make([]uint8, size)
		for i := range buf {
			buf[i] = 0x76
		}
		return buf
	}
	if model == ModelZ9001 {
		return ROMDesc{
			OS1:  fill(0x0800),
			OS2:  fill(0x0800),
			Font: fill(0x0800),
		}
	}
	return ROMDesc{
		OS:    fill(0x2000),
		Basic: fill(0x2000),
		Font:  fill(0x0800),
	}
}

// newTestMachine creates a machine of the given model on test ROMs.
func newTestMachine(t *testing.T, model Model) *Machine {
	t.Helper()
	m, err := NewMachine(Desc{
		Model: model,
		ROMs:  createTestROMs(model),
	})
	if err != nil {
		t.Fatalf("NewMachine failed: %v", err)
	}
	return m
}

// nullIO is a CPU IO bus with nothing attached: reads float high,
// writes are dropped.
type nullIO struct{}

func (nullIO) In(port uint8) uint8  { return 0xFF }
func (nullIO) Out(port, data uint8) {}

// newTestCPU creates a cycle-counting CPU on 64 KB of flat RAM.
func newTestCPU() (*CycleZ80, *Memory, []uint8) {
	ram := make([]uint8, 0x10000)
	mem := NewMemory()
	mem.MapRAM(0, 0x0000, ram)
	cpu := NewCycleZ80(mem, nullIO{})
	cpu.Reset(0)
	return cpu, mem, ram
}
