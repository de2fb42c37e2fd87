package emu

import (
	"fmt"
)

const (
	// MaxAudioSamples is the capacity of the internal sample buffer.
	MaxAudioSamples = 1024
	// DefaultAudioSamples is the number of samples handed to the audio
	// callback per batch unless the caller asks for more.
	DefaultAudioSamples = 128
)

// AudioDesc configures audio output. Callback receives batches of
// NumSamples mono samples at SampleRate Hz.
type AudioDesc struct {
	Callback   func(samples []float32)
	SampleRate int
	NumSamples int
}

// DebugDesc hooks a debugger into the emulation loop. Callback runs
// after every instruction with the current bus pins; the run loop exits
// early when *Stopped becomes true.
type DebugDesc struct {
	Callback func(pins uint64)
	Stopped  *bool
}

// ROMDesc carries the ROM images for the selected model. The Z9001
// needs OS1, OS2 and Font, optionally Basic (a plug-in module); the
// KC87 needs OS, Basic and Font.
type ROMDesc struct {
	OS1   []uint8 // Z9001: 2 KB OS ROM at 0xF000
	OS2   []uint8 // Z9001: 2 KB OS ROM at 0xF800
	OS    []uint8 // KC87: 8 KB OS ROM at 0xE000
	Basic []uint8 // Z9001: optional 10 KB module, KC87: built-in 8 KB
	Font  []uint8 // 2 KB character generator, not CPU visible
}

// Desc are the construction parameters for a Machine.
type Desc struct {
	Model Model
	ROMs  ROMDesc
	Audio AudioDesc
	Debug DebugDesc
}

// Machine is a complete Z9001 or KC87 system: CPU, two PIOs, the CTC,
// the beeper, the static memory map and the keyboard matrix. All
// peripheral chips are clocked in lockstep with the CPU and exchange
// state through a shared pin word.
type Machine struct {
	model Model
	cpu   *CycleZ80
	mem   *Memory
	pio1  *PIO
	pio2  *PIO
	ctc   *CTC
	bee   *Beeper
	kbd   *Keyboard

	pins          uint64
	ctcZCTO2      uint64 // CTC channel 2 output latched between ticks
	blinkFlipFlop uint8  // bit 7 toggles at blink frequency
	blinkCounter  uint32
	ticksAhead    int // bus cycles already ticked inside an IO callback

	hasBasicROM bool
	debug       DebugDesc

	audioCallback func([]float32)
	numSamples    int
	samplePos     int
	sampleBuffer  [MaxAudioSamples]float32

	ram     [1 << 16]uint8
	rom     [0x4000]uint8
	romFont [0x0800]uint8
	fb      [FramebufferWidth * FramebufferHeight]uint8
}

// blink flip flop period: the bisync video signal at 25 Hz feeds a
// binary counter whose bit 4 drives the flip flop
const blinkPeriod = Frequency * 8 / 25

// xorshift randomness for memory initialization
func xorshift32(x uint32) uint32 {
	x ^= x << 13
	x ^= x >> 17
	x ^= x << 5
	return x
}

// NewMachine creates a machine of the given model. ROM images must have
// the exact sizes of the original parts.
func NewMachine(desc Desc) (*Machine, error) {
	if desc.Debug.Callback != nil && desc.Debug.Stopped == nil {
		return nil, fmt.Errorf("debug hook requires a stop flag")
	}
	m := &Machine{
		model:         desc.Model,
		debug:         desc.Debug,
		audioCallback: desc.Audio.Callback,
		numSamples:    desc.Audio.NumSamples,
	}
	if m.numSamples == 0 {
		m.numSamples = DefaultAudioSamples
	}
	if m.numSamples > MaxAudioSamples {
		return nil, fmt.Errorf("audio sample count %d exceeds maximum %d", m.numSamples, MaxAudioSamples)
	}
	if err := m.loadROMs(&desc.ROMs); err != nil {
		return nil, err
	}

	sampleRate := desc.Audio.SampleRate
	if sampleRate == 0 {
		sampleRate = 44100
	}
	m.mem = NewMemory()
	m.pio1 = NewPIO()
	m.pio2 = NewPIO()
	m.ctc = NewCTC()
	m.bee = NewBeeper(Frequency, sampleRate)
	m.kbd = NewKeyboard(frameMicros)
	m.cpu = NewCycleZ80(m.mem, m)

	// power-on RAM content is random but reproducible
	r := uint32(0x6D98302B)
	for i := 0; i < len(m.ram); i += 4 {
		r = xorshift32(r)
		m.ram[i] = uint8(r)
		m.ram[i+1] = uint8(r >> 8)
		m.ram[i+2] = uint8(r >> 16)
		m.ram[i+3] = uint8(r >> 24)
	}
	m.initMemoryMap()

	// execution starts at the OS entry point
	m.cpu.Reset(execEntry)
	return m, nil
}

const (
	execEntry   = 0xF000
	frameMicros = 20000 // sticky keyboard frames at PAL field rate
)

func (m *Machine) loadROMs(roms *ROMDesc) error {
	if m.model == ModelZ9001 {
		if len(roms.Font) != len(m.romFont) {
			return fmt.Errorf("Z9001 font ROM must be %d bytes, got %d", len(m.romFont), len(roms.Font))
		}
		copy(m.romFont[:], roms.Font)
		if roms.Basic != nil {
			if len(roms.Basic) != 0x2800 {
				return fmt.Errorf("Z9001 BASIC module ROM must be 10240 bytes, got %d", len(roms.Basic))
			}
			copy(m.rom[0x0000:], roms.Basic)
			m.hasBasicROM = true
		}
		if len(roms.OS1) != 0x0800 {
			return fmt.Errorf("Z9001 OS ROM 1 must be 2048 bytes, got %d", len(roms.OS1))
		}
		copy(m.rom[0x3000:], roms.OS1)
		if len(roms.OS2) != 0x0800 {
			return fmt.Errorf("Z9001 OS ROM 2 must be 2048 bytes, got %d", len(roms.OS2))
		}
		copy(m.rom[0x3800:], roms.OS2)
		return nil
	}
	if len(roms.Font) != len(m.romFont) {
		return fmt.Errorf("KC87 font ROM must be %d bytes, got %d", len(m.romFont), len(roms.Font))
	}
	copy(m.romFont[:], roms.Font)
	if len(roms.Basic) != 0x2000 {
		return fmt.Errorf("KC87 BASIC ROM must be 8192 bytes, got %d", len(roms.Basic))
	}
	copy(m.rom[0x0000:], roms.Basic)
	if len(roms.OS) != 0x2000 {
		return fmt.Errorf("KC87 OS ROM must be 8192 bytes, got %d", len(roms.OS))
	}
	copy(m.rom[0x2000:], roms.OS)
	return nil
}

/* initMemoryMap sets up the static address decoding:
   - the Z9001 ships with 16 KB RAM plus a 16 KB RAM module, an
     optional BASIC ROM module at 0xC000 and two OS ROMs at 0xF000
   - the KC87 has 48 KB RAM, 1 KB color RAM, built-in BASIC at 0xC000
     and an 8 KB OS ROM at 0xE000
   - both have the 1 KB ASCII video RAM at 0xEC00 overlaying the ROM
*/
func (m *Machine) initMemoryMap() {
	if m.model == ModelZ9001 {
		m.mem.MapRAM(0, 0x0000, m.ram[0x0000:0x8000])
		if m.hasBasicROM {
			m.mem.MapROM(1, 0xC000, m.rom[0x0000:0x2800])
		}
		m.mem.MapROM(1, 0xF000, m.rom[0x3000:0x3800])
		m.mem.MapROM(1, 0xF800, m.rom[0x3800:0x4000])
	} else {
		m.mem.MapRAM(0, 0x0000, m.ram[0x0000:0xC000])
		m.mem.MapRAM(0, 0xE800, m.ram[0xE800:0xEC00])
		m.mem.MapROM(1, 0xC000, m.rom[0x0000:0x2000])
		m.mem.MapROM(1, 0xE000, m.rom[0x2000:0x4000])
	}
	m.mem.MapRAM(0, 0xEC00, m.ram[0xEC00:0xF000])
}

// Model returns the emulated machine model.
func (m *Machine) Model() Model {
	return m.model
}

// Memory exposes the CPU-visible address space.
func (m *Machine) Memory() *Memory {
	return m.mem
}

// Reset performs a hardware reset. RAM, the keyboard matrix and the
// blink counter keep their state, like on the real machine.
func (m *Machine) Reset() {
	m.pio1.Reset()
	m.pio2.Reset()
	m.ctc.Reset()
	m.bee.Reset()
	m.cpu.Reset(execEntry)
	m.pins = 0
	m.ctcZCTO2 = 0
	m.ticksAhead = 0
}

// Exec runs the machine for the given slice of emulated time and
// returns the number of CPU clock ticks actually executed. With a debug
// hook installed the run can stop early at an instruction boundary.
func (m *Machine) Exec(microSeconds uint32) uint32 {
	numTicks := uint32(uint64(Frequency) * uint64(microSeconds) / 1000000)
	var ticks uint32
	if m.debug.Callback == nil {
		for ticks < numTicks {
			ticks += m.stepInstruction()
		}
	} else {
		for ticks < numTicks && !*m.debug.Stopped {
			ticks += m.stepInstruction()
			m.debug.Callback(m.pins)
		}
	}
	m.kbd.Update(int(microSeconds))
	m.decodeFramebuffer()
	return ticks
}

// stepInstruction runs one CPU instruction (or one interrupt response)
// and clocks the peripherals for the same number of bus cycles.
func (m *Machine) stepInstruction() uint32 {
	// maskable interrupts are sampled at instruction boundaries
	if m.pins&PinINT != 0 && m.cpu.InterruptsEnabled() {
		ack := m.tickChips(PinM1 | PinIORQ)
		cycles := m.cpu.AcknowledgeINT(GetData(ack))
		m.pins = ack
		for i := 1; i < cycles; i++ {
			m.pins = m.tickChips(0)
		}
		return uint32(cycles)
	}

	reti := !m.cpu.Halted() && m.cpu.PeekRETI()
	m.ticksAhead = 0
	cycles := m.cpu.Step()

	// the chips see one bus cycle per T-state; IN/OUT callbacks have
	// already run their cycle inline
	var extra uint64
	if reti {
		extra = PinRETI
	}
	for i := m.ticksAhead; i < cycles; i++ {
		m.pins = m.tickChips(extra)
		extra = 0
	}
	return uint32(cycles)
}

/* tickChips threads the pin word through every peripheral for one bus
   cycle. Chip order matters: it is the interrupt daisy-chain priority
   (PIO1, PIO2, CTC channels 0-3). Device select, port and trigger pins
   are stripped again after each chip, only the shared bus lines travel
   to the next one.
*/
func (m *Machine) tickChips(pins uint64) uint64 {
	// PIO1: port A holds display and audio control bits, port B is
	// reserved for user devices. The bits are latched but nothing is
	// attached to them here.
	pins |= PinIEIO
	if pins&pio1SelMask == pio1SelPins {
		pins |= PinCE
	}
	if pins&PinA0 != 0 {
		pins |= PinBASEL
	}
	if pins&PinA1 != 0 {
		pins |= PinCDSEL
	}
	pins = m.pio1.Tick(pins) & pinBusMask

	// PIO2: port A drives the keyboard matrix columns, port B reads the
	// lines. All matrix signals are active low. A pressed key can raise
	// a port B bit-control interrupt, which is what wakes the OS.
	if pins&pio2SelMask == pio2SelPins {
		pins |= PinCE
	}
	if pins&PinA0 != 0 {
		pins |= PinBASEL
	}
	if pins&PinA1 != 0 {
		pins |= PinCDSEL
	}
	pins = SetPortAB(pins, ^m.kbd.ScanColumns(), ^m.kbd.ScanLines())
	pins = m.pio2.Tick(pins)
	m.kbd.SetActiveColumns(^GetPortA(pins))
	m.kbd.SetActiveLines(^GetPortB(pins))
	pins &= pinBusMask

	// CTC: channel 2 output clocks channel 3 to form the system-clock
	// timer cascade, channel 0 output toggles the beeper.
	pins |= m.ctcZCTO2
	if pins&ctcSelMask == ctcSelPins {
		pins |= PinCE
	}
	if pins&PinA0 != 0 {
		pins |= PinCS0
	}
	if pins&PinA1 != 0 {
		pins |= PinCS1
	}
	if pins&PinZCTO2 != 0 {
		pins |= PinCLKTRG3
	}
	pins = m.ctc.Tick(pins)
	if pins&PinZCTO0 != 0 {
		m.bee.Toggle()
	}
	m.ctcZCTO2 = pins & PinZCTO2
	pins &= pinBusMask

	if m.bee.Tick() {
		m.sampleBuffer[m.samplePos] = m.bee.Sample()
		m.samplePos++
		if m.samplePos == m.numSamples {
			if m.audioCallback != nil {
				m.audioCallback(m.sampleBuffer[:m.numSamples])
			}
			m.samplePos = 0
		}
	}

	if m.blinkCounter == 0 {
		m.blinkCounter = blinkPeriod
		m.blinkFlipFlop ^= 0x80
	} else {
		m.blinkCounter--
	}
	return pins
}

// In implements the CPU IO read (z80.IO). The access is turned into one
// full bus cycle so the peripheral chips observe it on their pins.
func (m *Machine) In(port uint8) uint8 {
	pins := SetData(PinIORQ|PinRD|uint64(port), 0xFF)
	pins = m.tickChips(pins)
	m.pins = pins
	m.ticksAhead++
	return GetData(pins)
}

// Out implements the CPU IO write (z80.IO).
func (m *Machine) Out(port uint8, data uint8) {
	pins := SetData(PinIORQ|PinWR|uint64(port), data)
	m.pins = m.tickChips(pins)
	m.ticksAhead++
}

// KeyDown presses a key by its machine key code.
func (m *Machine) KeyDown(code uint8) {
	m.kbd.KeyDown(code)
}

// KeyUp releases a key.
func (m *Machine) KeyUp(code uint8) {
	m.kbd.KeyUp(code)
}
