package emu

import (
	"encoding/binary"
	"errors"

	emucore "github.com/user-none/eblitui/api"
)

// Compile-time interface checks.
var _ emucore.Emulator = (*Emulator)(nil)
var _ emucore.SaveStater = (*Emulator)(nil)
var _ emucore.MemoryInspector = (*Emulator)(nil)
var _ emucore.MemoryMapper = (*Emulator)(nil)

const (
	Name    = "eKC87"
	Version = "0.1.0"

	sampleRate = 48000

	// PAL field rate; one emulated frame is 20 ms
	framesPerSecond = 50

	// frames to let the OS boot to the command prompt before a loaded
	// program image is copied into memory
	bootDelayFrames = 150
)

// Retropad bit assignments beyond the emucore directional bits. The
// machine is keyboard driven, so pad buttons map to the keys a program
// is most likely to want.
const (
	ButtonEnter = 4
	ButtonSpace = 5
	ButtonStop  = 6
	ButtonRun   = 7
)

// padKeyCodes maps retropad bit positions to machine key codes.
var padKeyCodes = map[int]uint8{
	emucore.ButtonUp:    0x0A,
	emucore.ButtonDown:  0x0B,
	emucore.ButtonLeft:  0x08,
	emucore.ButtonRight: 0x09,
	ButtonEnter:         0x0D,
	ButtonSpace:         0x20,
	ButtonStop:          0x03,
	ButtonRun:           0x1D,
}

// ROMLoader resolves the firmware ROM images for a model. The frontends
// provide one that reads image files from disk.
type ROMLoader func(model Model) (ROMDesc, error)

// Emulator wraps a Machine behind the frontend interfaces: fixed 20 ms
// frames, RGBA framebuffer conversion, int16 stereo audio and retropad
// input mapped onto the keyboard matrix.
type Emulator struct {
	m        *Machine
	model    Model
	loadROMs ROMLoader

	// program image waiting for the OS to boot
	program      []byte
	bootFrames   int
	prevButtons  uint32
	frameSamples []float32
	audioBuffer  []int16
	rgbaBuffer   []byte
}

// NewEmulator boots a machine of the given model and schedules the
// program image (KC TAP or KCC, may be empty) for loading once the OS
// is up.
func NewEmulator(program []byte, model Model, loadROMs ROMLoader) (*Emulator, error) {
	if loadROMs == nil {
		return nil, errors.New("no ROM loader provided")
	}
	e := &Emulator{
		model:        model,
		loadROMs:     loadROMs,
		rgbaBuffer:   make([]byte, DisplayWidth*DisplayHeight*4),
		frameSamples: make([]float32, 0, 1024),
		audioBuffer:  make([]int16, 0, 2048),
	}
	if err := e.buildMachine(model); err != nil {
		return nil, err
	}
	if len(program) > 0 {
		e.program = program
		e.bootFrames = bootDelayFrames
	}
	return e, nil
}

func (e *Emulator) buildMachine(model Model) error {
	roms, err := e.loadROMs(model)
	if err != nil {
		return err
	}
	m, err := NewMachine(Desc{
		Model: model,
		ROMs:  roms,
		Audio: AudioDesc{
			Callback:   e.pushSamples,
			SampleRate: sampleRate,
		},
	})
	if err != nil {
		return err
	}
	e.m = m
	e.model = model
	return nil
}

func (e *Emulator) pushSamples(samples []float32) {
	e.frameSamples = append(e.frameSamples, samples...)
}

// Machine exposes the underlying chip-level machine.
func (e *Emulator) Machine() *Machine {
	return e.m
}

// RunFrame executes 20 ms of emulation. Audio samples are accumulated
// in the internal buffer.
func (e *Emulator) RunFrame() {
	e.audioBuffer = e.audioBuffer[:0]
	e.frameSamples = e.frameSamples[:0]

	e.m.Exec(1000000 / framesPerSecond)

	if e.program != nil {
		e.bootFrames--
		if e.bootFrames <= 0 {
			// a bad image is dropped, the machine keeps running
			e.m.Quickload(e.program)
			e.program = nil
		}
	}

	// Convert float32 mono samples to int16 stereo. Attenuate by 0.5 to
	// compensate for the mono signal being duplicated to both speakers.
	for _, sample := range e.frameSamples {
		intSample := int16(sample * 32767 * 0.5)
		e.audioBuffer = append(e.audioBuffer, intSample, intSample)
	}
}

// GetAudioSamples returns accumulated audio samples as 16-bit stereo PCM.
func (e *Emulator) GetAudioSamples() []int16 {
	return e.audioBuffer
}

// GetFramebuffer returns the visible screen as RGBA pixel data.
func (e *Emulator) GetFramebuffer() []byte {
	fb := e.m.Framebuffer()
	for y := 0; y < DisplayHeight; y++ {
		src := fb[y*FramebufferWidth:]
		row := e.rgbaBuffer[y*DisplayWidth*4:]
		for x := 0; x < DisplayWidth; x++ {
			binary.LittleEndian.PutUint32(row[x*4:], Palette[src[x]&7])
		}
	}
	return e.rgbaBuffer
}

// GetFramebufferStride returns the stride (bytes per row) of the framebuffer.
func (e *Emulator) GetFramebufferStride() int {
	return DisplayWidth * 4
}

// GetActiveHeight returns the visible display height.
func (e *Emulator) GetActiveHeight() int {
	return DisplayHeight
}

// GetRegion returns the fixed display region. The hardware only ever
// drove 50 Hz monitors.
func (e *Emulator) GetRegion() emucore.Region {
	return emucore.RegionPAL
}

// GetTiming returns the fixed PAL frame timing.
func (e *Emulator) GetTiming() emucore.Timing {
	return emucore.Timing{
		FPS:       framesPerSecond,
		Scanlines: 312,
	}
}

// SetRegion is a no-op: there is no NTSC variant of these machines.
func (e *Emulator) SetRegion(region emucore.Region) {}

// SetInput maps retropad buttons onto keyboard matrix keys with edge
// detection, so a held button is one held key.
func (e *Emulator) SetInput(player int, buttons uint32) {
	if player != 0 {
		return
	}
	changed := buttons ^ e.prevButtons
	for bit, code := range padKeyCodes {
		if changed&(1<<bit) == 0 {
			continue
		}
		if buttons&(1<<bit) != 0 {
			e.m.KeyDown(code)
		} else {
			e.m.KeyUp(code)
		}
	}
	e.prevButtons = buttons
}

// KeyDown forwards a host key press by machine key code.
func (e *Emulator) KeyDown(code uint8) {
	e.m.KeyDown(code)
}

// KeyUp forwards a host key release.
func (e *Emulator) KeyUp(code uint8) {
	e.m.KeyUp(code)
}

// SetOption applies a core option change identified by key.
func (e *Emulator) SetOption(key string, value string) {
	switch key {
	case "model_z9001":
		model := ModelKC87
		if value == "true" {
			model = ModelZ9001
		}
		if model == e.model {
			return
		}
		// switching the model is a cold start on different firmware;
		// keep the old machine if the ROMs cannot be loaded
		prev := e.m
		if err := e.buildMachine(model); err != nil {
			e.m = prev
		}
	}
}

// Close releases any resources held by the emulator.
func (e *Emulator) Close() {}

// =============================================================================
// SaveStater interface
// =============================================================================

// Serialize creates a save state for the current machine.
func (e *Emulator) Serialize() ([]byte, error) {
	return e.m.Serialize()
}

// Deserialize restores a save state.
func (e *Emulator) Deserialize(data []byte) error {
	return e.m.Deserialize(data)
}

// VerifyState checks a save state without loading it.
func (e *Emulator) VerifyState(data []byte) error {
	return e.m.VerifyState(data)
}

// =============================================================================
// MemoryInspector interface
// =============================================================================

// ReadMemory reads from the flat CPU address space into buf and returns
// the number of bytes read.
func (e *Emulator) ReadMemory(addr uint32, buf []byte) uint32 {
	var count uint32
	for i := range buf {
		cur := addr + uint32(i)
		if cur > 0xFFFF {
			return count
		}
		buf[i] = e.m.mem.Read(uint16(cur))
		count++
	}
	return count
}

// =============================================================================
// MemoryMapper interface
// =============================================================================

// MemoryMap returns a list of available memory regions with sizes.
func (e *Emulator) MemoryMap() []emucore.MemoryRegion {
	return []emucore.MemoryRegion{
		{Type: emucore.MemorySystemRAM, Size: len(e.m.ram)},
	}
}

// ReadRegion returns a copy of the specified memory region.
func (e *Emulator) ReadRegion(regionType int) []byte {
	switch regionType {
	case emucore.MemorySystemRAM:
		out := make([]byte, len(e.m.ram))
		copy(out, e.m.ram[:])
		return out
	default:
		return nil
	}
}

// WriteRegion writes data to the specified memory region.
func (e *Emulator) WriteRegion(regionType int, data []byte) {
	switch regionType {
	case emucore.MemorySystemRAM:
		copy(e.m.ram[:], data)
	}
}
