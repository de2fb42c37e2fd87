package emu

import (
	"encoding/binary"
	"errors"
	"hash/crc32"
	"math"
)

// =============================================================================
// Save State Serialization
// =============================================================================

const (
	stateVersion    = 1
	stateMagic      = "eKC87SvState"
	stateHeaderSize = 22 // 12 magic + 2 version + 4 ROM CRC + 4 data CRC
)

const (
	cpuStateSize     = 23
	pioPortStateSize = 11
	pioStateSize     = 2 * pioPortStateSize
	ctcChanStateSize = 11
	ctcStateSize     = 4 * ctcChanStateSize
	beeperStateSize  = 9
	machineStateSize = 21 // pins, ZCTO2 latch, blink flip flop and counter
	kbdStateSize     = 2 + 8 + kbdMaxPressed*14
)

// SerializeSize returns the total size in bytes needed for a save state.
func SerializeSize() int {
	return stateHeaderSize +
		cpuStateSize +
		2*pioStateSize +
		ctcStateSize +
		beeperStateSize +
		machineStateSize +
		kbdStateSize +
		0x10000 // RAM
}

// romCRC32 covers both the system ROM and the font ROM, so a save state
// can only be restored onto a machine running the same firmware.
func (m *Machine) romCRC32() uint32 {
	crc := crc32.ChecksumIEEE(m.rom[:])
	return crc32.Update(crc, crc32.IEEETable, m.romFont[:])
}

func putBool(data []byte, offset int, b bool) int {
	if b {
		data[offset] = 1
	} else {
		data[offset] = 0
	}
	return offset + 1
}

func getBool(data []byte, offset int) (bool, int) {
	return data[offset] != 0, offset + 1
}

// Serialize creates a save state and returns it as a byte slice.
func (m *Machine) Serialize() ([]byte, error) {
	data := make([]byte, SerializeSize())

	// Write header
	copy(data[0:12], stateMagic)
	binary.LittleEndian.PutUint16(data[12:14], stateVersion)
	binary.LittleEndian.PutUint32(data[14:18], m.romCRC32())
	// Data CRC will be written at the end

	offset := stateHeaderSize
	offset = m.serializeCPU(data, offset)
	offset = m.serializePIO(m.pio1, data, offset)
	offset = m.serializePIO(m.pio2, data, offset)
	offset = m.serializeCTC(data, offset)
	offset = m.serializeBeeper(data, offset)
	offset = m.serializeMachine(data, offset)
	offset = m.serializeKeyboard(data, offset)
	copy(data[offset:], m.ram[:])

	// Calculate and write data CRC32 (over everything after header)
	dataCRC := crc32.ChecksumIEEE(data[stateHeaderSize:])
	binary.LittleEndian.PutUint32(data[18:22], dataCRC)

	return data, nil
}

// Deserialize restores machine state from a save state byte slice. The
// framebuffer is not part of the state, it is re-decoded from the
// restored video RAM.
func (m *Machine) Deserialize(data []byte) error {
	if err := m.VerifyState(data); err != nil {
		return err
	}

	offset := stateHeaderSize
	offset = m.deserializeCPU(data, offset)
	offset = m.deserializePIO(m.pio1, data, offset)
	offset = m.deserializePIO(m.pio2, data, offset)
	offset = m.deserializeCTC(data, offset)
	offset = m.deserializeBeeper(data, offset)
	offset = m.deserializeMachine(data, offset)
	offset = m.deserializeKeyboard(data, offset)
	copy(m.ram[:], data[offset:])

	m.decodeFramebuffer()
	return nil
}

// VerifyState checks if a save state is valid without loading it.
func (m *Machine) VerifyState(data []byte) error {
	if len(data) < SerializeSize() {
		return errors.New("save state too short")
	}
	if string(data[0:12]) != stateMagic {
		return errors.New("invalid save state magic")
	}
	version := binary.LittleEndian.Uint16(data[12:14])
	if version > stateVersion {
		return errors.New("unsupported save state version")
	}
	romCRC := binary.LittleEndian.Uint32(data[14:18])
	if romCRC != m.romCRC32() {
		return errors.New("save state is for different ROMs")
	}
	expectedCRC := binary.LittleEndian.Uint32(data[18:22])
	actualCRC := crc32.ChecksumIEEE(data[stateHeaderSize:])
	if expectedCRC != actualCRC {
		return errors.New("save state data is corrupted")
	}
	return nil
}

func (m *Machine) serializeCPU(data []byte, offset int) int {
	cpu := m.cpu.cpu
	data[offset+0] = cpu.AF.Hi
	data[offset+1] = cpu.AF.Lo
	data[offset+2] = cpu.BC.Hi
	data[offset+3] = cpu.BC.Lo
	data[offset+4] = cpu.DE.Hi
	data[offset+5] = cpu.DE.Lo
	data[offset+6] = cpu.HL.Hi
	data[offset+7] = cpu.HL.Lo
	data[offset+8] = cpu.Alternate.AF.Hi
	data[offset+9] = cpu.Alternate.AF.Lo
	data[offset+10] = cpu.Alternate.BC.Hi
	data[offset+11] = cpu.Alternate.BC.Lo
	data[offset+12] = cpu.Alternate.DE.Hi
	data[offset+13] = cpu.Alternate.DE.Lo
	data[offset+14] = cpu.Alternate.HL.Hi
	data[offset+15] = cpu.Alternate.HL.Lo
	data[offset+16] = cpu.IR.Hi
	data[offset+17] = cpu.IR.Lo
	binary.LittleEndian.PutUint16(data[offset+18:], cpu.SP)
	binary.LittleEndian.PutUint16(data[offset+20:], cpu.PC)
	var flags uint8
	if cpu.IFF1 {
		flags |= 1 << 0
	}
	if cpu.IFF2 {
		flags |= 1 << 1
	}
	if cpu.HALT {
		flags |= 1 << 2
	}
	if m.cpu.afterEI {
		flags |= 1 << 3
	}
	flags |= uint8(cpu.IM) << 4
	data[offset+22] = flags
	return offset + cpuStateSize
}

func (m *Machine) deserializeCPU(data []byte, offset int) int {
	cpu := m.cpu.cpu
	cpu.AF.Hi = data[offset+0]
	cpu.AF.Lo = data[offset+1]
	cpu.BC.Hi = data[offset+2]
	cpu.BC.Lo = data[offset+3]
	cpu.DE.Hi = data[offset+4]
	cpu.DE.Lo = data[offset+5]
	cpu.HL.Hi = data[offset+6]
	cpu.HL.Lo = data[offset+7]
	cpu.Alternate.AF.Hi = data[offset+8]
	cpu.Alternate.AF.Lo = data[offset+9]
	cpu.Alternate.BC.Hi = data[offset+10]
	cpu.Alternate.BC.Lo = data[offset+11]
	cpu.Alternate.DE.Hi = data[offset+12]
	cpu.Alternate.DE.Lo = data[offset+13]
	cpu.Alternate.HL.Hi = data[offset+14]
	cpu.Alternate.HL.Lo = data[offset+15]
	cpu.IR.Hi = data[offset+16]
	cpu.IR.Lo = data[offset+17]
	cpu.SP = binary.LittleEndian.Uint16(data[offset+18:])
	cpu.PC = binary.LittleEndian.Uint16(data[offset+20:])
	flags := data[offset+22]
	cpu.IFF1 = flags&(1<<0) != 0
	cpu.IFF2 = flags&(1<<1) != 0
	cpu.HALT = flags&(1<<2) != 0
	m.cpu.afterEI = flags&(1<<3) != 0
	cpu.IM = int(flags >> 4)
	return offset + cpuStateSize
}

func (m *Machine) serializePIO(p *PIO, data []byte, offset int) int {
	for i := range p.ports {
		port := &p.ports[i]
		data[offset+0] = port.mode
		data[offset+1] = port.output
		data[offset+2] = port.input
		data[offset+3] = port.ioSelect
		data[offset+4] = port.intCtrlW
		data[offset+5] = port.intMask
		putBool(data, offset+6, port.match)
		putBool(data, offset+7, port.expectIOSelect)
		putBool(data, offset+8, port.expectIntMask)
		data[offset+9] = port.irq.vector
		data[offset+10] = uint8(port.irq.state)
		offset += pioPortStateSize
	}
	return offset
}

func (m *Machine) deserializePIO(p *PIO, data []byte, offset int) int {
	for i := range p.ports {
		port := &p.ports[i]
		port.mode = data[offset+0]
		port.output = data[offset+1]
		port.input = data[offset+2]
		port.ioSelect = data[offset+3]
		port.intCtrlW = data[offset+4]
		port.intMask = data[offset+5]
		port.match, _ = getBool(data, offset+6)
		port.expectIOSelect, _ = getBool(data, offset+7)
		port.expectIntMask, _ = getBool(data, offset+8)
		port.irq.vector = data[offset+9]
		port.irq.state = intState(data[offset+10])
		offset += pioPortStateSize
	}
	return offset
}

func (m *Machine) serializeCTC(data []byte, offset int) int {
	for i := range m.ctc.chn {
		ch := &m.ctc.chn[i]
		data[offset+0] = ch.control
		binary.LittleEndian.PutUint16(data[offset+1:], ch.constant)
		binary.LittleEndian.PutUint16(data[offset+3:], ch.downCounter)
		binary.LittleEndian.PutUint16(data[offset+5:], ch.prescaler)
		putBool(data, offset+7, ch.waitTrigger)
		putBool(data, offset+8, ch.trgPrev)
		data[offset+9] = ch.irq.vector
		data[offset+10] = uint8(ch.irq.state)
		offset += ctcChanStateSize
	}
	return offset
}

func (m *Machine) deserializeCTC(data []byte, offset int) int {
	for i := range m.ctc.chn {
		ch := &m.ctc.chn[i]
		ch.control = data[offset+0]
		ch.constant = binary.LittleEndian.Uint16(data[offset+1:])
		ch.downCounter = binary.LittleEndian.Uint16(data[offset+3:])
		ch.prescaler = binary.LittleEndian.Uint16(data[offset+5:])
		ch.waitTrigger, _ = getBool(data, offset+7)
		ch.trgPrev, _ = getBool(data, offset+8)
		ch.irq.vector = data[offset+9]
		ch.irq.state = intState(data[offset+10])
		offset += ctcChanStateSize
	}
	return offset
}

func (m *Machine) serializeBeeper(data []byte, offset int) int {
	putBool(data, offset, m.bee.state)
	binary.LittleEndian.PutUint32(data[offset+1:], uint32(int32(m.bee.acc)))
	binary.LittleEndian.PutUint32(data[offset+5:], math.Float32bits(m.bee.sample))
	return offset + beeperStateSize
}

func (m *Machine) deserializeBeeper(data []byte, offset int) int {
	m.bee.state, _ = getBool(data, offset)
	m.bee.acc = int(int32(binary.LittleEndian.Uint32(data[offset+1:])))
	m.bee.sample = math.Float32frombits(binary.LittleEndian.Uint32(data[offset+5:]))
	return offset + beeperStateSize
}

func (m *Machine) serializeMachine(data []byte, offset int) int {
	binary.LittleEndian.PutUint64(data[offset:], m.pins)
	binary.LittleEndian.PutUint64(data[offset+8:], m.ctcZCTO2)
	data[offset+16] = m.blinkFlipFlop
	binary.LittleEndian.PutUint32(data[offset+17:], m.blinkCounter)
	return offset + machineStateSize
}

func (m *Machine) deserializeMachine(data []byte, offset int) int {
	m.pins = binary.LittleEndian.Uint64(data[offset:])
	m.ctcZCTO2 = binary.LittleEndian.Uint64(data[offset+8:])
	m.blinkFlipFlop = data[offset+16]
	m.blinkCounter = binary.LittleEndian.Uint32(data[offset+17:])
	return offset + machineStateSize
}

func (m *Machine) serializeKeyboard(data []byte, offset int) int {
	kbd := m.kbd
	data[offset+0] = kbd.activeColumns
	data[offset+1] = kbd.activeLines
	binary.LittleEndian.PutUint32(data[offset+2:], uint32(int32(kbd.frame)))
	binary.LittleEndian.PutUint32(data[offset+6:], uint32(int32(kbd.microsAcc)))
	offset += 10
	for i := range kbd.pressed {
		p := &kbd.pressed[i]
		data[offset+0] = p.code
		copy(data[offset+1:], p.overlay[:])
		binary.LittleEndian.PutUint32(data[offset+9:], uint32(int32(p.frame)))
		putBool(data, offset+13, p.released)
		offset += 14
	}
	return offset
}

func (m *Machine) deserializeKeyboard(data []byte, offset int) int {
	kbd := m.kbd
	kbd.activeColumns = data[offset+0]
	kbd.activeLines = data[offset+1]
	kbd.frame = int(int32(binary.LittleEndian.Uint32(data[offset+2:])))
	kbd.microsAcc = int(int32(binary.LittleEndian.Uint32(data[offset+6:])))
	offset += 10
	for i := range kbd.pressed {
		p := &kbd.pressed[i]
		p.code = data[offset+0]
		copy(p.overlay[:], data[offset+1:offset+9])
		p.frame = int(int32(binary.LittleEndian.Uint32(data[offset+9:])))
		p.released, _ = getBool(data, offset+13)
		offset += 14
	}
	return offset
}
