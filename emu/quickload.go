package emu

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

/* Quickload file formats:

   KCC is a bare memory image: a 128 byte header with name, load, end
   and optional exec address, followed by the payload as one continuous
   run of bytes.

   KC TAP wraps the same header in a tape container: a 16 byte
   signature, a type byte, the KCC header, then the payload chopped
   into blocks of one tape lead byte plus 128 data bytes.
*/

const (
	kccHeaderSize   = 128
	kctapHeaderSize = 16 + 1 + kccHeaderSize
	kctapBlockSize  = 128
)

var kctapSignature = []byte("\xC3KC-TAPE by AF. ")

type kccHeader struct {
	name     [16]uint8
	numAddr  uint8
	loadAddr uint16
	endAddr  uint16
	execAddr uint16
}

func parseKCCHeader(data []uint8) kccHeader {
	var h kccHeader
	copy(h.name[:], data[0:16])
	h.numAddr = data[16]
	h.loadAddr = binary.LittleEndian.Uint16(data[17:])
	h.endAddr = binary.LittleEndian.Uint16(data[19:])
	h.execAddr = binary.LittleEndian.Uint16(data[21:])
	return h
}

// validate checks the address fields for plausibility. KCC files carry
// no magic number, so this is also the only way to identify them.
func (h *kccHeader) validate(payloadLen int) bool {
	for _, c := range h.name {
		if c >= 128 {
			return false
		}
	}
	if h.numAddr > 3 {
		return false
	}
	if h.endAddr <= h.loadAddr {
		return false
	}
	if h.numAddr > 2 && (h.execAddr < h.loadAddr || h.execAddr > h.endAddr) {
		return false
	}
	return int(h.endAddr-h.loadAddr) <= payloadLen
}

func isValidKCTAP(data []uint8) bool {
	if len(data) <= kctapHeaderSize {
		return false
	}
	if !bytes.Equal(data[:16], kctapSignature) {
		return false
	}
	h := parseKCCHeader(data[17:])
	return h.validate(len(data) - kctapHeaderSize)
}

func isValidKCC(data []uint8) bool {
	if len(data) <= kccHeaderSize {
		return false
	}
	h := parseKCCHeader(data)
	return h.validate(len(data) - kccHeaderSize)
}

// loadStart clears the register file and jumps into the loaded program,
// the way the OS cassette loader hands over control.
func (m *Machine) loadStart(execAddr uint16) {
	m.cpu.ClearRegisters()
	m.cpu.SetPC(execAddr)
}

func (m *Machine) loadKCC(data []uint8) error {
	h := parseKCCHeader(data)
	addr := h.loadAddr
	for _, b := range data[kccHeaderSize : kccHeaderSize+int(h.endAddr-h.loadAddr)] {
		m.mem.Write(addr, b)
		addr++
	}
	if h.numAddr > 2 {
		m.loadStart(h.execAddr)
	}
	return nil
}

func (m *Machine) loadKCTAP(data []uint8) error {
	h := parseKCCHeader(data[17:])
	addr := h.loadAddr
	pos := kctapHeaderSize
	for addr < h.endAddr {
		// skip the tape lead byte of each block
		pos++
		for i := 0; i < kctapBlockSize && addr < h.endAddr; i++ {
			if pos >= len(data) {
				return fmt.Errorf("KC TAP file truncated at 0x%04X", addr)
			}
			m.mem.Write(addr, data[pos])
			addr++
			pos++
		}
	}
	if h.numAddr > 2 {
		m.loadStart(h.execAddr)
	}
	return nil
}

// Quickload copies a KC TAP or KCC image directly into memory,
// bypassing the cassette interface. If the image carries an exec
// address the CPU is started on it.
func (m *Machine) Quickload(data []uint8) error {
	// check for KC TAP first, it is the only one that can be properly
	// identified
	if isValidKCTAP(data) {
		return m.loadKCTAP(data)
	}
	if isValidKCC(data) {
		return m.loadKCC(data)
	}
	return fmt.Errorf("not a KC TAP or KCC image")
}
