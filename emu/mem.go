package emu

const (
	memPageShift = 10
	memPageSize  = 1 << memPageShift
	memNumPages  = 0x10000 / memPageSize
	memNumLayers = 2
)

type memPage struct {
	read  []uint8
	write []uint8
}

// Memory is a layered 64 KB address decoder with 1 KB page granularity.
// Layer 0 has the highest priority; a CPU access resolves to the first
// layer with a mapping for that page. Reads from fully unmapped pages
// return 0xFF, writes to them are dropped.
type Memory struct {
	layers   [memNumLayers][memNumPages]memPage
	pages    [memNumPages]memPage
	unmapped [memPageSize]uint8
}

func NewMemory() *Memory {
	m := &Memory{}
	for i := range m.unmapped {
		m.unmapped[i] = 0xFF
	}
	m.updatePages(0, memNumPages)
	return m
}

// MapRAM maps read/write memory into a layer. addr and the buffer length
// must be page aligned.
func (m *Memory) MapRAM(layer int, addr uint16, buf []uint8) {
	m.mapPages(layer, addr, buf, buf)
}

// MapROM maps read-only memory into a layer. Writes through this mapping
// are dropped unless a lower-priority layer is never consulted, matching
// real ROM on the bus.
func (m *Memory) MapROM(layer int, addr uint16, buf []uint8) {
	m.mapPages(layer, addr, buf, nil)
}

func (m *Memory) mapPages(layer int, addr uint16, read, write []uint8) {
	if addr&(memPageSize-1) != 0 || len(read)&(memPageSize-1) != 0 {
		panic("memory mapping must be page aligned")
	}
	first := int(addr) >> memPageShift
	num := len(read) >> memPageShift
	for i := 0; i < num; i++ {
		off := i << memPageShift
		page := &m.layers[layer][first+i]
		page.read = read[off : off+memPageSize]
		if write != nil {
			page.write = write[off : off+memPageSize]
		} else {
			page.write = nil
		}
	}
	m.updatePages(first, num)
}

// UnmapLayer removes every mapping in a layer.
func (m *Memory) UnmapLayer(layer int) {
	m.layers[layer] = [memNumPages]memPage{}
	m.updatePages(0, memNumPages)
}

// updatePages recomputes the resolved page table for a page range.
func (m *Memory) updatePages(first, num int) {
	for i := first; i < first+num; i++ {
		resolved := memPage{read: m.unmapped[:]}
		for l := 0; l < memNumLayers; l++ {
			if m.layers[l][i].read != nil {
				resolved = m.layers[l][i]
				break
			}
		}
		m.pages[i] = resolved
	}
}

func (m *Memory) Read(addr uint16) uint8 {
	page := &m.pages[addr>>memPageShift]
	return page.read[addr&(memPageSize-1)]
}

func (m *Memory) Write(addr uint16, data uint8) {
	page := &m.pages[addr>>memPageShift]
	if page.write != nil {
		page.write[addr&(memPageSize-1)] = data
	}
}

// Get implements the CPU-side bus read (z80.Memory).
func (m *Memory) Get(addr uint16) uint8 {
	return m.Read(addr)
}

// Set implements the CPU-side bus write (z80.Memory).
func (m *Memory) Set(addr uint16, data uint8) {
	m.Write(addr, data)
}

// Read16 reads a little-endian 16-bit word.
func (m *Memory) Read16(addr uint16) uint16 {
	return uint16(m.Read(addr)) | uint16(m.Read(addr+1))<<8
}

// Write16 writes a little-endian 16-bit word.
func (m *Memory) Write16(addr uint16, data uint16) {
	m.Write(addr, uint8(data))
	m.Write(addr+1, uint8(data>>8))
}
