package emu

// Model selects which member of the machine family to emulate.
type Model int

const (
	// ModelZ9001 is the original monochrome Robotron Z9001 (later KC85/1).
	ModelZ9001 Model = iota
	// ModelKC87 is the KC87 follow-up with built-in BASIC and color board.
	ModelKC87
)

func (m Model) String() string {
	switch m {
	case ModelZ9001:
		return "Z9001"
	case ModelKC87:
		return "KC87"
	default:
		return "unknown"
	}
}

// Frequency is the CPU clock in Hz. All peripheral timing derives from
// it through the CTC.
const Frequency = 2457600
