package adapter

import (
	emucore "github.com/user-none/eblitui/api"
	"github.com/user-none/ekc87/emu"
)

// Compile-time interface check.
var _ emucore.CoreFactory = (*Factory)(nil)

// Factory implements emucore.CoreFactory for the Z9001/KC87 emulator.
// Model selects the firmware set loaded at creation time; the zero
// value gives a KC87.
type Factory struct {
	Model emu.Model
}

// SystemInfo returns system metadata for UI configuration.
func (f *Factory) SystemInfo() emucore.SystemInfo {
	return emucore.SystemInfo{
		Name:            "ekc87",
		ConsoleName:     "Robotron Z9001 / KC87",
		Extensions:      []string{".tap", ".kcc"},
		ScreenWidth:     emu.DisplayWidth,
		MaxScreenHeight: emu.DisplayHeight,
		AspectRatio:     float64(emu.DisplayWidth) / float64(emu.DisplayHeight),
		SampleRate:      48000,
		Buttons: []emucore.Button{
			{Name: "Enter", ID: emu.ButtonEnter, DefaultKey: "Enter", DefaultPad: "A"},
			{Name: "Space", ID: emu.ButtonSpace, DefaultKey: "Space", DefaultPad: "B"},
			{Name: "Stop", ID: emu.ButtonStop, DefaultKey: "Escape", DefaultPad: "Select"},
			{Name: "Run", ID: emu.ButtonRun, DefaultKey: "R", DefaultPad: "Start"},
		},
		Players: 1,
		CoreOptions: []emucore.CoreOption{
			{
				Key:         "model_z9001",
				Label:       "Emulate Z9001",
				Description: "Boot the monochrome Z9001 firmware instead of the KC87",
				Type:        emucore.CoreOptionBool,
				Default:     "false",
				Category:    emucore.CoreOptionCategoryVideo,
			},
		},
		RDBName:       "Robotron - Z9001 - KC87",
		ThumbnailRepo: "Robotron_-_Z9001_-_KC87",
		DataDirName:   "ekc87",
		ConsoleID:     0,
		CoreName:      emu.Name,
		CoreVersion:   emu.Version,
		SerializeSize: emu.SerializeSize(),
	}
}

// CreateEmulator creates a new emulator instance with the given program
// image. The firmware ROMs are read from the firmware search path.
func (f *Factory) CreateEmulator(rom []byte, region emucore.Region) (emucore.Emulator, error) {
	return emu.NewEmulator(rom, f.Model, LoadFirmware)
}

// DetectRegion reports the fixed region: these machines were built for
// 50 Hz displays only.
func (f *Factory) DetectRegion(rom []byte) (emucore.Region, bool) {
	return emucore.RegionPAL, true
}
