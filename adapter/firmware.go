package adapter

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/user-none/ekc87/emu"
)

// Firmware ROM image file names. The machine cannot boot without its
// original firmware, which has to be provided by the user.
const (
	fileKC87OS     = "kc87_os.bin"     // 8 KB
	fileKC87BASIC  = "kc87_basic.bin"  // 8 KB
	fileKC87Font   = "kc87_font.bin"   // 2 KB
	fileZ9001OS1   = "z9001_os_1.bin"  // 2 KB
	fileZ9001OS2   = "z9001_os_2.bin"  // 2 KB
	fileZ9001Font  = "z9001_font.bin"  // 2 KB
	fileZ9001BASIC = "z9001_basic.bin" // 10 KB plug-in module, optional
)

// firmwareDirs returns the search path for firmware images: the
// EKC87_FIRMWARE environment variable, the per-user config directory,
// then a firmware directory next to the binary's working directory.
func firmwareDirs() []string {
	var dirs []string
	if dir := os.Getenv("EKC87_FIRMWARE"); dir != "" {
		dirs = append(dirs, dir)
	}
	if cfg, err := os.UserConfigDir(); err == nil {
		dirs = append(dirs, filepath.Join(cfg, "ekc87", "firmware"))
	}
	return append(dirs, "firmware")
}

func readFirmware(name string) ([]byte, error) {
	dirs := firmwareDirs()
	for _, dir := range dirs {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err == nil {
			return data, nil
		}
	}
	return nil, fmt.Errorf("firmware image %s not found in %v", name, dirs)
}

// LoadFirmware reads the ROM images for a model from the firmware
// search path. The Z9001 BASIC module is loaded only when present.
func LoadFirmware(model emu.Model) (emu.ROMDesc, error) {
	var roms emu.ROMDesc
	var err error
	if model == emu.ModelZ9001 {
		if roms.OS1, err = readFirmware(fileZ9001OS1); err != nil {
			return roms, err
		}
		if roms.OS2, err = readFirmware(fileZ9001OS2); err != nil {
			return roms, err
		}
		if roms.Font, err = readFirmware(fileZ9001Font); err != nil {
			return roms, err
		}
		// the BASIC module is optional
		if basic, err := readFirmware(fileZ9001BASIC); err == nil {
			roms.Basic = basic
		}
		return roms, nil
	}
	if roms.OS, err = readFirmware(fileKC87OS); err != nil {
		return roms, err
	}
	if roms.Basic, err = readFirmware(fileKC87BASIC); err != nil {
		return roms, err
	}
	if roms.Font, err = readFirmware(fileKC87Font); err != nil {
		return roms, err
	}
	return roms, nil
}
