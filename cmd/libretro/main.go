package main

import (
	libretro "github.com/user-none/eblitui/libretro"
	"github.com/user-none/ekc87/adapter"
	"github.com/user-none/ekc87/emu"
)

func init() {
	libretro.RegisterFactory(&adapter.Factory{}, []libretro.RetropadMapping{
		{RetroID: libretro.JoypadA, BitID: emu.ButtonEnter},
		{RetroID: libretro.JoypadB, BitID: emu.ButtonSpace},
		{RetroID: libretro.JoypadSelect, BitID: emu.ButtonStop},
		{RetroID: libretro.JoypadStart, BitID: emu.ButtonRun},
	})
}

func main() {}
