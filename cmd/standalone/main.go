//go:build !libretro && !ios

package main

import (
	"flag"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/user-none/eblitui/standalone"
	"github.com/user-none/ekc87/adapter"
	"github.com/user-none/ekc87/emu"
	"github.com/user-none/ekc87/romloader"
)

// resolveProgram extracts an archive-wrapped program image (zip, 7z,
// gzip, tar, rar) to a temporary file and returns its path along with a
// cleanup function. Bare .tap/.kcc paths pass through untouched.
func resolveProgram(path string) (string, func(), error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tap", ".kcc":
		return path, func() {}, nil
	}
	data, name, err := romloader.LoadProgram(path)
	if err != nil {
		return "", nil, err
	}
	dir, err := os.MkdirTemp("", "ekc87")
	if err != nil {
		return "", nil, err
	}
	extracted := filepath.Join(dir, name)
	if err := os.WriteFile(extracted, data, 0644); err != nil {
		os.RemoveAll(dir)
		return "", nil, err
	}
	return extracted, func() { os.RemoveAll(dir) }, nil
}

func main() {
	programPath := flag.String("program", "", "path to KC TAP/KCC program file, bare or archived (opens UI if not provided)")
	modelFlag := flag.String("model", "kc87", "machine model: kc87 or z9001")
	flag.Parse()

	model := emu.ModelKC87
	if *modelFlag == "z9001" {
		model = emu.ModelZ9001
	}
	factory := &adapter.Factory{Model: model}

	if *programPath != "" {
		path, cleanup, err := resolveProgram(*programPath)
		if err != nil {
			log.Fatal(err)
		}
		defer cleanup()

		options := map[string]string{}
		if model == emu.ModelZ9001 {
			options["model_z9001"] = "true"
		}
		if err := standalone.RunDirect(factory, path, "pal", options); err != nil {
			log.Fatal(err)
		}
		return
	}

	if err := standalone.Run(factory); err != nil {
		log.Fatal(err)
	}
}
