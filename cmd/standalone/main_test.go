//go:build !libretro && !ios

package main

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestResolveProgram_BarePathPassesThrough(t *testing.T) {
	path, cleanup, err := resolveProgram("/some/dir/game.tap")
	if err != nil {
		t.Fatalf("resolveProgram failed: %v", err)
	}
	defer cleanup()
	if path != "/some/dir/game.tap" {
		t.Errorf("Bare program path rewritten to %s", path)
	}
}

func TestResolveProgram_ExtractsArchive(t *testing.T) {
	payload := []byte("\xC3KC-TAPE by AF. ")

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	f, err := w.Create("game.tap")
	if err != nil {
		t.Fatalf("creating zip entry: %v", err)
	}
	f.Write(payload)
	w.Close()

	archive := filepath.Join(t.TempDir(), "game.zip")
	if err := os.WriteFile(archive, buf.Bytes(), 0644); err != nil {
		t.Fatalf("writing archive: %v", err)
	}

	path, cleanup, err := resolveProgram(archive)
	if err != nil {
		t.Fatalf("resolveProgram failed: %v", err)
	}
	defer cleanup()

	if filepath.Base(path) != "game.tap" {
		t.Errorf("Extracted name: expected game.tap, got %s", filepath.Base(path))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading extracted file: %v", err)
	}
	if !bytes.Equal(data, payload) {
		t.Error("Extracted data does not match the archived program")
	}

	cleanup()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Cleanup left the extracted file behind")
	}
}

func TestResolveProgram_BadArchive(t *testing.T) {
	archive := filepath.Join(t.TempDir(), "empty.zip")
	if err := os.WriteFile(archive, []byte("not a zip"), 0644); err != nil {
		t.Fatalf("writing file: %v", err)
	}
	if _, _, err := resolveProgram(archive); err == nil {
		t.Error("Expected an error for a corrupt archive")
	}
}
