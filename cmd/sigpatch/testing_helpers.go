package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"

	"github.com/joshuapare/sigpatch/internal/catalog"
	"github.com/joshuapare/sigpatch/internal/patch"
)

// resetFlags restores every command flag to its default.
func resetFlags() {
	verbose = false
	quiet = false
	jsonOut = false
	noColor = false
	catalogPath = ""
	logFile = ""

	applyPatches = nil
	applyOutput = ""
	applyDryRun = false
	applyNoBackup = false
	applyBackupSuffix = ".backup"
	applyStrict = false

	inspectPatch = ""
	inspectContext = 32

	catalogYAML = false

	color.NoColor = true
}

// buildImage returns a synthetic image carrying the signatures of the named
// built-in patches, each followed by filler so windows never overlap.
func buildImage(t *testing.T, names ...string) []byte {
	t.Helper()
	cat, err := catalog.Builtin()
	if err != nil {
		t.Fatalf("builtin catalog: %v", err)
	}

	fill := func(p []byte) []byte {
		out := append([]byte(nil), p...)
		for i, b := range out {
			if b == patch.Wildcard {
				out[i] = 0x11
			}
		}
		return out
	}

	img := append([]byte("MZ"), bytes.Repeat([]byte{0xCC}, 62)...)
	for _, name := range names {
		def, err := cat.Lookup(name)
		if err != nil {
			t.Fatalf("lookup %s: %v", name, err)
		}
		for _, e := range def.Edits {
			anchor := fill(e.Anchor)
			img = append(img, anchor...)
			if !bytes.Contains(anchor, fill(e.Before)) {
				img = append(img, 0xCC, 0xCC)
				img = append(img, fill(e.Before)...)
			}
			img = append(img, bytes.Repeat([]byte{0xCC}, 128)...)
		}
	}
	return img
}

// writeImage stores data as an executable in a fresh temp directory.
func writeImage(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "eu4.exe")
	if err := os.WriteFile(path, data, 0o755); err != nil {
		t.Fatalf("write image: %v", err)
	}
	if err := os.Chmod(path, 0o755); err != nil {
		t.Fatalf("chmod image: %v", err)
	}
	return path
}

// readFile returns the contents of path or fails the test.
func readFile(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return data
}

// captureOutput captures stdout while running a function
func captureOutput(t *testing.T, fn func() error) (string, error) {
	t.Helper()
	return capture(t, &os.Stdout, fn)
}

// captureStderr captures stderr while running a function
func captureStderr(t *testing.T, fn func() error) (string, error) {
	t.Helper()
	return capture(t, &os.Stderr, fn)
}

func capture(t *testing.T, target **os.File, fn func() error) (string, error) {
	t.Helper()

	orig := *target

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}
	*target = w

	// Drain concurrently so large output cannot block on a full pipe.
	done := make(chan struct{})
	var buf bytes.Buffer
	go func() {
		_, _ = buf.ReadFrom(r)
		close(done)
	}()

	fnErr := fn()

	w.Close()
	*target = orig
	<-done

	return buf.String(), fnErr
}

// assertJSON checks that output is valid JSON
func assertJSON(t *testing.T, output string) {
	t.Helper()
	var result interface{}
	if err := json.Unmarshal([]byte(output), &result); err != nil {
		t.Errorf("invalid JSON output: %v\nOutput: %s", err, output)
	}
}

// assertContains checks that output contains all expected strings
func assertContains(t *testing.T, output string, expected []string) {
	t.Helper()
	for _, want := range expected {
		if !strings.Contains(output, want) {
			t.Errorf("output missing expected string %q\nGot: %s", want, output)
		}
	}
}

// assertNotContains checks that output doesn't contain unwanted strings
func assertNotContains(t *testing.T, output string, unwanted []string) {
	t.Helper()
	for _, dont := range unwanted {
		if strings.Contains(output, dont) {
			t.Errorf("output contains unwanted string %q\nGot: %s", dont, output)
		}
	}
}
