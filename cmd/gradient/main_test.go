package main

import (
	"bytes"
	"image"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/rmussadi/userland/modules/framesaver"
)

func TestRun_WritesGradient(t *testing.T) {
	path := filepath.Join(t.TempDir(), "joe.png")

	var out bytes.Buffer
	if err := run(&out, path, 4); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("Expected 4 matrix rows, got %d", len(lines))
	}
	if !strings.HasPrefix(lines[0], "[[  0") || !strings.HasSuffix(lines[3], "255]]") {
		t.Errorf("Unexpected matrix corners: %q ... %q", lines[0], lines[3])
	}

	// every printed sample is the stored 8-bit value
	gray := framesaver.Gradient(4, 4)
	var fields []string
	for _, line := range lines {
		fields = append(fields, strings.Fields(strings.Trim(line, " []"))...)
	}
	if len(fields) != 16 {
		t.Fatalf("Expected 16 samples, got %d", len(fields))
	}
	for i, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			t.Fatalf("sample %d = %q is not an integer", i, f)
		}
		if n != int(gray.Pix[i]) {
			t.Errorf("sample %d = %d, want %d", i, n, gray.Pix[i])
		}
	}

	img, err := framesaver.LoadImage(path)
	if err != nil {
		t.Fatalf("LoadImage failed: %v", err)
	}
	if img.Bounds() != image.Rect(0, 0, 4, 4) {
		t.Errorf("Bounds = %v", img.Bounds())
	}
	t.Logf("✅ Gradient written to %s", path)
}

func TestRun_InvalidSize(t *testing.T) {
	if err := run(&bytes.Buffer{}, filepath.Join(t.TempDir(), "x.png"), 0); err == nil {
		t.Error("Expected error for zero size")
	}
}
