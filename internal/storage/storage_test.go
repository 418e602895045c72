package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestLocal(t *testing.T, maxSize int64) *Local {
	t.Helper()
	base := t.TempDir()
	l, err := NewLocal(filepath.Join(base, "uploads"), filepath.Join(base, "outputs"), maxSize)
	if err != nil {
		t.Fatalf("NewLocal failed: %v", err)
	}
	return l
}

func TestSaveUpload(t *testing.T) {
	l := newTestLocal(t, 0)

	path, err := l.SaveUpload(strings.NewReader("video-bytes"), "My Lab Video.MP4")
	if err != nil {
		t.Fatalf("SaveUpload failed: %v", err)
	}
	if filepath.Ext(path) != ".mp4" {
		t.Errorf("Expected lowercased extension, got %q", path)
	}
	if strings.Contains(filepath.Base(path), "My Lab") {
		t.Error("Original name must not leak into the stored filename")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Reading upload failed: %v", err)
	}
	if string(data) != "video-bytes" {
		t.Errorf("Unexpected upload content: %q", data)
	}
}

func TestSaveUpload_SizeLimit(t *testing.T) {
	l := newTestLocal(t, 10)

	if _, err := l.SaveUpload(strings.NewReader("this is more than ten bytes"), "big.mp4"); err == nil {
		t.Fatal("Expected oversized upload to fail")
	}

	if _, err := l.SaveUpload(strings.NewReader("tiny"), "small.mp4"); err != nil {
		t.Errorf("Small upload should succeed: %v", err)
	}
}

func TestResolveOutput(t *testing.T) {
	l := newTestLocal(t, 0)

	name := "annotated_20260101_120000.mp4"
	if err := os.WriteFile(filepath.Join(l.OutputDir(), name), []byte("mp4"), 0644); err != nil {
		t.Fatalf("Seeding artifact failed: %v", err)
	}

	path, err := l.ResolveOutput(name)
	if err != nil {
		t.Fatalf("ResolveOutput failed: %v", err)
	}
	if filepath.Base(path) != name {
		t.Errorf("Unexpected resolved path: %q", path)
	}

	for _, bad := range []string{"../secret", "a/b.mp4", ".hidden", ""} {
		if _, err := l.ResolveOutput(bad); err == nil {
			t.Errorf("Expected %q to be rejected", bad)
		}
	}

	if _, err := l.ResolveOutput("missing.mp4"); err == nil {
		t.Error("Expected missing artifact to be rejected")
	}
}
