package extract

import (
	"archive/zip"
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	spiderlog "github.com/nao1215/sitespider/internal/log"
	"github.com/nao1215/sitespider/internal/output"
)

// newTestLayout prepares an output layout in a temporary directory.
func newTestLayout(t *testing.T) *output.Layout {
	t.Helper()

	out := output.NewLayout(filepath.Join(t.TempDir(), "out"))
	if err := out.Prepare(true); err != nil {
		t.Fatalf("failed to prepare layout: %v", err)
	}
	return out
}

// captureChannels returns channels that all write into one buffer.
func captureChannels(t *testing.T) (*spiderlog.Channels, *bytes.Buffer) {
	t.Helper()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return spiderlog.NewChannelsFromLogger(logger), &buf
}

// zipBytes builds an in-memory zip archive.
func zipBytes(t *testing.T, entries map[string][]byte) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range entries {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("failed to add %s: %v", name, err)
		}
		if _, err := w.Write(content); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("failed to close zip: %v", err)
	}
	return buf.Bytes()
}

// readArtifact reads a file under the layout, failing the test if missing.
func readArtifact(t *testing.T, out *output.Layout, dir, name string) string {
	t.Helper()

	data, err := os.ReadFile(filepath.Join(out.Dir(dir), name))
	if err != nil {
		t.Fatalf("expected artifact %s/%s: %v", dir, name, err)
	}
	return string(data)
}

// assertMissing fails the test if the artifact exists.
func assertMissing(t *testing.T, out *output.Layout, dir, name string) {
	t.Helper()

	if _, err := os.Stat(filepath.Join(out.Dir(dir), name)); err == nil {
		t.Errorf("expected no artifact %s/%s", dir, name)
	}
}

// countFiles returns the number of entries in a layout subdirectory.
func countFiles(t *testing.T, out *output.Layout, dir string) int {
	t.Helper()

	entries, err := os.ReadDir(out.Dir(dir))
	if err != nil {
		t.Fatalf("failed to read %s: %v", dir, err)
	}
	return len(entries)
}
