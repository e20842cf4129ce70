// Package output manages the on-disk layout of crawl artifacts.
//
// Under the output root every artifact kind has a fixed subdirectory and
// each artifact is named {identifier}.{ext}:
//
//	html/     raw markup           {id}.html
//	txt/      visible page text    {id}.txt
//	pdf/      raw documents        {id}.pdf
//	pdf2txt/  document text        {id}.txt
//	zip/      raw archives         {id}.zip
//	unzipped/ archive staging      {id}/...
package output

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Fixed subdirectories of the output root.
const (
	DirHTML     = "html"
	DirText     = "txt"
	DirPDF      = "pdf"
	DirPDFText  = "pdf2txt"
	DirZip      = "zip"
	DirUnzipped = "unzipped"
)

// Dirs lists every subdirectory created by Prepare.
var Dirs = []string{DirHTML, DirText, DirPDF, DirPDFText, DirZip, DirUnzipped}

// cacheDirs are the directories holding raw artifacts. An identifier
// present in any of them counts as already downloaded.
var cacheDirs = []struct {
	dir string
	ext string
}{
	{DirHTML, ".html"},
	{DirPDF, ".pdf"},
	{DirZip, ".zip"},
}

// ErrUnsafeOutputRoot is returned by Prepare when wiping the root would
// delete the filesystem root, the working directory or the home directory.
var ErrUnsafeOutputRoot = errors.New("refusing to wipe output root")

// Layout resolves artifact paths under one output root.
type Layout struct {
	root string
}

// NewLayout creates a Layout rooted at root. Nothing is created on disk
// until Prepare is called.
func NewLayout(root string) *Layout {
	return &Layout{root: filepath.Clean(root)}
}

// Root returns the output root.
func (l *Layout) Root() string {
	return l.root
}

// Prepare creates the fixed subdirectories. When fresh is true the root is
// removed first so the run starts from an empty tree.
func (l *Layout) Prepare(fresh bool) error {
	if fresh {
		if err := l.checkWipe(); err != nil {
			return err
		}
		if err := os.RemoveAll(l.root); err != nil {
			return fmt.Errorf("failed to clean output root: %w", err)
		}
	}

	for _, dir := range Dirs {
		if err := os.MkdirAll(l.Dir(dir), 0o750); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}

// checkWipe rejects roots whose removal would be destructive beyond the
// crawl output.
func (l *Layout) checkWipe() error {
	abs, err := filepath.Abs(l.root)
	if err != nil {
		return fmt.Errorf("failed to resolve output root: %w", err)
	}

	protected := []string{filepath.VolumeName(abs) + string(filepath.Separator)}
	if cwd, err := os.Getwd(); err == nil {
		protected = append(protected, cwd)
	}
	if home, err := os.UserHomeDir(); err == nil {
		protected = append(protected, home)
	}

	for _, p := range protected {
		if abs == filepath.Clean(p) {
			return fmt.Errorf("%w: %s", ErrUnsafeOutputRoot, abs)
		}
	}
	return nil
}

// Dir returns the path of one subdirectory.
func (l *Layout) Dir(name string) string {
	return filepath.Join(l.root, name)
}

// Path returns the path of the artifact id+ext inside dir.
func (l *Layout) Path(dir, id, ext string) string {
	return filepath.Join(l.root, dir, id+ext)
}

// StagingDir returns the directory an archive with the given identifier is
// unpacked into. Each archive gets its own directory so concurrent
// extractions never share one.
func (l *Layout) StagingDir(id string) string {
	return filepath.Join(l.root, DirUnzipped, id)
}

// HasArtifact reports whether a raw artifact for id already exists.
func (l *Layout) HasArtifact(id string) bool {
	for _, c := range cacheDirs {
		if _, err := os.Stat(l.Path(c.dir, id, c.ext)); err == nil {
			return true
		}
	}
	return false
}

// WriteFile writes data to dir/name and returns the written path.
func (l *Layout) WriteFile(dir, name string, data []byte) (string, error) {
	path := filepath.Join(l.root, dir, name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}
