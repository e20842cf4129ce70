package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/nao1215/sitespider/internal/model"
)

// ErrUnsafeEntry is returned for entries whose path would escape the
// destination directory.
var ErrUnsafeEntry = errors.New("unsafe archive entry")

// Unpack extracts every entry of the zip file at zipPath into destDir,
// keeping relative paths, and returns the first-level member tree.
func Unpack(zipPath, destDir string) (*model.MemberTree, error) {
	r, err := zip.OpenReader(zipPath)
	if errors.Is(err, zip.ErrInsecurePath) {
		_ = r.Close()
		return nil, fmt.Errorf("%w: %w", ErrUnsafeEntry, err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	defer r.Close()

	if err := os.MkdirAll(destDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}

	for _, f := range r.File {
		if err := extractEntry(f, destDir); err != nil {
			return nil, err
		}
	}

	return listTree(destDir)
}

// extractEntry writes one entry below destDir.
func extractEntry(f *zip.File, destDir string) error {
	name := filepath.FromSlash(f.Name)
	if !filepath.IsLocal(name) {
		return fmt.Errorf("%w: %s", ErrUnsafeEntry, f.Name)
	}
	target := filepath.Join(destDir, name)

	if f.FileInfo().IsDir() || strings.HasSuffix(f.Name, "/") {
		return os.MkdirAll(target, 0o750)
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", f.Name, err)
	}

	src, err := f.Open()
	if err != nil {
		return fmt.Errorf("failed to open entry %s: %w", f.Name, err)
	}
	defer src.Close()

	dst, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600) //nolint:gosec // target is checked with filepath.IsLocal
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", target, err)
	}

	if _, err := io.Copy(dst, src); err != nil { //nolint:gosec // entries come from a crawled archive and are bounded by the fetch size limit
		_ = dst.Close()
		return fmt.Errorf("failed to extract %s: %w", f.Name, err)
	}
	return dst.Close()
}

// listTree lists the subdirectories and regular files directly under root.
func listTree(root string) (*model.MemberTree, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("failed to list staging directory: %w", err)
	}

	tree := &model.MemberTree{Root: root}
	for _, e := range entries {
		switch {
		case e.IsDir():
			tree.Dirs = append(tree.Dirs, e.Name())
		case e.Type().IsRegular():
			tree.Files = append(tree.Files, e.Name())
		}
	}
	sort.Strings(tree.Dirs)
	sort.Strings(tree.Files)
	return tree, nil
}

// PackDir writes every file and directory under srcDir into a new
// deflate-compressed zip at dstFile. Entry names are relative to srcDir.
func PackDir(srcDir, dstFile string) error {
	out, err := os.Create(dstFile) //nolint:gosec // destination is chosen by the user
	if err != nil {
		return fmt.Errorf("failed to create archive: %w", err)
	}

	zw := zip.NewWriter(out)
	walkErr := filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		name := filepath.ToSlash(rel)

		if d.IsDir() {
			_, err := zw.Create(name + "/")
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		return addFile(zw, path, name)
	})

	closeErr := zw.Close()
	fileErr := out.Close()
	if err := errors.Join(walkErr, closeErr, fileErr); err != nil {
		_ = os.Remove(dstFile) //nolint:errcheck // Best effort cleanup of a partial archive
		return fmt.Errorf("failed to pack %s: %w", srcDir, err)
	}
	return nil
}

// addFile copies one file into the archive.
func addFile(zw *zip.Writer, path, name string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	header.Name = name
	header.Method = zip.Deflate

	w, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}

	f, err := os.Open(path) //nolint:gosec // path comes from walking the output root
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = io.Copy(w, f)
	return err
}
