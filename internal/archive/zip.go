package archive

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/samber/lo"

	ierr "github.com/palmsuites/invoicegen/internal/errors"
)

// WriteDir streams a zip of every PDF directly under dir to w. A
// missing or empty directory is a not-found condition, not an empty
// archive.
func WriteDir(w io.Writer, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ierr.WithError(err).
			WithHint("no invoices exist for this period").
			Mark(ierr.ErrNotFound)
	}

	paths := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	if len(paths) == 0 {
		return ierr.NewError("period directory holds no PDFs").
			WithHint("no invoices exist for this period").
			Mark(ierr.ErrNotFound)
	}
	return WriteFiles(w, paths)
}

// WriteFiles streams a zip of the given files to w. Paths missing on
// disk are skipped, not errors; a selective download should deliver
// whatever still exists.
func WriteFiles(w io.Writer, paths []string) error {
	existing := lo.Filter(paths, func(p string, _ int) bool {
		info, err := os.Stat(p)
		return err == nil && info.Mode().IsRegular()
	})

	zw := zip.NewWriter(w)
	for _, p := range existing {
		if err := addFile(zw, p); err != nil {
			zw.Close()
			return err
		}
	}
	if err := zw.Close(); err != nil {
		return ierr.WithError(err).WithMessage("finalizing archive").Mark(ierr.ErrSystem)
	}
	return nil
}

func addFile(zw *zip.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return ierr.WithError(err).Mark(ierr.ErrSystem)
	}
	defer f.Close()

	entry, err := zw.Create(filepath.Base(path))
	if err != nil {
		return ierr.WithError(err).Mark(ierr.ErrSystem)
	}
	if _, err := io.Copy(entry, f); err != nil {
		return ierr.WithError(err).WithMessagef("archiving %s", filepath.Base(path)).Mark(ierr.ErrSystem)
	}
	return nil
}
