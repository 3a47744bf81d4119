package archive

import (
	"archive/zip"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ierr "github.com/palmsuites/invoicegen/internal/errors"
)

func writePDF(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4 "+name), 0o644))
	return path
}

func readArchive(t *testing.T, data []byte) map[string]string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	out := make(map[string]string, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		body, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		out[f.Name] = string(body)
	}
	return out
}

func TestWriteDir(t *testing.T) {
	dir := t.TempDir()
	writePDF(t, dir, "A101_Ivan_PS202303-001.pdf")
	writePDF(t, dir, "B202_Anna_PS202303-002.pdf")

	// Non-PDF clutter and subdirectories stay out of the archive.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o755))

	var buf bytes.Buffer
	require.NoError(t, WriteDir(&buf, dir))

	files := readArchive(t, buf.Bytes())
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)
	assert.Equal(t, []string{"A101_Ivan_PS202303-001.pdf", "B202_Anna_PS202303-002.pdf"}, names)
	assert.Equal(t, "%PDF-1.4 A101_Ivan_PS202303-001.pdf", files["A101_Ivan_PS202303-001.pdf"])
}

func TestWriteDir_MissingDirectory(t *testing.T) {
	var buf bytes.Buffer
	err := WriteDir(&buf, filepath.Join(t.TempDir(), "2031-01"))
	require.Error(t, err)
	assert.True(t, ierr.IsNotFound(err))
}

func TestWriteDir_NoPDFs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "readme.md"), []byte("x"), 0o644))

	var buf bytes.Buffer
	err := WriteDir(&buf, dir)
	require.Error(t, err)
	assert.True(t, ierr.IsNotFound(err))
}

func TestWriteFiles_SkipsMissingPaths(t *testing.T) {
	dir := t.TempDir()
	kept := writePDF(t, dir, "kept.pdf")
	gone := filepath.Join(dir, "gone.pdf")

	var buf bytes.Buffer
	require.NoError(t, WriteFiles(&buf, []string{kept, gone}))

	files := readArchive(t, buf.Bytes())
	assert.Len(t, files, 1)
	assert.Contains(t, files, "kept.pdf")
}

func TestWriteFiles_EmptySelectionYieldsEmptyArchive(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFiles(&buf, nil))

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	assert.Empty(t, zr.File)
}
