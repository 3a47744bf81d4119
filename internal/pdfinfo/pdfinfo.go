// Package pdfinfo inspects generated PDF bytes just enough to tell a
// real document from a truncated or empty render. It is not a PDF
// parser; the render pipeline only needs version, size and a page
// count before it reports a record as successfully rendered.
package pdfinfo

import (
	"bytes"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// Info summarizes a PDF document.
type Info struct {
	Version string
	Pages   int
	Size    int
}

// Open reads and verifies a PDF file from disk.
func Open(path string) (*Info, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	return Verify(data)
}

// Verify checks that data is a complete PDF with at least one page.
func Verify(data []byte) (*Info, error) {
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		return nil, fmt.Errorf("not a PDF file")
	}

	// The end-of-file marker sits in the last kilobyte of any file a
	// writer finished; its absence means the render was cut short.
	tail := data
	if len(tail) > 1024 {
		tail = tail[len(tail)-1024:]
	}
	if !bytes.Contains(tail, []byte("%%EOF")) {
		return nil, fmt.Errorf("truncated PDF: missing %%%%EOF marker")
	}

	pages := countPages(data)
	if pages == 0 {
		return nil, fmt.Errorf("PDF contains no pages")
	}

	return &Info{
		Version: version(data),
		Pages:   pages,
		Size:    len(data),
	}, nil
}

// version reads the n.n after the %PDF- magic.
func version(data []byte) string {
	end := 5
	for end < len(data) && end < 16 && (data[end] == '.' || (data[end] >= '0' && data[end] <= '9')) {
		end++
	}
	return strings.TrimSpace(string(data[5:end]))
}

var pageObjPattern = regexp.MustCompile(`/Type\s*/Page[^s]`)

// countPages prefers the page tree's /Count and falls back to counting
// page objects directly for writers that interleave whitespace oddly.
func countPages(data []byte) int {
	if n := pageTreeCount(data); n > 0 {
		return n
	}
	return len(pageObjPattern.FindAll(data, -1))
}

var pagesCountPattern = regexp.MustCompile(`/Type\s*/Pages[^>]*?/Count\s+(\d+)`)
var countFirstPattern = regexp.MustCompile(`/Count\s+(\d+)[^>]*?/Type\s*/Pages`)

// pageTreeCount extracts /Count from the root /Pages node. Key order
// inside the dictionary is writer-dependent, so both orders are tried.
func pageTreeCount(data []byte) int {
	for _, re := range []*regexp.Regexp{pagesCountPattern, countFirstPattern} {
		if m := re.FindSubmatch(data); m != nil {
			n := 0
			for _, c := range m[1] {
				n = n*10 + int(c-'0')
			}
			return n
		}
	}
	return 0
}
