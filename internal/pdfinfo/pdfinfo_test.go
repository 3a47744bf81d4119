package pdfinfo

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const minimalPDF = `%PDF-1.4
1 0 obj
<< /Type /Catalog /Pages 2 0 R >>
endobj
2 0 obj
<< /Type /Pages /Kids [3 0 R] /Count 1 >>
endobj
3 0 obj
<< /Type /Page /Parent 2 0 R /MediaBox [0 0 595 842] >>
endobj
trailer
<< /Root 1 0 R >>
%%EOF
`

func TestVerify_MinimalDocument(t *testing.T) {
	info, err := Verify([]byte(minimalPDF))
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if info.Version != "1.4" {
		t.Errorf("version = %q, want 1.4", info.Version)
	}
	if info.Pages != 1 {
		t.Errorf("pages = %d, want 1", info.Pages)
	}
	if info.Size != len(minimalPDF) {
		t.Errorf("size = %d, want %d", info.Size, len(minimalPDF))
	}
}

func TestVerify_CountFromPageTree(t *testing.T) {
	doc := strings.Replace(minimalPDF, "/Count 1", "/Count 3", 1)
	info, err := Verify([]byte(doc))
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if info.Pages != 3 {
		t.Errorf("pages = %d, want 3 from /Count", info.Pages)
	}
}

func TestVerify_FallsBackToPageObjects(t *testing.T) {
	doc := strings.Replace(minimalPDF, "/Count 1", "", 1)
	info, err := Verify([]byte(doc))
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if info.Pages != 1 {
		t.Errorf("pages = %d, want 1 from page objects", info.Pages)
	}
}

func TestVerify_RejectsNonPDF(t *testing.T) {
	if _, err := Verify([]byte("<html>not a pdf</html>")); err == nil {
		t.Fatal("expected error for non-PDF input")
	}
}

func TestVerify_RejectsTruncated(t *testing.T) {
	cut := minimalPDF[:len(minimalPDF)/2]
	if _, err := Verify([]byte(cut)); err == nil {
		t.Fatal("expected error for truncated PDF")
	}
}

func TestVerify_RejectsPageless(t *testing.T) {
	doc := "%PDF-1.4\ntrailer\n<< >>\n%%EOF\n"
	if _, err := Verify([]byte(doc)); err == nil {
		t.Fatal("expected error for PDF without pages")
	}
}

func TestOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.pdf")
	if err := os.WriteFile(path, []byte(minimalPDF), 0o644); err != nil {
		t.Fatal(err)
	}
	info, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if info.Pages != 1 {
		t.Errorf("pages = %d, want 1", info.Pages)
	}

	if _, err := Open(filepath.Join(t.TempDir(), "missing.pdf")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
