// Package pdftest builds small real PDF files for tests, so page counting
// and slicing can be exercised against actual documents instead of mocks.
package pdftest

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Bytes returns a minimal but structurally valid PDF with pageCount empty
// pages. Offsets in the cross-reference table are computed from the actual
// byte positions, so strict parsers accept the output.
func Bytes(pageCount int) []byte {
	if pageCount < 1 {
		pageCount = 1
	}

	var buf bytes.Buffer
	offsets := make([]int, 0, pageCount+2)

	writeObj := func(body string) {
		offsets = append(offsets, buf.Len())
		buf.WriteString(body)
	}

	buf.WriteString("%PDF-1.4\n")
	// Binary-marker comment plus filler padding: pdfcpu scans only the
	// final 512 bytes for startxref, so the file must exceed that size
	// even for one-page fixtures. Comments do not shift object offsets,
	// which are still computed from actual byte positions below.
	buf.WriteString("%\xe2\xe3\xcf\xd3\n")
	buf.WriteString("% " + strings.Repeat("pad ", 60) + "\n")

	writeObj("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")

	kids := ""
	for i := 0; i < pageCount; i++ {
		kids += fmt.Sprintf("%d 0 R ", 3+i)
	}
	writeObj(fmt.Sprintf("2 0 obj\n<< /Type /Pages /Kids [%s] /Count %d >>\nendobj\n", kids, pageCount))

	for i := 0; i < pageCount; i++ {
		writeObj(fmt.Sprintf("%d 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << >> >>\nendobj\n", 3+i))
	}

	xrefStart := buf.Len()
	buf.WriteString(fmt.Sprintf("xref\n0 %d\n", len(offsets)+1))
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		buf.WriteString(fmt.Sprintf("%010d 00000 n \n", off))
	}
	buf.WriteString(fmt.Sprintf("trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xrefStart))

	return buf.Bytes()
}

// Write materializes a fixture PDF with pageCount pages inside t's temp
// directory and returns its path.
func Write(t *testing.T, pageCount int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), fmt.Sprintf("fixture-%dp.pdf", pageCount))
	if err := os.WriteFile(path, Bytes(pageCount), 0o644); err != nil {
		t.Fatalf("write fixture pdf: %v", err)
	}
	return path
}
