// Package csvexport renders the reviewed field set as a two-column CSV
// download.
package csvexport

import (
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/local/finsight/internal/report"
)

// BOM is prepended so Excel on Windows opens the file as UTF-8.
var BOM = []byte{0xEF, 0xBB, 0xBF}

var columns = []string{"Metric", "Value"}

// Writer wraps csv.Writer for exporting reviewed fields.
type Writer struct {
	csv *csv.Writer
}

// NewWriter creates a Writer that writes CSV to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{csv: csv.NewWriter(w)}
}

// WriteHeader writes the Metric/Value header row.
func (w *Writer) WriteHeader() error {
	return w.csv.Write(columns)
}

// WriteFields writes one row per field in display order. Null fields export
// as empty values.
func (w *Writer) WriteFields(fields []report.Field) error {
	for _, f := range fields {
		if err := w.csv.Write([]string{f.Label, f.Value}); err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes the underlying csv.Writer buffer.
func (w *Writer) Flush() { w.csv.Flush() }

// Error returns any error from the underlying csv.Writer.
func (w *Writer) Error() error { return w.csv.Error() }

var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)
var multiUnderscore = regexp.MustCompile(`_{2,}`)

// SanitizeFilename cleans a document name for use in Content-Disposition.
func SanitizeFilename(name string) string {
	s := nonAlphanumeric.ReplaceAllString(name, "_")
	s = multiUnderscore.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if len(s) > 100 {
		s = s[:100]
	}
	return s
}

// BuildFilename returns {sanitized_name}_{YYYY-MM-DD}.csv, falling back to
// "financial_data" when the name sanitizes away entirely.
func BuildFilename(name string) string {
	sanitized := SanitizeFilename(name)
	if sanitized == "" {
		sanitized = "financial_data"
	}
	return fmt.Sprintf("%s_%s.csv", sanitized, time.Now().Format("2006-01-02"))
}
