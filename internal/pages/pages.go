package pages

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/rs/zerolog/log"
)

// FormatError reports a page-range expression that failed to parse.
// The whole expression is rejected; nothing is partially applied.
type FormatError struct {
	Token string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid page range token %q", e.Token)
}

// ReadError reports a source document that pdfcpu could not open or count.
type ReadError struct {
	Path string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("corrupt or unreadable document %s: %v", e.Path, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// Selection is the outcome of parsing a page-range expression.
// All=true means no selection was entered and the whole document applies.
// All=false with empty Indices means every requested page was out of
// bounds; the caller falls back to the whole document with a warning.
type Selection struct {
	Indices []int
	All     bool
}

// ParseRanges parses a comma-separated, 1-based page-range expression such
// as "1, 3-5, 10" against totalPages. Returned indices are 0-based, unique,
// in-bounds and ascending. A blank expression selects the whole document.
// Any token that is not an integer or an integer range fails the parse.
func ParseRanges(expr string, totalPages int) (Selection, error) {
	if strings.TrimSpace(expr) == "" {
		return Selection{All: true}, nil
	}

	seen := make(map[int]struct{})
	for _, tok := range strings.Split(expr, ",") {
		tok = strings.TrimSpace(tok)
		if strings.Contains(tok, "-") {
			parts := strings.SplitN(tok, "-", 2)
			start, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
			end, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
			if err1 != nil || err2 != nil {
				return Selection{}, &FormatError{Token: tok}
			}
			// start > end contributes nothing, by the inclusive-range rule
			for p := start; p <= end; p++ {
				seen[p-1] = struct{}{}
			}
			continue
		}
		p, err := strconv.Atoi(tok)
		if err != nil {
			return Selection{}, &FormatError{Token: tok}
		}
		seen[p-1] = struct{}{}
	}

	idx := make([]int, 0, len(seen))
	for i := range seen {
		if i < 0 || i >= totalPages {
			continue
		}
		idx = append(idx, i)
	}
	sort.Ints(idx)

	if len(idx) == 0 {
		return Selection{}, nil
	}
	return Selection{Indices: idx}, nil
}

// Count returns the page count of the PDF at path.
func Count(path string) (int, error) {
	n, err := api.PageCountFile(path)
	if err != nil {
		return 0, &ReadError{Path: path, Err: err}
	}
	return n, nil
}

// ExtractPages copies the pages named by indices (0-based, ascending) into
// a newly created temporary PDF and returns its path. Pages are copied
// structurally, not re-rendered. The caller owns the returned file and must
// remove it after use; the source is never modified or deleted.
func ExtractPages(srcPath string, indices []int) (string, error) {
	if len(indices) == 0 {
		return "", fmt.Errorf("empty page selection")
	}
	total, err := Count(srcPath)
	if err != nil {
		return "", err
	}
	sel := make([]string, 0, len(indices))
	for _, i := range indices {
		if i < 0 || i >= total {
			return "", fmt.Errorf("page index %d out of bounds for %d-page document", i, total)
		}
		sel = append(sel, strconv.Itoa(i+1))
	}

	out, err := os.CreateTemp("", "finsight-slice-*.pdf")
	if err != nil {
		return "", fmt.Errorf("create temp slice: %w", err)
	}
	outPath := out.Name()
	_ = out.Close()

	cfg := model.NewDefaultConfiguration()
	cfg.ValidationMode = model.ValidationRelaxed
	if err := api.CollectFile(srcPath, outPath, sel, cfg); err != nil {
		_ = os.Remove(outPath)
		return "", &ReadError{Path: srcPath, Err: err}
	}

	log.Debug().Str("src", srcPath).Ints("indices", indices).Str("out", outPath).
		Msg("extracted page subset")
	return outPath, nil
}
