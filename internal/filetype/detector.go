package filetype

import (
	"fmt"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog/log"
)

// EnsurePDF verifies by magic bytes that the file at path really is a PDF.
// Filenames and declared content types lie; the payload does not.
func EnsurePDF(path string) error {
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return fmt.Errorf("failed to detect file type: %w", err)
	}
	if !mtype.Is("application/pdf") {
		log.Debug().Str("file", path).Str("mime", mtype.String()).Msg("rejected non-PDF payload")
		return fmt.Errorf("not a PDF document (detected %s)", mtype.String())
	}
	return nil
}
