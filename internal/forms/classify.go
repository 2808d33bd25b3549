package forms

import "errors"

// MaxFileBytes is the upload ceiling in decimal bytes, not mebibytes.
const MaxFileBytes = 10_000_000

const acceptedContentType = "application/pdf"

var (
	ErrFileTooLarge = errors.New("file exceeds the size limit")
	ErrFileType     = errors.New("file must be a PDF")
)

// ClassifyFile vets an upload before any byte is stored. Size is checked
// before type, so an oversized image reports the size problem.
func ClassifyFile(size int64, contentType string) error {
	if size > MaxFileBytes {
		return ErrFileTooLarge
	}
	if contentType != acceptedContentType {
		return ErrFileType
	}
	return nil
}
