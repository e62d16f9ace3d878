// Package extract reads page-oriented documents: per-page text and the raw bytes of
// images embedded on each page.
package extract

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrDocumentParse is returned (wrapped) when a document cannot be opened or parsed.
// It is fatal for ingestion.
var ErrDocumentParse = errors.New("document parse error")

// RawImage is an image payload as stored in the document, before decoding.
type RawImage struct {
	Data []byte
	// Format is the payload's file type as reported by the document ("png", "jpg", "tif", ...).
	Format string
	// ObjectNumber orders images within a page. Zero when the source has no object numbers.
	ObjectNumber int
}

// Document is a page-oriented source. Pages are 0-based and enumerated in file order.
type Document interface {
	NumPages() int
	PageText(page int) (string, error)
	PageImages(page int) ([]RawImage, error)
	Close() error
}

// Open reads the document at path. Only PDF is supported.
func Open(path string) (Document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read file: %v", ErrDocumentParse, err)
	}
	if ext := strings.ToLower(filepath.Ext(path)); ext != "" && ext != ".pdf" {
		return nil, fmt.Errorf("%w: unsupported format %q", ErrDocumentParse, ext)
	}
	return OpenBytes(content)
}

// OpenBytes parses an in-memory PDF.
func OpenBytes(content []byte) (Document, error) {
	if len(content) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrDocumentParse)
	}
	return openPDF(content)
}

func checkPage(page, n int) error {
	if page < 0 || page >= n {
		return fmt.Errorf("page %d out of range [0, %d)", page, n)
	}
	return nil
}
