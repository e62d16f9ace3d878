// Package storage persists the ImageStore of an index and reports on-disk usage.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/zukan/internal/models"
)

// ImagesFile is the database file written next to the vector index files.
const ImagesFile = "images.db"

// ErrNotFound is returned when an index directory has no images database.
var ErrNotFound = errors.New("not found")

// Manifest describes the document an image set was extracted from.
type Manifest struct {
	IndexID  string `json:"index_id"`
	Document string `json:"document,omitempty"`
	Pages    int    `json:"pages"`
}

// ImageRepository persists the encoded image payloads of one index.
type ImageRepository interface {
	// ReplaceImages atomically replaces all stored images and the manifest.
	ReplaceImages(ctx context.Context, manifest Manifest, images models.ImageStore) error
	LoadImages(ctx context.Context) (models.ImageStore, error)
	// Manifest returns the manifest recorded by the last ReplaceImages; zero if none.
	Manifest(ctx context.Context) (Manifest, error)
	CountImages(ctx context.Context) (int64, error)
	Close() error
}

// OpenFunc opens the ImageRepository of the index directory dir. With create false, a
// directory without images yields ErrNotFound.
type OpenFunc func(dir string, create bool) (ImageRepository, error)
