// Package vector provides the nearest-neighbour index over content-unit embeddings.
package vector

import (
	"context"
	"errors"

	"github.com/hyperjump/zukan/internal/models"
)

// DefaultK is the number of results returned when a search does not specify k.
const DefaultK = 5

var (
	// ErrNotInitialized is returned by Search and Save before any successful Build or Load.
	ErrNotInitialized = errors.New("index not initialized")
	// ErrBuild is returned when Build receives empty or inconsistent input.
	ErrBuild = errors.New("index build failed")
	// ErrIncompatible is returned by Load when the saved index cannot be used with the
	// configured embedder (format version or dimensionality differ).
	ErrIncompatible = errors.New("incompatible index")
)

// Index stores content units with their embeddings and searches them by similarity.
// An Index is either empty or fully built; Build and Load replace the contents wholesale.
type Index interface {
	Build(ctx context.Context, units []models.ContentUnit, embeddings [][]float32) error
	Search(ctx context.Context, query []float32, k int) ([]models.SearchHit, error)
	Save(dir string) error
	Load(dir string) error
	// Units returns the indexed units in insertion order.
	Units() []models.ContentUnit
	// ID identifies the current build; it survives Save/Load.
	ID() string
	Size() int
	Dimensions() int
	Initialized() bool
}
