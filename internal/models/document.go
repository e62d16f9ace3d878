// Package models defines the core data structures shared by ingestion, indexing and retrieval.
package models

import (
	"fmt"
	"sort"
)

// Kind is the modality of a ContentUnit.
type Kind string

const (
	// KindText marks a chunk of page text.
	KindText Kind = "text"
	// KindImage marks an image embedded in a page.
	KindImage Kind = "image"
)

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	return k == KindText || k == KindImage
}

// ContentUnit is one retrievable fragment of a document. It is a value type and
// is never mutated after construction.
type ContentUnit struct {
	Content string `json:"content"`
	Kind    Kind   `json:"kind"`
	Page    int    `json:"page"`
	ImageID string `json:"image_id,omitempty"`
}

// NewTextUnit returns a text unit for a chunk on the given 0-based page.
func NewTextUnit(content string, page int) ContentUnit {
	return ContentUnit{Content: content, Kind: KindText, Page: page}
}

// NewImageUnit returns an image unit whose content is a reference string to imageID.
func NewImageUnit(imageID string, page int) ContentUnit {
	return ContentUnit{
		Content: ImageReference(imageID),
		Kind:    KindImage,
		Page:    page,
		ImageID: imageID,
	}
}

// ImageReference is the textual stand-in stored as the content of an image unit.
func ImageReference(imageID string) string {
	return fmt.Sprintf("[Image: %s]", imageID)
}

// DisplayPage returns the 1-based page number shown to humans.
func (u ContentUnit) DisplayPage() int {
	return u.Page + 1
}

// ImageStore maps an image ID to the base64 encoding of its PNG payload.
// It is built once per ingestion and treated as read-only afterwards.
type ImageStore map[string]string

// Get returns the encoded payload for id.
func (s ImageStore) Get(id string) (string, bool) {
	v, ok := s[id]
	return v, ok
}

// Len returns the number of stored images.
func (s ImageStore) Len() int {
	return len(s)
}

// IDs returns the stored image IDs in sorted order.
func (s ImageStore) IDs() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// IngestResult is the output of ingesting one document. Units and Embeddings are
// parallel slices; Images holds one entry per image unit in Units.
type IngestResult struct {
	Units      []ContentUnit
	Embeddings [][]float32
	Images     ImageStore
	Pages      int
	// Dropped counts units that failed to embed and were left out.
	Dropped int
}

// Empty reports whether ingestion produced nothing indexable.
func (r *IngestResult) Empty() bool {
	return r == nil || len(r.Units) == 0
}

// CountByKind returns the number of units of each kind.
func CountByKind(units []ContentUnit) map[Kind]int {
	counts := map[Kind]int{KindText: 0, KindImage: 0}
	for _, u := range units {
		counts[u.Kind]++
	}
	return counts
}
