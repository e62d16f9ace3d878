package models

import (
	"errors"
	"fmt"
	"image"
	"strings"
)

// ErrInvalidQuery is returned when a query has no usable payload for its kind.
var ErrInvalidQuery = errors.New("invalid query")

// Query is a retrieval request. Kind selects which payload is embedded: Text for
// KindText, Image for KindImage. Question is optional extra text for image queries.
type Query struct {
	Kind     Kind
	Text     string
	Image    image.Image
	Question string
	K        int
}

// Validate checks that the payload matching Kind is present. It does not reject
// unknown kinds; that is the retriever's decision.
func (q *Query) Validate() error {
	switch q.Kind {
	case KindText:
		if strings.TrimSpace(q.Text) == "" {
			return fmt.Errorf("%w: text query cannot be empty", ErrInvalidQuery)
		}
	case KindImage:
		if q.Image == nil {
			return fmt.Errorf("%w: image query requires an image", ErrInvalidQuery)
		}
		if b := q.Image.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
			return fmt.Errorf("%w: image has no pixels", ErrInvalidQuery)
		}
	}
	if q.K < 0 {
		q.K = 0
	}
	return nil
}
