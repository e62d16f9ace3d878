package search

import (
	"fmt"

	"github.com/hyperjump/zukan/internal/models"
)

// ProcessQuery rejects unknown kinds and missing payloads and fills in the default k.
func ProcessQuery(query *models.Query, defaultK int) error {
	if !query.Kind.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidQueryKind, query.Kind)
	}
	if err := query.Validate(); err != nil {
		return err
	}
	if query.K <= 0 {
		query.K = defaultK
	}
	return nil
}
