// Package fileid provides deterministic identifiers for ingested documents and their images.
package fileid

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

const docPrefix = "doc:"

// ImageID returns the identifier for the i-th image (0-based) on page p (0-based),
// in the form "page_{p}_img_{i}".
func ImageID(page, index int) string {
	return fmt.Sprintf("page_%d_img_%d", page, index)
}

// ParseImageID is the inverse of ImageID.
func ParseImageID(id string) (page, index int, ok bool) {
	rest, found := strings.CutPrefix(id, "page_")
	if !found {
		return 0, 0, false
	}
	p, i, found := strings.Cut(rest, "_img_")
	if !found {
		return 0, 0, false
	}
	page, err := strconv.Atoi(p)
	if err != nil || page < 0 {
		return 0, 0, false
	}
	index, err = strconv.Atoi(i)
	if err != nil || index < 0 {
		return 0, 0, false
	}
	return page, index, true
}

// DocumentID returns a stable ID derived from the document bytes.
// Identical content always yields the same ID regardless of file name.
func DocumentID(content []byte) string {
	hash := sha256.Sum256(content)
	return docPrefix + hex.EncodeToString(hash[:])
}
