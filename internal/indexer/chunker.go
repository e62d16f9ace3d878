// Package indexer segments document pages into content units and drives ingestion.
package indexer

import "strings"

// separators in order of preference. A cut is placed right after the separator.
var separators = []string{"\n\n", "\n", ". ", "! ", "? ", " "}

// Chunker splits text into overlapping character windows, measured in runes.
type Chunker struct {
	chunkSize    int
	chunkOverlap int
}

// NewChunker creates a chunker with the given size and overlap (in characters).
// An overlap outside [0, chunkSize) is clamped.
func NewChunker(chunkSize, chunkOverlap int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = 500
	}
	if chunkOverlap < 0 {
		chunkOverlap = 0
	}
	if chunkOverlap >= chunkSize {
		chunkOverlap = chunkSize - 1
	}
	return &Chunker{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
	}
}

// Chunk splits trimmed text into chunks of at most chunkSize characters. Each chunk after
// the first begins with the last chunkOverlap characters of its predecessor, so dropping
// that prefix from every chunk but the first and concatenating reproduces the text.
// Cuts prefer paragraph, line, sentence and word boundaries in the second half of the window.
func (c *Chunker) Chunk(text string) []string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) == 0 {
		return nil
	}
	var chunks []string
	start := 0
	for {
		if len(runes)-start <= c.chunkSize {
			chunks = append(chunks, string(runes[start:]))
			return chunks
		}
		cut := c.cut(runes, start)
		chunks = append(chunks, string(runes[start:cut]))
		start = cut - c.chunkOverlap
	}
}

// cut returns the end (exclusive) of the chunk starting at start. The result is always
// greater than start+chunkOverlap, so every step advances.
func (c *Chunker) cut(runes []rune, start int) int {
	end := start + c.chunkSize
	lowest := start + max(c.chunkSize/2, c.chunkOverlap+1)
	for _, sep := range separators {
		if pos := lastSeparatorEnd(runes, sep, lowest, end); pos > 0 {
			return pos
		}
	}
	return end
}

// lastSeparatorEnd finds the last occurrence of sep fully inside runes[:end] whose end
// position is at least lowest, and returns that end position, or -1.
func lastSeparatorEnd(runes []rune, sep string, lowest, end int) int {
	s := []rune(sep)
	for pos := end; pos >= lowest; pos-- {
		i := pos - len(s)
		if i < 0 {
			break
		}
		if matchAt(runes, s, i) {
			return pos
		}
	}
	return -1
}

func matchAt(runes, s []rune, i int) bool {
	for j, r := range s {
		if runes[i+j] != r {
			return false
		}
	}
	return true
}
