package embedding

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"unicode"

	"github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"
	"go.uber.org/zap"

	"github.com/hyperjump/zukan/pkg/utils"
)

// CLIP special tokens.
const (
	clipStartToken = 49406
	clipEndToken   = 49407
	clipPadToken   = 0
)

// Tokenizer produces CLIP text-encoder inputs (input_ids, attention_mask) of fixed length.
type Tokenizer interface {
	Tokenize(text string, maxTokens int) (inputIDs, attentionMask []int64, err error)
}

// NewTokenizer loads the BPE vocabulary at path. When path is empty or the file does not
// exist it falls back to HashTokenizer with a warning; text vectors are then not aligned
// with image vectors.
func NewTokenizer(path string, logger *zap.Logger) (Tokenizer, error) {
	logger = utils.LoggerOrNop(logger)
	if path == "" {
		logger.Warn("no tokenizer configured, using hash tokenizer")
		return &HashTokenizer{}, nil
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		logger.Warn("tokenizer file not found, using hash tokenizer", zap.String("path", path))
		return &HashTokenizer{}, nil
	}
	t, err := NewBPETokenizer(path)
	if err != nil {
		return nil, err
	}
	logger.Debug("loaded tokenizer", zap.String("path", path))
	return t, nil
}

// BPETokenizer encodes text with a Hugging Face tokenizer.json, normally CLIP's byte-level
// BPE vocabulary.
type BPETokenizer struct {
	tk *tokenizer.Tokenizer
}

// NewBPETokenizer loads the tokenizer.json at path.
func NewBPETokenizer(path string) (*BPETokenizer, error) {
	tk, err := pretrained.FromFile(path)
	if err != nil {
		return nil, fmt.Errorf("load tokenizer %s: %w", path, err)
	}
	return &BPETokenizer{tk: tk}, nil
}

// Tokenize encodes lower-cased text and frames it with the CLIP start and end tokens,
// truncating to maxTokens and padding the rest.
func (t *BPETokenizer) Tokenize(text string, maxTokens int) (inputIDs, attentionMask []int64, err error) {
	if maxTokens < 2 {
		maxTokens = 77
	}
	en, err := t.tk.EncodeSingle(strings.ToLower(text), false)
	if err != nil {
		return nil, nil, fmt.Errorf("tokenize: %w", err)
	}
	ids := en.Ids
	if len(ids) > maxTokens-2 {
		ids = ids[:maxTokens-2]
	}
	inputIDs, attentionMask = framed(len(ids), maxTokens)
	for i, id := range ids {
		inputIDs[i+1] = int64(id)
	}
	return inputIDs, attentionMask, nil
}

// framed returns id and mask slices of length maxTokens with the start token, n slots for
// content and the end token set, followed by padding.
func framed(n, maxTokens int) (inputIDs, attentionMask []int64) {
	inputIDs = make([]int64, maxTokens)
	attentionMask = make([]int64, maxTokens)
	inputIDs[0] = clipStartToken
	for i := 0; i <= n+1; i++ {
		attentionMask[i] = 1
	}
	inputIDs[n+1] = clipEndToken
	for i := n + 2; i < maxTokens; i++ {
		inputIDs[i] = clipPadToken
	}
	return inputIDs, attentionMask
}

// HashTokenizer is a word-split tokenizer with hash-based token IDs, used when no vocabulary
// file is available. Text longer than maxTokens (including start and end tokens) is
// truncated, matching CLIP's context limit.
type HashTokenizer struct{}

// Tokenize splits text into lower-cased words and produces padded token IDs up to maxTokens.
func (t *HashTokenizer) Tokenize(text string, maxTokens int) (inputIDs, attentionMask []int64, err error) {
	if maxTokens < 2 {
		maxTokens = 77
	}
	words := TruncateWords(SplitWords(strings.ToLower(text)), maxTokens-2)
	inputIDs, attentionMask = framed(len(words), maxTokens)
	for i, word := range words {
		// Keep IDs below the special tokens so argmax pooling finds the end token.
		inputIDs[i+1] = int64(HashString(word) % clipStartToken)
	}
	return inputIDs, attentionMask, nil
}

// SplitWords splits text on whitespace and returns non-empty words.
func SplitWords(text string) []string {
	fields := strings.FieldsFunc(text, unicode.IsSpace)
	if len(fields) == 0 {
		return nil
	}
	return fields
}

// HashString returns a deterministic non-negative hash for use as a simple token ID.
func HashString(s string) int {
	h := 0
	for _, c := range s {
		h = 31*h + int(c)
	}
	if h < 0 {
		h = -h
	}
	if h < 0 {
		h = 0
	}
	return h
}

// TruncateWords returns up to maxWords words from the slice.
func TruncateWords(words []string, maxWords int) []string {
	if maxWords < 0 {
		maxWords = 0
	}
	if len(words) <= maxWords {
		return words
	}
	return words[:maxWords]
}
