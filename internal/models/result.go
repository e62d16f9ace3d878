package models

// SearchHit is a retrieved unit together with its similarity to the query.
type SearchHit struct {
	Unit  ContentUnit `json:"unit"`
	Score float64     `json:"score"`
	Rank  int         `json:"rank"`
}

// Units strips the scores from hits, keeping their order.
func Units(hits []SearchHit) []ContentUnit {
	units := make([]ContentUnit, len(hits))
	for i, h := range hits {
		units[i] = h.Unit
	}
	return units
}

// BlockType is the type of a ContentBlock sent to the answer generator.
type BlockType string

const (
	BlockText  BlockType = "text"
	BlockImage BlockType = "image"
)

// ContentBlock is one element of a multimodal prompt. Image blocks carry base64
// data and its MIME type.
type ContentBlock struct {
	Type BlockType `json:"type"`
	Text string    `json:"text,omitempty"`
	Data string    `json:"data,omitempty"`
	MIME string    `json:"mime,omitempty"`
}

// TextBlock returns a text content block.
func TextBlock(text string) ContentBlock {
	return ContentBlock{Type: BlockText, Text: text}
}

// ImageBlock returns an image content block.
func ImageBlock(data, mime string) ContentBlock {
	return ContentBlock{Type: BlockImage, Data: data, MIME: mime}
}

// Answer is the response to a question: generated text and the units it was built from.
type Answer struct {
	Query     string      `json:"query,omitempty"`
	Kind      Kind        `json:"kind"`
	Text      string      `json:"answer"`
	Sources   []SearchHit `json:"sources"`
	QueryTime int64       `json:"query_time_ms"`
}
