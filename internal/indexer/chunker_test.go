package indexer

import (
	"strings"
	"testing"
	"unicode/utf8"
)

// reassemble undoes the overlap: the first chunk plus every later chunk minus its prefix.
func reassemble(chunks []string, overlap int) string {
	var b strings.Builder
	for i, ch := range chunks {
		if i == 0 {
			b.WriteString(ch)
			continue
		}
		b.WriteString(string([]rune(ch)[overlap:]))
	}
	return b.String()
}

func TestChunker_Chunk(t *testing.T) {
	c := NewChunker(20, 5)
	text := "one two three four five six seven eight nine ten eleven twelve"
	chunks := c.Chunk(text)
	if len(chunks) < 3 {
		t.Fatalf("expected at least 3 chunks, got %d: %q", len(chunks), chunks)
	}
	for i, ch := range chunks {
		if n := utf8.RuneCountInString(ch); n > 20 {
			t.Errorf("chunk %d has %d runes, exceeds size", i, n)
		}
	}
}

func TestChunker_ChunkEmpty(t *testing.T) {
	c := NewChunker(5, 1)
	chunks := c.Chunk("   \n\t  ")
	if chunks != nil {
		t.Errorf("empty text should return nil, got %v", chunks)
	}
}

func TestChunker_ShortTextSingleChunk(t *testing.T) {
	chunks := NewChunker(500, 100).Chunk("  short page  ")
	if len(chunks) != 1 || chunks[0] != "short page" {
		t.Errorf("got %q", chunks)
	}
}

func TestChunker_ExactOverlapAndCoverage(t *testing.T) {
	texts := map[string]string{
		"words":      strings.Repeat("lorem ipsum dolor sit amet ", 80),
		"paragraphs": strings.Repeat("First sentence here. Second one follows!\n\nNew paragraph starts.\n", 30),
		"no spaces":  strings.Repeat("x", 2345),
		"unicode":    strings.Repeat("日本語のテキスト、", 150),
	}
	for name, text := range texts {
		t.Run(name, func(t *testing.T) {
			const size, overlap = 500, 100
			chunks := NewChunker(size, overlap).Chunk(text)
			if len(chunks) < 2 {
				t.Fatalf("expected multiple chunks, got %d", len(chunks))
			}
			for i := 1; i < len(chunks); i++ {
				prev := []rune(chunks[i-1])
				cur := []rune(chunks[i])
				if string(prev[len(prev)-overlap:]) != string(cur[:overlap]) {
					t.Errorf("chunks %d and %d do not overlap by exactly %d characters", i-1, i, overlap)
				}
			}
			for i, ch := range chunks {
				n := utf8.RuneCountInString(ch)
				if n > size {
					t.Errorf("chunk %d has %d runes", i, n)
				}
				if i < len(chunks)-1 && n < size/2 {
					t.Errorf("chunk %d has only %d runes", i, n)
				}
			}
			if got := reassemble(chunks, overlap); got != strings.TrimSpace(text) {
				t.Errorf("chunks do not cover the text")
			}
		})
	}
}

func TestChunker_PrefersParagraphBoundary(t *testing.T) {
	para := strings.Repeat("a", 30)
	text := para + "\n\n" + para + " " + para
	chunks := NewChunker(50, 0).Chunk(text)
	if len(chunks) < 2 {
		t.Fatalf("expected split, got %q", chunks)
	}
	if chunks[0] != para+"\n\n" {
		t.Errorf("first chunk should end at the paragraph break, got %q", chunks[0])
	}
}

func TestChunker_1200CharactersGivesThreeChunks(t *testing.T) {
	text := strings.Repeat("abcd ", 239) + "abcde"
	if len(text) != 1200 {
		t.Fatalf("fixture length %d", len(text))
	}
	chunks := NewChunker(500, 100).Chunk(text)
	if len(chunks) != 3 {
		t.Errorf("expected 3 chunks, got %d", len(chunks))
	}
}

func TestNewChunker_ClampsOverlap(t *testing.T) {
	c := NewChunker(10, 50)
	if c.chunkOverlap != 9 {
		t.Errorf("overlap should clamp to size-1, got %d", c.chunkOverlap)
	}
	// must terminate
	if chunks := c.Chunk(strings.Repeat("z", 100)); len(chunks) == 0 {
		t.Error("expected chunks")
	}
}

func TestNormalizePageText(t *testing.T) {
	in := "  Title \r\n\r\n\r\n\r\nBody   text\t here  \nnext line  "
	want := "Title\n\nBody text here\nnext line"
	if got := NormalizePageText(in); got != want {
		t.Errorf("NormalizePageText = %q, want %q", got, want)
	}
}
