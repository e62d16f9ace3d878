package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/hyperjump/zukan/internal/embedding"
	"github.com/hyperjump/zukan/internal/models"
	"github.com/hyperjump/zukan/internal/session"
)

func sampleHits() []models.SearchHit {
	return []models.SearchHit{
		{Unit: models.NewTextUnit("Revenue grew\n12% in   Q3.", 0), Score: 0.91, Rank: 1},
		{Unit: models.NewImageUnit("page_2_img_0", 2), Score: 0.55, Rank: 2},
	}
}

func TestWriteHits_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteHits(&buf, "revenue", sampleHits(), OutputJSON); err != nil {
		t.Fatalf("WriteHits(json): %v", err)
	}
	var decoded struct {
		Query string             `json:"query"`
		Hits  []models.SearchHit `json:"hits"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}
	if decoded.Query != "revenue" || len(decoded.Hits) != 2 {
		t.Errorf("decoded %+v", decoded)
	}
	if decoded.Hits[1].Unit.ImageID != "page_2_img_0" {
		t.Errorf("image id lost: %+v", decoded.Hits[1].Unit)
	}
}

func TestWriteHits_Text(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteHits(&buf, "revenue", sampleHits(), OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		"Found 2 results",
		"Rank: 1 | Score: 0.9100 | Page 1 | text",
		"Revenue grew 12% in Q3.",
		"Rank: 2 | Score: 0.5500 | Page 3 | image",
		"Image: page_2_img_0",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteAnswer(t *testing.T) {
	answer := &models.Answer{Query: "q", Kind: models.KindText, Text: "  It grew.\n", Sources: sampleHits(), QueryTime: 12}
	var buf bytes.Buffer
	if err := WriteAnswer(&buf, answer, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "\nIt grew.\n") {
		t.Errorf("answer text missing:\n%s", out)
	}
	if !strings.Contains(out, "Sources (2, 12ms)") || !strings.Contains(out, "[page 3, image, 0.550] page_2_img_0") {
		t.Errorf("sources missing:\n%s", out)
	}

	buf.Reset()
	if err := WriteAnswer(&buf, answer, OutputJSON); err != nil {
		t.Fatal(err)
	}
	var decoded models.Answer
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Text != answer.Text || decoded.QueryTime != 12 {
		t.Errorf("decoded %+v", decoded)
	}
}

func TestWriteIngestReport(t *testing.T) {
	report := &session.IngestReport{Document: "a.pdf", Pages: 2, TextUnits: 3, ImageUnits: 1, Dropped: 1, IndexID: "id-1", Duration: 1500 * time.Millisecond}
	var buf bytes.Buffer
	if err := WriteIngestReport(&buf, report, "/tmp/idx", OutputText); err != nil {
		t.Fatal(err)
	}
	want := "Indexed a.pdf: 2 pages, 3 text chunks, 1 images (1 dropped) in 1.5s\nSaved index id-1 to /tmp/idx\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}

	buf.Reset()
	if err := WriteIngestReport(&buf, report, "/tmp/idx", OutputJSON); err != nil {
		t.Fatal(err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded["dir"] != "/tmp/idx" || decoded["document"] != "a.pdf" {
		t.Errorf("decoded %v", decoded)
	}
}

func TestWriteStatus(t *testing.T) {
	st := session.Status{
		Initialized: true, Document: "a.pdf", Pages: 2, IndexID: "id-1", Units: 4, TextUnits: 3, ImageUnits: 1,
		Images: 1, Dimensions: 512, Model: "mock-joint", IndexDir: "/tmp/idx", DiskUsageBytes: 30,
		IndexFiles: map[string]int64{"units.json": 10, "meta.json": 20}, SavedImages: 1,
		TextCache: &embedding.CacheStats{Hits: 5, Misses: 2, Entries: 2},
	}
	var buf bytes.Buffer
	if err := WriteStatus(&buf, st, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "Units:      4 (3 text, 1 image)") || !strings.Contains(out, "Directory:  /tmp/idx (30 bytes, 1 saved images)") {
		t.Errorf("status output:\n%s", out)
	}
	if !strings.Contains(out, "Text cache: 2 entries, 5 hits, 2 misses") {
		t.Errorf("status output should report the text cache:\n%s", out)
	}
	if strings.Index(out, "meta.json") > strings.Index(out, "units.json") {
		t.Errorf("index files should be sorted:\n%s", out)
	}
}

func TestBuildQuery(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected string
	}{
		{"single word", []string{"revenue"}, "revenue"},
		{"multiple words", []string{"revenue", "by", "region"}, "revenue by region"},
		{"single quoted phrase", []string{"revenue by region"}, "revenue by region"},
		{"empty args", []string{}, ""},
		{"blank args", []string{"  ", "  "}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := buildQuery(tt.args); got != tt.expected {
				t.Errorf("buildQuery(%v) = %q, want %q", tt.args, got, tt.expected)
			}
		})
	}
}
