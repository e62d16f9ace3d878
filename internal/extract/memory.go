package extract

// MemoryPage is one page of a MemoryDocument.
type MemoryPage struct {
	Text   string
	Images []RawImage
}

// MemoryDocument is a Document assembled in memory, for tests and callers that already
// hold page content.
type MemoryDocument struct {
	Pages []MemoryPage
}

// NewMemoryDocument returns a document with the given pages.
func NewMemoryDocument(pages ...MemoryPage) *MemoryDocument {
	return &MemoryDocument{Pages: pages}
}

func (d *MemoryDocument) NumPages() int { return len(d.Pages) }

func (d *MemoryDocument) PageText(page int) (string, error) {
	if err := checkPage(page, len(d.Pages)); err != nil {
		return "", err
	}
	return d.Pages[page].Text, nil
}

func (d *MemoryDocument) PageImages(page int) ([]RawImage, error) {
	if err := checkPage(page, len(d.Pages)); err != nil {
		return nil, err
	}
	return d.Pages[page].Images, nil
}

func (d *MemoryDocument) Close() error { return nil }
