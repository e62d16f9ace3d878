package extract

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

func init() {
	// pdfcpu would otherwise create a config directory under the user's home.
	api.DisableConfigDir()
}

// PDFDocument reads page text with ledongthuc/pdf and embedded images with pdfcpu.
type PDFDocument struct {
	content []byte
	reader  *pdf.Reader
	pages   int

	imagesOnce sync.Once
	images     map[int][]RawImage
	imagesErr  error
}

func openPDF(content []byte) (doc *PDFDocument, err error) {
	// ledongthuc/pdf panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			doc, err = nil, fmt.Errorf("%w: open PDF: %v", ErrDocumentParse, r)
		}
	}()
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("%w: open PDF: %v", ErrDocumentParse, err)
	}
	n := r.NumPage()
	if n <= 0 {
		return nil, fmt.Errorf("%w: PDF has no pages", ErrDocumentParse)
	}
	return &PDFDocument{content: content, reader: r, pages: n}, nil
}

// NumPages returns the number of pages.
func (d *PDFDocument) NumPages() int {
	return d.pages
}

// PageText returns the plain text of a page. A page without content yields "".
func (d *PDFDocument) PageText(page int) (text string, err error) {
	if err := checkPage(page, d.pages); err != nil {
		return "", err
	}
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("extract page %d: %v", page+1, r)
		}
	}()
	p := d.reader.Page(page + 1)
	if p.V.IsNull() {
		return "", nil
	}
	text, err = p.GetPlainText(nil)
	if err != nil {
		return "", fmt.Errorf("extract page %d: %w", page+1, err)
	}
	return text, nil
}

// PageImages returns the page's embedded images ordered by object number. All images of
// the document are extracted on the first call.
func (d *PDFDocument) PageImages(page int) ([]RawImage, error) {
	if err := checkPage(page, d.pages); err != nil {
		return nil, err
	}
	d.imagesOnce.Do(func() {
		d.images, d.imagesErr = extractImages(d.content)
	})
	if d.imagesErr != nil {
		return nil, d.imagesErr
	}
	return d.images[page], nil
}

// Close releases the document. The reader holds no OS resources.
func (d *PDFDocument) Close() error {
	d.reader = nil
	d.images = nil
	return nil
}

func extractImages(content []byte) (out map[int][]RawImage, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("extract images: %v", r)
		}
	}()
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	perPage, err := api.ExtractImagesRaw(bytes.NewReader(content), nil, conf)
	if err != nil {
		return nil, fmt.Errorf("extract images: %w", err)
	}

	// Results are not guaranteed to arrive in page order; group by the page each image reports.
	out = make(map[int][]RawImage)
	for _, imgs := range perPage {
		for _, img := range imgs {
			if img.Reader == nil {
				continue
			}
			data, err := io.ReadAll(img)
			if err != nil {
				return nil, fmt.Errorf("read image %d on page %d: %w", img.ObjNr, img.PageNr, err)
			}
			p := img.PageNr - 1
			out[p] = append(out[p], RawImage{
				Data:         data,
				Format:       strings.ToLower(img.FileType),
				ObjectNumber: img.ObjNr,
			})
		}
	}
	for p := range out {
		sort.SliceStable(out[p], func(i, j int) bool {
			return out[p][i].ObjectNumber < out[p][j].ObjectNumber
		})
	}
	return out, nil
}
