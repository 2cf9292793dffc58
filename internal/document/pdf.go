package document

import (
	"fmt"
	"os"

	pdflib "github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PDF opens and writes PDF files. Page text comes from ledongthuc/pdf;
// bookmarks and page-range copies go through pdfcpu.
type PDF struct {
	conf *model.Configuration
}

// NewPDF returns a PDF backend with pdfcpu's default configuration.
func NewPDF() *PDF {
	return &PDF{conf: model.NewDefaultConfiguration()}
}

// Open implements Opener.
func (p *PDF) Open(path string) (Document, error) {
	f, reader, err := pdflib.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf %s: %w", path, err)
	}
	return &pdfDocument{
		path:   path,
		file:   f,
		reader: reader,
		conf:   p.conf,
	}, nil
}

// WritePages implements Writer.
func (p *PDF) WritePages(src string, from, to int, dst string) error {
	if from < 0 || to < from {
		return fmt.Errorf("invalid page range %d-%d", from, to)
	}
	selection := []string{fmt.Sprintf("%d-%d", from+1, to+1)}
	if err := api.TrimFile(src, dst, selection, p.conf); err != nil {
		return fmt.Errorf("copy pages %d-%d of %s: %w", from+1, to+1, src, err)
	}
	return nil
}

type pdfDocument struct {
	path   string
	file   *os.File
	reader *pdflib.Reader
	conf   *model.Configuration

	toc    []Bookmark
	tocErr error
	loaded bool
}

func (d *pdfDocument) PageCount() int {
	return d.reader.NumPage()
}

func (d *pdfDocument) PageText(page int) (string, error) {
	if page < 0 || page >= d.reader.NumPage() {
		return "", fmt.Errorf("page %d out of range", page)
	}
	p := d.reader.Page(page + 1)
	if p.V.IsNull() {
		return "", nil
	}
	text, err := p.GetPlainText(nil)
	if err != nil {
		return "", fmt.Errorf("extract text of page %d: %w", page+1, err)
	}
	return text, nil
}

func (d *pdfDocument) Contains(page int, term string) (bool, error) {
	text, err := d.PageText(page)
	if err != nil {
		return false, err
	}
	return containsFold(text, term), nil
}

// Bookmarks reads the outline once and returns it flattened in reading
// order.
func (d *pdfDocument) Bookmarks() ([]Bookmark, error) {
	if d.loaded {
		return d.toc, d.tocErr
	}
	d.loaded = true

	f, err := os.Open(d.path)
	if err != nil {
		d.tocErr = err
		return nil, err
	}
	defer f.Close()

	bms, err := api.Bookmarks(f, d.conf)
	if err != nil {
		d.tocErr = fmt.Errorf("read bookmarks: %w", err)
		return nil, d.tocErr
	}
	d.toc = flattenBookmarks(bms, 1)
	return d.toc, nil
}

func (d *pdfDocument) Close() error {
	return d.file.Close()
}

// flattenBookmarks walks the outline depth first so parents precede their
// children, matching the order a reader shows them in.
func flattenBookmarks(bms []pdfcpu.Bookmark, level int) []Bookmark {
	var out []Bookmark
	for _, bm := range bms {
		out = append(out, Bookmark{Level: level, Title: bm.Title, Page: bm.PageFrom})
		if len(bm.Kids) > 0 {
			out = append(out, flattenBookmarks(bm.Kids, level+1)...)
		}
	}
	return out
}
