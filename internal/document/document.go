// Package document wraps the PDF primitives the pipeline depends on:
// reading page text and bookmarks from a source document and copying a page
// range into a new standalone document.
package document

import "strings"

// Bookmark is one table-of-contents entry. Page is 1-based.
type Bookmark struct {
	Level int
	Title string
	Page  int
}

// Document is an open paginated document. Page arguments are zero-based.
type Document interface {
	PageCount() int
	Bookmarks() ([]Bookmark, error)
	PageText(page int) (string, error)
	Contains(page int, term string) (bool, error)
	Close() error
}

// Opener opens documents by path.
type Opener interface {
	Open(path string) (Document, error)
}

// Writer copies the zero-based inclusive page range [from, to] of src into a
// new document saved at dst.
type Writer interface {
	WritePages(src string, from, to int, dst string) error
}

// Text concatenates the text of every page of doc in page order, one line
// break per page boundary.
func Text(doc Document) (string, error) {
	n := doc.PageCount()
	parts := make([]string, 0, n)
	for p := 0; p < n; p++ {
		text, err := doc.PageText(p)
		if err != nil {
			return "", err
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, "\n"), nil
}

// containsFold reports whether term occurs in text, ignoring case.
func containsFold(text, term string) bool {
	if term == "" {
		return false
	}
	return strings.Contains(strings.ToLower(text), strings.ToLower(term))
}
