// Package chunker partitions a paginated document into page-range segments
// that can be sliced and translated independently. Three strategies are
// supported: one segment per table-of-contents entry, one segment per page
// carrying a chapter marker, or the whole document as a single segment.
//
// Whatever the strategy, the returned segments are numbered from 1, are
// contiguous and together cover every page exactly once.
package chunker

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/valpere/pdftran/internal"
	"github.com/valpere/pdftran/internal/document"
)

// Mode selects the segmentation strategy.
type Mode string

const (
	ModeBookmark Mode = "bookmark"
	ModeChapter  Mode = "chapter"
	ModeFull     Mode = "full"
)

const (
	// DefaultMarker is the term searched for in chapter mode.
	DefaultMarker = "Chapter"

	// FullDocumentTitle names the single segment produced by the fallbacks.
	FullDocumentTitle = "Full Document"
)

// ErrEmptyDocument is returned for documents without pages.
var ErrEmptyDocument = errors.New("document has no pages")

// Source is the subset of a document the resolver needs.
type Source interface {
	PageCount() int
	Bookmarks() ([]document.Bookmark, error)
	Contains(page int, term string) (bool, error)
}

// Options tunes Resolve. The zero value is usable.
type Options struct {
	// Marker overrides DefaultMarker in chapter mode.
	Marker string
}

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeBookmark, ModeChapter, ModeFull:
		return m, nil
	}
	return "", fmt.Errorf("unknown chunking mode %q (want bookmark, chapter or full)", s)
}

// Resolve computes the ordered segment list of src for the given mode.
func Resolve(src Source, mode Mode, opts Options) ([]internal.Segment, error) {
	pages := src.PageCount()
	if pages <= 0 {
		return nil, ErrEmptyDocument
	}

	switch mode {
	case ModeBookmark:
		return byBookmarks(src, pages)
	case ModeChapter:
		return byMarker(src, pages, opts.marker())
	case ModeFull, "":
		return fullDocument(pages), nil
	}
	return nil, fmt.Errorf("unknown chunking mode %q", mode)
}

func (o Options) marker() string {
	if strings.TrimSpace(o.Marker) == "" {
		return DefaultMarker
	}
	return o.Marker
}

// byBookmarks turns every TOC entry into a segment regardless of its nesting
// level. A missing or unreadable TOC degrades to the whole document.
func byBookmarks(src Source, pages int) ([]internal.Segment, error) {
	toc, err := src.Bookmarks()
	if err != nil || len(toc) == 0 {
		return fullDocument(pages), nil
	}

	starts := make([]boundary, 0, len(toc))
	for _, b := range toc {
		starts = append(starts, boundary{page: b.Page - 1, title: b.Title})
	}
	return fromBoundaries(starts, pages), nil
}

// byMarker starts a new segment on every page mentioning marker.
func byMarker(src Source, pages int, marker string) ([]internal.Segment, error) {
	var hits []int
	for p := 0; p < pages; p++ {
		ok, err := src.Contains(p, marker)
		if err != nil {
			// An unreadable page cannot start a chapter.
			continue
		}
		if ok {
			hits = append(hits, p)
		}
	}
	if len(hits) == 0 {
		return fullDocument(pages), nil
	}

	sort.Ints(hits)
	starts := make([]boundary, 0, len(hits))
	for _, p := range hits {
		if n := len(starts); n > 0 && starts[n-1].page == p {
			continue
		}
		starts = append(starts, boundary{page: p, title: fmt.Sprintf("Chapter %d", len(starts)+1)})
	}
	return fromBoundaries(starts, pages), nil
}

func fullDocument(pages int) []internal.Segment {
	return []internal.Segment{{
		Index:     1,
		Title:     FullDocumentTitle,
		StartPage: 0,
		EndPage:   pages - 1,
	}}
}

type boundary struct {
	page  int
	title string
}

// fromBoundaries converts ordered segment start pages into segments. Each
// segment ends one page before the next start or at the last page. Starts
// outside the document or not after the previous start are dropped, and
// pages before the first start belong to the first segment.
func fromBoundaries(starts []boundary, pages int) []internal.Segment {
	kept := make([]boundary, 0, len(starts))
	for _, b := range starts {
		if b.page < 0 || b.page >= pages {
			continue
		}
		if n := len(kept); n > 0 && b.page <= kept[n-1].page {
			continue
		}
		kept = append(kept, b)
	}
	if len(kept) == 0 {
		return fullDocument(pages)
	}
	kept[0].page = 0

	segments := make([]internal.Segment, 0, len(kept))
	for i, b := range kept {
		end := pages - 1
		if i+1 < len(kept) {
			end = kept[i+1].page - 1
		}
		segments = append(segments, internal.Segment{
			Index:     i + 1,
			Title:     b.title,
			StartPage: b.page,
			EndPage:   end,
		})
	}
	return segments
}
