package chunker_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/valpere/pdftran/internal"
	"github.com/valpere/pdftran/internal/chunker"
	"github.com/valpere/pdftran/internal/document"
)

type fakeSource struct {
	pages  []string
	toc    []document.Bookmark
	tocErr error
}

func (f *fakeSource) PageCount() int { return len(f.pages) }

func (f *fakeSource) Bookmarks() ([]document.Bookmark, error) { return f.toc, f.tocErr }

func (f *fakeSource) Contains(page int, term string) (bool, error) {
	return strings.Contains(strings.ToLower(f.pages[page]), strings.ToLower(term)), nil
}

func blankPages(n int) []string {
	return make([]string, n)
}

// assertCoverage checks that segments are numbered from 1 and cover every
// page exactly once.
func assertCoverage(t *testing.T, segs []internal.Segment, pages int) {
	t.Helper()
	next := 0
	for i, s := range segs {
		if s.Index != i+1 {
			t.Errorf("segment %d has index %d", i, s.Index)
		}
		if s.StartPage != next {
			t.Errorf("segment %d starts at %d, expected %d", s.Index, s.StartPage, next)
		}
		if s.EndPage < s.StartPage {
			t.Errorf("segment %d has inverted range %d-%d", s.Index, s.StartPage, s.EndPage)
		}
		next = s.EndPage + 1
	}
	if next != pages {
		t.Errorf("segments end at page %d, expected %d", next, pages)
	}
}

func assertRanges(t *testing.T, segs []internal.Segment, want [][2]int) {
	t.Helper()
	if len(segs) != len(want) {
		t.Fatalf("expected %d segments, got %d: %+v", len(want), len(segs), segs)
	}
	for i, w := range want {
		if segs[i].StartPage != w[0] || segs[i].EndPage != w[1] {
			t.Errorf("segment %d: expected %d-%d, got %d-%d", i+1, w[0], w[1], segs[i].StartPage, segs[i].EndPage)
		}
	}
}

// --- bookmark mode ---

func TestResolve_BookmarkScenario(t *testing.T) {
	src := &fakeSource{
		pages: blankPages(10),
		toc: []document.Bookmark{
			{Level: 1, Title: "Intro", Page: 1},
			{Level: 1, Title: "Body", Page: 4},
			{Level: 1, Title: "End", Page: 8},
		},
	}

	segs, err := chunker.Resolve(src, chunker.ModeBookmark, chunker.Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertRanges(t, segs, [][2]int{{0, 2}, {3, 6}, {7, 9}})
	for i, title := range []string{"Intro", "Body", "End"} {
		if segs[i].Index != i+1 || segs[i].Title != title {
			t.Errorf("segment %d: got index %d title %q", i, segs[i].Index, segs[i].Title)
		}
	}
}

func TestResolve_BookmarkIgnoresNesting(t *testing.T) {
	src := &fakeSource{
		pages: blankPages(12),
		toc: []document.Bookmark{
			{Level: 1, Title: "Part I", Page: 1},
			{Level: 2, Title: "Chapter 1", Page: 3},
			{Level: 3, Title: "Section 1.1", Page: 5},
			{Level: 1, Title: "Part II", Page: 9},
		},
	}

	segs, err := chunker.Resolve(src, chunker.ModeBookmark, chunker.Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertRanges(t, segs, [][2]int{{0, 1}, {2, 3}, {4, 7}, {8, 11}})
	assertCoverage(t, segs, 12)
}

func TestResolve_EmptyTOCFallsBack(t *testing.T) {
	src := &fakeSource{pages: blankPages(7)}

	segs, err := chunker.Resolve(src, chunker.ModeBookmark, chunker.Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertRanges(t, segs, [][2]int{{0, 6}})
	if segs[0].Title != chunker.FullDocumentTitle || segs[0].Index != 1 {
		t.Errorf("unexpected fallback segment: %+v", segs[0])
	}
}

func TestResolve_UnreadableTOCFallsBack(t *testing.T) {
	src := &fakeSource{pages: blankPages(3), tocErr: errors.New("no outlines")}

	segs, err := chunker.Resolve(src, chunker.ModeBookmark, chunker.Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertRanges(t, segs, [][2]int{{0, 2}})
}

func TestResolve_SingleEntryMatchesFallbackShape(t *testing.T) {
	empty := &fakeSource{pages: blankPages(5)}
	single := &fakeSource{pages: blankPages(5), toc: []document.Bookmark{{Level: 1, Title: "Only", Page: 1}}}

	a, _ := chunker.Resolve(empty, chunker.ModeBookmark, chunker.Options{})
	b, _ := chunker.Resolve(single, chunker.ModeBookmark, chunker.Options{})

	if len(a) != 1 || len(b) != 1 {
		t.Fatalf("expected single segments, got %d and %d", len(a), len(b))
	}
	if a[0].Index != b[0].Index || a[0].StartPage != b[0].StartPage || a[0].EndPage != b[0].EndPage {
		t.Errorf("shapes differ: %+v vs %+v", a[0], b[0])
	}
}

func TestResolve_FrontMatterFoldedIntoFirstSegment(t *testing.T) {
	src := &fakeSource{
		pages: blankPages(10),
		toc: []document.Bookmark{
			{Level: 1, Title: "One", Page: 3},
			{Level: 1, Title: "Two", Page: 6},
		},
	}

	segs, _ := chunker.Resolve(src, chunker.ModeBookmark, chunker.Options{})
	assertRanges(t, segs, [][2]int{{0, 4}, {5, 9}})
}

func TestResolve_DuplicateAndOutOfRangeEntriesDropped(t *testing.T) {
	src := &fakeSource{
		pages: blankPages(10),
		toc: []document.Bookmark{
			{Level: 1, Title: "A", Page: 1},
			{Level: 2, Title: "A.1", Page: 1},
			{Level: 1, Title: "B", Page: 5},
			{Level: 2, Title: "Back", Page: 2},
			{Level: 1, Title: "Ghost", Page: 40},
		},
	}

	segs, _ := chunker.Resolve(src, chunker.ModeBookmark, chunker.Options{})
	assertRanges(t, segs, [][2]int{{0, 3}, {4, 9}})
	if segs[1].Title != "B" || segs[1].Index != 2 {
		t.Errorf("expected renumbered segment B, got %+v", segs[1])
	}
	assertCoverage(t, segs, 10)
}

// --- chapter mode ---

func TestResolve_ChapterMarkers(t *testing.T) {
	pages := blankPages(9)
	pages[0] = "Title page"
	pages[2] = "CHAPTER ONE"
	pages[5] = "chapter two begins"
	src := &fakeSource{pages: pages}

	segs, err := chunker.Resolve(src, chunker.ModeChapter, chunker.Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertRanges(t, segs, [][2]int{{0, 4}, {5, 8}})
	if segs[0].Title != "Chapter 1" || segs[1].Title != "Chapter 2" {
		t.Errorf("unexpected titles: %q, %q", segs[0].Title, segs[1].Title)
	}
	assertCoverage(t, segs, 9)
}

func TestResolve_ChapterMarkerStartingAtFirstPage(t *testing.T) {
	pages := []string{"Chapter 1", "text", "Chapter 2", "text"}
	segs, _ := chunker.Resolve(&fakeSource{pages: pages}, chunker.ModeChapter, chunker.Options{})
	assertRanges(t, segs, [][2]int{{0, 1}, {2, 3}})
}

func TestResolve_NoMarkersFallsBack(t *testing.T) {
	src := &fakeSource{pages: []string{"a", "b", "c"}}

	segs, _ := chunker.Resolve(src, chunker.ModeChapter, chunker.Options{})
	assertRanges(t, segs, [][2]int{{0, 2}})
	if segs[0].Title != chunker.FullDocumentTitle {
		t.Errorf("expected fallback title, got %q", segs[0].Title)
	}
}

func TestResolve_SingleMarkerDegenerates(t *testing.T) {
	src := &fakeSource{pages: []string{"x", "Chapter", "y"}}

	segs, _ := chunker.Resolve(src, chunker.ModeChapter, chunker.Options{})
	assertRanges(t, segs, [][2]int{{0, 2}})
	if segs[0].Index != 1 {
		t.Errorf("expected index 1, got %d", segs[0].Index)
	}
}

func TestResolve_CustomMarker(t *testing.T) {
	src := &fakeSource{pages: []string{"BOOK I", "text", "book ii"}}

	segs, _ := chunker.Resolve(src, chunker.ModeChapter, chunker.Options{Marker: "Book"})
	assertRanges(t, segs, [][2]int{{0, 1}, {2, 2}})
}

// --- full mode and errors ---

func TestResolve_FullMode(t *testing.T) {
	src := &fakeSource{
		pages: blankPages(4),
		toc:   []document.Bookmark{{Level: 1, Title: "A", Page: 1}, {Level: 1, Title: "B", Page: 3}},
	}

	segs, _ := chunker.Resolve(src, chunker.ModeFull, chunker.Options{})
	assertRanges(t, segs, [][2]int{{0, 3}})
}

func TestResolve_EmptyDocument(t *testing.T) {
	_, err := chunker.Resolve(&fakeSource{}, chunker.ModeFull, chunker.Options{})
	if !errors.Is(err, chunker.ErrEmptyDocument) {
		t.Errorf("expected ErrEmptyDocument, got %v", err)
	}
}

func TestResolve_Deterministic(t *testing.T) {
	src := &fakeSource{
		pages: blankPages(20),
		toc:   []document.Bookmark{{Title: "a", Page: 1}, {Title: "b", Page: 7}, {Title: "c", Page: 15}},
	}

	first, _ := chunker.Resolve(src, chunker.ModeBookmark, chunker.Options{})
	second, _ := chunker.Resolve(src, chunker.ModeBookmark, chunker.Options{})
	if len(first) != len(second) {
		t.Fatalf("segment counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("segment %d differs: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestParseMode(t *testing.T) {
	for _, s := range []string{"bookmark", "chapter", "full", " FULL "} {
		if _, err := chunker.ParseMode(s); err != nil {
			t.Errorf("ParseMode(%q): unexpected error %v", s, err)
		}
	}
	if _, err := chunker.ParseMode("toc"); err == nil {
		t.Error("expected error for unknown mode")
	}
}
