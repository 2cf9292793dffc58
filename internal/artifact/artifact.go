// Package artifact maps segments to the files that record work done on them.
//
// An artifact's name is derived only from the segment index and title, and
// the existence of the file is the sole record that a stage finished for
// that segment. Files are written to a temporary sibling and renamed into
// place, so a file under its final name is always complete.
package artifact

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"
)

const (
	ExtPDF  = ".pdf"
	ExtText = ".txt"

	partSuffix = ".part"
)

var indexRe = regexp.MustCompile(`^(\d+)_`)

// Sanitize makes text safe to use in a file name: everything except
// letters, digits, '_', '-' and whitespace is dropped, the result is
// trimmed and inner whitespace becomes '_'.
func Sanitize(text string) string {
	var sb strings.Builder
	for _, r := range text {
		switch {
		case unicode.IsLetter(r), unicode.IsMark(r), unicode.IsDigit(r), r == '_', r == '-':
			sb.WriteRune(r)
		case unicode.IsSpace(r):
			sb.WriteRune(' ')
		}
	}
	return strings.ReplaceAll(strings.TrimSpace(sb.String()), " ", "_")
}

// Name returns the base name (without extension) shared by every artifact
// of a segment.
func Name(index int, title string) string {
	return fmt.Sprintf("%02d_%s", index, Sanitize(title))
}

// ParseIndex recovers the segment index from an artifact base name. Names
// without a numeric prefix yield 0.
func ParseIndex(base string) int {
	m := indexRe.FindStringSubmatch(base)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}

// BaseName strips the directory and extension from path.
func BaseName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Layout locates the folders holding one input's artifacts.
type Layout struct {
	Sections     string
	Translations string
}

// NewLayout derives the sections and translations folders for input under
// workDir.
func NewLayout(workDir, input string) Layout {
	name := Sanitize(BaseName(input))
	return Layout{
		Sections:     filepath.Join(workDir, "sections_"+name),
		Translations: filepath.Join(workDir, "translations_"+name),
	}
}

func (l Layout) SlicePath(base string) string {
	return filepath.Join(l.Sections, base+ExtPDF)
}

func (l Layout) TextPath(base string) string {
	return filepath.Join(l.Sections, base+ExtText)
}

func (l Layout) TranslationPath(base string) string {
	return filepath.Join(l.Translations, base+ExtText)
}

// Exists reports whether a regular file is present at path.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// DirExists reports whether path is an existing directory.
func DirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// List returns the distinct base names of regular files in dir that carry
// one of exts, ordered by segment index and then by name.
func List(dir string, exts ...string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var bases []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		ext := filepath.Ext(e.Name())
		if !hasExt(ext, exts) {
			continue
		}
		base := strings.TrimSuffix(e.Name(), ext)
		if !seen[base] {
			seen[base] = true
			bases = append(bases, base)
		}
	}

	sort.Slice(bases, func(i, j int) bool {
		a, b := ParseIndex(bases[i]), ParseIndex(bases[j])
		if a != b {
			return a < b
		}
		return bases[i] < bases[j]
	})
	return bases, nil
}

// hasExt matches case-sensitively: stages rebuild paths with the lowercase
// extensions, so 01_Scan.PDF is not the 01_Scan slice.
func hasExt(ext string, exts []string) bool {
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}

// ErrExists is returned by Create when the artifact is already present.
var ErrExists = errors.New("artifact already exists")

// Create produces the artifact at path by calling produce with a temporary
// path in the same directory, then renaming it into place. An existing
// artifact is never touched.
func Create(path string, produce func(tmp string) error) error {
	if Exists(path) {
		return ErrExists
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp := path + partSuffix
	if err := produce(tmp); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to finalize %s: %w", filepath.Base(path), err)
	}
	return nil
}

// WriteFile stores data as the artifact at path.
func WriteFile(path string, data []byte) error {
	return Create(path, func(tmp string) error {
		return os.WriteFile(tmp, data, 0644)
	})
}

// ReadText returns the content of a text artifact.
func ReadText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}
	return string(data), nil
}
