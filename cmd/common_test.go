package cmd

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTruncate(t *testing.T) {
	persian := strings.Repeat("خطا در ترجمه ", 10)

	got := truncate(persian, 60)
	if !utf8.ValidString(got) {
		t.Fatalf("truncated text is not valid UTF-8: %q", got)
	}
	if n := utf8.RuneCountInString(got); n != 60 {
		t.Errorf("expected 60 runes, got %d", n)
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("expected ... suffix, got %q", got)
	}

	if got := truncate("short", 60); got != "short" {
		t.Errorf("short text changed: %q", got)
	}
	if got := truncate("abcdef", 2); got != "ab" {
		t.Errorf("expected hard cut below the marker width, got %q", got)
	}
}

func TestLoadGlossary_MissingDatabaseIsNotCreated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "pdftran.db")

	terms, err := loadGlossary(context.Background(), path, "Persian")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(terms) != 0 {
		t.Errorf("expected no terms, got %v", terms)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("database should not be created, stat err = %v", err)
	}
}

func TestLoadGlossary_ReadsTermsWrittenByGlossaryAdd(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data", "pdftran.db")

	db, err := openStore(path)
	if err != nil {
		t.Fatalf("openStore failed: %v", err)
	}
	if err := db.AddGlossaryTerm(ctx, "Persian", "Polis", "پولیس"); err != nil {
		t.Fatalf("AddGlossaryTerm failed: %v", err)
	}
	db.Close()

	terms, err := loadGlossary(ctx, path, "Persian")
	if err != nil {
		t.Fatalf("loadGlossary failed: %v", err)
	}
	if terms["Polis"] != "پولیس" {
		t.Errorf("unexpected terms: %v", terms)
	}
}

func TestGlossaryHelpNamesDatabase(t *testing.T) {
	if !strings.Contains(glossaryCmd.Long, "--db") || !strings.Contains(glossaryCmd.Long, defaultDBPath) {
		t.Errorf("glossary help should say which database run reads: %q", glossaryCmd.Long)
	}
}
