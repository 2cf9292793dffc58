package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
	_ "modernc.org/sqlite"

	"github.com/valpere/pdftran/internal"
)

// Store is the optional SQLite journal of translate attempts plus the
// terminology glossary. The pipeline only writes attempts; artifact files
// remain the record of what is done.
type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS translation_attempts (
		id TEXT PRIMARY KEY,
		segment TEXT NOT NULL,
		segment_index INTEGER NOT NULL,
		target_lang TEXT NOT NULL,
		service_name TEXT NOT NULL,
		model TEXT,
		payload_kind TEXT NOT NULL,
		latency_ms INTEGER,
		error TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	-- glossary stores user-defined terminology for consistent translation of specific terms
	CREATE TABLE IF NOT EXISTS glossary (
		id TEXT PRIMARY KEY,
		target_lang TEXT NOT NULL,
		source_term TEXT NOT NULL,
		target_term TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(target_lang, source_term)
	);

	CREATE INDEX IF NOT EXISTS idx_attempts_segment ON translation_attempts(segment);
	CREATE INDEX IF NOT EXISTS idx_glossary_lookup ON glossary(target_lang);
	`

	_, err := s.db.Exec(schema)
	return err
}

// RecordAttempt appends a translate attempt to the journal.
func (s *Store) RecordAttempt(ctx context.Context, a internal.Attempt) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO translation_attempts (id, segment, segment_index, target_lang, service_name, model, payload_kind, latency_ms, error, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Segment, a.Index, a.TargetLang, a.Service, a.Model, a.PayloadKind, a.LatencyMs, a.Error, a.Timestamp)
	return err
}

// ListAttempts returns journal entries, newest first. A segment filter of ""
// returns every segment; limit ≤ 0 means no limit.
func (s *Store) ListAttempts(ctx context.Context, segment string, limit int) ([]internal.Attempt, error) {
	query := `SELECT id, segment, segment_index, target_lang, service_name, COALESCE(model, ''), payload_kind, COALESCE(latency_ms, 0), COALESCE(error, ''), created_at FROM translation_attempts`
	var args []interface{}
	if segment != "" {
		query += ` WHERE segment = ?`
		args = append(args, segment)
	}
	query += ` ORDER BY created_at DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []internal.Attempt
	for rows.Next() {
		var a internal.Attempt
		if err := rows.Scan(&a.ID, &a.Segment, &a.Index, &a.TargetLang, &a.Service, &a.Model, &a.PayloadKind, &a.LatencyMs, &a.Error, &a.Timestamp); err != nil {
			return nil, err
		}
		results = append(results, a)
	}

	return results, rows.Err()
}

// JournalStats summarises the journal.
type JournalStats struct {
	TotalAttempts int
	Succeeded     int
	Failed        int
	Segments      int
}

// Stats returns summary statistics for the journal.
func (s *Store) Stats(ctx context.Context) (*JournalStats, error) {
	stats := &JournalStats{}

	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN COALESCE(error, '') = '' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN COALESCE(error, '') <> '' THEN 1 ELSE 0 END), 0),
			COUNT(DISTINCT segment)
		FROM translation_attempts`).Scan(
		&stats.TotalAttempts,
		&stats.Succeeded,
		&stats.Failed,
		&stats.Segments,
	)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// ClearAttempts removes every journal entry.
func (s *Store) ClearAttempts(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM translation_attempts`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// GlossaryEntry represents a row in the glossary table.
type GlossaryEntry struct {
	ID         string
	TargetLang string
	SourceTerm string
	TargetTerm string
	CreatedAt  time.Time
}

// AddGlossaryTerm inserts or replaces a glossary entry.
func (s *Store) AddGlossaryTerm(ctx context.Context, targetLang, sourceTerm, targetTerm string) error {
	id := fmt.Sprintf("gl_%d", time.Now().UnixNano())
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO glossary (id, target_lang, source_term, target_term)
		 VALUES (?, ?, ?, ?)`,
		id, normalizeLang(targetLang), normalizeText(sourceTerm), normalizeText(targetTerm))
	return err
}

// GetGlossaryTerms returns the glossary for a target language as a
// source-term → target-term map, ready to embed in a translation prompt.
func (s *Store) GetGlossaryTerms(ctx context.Context, targetLang string) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT source_term, target_term FROM glossary WHERE target_lang = ?`,
		normalizeLang(targetLang))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	terms := make(map[string]string)
	for rows.Next() {
		var src, tgt string
		if err := rows.Scan(&src, &tgt); err != nil {
			return nil, err
		}
		terms[src] = tgt
	}
	return terms, rows.Err()
}

// ListGlossaryTerms returns all glossary entries, optionally filtered by
// target language (pass "" to return everything).
func (s *Store) ListGlossaryTerms(ctx context.Context, targetLang string) ([]GlossaryEntry, error) {
	query := `SELECT id, target_lang, source_term, target_term, created_at FROM glossary`
	var args []interface{}
	if targetLang != "" {
		query += ` WHERE target_lang = ?`
		args = append(args, normalizeLang(targetLang))
	}
	query += ` ORDER BY target_lang, source_term`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []GlossaryEntry
	for rows.Next() {
		var e GlossaryEntry
		if err := rows.Scan(&e.ID, &e.TargetLang, &e.SourceTerm, &e.TargetTerm, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// DeleteGlossaryTerm removes a glossary entry by ID.
func (s *Store) DeleteGlossaryTerm(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM glossary WHERE id = ?`, id)
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}

// normalizeText trims whitespace and applies Unicode NFC normalization
// for consistent glossary keys.
func normalizeText(text string) string {
	return norm.NFC.String(strings.TrimSpace(text))
}

// normalizeLang makes "Persian" and "persian " the same glossary key.
func normalizeLang(lang string) string {
	return strings.ToLower(normalizeText(lang))
}
