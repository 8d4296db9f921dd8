// Package store handles SQLite persistence.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/verte-zerg/kakite/internal/chars"
	"github.com/verte-zerg/kakite/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store wraps SQLite access for practice data.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db, now: time.Now}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS character_progress (
			character TEXT PRIMARY KEY,
			type TEXT NOT NULL,
			attempts INTEGER NOT NULL DEFAULT 0,
			successes INTEGER NOT NULL DEFAULT 0,
			hints_used INTEGER NOT NULL DEFAULT 0,
			last_practiced TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS stroke_attempts (
			id INTEGER PRIMARY KEY,
			character TEXT NOT NULL,
			stroke_index INTEGER NOT NULL,
			feedback TEXT NOT NULL,
			confidence REAL NOT NULL,
			first_try INTEGER NOT NULL,
			attempted_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS stroke_cache (
			code_point TEXT PRIMARY KEY,
			data TEXT NOT NULL,
			cached_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS practice_words (
			id TEXT PRIMARY KEY,
			word TEXT NOT NULL UNIQUE,
			characters TEXT NOT NULL,
			reading TEXT NOT NULL DEFAULT '',
			meaning TEXT NOT NULL DEFAULT '',
			source TEXT NOT NULL DEFAULT '',
			added_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_stroke_attempts_at ON stroke_attempts(attempted_at);`,
		`CREATE INDEX IF NOT EXISTS idx_stroke_attempts_character ON stroke_attempts(character);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// UpdateProgress records one completed character. It satisfies the
// session progress sink.
func (s *Store) UpdateProgress(ctx context.Context, p model.Progress) error {
	if p.Character == "" {
		return fmt.Errorf("character is required")
	}
	success, hints := 0, 0
	if p.Success {
		success = 1
	}
	if p.HintsUsed {
		hints = 1
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO character_progress (character, type, attempts, successes, hints_used, last_practiced)
		 VALUES (?, ?, 1, ?, ?, ?)
		 ON CONFLICT(character) DO UPDATE SET
			attempts = attempts + 1,
			successes = successes + excluded.successes,
			hints_used = hints_used + excluded.hints_used,
			last_practiced = excluded.last_practiced`,
		p.Character,
		string(chars.TypeOf(p.Character)),
		success,
		hints,
		s.now().UTC().Format(timeLayout),
	)
	return err
}

// EnsureProgress creates empty progress rows for characters not seen before.
func (s *Store) EnsureProgress(ctx context.Context, characters []string) error {
	if len(characters) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()
	for _, c := range characters {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO character_progress (character, type) VALUES (?, ?) ON CONFLICT(character) DO NOTHING`,
			c, string(chars.TypeOf(c))); err != nil {
			return err
		}
	}
	err = tx.Commit()
	return err
}

// GetProgress returns the progress row of one character.
func (s *Store) GetProgress(ctx context.Context, character string) (model.CharacterProgress, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT character, type, attempts, successes, hints_used, last_practiced
		 FROM character_progress WHERE character = ?`, character)
	p, err := scanProgress(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.CharacterProgress{}, false, nil
	}
	if err != nil {
		return model.CharacterProgress{}, false, err
	}
	return p, true, nil
}

// ListProgress returns progress rows filtered by stats config.
func (s *Store) ListProgress(ctx context.Context, cfg model.StatsConfig) ([]model.CharacterProgress, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if cfg.Type != "" {
		clauses = append(clauses, "type = ?")
		args = append(args, cfg.Type)
	}
	if cfg.Since != nil {
		clauses = append(clauses, "last_practiced >= ?")
		args = append(args, cfg.Since.UTC().Format(timeLayout))
	}
	if filter := chars.Practiceable(cfg.Chars); len(filter) > 0 {
		clauses = append(clauses, "character IN ("+placeholders(len(filter))+")")
		for _, c := range filter {
			args = append(args, c)
		}
	}
	query := fmt.Sprintf(`SELECT character, type, attempts, successes, hints_used, last_practiced
		FROM character_progress
		WHERE %s
		ORDER BY character ASC`, strings.Join(clauses, " AND "))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var result []model.CharacterProgress
	for rows.Next() {
		p, err := scanProgress(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProgress(sc scanner) (model.CharacterProgress, error) {
	var p model.CharacterProgress
	var last sql.NullString
	if err := sc.Scan(&p.Character, &p.Type, &p.Attempts, &p.Successes, &p.HintsUsed, &last); err != nil {
		return model.CharacterProgress{}, err
	}
	if last.Valid && last.String != "" {
		parsed, err := time.Parse(timeLayout, last.String)
		if err != nil {
			return model.CharacterProgress{}, err
		}
		p.LastPracticed = &parsed
	}
	return p, nil
}

// RecordAttempt logs one stroke validation.
func (s *Store) RecordAttempt(ctx context.Context, a model.StrokeAttempt) (int64, error) {
	if a.AttemptedAt.IsZero() {
		a.AttemptedAt = s.now()
	}
	firstTry := 0
	if a.FirstTry {
		firstTry = 1
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO stroke_attempts (character, stroke_index, feedback, confidence, first_try, attempted_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		a.Character,
		a.StrokeIndex,
		string(a.Feedback),
		a.Confidence,
		firstTry,
		a.AttemptedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListAttempts returns attempts in chronological order. cfg.Last keeps only
// the most recent attempts.
func (s *Store) ListAttempts(ctx context.Context, cfg model.StatsConfig) ([]model.StrokeAttempt, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if cfg.Since != nil {
		clauses = append(clauses, "a.attempted_at >= ?")
		args = append(args, cfg.Since.UTC().Format(timeLayout))
	}
	if cfg.Type != "" {
		clauses = append(clauses, "COALESCE(p.type, '') = ?")
		args = append(args, cfg.Type)
	}
	if filter := chars.Practiceable(cfg.Chars); len(filter) > 0 {
		clauses = append(clauses, "a.character IN ("+placeholders(len(filter))+")")
		for _, c := range filter {
			args = append(args, c)
		}
	}
	limit := -1
	if cfg.Last > 0 {
		limit = cfg.Last
	}
	args = append(args, limit)
	query := fmt.Sprintf(`SELECT id, character, stroke_index, feedback, confidence, first_try, attempted_at FROM (
		SELECT a.id, a.character, a.stroke_index, a.feedback, a.confidence, a.first_try, a.attempted_at
		FROM stroke_attempts a
		LEFT JOIN character_progress p ON p.character = a.character
		WHERE %s
		ORDER BY a.attempted_at DESC, a.id DESC
		LIMIT ?
	) ORDER BY attempted_at ASC, id ASC`, strings.Join(clauses, " AND "))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var result []model.StrokeAttempt
	for rows.Next() {
		var a model.StrokeAttempt
		var feedback, at string
		var firstTry int
		if err := rows.Scan(&a.ID, &a.Character, &a.StrokeIndex, &feedback, &a.Confidence, &firstTry, &at); err != nil {
			return nil, err
		}
		parsed, err := time.Parse(timeLayout, at)
		if err != nil {
			return nil, err
		}
		a.Feedback = model.FeedbackKind(feedback)
		a.FirstTry = firstTry == 1
		a.AttemptedAt = parsed
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// GetWeakChars aggregates the most recent window attempts per character.
func (s *Store) GetWeakChars(ctx context.Context, window int, typ string) ([]model.CharAggregate, error) {
	if window <= 0 {
		return nil, nil
	}
	query := `WITH recent AS (
		SELECT a.character, a.feedback, a.confidence, a.first_try
		FROM stroke_attempts a
		LEFT JOIN character_progress p ON p.character = a.character
		WHERE (? = '' OR COALESCE(p.type, '') = ?)
		ORDER BY a.attempted_at DESC, a.id DESC
		LIMIT ?
	)
	SELECT character,
		SUM(CASE WHEN feedback = 'correct' THEN 1 ELSE 0 END) AS valid,
		SUM(CASE WHEN feedback = 'correct' THEN 0 ELSE 1 END) AS invalid,
		SUM(CASE WHEN first_try = 1 AND feedback = 'correct' THEN 1 ELSE 0 END) AS first_try_valid,
		SUM(first_try) AS first_try_total,
		SUM(confidence) AS confidence_sum,
		COUNT(*) AS confidence_seen
	FROM recent
	GROUP BY character`

	rows, err := s.db.QueryContext(ctx, query, typ, typ, window)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var result []model.CharAggregate
	for rows.Next() {
		var agg model.CharAggregate
		if err := rows.Scan(&agg.Char, &agg.Valid, &agg.Invalid, &agg.FirstTryValid, &agg.FirstTryTotal, &agg.ConfidenceSum, &agg.ConfidenceSeen); err != nil {
			return nil, err
		}
		result = append(result, agg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// CachedStrokes returns stroke data cached for a code point key.
func (s *Store) CachedStrokes(ctx context.Context, key string) (model.CharacterStrokes, bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM stroke_cache WHERE code_point = ?`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return model.CharacterStrokes{}, false, nil
	}
	if err != nil {
		return model.CharacterStrokes{}, false, err
	}
	var data model.CharacterStrokes
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return model.CharacterStrokes{}, false, fmt.Errorf("failed to decode cached strokes for %s: %w", key, err)
	}
	return data, true, nil
}

// CacheStrokes stores stroke data for a code point key.
func (s *Store) CacheStrokes(ctx context.Context, key string, data model.CharacterStrokes) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode strokes for %s: %w", key, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO stroke_cache (code_point, data, cached_at) VALUES (?, ?, ?)
		 ON CONFLICT(code_point) DO UPDATE SET data = excluded.data, cached_at = excluded.cached_at`,
		key, string(raw), s.now().UTC().Format(timeLayout))
	return err
}

// ClearStrokeCache removes every cached stroke entry.
func (s *Store) ClearStrokeCache(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM stroke_cache`)
	return err
}

// CachedStrokeCount returns the number of cached stroke entries.
func (s *Store) CachedStrokeCount(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM stroke_cache`).Scan(&n)
	return n, err
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

// newID returns a random word identifier.
func newID() string {
	return uuid.NewString()
}
