package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/verte-zerg/kakite/internal/chars"
	"github.com/verte-zerg/kakite/internal/model"
)

// AddWord saves a practice word and creates progress rows for its
// characters. Adding a word that already exists returns the stored word
// with created set to false.
func (s *Store) AddWord(ctx context.Context, word, reading, meaning, source string) (model.PracticeWord, bool, error) {
	word = strings.TrimSpace(chars.Normalize(word))
	if word == "" {
		return model.PracticeWord{}, false, fmt.Errorf("word is required")
	}
	if existing, ok, err := s.GetWord(ctx, word); err != nil {
		return model.PracticeWord{}, false, err
	} else if ok {
		return existing, false, nil
	}
	characters := chars.Practiceable(word)
	if len(characters) == 0 {
		return model.PracticeWord{}, false, fmt.Errorf("%q has no practiceable characters", word)
	}

	w := model.PracticeWord{
		ID:         newID(),
		Word:       word,
		Characters: characters,
		Reading:    reading,
		Meaning:    meaning,
		AddedAt:    s.now().UTC(),
		Source:     source,
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO practice_words (id, word, characters, reading, meaning, source, added_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		w.ID, w.Word, strings.Join(w.Characters, ""), w.Reading, w.Meaning, w.Source, w.AddedAt.Format(timeLayout),
	); err != nil {
		return model.PracticeWord{}, false, err
	}
	if err := s.EnsureProgress(ctx, characters); err != nil {
		return model.PracticeWord{}, false, err
	}
	return w, true, nil
}

// GetWord looks a word up by its text.
func (s *Store) GetWord(ctx context.Context, word string) (model.PracticeWord, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, word, characters, reading, meaning, source, added_at FROM practice_words WHERE word = ?`, word)
	w, err := scanWord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.PracticeWord{}, false, nil
	}
	if err != nil {
		return model.PracticeWord{}, false, err
	}
	return w, true, nil
}

// HasWord reports whether the word is saved.
func (s *Store) HasWord(ctx context.Context, word string) (bool, error) {
	_, ok, err := s.GetWord(ctx, chars.Normalize(word))
	return ok, err
}

// RemoveWord deletes a word by id. Progress of its characters is kept.
func (s *Store) RemoveWord(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM practice_words WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// UpdateWord changes the reading and meaning of a word.
func (s *Store) UpdateWord(ctx context.Context, id, reading, meaning string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE practice_words SET reading = ?, meaning = ? WHERE id = ?`, reading, meaning, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListWords returns all saved words, newest first.
func (s *Store) ListWords(ctx context.Context) ([]model.PracticeWord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, word, characters, reading, meaning, source, added_at FROM practice_words
		 ORDER BY added_at DESC, word ASC`)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var words []model.PracticeWord
	for rows.Next() {
		w, err := scanWord(rows)
		if err != nil {
			return nil, err
		}
		words = append(words, w)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return words, nil
}

// WordCharacters returns the distinct characters of all saved words.
func (s *Store) WordCharacters(ctx context.Context) ([]string, error) {
	words, err := s.ListWords(ctx)
	if err != nil {
		return nil, err
	}
	var all strings.Builder
	for i := len(words) - 1; i >= 0; i-- {
		all.WriteString(strings.Join(words[i].Characters, ""))
	}
	return chars.Practiceable(all.String()), nil
}

func scanWord(sc scanner) (model.PracticeWord, error) {
	var w model.PracticeWord
	var characters, addedAt string
	if err := sc.Scan(&w.ID, &w.Word, &characters, &w.Reading, &w.Meaning, &w.Source, &addedAt); err != nil {
		return model.PracticeWord{}, err
	}
	parsed, err := time.Parse(timeLayout, addedAt)
	if err != nil {
		return model.PracticeWord{}, err
	}
	w.AddedAt = parsed
	w.Characters = chars.Practiceable(characters)
	return w, nil
}
