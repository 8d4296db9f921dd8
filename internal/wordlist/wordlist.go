// Package wordlist loads practice word files.
package wordlist

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/verte-zerg/kakite/internal/chars"
)

// Entry is one line of a word file: the word, then optional reading and
// meaning separated by tabs.
type Entry struct {
	Word    string
	Reading string
	Meaning string
}

// LoadEntries reads a word file. Blank lines and lines starting with '#'
// are skipped.
func LoadEntries(path string) ([]Entry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			// Best-effort close for read-only word list.
			_ = cerr
		}
	}()

	var entries []Entry
	scanner := bufio.NewScanner(file)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, "\t")
		entry := Entry{Word: chars.Normalize(strings.TrimSpace(fields[0]))}
		if len(fields) > 1 {
			entry.Reading = strings.TrimSpace(fields[1])
		}
		if len(fields) > 2 {
			entry.Meaning = strings.TrimSpace(strings.Join(fields[2:], " "))
		}
		if entry.Word == "" {
			return nil, fmt.Errorf("line %d: missing word", lineNo)
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("word list is empty")
	}
	return entries, nil
}

// LoadWords reads the words of a word file.
func LoadWords(path string) ([]string, error) {
	entries, err := LoadEntries(path)
	if err != nil {
		return nil, err
	}
	words := make([]string, len(entries))
	for i, e := range entries {
		words[i] = e.Word
	}
	return words, nil
}

// Characters returns the distinct practiceable characters of words in
// first-seen order.
func Characters(words []string) []string {
	return chars.Practiceable(strings.Join(words, ""))
}
