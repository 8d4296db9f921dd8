// Package kanjivg reads stroke-order data from the KanjiVG dataset.
package kanjivg

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/verte-zerg/kakite/internal/chars"
	"github.com/verte-zerg/kakite/internal/model"
)

const (
	// ArchiveURL is the KanjiVG master branch archive.
	ArchiveURL = "https://github.com/KanjiVG/kanjivg/archive/refs/heads/master.zip"
	// RawBaseURL serves individual character files as <hex5>.svg.
	RawBaseURL = "https://raw.githubusercontent.com/KanjiVG/kanjivg/master/kanji"

	archiveName = "kanjivg-master.zip"
)

// ErrNotFound is returned when the remote has no file for a character.
var ErrNotFound = errors.New("kanjivg file not found")

// Archive describes a cached KanjiVG archive.
type Archive struct {
	Path   string
	Cached bool
}

// DownloadArchive fetches the KanjiVG archive from url into cacheDir,
// reusing an earlier download when present.
func DownloadArchive(ctx context.Context, url, cacheDir string) (Archive, error) {
	if cacheDir == "" {
		return Archive{}, fmt.Errorf("cache directory is required")
	}
	if url == "" {
		url = ArchiveURL
	}
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return Archive{}, fmt.Errorf("failed to create cache dir: %w", err)
	}

	destPath := filepath.Join(cacheDir, archiveName)
	if _, err := os.Stat(destPath); err == nil {
		return Archive{Path: destPath, Cached: true}, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return Archive{}, fmt.Errorf("failed to stat cached archive: %w", err)
	}

	tmpFile, err := os.CreateTemp(cacheDir, "kanjivg-*.zip")
	if err != nil {
		return Archive{}, fmt.Errorf("failed to create temp archive: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	resp, err := httpRequest(ctx, url, 10*time.Minute)
	if err != nil {
		return Archive{}, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return Archive{}, fmt.Errorf("unexpected archive status: %s", resp.Status)
	}

	if _, err := io.Copy(tmpFile, resp.Body); err != nil {
		return Archive{}, fmt.Errorf("failed to download archive: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return Archive{}, fmt.Errorf("failed to close temp archive: %w", err)
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		return Archive{}, fmt.Errorf("failed to move archive into cache: %w", err)
	}
	return Archive{Path: destPath, Cached: false}, nil
}

// Fetch downloads and parses the file for one character from baseURL.
func Fetch(ctx context.Context, baseURL, character string) (model.CharacterStrokes, error) {
	r, ok := singleRune(character)
	if !ok {
		return model.CharacterStrokes{}, fmt.Errorf("expected a single character, got %q", character)
	}
	if baseURL == "" {
		baseURL = RawBaseURL
	}
	url := strings.TrimRight(baseURL, "/") + "/" + chars.CodePointHex(r) + ".svg"

	resp, err := httpRequest(ctx, url, 30*time.Second)
	if err != nil {
		return model.CharacterStrokes{}, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return model.CharacterStrokes{}, fmt.Errorf("%s: %w", url, ErrNotFound)
	case resp.StatusCode != http.StatusOK:
		return model.CharacterStrokes{}, fmt.Errorf("unexpected status for %s: %s", url, resp.Status)
	}
	return ParseSVG(resp.Body, character)
}

// Collection maps five-digit code point keys to parsed characters.
type Collection map[string]model.CharacterStrokes

// Keys returns the collection keys in code point order.
func (c Collection) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ReadDir parses every character file in a KanjiVG kanji directory.
func ReadDir(dir string) (Collection, error) {
	if dir == "" {
		return nil, fmt.Errorf("directory is required")
	}
	return readFS(os.DirFS(dir), ".")
}

// ReadArchive parses every character file under kanji/ inside a KanjiVG
// archive.
func ReadArchive(archivePath string) (Collection, error) {
	if archivePath == "" {
		return nil, fmt.Errorf("archive path is required")
	}
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	defer func() {
		_ = reader.Close()
	}()

	root := ""
	for _, file := range reader.File {
		dir := path.Dir(file.Name)
		if path.Base(dir) == "kanji" && strings.HasSuffix(file.Name, ".svg") {
			root = dir
			break
		}
	}
	if root == "" {
		return nil, fmt.Errorf("no kanji directory found in archive")
	}
	return readFS(reader, root)
}

func readFS(fsys fs.FS, dir string) (Collection, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", dir, err)
	}
	out := make(Collection)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		character, key, ok := characterFromName(entry.Name())
		if !ok {
			continue
		}
		data, err := readFile(fsys, path.Join(dir, entry.Name()), character)
		if errors.Is(err, ErrNoPaths) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out[key] = data
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no stroke files found in %s", dir)
	}
	return out, nil
}

func readFile(fsys fs.FS, name, character string) (model.CharacterStrokes, error) {
	f, err := fsys.Open(name)
	if err != nil {
		return model.CharacterStrokes{}, fmt.Errorf("failed to open %s: %w", name, err)
	}
	defer func() {
		_ = f.Close()
	}()
	data, err := ParseSVG(f, character)
	if err != nil {
		return model.CharacterStrokes{}, fmt.Errorf("%s: %w", name, err)
	}
	return data, nil
}

// characterFromName maps "04e00.svg" to its character. Variant files such
// as "04e00-Kaisho.svg" are skipped.
func characterFromName(name string) (string, string, bool) {
	stem, ok := strings.CutSuffix(name, ".svg")
	if !ok || stem == "" || strings.Contains(stem, "-") {
		return "", "", false
	}
	r, err := chars.FromCodePointHex(stem)
	if err != nil {
		return "", "", false
	}
	return string(r), chars.CodePointHex(r), true
}

// WriteAttribution writes the attribution and license notes required when
// redistributing data derived from KanjiVG. The archive's own copying file is
// included when archivePath is set.
func WriteAttribution(archivePath, outDir string) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}
	attrText := strings.Join([]string{
		"Stroke data generated from the KanjiVG dataset.",
		"Source: https://kanjivg.tagaini.net/ (https://github.com/KanjiVG/kanjivg)",
		"Copyright (C) 2009-2024 Ulrich Apel.",
		"Data license: Creative Commons Attribution-ShareAlike 3.0 Unported (CC BY-SA 3.0).",
		"https://creativecommons.org/licenses/by-sa/3.0/",
		"Changes were made: stroke numbers removed, paths extracted and start points normalized.",
		"",
	}, "\n")
	if err := os.WriteFile(filepath.Join(outDir, "ATTRIBUTION.txt"), []byte(attrText), 0o644); err != nil {
		return fmt.Errorf("failed to write attribution: %w", err)
	}
	if archivePath == "" {
		return nil
	}
	licenseText, err := readArchiveLicense(archivePath)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(outDir, "LICENSE.txt"), licenseText, 0o644); err != nil {
		return fmt.Errorf("failed to write license: %w", err)
	}
	return nil
}

func readArchiveLicense(archivePath string) ([]byte, error) {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive for license: %w", err)
	}
	defer func() {
		_ = reader.Close()
	}()

	for _, file := range reader.File {
		base := strings.ToLower(path.Base(file.Name))
		if base != "copying" && !strings.HasPrefix(base, "license") {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open license: %w", err)
		}
		data, err := io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read license: %w", err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("license file not found in archive")
}

func httpRequest(ctx context.Context, url string, timeout time.Duration) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	client := &http.Client{Timeout: timeout}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return resp, nil
}

func singleRune(s string) (rune, bool) {
	runes := []rune(s)
	if len(runes) != 1 {
		return 0, false
	}
	return runes[0], true
}
