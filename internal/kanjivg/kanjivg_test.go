package kanjivg

import (
	"archive/zip"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
)

const ichiSVG = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE svg PUBLIC "-//W3C//DTD SVG 1.0//EN" "http://www.w3.org/TR/2001/REC-SVG-20010904/DTD/svg10.dtd" [
<!ATTLIST g
xmlns:kvg CDATA #FIXED "http://kanjivg.tagaini.net"
kvg:element CDATA #IMPLIED >
]>
<svg xmlns="http://www.w3.org/2000/svg" width="109" height="109" viewBox="0 0 109 109">
<g id="kvg:StrokePaths_04e00" style="fill:none;stroke:#000000;stroke-width:3;">
<g id="kvg:04e00" kvg:element="一">
	<path id="kvg:04e00-s1" kvg:type="㇐" d="M11,54.25c3.19,0.62,6.25,0.75,9.73,0.5c20.64-1.5,50.39-5.12,68.58-5.24c3.6-0.02,5.77,0.24,7.57,0.49"/>
</g>
</g>
<g id="kvg:StrokeNumbers_04e00" style="font-size:8;fill:#808080">
	<text transform="matrix(1 0 0 1 4.25 54.13)">1</text>
	<path d="M1,1 L2,2"/>
</g>
</svg>`

const niSVG = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 109 109">
<g id="kvg:StrokePaths_04e8c">
	<path d="M26.5,27.5 L80,26"/>
	<path d="m 12 80.5 l 85 -1"/>
</g>
</svg>`

func TestParseSVGSkipsStrokeNumbers(t *testing.T) {
	data, err := ParseSVG(strings.NewReader(ichiSVG), "一")
	if err != nil {
		t.Fatalf("ParseSVG failed: %v", err)
	}
	if data.StrokeCount != 1 || len(data.Strokes) != 1 {
		t.Fatalf("expected 1 stroke, got %+v", data)
	}
	s := data.Strokes[0]
	if !strings.HasPrefix(s.Path, "M11,54.25c3.19") {
		t.Fatalf("unexpected path %q", s.Path)
	}
	if s.StartX != 0.101 || s.StartY != 0.498 {
		t.Fatalf("expected start (0.101, 0.498), got (%v, %v)", s.StartX, s.StartY)
	}
	if data.Character != "一" || data.Type != "kanji" {
		t.Fatalf("unexpected character info: %+v", data)
	}
}

func TestParseSVGKeepsDocumentOrder(t *testing.T) {
	data, err := ParseSVG(strings.NewReader(niSVG), "二")
	if err != nil {
		t.Fatalf("ParseSVG failed: %v", err)
	}
	if len(data.Strokes) != 2 {
		t.Fatalf("expected 2 strokes, got %d", len(data.Strokes))
	}
	if data.Strokes[1].StartX != 0.11 || data.Strokes[1].StartY != 0.739 {
		t.Fatalf("unexpected relative move start: %+v", data.Strokes[1])
	}
}

func TestParseSVGWithoutPaths(t *testing.T) {
	_, err := ParseSVG(strings.NewReader(`<svg><g id="kvg:StrokeNumbers_x"><path d="M1,1"/></g></svg>`), "x")
	if !errors.Is(err, ErrNoPaths) {
		t.Fatalf("expected ErrNoPaths, got %v", err)
	}
}

func TestReadDirSkipsVariants(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "04e00.svg"), ichiSVG)
	writeFile(t, filepath.Join(dir, "04e00-Kaisho.svg"), niSVG)
	writeFile(t, filepath.Join(dir, "04e8c.svg"), niSVG)
	writeFile(t, filepath.Join(dir, "README.md"), "not svg")

	got, err := ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	keys := got.Keys()
	if len(keys) != 2 || keys[0] != "04e00" || keys[1] != "04e8c" {
		t.Fatalf("unexpected keys %v", keys)
	}
	if got["04e00"].StrokeCount != 1 || got["04e8c"].Character != "二" {
		t.Fatalf("unexpected collection %+v", got)
	}
}

func TestReadArchive(t *testing.T) {
	archive := writeTestArchive(t, map[string]string{
		"kanjivg-master/COPYING":           "CC BY-SA 3.0",
		"kanjivg-master/kanji/04e00.svg":   ichiSVG,
		"kanjivg-master/kanji/04e8c.svg":   niSVG,
		"kanjivg-master/kanji/04e8c-v.svg": ichiSVG,
	})
	got, err := ReadArchive(archive)
	if err != nil {
		t.Fatalf("ReadArchive failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 characters, got %d", len(got))
	}
	if got["04e8c"].StrokeCount != 2 {
		t.Fatalf("expected variant to be ignored, got %+v", got["04e8c"])
	}
}

func TestReadArchiveWithoutKanjiDir(t *testing.T) {
	archive := writeTestArchive(t, map[string]string{"other/04e00.svg": ichiSVG})
	if _, err := ReadArchive(archive); err == nil {
		t.Fatalf("expected error for archive without kanji directory")
	}
}

func TestDownloadArchiveCaches(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte("zipdata"))
	}))
	defer srv.Close()

	cache := t.TempDir()
	first, err := DownloadArchive(context.Background(), srv.URL, cache)
	if err != nil {
		t.Fatalf("DownloadArchive failed: %v", err)
	}
	if first.Cached {
		t.Fatalf("expected first download to be fresh")
	}
	data, err := os.ReadFile(first.Path)
	if err != nil || string(data) != "zipdata" {
		t.Fatalf("unexpected archive contents %q (%v)", data, err)
	}

	second, err := DownloadArchive(context.Background(), srv.URL, cache)
	if err != nil {
		t.Fatalf("DownloadArchive failed: %v", err)
	}
	if !second.Cached || second.Path != first.Path {
		t.Fatalf("expected cached archive, got %+v", second)
	}
	if hits.Load() != 1 {
		t.Fatalf("expected one request, got %d", hits.Load())
	}
}

func TestDownloadArchiveBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	cache := t.TempDir()
	if _, err := DownloadArchive(context.Background(), srv.URL, cache); err == nil {
		t.Fatalf("expected error for bad status")
	}
	entries, _ := os.ReadDir(cache)
	if len(entries) != 0 {
		t.Fatalf("expected no leftovers in cache, got %d entries", len(entries))
	}
}

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/04e00.svg" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(ichiSVG))
	}))
	defer srv.Close()

	data, err := Fetch(context.Background(), srv.URL+"/", "一")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if data.Character != "一" || data.StrokeCount != 1 {
		t.Fatalf("unexpected data %+v", data)
	}

	if _, err := Fetch(context.Background(), srv.URL, "二"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := Fetch(context.Background(), srv.URL, "一二"); err == nil {
		t.Fatalf("expected error for multi-character input")
	}
}

func TestWriteAttribution(t *testing.T) {
	archive := writeTestArchive(t, map[string]string{
		"kanjivg-master/COPYING": "license body",
	})
	out := t.TempDir()
	if err := WriteAttribution(archive, out); err != nil {
		t.Fatalf("WriteAttribution failed: %v", err)
	}
	attr, err := os.ReadFile(filepath.Join(out, "ATTRIBUTION.txt"))
	if err != nil || !strings.Contains(string(attr), "CC BY-SA 3.0") {
		t.Fatalf("unexpected attribution %q (%v)", attr, err)
	}
	license, err := os.ReadFile(filepath.Join(out, "LICENSE.txt"))
	if err != nil || string(license) != "license body" {
		t.Fatalf("unexpected license %q (%v)", license, err)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func writeTestArchive(t *testing.T, files map[string]string) string {
	t.Helper()
	archivePath := filepath.Join(t.TempDir(), "kanjivg.zip")
	f, err := os.Create(archivePath)
	if err != nil {
		t.Fatalf("create archive: %v", err)
	}
	zw := zip.NewWriter(f)
	for name, content := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create entry: %v", err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("write entry: %v", err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close archive: %v", err)
	}
	return archivePath
}
