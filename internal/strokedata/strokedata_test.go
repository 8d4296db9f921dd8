package strokedata

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/verte-zerg/kakite/internal/kanjivg"
	"github.com/verte-zerg/kakite/internal/model"
)

func strokesFor(character string, n int) model.CharacterStrokes {
	out := model.CharacterStrokes{Character: character, StrokeCount: n}
	for i := 0; i < n; i++ {
		out.Strokes = append(out.Strokes, model.ReferenceStroke{Path: "M10,10 L90,90", StartX: 0.092, StartY: 0.092})
	}
	return out
}

func TestTierOf(t *testing.T) {
	cases := map[rune]int{
		'あ': TierKana,
		'ア': TierKana,
		'日': TierCommon,
		'一': TierCommon,
		'鬱': TierRest,
		'丁': TierCommon,
	}
	for r, want := range cases {
		if got := TierOf(r); got != want {
			t.Fatalf("TierOf(%q): expected %d, got %d", r, want, got)
		}
	}
}

func TestBuildAndRoundTrip(t *testing.T) {
	coll := kanjivg.Collection{
		"03042": strokesFor("あ", 3),
		"065e5": strokesFor("日", 4),
		"09b31": strokesFor("鬱", 29),
	}
	b := Build(coll)
	if b.Count(TierKana) != 1 || b.Count(TierCommon) != 1 || b.Count(TierRest) != 1 {
		t.Fatalf("unexpected tier sizes: %d %d %d", b.Count(TierKana), b.Count(TierCommon), b.Count(TierRest))
	}

	dir := t.TempDir()
	if err := b.Write(dir); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	for _, name := range []string{"tier1.json", "tier2.json", "tier3.json", "index.json"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Fatalf("expected %s: %v", name, err)
		}
	}

	loaded, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	data, tier, ok := loaded.Lookup("065e5")
	if !ok || tier != TierCommon || data.StrokeCount != 4 || data.Character != "日" {
		t.Fatalf("unexpected lookup: %+v tier=%d ok=%v", data, tier, ok)
	}
	if loaded.Index["09b31"] != TierRest {
		t.Fatalf("expected index entry for tier 3, got %v", loaded.Index)
	}
}

func TestLoadWithoutThirdTier(t *testing.T) {
	dir := t.TempDir()
	b := Build(kanjivg.Collection{"03042": strokesFor("あ", 3)})
	if err := b.Write(dir); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := os.Remove(filepath.Join(dir, "tier3.json")); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := os.Remove(filepath.Join(dir, "index.json")); err != nil {
		t.Fatalf("remove: %v", err)
	}
	loaded, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Index["03042"] != TierKana {
		t.Fatalf("expected index rebuilt from tiers, got %v", loaded.Index)
	}
}

func TestLoadRejectsCorruptFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "tier1.json"), []byte("{"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(dir); err == nil {
		t.Fatalf("expected decode error")
	}
}

type memCache struct {
	mu   sync.Mutex
	data map[string]model.CharacterStrokes
	puts int
}

func newMemCache() *memCache {
	return &memCache{data: map[string]model.CharacterStrokes{}}
}

func (m *memCache) CachedStrokes(_ context.Context, key string) (model.CharacterStrokes, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.data[key]
	return d, ok, nil
}

func (m *memCache) CacheStrokes(_ context.Context, key string, data model.CharacterStrokes) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = data
	m.puts++
	return nil
}

func (m *memCache) ClearStrokeCache(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = map[string]model.CharacterStrokes{}
	return nil
}

const remoteSVG = `<svg><g id="kvg:StrokePaths_09b31"><path d="M10,10 L90,90"/><path d="M20,20 L80,20"/></g></svg>`

func newRemote(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	hits := &atomic.Int32{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path != "/09b31.svg" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(remoteSVG))
	}))
	t.Cleanup(srv.Close)
	return srv, hits
}

func TestProviderPrefersBundle(t *testing.T) {
	srv, hits := newRemote(t)
	p, err := NewProvider(Options{
		Bundle:        Build(kanjivg.Collection{"065e5": strokesFor("日", 4)}),
		RemoteBaseURL: srv.URL,
	})
	if err != nil {
		t.Fatalf("NewProvider failed: %v", err)
	}
	data, err := p.Strokes(context.Background(), "日")
	if err != nil {
		t.Fatalf("Strokes failed: %v", err)
	}
	if data.Character != "日" || data.Type != "kanji" || data.StrokeCount != 4 {
		t.Fatalf("unexpected data %+v", data)
	}
	if hits.Load() != 0 {
		t.Fatalf("expected no remote requests, got %d", hits.Load())
	}
	if !p.IsBundled("日") || p.IsBundled("鬱") {
		t.Fatalf("unexpected IsBundled results")
	}
}

func TestProviderFetchesAndCaches(t *testing.T) {
	srv, hits := newRemote(t)
	cache := newMemCache()
	p, err := NewProvider(Options{Cache: cache, RemoteBaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewProvider failed: %v", err)
	}
	data, err := p.Strokes(context.Background(), "鬱")
	if err != nil {
		t.Fatalf("Strokes failed: %v", err)
	}
	if data.StrokeCount != 2 || data.Character != "鬱" {
		t.Fatalf("unexpected data %+v", data)
	}
	if cache.puts != 1 {
		t.Fatalf("expected remote data to be cached, got %d puts", cache.puts)
	}

	// A fresh provider sharing the cache must not hit the network.
	p2, err := NewProvider(Options{Cache: cache, RemoteBaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewProvider failed: %v", err)
	}
	if _, err := p2.Strokes(context.Background(), "鬱"); err != nil {
		t.Fatalf("Strokes from cache failed: %v", err)
	}
	if hits.Load() != 1 {
		t.Fatalf("expected one remote request, got %d", hits.Load())
	}
}

func TestProviderUnavailable(t *testing.T) {
	srv, _ := newRemote(t)
	p, err := NewProvider(Options{RemoteBaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewProvider failed: %v", err)
	}
	cases := []string{"a", "", "日本", "川"}
	for _, c := range cases {
		if _, err := p.Strokes(context.Background(), c); !errors.Is(err, ErrUnavailable) {
			t.Fatalf("Strokes(%q): expected ErrUnavailable, got %v", c, err)
		}
	}
}

func TestProviderOffline(t *testing.T) {
	srv, hits := newRemote(t)
	p, err := NewProvider(Options{RemoteBaseURL: srv.URL, Offline: true})
	if err != nil {
		t.Fatalf("NewProvider failed: %v", err)
	}
	if _, err := p.Strokes(context.Background(), "鬱"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if hits.Load() != 0 || p.RemoteFetches() != 0 {
		t.Fatalf("expected no remote requests offline")
	}
}

func TestProviderPreloadAndClear(t *testing.T) {
	srv, _ := newRemote(t)
	cache := newMemCache()
	p, err := NewProvider(Options{
		Bundle:        Build(kanjivg.Collection{"03042": strokesFor("あ", 3)}),
		Cache:         cache,
		RemoteBaseURL: srv.URL,
	})
	if err != nil {
		t.Fatalf("NewProvider failed: %v", err)
	}
	n, err := p.Preload(context.Background(), []string{"あ", "鬱", "川", "x"})
	if err != nil {
		t.Fatalf("Preload failed: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 available characters, got %d", n)
	}
	if err := p.ClearCache(context.Background()); err != nil {
		t.Fatalf("ClearCache failed: %v", err)
	}
	if len(cache.data) != 0 {
		t.Fatalf("expected cache to be empty")
	}
	before := p.RemoteFetches()
	if _, err := p.Strokes(context.Background(), "鬱"); err != nil {
		t.Fatalf("Strokes failed: %v", err)
	}
	if p.RemoteFetches() != before+1 {
		t.Fatalf("expected a new remote fetch after clearing")
	}
}
