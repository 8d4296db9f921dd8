package strokedata

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"github.com/verte-zerg/kakite/internal/chars"
	"github.com/verte-zerg/kakite/internal/kanjivg"
	"github.com/verte-zerg/kakite/internal/model"
)

// ErrUnavailable is returned when no source has strokes for a character.
var ErrUnavailable = errors.New("stroke data unavailable")

const (
	defaultMemorySize = 256
	preloadWorkers    = 4
)

// Cache persists strokes fetched from the remote source.
type Cache interface {
	CachedStrokes(ctx context.Context, key string) (model.CharacterStrokes, bool, error)
	CacheStrokes(ctx context.Context, key string, data model.CharacterStrokes) error
	ClearStrokeCache(ctx context.Context) error
}

// Options configures a Provider. Every source is optional.
type Options struct {
	Bundle        *Bundle
	Cache         Cache
	RemoteBaseURL string
	Offline       bool
	MemorySize    int
	Logger        *slog.Logger
}

// Provider resolves characters from the bundle, the cache and the remote
// repository, in that order.
type Provider struct {
	opts    Options
	logger  *slog.Logger
	mem     *lru.Cache[string, model.CharacterStrokes]
	fetches atomic.Int64
}

// NewProvider creates a provider.
func NewProvider(opts Options) (*Provider, error) {
	size := opts.MemorySize
	if size <= 0 {
		size = defaultMemorySize
	}
	mem, err := lru.New[string, model.CharacterStrokes](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create memory cache: %w", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Provider{opts: opts, logger: logger, mem: mem}, nil
}

// Strokes returns the reference strokes for a single character.
func (p *Provider) Strokes(ctx context.Context, character string) (model.CharacterStrokes, error) {
	key, typ, err := keyFor(character)
	if err != nil {
		return model.CharacterStrokes{}, err
	}
	if data, ok := p.mem.Get(key); ok {
		return data, nil
	}

	if data, _, ok := p.opts.Bundle.Lookup(key); ok {
		return p.remember(key, character, typ, data), nil
	}

	if p.opts.Cache != nil {
		data, ok, err := p.opts.Cache.CachedStrokes(ctx, key)
		if err != nil {
			p.logger.Warn("failed to read stroke cache", "character", character, "error", err)
		} else if ok {
			return p.remember(key, character, typ, data), nil
		}
	}

	if p.opts.Offline {
		return model.CharacterStrokes{}, fmt.Errorf("%s: %w", character, ErrUnavailable)
	}

	p.fetches.Add(1)
	data, err := kanjivg.Fetch(ctx, p.opts.RemoteBaseURL, character)
	if err != nil {
		p.logger.Debug("remote stroke fetch failed", "character", character, "error", err)
		return model.CharacterStrokes{}, fmt.Errorf("%s: %w: %w", character, ErrUnavailable, err)
	}
	if p.opts.Cache != nil {
		stored := data
		stored.Type = ""
		if err := p.opts.Cache.CacheStrokes(ctx, key, stored); err != nil {
			p.logger.Warn("failed to cache stroke data", "character", character, "error", err)
		}
	}
	p.logger.Debug("fetched stroke data", "character", character, "strokes", data.StrokeCount)
	return p.remember(key, character, typ, data), nil
}

func (p *Provider) remember(key, character string, typ chars.Type, data model.CharacterStrokes) model.CharacterStrokes {
	data.Character = character
	data.Type = string(typ)
	data.StrokeCount = len(data.Strokes)
	p.mem.Add(key, data)
	return data
}

// Preload resolves several characters concurrently and reports how many
// are available. Characters without data are skipped.
func (p *Provider) Preload(ctx context.Context, characters []string) (int, error) {
	var available atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(preloadWorkers)
	for _, character := range characters {
		g.Go(func() error {
			_, err := p.Strokes(ctx, character)
			switch {
			case err == nil:
				available.Add(1)
			case errors.Is(err, ErrUnavailable):
			default:
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return int(available.Load()), err
	}
	return int(available.Load()), nil
}

// IsBundled reports whether the character ships in the kana or common tier.
func (p *Provider) IsBundled(character string) bool {
	key, _, err := keyFor(character)
	if err != nil || p.opts.Bundle == nil {
		return false
	}
	tier := p.opts.Bundle.Index[key]
	return tier == TierKana || tier == TierCommon
}

// ClearCache drops remembered and cached remote data.
func (p *Provider) ClearCache(ctx context.Context) error {
	p.mem.Purge()
	if p.opts.Cache == nil {
		return nil
	}
	if err := p.opts.Cache.ClearStrokeCache(ctx); err != nil {
		return fmt.Errorf("failed to clear stroke cache: %w", err)
	}
	return nil
}

// RemoteFetches returns how many remote requests the provider has made.
func (p *Provider) RemoteFetches() int64 {
	return p.fetches.Load()
}

func keyFor(character string) (string, chars.Type, error) {
	typ := chars.TypeOf(character)
	if typ == chars.Unknown {
		return "", typ, fmt.Errorf("%q is not a practiceable character: %w", character, ErrUnavailable)
	}
	r := []rune(character)[0]
	return chars.CodePointHex(r), typ, nil
}
