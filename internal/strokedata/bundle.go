// Package strokedata supplies reference strokes for practice characters.
//
// Data is read from JSON lookup bundles produced from KanjiVG, then from a
// local cache, then from the KanjiVG repository itself.
package strokedata

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/verte-zerg/kakite/internal/chars"
	"github.com/verte-zerg/kakite/internal/kanjivg"
	"github.com/verte-zerg/kakite/internal/model"
)

// Bundle tiers. Kana and common kanji ship with the binary data directory;
// the remaining kanji may be left out and fetched on demand.
const (
	TierKana   = 1
	TierCommon = 2
	TierRest   = 3
)

const indexFile = "index.json"

// Lookup maps five-digit code point keys to stroke data.
type Lookup map[string]model.CharacterStrokes

// Bundle is a tiered set of lookups with an index of every known key.
type Bundle struct {
	Tiers map[int]Lookup
	Index map[string]int
}

// NewBundle returns an empty bundle.
func NewBundle() *Bundle {
	return &Bundle{
		Tiers: map[int]Lookup{TierKana: {}, TierCommon: {}, TierRest: {}},
		Index: map[string]int{},
	}
}

// Build splits parsed KanjiVG characters into tiers.
func Build(c kanjivg.Collection) *Bundle {
	b := NewBundle()
	for key, data := range c {
		r, err := chars.FromCodePointHex(key)
		if err != nil {
			continue
		}
		data.Type = ""
		data.StrokeCount = len(data.Strokes)
		b.add(TierOf(r), key, data)
	}
	return b
}

func (b *Bundle) add(tier int, key string, data model.CharacterStrokes) {
	b.Tiers[tier][key] = data
	b.Index[key] = tier
}

// TierOf assigns a code point to its bundle tier.
func TierOf(r rune) int {
	switch {
	case r >= 0x3040 && r <= 0x309F, r >= 0x30A0 && r <= 0x30FF:
		return TierKana
	case isCommonKanji(r), r >= 0x4E00 && r <= 0x4E00+1000:
		return TierCommon
	default:
		return TierRest
	}
}

// Lookup finds a key in any loaded tier.
func (b *Bundle) Lookup(key string) (model.CharacterStrokes, int, bool) {
	if b == nil {
		return model.CharacterStrokes{}, 0, false
	}
	for _, tier := range []int{TierKana, TierCommon, TierRest} {
		if data, ok := b.Tiers[tier][key]; ok {
			return data, tier, true
		}
	}
	return model.CharacterStrokes{}, 0, false
}

// Count returns the number of characters held in a tier.
func (b *Bundle) Count(tier int) int {
	if b == nil {
		return 0
	}
	return len(b.Tiers[tier])
}

// Load reads a bundle directory. Missing tier files are treated as empty so
// a directory may ship without the large third tier.
func Load(dir string) (*Bundle, error) {
	b := NewBundle()
	for _, tier := range []int{TierKana, TierCommon, TierRest} {
		var lookup Lookup
		found, err := readJSON(filepath.Join(dir, tierFile(tier)), &lookup)
		if err != nil {
			return nil, err
		}
		if found && lookup != nil {
			b.Tiers[tier] = lookup
		}
	}
	var index map[string]int
	found, err := readJSON(filepath.Join(dir, indexFile), &index)
	if err != nil {
		return nil, err
	}
	if found && index != nil {
		b.Index = index
	}
	for tier, lookup := range b.Tiers {
		for key := range lookup {
			if _, ok := b.Index[key]; !ok {
				b.Index[key] = tier
			}
		}
	}
	return b, nil
}

// Write stores the bundle as tier1.json, tier2.json, tier3.json and
// index.json in dir.
func (b *Bundle) Write(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create bundle dir: %w", err)
	}
	for _, tier := range []int{TierKana, TierCommon, TierRest} {
		lookup := b.Tiers[tier]
		if lookup == nil {
			lookup = Lookup{}
		}
		if err := writeJSON(filepath.Join(dir, tierFile(tier)), lookup); err != nil {
			return err
		}
	}
	return writeJSON(filepath.Join(dir, indexFile), b.Index)
}

func tierFile(tier int) string {
	return fmt.Sprintf("tier%d.json", tier)
}

func readJSON(path string, v any) (bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return true, nil
}

func writeJSON(path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(path), err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()
	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to move %s into place: %w", filepath.Base(path), err)
	}
	return nil
}

// commonKanji lists JLPT N5 and N4 kanji kept in the common tier regardless
// of code point.
const commonKanji = "一二三四五六七八九十百千万円年月日時分半何今先後前午週毎間曜" +
	"火水木金土本人子女男父母友私名語外国会社校学生店駅電車道天気雨山川" +
	"北東西南口出入上下中大小長高安新古白黒赤青行来帰食飲見聞読書話言買休立待" +
	"悪暗意医育員院運英映遠屋音歌画回界開階寒漢館顔起究急牛去魚京強教業近銀" +
	"空計兄経建研験元戸公広考光工好合作産使始思止死仕試事持自室質写者借主手" +
	"終習集住重所暑場乗色心親進図世正声夕切説送走届"

var commonSet = func() map[rune]struct{} {
	m := make(map[rune]struct{})
	for _, r := range commonKanji {
		m[r] = struct{}{}
	}
	return m
}()

func isCommonKanji(r rune) bool {
	_, ok := commonSet[r]
	return ok
}
