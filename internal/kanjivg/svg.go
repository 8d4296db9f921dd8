package kanjivg

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/verte-zerg/kakite/internal/chars"
	"github.com/verte-zerg/kakite/internal/model"
	"github.com/verte-zerg/kakite/internal/pathend"
)

// ErrNoPaths is returned for documents without any stroke path.
var ErrNoPaths = errors.New("no stroke paths in svg")

const strokeNumbersID = "kvg:StrokeNumbers"

// ParseSVG extracts the ordered stroke paths of a KanjiVG document. Paths
// inside the stroke-number group are skipped. Start points are taken from
// the leading moveto and normalized to the unit square.
func ParseSVG(r io.Reader, character string) (model.CharacterStrokes, error) {
	dec := xml.NewDecoder(r)
	dec.Strict = false
	dec.Entity = xml.HTMLEntity

	var strokes []model.ReferenceStroke
	depth := 0
	skipDepth := 0
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return model.CharacterStrokes{}, fmt.Errorf("failed to parse svg: %w", err)
		}
		switch el := tok.(type) {
		case xml.StartElement:
			depth++
			if skipDepth > 0 {
				continue
			}
			switch el.Name.Local {
			case "g":
				if strings.HasPrefix(attr(el, "id"), strokeNumbersID) {
					skipDepth = depth
				}
			case "path":
				d := strings.TrimSpace(attr(el, "d"))
				if d == "" {
					continue
				}
				x, y := startOf(d)
				strokes = append(strokes, model.ReferenceStroke{
					Path:   d,
					StartX: round3(x / pathend.ReferenceSize),
					StartY: round3(y / pathend.ReferenceSize),
				})
			}
		case xml.EndElement:
			if skipDepth == depth {
				skipDepth = 0
			}
			depth--
		}
	}
	if len(strokes) == 0 {
		return model.CharacterStrokes{}, ErrNoPaths
	}
	return model.CharacterStrokes{
		Character:   character,
		Type:        string(chars.TypeOf(character)),
		StrokeCount: len(strokes),
		Strokes:     strokes,
	}, nil
}

func attr(el xml.StartElement, name string) string {
	for _, a := range el.Attr {
		if a.Name.Local == name && a.Name.Space == "" {
			return a.Value
		}
	}
	return ""
}

// startOf returns the raw coordinates of a leading moveto, or the origin.
func startOf(d string) (float64, float64) {
	tokens, err := pathend.Lex(d)
	if err != nil || len(tokens) < 3 {
		return 0, 0
	}
	if tokens[0].Kind != pathend.TokenCommand || (tokens[0].Command != 'M' && tokens[0].Command != 'm') {
		return 0, 0
	}
	if tokens[1].Kind != pathend.TokenNumber || tokens[2].Kind != pathend.TokenNumber {
		return 0, 0
	}
	return tokens[1].Value, tokens[2].Value
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
