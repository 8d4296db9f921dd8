package pathend

import (
	"errors"
	"fmt"

	"github.com/verte-zerg/kakite/internal/model"
)

// ReferenceSize is the side of the square the reference corpus is authored in.
const ReferenceSize = 109.0

// ErrMalformedPath reports a path description that has no usable endpoint.
var ErrMalformedPath = errors.New("malformed path")

// arity is the number of arguments consumed per repetition of a command.
func arity(cmd byte) int {
	switch upper(cmd) {
	case 'M', 'L', 'T':
		return 2
	case 'H', 'V':
		return 1
	case 'S', 'Q':
		return 4
	case 'C':
		return 6
	case 'A':
		return 7
	default:
		return 0
	}
}

func upper(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - ('a' - 'A')
	}
	return c
}

func relative(c byte) bool {
	return c >= 'a' && c <= 'z'
}

// Endpoint returns the final point of the path in normalized space.
func Endpoint(d string) (model.Point, error) {
	return EndpointScaled(d, ReferenceSize)
}

// EndpointScaled is Endpoint for a corpus authored in a size x size square.
func EndpointScaled(d string, size float64) (model.Point, error) {
	if size <= 0 {
		return model.Point{}, fmt.Errorf("reference size must be > 0")
	}
	x, y, err := RawEndpoint(d)
	if err != nil {
		return model.Point{}, err
	}
	return model.Point{X: x / size, Y: y / size}, nil
}

// RawEndpoint returns the final point of the path in the path's own units.
func RawEndpoint(d string) (float64, float64, error) {
	tokens, err := Lex(d)
	if err != nil {
		return 0, 0, err
	}
	if len(tokens) == 0 {
		return 0, 0, fmt.Errorf("%w: empty path", ErrMalformedPath)
	}
	if tokens[0].Kind != TokenCommand || upper(tokens[0].Command) != 'M' {
		return 0, 0, fmt.Errorf("%w: path must start with a moveto", ErrMalformedPath)
	}

	var curX, curY, startX, startY float64
	i := 0
	for i < len(tokens) {
		cmd := tokens[i].Command
		pos := tokens[i].Pos
		i++
		n := arity(cmd)

		if n == 0 {
			// Z/z: close the subpath; no arguments may follow directly.
			if i < len(tokens) && tokens[i].Kind == TokenNumber {
				return 0, 0, fmt.Errorf("%w: number after close at position %d", ErrMalformedPath, tokens[i].Pos+1)
			}
			curX, curY = startX, startY
			continue
		}

		repeats := 0
		for i < len(tokens) && tokens[i].Kind == TokenNumber {
			if i+n > len(tokens) || !allNumbers(tokens[i:i+n]) {
				return 0, 0, fmt.Errorf("%w: command %q at position %d needs sets of %d numbers", ErrMalformedPath, cmd, pos+1, n)
			}
			args := tokens[i : i+n]
			i += n

			baseX, baseY := 0.0, 0.0
			if relative(cmd) {
				baseX, baseY = curX, curY
			}
			switch upper(cmd) {
			case 'M':
				curX, curY = baseX+args[0].Value, baseY+args[1].Value
				if repeats == 0 {
					startX, startY = curX, curY
				}
			case 'L', 'T':
				curX, curY = baseX+args[0].Value, baseY+args[1].Value
			case 'H':
				curX = baseX + args[0].Value
			case 'V':
				curY = baseY + args[0].Value
			case 'S', 'Q':
				curX, curY = baseX+args[2].Value, baseY+args[3].Value
			case 'C':
				curX, curY = baseX+args[4].Value, baseY+args[5].Value
			case 'A':
				curX, curY = baseX+args[5].Value, baseY+args[6].Value
			}
			repeats++
		}
		if repeats == 0 {
			return 0, 0, fmt.Errorf("%w: command %q at position %d has no arguments", ErrMalformedPath, cmd, pos+1)
		}
	}
	return curX, curY, nil
}

func allNumbers(tokens []Token) bool {
	for _, t := range tokens {
		if t.Kind != TokenNumber {
			return false
		}
	}
	return true
}

// ResolveEnd returns the normalized endpoint of a reference stroke. A
// malformed path degrades to the stroke's own start point; ok reports
// whether the path resolved.
func ResolveEnd(stroke model.ReferenceStroke) (end model.Point, ok bool) {
	p, err := Endpoint(stroke.Path)
	if err != nil {
		return stroke.Start(), false
	}
	return p, true
}
