package dxf

import (
	"strconv"
	"strings"

	tstrconv "github.com/tdewolff/parse/v2/strconv"
)

// Group codes used by the supported entities.
const (
	codeMarker = 0
	codeName   = 2
	codeLayer  = 8
	codeX      = 10
	codeX2     = 11
	codeY      = 20
	codeY2     = 21
	codeRadius = 40
	codeStart  = 50
	codeEnd    = 51
	codeFlags  = 70
)

const flagClosed = 1

// pair is one group code with its raw value.
type pair struct {
	code  int
	value string
}

// Parse extracts the supported entities from the ENTITIES section of a DXF
// document, in file order. It is best-effort: unparseable numbers read as 0,
// missing codes leave zero fields, and unknown entities are skipped.
func Parse(text string) []Entity {
	pairs := scanPairs(text)

	start := entitiesStart(pairs)
	if start < 0 {
		return nil
	}

	var (
		entities []Entity
		cur      *builder
	)
	flush := func() {
		if cur != nil {
			if e := cur.build(); e != nil {
				entities = append(entities, e)
			}
			cur = nil
		}
	}

	for _, p := range pairs[start:] {
		if p.code != codeMarker {
			if cur != nil {
				cur.apply(p)
			}
			continue
		}

		marker := strings.ToUpper(p.value)
		switch marker {
		case "ENDSEC":
			flush()
			return entities
		case "VERTEX":
			// classic POLYLINE: vertices arrive as their own records
			if cur != nil && cur.kind == "POLYLINE" {
				cur.inVertex = true
				continue
			}
			flush()
		case "SEQEND":
			if cur != nil && cur.kind == "POLYLINE" {
				flush()
				continue
			}
			flush()
		case "LINE", "LWPOLYLINE", "POLYLINE", "CIRCLE", "ARC":
			flush()
			cur = &builder{kind: marker}
		default:
			flush()
			cur = &builder{kind: marker, ignored: true}
		}
	}

	flush()
	return entities
}

// scanPairs reads alternating code/value lines. A code line that is not an
// integer drops that pair; a trailing code without a value is ignored.
func scanPairs(text string) []pair {
	lines := strings.Split(text, "\n")
	pairs := make([]pair, 0, len(lines)/2)
	for i := 0; i+1 < len(lines); i += 2 {
		code, err := strconv.Atoi(strings.TrimSpace(lines[i]))
		if err != nil {
			continue
		}
		pairs = append(pairs, pair{code: code, value: strings.TrimSpace(lines[i+1])})
	}
	return pairs
}

// entitiesStart returns the index just past the ENTITIES section header, or
// -1 when the document has none.
func entitiesStart(pairs []pair) int {
	for i, p := range pairs {
		if p.code == codeName && strings.EqualFold(p.value, "ENTITIES") {
			return i + 1
		}
	}
	return -1
}

// number parses a group value. Anything that is not entirely a number
// reads as 0.
func number(s string) float64 {
	if s == "" {
		return 0
	}
	v, n := tstrconv.ParseFloat([]byte(s))
	if n != len(s) {
		return 0
	}
	return v
}
