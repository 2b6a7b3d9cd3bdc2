// Package pathresolver implements the Path Resolver (spec §4.5): it
// parses the `/`-separated path grammar and walks a tag tree to find the
// tags, list elements, or array elements a path names, expanding
// wildcards into a multi-target result.
package pathresolver

import (
	"strconv"
	"strings"

	"github.com/blockmend/nbtedit/internal/nbterr"
)

// Segment is one `/`-separated piece of a path: an optional key, and an
// optional index (exact or wildcard).
type Segment struct {
	HasKey   bool
	Key      string
	HasIndex bool
	Wildcard bool
	Index    int
}

// ParsePath tokenizes path into its segments. Leading and empty segments
// (produced by consecutive `/`) are ignored; a quoted key's internal `/`
// and `[` are literal, not separators.
func ParsePath(path string) ([]Segment, nbterr.Result) {
	var segments []Segment
	i := 0
	n := len(path)
	for i < n {
		if path[i] == '/' {
			i++
			continue
		}
		seg, next, res := parseSegment(path, i)
		if !res.IsOK() {
			return nil, res
		}
		segments = append(segments, seg)
		i = next
	}
	return segments, nbterr.Ok()
}

func parseSegment(path string, i int) (Segment, int, nbterr.Result) {
	var seg Segment
	n := len(path)

	if i < n && path[i] == '"' {
		key, next, res := parseQuotedKey(path, i)
		if !res.IsOK() {
			return seg, i, res
		}
		seg.HasKey = true
		seg.Key = key
		i = next
	} else {
		start := i
		for i < n && path[i] != '/' && path[i] != '[' && path[i] != '"' && path[i] != ']' {
			i++
		}
		if i < n && (path[i] == '"' || path[i] == ']') {
			return seg, i, nbterr.New(nbterr.PathSyntax, "unexpected %q at offset %d", path[i], i)
		}
		if i > start {
			seg.HasKey = true
			seg.Key = path[start:i]
		}
	}

	if i < n && path[i] == '[' {
		i++
		start := i
		for i < n && path[i] != ']' {
			i++
		}
		if i >= n {
			return seg, i, nbterr.New(nbterr.PathSyntax, "unterminated index bracket at offset %d", start)
		}
		idxStr := path[start:i]
		i++ // consume ']'

		switch {
		case idxStr == "*":
			seg.HasIndex = true
			seg.Wildcard = true
		case idxStr == "":
			return seg, i, nbterr.New(nbterr.PathSyntax, "empty index at offset %d", start)
		default:
			val, err := strconv.Atoi(idxStr)
			if err != nil || val < 0 {
				return seg, i, nbterr.New(nbterr.PathSyntax, "invalid index %q at offset %d", idxStr, start)
			}
			seg.HasIndex = true
			seg.Index = val
		}
	}

	if !seg.HasKey && !seg.HasIndex {
		return seg, i, nbterr.New(nbterr.PathSyntax, "empty path segment at offset %d", i)
	}
	if i < n && path[i] != '/' {
		return seg, i, nbterr.New(nbterr.PathSyntax, "unexpected character %q at offset %d", path[i], i)
	}
	return seg, i, nbterr.Ok()
}

func parseQuotedKey(path string, i int) (string, int, nbterr.Result) {
	n := len(path)
	start := i
	i++ // consume opening quote
	var b strings.Builder
	for i < n {
		c := path[i]
		if c == '"' {
			return b.String(), i + 1, nbterr.Ok()
		}
		if c == '\\' {
			i++
			if i >= n {
				return "", i, nbterr.New(nbterr.PathSyntax, "unterminated escape at offset %d", start)
			}
			switch path[i] {
			case '"':
				b.WriteByte('"')
			case '\\':
				b.WriteByte('\\')
			case '/':
				b.WriteByte('/')
			case 'n':
				b.WriteByte('\n')
			case 'r':
				b.WriteByte('\r')
			case 't':
				b.WriteByte('\t')
			default:
				return "", i, nbterr.New(nbterr.PathSyntax, "invalid escape \\%c at offset %d", path[i], i)
			}
			i++
			continue
		}
		b.WriteByte(c)
		i++
	}
	return "", i, nbterr.New(nbterr.PathSyntax, "unterminated quoted key starting at offset %d", start)
}
