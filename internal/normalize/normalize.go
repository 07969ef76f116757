// Package normalize strips volatile markup from fetched HTML so that content
// digests only move when the meaningful text of a page changes.
//
// It is a byte-offset scanner, not an HTML parser: malformed markup is handled
// by truncating at the first region that is never closed.
package normalize

import "strings"

// region is one strippable markup region. Both markers are lowercase ASCII.
type region struct {
	open  string
	close string
}

var regions = []region{
	{open: "<!--", close: "-->"},
	{open: "<script", close: "</script>"},
	{open: "<style", close: "</style>"},
	{open: "<noscript", close: "</noscript>"},
	{open: "<footer", close: "</footer>"},
}

// Normalizer applies an optional content scope and then strips volatile
// regions. The zero value strips the whole page.
type Normalizer struct {
	// ScopeTag, when set, limits hashing to the first <tag>...</tag> slice of
	// the page (for example "main"). Pages missing either marker are used whole.
	ScopeTag string
}

// New returns a Normalizer with the given scope tag ("" for the whole page).
func New(scopeTag string) *Normalizer {
	return &Normalizer{ScopeTag: strings.TrimSpace(scopeTag)}
}

// Normalize implements watcher.Normalizer.
func (n *Normalizer) Normalize(raw string) string {
	return Strip(Scope(raw, n.ScopeTag))
}

// Strip removes comments and script, style, noscript and footer blocks,
// matching markers case-insensitively. At each step the opening marker with
// the lowest offset wins; its closing marker is searched from that offset and
// scanning resumes just past it. An unclosed region drops the rest of the
// input. Input without any marker is returned unchanged.
func Strip(raw string) string {
	folded := foldASCII(raw)
	var out strings.Builder
	pos := 0
	for pos < len(raw) {
		start, r := nextRegion(folded, pos)
		if start < 0 {
			if pos == 0 {
				return raw
			}
			out.WriteString(raw[pos:])
			break
		}
		out.WriteString(raw[pos:start])
		end := strings.Index(folded[start:], r.close)
		if end < 0 {
			break
		}
		pos = start + end + len(r.close)
	}
	return out.String()
}

// nextRegion returns the earliest opening marker at or after pos.
func nextRegion(folded string, pos int) (int, region) {
	best := -1
	var found region
	for _, r := range regions {
		idx := strings.Index(folded[pos:], r.open)
		if idx < 0 {
			continue
		}
		if abs := pos + idx; best < 0 || abs < best {
			best = abs
			found = r
		}
	}
	return best, found
}

// Scope returns the inclusive slice from the first <tag> to the first </tag>
// after it. The input is returned unchanged when tag is empty or either
// marker is missing.
func Scope(raw, tag string) string {
	if tag == "" {
		return raw
	}
	t := foldASCII(tag)
	folded := foldASCII(raw)
	openMarker := "<" + t + ">"
	closeMarker := "</" + t + ">"
	start := strings.Index(folded, openMarker)
	if start < 0 {
		return raw
	}
	end := strings.Index(folded[start:], closeMarker)
	if end < 0 {
		return raw
	}
	return raw[start : start+end+len(closeMarker)]
}

// foldASCII lowercases ASCII letters only, so byte offsets in the result
// line up with the input.
func foldASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if 'A' <= c && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
