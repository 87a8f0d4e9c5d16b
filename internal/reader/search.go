package reader

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/sahilm/fuzzy"
)

// searchContext is how many runes of text are kept on each side of a match.
const searchContext = 50

// Match is one hit of a search inside a chapter's text.
type Match struct {
	// Offset is the position of the hit in the text, in runes.
	Offset int

	// Context is the text around the hit on a single line.
	Context string
}

// Search returns every case-insensitive occurrence of query in text, in
// order. When there is none it falls back to a fuzzy match against each
// line of the text, best first.
func Search(text, query string) []Match {
	query = strings.TrimSpace(query)
	if query == "" || text == "" {
		return nil
	}
	if matches := searchExact(text, query); len(matches) > 0 {
		return matches
	}
	return searchFuzzy(text, query)
}

func searchExact(text, query string) []Match {
	orig := []rune(text)
	hay := foldRunes(orig)
	needle := foldRunes([]rune(query))

	var matches []Match
	for i := 0; i+len(needle) <= len(hay); {
		if !hasPrefix(hay[i:], needle) {
			i++
			continue
		}
		matches = append(matches, Match{
			Offset:  i,
			Context: snippet(orig, i, i+len(needle)),
		})
		i += len(needle)
	}
	return matches
}

func searchFuzzy(text, query string) []Match {
	lines := strings.Split(text, "\n")

	// starts[i] is the rune offset of lines[i] in text.
	starts := make([]int, len(lines))
	offset := 0
	for i, line := range lines {
		starts[i] = offset
		offset += utf8.RuneCountInString(line) + 1
	}

	var matches []Match
	for _, fm := range fuzzy.Find(query, lines) {
		if len(fm.MatchedIndexes) == 0 {
			continue
		}
		line := []rune(fm.Str)
		first := utf8.RuneCountInString(fm.Str[:fm.MatchedIndexes[0]])
		last := utf8.RuneCountInString(fm.Str[:fm.MatchedIndexes[len(fm.MatchedIndexes)-1]]) + 1
		matches = append(matches, Match{
			Offset:  starts[fm.Index] + first,
			Context: snippet(line, first, last),
		})
	}
	return matches
}

func snippet(text []rune, from, to int) string {
	start := max(0, from-searchContext)
	end := min(len(text), to+searchContext)
	return collapseSpace(string(text[start:end]))
}

func foldRunes(r []rune) []rune {
	out := make([]rune, len(r))
	for i, c := range r {
		out[i] = unicode.ToLower(c)
	}
	return out
}

func hasPrefix(s, prefix []rune) bool {
	if len(prefix) > len(s) {
		return false
	}
	for i := range prefix {
		if s[i] != prefix[i] {
			return false
		}
	}
	return true
}
