package speech

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// maxUnitRunes bounds a single unit so long run-on sentences still pause
// and stop promptly, and stay under the cloud service's input limit.
const maxUnitRunes = 200

func isBreak(r rune) bool {
	switch r {
	case '.', '?', '!', '\n', '。', '？', '！':
		return true
	}
	return false
}

// Split breaks text into sentence units for lang. Each unit is trimmed and
// ends with the language's terminator. Fragments without any letter or
// digit are dropped, so runs of terminators never yield empty units.
func Split(text, lang string) []string {
	term := Terminator(lang)

	var units []string
	for _, frag := range strings.FieldsFunc(norm.NFC.String(text), isBreak) {
		frag = strings.TrimSpace(frag)
		if !hasWords(frag) {
			continue
		}
		for _, piece := range chunk(frag, maxUnitRunes) {
			units = append(units, piece+term)
		}
	}
	return units
}

func hasWords(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool {
		return unicode.IsLetter(r) || unicode.IsNumber(r)
	}) >= 0
}

// chunk cuts s into pieces of at most limit runes, preferring to cut at the
// last space that fits.
func chunk(s string, limit int) []string {
	var out []string
	for utf8.RuneCountInString(s) > limit {
		runes := []rune(s)
		cut := limit
		for i := limit; i > limit/2; i-- {
			if unicode.IsSpace(runes[i]) {
				cut = i
				break
			}
		}
		out = append(out, strings.TrimSpace(string(runes[:cut])))
		s = strings.TrimSpace(string(runes[cut:]))
	}
	if s != "" {
		out = append(out, s)
	}
	return out
}
