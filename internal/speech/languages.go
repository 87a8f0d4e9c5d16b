package speech

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// cloudLanguages are the gTTS language codes offered to the user.
var cloudLanguages = []string{
	"zh-CN", "zh-TW", "en", "ja", "ko", "fr", "de", "es", "it", "pt", "ru",
}

// Language is a cloud voice language.
type Language struct {
	Code string
	Name string
}

// Languages returns the supported cloud languages with English display names.
func Languages() []Language {
	namer := display.English.Tags()
	out := make([]Language, 0, len(cloudLanguages))
	for _, code := range cloudLanguages {
		out = append(out, Language{Code: code, Name: namer.Name(language.MustParse(code))})
	}
	return out
}

// LookupLanguage finds a supported language by code or display name,
// ignoring case.
func LookupLanguage(s string) (Language, error) {
	s = strings.TrimSpace(s)
	for _, l := range Languages() {
		if strings.EqualFold(l.Code, s) || strings.EqualFold(l.Name, s) {
			return l, nil
		}
	}
	return Language{}, ErrUnknownLanguage
}

// Terminator returns the sentence ending appended to each unit for lang.
func Terminator(lang string) string {
	base, _ := language.Make(lang).Base()
	switch base.String() {
	case "zh", "ja":
		return "。"
	}
	return "."
}
