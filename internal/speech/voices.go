package speech

import (
	"bufio"
	"regexp"
	"strings"
)

// Voice is an installed system voice.
type Voice struct {
	ID       string // passed to the speech program; empty means its default
	Name     string
	Language string
}

// PlaceholderVoice stands in when no voices can be listed.
var PlaceholderVoice = Voice{Name: "Default voice"}

func (v Voice) String() string {
	if v.Language == "" {
		return v.Name
	}
	return v.Name + " (" + v.Language + ")"
}

// parseEspeakVoices reads `espeak-ng --voices` output:
//
//	Pty Language       Age/Gender VoiceName          File          Other Languages
//	 5  af              --/M      Afrikaans          gmw/af
func parseEspeakVoices(out string) []Voice {
	var voices []Voice
	sc := bufio.NewScanner(strings.NewReader(out))
	first := true
	for sc.Scan() {
		if first {
			first = false
			continue
		}
		fields := strings.Fields(sc.Text())
		if len(fields) < 4 {
			continue
		}
		voices = append(voices, Voice{
			ID:       fields[1],
			Name:     strings.ReplaceAll(fields[3], "_", " "),
			Language: fields[1],
		})
	}
	return voices
}

var sayVoiceRegex = regexp.MustCompile(`^(.+?)\s+([a-z]{2,3}[_-][A-Za-z0-9_-]+)\s+#`)

// parseSayVoices reads `say -v ?` output:
//
//	Alex                en_US    # Most people recognize me by my voice.
func parseSayVoices(out string) []Voice {
	var voices []Voice
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		m := sayVoiceRegex.FindStringSubmatch(sc.Text())
		if m == nil {
			continue
		}
		name := strings.TrimSpace(m[1])
		voices = append(voices, Voice{ID: name, Name: name, Language: m[2]})
	}
	return voices
}

// parseSAPIVoices reads the "Name|Culture" lines printed by sapiListScript.
func parseSAPIVoices(out string) []Voice {
	var voices []Voice
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		name, culture, _ := strings.Cut(strings.TrimSpace(sc.Text()), "|")
		if name == "" {
			continue
		}
		voices = append(voices, Voice{ID: name, Name: name, Language: culture})
	}
	return voices
}
