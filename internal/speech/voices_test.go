package speech

import "testing"

func TestParseEspeakVoices(t *testing.T) {
	out := `Pty Language       Age/Gender VoiceName          File                 Other Languages
 5  af              --/M      Afrikaans          gmw/af
 5  en-gb           --/M      English_(Great_Britain) gmw/en            (en 2)
 5  fr-fr           --/M      French_(France)    roa/fr

`
	voices := parseEspeakVoices(out)
	if len(voices) != 3 {
		t.Fatalf("got %d voices, want 3", len(voices))
	}
	if voices[1].ID != "en-gb" || voices[1].Name != "English (Great Britain)" || voices[1].Language != "en-gb" {
		t.Errorf("voice = %+v", voices[1])
	}
}

func TestParseSayVoices(t *testing.T) {
	out := `Alex                en_US    # Most people recognize me by my voice.
Bad News            en_US    # The light you see at the end of the tunnel is the headlamp of a fast approaching train.
Amélie              fr_CA    # Bonjour, je m’appelle Amélie.
garbage line
`
	voices := parseSayVoices(out)
	if len(voices) != 3 {
		t.Fatalf("got %d voices, want 3: %+v", len(voices), voices)
	}
	if voices[1].ID != "Bad News" || voices[1].Language != "en_US" {
		t.Errorf("voice = %+v", voices[1])
	}
	if voices[2].Name != "Amélie" {
		t.Errorf("voice name = %q", voices[2].Name)
	}
}

func TestParseSAPIVoices(t *testing.T) {
	out := "Microsoft David Desktop|en-US\r\nMicrosoft Zira Desktop|en-US\r\n\r\n"
	voices := parseSAPIVoices(out)
	if len(voices) != 2 {
		t.Fatalf("got %d voices, want 2", len(voices))
	}
	if voices[0].ID != "Microsoft David Desktop" || voices[0].Language != "en-US" {
		t.Errorf("voice = %+v", voices[0])
	}
}

func TestVoiceString(t *testing.T) {
	if got := PlaceholderVoice.String(); got != "Default voice" {
		t.Errorf("placeholder = %q", got)
	}
	v := Voice{Name: "Alex", Language: "en_US"}
	if got := v.String(); got != "Alex (en_US)" {
		t.Errorf("voice = %q", got)
	}
}
