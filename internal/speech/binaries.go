package speech

import (
	"fmt"
	"os/exec"
)

// Binaries names the external programs the engines run. Each may be
// overridden from the environment.
type Binaries struct {
	Espeak     string `env:"HARK_ESPEAK"`
	Say        string `env:"HARK_SAY" envDefault:"say"`
	PowerShell string `env:"HARK_POWERSHELL" envDefault:"powershell"`
	GTTS       string `env:"HARK_GTTS" envDefault:"gtts-cli"`
	FFmpeg     string `env:"HARK_FFMPEG" envDefault:"ffmpeg"`
}

// DefaultBinaries returns the program names used when nothing is overridden.
func DefaultBinaries() Binaries {
	return Binaries{
		Say:        "say",
		PowerShell: "powershell",
		GTTS:       "gtts-cli",
		FFmpeg:     "ffmpeg",
	}
}

// lookPath resolves the first candidate found on PATH.
func lookPath(candidates ...string) (string, error) {
	for _, c := range candidates {
		if c == "" {
			continue
		}
		if p, err := exec.LookPath(c); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: none of %v found in PATH", ErrEngineUnavailable, candidates)
}
