//go:build windows

package speech

import (
	"errors"
	"os"
)

// Windows cannot stop a process mid-utterance; pause takes effect at the
// next sentence boundary instead.
var errSuspendUnsupported = errors.New("suspending a process is not supported on windows")

func suspendProcess(*os.Process) error {
	return errSuspendUnsupported
}

func resumeProcess(*os.Process) error {
	return errSuspendUnsupported
}
