//go:build !windows

package speech

import (
	"os"

	"golang.org/x/sys/unix"
)

func suspendProcess(p *os.Process) error {
	return unix.Kill(p.Pid, unix.SIGSTOP)
}

func resumeProcess(p *os.Process) error {
	return unix.Kill(p.Pid, unix.SIGCONT)
}
