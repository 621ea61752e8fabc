package process

import (
	"os"
	"syscall"
)

// IsProcessAlive reports whether a process with the given PID exists.
// It sends signal 0, which performs the existence check without delivering
// anything. EPERM still means the process is alive, just owned by someone
// else.
func IsProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}

	// os.FindProcess never fails on Unix; the signal probe does the work.
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	err = proc.Signal(syscall.Signal(0))
	return err == nil || os.IsPermission(err)
}
