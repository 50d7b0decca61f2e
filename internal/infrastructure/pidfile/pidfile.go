package pidfile

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// PIDFile enforces a single running fishtrack daemon
type PIDFile struct {
	path string
}

// New creates a new PIDFile manager
func New(path string) *PIDFile {
	return &PIDFile{path: path}
}

// Acquire writes the current pid. It fails while another live daemon owns the file;
// stale or unreadable files are replaced.
func (p *PIDFile) Acquire() error {
	if pid, err := p.ReadPID(); err == nil {
		if isProcessRunning(pid) {
			return fmt.Errorf("daemon is already running (PID %d)", pid)
		}
	}
	_ = os.Remove(p.path)

	data := fmt.Sprintf("%d\n", os.Getpid())
	if err := os.WriteFile(p.path, []byte(data), 0644); err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}
	return nil
}

// Release removes the PID file
func (p *PIDFile) Release() error {
	if err := os.Remove(p.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove PID file: %w", err)
	}
	return nil
}

// ReadPID returns the pid stored in the file
func (p *PIDFile) ReadPID() (int, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("invalid PID file %s: %w", p.path, err)
	}
	return pid, nil
}

// Running reports the pid of a live daemon, if any
func (p *PIDFile) Running() (int, bool) {
	pid, err := p.ReadPID()
	if err != nil {
		return 0, false
	}
	return pid, isProcessRunning(pid)
}

// KillExisting terminates the daemon owning the file and waits for it to exit
func (p *PIDFile) KillExisting() error {
	pid, running := p.Running()
	if !running {
		return p.Release()
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("failed to find process %d: %w", pid, err)
	}
	if err := process.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("failed to signal process %d: %w", pid, err)
	}
	for i := 0; i < 50; i++ {
		if !isProcessRunning(pid) {
			return p.Release()
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("process %d did not exit", pid)
}

// isProcessRunning sends signal 0, which only checks existence and permissions
func isProcessRunning(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	err = process.Signal(syscall.Signal(0))
	switch err {
	case nil:
		return true
	case syscall.EPERM:
		// exists but owned by someone else
		return true
	default:
		return false
	}
}
