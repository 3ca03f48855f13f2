//go:build !windows

package cmd

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// minBrowseWidth is the narrowest terminal the browser will draw into.
const minBrowseWidth = 40

// openTTY opens the controlling terminal and checks that it is usable.
func openTTY() (*os.File, error) {
	if os.Getenv("TERM") == "dumb" {
		return nil, fmt.Errorf("TERM=dumb is not supported")
	}
	f, err := os.OpenFile("/dev/tty", os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("no TTY available: %w", err)
	}
	ws, err := unix.IoctlGetWinsize(int(f.Fd()), unix.TIOCGWINSZ)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("cannot get terminal size: %w", err)
	}
	if ws.Col < minBrowseWidth {
		f.Close()
		return nil, fmt.Errorf("terminal too narrow (%d columns, need at least %d)", ws.Col, minBrowseWidth)
	}
	return f, nil
}

// acquireLock takes an exclusive advisory lock so only one browser shares
// the location file at a time. The descriptor stays open until releaseLock.
func acquireLock(path string) (int, error) {
	fd, err := unix.Open(path, unix.O_CREAT|unix.O_RDWR|unix.O_CLOEXEC, 0o600)
	if err != nil {
		return -1, fmt.Errorf("cannot open lock file: %w", err)
	}

	if err := unix.Flock(fd, unix.LOCK_EX|unix.LOCK_NB); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("another dishdex browser is running")
	}

	return fd, nil
}

// releaseLock releases the advisory file lock.
func releaseLock(fd int) {
	if fd >= 0 {
		_ = unix.Flock(fd, unix.LOCK_UN)
		unix.Close(fd)
	}
}
