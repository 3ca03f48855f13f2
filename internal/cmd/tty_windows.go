//go:build windows

package cmd

import (
	"fmt"
	"os"
)

// openTTY opens the console for the browser.
func openTTY() (*os.File, error) {
	f, err := os.OpenFile("CONIN$", os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("no console available: %w", err)
	}
	return f, nil
}

// acquireLock is a no-op on Windows.
func acquireLock(string) (int, error) {
	return -1, nil
}

// releaseLock is a no-op on Windows.
func releaseLock(int) {}
