package location

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// FileLocation is a History whose current address is mirrored to a file so
// it survives restarts and can be changed from outside (for example by
// `dishdex open`). External edits are picked up with fsnotify.
type FileLocation struct {
	*History

	path   string
	logger *slog.Logger

	mu          sync.Mutex
	lastWritten string
	watcher     *fsnotify.Watcher
	changes     chan struct{}
	done        chan struct{}
	closeOnce   sync.Once
}

// Compile-time check that FileLocation implements Location.
var _ Location = (*FileLocation)(nil)

// OpenFile loads the address stored at path. When the file is missing or
// unreadable the location starts at fallback.
func OpenFile(path string, fallback url.Values, logger *slog.Logger) (*FileLocation, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create location directory: %w", err)
	}

	initial := Canonical(fallback)
	addrPath := DefaultPath
	raw, err := os.ReadFile(path)
	switch {
	case err == nil && strings.TrimSpace(string(raw)) == "":
	case err == nil:
		if p, v, perr := Parse(string(raw)); perr == nil {
			addrPath, initial = p, v
		} else {
			logger.Warn("ignoring unreadable location file", "path", path, "error", perr)
		}
	case !errors.Is(err, os.ErrNotExist):
		logger.Warn("cannot read location file", "path", path, "error", err)
	}

	f := &FileLocation{
		History: NewHistory(addrPath, initial),
		path:    path,
		logger:  logger,
		changes: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	f.lastWritten = strings.TrimSpace(string(raw))
	return f, nil
}

// Replace implements Location and persists the new address.
func (f *FileLocation) Replace(v url.Values) bool {
	if !f.History.Replace(v) {
		return false
	}
	f.persist()
	return true
}

// Back implements Location and persists the new address.
func (f *FileLocation) Back() bool {
	if !f.History.Back() {
		return false
	}
	f.persist()
	return true
}

// Forward implements Location and persists the new address.
func (f *FileLocation) Forward() bool {
	if !f.History.Forward() {
		return false
	}
	f.persist()
	return true
}

func (f *FileLocation) persist() {
	addr := f.History.String()
	f.mu.Lock()
	f.lastWritten = addr
	f.mu.Unlock()
	if err := WriteFile(f.path, addr); err != nil {
		f.logger.Warn("cannot persist location", "path", f.path, "error", err)
	}
}

// Changes delivers a value after each external change has been applied to
// the history. Multiple changes between reads coalesce.
func (f *FileLocation) Changes() <-chan struct{} {
	return f.changes
}

// Watch starts watching the location file for external edits.
func (f *FileLocation) Watch() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("location watcher: %w", err)
	}
	// Watch the directory: writers replace the file by rename.
	if err := w.Add(filepath.Dir(f.path)); err != nil {
		w.Close()
		return fmt.Errorf("location watcher: %w", err)
	}
	f.mu.Lock()
	f.watcher = w
	f.mu.Unlock()

	go f.watchLoop(w)
	return nil
}

func (f *FileLocation) watchLoop(w *fsnotify.Watcher) {
	target := filepath.Clean(f.path)
	for {
		select {
		case <-f.done:
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			f.reload()
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			f.logger.Warn("location watcher error", "error", err)
		}
	}
}

// reload applies the file content if it differs from what this process last
// wrote.
func (f *FileLocation) reload() {
	raw, err := os.ReadFile(f.path)
	if err != nil {
		f.logger.Warn("cannot read location file", "path", f.path, "error", err)
		return
	}
	addr := strings.TrimSpace(string(raw))

	f.mu.Lock()
	if addr == "" || addr == f.lastWritten {
		f.mu.Unlock()
		return
	}
	f.lastWritten = addr
	f.mu.Unlock()

	_, v, err := Parse(addr)
	if err != nil {
		f.logger.Warn("ignoring malformed external address", "address", addr, "error", err)
		return
	}
	if !f.History.Replace(v) {
		return
	}
	f.logger.Debug("external location change", "address", addr)
	select {
	case f.changes <- struct{}{}:
	default:
	}
}

// Close stops the watcher. It is safe to call more than once.
func (f *FileLocation) Close() error {
	var err error
	f.closeOnce.Do(func() {
		close(f.done)
		f.mu.Lock()
		w := f.watcher
		f.mu.Unlock()
		if w != nil {
			err = w.Close()
		}
	})
	return err
}

// WriteFile atomically replaces the location file with addr.
func WriteFile(path, addr string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create location directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".location-*")
	if err != nil {
		return fmt.Errorf("write location: %w", err)
	}
	if _, err := tmp.WriteString(addr + "\n"); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write location: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write location: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write location: %w", err)
	}
	return nil
}
