// Package location implements the shareable address space of the list view:
// a flat, URL-encoded parameter bag with back/forward history.
package location

import (
	"fmt"
	"net/url"
	"strings"
	"sync"
)

// DefaultPath is the path component of list addresses.
const DefaultPath = "/dishes"

// Location is the navigable parameter store. Implementations must be safe
// for concurrent use.
type Location interface {
	// Values returns a copy of the current parameters.
	Values() url.Values
	// Replace navigates to v. It reports whether the address changed.
	Replace(v url.Values) bool
	// Back and Forward step through history. They report whether they moved.
	Back() bool
	Forward() bool
	// String renders the current address.
	String() string
}

// Canonical returns a copy of v with empty keys and values removed so the
// rendered address stays minimal.
func Canonical(v url.Values) url.Values {
	out := url.Values{}
	for k, vals := range v {
		if k == "" {
			continue
		}
		for _, val := range vals {
			if val = strings.TrimSpace(val); val != "" {
				out.Add(k, val)
			}
		}
	}
	return out
}

// Set writes key=value into v, deleting the key when value is empty.
func Set(v url.Values, key, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		v.Del(key)
		return
	}
	v.Set(key, value)
}

// Format renders path and parameters as "path?k=v". Keys are sorted.
func Format(path string, v url.Values) string {
	if path == "" {
		path = DefaultPath
	}
	encoded := Canonical(v).Encode()
	if encoded == "" {
		return path
	}
	return path + "?" + encoded
}

// Parse accepts a full URL, a "/path?query" address or a bare query string.
func Parse(raw string) (string, url.Values, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultPath, url.Values{}, nil
	}
	if !strings.Contains(raw, "/") && !strings.HasPrefix(raw, "?") {
		raw = "?" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", nil, fmt.Errorf("parse address: %w", err)
	}
	v, err := url.ParseQuery(u.RawQuery)
	if err != nil {
		return "", nil, fmt.Errorf("parse address query: %w", err)
	}
	path := u.Path
	if path == "" {
		path = DefaultPath
	}
	return path, Canonical(v), nil
}

// Equal compares two parameter bags after canonicalisation.
func Equal(a, b url.Values) bool {
	return Canonical(a).Encode() == Canonical(b).Encode()
}

// History is an in-memory Location with browser-style history: Replace
// drops any forward entries.
type History struct {
	mu      sync.Mutex
	path    string
	entries []url.Values
	index   int
}

// Compile-time check that History implements Location.
var _ Location = (*History)(nil)

// NewHistory starts a history at path with one initial entry.
func NewHistory(path string, initial url.Values) *History {
	if path == "" {
		path = DefaultPath
	}
	return &History{path: path, entries: []url.Values{Canonical(initial)}}
}

// Values implements Location.
func (h *History) Values() url.Values {
	h.mu.Lock()
	defer h.mu.Unlock()
	return Canonical(h.entries[h.index])
}

// Replace implements Location.
func (h *History) Replace(v url.Values) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	v = Canonical(v)
	if Equal(v, h.entries[h.index]) {
		return false
	}
	h.entries = append(h.entries[:h.index+1], v)
	h.index = len(h.entries) - 1
	return true
}

// Back implements Location.
func (h *History) Back() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.index == 0 {
		return false
	}
	h.index--
	return true
}

// Forward implements Location.
func (h *History) Forward() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.index >= len(h.entries)-1 {
		return false
	}
	h.index++
	return true
}

// String implements Location.
func (h *History) String() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return Format(h.path, h.entries[h.index])
}

// Len returns the number of history entries.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}
