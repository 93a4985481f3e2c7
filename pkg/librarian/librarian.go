package librarian

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
)

//go:embed models_core.json
var modelsCoreJSON []byte

// CoreLibraryName is the name of the built-in library.
const CoreLibraryName = "models_core"

// Librarian indexes model records across one or more libraries. Safe for
// concurrent use; Replace swaps the whole index atomically, which the
// directory watcher relies on.
type Librarian struct {
	mu      sync.RWMutex
	records map[string]*ModelRecord
	// libraries by name, for attribution.
	libraries map[string]*Library
}

// New creates an empty librarian.
func New() *Librarian {
	return &Librarian{
		records:   make(map[string]*ModelRecord),
		libraries: make(map[string]*Library),
	}
}

// NewCore creates a librarian preloaded with the built-in core library.
func NewCore() (*Librarian, error) {
	l := New()
	lib, err := ReadLibrary(bytes.NewReader(modelsCoreJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to load built-in library: %w", err)
	}
	if err := l.AddLibrary(CoreLibraryName, lib); err != nil {
		return nil, err
	}
	return l, nil
}

// ReadLibrary parses a library file.
func ReadLibrary(r io.Reader) (*Library, error) {
	var lib Library
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&lib); err != nil {
		return nil, fmt.Errorf("failed to parse library: %w", err)
	}
	for _, rec := range lib.Records {
		if err := rec.Validate(); err != nil {
			return nil, err
		}
	}
	return &lib, nil
}

// AddLibrary indexes a library's records. A record name that already exists
// in another library is an error.
func (l *Librarian) AddLibrary(name string, lib *Library) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, rec := range lib.Records {
		if _, exists := l.records[rec.Name]; exists {
			return fmt.Errorf("duplicate model record %q", rec.Name)
		}
	}
	for _, rec := range lib.Records {
		l.records[rec.Name] = rec
	}
	l.libraries[name] = lib
	return nil
}

// Replace swaps the librarian's entire index for the given libraries.
func (l *Librarian) Replace(libraries map[string]*Library) error {
	records := make(map[string]*ModelRecord)
	for _, lib := range libraries {
		for _, rec := range lib.Records {
			if _, exists := records[rec.Name]; exists {
				return fmt.Errorf("duplicate model record %q", rec.Name)
			}
			records[rec.Name] = rec
		}
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = records
	l.libraries = libraries
	return nil
}

// Get returns the record for a model name.
func (l *Librarian) Get(name string) (*ModelRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	rec, ok := l.records[name]
	if !ok {
		return nil, fmt.Errorf("no record for model %q", name)
	}
	return rec, nil
}

// Search returns the records whose names contain the query, sorted by name.
func (l *Librarian) Search(query string) []*ModelRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []*ModelRecord
	for name, rec := range l.records {
		if strings.Contains(name, query) {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Names returns every indexed model name, sorted.
func (l *Librarian) Names() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	names := make([]string, 0, len(l.records))
	for name := range l.records {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of indexed records.
func (l *Librarian) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}
