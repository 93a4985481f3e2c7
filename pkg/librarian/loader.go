package librarian

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/simbridge/simbridge/pkg/telemetry"
)

// reloadDelay debounces bursts of file events into one reload.
const reloadDelay = 500 * time.Millisecond

// Loader loads model libraries from disk and can watch them for changes.
type Loader struct {
	log     *telemetry.Logger
	watcher *fsnotify.Watcher
}

// NewLoader creates a library loader.
func NewLoader(log *telemetry.Logger) *Loader {
	return &Loader{log: log.NewComponentLogger("librarian")}
}

// LoadFromPaths loads every library file from the given file or directory
// paths into a librarian. The built-in core library is always included.
func (l *Loader) LoadFromPaths(paths []string) (*Librarian, error) {
	libraries, err := l.readLibraries(paths)
	if err != nil {
		return nil, err
	}

	librarian, err := NewCore()
	if err != nil {
		return nil, err
	}
	for name, lib := range libraries {
		if err := librarian.AddLibrary(name, lib); err != nil {
			return nil, err
		}
	}
	l.log.WithField("libraries", len(libraries)+1).
		WithField("records", librarian.Len()).
		Info("model libraries loaded")
	return librarian, nil
}

func (l *Loader) readLibraries(paths []string) (map[string]*Library, error) {
	libraries := make(map[string]*Library)
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", path, err)
		}
		if !info.IsDir() {
			if err := l.readLibraryFile(path, libraries); err != nil {
				return nil, err
			}
			continue
		}
		err = filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !strings.HasSuffix(p, ".json") {
				return nil
			}
			if err := l.readLibraryFile(p, libraries); err != nil {
				// A malformed library must not poison the rest.
				l.log.WithError(err).WithField("path", p).Warn("skipping library file")
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", path, err)
		}
	}
	return libraries, nil
}

func (l *Loader) readLibraryFile(path string, libraries map[string]*Library) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	lib, err := ReadLibrary(f)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	name := strings.TrimSuffix(filepath.Base(path), ".json")
	libraries[name] = lib
	l.log.WithField("library", name).WithField("records", len(lib.Records)).Debug("library loaded")
	return nil
}

// Watch reloads the librarian whenever a library file under the given paths
// changes. It returns after starting the background watcher; cancel the
// context to stop it.
func (l *Loader) Watch(ctx context.Context, paths []string, librarian *Librarian) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	l.watcher = watcher

	for _, path := range paths {
		if err := watcher.Add(path); err != nil {
			l.log.WithError(err).WithField("path", path).Warn("failed to watch path")
		}
	}

	go l.processEvents(ctx, paths, librarian)
	l.log.WithField("paths", len(paths)).Info("watching model libraries")
	return nil
}

func (l *Loader) processEvents(ctx context.Context, paths []string, librarian *Librarian) {
	var reloadTimer *time.Timer

	for {
		select {
		case <-ctx.Done():
			_ = l.watcher.Close()
			return

		case event, ok := <-l.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove) == 0 ||
				!strings.HasSuffix(event.Name, ".json") {
				continue
			}
			l.log.WithField("file", event.Name).WithField("op", event.Op.String()).
				Debug("library file changed")
			if reloadTimer != nil {
				reloadTimer.Stop()
			}
			reloadTimer = time.AfterFunc(reloadDelay, func() {
				if err := l.reload(paths, librarian); err != nil {
					l.log.WithError(err).Error("failed to reload model libraries")
				}
			})

		case err, ok := <-l.watcher.Errors:
			if !ok {
				return
			}
			l.log.WithError(err).Error("watcher error")
		}
	}
}

func (l *Loader) reload(paths []string, librarian *Librarian) error {
	libraries, err := l.readLibraries(paths)
	if err != nil {
		return err
	}
	core, err := ReadLibrary(bytes.NewReader(modelsCoreJSON))
	if err != nil {
		return err
	}
	libraries[CoreLibraryName] = core
	if err := librarian.Replace(libraries); err != nil {
		return err
	}
	l.log.WithField("records", librarian.Len()).Info("model libraries reloaded")
	return nil
}
