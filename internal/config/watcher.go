package config

import (
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads the config file on change and swaps the snapshot in the
// Store.  A bad edit leaves the previous snapshot in place.
type Watcher struct {
	mu      sync.Mutex
	watcher *fsnotify.Watcher
	done    chan struct{}
	path    string
	store   *Store
	logger  *log.Logger
}

// NewWatcher starts watching the directory containing path.  Watching the
// directory rather than the file survives editors that replace the file on
// save.
func NewWatcher(path string, store *Store, logger *log.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}

	w := &Watcher{
		watcher: fsw,
		done:    make(chan struct{}),
		path:    path,
		store:   store,
		logger:  logger,
	}

	dir := filepath.Dir(path)
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	logger.Printf("watching %s for config changes (hot reload enabled)", path)

	go w.loop(fsw)
	return w, nil
}

// Stop stops the watcher.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.watcher == nil {
		return
	}

	select {
	case <-w.done:
	default:
		close(w.done)
	}

	w.watcher.Close()
	w.watcher = nil
}

func (w *Watcher) loop(fsw *fsnotify.Watcher) {
	// Debounce to avoid reloading on rapid successive writes.
	var debounce *time.Timer
	const debounceDelay = 500 * time.Millisecond

	for {
		select {
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(debounceDelay, w.reload)

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Printf("config watcher error: %v", err)

		case <-w.done:
			return
		}
	}
}

func (w *Watcher) reload() {
	snap, err := Load(w.path)
	if err != nil {
		w.logger.Printf("config reload failed, keeping previous snapshot: %v", err)
		return
	}
	w.store.Swap(snap)
	w.logger.Printf("config reloaded: %d operators, %d whitelisted commands, %d pins",
		len(snap.AuthorizedOperators), len(snap.CommandsWhitelist), len(snap.GPIOPins))
}
