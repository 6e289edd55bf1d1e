package kubeconfig

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"kubemcp/pkg/logging"
)

const (
	// DefaultDebounceInterval is the time to wait after the last change
	// before OnChange is called.
	DefaultDebounceInterval = 500 * time.Millisecond

	// DefaultWatchInterval is the polling interval used when fsnotify is
	// not available.
	DefaultWatchInterval = 10 * time.Second
)

// WatcherConfig holds configuration for the kubeconfig watcher.
type WatcherConfig struct {
	// Path is the kubeconfig file to watch.
	Path string

	// WatchInterval is the fallback polling interval.
	WatchInterval time.Duration

	// Debounce overrides DefaultDebounceInterval.
	Debounce time.Duration

	// OnChange is called once per burst of writes to Path.
	OnChange func()
}

// Watcher monitors a kubeconfig file and calls OnChange when it is rewritten.
// The parent directory is watched rather than the file itself so that
// atomic replace-by-rename (as done by most credential helpers) is seen.
type Watcher struct {
	mu sync.Mutex

	config WatcherConfig

	fsWatcher *fsnotify.Watcher
	stopCh    chan struct{}
	running   bool

	lastModTime time.Time

	debounceTimer *time.Timer
	debounceMu    sync.Mutex
}

// NewWatcher creates a new kubeconfig watcher. It does not start watching.
func NewWatcher(config WatcherConfig) *Watcher {
	if config.WatchInterval == 0 {
		config.WatchInterval = DefaultWatchInterval
	}
	if config.Debounce == 0 {
		config.Debounce = DefaultDebounceInterval
	}
	return &Watcher{config: config}
}

// Start begins watching. Calling Start on a running watcher is a no-op.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}

	w.stopCh = make(chan struct{})
	w.running = true

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logging.Warn("KubeconfigWatcher", "fsnotify not available, falling back to polling: %v", err)
		go w.pollForChanges()
		return nil
	}

	dir := filepath.Dir(w.config.Path)
	if err := watcher.Add(dir); err != nil {
		logging.Warn("KubeconfigWatcher", "Failed to watch directory %s, falling back to polling: %v", dir, err)
		watcher.Close()
		go w.pollForChanges()
		return nil
	}
	w.fsWatcher = watcher

	// Channels are captured under the lock so Stop cannot race with the reader.
	go w.processEvents(watcher.Events, watcher.Errors)

	logging.Info("KubeconfigWatcher", "Started watching %s", w.config.Path)
	return nil
}

func (w *Watcher) processEvents(eventsCh <-chan fsnotify.Event, errorsCh <-chan error) {
	for {
		select {
		case <-w.stopCh:
			return

		case event, ok := <-eventsCh:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-errorsCh:
			if !ok {
				return
			}
			logging.Error("KubeconfigWatcher", err, "fsnotify error")
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != filepath.Clean(w.config.Path) {
		return
	}
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return
	}

	logging.Debug("KubeconfigWatcher", "Kubeconfig changed: %s (%s)", event.Name, event.Op)
	w.triggerDebounced()
}

func (w *Watcher) triggerDebounced() {
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}

	w.debounceTimer = time.AfterFunc(w.config.Debounce, func() {
		w.mu.Lock()
		running := w.running
		callback := w.config.OnChange
		w.mu.Unlock()

		if running && callback != nil {
			callback()
		}
	})
}

func (w *Watcher) pollForChanges() {
	ticker := time.NewTicker(w.config.WatchInterval)
	defer ticker.Stop()

	if info, err := os.Stat(w.config.Path); err == nil {
		w.lastModTime = info.ModTime()
	}

	for {
		select {
		case <-w.stopCh:
			return

		case <-ticker.C:
			info, err := os.Stat(w.config.Path)
			if err != nil {
				continue
			}
			if info.ModTime().After(w.lastModTime) {
				w.lastModTime = info.ModTime()
				logging.Debug("KubeconfigWatcher", "Kubeconfig change detected via polling")
				w.triggerDebounced()
			}
		}
	}
}

// Stop stops the watcher and cancels any pending callback.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return nil
	}

	w.running = false
	close(w.stopCh)

	w.debounceMu.Lock()
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
		w.debounceTimer = nil
	}
	w.debounceMu.Unlock()

	if w.fsWatcher != nil {
		if err := w.fsWatcher.Close(); err != nil {
			logging.Warn("KubeconfigWatcher", "Error closing fsnotify watcher: %v", err)
		}
		w.fsWatcher = nil
	}

	logging.Info("KubeconfigWatcher", "Stopped watching %s", w.config.Path)
	return nil
}

// IsRunning reports whether the watcher is active.
func (w *Watcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}
