package config

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
)

// reloadDebounce coalesces the burst of events a single atomic file
// replace (rename-over) typically produces into one reload.
const reloadDebounce = 150 * time.Millisecond

// Watcher re-reads configPath and invokes onReload whenever it changes on
// disk, and invokes onCredentialChange whenever any file under
// credentialDir (when set) changes — the two are independent reload paths,
// since a credential file drop shouldn't force a config re-parse and vice
// versa.
type Watcher struct {
	configPath         string
	credentialDir      string
	onReload           func(*Config)
	onCredentialChange func()

	fsw *fsnotify.Watcher

	mu        sync.Mutex
	timer     *time.Timer
	credTimer *time.Timer
}

// NewWatcher builds a Watcher. credentialDir may be empty to watch only
// configPath, in which case onCredentialChange is never called.
func NewWatcher(configPath, credentialDir string, onReload func(*Config), onCredentialChange func()) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		configPath:         configPath,
		credentialDir:      credentialDir,
		onReload:           onReload,
		onCredentialChange: onCredentialChange,
		fsw:                fsw,
	}
	if err := fsw.Add(filepath.Dir(configPath)); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	if credentialDir != "" {
		if err := fsw.Add(credentialDir); err != nil {
			_ = fsw.Close()
			return nil, err
		}
	}
	return w, nil
}

// Run processes fsnotify events until stop is closed. Call it in its own
// goroutine.
func (w *Watcher) Run(stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			switch {
			case filepath.Clean(event.Name) == filepath.Clean(w.configPath):
				w.scheduleReload()
			case w.inCredentialDir(event.Name):
				w.scheduleCredentialReload()
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.WithError(err).Warn("config: watcher error")
		}
	}
}

// Close releases the underlying OS watch handles.
func (w *Watcher) Close() error { return w.fsw.Close() }

func (w *Watcher) inCredentialDir(name string) bool {
	if w.credentialDir == "" {
		return false
	}
	dir, err := filepath.Abs(w.credentialDir)
	if err != nil {
		return false
	}
	abs, err := filepath.Abs(name)
	if err != nil {
		return false
	}
	return filepath.Dir(abs) == dir
}

func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(reloadDebounce, w.reload)
}

func (w *Watcher) reload() {
	cfg, err := Load(w.configPath)
	if err != nil {
		log.WithError(err).Warn("config: hot-reload failed, keeping previous configuration")
		return
	}
	w.onReload(cfg)
}

func (w *Watcher) scheduleCredentialReload() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.onCredentialChange == nil {
		return
	}
	if w.credTimer != nil {
		w.credTimer.Stop()
	}
	w.credTimer = time.AfterFunc(reloadDebounce, w.onCredentialChange)
}
