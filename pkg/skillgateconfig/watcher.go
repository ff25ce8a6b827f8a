package skillgateconfig

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/skillgate/skillgate/internal/telemetry"
)

const watchDebounce = 100 * time.Millisecond

// Watcher hot-reloads a Corpus from its source skills.yaml/profiles.yaml
// files, swapping the in-memory Corpus atomically under mu so readers never
// observe a half-updated corpus.
type Watcher struct {
	skillsPath, profilesPath string
	logger                   telemetry.Logger

	mu      sync.RWMutex
	current Corpus

	watcher *fsnotify.Watcher
	closed  bool
}

// NewWatcher loads the initial corpus and prepares a Watcher. Call Start to
// begin watching for file changes.
func NewWatcher(skillsPath, profilesPath string, logger telemetry.Logger) (*Watcher, error) {
	if logger == nil {
		logger = telemetry.NoopLogger{}
	}
	corpus, err := Load(skillsPath, profilesPath)
	if err != nil {
		return nil, err
	}
	return &Watcher{
		skillsPath:   skillsPath,
		profilesPath: profilesPath,
		logger:       logger,
		current:      corpus,
	}, nil
}

// Corpus returns the current, atomically-swapped Corpus snapshot.
func (w *Watcher) Corpus() Corpus {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// Start begins watching both config files' containing directories for
// changes, re-validating and swapping the in-memory Corpus on each change.
// A failed reload is logged and the previous Corpus is kept. Start returns
// once the watcher goroutine is running; stop it by cancelling ctx.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return fmt.Errorf("watcher is closed")
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return fmt.Errorf("create file watcher: %w", err)
	}
	w.watcher = fsw
	w.mu.Unlock()

	dirs := map[string]struct{}{
		filepath.Dir(w.skillsPath):   {},
		filepath.Dir(w.profilesPath): {},
	}
	for dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			fsw.Close()
			return fmt.Errorf("watch directory %s: %w", dir, err)
		}
	}

	go w.loop(ctx, fsw)
	return nil
}

func (w *Watcher) loop(ctx context.Context, fsw *fsnotify.Watcher) {
	defer fsw.Close()

	var debounce *time.Timer
	reload := make(chan struct{}, 1)
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if !w.relevant(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(watchDebounce, func() {
				select {
				case reload <- struct{}{}:
				default:
				}
			})
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Error(ctx, "config watcher error", "error", err)
		case <-reload:
			w.reload(ctx)
		}
	}
}

func (w *Watcher) relevant(name string) bool {
	base := filepath.Base(name)
	return base == filepath.Base(w.skillsPath) || base == filepath.Base(w.profilesPath)
}

func (w *Watcher) reload(ctx context.Context) {
	corpus, err := Load(w.skillsPath, w.profilesPath)
	if err != nil {
		w.logger.Error(ctx, "config reload failed, keeping previous corpus", "error", err)
		return
	}
	w.mu.Lock()
	w.current = corpus
	w.mu.Unlock()
	w.logger.Info(ctx, "config reloaded", "skills", len(corpus.Skills), "profiles", len(corpus.Profiles))
}

// Close stops watching and releases resources.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	if w.watcher != nil {
		err := w.watcher.Close()
		w.watcher = nil
		return err
	}
	return nil
}
