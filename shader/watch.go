package shader

import (
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Watcher receives file system notifications for shader files so that
// [File] sources skip the stat call on frames where nothing happened.
// A Watcher may be shared by many files and is safe for concurrent use.
type Watcher struct {
	w   *fsnotify.Watcher
	log *slog.Logger

	mu   sync.Mutex
	gens map[string]uint64 // Per watched file, incremented on every event.
	dirs map[string]bool

	closeOnce sync.Once
	closeErr  error
	done      chan struct{}
}

// NewWatcher starts a file system watcher. Close must be called to release it.
// log may be nil.
func NewWatcher(log *slog.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}
	w := &Watcher{
		w:    fw,
		log:  log,
		gens: make(map[string]uint64),
		dirs: make(map[string]bool),
		done: make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

// Add starts watching the file at path. The containing directory is watched
// since many editors save by renaming a temporary file over the original.
func (w *Watcher) Add(path string) error {
	path, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.gens[path]; !ok {
		w.gens[path] = 0
	}
	if w.dirs[dir] {
		return nil
	}
	err = w.w.Add(dir)
	if err != nil {
		return err
	}
	w.dirs[dir] = true
	return nil
}

// Generation returns a counter that is incremented every time an event is
// received for path. ok is false if path is not watched.
func (w *Watcher) Generation(path string) (gen uint64, ok bool) {
	path, err := filepath.Abs(path)
	if err != nil {
		return 0, false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	gen, ok = w.gens[path]
	return gen, ok
}

// Close stops the watcher. Calls after the first return the first call's result.
func (w *Watcher) Close() error {
	w.closeOnce.Do(func() {
		close(w.done)
		w.closeErr = w.w.Close()
	})
	return w.closeErr
}

func (w *Watcher) loop() {
	events := w.w.Events
	errs := w.w.Errors
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			w.bump(event.Name)
		case err, ok := <-errs:
			if !ok {
				return
			}
			w.log.Error("shader watcher", slog.String("err", err.Error()))
		}
	}
}

func (w *Watcher) bump(name string) {
	name, err := filepath.Abs(name)
	if err != nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if gen, ok := w.gens[name]; ok {
		w.gens[name] = gen + 1
	}
}
