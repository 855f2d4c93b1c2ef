// Package watcher runs the transcript inbox: directories watched with fsnotify
// whose new, changed and removed files are handed to a Handler after a short
// debounce.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/hyperjump/gijiroku/internal/config"
)

const defaultDebounce = 400 * time.Millisecond

// Handler reacts to inbox files. Errors are logged and never stop the inbox.
type Handler interface {
	FileChanged(ctx context.Context, path string) error
	FileRemoved(ctx context.Context, path string) error
}

// Inbox watches transcript directories.
type Inbox struct {
	roots      []string
	extensions []string
	recursive  bool
	handler    Handler
	debounce   time.Duration
	logger     *zap.Logger

	mu       sync.Mutex
	fsw      *fsnotify.Watcher
	ctx      context.Context
	pending  map[string]pendingFile
	seq      uint64
	started  bool
	done     chan struct{}
	stopOnce sync.Once

	// handling serializes handler calls.
	handling sync.Mutex
}

type pendingFile struct {
	timer *time.Timer
	gen   uint64
}

// Option configures an Inbox.
type Option func(*Inbox)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(w *Inbox) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithDebounce sets how long a file must stay quiet before it is handled.
func WithDebounce(d time.Duration) Option {
	return func(w *Inbox) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// NewInbox creates an inbox over cfg.Directories, keeping files whose extension
// is in cfg.Extensions (all files when empty).
func NewInbox(cfg config.WatchConfig, handler Handler, opts ...Option) *Inbox {
	w := &Inbox{
		roots:      append([]string(nil), cfg.Directories...),
		extensions: append([]string(nil), cfg.Extensions...),
		recursive:  cfg.RecursiveOrDefault(),
		handler:    handler,
		debounce:   defaultDebounce,
		logger:     zap.NewNop(),
		pending:    make(map[string]pendingFile),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start creates missing roots, registers them and begins delivering events.
// It runs until ctx is cancelled or Stop is called.
func (w *Inbox) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return nil
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	w.fsw = fsw
	for _, root := range w.roots {
		if err := w.addRootLocked(root); err != nil {
			_ = fsw.Close()
			w.fsw = nil
			return err
		}
	}
	w.ctx = ctx
	w.started = true
	w.logger.Info("inbox watching",
		zap.Strings("roots", w.roots),
		zap.Strings("extensions", w.extensions),
		zap.Bool("recursive", w.recursive))
	go w.run(ctx, fsw)
	return nil
}

func (w *Inbox) run(ctx context.Context, fsw *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("inbox watch error", zap.Error(err))
		}
	}
}

func (w *Inbox) handleEvent(ev fsnotify.Event) {
	path := ev.Name
	if !w.underRoot(path) {
		return
	}
	w.logger.Debug("inbox event", zap.String("op", ev.Op.String()), zap.String("path", path))
	switch {
	case ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write):
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			w.handleNewDirectory(path)
			return
		}
		if matchExtension(path, w.extensions) {
			w.schedule(path)
		}
	case ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename):
		// A rename reports the old name; the new name arrives as a Create.
		w.cancel(path)
		if matchExtension(path, w.extensions) {
			w.removed(path)
		}
	}
}

// handleNewDirectory watches a directory that appeared under a root and
// handles the files already inside it.
func (w *Inbox) handleNewDirectory(dir string) {
	if !w.recursive {
		return
	}
	w.mu.Lock()
	fsw := w.fsw
	w.mu.Unlock()
	if fsw == nil {
		return
	}
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if err := fsw.Add(path); err != nil {
			w.logger.Warn("inbox failed to watch directory", zap.String("path", path), zap.Error(err))
		}
		return nil
	})
	w.syncDirectory(dir)
}

func (w *Inbox) underRoot(path string) bool {
	w.mu.Lock()
	roots := append([]string(nil), w.roots...)
	w.mu.Unlock()
	clean := filepath.Clean(path)
	for _, root := range roots {
		if inDir(filepath.Clean(root), clean) {
			return true
		}
	}
	return false
}

func inDir(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func matchExtension(path string, extensions []string) bool {
	if len(extensions) == 0 {
		return true
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	for _, e := range extensions {
		if strings.TrimPrefix(strings.ToLower(e), ".") == ext {
			return true
		}
	}
	return false
}

// schedule handles path once it has been quiet for the debounce interval.
func (w *Inbox) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if p, ok := w.pending[path]; ok {
		p.timer.Stop()
	}
	w.seq++
	gen := w.seq
	w.pending[path] = pendingFile{
		gen:   gen,
		timer: time.AfterFunc(w.debounce, func() { w.fire(path, gen) }),
	}
}

// fire handles path for the timer of generation gen. A timer replaced by a
// later event does nothing.
func (w *Inbox) fire(path string, gen uint64) {
	w.mu.Lock()
	if p, ok := w.pending[path]; !ok || p.gen != gen {
		w.mu.Unlock()
		return
	}
	delete(w.pending, path)
	w.mu.Unlock()
	w.changed(path)
}

func (w *Inbox) cancel(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if p, ok := w.pending[path]; ok {
		p.timer.Stop()
		delete(w.pending, path)
	}
}

func (w *Inbox) context() context.Context {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.ctx == nil {
		return context.Background()
	}
	return w.ctx
}

func (w *Inbox) changed(path string) {
	if w.handler == nil {
		return
	}
	w.handling.Lock()
	defer w.handling.Unlock()
	if err := w.handler.FileChanged(w.context(), path); err != nil {
		w.logger.Warn("inbox failed to handle file", zap.String("path", path), zap.Error(err))
	}
}

func (w *Inbox) removed(path string) {
	if w.handler == nil {
		return
	}
	w.handling.Lock()
	defer w.handling.Unlock()
	if err := w.handler.FileRemoved(w.context(), path); err != nil {
		w.logger.Warn("inbox failed to handle removal", zap.String("path", path), zap.Error(err))
	}
}

func (w *Inbox) addRootLocked(root string) error {
	root = filepath.Clean(root)
	if err := os.MkdirAll(root, 0755); err != nil {
		return err
	}
	if !w.recursive {
		return w.fsw.Add(root)
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		return w.fsw.Add(path)
	})
}

// syncDirectory hands every matching file under dir to the handler and returns
// how many it saw. Without recursion only dir itself is read.
func (w *Inbox) syncDirectory(dir string) int {
	n := 0
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != dir && !w.recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if matchExtension(path, w.extensions) {
			n++
			w.changed(path)
		}
		return nil
	})
	return n
}

// SyncExistingFiles handles the files already present in every root. Call it
// after Start to pick up transcripts dropped while the inbox was down.
func (w *Inbox) SyncExistingFiles() int {
	n := 0
	for _, root := range w.Directories() {
		n += w.syncDirectory(filepath.Clean(root))
	}
	return n
}

// Directories returns the watched roots.
func (w *Inbox) Directories() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.roots...)
}

// Stop stops watching and drops pending files.
func (w *Inbox) Stop() {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return
	}
	for path, p := range w.pending {
		p.timer.Stop()
		delete(w.pending, path)
	}
	_ = w.fsw.Close()
	w.fsw = nil
	w.started = false
	w.mu.Unlock()
	w.stopOnce.Do(func() { close(w.done) })
}
