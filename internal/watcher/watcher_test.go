package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hyperjump/gijiroku/internal/config"
)

type recorder struct {
	mu      sync.Mutex
	changed []string
	removed []string
}

func (r *recorder) FileChanged(_ context.Context, path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changed = append(r.changed, path)
	return nil
}

func (r *recorder) FileRemoved(_ context.Context, path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removed = append(r.removed, path)
	return nil
}

func (r *recorder) snapshot() (changed, removed []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.changed...), append([]string(nil), r.removed...)
}

func contains(paths []string, suffix string) bool {
	for _, p := range paths {
		if strings.HasSuffix(p, suffix) {
			return true
		}
	}
	return false
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(25 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func startInbox(t *testing.T, cfg config.WatchConfig, r *recorder) *Inbox {
	t.Helper()
	w := NewInbox(cfg, r, WithDebounce(50*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(w.Stop)
	return w
}

func TestInbox_ChangedAndRemoved(t *testing.T) {
	dir := t.TempDir()
	r := &recorder{}
	startInbox(t, config.WatchConfig{Directories: []string{dir}, Extensions: []string{".txt"}}, r)

	path := filepath.Join(dir, "standup.txt")
	if err := writeFile(path, "Alice: hi"); err != nil {
		t.Fatal(err)
	}
	if err := writeFile(filepath.Join(dir, "notes.json"), "{}"); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool {
		changed, _ := r.snapshot()
		return contains(changed, "standup.txt")
	})

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool {
		_, removed := r.snapshot()
		return contains(removed, "standup.txt")
	})

	changed, _ := r.snapshot()
	if contains(changed, "notes.json") {
		t.Errorf("filtered extension was handled: %v", changed)
	}
}

func TestInbox_Debounce(t *testing.T) {
	dir := t.TempDir()
	r := &recorder{}
	w := NewInbox(config.WatchConfig{Directories: []string{dir}}, r, WithDebounce(300*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	path := filepath.Join(dir, "long.txt")
	for i := 0; i < 5; i++ {
		if err := writeFile(path, strings.Repeat("x", i+1)); err != nil {
			t.Fatal(err)
		}
		time.Sleep(20 * time.Millisecond)
	}
	waitFor(t, func() bool {
		changed, _ := r.snapshot()
		return len(changed) > 0
	})
	time.Sleep(400 * time.Millisecond)
	if changed, _ := r.snapshot(); len(changed) != 1 {
		t.Errorf("expected one debounced callback, got %v", changed)
	}
}

func TestInbox_NewDirectory(t *testing.T) {
	dir := t.TempDir()
	r := &recorder{}
	startInbox(t, config.WatchConfig{Directories: []string{dir}, Extensions: []string{".txt", ".vtt"}}, r)

	nested := filepath.Join(dir, "level1", "level2")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}
	if err := writeFile(filepath.Join(nested, "deep.vtt"), "WEBVTT"); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool {
		changed, _ := r.snapshot()
		return contains(changed, "deep.vtt")
	})
}

func TestInbox_SyncExistingFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "sub"), 0755); err != nil {
		t.Fatal(err)
	}
	for name, body := range map[string]string{"a.txt": "a", "sub/b.txt": "b", "ignore.xyz": "x"} {
		if err := writeFile(filepath.Join(dir, name), body); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		name      string
		recursive bool
		want      int
	}{
		{"recursive", true, 2},
		{"top level only", false, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &recorder{}
			recursive := tt.recursive
			w := NewInbox(config.WatchConfig{Directories: []string{dir}, Extensions: []string{"txt"}, Recursive: &recursive}, r)
			if n := w.SyncExistingFiles(); n != tt.want {
				t.Errorf("SyncExistingFiles = %d, want %d", n, tt.want)
			}
			if changed, _ := r.snapshot(); len(changed) != tt.want {
				t.Errorf("changed = %v", changed)
			}
		})
	}
}

func TestInbox_StartCreatesMissingRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "inbox", "meetings")
	w := NewInbox(config.WatchConfig{Directories: []string{root}}, &recorder{})
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()
	if _, err := os.Stat(root); err != nil {
		t.Errorf("root should exist after Start: %v", err)
	}
	if dirs := w.Directories(); len(dirs) != 1 || dirs[0] != root {
		t.Errorf("Directories() = %v", dirs)
	}
}

func TestMatchExtension(t *testing.T) {
	tests := []struct {
		path       string
		extensions []string
		want       bool
	}{
		{"/a/b.txt", []string{".txt"}, true},
		{"/a/b.TXT", []string{"txt"}, true},
		{"/a/b.md", []string{".txt"}, false},
		{"/a/b", nil, true},
	}
	for _, tt := range tests {
		if got := matchExtension(tt.path, tt.extensions); got != tt.want {
			t.Errorf("matchExtension(%q, %v) = %v, want %v", tt.path, tt.extensions, got, tt.want)
		}
	}
}

func TestInDir(t *testing.T) {
	tests := []struct {
		dir, path string
		want      bool
	}{
		{"/tmp/a", "/tmp/a", true},
		{"/tmp/a", "/tmp/a/b.txt", true},
		{"/tmp/a", "/tmp/b", false},
		{"/tmp/a", "/tmp/a/../b", false},
	}
	for _, tt := range tests {
		if got := inDir(tt.dir, tt.path); got != tt.want {
			t.Errorf("inDir(%q, %q) = %v, want %v", tt.dir, tt.path, got, tt.want)
		}
	}
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0600)
}

func TestInbox_StaleTimerKeepsNewerEntry(t *testing.T) {
	r := &recorder{}
	w := NewInbox(config.WatchConfig{}, r, WithDebounce(time.Hour))
	path := filepath.Join(t.TempDir(), "standup.txt")

	w.schedule(path)
	w.mu.Lock()
	first := w.pending[path].gen
	w.mu.Unlock()
	w.schedule(path)

	// The first timer fires after the second event was scheduled.
	w.fire(path, first)
	w.mu.Lock()
	p, ok := w.pending[path]
	w.mu.Unlock()
	if !ok || p.gen == first {
		t.Fatalf("pending entry = %+v, %v; want the newer timer", p, ok)
	}
	if changed, _ := r.snapshot(); len(changed) != 0 {
		t.Errorf("stale timer handled the file: %v", changed)
	}

	w.cancel(path)
	w.mu.Lock()
	n := len(w.pending)
	w.mu.Unlock()
	if n != 0 {
		t.Errorf("pending after cancel = %d", n)
	}
	if p.timer.Stop() {
		t.Error("cancel left the newer timer running")
	}
}

// overlapHandler records the largest number of concurrent FileChanged calls.
type overlapHandler struct {
	mu      sync.Mutex
	active  int
	max     int
	calls   int
	release chan struct{}
}

func (h *overlapHandler) FileChanged(context.Context, string) error {
	h.mu.Lock()
	h.active++
	h.calls++
	if h.active > h.max {
		h.max = h.active
	}
	h.mu.Unlock()
	<-h.release
	h.mu.Lock()
	h.active--
	h.mu.Unlock()
	return nil
}

func (h *overlapHandler) FileRemoved(context.Context, string) error { return nil }

func TestInbox_HandlerCallsDoNotOverlap(t *testing.T) {
	h := &overlapHandler{release: make(chan struct{})}
	w := NewInbox(config.WatchConfig{}, h, WithDebounce(10*time.Millisecond))
	path := filepath.Join(t.TempDir(), "standup.txt")

	w.schedule(path)
	waitFor(t, func() bool {
		h.mu.Lock()
		defer h.mu.Unlock()
		return h.calls == 1
	})
	// A new event while the first call is still running.
	w.schedule(path)
	time.Sleep(100 * time.Millisecond)
	close(h.release)
	waitFor(t, func() bool {
		h.mu.Lock()
		defer h.mu.Unlock()
		return h.calls == 2 && h.active == 0
	})
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.max != 1 {
		t.Errorf("max concurrent handler calls = %d, want 1", h.max)
	}
}
