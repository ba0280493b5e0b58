// Package watch feeds workbooks dropped into an inbox directory to a handler.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/ukaji3/schedstruct-go/internal/logging"
)

// Handler processes one workbook path.
type Handler func(ctx context.Context, path string) error

// Watcher debounces file events in one directory.
type Watcher struct {
	dir      string
	debounce time.Duration
	handle   Handler
	log      logging.Logger

	// ScanExisting hands workbooks already in dir to the handler on start.
	ScanExisting bool
}

// New returns a Watcher over dir.
func New(dir string, debounce time.Duration, handle Handler, log logging.Logger) *Watcher {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Watcher{dir: dir, debounce: debounce, handle: handle, log: log.Named("watch")}
}

// IsWorkbook reports whether path names an xlsx workbook, skipping Office
// lock files and hidden files.
func IsWorkbook(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, "~$") || strings.HasPrefix(base, ".") {
		return false
	}
	return strings.EqualFold(filepath.Ext(base), ".xlsx")
}

// Run watches until ctx is done. Handler calls run one at a time; a file
// is handled once its events have been quiet for the debounce interval.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()
	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	w.log.Info("watching inbox", logging.String("dir", w.dir), logging.Duration("debounce", w.debounce))

	ready := make(chan string, 16)
	var mu sync.Mutex
	timers := make(map[string]*time.Timer)
	defer func() {
		mu.Lock()
		for _, t := range timers {
			t.Stop()
		}
		mu.Unlock()
	}()

	schedule := func(path string) {
		mu.Lock()
		defer mu.Unlock()
		if t, ok := timers[path]; ok {
			t.Reset(w.debounce)
			return
		}
		timers[path] = time.AfterFunc(w.debounce, func() {
			mu.Lock()
			delete(timers, path)
			mu.Unlock()
			select {
			case ready <- path:
			case <-ctx.Done():
			}
		})
	}

	if w.ScanExisting {
		existing, err := w.existing()
		if err != nil {
			return err
		}
		for _, path := range existing {
			schedule(path)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			if !IsWorkbook(ev.Name) {
				continue
			}
			w.log.Debug("inbox event", logging.String("path", ev.Name), logging.String("op", ev.Op.String()))
			schedule(ev.Name)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watch error", logging.Err(err))
		case path := <-ready:
			if err := w.handle(ctx, path); err != nil {
				w.log.Error("handle workbook", logging.String("path", path), logging.Err(err))
			}
		}
	}
}

func (w *Watcher) existing() ([]string, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", w.dir, err)
	}
	var paths []string
	for _, e := range entries {
		if e.Type().IsRegular() && IsWorkbook(e.Name()) {
			paths = append(paths, filepath.Join(w.dir, e.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}
