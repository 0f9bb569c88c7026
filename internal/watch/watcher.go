// Package watch provides a file system watcher that re-analyzes spreadsheet
// models as they change on disk.
package watch

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Config holds the watcher configuration.
type Config struct {
	Paths     []string `json:"paths"`
	Recursive bool     `json:"recursive"`
	Debounce  int      `json:"debounceMs"` // Milliseconds to wait before processing
}

// Event represents a file event that was detected and processed.
type Event struct {
	Time      time.Time `json:"time"`
	Path      string    `json:"path"`
	Operation string    `json:"operation"` // "create", "modify"
	Status    string    `json:"status"`    // "processed", "error", "skipped"
	Error     string    `json:"error,omitempty"`
}

// Handler is called with the path of a changed workbook once its debounce
// window has elapsed.
type Handler func(path string) error

// Watcher monitors paths for workbook changes and triggers re-analysis.
type Watcher struct {
	Config  Config
	Logger  *log.Logger
	Handler Handler

	mu       sync.Mutex
	events   []Event
	watcher  *fsnotify.Watcher
	debounce map[string]*time.Timer
}

// workbookExtensions are the spreadsheet file extensions worth re-analyzing.
var workbookExtensions = map[string]bool{
	".xlsx": true, ".xlsm": true,
}

// New creates a new Watcher with the given configuration.
func New(config Config, handler Handler) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("could not create file watcher: %w", err)
	}

	if config.Debounce <= 0 {
		config.Debounce = 500
	}

	return &Watcher{
		Config:   config,
		Logger:   log.New(os.Stderr, "[watch] ", log.LstdFlags),
		Handler:  handler,
		watcher:  fsw,
		debounce: make(map[string]*time.Timer),
	}, nil
}

// Start begins watching the configured paths. It blocks until the context is
// cancelled. A path may be a workbook file or a directory of workbooks.
func (w *Watcher) Start(ctx context.Context) error {
	for _, p := range w.Config.Paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return fmt.Errorf("could not resolve %s: %w", p, err)
		}

		info, err := os.Stat(abs)
		if err != nil {
			return fmt.Errorf("could not watch %s: %w", abs, err)
		}
		if !info.IsDir() {
			// fsnotify watches directories; a single file is watched via
			// its parent with events filtered by name.
			abs = filepath.Dir(abs)
		}

		if w.Config.Recursive && info.IsDir() {
			if err := w.addRecursive(abs); err != nil {
				return err
			}
		} else if err := w.watcher.Add(abs); err != nil {
			return fmt.Errorf("could not watch %s: %w", abs, err)
		}
	}

	w.Logger.Printf("Watching %d path(s)", len(w.Config.Paths))

	for {
		select {
		case <-ctx.Done():
			w.Logger.Println("Stopping watcher")
			return w.watcher.Close()
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.Logger.Printf("Error: %v", err)
		}
	}
}

func (w *Watcher) addRecursive(dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip errors
		}
		if info.IsDir() {
			// Skip hidden directories
			if strings.HasPrefix(filepath.Base(path), ".") && path != dir {
				return filepath.SkipDir
			}
			return w.watcher.Add(path)
		}
		return nil
	})
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	// Only process create and write events
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}

	path := event.Name
	if !workbookExtensions[strings.ToLower(filepath.Ext(path))] {
		return
	}

	// Excel lock files
	if strings.HasPrefix(filepath.Base(path), "~$") {
		return
	}

	// Debounce: editors and Excel fire bursts of writes per save
	w.mu.Lock()
	if timer, ok := w.debounce[path]; ok {
		timer.Stop()
	}
	op := "modify"
	if event.Has(fsnotify.Create) {
		op = "create"
	}
	w.debounce[path] = time.AfterFunc(time.Duration(w.Config.Debounce)*time.Millisecond, func() {
		w.processFile(path, op)
	})
	w.mu.Unlock()
}

func (w *Watcher) processFile(path, operation string) {
	evt := Event{
		Time:      time.Now(),
		Path:      path,
		Operation: operation,
		Status:    "processed",
	}

	if w.Handler != nil {
		if err := w.Handler(path); err != nil {
			evt.Status = "error"
			evt.Error = err.Error()
			w.Logger.Printf("Error analyzing %s: %v", path, err)
		}
	} else {
		evt.Status = "skipped"
	}

	w.mu.Lock()
	w.events = append(w.events, evt)
	w.mu.Unlock()
}

// Events returns all recorded events.
func (w *Watcher) Events() []Event {
	w.mu.Lock()
	defer w.mu.Unlock()
	events := make([]Event, len(w.events))
	copy(events, w.events)
	return events
}
