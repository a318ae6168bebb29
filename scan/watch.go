package scan

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

var ErrAlreadyWatching = errors.New("already watching")

// Watcher calls a handler whenever a file with one of the engine's
// extensions is written inside the watched directories.
type Watcher struct {
	watcher    *fsnotify.Watcher
	logger     *zap.Logger
	extensions []string
	handler    func(path string)

	// Debounce is how long to wait after a write before calling the
	// handler, so bursts of writes are reported once.
	Debounce time.Duration

	mu       sync.Mutex
	pending  map[string]*time.Timer
	watching bool
	closed   bool
	running  sync.WaitGroup // handler calls in flight
	done     chan struct{}
}

func NewWatcher(logger *zap.Logger, extensions []string, handler func(path string)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{
		watcher:    fw,
		logger:     logger,
		extensions: extensions,
		handler:    handler,
		Debounce:   100 * time.Millisecond,
		pending:    make(map[string]*time.Timer),
		done:       make(chan struct{}),
	}, nil
}

// Add watches dirs and all of their subdirectories.
func (w *Watcher) Add(dirs ...string) error {
	for _, dir := range dirs {
		err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() {
				return w.watcher.Add(path)
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("error adding directory to watcher: %w", err)
		}
	}
	return nil
}

// Start runs the event loop until ctx is done or Close is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.watching {
		return ErrAlreadyWatching
	}
	w.watching = true
	go w.watchLoop(ctx)
	return nil
}

// Done is closed when the event loop exits.
func (w *Watcher) Done() <-chan struct{} {
	return w.done
}

// Close stops the watcher. Once it returns the handler is not called again.
func (w *Watcher) Close() error {
	w.mu.Lock()
	w.closed = true
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
	w.mu.Unlock()

	w.running.Wait()
	return w.watcher.Close()
}

func (w *Watcher) watchLoop(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleFileEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("Watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handleFileEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return
	}
	if !hasDesiredExtension(w.extensions, event.Name) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}
	if t, ok := w.pending[event.Name]; ok {
		t.Reset(w.Debounce)
		return
	}
	path := event.Name
	w.pending[path] = time.AfterFunc(w.Debounce, func() {
		w.mu.Lock()
		delete(w.pending, path)
		if w.closed {
			w.mu.Unlock()
			return
		}
		w.running.Add(1)
		w.mu.Unlock()
		defer w.running.Done()

		w.logger.Debug("File changed", zap.String("file", path))
		w.handler(path)
	})
}
