package app

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/devicelab-dev/deskflow/pkg/logger"
)

// flowsWatcher reloads trigger registrations when the flow file changes.
// It watches the parent directory rather than the file itself so atomic
// editor saves (write temp, rename over target) keep being observed.
type flowsWatcher struct {
	path     string
	debounce time.Duration
	onChange func()
	log      *slog.Logger

	watcher *fsnotify.Watcher
	stopCh  chan struct{}
	doneCh  chan struct{}

	mu    sync.Mutex
	timer *time.Timer
}

func newFlowsWatcher(path string, debounce time.Duration, onChange func()) (*flowsWatcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	w := &flowsWatcher{
		path:     abs,
		debounce: debounce,
		onChange: onChange,
		log:      logger.WithComponent("flowswatcher"),
		watcher:  fsw,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to watch directory: %w", err)
	}

	go w.loop()
	w.log.Info("watching flow file", slog.String("path", abs))
	return w, nil
}

func (w *flowsWatcher) loop() {
	defer close(w.doneCh)

	for {
		select {
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Error("watch error", slog.Any("error", err))
		}
	}
}

func (w *flowsWatcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != w.path {
		return
	}
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return
	}

	// Editors fire bursts of events per save; only the last one within
	// the debounce window triggers a reload.
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		select {
		case <-w.stopCh:
			return
		default:
		}
		w.log.Info("flow file changed, reloading")
		w.onChange()
	})
}

func (w *flowsWatcher) stop() {
	close(w.stopCh)
	<-w.doneCh
	w.watcher.Close()

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
}
