package phrase

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const reloadDelay = 100 * time.Millisecond

// Watcher reloads a phrase file whenever it changes on disk. Only the most
// recent valid phrase is kept for the reader.
type Watcher struct {
	path    string
	log     *slog.Logger
	watcher *fsnotify.Watcher
	updates chan string
	done    chan struct{}
	stopped chan struct{}
}

// Watch starts watching path. The parent directory is watched so editors
// that replace the file on save are picked up too.
func Watch(path string, log *slog.Logger) (*Watcher, error) {
	if log == nil {
		log = slog.Default()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve phrase path: %w", err)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("watch directory: %w", err)
	}
	w := &Watcher{
		path:    abs,
		log:     log,
		watcher: fw,
		updates: make(chan string, 1),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

// Updates delivers reloaded phrases. It is closed by Close.
func (w *Watcher) Updates() <-chan string {
	return w.updates
}

// Close stops watching.
func (w *Watcher) Close() error {
	close(w.done)
	err := w.watcher.Close()
	<-w.stopped
	return err
}

func (w *Watcher) loop() {
	defer close(w.stopped)
	defer close(w.updates)

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(reloadDelay)
			fire = timer.C
		case <-fire:
			fire = nil
			w.reload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("phrase watcher error", "path", w.path, "err", err)
		}
	}
}

func (w *Watcher) reload() {
	text, err := Load(w.path)
	if err == nil {
		err = Validate(text)
	}
	if err != nil {
		w.log.Warn("ignoring phrase file change", "path", w.path, "err", err)
		return
	}
	select {
	case <-w.updates:
	default:
	}
	w.updates <- text
	w.log.Info("phrase file reloaded", "path", w.path, "len", len(text))
}
