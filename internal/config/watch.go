package config

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const watchDebounce = 100 * time.Millisecond

// fileWatcher follows one file through its parent directory, so saves that
// replace the file by rename keep being observed. Bursts of events collapse
// into a single onChange call after the debounce window.
type fileWatcher struct {
	path     string
	debounce time.Duration
	onChange func()
	onError  func(error)

	fs   *fsnotify.Watcher
	done chan struct{}
	wg   sync.WaitGroup
}

func newFileWatcher(path string, debounce time.Duration, onChange func(), onError func(error)) (*fileWatcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create config watcher: %w", err)
	}
	if err := fs.Add(filepath.Dir(path)); err != nil {
		_ = fs.Close()
		return nil, fmt.Errorf("watch config dir: %w", err)
	}

	w := &fileWatcher{
		path:     filepath.Clean(path),
		debounce: debounce,
		onChange: onChange,
		onError:  onError,
		fs:       fs,
		done:     make(chan struct{}),
	}
	w.wg.Add(1)
	go w.loop()
	return w, nil
}

func (w *fileWatcher) loop() {
	defer w.wg.Done()

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			if w.onError != nil {
				w.onError(err)
			}
		case <-fire:
			fire = nil
			w.onChange()
		}
	}
}

// relevant keeps content events for the watched file. Removal alone is
// ignored; a replacing save is seen as the Create that follows it.
func (w *fileWatcher) relevant(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != w.path {
		return false
	}
	return event.Op&(fsnotify.Write|fsnotify.Create) != 0
}

func (w *fileWatcher) Close() error {
	close(w.done)
	err := w.fs.Close()
	w.wg.Wait()
	return err
}
