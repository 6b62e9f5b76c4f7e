package config

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/windoze95/saltybytes-voice/internal/logger"
	"go.uber.org/zap"
)

const promptReloadDebounce = 200 * time.Millisecond

// PromptWatcher reloads a PromptSet whenever its YAML file changes.
type PromptWatcher struct {
	watcher  *fsnotify.Watcher
	path     string
	set      *PromptSet
	debounce time.Duration

	timerMu sync.Mutex
	timer   *time.Timer

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// WatchPrompts starts watching path and replaces the prompts held by set
// after each change. The parent directory is watched rather than the file
// so that editors which save via rename are picked up.
func WatchPrompts(path string, set *PromptSet) (*PromptWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(filepath.Dir(path)); err != nil {
		w.Close()
		return nil, err
	}

	pw := &PromptWatcher{
		watcher:  w,
		path:     filepath.Clean(path),
		set:      set,
		debounce: promptReloadDebounce,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go pw.loop()
	return pw, nil
}

// Stop ends the watch loop. It is safe to call more than once.
func (pw *PromptWatcher) Stop() {
	pw.stopOnce.Do(func() {
		close(pw.stop)
		pw.watcher.Close()
		<-pw.done
	})
}

func (pw *PromptWatcher) loop() {
	defer close(pw.done)
	log := logger.Get()

	for {
		select {
		case <-pw.stop:
			return
		case event, ok := <-pw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != pw.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			pw.timerMu.Lock()
			if pw.timer != nil {
				pw.timer.Stop()
			}
			pw.timer = time.AfterFunc(pw.debounce, pw.reload)
			pw.timerMu.Unlock()
		case err, ok := <-pw.watcher.Errors:
			if !ok {
				return
			}
			log.Warn("prompt watcher error", zap.Error(err))
		}
	}
}

func (pw *PromptWatcher) reload() {
	prompts, err := LoadPrompts(pw.path)
	if err != nil {
		logger.Get().Warn("prompt reload failed, keeping previous prompts",
			zap.String("path", pw.path),
			zap.Error(err),
		)
		return
	}
	pw.set.Replace(prompts)
	logger.Get().Info("prompts reloaded", zap.String("path", pw.path))
}
