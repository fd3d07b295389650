package main

import (
	"path/filepath"
	"runtime/debug"
	"sync"
	"time"

	"AutoPlay/pkg/config"

	"github.com/fsnotify/fsnotify"
)

// ConfigWatcher monitors the config file and reloads it when an editor or
// another process rewrites it
type ConfigWatcher struct {
	path     string
	onReload func(config.Config)
	debounce time.Duration

	watcher *fsnotify.Watcher
	stopCh  chan struct{}
	doneCh  chan struct{}
	mu      sync.Mutex
}

// NewConfigWatcher creates a watcher for path. onReload receives every
// successfully loaded and validated config.
func NewConfigWatcher(path string, onReload func(config.Config)) *ConfigWatcher {
	return &ConfigWatcher{
		path:     path,
		onReload: onReload,
		debounce: 300 * time.Millisecond,
	}
}

// Start begins watching the directory holding the config file
func (w *ConfigWatcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.watcher != nil {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	// 监听目录而不是文件：编辑器通常以 rename 方式原子写入
	dir := filepath.Dir(w.path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return err
	}
	w.watcher = watcher
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})

	LogInfo("config_watcher").Str("path", w.path).Msg("Started watching config file")

	go w.watch(watcher, w.stopCh, w.doneCh)
	return nil
}

// Stop stops watching
func (w *ConfigWatcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.watcher == nil {
		return
	}
	close(w.stopCh)
	w.watcher.Close()
	<-w.doneCh
	w.watcher = nil
	LogInfo("config_watcher").Msg("Stopped watching config file")
}

// watch is the main watch loop
func (w *ConfigWatcher) watch(watcher *fsnotify.Watcher, stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	var debounceTimer *time.Timer
	target := filepath.Clean(w.path)

	for {
		select {
		case <-stopCh:
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Rename) {
				continue
			}

			// Debounce: reset timer on each event
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(w.debounce, w.reload)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			LogError("config_watcher").Err(err).Msg("Watcher error")
		}
	}
}

func (w *ConfigWatcher) reload() {
	defer func() {
		if r := recover(); r != nil {
			LogPanic("config_watcher", r, string(debug.Stack()))
		}
	}()

	cfg, err := config.Load(w.path)
	if err != nil {
		// 保留旧配置
		LogWarn("config_watcher").Err(err).Str("path", w.path).Msg("Config reload rejected")
		return
	}
	LogInfo("config_watcher").Str("path", w.path).Msg("Config reloaded")
	w.onReload(cfg)
}
