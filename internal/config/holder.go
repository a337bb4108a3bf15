package config

import (
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/mdouchement/logger"
	"github.com/pkg/errors"
)

// A Holder shares the current settings between components and swaps them on reload.
type Holder struct {
	settings atomic.Pointer[Settings]
}

// NewHolder returns a holder serving s.
func NewHolder(s *Settings) *Holder {
	h := &Holder{}
	h.Set(s)
	return h
}

// Get returns the current settings.
func (h *Holder) Get() *Settings {
	if s := h.settings.Load(); s != nil {
		return s
	}
	return DefaultSettings()
}

// Set replaces the current settings.
func (h *Holder) Set(s *Settings) {
	if s == nil {
		s = DefaultSettings()
	}
	h.settings.Store(s)
}

// Reload parses the settings file and swaps it in. The previous settings are kept on error.
func (h *Holder) Reload(path string, log logger.Logger) error {
	s, err := LoadSettings(path, log)
	if err != nil {
		return err
	}
	h.Set(s)
	return nil
}

// Watch reloads the settings each time the file at path is written or created.
// The returned func stops the watcher.
func (h *Holder) Watch(path string, log logger.Logger) (func() error, error) {
	log = log.WithPrefix("[config]")

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "could not create settings watcher")
	}

	// Editors often replace the file, so the directory is watched.
	filename := filepath.Clean(path)
	if err = watcher.Add(filepath.Dir(filename)); err != nil {
		watcher.Close()
		return nil, errors.Wrap(err, "could not watch settings")
	}

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filename {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}

				if err := h.Reload(filename, log); err != nil {
					log.Errorf("Settings reload failed, keeping previous settings: %s", err)
					continue
				}
				log.Info("Settings reloaded")
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Error(err)
			}
		}
	}()

	return watcher.Close, nil
}
