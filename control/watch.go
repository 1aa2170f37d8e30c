// control/watch.go
// Author: momentics <momentics@gmail.com>
//
// File-driven hot reload on top of fsnotify.

package control

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// WatchFile calls fn each time path is written, created or renamed into place.
// The parent directory is watched so atomic replace by editors is seen.
// Watching stops when ctx is done; errors from the watcher go to onErr if set.
func WatchFile(ctx context.Context, path string, fn func(), onErr func(error)) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return fmt.Errorf("watch %s: %w", path, err)
	}
	go func() {
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != abs {
					continue
				}
				if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
					fn()
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				if onErr != nil {
					onErr(err)
				}
			}
		}
	}()
	return nil
}

// WatchConfigFile reloads a YAML file into store on every change and then
// fires the global reload hooks.
func WatchConfigFile(ctx context.Context, path string, store *ConfigStore, onErr func(error)) error {
	reload := func() {
		vals, err := LoadYAMLFile(path)
		if err != nil {
			if onErr != nil {
				onErr(err)
			}
			return
		}
		store.SetConfig(vals)
		TriggerHotReload()
	}
	return WatchFile(ctx, path, reload, onErr)
}
