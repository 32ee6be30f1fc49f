package class

import (
	"context"
	"log"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the registry's configuration whenever its backing file
// changes on disk, until ctx is cancelled. It is a no-op if the registry
// was not loaded from a file.
func (r *Registry) Watch(ctx context.Context) error {
	r.mu.RLock()
	source := r.cfg.Source
	r.mu.RUnlock()
	if source == "" {
		return nil
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(source); err != nil {
		w.Close()
		return err
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
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if err := r.Reload(); err != nil {
					log.Printf("[class] reload of %s failed: %v", source, err)
					continue
				}
				log.Printf("[class] reloaded configuration from %s", source)
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.Printf("[class] watcher error: %v", err)
			}
		}
	}()
	return nil
}
