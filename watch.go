package fsbackend

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/pitabwire/util"
)

// ReloadFunc observes a namespace reloaded by Watch. err is the read error, if any.
type ReloadFunc func(key ResourceKey, err error)

// Watch reloads loaded namespaces whenever their resource file changes on
// disk, including changes made by the backend's own missing-key writes. Only
// namespaces loaded before Watch is called are watched. A file that is gone or
// still empty (truncated mid-write) keeps the messages loaded before. Watch
// blocks until ctx is done.
func (b *Bundle) Watch(ctx context.Context, onReload ReloadFunc) error {
	if b.backend == nil {
		return fmt.Errorf("bundle has no backend")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	files := make(map[string][]ResourceKey)
	dirs := make(map[string]bool)
	for _, key := range b.Loaded() {
		path, err := b.backend.Store().ResolvePath(key.Language, key.Namespace)
		if err != nil {
			return err
		}
		path = filepath.Clean(path)
		files[path] = append(files[path], key)

		// watch the directory so files created or replaced later are seen
		dir := filepath.Dir(path)
		if dirs[dir] {
			continue
		}
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
		dirs[dir] = true
	}

	log := util.Log(ctx).WithField("files", len(files))
	log.Debug("watching translation resources")

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			// a file renamed into place arrives as Create; Rename is the old name leaving
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			keys := files[filepath.Clean(event.Name)]
			if len(keys) == 0 || !hasContent(event.Name) {
				continue
			}
			for _, key := range keys {
				err := b.Load(ctx, key.Language, key.Namespace)
				if err != nil {
					log.WithError(err).WithField("path", event.Name).Warn("could not reload translation resource")
				}
				if onReload != nil {
					onReload(key, err)
				}
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.WithError(err).Warn("resource watcher error")
		}
	}
}

// hasContent reports whether path exists and is not empty.
func hasContent(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Size() > 0
}
