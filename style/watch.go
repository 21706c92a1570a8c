package style

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ReloadDelay is how long Watch waits for a burst of writes to settle.
const ReloadDelay = 100 * time.Millisecond

// Watch reloads the sheet at path into c whenever the file changes, until ctx
// is done. The directory is watched rather than the file so that editors
// replacing the file by rename are seen. notify, if not nil, is called after
// every reload attempt with its outcome; a sheet that fails to load leaves the
// current one in place.
func Watch(ctx context.Context, path string, c *Collection, notify func(error)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	path = filepath.Clean(path)
	if err := w.Add(filepath.Dir(path)); err != nil {
		return err
	}

	timer := time.NewTimer(ReloadDelay)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			timer.Reset(ReloadDelay)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			c.logger.Warn("vectiles: style watcher error", "path", path, "error", err)
		case <-timer.C:
			sheet, err := LoadSheet(path)
			if err != nil {
				c.logger.Warn("vectiles: style reload failed", "path", path, "error", err)
			} else {
				c.Apply(sheet)
			}
			if notify != nil {
				notify(err)
			}
		}
	}
}
