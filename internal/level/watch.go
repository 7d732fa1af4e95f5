package level

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"multickpt/internal/ckptlog"
)

// Watch supplements spec section 4.7's single-shot Scan with a
// directory-watch mode: rather than the caller re-polling LEVEL_DIR on
// a timer, Watch invokes onChange on every create, write or rename event
// that touches a checkpoint filename. It returns ctx.Err() when ctx is
// cancelled and nil when the watcher's channels close; watcher errors are
// logged and watching continues.
func Watch(ctx context.Context, dir string, logger *slog.Logger, onChange func()) error {
	logger = ckptlog.Default(logger).With("component", "level.watch", "dir", dir)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("level: new watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		return fmt.Errorf("level: watch %s: %w", dir, err)
	}

	pattern := filepath.Join(dir, "Ckpt*-*.fti")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			matched, matchErr := doublestar.Match(pattern, ev.Name)
			if matchErr != nil {
				logger.Warn("pattern match failed", "error", matchErr)
				continue
			}
			if !matched {
				continue
			}
			if ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write) || ev.Has(fsnotify.Rename) {
				onChange()
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", "error", err)
		}
	}
}
