package localfs

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/trialdex/internal/core/ports/driven"
	"github.com/custodia-labs/trialdex/internal/logger"
)

// Ensure Source implements the interface.
var _ driven.RecordWatcher = (*Source)(nil)

// Watch reports the id of every <id>.json file created or written in the
// directory. Removals are ignored.
func (s *Source) Watch(ctx context.Context) (<-chan string, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(s.dir); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", s.dir, err)
	}

	log := logger.Named("localfs")
	ids := make(chan string)

	go func() {
		defer close(ids)
		defer watcher.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
					continue
				}
				id, ok := recordID(event.Name)
				if !ok {
					continue
				}
				select {
				case ids <- id:
				case <-ctx.Done():
					return
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warn("watch %s: %v", s.dir, err)
			}
		}
	}()

	return ids, nil
}

// recordID returns the study id for a record file path.
func recordID(path string) (string, bool) {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") || filepath.Ext(name) != ".json" {
		return "", false
	}
	id := strings.TrimSuffix(name, ".json")
	return id, id != ""
}
