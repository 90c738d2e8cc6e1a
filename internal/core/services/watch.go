package services

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/custodia-labs/trialdex/internal/core/domain"
	"github.com/custodia-labs/trialdex/internal/core/ports/driven"
	"github.com/custodia-labs/trialdex/internal/core/ports/driving"
	"github.com/custodia-labs/trialdex/internal/logger"
)

// Ensure WatchService implements the interface.
var _ driving.TrialWatcher = (*WatchService)(nil)

// DefaultQuietPeriod is how long the watcher waits for more changes before
// loading a batch.
const DefaultQuietPeriod = 2 * time.Second

// WatchService appends changed records to the search table. Changes that
// arrive within the quiet period are loaded as one batch.
type WatchService struct {
	loader  driving.TrialLoader
	watcher driven.RecordWatcher
	quiet   time.Duration
	log     *logger.Logger
}

// NewWatchService creates a watch service. quiet <= 0 uses DefaultQuietPeriod.
func NewWatchService(loader driving.TrialLoader, watcher driven.RecordWatcher, quiet time.Duration) *WatchService {
	if quiet <= 0 {
		quiet = DefaultQuietPeriod
	}
	return &WatchService{
		loader:  loader,
		watcher: watcher,
		quiet:   quiet,
		log:     logger.Named("watch"),
	}
}

// Watch blocks until ctx is done or the watcher stops. Load failures are
// passed to report and do not stop the watch.
func (s *WatchService) Watch(ctx context.Context, report func(*domain.LoadReport, error)) error {
	ids, err := s.watcher.Watch(ctx)
	if err != nil {
		return err
	}

	pending := make(map[string]struct{})
	timer := time.NewTimer(s.quiet)
	timer.Stop()
	defer timer.Stop()

	flush := func() {
		if len(pending) == 0 {
			return
		}
		batch := make([]string, 0, len(pending))
		for id := range pending {
			batch = append(batch, id)
		}
		sort.Strings(batch)
		clear(pending)

		s.log.Info("appending %d changed records", len(batch))
		rep, err := s.loader.Load(ctx, batch, domain.LoadModeAppend)
		if err != nil {
			s.log.Warn("append failed: %v", err)
		}
		if report != nil {
			report(rep, err)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case id, ok := <-ids:
			if !ok {
				flush()
				return nil
			}
			s.log.Debug("record changed: %s", id)
			pending[id] = struct{}{}
			timer.Reset(s.quiet)
		case <-timer.C:
			flush()
		}
	}
}
