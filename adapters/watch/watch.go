// Package watch reloads regional factors when files in a data directory
// change on disk.
package watch

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"buildcost/adapters/fetch"
	apperrors "buildcost/internal/errors"
	"buildcost/internal/logging"
)

// DefaultDebounce collapses editor save bursts into one reload
const DefaultDebounce = 200 * time.Millisecond

const regionPattern = fetch.RegionsDir + "/*.json"

// Switcher is the part of the pricing engine the watcher drives
type Switcher interface {
	Region() string
	SwitchRegion(ctx context.Context, region string) error
}

// Change classifies a file event relative to the data directory
type Change int

const (
	ChangeNone Change = iota
	ChangeCatalog
	ChangeRegion
)

// Watcher re-applies the active region whenever its factor file changes.
// The catalog is loaded once per process; catalog edits are only logged.
type Watcher struct {
	dir      string
	switcher Switcher
	debounce time.Duration
	logger   *zap.Logger
	fsw      *fsnotify.Watcher

	mu    sync.Mutex
	timer *time.Timer
}

// New watches dataDir and dataDir/regions. A debounce of zero means
// DefaultDebounce.
func New(dataDir string, switcher Switcher, debounce time.Duration, logger *zap.Logger) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, apperrors.Internal("create file watcher", err)
	}

	for _, dir := range []string{dataDir, filepath.Join(dataDir, fetch.RegionsDir)} {
		if err := fsw.Add(dir); err != nil {
			fsw.Close()
			return nil, apperrors.Wrapf(apperrors.TypeConfig, err, "watch %s", dir)
		}
	}

	return &Watcher{
		dir:      dataDir,
		switcher: switcher,
		debounce: debounce,
		logger:   logging.Component(logger, "watch", zap.String("dir", dataDir)),
		fsw:      fsw,
	}, nil
}

// Run handles events until ctx is cancelled, then closes the watcher
func (w *Watcher) Run(ctx context.Context) error {
	defer w.stop()
	w.logger.Info("watching pricing data")

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handle(ctx, event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", zap.Error(err))
		}
	}
}

func (w *Watcher) handle(ctx context.Context, event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}

	change, region := Classify(w.dir, event.Name)
	switch change {
	case ChangeCatalog:
		w.logger.Warn("catalog changed on disk; restart to load it", zap.String("path", event.Name))
	case ChangeRegion:
		if region != w.switcher.Region() {
			w.logger.Debug("ignoring inactive region", zap.String("region", region))
			return
		}
		w.schedule(ctx)
	}
}

func (w *Watcher) schedule(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() { w.reload(ctx) })
}

func (w *Watcher) reload(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	region := w.switcher.Region()
	if err := w.switcher.SwitchRegion(ctx, region); err != nil {
		w.logger.Warn("reload failed; keeping previous factors", zap.String("region", region), zap.Error(err))
		return
	}
	w.logger.Info("reloaded regional factors", zap.String("region", region))
}

func (w *Watcher) stop() {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	w.fsw.Close()
}

// Classify maps a changed path under dir to the pricing document it holds
func Classify(dir, path string) (Change, string) {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return ChangeNone, ""
	}
	rel = filepath.ToSlash(rel)

	if rel == fetch.CatalogPath {
		return ChangeCatalog, ""
	}
	if ok, _ := doublestar.Match(regionPattern, rel); ok {
		return ChangeRegion, strings.TrimSuffix(filepath.Base(rel), ".json")
	}
	return ChangeNone, ""
}
