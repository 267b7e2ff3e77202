package scheduler

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/MrSnakeDoc/keepmark/internal/identity"
	"github.com/MrSnakeDoc/keepmark/internal/logger"
	"github.com/MrSnakeDoc/keepmark/internal/sources/tokens"
	"github.com/MrSnakeDoc/keepmark/internal/utils"
)

// DefaultWatchDebounce groups the burst of events an editor save produces
const DefaultWatchDebounce = 250 * time.Millisecond

// TokenReloader keeps the token table in sync with the token file
type TokenReloader struct {
	loader        *tokens.Loader
	mapper        *tokens.Mapper
	table         *identity.TokenTable
	logger        logger.Logger
	interval      time.Duration
	debounce      time.Duration
	stopCh        chan struct{}
	manualTrigger chan struct{}
	onReload      func(err error)
}

// NewTokenReloader creates a new token reloader
func NewTokenReloader(
	tokenFile string,
	table *identity.TokenTable,
	log logger.Logger,
	interval time.Duration,
	manualTrigger chan struct{},
) *TokenReloader {
	return &TokenReloader{
		loader:        tokens.NewLoader(tokenFile),
		mapper:        tokens.NewMapper(),
		table:         table,
		logger:        log,
		interval:      interval,
		debounce:      DefaultWatchDebounce,
		stopCh:        make(chan struct{}),
		manualTrigger: manualTrigger,
		onReload:      func(error) {},
	}
}

// OnReload registers a callback run after every reload attempt
func (tr *TokenReloader) OnReload(fn func(err error)) {
	tr.onReload = fn
}

// Start loads the token file and keeps it fresh on an interval, on
// manual trigger and on file change
func (tr *TokenReloader) Start(ctx context.Context) error {
	// Load immediately on start; nobody can authenticate without it
	if err := tr.Reload(); err != nil {
		return fmt.Errorf("initial token load failed: %w", err)
	}

	watcher, err := tr.watch()
	if err != nil {
		tr.logger.Warn("token file watch disabled, relying on interval and manual reload",
			logger.String("file", tr.loader.Path()),
			logger.Error(err))
	}

	// A zero interval leaves reloads to the watcher and manual triggers
	var tick <-chan time.Time
	var ticker *time.Ticker
	if tr.interval > 0 {
		ticker = time.NewTicker(tr.interval)
		tick = ticker.C
	}

	go func() {
		if ticker != nil {
			defer ticker.Stop()
		}
		if watcher != nil {
			defer utils.Close(watcher)
		}

		var (
			events   <-chan fsnotify.Event
			errs     <-chan error
			debounce *time.Timer
			settled  <-chan time.Time
		)
		if watcher != nil {
			events, errs = watcher.Events, watcher.Errors
		}

		for {
			select {
			case <-tick:
				tr.reloadAndLog()
			case <-tr.manualTrigger:
				tr.logger.Info("manual token reload triggered")
				tr.reloadAndLog()
			case ev, ok := <-events:
				if !ok {
					events = nil
					continue
				}
				if !tr.concerns(ev) {
					continue
				}
				if debounce == nil {
					debounce = time.NewTimer(tr.debounce)
				} else {
					debounce.Reset(tr.debounce)
				}
				settled = debounce.C
			case <-settled:
				tr.logger.Info("token file changed",
					logger.String("file", tr.loader.Path()))
				debounce, settled = nil, nil
				tr.reloadAndLog()
			case err, ok := <-errs:
				if !ok {
					errs = nil
					continue
				}
				tr.logger.Warn("token file watcher error", logger.Error(err))
			case <-tr.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the reloader
func (tr *TokenReloader) Stop() {
	close(tr.stopCh)
}

// Reload reads the token file and swaps the table. On error the
// previous table stays in place.
func (tr *TokenReloader) Reload() error {
	err := tr.reload()
	tr.onReload(err)
	return err
}

func (tr *TokenReloader) reload() error {
	config, err := tr.loader.Load()
	if err != nil {
		return fmt.Errorf("failed to load tokens: %w", err)
	}

	table, err := tr.mapper.MapTokens(config)
	if err != nil {
		return fmt.Errorf("failed to map tokens: %w", err)
	}

	tr.table.Replace(table)

	tokenCount, ownerCount := tr.table.Count()
	tr.logger.Info("tokens loaded",
		logger.Int("tokens", tokenCount),
		logger.Int("owners", ownerCount))

	return nil
}

func (tr *TokenReloader) reloadAndLog() {
	if err := tr.Reload(); err != nil {
		tr.logger.Error("failed to reload tokens, keeping previous set",
			logger.Error(err))
	}
}

// watch observes the token file's directory. Watching the directory
// survives editors and config mounts that replace the file.
func (tr *TokenReloader) watch() (*fsnotify.Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(filepath.Dir(tr.loader.Path())); err != nil {
		_ = w.Close()
		return nil, err
	}
	return w, nil
}

func (tr *TokenReloader) concerns(ev fsnotify.Event) bool {
	if filepath.Clean(ev.Name) != filepath.Clean(tr.loader.Path()) {
		return false
	}
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename)
}
