// Copyright 2026 The Gecko Audio Authors
// SPDX-License-Identifier: Apache-2.0

package confsync

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/gecko-audio/geckoctl/lib/clock"
	"github.com/gecko-audio/geckoctl/state"
)

// Config configures the synchronization engine.
type Config struct {
	// Dir is the config directory, one JSON file per client name.
	Dir string

	// QuietPeriod is how long a file must stay untouched before its
	// change is applied.
	QuietPeriod time.Duration
}

// Engine keeps the config directory and the session registry
// converged in both directions: file edits merge onto the matching
// connected session, and session state changes persist back to the
// client's file.
type Engine struct {
	config   Config
	registry *state.Registry
	clock    clock.Clock
	logger   *slog.Logger

	watcher *fsnotify.Watcher
}

// NewEngine creates an Engine. Call Watch, then Run.
func NewEngine(config Config, registry *state.Registry, clk clock.Clock, logger *slog.Logger) *Engine {
	return &Engine{
		config:   config,
		registry: registry,
		clock:    clk,
		logger:   logger,
	}
}

// Watch creates the config directory if needed and starts watching it.
// Split from Run so setup failure surfaces synchronously and events
// arriving between Watch and Run are not lost.
func (e *Engine) Watch() error {
	if err := os.MkdirAll(e.config.Dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating config watcher: %w", err)
	}
	if err := watcher.Add(e.config.Dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watching %s: %w", e.config.Dir, err)
	}
	e.watcher = watcher
	return nil
}

// Run drives the engine until ctx is cancelled. Individual file or
// merge failures are logged and dropped; only cancellation ends the
// loop.
func (e *Engine) Run(ctx context.Context) error {
	if e.watcher == nil {
		return errors.New("confsync: Run called before Watch")
	}
	defer e.watcher.Close()

	debouncer := newDebouncer(e.clock, e.config.QuietPeriod)
	defer debouncer.close()

	subscription := e.registry.Subscribe()
	defer subscription.Close()

	// Apply whatever is already on disk before reacting to anything
	// live. Sessions connected before the engine starts get their
	// stored config immediately. A failed scan drops the startup pass
	// with a log line; the watch loop still runs.
	entries, err := os.ReadDir(e.config.Dir)
	if err != nil {
		e.logger.Warn("scanning config directory", "error", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		e.applyFile(filepath.Join(e.config.Dir, entry.Name()))
	}

	e.logger.Info("config sync running", "dir", e.config.Dir, "quiet_period", e.config.QuietPeriod)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-e.watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			if filepath.Ext(event.Name) != ".json" {
				continue
			}
			debouncer.observe(event.Name)

		case err, ok := <-e.watcher.Errors:
			if !ok {
				return nil
			}
			e.logger.Warn("config watcher error", "error", err)

		case path := <-debouncer.events():
			e.applyFile(path)

		case change, ok := <-subscription.Events():
			if !ok {
				return nil
			}
			e.handleChange(change)
		}
	}
}

// applyFile merges one config file onto its connected session. Every
// failure mode (vanished file, parse error, unnamed document, no
// session online under that name) drops the change with a log line.
//
// Persisting a file from handleChange re-enters here via the watcher.
// That merge writes values the registry already holds, so it publishes
// nothing and the echo stops after one round.
func (e *Engine) applyFile(path string) {
	info, err := os.Stat(path)
	if err != nil {
		e.logger.Debug("config file vanished before apply", "file", filepath.Base(path))
		return
	}
	if info.IsDir() {
		return
	}

	partial, err := loadClientFile(path)
	if err != nil {
		e.logger.Warn("dropping unreadable config file", "file", filepath.Base(path), "error", err)
		return
	}
	if partial.ClientName == nil {
		e.logger.Warn("dropping config file without client_name", "file", filepath.Base(path))
		return
	}

	id, ok := e.registry.SessionByName(*partial.ClientName)
	if !ok {
		// Client offline; it will be provisioned from this file when
		// it next says hello.
		e.logger.Debug("no connected session for config file", "client", *partial.ClientName)
		return
	}

	if err := e.registry.Merge(id, partial); err != nil {
		e.logger.Warn("merging config file", "client", *partial.ClientName, "error", err)
		return
	}
	e.logger.Info("applied config file", "client", *partial.ClientName)
}

// handleChange reacts to one registry event. A client identifying or
// re-identifying itself gets provisioned from its stored file; any
// other field change persists the session's snapshot back to disk.
// Added and Removed need nothing: an empty session has no state worth
// writing, and removal deliberately leaves the file for the client's
// next connection.
func (e *Engine) handleChange(change state.Change) {
	switch change.Kind {
	case state.KindIdentified:
		e.provision(change.Session)
	case state.KindFieldChanged:
		if change.Field == state.FieldClientName {
			e.provision(change.Session)
			return
		}
		e.persist(change.Session)
	}
}

// provision merges the stored config file, if any, onto a session that
// just reported its name.
func (e *Engine) provision(id state.SessionID) {
	snapshot, err := e.registry.State(id)
	if err != nil {
		return
	}
	if snapshot.ClientName == nil {
		return
	}

	partial, err := loadClientFile(clientFilePath(e.config.Dir, *snapshot.ClientName))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			e.logger.Debug("no stored config for client", "client", *snapshot.ClientName)
		} else {
			e.logger.Warn("loading stored config", "client", *snapshot.ClientName, "error", err)
		}
		return
	}

	if err := e.registry.Merge(id, partial); err != nil {
		e.logger.Warn("provisioning from stored config", "client", *snapshot.ClientName, "error", err)
		return
	}
	e.logger.Info("provisioned client from stored config", "client", *snapshot.ClientName)
}

// persist writes the session's current snapshot to the file named by
// its current client name. Sessions that have not yet reported a name
// have nowhere to persist to and are dropped.
func (e *Engine) persist(id state.SessionID) {
	snapshot, err := e.registry.State(id)
	if err != nil {
		return
	}
	if snapshot.ClientName == nil {
		e.logger.Debug("dropping persist for unnamed session", "session", string(id))
		return
	}

	if err := persistClientFile(e.config.Dir, *snapshot.ClientName, snapshot); err != nil {
		e.logger.Warn("persisting client config", "client", *snapshot.ClientName, "error", err)
	}
}
