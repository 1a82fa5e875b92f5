// Copyright 2026 The Gecko Audio Authors
// SPDX-License-Identifier: Apache-2.0

package confsync

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gecko-audio/geckoctl/state"
)

// clientFilePath maps a client name to its config file in dir.
func clientFilePath(dir, clientName string) string {
	return filepath.Join(dir, clientName+".json")
}

// loadClientFile reads and parses one client config file into a sparse
// state document. Absent fields stay nil.
func loadClientFile(path string) (state.ClientState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return state.ClientState{}, fmt.Errorf("reading client config: %w", err)
	}
	var partial state.ClientState
	if err := json.Unmarshal(data, &partial); err != nil {
		return state.ClientState{}, fmt.Errorf("parsing client config %s: %w", filepath.Base(path), err)
	}
	return partial, nil
}

// persistClientFile writes the snapshot as pretty-printed JSON with a
// trailing newline. The write goes to a temp file in the same
// directory and renames into place, so the watcher (ours or anyone
// else's) never observes a torn file.
func persistClientFile(dir, clientName string, snapshot state.ClientState) error {
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding client config: %w", err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, clientName+"-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp config file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("writing client config: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("closing temp config file: %w", err)
	}

	if err := os.Rename(tmpPath, clientFilePath(dir, clientName)); err != nil {
		return fmt.Errorf("renaming client config into place: %w", err)
	}
	success = true
	return nil
}
