// Copyright (C) 2026 Michael Robbins
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	slogmulti "github.com/samber/slog-multi"

	"github.com/michael-robbins/filemerger/config"
)

// setupRun prepares one command invocation: configuration, logging and a
// context that is cancelled on SIGINT/SIGTERM. The caller defers the returned
// cancel to release the signal watcher. Logs go to stderr because stdout
// carries merge output.
func setupRun() (context.Context, context.CancelFunc, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := setupLogging(cfg); err != nil {
		return nil, nil, nil, err
	}
	doneCtx, doneCancel := handleSignals(context.Background())
	return doneCtx, doneCancel, cfg, nil
}

// setupLogging wires slog. The -v count raises the level over the configured
// floor: one -v for info, two or more for debug. FILEMERGE_DEBUG forces
// debug. --log-file (or log.file) duplicates the stream to a file.
func setupLogging(cfg *config.Config) error {
	level := levelFromName(cfg.Log.Level)
	switch {
	case verbosity >= 2:
		level = slog.LevelDebug
	case verbosity == 1:
		level = slog.LevelInfo
	}
	if os.Getenv("FILEMERGE_DEBUG") != "" {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler = slog.NewTextHandler(os.Stderr, opts)

	target := logFile
	if target == "" {
		target = cfg.Log.File
	}
	if target != "" {
		f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		// The file handle lives for the rest of the process.
		handler = slogmulti.Fanout(handler, slog.NewTextHandler(f, opts))
	}

	slog.SetDefault(slog.New(handler).With(
		slog.String("service", "filemerge"),
	))
	return nil
}

func levelFromName(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}
