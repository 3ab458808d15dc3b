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
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/michael-robbins/filemerger/config"
	"github.com/michael-robbins/filemerger/internal/linesource"
	"github.com/michael-robbins/filemerger/internal/merge"
	"github.com/michael-robbins/filemerger/internal/mergekey"
	"github.com/michael-robbins/filemerger/internal/rangecache"
)

func init() {
	var (
		delimiter     string
		keyIndex      int
		keyTypeName   string
		globs         []string
		cacheFile     string
		keyStart      string
		keyEnd        string
		output        string
		skipMalformed bool
		verifySizes   bool
	)

	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Merge pre-sorted delimited files into one ordered stream",
		RunE: func(cmd *cobra.Command, _ []string) error {
			doneCtx, doneCancel, cfg, err := setupRun()
			if err != nil {
				return err
			}
			defer doneCancel()

			opts := mergeOptions{
				delimiter:     delimiter,
				keyIndex:      keyIndex,
				keyType:       keyTypeName,
				globs:         globs,
				cacheFile:     cacheFile,
				output:        output,
				skipMalformed: skipMalformed,
				verifySizes:   verifySizes,
			}
			if cmd.Flags().Changed("key-start") {
				opts.keyStart = &keyStart
			}
			if cmd.Flags().Changed("key-end") {
				opts.keyEnd = &keyEnd
			}
			return runMerge(doneCtx, cfg, opts)
		},
	}

	cmd.Flags().StringVarP(&delimiter, "delimiter", "d", "", "Column delimiter: a single character or tsv, csv, psv")
	cmd.Flags().IntVarP(&keyIndex, "key-index", "k", 0, "Zero-based column index of the merge key")
	cmd.Flags().StringVarP(&keyTypeName, "key-type", "t", "string", "Merge key type: string, int32 or uint32")
	cmd.Flags().StringArrayVar(&globs, "glob", nil, "Glob of input files (can be repeated)")
	cmd.Flags().StringVar(&cacheFile, "cache-file", "", "Select inputs from this range cache instead of globs")
	cmd.Flags().StringVar(&keyStart, "key-start", "", "Inclusive lower bound of the merge key range")
	cmd.Flags().StringVar(&keyEnd, "key-end", "", "Exclusive upper bound of the merge key range")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write merged lines to this file instead of stdout")
	cmd.Flags().BoolVar(&skipMalformed, "skip-malformed", false, "Skip lines without a parsable key instead of aborting")
	cmd.Flags().BoolVar(&verifySizes, "verify-sizes", false, "With --cache-file, fail if any recorded file size changed since the cache was built")
	_ = cmd.MarkFlagRequired("delimiter")

	rootCmd.AddCommand(cmd)
}

type mergeOptions struct {
	delimiter     string
	keyIndex      int
	keyType       string
	globs         []string
	cacheFile     string
	keyStart      *string
	keyEnd        *string
	output        string
	skipMalformed bool
	verifySizes   bool
}

func runMerge(ctx context.Context, cfg *config.Config, opts mergeOptions) error {
	started := time.Now()

	extractor, err := buildExtractor(opts.delimiter, opts.keyIndex, opts.keyType)
	if err != nil {
		return err
	}

	bounds := merge.Options{}
	if bounds.Start, err = parseBound(opts.keyStart, extractor.Type, "key-start"); err != nil {
		return err
	}
	if bounds.End, err = parseBound(opts.keyEnd, extractor.Type, "key-end"); err != nil {
		return err
	}

	policy := merge.StrictLines
	if opts.skipMalformed {
		policy = merge.SkipMalformedLines
	}

	paths, err := resolveMergeInputs(ctx, cfg, opts, extractor.Type, bounds)
	if err != nil {
		return err
	}

	cursors, err := openCursors(paths, extractor, policy, cfg.Merge.MaxLineBytes)
	if err != nil {
		return err
	}

	engine, err := merge.NewEngine(cursors, extractor.Type, bounds)
	if err != nil {
		for _, c := range cursors {
			_ = c.Close()
		}
		return err
	}
	defer func() {
		if err := engine.Close(); err != nil {
			slog.Error("Failed to close merge engine", slog.Any("error", err))
		}
	}()

	var out io.Writer = os.Stdout
	var outFile *os.File
	if opts.output != "" {
		f, err := os.Create(opts.output)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		outFile = f
		out = f
		defer func() {
			if outFile != nil {
				_ = outFile.Close()
			}
		}()
	}
	w := bufio.NewWriter(out)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		rec, err := engine.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		if _, err := w.WriteString(rec.Line); err != nil {
			return fmt.Errorf("writing output: %w", err)
		}
		if err := w.WriteByte('\n'); err != nil {
			return fmt.Errorf("writing output: %w", err)
		}
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("flushing output: %w", err)
	}
	if outFile != nil {
		f := outFile
		outFile = nil
		if err := f.Close(); err != nil {
			return fmt.Errorf("closing output file: %w", err)
		}
	}

	slog.Info("Merge complete",
		slog.Int("files", len(paths)),
		slog.Int64("lines", engine.Emitted()),
		slog.Int64("skipped", engine.Skipped()),
		slog.Duration("elapsed", time.Since(started)))
	return nil
}

// resolveMergeInputs turns the flags into the list of files to merge, either
// by expanding globs or by querying a range cache. An empty list from a cache
// query is a valid merge of nothing; a glob matching nothing is not.
func resolveMergeInputs(ctx context.Context, cfg *config.Config, opts mergeOptions, typ mergekey.Type, bounds merge.Options) ([]string, error) {
	haveGlobs := len(opts.globs) > 0
	haveCache := opts.cacheFile != ""
	if opts.verifySizes && !haveCache {
		return nil, errors.New("--verify-sizes requires --cache-file")
	}
	switch {
	case haveGlobs && haveCache:
		return nil, errors.New("pass --glob or --cache-file, not both")
	case haveGlobs:
		return expandGlobs(opts.globs)
	case haveCache:
		cache, err := rangecache.Load(opts.cacheFile)
		if err != nil {
			return nil, err
		}
		if opts.verifySizes {
			if err := cache.VerifySizes(); err != nil {
				return nil, fmt.Errorf("stale range cache, rebuild it: %w", err)
			}
		}
		entries := cache.Query(ctx, bounds.Start, bounds.End, typ)
		slog.Info("Selected files from range cache",
			slog.String("cache", opts.cacheFile),
			slog.Int("selected", len(entries)),
			slog.Int("total", len(cache.Entries)))
		paths := make([]string, 0, len(entries))
		for _, e := range entries {
			paths = append(paths, e.Path)
		}
		return paths, nil
	default:
		return nil, errors.New("no inputs: pass --glob or --cache-file")
	}
}

// openCursors opens every file and primes a cursor for it. On any failure the
// already-opened cursors are closed before returning.
func openCursors(paths []string, extractor mergekey.Extractor, policy merge.LinePolicy, maxLineBytes int) ([]*merge.Cursor, error) {
	cursors := make([]*merge.Cursor, 0, len(paths))
	closeAll := func() {
		for _, c := range cursors {
			_ = c.Close()
		}
	}
	for _, path := range paths {
		source, err := linesource.OpenWithLimit(path, maxLineBytes)
		if err != nil {
			closeAll()
			return nil, err
		}
		cursor, err := merge.NewCursor(source, extractor, policy)
		if err != nil {
			closeAll()
			return nil, err
		}
		cursors = append(cursors, cursor)
	}
	return cursors, nil
}
