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
	"time"

	"github.com/spf13/cobra"

	"github.com/michael-robbins/filemerger/config"
	"github.com/michael-robbins/filemerger/internal/merge"
	"github.com/michael-robbins/filemerger/internal/mergekey"
	"github.com/michael-robbins/filemerger/internal/rangecache"
)

func init() {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Build and inspect range caches",
	}

	var (
		buildDelimiter     string
		buildKeyIndex      int
		buildKeyType       string
		buildGlobs         []string
		buildCacheFile     string
		buildSkipMalformed bool
	)

	buildCmd := &cobra.Command{
		Use:   "build",
		Short: "Scan files and record each one's observed key range",
		RunE: func(_ *cobra.Command, _ []string) error {
			doneCtx, doneCancel, cfg, err := setupRun()
			if err != nil {
				return err
			}
			defer doneCancel()
			return runCacheBuild(doneCtx, cfg, cacheBuildOptions{
				delimiter:     buildDelimiter,
				keyIndex:      buildKeyIndex,
				keyType:       buildKeyType,
				globs:         buildGlobs,
				cacheFile:     buildCacheFile,
				skipMalformed: buildSkipMalformed,
			})
		},
	}
	buildCmd.Flags().StringVarP(&buildDelimiter, "delimiter", "d", "", "Column delimiter: a single character or tsv, csv, psv")
	buildCmd.Flags().IntVarP(&buildKeyIndex, "key-index", "k", 0, "Zero-based column index of the merge key")
	buildCmd.Flags().StringVarP(&buildKeyType, "key-type", "t", "string", "Merge key type: string, int32 or uint32")
	buildCmd.Flags().StringArrayVar(&buildGlobs, "glob", nil, "Glob of files to scan (can be repeated)")
	buildCmd.Flags().StringVar(&buildCacheFile, "cache-file", "", "Where to write the cache")
	buildCmd.Flags().BoolVar(&buildSkipMalformed, "skip-malformed", false, "Skip lines without a parsable key instead of aborting")
	_ = buildCmd.MarkFlagRequired("delimiter")
	_ = buildCmd.MarkFlagRequired("glob")

	var (
		queryCacheFile string
		queryKeyType   string
		queryKeyStart  string
		queryKeyEnd    string
	)

	queryCmd := &cobra.Command{
		Use:   "query",
		Short: "List the cached files whose ranges intersect a key range",
		RunE: func(qc *cobra.Command, _ []string) error {
			doneCtx, doneCancel, cfg, err := setupRun()
			if err != nil {
				return err
			}
			defer doneCancel()
			opts := cacheQueryOptions{
				cacheFile: queryCacheFile,
				keyType:   queryKeyType,
			}
			if qc.Flags().Changed("key-start") {
				opts.keyStart = &queryKeyStart
			}
			if qc.Flags().Changed("key-end") {
				opts.keyEnd = &queryKeyEnd
			}
			return runCacheQuery(doneCtx, cfg, opts)
		},
	}
	queryCmd.Flags().StringVar(&queryCacheFile, "cache-file", "", "Cache to query")
	queryCmd.Flags().StringVarP(&queryKeyType, "key-type", "t", "string", "Merge key type: string, int32 or uint32")
	queryCmd.Flags().StringVar(&queryKeyStart, "key-start", "", "Inclusive lower bound of the key range")
	queryCmd.Flags().StringVar(&queryKeyEnd, "key-end", "", "Exclusive upper bound of the key range")

	cmd.AddCommand(buildCmd)
	cmd.AddCommand(queryCmd)
	rootCmd.AddCommand(cmd)
}

type cacheBuildOptions struct {
	delimiter     string
	keyIndex      int
	keyType       string
	globs         []string
	cacheFile     string
	skipMalformed bool
}

func runCacheBuild(ctx context.Context, cfg *config.Config, opts cacheBuildOptions) error {
	started := time.Now()

	extractor, err := buildExtractor(opts.delimiter, opts.keyIndex, opts.keyType)
	if err != nil {
		return err
	}

	cachePath, err := resolveCachePath(opts.cacheFile, cfg)
	if err != nil {
		return err
	}

	paths, err := expandGlobs(opts.globs)
	if err != nil {
		return err
	}

	policy := merge.StrictLines
	if opts.skipMalformed {
		policy = merge.SkipMalformedLines
	}

	cache, err := rangecache.Build(ctx, paths, extractor, rangecache.BuildOptions{
		LinePolicy:   policy,
		MaxLineBytes: cfg.Merge.MaxLineBytes,
	})
	if err != nil {
		return err
	}

	if err := cache.WriteFile(cachePath); err != nil {
		return err
	}

	slog.Info("Cache built",
		slog.String("cache", cachePath),
		slog.Int("files", len(cache.Entries)),
		slog.Duration("elapsed", time.Since(started)))
	return nil
}

type cacheQueryOptions struct {
	cacheFile string
	keyType   string
	keyStart  *string
	keyEnd    *string
}

func runCacheQuery(ctx context.Context, cfg *config.Config, opts cacheQueryOptions) error {
	cachePath, err := resolveCachePath(opts.cacheFile, cfg)
	if err != nil {
		return err
	}

	typ, err := mergekey.ParseType(opts.keyType)
	if err != nil {
		return err
	}

	start, err := parseBound(opts.keyStart, typ, "key-start")
	if err != nil {
		return err
	}
	end, err := parseBound(opts.keyEnd, typ, "key-end")
	if err != nil {
		return err
	}

	cache, err := rangecache.Load(cachePath)
	if err != nil {
		return err
	}

	entries := cache.Query(ctx, start, end, typ)
	for _, e := range entries {
		fmt.Fprintf(os.Stdout, "%s\t%s\t%s\t%d\n", e.Path, e.MinKey.String(), e.MaxKey.String(), e.Lines)
	}

	slog.Info("Cache query complete",
		slog.String("cache", cachePath),
		slog.Int("selected", len(entries)),
		slog.Int("total", len(cache.Entries)))
	return nil
}
