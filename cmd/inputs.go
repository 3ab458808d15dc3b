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
	"errors"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/michael-robbins/filemerger/config"
	"github.com/michael-robbins/filemerger/internal/mergekey"
)

// buildExtractor validates the shared key flags and returns the extractor
// every input file is read with.
func buildExtractor(delimiter string, keyIndex int, keyType string) (mergekey.Extractor, error) {
	if keyIndex < 0 {
		return mergekey.Extractor{}, fmt.Errorf("key index must not be negative (got %d)", keyIndex)
	}
	delim, err := mergekey.ParseDelimiter(delimiter)
	if err != nil {
		return mergekey.Extractor{}, err
	}
	typ, err := mergekey.ParseType(keyType)
	if err != nil {
		return mergekey.Extractor{}, err
	}
	return mergekey.Extractor{Delimiter: delim, Index: keyIndex, Type: typ}, nil
}

// parseBound turns an optional key flag into a typed bound. nil in, nil out.
func parseBound(raw *string, typ mergekey.Type, flag string) (*mergekey.Key, error) {
	if raw == nil {
		return nil, nil
	}
	key, err := mergekey.Parse(*raw, typ)
	if err != nil {
		return nil, fmt.Errorf("--%s: %w", flag, err)
	}
	return &key, nil
}

// expandGlobs resolves every pattern and returns the union of matches, each
// path once, in sorted order. A pattern matching nothing is an error: a merge
// silently missing an input would produce an incomplete result.
func expandGlobs(globs []string) ([]string, error) {
	seen := make(map[string]struct{})
	var paths []string
	for _, pattern := range globs {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("bad glob %q: %w", pattern, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("glob %q matched no files", pattern)
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			paths = append(paths, m)
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// resolveCachePath picks the cache file: the flag wins, then the configured
// default.
func resolveCachePath(flagValue string, cfg *config.Config) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if cfg.Cache.DefaultPath != "" {
		return cfg.Cache.DefaultPath, nil
	}
	return "", errors.New("no cache file: pass --cache-file or set cache.default_path")
}
