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

package rangecache

import (
	"fmt"

	"go.opentelemetry.io/otel"
	otelmetric "go.opentelemetry.io/otel/metric"
)

var (
	filesScannedCounter    otelmetric.Int64Counter
	entriesSelectedCounter otelmetric.Int64Counter
	entriesPrunedCounter   otelmetric.Int64Counter
)

func init() {
	meter := otel.Meter("github.com/michael-robbins/filemerger/internal/rangecache")

	var err error
	filesScannedCounter, err = meter.Int64Counter(
		"filemerge.cache.files.scanned",
		otelmetric.WithDescription("Number of files fully scanned during cache builds"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create files.scanned counter: %w", err))
	}

	entriesSelectedCounter, err = meter.Int64Counter(
		"filemerge.cache.entries.selected",
		otelmetric.WithDescription("Number of cache entries matched by range queries"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create entries.selected counter: %w", err))
	}

	entriesPrunedCounter, err = meter.Int64Counter(
		"filemerge.cache.entries.pruned",
		otelmetric.WithDescription("Number of cache entries pruned by range queries"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create entries.pruned counter: %w", err))
	}
}
