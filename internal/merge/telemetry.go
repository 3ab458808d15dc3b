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

package merge

import (
	"fmt"

	"go.opentelemetry.io/otel"
	otelmetric "go.opentelemetry.io/otel/metric"
)

var (
	linesOutCounter         otelmetric.Int64Counter
	linesSkippedCounter     otelmetric.Int64Counter
	cursorsExhaustedCounter otelmetric.Int64Counter
)

func init() {
	meter := otel.Meter("github.com/michael-robbins/filemerger/internal/merge")

	var err error
	linesOutCounter, err = meter.Int64Counter(
		"filemerge.merge.lines.out",
		otelmetric.WithDescription("Number of lines emitted by the merge engine"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create lines.out counter: %w", err))
	}

	linesSkippedCounter, err = meter.Int64Counter(
		"filemerge.merge.lines.skipped",
		otelmetric.WithDescription("Number of malformed lines skipped during merging"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create lines.skipped counter: %w", err))
	}

	cursorsExhaustedCounter, err = meter.Int64Counter(
		"filemerge.merge.cursors.exhausted",
		otelmetric.WithDescription("Number of input files fully drained by the merge engine"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create cursors.exhausted counter: %w", err))
	}
}
