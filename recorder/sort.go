// Copyright 2025 Zintix Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package recorder

import (
	"slices"

	"github.com/zintix-labs/dicelab/analyzer"
	"github.com/zintix-labs/dicelab/stats"
)

// byFirstRound 依首次出現的局號排序（副本）
func byFirstRound(rows []analyzer.CountRow) []analyzer.CountRow {
	out := slices.Clone(rows)
	slices.SortFunc(out, func(a, b analyzer.CountRow) int {
		return a.First - b.First
	})
	return out
}

// sortRows 次數遞減；同次數保留首次出現順序
func sortRows(rows []stats.TallyRow) []stats.TallyRow {
	slices.SortStableFunc(rows, func(a, b stats.TallyRow) int {
		return b.Count - a.Count
	})
	return rows
}

func top(rows []stats.TallyRow, n int) []stats.TallyRow {
	if n > len(rows) {
		n = len(rows)
	}
	return slices.Clone(rows[:n])
}
