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

package analyzer

import (
	"slices"

	"github.com/zintix-labs/dicelab/face"
)

// FaceCountTable Rows[i][k] 為第 i+1 局擲出 Faces[k] 的骰子數
type FaceCountTable struct {
	Faces []face.Label `json:"faces"`
	Rows  [][]int      `json:"rows"`
}

// Row 1-based 局號
func (t *FaceCountTable) Row(round int) ([]int, bool) {
	if round < 1 || round > len(t.Rows) {
		return nil, false
	}
	return t.Rows[round-1], true
}

// FaceTotals 點數總計；PerDie[j][k] 為第 j+1 顆骰子擲出 Faces[k] 的次數
type FaceTotals struct {
	Faces  []face.Label `json:"faces"`
	Total  []int        `json:"total"`
	PerDie [][]int      `json:"per_die"`
}

// CountRow 一個組合或排列及其出現局數；First 為首次出現的局號（1-based）
type CountRow struct {
	Key   face.Key `json:"key"`
	Count int      `json:"count"`
	First int      `json:"first_round"`
}

// CountTable 依出現次數遞減排序，同次數依首次出現的局序。
type CountTable struct {
	Rows  []CountRow `json:"rows"`
	index map[string]int
}

// Count 查詢 key 出現的局數，未出現回傳 0。
func (t *CountTable) Count(k face.Key) int {
	if i, ok := t.index[k.ID()]; ok {
		return t.Rows[i].Count
	}
	return 0
}

// Total 所有列的次數總和（等於局數）
func (t *CountTable) Total() int {
	n := 0
	for _, r := range t.Rows {
		n += r.Count
	}
	return n
}

// Len 不同組合/排列的數量
func (t *CountTable) Len() int { return len(t.Rows) }

// Top 前 n 列（副本），n <= 0 或超過列數時回傳全部。
func (t *CountTable) Top(n int) []CountRow {
	if n <= 0 || n > len(t.Rows) {
		n = len(t.Rows)
	}
	return slices.Clone(t.Rows[:n])
}

func tally(table [][]face.Label, keyOf func([]face.Label) face.Key) *CountTable {
	rows := []CountRow{}
	index := make(map[string]int)
	for round, r := range table {
		k := keyOf(r)
		if i, ok := index[k.ID()]; ok {
			rows[i].Count++
			continue
		}
		index[k.ID()] = len(rows)
		rows = append(rows, CountRow{Key: k, Count: 1, First: round + 1})
	}
	// 穩定排序保留首次出現順序
	slices.SortStableFunc(rows, func(x, y CountRow) int {
		return y.Count - x.Count
	})
	for i, r := range rows {
		index[r.Key.ID()] = i
	}
	return &CountTable{Rows: rows, index: index}
}
