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

package game

import (
	"strings"

	"github.com/zintix-labs/dicelab/errs"
	"github.com/zintix-labs/dicelab/face"
)

// Layout 結果表版面
type Layout uint8

const (
	// Narrow 長表：每格一列 (Round, Die, Outcome)
	Narrow Layout = 0
	// Wide 寬表：每局一列，每顆骰子一欄
	Wide Layout = 1
)

func (l Layout) String() string {
	switch l {
	case Narrow:
		return "narrow"
	case Wide:
		return "wide"
	default:
		return "unknown"
	}
}

// ParseLayout "narrow" / "wide"，空字串視為 Wide。
func ParseLayout(s string) (Layout, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "wide":
		return Wide, nil
	case "narrow":
		return Narrow, nil
	default:
		return Wide, errs.Validationf("game: unknown layout %q (narrow|wide)", s)
	}
}

// Results Play 結果；依 Layout 只會填入 Wide 或 Narrow 其中之一。
type Results struct {
	Layout Layout       `json:"-"`
	Wide   *WideTable   `json:"wide,omitempty"`
	Narrow *NarrowTable `json:"narrow,omitempty"`
}

// WideTable Rows[i][j] 為第 i+1 局第 j+1 顆骰子的點數
type WideTable struct {
	Rounds int            `json:"rounds"`
	Dice   int            `json:"dice"`
	Rows   [][]face.Label `json:"rows"`
}

func newWide(table [][]face.Label, dice int) *WideTable {
	rows := make([][]face.Label, len(table))
	cells := make([]face.Label, len(table)*dice)
	for i, r := range table {
		row := cells[i*dice : (i+1)*dice : (i+1)*dice]
		copy(row, r)
		rows[i] = row
	}
	return &WideTable{Rounds: len(table), Dice: dice, Rows: rows}
}

// Cell 1-based 索引查表
func (w *WideTable) Cell(round, die int) (face.Label, bool) {
	if round < 1 || round > len(w.Rows) || die < 1 || die > w.Dice {
		return face.Label{}, false
	}
	return w.Rows[round-1][die-1], true
}

// NarrowRow 長表的一列，Round 與 Die 皆從 1 起算
type NarrowRow struct {
	Round   int        `json:"round"`
	Die     int        `json:"die"`
	Outcome face.Label `json:"outcome"`
}

// NarrowTable 依 (Round, Die) 排序：先局後骰
type NarrowTable struct {
	Dice int         `json:"dice"`
	Rows []NarrowRow `json:"rows"`
}

func newNarrow(table [][]face.Label) *NarrowTable {
	dice := 0
	if len(table) > 0 {
		dice = len(table[0])
	}
	rows := make([]NarrowRow, 0, len(table)*dice)
	for i, r := range table {
		for j, l := range r {
			rows = append(rows, NarrowRow{Round: i + 1, Die: j + 1, Outcome: l})
		}
	}
	return &NarrowTable{Dice: dice, Rows: rows}
}

// Lookup 以 (round, die) 取得點數，皆為 1-based。
func (n *NarrowTable) Lookup(round, die int) (face.Label, bool) {
	if n.Dice == 0 || round < 1 || die < 1 || die > n.Dice {
		return face.Label{}, false
	}
	i := (round-1)*n.Dice + (die - 1)
	if i >= len(n.Rows) {
		return face.Label{}, false
	}
	return n.Rows[i].Outcome, true
}

// ToWide 由長表還原寬表
func (n *NarrowTable) ToWide() *WideTable {
	rounds := 0
	if n.Dice > 0 {
		rounds = len(n.Rows) / n.Dice
	}
	table := make([][]face.Label, rounds)
	for i := range table {
		table[i] = make([]face.Label, n.Dice)
	}
	for _, r := range n.Rows {
		table[r.Round-1][r.Die-1] = r.Outcome
	}
	return &WideTable{Rounds: rounds, Dice: n.Dice, Rows: table}
}
