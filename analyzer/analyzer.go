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

// Package analyzer 對已完成 Play 的 Game 做統計（ResultAnalyzer）。
//
// Analyzer 在建立時深拷貝結果表，之後 Game 重新 Play 不會影響已建立的 Analyzer。
package analyzer

import (
	"github.com/zintix-labs/dicelab/errs"
	"github.com/zintix-labs/dicelab/face"
	"github.com/zintix-labs/dicelab/game"
)

// Analyzer 結果表的統計視圖
type Analyzer struct {
	faces  []face.Label
	table  [][]face.Label
	rounds int
	dice   int
}

// New 以 g 最近一次 Play 的結果建立 Analyzer。
//
// g 為 nil 時回傳 TypeKind；尚未 Play 時回傳 Validation。
func New(g *game.Game) (*Analyzer, error) {
	if g == nil {
		return nil, errs.NewType("analyzer: game must not be nil")
	}
	res, err := g.Results(game.Wide)
	if err != nil {
		return nil, errs.Wrap(err, "analyzer: game has no results")
	}
	return FromTable(g.Faces(), res.Wide.Rows)
}

// FromTable 直接由寬表建立（archive 重新分析歷史紀錄時使用）。表格會被複製。
func FromTable(faces []face.Label, rows [][]face.Label) (*Analyzer, error) {
	if err := face.Validate(faces); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errs.NewValidation("analyzer: empty result table")
	}
	dice := len(rows[0])
	if dice == 0 {
		return nil, errs.NewValidation("analyzer: result rows must not be empty")
	}
	known := make(map[face.Label]struct{}, len(faces))
	for _, f := range faces {
		known[f] = struct{}{}
	}
	table := make([][]face.Label, len(rows))
	cells := make([]face.Label, len(rows)*dice)
	for i, r := range rows {
		if len(r) != dice {
			return nil, errs.Validationf("analyzer: row %d has %d cells, want %d", i+1, len(r), dice)
		}
		for _, l := range r {
			if _, ok := known[l]; !ok {
				return nil, errs.Validationf("analyzer: row %d has unknown face %s", i+1, l)
			}
		}
		row := cells[i*dice : (i+1)*dice : (i+1)*dice]
		copy(row, r)
		table[i] = row
	}
	fs := make([]face.Label, len(faces))
	copy(fs, faces)
	return &Analyzer{faces: fs, table: table, rounds: len(rows), dice: dice}, nil
}

func (a *Analyzer) Rounds() int { return a.rounds }

func (a *Analyzer) Dice() int { return a.dice }

// Faces 點數副本，順序即 FaceCount 的欄位順序
func (a *Analyzer) Faces() []face.Label {
	out := make([]face.Label, len(a.faces))
	copy(out, a.faces)
	return out
}

// Jackpot 所有骰子點數相同的局數；只有一顆骰子時每一局都算。
func (a *Analyzer) Jackpot() int {
	n := 0
	for _, r := range a.table {
		if isJackpot(r) {
			n++
		}
	}
	return n
}

// JackpotRounds Jackpot 的局號（1-based，遞增）
func (a *Analyzer) JackpotRounds() []int {
	out := []int{}
	for i, r := range a.table {
		if isJackpot(r) {
			out = append(out, i+1)
		}
	}
	return out
}

func isJackpot(row []face.Label) bool {
	for _, l := range row[1:] {
		if l != row[0] {
			return false
		}
	}
	return true
}

// FaceCount 每局每個點數出現的骰子數，每列總和等於骰子數。
func (a *Analyzer) FaceCount() *FaceCountTable {
	col := a.faceIndex()
	rows := make([][]int, len(a.table))
	cells := make([]int, len(a.table)*len(a.faces))
	for i, r := range a.table {
		row := cells[i*len(a.faces) : (i+1)*len(a.faces) : (i+1)*len(a.faces)]
		for _, l := range r {
			row[col[l]]++
		}
		rows[i] = row
	}
	return &FaceCountTable{Faces: a.Faces(), Rows: rows}
}

// FaceTotals 整張表每個點數的出現次數（總計與逐顆骰子）。
func (a *Analyzer) FaceTotals() *FaceTotals {
	col := a.faceIndex()
	total := make([]int, len(a.faces))
	perDie := make([][]int, a.dice)
	for j := range perDie {
		perDie[j] = make([]int, len(a.faces))
	}
	for _, r := range a.table {
		for j, l := range r {
			k := col[l]
			total[k]++
			perDie[j][k]++
		}
	}
	return &FaceTotals{Faces: a.Faces(), Total: total, PerDie: perDie}
}

// ComboCount 依不計順序的點數組合分組計數。
func (a *Analyzer) ComboCount() *CountTable {
	return tally(a.table, face.SortedKey)
}

// PermutationCount 依骰子順序的點數排列分組計數。
func (a *Analyzer) PermutationCount() *CountTable {
	return tally(a.table, face.NewKey)
}

func (a *Analyzer) faceIndex() map[face.Label]int {
	col := make(map[face.Label]int, len(a.faces))
	for i, f := range a.faces {
		col[f] = i
	}
	return col
}
