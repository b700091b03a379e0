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

// Package game 實作擲骰回合（RollSession）。
//
// Game 持有一組點數集合相同的骰子；Play 讓每顆骰子各擲 rounds 次，
// 結果以 rounds × dice 的表格保存，每次 Play 整張替換。
package game

import (
	"fmt"

	"github.com/zintix-labs/dicelab/die"
	"github.com/zintix-labs/dicelab/errs"
	"github.com/zintix-labs/dicelab/face"
)

// Game 一組骰子與最近一次 Play 的結果
type Game struct {
	dice   []*die.Die
	faces  []face.Label
	table  [][]face.Label // [round][die]，Play 前為 nil
	rounds int
}

// New 建立 Game。
//
//   - dice 為 nil 或含 nil 骰子：TypeKind
//   - dice 為空，或骰子間點數集合不同（順序可不同）：Validation
func New(dice []*die.Die) (*Game, error) {
	if dice == nil {
		return nil, errs.NewType("game: dice must be a list of dice, got nil")
	}
	if len(dice) == 0 {
		return nil, errs.NewValidation("game: at least one die is required")
	}
	for i, d := range dice {
		if d == nil {
			return nil, errs.Typef("game: dice[%d] is nil", i)
		}
	}
	faces := dice[0].Faces()
	for i, d := range dice[1:] {
		if !face.SameSet(faces, d.Faces()) {
			return nil, errs.Validationf("game: die %d faces differ from die 1, all dice must share the same faces", i+2)
		}
	}
	ds := make([]*die.Die, len(dice))
	copy(ds, dice)
	return &Game{dice: ds, faces: faces}, nil
}

// Play 讓每顆骰子依序各擲 rounds 次並整張替換結果表。
//
// rounds < 1 或任一骰子無法擲出（權重全為 0）時回傳錯誤，原有結果保持不變。
func (g *Game) Play(rounds int) error {
	if rounds < 1 {
		return errs.Validationf("game: rounds must be >= 1, got %d", rounds)
	}
	cols := make([][]face.Label, len(g.dice))
	for j, d := range g.dice {
		out, err := d.Roll(rounds)
		if err != nil {
			return errs.WrapWithExtra(err, "game: play failed", fmt.Sprintf("die=%d", j+1))
		}
		cols[j] = out
	}
	table := make([][]face.Label, rounds)
	cells := make([]face.Label, rounds*len(g.dice))
	for i := range table {
		row := cells[i*len(g.dice) : (i+1)*len(g.dice) : (i+1)*len(g.dice)]
		for j := range cols {
			row[j] = cols[j][i]
		}
		table[i] = row
	}
	g.table = table
	g.rounds = rounds
	return nil
}

// Results 以指定版面回傳最近一次 Play 的結果（副本）。
//
// Play 前或 layout 不是 Narrow/Wide 時回傳 Validation。
func (g *Game) Results(layout Layout) (*Results, error) {
	if layout != Narrow && layout != Wide {
		return nil, errs.Validationf("game: unknown layout %d (0=narrow, 1=wide)", layout)
	}
	if g.table == nil {
		return nil, errs.NewValidation("game: no results, call Play first")
	}
	res := &Results{Layout: layout}
	if layout == Wide {
		res.Wide = newWide(g.table, len(g.dice))
	} else {
		res.Narrow = newNarrow(g.table)
	}
	return res, nil
}

// Faces 共同點數（第一顆骰子的順序）
func (g *Game) Faces() []face.Label {
	out := make([]face.Label, len(g.faces))
	copy(out, g.faces)
	return out
}

// Rounds 最近一次 Play 的局數，Play 前回傳 Validation。
func (g *Game) Rounds() (int, error) {
	if g.table == nil {
		return 0, errs.NewValidation("game: not played yet")
	}
	return g.rounds, nil
}

// Dice 骰子數量
func (g *Game) Dice() int { return len(g.dice) }

// Die 第 i 顆骰子（0-based），超出範圍回傳 nil。
func (g *Game) Die(i int) *die.Die {
	if i < 0 || i >= len(g.dice) {
		return nil
	}
	return g.dice[i]
}

func (g *Game) Played() bool { return g.table != nil }
