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

package analyzer_test

import (
	"testing"

	"github.com/zintix-labs/dicelab/analyzer"
	"github.com/zintix-labs/dicelab/die"
	"github.com/zintix-labs/dicelab/errs"
	"github.com/zintix-labs/dicelab/face"
	"github.com/zintix-labs/dicelab/game"
)

func playedGame(t *testing.T, dice int, labels []face.Label, rounds int, seed int64) *game.Game {
	t.Helper()
	ds := make([]*die.Die, dice)
	for i := range ds {
		d, err := die.New(labels, die.WithSeed(seed+int64(i)))
		if err != nil {
			t.Fatalf("die.New: %v", err)
		}
		ds[i] = d
	}
	g, err := game.New(ds)
	if err != nil {
		t.Fatalf("game.New: %v", err)
	}
	if err := g.Play(rounds); err != nil {
		t.Fatalf("Play: %v", err)
	}
	return g
}

func TestNewAnalyzerErrors(t *testing.T) {
	if _, err := analyzer.New(nil); !errs.IsKind(err, errs.TypeKind) {
		t.Fatalf("nil game: want type error, got %v", err)
	}
	d, _ := die.New(face.Ints(1, 2), die.WithSeed(1))
	g, _ := game.New([]*die.Die{d})
	if _, err := analyzer.New(g); !errs.IsKind(err, errs.Validation) {
		t.Fatalf("unplayed game: want validation, got %v", err)
	}
}

func TestJackpotMatchesEqualRows(t *testing.T) {
	g := playedGame(t, 2, face.Ints(1, 2, 3), 300, 5)
	a, err := analyzer.New(g)
	if err != nil {
		t.Fatalf("analyzer.New: %v", err)
	}
	res, _ := g.Results(game.Wide)
	want := 0
	for _, r := range res.Wide.Rows {
		if r[0] == r[1] {
			want++
		}
	}
	if a.Jackpot() != want {
		t.Fatalf("Jackpot got %d want %d", a.Jackpot(), want)
	}
	if len(a.JackpotRounds()) != want {
		t.Fatalf("JackpotRounds length got %d want %d", len(a.JackpotRounds()), want)
	}
	for _, n := range a.JackpotRounds() {
		r := res.Wide.Rows[n-1]
		if r[0] != r[1] {
			t.Fatalf("round %d is not a jackpot", n)
		}
	}
}

func TestForcedJackpot(t *testing.T) {
	ds := make([]*die.Die, 3)
	for i := range ds {
		d, _ := die.New(face.Strs("x", "y"), die.WithSeed(int64(i)))
		_ = d.SetWeight(face.Str("y"), 0)
		ds[i] = d
	}
	g, _ := game.New(ds)
	_ = g.Play(25)
	a, _ := analyzer.New(g)
	if a.Jackpot() != 25 {
		t.Fatalf("forced jackpot got %d want 25", a.Jackpot())
	}
	combos := a.ComboCount()
	if combos.Len() != 1 || combos.Rows[0].Count != 25 {
		t.Fatalf("forced combos got %+v", combos.Rows)
	}
}

func TestSingleDieEveryRoundIsJackpot(t *testing.T) {
	a, _ := analyzer.New(playedGame(t, 1, face.Ints(1, 2, 3, 4, 5, 6), 40, 2))
	if a.Jackpot() != 40 {
		t.Fatalf("single die jackpot got %d want 40", a.Jackpot())
	}
}

func TestFaceCountRowSums(t *testing.T) {
	labels := face.Ints(6, 5, 4, 3, 2, 1)
	a, _ := analyzer.New(playedGame(t, 4, labels, 50, 9))
	fc := a.FaceCount()
	if len(fc.Rows) != 50 {
		t.Fatalf("face count rows got %d", len(fc.Rows))
	}
	for k, f := range fc.Faces {
		if f != labels[k] {
			t.Fatalf("face order must follow the first die, got %v", fc.Faces)
		}
	}
	for i, row := range fc.Rows {
		sum := 0
		for _, c := range row {
			sum += c
		}
		if sum != 4 {
			t.Fatalf("row %d sums to %d want 4", i+1, sum)
		}
	}
	if _, ok := fc.Row(51); ok {
		t.Fatalf("row 51 must not exist")
	}
	totals := a.FaceTotals()
	all := 0
	for _, n := range totals.Total {
		all += n
	}
	if all != 200 || len(totals.PerDie) != 4 {
		t.Fatalf("face totals got %d cells, %d dice", all, len(totals.PerDie))
	}
}

func TestComboAndPermutationTotals(t *testing.T) {
	a, _ := analyzer.New(playedGame(t, 3, face.Ints(1, 2, 3), 200, 13))
	combos := a.ComboCount()
	perms := a.PermutationCount()
	if combos.Total() != 200 || perms.Total() != 200 {
		t.Fatalf("totals combo=%d perm=%d want 200", combos.Total(), perms.Total())
	}
	if combos.Len() > perms.Len() {
		t.Fatalf("combos (%d) cannot outnumber permutations (%d)", combos.Len(), perms.Len())
	}
	// 每個排列排序後必對應到一個組合，且組合次數為其排列次數總和
	sum := map[string]int{}
	for _, r := range perms.Rows {
		sorted := r.Key.Sorted()
		if combos.Count(sorted) == 0 {
			t.Fatalf("permutation %s has no combo", r.Key)
		}
		sum[sorted.ID()] += r.Count
	}
	for _, r := range combos.Rows {
		if sum[r.Key.ID()] != r.Count {
			t.Fatalf("combo %s got %d, permutations sum %d", r.Key, r.Count, sum[r.Key.ID()])
		}
	}
	for i := 1; i < len(combos.Rows); i++ {
		if combos.Rows[i].Count > combos.Rows[i-1].Count {
			t.Fatalf("combo rows must be sorted by count desc")
		}
	}
}

func TestCountTieBreakFirstSeen(t *testing.T) {
	faces := face.Ints(1, 2, 3)
	rows := [][]face.Label{
		face.Ints(2, 1),
		face.Ints(3, 3),
		face.Ints(1, 2),
		face.Ints(3, 3),
		face.Ints(1, 1),
	}
	a, err := analyzer.FromTable(faces, rows)
	if err != nil {
		t.Fatalf("FromTable: %v", err)
	}
	combos := a.ComboCount()
	want := []string{"(1, 2)", "(3, 3)", "(1, 1)"}
	counts := []int{2, 2, 1}
	firsts := []int{1, 2, 5}
	for i, r := range combos.Rows {
		if r.Key.String() != want[i] || r.Count != counts[i] || r.First != firsts[i] {
			t.Fatalf("combo row %d got %s=%d@%d want %s=%d@%d", i, r.Key, r.Count, r.First, want[i], counts[i], firsts[i])
		}
	}
	perms := a.PermutationCount()
	if perms.Rows[0].Key.String() != "(3, 3)" || perms.Rows[0].Count != 2 {
		t.Fatalf("top permutation got %s=%d", perms.Rows[0].Key, perms.Rows[0].Count)
	}
	if perms.Count(face.NewKey(face.Ints(2, 1))) != 1 || perms.Count(face.NewKey(face.Ints(2, 2))) != 0 {
		t.Fatalf("permutation lookup mismatch")
	}
	if len(combos.Top(2)) != 2 || len(combos.Top(0)) != 3 {
		t.Fatalf("Top slicing mismatch")
	}
}

func TestFromTableRejectsBadRows(t *testing.T) {
	faces := face.Ints(1, 2)
	if _, err := analyzer.FromTable(faces, nil); !errs.IsKind(err, errs.Validation) {
		t.Fatalf("empty table: want validation, got %v", err)
	}
	if _, err := analyzer.FromTable(faces, [][]face.Label{face.Ints(1, 2), face.Ints(1)}); !errs.IsKind(err, errs.Validation) {
		t.Fatalf("ragged table: want validation, got %v", err)
	}
	if _, err := analyzer.FromTable(faces, [][]face.Label{face.Ints(1, 3)}); !errs.IsKind(err, errs.Validation) {
		t.Fatalf("unknown face: want validation, got %v", err)
	}
}

func TestAnalyzerUnaffectedByReplay(t *testing.T) {
	g := playedGame(t, 2, face.Ints(1, 2, 3, 4, 5, 6), 30, 17)
	a, _ := analyzer.New(g)
	jack, perms := a.Jackpot(), a.PermutationCount().Rows
	if err := g.Play(5); err != nil {
		t.Fatalf("replay: %v", err)
	}
	if a.Rounds() != 30 || a.Jackpot() != jack {
		t.Fatalf("analyzer changed after replay")
	}
	again := a.PermutationCount().Rows
	for i := range perms {
		if !perms[i].Key.Equal(again[i].Key) || perms[i].Count != again[i].Count {
			t.Fatalf("permutation table changed after replay")
		}
	}
}
