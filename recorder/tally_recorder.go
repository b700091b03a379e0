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
	"fmt"

	"github.com/zintix-labs/dicelab/analyzer"
	"github.com/zintix-labs/dicelab/errs"
	"github.com/zintix-labs/dicelab/face"
	"github.com/zintix-labs/dicelab/game"
	"github.com/zintix-labs/dicelab/stats"
)

// DefaultTopN 報告預設保留的組合/排列列數
const DefaultTopN = 10

// Meta 實驗描述與理論機率，用於產生報告
type Meta struct {
	Name    string
	ID      int
	Sampler string
	Seed    int64
	Faces   []face.Label
	Probs   [][]float64 // [die][face]，欄位與 Faces 對齊
}

// MetaOf 由 Game 目前的骰子權重建立 Meta；每顆骰子的機率依 g.Faces() 的順序對齊。
func MetaOf(g *game.Game, name string, id int, seed int64) (*Meta, error) {
	if g == nil {
		return nil, errs.NewType("recorder: game must not be nil")
	}
	faces := g.Faces()
	probs := make([][]float64, g.Dice())
	for j := range probs {
		d := g.Die(j)
		p, err := d.Probabilities()
		if err != nil {
			return nil, errs.WrapWithExtra(err, "recorder: cannot build meta", fmt.Sprintf("die=%d", j+1))
		}
		byFace := make(map[face.Label]float64, len(p))
		for i, l := range d.Faces() {
			byFace[l] = p[i]
		}
		row := make([]float64, len(faces))
		for k, f := range faces {
			row[k] = byFace[f]
		}
		probs[j] = row
	}
	return &Meta{
		Name:    name,
		ID:      id,
		Sampler: g.Die(0).Sampler().String(),
		Seed:    seed,
		Faces:   faces,
		Probs:   probs,
	}, nil
}

// TallyRecorder 統計紀錄員
//
// TallyRecorder 逐批累積 Analyzer 的結果，並透過 Done 輸出統計報表
type TallyRecorder struct {
	Meta  *Meta
	TopN  int
	Basic *BasicRecord
	Face  [][]int // [die][face] 出現次數
	Gap   []int   // Jackpot 間隔分桶

	combos *tallyRecord
	perms  *tallyRecord

	lastJackpot int // 最後一次 Jackpot 的絕對局號，0 表示尚未出現
}

// BasicRecord 基本紀錄
type BasicRecord struct {
	Rounds   int
	Jackpots int
}

type tallyEntry struct {
	key   face.Key
	count int
}

// tallyRecord 依首次出現順序保存的計數表
type tallyRecord struct {
	entries []*tallyEntry
	index   map[string]int
}

func newTallyRecord() *tallyRecord {
	return &tallyRecord{index: make(map[string]int)}
}

func (t *tallyRecord) add(k face.Key, n int) {
	if i, ok := t.index[k.ID()]; ok {
		t.entries[i].count += n
		return
	}
	t.index[k.ID()] = len(t.entries)
	t.entries = append(t.entries, &tallyEntry{key: k, count: n})
}

func (t *tallyRecord) rows() []stats.TallyRow {
	out := make([]stats.TallyRow, len(t.entries))
	for i, e := range t.entries {
		out[i] = stats.TallyRow{Key: e.key, Count: e.count}
	}
	return out
}

func NewTallyRecorder(meta *Meta, topN int) (*TallyRecorder, error) {
	if meta == nil {
		return nil, errs.NewType("recorder: meta must not be nil")
	}
	if len(meta.Probs) == 0 {
		return nil, errs.NewValidation("recorder: meta must describe at least one die")
	}
	if err := face.Validate(meta.Faces); err != nil {
		return nil, errs.Wrap(err, "recorder: invalid meta faces")
	}
	for j, p := range meta.Probs {
		if len(p) != len(meta.Faces) {
			return nil, errs.Validationf("recorder: die %d has %d probabilities, want %d", j+1, len(p), len(meta.Faces))
		}
	}
	if topN < 0 {
		return nil, errs.Validationf("recorder: topN must not be negative, got %d", topN)
	}
	if topN == 0 {
		topN = DefaultTopN
	}
	fr := make([][]int, len(meta.Probs))
	for j := range fr {
		fr[j] = make([]int, len(meta.Faces))
	}
	return &TallyRecorder{
		Meta:   meta,
		TopN:   topN,
		Basic:  new(BasicRecord),
		Face:   fr,
		Gap:    make([]int, stats.Gaps.Len()),
		combos: newTallyRecord(),
		perms:  newTallyRecord(),
	}, nil
}

// Record 累積一批結果；同一個 recorder 的連續批次視為同一序列（Jackpot 間隔跨批次延續）。
func (s *TallyRecorder) Record(a *analyzer.Analyzer) error {
	if a == nil {
		return errs.NewType("recorder: analyzer must not be nil")
	}
	if a.Dice() != len(s.Meta.Probs) {
		return errs.Validationf("recorder: analyzer has %d dice, want %d", a.Dice(), len(s.Meta.Probs))
	}
	faces := a.Faces()
	if len(faces) != len(s.Meta.Faces) {
		return errs.NewValidation("recorder: analyzer faces differ from meta")
	}
	for k := range faces {
		if faces[k] != s.Meta.Faces[k] {
			return errs.NewValidation("recorder: analyzer faces differ from meta")
		}
	}

	offset := s.Basic.Rounds
	s.Basic.Rounds += a.Rounds()
	s.Basic.Jackpots += a.Jackpot()

	totals := a.FaceTotals()
	for j, row := range totals.PerDie {
		for k, c := range row {
			s.Face[j][k] += c
		}
	}

	rounds := a.JackpotRounds()
	abs := make([]int, 0, len(rounds)+1)
	if s.lastJackpot > 0 {
		abs = append(abs, s.lastJackpot)
	}
	for _, r := range rounds {
		abs = append(abs, offset+r)
	}
	stats.Gaps.Collect(s.Gap, abs)
	if len(rounds) > 0 {
		s.lastJackpot = offset + rounds[len(rounds)-1]
	}

	// 依首次出現的局序併入，跨批次的同次數列才會維持首次出現順序
	for _, r := range byFirstRound(a.ComboCount().Rows) {
		s.combos.add(r.Key, r.Count)
	}
	for _, r := range byFirstRound(a.PermutationCount().Rows) {
		s.perms.add(r.Key, r.Count)
	}
	return nil
}

// Merge 併入另一個獨立序列（例如另一個 worker）的紀錄。
func (s *TallyRecorder) Merge(o *TallyRecorder) error {
	if o == nil {
		return nil
	}
	if o.Meta.Name != s.Meta.Name || len(o.Face) != len(s.Face) {
		return errs.NewFatal("merge tally record err : different experiment")
	}
	s.Basic.Rounds += o.Basic.Rounds
	s.Basic.Jackpots += o.Basic.Jackpots
	for j := range s.Face {
		for k := range s.Face[j] {
			s.Face[j][k] += o.Face[j][k]
		}
	}
	for i := range s.Gap {
		s.Gap[i] += o.Gap[i]
	}
	for _, e := range o.combos.entries {
		s.combos.add(e.key, e.count)
	}
	for _, e := range o.perms.entries {
		s.perms.add(e.key, e.count)
	}
	return nil
}

// MergeTallyRecorder 依序合併多個 recorder 成為新的 recorder（不修改輸入）。
func MergeTallyRecorder(r []*TallyRecorder) (*TallyRecorder, error) {
	if len(r) == 0 {
		return nil, errs.NewFatal("merge tally record err : nothing to merge")
	}
	s, err := NewTallyRecorder(r[0].Meta, r[0].TopN)
	if err != nil {
		return nil, err
	}
	for _, v := range r {
		if err := s.Merge(v); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Done 產生統計報表（已呼叫 Report.Done）。
func (s *TallyRecorder) Done() *stats.Report {
	m := s.Meta
	combos := sortRows(s.combos.rows())
	perms := sortRows(s.perms.rows())

	dice := make([]*stats.DieReport, len(s.Face))
	counts := make([]int, len(m.Faces))
	for j := range s.Face {
		obs := make([]int, len(m.Faces))
		copy(obs, s.Face[j])
		exp := make([]float64, len(m.Faces))
		copy(exp, m.Probs[j])
		for k, c := range obs {
			counts[k] += c
		}
		dice[j] = &stats.DieReport{Die: j + 1, Faces: m.Faces, Expected: exp, Observed: obs}
	}
	gaps := make([]int, len(s.Gap))
	copy(gaps, s.Gap)

	rep := &stats.Report{
		Summary: &stats.SummaryReport{
			Name:                 m.Name,
			ID:                   m.ID,
			Sampler:              m.Sampler,
			Seed:                 m.Seed,
			Rounds:               s.Basic.Rounds,
			Dice:                 len(s.Face),
			Jackpots:             s.Basic.Jackpots,
			ExpectedJackpot:      stats.ExpectedJackpot(m.Probs),
			DistinctCombos:       len(combos),
			DistinctPermutations: len(perms),
		},
		Dice:         dice,
		Faces:        &stats.FaceReport{Faces: m.Faces, Counts: counts},
		Gaps:         &stats.GapReport{Bucket: stats.Gaps.Labels(), Collect: gaps},
		Combos:       top(combos, s.TopN),
		Permutations: top(perms, s.TopN),
	}
	rep.Done()
	return rep
}
