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

// Package dto HTTP API 的請求與回應結構。
package dto

import (
	"github.com/zintix-labs/dicelab/analyzer"
	"github.com/zintix-labs/dicelab/archive"
	"github.com/zintix-labs/dicelab/errs"
	"github.com/zintix-labs/dicelab/face"
	"github.com/zintix-labs/dicelab/game"
	"github.com/zintix-labs/dicelab/recorder"
	"github.com/zintix-labs/dicelab/stats"
)

// SimResult /v1/sim 回應
type SimResult struct {
	Report   *stats.Report        `json:"report"            yaml:"report"`
	Batches  *stats.BatchEstimate `json:"batches,omitempty" yaml:"batches,omitempty"`
	UsedTime int64                `json:"used_ms"           yaml:"used_ms"`
	RunID    int64                `json:"run_id,omitempty"  yaml:"run_id,omitempty"`
}

// PlayResult /v1/play 回應：結果表（依 layout）與單次 Game 的分析。
type PlayResult struct {
	Name          string                   `json:"name"`
	Seed          int64                    `json:"seed"`
	Rounds        int                      `json:"rounds"`
	Dice          int                      `json:"dice"`
	Faces         []face.Label             `json:"faces"`
	Layout        string                   `json:"layout"`
	Results       *game.Results            `json:"results"`
	Jackpot       int                      `json:"jackpot"`
	JackpotRounds []int                    `json:"jackpot_rounds"`
	FaceTotals    *analyzer.FaceTotals     `json:"face_totals"`
	FaceCount     *analyzer.FaceCountTable `json:"face_count"`
	Combos        []analyzer.CountRow      `json:"combos"`
	Permutations  []analyzer.CountRow      `json:"permutations"`
	RunID         int64                    `json:"run_id,omitempty"`
}

// RunList /v1/runs 回應
type RunList struct {
	Runs []*archive.Run `json:"runs"`
}

// RunDetail /v1/runs/{id} 回應；Results 只在紀錄保存了逐格結果時出現。
type RunDetail struct {
	Run     *archive.Run      `json:"run"`
	Results *game.NarrowTable `json:"results,omitempty"`
}

// NewPlayResult 由已 Play 過的 Game 建立回應。topN <= 0 時回傳全部組合/排列。
//
// 同時回傳單局報表（供存檔使用）。
func NewPlayResult(name string, id int, seed int64, g *game.Game, layout game.Layout, topN int) (*PlayResult, *stats.Report, error) {
	if g == nil {
		return nil, nil, errs.NewType("game must not be nil")
	}
	res, err := g.Results(layout)
	if err != nil {
		return nil, nil, err
	}
	a, err := analyzer.New(g)
	if err != nil {
		return nil, nil, err
	}
	meta, err := recorder.MetaOf(g, name, id, seed)
	if err != nil {
		return nil, nil, err
	}
	rec, err := recorder.NewTallyRecorder(meta, max(topN, 0))
	if err != nil {
		return nil, nil, err
	}
	if err := rec.Record(a); err != nil {
		return nil, nil, err
	}

	pr := &PlayResult{
		Name:          name,
		Seed:          seed,
		Rounds:        a.Rounds(),
		Dice:          a.Dice(),
		Faces:         a.Faces(),
		Layout:        layout.String(),
		Results:       res,
		Jackpot:       a.Jackpot(),
		JackpotRounds: a.JackpotRounds(),
		FaceTotals:    a.FaceTotals(),
		FaceCount:     a.FaceCount(),
		Combos:        a.ComboCount().Top(topN),
		Permutations:  a.PermutationCount().Top(topN),
	}
	return pr, rec.Done(), nil
}
