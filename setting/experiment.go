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

// Package setting 定義實驗設定檔（YAML / JSON）。
//
// 一份設定描述一組骰子：點數、權重、數量與抽樣演算法，以及預設局數。
//
//	name: loaded_pair
//	id: 2
//	rounds: 100000
//	sampler: alias
//	dice:
//	  - faces: [1, 2, 3, 4, 5, 6]
//	    weights: {6: 3}
//	    count: 2
package setting

import (
	"fmt"
	"strings"

	"github.com/zintix-labs/dicelab/die"
	"github.com/zintix-labs/dicelab/errs"
	"github.com/zintix-labs/dicelab/face"
	"github.com/zintix-labs/dicelab/game"
	"github.com/zintix-labs/dicelab/sdk/core"
	"github.com/zintix-labs/dicelab/sdk/sampler"
)

// EID 實驗 ID
type EID int

// DefaultRounds 未指定 rounds 時使用的局數
const DefaultRounds = 10000

// ExperimentSetting 啟動一個實驗所需的所有設定。
type ExperimentSetting struct {
	Name        string        `yaml:"name"         json:"name"`
	ID          EID           `yaml:"id"           json:"id"`
	Description string        `yaml:"description"  json:"description,omitempty"`
	Rounds      int           `yaml:"rounds"       json:"rounds"`
	Sampler     string        `yaml:"sampler"      json:"sampler,omitempty"`
	Dice        []DiceSetting `yaml:"dice"         json:"dice"`

	kind sampler.Kind
}

// DiceSetting 一組相同的骰子
type DiceSetting struct {
	Faces   []any   `yaml:"faces"    json:"faces"`
	Weights Weights `yaml:"weights"  json:"weights,omitzero"`
	Count   int     `yaml:"count"    json:"count,omitempty"`

	labels  []face.Label
	weights []float64 // 與 labels 對齊
}

// init 解析衍生欄位並檢查
func (es *ExperimentSetting) init() error {
	es.Name = strings.TrimSpace(es.Name)
	if es.Name == "" {
		return errs.NewValidation("setting: name required")
	}
	if es.ID < 0 {
		return errs.Validationf("setting: %s id must be >= 0, got %d", es.Name, es.ID)
	}
	if es.Rounds < 0 {
		return errs.Validationf("setting: %s rounds must be >= 0, got %d", es.Name, es.Rounds)
	}
	if es.Rounds == 0 {
		es.Rounds = DefaultRounds
	}
	k, err := sampler.ParseKind(es.Sampler)
	if err != nil {
		return errs.Wrap(err, "setting: "+es.Name)
	}
	es.kind = k
	es.Sampler = k.String()

	if len(es.Dice) == 0 {
		return errs.Validationf("setting: %s requires at least one die", es.Name)
	}
	var first []face.Label
	for i := range es.Dice {
		ds := &es.Dice[i]
		if err := ds.init(); err != nil {
			return errs.WrapWithExtra(err, "setting: "+es.Name+" invalid dice", fmt.Sprintf("dice[%d]", i))
		}
		if i == 0 {
			first = ds.labels
			continue
		}
		if !face.SameSet(first, ds.labels) {
			return errs.Validationf("setting: %s dice[%d] faces differ from dice[0]", es.Name, i)
		}
	}
	return nil
}

func (ds *DiceSetting) init() error {
	if ds.Count < 0 {
		return errs.Validationf("count must be >= 0, got %d", ds.Count)
	}
	if ds.Count == 0 {
		ds.Count = 1
	}
	labels, err := face.Parse(ds.Faces)
	if err != nil {
		return err
	}
	ws, err := ds.Weights.resolve(labels)
	if err != nil {
		return err
	}
	ds.labels = labels
	ds.weights = ws
	return nil
}

// Kind 解析後的抽樣器種類
func (es *ExperimentSetting) Kind() sampler.Kind { return es.kind }

// TotalDice 展開 count 後的骰子總數
func (es *ExperimentSetting) TotalDice() int {
	n := 0
	for _, ds := range es.Dice {
		n += ds.Count
	}
	return n
}

// Labels 第一組骰子的點數（Game 的共同點數順序）
func (es *ExperimentSetting) Labels() []face.Label {
	if len(es.Dice) == 0 {
		return nil
	}
	out := make([]face.Label, len(es.Dice[0].labels))
	copy(out, es.Dice[0].labels)
	return out
}

// BuildDice 依設定建立骰子；第 i 顆骰子使用 DieSeed(seed, i) 作為種子。
func (es *ExperimentSetting) BuildDice(seed int64) ([]*die.Die, error) {
	out := make([]*die.Die, 0, es.TotalDice())
	for _, ds := range es.Dice {
		for range ds.Count {
			d, err := die.New(ds.labels,
				die.WithCore(core.NewWithSeed(DieSeed(seed, len(out)))),
				die.WithSampler(es.kind),
			)
			if err != nil {
				return nil, err
			}
			for k, l := range ds.labels {
				if err := d.SetWeight(l, ds.weights[k]); err != nil {
					return nil, err
				}
			}
			out = append(out, d)
		}
	}
	return out, nil
}

// BuildGame 依設定建立 Game。
func (es *ExperimentSetting) BuildGame(seed int64) (*game.Game, error) {
	ds, err := es.BuildDice(seed)
	if err != nil {
		return nil, err
	}
	return game.New(ds)
}

// DieSeed 由實驗種子推導第 i 顆骰子的種子（splitmix64 混合），結果非負。
func DieSeed(seed int64, i int) int64 {
	z := uint64(seed) + uint64(i+1)*0x9E3779B97F4A7C15
	z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
	z = (z ^ (z >> 27)) * 0x94D049BB133111EB
	z ^= z >> 31
	return int64(z & 0x7FFFFFFFFFFFFFFF)
}
