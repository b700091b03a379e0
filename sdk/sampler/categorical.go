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

package sampler

import (
	"github.com/zintix-labs/dicelab/sdk/core"
	"gonum.org/v1/gonum/stat/distuv"
)

// CategoricalPicker 以 gonum 的 distuv.Categorical 抽樣。
//
// Core 直接作為 distuv 的 rand.Source，序列仍由骰子自己的 Core 決定。
type CategoricalPicker struct {
	dist distuv.Categorical
}

// NewCategorical 建立綁定 c 的 Categorical 抽樣器。
// gonum 對負權重與總和為 0 會 panic，因此先用 CheckWeights 擋下。
func NewCategorical(weights []float64, c *core.Core) (*CategoricalPicker, error) {
	if _, err := CheckWeights(weights); err != nil {
		return nil, err
	}
	return &CategoricalPicker{dist: distuv.NewCategorical(weights, c)}, nil
}

func (p *CategoricalPicker) Pick() int {
	return int(p.dist.Rand())
}
