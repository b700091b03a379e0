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

// Package sampler 提供骰子使用的加權抽樣演算法。
//
// 本檔案 (sampler.go) 定義抽樣器種類與共用的權重檢查。
//
// 目前提供兩種實作：
//   - Alias：Vose's Alias Method（浮點版），建表 O(N)，抽樣 O(1)，固定 1 次 IntN + 1 次 Float64。
//   - Categorical：gonum distuv.Categorical，以權重堆積樹抽樣，O(log N)。
//
// 兩者的機率分布相同：P(i) = w[i] / sum(w)。權重可為 0（該索引永不被抽中），
// 但不可為負、NaN、Inf，且總和必須 > 0。
package sampler

import (
	"fmt"
	"math"
	"strings"

	"github.com/zintix-labs/dicelab/errs"
	"github.com/zintix-labs/dicelab/sdk/core"
)

// Kind 抽樣器種類
type Kind uint8

const (
	Alias Kind = iota
	Categorical
)

var kindName = map[Kind]string{
	Alias:       "alias",
	Categorical: "categorical",
}

func (k Kind) String() string {
	if s, ok := kindName[k]; ok {
		return s
	}
	return fmt.Sprintf("sampler(%d)", uint8(k))
}

// ParseKind 由設定字串取得抽樣器種類，空字串視為 Alias。
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "alias":
		return Alias, nil
	case "categorical":
		return Categorical, nil
	default:
		return Alias, errs.Validationf("unknown sampler: %q (alias|categorical)", s)
	}
}

// Picker 綁定亂數核心的抽樣器，每次 Pick 回傳一個索引。
type Picker interface {
	Pick() int
}

// New 依種類建立綁定 c 的 Picker。
func New(kind Kind, weights []float64, c *core.Core) (Picker, error) {
	if c == nil {
		return nil, errs.NewType("sampler: nil core")
	}
	switch kind {
	case Alias:
		at, err := BuildAliasTable(weights)
		if err != nil {
			return nil, err
		}
		return &aliasPicker{at: at, c: c}, nil
	case Categorical:
		return NewCategorical(weights, c)
	default:
		return nil, errs.Validationf("unknown sampler kind: %d", kind)
	}
}

type aliasPicker struct {
	at *AliasTable
	c  *core.Core
}

func (p *aliasPicker) Pick() int {
	return p.at.Pick(p.c)
}

// CheckWeights 檢查權重是否可抽樣，回傳權重總和。
func CheckWeights(weights []float64) (float64, error) {
	if len(weights) == 0 {
		return 0, errs.NewValidation("sampler: empty weights")
	}
	total := 0.0
	for i, w := range weights {
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return 0, errs.Validationf("sampler: weight[%d] is not finite", i)
		}
		if w < 0 {
			return 0, errs.Validationf("sampler: weight[%d] is negative: %v", i, w)
		}
		total += w
	}
	if total <= 0 {
		return 0, errs.NewValidation("sampler: all weights are zero")
	}
	if math.IsInf(total, 0) {
		return 0, errs.NewValidation("sampler: total weight overflow")
	}
	return total, nil
}
