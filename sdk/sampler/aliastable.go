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

// 本檔案 (aliastable.go) 實作了 Vose's Alias Method 加權抽樣演算法 (浮點版)。
//
// 演算法原理：
//   - 將任意離散分佈轉換為均勻分佈的組合。
//   - 每個槽位 (Bucket) 只存放「自己」和「別名 (Alias)」兩個選項。
//   - 抽樣時先選槽位，再根據機率決定是自己還是別名。
//
// 骰子的權重是任意非負實數，因此這裡使用浮點 scaling（w * n / total），
// 而不是整數放大。

package sampler

import (
	"github.com/zintix-labs/dicelab/sdk/core"
)

// AliasTable 是 Vose Alias Method 的 O(1) 加權抽樣結構。
//
//   - Prob: 每個槽位留給自己的機率，落在 [0,1]。
//   - Aliases: 別名索引，機率不足時改取此索引。
//   - Size: 元素數量。
type AliasTable struct {
	Prob    []float64
	Aliases []int
	Size    int
}

// BuildAliasTable 根據輸入的權重建立 AliasTable。
//
// 處理流程：
// 1) 將每個權重 w 乘以 n / total，得到平均為 1 的 prob。
// 2) 依 prob 與 1 比較分類到 small / large。
// 3) 從 small 和 large 各取一個元素 s, l，將 l 指派為 s 的 alias，並把 l 的 prob 扣掉 (1 - prob[s])。
// 4) 重複直到 small 或 large 空；剩下的元素因浮點誤差視為 prob = 1。
func BuildAliasTable(weights []float64) (*AliasTable, error) {
	total, err := CheckWeights(weights)
	if err != nil {
		return nil, err
	}

	n := len(weights)
	prob := make([]float64, n)
	aliases := make([]int, n)
	small := make([]int, 0, n)
	large := make([]int, 0, n)

	heaviest := 0
	for i, w := range weights {
		if w > weights[heaviest] {
			heaviest = i
		}
		prob[i] = w * float64(n) / total
		if prob[i] < 1.0 {
			small = append(small, i)
		} else {
			large = append(large, i)
		}
	}

	for len(small) > 0 && len(large) > 0 {
		s := small[len(small)-1]
		small = small[:len(small)-1]
		l := large[len(large)-1]
		large = large[:len(large)-1]

		aliases[s] = l
		prob[l] = prob[l] + prob[s] - 1.0

		if prob[l] < 1.0 {
			small = append(small, l)
		} else {
			large = append(large, l)
		}
	}

	for _, i := range large {
		prob[i] = 1.0
		aliases[i] = i
	}
	for _, i := range small {
		// 只會因浮點誤差留下；權重為 0 的索引不可被抽中
		if weights[i] == 0 {
			prob[i] = 0
			aliases[i] = heaviest
			continue
		}
		prob[i] = 1.0
		aliases[i] = i
	}

	return &AliasTable{
		Prob:    prob,
		Aliases: aliases,
		Size:    n,
	}, nil
}

// Pick 從 AliasTable 中抽取一個索引，若表為空則回傳 -1。
func (at *AliasTable) Pick(c *core.Core) int {
	if at.Size == 0 {
		return -1
	}
	idx := c.IntN(at.Size)
	if c.Float64() < at.Prob[idx] {
		return idx
	}
	return at.Aliases[idx]
}
