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

package stats

import "sort"

// GapBuckets Jackpot 間隔（相鄰兩次 Jackpot 相差的局數）分桶
//
// 請勿修改預設值
//   - 區間: [1,2), [2,5), [5,10), ..., [1000,+inf)
type GapBuckets struct {
	edges []int
	str   []string
}

var Gaps *GapBuckets = &GapBuckets{
	edges: []int{1, 2, 5, 10, 20, 50, 100, 300, 1000},
	str:   []string{"[1,2)", "[2,5)", "[5,10)", "[10,20)", "[20,50)", "[50,100)", "[100,300)", "[300,1000)", "[1000,+inf)"},
}

// Len 桶數
func (g *GapBuckets) Len() int { return len(g.str) }

// Labels 桶標籤（副本）
func (g *GapBuckets) Labels() []string {
	out := make([]string, len(g.str))
	copy(out, g.str)
	return out
}

// Index gap 所屬的桶，gap < 1 視為第一桶。
func (g *GapBuckets) Index(gap int) int {
	// 第一個 > gap 的邊界，其前一格即所屬桶
	i := sort.SearchInts(g.edges, gap+1) - 1
	if i < 0 {
		return 0
	}
	return i
}

// Collect 由遞增的 Jackpot 局號累計間隔到 collect（長度需為 Len()）。
func (g *GapBuckets) Collect(collect []int, jackpotRounds []int) {
	for i := 1; i < len(jackpotRounds); i++ {
		collect[g.Index(jackpotRounds[i]-jackpotRounds[i-1])]++
	}
}
