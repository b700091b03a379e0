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

// Package core 提供骰子抽樣所使用的亂數核心。
//
// 每顆骰子持有自己的 Core，因此不同骰子之間、同一顆骰子不同次擲骰之間的序列互相獨立；
// 給定相同 seed 則序列完全可重現。Core 同時滿足 math/rand/v2 的 Source 介面，
// 可以直接交給 gonum 的分布型別使用。
package core

import (
	"crypto/rand"
	"math"
	"math/big"
)

// PRNG 定義 Core 所需的亂數來源，需同時支援取樣與狀態保存/還原。
type PRNG interface {
	RAND
	Restorable
}

// Restorable 定義可快照與還原的狀態介面。
type Restorable interface {
	// Snapshot 回傳可用於還原的序列化狀態。
	Snapshot() ([]byte, error)
	// Restore 依序列化狀態還原 PRNG 內部狀態。
	Restore([]byte) error
}

// RAND 定義核心亂數取樣能力。
type RAND interface {
	// Uint64 回傳非負 uint64 亂數。
	Uint64() uint64
	// Float64 回傳 [0,1) 的浮點亂數。
	Float64() float64
	// IntN 回傳 [0,max) 的 int 亂數，若 max <= 0 回傳 -1。
	IntN(int) int
}

type PRNGFactory interface {
	// New 以指定 seed 建立新的 PRNG。
	//
	// 合約：同一個實作與版本下，New(seed) 必須是決定性的，
	// 相同的 seed 必須產生相同的初始內部狀態與輸出序列。
	New(int64) PRNG
}

// DefaultPRNG 實作預設的 PRNGFactory（PCG64）
type DefaultPRNG struct{}

// New 滿足合約
func (d *DefaultPRNG) New(seed int64) PRNG {
	return newPCG64WithSeed(seed)
}

func Default() *DefaultPRNG {
	return &DefaultPRNG{}
}

// Core 封裝 PRNG，並提供常用取樣與工具方法。
type Core struct {
	PRNG
}

// NewWithSeed 以預設 PRNG 與指定 seed 建立 Core。
func NewWithSeed(seed int64) *Core {
	return &Core{Default().New(seed)}
}

// RandomSeed 由 crypto/rand 產生一個非負 int64 seed。
//
// 只用於「出生」：呼叫端未指定 seed 時使用，之後的序列仍由 PRNG 決定。
func RandomSeed() (int64, error) {
	seed, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
	if err != nil {
		return 0, err
	}
	return seed.Int64(), nil
}
