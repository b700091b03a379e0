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

// Package die 實作加權骰子（WeightedOutcomeGenerator）。
//
// 一顆 Die 在建立時固定點數集合，權重初始皆為 1.0，之後只能逐一調整，不能增減點數。
// 權重為 0 的點數永遠不會被擲出；負數、NaN、Inf 一律拒絕。
//
// Die 不是併發安全的：同一顆骰子的 SetWeight / Roll 需由呼叫端序列化。
package die

import (
	"math"
	"slices"

	"github.com/zintix-labs/dicelab/errs"
	"github.com/zintix-labs/dicelab/face"
	"github.com/zintix-labs/dicelab/sdk/core"
	"github.com/zintix-labs/dicelab/sdk/sampler"
)

// DefaultWeight 新骰子每個點數的初始權重
const DefaultWeight = 1.0

// FaceWeight 點數與其目前權重的快照
type FaceWeight struct {
	Label  face.Label `json:"face" yaml:"face"`
	Weight float64    `json:"weight" yaml:"weight"`
}

// Die 加權骰子
type Die struct {
	labels  []face.Label
	index   map[face.Label]int
	weights []float64

	core   *core.Core
	kind   sampler.Kind
	picker sampler.Picker // 權重變動後失效，下次 Roll 重建
}

// Option 建立骰子時的可選設定
type Option func(*options)

type options struct {
	seed    int64
	hasSeed bool
	core    *core.Core
	kind    sampler.Kind
}

// WithSeed 以固定種子建立骰子自己的亂數核心（可重現）。
func WithSeed(seed int64) Option {
	return func(o *options) {
		o.seed = seed
		o.hasSeed = true
	}
}

// WithCore 使用外部提供的亂數核心（多顆骰子可共用同一序列）。優先於 WithSeed。
func WithCore(c *core.Core) Option {
	return func(o *options) { o.core = c }
}

// WithSampler 指定抽樣演算法，預設 sampler.Alias。
func WithSampler(k sampler.Kind) Option {
	return func(o *options) { o.kind = k }
}

// New 以點數序列建立骰子。
//
// 點數為空、重複或類別混用時回傳 Validation。
func New(labels []face.Label, opts ...Option) (*Die, error) {
	if err := face.Validate(labels); err != nil {
		return nil, err
	}
	o := options{kind: sampler.Alias}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.kind != sampler.Alias && o.kind != sampler.Categorical {
		return nil, errs.Validationf("die: unknown sampler kind %s", o.kind)
	}
	c := o.core
	if c == nil {
		seed := o.seed
		if !o.hasSeed {
			s, err := core.RandomSeed()
			if err != nil {
				return nil, errs.Wrap(err, "die: random seed")
			}
			seed = s
		}
		c = core.NewWithSeed(seed)
	}

	ls := slices.Clone(labels)
	index := make(map[face.Label]int, len(ls))
	weights := make([]float64, len(ls))
	for i, l := range ls {
		index[l] = i
		weights[i] = DefaultWeight
	}
	return &Die{
		labels:  ls,
		index:   index,
		weights: weights,
		core:    c,
		kind:    o.kind,
	}, nil
}

// NewFromAny 由動態值建立骰子（例如 JSON 解出的 []any）。
//
// v 不是序列時回傳 TypeKind；元素不支援或類別混用時回傳 Validation。
func NewFromAny(v any, opts ...Option) (*Die, error) {
	labels, err := face.Parse(v)
	if err != nil {
		return nil, err
	}
	return New(labels, opts...)
}

// Standard 六面骰，點數 1..6。
func Standard(opts ...Option) (*Die, error) {
	return New(face.Ints(1, 2, 3, 4, 5, 6), opts...)
}

// SetWeight 更新單一點數的權重。
//
//   - 點數不存在：NotFound
//   - 權重為負、NaN、±Inf：Validation
//
// 失敗時骰子狀態不變。
func (d *Die) SetWeight(label face.Label, w float64) error {
	i, ok := d.index[label]
	if !ok {
		return errs.NotFoundf("die: face %s not found", label)
	}
	if math.IsNaN(w) || math.IsInf(w, 0) {
		return errs.Validationf("die: weight for face %s must be finite", label)
	}
	if w < 0 {
		return errs.Validationf("die: weight for face %s must be >= 0, got %v", label, w)
	}
	d.weights[i] = w
	d.picker = nil
	return nil
}

// SetWeightAny 以動態值更新權重，先經 CoerceWeight 轉型（無法轉型為 TypeKind），再套用 SetWeight。
func (d *Die) SetWeightAny(label face.Label, v any) error {
	if _, ok := d.index[label]; !ok {
		return errs.NotFoundf("die: face %s not found", label)
	}
	w, err := CoerceWeight(v)
	if err != nil {
		return err
	}
	return d.SetWeight(label, w)
}

// Weight 回傳單一點數的權重。
func (d *Die) Weight(label face.Label) (float64, error) {
	i, ok := d.index[label]
	if !ok {
		return 0, errs.NotFoundf("die: face %s not found", label)
	}
	return d.weights[i], nil
}

// Roll 擲骰 count 次（獨立、取後放回），P(L) = w(L) / Σw。
//
// count < 1 或權重全為 0 時回傳 Validation。
func (d *Die) Roll(count int) ([]face.Label, error) {
	if count < 1 {
		return nil, errs.Validationf("die: roll count must be >= 1, got %d", count)
	}
	p, err := d.ensurePicker()
	if err != nil {
		return nil, err
	}
	out := make([]face.Label, count)
	for i := range out {
		out[i] = d.labels[p.Pick()]
	}
	return out, nil
}

func (d *Die) ensurePicker() (sampler.Picker, error) {
	if d.picker != nil {
		return d.picker, nil
	}
	p, err := sampler.New(d.kind, d.weights, d.core)
	if err != nil {
		return nil, errs.Wrap(err, "die: cannot roll")
	}
	d.picker = p
	return p, nil
}

// State 回傳 (點數, 權重) 快照，依點數建立順序。修改回傳值不影響骰子。
func (d *Die) State() []FaceWeight {
	out := make([]FaceWeight, len(d.labels))
	for i, l := range d.labels {
		out[i] = FaceWeight{Label: l, Weight: d.weights[i]}
	}
	return out
}

// Faces 回傳點數副本
func (d *Die) Faces() []face.Label { return slices.Clone(d.labels) }

// Weights 回傳權重副本（與 Faces 對齊）
func (d *Die) Weights() []float64 { return slices.Clone(d.weights) }

// Probabilities 依目前權重回傳每個點數的機率，權重全為 0 時回傳 Validation。
func (d *Die) Probabilities() ([]float64, error) {
	total, err := sampler.CheckWeights(d.weights)
	if err != nil {
		return nil, errs.Wrap(err, "die: no probabilities")
	}
	out := make([]float64, len(d.weights))
	for i, w := range d.weights {
		out[i] = w / total
	}
	return out, nil
}

// Len 點數數量
func (d *Die) Len() int { return len(d.labels) }

// Has 判斷點數是否存在
func (d *Die) Has(label face.Label) bool {
	_, ok := d.index[label]
	return ok
}

func (d *Die) Sampler() sampler.Kind { return d.kind }

// Snapshot 取得亂數核心狀態，搭配 Restore 可重播相同的擲骰序列。
func (d *Die) Snapshot() ([]byte, error) {
	return d.core.Snapshot()
}

// Restore 還原亂數核心狀態。
func (d *Die) Restore(state []byte) error {
	if err := d.core.Restore(state); err != nil {
		return errs.Wrap(err, "die: restore rng state")
	}
	return nil
}
