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

package setting

import (
	"bytes"
	"encoding/json"
	"maps"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/zintix-labs/dicelab/errs"
	"github.com/zintix-labs/dicelab/face"
	"gopkg.in/yaml.v3"
)

// Weights 權重設定，兩種寫法擇一：
//
//	weights: [1, 1, 1, 1, 1, 3]   # 依 faces 順序
//	weights: {6: 3}               # 依點數指定，未列出的點數為 1
type Weights struct {
	List  []float64
	ByKey map[string]float64
}

// IsZero 未設定權重（全部為 1）
func (w Weights) IsZero() bool { return w.List == nil && w.ByKey == nil }

func (w *Weights) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.SequenceNode:
		return value.Decode(&w.List)
	case yaml.MappingNode:
		return value.Decode(&w.ByKey)
	case yaml.ScalarNode:
		if value.Tag == "!!null" {
			return nil
		}
	}
	return errs.Typef("setting: weights must be a list or a mapping (line %d)", value.Line)
}

func (w Weights) MarshalYAML() (any, error) {
	if w.List != nil {
		return w.List, nil
	}
	return w.ByKey, nil
}

func (w *Weights) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		return nil
	case len(b) > 0 && b[0] == '[':
		return json.Unmarshal(b, &w.List)
	case len(b) > 0 && b[0] == '{':
		return json.Unmarshal(b, &w.ByKey)
	}
	return errs.NewType("setting: weights must be an array or an object")
}

func (w Weights) MarshalJSON() ([]byte, error) {
	if w.List != nil {
		return json.Marshal(w.List)
	}
	return json.Marshal(w.ByKey)
}

// resolve 轉為與 labels 對齊的權重
func (w Weights) resolve(labels []face.Label) ([]float64, error) {
	out := make([]float64, len(labels))
	for i := range out {
		out[i] = 1
	}
	switch {
	case w.List != nil:
		if len(w.List) != len(labels) {
			return nil, errs.Validationf("weights has %d entries, faces has %d", len(w.List), len(labels))
		}
		copy(out, w.List)
	case w.ByKey != nil:
		idx := make(map[face.Label]int, len(labels))
		for i, l := range labels {
			idx[l] = i
		}
		// 依 key 排序走訪，錯誤訊息不受 map 走訪順序影響
		keys := slices.Sorted(maps.Keys(w.ByKey))
		from := make(map[int]string, len(keys))
		for _, k := range keys {
			l := keyLabel(k, labels[0].Kind())
			i, ok := idx[l]
			if !ok {
				return nil, errs.NotFoundf("weights refers to unknown face %q", k)
			}
			if prev, dup := from[i]; dup {
				return nil, errs.Validationf("weights keys %q and %q refer to the same face %s", prev, k, labels[i])
			}
			from[i] = k
			out[i] = w.ByKey[k]
		}
	}
	for i, v := range out {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, errs.Validationf("weight for face %s must be a finite number >= 0, got %v", labels[i], v)
		}
	}
	return out, nil
}

// keyLabel 對應表的 key 一律是字串；數值骰子以數值比對（"6" 與 "6.0" 相同）。
func keyLabel(k string, kind face.Kind) face.Label {
	if kind == face.Number {
		if f, err := strconv.ParseFloat(strings.TrimSpace(k), 64); err == nil {
			return face.Num(f)
		}
	}
	return face.Str(k)
}
