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

package face

import (
	"encoding/json"
	"slices"
	"strconv"
	"strings"
)

// Key 一局的點數序列，用於組合（Combination）與排列（Permutation）統計。
//
// Key 內含 canonical 編碼（ID），相同序列必得到相同 ID，可直接當 map key：
//
//	數值: n<float>;   文字: t<len>:<text>
type Key struct {
	labels []Label
	id     string
}

// NewKey 以 labels 的順序建立 Key（複製輸入）。
func NewKey(labels []Label) Key {
	ls := slices.Clone(labels)
	return Key{labels: ls, id: encode(ls)}
}

// SortedKey 建立排序後的 Key，也就是與順序無關的組合形式。
func SortedKey(labels []Label) Key {
	ls := slices.Clone(labels)
	slices.SortFunc(ls, Compare)
	return Key{labels: ls, id: encode(ls)}
}

func encode(ls []Label) string {
	var sb strings.Builder
	for _, l := range ls {
		switch l.kind {
		case Number:
			sb.WriteByte('n')
			sb.WriteString(strconv.FormatFloat(l.num, 'g', -1, 64))
			sb.WriteByte(';')
		case Text:
			sb.WriteByte('t')
			sb.WriteString(strconv.Itoa(len(l.str)))
			sb.WriteByte(':')
			sb.WriteString(l.str)
		default:
			sb.WriteByte('x')
		}
	}
	return sb.String()
}

// ID canonical 編碼
func (k Key) ID() string { return k.id }

func (k Key) Len() int { return len(k.labels) }

// Labels 回傳副本
func (k Key) Labels() []Label { return slices.Clone(k.labels) }

// Sorted 回傳組合形式
func (k Key) Sorted() Key { return SortedKey(k.labels) }

func (k Key) Equal(o Key) bool { return k.id == o.id }

// String 形如 (1, 2, 2)
func (k Key) String() string {
	parts := make([]string, len(k.labels))
	for i, l := range k.labels {
		parts[i] = l.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// CompareKeys 逐項以 Compare 比較，前綴較短者在前。
func CompareKeys(a, b Key) int {
	return slices.CompareFunc(a.labels, b.labels, Compare)
}

func (k Key) MarshalJSON() ([]byte, error) {
	if k.labels == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(k.labels)
}

func (k *Key) UnmarshalJSON(b []byte) error {
	var ls []Label
	if err := json.Unmarshal(b, &ls); err != nil {
		return err
	}
	*k = NewKey(ls)
	return nil
}

func (k Key) MarshalYAML() (any, error) {
	return k.labels, nil
}
