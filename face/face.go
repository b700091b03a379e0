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

// Package face 定義骰子的點數（Label）。
//
// 一顆骰子的所有點數必須同類（全部數值或全部文字）且不可重複。
// Label 是可比較的值型別，可以直接當 map key。
package face

import (
	"bytes"
	"cmp"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"slices"
	"strconv"

	"github.com/zintix-labs/dicelab/errs"
)

// Kind 點數類別
type Kind uint8

const (
	Invalid Kind = iota
	Number
	Text
)

func (k Kind) String() string {
	switch k {
	case Number:
		return "number"
	case Text:
		return "text"
	default:
		return "invalid"
	}
}

// Label 單一點數。零值為 Invalid。
type Label struct {
	kind Kind
	num  float64
	str  string
}

// Num 建立數值點數。
func Num(v float64) Label {
	if v == 0 {
		v = 0 // -0 與 0 視為同一點數
	}
	return Label{kind: Number, num: v}
}

// Str 建立文字點數。
func Str(s string) Label {
	return Label{kind: Text, str: s}
}

// Ints 便利函數：由整數建立點數序列。
func Ints(vs ...int) []Label {
	out := make([]Label, len(vs))
	for i, v := range vs {
		out[i] = Num(float64(v))
	}
	return out
}

// Floats 便利函數：由浮點數建立點數序列。
func Floats(vs ...float64) []Label {
	out := make([]Label, len(vs))
	for i, v := range vs {
		out[i] = Num(v)
	}
	return out
}

// Strs 便利函數：由字串建立點數序列。
func Strs(vs ...string) []Label {
	out := make([]Label, len(vs))
	for i, v := range vs {
		out[i] = Str(v)
	}
	return out
}

func (l Label) Kind() Kind { return l.kind }

func (l Label) IsValid() bool { return l.kind != Invalid }

// Float 回傳數值，文字點數回傳 (0,false)。
func (l Label) Float() (float64, bool) {
	return l.num, l.kind == Number
}

// Text 回傳文字，數值點數回傳 ("",false)。
func (l Label) Text() (string, bool) {
	return l.str, l.kind == Text
}

// String 數值不帶多餘的 0（1、2.5），文字原樣輸出。
func (l Label) String() string {
	switch l.kind {
	case Number:
		return strconv.FormatFloat(l.num, 'f', -1, 64)
	case Text:
		return l.str
	default:
		return "<invalid>"
	}
}

// Compare 全序：先比類別，數值比大小，文字比位元組序。
func Compare(a, b Label) int {
	if c := cmp.Compare(a.kind, b.kind); c != 0 {
		return c
	}
	if a.kind == Number {
		return cmp.Compare(a.num, b.num)
	}
	return cmp.Compare(a.str, b.str)
}

// MarshalJSON 數值輸出為 JSON number，文字輸出為 JSON string。
func (l Label) MarshalJSON() ([]byte, error) {
	switch l.kind {
	case Number:
		return json.Marshal(l.num)
	case Text:
		return json.Marshal(l.str)
	default:
		return []byte("null"), nil
	}
}

func (l *Label) UnmarshalJSON(b []byte) error {
	var v any
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return errs.Wrap(err, "face: invalid json label")
	}
	got, err := FromValue(v)
	if err != nil {
		return err
	}
	*l = got
	return nil
}

// MarshalYAML 讓 yaml.v3 以純量輸出。
func (l Label) MarshalYAML() (any, error) {
	switch l.kind {
	case Number:
		return l.num, nil
	case Text:
		return l.str, nil
	default:
		return nil, nil
	}
}

// FromValue 由動態值建立單一點數。
//
// 支援所有整數/浮點數、json.Number 與字串；其他型別（bool、nil、map...）回傳 Validation。
func FromValue(v any) (Label, error) {
	switch x := v.(type) {
	case string:
		return Str(x), nil
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return Label{}, errs.Validationf("face: invalid number %q", x.String())
		}
		return checkedNum(f)
	case float64:
		return checkedNum(x)
	case float32:
		return checkedNum(float64(x))
	case int:
		return Num(float64(x)), nil
	case int8:
		return Num(float64(x)), nil
	case int16:
		return Num(float64(x)), nil
	case int32:
		return Num(float64(x)), nil
	case int64:
		return Num(float64(x)), nil
	case uint:
		return Num(float64(x)), nil
	case uint8:
		return Num(float64(x)), nil
	case uint16:
		return Num(float64(x)), nil
	case uint32:
		return Num(float64(x)), nil
	case uint64:
		return Num(float64(x)), nil
	case Label:
		if !x.IsValid() {
			return Label{}, errs.NewValidation("face: invalid label")
		}
		return x, nil
	default:
		return Label{}, errs.Validationf("face: unsupported label type %T (must be number or string)", v)
	}
}

func checkedNum(f float64) (Label, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Label{}, errs.Validationf("face: label must be finite, got %v", f)
	}
	return Num(f), nil
}

// Parse 由動態序列建立點數序列，並檢查同類與不重複。
//
//   - v 不是 slice/array 時回傳 TypeKind。
//   - 元素型別不支援、類別混用或點數重複時回傳 Validation。
func Parse(v any) ([]Label, error) {
	if ls, ok := v.([]Label); ok {
		out := slices.Clone(ls)
		return out, Validate(out)
	}
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return nil, errs.Typef("face: labels must be a sequence, got %T", v)
	}
	// []byte 是字串資料，不是點數序列
	if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
		return nil, errs.Typef("face: labels must be a sequence, got %T", v)
	}
	out := make([]Label, rv.Len())
	for i := range out {
		l, err := FromValue(rv.Index(i).Interface())
		if err != nil {
			return nil, errs.WrapWithExtra(err, "face: invalid label", fmt.Sprintf("index=%d", i))
		}
		out[i] = l
	}
	return out, Validate(out)
}

// Validate 檢查點數序列：非空、同類、數值有限、不重複。
func Validate(labels []Label) error {
	if len(labels) == 0 {
		return errs.NewValidation("face: labels must not be empty")
	}
	kind := labels[0].kind
	seen := make(map[Label]struct{}, len(labels))
	for i, l := range labels {
		if !l.IsValid() {
			return errs.Validationf("face: invalid label at index %d", i)
		}
		if l.kind != kind {
			return errs.Validationf("face: mixed label kinds (%s and %s)", kind, l.kind)
		}
		// NaN 無法當 map key 比對，重複檢查與查詢都會失效
		if l.kind == Number && (math.IsNaN(l.num) || math.IsInf(l.num, 0)) {
			return errs.Validationf("face: label must be finite, got %v at index %d", l.num, i)
		}
		if _, ok := seen[l]; ok {
			return errs.Validationf("face: duplicate label %s", l)
		}
		seen[l] = struct{}{}
	}
	return nil
}

// SameSet 判斷兩個點數序列是否為同一集合（不看順序）。
func SameSet(a, b []Label) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[Label]struct{}, len(a))
	for _, l := range a {
		set[l] = struct{}{}
	}
	for _, l := range b {
		if _, ok := set[l]; !ok {
			return false
		}
	}
	return true
}
