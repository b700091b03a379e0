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

package die

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/zintix-labs/dicelab/errs"
)

// CoerceWeight 權重唯一的轉型入口。
//
// 接受所有整數、浮點數、json.Number 與可解析為數值的字串；其他型別（bool、nil、slice...）
// 或無法解析的字串回傳 TypeKind。轉型後的值仍須由 SetWeight 檢查範圍。
func CoerceWeight(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int8:
		return float64(x), nil
	case int16:
		return float64(x), nil
	case int32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case uint:
		return float64(x), nil
	case uint8:
		return float64(x), nil
	case uint16:
		return float64(x), nil
	case uint32:
		return float64(x), nil
	case uint64:
		return float64(x), nil
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return 0, errs.Typef("die: weight %q is not numeric", x.String())
		}
		return f, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, errs.Typef("die: weight %q is not numeric", x)
		}
		if math.IsNaN(f) {
			return 0, errs.Validationf("die: weight %q is NaN", x)
		}
		return f, nil
	default:
		return 0, errs.Typef("die: weight must be numeric, got %T", v)
	}
}
