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

// Package errs 定義 dicelab 統一的錯誤型別。
//
// 每個錯誤同時帶有兩個維度：
//   - ErrLevel：嚴重程度（Fatal/Warn/Log），讓最上層決定要中止、回報或只記錄。
//   - Kind：錯誤類別（TypeKind/Validation/NotFound），讓呼叫端依類別處理。
package errs

import (
	"errors"
	"fmt"
)

// ErrLevel : Error 分級，使最上層理解問題嚴重程度
type ErrLevel uint8

const (
	None ErrLevel = iota
	Fatal
	Warn
	Log
)

var errLvMap = map[ErrLevel]string{
	None:  "",
	Fatal: "fatal",
	Warn:  "warn",
	Log:   "log",
}

func ErrLv(errlv ErrLevel) string {
	if str, ok := errLvMap[errlv]; ok {
		return str
	}
	return ""
}

// Kind : 錯誤類別
//
//   - TypeKind   參數形狀或型別錯誤（例如不是序列、權重無法轉成數值）
//   - Validation 型別正確但違反領域規則（重複點數、局數非正、權重為負...）
//   - NotFound   參照的點數不存在於骰子上
type Kind uint8

const (
	KindNone Kind = iota
	TypeKind
	Validation
	NotFound
)

var kindMap = map[Kind]string{
	KindNone:   "",
	TypeKind:   "type",
	Validation: "validation",
	NotFound:   "not_found",
}

func (k Kind) String() string {
	if str, ok := kindMap[k]; ok {
		return str
	}
	return ""
}

// 類別哨兵，只用於 errors.Is 比對類別：errors.Is(err, errs.ErrValidation)
var (
	ErrTypeKind   = &E{Message: "type error", ErrLv: Warn, Kind: TypeKind}
	ErrValidation = &E{Message: "validation error", ErrLv: Warn, Kind: Validation}
	ErrNotFound   = &E{Message: "not found", ErrLv: Warn, Kind: NotFound}
)

// E 是統一的錯誤型別。
// Message 為主訊息；Extra 為呼叫端可追加的額外上下文；
// Cause 可串接下層錯誤（wrap）；ErrLv 為嚴重程度；Kind 為錯誤類別。
type E struct {
	Message string
	Extra   string
	Cause   error
	ErrLv   ErrLevel
	Kind    Kind
}

// Error 實作 error 介面並回傳格式化後的錯誤訊息。
func (e *E) Error() string {
	base := fmt.Sprintf("errlv=%s %s", ErrLv(e.ErrLv), e.Message)
	if e.Kind != KindNone {
		base = fmt.Sprintf("errlv=%s kind=%s %s", ErrLv(e.ErrLv), e.Kind, e.Message)
	}
	if e.Extra != "" {
		base += " | extra: " + e.Extra
	}
	if e.Cause != nil {
		base += fmt.Sprintf(" (cause: %v)", e.Cause)
	}
	return base
}

// Unwrap 讓 errors.Is / errors.As 能夠向下展開。
func (e *E) Unwrap() error { return e.Cause }

// Is 以類別比對：只要 target 是帶有 Kind 的 *E，且類別相同即視為命中。
func (e *E) Is(target error) bool {
	t, ok := target.(*E)
	if !ok {
		return false
	}
	if e == t {
		return true
	}
	return t.Kind != KindNone && e.Kind == t.Kind
}

// New 依錯誤等級與訊息建立錯誤
func New(errLv ErrLevel, msg string) *E {
	return &E{Message: msg, ErrLv: errLv}
}

func NewFatal(msg string) *E {
	return &E{Message: msg, ErrLv: Fatal}
}

func NewWarn(msg string) *E {
	return &E{Message: msg, ErrLv: Warn}
}

func NewLog(msg string) *E {
	return &E{Message: msg, ErrLv: Log}
}

func Fatalf(format string, a ...any) *E {
	return NewFatal(fmt.Sprintf(format, a...))
}

func Warnf(format string, a ...any) *E {
	return NewWarn(fmt.Sprintf(format, a...))
}

// NewType 參數型別錯誤（呼叫端問題，Warn）
func NewType(msg string) *E {
	return &E{Message: msg, ErrLv: Warn, Kind: TypeKind}
}

// NewValidation 違反領域規則（呼叫端問題，Warn）
func NewValidation(msg string) *E {
	return &E{Message: msg, ErrLv: Warn, Kind: Validation}
}

// NewNotFound 參照不存在（呼叫端問題，Warn）
func NewNotFound(msg string) *E {
	return &E{Message: msg, ErrLv: Warn, Kind: NotFound}
}

func Typef(format string, a ...any) *E {
	return NewType(fmt.Sprintf(format, a...))
}

func Validationf(format string, a ...any) *E {
	return NewValidation(fmt.Sprintf(format, a...))
}

func NotFoundf(format string, a ...any) *E {
	return NewNotFound(fmt.Sprintf(format, a...))
}

// NewWithExtra 與 New 相同，但可附加額外上下文字串（不影響主訊息）。
func NewWithExtra(errLv ErrLevel, msg string, extra string) *E {
	e := New(errLv, msg)
	e.Extra = extra
	return e
}

// Wrap 使用給定訊息包裝底層錯誤，建立一個 *E。
//
// ErrLevel / Kind 規則：
//   - 若 cause 已經是 *E，則沿用其 ErrLv 與 Kind（保持原本嚴重度與類別）。
//   - 若 cause 不是本包定義的 *E（多半是標準庫或三方依賴錯誤），則 ErrLv 一律視為 Fatal。
func Wrap(cause error, msg string) *E {
	var e *E
	errLv := Fatal
	kind := KindNone
	if errors.As(cause, &e) {
		errLv = e.ErrLv
		kind = e.Kind
	}
	r := New(errLv, msg)
	r.Kind = kind
	r.Cause = cause
	return r
}

// WrapWithExtra 與 Wrap 相同，但可附加上下文。
func WrapWithExtra(cause error, msg string, extra string) *E {
	r := Wrap(cause, msg)
	r.Extra = extra
	return r
}

func AsErr(err error) (*E, bool) {
	var e *E
	if errors.As(err, &e) {
		return e, true
	}
	return e, false
}

// KindOf 回傳錯誤鏈上第一個帶有類別的 *E 之類別，沒有則回傳 KindNone。
func KindOf(err error) Kind {
	for err != nil {
		if e, ok := err.(*E); ok && e.Kind != KindNone {
			return e.Kind
		}
		err = errors.Unwrap(err)
	}
	return KindNone
}

// IsKind 判斷錯誤鏈上是否帶有指定類別。
func IsKind(err error, k Kind) bool {
	return KindOf(err) == k
}
