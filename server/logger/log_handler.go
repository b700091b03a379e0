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
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/zintix-labs/dicelab/errs"
)

// LogMode 決定預設 handler 的格式、輸出位置與等級。
type LogMode uint8

const (
	ModeDev     LogMode = iota // text → stderr, debug
	ModeProd                   // json → stdout, info
	ModeSilence                // 全部丟棄
)

var modeNames = [...]string{ModeDev: "dev", ModeProd: "prod", ModeSilence: "silence"}

func (m LogMode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return "unknown"
}

// ParseMode 由字串（dev / prod / silence，不分大小寫）取得 LogMode；空字串視為 dev。
func ParseMode(s string) (LogMode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ModeDev, nil
	}
	for i, name := range modeNames {
		if name == s {
			return LogMode(i), nil
		}
	}
	return ModeDev, errs.Validationf("logger: unknown log mode %q (dev|prod|silence)", s)
}

// NewDefaultLogger 同步 logger，Lab / Simulator 與測試使用。
func NewDefaultLogger(mode LogMode) *slog.Logger {
	return slog.New(modeHandler(mode))
}

// NewAsync 以 mode 的預設 handler 包一層 AsyncHandler；
// 呼叫端持有 *AsyncHandler，結束前必須 Close 才會把佇列內的紀錄寫完。
func NewAsync(buf int, mode LogMode) (*slog.Logger, *AsyncHandler) {
	ah := NewAsyncHandler(modeHandler(mode), buf)
	return slog.New(ah), ah
}

func modeHandler(mode LogMode) slog.Handler {
	switch mode {
	case ModeProd:
		return slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	case ModeSilence:
		return slog.NewTextHandler(io.Discard, nil)
	default:
		return slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
}

// AsyncHandler 把 Handle 轉成 enqueue，由單一背景 goroutine 寫給下游 handler。
// 佇列滿或已 Close 時直接丟棄並計數，請求路徑不會被 I/O 卡住。
// WithAttrs / WithGroup 衍生的 handler 共用同一條佇列。
type AsyncHandler struct {
	next slog.Handler
	q    *logQueue
}

type logQueue struct {
	items   chan queued
	stop    chan struct{}
	once    sync.Once
	done    sync.WaitGroup
	dropped atomic.Uint64
}

type queued struct {
	ctx context.Context
	rec slog.Record
	h   slog.Handler
}

// NewAsyncHandler buf <= 0 時使用 1024。
func NewAsyncHandler(next slog.Handler, buf int) *AsyncHandler {
	if next == nil {
		next = modeHandler(ModeDev)
	}
	if buf <= 0 {
		buf = 1024
	}
	q := &logQueue{
		items: make(chan queued, buf),
		stop:  make(chan struct{}),
	}
	q.done.Add(1)
	go q.run()
	return &AsyncHandler{next: next, q: q}
}

func (q *logQueue) run() {
	defer q.done.Done()
	for {
		select {
		case it := <-q.items:
			_ = it.h.Handle(it.ctx, it.rec)
		case <-q.stop:
			q.drain()
			return
		}
	}
}

func (q *logQueue) drain() {
	for {
		select {
		case it := <-q.items:
			_ = it.h.Handle(it.ctx, it.rec)
		default:
			return
		}
	}
}

func (h *AsyncHandler) Ready() bool {
	return h != nil && h.q != nil
}

// Dropped 回傳因佇列滿或 Close 後寫入而丟棄的筆數。
func (h *AsyncHandler) Dropped() uint64 {
	if !h.Ready() {
		return 0
	}
	return h.q.dropped.Load()
}

// Close 停止接收並寫完佇列；可重複呼叫。
func (h *AsyncHandler) Close() {
	if !h.Ready() {
		return
	}
	h.q.once.Do(func() { close(h.q.stop) })
	h.q.done.Wait()
}

func (h *AsyncHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *AsyncHandler) Handle(ctx context.Context, r slog.Record) error {
	if !h.Ready() {
		return nil
	}
	select {
	case <-h.q.stop:
		h.q.dropped.Add(1)
		return nil
	default:
	}
	// Record 的 attrs 可能與呼叫端共用底層陣列，跨 goroutine 前先 Clone
	select {
	case h.q.items <- queued{ctx: ctx, rec: r.Clone(), h: h.next}:
	default:
		h.q.dropped.Add(1)
	}
	return nil
}

func (h *AsyncHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &AsyncHandler{next: h.next.WithAttrs(attrs), q: h.q}
}

func (h *AsyncHandler) WithGroup(name string) slog.Handler {
	return &AsyncHandler{next: h.next.WithGroup(name), q: h.q}
}
