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

// Package perf 包裝 runtime/pprof，讓指令可以用一個旗標切換 profiling。
package perf

import (
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"strings"

	"github.com/zintix-labs/dicelab/errs"
)

// DefaultDir pprof 檔案預設寫入路徑
const DefaultDir = "build/profiling"

// Mode profiling 種類
type Mode string

const (
	Off    Mode = ""
	CPU    Mode = "cpu"
	Heap   Mode = "heap"
	Allocs Mode = "allocs"
)

// ParseMode 空字串代表不開啟 profiling。
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case Off, CPU, Heap, Allocs:
		return m, nil
	default:
		return Off, errs.Validationf("perf: unknown pprof mode %q (cpu|heap|allocs)", s)
	}
}

// Run 依 mode 執行 exe 並把 profile 寫到 dir/<mode>.pprof；dir 為空時使用 DefaultDir。
//
// CPU profile 涵蓋整個 exe；heap 與 allocs 則是在 exe 結束後拍一次快照。
func Run(mode Mode, dir string, exe func()) (string, error) {
	if mode == Off {
		exe()
		return "", nil
	}
	if dir == "" {
		dir = DefaultDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errs.Wrap(err, "perf: create profile dir")
	}
	path := filepath.Join(dir, string(mode)+".pprof")
	f, err := os.Create(path)
	if err != nil {
		return "", errs.Wrap(err, "perf: create "+path)
	}
	defer f.Close()

	switch mode {
	case CPU:
		err = cpu(f, exe)
	case Heap:
		exe()
		// 盡量讓快照貼近最新狀態（live objects）
		runtime.GC()
		err = pprof.WriteHeapProfile(f)
	case Allocs:
		exe()
		err = pprof.Lookup("allocs").WriteTo(f, 0)
	default:
		return "", errs.Validationf("perf: unknown pprof mode %q", mode)
	}
	if err != nil {
		return "", errs.Wrap(err, "perf: write "+path)
	}
	return path, nil
}

// cpu 可作性能分析，也可以拿來做構建時給 pgo 的優化 blueprint。
//
//	go run ./cmd/run -p cpu
func cpu(f *os.File, exe func()) error {
	if err := pprof.StartCPUProfile(f); err != nil {
		return err
	}
	defer pprof.StopCPUProfile()
	exe()
	return nil
}
