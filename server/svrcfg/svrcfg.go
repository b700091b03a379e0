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

// Package svrcfg server 啟動所需的依賴與參數。
//
// 依賴（Lab、Archive、Logger）一律由呼叫端注入；FromEnv 只負責讀取純量參數。
package svrcfg

import (
	"log/slog"

	"github.com/caarlos0/env/v11"
	"github.com/zintix-labs/dicelab"
	"github.com/zintix-labs/dicelab/archive"
	"github.com/zintix-labs/dicelab/errs"
	"github.com/zintix-labs/dicelab/server/logger"
)

const (
	DefaultAddr      = ":5808"
	DefaultMaxRounds = 1_000_000
	DefaultWorkers   = 4
)

// Env 環境變數參數；旗標（cmd/svr）優先於環境變數。
type Env struct {
	Addr      string `env:"DICELAB_ADDR"       envDefault:":5808"`
	LogMode   string `env:"DICELAB_LOG_MODE"   envDefault:"dev"`
	Archive   string `env:"DICELAB_ARCHIVE"`
	MaxRounds int    `env:"DICELAB_MAX_ROUNDS" envDefault:"1000000"`
}

// FromEnv 讀取環境變數並檢查 LogMode。
func FromEnv() (*Env, error) {
	var e Env
	if err := env.Parse(&e); err != nil {
		return nil, errs.Wrap(err, "svrcfg: parse env")
	}
	if _, err := logger.ParseMode(e.LogMode); err != nil {
		return nil, err
	}
	return &e, nil
}

type SvrCfg struct {
	Log       *slog.Logger
	Lab       *dicelab.Lab
	Archive   *archive.Store // nil 時不提供 /runs 並且不保存結果
	MaxRounds int            // 單次請求的局數上限
	Workers   int            // /sim 平行 worker 數
	Addr      string
}

// Valid 檢查並補上預設值。
func (sc *SvrCfg) Valid() error {
	if sc.Log != nil {
		if ah, ok := sc.Log.Handler().(*logger.AsyncHandler); ok && !ah.Ready() {
			return errs.NewFatal("nil default log handler: async handler is nil")
		}
	} else {
		sc.Log, _ = logger.NewAsync(1024, logger.ModeDev)
	}
	if sc.Lab == nil {
		return errs.NewFatal("lab is required")
	}
	if sc.MaxRounds <= 0 {
		sc.MaxRounds = DefaultMaxRounds
	}
	// 1 <= Workers <= 16，避免單一請求占滿 CPU
	sc.Workers = max(1, sc.Workers)
	sc.Workers = min(16, sc.Workers)
	if sc.Addr == "" {
		sc.Addr = DefaultAddr
	}
	return nil
}
