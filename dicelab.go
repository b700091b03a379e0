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

// Package dicelab 提供擲骰實驗室的「組裝入口（assembler）」與「運行入口（runtime entry）」。
//
// Lab 持有一份實驗目錄（Catalog），負責把設定檔（fs.FS）轉成可執行的 Game 與 Simulator：
//  1. Catalog：實驗目錄，定義有哪些實驗、各自對應的設定檔名稱。
//  2. Setting：每個實驗的骰子、權重、抽樣演算法與預設局數。
//  3. Seed：每個 Game 以種子出生，相同設定 + 相同種子產生相同結果。
//
// 使用流程分成兩階段：
//   - 註冊/組裝階段：建立 catalog、掃描設定檔、檢查重複與缺漏，最後 Freeze。
//   - 執行階段：依實驗 ID 建立 Game 或 Simulator。
//
//	lab, _ := dicelab.NewAuto(dicelab.Configs(demo_configs.FS)...)
//	sim, _ := lab.NewSimulator(1, 42)
//	rep, used, _ := sim.RunMP(100000, 4, true)
//	rep.StdOut(used)
package dicelab

import (
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/zintix-labs/dicelab/catalog"
	"github.com/zintix-labs/dicelab/errs"
	"github.com/zintix-labs/dicelab/game"
	"github.com/zintix-labs/dicelab/sdk/core"
	"github.com/zintix-labs/dicelab/server/logger"
	"github.com/zintix-labs/dicelab/setting"
)

// Configs 用來把一或多個設定檔來源（fs.FS）打包成 New() 需要的參數。
//
// 可以用 go:embed 把設定編進 binary，也可以用 os.DirFS 在本機讀取目錄。
func Configs(cfgs ...fs.FS) []fs.FS {
	return cfgs
}

// Lab 實驗室
type Lab struct {
	cat *catalog.Catalog
	log *slog.Logger
	sum []catalog.Summary
}

// New 建立 Lab（註冊階段）。cfgs 至少一個。
func New(cfgs ...fs.FS) (*Lab, error) {
	if len(cfgs) == 0 {
		return nil, errs.NewFatal("configs required")
	}
	cata, err := catalog.New(cfgs...)
	if err != nil {
		return nil, err
	}
	return &Lab{
		cat: cata,
		log: logger.NewDefaultLogger(logger.ModeSilence),
	}, nil
}

// NewAuto 建立並直接進入執行階段的 Lab：RegisterAll + Freeze。
func NewAuto(cfgs ...fs.FS) (*Lab, error) {
	lab, err := New(cfgs...)
	if err != nil {
		return nil, err
	}
	if err := lab.RegisterAll(); err != nil {
		return nil, err
	}
	lab.Freeze()
	return lab, nil
}

// SetLogger 注入 logger，nil 時維持靜默。
func (l *Lab) SetLogger(log *slog.Logger) *Lab {
	if log != nil {
		l.log = log
	}
	return l
}

func (l *Lab) Logger() *slog.Logger { return l.log }

func (l *Lab) Register(ents ...catalog.Entry) error {
	return l.cat.Register(ents...)
}

// RegisterAll
//
// 掃描 catalog 持有的設定檔來源，把所有 .yaml/.yml/.json 解析成 ExperimentSetting，
// 並以設定內宣告的 ID / Name 批次註冊。
//
//  1. Fail-fast：任何一個檔案讀取/解析失敗都立刻回傳 error。
//  2. 原子性：全部成功才一次性 Register，不會留下註冊一半的 catalog。
//  3. 穩定性：WalkDir 依檔名排序處理。
func (l *Lab) RegisterAll() error {
	sources := l.cat.Cfg().Sources()
	if len(sources) == 0 {
		return errs.NewFatal("configs required")
	}

	entries := make([]catalog.Entry, 0, 16)
	seenID := map[setting.EID]string{}
	seenName := map[string]string{}

	for _, src := range sources {
		walkErr := fs.WalkDir(src, ".", func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path == "." {
					return nil
				}
				return errs.NewFatal(fmt.Sprintf("configs must be flat (no subdir): %q", path))
			}
			base := filepath.Base(path)
			if strings.HasPrefix(base, ".") {
				return nil
			}
			ext := strings.ToLower(filepath.Ext(base))
			if ext != ".yaml" && ext != ".yml" && ext != ".json" {
				return nil
			}

			raw, rerr := fs.ReadFile(src, path)
			if rerr != nil {
				return errs.Wrap(rerr, fmt.Sprintf("read config failed: %s", base))
			}
			es, perr := setting.DecodeFile(base, raw)
			if perr != nil {
				return errs.WrapWithExtra(perr, "parse experiment setting failed", base)
			}

			if prev, ok := seenID[es.ID]; ok {
				return errs.NewFatal(fmt.Sprintf("duplicate experiment id: %d (config=%s and %s)", es.ID, prev, base))
			}
			if _, ok := l.cat.GetByID(es.ID); ok {
				return errs.NewFatal(fmt.Sprintf("experiment id already registered: %d (config=%s)", es.ID, base))
			}
			seenID[es.ID] = base

			nameKey := strings.ToLower(es.Name)
			if prev, ok := seenName[nameKey]; ok {
				return errs.NewFatal(fmt.Sprintf("duplicate experiment name: %s (config=%s and %s)", nameKey, prev, base))
			}
			if _, ok := l.cat.GetByName(es.Name); ok {
				return errs.NewFatal(fmt.Sprintf("experiment name already registered: %s (config=%s)", es.Name, base))
			}
			seenName[nameKey] = base

			entries = append(entries, catalog.Entry{ID: es.ID, Name: es.Name, ConfigName: base})
			return nil
		})
		if walkErr != nil {
			return walkErr
		}
	}

	if len(entries) == 0 {
		return errs.NewFatal("no config files found to register")
	}
	if err := l.cat.Register(entries...); err != nil {
		return err
	}
	l.log.Info("experiments registered", slog.Int("count", len(entries)))
	return nil
}

func (l *Lab) Freeze() {
	l.cat.Freeze()
}

func (l *Lab) EntryByID(id setting.EID) (catalog.Entry, bool) {
	return l.cat.GetByID(id)
}

func (l *Lab) EntryByName(name string) (catalog.Entry, bool) {
	return l.cat.GetByName(name)
}

func (l *Lab) IDs() []setting.EID {
	return l.cat.IDs()
}

func (l *Lab) All() []catalog.Entry {
	return l.cat.All()
}

// Experiments 所有實驗摘要（依 ID 排序），需先 Freeze。
func (l *Lab) Experiments() ([]catalog.Summary, error) {
	if !l.cat.IsFrozen() {
		return nil, errs.NewFatal("catalog is not frozen yet")
	}
	if l.sum != nil {
		return l.sum, nil
	}
	ids := l.cat.IDs()
	cs := make([]catalog.Summary, 0, len(ids))
	for _, id := range ids {
		es, err := l.cat.SettingByID(id)
		if err != nil {
			return nil, errs.Wrap(err, "parse experiment setting failed")
		}
		cs = append(cs, catalog.SummaryOf(es))
	}
	l.sum = cs
	return l.sum, nil
}

// Setting 取得實驗設定（每次重新解析，呼叫端可自由修改）。
func (l *Lab) Setting(id setting.EID) (*setting.ExperimentSetting, error) {
	if !l.cat.IsFrozen() {
		return nil, errs.NewFatal("catalog is not frozen yet")
	}
	return l.cat.SettingByID(id)
}

// NewGame 依實驗 ID 建立 Game，骰子種子由 seed 推導。
func (l *Lab) NewGame(id setting.EID, seed int64) (*game.Game, error) {
	es, err := l.Setting(id)
	if err != nil {
		return nil, err
	}
	return es.BuildGame(seed)
}

// NewGameBySetting 由臨時設定（不需在目錄中）建立 Game，format 為 json / yaml。
func (l *Lab) NewGameBySetting(raw []byte, format string, seed int64) (*game.Game, *setting.ExperimentSetting, error) {
	es, err := setting.Decode(raw, format)
	if err != nil {
		return nil, nil, err
	}
	g, err := es.BuildGame(seed)
	if err != nil {
		return nil, nil, err
	}
	return g, es, nil
}

// NewSimulator 依實驗 ID 建立 Simulator。
func (l *Lab) NewSimulator(id setting.EID, seed int64) (*Simulator, error) {
	es, err := l.Setting(id)
	if err != nil {
		return nil, err
	}
	return newSimulator(es, seed, l.log)
}

// NewSimulatorRandom 與 NewSimulator 相同，種子由 crypto/rand 產生。
func (l *Lab) NewSimulatorRandom(id setting.EID) (*Simulator, error) {
	seed, err := core.RandomSeed()
	if err != nil {
		return nil, errs.Wrap(err, "random seed")
	}
	return l.NewSimulator(id, seed)
}

// NewSimulatorBySetting 由臨時設定建立 Simulator。
func (l *Lab) NewSimulatorBySetting(raw []byte, format string, seed int64) (*Simulator, error) {
	es, err := setting.Decode(raw, format)
	if err != nil {
		return nil, err
	}
	return newSimulator(es, seed, l.log)
}
