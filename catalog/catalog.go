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

// Package catalog 實驗目錄：實驗 ID / 名稱 與設定檔名稱的對照。
//
// 設定檔一律由一或多個「平坦」的 fs.FS 提供（不可有子目錄），檔名在所有來源中必須唯一。
package catalog

import (
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/zintix-labs/dicelab/errs"
	"github.com/zintix-labs/dicelab/face"
	"github.com/zintix-labs/dicelab/setting"
)

var (
	ErrDupID   = errs.NewFatal("duplicate experiment id")
	ErrDupName = errs.NewFatal("duplicate experiment name")
)

type Entry struct {
	ID         setting.EID
	Name       string
	ConfigName string
}

// Summary 實驗摘要（API 列表用）
type Summary struct {
	ID          setting.EID  `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Rounds      int          `json:"rounds"`
	Sampler     string       `json:"sampler"`
	Dice        int          `json:"dice"`
	Faces       []face.Label `json:"faces"`
}

// SummaryOf 由設定產生摘要
func SummaryOf(es *setting.ExperimentSetting) Summary {
	return Summary{
		ID:          es.ID,
		Name:        es.Name,
		Description: es.Description,
		Rounds:      es.Rounds,
		Sampler:     es.Sampler,
		Dice:        es.TotalDice(),
		Faces:       es.Labels(),
	}
}

type Catalog struct {
	byID   map[setting.EID]Entry
	byName map[string]Entry
	ids    []setting.EID       // 用來穩定排序
	unique map[string]struct{} // 一組實驗，檔名需唯一
	config *multiFS
	frozen bool
}

func New(cfg ...fs.FS) (*Catalog, error) {
	multFS, err := newMultiFS(cfg...)
	if err != nil {
		return nil, errs.Wrap(err, "can not create catalog")
	}
	return &Catalog{
		byID:   map[setting.EID]Entry{},
		byName: map[string]Entry{},
		ids:    make([]setting.EID, 0, 100),
		unique: map[string]struct{}{},
		config: multFS,
		frozen: false,
	}, nil
}

func (c *Catalog) Register(metas ...Entry) error {
	if c.frozen {
		return errs.NewWarn("can not register when catalog already frozen")
	}
	seenID := map[setting.EID]struct{}{}
	seenName := map[string]struct{}{}
	seenCfg := map[string]struct{}{}
	for _, meta := range metas {
		meta.Name = normName(meta.Name)
		if meta.Name == "" {
			return errs.NewFatal("experiment name required")
		}
		if err := validFileName(meta.ConfigName); err != nil {
			return err
		}
		if _, ok := c.config.index[meta.ConfigName]; !ok {
			return errs.NewFatal(fmt.Sprintf("config file not found: %s", meta.ConfigName))
		}
		if _, ok := c.byID[meta.ID]; ok {
			return ErrDupID
		}
		if _, ok := c.byName[meta.Name]; ok {
			return ErrDupName
		}
		if _, ok := c.unique[meta.ConfigName]; ok {
			return errs.NewFatal(fmt.Sprintf("duplicate config name: %s", meta.ConfigName))
		}
		if _, ok := seenID[meta.ID]; ok {
			return ErrDupID
		}
		if _, ok := seenName[meta.Name]; ok {
			return ErrDupName
		}
		if _, ok := seenCfg[meta.ConfigName]; ok {
			return errs.NewFatal(fmt.Sprintf("duplicate config name: %s", meta.ConfigName))
		}
		seenID[meta.ID] = struct{}{}
		seenName[meta.Name] = struct{}{}
		seenCfg[meta.ConfigName] = struct{}{}
	}
	for _, meta := range metas {
		meta.Name = normName(meta.Name)
		c.unique[meta.ConfigName] = struct{}{}
		c.byID[meta.ID] = meta
		c.byName[meta.Name] = meta
		c.ids = append(c.ids, meta.ID)
	}
	sort.Slice(c.ids, func(i, j int) bool { return c.ids[i] < c.ids[j] })
	return nil
}

func (c *Catalog) GetByID(id setting.EID) (Entry, bool) {
	m, ok := c.byID[id]
	return m, ok
}

func (c *Catalog) GetByName(name string) (Entry, bool) {
	m, ok := c.byName[normName(name)]
	return m, ok
}

func (c *Catalog) IDs() []setting.EID {
	if len(c.ids) == 0 {
		return nil
	}
	return append([]setting.EID(nil), c.ids...)
}

func (c *Catalog) All() []Entry {
	order := c.IDs()
	m := make([]Entry, 0, len(c.ids))
	for _, id := range order {
		if meta, ok := c.GetByID(id); ok {
			m = append(m, meta)
		}
	}
	return m
}

func (c *Catalog) Cfg() *multiFS {
	return c.config
}

func (c *Catalog) Freeze() {
	c.frozen = true
}

func (c *Catalog) IsFrozen() bool {
	return c.frozen
}

func normName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func validFileName(file string) error {
	if file == "" {
		return errs.NewFatal("empty config filename")
	}
	// 1) 不能包含路徑或類似字元
	if strings.ContainsAny(file, `/\:`) {
		return errs.NewFatal(fmt.Sprintf("invalid config filename: %q (must be a basename; no / \\\\ :) ", file))
	}
	// 2) 必須以 .yaml/.yml/.json 結尾（大小寫不敏感）
	lower := strings.ToLower(file)
	if !(strings.HasSuffix(lower, ".yaml") || strings.HasSuffix(lower, ".yml") || strings.HasSuffix(lower, ".json")) {
		return errs.NewFatal(fmt.Sprintf("invalid config filename: %q (must end with .yaml, .yml, or .json)", file))
	}
	// 3) 不能以 . 開頭（防止直接 .yaml / .yml）
	if strings.HasPrefix(file, ".") {
		return errs.NewFatal(fmt.Sprintf("invalid config filename: %q (cannot start with '.')", file))
	}
	return nil
}

// SettingByID
//
// 會讀取 fs.FS 中的 YAML/JSON 設定、初始化並執行基本檢查後回傳
func (c *Catalog) SettingByID(id setting.EID) (*setting.ExperimentSetting, error) {
	e, ok := c.GetByID(id)
	if !ok {
		return nil, errs.NotFoundf("experiment id %d does not exist in catalog", id)
	}
	return c.read(e)
}

// SettingByName
//
// 會讀取 fs 中的 YAML/JSON 設定、初始化並執行基本檢查後回傳
func (c *Catalog) SettingByName(name string) (*setting.ExperimentSetting, error) {
	e, ok := c.GetByName(name)
	if !ok {
		return nil, errs.NotFoundf("experiment %q does not exist in catalog", name)
	}
	return c.read(e)
}

func (c *Catalog) read(e Entry) (*setting.ExperimentSetting, error) {
	src, ok := c.config.GetFS(e.ConfigName)
	if !ok {
		return nil, errs.NotFoundf("config file %s does not exist in catalog", e.ConfigName)
	}
	raw, err := fs.ReadFile(src, e.ConfigName)
	if err != nil {
		return nil, errs.Wrap(err, "catalog read file error")
	}
	return setting.DecodeFile(e.ConfigName, raw)
}

type multiFS struct {
	src   []fs.FS
	index map[string]int // name -> src index
}

func newMultiFS(src ...fs.FS) (*multiFS, error) {
	if len(src) == 0 {
		return nil, errs.NewFatal("no fs provided")
	}
	for i, s := range src {
		if s == nil {
			return nil, errs.NewFatal(fmt.Sprintf("fs[%d] is nil", i))
		}
	}

	m := &multiFS{
		src:   src,
		index: make(map[string]int, 256),
	}

	// eager validate: build index and detect duplicates
	for i := 0; i < len(src); i++ {
		err := fs.WalkDir(src[i], ".", func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				// 只允許根目錄 "."，任何子目錄都視為錯誤（即使裡面沒有設定檔）
				if path == "." {
					return nil
				}
				return errs.NewFatal(fmt.Sprintf("config FS must be flat (no subdirectories): %q", path))
			}

			if strings.Contains(path, "/") {
				return errs.NewFatal(fmt.Sprintf("config FS must be flat (no subdirectories): %q", path))
			}

			// 只索引 yaml/json，其他檔案（例如 embed.go）略過
			lower := strings.ToLower(path)
			if !(strings.HasSuffix(lower, ".yaml") || strings.HasSuffix(lower, ".yml") || strings.HasSuffix(lower, ".json")) {
				return nil
			}

			name := path // flat FS guarantees path is a basename

			if prev, ok := m.index[name]; ok {
				return errs.NewFatal(fmt.Sprintf("duplicate config %q in fs[%d] and fs[%d]", name, prev, i))
			}
			m.index[name] = i
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *multiFS) GetFS(name string) (fs.FS, bool) {
	if id, ok := m.index[name]; ok {
		return m.src[id], ok
	}
	return nil, false
}

// Sources exposes config FS sources for read-only iteration.
func (m *multiFS) Sources() []fs.FS {
	if m == nil || len(m.src) == 0 {
		return nil
	}
	return append([]fs.FS(nil), m.src...)
}
