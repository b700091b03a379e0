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

// Package demo 以內建的示範實驗組裝常用物件，方便範例與測試直接取用。
package demo

import (
	"github.com/zintix-labs/dicelab"
	"github.com/zintix-labs/dicelab/catalog"
	"github.com/zintix-labs/dicelab/demo/demo_configs"
	"github.com/zintix-labs/dicelab/errs"
	"github.com/zintix-labs/dicelab/server/logger"
	"github.com/zintix-labs/dicelab/server/svrcfg"
)

// New 只建立目錄（尚未註冊）
func New() (*catalog.Catalog, error) {
	return catalog.New(demo_configs.FS)
}

// NewLab 註冊並凍結所有示範實驗
func NewLab() (*dicelab.Lab, error) {
	return dicelab.NewAuto(dicelab.Configs(demo_configs.FS)...)
}

// NewServerConfig 示範用的 server 設定（dev log，不保存結果）。
func NewServerConfig() (*svrcfg.SvrCfg, error) {
	lab, err := NewLab()
	if err != nil {
		return nil, errs.Wrap(err, "new dicelab failed")
	}
	scfg := &svrcfg.SvrCfg{
		Log: logger.NewDefaultLogger(logger.ModeDev),
		Lab: lab,
	}
	return scfg, scfg.Valid()
}
