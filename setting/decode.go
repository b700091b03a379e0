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

package setting

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"

	"github.com/zintix-labs/dicelab/errs"
	"gopkg.in/yaml.v3"
)

// FromYAML 讀取 YAML 設定、初始化並執行基本檢查後回傳。未知欄位視為錯誤。
func FromYAML(data []byte) (*ExperimentSetting, error) {
	es := &ExperimentSetting{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true) // 嚴格檢查：多寫/拼錯欄位就報錯
	if err := dec.Decode(es); err != nil {
		return nil, errs.Wrap(errs.Validationf("setting: invalid yaml: %v", err), "failed to unmarshal yaml")
	}
	if err := es.init(); err != nil {
		return nil, err
	}
	return es, nil
}

// FromJSON 讀取 JSON 設定、初始化並執行基本檢查後回傳。未知欄位視為錯誤。
func FromJSON(data []byte) (*ExperimentSetting, error) {
	es := &ExperimentSetting{}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	dec.UseNumber()
	if err := dec.Decode(es); err != nil {
		return nil, errs.Wrap(errs.Validationf("setting: invalid json: %v", err), "failed to unmarshal json")
	}
	if err := es.init(); err != nil {
		return nil, err
	}
	return es, nil
}

// Decode 依格式名稱（json / yaml / yml）解析設定。
func Decode(data []byte, format string) (*ExperimentSetting, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json":
		return FromJSON(data)
	case "yaml", "yml":
		return FromYAML(data)
	default:
		return nil, errs.Validationf("setting: unsupported format %q (json|yaml)", format)
	}
}

// DecodeFile 依副檔名解析設定
func DecodeFile(filename string, data []byte) (*ExperimentSetting, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	es, err := Decode(data, ext)
	if err != nil {
		return nil, errs.WrapWithExtra(err, "setting: decode file failed", filename)
	}
	return es, nil
}
