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

package stats

import (
	"encoding/json"
	"io"
	"strings"

	"github.com/zintix-labs/dicelab/errs"
	"gopkg.in/yaml.v3"
)

// ReportRender 定義輸出行為
type ReportRender interface {
	Write(w io.Writer, r *Report) error
}

// NewRender 依格式名稱取得渲染器：json / yaml。
func NewRender(format string) (ReportRender, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json":
		return &JsonReportRender{}, nil
	case "yaml", "yml":
		return &YAMLReportRender{}, nil
	default:
		return nil, errs.Validationf("stats: unknown render format %q (json|yaml)", format)
	}
}

// Json渲染
type JsonReportRender struct{}

func (jr *JsonReportRender) Write(w io.Writer, r *Report) error {
	return json.NewEncoder(w).Encode(r)
}

// YAML渲染
type YAMLReportRender struct{}

func (yr *YAMLReportRender) Write(w io.Writer, r *Report) error {
	// 只有「最內層的一維陣列」輸出成 flow style：[..., ...]，外層維度維持展開
	return forceReadableList(w, r)
}

type EstimateRender interface {
	Write(w io.Writer, e *BatchEstimate) error
}

type JsonEstimateRender struct{}

func (jr *JsonEstimateRender) Write(w io.Writer, e *BatchEstimate) error {
	return json.NewEncoder(w).Encode(e)
}

type YAMLEstimateRender struct{}

func (yr *YAMLEstimateRender) Write(w io.Writer, e *BatchEstimate) error {
	return forceReadableList(w, e)
}

// WriteYAML 以報表相同的風格（最內層一維陣列用 flow style）輸出任意結構。
func WriteYAML[T any](w io.Writer, v *T) error {
	return forceReadableList(w, v)
}

// YAML 內層方法
func forceReadableList[T any](w io.Writer, t *T) error {
	var node yaml.Node
	if err := node.Encode(t); err != nil {
		return err
	}

	// 自頂向下調整所有 sequence node 的 style：
	// - 若該 sequence 內部「沒有子 sequence」，代表它是最內層的一維 => 用 flow style: [...]
	// - 若該 sequence 內部「有子 sequence」，代表它是外層維度 => 保持預設 block（展開）
	styleReadableSequences(&node)

	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(&node)
}

func styleReadableSequences(n *yaml.Node) {
	if n == nil {
		return
	}

	switch n.Kind {
	case yaml.DocumentNode, yaml.MappingNode:
		for _, c := range n.Content {
			styleReadableSequences(c)
		}
		return

	case yaml.SequenceNode:
		hasChildSeq := false
		for _, c := range n.Content {
			if c != nil && (c.Kind == yaml.SequenceNode || c.Kind == yaml.MappingNode) {
				hasChildSeq = true
				break
			}
		}

		for _, c := range n.Content {
			styleReadableSequences(c)
		}

		if !hasChildSeq {
			n.Style = yaml.FlowStyle
		}
		return

	default:
		return
	}
}
