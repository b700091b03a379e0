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

package dto

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/zintix-labs/dicelab/errs"
	"github.com/zintix-labs/dicelab/setting"
)

// 防止 body 過大（1MiB）
const maxBody = 1 << 20

// SimRequest /v1/sim 請求。
//
// 以 ID 或 Name 指定目錄中的實驗；POST 也可以直接帶 Experiment（臨時設定，JSON）。
// Batches > 0 時改為批次模擬：每批 Rounds 局。
type SimRequest struct {
	ID         *setting.EID    `json:"id,omitempty"`
	Name       string          `json:"name,omitempty"`
	Experiment json.RawMessage `json:"experiment,omitempty"`
	Rounds     int             `json:"rounds,omitempty"` // 0 使用實驗預設局數
	Workers    int             `json:"workers,omitempty"`
	Batches    int             `json:"batches,omitempty"`
	TopN       int             `json:"top,omitempty"`
	Seed       *int64          `json:"seed,omitempty"`
	Format     string          `json:"format,omitempty"` // json | yaml
	Save       bool            `json:"save,omitempty"`
}

// PlayRequest /v1/play 請求：擲一次 Game 並回傳結果表與分析。
type PlayRequest struct {
	ID         *setting.EID    `json:"id,omitempty"`
	Experiment json.RawMessage `json:"experiment,omitempty"`
	Rounds     int             `json:"rounds,omitempty"`
	Seed       *int64          `json:"seed,omitempty"`
	Layout     string          `json:"layout,omitempty"` // wide | narrow
	TopN       int             `json:"top,omitempty"`
	Save       bool            `json:"save,omitempty"`
}

// DecodeSimRequest GET 讀 query string，POST 讀 JSON body（未知欄位視為錯誤）。
func DecodeSimRequest(r *http.Request) (*SimRequest, error) {
	if r == nil {
		return nil, errs.NewType("nil request")
	}
	req := new(SimRequest)

	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		req.Name = strings.TrimSpace(q.Get("name"))
		req.Format = q.Get("format")

		if s := q.Get("id"); s != "" {
			v, err := strconv.Atoi(s)
			if err != nil {
				return nil, errs.Validationf("invalid id: %v", err)
			}
			id := setting.EID(v)
			req.ID = &id
		}
		var err error
		if req.Rounds, err = intParam(q.Get("rounds"), "rounds"); err != nil {
			return nil, err
		}
		if req.Workers, err = intParam(q.Get("workers"), "workers"); err != nil {
			return nil, err
		}
		if req.Batches, err = intParam(q.Get("batches"), "batches"); err != nil {
			return nil, err
		}
		if req.TopN, err = intParam(q.Get("top"), "top"); err != nil {
			return nil, err
		}
		if s := q.Get("seed"); s != "" {
			v, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return nil, errs.Validationf("invalid seed: %v", err)
			}
			req.Seed = &v
		}
		if s := q.Get("save"); s != "" {
			v, err := strconv.ParseBool(s)
			if err != nil {
				return nil, errs.Validationf("invalid save: %v", err)
			}
			req.Save = v
		}

	case http.MethodPost:
		if err := decodeJSON(r.Body, req); err != nil {
			return nil, err
		}

	default:
		return nil, errs.NewValidation("method not allowed")
	}
	return req, req.check()
}

func (sr *SimRequest) check() error {
	targets := 0
	if sr.ID != nil {
		targets++
	}
	if sr.Name != "" {
		targets++
	}
	if len(sr.Experiment) > 0 {
		targets++
	}
	if targets != 1 {
		return errs.NewValidation("exactly one of id, name or experiment is required")
	}
	if sr.Rounds < 0 || sr.Workers < 0 || sr.Batches < 0 || sr.TopN < 0 {
		return errs.NewValidation("rounds, workers, batches and top must not be negative")
	}
	switch strings.ToLower(sr.Format) {
	case "", "json", "yaml", "yml":
	default:
		return errs.Validationf("unsupported format %q (json|yaml)", sr.Format)
	}
	return nil
}

// DecodePlayRequest 只接受 POST JSON。
func DecodePlayRequest(r *http.Request) (*PlayRequest, error) {
	if r == nil {
		return nil, errs.NewType("nil request")
	}
	if r.Method != http.MethodPost {
		return nil, errs.NewValidation("method not allowed")
	}
	req := new(PlayRequest)
	if err := decodeJSON(r.Body, req); err != nil {
		return nil, err
	}
	if (req.ID == nil) == (len(req.Experiment) == 0) {
		return nil, errs.NewValidation("exactly one of id or experiment is required")
	}
	if req.Rounds < 0 || req.TopN < 0 {
		return nil, errs.NewValidation("rounds and top must not be negative")
	}
	return req, nil
}

func decodeJSON(body io.Reader, v any) error {
	if body == nil {
		return errs.NewValidation("empty body")
	}
	raw, err := io.ReadAll(io.LimitReader(body, maxBody+1))
	if err != nil {
		return errs.Wrap(err, "read body")
	}
	if len(raw) > maxBody {
		return errs.NewValidation("body too large")
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errs.Validationf("invalid json: %v", err)
	}
	return nil
}

func intParam(s, name string) (int, error) {
	if s == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, errs.Validationf("invalid %s: %v", name, err)
	}
	return v, nil
}
