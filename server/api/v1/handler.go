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

// Package v1 /v1 API handlers。
package v1

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/zintix-labs/dicelab"
	"github.com/zintix-labs/dicelab/archive"
	"github.com/zintix-labs/dicelab/errs"
	"github.com/zintix-labs/dicelab/sdk/core"
	"github.com/zintix-labs/dicelab/server/httperr"
	"github.com/zintix-labs/dicelab/server/netsvr"
	"github.com/zintix-labs/dicelab/server/svrcfg"
	"github.com/zintix-labs/dicelab/setting"
	"github.com/zintix-labs/dicelab/stats"
)

// Handler 持有所有 v1 handler 共用的依賴
type Handler struct {
	Lab       *dicelab.Lab
	Archive   *archive.Store
	Log       *slog.Logger
	MaxRounds int
	Workers   int
}

// NewHandler sCfg 必須已經過 Valid()。
func NewHandler(sCfg *svrcfg.SvrCfg) (*Handler, error) {
	if sCfg == nil || sCfg.Lab == nil {
		return nil, errs.NewFatal("lab is required")
	}
	return &Handler{
		Lab:       sCfg.Lab,
		Archive:   sCfg.Archive,
		Log:       sCfg.Log,
		MaxRounds: sCfg.MaxRounds,
		Workers:   sCfg.Workers,
	}, nil
}

// Experiments GET /v1/experiments
func (h *Handler) Experiments(w http.ResponseWriter, r *http.Request) {
	sum, err := h.Lab.Experiments()
	if err != nil {
		h.fail(w, "list experiments", err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// Experiment GET /v1/experiments/{id}：回傳解析後的完整設定。
func (h *Handler) Experiment(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	es, err := h.Lab.Setting(setting.EID(id))
	if err != nil {
		h.fail(w, "get experiment", err)
		return
	}
	writeJSON(w, http.StatusOK, es)
}

// Healthz GET /v1/healthz
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	type health struct {
		Status      string `json:"status"`
		Experiments int    `json:"experiments"`
		Archive     bool   `json:"archive"`
	}
	writeJSON(w, http.StatusOK, health{
		Status:      "ok",
		Experiments: len(h.Lab.IDs()),
		Archive:     h.Archive != nil,
	})
}

// resolve 依 id / name / 臨時設定取得 ExperimentSetting
func (h *Handler) resolve(id *setting.EID, name string, raw json.RawMessage) (*setting.ExperimentSetting, error) {
	switch {
	case len(raw) > 0:
		return setting.FromJSON(raw)
	case id != nil:
		return h.Lab.Setting(*id)
	default:
		e, ok := h.Lab.EntryByName(name)
		if !ok {
			return nil, errs.NotFoundf("experiment %q not found", name)
		}
		return h.Lab.Setting(e.ID)
	}
}

func (h *Handler) checkRounds(rounds int) error {
	if rounds < 1 || rounds > h.MaxRounds {
		return errs.Validationf("rounds must be between 1 and %d, got %d", h.MaxRounds, rounds)
	}
	return nil
}

func (h *Handler) canSave(want bool) error {
	if want && h.Archive == nil {
		return errs.NewValidation("archive is not configured")
	}
	return nil
}

// fail 寫回錯誤並依等級記錄
func (h *Handler) fail(w http.ResponseWriter, msg string, err error) {
	httperr.Log(h.Log, msg, err)
	httperr.Errs(w, err)
}

func seedOrRandom(seed *int64) (int64, error) {
	if seed != nil {
		return *seed, nil
	}
	s, err := core.RandomSeed()
	if err != nil {
		return 0, errs.Wrap(err, "seed generate failed")
	}
	return s, nil
}

func pathInt(r *http.Request, key string) (int64, error) {
	s := netsvr.URLParam(r, key)
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, errs.Validationf("invalid %s: %q", key, s)
	}
	return v, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeYAML[T any](w http.ResponseWriter, status int, v *T) {
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(status)
	_ = stats.WriteYAML(w, v)
}
