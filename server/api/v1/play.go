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

package v1

import (
	"net/http"

	"github.com/zintix-labs/dicelab/dto"
	"github.com/zintix-labs/dicelab/game"
	"github.com/zintix-labs/dicelab/server/httperr"
)

// Play POST /v1/play
//
// 以目錄實驗（id）或臨時設定（experiment）建立 Game 擲一次，回傳結果表與分析；save=true 時連同逐格結果存檔。
func (h *Handler) Play(w http.ResponseWriter, r *http.Request) {
	req, err := dto.DecodePlayRequest(r)
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	if err := h.canSave(req.Save); err != nil {
		httperr.Errs(w, err)
		return
	}
	layout, err := game.ParseLayout(req.Layout)
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	es, err := h.resolve(req.ID, "", req.Experiment)
	if err != nil {
		h.fail(w, "resolve experiment", err)
		return
	}
	rounds := req.Rounds
	if rounds == 0 {
		rounds = es.Rounds
	}
	if err := h.checkRounds(rounds); err != nil {
		httperr.Errs(w, err)
		return
	}
	seed, err := seedOrRandom(req.Seed)
	if err != nil {
		h.fail(w, "seed", err)
		return
	}

	g, err := es.BuildGame(seed)
	if err != nil {
		h.fail(w, "build game", err)
		return
	}
	if err := g.Play(rounds); err != nil {
		h.fail(w, "play", err)
		return
	}
	resp, rep, err := dto.NewPlayResult(es.Name, int(es.ID), seed, g, layout, req.TopN)
	if err != nil {
		h.fail(w, "analyze", err)
		return
	}

	if req.Save {
		nt := resp.Results.Narrow
		if nt == nil {
			res, err := g.Results(game.Narrow)
			if err != nil {
				h.fail(w, "results", err)
				return
			}
			nt = res.Narrow
		}
		run, err := h.Archive.SaveRun(r.Context(), rep, nt)
		if err != nil {
			h.fail(w, "save run", err)
			return
		}
		resp.RunID = run.ID
	}
	writeJSON(w, http.StatusOK, resp)
}
