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
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/zintix-labs/dicelab"
	"github.com/zintix-labs/dicelab/dto"
	"github.com/zintix-labs/dicelab/errs"
	"github.com/zintix-labs/dicelab/server/httperr"
	"github.com/zintix-labs/dicelab/stats"
)

// Sim GET|POST /v1/sim
//
// 單一 worker 走 Run，多 worker 走 RunMP；batches > 0 時走 RunBatches（每批 rounds 局）。
func (h *Handler) Sim(w http.ResponseWriter, r *http.Request) {
	req, err := dto.DecodeSimRequest(r)
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	if err := h.canSave(req.Save); err != nil {
		httperr.Errs(w, err)
		return
	}
	es, err := h.resolve(req.ID, req.Name, req.Experiment)
	if err != nil {
		h.fail(w, "resolve experiment", err)
		return
	}
	rounds := req.Rounds
	if rounds == 0 {
		rounds = es.Rounds
	}
	total := rounds
	if req.Batches > 0 {
		total = rounds * req.Batches
	}
	if err := h.checkRounds(total); err != nil {
		httperr.Errs(w, err)
		return
	}
	seed, err := seedOrRandom(req.Seed)
	if err != nil {
		h.fail(w, "seed", err)
		return
	}
	sim, err := dicelab.NewSimulator(es, seed)
	if err != nil {
		h.fail(w, "build simulator", errs.Wrap(err, "build simulator err: "+es.Name))
		return
	}
	sim.SetLogger(h.Log)
	if req.TopN > 0 {
		sim.TopN = req.TopN
	}
	workers := h.Workers
	if req.Workers > 0 {
		workers = min(req.Workers, h.Workers)
	}

	var (
		rep  *stats.Report
		est  *stats.BatchEstimate
		used time.Duration
	)
	switch {
	case req.Batches > 0:
		rep, est, used, err = sim.RunBatches(workers, req.Batches, rounds, false)
	case workers > 1 && rounds >= workers:
		rep, used, err = sim.RunMP(rounds, workers, false)
	default:
		rep, used, err = sim.Run(rounds, false)
	}
	if err != nil {
		h.fail(w, "simulate", errs.Wrap(err, "simulate err: "+es.Name))
		return
	}

	resp := &dto.SimResult{Report: rep, Batches: est, UsedTime: used.Milliseconds()}
	if req.Save {
		run, err := h.Archive.SaveRun(r.Context(), rep, nil)
		if err != nil {
			h.fail(w, "save run", err)
			return
		}
		resp.RunID = run.ID
	}
	h.Log.Debug("sim served",
		slog.String("experiment", es.Name),
		slog.Int("rounds", total),
		slog.Int64("seed", seed),
		slog.Int64("run_id", resp.RunID),
	)

	switch strings.ToLower(req.Format) {
	case "yaml", "yml":
		writeYAML(w, http.StatusOK, resp)
	default:
		writeJSON(w, http.StatusOK, resp)
	}
}
