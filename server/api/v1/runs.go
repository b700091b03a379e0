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
	"strconv"

	"github.com/zintix-labs/dicelab/dto"
	"github.com/zintix-labs/dicelab/errs"
	"github.com/zintix-labs/dicelab/server/httperr"
)

// maxListLimit /v1/runs 單次最多筆數
const maxListLimit = 500

// Runs GET /v1/runs?limit=n
func (h *Handler) Runs(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 || v > maxListLimit {
			httperr.Errs(w, errs.Validationf("limit must be between 1 and %d", maxListLimit))
			return
		}
		limit = v
	}
	runs, err := h.Archive.ListRuns(r.Context(), limit)
	if err != nil {
		h.fail(w, "list runs", err)
		return
	}
	writeJSON(w, http.StatusOK, dto.RunList{Runs: runs})
}

// Run GET /v1/runs/{id}
func (h *Handler) Run(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	run, err := h.Archive.GetRun(r.Context(), id)
	if err != nil {
		h.fail(w, "get run", err)
		return
	}
	resp := dto.RunDetail{Run: run}
	nt, err := h.Archive.RunResults(r.Context(), id)
	if err != nil {
		h.fail(w, "run results", err)
		return
	}
	if len(nt.Rows) > 0 {
		resp.Results = nt
	}
	writeJSON(w, http.StatusOK, resp)
}
