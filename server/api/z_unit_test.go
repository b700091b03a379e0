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

package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/zintix-labs/dicelab/archive"
	"github.com/zintix-labs/dicelab/demo"
	"github.com/zintix-labs/dicelab/server/logger"
	"github.com/zintix-labs/dicelab/server/netsvr"
	"github.com/zintix-labs/dicelab/server/svrcfg"
)

func newTestHandler(t *testing.T, withArchive bool) http.Handler {
	t.Helper()
	lab, err := demo.NewLab()
	if err != nil {
		t.Fatalf("lab: %v", err)
	}
	sCfg := &svrcfg.SvrCfg{
		Log:       logger.NewDefaultLogger(logger.ModeSilence),
		Lab:       lab,
		MaxRounds: 100_000,
		Workers:   4,
	}
	if withArchive {
		store, err := archive.Open(filepath.Join(t.TempDir(), "runs.db"))
		if err != nil {
			t.Fatalf("archive: %v", err)
		}
		t.Cleanup(func() { _ = store.Close() })
		sCfg.Archive = store
	}
	if err := sCfg.Valid(); err != nil {
		t.Fatal(err)
	}
	svr := netsvr.NewChiServer("")
	if err := RegisterRoutes(svr, sCfg); err != nil {
		t.Fatalf("RegisterRoutes: %v", err)
	}
	return svr.Handler()
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

type simBody struct {
	Report struct {
		Summary struct {
			Name     string `json:"name"`
			Seed     int64  `json:"seed"`
			Rounds   int    `json:"rounds"`
			Dice     int    `json:"dice"`
			Jackpots int    `json:"jackpots"`
		} `json:"summary"`
	} `json:"report"`
	Batches *struct {
		Batches int `json:"batches"`
	} `json:"batches"`
	RunID int64 `json:"run_id"`
}

func TestHealthzAndExperiments(t *testing.T) {
	h := newTestHandler(t, false)

	rec := do(t, h, http.MethodGet, "/v1/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz status=%d", rec.Code)
	}
	var health struct {
		Status      string `json:"status"`
		Experiments int    `json:"experiments"`
		Archive     bool   `json:"archive"`
	}
	decode(t, rec, &health)
	if health.Status != "ok" || health.Experiments != 4 || health.Archive {
		t.Fatalf("health=%+v", health)
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Fatalf("missing request id header")
	}

	rec = do(t, h, http.MethodGet, "/v1/experiments", "")
	var list []struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	}
	decode(t, rec, &list)
	if len(list) != 4 || list[3].Name != "letters" {
		t.Fatalf("experiments=%+v", list)
	}

	cases := []struct {
		target string
		status int
	}{
		{"/v1/experiments/2", http.StatusOK},
		{"/v1/experiments/99", http.StatusNotFound},
		{"/v1/experiments/abc", http.StatusBadRequest},
	}
	for _, c := range cases {
		if rec := do(t, h, http.MethodGet, c.target, ""); rec.Code != c.status {
			t.Fatalf("%s: status=%d want %d body=%s", c.target, rec.Code, c.status, rec.Body.String())
		}
	}
}

func TestSimGet(t *testing.T) {
	h := newTestHandler(t, false)

	rec := do(t, h, http.MethodGet, "/v1/sim?id=1&rounds=2000&seed=7&workers=1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	var a simBody
	decode(t, rec, &a)
	s := a.Report.Summary
	if s.Name != "fair_pair" || s.Rounds != 2000 || s.Dice != 2 || s.Seed != 7 {
		t.Fatalf("summary=%+v", s)
	}
	if a.Batches != nil || a.RunID != 0 {
		t.Fatalf("unexpected batches/run id: %+v", a)
	}

	// 同一個種子與 worker 數，結果相同
	var b1, b2 simBody
	decode(t, do(t, h, http.MethodGet, "/v1/sim?name=letters&rounds=3000&seed=11&workers=3", ""), &b1)
	decode(t, do(t, h, http.MethodGet, "/v1/sim?name=letters&rounds=3000&seed=11&workers=3", ""), &b2)
	if b1.Report.Summary.Rounds != 3000 || b1.Report.Summary.Jackpots != b2.Report.Summary.Jackpots {
		t.Fatalf("not reproducible: %+v vs %+v", b1.Report.Summary, b2.Report.Summary)
	}
}

func TestSimBatchesAndYAML(t *testing.T) {
	h := newTestHandler(t, false)

	rec := do(t, h, http.MethodGet, "/v1/sim?id=3&rounds=100&batches=5&seed=2", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	var got simBody
	decode(t, rec, &got)
	if got.Batches == nil || got.Batches.Batches != 5 || got.Report.Summary.Rounds != 500 {
		t.Fatalf("batches=%+v summary=%+v", got.Batches, got.Report.Summary)
	}

	rec = do(t, h, http.MethodGet, "/v1/sim?id=4&rounds=100&seed=1&format=yaml", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/yaml" {
		t.Fatalf("content type=%q", ct)
	}
	if !strings.Contains(rec.Body.String(), "report:") {
		t.Fatalf("yaml body=%s", rec.Body.String())
	}
}

func TestSimPostExperiment(t *testing.T) {
	h := newTestHandler(t, false)
	body := `{"experiment":{"name":"adhoc","id":0,"rounds":50,"dice":[{"faces":["x","y"],"weights":[0,1],"count":2}]},"seed":5}`
	rec := do(t, h, http.MethodPost, "/v1/sim", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	var got simBody
	decode(t, rec, &got)
	// 權重集中在 y，每局都是 Jackpot
	if got.Report.Summary.Rounds != 50 || got.Report.Summary.Jackpots != 50 {
		t.Fatalf("summary=%+v", got.Report.Summary)
	}
}

func TestSimErrors(t *testing.T) {
	h := newTestHandler(t, false)
	cases := []struct {
		name   string
		method string
		target string
		body   string
		status int
	}{
		{"unknown id", http.MethodGet, "/v1/sim?id=99&rounds=10", "", http.StatusNotFound},
		{"unknown name", http.MethodGet, "/v1/sim?name=nope&rounds=10", "", http.StatusNotFound},
		{"no target", http.MethodGet, "/v1/sim?rounds=10", "", http.StatusBadRequest},
		{"too many rounds", http.MethodGet, "/v1/sim?id=1&rounds=200000", "", http.StatusBadRequest},
		{"batches over limit", http.MethodGet, "/v1/sim?id=1&rounds=50000&batches=3", "", http.StatusBadRequest},
		{"bad format", http.MethodGet, "/v1/sim?id=1&rounds=10&format=toml", "", http.StatusBadRequest},
		{"save without archive", http.MethodGet, "/v1/sim?id=1&rounds=10&save=true", "", http.StatusBadRequest},
		{"unknown field", http.MethodPost, "/v1/sim", `{"id":1,"bogus":true}`, http.StatusBadRequest},
		{"bad experiment", http.MethodPost, "/v1/sim", `{"experiment":{"name":"x","dice":[]}}`, http.StatusBadRequest},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			rec := do(t, h, c.method, c.target, c.body)
			if rec.Code != c.status {
				t.Fatalf("status=%d want %d body=%s", rec.Code, c.status, rec.Body.String())
			}
		})
	}
	// 沒有 archive 時不提供 /runs
	if rec := do(t, h, http.MethodGet, "/v1/runs", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("runs without archive status=%d", rec.Code)
	}
}

func TestPlay(t *testing.T) {
	h := newTestHandler(t, false)

	rec := do(t, h, http.MethodPost, "/v1/play", `{"id":4,"rounds":6,"seed":3}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	var got struct {
		Name    string `json:"name"`
		Rounds  int    `json:"rounds"`
		Dice    int    `json:"dice"`
		Layout  string `json:"layout"`
		Results struct {
			Wide *struct {
				Rows [][]json.RawMessage `json:"rows"`
			} `json:"wide"`
		} `json:"results"`
	}
	decode(t, rec, &got)
	if got.Name != "letters" || got.Rounds != 6 || got.Dice != 4 {
		t.Fatalf("play=%+v", got)
	}
	if got.Results.Wide == nil || len(got.Results.Wide.Rows) != 6 || len(got.Results.Wide.Rows[0]) != 4 {
		t.Fatalf("wide=%+v", got.Results.Wide)
	}

	for _, c := range []struct {
		method, body string
		status       int
	}{
		{http.MethodGet, "", http.StatusMethodNotAllowed},
		{http.MethodPost, `{"rounds":3}`, http.StatusBadRequest},
		{http.MethodPost, `{"id":1,"layout":"tall"}`, http.StatusBadRequest},
		{http.MethodPost, `{"id":42}`, http.StatusNotFound},
	} {
		if rec := do(t, h, c.method, "/v1/play", c.body); rec.Code != c.status {
			t.Fatalf("%s %s: status=%d want %d", c.method, c.body, rec.Code, c.status)
		}
	}
}

func TestSaveAndRuns(t *testing.T) {
	h := newTestHandler(t, true)

	rec := do(t, h, http.MethodPost, "/v1/play", `{"id":4,"rounds":5,"seed":3,"layout":"narrow","save":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("play status=%d body=%s", rec.Code, rec.Body.String())
	}
	var played struct {
		RunID int64 `json:"run_id"`
	}
	decode(t, rec, &played)
	if played.RunID <= 0 {
		t.Fatalf("play run id=%d", played.RunID)
	}

	body, _ := json.Marshal(map[string]any{"id": 1, "rounds": 500, "seed": 9, "save": true})
	req := httptest.NewRequest(http.MethodPost, "/v1/sim", bytes.NewReader(body))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var sim simBody
	decode(t, rec, &sim)
	if sim.RunID <= played.RunID {
		t.Fatalf("sim run id=%d", sim.RunID)
	}

	var list struct {
		Runs []struct {
			ID     int64  `json:"id"`
			Name   string `json:"name"`
			Rounds int    `json:"rounds"`
		} `json:"runs"`
	}
	decode(t, do(t, h, http.MethodGet, "/v1/runs", ""), &list)
	if len(list.Runs) != 2 || list.Runs[0].ID != sim.RunID || list.Runs[1].Name != "letters" {
		t.Fatalf("runs=%+v", list.Runs)
	}

	var detail struct {
		Run struct {
			ID     int64 `json:"id"`
			Rounds int   `json:"rounds"`
		} `json:"run"`
		Results *struct {
			Dice int               `json:"dice"`
			Rows []json.RawMessage `json:"rows"`
		} `json:"results"`
	}
	decode(t, do(t, h, http.MethodGet, "/v1/runs/"+itoa(played.RunID), ""), &detail)
	if detail.Run.Rounds != 5 || detail.Results == nil || detail.Results.Dice != 4 || len(detail.Results.Rows) != 20 {
		t.Fatalf("detail=%+v", detail)
	}

	// 模擬只存報表，沒有逐格結果
	detail.Results = nil
	decode(t, do(t, h, http.MethodGet, "/v1/runs/"+itoa(sim.RunID), ""), &detail)
	if detail.Results != nil {
		t.Fatalf("sim run should not carry results")
	}

	for target, status := range map[string]int{
		"/v1/runs/999":      http.StatusNotFound,
		"/v1/runs/x":        http.StatusBadRequest,
		"/v1/runs?limit=0":  http.StatusBadRequest,
		"/v1/runs?limit=1":  http.StatusOK,
		"/v1/runs?limit=99": http.StatusOK,
	} {
		if rec := do(t, h, http.MethodGet, target, ""); rec.Code != status {
			t.Fatalf("%s: status=%d want %d", target, rec.Code, status)
		}
	}
}

func itoa(v int64) string {
	b, _ := json.Marshal(v)
	return string(b)
}
