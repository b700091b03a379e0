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
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/zintix-labs/dicelab/die"
	"github.com/zintix-labs/dicelab/errs"
	"github.com/zintix-labs/dicelab/face"
	"github.com/zintix-labs/dicelab/game"
)

func TestDecodeSimRequestGET(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/v1/sim?id=2&rounds=1000&workers=4&seed=7&format=yaml&save=true&top=3", nil)
	req, err := DecodeSimRequest(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.ID == nil || *req.ID != 2 || req.Rounds != 1000 || req.Workers != 4 || req.TopN != 3 {
		t.Fatalf("unexpected request: %+v", req)
	}
	if req.Seed == nil || *req.Seed != 7 || req.Format != "yaml" || !req.Save {
		t.Fatalf("unexpected request: %+v", req)
	}
}

func TestDecodeSimRequestPOST(t *testing.T) {
	body := `{"experiment":{"name":"x","dice":[{"faces":[1,2]}]},"rounds":10,"batches":2}`
	r := httptest.NewRequest(http.MethodPost, "/v1/sim", strings.NewReader(body))
	req, err := DecodeSimRequest(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.ID != nil || len(req.Experiment) == 0 || req.Rounds != 10 || req.Batches != 2 {
		t.Fatalf("unexpected request: %+v", req)
	}
}

func TestDecodeSimRequestErrors(t *testing.T) {
	cases := map[string]*http.Request{
		"no target":     httptest.NewRequest(http.MethodGet, "/v1/sim?rounds=1", nil),
		"two targets":   httptest.NewRequest(http.MethodGet, "/v1/sim?id=1&name=fair_pair", nil),
		"bad id":        httptest.NewRequest(http.MethodGet, "/v1/sim?id=x", nil),
		"bad rounds":    httptest.NewRequest(http.MethodGet, "/v1/sim?id=1&rounds=1.5", nil),
		"negative":      httptest.NewRequest(http.MethodGet, "/v1/sim?id=1&workers=-1", nil),
		"bad format":    httptest.NewRequest(http.MethodGet, "/v1/sim?id=1&format=xml", nil),
		"unknown field": httptest.NewRequest(http.MethodPost, "/v1/sim", strings.NewReader(`{"id":1,"bet":1}`)),
		"bad json":      httptest.NewRequest(http.MethodPost, "/v1/sim", strings.NewReader(`{`)),
		"method":        httptest.NewRequest(http.MethodDelete, "/v1/sim", nil),
	}
	for name, r := range cases {
		if _, err := DecodeSimRequest(r); !errors.Is(err, errs.ErrValidation) {
			t.Fatalf("%s: err = %v", name, err)
		}
	}
}

func TestDecodePlayRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/v1/play", bytes.NewReader([]byte(`{"id":1,"rounds":5,"layout":"narrow"}`)))
	req, err := DecodePlayRequest(r)
	if err != nil {
		t.Fatal(err)
	}
	if *req.ID != 1 || req.Rounds != 5 || req.Layout != "narrow" {
		t.Fatalf("unexpected request: %+v", req)
	}

	both := httptest.NewRequest(http.MethodPost, "/v1/play", strings.NewReader(`{"id":1,"experiment":{"name":"x"}}`))
	if _, err := DecodePlayRequest(both); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("both targets: %v", err)
	}
	get := httptest.NewRequest(http.MethodGet, "/v1/play", nil)
	if _, err := DecodePlayRequest(get); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("GET: %v", err)
	}
	big := httptest.NewRequest(http.MethodPost, "/v1/play", strings.NewReader(`{"id":1,"layout":"`+strings.Repeat("w", maxBody)+`"}`))
	if _, err := DecodePlayRequest(big); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("big body: %v", err)
	}
}

func TestNewPlayResult(t *testing.T) {
	d1, _ := die.New(face.Ints(1, 2), die.WithSeed(1))
	d2, _ := die.New(face.Ints(1, 2), die.WithSeed(2))
	g, err := game.New([]*die.Die{d1, d2})
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := NewPlayResult("p", 0, 1, g, game.Wide, 0); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("before play: %v", err)
	}
	if err := g.Play(30); err != nil {
		t.Fatal(err)
	}
	pr, rep, err := NewPlayResult("p", 0, 1, g, game.Narrow, 1)
	if err != nil {
		t.Fatal(err)
	}
	if pr.Rounds != 30 || pr.Dice != 2 || pr.Layout != "narrow" || pr.Results.Narrow == nil {
		t.Fatalf("unexpected result: %+v", pr)
	}
	if len(pr.Combos) != 1 || len(pr.JackpotRounds) != pr.Jackpot {
		t.Fatalf("combos=%d jackpots=%d/%d", len(pr.Combos), len(pr.JackpotRounds), pr.Jackpot)
	}
	if rep.Summary.Rounds != 30 || rep.Summary.Jackpots != pr.Jackpot {
		t.Fatalf("report summary: %+v", rep.Summary)
	}
}
