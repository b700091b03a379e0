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

package setting_test

import (
	"encoding/json"
	"testing"

	"github.com/zintix-labs/dicelab/errs"
	"github.com/zintix-labs/dicelab/face"
	"github.com/zintix-labs/dicelab/game"
	"github.com/zintix-labs/dicelab/sdk/sampler"
	"github.com/zintix-labs/dicelab/setting"
)

const loadedYAML = `
name: loaded_pair
id: 2
rounds: 500
sampler: categorical
dice:
  - faces: [1, 2, 3, 4, 5, 6]
    weights: {6: 3}
    count: 2
`

func TestFromYAML(t *testing.T) {
	es, err := setting.FromYAML([]byte(loadedYAML))
	if err != nil {
		t.Fatalf("FromYAML: %v", err)
	}
	if es.Name != "loaded_pair" || es.ID != 2 || es.Rounds != 500 {
		t.Fatalf("header got %+v", es)
	}
	if es.Kind() != sampler.Categorical || es.TotalDice() != 2 {
		t.Fatalf("kind=%s dice=%d", es.Kind(), es.TotalDice())
	}
	ds, err := es.BuildDice(1)
	if err != nil {
		t.Fatalf("BuildDice: %v", err)
	}
	for _, d := range ds {
		if w, _ := d.Weight(face.Num(6)); w != 3 {
			t.Fatalf("face 6 weight got %v want 3", w)
		}
		if w, _ := d.Weight(face.Num(1)); w != 1 {
			t.Fatalf("face 1 weight got %v want 1", w)
		}
		if d.Sampler() != sampler.Categorical {
			t.Fatalf("sampler not applied")
		}
	}
}

func TestFromJSONListWeights(t *testing.T) {
	raw := `{"name":"coins","id":3,"dice":[{"faces":["H","T"],"weights":[2,1],"count":3}]}`
	es, err := setting.FromJSON([]byte(raw))
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}
	if es.Rounds != setting.DefaultRounds || es.Sampler != "alias" {
		t.Fatalf("defaults not applied: rounds=%d sampler=%s", es.Rounds, es.Sampler)
	}
	g, err := es.BuildGame(9)
	if err != nil {
		t.Fatalf("BuildGame: %v", err)
	}
	if g.Dice() != 3 {
		t.Fatalf("dice got %d want 3", g.Dice())
	}
	if w, _ := g.Die(2).Weight(face.Str("H")); w != 2 {
		t.Fatalf("H weight got %v want 2", w)
	}
	// 設定可再輸出成 JSON
	b, err := json.Marshal(es)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if _, err := setting.FromJSON(b); err != nil {
		t.Fatalf("re-decode: %v (%s)", err, b)
	}
}

func TestDecodeErrors(t *testing.T) {
	cases := []struct {
		name   string
		format string
		raw    string
		kind   errs.Kind
	}{
		{"unknown_field_yaml", "yaml", "name: x\nid: 1\nbogus: 1\ndice:\n  - faces: [1, 2]\n", errs.Validation},
		{"unknown_field_json", "json", `{"name":"x","bogus":1,"dice":[{"faces":[1,2]}]}`, errs.Validation},
		{"no_name", "yaml", "id: 1\ndice:\n  - faces: [1, 2]\n", errs.Validation},
		{"no_dice", "yaml", "name: x\n", errs.Validation},
		{"dup_faces", "yaml", "name: x\ndice:\n  - faces: [1, 1]\n", errs.Validation},
		{"mixed_faces", "json", `{"name":"x","dice":[{"faces":[1,"a"]}]}`, errs.Validation},
		{"mismatched_sets", "yaml", "name: x\ndice:\n  - faces: [1, 2]\n  - faces: [1, 3]\n", errs.Validation},
		{"unknown_weight_face", "yaml", "name: x\ndice:\n  - faces: [1, 2]\n    weights: {7: 1}\n", errs.NotFound},
		{"dup_weight_key_yaml", "yaml", "name: x\ndice:\n  - faces: [1, 6]\n    weights: {\"6\": 2, \"6.0\": 3}\n", errs.Validation},
		{"dup_weight_key_json", "json", `{"name":"x","dice":[{"faces":[1,6],"weights":{"6":2," 6 ":3}}]}`, errs.Validation},
		{"negative_weight", "yaml", "name: x\ndice:\n  - faces: [1, 2]\n    weights: [1, -1]\n", errs.Validation},
		{"weights_length", "json", `{"name":"x","dice":[{"faces":[1,2],"weights":[1]}]}`, errs.Validation},
		{"bad_sampler", "yaml", "name: x\nsampler: magic\ndice:\n  - faces: [1, 2]\n", errs.Validation},
		{"negative_rounds", "yaml", "name: x\nrounds: -1\ndice:\n  - faces: [1, 2]\n", errs.Validation},
		{"bad_format", "toml", "", errs.Validation},
	}
	for _, tc := range cases {
		_, err := setting.Decode([]byte(tc.raw), tc.format)
		if err == nil {
			t.Fatalf("[%s] expected error", tc.name)
		}
		if !errs.IsKind(err, tc.kind) {
			t.Fatalf("[%s] kind got %s want %s (%v)", tc.name, errs.KindOf(err), tc.kind, err)
		}
	}
}

func TestSameSeedSameGame(t *testing.T) {
	es, err := setting.FromYAML([]byte(loadedYAML))
	if err != nil {
		t.Fatalf("FromYAML: %v", err)
	}
	g1, _ := es.BuildGame(77)
	g2, _ := es.BuildGame(77)
	_ = g1.Play(50)
	_ = g2.Play(50)
	r1, _ := g1.Results(game.Wide)
	r2, _ := g2.Results(game.Wide)
	for i := range r1.Wide.Rows {
		for j := range r1.Wide.Rows[i] {
			if r1.Wide.Rows[i][j] != r2.Wide.Rows[i][j] {
				t.Fatalf("same seed diverged at (%d,%d)", i, j)
			}
		}
	}
}

func TestDieSeed(t *testing.T) {
	seen := map[int64]struct{}{}
	for i := 0; i < 100; i++ {
		s := setting.DieSeed(42, i)
		if s < 0 {
			t.Fatalf("seed must be non-negative")
		}
		if _, dup := seen[s]; dup {
			t.Fatalf("duplicate die seed at %d", i)
		}
		seen[s] = struct{}{}
	}
	if setting.DieSeed(42, 0) != setting.DieSeed(42, 0) {
		t.Fatalf("DieSeed must be deterministic")
	}
}

func TestDecodeFile(t *testing.T) {
	if _, err := setting.DecodeFile("loaded.yml", []byte(loadedYAML)); err != nil {
		t.Fatalf("DecodeFile: %v", err)
	}
	if _, err := setting.DecodeFile("loaded.txt", []byte(loadedYAML)); err == nil {
		t.Fatalf("unknown extension must fail")
	}
}
