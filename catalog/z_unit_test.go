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

package catalog_test

import (
	"testing"
	"testing/fstest"

	"github.com/zintix-labs/dicelab/catalog"
	"github.com/zintix-labs/dicelab/errs"
)

const pairYAML = "name: Fair_Pair\nid: 1\ndice:\n  - faces: [1, 2, 3, 4, 5, 6]\n    count: 2\n"

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"fair_pair.yaml": {Data: []byte(pairYAML)},
		"coins.json":     {Data: []byte(`{"name":"coins","id":2,"dice":[{"faces":["H","T"],"count":3}]}`)},
		"readme.txt":     {Data: []byte("ignored")},
	}
}

func TestRegisterAndRead(t *testing.T) {
	c, err := catalog.New(testFS())
	if err != nil {
		t.Fatalf("catalog.New: %v", err)
	}
	err = c.Register(
		catalog.Entry{ID: 2, Name: "coins", ConfigName: "coins.json"},
		catalog.Entry{ID: 1, Name: "Fair_Pair", ConfigName: "fair_pair.yaml"},
	)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	ids := c.IDs()
	if len(ids) != 2 || ids[0] != 1 || ids[1] != 2 {
		t.Fatalf("ids must be sorted, got %v", ids)
	}
	if _, ok := c.GetByName("  FAIR_PAIR "); !ok {
		t.Fatalf("name lookup must be case-insensitive")
	}
	es, err := c.SettingByName("fair_pair")
	if err != nil {
		t.Fatalf("SettingByName: %v", err)
	}
	sum := catalog.SummaryOf(es)
	if sum.Dice != 2 || len(sum.Faces) != 6 || sum.Sampler != "alias" {
		t.Fatalf("summary got %+v", sum)
	}
	coins, err := c.SettingByID(2)
	if err != nil || coins.TotalDice() != 3 {
		t.Fatalf("SettingByID: %v", err)
	}
	if _, err := c.SettingByID(9); !errs.IsKind(err, errs.NotFound) {
		t.Fatalf("missing id: want not found, got %v", err)
	}
}

func TestRegisterDuplicates(t *testing.T) {
	c, _ := catalog.New(testFS())
	if err := c.Register(catalog.Entry{ID: 1, Name: "a", ConfigName: "fair_pair.yaml"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := c.Register(catalog.Entry{ID: 1, Name: "b", ConfigName: "coins.json"}); err != catalog.ErrDupID {
		t.Fatalf("duplicate id: got %v", err)
	}
	if err := c.Register(catalog.Entry{ID: 2, Name: "A", ConfigName: "coins.json"}); err != catalog.ErrDupName {
		t.Fatalf("duplicate name: got %v", err)
	}
	if err := c.Register(catalog.Entry{ID: 3, Name: "c", ConfigName: "missing.yaml"}); err == nil {
		t.Fatalf("missing config must fail")
	}
	if err := c.Register(catalog.Entry{ID: 3, Name: "c", ConfigName: "../x.yaml"}); err == nil {
		t.Fatalf("path in config name must fail")
	}
	c.Freeze()
	if err := c.Register(catalog.Entry{ID: 4, Name: "d", ConfigName: "coins.json"}); err == nil {
		t.Fatalf("frozen catalog must reject registration")
	}
}

func TestMultiFS(t *testing.T) {
	if _, err := catalog.New(); err == nil {
		t.Fatalf("no fs must fail")
	}
	dup := fstest.MapFS{"coins.json": {Data: []byte("{}")}}
	if _, err := catalog.New(testFS(), dup); err == nil {
		t.Fatalf("duplicate file across fs must fail")
	}
	nested := fstest.MapFS{"sub/x.yaml": {Data: []byte(pairYAML)}}
	if _, err := catalog.New(nested); err == nil {
		t.Fatalf("nested fs must fail")
	}
}
