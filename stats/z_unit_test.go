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

package stats_test

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/zintix-labs/dicelab/face"
	"github.com/zintix-labs/dicelab/stats"
	"gopkg.in/yaml.v3"
)

func buildReport(rounds, jackpots int) *stats.Report {
	faces := face.Ints(1, 2)
	return &stats.Report{
		Summary: &stats.SummaryReport{
			Name:            "TestExperiment",
			ID:              1,
			Sampler:         "alias",
			Rounds:          rounds,
			Dice:            2,
			Jackpots:        jackpots,
			ExpectedJackpot: 0.5,
		},
		Dice: []*stats.DieReport{
			{Die: 1, Faces: faces, Expected: []float64{0.5, 0.5}, Observed: []int{rounds / 2, rounds - rounds/2}},
			{Die: 2, Faces: faces, Expected: []float64{0.5, 0.5}, Observed: []int{rounds / 2, rounds - rounds/2}},
		},
		Faces: &stats.FaceReport{Faces: faces, Counts: []int{rounds, rounds}},
		Gaps:  &stats.GapReport{Bucket: stats.Gaps.Labels(), Collect: make([]int, stats.Gaps.Len())},
		Combos: []stats.TallyRow{
			{Key: face.SortedKey(face.Ints(1, 2)), Count: rounds - jackpots},
			{Key: face.SortedKey(face.Ints(1, 1)), Count: jackpots},
		},
	}
}

func TestProportionCIBounds(t *testing.T) {
	cases := []struct{ k, n int }{{0, 10}, {10, 10}, {3, 10}, {500, 1000}, {1, 100000}}
	for _, tc := range cases {
		hat, ci := stats.ProportionCI(tc.k, tc.n, 0.95)
		if ci.Lo < 0 || ci.Hi > 1 || ci.Lo > hat || ci.Hi < hat {
			t.Fatalf("k=%d n=%d: hat=%.6f ci=[%.6f,%.6f]", tc.k, tc.n, hat, ci.Lo, ci.Hi)
		}
	}
	if _, ci := stats.ProportionCI(0, 10, 0.95); ci.Lo != 0 {
		t.Fatalf("k=0 lower bound must be 0")
	}
	if _, ci := stats.ProportionCI(10, 10, 0.95); ci.Hi != 1 {
		t.Fatalf("k=n upper bound must be 1")
	}
	// 0/10 的 CP 上界為 1-(0.025)^(1/10) ≈ 0.3085
	if _, ci := stats.ProportionCI(0, 10, 0.95); math.Abs(ci.Hi-0.3085) > 1e-3 {
		t.Fatalf("k=0 n=10 upper got %.4f want ~0.3085", ci.Hi)
	}
	if _, ci := stats.ProportionCI(0, 0, 0.95); ci.Lo != 0 || ci.Hi != 1 {
		t.Fatalf("n=0 must give [0,1]")
	}
}

func TestChiSquareGOF(t *testing.T) {
	fair := []float64{1.0 / 6, 1.0 / 6, 1.0 / 6, 1.0 / 6, 1.0 / 6, 1.0 / 6}
	g := stats.ChiSquareGOF([]int{100, 100, 100, 100, 100, 100}, fair)
	if g.DoF != 5 || g.Statistic > 1e-9 || g.PValue < 0.99 {
		t.Fatalf("exact fit got %+v", g)
	}
	g = stats.ChiSquareGOF([]int{102, 95, 99, 104, 98, 102}, fair)
	if g.PValue < 0.5 {
		t.Fatalf("near-fair counts must have a high p-value, got %+v", g)
	}
	g = stats.ChiSquareGOF([]int{300, 60, 60, 60, 60, 60}, fair)
	if g.PValue > 1e-6 {
		t.Fatalf("loaded counts must have a tiny p-value, got %+v", g)
	}
	// 機率 0 的點數不計自由度
	g = stats.ChiSquareGOF([]int{50, 0, 50}, []float64{0.5, 0, 0.5})
	if g.DoF != 1 || g.PValue < 0.99 {
		t.Fatalf("zero-probability face got %+v", g)
	}
	g = stats.ChiSquareGOF([]int{50, 1, 50}, []float64{0.5, 0, 0.5})
	if g.PValue != 0 {
		t.Fatalf("impossible observation must give p=0, got %+v", g)
	}
	if g := stats.ChiSquareGOF([]int{10}, []float64{1}); g.DoF != 0 || g.PValue != 1 {
		t.Fatalf("single face got %+v", g)
	}
}

func TestExpectedJackpot(t *testing.T) {
	fair := []float64{1.0 / 6, 1.0 / 6, 1.0 / 6, 1.0 / 6, 1.0 / 6, 1.0 / 6}
	got := stats.ExpectedJackpot([][]float64{fair, fair})
	if math.Abs(got-1.0/6) > 1e-12 {
		t.Fatalf("two fair dice got %.6f want 1/6", got)
	}
	got = stats.ExpectedJackpot([][]float64{{0.5, 0.5}, {0.5, 0.5}, {0.5, 0.5}})
	if math.Abs(got-0.25) > 1e-12 {
		t.Fatalf("three coins got %.6f want 0.25", got)
	}
	if stats.ExpectedJackpot([][]float64{{0.2, 0.8}}) != 1 {
		t.Fatalf("single die always jackpots")
	}
}

func TestGapBuckets(t *testing.T) {
	cases := map[int]string{1: "[1,2)", 2: "[2,5)", 4: "[2,5)", 5: "[5,10)", 999: "[300,1000)", 1000: "[1000,+inf)", 50000: "[1000,+inf)"}
	labels := stats.Gaps.Labels()
	for gap, want := range cases {
		if got := labels[stats.Gaps.Index(gap)]; got != want {
			t.Fatalf("gap %d got %s want %s", gap, got, want)
		}
	}
	collect := make([]int, stats.Gaps.Len())
	stats.Gaps.Collect(collect, []int{3, 4, 10, 10 + 1500})
	if collect[0] != 1 || collect[2] != 1 || collect[8] != 1 {
		t.Fatalf("collect got %v", collect)
	}
}

func TestReportDone(t *testing.T) {
	rep := buildReport(1000, 480)
	rep.Done()
	if rep.Summary.JackpotRate != 0.48 {
		t.Fatalf("jackpot rate got %v", rep.Summary.JackpotRate)
	}
	ci := rep.Summary.JackpotCI
	if ci.Lo >= 0.48 || ci.Hi <= 0.48 || ci.Lo < 0.44 || ci.Hi > 0.52 {
		t.Fatalf("jackpot ci got %+v", ci)
	}
	if rep.Dice[0].GOF.PValue < 0.99 {
		t.Fatalf("balanced die p-value got %v", rep.Dice[0].GOF.PValue)
	}
	if rep.Combos[0].Rate != 0.52 || rep.Faces.Rates[0] != 0.5 {
		t.Fatalf("rates not filled: combo=%v face=%v", rep.Combos[0].Rate, rep.Faces.Rates[0])
	}
	if math.Abs(rep.JackpotLift()-0.96) > 1e-12 {
		t.Fatalf("lift got %v", rep.JackpotLift())
	}
	rep.Summary.Jackpots = 0
	rep.Done() // 只計算一次
	if rep.Summary.JackpotRate != 0.48 {
		t.Fatalf("Done must be idempotent")
	}
}

func TestRenderers(t *testing.T) {
	rep := buildReport(10, 5)

	var jb bytes.Buffer
	if err := rep.WriteWith(&jb, &stats.JsonReportRender{}); err != nil {
		t.Fatalf("json render: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(jb.Bytes(), &decoded); err != nil {
		t.Fatalf("json decode: %v", err)
	}
	summary, ok := decoded["summary"].(map[string]any)
	if !ok || summary["jackpot_rate"].(float64) != 0.5 {
		t.Fatalf("json summary got %v", decoded["summary"])
	}
	if !strings.Contains(jb.String(), `"key":[1,2]`) {
		t.Fatalf("json combos must render keys as arrays: %s", jb.String())
	}

	r, err := stats.NewRender("yaml")
	if err != nil {
		t.Fatalf("NewRender: %v", err)
	}
	var yb bytes.Buffer
	if err := rep.WriteWith(&yb, r); err != nil {
		t.Fatalf("yaml render: %v", err)
	}
	var back map[string]any
	if err := yaml.Unmarshal(yb.Bytes(), &back); err != nil {
		t.Fatalf("yaml decode: %v\n%s", err, yb.String())
	}
	if !strings.Contains(yb.String(), "[1, 2]") {
		t.Fatalf("inner lists must use flow style:\n%s", yb.String())
	}
	if _, err := stats.NewRender("xml"); err == nil {
		t.Fatalf("unknown format must fail")
	}
}

func TestFprint(t *testing.T) {
	rep := buildReport(100, 40)
	var b bytes.Buffer
	rep.Fprint(&b, 2*time.Second)
	out := b.String()
	for _, want := range []string{"TestExperiment", "Jackpot 95% CI", "Goodness of Fit", "Top Combinations", "(1, 2)", "rounds/sec"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestEstimateBatches(t *testing.T) {
	reports := make([]*stats.Report, 0, 100)
	for i := 0; i < 100; i++ {
		reports = append(reports, buildReport(100, i)) // rate = i/100
	}
	est := stats.EstimateBatches(reports)
	if est.Batches != 100 || est.Expected != 0.5 {
		t.Fatalf("estimate header got %+v", est)
	}
	if math.Abs(est.JackpotMedian.Hat-0.5) > 0.05 {
		t.Fatalf("median expected ~0.5, got %.3f", est.JackpotMedian.Hat)
	}
	if math.Abs(est.JackpotP90.Hat-0.9) > 0.05 {
		t.Fatalf("P90 expected ~0.9, got %.3f", est.JackpotP90.Hat)
	}
	if est.NoJackpot.Hat != 0.01 {
		t.Fatalf("no-jackpot share got %.3f want 0.01", est.NoJackpot.Hat)
	}
	if math.Abs(est.BelowExpected.Hat-0.51) > 1e-12 {
		t.Fatalf("below-expected share got %.3f want 0.51", est.BelowExpected.Hat)
	}
	var b bytes.Buffer
	est.Fprint(&b)
	if !strings.Contains(b.String(), "Batch Estimate") {
		t.Fatalf("estimate output missing title")
	}
	if empty := stats.EstimateBatches(nil); empty.Batches != 0 {
		t.Fatalf("empty estimate got %+v", empty)
	}
}

func TestFprintTextKeysWithSeparator(t *testing.T) {
	rep := buildReport(100, 0)
	// 兩個不同的組合顯示字串相同，表格仍需各自一列
	rep.Combos = []stats.TallyRow{
		{Key: face.NewKey(face.Strs("a, b", "c")), Count: 30},
		{Key: face.NewKey(face.Strs("a", "b, c")), Count: 70},
	}
	var b bytes.Buffer
	rep.Fprint(&b, time.Second)
	out := b.String()
	if n := strings.Count(out, "(a, b, c)"); n != 2 {
		t.Fatalf("want 2 rows for (a, b, c), got %d:\n%s", n, out)
	}
	for _, want := range []string{"30 (30.00%)", "70 (70.00%)"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}
