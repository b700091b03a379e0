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

// Package stats 擲骰統計報告。
//
// Report 由 recorder 累積後產生：Jackpot 比率與 Clopper–Pearson 信賴區間、
// 依權重推得的理論 Jackpot 機率、每顆骰子的卡方適合度檢定、點數總計、
// Jackpot 間隔分布，以及最常出現的組合/排列。
package stats

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/zintix-labs/dicelab/face"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var lang language.Tag = language.English

// 信賴區間
type CI struct {
	Lo float64 `json:"lo"`
	Hi float64 `json:"hi"`
}

// Report 實驗統計報告
type Report struct {
	Summary      *SummaryReport `json:"summary"`
	Dice         []*DieReport   `json:"dice"`
	Faces        *FaceReport    `json:"faces"`
	Gaps         *GapReport     `json:"gaps"`
	Combos       []TallyRow     `json:"combos"`
	Permutations []TallyRow     `json:"permutations"`
	isDone       bool
}

type SummaryReport struct {
	Name                 string  `json:"name"`
	ID                   int     `json:"id"`
	Sampler              string  `json:"sampler"`
	Seed                 int64   `json:"seed"`
	Rounds               int     `json:"rounds"`
	Dice                 int     `json:"dice"`
	Jackpots             int     `json:"jackpots"`
	JackpotRate          float64 `json:"jackpot_rate"`
	JackpotCI            CI      `json:"jackpot_ci"`
	ExpectedJackpot      float64 `json:"expected_jackpot"`
	DistinctCombos       int     `json:"distinct_combos"`
	DistinctPermutations int     `json:"distinct_permutations"`
}

// DieReport 單顆骰子的觀測次數與卡方適合度檢定
type DieReport struct {
	Die      int          `json:"die"`
	Faces    []face.Label `json:"faces"`
	Expected []float64    `json:"expected"` // 理論機率
	Observed []int        `json:"observed"`
	GOF      GOF          `json:"gof"`
}

// FaceReport 所有骰子合計的點數出現次數
type FaceReport struct {
	Faces  []face.Label `json:"faces"`
	Counts []int        `json:"counts"`
	Rates  []float64    `json:"rates"`
}

// GapReport 相鄰 Jackpot 之間的局數分布
type GapReport struct {
	Bucket  []string  `json:"bucket"`
	Collect []int     `json:"collect"`
	Dist    []float64 `json:"dist"`
}

// TallyRow 組合/排列及其次數
type TallyRow struct {
	Key   face.Key `json:"key"`
	Count int      `json:"count"`
	Rate  float64  `json:"rate"`
}

// ============================================================
// ** 公開方法 **
// ============================================================

// Done 將累積計數轉換為比率、信賴區間與檢定結果，重複呼叫無作用。
func (s *Report) Done() {
	if s.isDone {
		return
	}
	n := s.Summary.Rounds
	s.Summary.JackpotRate, s.Summary.JackpotCI = ProportionCI(s.Summary.Jackpots, n, 0.95)

	for _, d := range s.Dice {
		d.GOF = ChiSquareGOF(d.Observed, d.Expected)
	}

	if s.Faces != nil {
		cells := n * s.Summary.Dice
		s.Faces.Rates = make([]float64, len(s.Faces.Counts))
		for i, c := range s.Faces.Counts {
			if cells > 0 {
				s.Faces.Rates[i] = float64(c) / float64(cells)
			}
		}
	}

	if s.Gaps != nil {
		total := 0
		for _, c := range s.Gaps.Collect {
			total += c
		}
		s.Gaps.Dist = make([]float64, len(s.Gaps.Collect))
		for i, c := range s.Gaps.Collect {
			if total > 0 {
				s.Gaps.Dist[i] = float64(c) / float64(total)
			}
		}
	}

	fillRates(s.Combos, n)
	fillRates(s.Permutations, n)
	s.isDone = true
}

func fillRates(rows []TallyRow, rounds int) {
	if rounds == 0 {
		return
	}
	for i := range rows {
		rows[i].Rate = float64(rows[i].Count) / float64(rounds)
	}
}

// JackpotLift 觀測 Jackpot 比率 / 理論機率，理論機率為 0 時回傳 0。
func (s *Report) JackpotLift() float64 {
	if s.Summary.ExpectedJackpot <= 0 {
		return 0
	}
	return s.Summary.JackpotRate / s.Summary.ExpectedJackpot
}

func (s *Report) WriteWith(w io.Writer, rep ReportRender) error {
	s.Done()
	return rep.Write(w, s)
}

// StdOut 以文字表格輸出到標準輸出
func (s *Report) StdOut(ut time.Duration) {
	s.Fprint(os.Stdout, ut)
}

// Fprint 以文字表格輸出：耗時、摘要、每顆骰子檢定、最常見組合。
func (s *Report) Fprint(w io.Writer, ut time.Duration) {
	s.Done()
	fmt.Fprint(w, formatDuration(ut, s.Summary.Rounds))
	sk, sm := s.fmtBasic()
	fmt.Fprintln(w, fmtTable(s.Summary.Name, sk, sm))
	if len(s.Dice) > 0 {
		dk, dm := s.fmtDice()
		fmt.Fprintln(w, fmtTable("Goodness of Fit", dk, dm))
	}
	if len(s.Combos) > 0 {
		ck, cm, cs := fmtTally(s.Combos)
		fmt.Fprintln(w, fmtTableAs("Top Combinations", ck, cm, cs))
	}
}

// ============================================================
// ** 內部方法 **
// ============================================================

func formatDuration(d time.Duration, rounds int) string {
	p := message.NewPrinter(lang)
	if d < 0 {
		d = -d
	}
	sec := d.Seconds()
	if sec <= 0 {
		sec = 1e-9
	}
	rps := int(float64(rounds) / sec)
	if sec < 60.0 {
		return p.Sprintf("used: %.2f seconds\nrps : %d rounds/sec\n", sec, rps)
	}
	sc := int(d.Seconds()) % 60
	m := int(d.Minutes()) % 60
	h := int(d.Hours())
	if h == 0 {
		return p.Sprintf("used: %dm %ds\nrps : %d rounds/sec\n", m, sc, rps)
	}
	return p.Sprintf("used: %dh:%dm:%ds\nrps : %d rounds/sec\n", h, m, sc, rps)
}

func (s *Report) fmtBasic() ([]string, map[string]string) {
	p := message.NewPrinter(lang)
	basic := map[string]string{
		"Name":             p.Sprintf("%s", s.Summary.Name),
		"ID":               fmt.Sprintf("%d", s.Summary.ID),
		"Sampler":          s.Summary.Sampler,
		"Seed":             fmt.Sprintf("%d", s.Summary.Seed),
		"Total Rounds":     p.Sprintf("%d", s.Summary.Rounds),
		"Dice":             p.Sprintf("%d", s.Summary.Dice),
		"Jackpots":         p.Sprintf("%d", s.Summary.Jackpots),
		"Jackpot Rate":     p.Sprintf("%.4f %%", 100.0*s.Summary.JackpotRate),
		"Jackpot 95% CI":   p.Sprintf("[%.4f%%,%.4f%%]", 100.0*s.Summary.JackpotCI.Lo, 100.0*s.Summary.JackpotCI.Hi),
		"Expected Jackpot": p.Sprintf("%.4f %%", 100.0*s.Summary.ExpectedJackpot),
		"Combinations":     p.Sprintf("%d", s.Summary.DistinctCombos),
		"Permutations":     p.Sprintf("%d", s.Summary.DistinctPermutations),
	}
	keys := []string{"Name", "ID", "Sampler", "Seed", "Total Rounds", "Dice", "Jackpots", "Jackpot Rate", "Jackpot 95% CI", "Expected Jackpot", "Combinations", "Permutations"}
	return keys, basic
}

func (s *Report) fmtDice() ([]string, map[string]string) {
	p := message.NewPrinter(lang)
	keys := make([]string, 0, len(s.Dice))
	msg := make(map[string]string, len(s.Dice))
	for _, d := range s.Dice {
		k := fmt.Sprintf("Die %d", d.Die)
		keys = append(keys, k)
		msg[k] = p.Sprintf("chi2=%.3f dof=%d p=%.4f", d.GOF.Statistic, d.GOF.DoF, d.GOF.PValue)
	}
	return keys, msg
}

// fmtTally 以 Key.ID() 為 map key（文字點數可能含 ", "，顯示字串會撞名）；第三個回傳值為顯示用字串。
func fmtTally(rows []TallyRow) ([]string, map[string]string, map[string]string) {
	p := message.NewPrinter(lang)
	keys := make([]string, 0, len(rows))
	msg := make(map[string]string, len(rows))
	show := make(map[string]string, len(rows))
	for _, r := range rows {
		k := r.Key.ID()
		keys = append(keys, k)
		msg[k] = p.Sprintf("%d (%.2f%%)", r.Count, 100.0*r.Rate)
		show[k] = r.Key.String()
	}
	return keys, msg, show
}

func fmtTable(title string, keys []string, msg map[string]string) string {
	return fmtTableAs(title, keys, msg, nil)
}

// fmtTableAs show 非 nil 時，第一欄顯示 show[k] 而不是 k。
func fmtTableAs(title string, keys []string, msg map[string]string, show map[string]string) string {
	p := message.NewPrinter(lang)
	label := func(k string) string {
		if s, ok := show[k]; ok {
			return s
		}
		return k
	}
	maxKeyLen := 0
	maxValLen := 0
	for k, m := range msg {
		if w := runewidth.StringWidth(label(k)); w > maxKeyLen {
			maxKeyLen = w
		}
		if w := runewidth.StringWidth(m); w > maxValLen {
			maxValLen = w
		}
	}
	maxKeyLen += 2
	maxValLen += 2
	// 標題比內容寬時撐開數值欄
	if titleW := runewidth.StringWidth(title); maxKeyLen+maxValLen+1 < titleW {
		maxValLen = titleW - maxKeyLen - 1
	}

	divider := "+" + strings.Repeat("-", maxKeyLen) + "+" + strings.Repeat("-", maxValLen) + "+\n"
	top := "+" + strings.Repeat("-", maxKeyLen+1+maxValLen) + "+\n"

	totalInner := maxKeyLen + maxValLen + 1
	titleW := runewidth.StringWidth(title)

	left := (totalInner - titleW) / 2
	right := totalInner - titleW - left

	var sb strings.Builder
	sb.WriteString(top)
	sb.WriteString(p.Sprintf("|%s%s%s|\n", blank(left), title, blank(right)))
	sb.WriteString(divider)
	for _, k := range keys {
		l := label(k)
		sb.WriteString(p.Sprintf("| %s%s | %s%s |\n", l, blank(maxKeyLen-2-runewidth.StringWidth(l)), msg[k], blank(maxValLen-2-runewidth.StringWidth(msg[k]))))
	}
	sb.WriteString(divider)
	return sb.String()
}

func blank(w int) string {
	if w < 1 {
		return ""
	}
	return strings.Repeat(" ", w)
}
