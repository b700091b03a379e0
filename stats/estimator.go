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

package stats

import (
	"fmt"
	"io"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// ============================================================
// ** 結構宣告 **
// ============================================================

// GOF 卡方適合度檢定結果。DoF 為 0 時（只有一個可能點數）PValue 固定為 1。
type GOF struct {
	Statistic float64 `json:"statistic"`
	DoF       int     `json:"dof"`
	PValue    float64 `json:"p_value"`
}

// PointStat 點估計 回傳 估計值 以及信賴區間
type PointStat struct {
	Hat float64 `json:"hat"`
	CI  CI      `json:"ci"`
}

// BatchEstimate 多個獨立批次的 Jackpot 比率分布
type BatchEstimate struct {
	Batches       int       `json:"batches"`
	Expected      float64   `json:"expected"`
	JackpotMedian PointStat `json:"jackpot_median"`
	JackpotP10    PointStat `json:"jackpot_p10"`
	JackpotP90    PointStat `json:"jackpot_p90"`
	BelowExpected PointStat `json:"below_expected"` // 比率 ≤ 理論機率的批次比例
	NoJackpot     PointStat `json:"no_jackpot"`     // 整批沒有任何 Jackpot 的比例
}

// ============================================================
// ** 對外 : 估計 **
// ============================================================

// ProportionCI Clopper–Pearson 二項比例精確信賴區間（k 次成功 / n 次試驗）。
func ProportionCI(k int, n int, confidence float64) (float64, CI) {
	return proportionCICP(k, n, confidence)
}

// ChiSquareGOF 以理論機率 probs 對觀測次數 observed 做卡方適合度檢定。
//
// 理論機率為 0 的點數不列入自由度；若該點數仍有觀測值，統計量取 MaxFloat64、p 值為 0。
func ChiSquareGOF(observed []int, probs []float64) GOF {
	n := 0
	for _, o := range observed {
		n += o
	}
	if n == 0 || len(observed) != len(probs) {
		return GOF{PValue: 1}
	}
	obs := make([]float64, 0, len(observed))
	exp := make([]float64, 0, len(observed))
	for i, o := range observed {
		if probs[i] <= 0 {
			if o > 0 {
				return GOF{Statistic: math.MaxFloat64, DoF: len(observed) - 1, PValue: 0}
			}
			continue
		}
		obs = append(obs, float64(o))
		exp = append(exp, probs[i]*float64(n))
	}
	dof := len(obs) - 1
	if dof < 1 {
		return GOF{PValue: 1}
	}
	x := stat.ChiSquare(obs, exp)
	p := distuv.ChiSquared{K: float64(dof)}.Survival(x)
	return GOF{Statistic: x, DoF: dof, PValue: p}
}

// ExpectedJackpot 由每顆骰子的點數機率（欄位對齊同一組點數）計算單局 Jackpot 理論機率：
// Σ_face Π_die p_die(face)。
func ExpectedJackpot(probs [][]float64) float64 {
	if len(probs) == 0 {
		return 0
	}
	total := 0.0
	for k := range probs[0] {
		p := 1.0
		for _, row := range probs {
			if k >= len(row) {
				p = 0
				break
			}
			p *= row[k]
		}
		total += p
	}
	return total
}

// EstimateBatches 以每個批次的 Jackpot 比率估計分位數與比例（皆附 95% CI）。
func EstimateBatches(reports []*Report) *BatchEstimate {
	n := len(reports)
	out := &BatchEstimate{Batches: n}
	if n == 0 {
		return out
	}
	rates := make([]float64, n)
	zero := 0
	for i, r := range reports {
		r.Done()
		rates[i] = r.Summary.JackpotRate
		if r.Summary.Jackpots == 0 {
			zero++
		}
	}
	out.Expected = reports[0].Summary.ExpectedJackpot

	medLo, medHi := quantileCI(rates, 0.5, 0.95)
	p10Lo, p10Hi := quantileCI(rates, 0.10, 0.95)
	p90Lo, p90Hi := quantileCI(rates, 0.90, 0.95)
	out.JackpotMedian = PointStat{Hat: quantilePoint(rates, 0.5), CI: CI{Lo: medLo, Hi: medHi}}
	out.JackpotP10 = PointStat{Hat: quantilePoint(rates, 0.10), CI: CI{Lo: p10Lo, Hi: p10Hi}}
	out.JackpotP90 = PointStat{Hat: quantilePoint(rates, 0.90), CI: CI{Lo: p90Lo, Hi: p90Hi}}

	belowHat, belowCI := percentileCIForValue(rates, out.Expected, 0.95)
	out.BelowExpected = PointStat{Hat: belowHat, CI: belowCI}
	zeroHat, zeroCI := proportionCICP(zero, n, 0.95)
	out.NoJackpot = PointStat{Hat: zeroHat, CI: zeroCI}
	return out
}

// ============================================================
// ** 內部統計函數 **
// ============================================================

// Clopper–Pearson exact CI for binomial proportion (k successes out of n)
func proportionCICP(k int, n int, confidence float64) (pHat float64, ci CI) {
	if n == 0 {
		return 0, CI{0, 1}
	}
	alpha := 1 - confidence
	pHat = float64(k) / float64(n)

	// Beta PPF 映射，處理邊界
	if k == 0 {
		ci.Lo = 0
	} else {
		b := distuv.Beta{Alpha: float64(k), Beta: float64(n - k + 1)}
		ci.Lo = b.Quantile(alpha / 2)
	}
	if k == n {
		ci.Hi = 1
	} else {
		b := distuv.Beta{Alpha: float64(k + 1), Beta: float64(n - k)}
		ci.Hi = b.Quantile(1 - alpha/2)
	}
	return
}

// 給定樣本 data 與門檻 x0，估計 p = P(X ≤ x0) 的點估計與 CI 區間
func percentileCIForValue(data []float64, x0 float64, confidence float64) (pHat float64, ci CI) {
	n := len(data)
	if n == 0 {
		return 0, CI{Lo: 0, Hi: 0}
	}
	k := 0
	for _, v := range data {
		if v <= x0 {
			k++
		}
	}
	return proportionCICP(k, n, confidence)
}

// 第 q 分位的上下界：order statistic 的秩視為二項，以 Beta 反推 p 範圍，再把 p 轉回樣本索引。
func quantileCI(data []float64, q, confidence float64) (float64, float64) {
	n := len(data)
	if n == 0 {
		return 0, 0
	}
	cp := make([]float64, n)
	copy(cp, data)
	sort.Float64s(cp)
	if n == 1 {
		return cp[0], cp[0]
	}

	alpha := 1 - confidence
	k := int(q * float64(n))
	if k < 1 {
		k = 1
	} else if k > n-1 {
		k = n - 1
	}

	bLo := distuv.Beta{Alpha: float64(k), Beta: float64(n - k + 1)}
	bHi := distuv.Beta{Alpha: float64(k + 1), Beta: float64(n - k)}
	pLo := bLo.Quantile(alpha / 2)
	pHi := bHi.Quantile(1 - alpha/2)

	li := int(pLo * float64(n))
	ui := int(pHi * float64(n))
	if ui > 0 {
		ui -= 1
	}
	li = min(max(li, 0), n-1)
	ui = min(max(ui, 0), n-1)
	return cp[li], cp[ui]
}

// quantilePoint 最近秩法的經驗分位數
func quantilePoint(data []float64, q float64) float64 {
	n := len(data)
	if n == 0 {
		return 0
	}
	cp := make([]float64, n)
	copy(cp, data)
	sort.Float64s(cp)
	idx := min(max(int(q*float64(n)), 0), n-1)
	return cp[idx]
}

// ============================================================
// ** 輸出函數 **
// ============================================================

// Fprint 以文字輸出批次估計
func (est *BatchEstimate) Fprint(w io.Writer) {
	keys := []string{
		"Batches",
		"Expected Jackpot",
		"Median Jackpot Rate",
		"P10 Jackpot Rate",
		"P90 Jackpot Rate",
		"≤ Expected (batches)",
		"No Jackpot (batches)",
	}
	msg := map[string]string{
		"Batches":              fmt.Sprintf("%d", est.Batches),
		"Expected Jackpot":     fmtPct01(est.Expected),
		"Median Jackpot Rate":  fmtHatCIpct01(est.JackpotMedian.Hat, est.JackpotMedian.CI),
		"P10 Jackpot Rate":     fmtHatCIpct01(est.JackpotP10.Hat, est.JackpotP10.CI),
		"P90 Jackpot Rate":     fmtHatCIpct01(est.JackpotP90.Hat, est.JackpotP90.CI),
		"≤ Expected (batches)": fmtHatCIpct01(est.BelowExpected.Hat, est.BelowExpected.CI),
		"No Jackpot (batches)": fmtHatCIpct01(est.NoJackpot.Hat, est.NoJackpot.CI),
	}
	fmt.Fprintln(w, fmtTable("Batch Estimate", keys, msg))
}

func fmtPct01(x float64) string {
	return fmt.Sprintf("%.2f%%", x*100)
}

func fmtHatCIpct01(hat float64, ci CI) string {
	return fmt.Sprintf("%s [%s, %s]", fmtPct01(hat), fmtPct01(ci.Lo), fmtPct01(ci.Hi))
}
