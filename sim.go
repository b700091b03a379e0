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

package dicelab

import (
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/zintix-labs/dicelab/analyzer"
	"github.com/zintix-labs/dicelab/errs"
	"github.com/zintix-labs/dicelab/game"
	"github.com/zintix-labs/dicelab/recorder"
	"github.com/zintix-labs/dicelab/server/logger"
	"github.com/zintix-labs/dicelab/setting"
	"github.com/zintix-labs/dicelab/stats"
)

const (
	capPrepare int = 64
	// DefaultChunk 單次 Play 的局數上限，控制結果表的記憶體用量
	DefaultChunk int = 10000
)

// Simulator 依實驗設定建立多個 Game 並平行紀錄統計。
//
// 每個 worker 持有自己的 Game（由 seedMaker 派生的種子建立），
// 結果表逐段（chunk）交給 Analyzer，再由 TallyRecorder 累積。
type Simulator struct {
	Name      string                     // 實驗名稱
	ID        setting.EID                // 實驗 ID
	TopN      int                        // 報表保留的組合/排列列數
	es        *setting.ExperimentSetting // 重建 Game 用
	initSeed  int64                      // 初始種子
	seedmaker *seedMaker                 // 種子生成器
	chunk     int
	log       *slog.Logger
	gBuf      []*game.Game               // 併發 Game 實例
	rBuf      []*recorder.TallyRecorder  // 併發紀錄員
	meta      *recorder.Meta
}

// NewSimulator 不經 Lab，直接由設定建立 Simulator。
func NewSimulator(es *setting.ExperimentSetting, seed int64) (*Simulator, error) {
	return newSimulator(es, seed, nil)
}

func newSimulator(es *setting.ExperimentSetting, seed int64, log *slog.Logger) (*Simulator, error) {
	if es == nil {
		return nil, errs.NewType("simulator: setting must not be nil")
	}
	if log == nil {
		log = logger.NewDefaultLogger(logger.ModeSilence)
	}
	s := &Simulator{
		Name:      es.Name,
		ID:        es.ID,
		TopN:      recorder.DefaultTopN,
		es:        es,
		initSeed:  seed,
		seedmaker: newSeedMaker(seed),
		chunk:     DefaultChunk,
		log:       log,
		gBuf:      make([]*game.Game, 1, capPrepare),
		rBuf:      make([]*recorder.TallyRecorder, 0, capPrepare),
	}
	g, err := es.BuildGame(seed)
	if err != nil {
		return nil, err
	}
	s.gBuf[0] = g
	meta, err := recorder.MetaOf(g, es.Name, int(es.ID), seed)
	if err != nil {
		return nil, err
	}
	s.meta = meta
	return s, nil
}

func (s *Simulator) Seed() int64 { return s.initSeed }

// Setting 模擬器使用的實驗設定
func (s *Simulator) Setting() *setting.ExperimentSetting { return s.es }

// SetChunk 設定單次 Play 的局數，n < 1 時維持原值。
func (s *Simulator) SetChunk(n int) *Simulator {
	if n > 0 {
		s.chunk = n
	}
	return s
}

func (s *Simulator) SetLogger(log *slog.Logger) *Simulator {
	if log != nil {
		s.log = log
	}
	return s
}

// Run 單線模擬：以同一個 Game 連續跑 rounds 局，回傳統計報表與用時。
//
// 同一個 Simulator 重複呼叫 Run 會延續第一個 Game 的亂數序列。
func (s *Simulator) Run(rounds int, showpb bool) (*stats.Report, time.Duration, error) {
	defer s.reset()
	if rounds < 1 {
		return nil, 0, errs.Validationf("simulator: rounds must be positive, got %d", rounds)
	}
	r, err := s.newRecorder()
	if err != nil {
		return nil, 0, err
	}
	s.rBuf = append(s.rBuf, r)

	s.log.Debug("sim start", slog.String("experiment", s.Name), slog.Int("rounds", rounds), slog.Int("workers", 1))
	bar := newBar(rounds, showpb)
	if err := s.play(s.gBuf[0], r, rounds, bar); err != nil {
		bar.Finish()
		return nil, 0, err
	}
	used := time.Since(bar.StartTime())
	bar.Finish()

	rep := r.Done()
	s.log.Info("sim done", slog.String("experiment", s.Name), slog.Int("rounds", rounds), slog.Duration("used", used))
	return rep, used, nil
}

// RunMP 平行模擬：rounds 為總局數，平均分給 workers 個獨立 Game，合併統計後回傳報表與用時。
//
// 每個 worker 的 Game 由 seedMaker 依序派生種子；workers 相同時結果可重現。
func (s *Simulator) RunMP(rounds int, workers int, showpb bool) (*stats.Report, time.Duration, error) {
	defer s.reset()
	if workers < 1 {
		return nil, 0, errs.Validationf("simulator: workers must be positive, got %d", workers)
	}
	if rounds < workers {
		return nil, 0, errs.Validationf("simulator: rounds (%d) must be >= workers (%d)", rounds, workers)
	}
	if err := s.prepareGames(workers); err != nil {
		return nil, 0, err
	}
	for len(s.rBuf) < workers {
		r, err := s.newRecorder()
		if err != nil {
			return nil, 0, err
		}
		s.rBuf = append(s.rBuf, r)
	}

	s.log.Debug("sim start", slog.String("experiment", s.Name), slog.Int("rounds", rounds), slog.Int("workers", workers))
	errc := make([]error, workers)
	wg := new(sync.WaitGroup)
	wg.Add(workers)
	bar := newBar(rounds, showpb)
	per, rest := rounds/workers, rounds%workers
	for i := 0; i < workers; i++ {
		n := per
		if i < rest {
			n++
		}
		go func(i, n int) {
			defer wg.Done()
			errc[i] = s.play(s.gBuf[i], s.rBuf[i], n, bar)
		}(i, n)
	}
	wg.Wait()
	used := time.Since(bar.StartTime())
	bar.Finish()
	for _, err := range errc {
		if err != nil {
			return nil, 0, err
		}
	}

	merged, err := recorder.MergeTallyRecorder(s.rBuf[:workers])
	if err != nil {
		return nil, 0, err
	}
	rep := merged.Done()
	s.log.Info("sim done", slog.String("experiment", s.Name), slog.Int("rounds", rounds), slog.Int("workers", workers), slog.Duration("used", used))
	return rep, used, nil
}

type batchJob struct {
	idx  int
	seed int64
	rec  *recorder.TallyRecorder
}

// RunBatches 批次模擬：batches 個批次各跑 rounds 局（各自以獨立種子建立 Game），
// 由 workers 個 goroutine 消化。回傳合併報表、各批次 Jackpot 率的分布估計與用時。
//
// 批次種子只與初始種子和批次序號有關，與排程無關。
func (s *Simulator) RunBatches(workers int, batches int, rounds int, showpb bool) (*stats.Report, *stats.BatchEstimate, time.Duration, error) {
	defer s.reset()
	if workers < 1 || batches < 1 || rounds < 1 {
		return nil, nil, 0, errs.Validationf("simulator: invalid param workers=%d batches=%d rounds=%d", workers, batches, rounds)
	}

	for len(s.rBuf) < batches {
		r, err := s.newRecorder()
		if err != nil {
			return nil, nil, 0, err
		}
		s.rBuf = append(s.rBuf, r)
	}
	// 先派完種子，批次結果不受 worker 排程影響
	jobsBuf := make([]batchJob, batches)
	for i := range jobsBuf {
		jobsBuf[i] = batchJob{idx: i, seed: s.seedmaker.next(), rec: s.rBuf[i]}
	}

	jobs := make(chan batchJob, min(batches, 2048))
	errc := make([]error, batches)
	wg := new(sync.WaitGroup)
	wg.Add(workers)
	bar := newBar(batches, showpb)
	for w := 0; w < workers; w++ {
		go s.runBatch(wg, jobs, rounds, errc, bar)
	}
	for _, j := range jobsBuf {
		jobs <- j
	}
	close(jobs)
	wg.Wait()
	used := time.Since(bar.StartTime())
	bar.Finish()
	for _, err := range errc {
		if err != nil {
			return nil, nil, 0, err
		}
	}

	merged, err := recorder.MergeTallyRecorder(s.rBuf[:batches])
	if err != nil {
		return nil, nil, 0, err
	}
	rep := merged.Done()

	reports := make([]*stats.Report, batches)
	for i, r := range s.rBuf[:batches] {
		reports[i] = r.Done()
	}
	est := stats.EstimateBatches(reports)
	s.log.Info("batches done", slog.String("experiment", s.Name), slog.Int("batches", batches), slog.Int("rounds", rounds), slog.Duration("used", used))
	return rep, est, used, nil
}

func (s *Simulator) runBatch(wg *sync.WaitGroup, jobs <-chan batchJob, rounds int, errc []error, bar *pb.ProgressBar) {
	defer wg.Done()
	for j := range jobs {
		g, err := s.es.BuildGame(j.seed)
		if err != nil {
			errc[j.idx] = err
			continue
		}
		errc[j.idx] = s.play(g, j.rec, rounds, nil)
		bar.Increment()
	}
}

// play 以 chunk 為單位推進 Game，每段結果交給 Analyzer 再紀錄。bar 為 nil 時不回報進度。
func (s *Simulator) play(g *game.Game, r *recorder.TallyRecorder, rounds int, bar *pb.ProgressBar) error {
	for left := rounds; left > 0; {
		n := min(left, s.chunk)
		if err := g.Play(n); err != nil {
			return err
		}
		a, err := analyzer.New(g)
		if err != nil {
			return err
		}
		if err := r.Record(a); err != nil {
			return err
		}
		left -= n
		if bar != nil {
			bar.Add(n)
		}
	}
	return nil
}

func (s *Simulator) prepareGames(n int) error {
	for len(s.gBuf) < n {
		g, err := s.es.BuildGame(s.seedmaker.next())
		if err != nil {
			return err
		}
		s.gBuf = append(s.gBuf, g)
	}
	return nil
}

func (s *Simulator) newRecorder() (*recorder.TallyRecorder, error) {
	return recorder.NewTallyRecorder(s.meta, s.TopN)
}

func (s *Simulator) reset() {
	s.rBuf = s.rBuf[:0]
}

func newBar(total int, showpb bool) *pb.ProgressBar {
	bar := pb.StartNew(total)
	if !showpb {
		bar.SetWriter(io.Discard)
	}
	return bar
}

const mask63 = uint64(1<<63) - 1

type seedMaker struct {
	state atomic.Uint64 // always in [0, 2^63)
}

func newSeedMaker(seed int64) *seedMaker {
	s := &seedMaker{}
	s.state.Store(uint64(seed) & mask63)
	return s
}

// next 以全週期 LCG 推進 state（不重複），再經可逆的 mix63 打散。
//
// 可能被多個 goroutine 同時呼叫，state 以 CAS 迴圈原子推進，每次呼叫取得唯一的下一個 state。
func (s *seedMaker) next() int64 {
	for {
		old := s.state.Load()
		next := (old*6364136223846793005 + 1442695040888963407) & mask63 // full-period LCG mod 2^63
		if s.state.CompareAndSwap(old, next) {
			return int64(mix63(next)) // 一定非負
		}
	}
}

// mix63：只用可逆的 bit 操作 + 乘奇數（mod 2^63）
func mix63(x uint64) uint64 {
	x &= mask63
	x ^= x >> 30
	x = (x * 0xBF58476D1CE4E5B9) & mask63
	x ^= x >> 27
	x = (x * 0x94D049BB133111EB) & mask63
	x ^= x >> 31
	return x & mask63
}
