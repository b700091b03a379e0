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

package main

import (
	"context"
	"encoding/json"
	"flag"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/zintix-labs/dicelab"
	"github.com/zintix-labs/dicelab/archive"
	"github.com/zintix-labs/dicelab/demo/demo_configs"
	"github.com/zintix-labs/dicelab/dto"
	"github.com/zintix-labs/dicelab/errs"
	"github.com/zintix-labs/dicelab/setting"
	"github.com/zintix-labs/dicelab/stats"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

type config struct {
	id        int
	name      string
	rounds    int
	worker    int
	batches   int
	top       int
	seed      int64
	format    string
	dir       string
	archive   string
	pprofmode string
}

func bindVar(args []string) (*config, error) {
	cfg := new(config)
	fset := flag.NewFlagSet("run", flag.ContinueOnError)
	fset.IntVar(&cfg.id, "id", 0, "experiment id")
	fset.StringVar(&cfg.name, "name", "", "experiment name (instead of -id)")
	fset.IntVar(&cfg.rounds, "rounds", 0, "rounds (per batch when -batches > 0); 0 uses the experiment default")
	fset.IntVar(&cfg.worker, "worker", 1, "number of workers")
	fset.IntVar(&cfg.batches, "batches", 0, "run independent batches and estimate their spread")
	fset.IntVar(&cfg.top, "top", 10, "top-N combos/permutations in the report")
	fset.Int64Var(&cfg.seed, "seed", -1, "int64 seed for random number generator (<0: random)")
	fset.StringVar(&cfg.format, "format", "text", "output: text|json|yaml")
	fset.StringVar(&cfg.dir, "dir", "", "experiment config dir (default: embedded demos)")
	fset.StringVar(&cfg.archive, "archive", "", "sqlite file to save the run into")
	fset.StringVar(&cfg.pprofmode, "p", "", "pprof: '', cpu, heap, allocs")
	if err := fset.Parse(args); err != nil {
		return nil, errs.Wrap(errs.NewValidation(err.Error()), "parse flags")
	}
	return cfg, cfg.valid()
}

func (cfg *config) valid() error {
	if (cfg.id > 0) == (cfg.name != "") {
		return errs.NewValidation("value err : exactly one of -id or -name is required")
	}
	// 工作協程檢查(併發數)
	if cfg.worker < 1 {
		return errs.NewValidation("value err : workers must > 0")
	}
	if cfg.rounds < 0 || cfg.batches < 0 || cfg.top < 0 {
		return errs.NewValidation("value err : rounds, batches and top must >= 0")
	}
	cfg.format = strings.ToLower(cfg.format)
	switch cfg.format {
	case "text", "json", "yaml":
	default:
		return errs.Validationf("value err : unknown format %q", cfg.format)
	}
	return nil
}

func loadLab(dir string) (*dicelab.Lab, error) {
	var src fs.FS = demo_configs.FS
	if dir != "" {
		src = os.DirFS(dir)
	}
	return dicelab.NewAuto(dicelab.Configs(src)...)
}

// 這裡解析並分支要執行的模擬器
func executeSimulator(w io.Writer, cfg *config) error {
	lab, err := loadLab(cfg.dir)
	if err != nil {
		return err
	}
	id := setting.EID(cfg.id)
	if cfg.name != "" {
		ent, ok := lab.EntryByName(cfg.name)
		if !ok {
			return errs.NotFoundf("experiment %q not found", cfg.name)
		}
		id = ent.ID
	}
	var sim *dicelab.Simulator
	if cfg.seed < 0 {
		sim, err = lab.NewSimulatorRandom(id)
	} else {
		sim, err = lab.NewSimulator(id, cfg.seed)
	}
	if err != nil {
		return err
	}
	sim.TopN = cfg.top
	rounds := cfg.rounds
	if rounds == 0 {
		rounds = sim.Setting().Rounds
	}
	text := cfg.format == "text"

	// 至此確保可執行
	if text {
		green := "\033[1;32m"
		reset := "\033[0m"
		p := message.NewPrinter(language.English)
		p.Fprintf(w, "%s[EXPERIMENT:%s] [WORKERS:%d] [BATCHES:%d] [ROUNDS:%d] [SEED:%d]%s\n",
			green, sim.Name, cfg.worker, cfg.batches, rounds, sim.Seed(), reset)
	}

	var (
		rep  *stats.Report
		est  *stats.BatchEstimate
		used time.Duration
	)
	switch {
	case cfg.batches > 0:
		rep, est, used, err = sim.RunBatches(cfg.worker, cfg.batches, rounds, text)
	case cfg.worker > 1:
		rep, used, err = sim.RunMP(rounds, cfg.worker, text) // 併發
	default:
		rep, used, err = sim.Run(rounds, text)
	}
	if err != nil {
		return err
	}

	res := &dto.SimResult{Report: rep, Batches: est, UsedTime: used.Milliseconds()}
	if cfg.archive != "" {
		store, err := archive.Open(cfg.archive)
		if err != nil {
			return err
		}
		defer store.Close()
		run, err := store.SaveRun(context.Background(), rep, nil)
		if err != nil {
			return err
		}
		res.RunID = run.ID
	}
	return output(w, cfg.format, res, used)
}

func output(w io.Writer, format string, res *dto.SimResult, used time.Duration) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	case "yaml":
		return stats.WriteYAML(w, res)
	}
	res.Report.Fprint(w, used)
	if res.Batches != nil {
		res.Batches.Fprint(w)
	}
	if res.RunID > 0 {
		message.NewPrinter(language.English).Fprintf(w, "saved run #%d\n", res.RunID)
	}
	return nil
}
