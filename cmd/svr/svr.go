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
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/zintix-labs/dicelab"
	"github.com/zintix-labs/dicelab/archive"
	"github.com/zintix-labs/dicelab/demo/demo_configs"
	"github.com/zintix-labs/dicelab/errs"
	"github.com/zintix-labs/dicelab/server"
	"github.com/zintix-labs/dicelab/server/logger"
	"github.com/zintix-labs/dicelab/server/svrcfg"
)

// Lab server 入口：環境變數（DICELAB_*）提供預設值，旗標優先。
func main() {
	sCfg, closeFn, err := loadConfig(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer closeFn()
	if err := server.Run(sCfg); err != nil {
		closeFn()
		os.Exit(1)
	}
}

type config struct {
	Addr      string
	LogMode   string
	Archive   string
	Dir       string
	MaxRounds int
	Workers   int
}

func parseFlags(args []string, e *svrcfg.Env) (*config, error) {
	cfg := new(config)
	fset := flag.NewFlagSet("svr", flag.ContinueOnError)
	fset.StringVar(&cfg.Addr, "addr", e.Addr, "listen address")
	fset.StringVar(&cfg.LogMode, "log-mode", e.LogMode, "log mode: dev|prod|silence")
	fset.StringVar(&cfg.Archive, "archive", e.Archive, "sqlite file for saved runs (empty: disabled)")
	fset.StringVar(&cfg.Dir, "dir", "", "experiment config dir (default: embedded demos)")
	fset.IntVar(&cfg.MaxRounds, "max-rounds", e.MaxRounds, "max rounds per request")
	fset.IntVar(&cfg.Workers, "workers", svrcfg.DefaultWorkers, "workers per /sim request")
	if err := fset.Parse(args); err != nil {
		return nil, errs.Wrap(errs.NewValidation(err.Error()), "parse flags")
	}
	return cfg, nil
}

// loadConfig 回傳的 closeFn 負責關閉 archive 與非同步 logger。
func loadConfig(args []string) (*svrcfg.SvrCfg, func(), error) {
	e, err := svrcfg.FromEnv()
	if err != nil {
		return nil, nil, err
	}
	cfg, err := parseFlags(args, e)
	if err != nil {
		return nil, nil, err
	}
	mode, err := logger.ParseMode(cfg.LogMode)
	if err != nil {
		return nil, nil, err
	}
	log, ah := logger.NewAsync(4096, mode)

	var src fs.FS = demo_configs.FS
	if cfg.Dir != "" {
		src = os.DirFS(cfg.Dir)
	}
	lab, err := dicelab.NewAuto(dicelab.Configs(src)...)
	if err != nil {
		ah.Close()
		return nil, nil, err
	}
	lab.SetLogger(log)

	sCfg := &svrcfg.SvrCfg{
		Log:       log,
		Lab:       lab,
		MaxRounds: cfg.MaxRounds,
		Workers:   cfg.Workers,
		Addr:      cfg.Addr,
	}
	if cfg.Archive != "" {
		store, err := archive.Open(cfg.Archive)
		if err != nil {
			ah.Close()
			return nil, nil, err
		}
		sCfg.Archive = store
		log.Info("archive opened", slog.String("path", cfg.Archive))
	}
	closeFn := func() {
		if sCfg.Archive != nil {
			_ = sCfg.Archive.Close()
		}
		ah.Close()
		if n := ah.Dropped(); n > 0 {
			fmt.Fprintf(os.Stderr, "logger: %d records dropped\n", n)
		}
	}
	return sCfg, closeFn, nil
}
