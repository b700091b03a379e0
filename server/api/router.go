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
	"log/slog"

	v1 "github.com/zintix-labs/dicelab/server/api/v1"
	"github.com/zintix-labs/dicelab/server/netsvr"
	"github.com/zintix-labs/dicelab/server/netsvr/middleware"
	"github.com/zintix-labs/dicelab/server/svrcfg"
)

// RegisterRoutes 註冊 middleware 與 /v1 api；sCfg 必須已經過 Valid()。
func RegisterRoutes(svr netsvr.NetRouter, sCfg *svrcfg.SvrCfg) error {
	registerMiddleware(svr, sCfg.Log) // 1. 註冊 middleware
	return registerV1API(svr, sCfg)   // 2. 註冊 v1 api
}

// 註冊 middleware
func registerMiddleware(svr netsvr.NetRouter, log *slog.Logger) {
	svr.Use(middleware.RequestID)
	svr.Use(middleware.AccessLog(log))
	svr.Use(middleware.Recover(log))
	svr.Use(middleware.Compression)
}

// 註冊 v1 api；/runs 只在設定了 archive 時提供
func registerV1API(svr netsvr.NetRouter, sCfg *svrcfg.SvrCfg) error {
	h, err := v1.NewHandler(sCfg)
	if err != nil {
		return err
	}
	svr.Group("/v1", func(vOne netsvr.NetRouter) {
		vOne.Get("/healthz", h.Healthz)
		vOne.Get("/experiments", h.Experiments)
		vOne.Get("/experiments/{id}", h.Experiment)

		vOne.Get("/sim", h.Sim)
		vOne.Post("/sim", h.Sim)
		vOne.Post("/play", h.Play)

		if sCfg.Archive != nil {
			vOne.Get("/runs", h.Runs)
			vOne.Get("/runs/{id}", h.Run)
		}
	})
	return nil
}
