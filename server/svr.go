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

package server

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/zintix-labs/dicelab/errs"
	"github.com/zintix-labs/dicelab/server/api"
	"github.com/zintix-labs/dicelab/server/app"
	"github.com/zintix-labs/dicelab/server/netsvr"
	"github.com/zintix-labs/dicelab/server/svrcfg"
)

// Run 是 server 套件的「組裝器（assembler）」與「啟動入口（runtime entry）」。
// 它負責：
//  1. 驗證輸入的 SvrCfg（包含必要依賴，例如 logger、Lab）。
//  2. 建立 HTTP server（netsvr，監聽 SvrCfg.Addr）。
//  3. 註冊路由與 middleware（api.RegisterRoutes）。
//  4. 啟動 app.Run() 並在收到 SIGINT/SIGTERM 時優雅關閉。
//
// Run 不綁定任何「檔案路徑」或「環境變數」策略；所有依賴都應透過 SvrCfg 明確注入。
func Run(sCfg *svrcfg.SvrCfg) error {
	return RunContext(context.Background(), sCfg)
}

// RunContext 與 Run 相同，ctx 結束時也會優雅關閉。
func RunContext(ctx context.Context, sCfg *svrcfg.SvrCfg) error {
	if err := sCfg.Valid(); err != nil {
		// 防止外層傳入的 logger 不可用
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	return RunWithSvr(ctx, sCfg, netsvr.NewChiServer(sCfg.Addr))
}

// RunWithSvr 允許呼叫端注入自訂的 NetSvr（自訂 listener、timeout 或其他框架的 adapter）。
//
//   - svr 必須非 nil，且若是 ChiAdapter 會要求 Ready() 為 true。
//   - 這一層只負責「註冊 routes + 啟動 app」，不接管整個系統的組裝方式；
//     需要更細的控制時，直接呼叫 api.RegisterRoutes 掛載到既有 router。
func RunWithSvr(ctx context.Context, sCfg *svrcfg.SvrCfg, svr netsvr.NetSvr) error {
	if err := sCfg.Valid(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	if svr == nil {
		return errs.NewFatal("svr is required")
	}
	if s, ok := svr.(*netsvr.ChiAdapter); ok && !s.Ready() {
		return errs.NewFatal("default server is not ready")
	}
	if err := api.RegisterRoutes(svr, sCfg); err != nil {
		return err
	}

	a := app.NewWith(svr)
	sCfg.Log.Info("[dicelab] listening", slog.String("addr", sCfg.Addr), slog.Bool("archive", sCfg.Archive != nil))
	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := a.RunContext(sigCtx); err != nil {
		sCfg.Log.Error("[dicelab] server stopped", slog.Any("err", err))
		return err
	}
	sCfg.Log.Info("[dicelab] server stopped")
	return nil
}
