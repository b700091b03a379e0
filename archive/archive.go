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

// Package archive 以 SQLite 保存模擬/擲骰紀錄（Run）。
//
// 每個 Run 保存報表摘要與完整 JSON 報表；由 /play 產生的 Run 另外保存逐格結果（長表）。
package archive

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"time"

	"github.com/zintix-labs/dicelab/errs"
	"github.com/zintix-labs/dicelab/face"
	"github.com/zintix-labs/dicelab/game"
	"github.com/zintix-labs/dicelab/stats"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

// DefaultLimit ListRuns 未指定 limit 時的筆數
const DefaultLimit = 50

// Run 一筆保存的紀錄
type Run struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	ExperimentID int             `json:"experiment_id"`
	Sampler      string          `json:"sampler"`
	Seed         int64           `json:"seed"`
	Rounds       int             `json:"rounds"`
	Dice         int             `json:"dice"`
	Jackpots     int             `json:"jackpots"`
	Faces        []face.Label    `json:"faces"`
	Report       json.RawMessage `json:"report,omitempty"` // ListRuns 不帶報表
	CreatedAt    time.Time       `json:"created_at"`
}

// Store SQLite 紀錄庫
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open 開啟（或建立）path 指定的資料庫並套用 migrations。
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errs.NewValidation("archive: storage path is required")
	}
	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errs.Wrap(err, "archive: open sqlite db")
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, errs.Wrap(err, "archive: ping sqlite db")
	}
	// _foreign_keys 參數只作用在第一條連線，單連線確保 cascade 生效
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, errs.Wrap(err, "archive: enable foreign keys")
	}
	if err := applyMigrations(context.Background(), db, migrations, "migrations"); err != nil {
		_ = db.Close()
		return nil, errs.Wrap(err, "archive: run migrations")
	}
	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveRun 保存報表；table 可為 nil（只存摘要），非 nil 時骰子數必須與報表一致。
func (s *Store) SaveRun(ctx context.Context, rep *stats.Report, table *game.NarrowTable) (*Run, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if rep == nil || rep.Summary == nil {
		return nil, errs.NewType("archive: report must not be nil")
	}
	rep.Done()
	sum := rep.Summary
	if table != nil {
		if table.Dice != sum.Dice {
			return nil, errs.Validationf("archive: table has %d dice, report has %d", table.Dice, sum.Dice)
		}
		if len(table.Rows) != sum.Rounds*sum.Dice {
			return nil, errs.Validationf("archive: table has %d cells, want %d", len(table.Rows), sum.Rounds*sum.Dice)
		}
	}
	var faces []face.Label
	if rep.Faces != nil {
		faces = rep.Faces.Faces
	}
	facesJSON, err := json.Marshal(faces)
	if err != nil {
		return nil, errs.Wrap(err, "archive: encode faces")
	}
	repJSON, err := json.Marshal(rep)
	if err != nil {
		return nil, errs.Wrap(err, "archive: encode report")
	}
	created := s.now().UTC().Truncate(time.Millisecond)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errs.Wrap(err, "archive: begin")
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
INSERT INTO runs (
	name,
	experiment_id,
	sampler,
	seed,
	rounds,
	dice,
	jackpots,
	faces,
	report,
	created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`,
		sum.Name, sum.ID, sum.Sampler, sum.Seed, sum.Rounds, sum.Dice, sum.Jackpots,
		string(facesJSON), string(repJSON), created.UnixMilli(),
	)
	if err != nil {
		return nil, errs.Wrap(err, "archive: insert run")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, errs.Wrap(err, "archive: run id")
	}

	if table != nil && len(table.Rows) > 0 {
		stmt, err := tx.PrepareContext(ctx, "INSERT INTO run_rolls (run_id, round, die, outcome) VALUES (?, ?, ?, ?)")
		if err != nil {
			return nil, errs.Wrap(err, "archive: prepare rolls")
		}
		defer stmt.Close()
		for _, r := range table.Rows {
			out, err := json.Marshal(r.Outcome)
			if err != nil {
				return nil, errs.Wrap(err, "archive: encode outcome")
			}
			if _, err := stmt.ExecContext(ctx, id, r.Round, r.Die, string(out)); err != nil {
				return nil, errs.Wrap(err, "archive: insert roll")
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, errs.Wrap(err, "archive: commit")
	}

	return &Run{
		ID:           id,
		Name:         sum.Name,
		ExperimentID: sum.ID,
		Sampler:      sum.Sampler,
		Seed:         sum.Seed,
		Rounds:       sum.Rounds,
		Dice:         sum.Dice,
		Jackpots:     sum.Jackpots,
		Faces:        faces,
		Report:       repJSON,
		CreatedAt:    created,
	}, nil
}

// GetRun 取得單筆紀錄（含完整報表），不存在時回傳 NotFound。
func (s *Store) GetRun(ctx context.Context, id int64) (*Run, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	row := s.db.QueryRowContext(ctx, `
SELECT id, name, experiment_id, sampler, seed, rounds, dice, jackpots, faces, report, created_at
FROM runs WHERE id = ?`, id)
	r, err := scanRun(row, true)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NotFoundf("archive: run %d not found", id)
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// ListRuns 由新到舊列出紀錄（不含報表本體），limit <= 0 時使用 DefaultLimit。
func (s *Store) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, name, experiment_id, sampler, seed, rounds, dice, jackpots, faces, '', created_at
FROM runs ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, errs.Wrap(err, "archive: list runs")
	}
	defer rows.Close()

	out := make([]*Run, 0, limit)
	for rows.Next() {
		r, err := scanRun(rows, false)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Wrap(err, "archive: iterate runs")
	}
	return out, nil
}

// RunResults 取得紀錄的逐格結果（長表，先局後骰）。沒有保存結果時 Rows 為空。
func (s *Store) RunResults(ctx context.Context, id int64) (*game.NarrowTable, error) {
	run, err := s.GetRun(ctx, id)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT round, die, outcome FROM run_rolls WHERE run_id = ? ORDER BY round, die`, id)
	if err != nil {
		return nil, errs.Wrap(err, "archive: query rolls")
	}
	defer rows.Close()

	nt := &game.NarrowTable{Dice: run.Dice, Rows: []game.NarrowRow{}}
	for rows.Next() {
		var (
			r   game.NarrowRow
			out string
		)
		if err := rows.Scan(&r.Round, &r.Die, &out); err != nil {
			return nil, errs.Wrap(err, "archive: scan roll")
		}
		if err := json.Unmarshal([]byte(out), &r.Outcome); err != nil {
			return nil, errs.Wrap(err, "archive: decode outcome")
		}
		nt.Rows = append(nt.Rows, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Wrap(err, "archive: iterate rolls")
	}
	return nt, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner, withReport bool) (*Run, error) {
	var (
		r       Run
		faces   string
		report  string
		created int64
	)
	err := sc.Scan(&r.ID, &r.Name, &r.ExperimentID, &r.Sampler, &r.Seed, &r.Rounds, &r.Dice, &r.Jackpots, &faces, &report, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, errs.Wrap(err, "archive: scan run")
	}
	if err := json.Unmarshal([]byte(faces), &r.Faces); err != nil {
		return nil, errs.Wrap(err, "archive: decode faces")
	}
	if withReport {
		r.Report = json.RawMessage(report)
	}
	r.CreatedAt = time.UnixMilli(created).UTC()
	return &r, nil
}
