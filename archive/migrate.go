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

package archive

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/zintix-labs/dicelab/errs"
)

const migrationTable = "schema_migrations"

// applyMigrations 依檔名順序執行 root 下的 .sql，每個檔案只會套用一次。
func applyMigrations(ctx context.Context, db *sql.DB, fsys fs.FS, root string) error {
	if db == nil {
		return errs.NewFatal("archive: sql db is required")
	}
	root = strings.TrimSpace(root)
	if root == "" {
		root = "."
	}
	entries, err := fs.ReadDir(fsys, root)
	if err != nil {
		return errs.Wrap(err, "archive: read migrations dir")
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	if _, err := db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS `+migrationTable+` (
    name TEXT PRIMARY KEY,
    applied_at INTEGER NOT NULL
);`); err != nil {
		return errs.Wrap(err, "archive: ensure migration table")
	}

	for _, file := range files {
		applied, err := isApplied(ctx, db, file)
		if err != nil {
			return errs.WrapWithExtra(err, "archive: check migration", file)
		}
		if applied {
			continue
		}
		content, err := fs.ReadFile(fsys, path.Join(root, file))
		if err != nil {
			return errs.WrapWithExtra(err, "archive: read migration", file)
		}
		up := upSection(string(content))
		if strings.TrimSpace(up) == "" {
			continue
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return errs.WrapWithExtra(err, "archive: begin migration", file)
		}
		if _, err := tx.ExecContext(ctx, up); err != nil {
			_ = tx.Rollback()
			return errs.WrapWithExtra(err, "archive: exec migration", file)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO "+migrationTable+" (name, applied_at) VALUES (?, ?)",
			file, time.Now().UTC().UnixMilli(),
		); err != nil {
			_ = tx.Rollback()
			return errs.WrapWithExtra(err, "archive: record migration", file)
		}
		if err := tx.Commit(); err != nil {
			return errs.WrapWithExtra(err, "archive: commit migration", file)
		}
	}
	return nil
}

// upSection 取出 "-- +migrate Up" 與 "-- +migrate Down" 之間的 SQL；沒有標記時回傳全文。
func upSection(content string) string {
	const upTag, downTag = "-- +migrate Up", "-- +migrate Down"
	i := strings.Index(content, upTag)
	if i == -1 {
		return content
	}
	rest := content[i+len(upTag):]
	if j := strings.Index(rest, downTag); j != -1 {
		return rest[:j]
	}
	return rest
}

func isApplied(ctx context.Context, db *sql.DB, name string) (bool, error) {
	var found int
	err := db.QueryRowContext(ctx, "SELECT 1 FROM "+migrationTable+" WHERE name = ?", name).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
