// Package report summarizes recorded decision files with DuckDB.
package report

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	_ "github.com/duckdb/duckdb-go/v2"
)

// Summary aggregates every decision row found under the report roots.
type Summary struct {
	Rows             int64
	Games            int64
	Tiers            map[string]int64
	Moves            map[string]int64
	Sources          map[string]int64
	MeanChasePathLen float64

	// Rows with a known played move, and how many of those the policy matched.
	Compared int64
	Agreed   int64
}

func (s Summary) AgreementRate() float64 {
	if s.Compared == 0 {
		return 0
	}
	return float64(s.Agreed) / float64(s.Compared)
}

// Summarize reads every decision parquet file below roots, skipping the
// tmp/ staging directories.
func Summarize(ctx context.Context, roots []string) (Summary, error) {
	db, err := Open(roots)
	if err != nil {
		return Summary{}, err
	}
	defer db.Close()

	s := Summary{}
	var meanPath sql.NullFloat64
	err = db.QueryRowContext(ctx, `SELECT
			COUNT(*)::BIGINT,
			COUNT(DISTINCT game_id)::BIGINT,
			AVG(path_len) FILTER (WHERE tier = 'chase'),
			COUNT(*) FILTER (WHERE COALESCE(played, '') <> '')::BIGINT,
			COUNT(*) FILTER (WHERE COALESCE(played, '') <> '' AND played = move)::BIGINT
		FROM decisions`).Scan(&s.Rows, &s.Games, &meanPath, &s.Compared, &s.Agreed)
	if err != nil {
		return Summary{}, fmt.Errorf("query totals: %w", err)
	}
	s.MeanChasePathLen = meanPath.Float64

	if s.Tiers, err = countBy(ctx, db, "tier"); err != nil {
		return Summary{}, err
	}
	if s.Moves, err = countBy(ctx, db, "move"); err != nil {
		return Summary{}, err
	}
	if s.Sources, err = countBy(ctx, db, "source"); err != nil {
		return Summary{}, err
	}
	return s, nil
}

// countBy groups decisions by one of a fixed set of dictionary columns.
func countBy(ctx context.Context, db *sql.DB, column string) (map[string]int64, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+column+`, COUNT(*)::BIGINT FROM decisions GROUP BY 1`)
	if err != nil {
		return nil, fmt.Errorf("count by %s: %w", column, err)
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var key sql.NullString
		var n int64
		if err := rows.Scan(&key, &n); err != nil {
			return nil, err
		}
		out[key.String] += n
	}
	return out, rows.Err()
}

// Open creates an in-memory DuckDB with a decisions view over the parquet
// files below roots. Roots without any decision files yield an empty view.
func Open(roots []string) (*sql.DB, error) {
	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return nil, err
	}
	// Basic pragmas; ignore errors for compatibility across versions.
	_, _ = db.Exec("PRAGMA threads=4")

	globs := make([]string, 0, len(roots))
	excludes := make([]string, 0, len(roots))
	for _, root := range roots {
		root = strings.TrimSpace(root)
		if root == "" {
			continue
		}
		root = filepath.Clean(root)
		ok, err := hasParquet(root)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		if !ok {
			continue
		}
		globs = append(globs, quote(filepath.Join(root, "**", "*.parquet")))
		excludes = append(excludes, "NOT starts_with(filename, "+quote(filepath.Join(root, "tmp")+string(filepath.Separator))+")")
	}

	sqlText := `CREATE OR REPLACE VIEW decisions AS
		SELECT * FROM (
			SELECT
				NULL::VARCHAR AS game_id,
				NULL::INTEGER AS turn,
				NULL::VARCHAR AS snake_id,
				NULL::INTEGER AS width,
				NULL::INTEGER AS height,
				NULL::VARCHAR AS move,
				NULL::VARCHAR AS tier,
				NULL::VARCHAR AS target_id,
				NULL::INTEGER AS path_len,
				NULL::INTEGER AS options,
				NULL::VARCHAR AS played,
				NULL::VARCHAR AS source,
				NULL::BIGINT AS recorded_at_ns,
				NULL::VARCHAR AS filename
		) WHERE 1=0`
	if len(globs) > 0 {
		sqlText = `CREATE OR REPLACE VIEW decisions AS
			SELECT * FROM read_parquet([` + strings.Join(globs, ",") + `], filename=true, union_by_name=true)
			WHERE ` + strings.Join(excludes, " AND ")
	}
	if _, err := db.Exec(sqlText); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create decisions view: %w", err)
	}
	return db, nil
}

// hasParquet reports whether root holds any committed parquet file.
// read_parquet fails on a glob that matches nothing.
func hasParquet(root string) (bool, error) {
	found := false
	tmp := filepath.Join(root, "tmp")
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && path == tmp {
			return fs.SkipDir
		}
		if !d.IsDir() && strings.HasSuffix(path, ".parquet") {
			found = true
			return fs.SkipAll
		}
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("scan %s: %w", root, err)
	}
	return found, nil
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
