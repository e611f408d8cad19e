package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"
)

const decisionSchema = "decision_row_v1"

// Sources recorded in DecisionRow.Source.
const (
	SourceLive   = "live"
	SourceArena  = "arena"
	SourceReplay = "replay"
)

// DecisionRow is one move chosen by the hunter policy.
//
// Move is the protocol token ("up", "right", "down", "left") and Tier the
// rule that produced it ("chase", "safe", "acceptable", "default").
// TargetID and PathLen are only set for chase decisions. Options is the
// number of cells a fallback move was drawn from.
//
// Played is the move the snake actually made, when known (replays); empty
// otherwise.
type DecisionRow struct {
	GameID       string `parquet:"game_id,dict"`
	Turn         int32  `parquet:"turn"`
	SnakeID      string `parquet:"snake_id,dict"`
	Width        int32  `parquet:"width"`
	Height       int32  `parquet:"height"`
	Move         string `parquet:"move,dict"`
	Tier         string `parquet:"tier,dict"`
	TargetID     string `parquet:"target_id,dict,optional"`
	PathLen      int32  `parquet:"path_len"`
	Options      int32  `parquet:"options"`
	Played       string `parquet:"played,dict,optional"`
	Source       string `parquet:"source,dict"`
	RecordedAtNs int64  `parquet:"recorded_at_ns"`
}

// WriteDecisionsAtomic writes rows into outDir/tmp and then renames the file
// into outDir, so readers globbing outDir never see a partial file.
// The returned path is the final parquet file path.
func WriteDecisionsAtomic(outDir string, rows []DecisionRow) (string, error) {
	if len(rows) == 0 {
		return "", fmt.Errorf("no rows to write")
	}
	tmpDir := filepath.Join(outDir, "tmp")
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return "", fmt.Errorf("create tmp dir: %w", err)
	}

	name := batchName()
	finalPath := filepath.Join(outDir, name)
	tmpPath := filepath.Join(tmpDir, name+".tmp")
	_ = os.Remove(tmpPath)

	if err := parquet.WriteFile(tmpPath, rows,
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedBetterCompression}),
		parquet.KeyValueMetadata("schema", decisionSchema),
	); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("write parquet: %w", err)
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("rename parquet: %w", err)
	}
	return finalPath, nil
}

// ReadDecisions loads every row of a decision file.
func ReadDecisions(path string) ([]DecisionRow, error) {
	rows, err := parquet.ReadFile[DecisionRow](path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return rows, nil
}

var batchSeq atomic.Uint64

func batchName() string {
	return fmt.Sprintf("decisions_%d_%d.parquet", time.Now().UnixNano(), batchSeq.Add(1))
}
