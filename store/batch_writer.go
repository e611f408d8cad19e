package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"
)

// BatchSummary describes the rows appended to one batch file.
type BatchSummary struct {
	Path  string // final location, empty until the batch is published
	Rows  int
	Games int
	Tiers map[string]int
}

// BatchWriter appends decision rows to outDir/tmp/<batch> and publishes the
// file into outDir on Finalize. A BatchWriter is not safe for concurrent use.
type BatchWriter struct {
	tmpPath string
	outPath string

	f *os.File
	w *parquet.GenericWriter[DecisionRow]

	games map[string]struct{}
	tiers map[string]int
	rows  int
}

func NewBatchWriter(outDir string) (*BatchWriter, error) {
	if outDir == "" {
		return nil, fmt.Errorf("outDir is required")
	}
	if abs, err := filepath.Abs(outDir); err == nil {
		outDir = abs
	}
	if err := os.MkdirAll(filepath.Join(outDir, "tmp"), 0o755); err != nil {
		return nil, fmt.Errorf("create tmp dir: %w", err)
	}

	name := batchName()
	bw := &BatchWriter{
		tmpPath: filepath.Join(outDir, "tmp", name),
		outPath: filepath.Join(outDir, name),
		games:   make(map[string]struct{}),
		tiers:   make(map[string]int),
	}
	f, err := os.OpenFile(bw.tmpPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open tmp parquet: %w", err)
	}
	bw.f = f
	bw.w = parquet.NewGenericWriter[DecisionRow](f, parquet.Compression(&zstd.Codec{Level: zstd.SpeedBetterCompression}))
	bw.w.SetKeyValueMetadata("schema", decisionSchema)
	return bw, nil
}

func (b *BatchWriter) TmpPath() string { return b.tmpPath }
func (b *BatchWriter) OutPath() string { return b.outPath }
func (b *BatchWriter) Rows() int       { return b.rows }

// Summary reports what has been appended so far.
func (b *BatchWriter) Summary() BatchSummary {
	tiers := make(map[string]int, len(b.tiers))
	for k, v := range b.tiers {
		tiers[k] = v
	}
	return BatchSummary{Rows: b.rows, Games: len(b.games), Tiers: tiers}
}

func (b *BatchWriter) Append(rows []DecisionRow) error {
	if b.w == nil {
		return fmt.Errorf("batch %s already finalized", filepath.Base(b.outPath))
	}
	if len(rows) == 0 {
		return nil
	}
	if _, err := b.w.Write(rows); err != nil {
		return fmt.Errorf("write decisions: %w", err)
	}
	for _, r := range rows {
		b.games[r.GameID] = struct{}{}
		b.tiers[r.Tier]++
	}
	b.rows += len(rows)
	return nil
}

// Finalize closes the file and renames it into outDir. An empty batch is
// discarded and its summary has no Path. Finalize is idempotent.
func (b *BatchWriter) Finalize() (BatchSummary, error) {
	sum := b.Summary()
	if b.w == nil {
		return sum, nil
	}

	werr := b.w.Close()
	_ = b.f.Sync()
	ferr := b.f.Close()
	b.w, b.f = nil, nil
	switch {
	case werr != nil:
		return sum, fmt.Errorf("close parquet writer: %w", werr)
	case ferr != nil:
		return sum, fmt.Errorf("close parquet file: %w", ferr)
	}

	if b.rows == 0 {
		_ = os.Remove(b.tmpPath)
		return sum, nil
	}
	if err := os.Rename(b.tmpPath, b.outPath); err != nil {
		return sum, fmt.Errorf("publish batch: %w", err)
	}
	sum.Path = b.outPath
	return sum, nil
}

// Abort closes the batch and removes its tmp file without publishing it.
func (b *BatchWriter) Abort() {
	if b.w == nil {
		return
	}
	_ = b.w.Close()
	_ = b.f.Close()
	b.w, b.f = nil, nil
	_ = os.Remove(b.tmpPath)
}
