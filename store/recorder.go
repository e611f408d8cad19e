package store

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

type RecorderConfig struct {
	OutDir     string
	FlushRows  int           // finalize the current file at this many rows
	FlushEvery time.Duration // finalize the current file at least this often
	Buffer     int           // queued rows before Record starts dropping
}

func (c RecorderConfig) withDefaults() RecorderConfig {
	if c.FlushRows <= 0 {
		c.FlushRows = 10000
	}
	if c.FlushEvery <= 0 {
		c.FlushEvery = time.Minute
	}
	if c.Buffer <= 0 {
		c.Buffer = 4096
	}
	return c
}

type RecorderStats struct {
	Recorded int64
	Dropped  int64
	Files    int64
}

// batch is the part of BatchWriter the recorder relies on.
type batch interface {
	Append(rows []DecisionRow) error
	Rows() int
	Finalize() (BatchSummary, error)
	Abort()
}

func openBatchWriter(outDir string) (batch, error) {
	return NewBatchWriter(outDir)
}

// Recorder persists decision rows in the background. Record never blocks
// the caller: a turn must be answered on time even if the disk is slow, so
// rows are dropped (and counted) when the queue is full.
type Recorder struct {
	cfg       RecorderConfig
	logger    *slog.Logger
	openBatch func(outDir string) (batch, error)

	mu     sync.RWMutex
	closed bool
	in     chan DecisionRow
	done   chan struct{}
	err    error // set by the writer loop before done is closed

	recorded atomic.Int64
	dropped  atomic.Int64
	files    atomic.Int64
}

func NewRecorder(cfg RecorderConfig, logger *slog.Logger) (*Recorder, error) {
	return newRecorder(cfg, logger, openBatchWriter)
}

func newRecorder(cfg RecorderConfig, logger *slog.Logger, open func(outDir string) (batch, error)) (*Recorder, error) {
	if cfg.OutDir == "" {
		return nil, fmt.Errorf("recorder: OutDir is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()
	r := &Recorder{
		cfg:       cfg,
		logger:    logger.With("component", "recorder"),
		openBatch: open,
		in:        make(chan DecisionRow, cfg.Buffer),
		done:      make(chan struct{}),
	}
	go r.loop()
	return r, nil
}

// Record queues row for writing and reports whether it was accepted.
func (r *Recorder) Record(row DecisionRow) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		r.dropped.Add(1)
		return false
	}
	select {
	case r.in <- row:
		r.recorded.Add(1)
		return true
	default:
		r.dropped.Add(1)
		return false
	}
}

// Close flushes queued rows and waits for the final file to be written.
func (r *Recorder) Close() error {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.in)
	}
	r.mu.Unlock()
	<-r.done
	return r.err
}

func (r *Recorder) Stats() RecorderStats {
	return RecorderStats{
		Recorded: r.recorded.Load(),
		Dropped:  r.dropped.Load(),
		Files:    r.files.Load(),
	}
}

func (r *Recorder) loop() {
	defer close(r.done)

	ticker := time.NewTicker(r.cfg.FlushEvery)
	defer ticker.Stop()

	var bw batch
	pending := make([]DecisionRow, 0, 256)

	drain := func() error {
		if len(pending) == 0 {
			return nil
		}
		if bw == nil {
			var err error
			if bw, err = r.openBatch(r.cfg.OutDir); err != nil {
				r.dropped.Add(int64(len(pending)))
				pending = pending[:0]
				return err
			}
		}
		if err := bw.Append(pending); err != nil {
			// The batch may be half written; drop it along with what it held.
			r.dropped.Add(int64(bw.Rows() + len(pending)))
			bw.Abort()
			bw = nil
			pending = pending[:0]
			return err
		}
		pending = pending[:0]
		return nil
	}

	flush := func(reason string) error {
		if err := drain(); err != nil {
			r.logger.Error("decision write failed", "reason", reason, "err", err)
			return err
		}
		if bw == nil {
			return nil
		}
		sum, err := bw.Finalize()
		bw = nil
		if err != nil {
			r.logger.Error("decision flush failed", "reason", reason, "err", err)
			return err
		}
		if sum.Path != "" {
			r.files.Add(1)
			r.logger.Info("decisions flushed", "reason", reason, "path", sum.Path, "rows", sum.Rows, "games", sum.Games, "tiers", sum.Tiers)
		}
		return nil
	}

	for {
		select {
		case row, ok := <-r.in:
			if !ok {
				r.err = flush("close")
				return
			}
			pending = append(pending, row)
			if len(pending) >= cap(pending) {
				if err := drain(); err != nil {
					r.logger.Error("decision write failed", "err", err)
				}
			}
			buffered := len(pending)
			if bw != nil {
				buffered += bw.Rows()
			}
			if buffered >= r.cfg.FlushRows {
				_ = flush("rows")
			}
		case <-ticker.C:
			_ = flush("ticker")
		}
	}
}
