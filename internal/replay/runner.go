package replay

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"

	"stakingRewards/internal/engine"
	"stakingRewards/internal/model"
	"stakingRewards/internal/storage"
)

const defaultProgressEvery = 100

// RunConfig holds runtime settings for a replay.
type RunConfig struct {
	StopOnError   bool
	ProgressEvery int
}

// Result summarizes a replay.
type Result struct {
	Total    int
	Applied  int
	Failed   int
	Replayed int
	Errors   []model.OperationError
}

// Runner feeds scenario lines into a World.
//
// Lines at or below the stored progress mark are executed again to rebuild
// in-memory state, but their events are not delivered, so sinks see every
// committed event exactly once across restarts.
type Runner struct {
	cfg      RunConfig
	world    *World
	clock    *engine.ManualClock
	progress storage.StateStore
	gate     *gatedSink
	logger   *zap.Logger
}

// NewRunner builds a Runner and installs sinks on the world's engine.
// progress may be nil.
func NewRunner(cfg RunConfig, world *World, sinks []storage.Storage, progress storage.StateStore, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ProgressEvery <= 0 {
		cfg.ProgressEvery = defaultProgressEvery
	}
	gate := &gatedSink{sinks: sinks, open: true}
	world.engine.AddSink(gate)
	return &Runner{
		cfg:      cfg,
		world:    world,
		clock:    world.clock,
		progress: progress,
		gate:     gate,
		logger:   logger,
	}
}

// Run executes every operation read from input.
func (r *Runner) Run(ctx context.Context, input io.Reader) (Result, error) {
	var res Result

	lastApplied, err := r.loadProgress(ctx)
	if err != nil {
		return res, err
	}

	scanner := bufio.NewScanner(input)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	lineNo := 0
	dirty := 0
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return res, ctx.Err()
		default:
		}

		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		res.Total++

		replaying := uint64(lineNo) <= lastApplied
		r.gate.setOpen(!replaying)
		if replaying {
			res.Replayed++
		}

		var op model.Operation
		if err := json.Unmarshal(line, &op); err != nil {
			if stop := r.fail(&res, model.Operation{Line: lineNo}, fmt.Errorf("decode operation: %w", err), replaying); stop != nil {
				return res, stop
			}
			continue
		}
		op.Line = lineNo

		if op.Time > 0 {
			r.clock.Set(op.Time)
		}
		if op.Advance > 0 {
			r.clock.Advance(op.Advance)
		}

		if err := r.world.Apply(ctx, op); err != nil {
			if stop := r.fail(&res, op, err, replaying); stop != nil {
				return res, stop
			}
		} else {
			res.Applied++
		}

		if !replaying {
			dirty++
			if dirty >= r.cfg.ProgressEvery {
				if err := r.saveProgress(ctx, lineNo); err != nil {
					return res, err
				}
				dirty = 0
			}
		}
	}
	r.gate.setOpen(true)

	if err := scanner.Err(); err != nil {
		return res, fmt.Errorf("scan input: %w", err)
	}
	if dirty > 0 {
		if err := r.saveProgress(ctx, lineNo); err != nil {
			return res, err
		}
	}

	r.logger.Info("replay complete",
		zap.Int("total", res.Total),
		zap.Int("applied", res.Applied),
		zap.Int("failed", res.Failed),
		zap.Int("replayed", res.Replayed),
		zap.Uint64("time", r.clock.Now()),
	)
	return res, nil
}

// fail records a rejected operation and returns a non-nil error when the
// replay must stop.
func (r *Runner) fail(res *Result, op model.Operation, err error, replaying bool) error {
	res.Failed++
	res.Errors = append(res.Errors, model.OperationError{
		Line:  op.Line,
		Op:    op.Op,
		From:  op.From,
		Time:  r.clock.Now(),
		Error: err.Error(),
	})

	fields := []zap.Field{zap.Int("line", op.Line), zap.String("op", op.Op), zap.Error(err)}
	if replaying {
		r.logger.Debug("operation rejected during catch-up", fields...)
		return nil
	}
	r.logger.Warn("operation rejected", fields...)
	if r.cfg.StopOnError {
		return fmt.Errorf("line %d (%s): %w", op.Line, op.Op, err)
	}
	return nil
}

func (r *Runner) loadProgress(ctx context.Context) (uint64, error) {
	if r.progress == nil {
		return 0, nil
	}
	line, ok, err := r.progress.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("load progress: %w", err)
	}
	if ok {
		r.logger.Info("resume from progress", zap.Uint64("last_line", line))
	}
	return line, nil
}

func (r *Runner) saveProgress(ctx context.Context, line int) error {
	if r.progress == nil {
		return nil
	}
	if err := r.progress.Save(ctx, uint64(line)); err != nil {
		return fmt.Errorf("save progress: %w", err)
	}
	r.logger.Debug("progress saved", zap.Int("line", line))
	return nil
}

// gatedSink forwards events to sinks only while open.
type gatedSink struct {
	mu    sync.Mutex
	open  bool
	sinks []storage.Storage
}

func (g *gatedSink) setOpen(open bool) {
	g.mu.Lock()
	g.open = open
	g.mu.Unlock()
}

func (g *gatedSink) PutEvents(events []model.Event) error {
	g.mu.Lock()
	open := g.open
	g.mu.Unlock()
	if !open {
		return nil
	}
	var firstErr error
	for _, sink := range g.sinks {
		if err := sink.PutEvents(events); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
