package pass

import (
	"context"
	"runtime"
	"sync"

	"github.com/cockroachdb/errors"
	"go.uber.org/atomic"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tangzhangming/dexopt/internal/arraylit"
	"github.com/tangzhangming/dexopt/internal/config"
	"github.com/tangzhangming/dexopt/internal/invariant"
	"github.com/tangzhangming/dexopt/internal/program"
)

// ReduceArrayLiteralsPassName Pass 名称
const ReduceArrayLiteralsPassName = "ReduceArrayLiteralsPass"

// ReduceArrayLiteralsPass 把数组字面量构造改写为 filled-new-array
type ReduceArrayLiteralsPass struct {
	cfg    config.ReduceArrayLiteralsConfig
	logger *zap.Logger
}

// NewReduceArrayLiteralsPass 创建 Pass
func NewReduceArrayLiteralsPass(cfg config.ReduceArrayLiteralsConfig, logger *zap.Logger) *ReduceArrayLiteralsPass {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReduceArrayLiteralsPass{cfg: cfg, logger: logger.Named("ral")}
}

// Name 返回 Pass 名称
func (p *ReduceArrayLiteralsPass) Name() string { return ReduceArrayLiteralsPassName }

// ReservedMethodRefs 分块时会引用 System.arraycopy
func (p *ReduceArrayLiteralsPass) ReservedMethodRefs() int { return 1 }

// workers 工作协程数
func (p *ReduceArrayLiteralsPass) workers() int {
	switch {
	case p.cfg.Debug:
		return 1
	case p.cfg.Threads > 0:
		return p.cfg.Threads
	default:
		return runtime.NumCPU()
	}
}

// Run 并行处理每个方法，汇总统计后写入管理器
func (p *ReduceArrayLiteralsPass) Run(ctx context.Context, prog *program.Program, mgr *PassManager) error {
	opts := arraylit.Options{
		MaxFilledElements: p.cfg.MaxFilledElements,
		MinSdk:            mgr.MinSdk(),
		Arch:              mgr.Arch(),
	}
	p.logger.Info("config",
		zap.Int("min_sdk", opts.MinSdk),
		zap.Stringer("arch", opts.Arch),
		zap.Int("max_filled_elements", opts.MaxFilledElements),
		zap.Int("workers", p.workers()))

	var (
		mu        sync.Mutex
		total     arraylit.Stats
		processed = atomic.NewInt64(0)
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers())
	for _, m := range prog.Methods() {
		if !m.HasCode() || m.NoOptimizations {
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			stats, err := p.reduceMethod(m, opts)
			if err != nil {
				p.logger.Error("invariant violated", zap.String("method", m.FullName()), zap.Error(err))
				return errors.Wrapf(err, "%s", m.FullName())
			}
			mu.Lock()
			total = total.Add(stats)
			mu.Unlock()
			processed.Inc()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	metrics := total.Metrics()
	for _, name := range sortedKeys(metrics) {
		mgr.IncrMetric(name, metrics[name])
	}
	p.logger.Info("done",
		zap.Int64("methods", processed.Load()),
		zap.Int("filled_arrays", total.FilledArrays),
		zap.Int("filled_array_chunks", total.FilledArrayChunks))
	return nil
}

// reduceMethod 改写一个方法；不变量失败转换为错误
func (p *ReduceArrayLiteralsPass) reduceMethod(m *program.Method, opts arraylit.Options) (stats arraylit.Stats, err error) {
	defer invariant.Recover(&err)
	r := arraylit.NewReducer(m.CFG, opts, p.logger.With(zap.String("method", m.FullName())))
	r.Patch()
	return r.Stats(), nil
}
