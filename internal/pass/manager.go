// Package pass 提供全程序 pass 的管理与运行
package pass

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/tangzhangming/dexopt/internal/arraylit"
	"github.com/tangzhangming/dexopt/internal/config"
	"github.com/tangzhangming/dexopt/internal/program"
)

// ============================================================================
// Pass 接口
// ============================================================================

// Pass 全程序优化 Pass
type Pass interface {
	Name() string
	Run(ctx context.Context, prog *program.Program, mgr *PassManager) error
}

// MethodRefReserver 需要在拆分 dex 时预留方法引用的 Pass
type MethodRefReserver interface {
	ReservedMethodRefs() int
}

// ============================================================================
// Pass 管理器
// ============================================================================

// PassManager Pass 管理器
type PassManager struct {
	passes []Pass
	minSdk int
	arch   arraylit.Architecture
	logger *zap.Logger

	mu      sync.Mutex
	current string
	metrics map[string]map[string]int // pass -> 指标名 -> 值

	registry *prometheus.Registry
	gauge    *prometheus.GaugeVec
}

// NewPassManager 创建 Pass 管理器
func NewPassManager(cfg *config.Config, logger *zap.Logger) *PassManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	pm := &PassManager{
		passes:   make([]Pass, 0),
		minSdk:   cfg.Redex.MinSdk,
		arch:     cfg.Architecture(),
		logger:   logger,
		metrics:  make(map[string]map[string]int),
		registry: prometheus.NewRegistry(),
		gauge: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "dexopt",
			Name:      "pass_metric",
			Help:      "Metrics reported by optimization passes.",
		}, []string{"pass", "metric"}),
	}
	pm.registry.MustRegister(pm.gauge)
	return pm
}

// AddPass 添加 Pass
func (pm *PassManager) AddPass(p Pass) {
	pm.passes = append(pm.passes, p)
}

// Passes 已添加的 Pass
func (pm *PassManager) Passes() []Pass { return pm.passes }

// MinSdk 最低 API 级别
func (pm *PassManager) MinSdk() int { return pm.minSdk }

// Arch 目标架构
func (pm *PassManager) Arch() arraylit.Architecture { return pm.arch }

// Logger 日志器
func (pm *PassManager) Logger() *zap.Logger { return pm.logger }

// Run 依次运行所有 Pass；任一 Pass 失败则停止
func (pm *PassManager) Run(ctx context.Context, prog *program.Program) error {
	for _, p := range pm.passes {
		pm.mu.Lock()
		pm.current = p.Name()
		pm.mu.Unlock()

		pm.logger.Info("running pass", zap.String("pass", p.Name()))
		if err := p.Run(ctx, prog, pm); err != nil {
			return errors.Wrapf(err, "pass %s", p.Name())
		}
	}
	pm.mu.Lock()
	pm.current = ""
	pm.mu.Unlock()
	return nil
}

// IncrMetric 给当前 Pass 的指标加上 v
func (pm *PassManager) IncrMetric(name string, v int) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	m, ok := pm.metrics[pm.current]
	if !ok {
		m = make(map[string]int)
		pm.metrics[pm.current] = m
	}
	m[name] += v
	pm.gauge.WithLabelValues(pm.current, name).Add(float64(v))
}

// GetMetric 读取指标
func (pm *PassManager) GetMetric(pass, name string) int {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	return pm.metrics[pass][name]
}

// Metrics 某个 Pass 的全部指标（副本）
func (pm *PassManager) Metrics(pass string) map[string]int {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	out := make(map[string]int, len(pm.metrics[pass]))
	for k, v := range pm.metrics[pass] {
		out[k] = v
	}
	return out
}

// MetricNames 某个 Pass 的指标名，升序
func (pm *PassManager) MetricNames(pass string) []string {
	return sortedKeys(pm.Metrics(pass))
}

// ReservedMethodRefs 所有 Pass 预留的方法引用数
func (pm *PassManager) ReservedMethodRefs() int {
	n := 0
	for _, p := range pm.passes {
		if r, ok := p.(MethodRefReserver); ok {
			n += r.ReservedMethodRefs()
		}
	}
	return n
}

// Registry Prometheus 注册表
func (pm *PassManager) Registry() *prometheus.Registry { return pm.registry }

// WriteMetrics 以 Prometheus 文本格式写出指标
func (pm *PassManager) WriteMetrics(path string) error {
	if err := prometheus.WriteToTextfile(path, pm.registry); err != nil {
		return errors.Wrap(err, "failed to write metrics")
	}
	return nil
}

// ============================================================================
// 预置 Pipeline
// ============================================================================

// CreateStandardPipeline 创建标准 Pipeline
func CreateStandardPipeline(cfg *config.Config, logger *zap.Logger) *PassManager {
	pm := NewPassManager(cfg, logger)
	pm.AddPass(NewReduceArrayLiteralsPass(cfg.Passes.ReduceArrayLiterals, logger))
	return pm
}
