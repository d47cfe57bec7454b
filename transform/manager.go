package transform

import (
	"log/slog"
	"slices"
	"time"

	"github.com/gogpu/raise/ir"
)

// Manager runs transforms in order, feeding each stage's results to the
// stages after it.
type Manager struct {
	transforms []Transform
	logger     *slog.Logger
	validate   bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger logs per-stage decisions to l.
func WithLogger(l *slog.Logger) Option {
	return func(mgr *Manager) { mgr.logger = l }
}

// WithValidation validates every module a stage produces. A stage that
// produces an invalid module fails with an Internal error.
func WithValidation() Option {
	return func(mgr *Manager) { mgr.validate = true }
}

// NewManager returns an empty pipeline.
func NewManager(opts ...Option) *Manager {
	mgr := &Manager{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(mgr)
	}
	return mgr
}

// Add appends transforms to the pipeline.
func (mgr *Manager) Add(ts ...Transform) {
	mgr.transforms = append(mgr.transforms, ts...)
}

// Names returns the transform names in pipeline order.
func (mgr *Manager) Names() []string {
	names := make([]string, len(mgr.transforms))
	for i, t := range mgr.transforms {
		names[i] = t.Name()
	}
	return names
}

// ShouldRun reports whether any transform would change m.
func (mgr *Manager) ShouldRun(m *ir.Module, inputs *DataMap) bool {
	for _, t := range mgr.transforms {
		if t.ShouldRun(m, inputs) {
			return true
		}
	}
	return false
}

// CheckOrder verifies every Ordered transform runs before the transforms it
// names.
func (mgr *Manager) CheckOrder() error {
	names := mgr.Names()
	for i, t := range mgr.transforms {
		o, ok := t.(Ordered)
		if !ok {
			continue
		}
		for _, before := range o.RunsBefore() {
			if j := slices.Index(names, before); j >= 0 && j < i {
				return NewError(t.Name(), InvalidConfig, "must run before %s", before)
			}
		}
	}
	return nil
}

// Run applies every transform in order. Results of each stage are merged
// into the inputs of later stages and into the returned map.
//
// The first error stops the pipeline; m is returned unchanged with it.
func (mgr *Manager) Run(m *ir.Module, inputs *DataMap) (*ir.Module, *DataMap, error) {
	outputs := NewDataMap()
	if err := mgr.CheckOrder(); err != nil {
		return m, outputs, err
	}
	data := inputs.Clone()
	current := m
	for _, t := range mgr.transforms {
		start := time.Now()
		stage := NewDataMap()
		out, err := t.Apply(current, data, stage)
		if err != nil {
			mgr.logger.Debug("transform failed", "stage", t.Name(), "error", err)
			return m, outputs, err
		}
		if out == nil {
			mgr.logger.Debug("transform skipped", "stage", t.Name(), "duration", time.Since(start))
			continue
		}
		if mgr.validate {
			if err := validateOutput(t, out); err != nil {
				return m, outputs, err
			}
		}
		mgr.logger.Debug("transform ran", "stage", t.Name(), "results", stage.Types(), "duration", time.Since(start))
		current = out
		data.Merge(stage)
		outputs.Merge(stage)
	}
	return current, outputs, nil
}

func validateOutput(t Transform, m *ir.Module) error {
	errs, err := ir.ValidateWith(m, ir.ValidateOptions{AllowBindingAliases: true})
	if err != nil {
		return NewError(t.Name(), Internal, "validate: %v", err)
	}
	if len(errs) > 0 {
		return NewError(t.Name(), Internal, "produced an invalid module: %v", errs[0])
	}
	return nil
}

// Run applies a single transform. It is shorthand for a one-stage Manager
// without validation.
func Run(t Transform, m *ir.Module, inputs *DataMap) (*ir.Module, *DataMap, error) {
	mgr := NewManager()
	mgr.Add(t)
	return mgr.Run(m, inputs)
}
