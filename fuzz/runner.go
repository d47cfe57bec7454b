package fuzz

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"

	"github.com/bytedance/gopkg/util/gopool"
	"github.com/klauspost/cpuid/v2"
)

// Finding is one failed iteration. Re-running the target with a Generator
// seeded with Seed reproduces it.
type Finding struct {
	Target string
	Seed   int64
	Err    error
}

func (f Finding) String() string {
	return fmt.Sprintf("%s seed=%d: %v", f.Target, f.Seed, f.Err)
}

// DefaultWorkers returns the number of logical cores, at least 1.
func DefaultWorkers() int {
	if n := cpuid.CPU.LogicalCores; n > 0 {
		return n
	}
	return 1
}

// Runner runs targets for a number of iterations on a worker pool.
// Iteration i of every target uses seed Seed+i.
type Runner struct {
	Registry   *Registry
	Workers    int
	Iterations int
	Seed       int64
	Logger     *slog.Logger
}

// Run runs the named targets, or all targets when none are named. Findings
// are sorted by target and seed. A cancelled context stops scheduling and
// returns the context's error with the findings so far.
func (r *Runner) Run(ctx context.Context, names ...string) ([]Finding, error) {
	reg := r.Registry
	if reg == nil {
		reg = DefaultRegistry()
	}
	var targets []Target
	if len(names) == 0 {
		targets = reg.Targets()
	}
	for _, name := range names {
		t, ok := reg.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("fuzz: unknown target %q", name)
		}
		targets = append(targets, t)
	}
	logger := r.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	workers := r.Workers
	if workers <= 0 {
		workers = DefaultWorkers()
	}
	if workers > math.MaxInt32 {
		workers = math.MaxInt32
	}

	pool := gopool.NewPool("raise-fuzz", int32(workers), gopool.NewConfig())
	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		findings []Finding
	)
	report := func(f Finding) {
		mu.Lock()
		findings = append(findings, f)
		mu.Unlock()
		logger.Warn("fuzz finding", "target", f.Target, "seed", f.Seed, "error", f.Err)
	}

	var err error
schedule:
	for _, t := range targets {
		logger.Debug("fuzzing", "target", t.Name, "iterations", r.Iterations)
		for i := range r.Iterations {
			if err = ctx.Err(); err != nil {
				break schedule
			}
			seed := r.Seed + int64(i)
			wg.Add(1)
			pool.CtxGo(ctx, func() {
				defer wg.Done()
				defer func() {
					if p := recover(); p != nil {
						report(Finding{Target: t.Name, Seed: seed, Err: fmt.Errorf("panic: %v", p)})
					}
				}()
				if ferr := t.Run(NewGenerator(seed)); ferr != nil {
					report(Finding{Target: t.Name, Seed: seed, Err: ferr})
				}
			})
		}
	}
	wg.Wait()

	sort.Slice(findings, func(i, j int) bool {
		if findings[i].Target != findings[j].Target {
			return findings[i].Target < findings[j].Target
		}
		return findings[i].Seed < findings[j].Seed
	})
	return findings, err
}
