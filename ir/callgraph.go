package ir

import (
	"fmt"
	"slices"
	"strings"

	"github.com/oleiade/lane"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// CallGraph records which functions call which.
type CallGraph struct {
	module  *Module
	callees [][]FunctionHandle
	callers [][]FunctionHandle
	// deps has an edge callee -> caller for every call, so a topological
	// order visits callees first.
	deps      *simple.DirectedGraph
	recursive []FunctionHandle
}

// BuildCallGraph derives the call graph of m from its Call statements.
func BuildCallGraph(m *Module) *CallGraph {
	n := len(m.Functions)
	cg := &CallGraph{
		module:  m,
		callees: make([][]FunctionHandle, n),
		callers: make([][]FunctionHandle, n),
		deps:    simple.NewDirectedGraph(),
	}
	for i := 0; i < n; i++ {
		cg.deps.AddNode(simple.Node(i))
	}

	for i := range m.Functions {
		caller := FunctionHandle(i)
		WalkStatements(m.Functions[i].Body, func(s Statement) {
			call, ok := s.Kind.(StmtCall)
			if !ok || int(call.Function) >= n {
				return
			}
			if call.Function == caller {
				if !slices.Contains(cg.recursive, caller) {
					cg.recursive = append(cg.recursive, caller)
				}
				return
			}
			if slices.Contains(cg.callees[caller], call.Function) {
				return
			}
			cg.callees[caller] = append(cg.callees[caller], call.Function)
			cg.callers[call.Function] = append(cg.callers[call.Function], caller)
			cg.deps.SetEdge(cg.deps.NewEdge(simple.Node(call.Function), simple.Node(caller)))
		})
	}
	return cg
}

// Callees returns the distinct functions fn calls, in order of first call.
func (cg *CallGraph) Callees(fn FunctionHandle) []FunctionHandle {
	return cg.callees[fn]
}

// Callers returns the distinct functions calling fn, in handle order.
func (cg *CallGraph) Callers(fn FunctionHandle) []FunctionHandle {
	return cg.callers[fn]
}

// Reachable reports, per function, whether it is reachable from an entry
// point.
func (cg *CallGraph) Reachable() []bool {
	seen := make([]bool, len(cg.module.Functions))
	q := lane.NewQueue()
	for _, ep := range cg.module.EntryPoints {
		if int(ep.Function) < len(seen) && !seen[ep.Function] {
			seen[ep.Function] = true
			q.Enqueue(ep.Function)
		}
	}
	for !q.Empty() {
		fn := q.Dequeue().(FunctionHandle)
		for _, callee := range cg.callees[fn] {
			if !seen[callee] {
				seen[callee] = true
				q.Enqueue(callee)
			}
		}
	}
	return seen
}

// RecursionError reports a cycle in the call graph.
type RecursionError struct {
	Functions []string
}

// Error implements the error interface.
func (e *RecursionError) Error() string {
	return fmt.Sprintf("recursive call cycle through %s", strings.Join(e.Functions, ", "))
}

// CalleesFirst returns every function ordered so that each function comes
// after all functions it calls. Ties are broken by handle. Recursion is
// reported as a *RecursionError.
func (cg *CallGraph) CalleesFirst() ([]FunctionHandle, error) {
	if len(cg.recursive) > 0 {
		return nil, &RecursionError{Functions: cg.names(cg.recursive)}
	}
	nodes, err := topo.SortStabilized(cg.deps, func(ns []graph.Node) {
		slices.SortFunc(ns, func(a, b graph.Node) int {
			return int(a.ID() - b.ID())
		})
	})
	if err != nil {
		var cycle []FunctionHandle
		if unorderable, ok := err.(topo.Unorderable); ok {
			for _, component := range unorderable {
				for _, node := range component {
					cycle = append(cycle, FunctionHandle(node.ID()))
				}
			}
		}
		slices.Sort(cycle)
		return nil, &RecursionError{Functions: cg.names(cycle)}
	}
	order := make([]FunctionHandle, len(nodes))
	for i, node := range nodes {
		order[i] = FunctionHandle(node.ID())
	}
	return order, nil
}

func (cg *CallGraph) names(fns []FunctionHandle) []string {
	names := make([]string, len(fns))
	for i, fn := range fns {
		names[i] = cg.module.Functions[fn].Name
	}
	return names
}
