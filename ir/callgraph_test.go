package ir

import (
	"errors"
	"slices"
	"testing"
)

// chainModule builds leaf <- middle <- main plus an unused caller of leaf.
func chainModule() *Module {
	b := NewModuleBuilder()
	leaf := b.Function("leaf")
	leaf.ReturnVoid()
	leafHandle := leaf.Finish()

	middle := b.Function("middle")
	middle.Call(leafHandle)
	middle.Call(leafHandle)
	middle.ReturnVoid()
	middleHandle := middle.Finish()

	main := b.Function("main")
	main.Call(middleHandle)
	main.ReturnVoid()
	b.EntryPoint("main", StageCompute, main.Finish())

	unused := b.Function("unused")
	unused.Call(leafHandle)
	unused.ReturnVoid()
	unused.Finish()
	return b.Module()
}

func TestCallGraph_Edges(t *testing.T) {
	cg := BuildCallGraph(chainModule())

	if got := cg.Callees(1); !slices.Equal(got, []FunctionHandle{0}) {
		t.Errorf("Callees(middle) = %v, want [0]", got)
	}
	if got := cg.Callers(0); !slices.Equal(got, []FunctionHandle{1, 3}) {
		t.Errorf("Callers(leaf) = %v, want [1 3]", got)
	}
}

func TestCallGraph_Reachable(t *testing.T) {
	got := BuildCallGraph(chainModule()).Reachable()
	want := []bool{true, true, true, false}
	if !slices.Equal(got, want) {
		t.Errorf("Reachable = %v, want %v", got, want)
	}
}

func TestCallGraph_CalleesFirst(t *testing.T) {
	m := chainModule()
	cg := BuildCallGraph(m)
	order, err := cg.CalleesFirst()
	if err != nil {
		t.Fatalf("CalleesFirst: %v", err)
	}
	if len(order) != len(m.Functions) {
		t.Fatalf("order has %d functions, want %d", len(order), len(m.Functions))
	}
	pos := make(map[FunctionHandle]int)
	for i, fn := range order {
		pos[fn] = i
	}
	for caller := range m.Functions {
		for _, callee := range cg.Callees(FunctionHandle(caller)) {
			if pos[callee] > pos[FunctionHandle(caller)] {
				t.Errorf("%s ordered before its callee %s", m.Functions[caller].Name, m.Functions[callee].Name)
			}
		}
	}
}

func TestCallGraph_Recursion(t *testing.T) {
	tests := []struct {
		name  string
		build func(b *ModuleBuilder)
		want  []string
	}{
		{
			name: "self",
			build: func(b *ModuleBuilder) {
				f := b.Function("f")
				f.Call(f.Handle())
				f.ReturnVoid()
				f.Finish()
			},
			want: []string{"f"},
		},
		{
			name: "mutual",
			build: func(b *ModuleBuilder) {
				a := b.Function("a")
				c := b.Function("c")
				a.Call(c.Handle())
				a.ReturnVoid()
				c.Call(a.Handle())
				c.ReturnVoid()
				a.Finish()
				c.Finish()
			},
			want: []string{"a", "c"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewModuleBuilder()
			tt.build(b)
			_, err := BuildCallGraph(b.Module()).CalleesFirst()
			var rec *RecursionError
			if !errors.As(err, &rec) {
				t.Fatalf("error = %v, want *RecursionError", err)
			}
			if !slices.Equal(rec.Functions, tt.want) {
				t.Errorf("functions = %v, want %v", rec.Functions, tt.want)
			}
		})
	}
}

func TestCallSites_Order(t *testing.T) {
	m := chainModule()
	sites := CallSites(&m.Functions[1])
	if len(sites) != 2 {
		t.Fatalf("got %d call sites, want 2", len(sites))
	}
}
