package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/raise/ir"
)

// threadModule has a texture "tex" at 0:0, an unused helper "unused", and
// fs_main -> mid(t) -> leaf(t) where leaf queries the level count of t.
func threadModule() (*ir.Module, map[string]ir.FunctionHandle) {
	b := ir.NewModuleBuilder()
	img := b.Type("", ir.ImageType{Dim: ir.Dim2D, Class: ir.ImageClassSampled})
	u32 := b.Types().Scalar(ir.U32)
	tex := b.Resource("tex", ir.SpaceHandle, img, 0, 0)
	fns := make(map[string]ir.FunctionHandle)

	leaf := b.Function("leaf")
	leaf.Returns(u32, nil)
	leaf.Return(leaf.Query(leaf.Arg("t", img), ir.ImageQueryNumLevels{}))
	fns["leaf"] = leaf.Finish()

	unused := b.Function("unused")
	unused.Returns(u32, nil)
	unused.Return(unused.U32(0))
	fns["unused"] = unused.Finish()

	mid := b.Function("mid")
	mid.Returns(u32, nil)
	mid.Return(mid.Call(fns["leaf"], mid.Arg("t", img)))
	fns["mid"] = mid.Finish()

	fs := b.Function("fs_main")
	width := uint8(4)
	v := fs.Expr(ir.ExprAs{Expr: fs.Call(fns["mid"], fs.Global(tex)), Kind: ir.ScalarFloat, Convert: &width})
	fs.Returns(b.Types().Scalar(ir.F32), ir.LocationBinding{Location: 0})
	fs.Return(v)
	fns["fs_main"] = fs.Finish()
	b.EntryPoint("fs_main", ir.StageFragment, fns["fs_main"])
	return b.Module(), fns
}

func levelName(n int) string { return []string{"levels", "levels_1", "levels_2"}[n] }

// analyzeLevels runs Analyze recording every level query.
func analyzeLevels(t *testing.T, th *Threader[string]) map[ir.FunctionHandle]map[ir.ExpressionHandle]Source[string] {
	t.Helper()
	uses := make(map[ir.FunctionHandle]map[ir.ExpressionHandle]Source[string])
	err := th.Analyze(func(fn ir.FunctionHandle, f *ir.Function, h ir.ExpressionHandle) error {
		q, ok := f.Expressions[h].Kind.(ir.ExprImageQuery)
		if !ok {
			return nil
		}
		src, ok := th.Require(fn, f.Root(q.Image), "levels", q.Image)
		require.True(t, ok)
		if uses[fn] == nil {
			uses[fn] = make(map[ir.ExpressionHandle]Source[string])
		}
		uses[fn][h] = src
		th.MarkUse(fn)
		return nil
	})
	require.NoError(t, err)
	return uses
}

func TestThreader_Analyze(t *testing.T) {
	m, fns := threadModule()
	th, err := NewThreader[string](m, levelName, 0)
	require.NoError(t, err)

	// Callees come first; unreachable functions are included.
	order := th.Order()
	require.Len(t, order, 4)
	pos := make(map[ir.FunctionHandle]int)
	for i, fn := range order {
		pos[fn] = i
	}
	assert.Less(t, pos[fns["leaf"]], pos[fns["mid"]])
	assert.Less(t, pos[fns["mid"]], pos[fns["fs_main"]])
	assert.Contains(t, order, fns["unused"])

	for _, fn := range order {
		assert.Equal(t, NotVisited, th.State(fn))
	}
	analyzeLevels(t, th)

	assert.Equal(t, 1, th.ExtraParams(fns["leaf"]))
	assert.Equal(t, 1, th.ExtraParams(fns["mid"]))
	assert.Equal(t, 0, th.ExtraParams(fns["fs_main"]))
	assert.Equal(t, Queued, th.State(fns["fs_main"]))
	assert.Equal(t, NotVisited, th.State(fns["unused"]))
}

func TestThreader_Rewrite(t *testing.T) {
	m, fns := threadModule()
	u32 := ir.NewTypeRegistry(m.Clone()).Scalar(ir.U32)
	th, err := NewThreader[string](m, levelName, u32)
	require.NoError(t, err)
	uses := analyzeLevels(t, th)

	var materialized []string
	hooks := Hooks[string]{}
	hooks.Materialize = func(rw *ir.Rewriter, src Source[string]) ir.ExpressionHandle {
		materialized = append(materialized, rw.Old.Name+":"+m.GlobalVariables[src.Global].Name)
		return rw.Add(ir.Literal{Value: ir.LiteralU32(7)})
	}
	hooks.Use = func(rw *ir.Rewriter, fn ir.FunctionHandle, old ir.ExpressionHandle) (ir.ExpressionHandle, bool) {
		src, ok := uses[fn][old]
		if !ok {
			return 0, false
		}
		return th.Value(rw, src, hooks), true
	}
	out := m.Clone()
	th.Rewrite(out, hooks)

	assert.Equal(t, []string{"fs_main:tex"}, materialized)
	for _, name := range []string{"leaf", "mid"} {
		fn := fns[name]
		assert.Equal(t, Rewritten, th.State(fn))
		args := out.Functions[fn].Arguments
		require.Len(t, args, 2, name)
		assert.Equal(t, "levels", args[1].Name)
		assert.Equal(t, u32, args[1].Type)
	}
	assert.Equal(t, m.Functions[fns["unused"]], out.Functions[fns["unused"]])

	// The leaf's query now reads its new parameter.
	leaf := &out.Functions[fns["leaf"]]
	ret := leaf.Body[len(leaf.Body)-1].Kind.(ir.StmtReturn)
	arg, ok := leaf.Expressions[*ret.Value].Kind.(ir.ExprFunctionArgument)
	require.True(t, ok)
	assert.Equal(t, uint32(1), arg.Index)

	calls := ir.CallSites(&out.Functions[fns["fs_main"]])
	require.Len(t, calls, 1)
	assert.Len(t, calls[0].Arguments, 2)
}

func TestThreader_KeyedDropsArguments(t *testing.T) {
	m, fns := threadModule()
	u32 := ir.NewTypeRegistry(m.Clone()).Scalar(ir.U32)
	th, err := NewThreader[string](m, levelName, 0)
	require.NoError(t, err)
	th.ParamTypeOf = func(ir.FunctionHandle, string) ir.TypeHandle { return u32 }

	var forwarded []string
	th.Forward = func(fn ir.FunctionHandle, f *ir.Function, call ir.StmtCall, kind string) (Source[string], error) {
		forwarded = append(forwarded, f.Name)
		arg := call.Arguments[0]
		if g, ok := f.Expressions[f.Root(arg)].Kind.(ir.ExprGlobalVariable); ok {
			return Source[string]{Kind: kind, Param: -1, Global: g.Variable, Expr: arg}, nil
		}
		return th.RequireKey(fn, kind, arg), nil
	}
	uses := make(map[ir.FunctionHandle]map[ir.ExpressionHandle]Source[string])
	require.NoError(t, th.Analyze(func(fn ir.FunctionHandle, f *ir.Function, h ir.ExpressionHandle) error {
		if _, ok := f.Expressions[h].Kind.(ir.ExprImageQuery); ok {
			uses[fn] = map[ir.ExpressionHandle]Source[string]{h: th.RequireKey(fn, "levels", h)}
			th.MarkUse(fn)
		}
		return nil
	}))
	assert.Equal(t, []string{"mid", "fs_main"}, forwarded)

	hooks := Hooks[string]{
		DropArgument: func(fn ir.FunctionHandle, i uint32) bool {
			_, isImage := m.Types[m.Functions[fn].Arguments[i].Type].Inner.(ir.ImageType)
			return isImage
		},
	}
	hooks.Materialize = func(rw *ir.Rewriter, _ Source[string]) ir.ExpressionHandle {
		return rw.Add(ir.Literal{Value: ir.LiteralU32(7)})
	}
	hooks.Use = func(rw *ir.Rewriter, fn ir.FunctionHandle, old ir.ExpressionHandle) (ir.ExpressionHandle, bool) {
		src, ok := uses[fn][old]
		if !ok {
			return 0, false
		}
		return th.Value(rw, src, hooks), true
	}
	out := m.Clone()
	th.Rewrite(out, hooks)

	for _, name := range []string{"leaf", "mid"} {
		args := out.Functions[fns[name]].Arguments
		require.Len(t, args, 1, name)
		assert.Equal(t, "levels", args[0].Name)
		assert.Equal(t, u32, args[0].Type)
	}
	calls := ir.CallSites(&out.Functions[fns["fs_main"]])
	require.Len(t, calls, 1)
	require.Len(t, calls[0].Arguments, 1)
	assert.Equal(t, ir.Literal{Value: ir.LiteralU32(7)}, out.Functions[fns["fs_main"]].Expressions[calls[0].Arguments[0]].Kind)
	errs, err := ir.Validate(out)
	require.NoError(t, err)
	assert.Empty(t, errs)
}

func TestThreader_KeyedWithoutForward(t *testing.T) {
	m, _ := threadModule()
	th, err := NewThreader[string](m, levelName, 0)
	require.NoError(t, err)
	err = th.Analyze(func(fn ir.FunctionHandle, f *ir.Function, h ir.ExpressionHandle) error {
		if _, ok := f.Expressions[h].Kind.(ir.ExprImageQuery); ok {
			th.RequireKey(fn, "levels", h)
		}
		return nil
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Forward")
}

func TestThreader_ParamNamesAvoidArguments(t *testing.T) {
	b := ir.NewModuleBuilder()
	img := b.Type("", ir.ImageType{Dim: ir.Dim2D, Class: ir.ImageClassSampled})
	u32 := b.Types().Scalar(ir.U32)
	leaf := b.Function("leaf")
	leaf.Arg("levels", u32)
	leaf.Returns(u32, nil)
	leaf.Return(leaf.Query(leaf.Arg("t", img), ir.ImageQueryNumLevels{}))
	h := leaf.Finish()
	m := b.Module()

	th, err := NewThreader[string](m, levelName, u32)
	require.NoError(t, err)
	uses := analyzeLevels(t, th)
	hooks := Hooks[string]{}
	hooks.Use = func(rw *ir.Rewriter, fn ir.FunctionHandle, old ir.ExpressionHandle) (ir.ExpressionHandle, bool) {
		src, ok := uses[fn][old]
		if !ok {
			return 0, false
		}
		return th.Value(rw, src, hooks), true
	}
	out := m.Clone()
	th.Rewrite(out, hooks)
	args := out.Functions[h].Arguments
	require.Len(t, args, 3)
	assert.Equal(t, "levels_1", args[2].Name)
}

func TestThreader_Recursion(t *testing.T) {
	b := ir.NewModuleBuilder()
	u32 := b.Types().Scalar(ir.U32)
	f := b.Function("loop")
	f.Returns(u32, nil)
	f.Return(f.Call(f.Handle()))
	f.Finish()

	_, err := NewThreader[string](b.Module(), levelName, u32)
	require.ErrorIs(t, err, ErrUnsupportedInput)
	assert.Contains(t, Attribute("Threaded", err).Error(), "Threaded: UnsupportedInput")
}

func TestThreader_NonResourceArgument(t *testing.T) {
	// The texture reaching leaf is neither a global nor a parameter.
	b := ir.NewModuleBuilder()
	img := b.Type("", ir.ImageType{Dim: ir.Dim2D, Class: ir.ImageClassSampled})
	u32 := b.Types().Scalar(ir.U32)
	leaf := b.Function("leaf")
	leaf.Returns(u32, nil)
	leaf.Return(leaf.Query(leaf.Arg("t", img), ir.ImageQueryNumLevels{}))
	lh := leaf.Finish()
	caller := b.Function("caller")
	caller.Returns(u32, nil)
	caller.Return(caller.Call(lh, caller.Expr(ir.ExprZeroValue{Type: img})))
	caller.Finish()

	th, err := NewThreader[string](b.Module(), levelName, u32)
	require.NoError(t, err)
	err = th.Analyze(func(fn ir.FunctionHandle, f *ir.Function, h ir.ExpressionHandle) error {
		if q, ok := f.Expressions[h].Kind.(ir.ExprImageQuery); ok {
			th.Require(fn, f.Root(q.Image), "levels", q.Image)
			th.MarkUse(fn)
		}
		return nil
	})
	assert.ErrorIs(t, err, ErrUnsupportedInput)
}
