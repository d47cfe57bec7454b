package fuzz

import (
	"errors"
	"fmt"

	"github.com/gogpu/raise"
	"github.com/gogpu/raise/glsl"
	"github.com/gogpu/raise/hlsl"
	"github.com/gogpu/raise/ir"
	"github.com/gogpu/raise/msl"
	"github.com/gogpu/raise/transform"
)

// runFunc runs one configured operation over a module.
type runFunc func(m *ir.Module) (*ir.Module, *transform.DataMap, error)

// Acceptable reports whether err is a rejection the generated config or
// module may legitimately cause.
func Acceptable(err error) bool {
	var he *hlsl.Error
	switch {
	case errors.Is(err, transform.ErrInvalidConfig),
		errors.Is(err, transform.ErrUnsupportedInput),
		errors.Is(err, msl.ErrMissingBinding),
		errors.Is(err, msl.ErrBindingConflict),
		errors.As(err, &he):
		return true
	}
	return false
}

// check runs run twice over m and reports broken guarantees.
func check(m *ir.Module, run runFunc) error {
	before := ir.Disassemble(m)
	out1, _, err1 := run(m)
	if ir.Disassemble(m) != before {
		return errors.New("input module was modified")
	}
	out2, _, err2 := run(m)
	if (err1 == nil) != (err2 == nil) || err1 != nil && err1.Error() != err2.Error() {
		return fmt.Errorf("nondeterministic error: %v then %v", err1, err2)
	}
	if err1 != nil {
		if Acceptable(err1) {
			return nil
		}
		return err1
	}
	d1, d2 := ir.Disassemble(out1), ir.Disassemble(out2)
	if d1 != d2 {
		return errors.New("nondeterministic output")
	}
	errs, err := ir.ValidateWith(out1, ir.ValidateOptions{AllowBindingAliases: true})
	if err != nil {
		return fmt.Errorf("validate: %w", err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid output: %v", &errs[0])
	}
	return nil
}

// single runs one transform with the given config records, preceded by
// PreparePushConstants when the transform reads push constants.
func single(t transform.Transform, records ...func(*transform.DataMap)) runFunc {
	return func(m *ir.Module) (*ir.Module, *transform.DataMap, error) {
		mgr := transform.NewManager()
		switch t.(type) {
		case transform.ClampFragDepth, transform.OffsetFirstIndex:
			mgr.Add(transform.PreparePushConstants{})
		}
		mgr.Add(t)
		inputs := transform.NewDataMap()
		for _, add := range records {
			add(inputs)
		}
		return mgr.Run(m, inputs)
	}
}

func record[T any](v T) func(*transform.DataMap) {
	return func(d *transform.DataMap) { transform.Add(d, v) }
}

var glslVersions = []glsl.Version{
	glsl.Version330, glsl.Version430, glsl.Version450, glsl.VersionES300, glsl.VersionES310,
}

var hlslModels = []hlsl.ShaderModel{hlsl.ShaderModel5_0, hlsl.ShaderModel5_1, hlsl.ShaderModel6_0}

// DefaultRegistry returns a registry holding a target for every transform
// and every backend pipeline.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, t := range defaultTargets() {
		if err := r.Register(t); err != nil {
			panic(err)
		}
	}
	return r
}

//nolint:funlen // target table
func defaultTargets() []Target {
	return []Target{
		{Name: "BindingRemapper", Run: func(g *Generator) error {
			m := g.Module()
			return check(m, single(transform.BindingRemapper{}, record(g.Remappings(m))))
		}},
		{Name: "ArrayLengthFromUniform", Run: func(g *Generator) error {
			m := g.Module()
			return check(m, single(transform.ArrayLengthFromUniform{}, record(g.ArrayLengthOptions(m))))
		}},
		{Name: "ClampFragDepth", Run: func(g *Generator) error {
			offsets := g.DepthRange()
			return check(g.Module(), single(transform.ClampFragDepth{},
				record(transform.ClampFragDepthConfig{Offsets: &offsets})))
		}},
		{Name: "OffsetFirstIndex", Run: func(g *Generator) error {
			return check(g.Module(), single(transform.OffsetFirstIndex{}, record(g.FirstIndex())))
		}},
		{Name: "TextureBuiltinsFromUniform", Run: func(g *Generator) error {
			return check(g.Module(), single(glsl.TextureBuiltinsFromUniform{}, record(g.TextureBuiltinsOptions())))
		}},
		{Name: "CombineSamplers", Run: func(g *Generator) error {
			m := g.Module()
			return check(m, single(glsl.CombineSamplers{}, record(g.CombineSamplersOptions(m))))
		}},
		{Name: "pipeline/glsl", Run: func(g *Generator) error {
			m := g.Module()
			opts := raise.DefaultOptions()
			opts.GLSL.LangVersion = glslVersions[g.Intn(0, len(glslVersions)-1)]
			opts.GLSL.TextureBuiltinsFromUniform = g.TextureBuiltinsOptions()
			opts.GLSL.CombineSamplers = g.CombineSamplersOptions(m)
			if g.Bool() {
				cfg := g.FirstIndex()
				opts.GLSL.FirstIndexOffsets = &cfg
			}
			if g.Bool() {
				dr := g.DepthRange()
				opts.GLSL.DepthRangeOffsets = &dr
			}
			return check(m, backend(raise.BackendGLSL, opts))
		}},
		{Name: "pipeline/hlsl", Run: func(g *Generator) error {
			m := g.Module()
			opts := raise.DefaultOptions()
			opts.HLSL.ShaderModel = hlslModels[g.Intn(0, len(hlslModels)-1)]
			if g.Bool() {
				al := g.ArrayLengthOptions(m)
				opts.HLSL.ArrayLength = &al
			}
			if g.Bool() {
				cfg := g.FirstIndex()
				opts.HLSL.FirstIndexOffsets = &cfg
			}
			return check(m, backend(raise.BackendHLSL, opts))
		}},
		{Name: "pipeline/msl", Run: func(g *Generator) error {
			m := g.Module()
			opts := raise.DefaultOptions()
			if g.Bool() {
				dr := g.DepthRange()
				opts.MSL.DepthRange = &dr
			}
			return check(m, backend(raise.BackendMSL, opts))
		}},
		{Name: "pipeline/spirv", Run: func(g *Generator) error {
			m := g.Module()
			opts := raise.DefaultOptions()
			opts.SPIRV.Remappings = g.Remappings(m)
			if g.Bool() {
				dr := g.DepthRange()
				opts.SPIRV.DepthRangeOffsets = &dr
			}
			return check(m, backend(raise.BackendSPIRV, opts))
		}},
	}
}

func backend(b raise.Backend, opts raise.Options) runFunc {
	return func(m *ir.Module) (*ir.Module, *transform.DataMap, error) {
		return raise.Raise(m, b, opts)
	}
}
