package main

import (
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/gogpu/raise/binding"
	"github.com/gogpu/raise/codec"
	"github.com/gogpu/raise/glsl"
	"github.com/gogpu/raise/hlsl"
	"github.com/gogpu/raise/ir"
	"github.com/gogpu/raise/transform"
)

// configType is one config record the CLI can encode and decode.
type configType struct {
	// empty returns a zero record to decode into.
	empty func() codec.Record
	// parse reads the YAML form of the record.
	parse func(doc *yaml.Node) (codec.Record, error)
}

// point is the YAML form of a binding point: {group: 0, binding: 1}.
type point struct {
	Group   uint32 `yaml:"group"`
	Binding uint32 `yaml:"binding"`
}

func (p point) bp() binding.Point { return binding.Point{Group: p.Group, Binding: p.Binding} }

type remappingsDoc struct {
	Bindings []struct {
		From point `yaml:"from"`
		To   point `yaml:"to"`
	} `yaml:"bindings"`
	Access []struct {
		point  `yaml:",inline"`
		Access string `yaml:"access"`
	} `yaml:"access"`
	AllowCollisions bool `yaml:"allow_collisions"`
}

type arrayLengthDoc struct {
	UBOBinding point `yaml:"ubo_binding"`
	Sizes      []struct {
		point `yaml:",inline"`
		Index uint32 `yaml:"index"`
	} `yaml:"sizes"`
}

type depthRangeDoc struct {
	Min uint32 `yaml:"min"`
	Max uint32 `yaml:"max"`
}

type firstIndexDoc struct {
	FirstVertex   *uint32 `yaml:"first_vertex"`
	FirstInstance *uint32 `yaml:"first_instance"`
}

type combineSamplersDoc struct {
	Names []struct {
		Texture     point  `yaml:"texture"`
		Sampler     point  `yaml:"sampler"`
		Placeholder bool   `yaml:"placeholder"`
		Name        string `yaml:"name"`
	} `yaml:"names"`
	Placeholder point `yaml:"placeholder_sampler"`
}

type pixelLocalDoc struct {
	Group       uint32 `yaml:"group"`
	Attachments []struct {
		Member   uint32 `yaml:"member"`
		Register uint32 `yaml:"register"`
		Format   string `yaml:"format"`
	} `yaml:"attachments"`
}

var accessModes = map[string]ir.StorageAccess{
	ir.StorageRead.String():      ir.StorageRead,
	ir.StorageWrite.String():     ir.StorageWrite,
	ir.StorageReadWrite.String(): ir.StorageReadWrite,
}

func texelFormat(s string) (hlsl.TexelFormat, error) {
	for _, f := range []hlsl.TexelFormat{hlsl.TexelFormatR32Sint, hlsl.TexelFormatR32Uint, hlsl.TexelFormatR32Float} {
		if f.String() == s {
			return f, nil
		}
	}
	return hlsl.TexelFormatUndefined, fmt.Errorf("unknown texel format %q", s)
}

// decodeAs decodes doc into a D and converts it.
func decodeAs[D any](conv func(D) (codec.Record, error)) func(*yaml.Node) (codec.Record, error) {
	return func(doc *yaml.Node) (codec.Record, error) {
		var d D
		if err := doc.Decode(&d); err != nil {
			return nil, err
		}
		return conv(d)
	}
}

var configTypes = map[string]configType{
	"binding-point": {
		empty: func() codec.Record { return &binding.Point{} },
		parse: decodeAs(func(d point) (codec.Record, error) {
			bp := d.bp()
			return &bp, nil
		}),
	},
	"remappings": {
		empty: func() codec.Record { return &transform.Remappings{} },
		parse: decodeAs(func(d remappingsDoc) (codec.Record, error) {
			r := &transform.Remappings{
				BindingPoints:   make(map[binding.Point]binding.Point),
				AccessControls:  make(map[binding.Point]ir.StorageAccess),
				AllowCollisions: d.AllowCollisions,
			}
			for _, b := range d.Bindings {
				r.BindingPoints[b.From.bp()] = b.To.bp()
			}
			for _, a := range d.Access {
				mode, ok := accessModes[a.Access]
				if !ok {
					return nil, fmt.Errorf("unknown access mode %q", a.Access)
				}
				r.AccessControls[a.bp()] = mode
			}
			return r, nil
		}),
	},
	"array-length": {
		empty: func() codec.Record { return &transform.ArrayLengthFromUniformOptions{} },
		parse: decodeAs(func(d arrayLengthDoc) (codec.Record, error) {
			o := &transform.ArrayLengthFromUniformOptions{
				UBOBinding:           d.UBOBinding.bp(),
				BindpointToSizeIndex: make(map[binding.Point]uint32),
			}
			for _, s := range d.Sizes {
				o.BindpointToSizeIndex[s.bp()] = s.Index
			}
			return o, nil
		}),
	},
	"depth-range": {
		empty: func() codec.Record { return &transform.DepthRangeOffsets{} },
		parse: decodeAs(func(d depthRangeDoc) (codec.Record, error) {
			return &transform.DepthRangeOffsets{Min: d.Min, Max: d.Max}, nil
		}),
	},
	"first-index": {
		empty: func() codec.Record { return &transform.OffsetFirstIndexConfig{} },
		parse: decodeAs(func(d firstIndexDoc) (codec.Record, error) {
			return &transform.OffsetFirstIndexConfig{
				FirstVertexOffset:   d.FirstVertex,
				FirstInstanceOffset: d.FirstInstance,
			}, nil
		}),
	},
	"texture-builtins": {
		empty: func() codec.Record { return &glsl.TextureBuiltinsFromUniformOptions{} },
		parse: decodeAs(func(d struct {
			UBOBinding point `yaml:"ubo_binding"`
		}) (codec.Record, error) {
			return &glsl.TextureBuiltinsFromUniformOptions{UBOBinding: d.UBOBinding.bp()}, nil
		}),
	},
	"combine-samplers": {
		empty: func() codec.Record { return &glsl.CombineSamplersOptions{} },
		parse: decodeAs(func(d combineSamplersDoc) (codec.Record, error) {
			o := &glsl.CombineSamplersOptions{
				SamplerTextureToName:      make(map[glsl.SamplerTexturePair]string),
				PlaceholderSamplerBinding: d.Placeholder.bp(),
			}
			for _, n := range d.Names {
				pair := glsl.SamplerTexturePair{Texture: n.Texture.bp(), Sampler: n.Sampler.bp(), Placeholder: n.Placeholder}
				o.SamplerTextureToName[pair] = n.Name
			}
			return o, nil
		}),
	},
	"pixel-local": {
		empty: func() codec.Record { return &hlsl.PixelLocalOptions{} },
		parse: decodeAs(func(d pixelLocalDoc) (codec.Record, error) {
			o := &hlsl.PixelLocalOptions{
				Attachments:       make(map[uint32]uint32),
				AttachmentFormats: make(map[uint32]hlsl.TexelFormat),
				GroupIndex:        d.Group,
			}
			for _, a := range d.Attachments {
				f, err := texelFormat(a.Format)
				if err != nil {
					return nil, err
				}
				o.Attachments[a.Member] = a.Register
				o.AttachmentFormats[a.Member] = f
			}
			return o, nil
		}),
	},
}

func configTypeNames() []string {
	names := make([]string, 0, len(configTypes))
	for name := range configTypes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func lookupConfigType(name string) (configType, error) {
	ct, ok := configTypes[name]
	if !ok {
		return configType{}, fmt.Errorf("unknown config type %q (have %v)", name, configTypeNames())
	}
	return ct, nil
}

// parseConfig reads a YAML document of the named type.
func parseConfig(name string, data []byte) (codec.Record, error) {
	ct, err := lookupConfigType(name)
	if err != nil {
		return nil, err
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	if len(doc.Content) == 0 {
		return ct.parse(&yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"})
	}
	return ct.parse(doc.Content[0])
}
