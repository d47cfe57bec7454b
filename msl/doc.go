// Package msl raises IR modules to the shape the Metal Shading Language
// (MSL) writer accepts.
//
// Metal has no arrayLength(): the host passes the byte sizes of storage
// buffers in a sizes buffer and lengths are computed from those. Metal also
// binds resources to per-entry-point buffer, texture and sampler slots
// rather than (group, binding) pairs, and has no depth clamping control, so
// fragment depth is clamped to the viewport range in the shader.
//
// # Usage
//
//	options := msl.DefaultOptions()
//	options.PerEntryPointMap = map[string]msl.EntryPointResources{
//	    "fs_main": {
//	        Resources: map[binding.Point]msl.BindTarget{
//	            {Group: 0, Binding: 0}: {Buffer: ptr(0)},
//	        },
//	    },
//	}
//	out, results, err := msl.Raise(module, options)
//
// # Binding Slots
//
// Buffers, textures and samplers have separate slot ranges, so a buffer
// and a texture may both use slot 0. Slots are stored in the raised module
// as binding points in group 0. A resource shared by several entry points
// must be given the same slot by each of them.
package msl
