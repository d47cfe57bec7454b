// Package spirv raises IR modules to the shape the SPIR-V writer accepts.
//
// SPIR-V is the standard intermediate language for GPU shaders, used by
// Vulkan and OpenCL. It shares the source model's (group, binding)
// resource model, so the pipeline only moves bindings and, for devices
// without depth clamping, clamps fragment depth in the shader:
//
//	options := spirv.DefaultOptions()
//	options.DepthRangeOffsets = &transform.DepthRangeOffsets{Min: 0, Max: 4}
//	out, results, err := spirv.Raise(module, options)
package spirv
