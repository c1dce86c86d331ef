package pipeline

import (
	"slices"
	"strings"

	"github.com/Carmen-Shannon/oxy-matc/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// vertexFormatInfo holds the wgpu vertex format and its byte size for offset calculation
type vertexFormatInfo struct {
	format wgpu.VertexFormat
	size   uint64
}

// vertexFormats maps the WGSL spellings of mesh attribute types to their vertex formats.
var vertexFormats = map[string]vertexFormatInfo{
	"f32":       {wgpu.VertexFormatFloat32, 4},
	"vec2<f32>": {wgpu.VertexFormatFloat32x2, 8},
	"vec3<f32>": {wgpu.VertexFormatFloat32x3, 12},
	"vec4<f32>": {wgpu.VertexFormatFloat32x4, 16},
}

// uniformSizes maps WGSL type spellings to their uniform buffer size, derived from the
// portable value types the compiler emits.
var uniformSizes = func() map[string]uint64 {
	sizes := make(map[string]uint64)
	for t := shader.TypeF32; t <= shader.TypeMatrix4; t++ {
		if t.Size() > 0 {
			sizes[t.WGSL()] = t.Size()
		}
	}
	return sizes
}()

// sampledTextureDims maps sampled texture base names to their view dimension
var sampledTextureDims = map[string]wgpu.TextureViewDimension{
	"texture_1d":         wgpu.TextureViewDimension1D,
	"texture_2d":         wgpu.TextureViewDimension2D,
	"texture_2d_array":   wgpu.TextureViewDimension2DArray,
	"texture_3d":         wgpu.TextureViewDimension3D,
	"texture_cube":       wgpu.TextureViewDimensionCube,
	"texture_cube_array": wgpu.TextureViewDimensionCubeArray,
}

// sampleTypes maps WGSL scalar type parameters to their texture sample type
var sampleTypes = map[string]wgpu.TextureSampleType{
	"f32": wgpu.TextureSampleTypeFloat,
	"i32": wgpu.TextureSampleTypeSint,
	"u32": wgpu.TextureSampleTypeUint,
}

// classifyResource builds the layout entry of one resource declaration from its address space
// and type. Uniform buffers get a MinBindingSize when the type is known.
//
// Parameters:
//   - binding: the binding index from @binding(N)
//   - visibility: the shader stage visibility flag
//   - addressSpace: the address space qualifier, empty for handle types
//   - typeName: the WGSL type string, e.g. "vec4<f32>", "texture_2d<f32>", "sampler"
//
// Returns:
//   - wgpu.BindGroupLayoutEntry: the populated layout entry
func classifyResource(binding uint32, visibility wgpu.ShaderStage, addressSpace, typeName string) wgpu.BindGroupLayoutEntry {
	entry := wgpu.BindGroupLayoutEntry{
		Binding:    binding,
		Visibility: visibility,
	}

	switch {
	case addressSpace == "uniform":
		entry.Buffer.Type = wgpu.BufferBindingTypeUniform
		entry.Buffer.MinBindingSize = uniformSizes[typeName]
	case strings.HasPrefix(addressSpace, "storage"):
		entry.Buffer.Type = wgpu.BufferBindingTypeReadOnlyStorage
		if strings.Contains(addressSpace, "read_write") {
			entry.Buffer.Type = wgpu.BufferBindingTypeStorage
		}
	case typeName == "sampler":
		entry.Sampler.Type = wgpu.SamplerBindingTypeFiltering
	case typeName == "sampler_comparison":
		entry.Sampler.Type = wgpu.SamplerBindingTypeComparison
	case strings.HasPrefix(typeName, "texture_"):
		base, param := splitTypeParams(typeName)
		entry.Texture.ViewDimension = sampledTextureDims[base]
		entry.Texture.SampleType = sampleTypes[param]
	}
	return entry
}

// splitTypeParams splits "texture_2d<f32>" into ("texture_2d", "f32").
func splitTypeParams(typeName string) (base string, params string) {
	before, after, ok := strings.Cut(typeName, "<")
	if !ok {
		return typeName, ""
	}
	return before, strings.TrimSpace(strings.TrimSuffix(after, ">"))
}

// buildVertexBufferLayout converts a reflected vertex input struct into one interleaved buffer
// layout with sequential offsets.
//
// Parameters:
//   - rs: the reflected input struct
//
// Returns:
//   - wgpu.VertexBufferLayout: the buffer layout
//   - bool: false if a member type has no vertex format
func buildVertexBufferLayout(rs reflectedStruct) (wgpu.VertexBufferLayout, bool) {
	attrs := make([]wgpu.VertexAttribute, 0, len(rs.fields))
	var offset uint64
	for _, f := range rs.fields {
		info, ok := vertexFormats[f.typeName]
		if !ok {
			return wgpu.VertexBufferLayout{}, false
		}
		attrs = append(attrs, wgpu.VertexAttribute{
			Format:         info.format,
			Offset:         offset,
			ShaderLocation: uint32(f.location),
		})
		offset += info.size
	}
	return wgpu.VertexBufferLayout{
		ArrayStride: offset,
		StepMode:    wgpu.VertexStepModeVertex,
		Attributes:  attrs,
	}, true
}

// mergeBindGroupLayouts merges the per-stage descriptors of a render pipeline. Entries sharing
// a binding have their visibility ORed together; entries unique to one stage keep their own.
//
// Parameters:
//   - vertexLayouts: descriptors reflected from the vertex stage
//   - fragmentLayouts: descriptors reflected from the fragment stage
//
// Returns:
//   - map[int]wgpu.BindGroupLayoutDescriptor: the merged descriptors keyed by group index
func mergeBindGroupLayouts(vertexLayouts, fragmentLayouts map[int]wgpu.BindGroupLayoutDescriptor) map[int]wgpu.BindGroupLayoutDescriptor {
	merged := make(map[int]wgpu.BindGroupLayoutDescriptor, len(vertexLayouts)+len(fragmentLayouts))
	for g, desc := range vertexLayouts {
		merged[g] = wgpu.BindGroupLayoutDescriptor{Entries: slices.Clone(desc.Entries)}
	}
	for g, desc := range fragmentLayouts {
		existing := merged[g]
		for _, e := range desc.Entries {
			i := slices.IndexFunc(existing.Entries, func(other wgpu.BindGroupLayoutEntry) bool {
				return other.Binding == e.Binding
			})
			if i >= 0 {
				existing.Entries[i].Visibility |= e.Visibility
				continue
			}
			existing.Entries = append(existing.Entries, e)
		}
		slices.SortFunc(existing.Entries, func(a, b wgpu.BindGroupLayoutEntry) int {
			return int(a.Binding) - int(b.Binding)
		})
		merged[g] = existing
	}
	return merged
}
