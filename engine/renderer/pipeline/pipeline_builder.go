package pipeline

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// PipelineBuilderOption is a functional option used to configure a Pipeline during construction.
type PipelineBuilderOption func(*pipeline)

// WithLabel overrides the label attached to the shader module, bind group layout, and render
// pipeline descriptors. The program name is used by default.
//
// Parameters:
//   - label: the descriptor label
//
// Returns:
//   - PipelineBuilderOption: a function that sets the label for this pipeline
func WithLabel(label string) PipelineBuilderOption {
	return func(p *pipeline) {
		p.label = label
	}
}

// WithDepthTestEnabled sets whether fragments are depth tested. A disabled test still attaches
// the depth buffer, comparing with wgpu.CompareFunctionAlways.
//
// Parameters:
//   - enabled: whether depth testing should be enabled
//
// Returns:
//   - PipelineBuilderOption: a function that sets the depth test state for this pipeline
func WithDepthTestEnabled(enabled bool) PipelineBuilderOption {
	return func(p *pipeline) {
		p.depthTestEnabled = enabled
	}
}

// WithDepthWriteEnabled sets whether fragments write to the depth buffer.
//
// Parameters:
//   - enabled: whether depth writing should be enabled
//
// Returns:
//   - PipelineBuilderOption: a function that sets the depth write state for this pipeline
func WithDepthWriteEnabled(enabled bool) PipelineBuilderOption {
	return func(p *pipeline) {
		p.depthWriteEnabled = enabled
	}
}

// WithDepthBias sets the constant and slope-scaled depth bias.
//
// Parameters:
//   - bias: the constant depth bias to apply
//   - slopeScale: the slope scale depth bias to apply
//
// Returns:
//   - PipelineBuilderOption: a function that sets the depth bias parameters for this pipeline
func WithDepthBias(bias int32, slopeScale float32) PipelineBuilderOption {
	return func(p *pipeline) {
		p.depthBias = bias
		p.depthBiasSlopeScale = slopeScale
	}
}

// WithDepthFormat sets the depth attachment format. wgpu.TextureFormatUndefined removes the
// depth attachment from the render pipeline descriptor.
//
// Parameters:
//   - format: the depth texture format, wgpu.TextureFormatDepth24Plus by default
//
// Returns:
//   - PipelineBuilderOption: a function that sets the depth format for this pipeline
func WithDepthFormat(format wgpu.TextureFormat) PipelineBuilderOption {
	return func(p *pipeline) {
		p.depthFormat = format
	}
}

// WithBlendEnabled sets whether the blend state is attached to the color target.
//
// Parameters:
//   - enabled: whether blending should be enabled
//
// Returns:
//   - PipelineBuilderOption: a function that sets the blend enabled state for this pipeline
func WithBlendEnabled(enabled bool) PipelineBuilderOption {
	return func(p *pipeline) {
		p.blendEnabled = enabled
	}
}

// WithCullMode sets the face culling mode.
//
// Parameters:
//   - mode: the cull mode, e.g. wgpu.CullModeBack
//
// Returns:
//   - PipelineBuilderOption: a function that sets the cull mode for this pipeline
func WithCullMode(mode wgpu.CullMode) PipelineBuilderOption {
	return func(p *pipeline) {
		p.cullMode = mode
	}
}

// WithTopology sets the primitive topology.
//
// Parameters:
//   - topology: the primitive topology, e.g. wgpu.PrimitiveTopologyLineList
//
// Returns:
//   - PipelineBuilderOption: a function that sets the primitive topology for this pipeline
func WithTopology(topology wgpu.PrimitiveTopology) PipelineBuilderOption {
	return func(p *pipeline) {
		p.topology = topology
	}
}

// WithFrontFace sets the winding order of front-facing triangles.
//
// Parameters:
//   - frontFace: wgpu.FrontFaceCCW or wgpu.FrontFaceCW
//
// Returns:
//   - PipelineBuilderOption: a function that sets the front face for this pipeline
func WithFrontFace(frontFace wgpu.FrontFace) PipelineBuilderOption {
	return func(p *pipeline) {
		p.frontFace = frontFace
	}
}

// WithWriteMask sets which color channels the fragment stage writes.
//
// Parameters:
//   - writeMask: the color write mask, e.g. wgpu.ColorWriteMaskAll
//
// Returns:
//   - PipelineBuilderOption: a function that sets the color write mask for this pipeline
func WithWriteMask(writeMask wgpu.ColorWriteMask) PipelineBuilderOption {
	return func(p *pipeline) {
		p.writeMask = writeMask
	}
}

// WithBlendState replaces the default alpha blend state. It only takes effect together with
// WithBlendEnabled(true).
//
// Parameters:
//   - blendState: the blend state to attach to the color target
//
// Returns:
//   - PipelineBuilderOption: a function that sets the blend state for this pipeline
func WithBlendState(blendState *wgpu.BlendState) PipelineBuilderOption {
	return func(p *pipeline) {
		p.blendState = blendState
	}
}
