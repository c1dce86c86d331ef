package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"slices"

	"github.com/Carmen-Shannon/oxy-matc/common"
	"github.com/Carmen-Shannon/oxy-matc/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// stageFlags maps a program stage to its wgpu visibility flag.
var stageFlags = [2]wgpu.ShaderStage{
	shader.StageVertex:   wgpu.ShaderStageVertex,
	shader.StageFragment: wgpu.ShaderStageFragment,
}

// RenderTarget describes the color attachment a render pipeline draws into.
type RenderTarget struct {
	// Format is the color attachment format, typically the surface's preferred format.
	Format wgpu.TextureFormat

	// SampleCount is the MSAA sample count; 0 is treated as 1.
	SampleCount uint32
}

// pipeline is the implementation of the Pipeline interface.
// It holds the descriptor data reflected from a compiled program and the render state options.
type pipeline struct {
	// key identifies the program together with the render state, used for caching and lookups
	key   string
	label string

	program       shader.Program
	modules       [2]wgpu.ShaderModuleDescriptor
	bindGroups    []wgpu.BindGroupLayoutDescriptor
	vertexBuffers []wgpu.VertexBufferLayout

	// renderPipeline is set by Create
	renderPipeline *wgpu.RenderPipeline

	// The following properties configure the render state and can be set with the builder options.

	depthTestEnabled    bool
	depthWriteEnabled   bool
	depthBias           int32
	depthBiasSlopeScale float32
	depthFormat         wgpu.TextureFormat
	blendEnabled        bool
	cullMode            wgpu.CullMode
	topology            wgpu.PrimitiveTopology
	frontFace           wgpu.FrontFace
	writeMask           wgpu.ColorWriteMask
	blendState          *wgpu.BlendState
}

// Pipeline is the binding-layer view of a compiled shader program: the shader module
// descriptors of both stages, the bind group layouts the stages declare with visibility
// merged across stages, the mesh vertex buffer layout, and the render state used to build a
// render pipeline. Everything except Create works without a GPU device.
type Pipeline interface {
	// Key returns the unique key of this pipeline, derived from the program key and the render state.
	//
	// Returns:
	//   - string: the hex digest identifying the pipeline
	Key() string

	// Label returns the label attached to the descriptors, the program name unless overridden.
	//
	// Returns:
	//   - string: the descriptor label
	Label() string

	// Program returns the compiled program the pipeline was built from.
	//
	// Returns:
	//   - shader.Program: the source program
	Program() shader.Program

	// ShaderModule returns the shader module descriptor of one stage.
	//
	// Parameters:
	//   - stage: shader.StageVertex or shader.StageFragment
	//
	// Returns:
	//   - *wgpu.ShaderModuleDescriptor: a fresh descriptor holding the stage's WGSL, or nil for an unknown stage
	ShaderModule(stage shader.StageKind) *wgpu.ShaderModuleDescriptor

	// EntryPoint returns the entry function name of one stage.
	//
	// Parameters:
	//   - stage: shader.StageVertex or shader.StageFragment
	//
	// Returns:
	//   - string: the entry point name
	EntryPoint(stage shader.StageKind) string

	// BindGroupLayouts returns one descriptor per bind group index from 0 to the highest group
	// either stage declares. Groups no stage uses have no entries.
	//
	// Returns:
	//   - []wgpu.BindGroupLayoutDescriptor: copies of the layout descriptors indexed by group
	BindGroupLayouts() []wgpu.BindGroupLayoutDescriptor

	// VertexBuffers returns the vertex buffer layouts of the vertex stage: a single interleaved
	// buffer holding the mesh attributes the program reads, or none when it reads no attribute.
	//
	// Returns:
	//   - []wgpu.VertexBufferLayout: copies of the buffer layouts
	VertexBuffers() []wgpu.VertexBufferLayout

	// DepthTestEnabled returns whether depth testing is enabled for this pipeline.
	//
	// Returns:
	//   - bool: true if depth testing is enabled, false otherwise
	DepthTestEnabled() bool

	// DepthWriteEnabled returns whether depth writing is enabled for this pipeline.
	//
	// Returns:
	//   - bool: true if depth writing is enabled, false otherwise
	DepthWriteEnabled() bool

	// DepthBias returns the depth bias value configured for this pipeline.
	//
	// Returns:
	//   - int32: the depth bias value for this pipeline
	DepthBias() int32

	// DepthBiasSlopeScale returns the depth bias slope scale configured for this pipeline.
	//
	// Returns:
	//   - float32: the depth bias slope scale for this pipeline
	DepthBiasSlopeScale() float32

	// DepthFormat returns the depth attachment format, wgpu.TextureFormatUndefined when the
	// pipeline has no depth attachment.
	//
	// Returns:
	//   - wgpu.TextureFormat: the depth format
	DepthFormat() wgpu.TextureFormat

	// BlendEnabled returns whether blending is enabled for this pipeline.
	//
	// Returns:
	//   - bool: true if blending is enabled, false otherwise
	BlendEnabled() bool

	// CullMode returns the cull mode configured for this pipeline.
	//
	// Returns:
	//   - wgpu.CullMode: the cull mode for this pipeline
	CullMode() wgpu.CullMode

	// Topology returns the primitive topology configured for this pipeline.
	//
	// Returns:
	//   - wgpu.PrimitiveTopology: the primitive topology for this pipeline
	Topology() wgpu.PrimitiveTopology

	// FrontFace returns the front face winding order configured for this pipeline.
	//
	// Returns:
	//   - wgpu.FrontFace: the front face winding order for this pipeline
	FrontFace() wgpu.FrontFace

	// WriteMask returns the color write mask configured for this pipeline.
	//
	// Returns:
	//   - wgpu.ColorWriteMask: the color write mask for this pipeline
	WriteMask() wgpu.ColorWriteMask

	// BlendState returns the blend state configured for this pipeline.
	//
	// Returns:
	//   - *wgpu.BlendState: the blend state for this pipeline
	BlendState() *wgpu.BlendState

	// RenderPipelineDescriptor assembles the full render pipeline descriptor from device objects
	// created from this pipeline's descriptors.
	//
	// Parameters:
	//   - layout: the pipeline layout created from BindGroupLayouts
	//   - vertex: the shader module created from ShaderModule(shader.StageVertex)
	//   - fragment: the shader module created from ShaderModule(shader.StageFragment)
	//   - target: the color attachment description
	//
	// Returns:
	//   - *wgpu.RenderPipelineDescriptor: the descriptor ready for Device.CreateRenderPipeline
	RenderPipelineDescriptor(layout *wgpu.PipelineLayout, vertex, fragment *wgpu.ShaderModule, target RenderTarget) *wgpu.RenderPipelineDescriptor

	// Create builds the shader modules, bind group layouts, pipeline layout, and render pipeline
	// on the given device and stores the render pipeline.
	//
	// Parameters:
	//   - device: the device to create GPU objects on
	//   - target: the color attachment description
	//
	// Returns:
	//   - error: the first device error, wrapped with the failing step
	Create(device *wgpu.Device, target RenderTarget) error

	// RenderPipeline returns the render pipeline built by Create, or nil before Create succeeds.
	//
	// Returns:
	//   - *wgpu.RenderPipeline: the render pipeline
	RenderPipeline() *wgpu.RenderPipeline
}

var _ Pipeline = &pipeline{}

// NewPipeline builds the binding-layer descriptors of a compiled program. The bind group
// layouts and vertex buffer layout are reflected from the generated WGSL and cross-checked
// against the program's binding tables.
//
// Parameters:
//   - prog: the compiled program; must not be nil
//   - opts: a variadic list of PipelineBuilderOption functions to configure the render state
//
// Returns:
//   - Pipeline: the pipeline descriptors
//   - error: an error if the generated text disagrees with the program's binding tables
func NewPipeline(prog shader.Program, opts ...PipelineBuilderOption) (Pipeline, error) {
	if prog == nil {
		panic("pipeline: NewPipeline called with a nil program")
	}
	p := &pipeline{
		label:             prog.Name(),
		program:           prog,
		depthTestEnabled:  true,
		depthWriteEnabled: true,
		depthFormat:       wgpu.TextureFormatDepth24Plus,
		blendEnabled:      false,
		cullMode:          wgpu.CullModeNone,
		topology:          wgpu.PrimitiveTopologyTriangleList,
		frontFace:         wgpu.FrontFaceCCW,
		writeMask:         wgpu.ColorWriteMaskAll,
		blendState: &wgpu.BlendState{
			Color: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorSrcAlpha,
				DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
				Operation: wgpu.BlendOperationAdd,
			},
			Alpha: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorOne,
				DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
				Operation: wgpu.BlendOperationAdd,
			},
		},
	}
	for _, opt := range opts {
		opt(p)
	}

	stageLayouts := [2]map[int]wgpu.BindGroupLayoutDescriptor{}
	for _, stage := range []shader.StageKind{shader.StageVertex, shader.StageFragment} {
		source := prog.Source(stage)
		if got, want := reflectEntryPoint(source, stageFlags[stage]), prog.EntryPoint(stage); got != want {
			return nil, fmt.Errorf("pipeline %s: %s stage declares entry point %q, program reports %q", p.label, stage, got, want)
		}
		p.modules[stage] = wgpu.ShaderModuleDescriptor{
			Label:          fmt.Sprintf("%s %s", p.label, stage),
			WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: source},
		}
		stageLayouts[stage] = reflectBindGroupLayouts(source, stageFlags[stage])
	}

	merged := mergeBindGroupLayouts(stageLayouts[shader.StageVertex], stageLayouts[shader.StageFragment])
	if err := checkBindings(prog, merged); err != nil {
		return nil, fmt.Errorf("pipeline %s: %w", p.label, err)
	}
	maxGroup := -1
	for g := range merged {
		maxGroup = max(maxGroup, g)
	}
	p.bindGroups = make([]wgpu.BindGroupLayoutDescriptor, maxGroup+1)
	for g := range p.bindGroups {
		desc := merged[g]
		desc.Label = fmt.Sprintf("%s group %d", p.label, g)
		p.bindGroups[g] = desc
	}

	mesh := prog.MeshAttributes()
	if layout, ok := reflectVertexInput(prog.VertexSource()); ok {
		if len(layout.Attributes) != len(mesh) {
			return nil, fmt.Errorf("pipeline %s: vertex input declares %d attributes, program reads %d", p.label, len(layout.Attributes), len(mesh))
		}
		p.vertexBuffers = []wgpu.VertexBufferLayout{layout}
	} else if len(mesh) > 0 {
		return nil, fmt.Errorf("pipeline %s: program reads %d mesh attributes but the vertex stage has no input struct", p.label, len(mesh))
	}

	p.key = p.stateKey()
	common.Logger().Debug("built pipeline descriptors",
		"program", p.label,
		"key", p.key,
		"bind_groups", len(p.bindGroups),
		"vertex_buffers", len(p.vertexBuffers),
	)
	return p, nil
}

// checkBindings compares the reflected layouts with the bindings the program reports: every
// reported global, property, and sampler must appear with exactly the stages that read it, and
// nothing else may be declared.
func checkBindings(prog shader.Program, merged map[int]wgpu.BindGroupLayoutDescriptor) error {
	type slot struct{ group, binding int }
	expected := make(map[slot]wgpu.ShaderStage)

	globals := make(map[string]shader.GlobalBinding)
	for _, gb := range prog.GlobalBindings() {
		globals[gb.Name] = gb
	}
	for _, stage := range []shader.StageKind{shader.StageVertex, shader.StageFragment} {
		for _, name := range prog.StageGlobals(stage) {
			gb := globals[name]
			expected[slot{gb.Group, gb.Binding}] |= stageFlags[stage]
		}
		for _, name := range prog.StageProperties(stage) {
			pb, _ := prog.Property(name)
			expected[slot{pb.Group, pb.Binding}] |= stageFlags[stage]
			if pb.SamplerBinding >= 0 {
				expected[slot{pb.Group, pb.SamplerBinding}] |= stageFlags[stage]
			}
		}
	}

	found := 0
	for g, desc := range merged {
		for _, e := range desc.Entries {
			want, ok := expected[slot{g, int(e.Binding)}]
			if !ok {
				return fmt.Errorf("group %d binding %d is declared but not reported by the program", g, e.Binding)
			}
			if want != e.Visibility {
				return fmt.Errorf("group %d binding %d is visible to stages %d, program reports %d", g, e.Binding, e.Visibility, want)
			}
			found++
		}
	}
	if found != len(expected) {
		return fmt.Errorf("program reports %d bindings, generated text declares %d", len(expected), found)
	}
	return nil
}

// stateKey hashes the program key with every render state option.
func (p *pipeline) stateKey() string {
	sum := sha256.New()
	fmt.Fprintf(sum, "%s|%t|%t|%d|%g|%d|%t|%d|%d|%d|%d",
		p.program.Key(), p.depthTestEnabled, p.depthWriteEnabled, p.depthBias, p.depthBiasSlopeScale,
		p.depthFormat, p.blendEnabled, p.cullMode, p.topology, p.frontFace, p.writeMask)
	if p.blendEnabled && p.blendState != nil {
		fmt.Fprintf(sum, "|%v", *p.blendState)
	}
	return hex.EncodeToString(sum.Sum(nil))
}

func (p *pipeline) Key() string {
	return p.key
}

func (p *pipeline) Label() string {
	return p.label
}

func (p *pipeline) Program() shader.Program {
	return p.program
}

func (p *pipeline) ShaderModule(stage shader.StageKind) *wgpu.ShaderModuleDescriptor {
	if stage != shader.StageVertex && stage != shader.StageFragment {
		return nil
	}
	desc := p.modules[stage]
	desc.WGSLDescriptor = &wgpu.ShaderModuleWGSLDescriptor{Code: desc.WGSLDescriptor.Code}
	return &desc
}

func (p *pipeline) EntryPoint(stage shader.StageKind) string {
	return p.program.EntryPoint(stage)
}

func (p *pipeline) BindGroupLayouts() []wgpu.BindGroupLayoutDescriptor {
	out := make([]wgpu.BindGroupLayoutDescriptor, len(p.bindGroups))
	for i, desc := range p.bindGroups {
		desc.Entries = slices.Clone(desc.Entries)
		out[i] = desc
	}
	return out
}

func (p *pipeline) VertexBuffers() []wgpu.VertexBufferLayout {
	out := make([]wgpu.VertexBufferLayout, len(p.vertexBuffers))
	for i, layout := range p.vertexBuffers {
		layout.Attributes = slices.Clone(layout.Attributes)
		out[i] = layout
	}
	return out
}

func (p *pipeline) DepthTestEnabled() bool {
	return p.depthTestEnabled
}

func (p *pipeline) DepthWriteEnabled() bool {
	return p.depthWriteEnabled
}

func (p *pipeline) DepthBias() int32 {
	return p.depthBias
}

func (p *pipeline) DepthBiasSlopeScale() float32 {
	return p.depthBiasSlopeScale
}

func (p *pipeline) DepthFormat() wgpu.TextureFormat {
	return p.depthFormat
}

func (p *pipeline) BlendEnabled() bool {
	return p.blendEnabled
}

func (p *pipeline) CullMode() wgpu.CullMode {
	return p.cullMode
}

func (p *pipeline) Topology() wgpu.PrimitiveTopology {
	return p.topology
}

func (p *pipeline) FrontFace() wgpu.FrontFace {
	return p.frontFace
}

func (p *pipeline) WriteMask() wgpu.ColorWriteMask {
	return p.writeMask
}

func (p *pipeline) BlendState() *wgpu.BlendState {
	return p.blendState
}

func (p *pipeline) RenderPipelineDescriptor(layout *wgpu.PipelineLayout, vertex, fragment *wgpu.ShaderModule, target RenderTarget) *wgpu.RenderPipelineDescriptor {
	colorTarget := wgpu.ColorTargetState{
		Format:    target.Format,
		WriteMask: p.writeMask,
	}
	if p.blendEnabled {
		colorTarget.Blend = p.blendState
	}

	desc := &wgpu.RenderPipelineDescriptor{
		Label:  p.label + " Render Pipeline",
		Layout: layout,
		Vertex: wgpu.VertexState{
			Module:     vertex,
			EntryPoint: p.program.EntryPoint(shader.StageVertex),
			Buffers:    p.VertexBuffers(),
		},
		Fragment: &wgpu.FragmentState{
			Module:     fragment,
			EntryPoint: p.program.EntryPoint(shader.StageFragment),
			Targets:    []wgpu.ColorTargetState{colorTarget},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  p.topology,
			FrontFace: p.frontFace,
			CullMode:  p.cullMode,
		},
		Multisample: wgpu.MultisampleState{
			Count: max(target.SampleCount, 1),
			Mask:  0xFFFFFFFF,
		},
	}

	if p.depthFormat != wgpu.TextureFormatUndefined {
		depthCompare := wgpu.CompareFunctionLess
		if !p.depthTestEnabled {
			depthCompare = wgpu.CompareFunctionAlways
		}
		desc.DepthStencil = &wgpu.DepthStencilState{
			Format:              p.depthFormat,
			DepthWriteEnabled:   p.depthWriteEnabled,
			DepthCompare:        depthCompare,
			DepthBias:           p.depthBias,
			DepthBiasSlopeScale: p.depthBiasSlopeScale,
			StencilFront: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
			StencilBack: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
		}
	}
	return desc
}

func (p *pipeline) Create(device *wgpu.Device, target RenderTarget) error {
	vs, err := device.CreateShaderModule(p.ShaderModule(shader.StageVertex))
	if err != nil {
		return fmt.Errorf("failed to create vertex module for %s: %w", p.label, err)
	}
	fs, err := device.CreateShaderModule(p.ShaderModule(shader.StageFragment))
	if err != nil {
		return fmt.Errorf("failed to create fragment module for %s: %w", p.label, err)
	}

	bindGroupLayouts := make([]*wgpu.BindGroupLayout, len(p.bindGroups))
	for g, desc := range p.BindGroupLayouts() {
		layout, layoutErr := device.CreateBindGroupLayout(&desc)
		if layoutErr != nil {
			return fmt.Errorf("failed to create bind group layout for group %d: %w", g, layoutErr)
		}
		bindGroupLayouts[g] = layout
	}

	pipelineLayout, err := device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            p.label,
		BindGroupLayouts: bindGroupLayouts,
	})
	if err != nil {
		return fmt.Errorf("failed to create pipeline layout for %s: %w", p.label, err)
	}

	created, err := device.CreateRenderPipeline(p.RenderPipelineDescriptor(pipelineLayout, vs, fs, target))
	if err != nil {
		return fmt.Errorf("failed to create render pipeline for %s: %w", p.label, err)
	}
	p.renderPipeline = created
	return nil
}

func (p *pipeline) RenderPipeline() *wgpu.RenderPipeline {
	return p.renderPipeline
}
