package pipeline

import (
	"strings"
	"testing"

	"github.com/Carmen-Shannon/oxy-matc/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-matc/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

const shadedSource = `property surface_diffuse: Texture2d;
property tint: Color = (1.0, 1.0, 1.0, 1.0);

program vert {
    @vertex.uv = @mesh.uv;
    @vertex.shade = tint;
    @clip_position = model_view_projection * vec4<f32>(@mesh.position, 1.0);
}

program frag {
    let base = textureSample(surface_diffuse, surface_diffuse_sampler, @vertex.uv);
    @color = base * @vertex.shade * tint * light_strength;
}
`

func compile(t *testing.T, source string) shader.Program {
	t.Helper()
	prog, err := shader.NewCompiler().Compile("shaded.material", source)
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	return prog
}

func TestNewPipelineBindGroupLayouts(t *testing.T) {
	p, err := NewPipeline(compile(t, shadedSource))
	if err != nil {
		t.Fatal(err)
	}

	groups := p.BindGroupLayouts()
	if len(groups) != 2 {
		t.Fatalf("expected 2 bind groups, got %d", len(groups))
	}
	if groups[0].Label != "shaded.material group 0" {
		t.Errorf("group 0 label = %q", groups[0].Label)
	}

	globals := groups[0].Entries
	if len(globals) != 2 {
		t.Fatalf("expected 2 global entries, got %+v", globals)
	}
	if globals[0].Binding != 5 || globals[0].Visibility != wgpu.ShaderStageVertex ||
		globals[0].Buffer.Type != wgpu.BufferBindingTypeUniform || globals[0].Buffer.MinBindingSize != 64 {
		t.Errorf("model_view_projection entry = %+v", globals[0])
	}
	if globals[1].Binding != 9 || globals[1].Visibility != wgpu.ShaderStageFragment || globals[1].Buffer.MinBindingSize != 4 {
		t.Errorf("light_strength entry = %+v", globals[1])
	}

	props := groups[1].Entries
	if len(props) != 3 {
		t.Fatalf("expected 3 property entries, got %+v", props)
	}
	tests := []struct {
		binding    uint32
		visibility wgpu.ShaderStage
	}{
		{0, wgpu.ShaderStageFragment},
		{1, wgpu.ShaderStageFragment},
		{2, wgpu.ShaderStageVertex | wgpu.ShaderStageFragment},
	}
	for i, tt := range tests {
		if props[i].Binding != tt.binding || props[i].Visibility != tt.visibility {
			t.Errorf("property entry %d = binding %d visibility %d, want %d %d",
				i, props[i].Binding, props[i].Visibility, tt.binding, tt.visibility)
		}
	}
	if props[0].Texture.ViewDimension != wgpu.TextureViewDimension2D || props[0].Texture.SampleType != wgpu.TextureSampleTypeFloat {
		t.Errorf("texture entry = %+v", props[0].Texture)
	}
	if props[1].Sampler.Type != wgpu.SamplerBindingTypeFiltering {
		t.Errorf("sampler entry = %+v", props[1].Sampler)
	}
	if props[2].Buffer.MinBindingSize != 16 {
		t.Errorf("tint min binding size = %d", props[2].Buffer.MinBindingSize)
	}

	groups[1].Entries[0].Binding = 99
	if p.BindGroupLayouts()[1].Entries[0].Binding != 0 {
		t.Error("BindGroupLayouts exposed internal state")
	}
}

func TestNewPipelineVertexBuffers(t *testing.T) {
	p, err := NewPipeline(compile(t, shadedSource))
	if err != nil {
		t.Fatal(err)
	}
	buffers := p.VertexBuffers()
	if len(buffers) != 1 {
		t.Fatalf("expected one vertex buffer, got %d", len(buffers))
	}
	layout := buffers[0]
	if layout.ArrayStride != 20 || layout.StepMode != wgpu.VertexStepModeVertex {
		t.Errorf("layout = stride %d step %d", layout.ArrayStride, layout.StepMode)
	}
	want := []wgpu.VertexAttribute{
		{Format: wgpu.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
		{Format: wgpu.VertexFormatFloat32x2, Offset: 12, ShaderLocation: 2},
	}
	if len(layout.Attributes) != len(want) {
		t.Fatalf("attributes = %+v", layout.Attributes)
	}
	for i := range want {
		if layout.Attributes[i] != want[i] {
			t.Errorf("attribute %d = %+v, want %+v", i, layout.Attributes[i], want[i])
		}
	}

	flat, err := NewPipeline(compile(t, "program vert { @clip_position = vec4<f32>(0.0, 0.0, 0.0, 1.0); }\nprogram frag { @color = vec4<f32>(1.0); }"))
	if err != nil {
		t.Fatal(err)
	}
	if len(flat.VertexBuffers()) != 0 || len(flat.BindGroupLayouts()) != 0 {
		t.Errorf("a program without inputs or uniforms produced buffers %v groups %v", flat.VertexBuffers(), flat.BindGroupLayouts())
	}
}

func TestNewPipelineShaderModules(t *testing.T) {
	prog := compile(t, shadedSource)
	p, err := NewPipeline(prog, WithLabel("shaded"))
	if err != nil {
		t.Fatal(err)
	}
	vs := p.ShaderModule(shader.StageVertex)
	if vs.Label != "shaded vert" || vs.WGSLDescriptor == nil || vs.WGSLDescriptor.Code != prog.VertexSource() {
		t.Errorf("vertex module = %+v", vs)
	}
	fs := p.ShaderModule(shader.StageFragment)
	if fs.Label != "shaded frag" || fs.WGSLDescriptor.Code != prog.FragmentSource() {
		t.Errorf("fragment module label = %q", fs.Label)
	}
	if p.ShaderModule(shader.StageKind(5)) != nil {
		t.Error("unknown stage returned a module")
	}
	if p.EntryPoint(shader.StageVertex) != "vs_main" || p.EntryPoint(shader.StageFragment) != "fs_main" {
		t.Error("unexpected entry points")
	}
	if p.Program() != prog || p.Label() != "shaded" {
		t.Error("pipeline lost its program or label")
	}
}

func TestRenderPipelineDescriptor(t *testing.T) {
	prog := compile(t, shadedSource)
	p, err := NewPipeline(prog)
	if err != nil {
		t.Fatal(err)
	}
	target := RenderTarget{Format: wgpu.TextureFormatBGRA8Unorm}
	desc := p.RenderPipelineDescriptor(nil, nil, nil, target)

	if desc.Vertex.EntryPoint != "vs_main" || desc.Fragment.EntryPoint != "fs_main" {
		t.Errorf("entry points = %q, %q", desc.Vertex.EntryPoint, desc.Fragment.EntryPoint)
	}
	if len(desc.Vertex.Buffers) != 1 {
		t.Errorf("vertex buffers = %d", len(desc.Vertex.Buffers))
	}
	if len(desc.Fragment.Targets) != 1 || desc.Fragment.Targets[0].Format != wgpu.TextureFormatBGRA8Unorm ||
		desc.Fragment.Targets[0].Blend != nil {
		t.Errorf("color target = %+v", desc.Fragment.Targets)
	}
	if desc.Multisample.Count != 1 {
		t.Errorf("sample count = %d", desc.Multisample.Count)
	}
	if desc.DepthStencil == nil || desc.DepthStencil.DepthCompare != wgpu.CompareFunctionLess ||
		desc.DepthStencil.Format != wgpu.TextureFormatDepth24Plus {
		t.Errorf("depth stencil = %+v", desc.DepthStencil)
	}

	blended, err := NewPipeline(prog,
		WithBlendEnabled(true),
		WithDepthTestEnabled(false),
		WithCullMode(wgpu.CullModeBack),
	)
	if err != nil {
		t.Fatal(err)
	}
	desc = blended.RenderPipelineDescriptor(nil, nil, nil, RenderTarget{Format: wgpu.TextureFormatBGRA8Unorm, SampleCount: 4})
	if desc.Fragment.Targets[0].Blend != blended.BlendState() {
		t.Error("blend state not attached")
	}
	if desc.DepthStencil.DepthCompare != wgpu.CompareFunctionAlways {
		t.Errorf("depth compare = %v", desc.DepthStencil.DepthCompare)
	}
	if desc.Primitive.CullMode != wgpu.CullModeBack || desc.Multisample.Count != 4 {
		t.Errorf("primitive = %+v, multisample = %+v", desc.Primitive, desc.Multisample)
	}

	noDepth, err := NewPipeline(prog, WithDepthFormat(wgpu.TextureFormatUndefined))
	if err != nil {
		t.Fatal(err)
	}
	if noDepth.RenderPipelineDescriptor(nil, nil, nil, target).DepthStencil != nil {
		t.Error("undefined depth format should drop the depth attachment")
	}
}

func TestPipelineKey(t *testing.T) {
	prog := compile(t, shadedSource)
	a, _ := NewPipeline(prog)
	b, _ := NewPipeline(prog, WithLabel("renamed"))
	c, _ := NewPipeline(prog, WithCullMode(wgpu.CullModeFront))
	if a.Key() != b.Key() {
		t.Error("the label must not change the key")
	}
	if a.Key() == c.Key() {
		t.Error("render state must change the key")
	}
	if a.RenderPipeline() != nil {
		t.Error("render pipeline exists before Create")
	}
}

// hiddenGlobals reports no engine globals for either stage.
type hiddenGlobals struct {
	shader.Program
}

func (hiddenGlobals) StageGlobals(shader.StageKind) []string {
	return nil
}

// renamedEntry reports a vertex entry point the generated text does not declare.
type renamedEntry struct {
	shader.Program
}

func (renamedEntry) EntryPoint(stage shader.StageKind) string {
	if stage == shader.StageVertex {
		return "main"
	}
	return "fs_main"
}

func TestNewPipelineDetectsMismatches(t *testing.T) {
	prog := compile(t, shadedSource)

	_, err := NewPipeline(hiddenGlobals{prog})
	if err == nil || !strings.Contains(err.Error(), "not reported by the program") {
		t.Errorf("hidden globals: got %v", err)
	}

	_, err = NewPipeline(renamedEntry{prog})
	if err == nil || !strings.Contains(err.Error(), `entry point "vs_main"`) {
		t.Errorf("renamed entry: got %v", err)
	}
}

func TestPipelineLayoutMatchesMaterialEntries(t *testing.T) {
	src := `property tint: Color = (1.0, 1.0, 1.0, 1.0);
property unused: f32 = 2.0;
property spare: Texture2d;

program vert {
    @clip_position = vec4<f32>(@mesh.position, 1.0);
}

program frag {
    @color = tint;
}
`
	prog := compile(t, src)
	p, err := NewPipeline(prog)
	if err != nil {
		t.Fatal(err)
	}
	groups := p.BindGroupLayouts()
	if len(groups) != 2 {
		t.Fatalf("expected 2 bind groups, got %d", len(groups))
	}
	layout := make(map[uint32]wgpu.ShaderStage)
	for _, e := range groups[1].Entries {
		layout[e.Binding] = e.Visibility
	}
	if len(layout) != 4 {
		t.Fatalf("property group declares bindings %v, want 0 through 3", layout)
	}

	m := material.NewMaterial(prog)
	if err := m.SetTexture("spare", material.Texture{View: &wgpu.TextureView{}, Sampler: &wgpu.Sampler{}}); err != nil {
		t.Fatal(err)
	}
	entries, err := m.BindGroupEntries(map[int]*wgpu.Buffer{0: {}, 1: {}})
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != len(layout) {
		t.Fatalf("material supplies %d entries, layout declares %d", len(entries), len(layout))
	}
	for _, e := range entries {
		vis, ok := layout[e.Binding]
		if !ok {
			t.Errorf("material binding %d is missing from the layout", e.Binding)
			continue
		}
		if vis != wgpu.ShaderStageFragment {
			t.Errorf("binding %d visible to %d, want the fragment stage", e.Binding, vis)
		}
	}
	if !strings.Contains(prog.FragmentSource(), "var<uniform> unused: f32;") {
		t.Errorf("unreferenced scalar property not declared:\n%s", prog.FragmentSource())
	}
}
