package shader

import (
	"strings"
	"testing"
)

const tintedSource = `property tint: Color = (1.0, 0.5, 0.25, 1.0);

program vert {
    out Vector2 @vertex.uv;
    @vertex.uv = @mesh.uv;
    @clip_position = model_view_projection * vec4<f32>(@mesh.position, 1.0);
}

program frag {
    @color = tint * vec4<f32>(@vertex.uv, 0.0, 1.0);
}
`

const tintedVertex = `// profile: wgsl

@group(0) @binding(5) var<uniform> model_view_projection: mat4x4<f32>;

struct OxyVertexInput {
    @location(0) position: vec3<f32>,
    @location(2) uv: vec2<f32>,
}

struct OxyVertexOutput {
    @builtin(position) clip_position: vec4<f32>,
    @location(0) uv: vec2<f32>,
}

@vertex
fn vs_main(oxy_in: OxyVertexInput) -> OxyVertexOutput {
    var oxy_out: OxyVertexOutput;
    oxy_out.uv = oxy_in.uv;
    oxy_out.clip_position = model_view_projection * vec4<f32>(oxy_in.position, 1.0);
    return oxy_out;
}
`

const tintedFragment = `// profile: wgsl

@group(1) @binding(0) var<uniform> tint: vec4<f32>;

struct OxyFragmentInput {
    @location(0) uv: vec2<f32>,
}

@fragment
fn fs_main(oxy_in: OxyFragmentInput) -> @location(0) vec4<f32> {
    var oxy_color: vec4<f32>;
    oxy_color = tint * vec4<f32>(oxy_in.uv, 0.0, 1.0);
    return oxy_color;
}
`

func TestGenerateExactText(t *testing.T) {
	prog := mustCompile(t, tintedSource)
	if got := prog.VertexSource(); got != tintedVertex {
		t.Errorf("vertex source mismatch\n--- got ---\n%s\n--- want ---\n%s", got, tintedVertex)
	}
	if got := prog.FragmentSource(); got != tintedFragment {
		t.Errorf("fragment source mismatch\n--- got ---\n%s\n--- want ---\n%s", got, tintedFragment)
	}
}

func TestGenerateKeepsCommentsAndLayout(t *testing.T) {
	src := `program vert {
    // position only
    @clip_position = vec4<f32>(@mesh.position, 1.0); /* @color stays a comment */
}
program frag {
    in Vector4 @vertex.unused_decl;
    @color = vec4<f32>(1.0);
}
`
	_, err := NewCompiler().Compile("c", src)
	if err == nil {
		t.Fatal("declaring an input the vertex program never writes must fail")
	}

	src = strings.Replace(src, "    in Vector4 @vertex.unused_decl;\n", "", 1)
	prog := mustCompile(t, src)
	vs := prog.VertexSource()
	if !strings.Contains(vs, "    // position only\n") {
		t.Errorf("line comment not preserved:\n%s", vs)
	}
	if !strings.Contains(vs, "/* @color stays a comment */") {
		t.Errorf("intrinsic inside a comment was rewritten:\n%s", vs)
	}
}

func TestGenerateDropsQualifierLines(t *testing.T) {
	src := `program vert {
    out Vector3 @vertex.n;
    out f32 @vertex.depth;
    @vertex.n = @mesh.normal;
    @vertex.depth = 0.5;
}
program frag {
    in Vector3 @vertex.n;
    in f32 @vertex.depth;
    @color = vec4<f32>(@vertex.n * @vertex.depth, 1.0);
}
`
	prog := mustCompile(t, src)
	wantVertexBody := "    var oxy_out: OxyVertexOutput;\n    oxy_out.n = oxy_in.normal;\n    oxy_out.depth = 0.5;\n    return oxy_out;\n"
	if !strings.Contains(prog.VertexSource(), wantVertexBody) {
		t.Errorf("vertex body not cleaned up:\n%s", prog.VertexSource())
	}
	wantFragmentBody := "    var oxy_color: vec4<f32>;\n    oxy_color = vec4<f32>(oxy_in.n * oxy_in.depth, 1.0);\n    return oxy_color;\n"
	if !strings.Contains(prog.FragmentSource(), wantFragmentBody) {
		t.Errorf("fragment body not cleaned up:\n%s", prog.FragmentSource())
	}
}

func TestGenerateFragCoordAndTextures(t *testing.T) {
	src := `property mask: Texture2d;
property strength: f32 = 0.5;
property albedo: Texture2d;

program vert {
    @clip_position = vec4<f32>(@mesh.position, 1.0);
}
program frag {
    let uv = @frag_coord.xy / 512.0;
    @color = textureSample(albedo, albedo_sampler, uv) * strength;
}
`
	prog := mustCompile(t, src)
	fs := prog.FragmentSource()
	for _, want := range []string{
		"@group(1) @binding(2) var<uniform> strength: f32;",
		"@group(1) @binding(3) var albedo: texture_2d<f32>;",
		"@group(1) @binding(4) var albedo_sampler: sampler;",
		"struct OxyFragmentInput {\n    @builtin(position) frag_coord: vec4<f32>,\n}",
		"let uv = oxy_in.frag_coord.xy / 512.0;",
	} {
		if !strings.Contains(fs, want) {
			t.Errorf("fragment source missing %q:\n%s", want, fs)
		}
	}
	if !strings.Contains(fs, "@group(1) @binding(0) var mask: texture_2d<f32>;") {
		t.Errorf("unreferenced texture should be declared by the fragment program:\n%s", fs)
	}
	if got := prog.StageProperties(StageFragment); len(got) != 3 || got[0] != "mask" || got[1] != "strength" || got[2] != "albedo" {
		t.Errorf("StageProperties(frag) = %v", got)
	}

	vs := prog.VertexSource()
	if !strings.Contains(vs, "fn vs_main(oxy_in: OxyVertexInput) -> OxyVertexOutput {") {
		t.Errorf("unexpected vertex entry:\n%s", vs)
	}
}

func TestGenerateNoMeshInput(t *testing.T) {
	src := "program vert { @clip_position = vec4<f32>(0.0, 0.0, 0.0, 1.0); }\nprogram frag { @color = vec4<f32>(1.0); }"
	vs := mustCompile(t, src).VertexSource()
	if strings.Contains(vs, "OxyVertexInput") {
		t.Errorf("vertex without mesh reads declared an input struct:\n%s", vs)
	}
	if !strings.Contains(vs, "fn vs_main() -> OxyVertexOutput {") {
		t.Errorf("unexpected vertex entry:\n%s", vs)
	}
}
