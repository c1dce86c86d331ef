package shader

import (
	"testing"
)

func TestProgramPropertyBindings(t *testing.T) {
	src := `property a: f32 = 2.0;
property diffuse: Texture2d;
property tint: Color = (1.0, 1.0, 1.0, 1.0);
program vert { @clip_position = vec4<f32>(@mesh.position, a); }
program frag { @color = tint; }
`
	prog := mustCompile(t, src)
	tests := []struct {
		name    string
		binding int
		sampler int
		samName string
	}{
		{"a", 0, -1, ""},
		{"diffuse", 1, 2, "diffuse_sampler"},
		{"tint", 3, -1, ""},
	}
	props := prog.Properties()
	if len(props) != len(tests) {
		t.Fatalf("expected %d properties, got %d", len(tests), len(props))
	}
	for i, tt := range tests {
		pb := props[i]
		if pb.Name != tt.name || pb.Group != 1 || pb.Binding != tt.binding || pb.SamplerBinding != tt.sampler {
			t.Errorf("property %d = %+v", i, pb)
		}
		if pb.SamplerName() != tt.samName {
			t.Errorf("%s sampler name = %q", pb.Name, pb.SamplerName())
		}
	}

	if got := prog.StageProperties(StageVertex); len(got) != 1 || got[0] != "a" {
		t.Errorf("StageProperties(vert) = %v", got)
	}
	if got := prog.StageProperties(StageFragment); len(got) != 2 || got[0] != "diffuse" || got[1] != "tint" {
		t.Errorf("StageProperties(frag) = %v", got)
	}
	if _, ok := prog.Property("missing"); ok {
		t.Error("unknown property found")
	}
	if prog.Source(StageKind(7)) != "" || prog.EntryPoint(StageKind(-1)) != "" || prog.StageGlobals(StageKind(2)) != nil {
		t.Error("invalid stages should yield zero values")
	}
}

func TestProgramAccessorsReturnCopies(t *testing.T) {
	prog := mustCompile(t, litSurface)

	props := prog.Properties()
	props[0].Name = "changed"
	if prog.Properties()[0].Name != "surface_diffuse" {
		t.Error("Properties() exposed internal state")
	}

	tinted := mustCompile(t, tintedSource)
	pb, ok := tinted.Property("tint")
	if !ok || len(pb.Default) != 4 {
		t.Fatalf("tint = %+v, %v", pb, ok)
	}
	pb.Default[0] = 42
	if again, _ := tinted.Property("tint"); again.Default[0] != 1 {
		t.Error("Property() default shares storage with the program")
	}

	globals := prog.RequiredGlobals()
	globals[0] = "changed"
	if prog.RequiredGlobals()[0] == "changed" {
		t.Error("RequiredGlobals() exposed internal state")
	}

	slots := prog.InterfaceSlots(StageVertex)
	slots[0].Name = "changed"
	if prog.InterfaceSlots(StageVertex)[0].Name == "changed" {
		t.Error("InterfaceSlots() exposed internal state")
	}
}

func TestProgramGlobals(t *testing.T) {
	prog := mustCompile(t, litSurface)

	want := []string{
		"normal_transform", "model_view_transform", "projection_transform",
		"global_ambient", "light_position", "light_strength", "light_color",
	}
	got := prog.RequiredGlobals()
	if len(got) != len(want) {
		t.Fatalf("RequiredGlobals() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("RequiredGlobals()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	for _, gb := range prog.GlobalBindings() {
		g, _ := DefaultGlobals().Lookup(gb.Name)
		if gb.Group != 0 || gb.Binding != g.Binding || gb.Type != g.Type || gb.Semantic != g.Semantic {
			t.Errorf("global binding %+v does not match table entry %+v", gb, g)
		}
	}

	vertGlobals := prog.StageGlobals(StageVertex)
	if len(vertGlobals) != 3 || vertGlobals[0] != "normal_transform" {
		t.Errorf("StageGlobals(vert) = %v", vertGlobals)
	}
	fragGlobals := prog.StageGlobals(StageFragment)
	if len(fragGlobals) != 4 || fragGlobals[0] != "global_ambient" {
		t.Errorf("StageGlobals(frag) = %v", fragGlobals)
	}
}

func TestProgramKey(t *testing.T) {
	a := mustCompile(t, tintedSource)
	if len(a.Key()) != 64 {
		t.Fatalf("key %q is not a hex SHA-256", a.Key())
	}

	renamed, err := NewCompiler().Compile("other.material", tintedSource)
	if err != nil {
		t.Fatal(err)
	}
	if renamed.Key() != a.Key() {
		t.Error("the program name must not affect the key")
	}
	if renamed.Name() != "other.material" {
		t.Errorf("Name() = %q", renamed.Name())
	}

	changed := mustCompile(t, tintedSource+"\n")
	if changed.Key() != a.Key() {
		t.Error("trailing whitespace outside program blocks changed the key")
	}

	different, err := NewCompiler(WithProfile("wgsl-webgl2")).Compile("x", tintedSource)
	if err != nil {
		t.Fatal(err)
	}
	if different.Key() == a.Key() {
		t.Error("different generated text must produce a different key")
	}
}

func TestProgramMeshAttributes(t *testing.T) {
	mesh := mustCompile(t, litSurface).MeshAttributes()
	if len(mesh) != 3 {
		t.Fatalf("expected 3 mesh attributes, got %v", mesh)
	}
	for i, name := range []string{"position", "normal", "uv"} {
		if mesh[i].Name != name || mesh[i].Location != i {
			t.Errorf("mesh[%d] = %+v", i, mesh[i])
		}
	}
}
