package shader

import "testing"

func TestDefaultGlobals(t *testing.T) {
	table := DefaultGlobals()
	if table != DefaultGlobals() {
		t.Fatal("DefaultGlobals must return the shared table")
	}
	if table.Len() != 12 {
		t.Fatalf("expected 12 engine globals, got %d", table.Len())
	}
	for i, g := range table.All() {
		if g.Binding != i {
			t.Errorf("%s bound at %d, want %d", g.Name, g.Binding, i)
		}
	}

	g, ok := table.Lookup("global_ambient")
	if !ok || g.Type != TypeColor || g.Semantic != SemanticAmbient || g.Binding != 7 {
		t.Errorf("global_ambient = %+v", g)
	}
	if _, ok := table.Lookup("surface_color"); ok {
		t.Error("unexpected global surface_color")
	}

	all := table.All()
	all[0].Name = "mutated"
	if g, _ := table.Lookup("model_transform"); g.Name != "model_transform" {
		t.Error("All() exposed internal state")
	}
}

func TestNewGlobalTablePanics(t *testing.T) {
	tests := []struct {
		name    string
		globals []EngineGlobal
	}{
		{"empty name", []EngineGlobal{{Type: TypeF32}}},
		{"texture", []EngineGlobal{{Name: "t", Type: TypeTexture2d}}},
		{"invalid type", []EngineGlobal{{Name: "x"}}},
		{"duplicate", []EngineGlobal{{Name: "x", Type: TypeF32}, {Name: "x", Type: TypeVector2}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Error("expected a panic")
				}
			}()
			NewGlobalTable(tt.globals...)
		})
	}
}

func TestValueTypes(t *testing.T) {
	tests := []struct {
		name       string
		typ        ValueType
		wgsl       string
		components int
		size       uint64
		align      uint64
	}{
		{"f32", TypeF32, "f32", 1, 4, 4},
		{"Vector2", TypeVector2, "vec2<f32>", 2, 8, 8},
		{"Vector3", TypeVector3, "vec3<f32>", 3, 12, 16},
		{"Vector4", TypeVector4, "vec4<f32>", 4, 16, 16},
		{"Color", TypeColor, "vec4<f32>", 4, 16, 16},
		{"Texture2d", TypeTexture2d, "texture_2d<f32>", 0, 0, 0},
	}
	for _, tt := range tests {
		typ, ok := ParseValueType(tt.name)
		if !ok || typ != tt.typ {
			t.Errorf("ParseValueType(%q) = %v, %v", tt.name, typ, ok)
			continue
		}
		if typ.String() != tt.name || typ.WGSL() != tt.wgsl || typ.Components() != tt.components ||
			typ.Size() != tt.size || typ.Align() != tt.align {
			t.Errorf("%s info mismatch", tt.name)
		}
	}
	for _, name := range []string{"Matrix4", "vec3", "float", ""} {
		if _, ok := ParseValueType(name); ok {
			t.Errorf("ParseValueType(%q) accepted", name)
		}
	}
	if !TypeColor.Compatible(TypeVector4) || TypeVector3.Compatible(TypeVector4) || TypeInvalid.Compatible(TypeInvalid) {
		t.Error("unexpected compatibility")
	}
	if StageVertex.String() != "vert" || StageFragment.String() != "frag" {
		t.Error("unexpected stage names")
	}
}
