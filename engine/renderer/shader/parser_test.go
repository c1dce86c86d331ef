package shader

import (
	"errors"
	"strings"
	"testing"
)

func mustParse(t *testing.T, source string) *Document {
	t.Helper()
	doc, err := parseDocument("test.material", source)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	return doc
}

func TestParseProperties(t *testing.T) {
	src := `// header comment
property surface_color: Color = (1.0, 0.5, 0.25, 1.0);
property surface_specular: f32 = -0.5;
/* block
   comment */
property offset: Vector3;
property surface_diffuse: Texture2d;

program frag { @color = surface_color; }
program vert { }
`
	doc := mustParse(t, src)
	if len(doc.Properties) != 4 {
		t.Fatalf("expected 4 properties, got %d", len(doc.Properties))
	}

	tests := []struct {
		name    string
		typ     ValueType
		def     []float32
		line    int
		column  int
		typeCol int
	}{
		{"surface_color", TypeColor, []float32{1, 0.5, 0.25, 1}, 2, 10, 25},
		{"surface_specular", TypeF32, []float32{-0.5}, 3, 10, 28},
		{"offset", TypeVector3, nil, 6, 10, 18},
		{"surface_diffuse", TypeTexture2d, nil, 7, 10, 27},
	}
	for i, tt := range tests {
		p := doc.Properties[i]
		if p.Name != tt.name || p.Type != tt.typ {
			t.Errorf("property %d = %s: %s, want %s: %s", i, p.Name, p.Type, tt.name, tt.typ)
		}
		if p.Location.Line != tt.line || p.Location.Column != tt.column {
			t.Errorf("%s location = %s, want %d:%d", p.Name, p.Location, tt.line, tt.column)
		}
		if p.TypeLocation.Column != tt.typeCol {
			t.Errorf("%s type column = %d, want %d", p.Name, p.TypeLocation.Column, tt.typeCol)
		}
		switch {
		case tt.def == nil && p.Default != nil:
			t.Errorf("%s has unexpected default %v", p.Name, p.Default.Values)
		case tt.def != nil && (p.Default == nil || len(p.Default.Values) != len(tt.def)):
			t.Errorf("%s default = %v, want %v", p.Name, p.Default, tt.def)
		case tt.def != nil:
			for j, v := range tt.def {
				if p.Default.Values[j] != v {
					t.Errorf("%s default[%d] = %v, want %v", p.Name, j, p.Default.Values[j], v)
				}
			}
		}
	}
}

func TestParseStagesInEitherOrder(t *testing.T) {
	doc := mustParse(t, "program frag { @color = vec4<f32>(1.0); }\nprogram vert { @clip_position = vec4<f32>(1.0); }")
	if doc.Vertex == nil || doc.Fragment == nil {
		t.Fatal("both stages expected")
	}
	if doc.Vertex.Kind != StageVertex || doc.Fragment.Kind != StageFragment {
		t.Errorf("stage kinds swapped")
	}
	if doc.Fragment.Location.Line != 1 || doc.Vertex.Location.Line != 2 {
		t.Errorf("stage locations: frag %s, vert %s", doc.Fragment.Location, doc.Vertex.Location)
	}
}

func TestParseBodyVerbatim(t *testing.T) {
	body := `
    let a = vec3<f32>(1.0, 2.0, 3.0);
    if (a.x >= 1.0) {
        // nested { braces } inside a comment
        @vertex.v = a * light_strength;
    }
    @clip_position = vec4<f32>(a, 1.0);
`
	doc := mustParse(t, "program vert {"+body+"}\nprogram frag { @color = vec4<f32>(1.0); }")
	if doc.Vertex.BodyText != body {
		t.Errorf("body text not verbatim:\n%q\nwant\n%q", doc.Vertex.BodyText, body)
	}

	refs := doc.Vertex.Intrinsics
	if len(refs) != 2 {
		t.Fatalf("expected 2 intrinsics, got %d", len(refs))
	}
	if refs[0].Namespace != "vertex" || refs[0].Field != "v" || refs[0].Text() != "@vertex.v" {
		t.Errorf("first intrinsic = %+v", refs[0])
	}
	if refs[0].Location.Line != 5 || refs[0].Location.Column != 9 {
		t.Errorf("first intrinsic at %s, want 5:9", refs[0].Location)
	}
	if refs[1].Namespace != "" || refs[1].Field != "clip_position" {
		t.Errorf("second intrinsic = %+v", refs[1])
	}
}

func TestParseQualifiers(t *testing.T) {
	src := `program vert {
    out Vector2 @vertex.uv;
    out Color @vertex.tint = global_ambient;
    let out_value = 1.0;
}
program frag {
    in Vector2 @vertex.uv;
    @color = vec4<f32>(1.0);
}
`
	doc := mustParse(t, src)
	vq := doc.Vertex.Qualifiers
	if len(vq) != 2 {
		t.Fatalf("expected 2 vertex qualifiers, got %d", len(vq))
	}
	if vq[0].Field != "uv" || vq[0].Type != TypeVector2 || !vq[0].DeclarationOnly || vq[0].Direction != QualifierOut {
		t.Errorf("first qualifier = %+v", vq[0])
	}
	if vq[1].Field != "tint" || vq[1].Type != TypeColor || vq[1].DeclarationOnly {
		t.Errorf("second qualifier = %+v", vq[1])
	}
	fq := doc.Fragment.Qualifiers
	if len(fq) != 1 || fq[0].Direction != QualifierIn || fq[0].Field != "uv" {
		t.Errorf("fragment qualifiers = %+v", fq)
	}
}

func TestParseErrors(t *testing.T) {
	const stages = "\nprogram vert { }\nprogram frag { @color = vec4<f32>(1.0); }"
	tests := []struct {
		name   string
		source string
		want   error
		msg    string
		line   int
		column int
	}{
		{"unknown type", "property p: Float;" + stages, ErrSyntax, `unknown property type "Float"`, 1, 13},
		{"engine-only type", "property p: Matrix4;" + stages, ErrSyntax, "Matrix4", 1, 13},
		{"missing colon", "property p f32;" + stages, ErrSyntax, "expected ':'", 1, 12},
		{"missing semicolon", "property p: f32" + stages, ErrSyntax, "expected ';'", 2, 1},
		{"default arity", "property p: Vector3 = (1.0, 2.0);" + stages, ErrSyntax, "needs 3 components, found 2", 1, 23},
		{"texture default", "property p: Texture2d = 1.0;" + stages, ErrSyntax, "cannot have a default", 1, 25},
		{"bad tuple", "property p: Vector2 = (1.0 2.0);" + stages, ErrSyntax, "expected ',' or ')'", 1, 28},
		{"unknown stage", "program geom { }" + stages, ErrSyntax, `unknown program stage "geom"`, 1, 9},
		{"unclosed block", "program vert { let a = 1.0;\nprogram frag { @color = vec4<f32>(1.0); }", ErrSyntax, "unclosed program vert block", 1, 14},
		{"stray close brace", "}" + stages, ErrSyntax, "}", 1, 1},
		{"unknown top level", "uniform x: f32;" + stages, ErrSyntax, "expected `property` or `program`", 1, 1},
		{"lone at", "program vert { let a = @ 1.0; }\nprogram frag { @color = vec4<f32>(1.0); }", ErrSyntax, "after '@'", 1, 24},
		{"unknown qualifier type", "program vert { out Vec2 @vertex.uv; }\nprogram frag { @color = vec4<f32>(1.0); }", ErrSyntax, `unknown interface type "Vec2"`, 1, 20},
		{"texture qualifier", "program vert { out Texture2d @vertex.t; }\nprogram frag { @color = vec4<f32>(1.0); }", ErrSyntax, "cannot cross", 1, 20},
		{"out in fragment", "program vert { }\nprogram frag { out f32 @vertex.x; @color = vec4<f32>(1.0); }", ErrSyntax, "only valid in the vertex program", 2, 16},
		{"in in vertex", "program vert { in f32 @vertex.x; }\nprogram frag { @color = vec4<f32>(1.0); }", ErrSyntax, "only valid in the fragment program", 1, 16},
		{"assigned input", "program vert { }\nprogram frag { in f32 @vertex.x = 1.0; @color = vec4<f32>(1.0); }", ErrSyntax, "cannot be assigned", 2, 33},
		{"qualifier on sink", "program vert { out Color @color; }\nprogram frag { @color = vec4<f32>(1.0); }", ErrSyntax, "must qualify a @vertex field", 1, 26},
		{"missing stage", "property p: f32;", ErrMissingStage, "program vert", 1, 17},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseDocument("test.material", tt.source)
			if err == nil {
				t.Fatal("expected an error")
			}
			if !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
			if !strings.Contains(err.Error(), tt.msg) {
				t.Errorf("error %q does not contain %q", err.Error(), tt.msg)
			}
			var cerr *CompileError
			if errors.As(err, &cerr) && (cerr.Location.Line != tt.line || cerr.Location.Column != tt.column) {
				t.Errorf("location = %s, want %d:%d", cerr.Location, tt.line, tt.column)
			}
		})
	}
}

func TestParseDuplicateStageLocations(t *testing.T) {
	src := "program vert { }\nprogram frag { @color = vec4<f32>(1.0); }\nprogram vert { }\n"
	_, err := parseDocument("dup.material", src)
	var cerr *CompileError
	if !errors.As(err, &cerr) || cerr.Kind != KindMissingStage {
		t.Fatalf("expected a missing stage error, got %v", err)
	}
	if cerr.Location.Line != 3 {
		t.Errorf("duplicate reported at %s, want line 3", cerr.Location)
	}
	if cerr.ConflictLocation == nil || cerr.ConflictLocation.Line != 1 {
		t.Errorf("conflict location = %v, want line 1", cerr.ConflictLocation)
	}
	if cerr.Location.File != "dup.material" {
		t.Errorf("file = %q", cerr.Location.File)
	}
}
