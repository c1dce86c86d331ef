package shader

// ValueType identifies the portable type of a property, engine global, or interface value.
// The declarable set is closed: f32, Vector2, Vector3, Vector4, Color, and Texture2d.
// Matrix4 exists only for engine globals.
type ValueType int

const (
	// TypeInvalid is the zero value and never describes a resolved symbol.
	TypeInvalid ValueType = iota

	// TypeF32 is a single 32-bit float.
	TypeF32

	// TypeVector2 is a two-component float vector.
	TypeVector2

	// TypeVector3 is a three-component float vector.
	TypeVector3

	// TypeVector4 is a four-component float vector.
	TypeVector4

	// TypeColor is an RGBA color, laid out exactly like TypeVector4.
	TypeColor

	// TypeTexture2d is a sampled 2D texture handle. WGSL output pairs it with a companion sampler.
	TypeTexture2d

	// TypeMatrix4 is a 4x4 float matrix. Only engine globals use it.
	TypeMatrix4
)

// valueTypeInfo holds the spellings and WGSL layout data of a ValueType.
type valueTypeInfo struct {
	name       string
	wgsl       string
	components int
	size       uint64
	align      uint64
	declarable bool
}

// valueTypeTable is indexed by ValueType. Sizes and alignments follow the WGSL
// uniform address space rules for each type.
var valueTypeTable = [...]valueTypeInfo{
	TypeInvalid:   {name: "<invalid>"},
	TypeF32:       {name: "f32", wgsl: "f32", components: 1, size: 4, align: 4, declarable: true},
	TypeVector2:   {name: "Vector2", wgsl: "vec2<f32>", components: 2, size: 8, align: 8, declarable: true},
	TypeVector3:   {name: "Vector3", wgsl: "vec3<f32>", components: 3, size: 12, align: 16, declarable: true},
	TypeVector4:   {name: "Vector4", wgsl: "vec4<f32>", components: 4, size: 16, align: 16, declarable: true},
	TypeColor:     {name: "Color", wgsl: "vec4<f32>", components: 4, size: 16, align: 16, declarable: true},
	TypeTexture2d: {name: "Texture2d", wgsl: "texture_2d<f32>", declarable: true},
	TypeMatrix4:   {name: "Matrix4", wgsl: "mat4x4<f32>", components: 16, size: 64, align: 16},
}

// ParseValueType maps a type name from a shader definition to its ValueType.
// Only declarable types are accepted; Matrix4 and unknown names return false.
//
// Parameters:
//   - name: the type name as written in a property declaration or qualifier
//
// Returns:
//   - ValueType: the matching type, or TypeInvalid
//   - bool: true if name is a declarable type
func ParseValueType(name string) (ValueType, bool) {
	for t, info := range valueTypeTable {
		if info.declarable && info.name == name {
			return ValueType(t), true
		}
	}
	return TypeInvalid, false
}

func (t ValueType) info() valueTypeInfo {
	if t < 0 || int(t) >= len(valueTypeTable) {
		return valueTypeTable[TypeInvalid]
	}
	return valueTypeTable[t]
}

// String returns the portable spelling used in shader definitions.
func (t ValueType) String() string {
	return t.info().name
}

// WGSL returns the WGSL spelling of the type.
func (t ValueType) WGSL() string {
	return t.info().wgsl
}

// Components returns the number of float components, or 0 for textures.
func (t ValueType) Components() int {
	return t.info().components
}

// Size returns the WGSL byte size of the type in a uniform buffer, or 0 for textures.
func (t ValueType) Size() uint64 {
	return t.info().size
}

// Align returns the WGSL byte alignment of the type in a uniform buffer, or 0 for textures.
func (t ValueType) Align() uint64 {
	return t.info().align
}

// IsTexture reports whether the type is a texture handle.
func (t ValueType) IsTexture() bool {
	return t == TypeTexture2d
}

// Compatible reports whether two types share a generated representation. Color and
// Vector4 are compatible with each other; every other type only with itself.
//
// Parameters:
//   - other: the type to compare against
//
// Returns:
//   - bool: true if values of both types can cross the same interface slot
func (t ValueType) Compatible(other ValueType) bool {
	if t == TypeInvalid || other == TypeInvalid {
		return false
	}
	return t.WGSL() == other.WGSL()
}

// StageKind identifies one of the two program stages of a shader definition.
type StageKind int

const (
	// StageVertex is the per-vertex transform stage, written as `program vert`.
	StageVertex StageKind = iota

	// StageFragment is the per-pixel shading stage, written as `program frag`.
	StageFragment
)

// String returns the stage keyword used in shader definitions.
func (s StageKind) String() string {
	switch s {
	case StageVertex:
		return "vert"
	case StageFragment:
		return "frag"
	default:
		return "unknown"
	}
}
