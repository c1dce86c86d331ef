package material

import (
	"errors"

	"github.com/Carmen-Shannon/oxy-matc/common"
	"github.com/Carmen-Shannon/oxy-matc/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

var (
	// ErrUnknownProperty is returned when a material is asked about a property its program does not declare.
	ErrUnknownProperty = errors.New("unknown property")

	// ErrPropertyType is returned when a value does not match the declared type of a property or global.
	ErrPropertyType = errors.New("property type mismatch")

	// ErrUnknownGlobal is returned when a value is set for a name missing from the engine-global table.
	ErrUnknownGlobal = errors.New("unknown engine global")

	// ErrMissingGlobal is returned when a program reads an engine global that has no value for the frame.
	ErrMissingGlobal = errors.New("missing engine global value")
)

// BufferWrite describes one uniform upload: the bytes of a single property or engine global,
// laid out for the WGSL uniform address space, and the binding that receives them.
type BufferWrite struct {
	Name    string
	Group   int
	Binding int
	Data    []byte
}

// Texture is the GPU-side value of a Texture2d property: a view and the sampler bound next to it.
type Texture struct {
	View    *wgpu.TextureView
	Sampler *wgpu.Sampler
}

// TextureBinding pairs a Texture2d property with its texture and sampler bindings. Bound is
// false while the material has no texture set for the property.
type TextureBinding struct {
	Name           string
	Group          int
	Binding        int
	SamplerBinding int
	Texture        Texture
	Bound          bool
}

// marshalValue packs float components into the uniform footprint of a type, padding the tail
// with zeros (a vec3 occupies 16 bytes, a mat4x4 64).
//
// Parameters:
//   - t: the value type of the uniform
//   - values: the components in declaration order
//
// Returns:
//   - []byte: the buffer ready for GPU upload
func marshalValue(t shader.ValueType, values []float32) []byte {
	return common.PackFloat32s(values, int(common.RoundUpAlign(t.Align(), t.Size())))
}

// shapeMatches reports whether count components can be stored in a value of type t.
func shapeMatches(t shader.ValueType, count int) bool {
	return !t.IsTexture() && t.Components() == count
}
