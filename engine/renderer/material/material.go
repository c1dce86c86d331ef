package material

import (
	"fmt"
	"slices"

	"github.com/Carmen-Shannon/oxy-matc/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
)

// material is the implementation of the Material interface.
type material struct {
	name        string
	program     shader.Program
	properties  []shader.PropertyBinding
	index       map[string]int
	values      map[string][]float32
	textures    map[string]Texture
	pipelineKey string
}

// Material is one instance of a compiled program: explicit values for its declared
// properties on top of the defaults written in the definition. Many materials can share a
// program, e.g. a red and a blue surface built from one shader.
//
// A Material is not safe for concurrent mutation; the program it wraps is.
type Material interface {
	// Name retrieves the material identifier.
	//
	// Returns:
	//   - string: the name of the material
	Name() string

	// Program retrieves the compiled program the material instantiates.
	//
	// Returns:
	//   - shader.Program: the program
	Program() shader.Program

	// PipelineKey retrieves the key of the render pipeline this material draws with.
	//
	// Returns:
	//   - string: the pipeline key, empty until set
	PipelineKey() string

	// SetPipelineKey associates the material with a render pipeline.
	//
	// Parameters:
	//   - key: the pipeline key
	SetPipelineKey(key string)

	// SetF32 sets the value of an f32 property.
	//
	// Parameters:
	//   - name: the property name
	//   - value: the new value
	//
	// Returns:
	//   - error: ErrUnknownProperty or ErrPropertyType when the property cannot hold the value
	SetF32(name string, value float32) error

	// SetVector2 sets the value of a Vector2 property.
	//
	// Parameters:
	//   - name: the property name
	//   - value: the new value
	//
	// Returns:
	//   - error: ErrUnknownProperty or ErrPropertyType when the property cannot hold the value
	SetVector2(name string, value mgl32.Vec2) error

	// SetVector3 sets the value of a Vector3 property.
	//
	// Parameters:
	//   - name: the property name
	//   - value: the new value
	//
	// Returns:
	//   - error: ErrUnknownProperty or ErrPropertyType when the property cannot hold the value
	SetVector3(name string, value mgl32.Vec3) error

	// SetVector4 sets the value of a Vector4 or Color property.
	//
	// Parameters:
	//   - name: the property name
	//   - value: the new value
	//
	// Returns:
	//   - error: ErrUnknownProperty or ErrPropertyType when the property cannot hold the value
	SetVector4(name string, value mgl32.Vec4) error

	// SetColor sets the value of a Color or Vector4 property from RGBA components.
	//
	// Parameters:
	//   - name: the property name
	//   - rgba: the color
	//
	// Returns:
	//   - error: ErrUnknownProperty or ErrPropertyType when the property cannot hold the value
	SetColor(name string, rgba mgl32.Vec4) error

	// SetTexture binds a texture and its sampler to a Texture2d property.
	//
	// Parameters:
	//   - name: the property name
	//   - texture: the texture view and sampler
	//
	// Returns:
	//   - error: ErrUnknownProperty or ErrPropertyType when the property is not a Texture2d
	SetTexture(name string, texture Texture) error

	// F32 returns the effective value of an f32 property: the explicit value, else the
	// declared default, else zero.
	//
	// Parameters:
	//   - name: the property name
	//
	// Returns:
	//   - float32: the effective value
	//   - bool: false if the property is not a declared f32
	F32(name string) (float32, bool)

	// Vector2 returns the effective value of a Vector2 property.
	//
	// Parameters:
	//   - name: the property name
	//
	// Returns:
	//   - mgl32.Vec2: the effective value
	//   - bool: false if the property is not a declared Vector2
	Vector2(name string) (mgl32.Vec2, bool)

	// Vector3 returns the effective value of a Vector3 property.
	//
	// Parameters:
	//   - name: the property name
	//
	// Returns:
	//   - mgl32.Vec3: the effective value
	//   - bool: false if the property is not a declared Vector3
	Vector3(name string) (mgl32.Vec3, bool)

	// Vector4 returns the effective value of a Vector4 or Color property.
	//
	// Parameters:
	//   - name: the property name
	//
	// Returns:
	//   - mgl32.Vec4: the effective value
	//   - bool: false if the property is not a declared Vector4 or Color
	Vector4(name string) (mgl32.Vec4, bool)

	// Texture returns the texture bound to a Texture2d property.
	//
	// Parameters:
	//   - name: the property name
	//
	// Returns:
	//   - Texture: the bound texture
	//   - bool: false if the property is not a Texture2d or nothing is bound
	Texture(name string) (Texture, bool)

	// IsSet reports whether a property holds an explicit value rather than its default.
	//
	// Parameters:
	//   - name: the property name
	//
	// Returns:
	//   - bool: true if an explicit value or texture is set
	IsSet(name string) bool

	// ClearProperty removes the explicit value of a property so it falls back to its default.
	//
	// Parameters:
	//   - name: the property name
	//
	// Returns:
	//   - error: ErrUnknownProperty when the program declares no such property
	ClearProperty(name string) error

	// UniformWrites returns one write per non-texture property in declaration order, carrying
	// the effective value padded to its WGSL uniform size.
	//
	// Returns:
	//   - []BufferWrite: the uploads for the property group
	UniformWrites() []BufferWrite

	// TextureBindings returns one entry per Texture2d property in declaration order.
	//
	// Returns:
	//   - []TextureBinding: the texture and sampler binding pairs
	TextureBindings() []TextureBinding

	// BindGroupEntries builds the entries of the property bind group.
	//
	// Parameters:
	//   - buffers: the uniform buffer of each non-texture property, keyed by binding
	//
	// Returns:
	//   - []wgpu.BindGroupEntry: the entries sorted by binding
	//   - error: an error if a buffer or texture is missing
	BindGroupEntries(buffers map[int]*wgpu.Buffer) ([]wgpu.BindGroupEntry, error)
}

var _ Material = &material{}

// NewMaterial creates a material instance of a compiled program with every property at its default.
//
// Parameters:
//   - prog: the compiled program; must not be nil
//   - options: variadic list of MaterialBuilderOption functions to configure the material
//
// Returns:
//   - Material: a new Material instance
func NewMaterial(prog shader.Program, options ...MaterialBuilderOption) Material {
	if prog == nil {
		panic("material: NewMaterial called with a nil program")
	}
	props := prog.Properties()
	m := &material{
		name:       prog.Name(),
		program:    prog,
		properties: props,
		index:      make(map[string]int, len(props)),
		values:     make(map[string][]float32),
		textures:   make(map[string]Texture),
	}
	for i, pb := range props {
		m.index[pb.Name] = i
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

func (m *material) Name() string {
	return m.name
}

func (m *material) Program() shader.Program {
	return m.program
}

func (m *material) PipelineKey() string {
	return m.pipelineKey
}

func (m *material) SetPipelineKey(key string) {
	m.pipelineKey = key
}

// lookup finds a declared property.
func (m *material) lookup(name string) (shader.PropertyBinding, error) {
	i, ok := m.index[name]
	if !ok {
		return shader.PropertyBinding{}, fmt.Errorf("%w %q in material %s", ErrUnknownProperty, name, m.name)
	}
	return m.properties[i], nil
}

// set stores explicit components after checking the property's shape.
func (m *material) set(name string, values ...float32) error {
	pb, err := m.lookup(name)
	if err != nil {
		return err
	}
	if !shapeMatches(pb.Type, len(values)) {
		return fmt.Errorf("%w: property %q is %s, got %d components", ErrPropertyType, name, pb.Type, len(values))
	}
	m.values[name] = values
	return nil
}

func (m *material) SetF32(name string, value float32) error {
	return m.set(name, value)
}

func (m *material) SetVector2(name string, value mgl32.Vec2) error {
	return m.set(name, value[:]...)
}

func (m *material) SetVector3(name string, value mgl32.Vec3) error {
	return m.set(name, value[:]...)
}

func (m *material) SetVector4(name string, value mgl32.Vec4) error {
	return m.set(name, value[:]...)
}

func (m *material) SetColor(name string, rgba mgl32.Vec4) error {
	return m.set(name, rgba[:]...)
}

func (m *material) SetTexture(name string, texture Texture) error {
	pb, err := m.lookup(name)
	if err != nil {
		return err
	}
	if !pb.Type.IsTexture() {
		return fmt.Errorf("%w: property %q is %s, not a texture", ErrPropertyType, name, pb.Type)
	}
	m.textures[name] = texture
	return nil
}

// effective returns the explicit value, else the default, else zeros.
func (m *material) effective(pb shader.PropertyBinding) []float32 {
	if v, ok := m.values[pb.Name]; ok {
		return v
	}
	if pb.Default != nil {
		return pb.Default
	}
	return make([]float32, pb.Type.Components())
}

// get returns the effective components of a property holding count components.
func (m *material) get(name string, count int) ([]float32, bool) {
	pb, err := m.lookup(name)
	if err != nil || !shapeMatches(pb.Type, count) {
		return nil, false
	}
	return m.effective(pb), true
}

func (m *material) F32(name string) (float32, bool) {
	v, ok := m.get(name, 1)
	if !ok {
		return 0, false
	}
	return v[0], true
}

func (m *material) Vector2(name string) (mgl32.Vec2, bool) {
	var out mgl32.Vec2
	v, ok := m.get(name, 2)
	copy(out[:], v)
	return out, ok
}

func (m *material) Vector3(name string) (mgl32.Vec3, bool) {
	var out mgl32.Vec3
	v, ok := m.get(name, 3)
	copy(out[:], v)
	return out, ok
}

func (m *material) Vector4(name string) (mgl32.Vec4, bool) {
	var out mgl32.Vec4
	v, ok := m.get(name, 4)
	copy(out[:], v)
	return out, ok
}

func (m *material) Texture(name string) (Texture, bool) {
	tex, ok := m.textures[name]
	return tex, ok
}

func (m *material) IsSet(name string) bool {
	_, hasValue := m.values[name]
	_, hasTexture := m.textures[name]
	return hasValue || hasTexture
}

func (m *material) ClearProperty(name string) error {
	if _, err := m.lookup(name); err != nil {
		return err
	}
	delete(m.values, name)
	delete(m.textures, name)
	return nil
}

func (m *material) UniformWrites() []BufferWrite {
	writes := make([]BufferWrite, 0, len(m.properties))
	for _, pb := range m.properties {
		if pb.Type.IsTexture() {
			continue
		}
		writes = append(writes, BufferWrite{
			Name:    pb.Name,
			Group:   pb.Group,
			Binding: pb.Binding,
			Data:    marshalValue(pb.Type, m.effective(pb)),
		})
	}
	return writes
}

func (m *material) TextureBindings() []TextureBinding {
	var out []TextureBinding
	for _, pb := range m.properties {
		if !pb.Type.IsTexture() {
			continue
		}
		tex, bound := m.textures[pb.Name]
		out = append(out, TextureBinding{
			Name:           pb.Name,
			Group:          pb.Group,
			Binding:        pb.Binding,
			SamplerBinding: pb.SamplerBinding,
			Texture:        tex,
			Bound:          bound,
		})
	}
	return out
}

func (m *material) BindGroupEntries(buffers map[int]*wgpu.Buffer) ([]wgpu.BindGroupEntry, error) {
	entries := make([]wgpu.BindGroupEntry, 0, len(m.properties))
	for _, pb := range m.properties {
		if !pb.Type.IsTexture() {
			buf := buffers[pb.Binding]
			if buf == nil {
				return nil, fmt.Errorf("material %s: no uniform buffer for property %q at binding %d", m.name, pb.Name, pb.Binding)
			}
			entries = append(entries, wgpu.BindGroupEntry{
				Binding: uint32(pb.Binding),
				Buffer:  buf,
				Offset:  0,
				Size:    wgpu.WholeSize,
			})
			continue
		}
		tex, ok := m.textures[pb.Name]
		if !ok || tex.View == nil || tex.Sampler == nil {
			return nil, fmt.Errorf("material %s: texture property %q has no view and sampler bound", m.name, pb.Name)
		}
		entries = append(entries,
			wgpu.BindGroupEntry{Binding: uint32(pb.Binding), TextureView: tex.View},
			wgpu.BindGroupEntry{Binding: uint32(pb.SamplerBinding), Sampler: tex.Sampler},
		)
	}
	slices.SortFunc(entries, func(a, b wgpu.BindGroupEntry) int {
		return int(a.Binding) - int(b.Binding)
	})
	return entries, nil
}
