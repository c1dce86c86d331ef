package material

import (
	"fmt"
	"slices"

	"github.com/Carmen-Shannon/oxy-matc/engine/renderer/shader"
	"github.com/go-gl/mathgl/mgl32"
)

// DefaultAmbient is the ambient term used until SetAmbient is called.
var DefaultAmbient = mgl32.Vec4{0.25, 0.25, 0.25, 1.0}

// globalValues is the implementation of the GlobalValues interface.
type globalValues struct {
	table    *shader.GlobalTable
	explicit map[string][]float32

	model, view, projection          mgl32.Mat4
	hasModel, hasView, hasProjection bool

	cameraPosition mgl32.Vec3
	hasCamera      bool

	lightPosition              mgl32.Vec3
	lightColor                 mgl32.Vec4
	lightStrength, lightRadius float32
	hasLight                   bool

	ambient mgl32.Vec4
}

// GlobalValues holds the engine-supplied uniform values of one draw: transforms, camera, the
// ambient term, and the current light. Values come either from the typed scene setters, which
// derive the dependent globals, or from explicit per-name setters that override them.
type GlobalValues interface {
	// Table returns the engine-global table the values are checked against.
	//
	// Returns:
	//   - *shader.GlobalTable: the table
	Table() *shader.GlobalTable

	// SetModel sets the model transform of the draw.
	//
	// Parameters:
	//   - model: the object-to-world transform
	SetModel(model mgl32.Mat4)

	// SetCamera sets the view and projection transforms and the camera's world position.
	//
	// Parameters:
	//   - view: the world-to-view transform
	//   - projection: the view-to-clip transform
	//   - position: the camera position in world space
	SetCamera(view, projection mgl32.Mat4, position mgl32.Vec3)

	// SetAmbient sets the scene-wide ambient color.
	//
	// Parameters:
	//   - color: the ambient RGBA color
	SetAmbient(color mgl32.Vec4)

	// SetLight sets the light of the current light pass. The position is converted to view
	// space when a camera is set.
	//
	// Parameters:
	//   - position: the light position in world space
	//   - color: the light RGBA color
	//   - strength: the light intensity
	//   - radius: the light's range
	SetLight(position mgl32.Vec3, color mgl32.Vec4, strength, radius float32)

	// SetF32 sets an f32 engine global explicitly.
	//
	// Parameters:
	//   - name: the global name
	//   - value: the value
	//
	// Returns:
	//   - error: ErrUnknownGlobal or ErrPropertyType
	SetF32(name string, value float32) error

	// SetVector4 sets a Vector4 or Color engine global explicitly.
	//
	// Parameters:
	//   - name: the global name
	//   - value: the value
	//
	// Returns:
	//   - error: ErrUnknownGlobal or ErrPropertyType
	SetVector4(name string, value mgl32.Vec4) error

	// SetMatrix4 sets a Matrix4 engine global explicitly.
	//
	// Parameters:
	//   - name: the global name
	//   - value: the value
	//
	// Returns:
	//   - error: ErrUnknownGlobal or ErrPropertyType
	SetMatrix4(name string, value mgl32.Mat4) error

	// Value returns the resolved components of a global.
	//
	// Parameters:
	//   - name: the global name
	//
	// Returns:
	//   - []float32: the components, column-major for matrices
	//   - bool: false if the global has no value
	Value(name string) ([]float32, bool)

	// Writes returns the uploads for every engine global a program reads, in table order.
	//
	// Parameters:
	//   - prog: the compiled program
	//
	// Returns:
	//   - []BufferWrite: one write per required global
	//   - error: ErrMissingGlobal naming the first global without a value, or ErrPropertyType
	//     when the program was compiled against a table that disagrees on a global's type
	Writes(prog shader.Program) ([]BufferWrite, error)
}

var _ GlobalValues = &globalValues{}

// NewGlobalValues creates an empty set of frame values for a global table. Only the ambient
// term starts with a value, DefaultAmbient.
//
// Parameters:
//   - table: the engine-global table; nil selects shader.DefaultGlobals()
//
// Returns:
//   - GlobalValues: the frame values
func NewGlobalValues(table *shader.GlobalTable) GlobalValues {
	if table == nil {
		table = shader.DefaultGlobals()
	}
	return &globalValues{
		table:    table,
		explicit: make(map[string][]float32),
		ambient:  DefaultAmbient,
	}
}

func (g *globalValues) Table() *shader.GlobalTable {
	return g.table
}

func (g *globalValues) SetModel(model mgl32.Mat4) {
	g.model, g.hasModel = model, true
}

func (g *globalValues) SetCamera(view, projection mgl32.Mat4, position mgl32.Vec3) {
	g.view, g.hasView = view, true
	g.projection, g.hasProjection = projection, true
	g.cameraPosition, g.hasCamera = position, true
}

func (g *globalValues) SetAmbient(color mgl32.Vec4) {
	g.ambient = color
}

func (g *globalValues) SetLight(position mgl32.Vec3, color mgl32.Vec4, strength, radius float32) {
	g.lightPosition = position
	g.lightColor = color
	g.lightStrength = strength
	g.lightRadius = radius
	g.hasLight = true
}

// setExplicit checks a value against the table and stores it.
func (g *globalValues) setExplicit(name string, values ...float32) error {
	global, ok := g.table.Lookup(name)
	if !ok {
		return fmt.Errorf("%w %q", ErrUnknownGlobal, name)
	}
	if !shapeMatches(global.Type, len(values)) {
		return fmt.Errorf("%w: engine global %q is %s, got %d components", ErrPropertyType, name, global.Type, len(values))
	}
	g.explicit[name] = values
	return nil
}

func (g *globalValues) SetF32(name string, value float32) error {
	return g.setExplicit(name, value)
}

func (g *globalValues) SetVector4(name string, value mgl32.Vec4) error {
	return g.setExplicit(name, value[:]...)
}

func (g *globalValues) SetMatrix4(name string, value mgl32.Mat4) error {
	return g.setExplicit(name, value[:]...)
}

// derived computes the values implied by the scene setters.
func (g *globalValues) derived(name string) ([]float32, bool) {
	switch name {
	case "model_transform":
		if g.hasModel {
			return slices.Clone(g.model[:]), true
		}
	case "view_transform":
		if g.hasView {
			return slices.Clone(g.view[:]), true
		}
	case "projection_transform":
		if g.hasProjection {
			return slices.Clone(g.projection[:]), true
		}
	case "model_view_transform":
		if g.hasModel && g.hasView {
			mv := g.view.Mul4(g.model)
			return mv[:], true
		}
	case "model_view_projection":
		if g.hasModel && g.hasView && g.hasProjection {
			mvp := g.projection.Mul4(g.view).Mul4(g.model)
			return mvp[:], true
		}
	case "normal_transform":
		if g.hasModel && g.hasView {
			normal := g.view.Mul4(g.model).Inv().Transpose()
			return normal[:], true
		}
	case "camera_position":
		if g.hasCamera {
			pos := g.cameraPosition.Vec4(1)
			return pos[:], true
		}
	case "global_ambient":
		return slices.Clone(g.ambient[:]), true
	case "light_position":
		if g.hasLight {
			pos := g.lightPosition.Vec4(1)
			if g.hasView {
				pos = g.view.Mul4x1(pos)
			}
			return pos[:], true
		}
	case "light_color":
		if g.hasLight {
			return slices.Clone(g.lightColor[:]), true
		}
	case "light_strength":
		if g.hasLight {
			return []float32{g.lightStrength}, true
		}
	case "light_radius":
		if g.hasLight {
			return []float32{g.lightRadius}, true
		}
	}
	return nil, false
}

func (g *globalValues) Value(name string) ([]float32, bool) {
	if v, ok := g.explicit[name]; ok {
		return slices.Clone(v), true
	}
	global, ok := g.table.Lookup(name)
	if !ok {
		return nil, false
	}
	v, ok := g.derived(name)
	if !ok || !shapeMatches(global.Type, len(v)) {
		return nil, false
	}
	return v, true
}

func (g *globalValues) Writes(prog shader.Program) ([]BufferWrite, error) {
	bindings := prog.GlobalBindings()
	writes := make([]BufferWrite, 0, len(bindings))
	for _, gb := range bindings {
		v, ok := g.Value(gb.Name)
		if !ok {
			return nil, fmt.Errorf("program %s: %w %q", prog.Name(), ErrMissingGlobal, gb.Name)
		}
		if !shapeMatches(gb.Type, len(v)) {
			return nil, fmt.Errorf("program %s: %w: engine global %q is %s, value has %d components", prog.Name(), ErrPropertyType, gb.Name, gb.Type, len(v))
		}
		writes = append(writes, BufferWrite{
			Name:    gb.Name,
			Group:   gb.Group,
			Binding: gb.Binding,
			Data:    marshalValue(gb.Type, v),
		})
	}
	return writes, nil
}
