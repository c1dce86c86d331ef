package shader

import "fmt"

// GlobalSemantic describes which engine subsystem supplies an engine global's value.
type GlobalSemantic string

const (
	// SemanticTransform marks per-draw model and derived transforms.
	SemanticTransform GlobalSemantic = "transform"

	// SemanticCamera marks per-frame camera data.
	SemanticCamera GlobalSemantic = "camera"

	// SemanticAmbient marks the scene-wide ambient term.
	SemanticAmbient GlobalSemantic = "ambient"

	// SemanticLight marks per-light-pass light data.
	SemanticLight GlobalSemantic = "light"
)

// EngineGlobal is a uniform the engine supplies to every program without declaration.
// Binding is the fixed @binding index inside the engine-global group, equal to the
// global's position in its table.
type EngineGlobal struct {
	Name     string
	Type     ValueType
	Semantic GlobalSemantic
	Binding  int
}

// GlobalTable is an immutable, ordered set of engine globals. A table is built once and
// shared by pointer between any number of concurrent compilations.
type GlobalTable struct {
	globals []EngineGlobal
	index   map[string]int
}

// NewGlobalTable builds a table from the given globals. Bindings are assigned from the
// argument order. Duplicate names, empty names, and texture types are programmer errors
// and panic, matching how the engine treats invalid static configuration.
//
// Parameters:
//   - globals: the globals in binding order; the Binding field of each entry is ignored
//
// Returns:
//   - *GlobalTable: the immutable table
func NewGlobalTable(globals ...EngineGlobal) *GlobalTable {
	t := &GlobalTable{
		globals: make([]EngineGlobal, len(globals)),
		index:   make(map[string]int, len(globals)),
	}
	for i, g := range globals {
		if g.Name == "" {
			panic(fmt.Sprintf("shader: engine global %d has no name", i))
		}
		if g.Type == TypeInvalid || g.Type.IsTexture() {
			panic(fmt.Sprintf("shader: engine global %q must be a scalar, vector, or matrix type", g.Name))
		}
		if _, dup := t.index[g.Name]; dup {
			panic(fmt.Sprintf("shader: engine global %q declared twice", g.Name))
		}
		g.Binding = i
		t.globals[i] = g
		t.index[g.Name] = i
	}
	return t
}

// Lookup finds a global by name.
//
// Parameters:
//   - name: the global's name
//
// Returns:
//   - EngineGlobal: the global, or the zero value if absent
//   - bool: true if the table contains the name
func (t *GlobalTable) Lookup(name string) (EngineGlobal, bool) {
	i, ok := t.index[name]
	if !ok {
		return EngineGlobal{}, false
	}
	return t.globals[i], true
}

// All returns a copy of every global in binding order.
//
// Returns:
//   - []EngineGlobal: the globals of the table
func (t *GlobalTable) All() []EngineGlobal {
	out := make([]EngineGlobal, len(t.globals))
	copy(out, t.globals)
	return out
}

// Len returns the number of globals in the table.
func (t *GlobalTable) Len() int {
	return len(t.globals)
}

// defaultGlobals is the engine's built-in table: transforms, camera data, the ambient
// term, and the per-pass light parameters.
var defaultGlobals = NewGlobalTable(
	EngineGlobal{Name: "model_transform", Type: TypeMatrix4, Semantic: SemanticTransform},
	EngineGlobal{Name: "normal_transform", Type: TypeMatrix4, Semantic: SemanticTransform},
	EngineGlobal{Name: "view_transform", Type: TypeMatrix4, Semantic: SemanticCamera},
	EngineGlobal{Name: "model_view_transform", Type: TypeMatrix4, Semantic: SemanticTransform},
	EngineGlobal{Name: "projection_transform", Type: TypeMatrix4, Semantic: SemanticCamera},
	EngineGlobal{Name: "model_view_projection", Type: TypeMatrix4, Semantic: SemanticTransform},
	EngineGlobal{Name: "camera_position", Type: TypeVector4, Semantic: SemanticCamera},
	EngineGlobal{Name: "global_ambient", Type: TypeColor, Semantic: SemanticAmbient},
	EngineGlobal{Name: "light_position", Type: TypeVector4, Semantic: SemanticLight},
	EngineGlobal{Name: "light_strength", Type: TypeF32, Semantic: SemanticLight},
	EngineGlobal{Name: "light_radius", Type: TypeF32, Semantic: SemanticLight},
	EngineGlobal{Name: "light_color", Type: TypeColor, Semantic: SemanticLight},
)

// DefaultGlobals returns the engine's built-in global table. The same pointer is
// returned on every call.
//
// Returns:
//   - *GlobalTable: the shared default table
func DefaultGlobals() *GlobalTable {
	return defaultGlobals
}
