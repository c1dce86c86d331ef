package shader

import (
	"crypto/sha256"
	"encoding/hex"
	"slices"
)

// PropertyBinding describes where a declared property lives in the generated programs.
// Texture2d properties occupy two bindings: the texture at Binding and its sampler at
// SamplerBinding. SamplerBinding is -1 for every other type.
type PropertyBinding struct {
	Name           string
	Type           ValueType
	Default        []float32
	Group          int
	Binding        int
	SamplerBinding int
	Location       SourceLocation
}

// SamplerName returns the name of the companion sampler variable, or an empty string
// for non-texture properties.
func (b PropertyBinding) SamplerName() string {
	if !b.Type.IsTexture() {
		return ""
	}
	return samplerName(b.Name)
}

// GlobalBinding describes where an engine global referenced by a program is bound.
type GlobalBinding struct {
	Name     string
	Type     ValueType
	Semantic GlobalSemantic
	Group    int
	Binding  int
}

// program is the implementation of the Program interface.
type program struct {
	name        string
	key         string
	sources     [2]string
	entryPoints [2]string
	properties  []PropertyBinding
	globals     []GlobalBinding
	stageProps  [2][]string
	stageGlobs  [2][]string
	slots       [2][]InterfaceSlot
	mesh        []MeshAttribute
}

// Program is the immutable result of a successful compilation: the WGSL text of both
// stages, the ordered property table, and the engine globals the stages read. Every
// accessor returns a copy, so a Program can be shared freely between goroutines.
type Program interface {
	// Name returns the name the program was compiled under.
	//
	// Returns:
	//   - string: the program name
	Name() string

	// Key returns the content address of the program: the hex SHA-256 of both stage texts.
	// Identical definitions compiled with identical configuration share a key.
	//
	// Returns:
	//   - string: the 64 character hex digest
	Key() string

	// Source returns the generated text of one stage.
	//
	// Parameters:
	//   - stage: StageVertex or StageFragment
	//
	// Returns:
	//   - string: the self-contained WGSL text of the stage
	Source(stage StageKind) string

	// VertexSource returns the generated vertex program text.
	//
	// Returns:
	//   - string: the vertex stage WGSL
	VertexSource() string

	// FragmentSource returns the generated fragment program text.
	//
	// Returns:
	//   - string: the fragment stage WGSL
	FragmentSource() string

	// EntryPoint returns the entry function name of one stage.
	//
	// Parameters:
	//   - stage: StageVertex or StageFragment
	//
	// Returns:
	//   - string: the entry point name, e.g. "vs_main"
	EntryPoint(stage StageKind) string

	// Properties returns the property table in declaration order. Bindings are positional,
	// so callers may bind by index.
	//
	// Returns:
	//   - []PropertyBinding: a copy of the property table
	Properties() []PropertyBinding

	// Property looks up a single property binding by name.
	//
	// Parameters:
	//   - name: the property name
	//
	// Returns:
	//   - PropertyBinding: the binding, or the zero value if absent
	//   - bool: true if the property is declared
	Property(name string) (PropertyBinding, bool)

	// RequiredGlobals returns the names of engine globals read by either stage, in
	// engine-global table order.
	//
	// Returns:
	//   - []string: the referenced global names
	RequiredGlobals() []string

	// GlobalBindings returns the bindings of the required engine globals.
	//
	// Returns:
	//   - []GlobalBinding: one entry per required global in table order
	GlobalBindings() []GlobalBinding

	// StageGlobals returns the engine globals declared in one stage.
	//
	// Parameters:
	//   - stage: StageVertex or StageFragment
	//
	// Returns:
	//   - []string: the global names in table order
	StageGlobals(stage StageKind) []string

	// StageProperties returns the properties declared in one stage.
	//
	// Parameters:
	//   - stage: StageVertex or StageFragment
	//
	// Returns:
	//   - []string: the property names in declaration order
	StageProperties(stage StageKind) []string

	// InterfaceSlots returns the values crossing from the vertex to the fragment program as
	// seen by one stage: outputs for the vertex stage and inputs for the fragment stage.
	//
	// Parameters:
	//   - stage: StageVertex or StageFragment
	//
	// Returns:
	//   - []InterfaceSlot: the slots in location order
	InterfaceSlots(stage StageKind) []InterfaceSlot

	// MeshAttributes returns the per-vertex inputs the vertex program reads.
	//
	// Returns:
	//   - []MeshAttribute: the attributes in location order
	MeshAttributes() []MeshAttribute
}

var _ Program = &program{}

// newProgram assembles a Program from a resolution and its generated texts.
func newProgram(name string, cfg *compiler, res *resolution, props []PropertyBinding, vertex, fragment string) *program {
	p := &program{
		name:        name,
		sources:     [2]string{vertex, fragment},
		entryPoints: [2]string{cfg.vertexEntry, cfg.fragmentEntry},
		properties:  props,
		mesh:        res.meshInputs(),
	}

	sum := sha256.New()
	sum.Write([]byte(vertex))
	sum.Write([]byte{0})
	sum.Write([]byte(fragment))
	p.key = hex.EncodeToString(sum.Sum(nil))

	stages := [2]*resolvedStage{res.vertex, res.fragment}
	for _, g := range res.symbols.Globals().All() {
		used := false
		for s, st := range stages {
			if st.globals[g.Binding] {
				p.stageGlobs[s] = append(p.stageGlobs[s], g.Name)
				used = true
			}
		}
		if used {
			p.globals = append(p.globals, GlobalBinding{
				Name:     g.Name,
				Type:     g.Type,
				Semantic: g.Semantic,
				Group:    cfg.globalGroup,
				Binding:  g.Binding,
			})
		}
	}
	for i, pb := range props {
		for s, st := range stages {
			if st.properties[i] {
				p.stageProps[s] = append(p.stageProps[s], pb.Name)
			}
		}
	}
	p.slots[StageVertex] = res.interfaceSlots(StageVertex)
	p.slots[StageFragment] = res.interfaceSlots(StageFragment)
	return p
}

// bindProperties assigns positional bindings to the declared properties.
func bindProperties(props []PropertyDeclaration, group int) []PropertyBinding {
	out := make([]PropertyBinding, len(props))
	binding := 0
	for i, prop := range props {
		pb := PropertyBinding{
			Name:           prop.Name,
			Type:           prop.Type,
			Group:          group,
			Binding:        binding,
			SamplerBinding: -1,
			Location:       prop.Location,
		}
		binding++
		if prop.Type.IsTexture() {
			pb.SamplerBinding = binding
			binding++
		}
		if prop.Default != nil {
			pb.Default = slices.Clone(prop.Default.Values)
		}
		out[i] = pb
	}
	return out
}

func validStage(stage StageKind) bool {
	return stage == StageVertex || stage == StageFragment
}

func (p *program) Name() string {
	return p.name
}

func (p *program) Key() string {
	return p.key
}

func (p *program) Source(stage StageKind) string {
	if !validStage(stage) {
		return ""
	}
	return p.sources[stage]
}

func (p *program) VertexSource() string {
	return p.sources[StageVertex]
}

func (p *program) FragmentSource() string {
	return p.sources[StageFragment]
}

func (p *program) EntryPoint(stage StageKind) string {
	if !validStage(stage) {
		return ""
	}
	return p.entryPoints[stage]
}

func (p *program) Properties() []PropertyBinding {
	out := make([]PropertyBinding, len(p.properties))
	for i, pb := range p.properties {
		pb.Default = slices.Clone(pb.Default)
		out[i] = pb
	}
	return out
}

func (p *program) Property(name string) (PropertyBinding, bool) {
	for _, pb := range p.properties {
		if pb.Name == name {
			pb.Default = slices.Clone(pb.Default)
			return pb, true
		}
	}
	return PropertyBinding{}, false
}

func (p *program) RequiredGlobals() []string {
	out := make([]string, len(p.globals))
	for i, g := range p.globals {
		out[i] = g.Name
	}
	return out
}

func (p *program) GlobalBindings() []GlobalBinding {
	return slices.Clone(p.globals)
}

func (p *program) StageGlobals(stage StageKind) []string {
	if !validStage(stage) {
		return nil
	}
	return slices.Clone(p.stageGlobs[stage])
}

func (p *program) StageProperties(stage StageKind) []string {
	if !validStage(stage) {
		return nil
	}
	return slices.Clone(p.stageProps[stage])
}

func (p *program) InterfaceSlots(stage StageKind) []InterfaceSlot {
	if !validStage(stage) {
		return nil
	}
	return slices.Clone(p.slots[stage])
}

func (p *program) MeshAttributes() []MeshAttribute {
	return slices.Clone(p.mesh)
}
