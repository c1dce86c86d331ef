package shader

import (
	"fmt"
	"strings"
)

// SymbolKind classifies an entry of a SymbolTable.
type SymbolKind int

const (
	// SymbolProperty is a declared material property.
	SymbolProperty SymbolKind = iota + 1

	// SymbolSampler is the companion sampler synthesized for a Texture2d property.
	SymbolSampler

	// SymbolGlobal is an engine-supplied uniform.
	SymbolGlobal
)

// Symbol is one named uniform visible to program bodies.
type Symbol struct {
	Name string
	Kind SymbolKind
	Type ValueType

	// Index is the position in the property list for properties and samplers, or the
	// binding index for engine globals.
	Index int
}

// reservedPrefixes are owned by generated identifiers.
var reservedPrefixes = []string{"oxy_", "Oxy"}

// reservedWords are WGSL keywords and predeclared type names that a uniform could not be
// named after without breaking the generated text.
var reservedWords = func() map[string]struct{} {
	words := []string{
		"alias", "break", "case", "const", "const_assert", "continue", "continuing", "default",
		"diagnostic", "discard", "else", "enable", "false", "fn", "for", "if", "let", "loop",
		"override", "requires", "return", "struct", "switch", "true", "var", "while",
		"bool", "f16", "f32", "i32", "u32", "vec2", "vec3", "vec4", "vec2f", "vec3f", "vec4f",
		"mat2x2", "mat3x3", "mat4x4", "sampler", "texture_2d", "array", "atomic", "ptr",
		"uniform", "storage", "private", "function", "workgroup",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}()

// SymbolTable is the per-compilation namespace of properties, texture samplers, and
// engine globals. Symbols live in an arena addressed by name; globals are looked up in
// the shared GlobalTable rather than copied.
type SymbolTable struct {
	arena      []Symbol
	index      map[string]int
	properties []PropertyDeclaration
	globals    *GlobalTable
}

// BuildSymbolTable collects the properties of a document into a namespace seeded with
// the engine globals. A property whose name, or whose texture sampler's name, matches
// another property, an engine global, an entry point, or a reserved name fails with a
// duplicate symbol error that identifies both parties.
//
// Parameters:
//   - doc: the parsed definition
//   - globals: the engine-global table shared by all compilations
//   - entryPoints: generated entry point names that properties may not reuse
//
// Returns:
//   - *SymbolTable: the namespace of the definition
//   - error: a *CompileError of kind KindDuplicateSymbol on collision
func BuildSymbolTable(doc *Document, globals *GlobalTable, entryPoints ...string) (*SymbolTable, error) {
	t := &SymbolTable{
		arena:      make([]Symbol, 0, len(doc.Properties)),
		index:      make(map[string]int, len(doc.Properties)),
		properties: doc.Properties,
		globals:    globals,
	}
	for i, prop := range doc.Properties {
		if err := t.claim(doc, Symbol{Name: prop.Name, Kind: SymbolProperty, Type: prop.Type, Index: i}, prop, entryPoints); err != nil {
			return nil, err
		}
		if prop.Type.IsTexture() {
			sampler := Symbol{Name: samplerName(prop.Name), Kind: SymbolSampler, Index: i}
			if err := t.claim(doc, sampler, prop, entryPoints); err != nil {
				return nil, err
			}
		}
	}
	return t, nil
}

// claim adds a symbol to the arena unless its name is already taken.
func (t *SymbolTable) claim(doc *Document, sym Symbol, prop PropertyDeclaration, entryPoints []string) error {
	what := fmt.Sprintf("property %q", prop.Name)
	if sym.Kind == SymbolSampler {
		what = fmt.Sprintf("sampler %q of property %q", sym.Name, prop.Name)
	}
	dup := func(conflict string, at *SourceLocation) error {
		err := newError(KindDuplicateSymbol, prop.Location, doc.Source, "%s is already defined", what)
		err.Conflict = conflict
		err.ConflictLocation = at
		return err
	}

	if g, ok := t.globals.Lookup(sym.Name); ok {
		return dup(fmt.Sprintf("engine global %q", g.Name), nil)
	}
	if i, ok := t.index[sym.Name]; ok {
		other := t.arena[i]
		owner := t.properties[other.Index]
		loc := owner.Location
		if other.Kind == SymbolSampler {
			return dup(fmt.Sprintf("sampler of property %q", owner.Name), &loc)
		}
		return dup(fmt.Sprintf("property %q", owner.Name), &loc)
	}
	for _, ep := range entryPoints {
		if sym.Name == ep {
			return dup(fmt.Sprintf("entry point %q", ep), nil)
		}
	}
	for _, prefix := range reservedPrefixes {
		if strings.HasPrefix(sym.Name, prefix) {
			return dup(fmt.Sprintf("reserved prefix %q", prefix), nil)
		}
	}
	if _, ok := reservedWords[sym.Name]; ok {
		return dup(fmt.Sprintf("reserved word %q", sym.Name), nil)
	}

	t.index[sym.Name] = len(t.arena)
	t.arena = append(t.arena, sym)
	return nil
}

// Lookup resolves a name to a property, texture sampler, or engine global.
//
// Parameters:
//   - name: the bare identifier
//
// Returns:
//   - Symbol: the resolved symbol
//   - bool: false if the name is unknown
func (t *SymbolTable) Lookup(name string) (Symbol, bool) {
	if i, ok := t.index[name]; ok {
		return t.arena[i], true
	}
	if g, ok := t.globals.Lookup(name); ok {
		return Symbol{Name: g.Name, Kind: SymbolGlobal, Type: g.Type, Index: g.Binding}, true
	}
	return Symbol{}, false
}

// Properties returns the declared properties in declaration order.
func (t *SymbolTable) Properties() []PropertyDeclaration {
	return t.properties
}

// Globals returns the shared engine-global table.
func (t *SymbolTable) Globals() *GlobalTable {
	return t.globals
}

func samplerName(texture string) string {
	return texture + "_sampler"
}
