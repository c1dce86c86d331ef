package shader

// Literal is a constant default value written in a property declaration, either a single
// number or a parenthesised tuple.
type Literal struct {
	Values   []float32
	Location SourceLocation
}

// PropertyDeclaration is a `property <name>: <Type> [= <literal>];` line.
type PropertyDeclaration struct {
	Name         string
	Type         ValueType
	Default      *Literal
	Location     SourceLocation
	TypeLocation SourceLocation
}

// IntrinsicReference is an `@`-prefixed token inside a program body. Namespace is empty
// for the bare `@<field>` form.
type IntrinsicReference struct {
	Namespace string
	Field     string
	Location  SourceLocation

	token int
}

// Text returns the reference as written in the definition.
func (r IntrinsicReference) Text() string {
	if r.Namespace == "" {
		return "@" + r.Field
	}
	return "@" + r.Namespace + "." + r.Field
}

// QualifierDirection distinguishes `out` declarations in the vertex program from `in`
// declarations in the fragment program.
type QualifierDirection int

const (
	// QualifierOut declares the type a vertex program produces for a @vertex field.
	QualifierOut QualifierDirection = iota

	// QualifierIn declares the type a fragment program expects for a @vertex field.
	QualifierIn
)

// Qualifier is a typed interface declaration such as `out Vector2 @vertex.uv;`. The
// qualifier keyword and type are not part of the generated text.
type Qualifier struct {
	Direction QualifierDirection
	Type      ValueType
	Field     string
	Location  SourceLocation

	// DeclarationOnly is true when the statement ends right after the reference. Such
	// statements are dropped entirely; `out T @vertex.f = expr;` keeps its assignment.
	DeclarationOnly bool

	start, end, ref int
}

// StageDefinition is one `program vert { ... }` or `program frag { ... }` block.
type StageDefinition struct {
	Kind       StageKind
	BodyText   string
	Intrinsics []IntrinsicReference
	Qualifiers []Qualifier
	Location   SourceLocation

	tokens []token
}

// Document is a parsed shader definition.
type Document struct {
	File       string
	Source     string
	Properties []PropertyDeclaration
	Vertex     *StageDefinition
	Fragment   *StageDefinition
}

// Stage returns the definition of the given stage, or nil.
func (d *Document) Stage(kind StageKind) *StageDefinition {
	switch kind {
	case StageVertex:
		return d.Vertex
	case StageFragment:
		return d.Fragment
	default:
		return nil
	}
}
