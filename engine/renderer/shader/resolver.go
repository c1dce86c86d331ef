package shader

import (
	"fmt"
	"regexp"
	"strings"
)

// ResolutionKind tags the variant of a Resolution.
type ResolutionKind int

const (
	// ResolvedUniform is a read of a property, texture sampler, or engine global.
	ResolvedUniform ResolutionKind = iota + 1

	// ResolvedSlot is a @vertex field that crosses into the fragment program.
	ResolvedSlot

	// ResolvedLocal is a @vertex field the fragment program never reads; it lives as a
	// local variable of the vertex entry point.
	ResolvedLocal

	// ResolvedSink is the terminal fragment color.
	ResolvedSink

	// ResolvedBuiltin is a stage builtin such as @clip_position or @frag_coord.
	ResolvedBuiltin

	// ResolvedMeshAttribute is a per-vertex input read through @mesh.
	ResolvedMeshAttribute
)

// Resolution is the outcome of resolving one IntrinsicReference. Variable is the concrete
// name the reference is rewritten to in generated text.
type Resolution struct {
	Kind     ResolutionKind
	Type     ValueType
	Variable string
	Symbol   Symbol
}

// MeshAttribute is a per-vertex input available to the vertex program as @mesh.<name>.
type MeshAttribute struct {
	Name     string
	Type     ValueType
	Location int
}

// meshAttributes lists every attribute in location order.
var meshAttributes = []MeshAttribute{
	{Name: "position", Type: TypeVector3, Location: 0},
	{Name: "normal", Type: TypeVector3, Location: 1},
	{Name: "uv", Type: TypeVector2, Location: 2},
}

// SlotDirection tells whether a stage writes or reads an interface slot.
type SlotDirection int

const (
	// SlotOut is the producer side, declared in the vertex output struct.
	SlotOut SlotDirection = iota

	// SlotIn is the consumer side, declared in the fragment input struct.
	SlotIn
)

// String returns "out" or "in".
func (d SlotDirection) String() string {
	if d == SlotIn {
		return "in"
	}
	return "out"
}

// InterfaceSlot is a value carried from the vertex program to the fragment program.
// Location is the @location index shared by both sides.
type InterfaceSlot struct {
	Name      string
	Type      ValueType
	Location  int
	Direction SlotDirection
	Stage     StageKind
}

// Variable names used by generated entry points.
const (
	varInput    = "oxy_in"
	varOutput   = "oxy_out"
	varColor    = "oxy_color"
	localPrefix = "oxy_v_"
)

// vertexField tracks everything the vertex program says about one @vertex field.
type vertexField struct {
	name     string
	declared ValueType
	declLoc  SourceLocation
	typ      ValueType
	writes   []fieldWrite
	reads    []SourceLocation
	slot     int
}

type fieldWrite struct {
	typ ValueType
	loc SourceLocation
}

// resolvedStage is one stage after resolution. refs runs parallel to the stage's
// intrinsics; properties and globals record which uniforms the stage reads.
type resolvedStage struct {
	def        *StageDefinition
	refs       []Resolution
	properties map[int]bool
	globals    map[int]bool
	declOnly   map[int]bool
	sinkWrites int
}

// resolution is the resolved state of a whole definition.
type resolution struct {
	doc     *Document
	symbols *SymbolTable

	vertex   *resolvedStage
	fragment *resolvedStage

	fields     map[string]*vertexField
	fieldOrder []*vertexField
	slots      []*vertexField
	mesh       [3]bool
	fragCoord  bool
}

// resolve classifies every intrinsic reference of both stages, determines the vertex
// output types, and assigns interface slots in first-use order of the fragment program.
// The vertex program is resolved first so its errors are reported first.
func resolve(doc *Document, symbols *SymbolTable) (*resolution, error) {
	r := &resolution{
		doc:     doc,
		symbols: symbols,
		fields:  make(map[string]*vertexField),
	}
	r.vertex = newResolvedStage(doc.Vertex)
	r.fragment = newResolvedStage(doc.Fragment)
	if err := r.resolveVertex(); err != nil {
		return nil, err
	}
	if err := r.resolveFragment(); err != nil {
		return nil, err
	}
	r.finish()
	return r, nil
}

func newResolvedStage(def *StageDefinition) *resolvedStage {
	st := &resolvedStage{
		def:        def,
		refs:       make([]Resolution, len(def.Intrinsics)),
		properties: make(map[int]bool),
		globals:    make(map[int]bool),
		declOnly:   make(map[int]bool),
	}
	for _, q := range def.Qualifiers {
		if q.DeclarationOnly {
			st.declOnly[q.ref] = true
		}
	}
	return st
}

func (r *resolution) errorf(kind ErrorKind, loc SourceLocation, format string, args ...any) *CompileError {
	return newError(kind, loc, r.doc.Source, format, args...)
}

func (r *resolution) field(name string) *vertexField {
	f, ok := r.fields[name]
	if !ok {
		f = &vertexField{name: name, slot: -1}
		r.fields[name] = f
		r.fieldOrder = append(r.fieldOrder, f)
	}
	return f
}

func (r *resolution) resolveVertex() error {
	st := r.vertex
	toks := st.def.tokens

	for _, q := range st.def.Qualifiers {
		if err := r.checkFieldName(q.Field, q.Location); err != nil {
			return err
		}
		f := r.field(q.Field)
		if f.declared != TypeInvalid && f.declared != q.Type {
			err := r.errorf(KindTypeMismatch, q.Location, "@vertex.%s is declared as %s", q.Field, q.Type)
			err.Conflict = fmt.Sprintf("declaration as %s", f.declared)
			loc := f.declLoc
			err.ConflictLocation = &loc
			return err
		}
		f.declared, f.declLoc = q.Type, q.Location
	}

	for i, ref := range st.def.Intrinsics {
		switch ref.Namespace {
		case "vertex":
			if ref.Field == "clip_position" || ref.Field == "frag_coord" {
				return r.errorf(KindUnresolvedReference, ref.Location, "%s names a builtin; use @%s", ref.Text(), ref.Field)
			}
			if err := r.checkFieldName(ref.Field, ref.Location); err != nil {
				return err
			}
			f := r.field(ref.Field)
			if st.declOnly[ref.token] {
				continue
			}
			write, whole := isWrite(toks, ref.token)
			switch {
			case write && whole:
				typ, _ := r.inferType(st, ref.token)
				f.writes = append(f.writes, fieldWrite{typ: typ, loc: ref.Location})
			case write:
				f.writes = append(f.writes, fieldWrite{loc: ref.Location})
			default:
				f.reads = append(f.reads, ref.Location)
			}
		case "mesh":
			attr, ok := lookupMeshAttribute(ref.Field)
			if !ok {
				return r.errorf(KindUnresolvedReference, ref.Location, "unknown mesh attribute %s (expected @mesh.position, @mesh.normal, or @mesh.uv)", ref.Text())
			}
			r.mesh[attr.Location] = true
			st.refs[i] = Resolution{Kind: ResolvedMeshAttribute, Type: attr.Type, Variable: varInput + "." + attr.Name}
		case "":
			res, err := r.resolveBare(st, ref)
			if err != nil {
				return err
			}
			st.refs[i] = res
		default:
			return r.errorf(KindUnresolvedReference, ref.Location, "unknown namespace %q in %s", ref.Namespace, ref.Text())
		}
	}
	r.collectBareUniforms(st)

	for _, f := range r.fieldOrder {
		if err := r.settleField(f); err != nil {
			return err
		}
	}
	return nil
}

// checkFieldName rejects @vertex field names that cannot be struct members or locals of
// the generated text.
func (r *resolution) checkFieldName(name string, loc SourceLocation) error {
	if _, ok := reservedWords[name]; ok {
		return r.errorf(KindDuplicateSymbol, loc, "@vertex.%s uses the reserved word %q", name, name)
	}
	for _, prefix := range reservedPrefixes {
		if strings.HasPrefix(name, prefix) {
			return r.errorf(KindDuplicateSymbol, loc, "@vertex.%s uses the reserved prefix %q", name, prefix)
		}
	}
	return nil
}

// settleField fixes the type of a vertex output from its declaration or its writes.
func (r *resolution) settleField(f *vertexField) error {
	for _, w := range f.writes {
		if w.typ == TypeMatrix4 {
			return r.errorf(KindTypeMismatch, w.loc,
				"@vertex.%s is assigned a Matrix4 value; matrices cannot cross between programs", f.name)
		}
	}
	if len(f.writes) == 0 {
		if len(f.reads) > 0 {
			return r.errorf(KindUnresolvedReference, f.reads[0], "@vertex.%s is read but never written by the vertex program", f.name)
		}
		f.typ = f.declared
		return nil
	}

	if f.declared != TypeInvalid {
		for _, w := range f.writes {
			if w.typ != TypeInvalid && !w.typ.Compatible(f.declared) {
				err := r.errorf(KindTypeMismatch, w.loc, "@vertex.%s is assigned a %s value", f.name, w.typ)
				err.Conflict = fmt.Sprintf("declaration as %s", f.declared)
				loc := f.declLoc
				err.ConflictLocation = &loc
				return err
			}
		}
		f.typ = f.declared
		return nil
	}

	var first fieldWrite
	for _, w := range f.writes {
		if w.typ == TypeInvalid {
			continue
		}
		if first.typ == TypeInvalid {
			first = w
			continue
		}
		if !w.typ.Compatible(first.typ) {
			err := r.errorf(KindTypeMismatch, w.loc, "@vertex.%s is assigned a %s value", f.name, w.typ)
			err.Conflict = fmt.Sprintf("assignment of a %s value", first.typ)
			loc := first.loc
			err.ConflictLocation = &loc
			return err
		}
	}
	if first.typ == TypeInvalid {
		return r.errorf(KindTypeMismatch, f.writes[0].loc,
			"cannot determine the type of @vertex.%s; declare it with `out <Type> @vertex.%s;`", f.name, f.name)
	}
	f.typ = first.typ
	return nil
}

func (r *resolution) resolveFragment() error {
	st := r.fragment
	toks := st.def.tokens

	for i, ref := range st.def.Intrinsics {
		switch ref.Namespace {
		case "vertex":
			if write, _ := isWrite(toks, ref.token); write {
				return r.errorf(KindUnresolvedReference, ref.Location, "%s is read-only in the fragment program", ref.Text())
			}
			f, ok := r.fields[ref.Field]
			if !ok || len(f.writes) == 0 {
				return r.errorf(KindUnresolvedReference, ref.Location, "%s is not written by the vertex program", ref.Text())
			}
			if f.slot < 0 {
				f.slot = len(r.slots)
				r.slots = append(r.slots, f)
			}
			st.refs[i] = Resolution{Kind: ResolvedSlot, Type: f.typ, Variable: varInput + "." + f.name}
		case "mesh":
			return r.errorf(KindUnresolvedReference, ref.Location, "%s is only available in the vertex program; pass it through a @vertex field", ref.Text())
		case "":
			res, err := r.resolveBare(st, ref)
			if err != nil {
				return err
			}
			if res.Kind == ResolvedSink {
				if write, _ := isWrite(toks, ref.token); write {
					st.sinkWrites++
				}
			}
			st.refs[i] = res
		default:
			return r.errorf(KindUnresolvedReference, ref.Location, "unknown namespace %q in %s", ref.Namespace, ref.Text())
		}
	}

	for _, q := range st.def.Qualifiers {
		f := r.fields[q.Field]
		if q.Type.Compatible(f.typ) {
			continue
		}
		err := r.errorf(KindTypeMismatch, q.Location, "@vertex.%s is consumed as %s", q.Field, q.Type)
		err.Conflict = fmt.Sprintf("vertex output of type %s", f.typ)
		loc := f.writes[0].loc
		if f.declared != TypeInvalid {
			loc = f.declLoc
		}
		err.ConflictLocation = &loc
		return err
	}
	r.collectBareUniforms(st)

	if st.sinkWrites == 0 {
		return r.errorf(KindMissingOutput, st.def.Location, "fragment program never writes @color")
	}
	return nil
}

// resolveBare resolves the `@<field>` form: builtins, the sink, and uniforms.
func (r *resolution) resolveBare(st *resolvedStage, ref IntrinsicReference) (Resolution, error) {
	kind := st.def.Kind
	switch ref.Field {
	case "clip_position":
		if kind != StageVertex {
			return Resolution{}, r.errorf(KindUnresolvedReference, ref.Location, "@clip_position is only available in the vertex program")
		}
		return Resolution{Kind: ResolvedBuiltin, Type: TypeVector4, Variable: varOutput + ".clip_position"}, nil
	case "frag_coord":
		if kind != StageFragment {
			return Resolution{}, r.errorf(KindUnresolvedReference, ref.Location, "@frag_coord is only available in the fragment program")
		}
		r.fragCoord = true
		return Resolution{Kind: ResolvedBuiltin, Type: TypeVector4, Variable: varInput + ".frag_coord"}, nil
	case "color":
		if kind != StageFragment {
			return Resolution{}, r.errorf(KindUnresolvedReference, ref.Location, "@color is only available in the fragment program")
		}
		return Resolution{Kind: ResolvedSink, Type: TypeColor, Variable: varColor}, nil
	}

	sym, ok := r.symbols.Lookup(ref.Field)
	if !ok {
		return Resolution{}, r.errorf(KindUnresolvedReference, ref.Location, "unknown reference %s: no property, engine global, or builtin has that name", ref.Text())
	}
	st.markUniform(sym)
	return Resolution{Kind: ResolvedUniform, Type: sym.Type, Variable: sym.Name, Symbol: sym}, nil
}

func (st *resolvedStage) markUniform(sym Symbol) {
	switch sym.Kind {
	case SymbolProperty, SymbolSampler:
		st.properties[sym.Index] = true
	case SymbolGlobal:
		st.globals[sym.Index] = true
	}
}

// collectBareUniforms marks uniforms named by plain identifiers. Member accesses after
// '.' are not references.
func (r *resolution) collectBareUniforms(st *resolvedStage) {
	toks := st.def.tokens
	for i, tok := range toks {
		if tok.kind != tokenIdent {
			continue
		}
		if j := prevSignificant(toks, i); j >= 0 && toks[j].is(".") {
			continue
		}
		if sym, ok := r.symbols.Lookup(tok.text); ok {
			st.markUniform(sym)
		}
	}
}

// finish rewrites vertex-side references once the fragment program has decided which
// fields cross the stage boundary. Properties no stage reads are declared by the fragment
// program so every binding of the property group appears in some stage.
func (r *resolution) finish() {
	for i := range r.doc.Properties {
		if !r.vertex.properties[i] && !r.fragment.properties[i] {
			r.fragment.properties[i] = true
		}
	}

	st := r.vertex
	for i, ref := range st.def.Intrinsics {
		if ref.Namespace != "vertex" {
			continue
		}
		f := r.fields[ref.Field]
		if f.slot >= 0 {
			st.refs[i] = Resolution{Kind: ResolvedSlot, Type: f.typ, Variable: varOutput + "." + f.name}
		} else {
			st.refs[i] = Resolution{Kind: ResolvedLocal, Type: f.typ, Variable: localPrefix + f.name}
		}
	}
}

// interfaceSlots returns the slots as seen by one stage, in location order.
func (r *resolution) interfaceSlots(stage StageKind) []InterfaceSlot {
	dir := SlotOut
	if stage == StageFragment {
		dir = SlotIn
	}
	out := make([]InterfaceSlot, len(r.slots))
	for i, f := range r.slots {
		out[i] = InterfaceSlot{Name: f.name, Type: f.typ, Location: i, Direction: dir, Stage: stage}
	}
	return out
}

// locals returns written vertex outputs that no fragment reference consumes.
func (r *resolution) locals() []*vertexField {
	var out []*vertexField
	for _, f := range r.fieldOrder {
		if f.slot < 0 && len(f.writes) > 0 {
			out = append(out, f)
		}
	}
	return out
}

// meshInputs returns the referenced mesh attributes in location order.
func (r *resolution) meshInputs() []MeshAttribute {
	var out []MeshAttribute
	for _, attr := range meshAttributes {
		if r.mesh[attr.Location] {
			out = append(out, attr)
		}
	}
	return out
}

func lookupMeshAttribute(name string) (MeshAttribute, bool) {
	for _, attr := range meshAttributes {
		if attr.Name == name {
			return attr, true
		}
	}
	return MeshAttribute{}, false
}

// isWrite reports whether the reference at token i is the target of an assignment, and
// whether it is a plain `=` to the whole value rather than a compound or member write.
func isWrite(toks []token, i int) (write, whole bool) {
	j := nextSignificant(toks, i)
	member := false
	for j >= 0 {
		switch {
		case toks[j].is("."):
			member = true
			if j = nextSignificant(toks, j); j < 0 {
				return false, false
			}
			j = nextSignificant(toks, j)
		case toks[j].is("["):
			member = true
			if j = matching(toks, j, "[", "]"); j < 0 {
				return false, false
			}
			j = nextSignificant(toks, j)
		default:
			if toks[j].kind != tokenAssign {
				return false, false
			}
			return true, !member && toks[j].text == "="
		}
	}
	return false, false
}

// matching returns the index of the token closing the bracket opened at i, or -1.
func matching(toks []token, i int, open, close string) int {
	depth := 0
	for j := i; j < len(toks); j++ {
		switch {
		case toks[j].is(open):
			depth++
		case toks[j].is(close):
			depth--
			if depth == 0 {
				return j
			}
		}
	}
	return -1
}

// swizzleRegex matches vector component selections such as xyz or rgba.
var swizzleRegex = regexp.MustCompile(`^(?:[xyzw]{1,4}|[rgba]{1,4})$`)

// constructorTypes maps WGSL value constructors to the type they produce.
var constructorTypes = map[string]ValueType{
	"f32":     TypeF32,
	"vec2":    TypeVector2,
	"vec2f":   TypeVector2,
	"vec3":    TypeVector3,
	"vec3f":   TypeVector3,
	"vec4":    TypeVector4,
	"vec4f":   TypeVector4,
	"mat4x4":  TypeMatrix4,
	"mat4x4f": TypeMatrix4,
}

// vectorOf returns the float type with n components.
func vectorOf(n int) ValueType {
	switch n {
	case 1:
		return TypeF32
	case 2:
		return TypeVector2
	case 3:
		return TypeVector3
	case 4:
		return TypeVector4
	default:
		return TypeInvalid
	}
}

// inferType determines the type of the right-hand side of the assignment whose target is
// the token at i. Operands are typed references, properties, globals, value constructors,
// and numeric literals; a function call, an unknown identifier, or vector operands of
// different shapes make the type undeterminable. Matrix operands only decide the type
// when nothing else does.
func (r *resolution) inferType(st *resolvedStage, i int) (ValueType, bool) {
	toks := st.def.tokens
	refAt := make(map[int]IntrinsicReference, len(st.def.Intrinsics))
	for _, ref := range st.def.Intrinsics {
		refAt[ref.token] = ref
	}

	var operands []ValueType
	scalar := false
	j := -1
	if eq := nextSignificant(toks, i); eq >= 0 {
		j = nextSignificant(toks, eq)
	}
	for ; j >= 0 && !toks[j].is(";"); j = nextSignificant(toks, j) {
		tok := toks[j]
		var typ ValueType
		switch tok.kind {
		case tokenNumber:
			scalar = true
			continue
		case tokenIntrinsic:
			t, ok := r.operandType(refAt[j])
			if !ok {
				return TypeInvalid, false
			}
			typ = t
		case tokenIdent:
			t, end, ok := r.identOperand(toks, j)
			if !ok {
				return TypeInvalid, false
			}
			typ, j = t, end
		case tokenPunct:
			if tok.is(".") || tok.is("[") {
				return TypeInvalid, false
			}
			continue
		default:
			continue
		}

		var ok bool
		typ, j, ok = applyAccessors(toks, j, typ)
		if !ok {
			return TypeInvalid, false
		}
		operands = append(operands, typ)
	}

	var vec ValueType
	matrix := false
	for _, t := range operands {
		switch {
		case t == TypeMatrix4:
			matrix = true
		case t == TypeF32:
			scalar = true
		case vec == TypeInvalid:
			vec = t
		case !vec.Compatible(t):
			return TypeInvalid, false
		}
	}
	if vec != TypeInvalid {
		return vec, true
	}
	if matrix {
		return TypeMatrix4, true
	}
	if scalar {
		return TypeF32, true
	}
	return TypeInvalid, false
}

// identOperand types a plain identifier operand: a value constructor, whose argument
// list is skipped, or a property or engine global. It returns the index of the operand's
// last token.
func (r *resolution) identOperand(toks []token, j int) (ValueType, int, bool) {
	name := toks[j].text
	if ctor, ok := constructorTypes[name]; ok {
		end := j
		if n := nextSignificant(toks, end); n >= 0 && toks[n].is("<") {
			end = matching(toks, n, "<", ">")
			if end < 0 {
				return TypeInvalid, j, false
			}
		}
		open := nextSignificant(toks, end)
		if open < 0 || !toks[open].is("(") {
			return TypeInvalid, j, false
		}
		end = matching(toks, open, "(", ")")
		if end < 0 {
			return TypeInvalid, j, false
		}
		return ctor, end, true
	}
	if n := nextSignificant(toks, j); n >= 0 && toks[n].is("(") {
		return TypeInvalid, j, false
	}
	sym, ok := r.symbols.Lookup(name)
	if !ok || sym.Kind == SymbolSampler || sym.Type.IsTexture() {
		return TypeInvalid, j, false
	}
	return sym.Type, j, true
}

// operandType returns the type of an intrinsic used inside a vertex expression.
func (r *resolution) operandType(ref IntrinsicReference) (ValueType, bool) {
	switch ref.Namespace {
	case "vertex":
		f, ok := r.fields[ref.Field]
		if !ok {
			return TypeInvalid, false
		}
		if f.declared != TypeInvalid {
			return f.declared, true
		}
		for _, w := range f.writes {
			if w.typ != TypeInvalid {
				return w.typ, true
			}
		}
		return TypeInvalid, false
	case "mesh":
		attr, ok := lookupMeshAttribute(ref.Field)
		return attr.Type, ok
	case "":
		if ref.Field == "clip_position" {
			return TypeVector4, true
		}
		sym, ok := r.symbols.Lookup(ref.Field)
		if !ok || sym.Kind == SymbolSampler || sym.Type.IsTexture() {
			return TypeInvalid, false
		}
		return sym.Type, true
	default:
		return TypeInvalid, false
	}
}

// applyAccessors narrows typ through trailing swizzles and index expressions following
// the operand that ends at token j. It returns the narrowed type and the index of the
// last token consumed.
func applyAccessors(toks []token, j int, typ ValueType) (ValueType, int, bool) {
	for {
		n := nextSignificant(toks, j)
		switch {
		case n >= 0 && toks[n].is("."):
			m := nextSignificant(toks, n)
			if m < 0 || toks[m].kind != tokenIdent || !swizzleRegex.MatchString(toks[m].text) {
				return TypeInvalid, j, false
			}
			if typ.Components() < 2 || typ == TypeMatrix4 {
				return TypeInvalid, j, false
			}
			typ = vectorOf(len(toks[m].text))
			j = m
		case n >= 0 && toks[n].is("["):
			end := matching(toks, n, "[", "]")
			if end < 0 {
				return TypeInvalid, j, false
			}
			switch {
			case typ == TypeMatrix4:
				typ = TypeVector4
			case typ.Components() >= 2:
				typ = TypeF32
			default:
				return TypeInvalid, j, false
			}
			j = end
		default:
			return typ, j, true
		}
	}
}
