package shader

import (
	"strconv"
	"strings"
)

// parser turns the token stream of one definition into a Document. It is used once
// and discarded.
type parser struct {
	file   string
	source string
	tokens []token
	pos    int
}

// parseDocument parses a whole shader definition. Syntax errors anywhere in the text are
// reported before stage presence is checked.
func parseDocument(file, source string) (*Document, error) {
	tokens, err := tokenize(file, source)
	if err != nil {
		return nil, err
	}
	p := &parser{file: file, source: source, tokens: tokens}
	doc := &Document{File: file, Source: source}

	var duplicate, original *StageDefinition
	for {
		tok, ok := p.next()
		if !ok {
			break
		}
		switch {
		case tok.kind == tokenIdent && tok.text == "property":
			prop, err := p.parseProperty()
			if err != nil {
				return nil, err
			}
			doc.Properties = append(doc.Properties, prop)
		case tok.kind == tokenIdent && tok.text == "program":
			stage, err := p.parseProgram(tok)
			if err != nil {
				return nil, err
			}
			slot := &doc.Vertex
			if stage.Kind == StageFragment {
				slot = &doc.Fragment
			}
			if *slot != nil {
				if duplicate == nil {
					duplicate, original = stage, *slot
				}
				continue
			}
			*slot = stage
		default:
			return nil, p.errorAt(tok, "unexpected %q, expected `property` or `program`", tok.text)
		}
	}

	if duplicate != nil {
		err := newError(KindMissingStage, duplicate.Location, source, "program %s is defined more than once", duplicate.Kind)
		err.Conflict = "program " + original.Kind.String()
		loc := original.Location
		err.ConflictLocation = &loc
		return nil, err
	}
	for _, kind := range []StageKind{StageVertex, StageFragment} {
		if doc.Stage(kind) == nil {
			return nil, newError(KindMissingStage, p.endLocation(), source, "definition has no `program %s` block", kind)
		}
	}
	return doc, nil
}

// next returns the next non-trivia token.
func (p *parser) next() (token, bool) {
	for p.pos < len(p.tokens) {
		tok := p.tokens[p.pos]
		p.pos++
		if !tok.trivia() {
			return tok, true
		}
	}
	return token{}, false
}

// peek returns the next non-trivia token without consuming it.
func (p *parser) peek() (token, bool) {
	saved := p.pos
	tok, ok := p.next()
	p.pos = saved
	return tok, ok
}

// expect consumes the next token and fails unless it has the given kind and, when
// text is not empty, the given text.
func (p *parser) expect(kind tokenKind, text, what string) (token, error) {
	tok, ok := p.next()
	if !ok {
		return token{}, newError(KindSyntax, p.endLocation(), p.source, "expected %s, found end of input", what)
	}
	if tok.kind != kind || (text != "" && tok.text != text) {
		return token{}, p.errorAt(tok, "expected %s, found %q", what, tok.text)
	}
	return tok, nil
}

func (p *parser) errorAt(tok token, format string, args ...any) *CompileError {
	return newError(KindSyntax, tok.loc, p.source, format, args...)
}

// endLocation is the position just past the last byte of the definition.
func (p *parser) endLocation() SourceLocation {
	line := 1 + strings.Count(p.source, "\n")
	col := len(p.source) - strings.LastIndex(p.source, "\n")
	return SourceLocation{File: p.file, Offset: len(p.source), Line: line, Column: col}
}

// parseProperty parses the remainder of a property declaration after the keyword.
func (p *parser) parseProperty() (PropertyDeclaration, error) {
	name, err := p.expect(tokenIdent, "", "a property name")
	if err != nil {
		return PropertyDeclaration{}, err
	}
	if _, err := p.expect(tokenPunct, ":", "':' after the property name"); err != nil {
		return PropertyDeclaration{}, err
	}
	typeTok, err := p.expect(tokenIdent, "", "a property type")
	if err != nil {
		return PropertyDeclaration{}, err
	}
	typ, ok := ParseValueType(typeTok.text)
	if !ok {
		return PropertyDeclaration{}, p.errorAt(typeTok, "unknown property type %q (expected one of %s)", typeTok.text, declarableTypeList())
	}
	prop := PropertyDeclaration{
		Name:         name.text,
		Type:         typ,
		Location:     name.loc,
		TypeLocation: typeTok.loc,
	}

	if tok, ok := p.peek(); ok && tok.is("=") {
		p.next()
		lit, err := p.parseLiteral()
		if err != nil {
			return PropertyDeclaration{}, err
		}
		if typ.IsTexture() {
			return PropertyDeclaration{}, newError(KindSyntax, lit.Location, p.source, "%s property %q cannot have a default value", typ, prop.Name)
		}
		if len(lit.Values) != typ.Components() {
			return PropertyDeclaration{}, newError(KindSyntax, lit.Location, p.source,
				"default of %s property %q needs %d components, found %d", typ, prop.Name, typ.Components(), len(lit.Values))
		}
		prop.Default = lit
	}

	if _, err := p.expect(tokenPunct, ";", "';' after the property declaration"); err != nil {
		return PropertyDeclaration{}, err
	}
	return prop, nil
}

// parseLiteral parses a number or a parenthesised, comma-separated list of numbers.
func (p *parser) parseLiteral() (*Literal, error) {
	tok, ok := p.next()
	if !ok {
		return nil, newError(KindSyntax, p.endLocation(), p.source, "expected a default value, found end of input")
	}
	lit := &Literal{Location: tok.loc}
	switch {
	case tok.kind == tokenNumber:
		v, err := p.number(tok)
		if err != nil {
			return nil, err
		}
		lit.Values = []float32{v}
		return lit, nil
	case tok.is("("):
		for {
			numTok, err := p.expect(tokenNumber, "", "a number")
			if err != nil {
				return nil, err
			}
			v, err := p.number(numTok)
			if err != nil {
				return nil, err
			}
			lit.Values = append(lit.Values, v)
			sep, ok := p.next()
			if !ok {
				return nil, newError(KindSyntax, p.endLocation(), p.source, "expected ',' or ')', found end of input")
			}
			if sep.is(")") {
				return lit, nil
			}
			if !sep.is(",") {
				return nil, p.errorAt(sep, "expected ',' or ')', found %q", sep.text)
			}
		}
	default:
		return nil, p.errorAt(tok, "expected a default value, found %q", tok.text)
	}
}

func (p *parser) number(tok token) (float32, error) {
	v, err := strconv.ParseFloat(tok.text, 32)
	if err != nil {
		return 0, p.errorAt(tok, "invalid number %q", tok.text)
	}
	return float32(v), nil
}

// parseProgram parses a program block whose `program` keyword has already been consumed.
// The body is kept as raw tokens between the outer braces.
func (p *parser) parseProgram(keyword token) (*StageDefinition, error) {
	nameTok, err := p.expect(tokenIdent, "", "a program stage (vert or frag)")
	if err != nil {
		return nil, err
	}
	stage := &StageDefinition{Location: keyword.loc}
	switch nameTok.text {
	case "vert":
		stage.Kind = StageVertex
	case "frag":
		stage.Kind = StageFragment
	default:
		return nil, p.errorAt(nameTok, "unknown program stage %q (expected vert or frag)", nameTok.text)
	}
	open, err := p.expect(tokenOpen, "", "'{' to open the program body")
	if err != nil {
		return nil, err
	}

	depth := 1
	for p.pos < len(p.tokens) {
		tok := p.tokens[p.pos]
		p.pos++
		switch tok.kind {
		case tokenOpen:
			depth++
		case tokenClose:
			depth--
		}
		if depth == 0 {
			stage.BodyText = p.source[open.loc.Offset+1 : tok.loc.Offset]
			if err := p.scanBody(stage); err != nil {
				return nil, err
			}
			return stage, nil
		}
		stage.tokens = append(stage.tokens, tok)
	}
	return nil, p.errorAt(open, "unclosed program %s block", stage.Kind)
}

// scanBody records the intrinsic references and typed qualifiers of a program body.
func (p *parser) scanBody(stage *StageDefinition) error {
	intrinsicAt := make(map[int]int)
	for i, tok := range stage.tokens {
		switch tok.kind {
		case tokenStrayAt:
			return p.errorAt(tok, "expected a name after '@'")
		case tokenIntrinsic:
			ref := IntrinsicReference{Location: tok.loc, token: i}
			ns, field, found := strings.Cut(tok.text[1:], ".")
			if found {
				ref.Namespace, ref.Field = ns, field
			} else {
				ref.Field = ns
			}
			intrinsicAt[i] = len(stage.Intrinsics)
			stage.Intrinsics = append(stage.Intrinsics, ref)
		}
	}

	toks := stage.tokens
	for i, tok := range toks {
		if tok.kind != tokenIdent || (tok.text != "out" && tok.text != "in") || !statementStart(toks, i) {
			continue
		}
		j := nextSignificant(toks, i)
		if j < 0 || toks[j].kind != tokenIdent {
			continue
		}
		k := nextSignificant(toks, j)
		if k < 0 || toks[k].kind != tokenIntrinsic {
			continue
		}
		q, err := p.qualifier(stage, i, j, k)
		if err != nil {
			return err
		}
		ref := stage.Intrinsics[intrinsicAt[k]]
		if ref.Namespace != "vertex" {
			return newError(KindSyntax, ref.Location, p.source, "`%s` must qualify a @vertex field, found %s", tok.text, ref.Text())
		}
		q.Field = ref.Field
		stage.Qualifiers = append(stage.Qualifiers, q)
	}
	return nil
}

// qualifier validates a `out|in <Type> @ref` pattern starting at token i.
func (p *parser) qualifier(stage *StageDefinition, i, j, k int) (Qualifier, error) {
	toks := stage.tokens
	q := Qualifier{Direction: QualifierOut, Location: toks[i].loc, start: i, ref: k}
	if toks[i].text == "in" {
		q.Direction = QualifierIn
	}
	if q.Direction == QualifierOut && stage.Kind != StageVertex {
		return q, p.errorAt(toks[i], "`out` declarations are only valid in the vertex program")
	}
	if q.Direction == QualifierIn && stage.Kind != StageFragment {
		return q, p.errorAt(toks[i], "`in` declarations are only valid in the fragment program")
	}

	typ, ok := ParseValueType(toks[j].text)
	if !ok {
		return q, p.errorAt(toks[j], "unknown interface type %q (expected one of %s)", toks[j].text, declarableTypeList())
	}
	if typ.IsTexture() {
		return q, p.errorAt(toks[j], "%s values cannot cross between programs", typ)
	}
	q.Type = typ

	m := nextSignificant(toks, k)
	switch {
	case m >= 0 && toks[m].is(";"):
		q.DeclarationOnly = true
		q.end = m
	case m >= 0 && toks[m].kind == tokenAssign && toks[m].text == "=" && q.Direction == QualifierOut:
		q.end = k - 1
	case m >= 0 && toks[m].kind == tokenAssign:
		return q, p.errorAt(toks[m], "`%s` declarations cannot be assigned", toks[i].text)
	case m >= 0:
		return q, p.errorAt(toks[m], "expected ';' or '=' after %s, found %q", toks[k].text, toks[m].text)
	default:
		return q, p.errorAt(toks[k], "expected ';' after %s", toks[k].text)
	}
	return q, nil
}

// declarableTypeList renders the closed set of property types for error messages.
func declarableTypeList() string {
	var names []string
	for t := range valueTypeTable {
		if valueTypeTable[t].declarable {
			names = append(names, valueTypeTable[t].name)
		}
	}
	return strings.Join(names, ", ")
}

// nextSignificant returns the index of the first non-trivia token after i, or -1.
func nextSignificant(toks []token, i int) int {
	for j := i + 1; j < len(toks); j++ {
		if !toks[j].trivia() {
			return j
		}
	}
	return -1
}

// prevSignificant returns the index of the last non-trivia token before i, or -1.
func prevSignificant(toks []token, i int) int {
	for j := i - 1; j >= 0; j-- {
		if !toks[j].trivia() {
			return j
		}
	}
	return -1
}

// statementStart reports whether token i begins a statement.
func statementStart(toks []token, i int) bool {
	j := prevSignificant(toks, i)
	if j < 0 {
		return true
	}
	t := toks[j]
	return t.is(";") || t.kind == tokenOpen || t.kind == tokenClose
}
