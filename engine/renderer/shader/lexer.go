package shader

import (
	"errors"
	"unicode/utf8"

	"github.com/alecthomas/participle/v2/lexer"
)

// tokenKind classifies a lexed token of a shader definition.
type tokenKind int

const (
	tokenInvalid tokenKind = iota
	tokenWhitespace
	tokenComment
	tokenIdent
	tokenNumber
	tokenIntrinsic
	tokenStrayAt
	tokenAssign
	tokenCompare
	tokenPunct
	tokenOpen
	tokenClose
)

// definitionLexer tokenizes shader definitions. The Root state covers declarations; an
// opening brace pushes the Body state, which keeps every byte of program text as a token
// so bodies can be reassembled verbatim, and nested braces push and pop Body again.
// Rules sharing a name across states must share a pattern, so Root's narrower number and
// punctuation rules carry their own names. Only @vertex and @mesh take a field; any other
// @name followed by '.' is a member access on the reference.
var definitionLexer = lexer.MustStateful(lexer.Rules{
	"Root": {
		{Name: "Whitespace", Pattern: `\s+`},
		{Name: "LineComment", Pattern: `//[^\n]*`},
		{Name: "BlockComment", Pattern: `/\*(?s:.*?)\*/`},
		{Name: "Ident", Pattern: `[A-Za-z_]\w*`},
		{Name: "RootNumber", Pattern: `-?(?:\d+\.\d*|\.\d+|\d+)(?:[eE][+-]?\d+)?`},
		{Name: "RootPunct", Pattern: `[:;=(),]`},
		{Name: "Open", Pattern: `\{`, Action: lexer.Push("Body")},
	},
	"Body": {
		{Name: "Whitespace", Pattern: `\s+`},
		{Name: "LineComment", Pattern: `//[^\n]*`},
		{Name: "BlockComment", Pattern: `/\*(?s:.*?)\*/`},
		{Name: "Intrinsic", Pattern: `@(?:vertex|mesh)\.[A-Za-z_]\w*|@[A-Za-z_]\w*`},
		{Name: "StrayAt", Pattern: `@`},
		{Name: "Ident", Pattern: `[A-Za-z_]\w*`},
		{Name: "Number", Pattern: `0[xX][0-9a-fA-F]+[iu]?|(?:\d+\.\d*|\.\d+|\d+)(?:[eE][+-]?\d+)?[fhiu]?`},
		{Name: "Open", Pattern: `\{`, Action: lexer.Push("Body")},
		{Name: "Close", Pattern: `\}`, Action: lexer.Pop()},
		{Name: "Compare", Pattern: `==|!=|<=|>=`},
		{Name: "Assign", Pattern: `<<=|>>=|[-+*/%&|^]?=`},
		{Name: "Punct", Pattern: `[^\s\w@{}]`},
	},
})

// tokenKinds maps the lexer's symbol table onto tokenKind.
var tokenKinds = func() map[lexer.TokenType]tokenKind {
	names := map[string]tokenKind{
		"Whitespace":   tokenWhitespace,
		"LineComment":  tokenComment,
		"BlockComment": tokenComment,
		"Ident":        tokenIdent,
		"Number":       tokenNumber,
		"RootNumber":   tokenNumber,
		"Intrinsic":    tokenIntrinsic,
		"StrayAt":      tokenStrayAt,
		"Assign":       tokenAssign,
		"Compare":      tokenCompare,
		"Punct":        tokenPunct,
		"RootPunct":    tokenPunct,
		"Open":         tokenOpen,
		"Close":        tokenClose,
	}
	kinds := make(map[lexer.TokenType]tokenKind, len(names))
	for name, tt := range definitionLexer.Symbols() {
		if k, ok := names[name]; ok {
			kinds[tt] = k
		}
	}
	return kinds
}()

// token is a single lexeme of a shader definition with its source location.
type token struct {
	kind tokenKind
	text string
	loc  SourceLocation
}

// trivia reports whether the token carries no meaning for parsing.
func (t token) trivia() bool {
	return t.kind == tokenWhitespace || t.kind == tokenComment
}

// is reports whether the token is the given punctuation, keyword, or operator text.
func (t token) is(text string) bool {
	return t.kind != tokenComment && t.text == text
}

// tokenize lexes a whole shader definition, including trivia. Bytes that no Root rule
// accepts, such as a stray closing brace, are reported as a syntax error.
func tokenize(file, source string) ([]token, error) {
	lex, err := definitionLexer.LexString(file, source)
	if err != nil {
		return nil, lexerError(err, file, source)
	}
	var tokens []token
	for {
		tok, err := lex.Next()
		if err != nil {
			return nil, lexerError(err, file, source)
		}
		if tok.EOF() {
			return tokens, nil
		}
		tokens = append(tokens, token{
			kind: tokenKinds[tok.Type],
			text: tok.Value,
			loc:  locationOf(tok.Pos),
		})
	}
}

// lexerError converts a participle lexing failure into a syntax error.
func lexerError(err error, file, source string) error {
	var lerr *lexer.Error
	if !errors.As(err, &lerr) {
		return newError(KindSyntax, SourceLocation{File: file, Line: 1, Column: 1}, source, "%v", err)
	}
	loc := locationOf(lerr.Pos)
	if loc.Offset < len(source) {
		r, _ := utf8.DecodeRuneInString(source[loc.Offset:])
		return newError(KindSyntax, loc, source, "unexpected character %q", r)
	}
	return newError(KindSyntax, loc, source, "%s", lerr.Msg)
}

func locationOf(pos lexer.Position) SourceLocation {
	return SourceLocation{
		File:   pos.Filename,
		Offset: pos.Offset,
		Line:   pos.Line,
		Column: pos.Column,
	}
}
