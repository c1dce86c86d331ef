package shader

import (
	"github.com/Carmen-Shannon/oxy-matc/common"
)

// compiler is the implementation of the Compiler interface. It holds configuration only;
// every compilation builds and discards its own symbol table and interface slots.
type compiler struct {
	globals       *GlobalTable
	profile       string
	extensions    []string
	vertexEntry   string
	fragmentEntry string
	globalGroup   int
	propertyGroup int
}

// Compiler turns shader definitions into WGSL programs. A Compiler is immutable after
// construction and safe for concurrent use; compilations share nothing but the engine
// global table.
type Compiler interface {
	// Parse reads a shader definition into a Document without resolving it.
	//
	// Parameters:
	//   - file: the name reported in source locations, typically the definition's path
	//   - source: the definition text
	//
	// Returns:
	//   - *Document: the parsed definition
	//   - error: a *CompileError of kind KindSyntax or KindMissingStage
	Parse(file, source string) (*Document, error)

	// Compile parses, resolves, and generates a definition in one step.
	//
	// Parameters:
	//   - name: the program name, also used as the file name in source locations
	//   - source: the definition text
	//
	// Returns:
	//   - Program: the compiled program
	//   - error: a *CompileError describing the first failure
	Compile(name, source string) (Program, error)

	// CompileDocument resolves and generates an already parsed definition. The document
	// is not modified.
	//
	// Parameters:
	//   - name: the program name
	//   - doc: a document returned by Parse
	//
	// Returns:
	//   - Program: the compiled program
	//   - error: a *CompileError describing the first failure, of kind KindMissingStage
	//     when doc or one of its stages is nil
	CompileDocument(name string, doc *Document) (Program, error)

	// Globals returns the engine-global table the compiler resolves against.
	//
	// Returns:
	//   - *GlobalTable: the shared table
	Globals() *GlobalTable
}

var _ Compiler = &compiler{}

// NewCompiler creates a Compiler targeting WGSL with the default engine globals, the
// `wgsl` profile marker, entry points vs_main and fs_main, engine globals in group 0,
// and properties in group 1, then applies the options.
//
// Parameters:
//   - options: variadic list of CompilerBuilderOption functions to configure the compiler
//
// Returns:
//   - Compiler: the configured compiler
func NewCompiler(options ...CompilerBuilderOption) Compiler {
	c := &compiler{
		globals:       DefaultGlobals(),
		profile:       "wgsl",
		vertexEntry:   "vs_main",
		fragmentEntry: "fs_main",
		globalGroup:   0,
		propertyGroup: 1,
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

func (c *compiler) Parse(file, source string) (*Document, error) {
	return parseDocument(file, source)
}

func (c *compiler) Compile(name, source string) (Program, error) {
	doc, err := parseDocument(name, source)
	if err != nil {
		return nil, err
	}
	return c.CompileDocument(name, doc)
}

func (c *compiler) CompileDocument(name string, doc *Document) (Program, error) {
	if doc == nil {
		return nil, newError(KindMissingStage, SourceLocation{File: name, Line: 1, Column: 1}, "", "document is nil")
	}
	for _, kind := range []StageKind{StageVertex, StageFragment} {
		if doc.Stage(kind) == nil {
			loc := SourceLocation{File: doc.File, Line: 1, Column: 1}
			return nil, newError(KindMissingStage, loc, doc.Source, "definition has no `program %s` block", kind)
		}
	}
	symbols, err := BuildSymbolTable(doc, c.globals, c.vertexEntry, c.fragmentEntry)
	if err != nil {
		return nil, err
	}
	res, err := resolve(doc, symbols)
	if err != nil {
		return nil, err
	}

	props := bindProperties(doc.Properties, c.propertyGroup)
	g := &generator{cfg: c, res: res, properties: props}
	vertex, fragment := g.generate()
	prog := newProgram(name, c, res, props, vertex, fragment)

	common.Logger().Debug("compiled shader program",
		"name", name,
		"key", prog.key,
		"properties", len(props),
		"globals", len(prog.globals),
		"slots", len(res.slots),
	)
	return prog, nil
}

func (c *compiler) Globals() *GlobalTable {
	return c.globals
}
