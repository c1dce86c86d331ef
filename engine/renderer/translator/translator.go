package translator

import (
	"fmt"
	"slices"

	"github.com/Carmen-Shannon/oxy-matc/common"
	"github.com/Carmen-Shannon/oxy-matc/engine/renderer/shader"
	"github.com/gogpu/naga"
	"github.com/gogpu/naga/glsl"
	"github.com/gogpu/naga/ir"
	"github.com/gogpu/naga/spirv"
)

// stages lists the program stages in the order they are translated.
var stages = [2]shader.StageKind{shader.StageVertex, shader.StageFragment}

// StageError reports a failure of one stage of a program while validating or translating it.
type StageError struct {
	Program string
	Stage   shader.StageKind
	Phase   string
	Err     error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %s stage: %s: %v", e.Program, e.Stage, e.Phase, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// GLSLProgram holds the GLSL translation of both stages of a program.
type GLSLProgram struct {
	Version    glsl.Version
	Vertex     string
	Fragment   string
	Extensions []string
}

// SPIRVProgram holds the SPIR-V binaries of both stages of a program.
type SPIRVProgram struct {
	Vertex   []byte
	Fragment []byte
}

// translator is the implementation of the Translator interface.
type translator struct {
	validate     bool
	spirvVersion spirv.Version
	debug        bool
}

// Translator checks generated WGSL with naga and lowers it to other shading languages.
// A Translator holds configuration only and is safe for concurrent use.
type Translator interface {
	// Validate parses, lowers, and validates each stage of a program.
	//
	// Parameters:
	//   - prog: the compiled program
	//
	// Returns:
	//   - error: a *StageError naming the first stage that failed, nil if both are valid
	Validate(prog shader.Program) error

	// ToGLSL translates both stages of a program to GLSL.
	//
	// Parameters:
	//   - prog: the compiled program
	//   - version: the target GLSL version, e.g. glsl.Version330 or glsl.VersionES300
	//
	// Returns:
	//   - GLSLProgram: the stage texts
	//   - error: a *StageError naming the first stage that failed
	ToGLSL(prog shader.Program, version glsl.Version) (GLSLProgram, error)

	// ToSPIRV compiles both stages of a program to SPIR-V.
	//
	// Parameters:
	//   - prog: the compiled program
	//
	// Returns:
	//   - SPIRVProgram: the stage binaries
	//   - error: a *StageError naming the first stage that failed
	ToSPIRV(prog shader.Program) (SPIRVProgram, error)
}

var _ Translator = &translator{}

// NewTranslator creates a Translator that validates stages before translating them and
// targets SPIR-V 1.3, then applies the options.
//
// Parameters:
//   - options: variadic list of TranslatorBuilderOption functions to configure the translator
//
// Returns:
//   - Translator: the configured translator
func NewTranslator(options ...TranslatorBuilderOption) Translator {
	t := &translator{
		validate:     true,
		spirvVersion: spirv.Version1_3,
	}
	for _, opt := range options {
		opt(t)
	}
	return t
}

// lower runs one stage through the naga front end, validating the IR when asked to.
func (t *translator) lower(prog shader.Program, stage shader.StageKind, validate bool) (*ir.Module, error) {
	source := prog.Source(stage)
	ast, err := naga.Parse(source)
	if err != nil {
		return nil, &StageError{Program: prog.Name(), Stage: stage, Phase: "parse", Err: err}
	}
	module, err := naga.LowerWithSource(ast, source)
	if err != nil {
		return nil, &StageError{Program: prog.Name(), Stage: stage, Phase: "lower", Err: err}
	}
	if !validate {
		return module, nil
	}
	errs, err := naga.Validate(module)
	if err != nil {
		return nil, &StageError{Program: prog.Name(), Stage: stage, Phase: "validate", Err: err}
	}
	if len(errs) > 0 {
		return nil, &StageError{Program: prog.Name(), Stage: stage, Phase: "validate", Err: &errs[0]}
	}
	return module, nil
}

func (t *translator) Validate(prog shader.Program) error {
	if prog == nil {
		panic("translator: nil program")
	}
	for _, stage := range stages {
		if _, err := t.lower(prog, stage, true); err != nil {
			return err
		}
	}
	common.Logger().Debug("program validated", "program", prog.Name())
	return nil
}

func (t *translator) ToGLSL(prog shader.Program, version glsl.Version) (GLSLProgram, error) {
	if prog == nil {
		panic("translator: nil program")
	}
	if version.Major == 0 {
		version = glsl.Version330
	}
	out := GLSLProgram{Version: version}
	texts := [2]string{}
	for i, stage := range stages {
		module, err := t.lower(prog, stage, t.validate)
		if err != nil {
			return GLSLProgram{}, err
		}
		text, info, err := glsl.Compile(module, glsl.Options{
			LangVersion: version,
			EntryPoint:  prog.EntryPoint(stage),
		})
		if err != nil {
			return GLSLProgram{}, &StageError{Program: prog.Name(), Stage: stage, Phase: "glsl", Err: err}
		}
		texts[i] = text
		out.Extensions = appendMissing(out.Extensions, info.UsedExtensions)
	}
	out.Vertex, out.Fragment = texts[0], texts[1]

	common.Logger().Debug("program translated",
		"program", prog.Name(),
		"target", "glsl "+version.String(),
		"extensions", out.Extensions,
	)
	return out, nil
}

func (t *translator) ToSPIRV(prog shader.Program) (SPIRVProgram, error) {
	if prog == nil {
		panic("translator: nil program")
	}
	binaries := [2][]byte{}
	for i, stage := range stages {
		module, err := t.lower(prog, stage, t.validate)
		if err != nil {
			return SPIRVProgram{}, err
		}
		code, err := naga.GenerateSPIRV(module, spirv.Options{
			Version: t.spirvVersion,
			Debug:   t.debug,
		})
		if err != nil {
			return SPIRVProgram{}, &StageError{Program: prog.Name(), Stage: stage, Phase: "spirv", Err: err}
		}
		binaries[i] = code
	}

	common.Logger().Debug("program translated",
		"program", prog.Name(),
		"target", "spirv",
		"vertex_bytes", len(binaries[0]),
		"fragment_bytes", len(binaries[1]),
	)
	return SPIRVProgram{Vertex: binaries[0], Fragment: binaries[1]}, nil
}

// appendMissing appends the names not already present in dst.
func appendMissing(dst, names []string) []string {
	for _, n := range names {
		if !slices.Contains(dst, n) {
			dst = append(dst, n)
		}
	}
	return dst
}
