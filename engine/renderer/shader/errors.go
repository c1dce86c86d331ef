package shader

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors, one per failure class. Every *CompileError unwraps to exactly one of
// them so callers can classify failures with errors.Is.
var (
	// ErrSyntax marks a malformed declaration or program block.
	ErrSyntax = errors.New("syntax error")

	// ErrDuplicateSymbol marks a property colliding with another property, an engine global, or a reserved name.
	ErrDuplicateSymbol = errors.New("duplicate symbol")

	// ErrMissingStage marks an absent or duplicated vertex or fragment program.
	ErrMissingStage = errors.New("missing stage")

	// ErrUnresolvedReference marks an intrinsic reference that names no known symbol.
	ErrUnresolvedReference = errors.New("unresolved reference")

	// ErrTypeMismatch marks an interface value whose producer and consumer types disagree,
	// or whose type cannot be determined.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrMissingOutput marks a fragment program that never writes @color.
	ErrMissingOutput = errors.New("missing output")
)

// ErrorKind classifies a CompileError.
type ErrorKind int

const (
	// KindSyntax is reported by the lexer and parser.
	KindSyntax ErrorKind = iota + 1

	// KindDuplicateSymbol is reported by the symbol table builder, and for @vertex fields
	// named after a reserved word or prefix.
	KindDuplicateSymbol

	// KindMissingStage is reported by the parser once the whole document has been read.
	KindMissingStage

	// KindUnresolvedReference is reported by the stage interface resolver.
	KindUnresolvedReference

	// KindTypeMismatch is reported by the stage interface resolver.
	KindTypeMismatch

	// KindMissingOutput is reported by the stage interface resolver.
	KindMissingOutput
)

// sentinel returns the package-level error value matching the kind.
func (k ErrorKind) sentinel() error {
	switch k {
	case KindSyntax:
		return ErrSyntax
	case KindDuplicateSymbol:
		return ErrDuplicateSymbol
	case KindMissingStage:
		return ErrMissingStage
	case KindUnresolvedReference:
		return ErrUnresolvedReference
	case KindTypeMismatch:
		return ErrTypeMismatch
	case KindMissingOutput:
		return ErrMissingOutput
	default:
		return nil
	}
}

// String returns a short human-readable name for the kind.
func (k ErrorKind) String() string {
	if err := k.sentinel(); err != nil {
		return err.Error()
	}
	return "unknown error"
}

// SourceLocation is a position within the original shader definition text.
// Line and Column are 1-based; Offset is the 0-based byte offset.
type SourceLocation struct {
	File   string
	Offset int
	Line   int
	Column int
}

// String renders the location as file:line:col, omitting the file when unknown.
func (l SourceLocation) String() string {
	if l.File == "" {
		return fmt.Sprintf("%d:%d", l.Line, l.Column)
	}
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
}

// CompileError is the single failure value returned by a failed compilation. It carries
// the classified reason, the location of the offending construct, and for duplicate
// symbols the name and location of whatever it conflicts with.
type CompileError struct {
	// Kind classifies the failure.
	Kind ErrorKind

	// Message describes the problem for the shader's author.
	Message string

	// Location points at the offending construct.
	Location SourceLocation

	// Conflict names the other party of a duplicate symbol, e.g. `engine global "global_ambient"`.
	Conflict string

	// ConflictLocation is the location of the earlier declaration, or nil when the conflict
	// is with an engine global or reserved name that has no source text.
	ConflictLocation *SourceLocation

	// Source is the original definition text, kept for FormatWithContext.
	Source string
}

// Error implements the error interface.
func (e *CompileError) Error() string {
	msg := fmt.Sprintf("%s: %s: %s", e.Location, e.Kind, e.Message)
	if e.Conflict != "" {
		msg += " (conflicts with " + e.Conflict
		if e.ConflictLocation != nil {
			msg += " at " + e.ConflictLocation.String()
		}
		msg += ")"
	}
	return msg
}

// Unwrap returns the sentinel error of the kind, enabling errors.Is checks.
func (e *CompileError) Unwrap() error {
	return e.Kind.sentinel()
}

// FormatWithContext returns the error message followed by the offending source line
// with a caret under the reported column.
//
// Returns:
//   - string: the multi-line, human-readable rendering of the error
func (e *CompileError) FormatWithContext() string {
	if e.Source == "" || e.Location.Line == 0 {
		return e.Error()
	}
	lines := strings.Split(e.Source, "\n")
	lineNum := e.Location.Line
	if lineNum < 1 || lineNum > len(lines) {
		return e.Error()
	}
	line := lines[lineNum-1]
	col := max(e.Location.Column, 1)
	col = min(col, len(line)+1)

	var sb strings.Builder
	fmt.Fprintf(&sb, "error: %s\n", e.Error())
	fmt.Fprintf(&sb, "  --> %s\n", e.Location)
	sb.WriteString("   |\n")
	fmt.Fprintf(&sb, "%3d| %s\n", lineNum, line)
	fmt.Fprintf(&sb, "   | %s^\n", strings.Repeat(" ", col-1))
	return sb.String()
}

// newError builds a CompileError of the given kind with a formatted message.
func newError(kind ErrorKind, loc SourceLocation, source string, format string, args ...any) *CompileError {
	return &CompileError{
		Kind:     kind,
		Message:  fmt.Sprintf(format, args...),
		Location: loc,
		Source:   source,
	}
}
