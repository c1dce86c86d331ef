package shader

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestCompileErrorUnwrap(t *testing.T) {
	kinds := []struct {
		kind     ErrorKind
		sentinel error
	}{
		{KindSyntax, ErrSyntax},
		{KindDuplicateSymbol, ErrDuplicateSymbol},
		{KindMissingStage, ErrMissingStage},
		{KindUnresolvedReference, ErrUnresolvedReference},
		{KindTypeMismatch, ErrTypeMismatch},
		{KindMissingOutput, ErrMissingOutput},
	}
	for _, k := range kinds {
		err := fmt.Errorf("loading: %w", newError(k.kind, SourceLocation{Line: 1, Column: 1}, "", "boom"))
		if !errors.Is(err, k.sentinel) {
			t.Errorf("%s does not unwrap to its sentinel", k.kind)
		}
		for _, other := range kinds {
			if other.kind != k.kind && errors.Is(err, other.sentinel) {
				t.Errorf("%s also matches %s", k.kind, other.kind)
			}
		}
		if k.kind.String() != k.sentinel.Error() {
			t.Errorf("kind string %q != sentinel %q", k.kind.String(), k.sentinel.Error())
		}
	}
	if ErrorKind(0).String() != "unknown error" {
		t.Errorf("zero kind string = %q", ErrorKind(0).String())
	}
}

func TestCompileErrorMessage(t *testing.T) {
	err := newError(KindDuplicateSymbol, SourceLocation{File: "a.material", Line: 3, Column: 10}, "", "property %q is already defined", "x")
	err.Conflict = `property "x"`
	err.ConflictLocation = &SourceLocation{File: "a.material", Line: 1, Column: 10}

	want := `a.material:3:10: duplicate symbol: property "x" is already defined (conflicts with property "x" at a.material:1:10)`
	if err.Error() != want {
		t.Errorf("Error() = %q\nwant      %q", err.Error(), want)
	}

	bare := newError(KindSyntax, SourceLocation{Line: 2, Column: 5}, "", "oops")
	if bare.Error() != "2:5: syntax error: oops" {
		t.Errorf("Error() = %q", bare.Error())
	}
}

func TestFormatWithContext(t *testing.T) {
	src := "property a: f32;\nproperty b: Float;\n"
	_, err := parseDocument("ctx.material", src)
	var cerr *CompileError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected *CompileError, got %v", err)
	}
	got := cerr.FormatWithContext()
	lines := strings.Split(got, "\n")
	if len(lines) < 5 {
		t.Fatalf("unexpected rendering:\n%s", got)
	}
	if !strings.HasPrefix(lines[0], "error: ctx.material:2:13: syntax error:") {
		t.Errorf("first line = %q", lines[0])
	}
	if lines[1] != "  --> ctx.material:2:13" {
		t.Errorf("location line = %q", lines[1])
	}
	if lines[3] != "  2| property b: Float;" {
		t.Errorf("source line = %q", lines[3])
	}
	if lines[4] != "   | "+strings.Repeat(" ", 12)+"^" {
		t.Errorf("caret line = %q", lines[4])
	}

	noSource := newError(KindSyntax, SourceLocation{Line: 1, Column: 1}, "", "x")
	if noSource.FormatWithContext() != noSource.Error() {
		t.Error("an error without source should render as Error()")
	}
}
