package loader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"testing"
	"testing/fstest"

	"github.com/Carmen-Shannon/oxy-matc/engine/profiler"
	"github.com/Carmen-Shannon/oxy-matc/engine/renderer/shader"
)

const flatSource = `property tint: Color = (1.0, 1.0, 1.0, 1.0);

program vert {
    @clip_position = model_view_projection * vec4<f32>(@mesh.position, 1.0);
}

program frag {
    @color = tint;
}
`

const vertexOnlySource = `program vert {
    @clip_position = vec4<f32>(@mesh.position, 1.0);
}
`

func TestLoadSourcesOrderAndErrors(t *testing.T) {
	l := NewLoader(WithWorkers(4))

	var sources []Source
	for i := range 12 {
		text := flatSource
		if i == 5 {
			text = vertexOnlySource
		}
		sources = append(sources, Source{Name: fmt.Sprintf("m%02d.material", i), Text: text})
	}

	results, err := l.LoadSources(context.Background(), sources)
	if err != nil {
		t.Fatalf("LoadSources failed: %v", err)
	}
	if len(results) != len(sources) {
		t.Fatalf("expected %d results, got %d", len(sources), len(results))
	}
	for i, r := range results {
		if r.Name != sources[i].Name {
			t.Errorf("result %d is %q, want %q", i, r.Name, sources[i].Name)
		}
		if i == 5 {
			if !errors.Is(r.Err, shader.ErrMissingStage) || r.Program != nil {
				t.Errorf("result 5: err %v, program %v", r.Err, r.Program)
			}
			continue
		}
		if r.Err != nil || r.Program == nil || r.Program.Name() != r.Name {
			t.Errorf("result %d: err %v", i, r.Err)
		}
	}

	if l.Get("m05.material") != nil {
		t.Error("a failed definition must not be cached")
	}
	if got := len(l.Programs()); got != 11 {
		t.Errorf("cache holds %d programs, want 11", got)
	}
}

func TestLoadSourcesCache(t *testing.T) {
	l := NewLoader(WithWorkers(2))
	ctx := context.Background()

	first, err := l.LoadSources(ctx, []Source{{Name: "flat", Text: flatSource}})
	if err != nil || first[0].Err != nil {
		t.Fatalf("first load: %v %v", err, first[0].Err)
	}
	second, _ := l.LoadSources(ctx, []Source{{Name: "flat", Text: flatSource}})
	if !second[0].Cached || second[0].Program != first[0].Program {
		t.Error("unchanged text should be served from the cache")
	}

	changed := flatSource + "// edited\n"
	third, _ := l.LoadSources(ctx, []Source{{Name: "flat", Text: changed}})
	if third[0].Cached || third[0].Program == first[0].Program {
		t.Error("changed text should be recompiled")
	}
	if l.Get("flat") != third[0].Program {
		t.Error("the cache should hold the latest program")
	}
}

func TestLoadFiles(t *testing.T) {
	fsys := fstest.MapFS{
		"materials/flat.material": {Data: []byte(flatSource)},
		"materials/flat.wgsl":     {Data: []byte("// not a definition")},
	}
	l := NewLoader(WithFS(fsys), WithWorkers(2))

	results, err := l.LoadFiles(context.Background(), []string{
		"materials/flat.material",
		"materials/flat.wgsl",
		"materials/missing.material",
	})
	if err != nil {
		t.Fatalf("LoadFiles failed: %v", err)
	}

	if results[0].Err != nil || results[0].Program.Name() != "materials/flat.material" {
		t.Errorf("flat.material: %v", results[0].Err)
	}
	if !errors.Is(results[1].Err, ErrUnsupportedFormat) {
		t.Errorf("flat.wgsl: expected ErrUnsupportedFormat, got %v", results[1].Err)
	}
	if !errors.Is(results[2].Err, fs.ErrNotExist) {
		t.Errorf("missing.material: expected fs.ErrNotExist, got %v", results[2].Err)
	}
}

func TestLoadFilesExtensions(t *testing.T) {
	fsys := fstest.MapFS{"flat.mat": {Data: []byte(flatSource)}}
	l := NewLoader(WithFS(fsys), WithExtensions(".MAT"))

	results, err := l.LoadFiles(context.Background(), []string{"flat.mat"})
	if err != nil || results[0].Err != nil {
		t.Fatalf("LoadFiles: %v %v", err, results[0].Err)
	}
}

func TestLoadCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := NewLoader().LoadSources(ctx, []Source{{Name: "flat", Text: flatSource}})
	if !errors.Is(err, context.Canceled) || results != nil {
		t.Errorf("expected context.Canceled and no results, got %v, %v", results, err)
	}
}

func TestLoaderProfiler(t *testing.T) {
	p := profiler.NewProfiler()
	l := NewLoader(WithProfiler(p))

	_, err := l.LoadSources(context.Background(), []Source{
		{Name: "a", Text: flatSource},
		{Name: "b", Text: vertexOnlySource},
	})
	if err != nil {
		t.Fatal(err)
	}
	stats := p.Flush()
	if stats.Compiled != 1 || stats.Failed != 1 {
		t.Errorf("profiler saw %d compiled, %d failed", stats.Compiled, stats.Failed)
	}
}

func TestWithProgram(t *testing.T) {
	prog, err := shader.NewCompiler().Compile("prebuilt", flatSource)
	if err != nil {
		t.Fatal(err)
	}
	l := NewLoader(WithProgram(prog))
	if l.Get("prebuilt") != prog {
		t.Error("WithProgram should seed the cache")
	}
	if l.Get("unknown") != nil {
		t.Error("unknown names return nil")
	}
}

func TestLoadExampleMaterials(t *testing.T) {
	fsys := os.DirFS("../../examples/materials")
	paths, err := fs.Glob(fsys, "*.material")
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) == 0 {
		t.Fatal("no example materials found")
	}

	results, err := NewLoader(WithFS(fsys)).LoadFiles(context.Background(), paths)
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range results {
		var ce *shader.CompileError
		if errors.As(r.Err, &ce) {
			t.Errorf("%s:\n%s", r.Name, ce.FormatWithContext())
		} else if r.Err != nil {
			t.Errorf("%s: %v", r.Name, r.Err)
		}
	}
}
