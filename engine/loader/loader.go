package loader

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-matc/common"
	"github.com/Carmen-Shannon/oxy-matc/engine/profiler"
	"github.com/Carmen-Shannon/oxy-matc/engine/renderer/shader"
)

// ErrUnsupportedFormat is returned for files whose extension the loader does not accept.
var ErrUnsupportedFormat = errors.New("unsupported definition format")

// Source is one definition to compile.
type Source struct {
	Name string
	Text string
}

// Result is the outcome of compiling one definition of a batch.
type Result struct {
	Name     string
	Program  shader.Program
	Err      error
	Duration time.Duration
	Cached   bool
}

// cacheEntry pairs a compiled program with the text it was compiled from.
type cacheEntry struct {
	source  string
	program shader.Program
}

// loader is the implementation of the Loader interface.
type loader struct {
	mu sync.RWMutex

	compiler   shader.Compiler
	pool       worker.DynamicWorkerPool
	workers    int
	backend    sourceBackend
	profiler   *profiler.Profiler
	extensions map[string]bool

	cache map[string]cacheEntry
}

// Loader compiles batches of shader definitions concurrently and caches the resulting
// programs by name. A definition whose text is unchanged since its last successful
// compilation is served from the cache.
type Loader interface {
	// LoadSources compiles definitions held in memory. Results are returned in input order;
	// a definition that fails to compile carries its error in its Result and does not stop
	// the rest of the batch.
	//
	// Parameters:
	//   - ctx: cancelling the context stops waiting for the batch
	//   - sources: the definitions to compile
	//
	// Returns:
	//   - []Result: one result per source, in input order
	//   - error: the context error if ctx was cancelled before the batch finished
	LoadSources(ctx context.Context, sources []Source) ([]Result, error)

	// LoadFiles reads and compiles definition files. Each program is named by its path.
	// Read failures and unsupported extensions are reported per file like compile errors.
	//
	// Parameters:
	//   - ctx: cancelling the context stops waiting for the batch
	//   - paths: the files to load
	//
	// Returns:
	//   - []Result: one result per path, in input order
	//   - error: the context error if ctx was cancelled before the batch finished
	LoadFiles(ctx context.Context, paths []string) ([]Result, error)

	// Get retrieves a cached program by name. Returns nil if not found.
	//
	// Parameters:
	//   - name: the program name
	//
	// Returns:
	//   - shader.Program: the cached program or nil
	Get(name string) shader.Program

	// Programs returns a copy of the program cache.
	//
	// Returns:
	//   - map[string]shader.Program: all cached programs keyed by name
	Programs() map[string]shader.Program
}

var _ Loader = &loader{}

// NewLoader creates a new Loader with the options applied. Without options it compiles
// with shader.NewCompiler(), reads from the operating system, accepts the .material
// extension, and runs one worker per CPU.
//
// Parameters:
//   - options: a variadic list of LoaderBuilderOption functions to configure the Loader
//
// Returns:
//   - Loader: a new instance of Loader
func NewLoader(options ...LoaderBuilderOption) Loader {
	l := &loader{
		workers:    runtime.NumCPU(),
		backend:    osBackend{},
		extensions: map[string]bool{".material": true},
		cache:      make(map[string]cacheEntry),
	}

	for _, option := range options {
		option(l)
	}

	if l.compiler == nil {
		l.compiler = shader.NewCompiler()
	}
	if l.pool == nil {
		l.pool = worker.NewDynamicWorkerPool(l.workers, 256, time.Second)
	}
	return l
}

func (l *loader) LoadSources(ctx context.Context, sources []Source) ([]Result, error) {
	name := func(i int) string { return sources[i].Name }
	return l.run(ctx, len(sources), name, func(i int) Result {
		return l.compile(sources[i].Name, sources[i].Text)
	})
}

func (l *loader) LoadFiles(ctx context.Context, paths []string) ([]Result, error) {
	name := func(i int) string { return paths[i] }
	return l.run(ctx, len(paths), name, func(i int) Result {
		path := paths[i]
		if err := l.checkExtension(path); err != nil {
			return Result{Name: path, Err: err}
		}
		text, err := l.backend.Read(path)
		if err != nil {
			return Result{Name: path, Err: fmt.Errorf("failed to load %s: %w", path, err)}
		}
		return l.compile(path, text)
	})
}

func (l *loader) Get(name string) shader.Program {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.cache[name].program
}

func (l *loader) Programs() map[string]shader.Program {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make(map[string]shader.Program, len(l.cache))
	for k, v := range l.cache {
		result[k] = v.program
	}
	return result
}

// run submits n items to the worker pool and waits for all of them. The pool's own Wait
// would also wait on unrelated tasks of a shared pool, so a WaitGroup tracks the batch.
func (l *loader) run(ctx context.Context, n int, name func(i int) string, do func(i int) Result) ([]Result, error) {
	start := time.Now()
	results := make([]Result, n)

	var wg sync.WaitGroup
	submitted := 0
	for i := range n {
		if ctx.Err() != nil {
			break
		}
		submitted++
		wg.Add(1)
		l.pool.SubmitTask(worker.Task{
			ID: i,
			Do: func() (any, error) {
				defer wg.Done()
				if err := ctx.Err(); err != nil {
					results[i] = Result{Name: name(i), Err: err}
					return nil, err
				}
				results[i] = do(i)
				return results[i].Program, results[i].Err
			},
		})
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		common.Logger().Warn("batch cancelled", "definitions", n, "error", ctx.Err())
		return nil, ctx.Err()
	}
	if submitted < n {
		return nil, ctx.Err()
	}

	failed, cached := 0, 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
		if r.Cached {
			cached++
		}
	}
	common.Logger().Info("batch compiled",
		"definitions", n,
		"failed", failed,
		"cached", cached,
		"elapsed", time.Since(start),
	)
	if l.profiler != nil {
		l.profiler.Tick()
	}
	return results, nil
}

// compile returns the cached program for an unchanged definition, or compiles and caches it.
func (l *loader) compile(name, text string) Result {
	l.mu.RLock()
	entry, ok := l.cache[name]
	l.mu.RUnlock()
	if ok && entry.program != nil && entry.source == text {
		return Result{Name: name, Program: entry.program, Cached: true}
	}

	start := time.Now()
	prog, err := l.compiler.Compile(name, text)
	elapsed := time.Since(start)
	if l.profiler != nil {
		l.profiler.Record(name, elapsed, err)
	}
	if err != nil {
		common.Logger().Warn("definition failed to compile", "name", name, "error", err)
		return Result{Name: name, Err: err, Duration: elapsed}
	}

	l.mu.Lock()
	l.cache[name] = cacheEntry{source: text, program: prog}
	l.mu.Unlock()

	return Result{Name: name, Program: prog, Duration: elapsed}
}

// checkExtension rejects paths whose extension is not accepted.
func (l *loader) checkExtension(path string) error {
	ext := strings.ToLower(filepath.Ext(path))
	if !l.extensions[ext] {
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, path)
	}
	return nil
}
