package loader

import (
	"io/fs"
	"strings"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-matc/engine/profiler"
	"github.com/Carmen-Shannon/oxy-matc/engine/renderer/shader"
)

// LoaderBuilderOption is a functional option for configuring a Loader via NewLoader.
type LoaderBuilderOption func(*loader)

// WithCompiler is an option builder that sets the compiler used for every definition.
//
// Parameters:
//   - c: the compiler instance
//
// Returns:
//   - LoaderBuilderOption: a function that applies the compiler option to a loader
func WithCompiler(c shader.Compiler) LoaderBuilderOption {
	return func(l *loader) {
		l.compiler = c
	}
}

// WithWorkers is an option builder that sets the size of the loader's own worker pool.
// It has no effect when WithWorkerPool is also given.
//
// Parameters:
//   - n: the maximum number of concurrent compilations
//
// Returns:
//   - LoaderBuilderOption: a function that applies the worker count option to a loader
func WithWorkers(n int) LoaderBuilderOption {
	return func(l *loader) {
		l.workers = n
	}
}

// WithWorkerPool is an option builder that shares an existing worker pool with the loader
// instead of creating one.
//
// Parameters:
//   - pool: the pool compilations are submitted to
//
// Returns:
//   - LoaderBuilderOption: a function that applies the pool option to a loader
func WithWorkerPool(pool worker.DynamicWorkerPool) LoaderBuilderOption {
	return func(l *loader) {
		l.pool = pool
	}
}

// WithFS is an option builder that makes LoadFiles read from a file system such as an
// embed.FS instead of the operating system.
//
// Parameters:
//   - fsys: the file system to read definitions from
//
// Returns:
//   - LoaderBuilderOption: a function that applies the file system option to a loader
func WithFS(fsys fs.FS) LoaderBuilderOption {
	return func(l *loader) {
		l.backend = fsBackend{fsys: fsys}
	}
}

// WithProfiler is an option builder that records every compilation in a profiler and
// ticks it after each batch.
//
// Parameters:
//   - p: the profiler
//
// Returns:
//   - LoaderBuilderOption: a function that applies the profiler option to a loader
func WithProfiler(p *profiler.Profiler) LoaderBuilderOption {
	return func(l *loader) {
		l.profiler = p
	}
}

// WithExtensions is an option builder that replaces the file extensions LoadFiles accepts.
//
// Parameters:
//   - exts: extensions including the leading dot, e.g. ".material"
//
// Returns:
//   - LoaderBuilderOption: a function that applies the extensions option to a loader
func WithExtensions(exts ...string) LoaderBuilderOption {
	return func(l *loader) {
		l.extensions = make(map[string]bool, len(exts))
		for _, ext := range exts {
			l.extensions[strings.ToLower(ext)] = true
		}
	}
}

// WithProgram is an option builder that pre-populates the program cache.
//
// Parameters:
//   - prog: the program to cache under its name
//
// Returns:
//   - LoaderBuilderOption: a function that applies the program option to a loader
func WithProgram(prog shader.Program) LoaderBuilderOption {
	return func(l *loader) {
		l.cache[prog.Name()] = cacheEntry{program: prog}
	}
}
