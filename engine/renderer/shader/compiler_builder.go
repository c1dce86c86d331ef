package shader

import "slices"

// CompilerBuilderOption is a function that configures a compiler during construction.
type CompilerBuilderOption func(*compiler)

// WithProfile is an option builder that sets the profile marker written at the top of
// every generated stage.
//
// Parameters:
//   - profile: the marker text, e.g. "wgsl" or "wgsl-webgl2"
//
// Returns:
//   - CompilerBuilderOption: a function that applies the profile option to a compiler
func WithProfile(profile string) CompilerBuilderOption {
	return func(c *compiler) {
		c.profile = profile
	}
}

// WithExtensions is an option builder that emits one `enable` directive per extension
// after the profile marker, in the given order.
//
// Parameters:
//   - extensions: WGSL extension names such as "f16"
//
// Returns:
//   - CompilerBuilderOption: a function that applies the extensions option to a compiler
func WithExtensions(extensions ...string) CompilerBuilderOption {
	return func(c *compiler) {
		c.extensions = slices.Clone(extensions)
	}
}

// WithEntryPoints is an option builder that renames the generated entry functions.
// Empty names keep the defaults.
//
// Parameters:
//   - vertex: the vertex entry point name
//   - fragment: the fragment entry point name
//
// Returns:
//   - CompilerBuilderOption: a function that applies the entry point option to a compiler
func WithEntryPoints(vertex, fragment string) CompilerBuilderOption {
	return func(c *compiler) {
		if vertex != "" {
			c.vertexEntry = vertex
		}
		if fragment != "" {
			c.fragmentEntry = fragment
		}
	}
}

// WithEngineGlobals is an option builder that replaces the default engine-global table.
// The table is shared by reference.
//
// Parameters:
//   - globals: the table to resolve against; nil keeps the default
//
// Returns:
//   - CompilerBuilderOption: a function that applies the globals option to a compiler
func WithEngineGlobals(globals *GlobalTable) CompilerBuilderOption {
	return func(c *compiler) {
		if globals != nil {
			c.globals = globals
		}
	}
}

// WithGlobalGroup is an option builder that sets the bind group index of engine globals.
//
// Parameters:
//   - group: the @group index
//
// Returns:
//   - CompilerBuilderOption: a function that applies the group option to a compiler
func WithGlobalGroup(group int) CompilerBuilderOption {
	return func(c *compiler) {
		c.globalGroup = group
	}
}

// WithPropertyGroup is an option builder that sets the bind group index of material properties.
//
// Parameters:
//   - group: the @group index
//
// Returns:
//   - CompilerBuilderOption: a function that applies the group option to a compiler
func WithPropertyGroup(group int) CompilerBuilderOption {
	return func(c *compiler) {
		c.propertyGroup = group
	}
}
