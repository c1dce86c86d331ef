package translator

import "github.com/gogpu/naga/spirv"

// TranslatorBuilderOption is a function that configures a translator during construction.
type TranslatorBuilderOption func(*translator)

// WithValidation is an option builder that sets whether ToGLSL and ToSPIRV validate the IR
// before generating code. Validate always validates.
//
// Parameters:
//   - enabled: true to validate before translating
//
// Returns:
//   - TranslatorBuilderOption: a function that applies the validation option to a translator
func WithValidation(enabled bool) TranslatorBuilderOption {
	return func(t *translator) {
		t.validate = enabled
	}
}

// WithSPIRVVersion is an option builder that sets the SPIR-V version targeted by ToSPIRV.
//
// Parameters:
//   - version: the SPIR-V version, e.g. spirv.Version1_3
//
// Returns:
//   - TranslatorBuilderOption: a function that applies the version option to a translator
func WithSPIRVVersion(version spirv.Version) TranslatorBuilderOption {
	return func(t *translator) {
		t.spirvVersion = version
	}
}

// WithDebugInfo is an option builder that includes debug names in SPIR-V output.
//
// Parameters:
//   - enabled: true to emit debug info
//
// Returns:
//   - TranslatorBuilderOption: a function that applies the debug option to a translator
func WithDebugInfo(enabled bool) TranslatorBuilderOption {
	return func(t *translator) {
		t.debug = enabled
	}
}
