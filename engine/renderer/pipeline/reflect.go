package pipeline

import (
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
)

// reflectedField is a single member of a WGSL struct found while reflecting a stage.
type reflectedField struct {
	name     string
	typeName string
	location int
	builtin  bool
}

// reflectedStruct is a WGSL struct block found while reflecting a stage.
type reflectedStruct struct {
	name   string
	fields []reflectedField
}

// reflectedBinding is one `@group(g) @binding(b) var...` declaration of a stage.
type reflectedBinding struct {
	group        int
	binding      int
	addressSpace string
	name         string
	typeName     string
}

var (
	// structBlockRegex matches struct declarations and captures the name and body
	structBlockRegex = regexp.MustCompile(`struct\s+(\w+)\s*\{([^}]*)\}`)

	// locationRegex matches @location(N) attributes
	locationRegex = regexp.MustCompile(`@location\((\d+)\)`)

	// builtinRegex matches @builtin(...) attributes
	builtinRegex = regexp.MustCompile(`@builtin\(\w+\)`)

	// fieldRegex matches a struct member: optional attributes, name, colon, type.
	fieldRegex = regexp.MustCompile(`(?:@\w+\([^)]*\)\s*)*(\w+)\s*:\s*(.+)`)

	// entryRegexes capture the entry point name of each render stage
	entryRegexes = map[wgpu.ShaderStage]*regexp.Regexp{
		wgpu.ShaderStageVertex:   regexp.MustCompile(`(?s)@vertex\b.*?\bfn\s+(\w+)`),
		wgpu.ShaderStageFragment: regexp.MustCompile(`(?s)@fragment\b.*?\bfn\s+(\w+)`),
	}

	// bindingDeclRegex captures group, binding, optional address space, variable name, and type
	// from declarations like `@group(1) @binding(0) var<uniform> tint: vec4<f32>;` or
	// `@group(1) @binding(1) var albedo: texture_2d<f32>;`.
	bindingDeclRegex = regexp.MustCompile(`@group\((\d+)\)\s*@binding\((\d+)\)\s*var(?:<([^>]*)>)?\s+(\w+)\s*:\s*([^;]+?)\s*;`)
)

// reflectBindings extracts every resource declaration of a generated stage, sorted by group
// and then binding.
//
// Parameters:
//   - source: the WGSL text of one stage
//
// Returns:
//   - []reflectedBinding: the declarations found in the source
func reflectBindings(source string) []reflectedBinding {
	cleaned := stripComments(source)
	matches := bindingDeclRegex.FindAllStringSubmatch(cleaned, -1)
	out := make([]reflectedBinding, 0, len(matches))
	for _, m := range matches {
		group, _ := strconv.Atoi(m[1])
		binding, _ := strconv.Atoi(m[2])
		out = append(out, reflectedBinding{
			group:        group,
			binding:      binding,
			addressSpace: strings.TrimSpace(m[3]),
			name:         m[4],
			typeName:     strings.TrimSpace(m[5]),
		})
	}
	slices.SortFunc(out, func(a, b reflectedBinding) int {
		if a.group != b.group {
			return a.group - b.group
		}
		return a.binding - b.binding
	})
	return out
}

// reflectBindGroupLayouts turns the resource declarations of one stage into bind group layout
// descriptors keyed by group index, every entry carrying the given visibility.
//
// Parameters:
//   - source: the WGSL text of one stage
//   - visibility: the stage flag applied to each entry
//
// Returns:
//   - map[int]wgpu.BindGroupLayoutDescriptor: the descriptors keyed by group index
func reflectBindGroupLayouts(source string, visibility wgpu.ShaderStage) map[int]wgpu.BindGroupLayoutDescriptor {
	result := make(map[int]wgpu.BindGroupLayoutDescriptor)
	for _, b := range reflectBindings(source) {
		desc := result[b.group]
		desc.Entries = append(desc.Entries, classifyResource(uint32(b.binding), visibility, b.addressSpace, b.typeName))
		result[b.group] = desc
	}
	return result
}

// reflectVertexInput builds the vertex buffer layout of a vertex stage from its input struct,
// the one struct carrying @location members and no builtins. Attributes are interleaved in
// member order.
//
// Parameters:
//   - source: the WGSL text of the vertex stage
//
// Returns:
//   - wgpu.VertexBufferLayout: the interleaved buffer layout
//   - bool: false when the stage reads no per-vertex input or a member type has no vertex format
func reflectVertexInput(source string) (wgpu.VertexBufferLayout, bool) {
	for _, rs := range reflectStructs(stripComments(source)) {
		if !isVertexInput(rs) {
			continue
		}
		return buildVertexBufferLayout(rs)
	}
	return wgpu.VertexBufferLayout{}, false
}

// reflectEntryPoint finds the entry function of a stage.
//
// Parameters:
//   - source: the WGSL text of the stage
//   - stage: wgpu.ShaderStageVertex or wgpu.ShaderStageFragment
//
// Returns:
//   - string: the entry point name, or an empty string if none is declared
func reflectEntryPoint(source string, stage wgpu.ShaderStage) string {
	re, ok := entryRegexes[stage]
	if !ok {
		return ""
	}
	if m := re.FindStringSubmatch(stripComments(source)); m != nil {
		return m[1]
	}
	return ""
}

func reflectStructs(source string) []reflectedStruct {
	matches := structBlockRegex.FindAllStringSubmatch(source, -1)
	structs := make([]reflectedStruct, 0, len(matches))
	for _, m := range matches {
		structs = append(structs, reflectedStruct{name: m[1], fields: reflectFields(m[2])})
	}
	return structs
}

func reflectFields(body string) []reflectedField {
	var fields []reflectedField
	for _, member := range splitAtTopLevelCommas(body) {
		member = strings.TrimSpace(member)
		if member == "" {
			continue
		}
		fm := fieldRegex.FindStringSubmatch(member)
		if fm == nil {
			continue
		}
		field := reflectedField{
			name:     fm[1],
			typeName: strings.TrimSpace(fm[2]),
			location: -1,
			builtin:  builtinRegex.MatchString(member),
		}
		if lm := locationRegex.FindStringSubmatch(member); lm != nil {
			field.location, _ = strconv.Atoi(lm[1])
		}
		fields = append(fields, field)
	}
	return fields
}

// isVertexInput reports whether a struct has at least one @location member and no builtins,
// which tells the vertex input apart from the output and fragment input structs.
func isVertexInput(rs reflectedStruct) bool {
	hasLocation := false
	for _, f := range rs.fields {
		if f.builtin {
			return false
		}
		if f.location >= 0 {
			hasLocation = true
		}
	}
	return hasLocation
}

// splitAtTopLevelCommas splits a struct body at commas outside angle brackets, so a member
// typed `array<T, N>` stays whole.
func splitAtTopLevelCommas(s string) []string {
	var parts []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '<':
			depth++
		case '>':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}

// stripComments removes line comments and nested block comments. Program bodies are copied
// into generated text with their comments intact, so declarations inside a comment must not
// be reflected.
func stripComments(source string) string {
	var sb strings.Builder
	sb.Grow(len(source))
	depth := 0
	for i := 0; i < len(source); i++ {
		switch {
		case depth == 0 && strings.HasPrefix(source[i:], "//"):
			for i < len(source) && source[i] != '\n' {
				i++
			}
			if i < len(source) {
				sb.WriteByte('\n')
			}
		case strings.HasPrefix(source[i:], "/*"):
			depth++
			i++
		case depth > 0 && strings.HasPrefix(source[i:], "*/"):
			depth--
			i++
		case depth == 0:
			sb.WriteByte(source[i])
		}
	}
	return sb.String()
}
