package shader

import (
	"fmt"
	"strings"
)

// Generated struct names.
const (
	structVertexInput   = "OxyVertexInput"
	structVertexOutput  = "OxyVertexOutput"
	structFragmentInput = "OxyFragmentInput"
)

// removedMark tags text removed with a qualifier statement so the line it leaves
// behind can be dropped.
const removedMark = "\x00"

// generator emits WGSL program text for a resolved definition.
type generator struct {
	cfg        *compiler
	res        *resolution
	properties []PropertyBinding
}

// generate returns the vertex and fragment program texts.
func (g *generator) generate() (string, string) {
	return g.vertexStage(), g.fragmentStage()
}

func (g *generator) header(sb *strings.Builder, st *resolvedStage) {
	fmt.Fprintf(sb, "// profile: %s\n", g.cfg.profile)
	for _, ext := range g.cfg.extensions {
		fmt.Fprintf(sb, "enable %s;\n", ext)
	}

	var globals []string
	for _, gl := range g.res.symbols.Globals().All() {
		if st.globals[gl.Binding] {
			globals = append(globals, fmt.Sprintf("@group(%d) @binding(%d) var<uniform> %s: %s;\n",
				g.cfg.globalGroup, gl.Binding, gl.Name, gl.Type.WGSL()))
		}
	}
	writeSection(sb, globals)

	var props []string
	for i, pb := range g.properties {
		if !st.properties[i] {
			continue
		}
		if pb.Type.IsTexture() {
			props = append(props,
				fmt.Sprintf("@group(%d) @binding(%d) var %s: %s;\n", pb.Group, pb.Binding, pb.Name, pb.Type.WGSL()),
				fmt.Sprintf("@group(%d) @binding(%d) var %s: sampler;\n", pb.Group, pb.SamplerBinding, samplerName(pb.Name)))
			continue
		}
		props = append(props, fmt.Sprintf("@group(%d) @binding(%d) var<uniform> %s: %s;\n",
			pb.Group, pb.Binding, pb.Name, pb.Type.WGSL()))
	}
	writeSection(sb, props)
}

// writeSection writes lines preceded by a blank line, or nothing when empty.
func writeSection(sb *strings.Builder, lines []string) {
	if len(lines) == 0 {
		return
	}
	sb.WriteString("\n")
	for _, l := range lines {
		sb.WriteString(l)
	}
}

// writeStruct writes a struct declaration whose members are already formatted.
func writeStruct(sb *strings.Builder, name string, members []string) {
	fmt.Fprintf(sb, "\nstruct %s {\n", name)
	for _, m := range members {
		fmt.Fprintf(sb, "    %s,\n", m)
	}
	sb.WriteString("}\n")
}

func (g *generator) vertexStage() string {
	st := g.res.vertex
	var sb strings.Builder
	g.header(&sb, st)

	params := ""
	if mesh := g.res.meshInputs(); len(mesh) > 0 {
		members := make([]string, len(mesh))
		for i, attr := range mesh {
			members[i] = fmt.Sprintf("@location(%d) %s: %s", attr.Location, attr.Name, attr.Type.WGSL())
		}
		writeStruct(&sb, structVertexInput, members)
		params = varInput + ": " + structVertexInput
	}

	members := []string{"@builtin(position) clip_position: vec4<f32>"}
	for _, slot := range g.res.interfaceSlots(StageVertex) {
		members = append(members, fmt.Sprintf("@location(%d) %s: %s", slot.Location, slot.Name, slot.Type.WGSL()))
	}
	writeStruct(&sb, structVertexOutput, members)

	fmt.Fprintf(&sb, "\n@vertex\nfn %s(%s) -> %s {\n", g.cfg.vertexEntry, params, structVertexOutput)
	fmt.Fprintf(&sb, "    var %s: %s;\n", varOutput, structVertexOutput)
	for _, f := range g.res.locals() {
		fmt.Fprintf(&sb, "    var %s%s: %s;\n", localPrefix, f.name, f.typ.WGSL())
	}
	if body := rewriteBody(st); body != "" {
		sb.WriteString(body)
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "    return %s;\n}\n", varOutput)
	return sb.String()
}

func (g *generator) fragmentStage() string {
	st := g.res.fragment
	var sb strings.Builder
	g.header(&sb, st)

	var members []string
	if g.res.fragCoord {
		members = append(members, "@builtin(position) frag_coord: vec4<f32>")
	}
	for _, slot := range g.res.interfaceSlots(StageFragment) {
		members = append(members, fmt.Sprintf("@location(%d) %s: %s", slot.Location, slot.Name, slot.Type.WGSL()))
	}
	params := ""
	if len(members) > 0 {
		writeStruct(&sb, structFragmentInput, members)
		params = varInput + ": " + structFragmentInput
	}

	fmt.Fprintf(&sb, "\n@fragment\nfn %s(%s) -> @location(0) vec4<f32> {\n", g.cfg.fragmentEntry, params)
	fmt.Fprintf(&sb, "    var %s: vec4<f32>;\n", varColor)
	if body := rewriteBody(st); body != "" {
		sb.WriteString(body)
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "    return %s;\n}\n", varColor)
	return sb.String()
}

// rewriteBody substitutes every intrinsic with its resolved variable and drops
// qualifier keywords and declaration-only statements. Everything else is copied
// byte for byte.
func rewriteBody(st *resolvedStage) string {
	toks := st.def.tokens
	texts := make([]string, len(toks))
	for i, t := range toks {
		texts[i] = t.text
	}
	for i, ref := range st.def.Intrinsics {
		texts[ref.token] = st.refs[i].Variable
	}
	for _, q := range st.def.Qualifiers {
		for k := q.start; k <= q.end; k++ {
			texts[k] = ""
		}
		if q.DeclarationOnly {
			texts[q.start] = removedMark
		}
	}

	lines := strings.Split(strings.Join(texts, ""), "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.Contains(line, removedMark) {
			line = strings.ReplaceAll(line, removedMark, "")
			if strings.TrimSpace(line) == "" {
				continue
			}
		}
		kept = append(kept, line)
	}

	for len(kept) > 0 && strings.TrimSpace(kept[0]) == "" {
		kept = kept[1:]
	}
	return strings.TrimRight(strings.Join(kept, "\n"), " \t\r\n")
}
