package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/Carmen-Shannon/oxy-matc/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-matc/engine/renderer/translator"
)

type propertyReport struct {
	Name           string    `json:"name"`
	Type           string    `json:"type"`
	Default        []float32 `json:"default,omitempty"`
	Group          int       `json:"group"`
	Binding        int       `json:"binding"`
	SamplerBinding *int      `json:"sampler_binding,omitempty"`
}

type globalReport struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Semantic string `json:"semantic"`
	Group    int    `json:"group"`
	Binding  int    `json:"binding"`
}

type glslReport struct {
	Version    string   `json:"version"`
	Vertex     string   `json:"vertex"`
	Fragment   string   `json:"fragment"`
	Extensions []string `json:"extensions,omitempty"`
}

// report is everything printed for one input file.
type report struct {
	Name       string           `json:"name"`
	Key        string           `json:"key,omitempty"`
	Error      string           `json:"error,omitempty"`
	Properties []propertyReport `json:"properties,omitempty"`
	Globals    []globalReport   `json:"globals,omitempty"`
	Vertex     string           `json:"vertex,omitempty"`
	Fragment   string           `json:"fragment,omitempty"`
	Validated  bool             `json:"validated,omitempty"`
	GLSL       *glslReport      `json:"glsl,omitempty"`
}

func newReport(prog shader.Program) report {
	r := report{
		Name:     prog.Name(),
		Key:      prog.Key(),
		Vertex:   prog.VertexSource(),
		Fragment: prog.FragmentSource(),
	}
	for _, p := range prog.Properties() {
		pr := propertyReport{
			Name:    p.Name,
			Type:    p.Type.String(),
			Default: p.Default,
			Group:   p.Group,
			Binding: p.Binding,
		}
		if p.Type.IsTexture() {
			sampler := p.SamplerBinding
			pr.SamplerBinding = &sampler
		}
		r.Properties = append(r.Properties, pr)
	}
	for _, g := range prog.GlobalBindings() {
		r.Globals = append(r.Globals, globalReport{
			Name:     g.Name,
			Type:     g.Type.String(),
			Semantic: string(g.Semantic),
			Group:    g.Group,
			Binding:  g.Binding,
		})
	}
	return r
}

func failedReport(name string, err error) report {
	return report{Name: name, Error: describeError(err)}
}

func (r *report) addGLSL(out translator.GLSLProgram) {
	r.GLSL = &glslReport{
		Version:    out.Version.String(),
		Vertex:     out.Vertex,
		Fragment:   out.Fragment,
		Extensions: out.Extensions,
	}
}

// describeError renders compile errors with their source line and caret.
func describeError(err error) string {
	var ce *shader.CompileError
	if errors.As(err, &ce) {
		return ce.FormatWithContext()
	}
	return "error: " + err.Error()
}

// writeText prints a report in the human-readable layout.
func writeText(w io.Writer, r report, showSource bool) {
	if r.Error != "" {
		fmt.Fprintf(w, "%s: FAILED\n%s\n", r.Name, strings.TrimRight(r.Error, "\n"))
		return
	}

	fmt.Fprintf(w, "%s: ok (key %s)\n", r.Name, shortKey(r.Key))
	if len(r.Properties) > 0 {
		fmt.Fprintln(w, "  properties:")
		for _, p := range r.Properties {
			fmt.Fprintf(w, "    %-20s %-10s @group(%d) @binding(%d)", p.Name, p.Type, p.Group, p.Binding)
			if p.SamplerBinding != nil {
				fmt.Fprintf(w, " sampler @binding(%d)", *p.SamplerBinding)
			}
			if len(p.Default) > 0 {
				fmt.Fprintf(w, " = %v", p.Default)
			}
			fmt.Fprintln(w)
		}
	}
	if len(r.Globals) > 0 {
		fmt.Fprintln(w, "  engine globals:")
		for _, g := range r.Globals {
			fmt.Fprintf(w, "    %-20s %-10s @group(%d) @binding(%d) (%s)\n", g.Name, g.Type, g.Group, g.Binding, g.Semantic)
		}
	}
	if r.Validated {
		fmt.Fprintln(w, "  validated: ok")
	}
	if showSource {
		fmt.Fprintf(w, "  --- vertex ---\n%s", r.Vertex)
		fmt.Fprintf(w, "  --- fragment ---\n%s", r.Fragment)
	}
	if r.GLSL != nil {
		fmt.Fprintf(w, "  --- glsl %s vertex ---\n%s", r.GLSL.Version, r.GLSL.Vertex)
		fmt.Fprintf(w, "  --- glsl %s fragment ---\n%s", r.GLSL.Version, r.GLSL.Fragment)
	}
}

func shortKey(key string) string {
	if len(key) > 12 {
		return key[:12]
	}
	return key
}
