// annotations.go defines the annotation types and the line parser for the nuance WGSL
// pre-processor. Annotations are single-line WGSL comments prefixed with @nuance: so the
// shader stays valid WGSL even before pre-processing. They declare tunable parameters
// and request injection of the engine-provided struct and binding declarations.
package shader

import (
	"fmt"
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// annotationPrefix is the marker that identifies a nuance annotation within a WGSL comment line.
// Every annotation must appear on a line beginning with "//" followed by this prefix.
const annotationPrefix = "@nuance:"

// AnnotationType identifies the kind of annotation parsed from a WGSL comment line.
type AnnotationType string

const (
	// AnnotationTypeParam declares a tunable f32 parameter. All param annotations of a shader
	// are collected, in source order, into the generated Params uniform struct bound at
	// @group(1) @binding(0).
	//
	// Syntax: //@nuance:param <name> <min> <max> <default>
	//
	// Example: //@nuance:param speed 0.0 4.0 1.0
	AnnotationTypeParam AnnotationType = "param"

	// annotationTypeInclude injects an engine-provided WGSL source block at the annotation site.
	//
	// Syntax: //@nuance:include <block>
	//
	// Example: //@nuance:include globals
	annotationTypeInclude AnnotationType = "include"
)

// AnnotationArg is a typed string constant used as an argument to include annotations.
type AnnotationArg string

const (
	// AnnotationArgGlobals injects the Globals struct and the group 0 bindings: the previous
	// frame texture, its sampler and the per-frame globals uniform.
	AnnotationArgGlobals AnnotationArg = "globals"

	// AnnotationArgFullscreen injects the FullscreenOutput struct produced by the engine's
	// full-screen triangle vertex stage.
	AnnotationArgFullscreen AnnotationArg = "fullscreen"
)

// validIncludes lists the AnnotationArg values accepted by @nuance:include.
var validIncludes = []AnnotationArg{
	AnnotationArgGlobals,
	AnnotationArgFullscreen,
}

// identifierRegex matches a WGSL identifier usable as a struct member name.
var identifierRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// reservedNames are WGSL keywords and the reserved words most likely to be picked as
// parameter names. None of them can name a member of the generated Params struct.
var reservedNames = map[string]struct{}{
	"alias": {}, "break": {}, "case": {}, "const": {}, "const_assert": {}, "continue": {},
	"continuing": {}, "default": {}, "diagnostic": {}, "discard": {}, "else": {}, "enable": {},
	"false": {}, "fn": {}, "for": {}, "if": {}, "let": {}, "loop": {}, "override": {},
	"requires": {}, "return": {}, "struct": {}, "switch": {}, "true": {}, "var": {}, "while": {},
	"enum": {}, "mut": {}, "new": {}, "null": {}, "self": {}, "static": {}, "this": {},
	"type": {}, "use": {}, "with": {}, "yield": {}, "async": {}, "await": {}, "do": {},
	"goto": {}, "match": {}, "module": {}, "mod": {}, "package": {}, "public": {},
	"private": {}, "super": {}, "template": {}, "typedef": {}, "union": {}, "unsafe": {},
	"virtual": {}, "volatile": {}, "where": {},
}

// validParameterName reports why name cannot be used as a WGSL struct member, or "" if it can.
func validParameterName(name string) string {
	switch {
	case !identifierRegex.MatchString(name):
		return "not an identifier"
	case name == "_":
		return "a lone underscore is not an identifier"
	case strings.HasPrefix(name, "__"):
		return "identifiers must not start with two underscores"
	}
	if _, ok := reservedNames[name]; ok {
		return "reserved word"
	}
	return ""
}

// Annotation represents a single parsed @nuance: annotation.
type Annotation struct {
	// Type identifies which annotation was parsed.
	Type AnnotationType

	// Args holds the include block key for include annotations. Empty for param annotations.
	Args []AnnotationArg

	// Line is the 1-based line number in the WGSL source where this annotation was found.
	Line int

	// Param is the declared parameter for param annotations, nil otherwise.
	Param *Parameter
}

// parseAnnotation attempts to parse a single line of WGSL source as a @nuance: annotation.
// Returns nil with no error for lines that are not annotation comments.
//
// Parameters:
//   - line: the raw WGSL source line to parse
//   - lineNum: the 1-based line number for error reporting
//
// Returns:
//   - *Annotation: the parsed annotation, or nil if the line is not an annotation
//   - error: a descriptive error if the annotation is malformed
func parseAnnotation(line string, lineNum int) (*Annotation, error) {
	trimmed := strings.TrimSpace(line)
	comment, ok := strings.CutPrefix(trimmed, "//")
	if !ok {
		return nil, nil
	}
	after, ok := strings.CutPrefix(strings.TrimSpace(comment), annotationPrefix)
	if !ok {
		return nil, nil
	}

	args := strings.Fields(after)
	if len(args) == 0 {
		return nil, fmt.Errorf("line %d: empty @nuance annotation", lineNum)
	}

	switch args[0] {
	case string(AnnotationTypeParam):
		if len(args) != 5 {
			return nil, fmt.Errorf("line %d: @nuance param annotation requires exactly four arguments (name, min, max, default)", lineNum)
		}
		name := args[1]
		if reason := validParameterName(name); reason != "" {
			return nil, fmt.Errorf("line %d: invalid parameter name %q: %s", lineNum, name, reason)
		}
		var values [3]float32
		for i, label := range []string{"min", "max", "default"} {
			v, err := parseFloat(args[2+i])
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid %s %q for parameter %q: %v", lineNum, label, args[2+i], name, err)
			}
			values[i] = v
		}
		lo, hi, def := values[0], values[1], values[2]
		if lo > hi {
			return nil, fmt.Errorf("line %d: parameter %q has inverted bounds (min %g > max %g)", lineNum, name, lo, hi)
		}
		if def < lo || def > hi {
			return nil, fmt.Errorf("line %d: parameter %q default %g is outside [%g, %g]", lineNum, name, def, lo, hi)
		}
		return &Annotation{
			Type:  AnnotationTypeParam,
			Line:  lineNum,
			Param: &Parameter{Name: name, Value: def, Min: lo, Max: hi, Default: def},
		}, nil
	case string(annotationTypeInclude):
		if len(args) != 2 {
			return nil, fmt.Errorf("line %d: @nuance include annotation requires exactly one argument", lineNum)
		}
		if !slices.Contains(validIncludes, AnnotationArg(args[1])) {
			return nil, fmt.Errorf("line %d: unknown include %q in @nuance include annotation", lineNum, args[1])
		}
		return &Annotation{
			Type: annotationTypeInclude,
			Args: []AnnotationArg{AnnotationArg(args[1])},
			Line: lineNum,
		}, nil
	default:
		return nil, fmt.Errorf("line %d: unknown @nuance annotation type %q", lineNum, args[0])
	}
}

// parseFloat parses a finite 32-bit float.
func parseFloat(s string) (float32, error) {
	v, err := strconv.ParseFloat(s, 32)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("value must be finite")
	}
	return float32(v), nil
}
