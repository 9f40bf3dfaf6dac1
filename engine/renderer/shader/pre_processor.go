// pre_processor.go implements the nuance WGSL shader pre-processor. It scans shader
// source code for @nuance: annotations, replaces them with generated WGSL declarations
// or injected engine sources, and collects the declared parameters in source order.
//
// The pre-processor keeps an include registry that maps AnnotationArg keys to the WGSL
// sources embedded by the globals package. Param annotations are gathered into one
// generated Params struct emitted on the line of the first declaration; later param
// lines are blanked so that line numbers reported by the driver still match the file.
package shader

import (
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/nuance-go/engine/globals"
)

const (
	// ParamsGroup is the bind group index of the generated parameter uniform.
	ParamsGroup = 1

	// ParamsBinding is the binding index of the generated parameter uniform within ParamsGroup.
	ParamsBinding = 0
)

// preProcessor is the implementation of the PreProcessor interface.
type preProcessor struct {
	// includeRegistry maps include argument keys to their embedded WGSL source.
	includeRegistry map[AnnotationArg]string

	// parameters accumulates the declared parameters during a Process call.
	// Reset at the start of each Process invocation and cleared again on failure.
	parameters Parameters
}

// PreProcessor processes raw WGSL shader source containing @nuance: annotations,
// replacing them with generated declarations and collecting the declared parameters.
type PreProcessor interface {
	// Process takes raw WGSL shader source code and replaces @nuance: annotations with their
	// corresponding WGSL output. Processing is all-or-nothing: when an error is returned the
	// parameter list is empty.
	//
	// Parameters:
	//   - source: the raw WGSL shader source code containing annotations to be processed
	//
	// Returns:
	//   - string: the processed WGSL shader source code with annotations replaced
	//   - error: an error if any annotation is malformed, duplicated, or the shader declares
	//     a binding the engine does not provide
	Process(source string) (string, error)

	// Parameters returns the parameters declared in the source of the most recent successful
	// Process call, in declaration order.
	//
	// Returns:
	//   - Parameters: the collected parameters, nil if none were declared or Process failed
	Parameters() Parameters
}

var _ PreProcessor = &preProcessor{}

// NewPreProcessor creates a new PreProcessor with the engine include blocks registered.
//
// Returns:
//   - PreProcessor: a ready-to-use pre-processor instance
func NewPreProcessor() PreProcessor {
	return &preProcessor{
		includeRegistry: map[AnnotationArg]string{
			AnnotationArgGlobals:    globals.GPUGlobalsSource,
			AnnotationArgFullscreen: globals.GPUFullscreenOutputSource,
		},
	}
}

func (p *preProcessor) Process(source string) (string, error) {
	p.parameters = nil

	out, params, err := p.process(source)
	if err != nil {
		return "", err
	}
	p.parameters = params
	return out, nil
}

func (p *preProcessor) process(source string) (string, Parameters, error) {
	lines := strings.Split(source, "\n")
	out := make([]string, 0, len(lines))

	var params Parameters
	seen := make(map[string]int)
	included := make(map[AnnotationArg]int)
	firstParamLine := -1

	for i, line := range lines {
		a, err := parseAnnotation(line, i+1)
		if err != nil {
			return "", nil, err
		}
		if a == nil {
			out = append(out, line)
			continue
		}

		switch a.Type {
		case AnnotationTypeParam:
			if prev, ok := seen[a.Param.Name]; ok {
				return "", nil, fmt.Errorf("line %d: parameter %q already declared on line %d", a.Line, a.Param.Name, prev)
			}
			seen[a.Param.Name] = a.Line
			params = append(params, *a.Param)
			if firstParamLine < 0 {
				firstParamLine = len(out)
			}
			out = append(out, "")
		case annotationTypeInclude:
			if prev, ok := included[a.Args[0]]; ok {
				return "", nil, fmt.Errorf("line %d: %q already included on line %d", a.Line, a.Args[0], prev)
			}
			included[a.Args[0]] = a.Line
			entry, ok := p.includeRegistry[a.Args[0]]
			if !ok {
				return "", nil, fmt.Errorf("line %d: unknown @nuance:include argument %q", a.Line, a.Args[0])
			}
			out = append(out, strings.TrimRight(entry, "\n"))
		default:
			return "", nil, fmt.Errorf("line %d: unknown annotation type %q", a.Line, a.Type)
		}
	}

	if firstParamLine >= 0 {
		out[firstParamLine] = paramsSource(params)
	}

	processed := strings.Join(out, "\n")
	if err := validateBindings(processed, len(params) > 0); err != nil {
		return "", nil, err
	}
	return processed, params, nil
}

// paramsSource renders the Params struct and its uniform binding on a single line.
//
// Parameters:
//   - params: the declared parameters, in declaration order
//
// Returns:
//   - string: the generated WGSL declarations
func paramsSource(params Parameters) string {
	var sb strings.Builder
	sb.WriteString("struct Params {")
	for _, p := range params {
		fmt.Fprintf(&sb, " %s: f32,", p.Name)
	}
	fmt.Fprintf(&sb, " } @group(%d) @binding(%d) var<uniform> params: Params;", ParamsGroup, ParamsBinding)
	return sb.String()
}

// validateBindings rejects @group/@binding declarations the pipeline layout does not provide.
// Group 0 carries the previous frame texture, its sampler and the globals uniform; group 1
// exists only when the shader declares parameters.
//
// Parameters:
//   - source: the processed WGSL source
//   - hasParams: whether the shader declares at least one parameter
//
// Returns:
//   - error: an error naming the first unsupported binding, nil otherwise
func validateBindings(source string, hasParams bool) error {
	for _, b := range parseBindings(source) {
		switch {
		case b.group == globals.FrameGroup && b.binding <= globals.GlobalsBinding:
		case b.group == ParamsGroup && b.binding == ParamsBinding && hasParams:
		case b.group == ParamsGroup && b.binding == ParamsBinding:
			return fmt.Errorf("binding %q at @group(%d) @binding(%d) requires at least one @nuance:param declaration", b.name, b.group, b.binding)
		default:
			return fmt.Errorf("binding %q at @group(%d) @binding(%d) is not provided by the engine", b.name, b.group, b.binding)
		}
	}
	return nil
}

func (p *preProcessor) Parameters() Parameters {
	return p.parameters
}
