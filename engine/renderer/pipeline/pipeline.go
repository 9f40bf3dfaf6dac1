package pipeline

import (
	"github.com/Carmen-Shannon/nuance-go/engine/renderer/shader"
)

// pipeline is the implementation of the Pipeline interface.
// It pairs a pre-processed fragment shader with the backend objects compiled from it.
type pipeline struct {
	// pipelineKey is the unique identifier for this pipeline, used for labels and logging
	pipelineKey string

	// fragmentShader is the user shader this pipeline was built from. The vertex stage is
	// owned by the backend and shared by every pipeline.
	fragmentShader shader.Shader

	// parameterCount is fixed when the shader is set; the shader's list never changes.
	parameterCount int

	// handle holds the backend objects: the render pipeline and, when the shader declares
	// parameters, the parameter buffer and its bind group
	handle any

	clearColor [4]float64
}

// Pipeline defines the interface for a compiled full-screen render pipeline. It carries the
// fragment shader it was built from, the size of its parameter buffer, and the opaque
// backend handle created by the RendererBackend.
type Pipeline interface {
	// PipelineKey returns the unique key associated with this pipeline.
	//
	// Returns:
	//   - string: the unique key for this pipeline
	PipelineKey() string

	// Shader retrieves the fragment shader this pipeline is built from.
	//
	// Returns:
	//   - shader.Shader: the fragment shader
	Shader() shader.Shader

	// ParameterCount returns the number of f32 parameters the fragment shader declares.
	//
	// Returns:
	//   - int: the parameter count
	ParameterCount() int

	// ParameterBufferSize returns the exact byte length the parameter buffer contents must have.
	//
	// Returns:
	//   - uint64: 4 * ParameterCount()
	ParameterBufferSize() uint64

	// HasParameters reports whether the pipeline carries a parameter buffer and binding.
	//
	// Returns:
	//   - bool: true if ParameterCount() > 0
	HasParameters() bool

	// ClearColor returns the RGBA color the write feedback texture is cleared to before drawing.
	//
	// Returns:
	//   - [4]float64: the clear color
	ClearColor() [4]float64

	// Pipeline returns the backend objects created for this pipeline, nil before registration.
	// Note: the caller is responsible for type asserting the returned value to the backend's type.
	//
	// Returns:
	//   - any: the backend handle
	Pipeline() any

	// SetPipeline stores the backend objects created for this pipeline.
	//
	// Parameters:
	//   - handle: the backend handle
	SetPipeline(handle any)
}

var _ Pipeline = &pipeline{}

// NewPipeline creates a new Pipeline with the given key and options applied.
// The clear color defaults to opaque black.
//
// Parameters:
//   - key: the unique identifier for this pipeline
//   - options: functional options to configure the pipeline
//
// Returns:
//   - Pipeline: the configured pipeline, not yet registered with a backend
func NewPipeline(key string, options ...PipelineBuilderOption) Pipeline {
	p := &pipeline{
		pipelineKey: key,
		clearColor:  [4]float64{0, 0, 0, 1},
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

func (p *pipeline) PipelineKey() string {
	return p.pipelineKey
}

func (p *pipeline) Shader() shader.Shader {
	return p.fragmentShader
}

func (p *pipeline) ParameterCount() int {
	return p.parameterCount
}

func (p *pipeline) ParameterBufferSize() uint64 {
	return uint64(p.ParameterCount() * shader.ParameterSize)
}

func (p *pipeline) HasParameters() bool {
	return p.ParameterCount() > 0
}

func (p *pipeline) ClearColor() [4]float64 {
	return p.clearColor
}

func (p *pipeline) Pipeline() any {
	return p.handle
}

func (p *pipeline) SetPipeline(handle any) {
	p.handle = handle
}
