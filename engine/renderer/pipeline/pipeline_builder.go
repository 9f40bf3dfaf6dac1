package pipeline

import (
	"github.com/Carmen-Shannon/nuance-go/engine/renderer/shader"
)

// PipelineBuilderOption is a functional option used to configure a Pipeline during construction.
type PipelineBuilderOption func(*pipeline)

// WithFragmentShader sets the fragment shader for this pipeline.
//
// Parameters:
//   - s: the fragment shader to use for this pipeline
//
// Returns:
//   - PipelineBuilderOption: a function that sets the fragment shader for this pipeline
func WithFragmentShader(s shader.Shader) PipelineBuilderOption {
	return func(p *pipeline) {
		p.fragmentShader = s
		p.parameterCount = 0
		if s != nil {
			p.parameterCount = s.Parameters().Len()
		}
	}
}

// WithClearColor sets the color the write feedback texture is cleared to before each draw.
//
// Parameters:
//   - r, g, b, a: the clear color components in [0, 1]
//
// Returns:
//   - PipelineBuilderOption: a function that sets the clear color for this pipeline
func WithClearColor(r, g, b, a float64) PipelineBuilderOption {
	return func(p *pipeline) {
		p.clearColor = [4]float64{r, g, b, a}
	}
}
