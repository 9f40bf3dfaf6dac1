package renderer

import (
	"github.com/Carmen-Shannon/nuance-go/engine/renderer/pipeline"
)

// PresentMode controls how rendered frames are presented to the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank before presenting, capping frame rate
	// to the monitor's refresh rate. Eliminates tearing.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents frames immediately without waiting for vertical blank.
	// May cause screen tearing but provides the lowest latency.
	PresentModeUncapped
)

// ParsePresentMode maps a configuration string to a PresentMode.
//
// Parameters:
//   - s: "vsync" or "uncapped"
//
// Returns:
//   - PresentMode: the matching mode
//   - bool: false if s is not a known mode
func ParsePresentMode(s string) (PresentMode, bool) {
	switch s {
	case "vsync", "":
		return PresentModeVSync, true
	case "uncapped":
		return PresentModeUncapped, true
	default:
		return PresentModeVSync, false
	}
}

// RendererBackend is the GPU API the Renderer drives. Implementations own the device, the
// surface, the shared full-screen vertex stage, the globals uniform and the feedback texture
// pair; the Renderer owns which pipeline is current and which feedback texture is read.
type RendererBackend interface {
	// RegisterRenderPipeline compiles the pipeline's fragment shader against the shared vertex
	// stage and stores the result with p.SetPipeline. A parameter buffer and its bind group are
	// allocated only when p.HasParameters(). On error nothing is stored and every partially
	// created object is released.
	//
	// Parameters:
	//   - p: the pipeline to compile
	//
	// Returns:
	//   - error: an error if the driver rejects the shader or an allocation fails
	RegisterRenderPipeline(p pipeline.Pipeline) error

	// ReleasePipeline frees the backend objects of a pipeline that is no longer current.
	//
	// Parameters:
	//   - p: the pipeline to release
	ReleasePipeline(p pipeline.Pipeline)

	// WriteParameters copies the serialized parameter values into the pipeline's parameter buffer.
	//
	// Parameters:
	//   - p: the pipeline owning the buffer
	//   - data: exactly p.ParameterBufferSize() bytes
	//
	// Returns:
	//   - error: an error if the write fails
	WriteParameters(p pipeline.Pipeline, data []byte) error

	// RenderFrame writes the globals block, draws the full-screen triangle with p into the
	// write feedback texture while sampling the read feedback texture, copies the result to
	// the surface and presents it. The write texture holds a complete frame when this returns nil.
	//
	// Parameters:
	//   - p: the current pipeline
	//   - globals: the marshalled globals block
	//   - read: the index of the feedback texture bound as input
	//   - write: the index of the feedback texture rendered into
	//
	// Returns:
	//   - error: an error if the surface could not be acquired or submission failed
	RenderFrame(p pipeline.Pipeline, globals []byte, read, write int) error

	// ConfigureSurface reconfigures the surface and recreates the feedback textures for a new size.
	//
	// Parameters:
	//   - width: the new width of the surface in pixels
	//   - height: the new height of the surface in pixels
	ConfigureSurface(width, height int)

	// SetPresentMode sets the surface present mode used by the next ConfigureSurface call.
	//
	// Parameters:
	//   - mode: the PresentMode to use
	SetPresentMode(mode PresentMode)

	// Release frees every GPU object owned by the backend.
	Release()
}
