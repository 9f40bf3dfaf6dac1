package renderer

import (
	"github.com/Carmen-Shannon/nuance-go/engine/globals"
	"github.com/Carmen-Shannon/nuance-go/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/nuance-go/engine/renderer/shader"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// renderer is the implementation of the Renderer interface.
// All methods are called from the engine's control loop; nothing here is shared across goroutines.
type renderer struct {
	backend RendererBackend
	logger  *zap.Logger

	// current is the pipeline every frame is drawn with. It only changes in SwapPipeline.
	current pipeline.Pipeline

	// readIndex and writeIndex select the feedback textures; they swap after every completed frame.
	readIndex  int
	writeIndex int

	width, height int
	clearColor    [4]float64

	// Pre-creation config collected from builder options
	pendingPresentMode *PresentMode
}

// Renderer owns the GPU-side rendering state of the engine: the current pipeline, its optional
// parameter buffer, and the feedback texture pair. A pipeline under construction never becomes
// current until it has been fully built, so a failed rebuild leaves rendering untouched.
type Renderer interface {
	// BuildPipeline compiles a new pipeline for the given fragment shader as a standalone
	// construction. The current pipeline is not touched.
	//
	// Parameters:
	//   - s: the pre-processed fragment shader
	//
	// Returns:
	//   - pipeline.Pipeline: the compiled pipeline, ready for SwapPipeline
	//   - error: a *PipelineError if the driver rejects the shader or allocation fails
	BuildPipeline(s shader.Shader) (pipeline.Pipeline, error)

	// SwapPipeline makes p current and releases the previously current pipeline.
	// Must be called between frames.
	//
	// Parameters:
	//   - p: a pipeline returned by BuildPipeline
	SwapPipeline(p pipeline.Pipeline)

	// Current returns the pipeline frames are drawn with, or nil before the first swap.
	//
	// Returns:
	//   - pipeline.Pipeline: the current pipeline
	Current() pipeline.Pipeline

	// UpdateParameters copies serialized parameter values to the current pipeline's parameter
	// buffer. The length must equal 4 * the current pipeline's parameter count.
	//
	// Parameters:
	//   - data: the little-endian f32 parameter values
	//
	// Returns:
	//   - error: ErrNoPipeline, a length mismatch, or a backend write failure
	UpdateParameters(data []byte) error

	// Execute draws one frame with the current pipeline: the read feedback texture is bound as
	// input, the globals block is written, the full-screen triangle is drawn into the write
	// feedback texture and shown on the surface. The feedback roles swap only when the frame
	// completed.
	//
	// Parameters:
	//   - g: the globals for this frame
	//
	// Returns:
	//   - error: ErrNoPipeline or a *PipelineError wrapping the backend failure
	Execute(g globals.GlobalsFrame) error

	// FeedbackIndices returns the indices of the feedback textures currently read and written.
	//
	// Returns:
	//   - int: the read index
	//   - int: the write index
	FeedbackIndices() (read, write int)

	// Resize configures the underlying backend to handle a new surface size. The feedback
	// textures are recreated, so their contents restart from the clear color.
	//
	// Parameters:
	//   - width: the new width of the surface in pixels
	//   - height: the new height of the surface in pixels
	Resize(width, height int)

	// SurfaceSize returns the size the surface was last configured with.
	//
	// Returns:
	//   - int: the width in pixels
	//   - int: the height in pixels
	SurfaceSize() (width, height int)

	// Release frees the current pipeline and every backend resource.
	Release()
}

var _ Renderer = &renderer{}

// NewRenderer creates a Renderer driving the given backend and configures the surface.
//
// Parameters:
//   - backend: the GPU backend implementation
//   - options: functional options for present mode, initial size, clear color and logging
//
// Returns:
//   - Renderer: the renderer, with no current pipeline
func NewRenderer(backend RendererBackend, options ...RendererBuilderOption) Renderer {
	r := &renderer{
		backend:    backend,
		logger:     zap.NewNop(),
		readIndex:  0,
		writeIndex: 1,
		width:      1280,
		height:     720,
		clearColor: [4]float64{0, 0, 0, 1},
	}

	for _, opt := range options {
		opt(r)
	}

	if r.pendingPresentMode != nil {
		r.backend.SetPresentMode(*r.pendingPresentMode)
	}

	r.backend.ConfigureSurface(r.width, r.height)
	return r
}

func (r *renderer) BuildPipeline(s shader.Shader) (pipeline.Pipeline, error) {
	if s == nil {
		return nil, &PipelineError{Err: errors.New("shader is nil")}
	}

	c := r.clearColor
	p := pipeline.NewPipeline(s.Key(),
		pipeline.WithFragmentShader(s),
		pipeline.WithClearColor(c[0], c[1], c[2], c[3]),
	)
	if err := r.backend.RegisterRenderPipeline(p); err != nil {
		return nil, &PipelineError{Key: s.Key(), Err: errors.Wrap(err, "failed to register render pipeline")}
	}

	r.logger.Debug("pipeline built",
		zap.String("key", p.PipelineKey()),
		zap.Int("parameters", p.ParameterCount()))
	return p, nil
}

func (r *renderer) SwapPipeline(p pipeline.Pipeline) {
	if p == nil {
		return
	}
	old := r.current
	r.current = p
	if old != nil && old != p {
		r.backend.ReleasePipeline(old)
	}
}

func (r *renderer) Current() pipeline.Pipeline {
	return r.current
}

func (r *renderer) UpdateParameters(data []byte) error {
	if r.current == nil {
		return ErrNoPipeline
	}
	if want := r.current.ParameterBufferSize(); uint64(len(data)) != want {
		return errors.Errorf("parameter buffer for %s must be %d bytes, got %d", r.current.PipelineKey(), want, len(data))
	}
	if !r.current.HasParameters() {
		return nil
	}
	return r.backend.WriteParameters(r.current, data)
}

func (r *renderer) Execute(g globals.GlobalsFrame) error {
	if r.current == nil {
		return ErrNoPipeline
	}
	if err := r.backend.RenderFrame(r.current, g.Marshal(), r.readIndex, r.writeIndex); err != nil {
		return &PipelineError{Key: r.current.PipelineKey(), Err: errors.Wrap(err, "failed to render frame")}
	}
	r.swapFeedback()
	return nil
}

// swapFeedback exchanges the read and write feedback textures once a frame has completed.
func (r *renderer) swapFeedback() {
	r.readIndex, r.writeIndex = r.writeIndex, r.readIndex
}

func (r *renderer) FeedbackIndices() (int, int) {
	return r.readIndex, r.writeIndex
}

func (r *renderer) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	r.width, r.height = width, height
	r.backend.ConfigureSurface(width, height)
	r.readIndex, r.writeIndex = 0, 1
}

func (r *renderer) SurfaceSize() (int, int) {
	return r.width, r.height
}

func (r *renderer) Release() {
	if r.current != nil {
		r.backend.ReleasePipeline(r.current)
		r.current = nil
	}
	r.backend.Release()
}
