package renderer

import (
	_ "embed"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/nuance-go/common"
	"github.com/Carmen-Shannon/nuance-go/engine/globals"
	"github.com/Carmen-Shannon/nuance-go/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/nuance-go/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/nuance-go/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// fullscreenVertexSource draws a single triangle covering the whole surface and emits
// FullscreenOutput with uv in [0, 1], origin at the top left.
//
//go:embed assets/fullscreen.wgsl
var fullscreenVertexSource string

// blitFragmentSource copies a feedback texture onto the surface.
//
//go:embed assets/blit.wgsl
var blitFragmentSource string

// feedbackCount is the number of feedback textures; one is read while the other is written.
const feedbackCount = 2

// wgpuPipelineHandle is the backend object stored on a pipeline.Pipeline by RegisterRenderPipeline.
type wgpuPipelineHandle struct {
	renderPipeline *wgpu.RenderPipeline
	layout         *wgpu.PipelineLayout

	// params owns the parameter uniform buffer and its bind group, nil when the shader
	// declares no parameters
	params bind_group_provider.BindGroupProvider
}

func (h *wgpuPipelineHandle) release() {
	if h.params != nil {
		h.params.Release()
		h.params = nil
	}
	if h.renderPipeline != nil {
		h.renderPipeline.Release()
		h.renderPipeline = nil
	}
	if h.layout != nil {
		h.layout.Release()
		h.layout = nil
	}
}

type wgpuRendererBackendImpl struct {
	mu     *sync.Mutex
	logger *zap.Logger

	device *wgpu.Device
	queue  *wgpu.Queue

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	surface  *wgpu.Surface

	surfaceFormat wgpu.TextureFormat
	presentMode   wgpu.PresentMode

	// Shared by every pipeline for the lifetime of the backend.
	vertexModule  *wgpu.ShaderModule
	vertexEntry   string
	globalsBuffer *wgpu.Buffer
	sampler       *wgpu.Sampler
	frameLayout   *wgpu.BindGroupLayout
	paramsLayout  *wgpu.BindGroupLayout
	blitLayout    *wgpu.PipelineLayout
	blitPipeline  *wgpu.RenderPipeline

	// feedback holds one provider per feedback texture. Its bind group is the frame group
	// (texture, sampler, globals) with that texture as last_frame. It is recreated on every
	// ConfigureSurface call.
	feedback [feedbackCount]bind_group_provider.BindGroupProvider

	// Pre-creation config collected from builder options
	forceFallbackAdapter bool
	samplerConfig        common.SamplerStagingData
}

var _ RendererBackend = &wgpuRendererBackendImpl{}

// NewWGPURendererBackend creates the WebGPU device for the given surface together with the
// objects every pipeline shares: the full-screen vertex stage, the globals uniform, the
// feedback sampler, the bind group layouts and the blit pipeline. The surface itself is
// configured by the first ConfigureSurface call.
//
// Parameters:
//   - surfaceDescriptor: the platform surface, typically from Window.SurfaceDescriptor()
//   - options: functional options for adapter selection, sampling and logging
//
// Returns:
//   - RendererBackend: the backend
//   - error: an error if no adapter or device is available or a shared object cannot be created
func NewWGPURendererBackend(surfaceDescriptor *wgpu.SurfaceDescriptor, options ...WGPUBackendOption) (RendererBackend, error) {
	b := &wgpuRendererBackendImpl{
		mu:            &sync.Mutex{},
		logger:        zap.NewNop(),
		instance:      wgpu.CreateInstance(nil),
		presentMode:   wgpu.PresentModeFifo,
		samplerConfig: DefaultFeedbackSampler,
	}
	for _, opt := range options {
		opt(b)
	}

	b.surface = b.instance.CreateSurface(surfaceDescriptor)

	a, err := b.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: b.forceFallbackAdapter,
		CompatibleSurface:    b.surface,
	})
	if err != nil {
		b.Release()
		return nil, errors.Wrap(err, "failed to request adapter")
	}
	b.adapter = a

	d, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Main Device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: wgpu.DefaultLimits(),
		},
	})
	if err != nil {
		b.Release()
		return nil, errors.Wrap(err, "failed to request device")
	}
	b.device = d
	b.queue = d.GetQueue()

	capabilities := b.surface.GetCapabilities(b.adapter)
	if len(capabilities.Formats) == 0 {
		b.Release()
		return nil, errors.New("surface reports no supported formats")
	}
	b.surfaceFormat = capabilities.Formats[0]

	if err := b.createSharedObjects(); err != nil {
		b.Release()
		return nil, err
	}

	b.logger.Info("webgpu device ready",
		zap.Any("surface_format", b.surfaceFormat),
		zap.Bool("fallback_adapter", b.forceFallbackAdapter))
	return b, nil
}

// createSharedObjects builds everything that does not depend on the surface size or on the
// user shader.
func (b *wgpuRendererBackendImpl) createSharedObjects() error {
	vertexShader, err := shader.NewShader("Fullscreen Vertex", shader.ShaderTypeVertex, fullscreenVertexSource)
	if err != nil {
		return errors.Wrap(err, "failed to prepare fullscreen vertex shader")
	}
	b.vertexModule, err = b.createShaderModule(vertexShader)
	if err != nil {
		return err
	}
	b.vertexEntry = vertexShader.EntryPoint()

	b.globalsBuffer, err = b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Globals Buffer",
		Size:  globals.Size,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return errors.Wrap(err, "failed to create globals buffer")
	}

	b.sampler, err = b.device.CreateSampler(feedbackSamplerDescriptor(b.samplerConfig))
	if err != nil {
		return errors.Wrap(err, "failed to create feedback sampler")
	}

	frameEntries := []wgpu.BindGroupLayoutEntry{
		{Binding: globals.LastFrameBinding, Visibility: wgpu.ShaderStageFragment},
		{Binding: globals.LastFrameSamplerBinding, Visibility: wgpu.ShaderStageFragment},
		{Binding: globals.GlobalsBinding, Visibility: wgpu.ShaderStageFragment},
	}
	frameEntries[0].Texture.SampleType = wgpu.TextureSampleTypeFloat
	frameEntries[0].Texture.ViewDimension = wgpu.TextureViewDimension2D
	frameEntries[1].Sampler.Type = wgpu.SamplerBindingTypeFiltering
	frameEntries[2].Buffer.Type = wgpu.BufferBindingTypeUniform
	frameEntries[2].Buffer.MinBindingSize = globals.Size

	b.frameLayout, err = b.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   "Frame Bind Group Layout",
		Entries: frameEntries,
	})
	if err != nil {
		return errors.Wrap(err, "failed to create frame bind group layout")
	}

	paramsEntry := wgpu.BindGroupLayoutEntry{Binding: shader.ParamsBinding, Visibility: wgpu.ShaderStageFragment}
	paramsEntry.Buffer.Type = wgpu.BufferBindingTypeUniform
	b.paramsLayout, err = b.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   "Params Bind Group Layout",
		Entries: []wgpu.BindGroupLayoutEntry{paramsEntry},
	})
	if err != nil {
		return errors.Wrap(err, "failed to create params bind group layout")
	}

	blitShader, err := shader.NewShader("Blit", shader.ShaderTypeFragment, blitFragmentSource)
	if err != nil {
		return errors.Wrap(err, "failed to prepare blit shader")
	}
	b.blitLayout, err = b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "Blit Pipeline Layout",
		BindGroupLayouts: []*wgpu.BindGroupLayout{b.frameLayout},
	})
	if err != nil {
		return errors.Wrap(err, "failed to create blit pipeline layout")
	}
	b.blitPipeline, err = b.createFullscreenPipeline("Blit", blitShader, b.blitLayout)
	if err != nil {
		return errors.Wrap(err, "failed to create blit pipeline")
	}
	return nil
}

func (b *wgpuRendererBackendImpl) createShaderModule(s shader.Shader) (*wgpu.ShaderModule, error) {
	module, err := b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: s.Key(),
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: s.Source(),
		},
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to compile %s shader %s", s.ShaderType(), s.Key())
	}
	return module, nil
}

// createFullscreenPipeline compiles a fragment shader against the shared vertex stage. The
// color target always uses the surface format, which is also the feedback texture format.
func (b *wgpuRendererBackendImpl) createFullscreenPipeline(label string, fragment shader.Shader, layout *wgpu.PipelineLayout) (*wgpu.RenderPipeline, error) {
	fs, err := b.createShaderModule(fragment)
	if err != nil {
		return nil, err
	}
	defer fs.Release()

	return b.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  label + " Render Pipeline",
		Layout: layout,
		Vertex: wgpu.VertexState{
			Module:     b.vertexModule,
			EntryPoint: b.vertexEntry,
		},
		Fragment: &wgpu.FragmentState{
			Module:     fs,
			EntryPoint: fragment.EntryPoint(),
			Targets: []wgpu.ColorTargetState{
				{
					Format:    b.surfaceFormat,
					WriteMask: wgpu.ColorWriteMaskAll,
				},
			},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
}

func (b *wgpuRendererBackendImpl) ConfigureSurface(width, height int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	capabilities := b.surface.GetCapabilities(b.adapter)
	b.surface.Configure(b.adapter, b.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      b.surfaceFormat,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: b.presentMode,
		AlphaMode:   capabilities.AlphaModes[0],
	})

	b.releaseFeedback()
	for i := range feedbackCount {
		provider, err := b.createFeedback(i, uint32(width), uint32(height))
		if err != nil {
			b.logger.Error("failed to create feedback texture", zap.Int("index", i), zap.Error(err))
			b.releaseFeedback()
			return
		}
		b.feedback[i] = provider
	}
	b.logger.Debug("surface configured", zap.Int("width", width), zap.Int("height", height))
}

// createFeedback allocates one feedback texture, cleared to transparent black by the driver,
// and the frame bind group that samples it.
func (b *wgpuRendererBackendImpl) createFeedback(index int, width, height uint32) (bind_group_provider.BindGroupProvider, error) {
	label := fmt.Sprintf("Feedback %d", index)
	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:     label + " Texture",
		Usage:     wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageTextureBinding,
		Dimension: wgpu.TextureDimension2D,
		Size: wgpu.Extent3D{
			Width:              width,
			Height:             height,
			DepthOrArrayLayers: 1,
		},
		Format:        b.surfaceFormat,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return nil, err
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, err
	}
	provider := bind_group_provider.NewBindGroupProvider(label, bind_group_provider.WithTexture(globals.LastFrameBinding, tex, view))

	bg, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  label + " Bind Group",
		Layout: b.frameLayout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: globals.LastFrameBinding, TextureView: view},
			{Binding: globals.LastFrameSamplerBinding, Sampler: b.sampler},
			{Binding: globals.GlobalsBinding, Buffer: b.globalsBuffer, Offset: 0, Size: wgpu.WholeSize},
		},
	})
	if err != nil {
		provider.Release()
		return nil, err
	}
	provider.SetBindGroup(bg)
	return provider, nil
}

func (b *wgpuRendererBackendImpl) releaseFeedback() {
	for i, provider := range b.feedback {
		if provider != nil {
			provider.Release()
			b.feedback[i] = nil
		}
	}
}

func (b *wgpuRendererBackendImpl) SetPresentMode(mode PresentMode) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.presentMode = wgpuPresentMode(mode)
}

// wgpuPresentMode maps a PresentMode to the surface present mode.
func wgpuPresentMode(mode PresentMode) wgpu.PresentMode {
	switch mode {
	case PresentModeUncapped:
		return wgpu.PresentModeImmediate
	case PresentModeVSync:
		fallthrough
	default:
		return wgpu.PresentModeFifo
	}
}

// parameterBufferSize returns the allocation size of a parameter uniform buffer holding count
// f32 values. Uniform buffers are allocated in 16 byte steps; only the first 4*count bytes
// are ever written.
func parameterBufferSize(count int) uint64 {
	return common.RoundUpAlign(16, uint64(count*shader.ParameterSize))
}

func (b *wgpuRendererBackendImpl) RegisterRenderPipeline(p pipeline.Pipeline) error {
	fragmentShader := p.Shader()
	if fragmentShader == nil {
		return errors.New("a fragment shader must be set to create a render pipeline")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	h := &wgpuPipelineHandle{}
	layouts := []*wgpu.BindGroupLayout{b.frameLayout}
	if p.HasParameters() {
		params, err := b.createParameterGroup(p)
		if err != nil {
			return err
		}
		h.params = params
		layouts = append(layouts, b.paramsLayout)
	}

	var err error
	h.layout, err = b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            p.PipelineKey(),
		BindGroupLayouts: layouts,
	})
	if err != nil {
		h.release()
		return errors.Wrap(err, "failed to create pipeline layout")
	}

	h.renderPipeline, err = b.createFullscreenPipeline(p.PipelineKey(), fragmentShader, h.layout)
	if err != nil {
		h.release()
		return err
	}

	p.SetPipeline(h)
	return nil
}

// createParameterGroup allocates the parameter uniform buffer, fills it with the declared
// defaults, and binds it at the params group.
func (b *wgpuRendererBackendImpl) createParameterGroup(p pipeline.Pipeline) (bind_group_provider.BindGroupProvider, error) {
	buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: p.PipelineKey() + " Params Buffer",
		Size:  parameterBufferSize(p.ParameterCount()),
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create parameter buffer")
	}
	provider := bind_group_provider.NewBindGroupProvider(p.PipelineKey()+" Params", bind_group_provider.WithBuffer(shader.ParamsBinding, buf))

	if err := b.queue.WriteBuffer(buf, 0, p.Shader().Parameters().Bytes()); err != nil {
		provider.Release()
		return nil, errors.Wrap(err, "failed to write parameter defaults")
	}

	bg, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  p.PipelineKey() + " Params Bind Group",
		Layout: b.paramsLayout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: shader.ParamsBinding, Buffer: buf, Offset: 0, Size: wgpu.WholeSize},
		},
	})
	if err != nil {
		provider.Release()
		return nil, errors.Wrap(err, "failed to create parameter bind group")
	}
	provider.SetBindGroup(bg)
	return provider, nil
}

func (b *wgpuRendererBackendImpl) ReleasePipeline(p pipeline.Pipeline) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if h, ok := p.Pipeline().(*wgpuPipelineHandle); ok && h != nil {
		h.release()
	}
	p.SetPipeline(nil)
}

func (b *wgpuRendererBackendImpl) WriteParameters(p pipeline.Pipeline, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	h, ok := p.Pipeline().(*wgpuPipelineHandle)
	if !ok || h == nil || h.params == nil {
		return errors.Errorf("pipeline %s has no parameter buffer", p.PipelineKey())
	}
	return b.queue.WriteBuffer(h.params.Buffer(shader.ParamsBinding), 0, data)
}

func (b *wgpuRendererBackendImpl) RenderFrame(p pipeline.Pipeline, globalsData []byte, read, write int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	h, ok := p.Pipeline().(*wgpuPipelineHandle)
	if !ok || h == nil || h.renderPipeline == nil {
		return errors.Errorf("pipeline %s is not registered", p.PipelineKey())
	}
	if read < 0 || read >= feedbackCount || write < 0 || write >= feedbackCount || read == write {
		return errors.Errorf("invalid feedback indices read=%d write=%d", read, write)
	}
	if b.feedback[read] == nil || b.feedback[write] == nil {
		return errors.New("feedback textures are not configured")
	}

	if err := b.queue.WriteBuffer(b.globalsBuffer, 0, globalsData); err != nil {
		return errors.Wrap(err, "failed to write globals")
	}

	surfaceTexture, err := b.surface.GetCurrentTexture()
	if err != nil {
		return errors.Wrap(err, "failed to acquire surface texture")
	}
	defer surfaceTexture.Release()

	surfaceView, err := surfaceTexture.CreateView(nil)
	if err != nil {
		return errors.Wrap(err, "failed to create surface view")
	}
	defer surfaceView.Release()

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return errors.Wrap(err, "failed to create command encoder")
	}
	defer encoder.Release()

	c := p.ClearColor()
	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: p.PipelineKey() + " Pass",
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:       b.feedback[write].TextureView(globals.LastFrameBinding),
				LoadOp:     wgpu.LoadOpClear,
				StoreOp:    wgpu.StoreOpStore,
				ClearValue: wgpu.Color{R: c[0], G: c[1], B: c[2], A: c[3]},
			},
		},
	})
	pass.SetPipeline(h.renderPipeline)
	pass.SetBindGroup(globals.FrameGroup, b.feedback[read].BindGroup(), nil)
	if h.params != nil {
		pass.SetBindGroup(shader.ParamsGroup, h.params.BindGroup(), nil)
	}
	pass.Draw(3, 1, 0, 0)
	pass.End()
	pass.Release()

	blit := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: "Blit Pass",
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:       surfaceView,
				LoadOp:     wgpu.LoadOpClear,
				StoreOp:    wgpu.StoreOpStore,
				ClearValue: wgpu.Color{A: 1},
			},
		},
	})
	blit.SetPipeline(b.blitPipeline)
	blit.SetBindGroup(globals.FrameGroup, b.feedback[write].BindGroup(), nil)
	blit.Draw(3, 1, 0, 0)
	blit.End()
	blit.Release()

	commandBuffer, err := encoder.Finish(nil)
	if err != nil {
		return errors.Wrap(err, "failed to finish command encoder")
	}
	b.queue.Submit(commandBuffer)
	commandBuffer.Release()

	b.surface.Present()
	return nil
}

func (b *wgpuRendererBackendImpl) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.releaseFeedback()
	if b.blitPipeline != nil {
		b.blitPipeline.Release()
		b.blitPipeline = nil
	}
	if b.blitLayout != nil {
		b.blitLayout.Release()
		b.blitLayout = nil
	}
	if b.paramsLayout != nil {
		b.paramsLayout.Release()
		b.paramsLayout = nil
	}
	if b.frameLayout != nil {
		b.frameLayout.Release()
		b.frameLayout = nil
	}
	if b.sampler != nil {
		b.sampler.Release()
		b.sampler = nil
	}
	if b.globalsBuffer != nil {
		b.globalsBuffer.Release()
		b.globalsBuffer = nil
	}
	if b.vertexModule != nil {
		b.vertexModule.Release()
		b.vertexModule = nil
	}
	if b.queue != nil {
		b.queue.Release()
		b.queue = nil
	}
	if b.device != nil {
		b.device.Release()
		b.device = nil
	}
	if b.adapter != nil {
		b.adapter.Release()
		b.adapter = nil
	}
	if b.surface != nil {
		b.surface.Release()
		b.surface = nil
	}
	if b.instance != nil {
		b.instance.Release()
		b.instance = nil
	}
}

// feedbackSamplerDescriptor converts sc into a sampler descriptor. LodMaxClamp and MaxAnisotropy
// fall back to 32 and 1 when zero; every other field is used as given.
func feedbackSamplerDescriptor(sc common.SamplerStagingData) *wgpu.SamplerDescriptor {
	return &wgpu.SamplerDescriptor{
		Label:         "Feedback Sampler",
		AddressModeU:  sc.AddressModeU,
		AddressModeV:  sc.AddressModeV,
		AddressModeW:  sc.AddressModeW,
		MagFilter:     sc.MagFilter,
		MinFilter:     sc.MinFilter,
		MipmapFilter:  sc.MipmapFilter,
		LodMinClamp:   sc.LodMinClamp,
		LodMaxClamp:   common.Coalesce(sc.LodMaxClamp, 32.0),
		MaxAnisotropy: common.Coalesce(sc.MaxAnisotropy, 1),
	}
}
