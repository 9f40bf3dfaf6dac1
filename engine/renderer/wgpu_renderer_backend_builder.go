package renderer

import (
	"github.com/Carmen-Shannon/nuance-go/common"
	"go.uber.org/zap"
)

// WGPUBackendOption is a functional option applied to the WebGPU backend during construction via NewWGPURendererBackend.
type WGPUBackendOption func(*wgpuRendererBackendImpl)

// WithForceSoftwareRenderer forces WGPU to use a CPU/software fallback adapter instead of
// hardware GPU acceleration. This requires a software Vulkan ICD to be installed on the system
// (e.g. SwiftShader or lavapipe).
//
// Parameters:
//   - force: true to force the software fallback adapter, false to use hardware (default)
//
// Returns:
//   - WGPUBackendOption: a function that applies the force software renderer option to the backend
func WithForceSoftwareRenderer(force bool) WGPUBackendOption {
	return func(b *wgpuRendererBackendImpl) {
		b.forceFallbackAdapter = force
	}
}

// WithFeedbackSampler overrides the sampler used to read the previous frame.
// Every field is used as given except LodMaxClamp and MaxAnisotropy, where zero keeps 32 and 1.
// Build data with FeedbackSampler or start from DefaultFeedbackSampler.
//
// Parameters:
//   - data: the sampler configuration
//
// Returns:
//   - WGPUBackendOption: a function that applies the sampler option to the backend
func WithFeedbackSampler(data common.SamplerStagingData) WGPUBackendOption {
	return func(b *wgpuRendererBackendImpl) {
		b.samplerConfig = data
	}
}

// WithBackendLogger sets the logger used for device and surface events.
func WithBackendLogger(logger *zap.Logger) WGPUBackendOption {
	return func(b *wgpuRendererBackendImpl) {
		if logger != nil {
			b.logger = logger.Named("wgpu")
		}
	}
}
