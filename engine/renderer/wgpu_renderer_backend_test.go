package renderer

import (
	"os"
	"testing"

	"github.com/Carmen-Shannon/nuance-go/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWGPUPresentMode(t *testing.T) {
	assert.Equal(t, wgpu.PresentModeFifo, wgpuPresentMode(PresentModeVSync))
	assert.Equal(t, wgpu.PresentModeImmediate, wgpuPresentMode(PresentModeUncapped))
	assert.Equal(t, wgpu.PresentModeFifo, wgpuPresentMode(PresentMode(42)))
}

func TestParameterBufferSize(t *testing.T) {
	tests := []struct {
		count int
		want  uint64
	}{
		{count: 1, want: 16},
		{count: 2, want: 16},
		{count: 4, want: 16},
		{count: 5, want: 32},
		{count: 9, want: 48},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parameterBufferSize(tt.count), "count %d", tt.count)
	}
}

func TestBuiltinShadersPreProcess(t *testing.T) {
	vs, err := shader.NewShader("Fullscreen Vertex", shader.ShaderTypeVertex, fullscreenVertexSource)
	require.NoError(t, err)
	assert.Equal(t, "vs_main", vs.EntryPoint())
	assert.Contains(t, vs.Source(), "struct FullscreenOutput")

	blit, err := shader.NewShader("Blit", shader.ShaderTypeFragment, blitFragmentSource)
	require.NoError(t, err)
	assert.Equal(t, "fs_blit", blit.EntryPoint())
	assert.Empty(t, blit.Parameters())
}

func TestNewWGPURendererBackend(t *testing.T) {
	if os.Getenv("NUANCE_GPU_TESTS") == "" {
		t.Skip("Need a GPU and a window surface; set NUANCE_GPU_TESTS to run")
	}
	_, err := NewWGPURendererBackend(nil)
	assert.Error(t, err, "a nil surface descriptor cannot produce a compatible adapter")
}
