package renderer

import (
	"testing"

	"github.com/Carmen-Shannon/nuance-go/common"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeedbackSampler(t *testing.T) {
	tests := []struct {
		name        string
		filter      string
		address     string
		wantFilter  wgpu.FilterMode
		wantAddress wgpu.AddressMode
		wantErr     string
	}{
		{name: "defaults", wantFilter: wgpu.FilterModeLinear, wantAddress: wgpu.AddressModeClampToEdge},
		{name: "nearest repeat", filter: "nearest", address: "repeat", wantFilter: wgpu.FilterModeNearest, wantAddress: wgpu.AddressModeRepeat},
		{name: "linear mirror", filter: "linear", address: "mirror", wantFilter: wgpu.FilterModeLinear, wantAddress: wgpu.AddressModeMirrorRepeat},
		{name: "explicit clamp", filter: "nearest", address: "clamp", wantFilter: wgpu.FilterModeNearest, wantAddress: wgpu.AddressModeClampToEdge},
		{name: "unknown filter", filter: "cubic", wantErr: `unknown sampler filter "cubic"`},
		{name: "unknown address", address: "wrap", wantErr: `unknown sampler address mode "wrap"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := FeedbackSampler(tt.filter, tt.address)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantFilter, data.MagFilter)
			assert.Equal(t, tt.wantFilter, data.MinFilter)
			assert.Equal(t, tt.wantAddress, data.AddressModeU)
			assert.Equal(t, tt.wantAddress, data.AddressModeV)
			assert.Equal(t, tt.wantAddress, data.AddressModeW)
			assert.Equal(t, wgpu.MipmapFilterModeNearest, data.MipmapFilter)
			assert.Equal(t, float32(32), data.LodMaxClamp)
			assert.Equal(t, uint16(1), data.MaxAnisotropy)
		})
	}
}

func TestWithFeedbackSamplerKeepsZeroEnums(t *testing.T) {
	data, err := FeedbackSampler("nearest", "repeat")
	require.NoError(t, err)
	require.Zero(t, data.MagFilter, "nearest is the zero filter mode")
	require.Zero(t, data.AddressModeU, "repeat is the zero address mode")

	b := &wgpuRendererBackendImpl{samplerConfig: DefaultFeedbackSampler}
	WithFeedbackSampler(data)(b)
	assert.Equal(t, wgpu.FilterModeNearest, b.samplerConfig.MagFilter)
	assert.Equal(t, wgpu.AddressModeRepeat, b.samplerConfig.AddressModeU)

	desc := feedbackSamplerDescriptor(b.samplerConfig)
	assert.Equal(t, wgpu.FilterModeNearest, desc.MagFilter)
	assert.Equal(t, wgpu.FilterModeNearest, desc.MinFilter)
	assert.Equal(t, wgpu.AddressModeRepeat, desc.AddressModeU)
	assert.Equal(t, wgpu.AddressModeRepeat, desc.AddressModeW)
	assert.Equal(t, float32(32), desc.LodMaxClamp)
	assert.Equal(t, uint16(1), desc.MaxAnisotropy)
}

func TestFeedbackSamplerDescriptorFillsLimits(t *testing.T) {
	desc := feedbackSamplerDescriptor(common.SamplerStagingData{})
	assert.Equal(t, float32(32), desc.LodMaxClamp)
	assert.Equal(t, uint16(1), desc.MaxAnisotropy)
	assert.Equal(t, "Feedback Sampler", desc.Label)
}
