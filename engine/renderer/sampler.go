package renderer

import (
	"github.com/Carmen-Shannon/nuance-go/common"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/pkg/errors"
)

// DefaultFeedbackSampler is the sampler used to read the previous frame when none is configured.
var DefaultFeedbackSampler = common.SamplerStagingData{
	AddressModeU:  wgpu.AddressModeClampToEdge,
	AddressModeV:  wgpu.AddressModeClampToEdge,
	AddressModeW:  wgpu.AddressModeClampToEdge,
	MagFilter:     wgpu.FilterModeLinear,
	MinFilter:     wgpu.FilterModeLinear,
	MipmapFilter:  wgpu.MipmapFilterModeNearest,
	LodMaxClamp:   32,
	MaxAnisotropy: 1,
}

// FeedbackSampler builds a feedback sampler configuration from its configuration names.
//
// Parameters:
//   - filter: "linear" or "nearest", empty means linear
//   - address: "clamp", "repeat" or "mirror", empty means clamp
//
// Returns:
//   - common.SamplerStagingData: the sampler configuration
//   - error: an error naming the unknown value
func FeedbackSampler(filter, address string) (common.SamplerStagingData, error) {
	data := DefaultFeedbackSampler

	switch filter {
	case "linear", "":
	case "nearest":
		data.MagFilter = wgpu.FilterModeNearest
		data.MinFilter = wgpu.FilterModeNearest
	default:
		return data, errors.Errorf("unknown sampler filter %q", filter)
	}

	var mode wgpu.AddressMode
	switch address {
	case "clamp", "":
		mode = wgpu.AddressModeClampToEdge
	case "repeat":
		mode = wgpu.AddressModeRepeat
	case "mirror":
		mode = wgpu.AddressModeMirrorRepeat
	default:
		return data, errors.Errorf("unknown sampler address mode %q", address)
	}
	data.AddressModeU, data.AddressModeV, data.AddressModeW = mode, mode, mode
	return data, nil
}
