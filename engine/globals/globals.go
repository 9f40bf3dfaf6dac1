package globals

import (
	_ "embed"
	"encoding/binary"
	"math"

	"github.com/Carmen-Shannon/nuance-go/common"
)

// GPUGlobalsSource is the WGSL Globals struct together with the frame bind group
// declarations, injected by //@nuance:include globals.
//
//go:embed assets/globals.wgsl
var GPUGlobalsSource string

// GPUFullscreenOutputSource is the WGSL struct emitted by the full-screen triangle vertex
// stage, injected by //@nuance:include fullscreen.
//
//go:embed assets/fullscreen_output.wgsl
var GPUFullscreenOutputSource string

const (
	// Size is the byte size of a marshalled GlobalsFrame.
	Size = 32

	// FrameGroup is the bind group holding the previous frame texture, its sampler and the globals uniform.
	FrameGroup = 0

	// LastFrameBinding is the binding of the previous frame texture within FrameGroup.
	LastFrameBinding = 0

	// LastFrameSamplerBinding is the binding of the previous frame sampler within FrameGroup.
	LastFrameSamplerBinding = 1

	// GlobalsBinding is the binding of the globals uniform within FrameGroup.
	GlobalsBinding = 2
)

// GlobalsFrame is the per-frame constant block shared with every shader.
//
// Memory layout (32 bytes, little endian):
//
//	offset  0: resolution  vec2<u32>
//	offset  8: mouse       vec2<u32>
//	offset 16: mouse_wheel f32
//	offset 20: ratio       f32
//	offset 24: time        f32
//	offset 28: frame       u32
type GlobalsFrame struct {
	Resolution common.UVec2
	Mouse      common.UVec2
	MouseWheel float32
	Ratio      float32
	Time       float32
	Frame      uint32
}

// SetResolution stores the surface size and the derived aspect ratio.
// A zero height leaves the ratio unchanged.
//
// Parameters:
//   - width: the surface width in pixels
//   - height: the surface height in pixels
func (g *GlobalsFrame) SetResolution(width, height uint32) {
	g.Resolution = common.UVec2{X: width, Y: height}
	if height > 0 {
		g.Ratio = float32(width) / float32(height)
	}
}

// Marshal serializes the frame into the 32-byte layout matching the WGSL Globals struct.
//
// Returns:
//   - []byte: a freshly allocated buffer of Size bytes
func (g GlobalsFrame) Marshal() []byte {
	buf := make([]byte, Size)
	binary.LittleEndian.PutUint32(buf[0:], g.Resolution.X)
	binary.LittleEndian.PutUint32(buf[4:], g.Resolution.Y)
	binary.LittleEndian.PutUint32(buf[8:], g.Mouse.X)
	binary.LittleEndian.PutUint32(buf[12:], g.Mouse.Y)
	binary.LittleEndian.PutUint32(buf[16:], math.Float32bits(g.MouseWheel))
	binary.LittleEndian.PutUint32(buf[20:], math.Float32bits(g.Ratio))
	binary.LittleEndian.PutUint32(buf[24:], math.Float32bits(g.Time))
	binary.LittleEndian.PutUint32(buf[28:], g.Frame)
	return buf
}
