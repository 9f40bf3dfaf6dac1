package bind_group_provider

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
)

func TestNewBindGroupProvider(t *testing.T) {
	p := NewBindGroupProvider("Feedback 0")
	assert.Equal(t, "Feedback 0", p.Label())
	assert.Nil(t, p.BindGroup())
	assert.Nil(t, p.Buffer(0))
	assert.Nil(t, p.Texture(0))
	assert.Nil(t, p.TextureView(0))
}

func TestReleaseIsIdempotent(t *testing.T) {
	var tex *wgpu.Texture
	var view *wgpu.TextureView
	p := NewBindGroupProvider("Params", WithTexture(0, tex, view), WithBuffer(1, nil))

	assert.NotPanics(t, p.Release)
	assert.NotPanics(t, p.Release)
	assert.Nil(t, p.BindGroup())
}
