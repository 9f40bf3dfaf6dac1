package renderer

import (
	"testing"

	"github.com/Carmen-Shannon/nuance-go/engine/globals"
	"github.com/Carmen-Shannon/nuance-go/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/nuance-go/engine/renderer/shader"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type frameCall struct {
	key         string
	globals     []byte
	read, write int
}

type fakeBackend struct {
	registerErr error
	renderErr   error

	registered []string
	released   []string
	writes     map[string][]byte
	frames     []frameCall
	configured [][2]int
	mode       *PresentMode
	closed     bool
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{writes: make(map[string][]byte)}
}

func (f *fakeBackend) RegisterRenderPipeline(p pipeline.Pipeline) error {
	if f.registerErr != nil {
		return f.registerErr
	}
	f.registered = append(f.registered, p.PipelineKey())
	p.SetPipeline(p.PipelineKey())
	return nil
}

func (f *fakeBackend) ReleasePipeline(p pipeline.Pipeline) {
	f.released = append(f.released, p.PipelineKey())
}

func (f *fakeBackend) WriteParameters(p pipeline.Pipeline, data []byte) error {
	f.writes[p.PipelineKey()] = append([]byte(nil), data...)
	return nil
}

func (f *fakeBackend) RenderFrame(p pipeline.Pipeline, g []byte, read, write int) error {
	if f.renderErr != nil {
		return f.renderErr
	}
	f.frames = append(f.frames, frameCall{key: p.PipelineKey(), globals: g, read: read, write: write})
	return nil
}

func (f *fakeBackend) ConfigureSurface(width, height int) {
	f.configured = append(f.configured, [2]int{width, height})
}

func (f *fakeBackend) SetPresentMode(mode PresentMode) {
	f.mode = &mode
}

func (f *fakeBackend) Release() {
	f.closed = true
}

func mustShader(t *testing.T, key, params string) shader.Shader {
	t.Helper()
	s, err := shader.NewShader(key, shader.ShaderTypeFragment, params+`
//@nuance:include fullscreen
@fragment
fn fs_main(in: FullscreenOutput) -> @location(0) vec4<f32> {
    return vec4<f32>(in.uv, 0.0, 1.0);
}
`)
	require.NoError(t, err)
	return s
}

func newTestRenderer(t *testing.T, backend *fakeBackend) Renderer {
	return NewRenderer(backend,
		WithSurfaceSize(640, 480),
		WithPresentMode(PresentModeUncapped),
		WithLogger(zaptest.NewLogger(t)),
	)
}

func TestNewRendererConfiguresSurface(t *testing.T) {
	backend := newFakeBackend()
	r := newTestRenderer(t, backend)

	assert.Equal(t, [][2]int{{640, 480}}, backend.configured)
	require.NotNil(t, backend.mode)
	assert.Equal(t, PresentModeUncapped, *backend.mode)
	assert.Nil(t, r.Current())

	w, h := r.SurfaceSize()
	assert.Equal(t, 640, w)
	assert.Equal(t, 480, h)
}

func TestBuildDoesNotSwap(t *testing.T) {
	backend := newFakeBackend()
	r := newTestRenderer(t, backend)

	p, err := r.BuildPipeline(mustShader(t, "a", "//@nuance:param x 0 1 0.5"))
	require.NoError(t, err)
	assert.Equal(t, "a", p.Pipeline())
	assert.Nil(t, r.Current(), "a built pipeline only becomes current on swap")

	r.SwapPipeline(p)
	assert.Same(t, p, r.Current())
}

func TestFailedBuildKeepsCurrentPipeline(t *testing.T) {
	backend := newFakeBackend()
	r := newTestRenderer(t, backend)

	first, err := r.BuildPipeline(mustShader(t, "first", "//@nuance:param x 0 1 0.5"))
	require.NoError(t, err)
	r.SwapPipeline(first)

	backend.registerErr = errors.New("shader module rejected")
	p, err := r.BuildPipeline(mustShader(t, "second", ""))
	assert.Nil(t, p)

	var pipelineErr *PipelineError
	require.True(t, errors.As(err, &pipelineErr))
	assert.Equal(t, "second", pipelineErr.Key)
	assert.Contains(t, err.Error(), "shader module rejected")

	assert.Same(t, first, r.Current())
	assert.Empty(t, backend.released)
	require.NoError(t, r.Execute(globals.GlobalsFrame{}))
	assert.Equal(t, "first", backend.frames[0].key)
}

func TestSwapReleasesPrevious(t *testing.T) {
	backend := newFakeBackend()
	r := newTestRenderer(t, backend)

	a, err := r.BuildPipeline(mustShader(t, "a", ""))
	require.NoError(t, err)
	b, err := r.BuildPipeline(mustShader(t, "b", ""))
	require.NoError(t, err)

	r.SwapPipeline(a)
	r.SwapPipeline(a)
	assert.Empty(t, backend.released, "swapping in the current pipeline releases nothing")

	r.SwapPipeline(b)
	assert.Equal(t, []string{"a"}, backend.released)

	r.Release()
	assert.Equal(t, []string{"a", "b"}, backend.released)
	assert.True(t, backend.closed)
	assert.Nil(t, r.Current())
}

func TestUpdateParameters(t *testing.T) {
	backend := newFakeBackend()
	r := newTestRenderer(t, backend)

	assert.ErrorIs(t, r.UpdateParameters(nil), ErrNoPipeline)

	s := mustShader(t, "p", "//@nuance:param a 0 1 0.5\n//@nuance:param b -1 1 0")
	p, err := r.BuildPipeline(s)
	require.NoError(t, err)
	r.SwapPipeline(p)

	err = r.UpdateParameters(make([]byte, 4))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be 8 bytes, got 4")

	data := s.Parameters().Bytes()
	require.NoError(t, r.UpdateParameters(data))
	assert.Equal(t, []byte{0, 0, 0, 0x3f, 0, 0, 0, 0}, backend.writes["p"])
}

func TestUpdateParametersWithoutParameterBinding(t *testing.T) {
	backend := newFakeBackend()
	r := newTestRenderer(t, backend)

	p, err := r.BuildPipeline(mustShader(t, "plain", ""))
	require.NoError(t, err)
	r.SwapPipeline(p)

	require.NoError(t, r.UpdateParameters([]byte{}))
	assert.Empty(t, backend.writes, "no buffer exists for a pipeline without parameters")
	assert.Error(t, r.UpdateParameters(make([]byte, 4)))
}

func TestExecuteSwapsFeedbackOncePerFrame(t *testing.T) {
	backend := newFakeBackend()
	r := newTestRenderer(t, backend)

	assert.ErrorIs(t, r.Execute(globals.GlobalsFrame{}), ErrNoPipeline)

	p, err := r.BuildPipeline(mustShader(t, "fb", ""))
	require.NoError(t, err)
	r.SwapPipeline(p)

	for i := 0; i < 3; i++ {
		require.NoError(t, r.Execute(globals.GlobalsFrame{Frame: uint32(i)}))
	}
	require.Len(t, backend.frames, 3)
	assert.Equal(t, [2]int{0, 1}, [2]int{backend.frames[0].read, backend.frames[0].write})
	assert.Equal(t, [2]int{1, 0}, [2]int{backend.frames[1].read, backend.frames[1].write})
	assert.Equal(t, [2]int{0, 1}, [2]int{backend.frames[2].read, backend.frames[2].write})
	assert.Len(t, backend.frames[2].globals, globals.Size)
	assert.Equal(t, byte(2), backend.frames[2].globals[28])

	read, write := r.FeedbackIndices()
	assert.Equal(t, 1, read)
	assert.Equal(t, 0, write)
}

func TestFailedFrameDoesNotSwapFeedback(t *testing.T) {
	backend := newFakeBackend()
	r := newTestRenderer(t, backend)

	p, err := r.BuildPipeline(mustShader(t, "fb", ""))
	require.NoError(t, err)
	r.SwapPipeline(p)

	backend.renderErr = errors.New("surface lost")
	err = r.Execute(globals.GlobalsFrame{})
	var pipelineErr *PipelineError
	require.True(t, errors.As(err, &pipelineErr))

	read, write := r.FeedbackIndices()
	assert.Equal(t, 0, read, "the read texture still holds the last completed frame")
	assert.Equal(t, 1, write)
}

func TestResize(t *testing.T) {
	backend := newFakeBackend()
	r := newTestRenderer(t, backend)

	p, err := r.BuildPipeline(mustShader(t, "fb", ""))
	require.NoError(t, err)
	r.SwapPipeline(p)
	require.NoError(t, r.Execute(globals.GlobalsFrame{}))

	r.Resize(0, 100)
	assert.Len(t, backend.configured, 1, "zero-sized surfaces are ignored")

	r.Resize(800, 600)
	assert.Equal(t, [2]int{800, 600}, backend.configured[1])
	read, write := r.FeedbackIndices()
	assert.Equal(t, 0, read)
	assert.Equal(t, 1, write)
}

func TestParsePresentMode(t *testing.T) {
	m, ok := ParsePresentMode("uncapped")
	assert.True(t, ok)
	assert.Equal(t, PresentModeUncapped, m)

	m, ok = ParsePresentMode("")
	assert.True(t, ok)
	assert.Equal(t, PresentModeVSync, m)

	_, ok = ParsePresentMode("mailbox")
	assert.False(t, ok)
}

func TestClearColorReachesPipelines(t *testing.T) {
	backend := newFakeBackend()
	r := NewRenderer(backend, WithClearColor(0.2, 0.1, 0.4, 1), WithLogger(zaptest.NewLogger(t)))

	p, err := r.BuildPipeline(mustShader(t, "a", ""))
	require.NoError(t, err)
	assert.Equal(t, [4]float64{0.2, 0.1, 0.4, 1}, p.ClearColor())

	p, err = newTestRenderer(t, newFakeBackend()).BuildPipeline(mustShader(t, "b", ""))
	require.NoError(t, err)
	assert.Equal(t, [4]float64{0, 0, 0, 1}, p.ClearColor(), "opaque black by default")
}
