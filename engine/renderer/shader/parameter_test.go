package shader

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floatsOf(t *testing.T, buf []byte) []float32 {
	t.Helper()
	require.Zero(t, len(buf)%ParameterSize)
	out := make([]float32, len(buf)/ParameterSize)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*ParameterSize:]))
	}
	return out
}

func TestParametersBytes(t *testing.T) {
	ps := Parameters{
		{Name: "a", Value: 0.5, Min: 0, Max: 1, Default: 0.5},
		{Name: "b", Value: 0, Min: -1, Max: 1, Default: 0},
	}

	buf := ps.Bytes()
	assert.Len(t, buf, 8)
	assert.Equal(t, uint64(8), ps.Size())
	assert.Equal(t, []float32{0.5, 0}, floatsOf(t, buf))
	assert.Equal(t, []byte{0x00, 0x00, 0x00, 0x3f, 0, 0, 0, 0}, buf)

	assert.Empty(t, Parameters(nil).Bytes())
}

func TestParametersSetClamps(t *testing.T) {
	ps := Parameters{{Name: "a", Value: 0.5, Min: 0, Max: 1, Default: 0.5}}

	v, err := ps.Set("a", 3)
	require.NoError(t, err)
	assert.Equal(t, float32(1), v)
	assert.Equal(t, float32(1), ps[0].Value)

	v, err = ps.Set("a", -3)
	require.NoError(t, err)
	assert.Equal(t, float32(0), v)

	_, err = ps.Set("missing", 1)
	assert.True(t, errors.Is(err, ErrUnknownParameter))
}

func TestParametersSetRejectsNaN(t *testing.T) {
	ps := Parameters{{Name: "a", Value: 0.5, Min: 0, Max: 1, Default: 0.5}}

	v, err := ps.Set("a", float32(math.NaN()))
	assert.True(t, errors.Is(err, ErrInvalidValue))
	assert.Equal(t, float32(0.5), v)
	assert.Equal(t, float32(0.5), ps[0].Value)
	assert.Equal(t, []float32{0.5}, floatsOf(t, ps.Bytes()))

	v, err = ps.Set("a", float32(math.Inf(1)))
	require.NoError(t, err)
	assert.Equal(t, float32(1), v, "infinities clamp to the bounds")
}

func TestParametersClone(t *testing.T) {
	ps := Parameters{{Name: "a", Value: 1, Max: 2}}
	c := ps.Clone()
	c[0].Value = 2
	assert.Equal(t, float32(1), ps[0].Value)
	assert.Nil(t, Parameters(nil).Clone())
}

func TestMerge(t *testing.T) {
	prev := Parameters{
		{Name: "a", Value: 0.9, Min: 0, Max: 1, Default: 0.5},
		{Name: "b", Value: -0.75, Min: -1, Max: 1, Default: 0},
		{Name: "gone", Value: 7, Min: 0, Max: 10, Default: 1},
	}
	next := Parameters{
		{Name: "fresh", Value: 3, Min: 0, Max: 5, Default: 3},
		{Name: "b", Value: 0, Min: -0.5, Max: 0.5, Default: 0},
		{Name: "a", Value: 0.5, Min: 0, Max: 1, Default: 0.5},
	}

	merged := Merge(prev, next)
	require.Len(t, merged, 3)
	assert.Equal(t, "fresh", merged[0].Name)
	assert.Equal(t, float32(3), merged[0].Value, "new names take their default")
	assert.Equal(t, float32(-0.5), merged[1].Value, "carried values are clamped to the new bounds")
	assert.Equal(t, float32(0.9), merged[2].Value, "values follow the name, not the position")

	assert.Equal(t, float32(0.9), prev[0].Value)
	assert.Equal(t, float32(0.5), next[2].Value, "inputs are not mutated")
}

func TestMergeIntoEmpty(t *testing.T) {
	next := Parameters{{Name: "a", Value: 0.25, Min: 0, Max: 1, Default: 0.25}}
	assert.Equal(t, next, Merge(nil, next))
	assert.Empty(t, Merge(next, nil))
}
