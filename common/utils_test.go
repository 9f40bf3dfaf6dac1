package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCoalesce(t *testing.T) {
	assert.Equal(t, 3, Coalesce(0, 0, 3, 4))
	assert.Equal(t, "", Coalesce("", ""))
	assert.Equal(t, float32(1.5), Coalesce(float32(0), float32(1.5)))
}

func TestClamp(t *testing.T) {
	tests := []struct {
		name      string
		v, lo, hi float32
		want      float32
	}{
		{name: "inside", v: 0.5, lo: 0, hi: 1, want: 0.5},
		{name: "below", v: -2, lo: -1, hi: 1, want: -1},
		{name: "above", v: 7, lo: 0, hi: 4, want: 4},
		{name: "degenerate range", v: 3, lo: 2, hi: 2, want: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Clamp(tt.v, tt.lo, tt.hi))
		})
	}
}

func TestRoundUpAlign(t *testing.T) {
	assert.Equal(t, uint64(16), RoundUpAlign(16, 4))
	assert.Equal(t, uint64(16), RoundUpAlign(16, 16))
	assert.Equal(t, uint64(32), RoundUpAlign(16, 17))
	assert.Equal(t, uint64(5), RoundUpAlign(0, 5))
}
