package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfig(t *testing.T) {
	tests := []struct {
		name      string
		args      []string
		wantErr   string
		wantPath  string
		wantWatch bool
		wantFPS   float64
	}{
		{
			name:     "positional shader",
			args:     []string{"a.wgsl"},
			wantPath: "a.wgsl",
			wantFPS:  30,
		},
		{
			name:      "flags",
			args:      []string{"-shader", "b.wgsl", "-watch", "-fps", "60"},
			wantPath:  "b.wgsl",
			wantWatch: true,
			wantFPS:   60,
		},
		{
			name:      "flags override the file",
			args:      []string{"-config", "../../examples/nuance.toml", "-fps", "12", "-shader", "c.wgsl"},
			wantPath:  "c.wgsl",
			wantWatch: true,
			wantFPS:   12,
		},
		{
			name:    "missing shader",
			args:    []string{},
			wantErr: "no shader given",
		},
		{
			name:    "framerate out of bounds",
			args:    []string{"-fps", "500", "a.wgsl"},
			wantErr: "target_fps",
		},
		{
			name:    "bad log level",
			args:    []string{"-log-level", "loud", "a.wgsl"},
			wantErr: "invalid log level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := parseConfig(tt.args)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantPath, cfg.Shader)
			assert.Equal(t, tt.wantWatch, cfg.Watch)
			assert.Equal(t, tt.wantFPS, cfg.TargetFPS)
		})
	}
}
