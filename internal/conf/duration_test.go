package conf

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDuration_MarshalJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		duration Duration
		expected string
	}{
		{"zero", Duration(0), `"0s"`},
		{"simulator tick", Duration(2 * time.Second), `"2s"`},
		{"cooldown", Duration(15 * time.Minute), `"15m0s"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			b, err := json.Marshal(tt.duration)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(b))
		})
	}
}

func TestDuration_UnmarshalJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected Duration
		wantErr  bool
	}{
		{"string", `"90s"`, Duration(90 * time.Second), false},
		{"nanoseconds", `2000000000`, Duration(2 * time.Second), false},
		{"null resets", `null`, Duration(0), false},
		{"garbage", `"soon"`, 0, true},
		{"boolean", `true`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			d := Duration(time.Minute)
			err := json.Unmarshal([]byte(tt.input), &d)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, d)
		})
	}
}

func TestDuration_YAML(t *testing.T) {
	t.Parallel()

	type window struct {
		Cooldown Duration `yaml:"cooldown"`
	}

	b, err := yaml.Marshal(window{Cooldown: Duration(10 * time.Minute)})
	require.NoError(t, err)
	assert.Contains(t, string(b), "10m0s")

	var legacy window
	require.NoError(t, yaml.Unmarshal([]byte("cooldown: 5000000000\n"), &legacy))
	assert.Equal(t, Duration(5*time.Second), legacy.Cooldown)

	var bad window
	assert.Error(t, yaml.Unmarshal([]byte("cooldown: later\n"), &bad))
}
