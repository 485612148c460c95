package env

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetEnvFallbacks(t *testing.T) {
	t.Setenv("VIGIL_TEST_STR", "value")
	t.Setenv("VIGIL_TEST_INT", "not-a-number")
	t.Setenv("VIGIL_TEST_FLOAT", "0.75")

	assert.Equal(t, "value", GetEnv("VIGIL_TEST_STR", "default"))
	assert.Equal(t, "default", GetEnv("VIGIL_TEST_MISSING", "default"))
	assert.Equal(t, 7, GetEnvInt("VIGIL_TEST_INT", 7))
	assert.Equal(t, 0.75, GetEnvFloat("VIGIL_TEST_FLOAT", 0.1))
}

func TestGetEnvBool(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		fallback bool
		want     bool
	}{
		{name: "Empty_UsesDefault", value: "", fallback: true, want: true},
		{name: "True", value: "true", fallback: false, want: true},
		{name: "One", value: "1", fallback: false, want: true},
		{name: "Yes", value: "YES", fallback: false, want: true},
		{name: "Off", value: "off", fallback: true, want: false},
		{name: "Garbage_UsesDefault", value: "maybe", fallback: true, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("VIGIL_TEST_BOOL", tt.value)
			assert.Equal(t, tt.want, GetEnvBool("VIGIL_TEST_BOOL", tt.fallback))
		})
	}
}
