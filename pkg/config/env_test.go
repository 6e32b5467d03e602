package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpandEnv(t *testing.T) {
	t.Setenv("NATOURS_SET", "value")
	t.Setenv("NATOURS_EMPTY", "")

	tests := []struct {
		input string
		want  string
	}{
		{"${NATOURS_SET}", "value"},
		{"${NATOURS_UNSET}", ""},
		{"${NATOURS_UNSET:-fallback}", "fallback"},
		{"${NATOURS_EMPTY:-fallback}", "fallback"},
		{"${NATOURS_SET:-fallback}", "value"},
		{"${NATOURS_UNSET:-}", ""},
		{"url: http://${NATOURS_SET}:${NATOURS_PORT:-8000}/api", "url: http://value:8000/api"},
		{"no references", "no references"},
		{"$NATOURS_SET", "$NATOURS_SET"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ExpandEnv(tt.input))
		})
	}
	assert.Equal(t, []byte("value"), ExpandEnvBytes([]byte("${NATOURS_SET}")))
}

func TestMissingEnvVars(t *testing.T) {
	t.Setenv("NATOURS_SET", "value")

	input := "${NATOURS_SET} ${NATOURS_A} ${NATOURS_B:-x} ${NATOURS_A} ${NATOURS_C}"
	assert.Equal(t, []string{"NATOURS_A", "NATOURS_C"}, MissingEnvVars(input))
	assert.Empty(t, MissingEnvVars("${NATOURS_SET}"))
}
