package app

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig(t *testing.T) {
	cfg, err := NewConfig(Config{RecipePatterns: []string{"recipes"}, Verbosity: 7})
	require.NoError(t, err)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, MaxVerbosity, cfg.Verbosity)

	_, err = NewConfig(Config{})
	assert.ErrorContains(t, err, "at least one recipe path")

	_, err = NewConfig(Config{RecipePatterns: []string{"r"}, Dev: true})
	assert.ErrorContains(t, err, "--dev requires --force")

	_, err = NewConfig(Config{RecipePatterns: []string{"r"}, LogFormat: "yaml"})
	assert.ErrorContains(t, err, "invalid log format")
}

func TestNewLogger(t *testing.T) {
	buf := &bytes.Buffer{}
	newLogger(0, "json", buf).Debug("hidden")
	assert.Empty(t, buf.String())

	newLogger(1, "json", buf).Debug("shown", "k", "v")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
	assert.Contains(t, buf.String(), `"k":"v"`)

	buf.Reset()
	newLogger(0, "text", buf).Info("plain")
	assert.Contains(t, buf.String(), "msg=plain")
}
