package ctxlog

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromContext_FallsBackToDefault(t *testing.T) {
	assert.Same(t, slog.Default(), FromContext(context.Background()))
}

func TestWith_AttachesAttributes(t *testing.T) {
	buf := &bytes.Buffer{}
	base := slog.New(slog.NewTextHandler(buf, nil))

	ctx := With(WithLogger(context.Background(), base), "recipe", "numpy-extras")
	FromContext(ctx).Info("evaluated")

	require.Contains(t, buf.String(), "recipe=numpy-extras")
	assert.Contains(t, buf.String(), "msg=evaluated")
}
