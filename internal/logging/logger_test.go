package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithContextPrefersRequestLogger(t *testing.T) {
	var base, scoped bytes.Buffer
	SetOutput(&base)

	ctx := Into(context.Background(), Logger().Output(&scoped).With().Str("request_id", "r-1").Logger())
	Info(ctx).Msg("scoped")
	Info(context.Background()).Msg("plain")

	var line map[string]any
	require.NoError(t, json.Unmarshal(scoped.Bytes(), &line))
	assert.Equal(t, "r-1", line["request_id"])
	assert.Equal(t, "scoped", line["message"])
	assert.Contains(t, base.String(), `"message":"plain"`)
	assert.NotContains(t, base.String(), "scoped")
}
