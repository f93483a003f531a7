package log

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextRoundTrip(t *testing.T) {
	ctx := context.Background()
	ctx = ContextWithSessionID(ctx, "sess-1")
	ctx = ContextWithPanelID(ctx, "iptv")

	assert.Equal(t, "sess-1", SessionIDFromContext(ctx))
	assert.Equal(t, "iptv", PanelIDFromContext(ctx))
}

func TestContextMissingValues(t *testing.T) {
	assert.Empty(t, SessionIDFromContext(context.Background()))
	assert.Empty(t, PanelIDFromContext(context.Background()))
	assert.Empty(t, SessionIDFromContext(nil)) //nolint:staticcheck // nil tolerance is part of the contract
}

func TestWithContextEnrichesLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	ctx := ContextWithSessionID(context.Background(), "sess-42")
	ctx = ContextWithPanelID(ctx, "iptv")

	enriched := WithContext(ctx, logger)
	enriched.Info().Msg("hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "sess-42", entry[FieldSessionID])
	assert.Equal(t, "iptv", entry[FieldPanelID])
}

func TestWithContextNoFieldsReturnsSameLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	enriched := WithContext(context.Background(), logger)
	enriched.Info().Msg("plain")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	_, ok := entry[FieldSessionID]
	assert.False(t, ok)
}
