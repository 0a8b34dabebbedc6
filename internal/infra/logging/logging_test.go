package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNew_WritesServiceAttr(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := New(&buf, "wagerengine", slog.LevelInfo)

	log.Debug("hidden")
	log.Info("wager matched", "wager_id", "w-1")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	require.Equal(t, "wagerengine", rec["service"])
	require.Equal(t, "wager matched", rec["msg"])
	require.Equal(t, "w-1", rec["wager_id"])
}
