package obslog

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChannelsTagLogLinesWithChannelName(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, slog.LevelInfo)

	l.Backend().Info("loaded events", "count", 3)

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	require.Equal(t, "backend", record["channel"])
	require.Equal(t, "loaded events", record["msg"])
}

func TestWithCorrelationTagsEveryLine(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, slog.LevelInfo)
	log := l.WithCorrelation(ChannelAnalyzer, "01ABC")
	log.Info("first")
	log.Info("second")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	for _, line := range lines {
		var record map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &record))
		require.Equal(t, "01ABC", record["corr"])
		require.Equal(t, "analyzer", record["channel"])
	}
}

func TestNewCorrelationIDsAreUniqueAndSortable(t *testing.T) {
	a := NewCorrelationID()
	b := NewCorrelationID()
	require.NotEqual(t, a, b)
	require.Less(t, a, b)
	require.Len(t, a, 26)
}

func TestDiscardSuppressesOutput(t *testing.T) {
	l := Discard()
	l.System().Error("should not appear")
}

func TestChannelFallsBackToSystemForUnknown(t *testing.T) {
	l := New(nil, slog.LevelInfo)
	require.Same(t, l.System(), l.Channel(Channel("nonsense")))
}
