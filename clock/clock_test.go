package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSystemNowIsUTC(t *testing.T) {
	require.Equal(t, time.UTC, System{}.Now().Location())
}

func TestFixedAlwaysReturnsSameInstant(t *testing.T) {
	at := time.Date(2026, 8, 6, 12, 0, 0, 0, time.UTC)
	f := NewFixed(at)
	require.True(t, f.Now().Equal(at))
	require.True(t, f.Now().Equal(at))
}
