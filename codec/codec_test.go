package codec

import (
	"errors"
	"testing"

	"github.com/AtRiskMedia/keystone/keystoneerr"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string
	Count int
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	in := sample{Name: "buckets", Count: 7}
	data, err := Encode(in)
	require.NoError(t, err)

	var out sample
	require.NoError(t, Decode(data, &out))
	require.Equal(t, in, out)
}

func TestDecodeDetectsCorruption(t *testing.T) {
	data, err := Encode(sample{Name: "x", Count: 1})
	require.NoError(t, err)

	corrupted := append([]byte(nil), data...)
	corrupted[len(corrupted)-1] ^= 0xFF

	var out sample
	err = Decode(corrupted, &out)
	require.Error(t, err)
	require.ErrorIs(t, err, keystoneerr.ErrDecodeFailed)
}

func TestDecodeRejectsTruncatedPayload(t *testing.T) {
	err := Decode([]byte{1, 2, 3}, &sample{})
	require.Error(t, err)
	require.True(t, errors.Is(err, keystoneerr.ErrDecodeFailed))
}

func TestChecksumStableAcrossEncodeCalls(t *testing.T) {
	a, err := Encode(sample{Name: "same", Count: 5})
	require.NoError(t, err)
	b, err := Encode(sample{Name: "same", Count: 5})
	require.NoError(t, err)

	ca, ok := Checksum(a)
	require.True(t, ok)
	cb, ok := Checksum(b)
	require.True(t, ok)
	require.Equal(t, ca, cb)
	require.True(t, SameChecksum(a, b))
}

func TestSameChecksumDetectsDifference(t *testing.T) {
	a, err := Encode(sample{Name: "one", Count: 1})
	require.NoError(t, err)
	b, err := Encode(sample{Name: "two", Count: 2})
	require.NoError(t, err)
	require.False(t, SameChecksum(a, b))
}
