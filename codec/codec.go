// Package codec implements the on-disk envelope shared by every
// delegate-persisted artifact: JSON payload, zstd-compressed, prefixed
// with an xxhash checksum so a corrupted or truncated blob is detected
// before the (expensive) decompress-and-decode step runs.
package codec

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/klauspost/compress/zstd"

	"github.com/AtRiskMedia/keystone/keystoneerr"
)

const checksumLen = 8

var (
	encoder *zstd.Encoder
	decoder *zstd.Decoder
)

func init() {
	var err error
	encoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic(err)
	}
	decoder, err = zstd.NewReader(nil)
	if err != nil {
		panic(err)
	}
}

// Encode marshals v to JSON, compresses it, and prefixes an 8-byte
// xxhash checksum of the compressed bytes.
func Encode(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("codec: marshal: %w", err)
	}
	compressed := encoder.EncodeAll(raw, nil)
	sum := xxhash.Sum64(compressed)
	out := make([]byte, checksumLen+len(compressed))
	binary.LittleEndian.PutUint64(out, sum)
	copy(out[checksumLen:], compressed)
	return out, nil
}

// Decode verifies the checksum, decompresses, and unmarshals into v.
// A checksum mismatch or decode failure wraps keystoneerr.ErrDecodeFailed
// so callers can recognize the condition uniformly, treat the artifact
// as absent, and rebuild from source.
func Decode(data []byte, v any) error {
	if len(data) < checksumLen {
		return fmt.Errorf("codec: truncated payload (%d bytes): %w", len(data), keystoneerr.ErrDecodeFailed)
	}
	want := binary.LittleEndian.Uint64(data[:checksumLen])
	compressed := data[checksumLen:]
	if got := xxhash.Sum64(compressed); got != want {
		return fmt.Errorf("codec: checksum mismatch (want %x, got %x): %w", want, got, keystoneerr.ErrDecodeFailed)
	}
	raw, err := decoder.DecodeAll(compressed, nil)
	if err != nil {
		return fmt.Errorf("codec: decompress: %w: %w", err, keystoneerr.ErrDecodeFailed)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("codec: unmarshal: %w: %w", err, keystoneerr.ErrDecodeFailed)
	}
	return nil
}

// Checksum returns the xxhash checksum embedded in an encoded blob
// without decompressing it. The analyzer does not call it; persisted
// state is always fully decoded on load.
func Checksum(data []byte) (uint64, bool) {
	if len(data) < checksumLen {
		return 0, false
	}
	return binary.LittleEndian.Uint64(data[:checksumLen]), true
}

// SameChecksum compares two encoded blobs by their embedded checksum
// alone.
func SameChecksum(a, b []byte) bool {
	ca, ok1 := Checksum(a)
	cb, ok2 := Checksum(b)
	return ok1 && ok2 && ca == cb
}
