package http

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodec_RoundTrip(t *testing.T) {
	payload := bytes.Repeat([]byte(`{"kind":"stats","origin":"fallback","value":{"total_reports":125}}`+"\n"), 20)

	tests := []struct {
		name     string
		encoding string
		shrinks  bool
	}{
		{CompressionNone, "", false},
		{CompressionGzip, "gzip", true},
		{CompressionZlib, "deflate", true},
		{CompressionZstd, "zstd", true},
		{CompressionSnappy, "snappy", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewCodec(tt.name)
			require.NoError(t, err)
			defer c.Close()

			assert.Equal(t, tt.encoding, c.Encoding())

			// Twice, to exercise pooled buffers.
			for range 2 {
				encoded, err := c.Encode(payload)
				require.NoError(t, err)

				if tt.shrinks {
					assert.Less(t, len(encoded), len(payload))
				}

				decoded, err := Decode(c.Encoding(), encoded)
				require.NoError(t, err)
				assert.Equal(t, payload, decoded)
			}
		})
	}
}

func TestCodec_EmptyNameIsIdentity(t *testing.T) {
	c, err := NewCodec("")
	require.NoError(t, err)

	out, err := c.Encode([]byte("x"))
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), out)
	assert.Empty(t, c.Encoding())
}

func TestCodec_Unknown(t *testing.T) {
	_, err := NewCodec("brotli")
	require.Error(t, err)

	_, err = Decode("br", []byte("x"))
	require.Error(t, err)
}

func TestCodec_EncodedBuffersAreIndependent(t *testing.T) {
	c, err := NewCodec(CompressionGzip)
	require.NoError(t, err)

	first, err := c.Encode([]byte("first payload first payload"))
	require.NoError(t, err)

	snapshot := bytes.Clone(first)

	_, err = c.Encode([]byte("second payload entirely different"))
	require.NoError(t, err)

	assert.Equal(t, snapshot, first)
}
