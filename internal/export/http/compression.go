package http

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
)

const (
	CompressionNone   = "none"
	CompressionGzip   = "gzip"
	CompressionZstd   = "zstd"
	CompressionZlib   = "zlib"
	CompressionSnappy = "snappy"
)

// Codec compresses request bodies for one Content-Encoding.
type Codec interface {
	// Encoding is the Content-Encoding value, empty for identity.
	Encoding() string
	Encode(src []byte) ([]byte, error)
	Close() error
}

// NewCodec returns the codec for a compression name. An empty name means
// no compression.
func NewCodec(name string) (Codec, error) {
	switch name {
	case "", CompressionNone:
		return identityCodec{}, nil
	case CompressionGzip:
		return &streamCodec{
			encoding: "gzip",
			open:     func(w io.Writer) io.WriteCloser { return gzip.NewWriter(w) },
		}, nil
	case CompressionZlib:
		return &streamCodec{
			encoding: "deflate",
			open:     func(w io.Writer) io.WriteCloser { return zlib.NewWriter(w) },
		}, nil
	case CompressionZstd:
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, fmt.Errorf("creating zstd encoder: %w", err)
		}

		return &zstdCodec{enc: enc}, nil
	case CompressionSnappy:
		return snappyCodec{}, nil
	default:
		return nil, fmt.Errorf("unsupported compression %q", name)
	}
}

type identityCodec struct{}

func (identityCodec) Encoding() string { return "" }

func (identityCodec) Encode(src []byte) ([]byte, error) { return src, nil }

func (identityCodec) Close() error { return nil }

// streamCodec wraps writer-based formats. Buffers are pooled across calls.
type streamCodec struct {
	encoding string
	open     func(io.Writer) io.WriteCloser
	pool     sync.Pool
}

func (c *streamCodec) Encoding() string { return c.encoding }

func (c *streamCodec) Encode(src []byte) ([]byte, error) {
	buf, _ := c.pool.Get().(*bytes.Buffer)
	if buf == nil {
		buf = new(bytes.Buffer)
	}

	buf.Reset()
	defer c.pool.Put(buf)

	w := c.open(buf)

	if _, err := w.Write(src); err != nil {
		return nil, fmt.Errorf("%s write: %w", c.encoding, err)
	}

	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("%s close: %w", c.encoding, err)
	}

	return bytes.Clone(buf.Bytes()), nil
}

func (c *streamCodec) Close() error { return nil }

type zstdCodec struct {
	enc *zstd.Encoder
}

func (c *zstdCodec) Encoding() string { return "zstd" }

func (c *zstdCodec) Encode(src []byte) ([]byte, error) {
	return c.enc.EncodeAll(src, make([]byte, 0, len(src)/2)), nil
}

func (c *zstdCodec) Close() error { return c.enc.Close() }

type snappyCodec struct{}

func (snappyCodec) Encoding() string { return "snappy" }

func (snappyCodec) Encode(src []byte) ([]byte, error) { return snappy.Encode(nil, src), nil }

func (snappyCodec) Close() error { return nil }

// Decode reverses a Content-Encoding. Receivers and tests use it.
func Decode(encoding string, data []byte) ([]byte, error) {
	switch encoding {
	case "", "identity":
		return data, nil
	case "gzip":
		r, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("opening gzip: %w", err)
		}
		defer r.Close()

		return io.ReadAll(r)
	case "deflate":
		r, err := zlib.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("opening zlib: %w", err)
		}
		defer r.Close()

		return io.ReadAll(r)
	case "zstd":
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, fmt.Errorf("opening zstd: %w", err)
		}
		defer dec.Close()

		return dec.DecodeAll(data, nil)
	case "snappy":
		return snappy.Decode(nil, data)
	default:
		return nil, fmt.Errorf("unsupported content encoding %q", encoding)
	}
}
