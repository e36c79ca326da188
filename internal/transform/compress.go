package transform

import (
	"bytes"
	"compress/gzip"
	"io"

	"medcache/internal/errors"
)

// Gzip is the lossless compress/decompress transform
type Gzip struct{}

// Name returns the transform flag this implements
func (Gzip) Name() string { return "compress" }

// Encode gzip-compresses the payload
func (Gzip) Encode(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := gzip.NewWriter(&buf)
	if _, err := writer.Write(data); err != nil {
		return nil, errors.SerializationError("gzip compression failed", err)
	}
	if err := writer.Close(); err != nil {
		return nil, errors.SerializationError("gzip compression failed", err)
	}
	return buf.Bytes(), nil
}

// Decode decompresses a payload produced by Encode
func (Gzip) Decode(data []byte) ([]byte, error) {
	reader, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, errors.SerializationError("gzip decompression failed", err)
	}
	defer reader.Close()

	out, err := io.ReadAll(reader)
	if err != nil {
		return nil, errors.SerializationError("gzip decompression failed", err)
	}
	return out, nil
}
