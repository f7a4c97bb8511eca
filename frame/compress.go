package frame

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/gzip"
)

// Compression schemes understood by setCompression.
const (
	SchemeNone = "none"
	SchemeGzip = "gzip"
)

var gzipWriters = sync.Pool{
	New: func() any { return gzip.NewWriter(nil) },
}

// Supported reports whether scheme can be used on the wire.
func Supported(scheme string) bool {
	return scheme == SchemeNone || scheme == SchemeGzip
}

// Compress packs payload for the given scheme. SchemeNone returns it unchanged.
func Compress(scheme string, payload []byte) ([]byte, error) {
	switch scheme {
	case SchemeNone, "":
		return payload, nil
	case SchemeGzip:
		var buf bytes.Buffer
		zw := gzipWriters.Get().(*gzip.Writer)
		defer gzipWriters.Put(zw)
		zw.Reset(&buf)
		if _, err := zw.Write(payload); err != nil {
			return nil, err
		}
		if err := zw.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	return nil, fmt.Errorf("frame: unsupported compression %q", scheme)
}

// Decompress reverses Compress.
func Decompress(scheme string, data []byte) ([]byte, error) {
	switch scheme {
	case SchemeNone, "":
		return data, nil
	case SchemeGzip:
		zr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("frame: gzip: %w", err)
		}
		defer zr.Close()
		return io.ReadAll(zr)
	}
	return nil, fmt.Errorf("frame: unsupported compression %q", scheme)
}
