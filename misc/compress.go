package misc

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/zlib"
	"github.com/pkg/errors"
)

// CompressionLevel selects the speed/size tradeoff for Compress.
type CompressionLevel uint8

const (
	CompressionNone      CompressionLevel = iota // stored, no deflate
	CompressionBestSpeed                         // fastest deflate
	CompressionDefault                           // balanced
	CompressionBestSize
)

func (l CompressionLevel) zlibLevel() int {
	switch l {
	case CompressionNone:
		return zlib.NoCompression
	case CompressionBestSpeed:
		return zlib.BestSpeed
	case CompressionDefault:
		return zlib.DefaultCompression
	case CompressionBestSize:
		return zlib.BestCompression
	default:
		return zlib.DefaultCompression
	}
}

// Compress deflates data at the given level.
func Compress(data []byte, level CompressionLevel) ([]byte, error) {
	var buf bytes.Buffer
	w, err := zlib.NewWriterLevel(&buf, level.zlibLevel())
	if err != nil {
		return nil, errors.Wrap(err, "creating compressor")
	}
	if _, err := w.Write(data); err != nil {
		return nil, errors.Wrap(err, "compressing")
	}
	if err := w.Close(); err != nil {
		return nil, errors.Wrap(err, "flushing compressor")
	}
	return buf.Bytes(), nil
}

// Uncompress inflates data and checks the result against the size
// recorded alongside the compressed bytes. A size mismatch is an
// error, not a truncated result.
func Uncompress(data []byte, uncompressedSize int) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "creating decompressor")
	}
	defer r.Close()

	out, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "decompressing")
	}
	if len(out) != uncompressedSize {
		return nil, errors.Errorf("decompressed %d bytes, expected %d", len(out), uncompressedSize)
	}
	return out, nil
}
