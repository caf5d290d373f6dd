package misc

import (
	"bytes"
	"strings"
	"testing"
)

func TestCompressRoundTrip(t *testing.T) {
	data := []byte(strings.Repeat("raw_buffer_load %src[7] : memref<8xf32>, i32 -> f32\n", 64))

	levels := []CompressionLevel{
		CompressionNone,
		CompressionBestSpeed,
		CompressionDefault,
		CompressionBestSize,
	}

	for _, level := range levels {
		compressed, err := Compress(data, level)
		if err != nil {
			t.Fatalf("Compress(level %d): %v", level, err)
		}

		out, err := Uncompress(compressed, len(data))
		if err != nil {
			t.Fatalf("Uncompress(level %d): %v", level, err)
		}
		if !bytes.Equal(out, data) {
			t.Errorf("level %d: round trip changed the data", level)
		}
	}
}

func TestCompressLevels(t *testing.T) {
	data := bytes.Repeat([]byte{0x2a}, 1024)

	stored, err := Compress(data, CompressionNone)
	if err != nil {
		t.Fatal(err)
	}
	best, err := Compress(data, CompressionBestSize)
	if err != nil {
		t.Fatal(err)
	}

	if len(best) >= len(stored) {
		t.Errorf("expected best-size output (%d bytes) below stored output (%d bytes)", len(best), len(stored))
	}
}

func TestCompressEmpty(t *testing.T) {
	compressed, err := Compress(nil, CompressionDefault)
	if err != nil {
		t.Fatal(err)
	}

	out, err := Uncompress(compressed, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 0 {
		t.Errorf("expected empty output, got %d bytes", len(out))
	}
}

func TestUncompressSizeMismatch(t *testing.T) {
	compressed, err := Compress([]byte("four"), CompressionDefault)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := Uncompress(compressed, 16); err == nil {
		t.Fatal("expected size mismatch error")
	} else if !strings.Contains(err.Error(), "expected 16") {
		t.Errorf("error %q does not report the expected size", err.Error())
	}
}

func TestUncompressGarbage(t *testing.T) {
	if _, err := Uncompress([]byte{0xde, 0xad, 0xbe, 0xef}, 4); err == nil {
		t.Fatal("expected error for invalid stream")
	}
}
