package history

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
)

// 圧縮モード
const (
	ModeHigh   = "high"   // zstd
	ModeMedium = "medium" // gzip
	ModeLow    = "low"    // snappy
	ModeNone   = "none"
)

func Compress(raw []byte, mode string) ([]byte, error) {
	switch mode {
	case ModeHigh:
		encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
		if err != nil {
			return nil, err
		}
		defer encoder.Close()
		return encoder.EncodeAll(raw, make([]byte, 0, len(raw))), nil

	case ModeMedium:
		var buf bytes.Buffer
		w, err := gzip.NewWriterLevel(&buf, gzip.BestSpeed)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(raw); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil

	case ModeLow:
		return snappy.Encode(nil, raw), nil

	case ModeNone:
		return raw, nil

	default:
		return nil, fmt.Errorf("unknown compression mode %q", mode)
	}
}

func Decompress(data []byte, mode string) ([]byte, error) {
	switch mode {
	case ModeHigh:
		decoder, err := zstd.NewReader(nil, zstd.WithDecoderMaxWindow(64<<20))
		if err != nil {
			return nil, err
		}
		defer decoder.Close()
		return decoder.DecodeAll(data, nil)

	case ModeMedium:
		r, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return io.ReadAll(r)

	case ModeLow:
		return snappy.Decode(nil, data)

	case ModeNone:
		return data, nil

	default:
		return nil, fmt.Errorf("unknown compression mode %q", mode)
	}
}

// Extension は出力ファイルの拡張子
func Extension(mode string) string {
	switch mode {
	case ModeHigh:
		return ".zst"
	case ModeMedium:
		return ".gz"
	case ModeLow:
		return ".sz"
	default:
		return ""
	}
}
