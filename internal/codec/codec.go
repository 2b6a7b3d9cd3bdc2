// Package codec implements the Compression Codec contract of spec §4.2:
// classify a buffer's framing by its header bytes, then inflate/deflate
// against gzip or zlib, or pass raw (uncompressed) bytes through. It wraps klauspost/compress instead
// of the stdlib compress/gzip and compress/zlib packages the teacher's own
// filters (internal/writer/filter_gzip.go in scigolib/hdf5) use, because
// the region container inflates and deflates many small per-chunk buffers
// and klauspost's implementation pools its internal tables across calls.
package codec

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"

	"github.com/blockmend/nbtedit/internal/utils"
)

// copyBufSize is the scratch buffer size used to drain a decompression
// stream. The region container inflates many small per-chunk buffers in
// a read-edit-write cycle, so the scratch copy buffer is pulled from
// utils' pool instead of letting each call grow its own.
const copyBufSize = 32 * 1024

// Framing identifies which compression envelope wraps a byte stream.
type Framing uint8

const (
	// Gzip is the standalone NBT file framing (spec §6: "single gzip-framed
	// NBT stream").
	Gzip Framing = iota
	// Zlib is the most common region-chunk framing (compression_type 2).
	Zlib
	// Raw is an uncompressed deflate-less stream (compression_type 3 in a
	// region file, or an already-decompressed standalone document).
	Raw
)

func (f Framing) String() string {
	switch f {
	case Gzip:
		return "gzip"
	case Zlib:
		return "zlib"
	case Raw:
		return "raw"
	default:
		return "unknown"
	}
}

// Classify inspects a buffer's leading bytes and reports its framing,
// exactly per spec §4.2:
//
//	gzip if bytes[0..2] == {0x1F, 0x8B}
//	zlib if (b0 & 0x0F) == 8 and (b0 >> 4) <= 7 and ((b0<<8)|b1) % 31 == 0
//	otherwise raw
func Classify(buf []byte) Framing {
	if len(buf) >= 2 && buf[0] == 0x1F && buf[1] == 0x8B {
		return Gzip
	}
	if len(buf) >= 2 {
		b0, b1 := buf[0], buf[1]
		if (b0&0x0F) == 8 && (b0>>4) <= 7 && ((uint16(b0)<<8)|uint16(b1))%31 == 0 {
			return Zlib
		}
	}
	return Raw
}

// Inflate decompresses buf according to framing. Raw framing is returned
// unchanged: spec §4.9 allows a chunk payload to be stored with
// compression_type 3 ("none").
func Inflate(buf []byte, framing Framing) ([]byte, error) {
	switch framing {
	case Gzip:
		r, err := gzip.NewReader(bytes.NewReader(buf))
		if err != nil {
			return nil, fmt.Errorf("gzip decode: %w", err)
		}
		defer func() { _ = r.Close() }()
		out, err := drain(r)
		if err != nil {
			return nil, fmt.Errorf("gzip decode: %w", err)
		}
		return out, nil

	case Zlib:
		r, err := zlib.NewReader(bytes.NewReader(buf))
		if err != nil {
			return nil, fmt.Errorf("zlib decode: %w", err)
		}
		defer func() { _ = r.Close() }()
		out, err := drain(r)
		if err != nil {
			return nil, fmt.Errorf("zlib decode: %w", err)
		}
		return out, nil

	case Raw:
		out := make([]byte, len(buf))
		copy(out, buf)
		return out, nil

	default:
		return nil, fmt.Errorf("unknown framing %d", framing)
	}
}

// drain reads r to completion through a pooled scratch buffer, appending
// each chunk read, rather than letting io.ReadAll grow its own buffer
// from scratch on every call.
func drain(r io.Reader) ([]byte, error) {
	scratch := utils.GetBuffer(copyBufSize)
	defer utils.ReleaseBuffer(scratch)

	var out []byte
	for {
		n, err := r.Read(scratch)
		if n > 0 {
			out = append(out, scratch[:n]...)
		}
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
	}
}

// Deflate compresses buf according to framing, at the default compression
// level. Raw framing copies buf unchanged.
func Deflate(buf []byte, framing Framing) ([]byte, error) {
	switch framing {
	case Gzip:
		var out bytes.Buffer
		w, err := gzip.NewWriterLevel(&out, gzip.DefaultCompression)
		if err != nil {
			return nil, fmt.Errorf("gzip encode: %w", err)
		}
		if _, err := w.Write(buf); err != nil {
			_ = w.Close()
			return nil, fmt.Errorf("gzip encode: %w", err)
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("gzip encode: %w", err)
		}
		return out.Bytes(), nil

	case Zlib:
		var out bytes.Buffer
		w, err := zlib.NewWriterLevel(&out, flate.DefaultCompression)
		if err != nil {
			return nil, fmt.Errorf("zlib encode: %w", err)
		}
		if _, err := w.Write(buf); err != nil {
			_ = w.Close()
			return nil, fmt.Errorf("zlib encode: %w", err)
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("zlib encode: %w", err)
		}
		return out.Bytes(), nil

	case Raw:
		out := make([]byte, len(buf))
		copy(out, buf)
		return out, nil

	default:
		return nil, fmt.Errorf("unknown framing %d", framing)
	}
}
