// Copyright ©2021 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bgzf

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"

	"github.com/mbacarella/biocaml/transform"
)

// A Deflater is a stoppable transform compressing a byte stream into
// a series of BGZF members. Each member holds at most BlockSize bytes
// of input. When the input is stopped the final partial member is
// flushed and the magic EOF member appended.
type Deflater struct {
	level int

	buf      []byte
	scratch  bytes.Buffer
	fw       *flate.Writer
	wroteEOF bool
	done     bool
}

// NewDeflater returns a Deflater using the default compression level.
func NewDeflater() *Deflater { return NewDeflaterLevel(gzip.DefaultCompression) }

// NewDeflaterLevel returns a Deflater using the given compression
// level. Valid values for level are described in the compress/gzip
// documentation.
func NewDeflaterLevel(level int) *Deflater { return &Deflater{level: level} }

// Feed appends a chunk of uncompressed input.
func (z *Deflater) Feed(p []byte) { z.buf = append(z.buf, p...) }

// Next returns the next compressed BGZF member.
func (z *Deflater) Next(stopped bool) ([]byte, transform.Status, error) {
	if z.done {
		return nil, transform.EndOfStream, nil
	}
	if len(z.buf) >= BlockSize {
		b, err := z.member(z.buf[:BlockSize])
		if err != nil {
			z.done = true
			return nil, transform.EndOfStream, err
		}
		z.buf = z.buf[BlockSize:]
		return b, transform.Output, nil
	}
	if !stopped {
		return nil, transform.NotReady, nil
	}
	if len(z.buf) > 0 {
		b, err := z.member(z.buf)
		if err != nil {
			z.done = true
			return nil, transform.EndOfStream, err
		}
		z.buf = z.buf[:0]
		return b, transform.Output, nil
	}
	if !z.wroteEOF {
		z.wroteEOF = true
		return []byte(magicBlock), transform.Output, nil
	}
	z.done = true
	z.fw = nil
	return nil, transform.EndOfStream, nil
}

// member assembles one BGZF member holding p: a gzip header with the
// BC extra subfield carrying the total member length, the deflated
// payload, and the CRC32/ISIZE footer.
func (z *Deflater) member(p []byte) ([]byte, error) {
	z.scratch.Reset()
	var err error
	if z.fw == nil {
		z.fw, err = flate.NewWriter(&z.scratch, z.level)
		if err != nil {
			return nil, err
		}
	} else {
		z.fw.Reset(&z.scratch)
	}
	if _, err = z.fw.Write(p); err != nil {
		return nil, err
	}
	if err = z.fw.Close(); err != nil {
		return nil, err
	}
	payload := z.scratch.Bytes()

	total := 12 + len(bgzfExtra) + len(payload) + 8
	if total > MaxBlockSize {
		return nil, ErrBlockOverflow
	}
	b := make([]byte, 0, total)
	b = append(b,
		gzipID1, gzipID2, gzipCM, flagFEXTRA,
		0, 0, 0, 0, // MTIME
		0, 0xff, // XFL, OS unknown
		byte(len(bgzfExtra)), 0, // XLEN
	)
	b = append(b, 'B', 'C', 2, 0)
	b = binary.LittleEndian.AppendUint16(b, uint16(total-1))
	b = append(b, payload...)
	b = binary.LittleEndian.AppendUint32(b, crc32.ChecksumIEEE(p))
	b = binary.LittleEndian.AppendUint32(b, uint32(len(p)))
	return b, nil
}

// Writer is an io.WriteCloser adapter over a Deflater-driven
// pipeline.
type Writer struct {
	p      *transform.Pump[[]byte]
	closed bool
}

// NewWriter returns a Writer compressing to w with the default level.
func NewWriter(w io.Writer) *Writer {
	return NewWriterLevel(w, gzip.DefaultCompression)
}

// NewWriterLevel returns a Writer compressing to w with the given
// level.
func NewWriterLevel(w io.Writer, level int) *Writer {
	return &Writer{p: transform.NewPump[[]byte](w, NewDeflaterLevel(level))}
}

func (w *Writer) Write(p []byte) (int, error) {
	if w.closed {
		return 0, ErrClosed
	}
	err := w.p.Write(p)
	if err != nil {
		return 0, err
	}
	return len(p), nil
}

// Close flushes the final member and the magic EOF member. It does
// not close the underlying writer.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return w.p.Close()
}
