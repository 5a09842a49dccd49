// Copyright ©2021 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bgzf

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"

	"github.com/mbacarella/biocaml/transform"
)

// An Inflater is a stoppable transform decompressing a gzip byte
// stream. Fed chunks accumulate until a whole gzip member is
// available, which is then inflated and emitted as one output chunk.
// Inflated chunk sizes are therefore arbitrary and carry no framing
// meaning.
type Inflater struct {
	buf []byte
	gz  *gzip.Reader

	// lastTried records the buffer length of the last failed plain
	// gzip trial so the decode is not repeated until more input
	// arrives.
	lastTried int

	done bool
}

// NewInflater returns an Inflater ready to be fed compressed bytes.
func NewInflater() *Inflater { return &Inflater{lastTried: -1} }

// Feed appends a chunk of compressed input.
func (z *Inflater) Feed(p []byte) { z.buf = append(z.buf, p...) }

// Next returns the next chunk of inflated data. It reports NotReady
// until a whole gzip member has been fed, and EndOfStream once the
// input is stopped and drained. Malformed input is reported once,
// wrapped with an unzip context, after which only EndOfStream is
// returned.
func (z *Inflater) Next(stopped bool) ([]byte, transform.Status, error) {
	for {
		if z.done {
			return nil, transform.EndOfStream, nil
		}
		if len(z.buf) == 0 {
			if stopped {
				z.release()
				return nil, transform.EndOfStream, nil
			}
			return nil, transform.NotReady, nil
		}

		if size, ok := memberSize(z.buf); ok {
			if size == 0 || len(z.buf) < size {
				// Member length not yet known or member incomplete.
				if !stopped {
					return nil, transform.NotReady, nil
				}
			} else {
				out, n, err := z.inflate(z.buf[:size])
				if err != nil {
					status, err := z.fail(err)
					return nil, status, err
				}
				z.buf = z.buf[n:]
				z.lastTried = -1
				if len(out) == 0 {
					// Empty member, typically the EOF marker.
					continue
				}
				return out, transform.Output, nil
			}
		}

		// Not a sized BGZF member: inflate the buffered tail as a
		// plain gzip member, retrying only when more input arrives.
		if len(z.buf) == z.lastTried && !stopped {
			return nil, transform.NotReady, nil
		}
		out, n, err := z.inflate(z.buf)
		if err != nil {
			if !stopped && truncated(err) {
				z.lastTried = len(z.buf)
				return nil, transform.NotReady, nil
			}
			status, err := z.fail(err)
			return nil, status, err
		}
		z.buf = z.buf[n:]
		z.lastTried = -1
		if len(out) == 0 {
			continue
		}
		return out, transform.Output, nil
	}
}

func truncated(err error) bool {
	return err == io.EOF || err == io.ErrUnexpectedEOF
}

func (z *Inflater) fail(err error) (transform.Status, error) {
	z.done = true
	z.release()
	return transform.EndOfStream, errors.Wrap(err, "bgzf: unzip")
}

func (z *Inflater) release() {
	z.done = true
	z.gz = nil
	z.buf = nil
}

// inflate decodes one gzip member from the front of data, returning
// the inflated bytes and the number of compressed bytes consumed.
func (z *Inflater) inflate(data []byte) (out []byte, n int, err error) {
	r := bytes.NewReader(data)
	if z.gz == nil {
		z.gz, err = gzip.NewReader(r)
	} else {
		err = z.gz.Reset(r)
	}
	if err != nil {
		return nil, 0, err
	}
	z.gz.Multistream(false)
	out, err = io.ReadAll(z.gz)
	if err != nil {
		return nil, 0, err
	}
	err = z.gz.Close()
	if err != nil {
		return nil, 0, err
	}
	return out, len(data) - r.Len(), nil
}

// Reader is an io.Reader adapter over an Inflater-driven pipeline.
type Reader struct {
	it  *transform.Iterator[[]byte]
	rem []byte
	err error
}

// NewReader returns a Reader inflating the gzip stream read from r.
func NewReader(r io.Reader) *Reader {
	return NewReaderSize(r, BlockSize)
}

// NewReaderSize returns a Reader using a compressed read buffer of
// the given size.
func NewReaderSize(r io.Reader, size int) *Reader {
	return &Reader{it: transform.NewIteratorSize[[]byte](r, NewInflater(), size)}
}

func (r *Reader) Read(p []byte) (int, error) {
	for len(r.rem) == 0 {
		if r.err != nil {
			return 0, r.err
		}
		if !r.it.Next() {
			r.err = r.it.Error()
			if r.err == nil {
				r.err = io.EOF
			}
			return 0, r.err
		}
		r.rem = r.it.Item()
	}
	n := copy(p, r.rem)
	r.rem = r.rem[n:]
	return n, nil
}
