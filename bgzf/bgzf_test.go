// Copyright ©2021 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bgzf

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"gopkg.in/check.v1"

	"github.com/mbacarella/biocaml/transform"
)

func Test(t *testing.T) { check.TestingT(t) }

type S struct{}

var _ = check.Suite(&S{})

func payload(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte('a' + i%26)
	}
	return b
}

// deflate compresses b through a Deflater into BGZF members.
func deflate(c *check.C, b []byte) []byte {
	z := NewDeflater()
	z.Feed(b)
	var out []byte
	for {
		m, st, err := z.Next(true)
		c.Assert(err, check.Equals, nil)
		if st == transform.EndOfStream {
			break
		}
		out = append(out, m...)
	}
	return out
}

// inflate feeds b to an Inflater in chunks of the given size.
func inflate(z *Inflater, b []byte, chunk int) ([]byte, error) {
	var out []byte
	stopped := false
	for {
		m, st, err := z.Next(stopped)
		if err != nil {
			return out, err
		}
		switch st {
		case transform.Output:
			out = append(out, m...)
		case transform.EndOfStream:
			return out, nil
		case transform.NotReady:
			if len(b) == 0 {
				stopped = true
				continue
			}
			n := chunk
			if n > len(b) {
				n = len(b)
			}
			z.Feed(b[:n])
			b = b[n:]
		}
	}
}

func (s *S) TestDeflateInflate(c *check.C) {
	// Larger than BlockSize so the stream spans several members.
	want := payload(3*BlockSize + 1234)
	compressed := deflate(c, want)

	// The stream ends with the magic EOF member.
	c.Check(strings.HasSuffix(string(compressed), magicBlock), check.Equals, true)

	for _, chunk := range []int{1000, len(compressed)} {
		got, err := inflate(NewInflater(), compressed, chunk)
		c.Assert(err, check.Equals, nil)
		c.Check(bytes.Equal(got, want), check.Equals, true)
	}
}

func (s *S) TestMemberSize(c *check.C) {
	compressed := deflate(c, payload(1000))
	size, ok := memberSize(compressed)
	c.Check(ok, check.Equals, true)
	c.Check(size > 0, check.Equals, true)

	// Short prefixes are indeterminate, not rejected.
	_, ok = memberSize(compressed[:3])
	c.Check(ok, check.Equals, true)

	// A plain gzip header has no FEXTRA flag.
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	gz.Write([]byte("x"))
	gz.Close()
	_, ok = memberSize(buf.Bytes())
	c.Check(ok, check.Equals, false)
}

func (s *S) TestPlainGzip(c *check.C) {
	want := payload(100000)
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write(want)
	c.Assert(err, check.Equals, nil)
	c.Assert(gz.Close(), check.Equals, nil)

	got, err := inflate(NewInflater(), buf.Bytes(), 4096)
	c.Assert(err, check.Equals, nil)
	c.Check(bytes.Equal(got, want), check.Equals, true)
}

func (s *S) TestUnzipError(c *check.C) {
	z := NewInflater()
	z.Feed([]byte("definitely not a gzip stream"))
	_, _, err := z.Next(true)
	c.Assert(err, check.Not(check.Equals), nil)
	c.Check(strings.HasPrefix(err.Error(), "bgzf: unzip"), check.Equals, true)

	// After an error only EndOfStream is returned.
	_, st, err := z.Next(true)
	c.Check(err, check.Equals, nil)
	c.Check(st, check.Equals, transform.EndOfStream)
}

func (s *S) TestTruncatedMember(c *check.C) {
	compressed := deflate(c, payload(1000))
	z := NewInflater()
	z.Feed(compressed[:len(compressed)/2])

	// More input may arrive.
	_, st, err := z.Next(false)
	c.Check(err, check.Equals, nil)
	c.Check(st, check.Equals, transform.NotReady)

	// It will not.
	_, _, err = z.Next(true)
	c.Check(err, check.Not(check.Equals), nil)
}

func (s *S) TestReaderWriter(c *check.C) {
	want := payload(2*BlockSize + 99)

	var buf bytes.Buffer
	w := NewWriter(&buf)
	n, err := w.Write(want)
	c.Assert(err, check.Equals, nil)
	c.Check(n, check.Equals, len(want))
	c.Assert(w.Close(), check.Equals, nil)

	_, err = w.Write([]byte("late"))
	c.Check(err, check.Equals, ErrClosed)

	got, err := io.ReadAll(NewReader(&buf))
	c.Assert(err, check.Equals, nil)
	c.Check(bytes.Equal(got, want), check.Equals, true)
}
