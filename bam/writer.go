// Copyright ©2021 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bam

import (
	"io"

	"github.com/klauspost/compress/gzip"

	"github.com/mbacarella/biocaml/bgzf"
	"github.com/mbacarella/biocaml/sam"
	"github.com/mbacarella/biocaml/transform"
)

// Writer implements BAM data writing. It drives the downgrader, raw
// encoder and deflater pipeline into an io.Writer.
type Writer struct {
	p *transform.Pump[Item]
}

// EncodePipeline returns the composed transform encoding a logical
// item stream into compressed BAM bytes at the given gzip level.
func EncodePipeline(level int) transform.Transform[Item, []byte] {
	raw := transform.Compose[Item, RawItem, []byte](NewDowngrader(), NewRawEncoder())
	return transform.Compose[Item, []byte, []byte](raw, bgzf.NewDeflaterLevel(level))
}

// NewWriter returns a new Writer using the given SAM header.
func NewWriter(w io.Writer, h *sam.Header) (*Writer, error) {
	return NewWriterLevel(w, h, gzip.DefaultCompression)
}

// NewWriterLevel returns a new Writer using the given SAM header and
// compression level. Valid values for level are described in the
// compress/gzip documentation. The header and reference dictionary
// items are fed before NewWriterLevel returns.
func NewWriterLevel(w io.Writer, h *sam.Header, level int) (*Writer, error) {
	bw := &Writer{p: transform.NewPump[Item](w, EncodePipeline(level))}
	err := bw.p.Write(Header{h})
	if err != nil {
		return nil, err
	}
	err = bw.p.Write(Dictionary(h.Refs()))
	if err != nil {
		return nil, err
	}
	return bw, nil
}

// Write writes r to the BAM stream.
func (bw *Writer) Write(r *sam.Record) error {
	return bw.p.Write(Record{r})
}

// Close flushes any buffered records and terminates the stream with
// the BGZF EOF member. It does not close the underlying writer.
func (bw *Writer) Close() error {
	return bw.p.Close()
}
