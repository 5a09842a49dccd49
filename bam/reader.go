// Copyright ©2021 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bam

import (
	"errors"
	"io"

	"github.com/mbacarella/biocaml/bgzf"
	"github.com/mbacarella/biocaml/sam"
	"github.com/mbacarella/biocaml/transform"
)

// Reader implements BAM data reading. It drives the inflater, raw
// parser and expander pipeline from an io.Reader.
type Reader struct {
	it *transform.Iterator[Item]

	h    *sam.Header
	dict Dictionary
}

// Pipeline returns the composed transform decoding a compressed BAM
// byte stream into logical items.
func Pipeline() transform.Transform[[]byte, Item] {
	raw := transform.Compose[[]byte, []byte, RawItem](bgzf.NewInflater(), NewParser())
	return transform.Compose[[]byte, RawItem, Item](raw, NewExpander())
}

// NewReader returns a new Reader using the given io.Reader. The
// stream header is decoded before NewReader returns.
func NewReader(r io.Reader) (*Reader, error) {
	br := &Reader{it: transform.NewIterator[Item](r, Pipeline())}
	if !br.it.Next() {
		err := br.it.Error()
		if err == nil {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	h, ok := br.it.Item().(Header)
	if !ok {
		return nil, errors.New("bam: missing header")
	}
	br.h = h.Header
	return br, nil
}

// Header returns the SAM Header held by the Reader.
func (br *Reader) Header() *sam.Header {
	return br.h
}

// Dictionary returns the reference dictionary. It is nil until the
// dictionary item has been read, which happens no later than the
// first Read call that returns a record.
func (br *Reader) Dictionary() Dictionary {
	return br.dict
}

// Read returns the next sam.Record in the BAM stream. At the end of
// the stream io.EOF is returned.
func (br *Reader) Read() (*sam.Record, error) {
	for br.it.Next() {
		switch it := br.it.Item().(type) {
		case Dictionary:
			br.dict = it
		case Record:
			return it.Record, nil
		}
	}
	if err := br.it.Error(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}
