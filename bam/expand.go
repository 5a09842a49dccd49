// Copyright ©2021 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bam

import (
	"github.com/mbacarella/biocaml/sam"
	"github.com/mbacarella/biocaml/transform"
)

// An Item is one element of the logical SAM stream: the parsed
// header, the reference dictionary, or an alignment record.
type Item interface {
	isItem()
}

// Header carries the parsed SAM header. It is emitted exactly once,
// first.
type Header struct{ *sam.Header }

// Dictionary is the reference dictionary, cross-linked against the
// header's @SQ lines. It is emitted exactly once, immediately before
// the first alignment.
type Dictionary []*sam.Reference

// Record carries one alignment record.
type Record struct{ *sam.Record }

func (Header) isItem()     {}
func (Dictionary) isItem() {}
func (Record) isItem()     {}

// An Expander is a stoppable transform raising raw BAM records into
// the sam alignment model. The reference dictionary is resolved once
// per stream and owned by the Expander; alignments are bounds checked
// and cross-linked through it.
type Expander struct {
	queue []RawItem

	h    *sam.Header
	dict Dictionary

	dictPending bool
	done        bool
}

// NewExpander returns an Expander.
func NewExpander() *Expander { return &Expander{} }

// Feed appends a raw record.
func (e *Expander) Feed(it RawItem) { e.queue = append(e.queue, it) }

// Next returns the next expanded item. The dictionary item is
// synthesized immediately before the first alignment by holding the
// alignment at the head of the queue; a stream with no alignments
// flushes the dictionary when the input stops.
func (e *Expander) Next(stopped bool) (Item, transform.Status, error) {
	for {
		if e.done {
			return nil, transform.EndOfStream, nil
		}
		if len(e.queue) == 0 {
			if !stopped {
				return nil, transform.NotReady, nil
			}
			if e.dictPending {
				e.dictPending = false
				return e.dict, transform.Output, nil
			}
			e.done = true
			return nil, transform.EndOfStream, nil
		}
		switch it := e.queue[0].(type) {
		case RawHeader:
			e.queue = e.queue[1:]
			h, err := sam.NewHeader(it.Text, nil)
			if err != nil {
				status, err := e.fail(err)
				return nil, status, err
			}
			e.h = h
			return Header{h}, transform.Output, nil
		case RawRefInfo:
			e.queue = e.queue[1:]
			if e.h == nil {
				e.h, _ = sam.NewHeader(nil, nil)
			}
			for _, entry := range it {
				r, err := sam.NewReference(entry.Name, int(entry.Length))
				if err != nil {
					status, err := e.fail(err)
					return nil, status, err
				}
				if err := e.h.AddReference(r); err != nil {
					status, err := e.fail(err)
					return nil, status, err
				}
			}
			e.dict = Dictionary(e.h.Refs())
			e.dictPending = true
		case *RawAlignment:
			if e.dictPending {
				// Emit the dictionary first; the alignment stays
				// queued.
				e.dictPending = false
				return e.dict, transform.Output, nil
			}
			e.queue = e.queue[1:]
			rec, err := e.expand(it)
			if err != nil {
				status, err := e.fail(err)
				return nil, status, err
			}
			return Record{rec}, transform.Output, nil
		}
	}
}

func (e *Expander) fail(err error) (transform.Status, error) {
	e.done = true
	return transform.EndOfStream, err
}

func (e *Expander) expand(a *RawAlignment) (*sam.Record, error) {
	if len(a.Name) < 1 || len(a.Name) > 255 {
		return nil, ErrQName
	}
	if !sam.ValidPos(int(a.Pos)) {
		return nil, ErrPos
	}
	if !sam.ValidPos(int(a.NextPos)) {
		return nil, ErrMatePos
	}
	if !sam.ValidTmpltLen(int(a.TempLen)) {
		return nil, ErrTempLen
	}

	rec := &sam.Record{
		Name:    a.Name,
		Pos:     int(a.Pos),
		MapQ:    a.MapQ,
		Flags:   sam.Flags(a.Flags),
		MatePos: int(a.NextPos),
		TempLen: int(a.TempLen),
	}

	switch {
	case a.RefID == -1:
	case a.RefID < -1 || int(a.RefID) >= len(e.dict):
		return nil, ErrReference
	default:
		rec.Ref = e.dict[a.RefID]
	}
	switch {
	case a.NextRefID == -1:
	case a.NextRefID < -1 || int(a.NextRefID) >= len(e.dict):
		return nil, ErrMateReference
	default:
		rec.MateRef = e.dict[a.NextRefID]
	}

	var err error
	rec.Cigar, err = sam.UnpackCigar(a.Cigar)
	if err != nil {
		return nil, err
	}
	rec.Seq, err = sam.NewPackedSeq(int(a.LSeq), a.Seq)
	if err != nil {
		return nil, err
	}
	rec.Qual = append([]byte(nil), a.Qual...)
	rec.AuxFields, err = DecodeAux(a.Aux)
	if err != nil {
		return nil, err
	}
	return rec, nil
}
