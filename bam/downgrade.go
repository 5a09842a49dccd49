// Copyright ©2021 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bam

import (
	"unsafe"

	"github.com/mbacarella/biocaml/internal"
	"github.com/mbacarella/biocaml/sam"
	"github.com/mbacarella/biocaml/transform"
)

// A Downgrader is the inverse transform of Expander, lowering the
// logical SAM item stream back to raw BAM records. Header items are
// accumulated and flushed as header text when the dictionary item
// arrives; the wire reference dictionary is emitted once, before the
// first alignment.
type Downgrader struct {
	queue []Item

	h    *sam.Header
	dict []*sam.Reference

	wroteHeader bool
	wroteInfo   bool
	done        bool
}

// NewDowngrader returns a Downgrader.
func NewDowngrader() *Downgrader { return &Downgrader{} }

// Feed appends a logical item.
func (d *Downgrader) Feed(it Item) { d.queue = append(d.queue, it) }

// Next returns the next raw record.
func (d *Downgrader) Next(stopped bool) (RawItem, transform.Status, error) {
	for {
		if d.done {
			return nil, transform.EndOfStream, nil
		}
		if len(d.queue) == 0 {
			if !stopped {
				return nil, transform.NotReady, nil
			}
			if it, ok := d.flush(); ok {
				return it, transform.Output, nil
			}
			d.done = true
			return nil, transform.EndOfStream, nil
		}
		switch it := d.queue[0].(type) {
		case Header:
			d.queue = d.queue[1:]
			d.h = it.Header
		case Dictionary:
			d.queue = d.queue[1:]
			d.dict = it
			if !d.wroteHeader {
				d.wroteHeader = true
				return d.header(), transform.Output, nil
			}
		case Record:
			if raw, ok := d.flush(); ok {
				// The record stays queued until the header and
				// dictionary are on the wire.
				return raw, transform.Output, nil
			}
			d.queue = d.queue[1:]
			a, err := d.downgrade(it.Record)
			if err != nil {
				d.done = true
				return nil, transform.EndOfStream, err
			}
			return a, transform.Output, nil
		}
	}
}

// flush returns the pending header or dictionary raw item, if any.
func (d *Downgrader) flush() (RawItem, bool) {
	if !d.wroteHeader {
		d.wroteHeader = true
		return d.header(), true
	}
	if !d.wroteInfo {
		d.wroteInfo = true
		info := make(RawRefInfo, len(d.dict))
		for i, r := range d.dict {
			info[i] = RefEntry{Name: r.Name(), Length: int32(r.Len())}
		}
		return info, true
	}
	return nil, false
}

func (d *Downgrader) header() RawHeader {
	if d.h == nil {
		return RawHeader{}
	}
	text, _ := d.h.MarshalText()
	return RawHeader{Text: text}
}

// refID resolves a reference to its dictionary index by scanning the
// dictionary names.
func (d *Downgrader) refID(r *sam.Reference) (int32, error) {
	if r == nil {
		return -1, nil
	}
	for i, dr := range d.dict {
		if dr.Name() == r.Name() {
			return int32(i), nil
		}
	}
	return -1, &RefNameError{Name: r.Name()}
}

func (d *Downgrader) downgrade(rec *sam.Record) (*RawAlignment, error) {
	if len(rec.Name) < 1 || len(rec.Name) > 254 {
		return nil, ErrQName
	}
	if !sam.ValidPos(rec.Pos) {
		return nil, ErrPos
	}
	if !sam.ValidPos(rec.MatePos) {
		return nil, ErrMatePos
	}
	if !sam.ValidTmpltLen(rec.TempLen) {
		return nil, ErrTempLen
	}
	refID, err := d.refID(rec.Ref)
	if err != nil {
		return nil, err
	}
	nextRefID, err := d.refID(rec.MateRef)
	if err != nil {
		return nil, err
	}

	a := &RawAlignment{
		RefID:     refID,
		Pos:       int32(rec.Pos),
		MapQ:      rec.MapQ,
		Bin:       bin(rec.Pos, rec.Seq.Length),
		Flags:     uint16(rec.Flags),
		NextRefID: nextRefID,
		NextPos:   int32(rec.MatePos),
		TempLen:   int32(rec.TempLen),
		Name:      rec.Name,
		Cigar:     sam.PackCigar(rec.Cigar),
		LSeq:      int32(rec.Seq.Length),
		Seq:       doublets(rec.Seq.Seq).Bytes(),
		Qual:      rec.Qual,
		Aux:       EncodeAux(rec.AuxFields),
	}
	if a.Qual == nil {
		a.Qual = make([]byte, rec.Seq.Length)
		for i := range a.Qual {
			a.Qual[i] = 0xff
		}
	}
	if rec.Seq.Length&1 != 0 && len(a.Seq) != 0 {
		// The unused low nybble of the final byte is always written
		// as zero.
		s := append([]byte(nil), a.Seq...)
		s[len(s)-1] &= 0xf0
		a.Seq = s
	}
	return a, nil
}

// bin computes the UCSC bin for an alignment starting at pos and
// spanning seqLen bases. Unplaced alignments take the bin of the
// empty interval at -1.
func bin(pos, seqLen int) uint16 {
	if pos == -1 {
		return 4680 // BinFor(-1, 0)
	}
	return uint16(internal.BinFor(pos, pos+seqLen))
}

type doublets []sam.Doublet

func (np doublets) Bytes() []byte { return *(*[]byte)(unsafe.Pointer(&np)) }
