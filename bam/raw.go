// Copyright ©2021 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bam

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/mbacarella/biocaml/transform"
)

// A RawItem is one element of the raw BAM record stream: the header
// text, the reference dictionary, or an alignment block.
type RawItem interface {
	isRawItem()
}

// RawHeader is the SAM header text carried at the front of a BAM
// stream.
type RawHeader struct{ Text []byte }

// A RefEntry is one entry of the wire reference dictionary.
type RefEntry struct {
	Name   string
	Length int32
}

// RawRefInfo is the wire reference dictionary.
type RawRefInfo []RefEntry

// A RawAlignment is one undecoded alignment block. Cigar, Seq and Aux
// hold the wire bytes of their regions; Seq is nybble packed.
type RawAlignment struct {
	RefID     int32
	Pos       int32
	MapQ      uint8
	Bin       uint16
	Flags     uint16
	NextRefID int32
	NextPos   int32
	TempLen   int32
	Name      string
	Cigar     []byte
	LSeq      int32
	Seq       []byte
	Qual      []byte
	Aux       []byte
}

func (RawHeader) isRawItem()     {}
func (RawRefInfo) isRawItem()    {}
func (*RawAlignment) isRawItem() {}

// The reference dictionary must parse from a bounded buffer.
const maxRefInfoBuffer = 50000

// Framing errors.
var (
	ErrRefNameUnterminated = errors.New("bam: reference name not null terminated")
	ErrNameUnterminated    = errors.New("bam: read name not null terminated")
	ErrTruncated           = errors.New("bam: truncated input")
)

// A MagicError is returned when a BAM stream does not open with the
// BAM\x01 magic number.
type MagicError [4]byte

func (e MagicError) Error() string {
	return fmt.Sprintf("bam: magic number mismatch: %q", e[:])
}

// A RefInfoOverflowError is returned when the reference dictionary
// does not fit the bounded parse buffer.
type RefInfoOverflowError struct{ Needed, Buffered int }

func (e *RefInfoOverflowError) Error() string {
	return fmt.Sprintf("bam: reference information overflow: need %d bytes, buffered %d", e.Needed, e.Buffered)
}

type parserState int

const (
	inHeader parserState = iota
	inRefInfo
	inAlignments
)

// A Parser is a stoppable transform decoding an inflated BAM byte
// stream into raw records. It holds a growable input buffer; each
// call to Next parses at most one record, consuming nothing when the
// buffered input is short.
type Parser struct {
	buf   []byte
	state parserState
	nRef  int
	done  bool
}

// NewParser returns a Parser expecting the BAM magic number.
func NewParser() *Parser { return &Parser{} }

// Feed appends a chunk of inflated input.
func (p *Parser) Feed(b []byte) { p.buf = append(p.buf, b...) }

// Next returns the next raw record. The header and reference
// dictionary are emitted first, in order, followed by one item per
// alignment block. After any error only EndOfStream is returned.
func (p *Parser) Next(stopped bool) (RawItem, transform.Status, error) {
	if p.done {
		return nil, transform.EndOfStream, nil
	}
	var (
		it  RawItem
		st  transform.Status
		err error
	)
	switch p.state {
	case inHeader:
		it, st, err = p.header(stopped)
	case inRefInfo:
		it, st, err = p.refInfo(stopped)
	case inAlignments:
		it, st, err = p.alignment(stopped)
	}
	if err != nil || st == transform.EndOfStream {
		p.done = true
		p.buf = nil
	}
	return it, st, err
}

// short reports the state of an incomplete record: NotReady while the
// producer is running, EndOfStream at a clean stop, and ErrTruncated
// when the stream stops inside a record.
func (p *Parser) short(stopped bool) (RawItem, transform.Status, error) {
	if !stopped {
		return nil, transform.NotReady, nil
	}
	if len(p.buf) == 0 && p.state != inRefInfo {
		return nil, transform.EndOfStream, nil
	}
	return nil, transform.EndOfStream, ErrTruncated
}

func (p *Parser) header(stopped bool) (RawItem, transform.Status, error) {
	if len(p.buf) < 12 {
		return p.short(stopped)
	}
	if p.buf[0] != 'B' || p.buf[1] != 'A' || p.buf[2] != 'M' || p.buf[3] != 0x1 {
		var e MagicError
		copy(e[:], p.buf)
		return nil, transform.EndOfStream, e
	}
	lText := int(int32(binary.LittleEndian.Uint32(p.buf[4:8])))
	if lText < 0 {
		return nil, transform.EndOfStream, ErrTruncated
	}
	need := 8 + lText + 4
	if len(p.buf) < need {
		return p.short(stopped)
	}
	text := make([]byte, lText)
	copy(text, p.buf[8:8+lText])
	p.nRef = int(int32(binary.LittleEndian.Uint32(p.buf[8+lText : need])))
	p.buf = p.buf[need:]
	p.state = inRefInfo
	return RawHeader{Text: text}, transform.Output, nil
}

func (p *Parser) refInfo(stopped bool) (RawItem, transform.Status, error) {
	info := make(RawRefInfo, 0, p.nRef)
	off := 0
	for i := 0; i < p.nRef; i++ {
		if len(p.buf) < off+4 {
			return p.refInfoShort(off+4, stopped)
		}
		lName := int(int32(binary.LittleEndian.Uint32(p.buf[off : off+4])))
		if lName < 1 {
			return nil, transform.EndOfStream, ErrRefNameUnterminated
		}
		need := off + 4 + lName + 4
		if len(p.buf) < need {
			return p.refInfoShort(need, stopped)
		}
		name := p.buf[off+4 : off+4+lName]
		if lName < 1 || name[lName-1] != 0 {
			return nil, transform.EndOfStream, ErrRefNameUnterminated
		}
		length := int32(binary.LittleEndian.Uint32(p.buf[need-4 : need]))
		info = append(info, RefEntry{Name: string(name[:lName-1]), Length: length})
		off = need
	}
	p.buf = p.buf[off:]
	p.state = inAlignments
	return info, transform.Output, nil
}

func (p *Parser) refInfoShort(needed int, stopped bool) (RawItem, transform.Status, error) {
	if len(p.buf) > maxRefInfoBuffer {
		return nil, transform.EndOfStream, &RefInfoOverflowError{Needed: needed, Buffered: len(p.buf)}
	}
	return p.short(stopped)
}

func (p *Parser) alignment(stopped bool) (RawItem, transform.Status, error) {
	if len(p.buf) < 4 {
		return p.short(stopped)
	}
	blockSize := int(int32(binary.LittleEndian.Uint32(p.buf[:4])))
	if blockSize < 32 {
		return nil, transform.EndOfStream, ErrTruncated
	}
	if len(p.buf) < blockSize+4 {
		return p.short(stopped)
	}
	b := p.buf[4 : blockSize+4]

	var a RawAlignment
	a.RefID = int32(binary.LittleEndian.Uint32(b[0:4]))
	a.Pos = int32(binary.LittleEndian.Uint32(b[4:8]))
	lReadName := int(b[8])
	a.MapQ = b[9]
	a.Bin = binary.LittleEndian.Uint16(b[10:12])
	nCigar := int(binary.LittleEndian.Uint16(b[12:14]))
	a.Flags = binary.LittleEndian.Uint16(b[14:16])
	a.LSeq = int32(binary.LittleEndian.Uint32(b[16:20]))
	a.NextRefID = int32(binary.LittleEndian.Uint32(b[20:24]))
	a.NextPos = int32(binary.LittleEndian.Uint32(b[24:28]))
	a.TempLen = int32(binary.LittleEndian.Uint32(b[28:32]))

	lSeq := int(a.LSeq)
	nameEnd := 32 + lReadName
	cigarEnd := nameEnd + nCigar*4
	seqEnd := cigarEnd + (lSeq+1)/2
	qualEnd := seqEnd + lSeq
	if lReadName < 1 || lSeq < 0 || qualEnd > len(b) {
		return nil, transform.EndOfStream, ErrTruncated
	}
	if b[nameEnd-1] != 0 {
		return nil, transform.EndOfStream, ErrNameUnterminated
	}
	a.Name = string(b[32 : nameEnd-1])
	a.Cigar = append([]byte(nil), b[nameEnd:cigarEnd]...)
	a.Seq = append([]byte(nil), b[cigarEnd:seqEnd]...)
	a.Qual = append([]byte(nil), b[seqEnd:qualEnd]...)
	a.Aux = append([]byte(nil), b[qualEnd:]...)

	p.buf = p.buf[blockSize+4:]
	return &a, transform.Output, nil
}

// A RawEncoder is the inverse transform of Parser, serializing raw
// records back to the BAM wire form.
type RawEncoder struct {
	queue [][]byte
	done  bool
}

// NewRawEncoder returns a RawEncoder.
func NewRawEncoder() *RawEncoder { return &RawEncoder{} }

// Feed appends a raw record for encoding.
func (e *RawEncoder) Feed(it RawItem) {
	e.queue = append(e.queue, encodeRaw(it))
}

// Next returns the wire encoding of the next fed record.
func (e *RawEncoder) Next(stopped bool) ([]byte, transform.Status, error) {
	if e.done {
		return nil, transform.EndOfStream, nil
	}
	if len(e.queue) > 0 {
		b := e.queue[0]
		e.queue = e.queue[1:]
		return b, transform.Output, nil
	}
	if stopped {
		e.done = true
		return nil, transform.EndOfStream, nil
	}
	return nil, transform.NotReady, nil
}

func encodeRaw(it RawItem) []byte {
	switch it := it.(type) {
	case RawHeader:
		b := make([]byte, 0, 8+len(it.Text))
		b = append(b, 'B', 'A', 'M', 0x1)
		b = binary.LittleEndian.AppendUint32(b, uint32(len(it.Text)))
		return append(b, it.Text...)
	case RawRefInfo:
		b := binary.LittleEndian.AppendUint32(nil, uint32(len(it)))
		for _, r := range it {
			b = binary.LittleEndian.AppendUint32(b, uint32(len(r.Name)+1))
			b = append(b, r.Name...)
			b = append(b, 0)
			b = binary.LittleEndian.AppendUint32(b, uint32(r.Length))
		}
		return b
	case *RawAlignment:
		blockSize := 32 +
			len(it.Name) + 1 + // Null terminated.
			len(it.Cigar) +
			len(it.Seq) +
			len(it.Qual) +
			len(it.Aux)
		b := make([]byte, 0, blockSize+4)
		b = binary.LittleEndian.AppendUint32(b, uint32(blockSize))
		b = binary.LittleEndian.AppendUint32(b, uint32(it.RefID))
		b = binary.LittleEndian.AppendUint32(b, uint32(it.Pos))
		b = append(b, byte(len(it.Name)+1), it.MapQ)
		b = binary.LittleEndian.AppendUint16(b, it.Bin)
		b = binary.LittleEndian.AppendUint16(b, uint16(len(it.Cigar)/4))
		b = binary.LittleEndian.AppendUint16(b, it.Flags)
		b = binary.LittleEndian.AppendUint32(b, uint32(it.LSeq))
		b = binary.LittleEndian.AppendUint32(b, uint32(it.NextRefID))
		b = binary.LittleEndian.AppendUint32(b, uint32(it.NextPos))
		b = binary.LittleEndian.AppendUint32(b, uint32(it.TempLen))
		b = append(b, it.Name...)
		b = append(b, 0)
		b = append(b, it.Cigar...)
		b = append(b, it.Seq...)
		b = append(b, it.Qual...)
		return append(b, it.Aux...)
	}
	panic(fmt.Sprintf("bam: unknown raw item type %T", it))
}
