// Copyright ©2021 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sam

import (
	"bytes"
	"testing"

	"gopkg.in/check.v1"
)

func Test(t *testing.T) { check.TestingT(t) }

type S struct{}

var _ = check.Suite(&S{})

var headerText = []byte(`@HD	VN:1.6	SO:coordinate
@SQ	SN:ref	LN:45
@SQ	SN:ref2	LN:40	SP:Escherichia coli
@RG	ID:rg1	SM:s1
@PG	ID:aligner	PN:test	VN:0.1
@CO	a free text comment
`)

func (s *S) TestParseHeader(c *check.C) {
	h, err := NewHeader(headerText, nil)
	c.Assert(err, check.Equals, nil)
	c.Check(h.Version, check.Equals, "1.6")
	c.Check(h.SortOrder, check.Equals, Coordinate)
	c.Check(h.GroupOrder, check.Equals, GroupUnspecified)

	refs := h.Refs()
	c.Assert(len(refs), check.Equals, 2)
	c.Check(refs[0].Name(), check.Equals, "ref")
	c.Check(refs[0].Len(), check.Equals, 45)
	c.Check(refs[0].ID(), check.Equals, 0)
	c.Check(refs[1].Name(), check.Equals, "ref2")
	c.Check(refs[1].Len(), check.Equals, 40)
	c.Check(refs[1].Get(NewTag("SP")), check.Equals, "Escherichia coli")

	groups := h.Groups()
	c.Assert(len(groups), check.Equals, 2)
	c.Check(groups[0].LineTag(), check.Equals, NewTag("RG"))
	c.Check(groups[0].Get(NewTag("ID")), check.Equals, "rg1")
	c.Check(groups[0].Get(NewTag("SM")), check.Equals, "s1")
	c.Check(groups[1].LineTag(), check.Equals, NewTag("PG"))
	c.Check(groups[1].Get(NewTag("PN")), check.Equals, "test")

	c.Check(h.Comments, check.DeepEquals, []string{"a free text comment"})

	text, err := h.MarshalText()
	c.Assert(err, check.Equals, nil)
	c.Check(string(text), check.Equals, string(headerText))
}

func (s *S) TestHeaderLineNotFirst(c *check.C) {
	_, err := NewHeader([]byte("@SQ\tSN:ref\tLN:45\n@HD\tVN:1.6\n"), nil)
	c.Check(err, check.FitsTypeOf, &HeaderLineOrderError{})

	// Comments do not affect @HD placement.
	_, err = NewHeader([]byte("@CO\tx\n@HD\tVN:1.6\n"), nil)
	c.Check(err, check.Equals, nil)

	// A header without @HD is accepted.
	_, err = NewHeader([]byte("@SQ\tSN:ref\tLN:45\n"), nil)
	c.Check(err, check.Equals, nil)
}

func (s *S) TestHeaderBinaryRoundTrip(c *check.C) {
	h, err := NewHeader(headerText, nil)
	c.Assert(err, check.Equals, nil)
	b, err := h.MarshalBinary()
	c.Assert(err, check.Equals, nil)

	got, _ := NewHeader(nil, nil)
	err = got.UnmarshalBinary(b)
	c.Assert(err, check.Equals, nil)
	c.Check(got, check.DeepEquals, h)
}

func (s *S) TestCloneHeader(c *check.C) {
	h, err := NewHeader(headerText, nil)
	c.Assert(err, check.Equals, nil)
	c.Check(h, check.DeepEquals, h.Clone())
}

func (s *S) TestCigarPackUnpack(c *check.C) {
	for _, cig := range []Cigar{
		nil,
		{NewCigarOp(CigarMatch, 100)},
		{
			NewCigarOp(CigarSoftClipped, 5),
			NewCigarOp(CigarMatch, 10),
			NewCigarOp(CigarInsertion, 1),
			NewCigarOp(CigarDeletion, 2),
			NewCigarOp(CigarSkipped, 20),
			NewCigarOp(CigarPadded, 1),
			NewCigarOp(CigarEqual, 3),
			NewCigarOp(CigarMismatch, 1),
			NewCigarOp(CigarHardClipped, 4),
		},
		{NewCigarOp(CigarMatch, 1<<28-1)},
	} {
		got, err := UnpackCigar(PackCigar(cig))
		c.Assert(err, check.Equals, nil)
		c.Check(got, check.DeepEquals, cig)
	}
}

func (s *S) TestCigarErrors(c *check.C) {
	_, err := UnpackCigar([]byte{1, 2, 3})
	c.Check(err, check.Equals, CigarLengthError(3))

	// Opcode 9 is CigarBack, which has no wire form.
	back := PackCigar(Cigar{NewCigarOp(CigarBack, 1)})
	_, err = UnpackCigar(back)
	c.Check(err, check.FitsTypeOf, CigarOpError(0))

	_, err = UnpackCigar([]byte{0x0f, 0, 0, 0})
	c.Check(err, check.Equals, CigarOpError(0x0f))
}

func (s *S) TestParseCigar(c *check.C) {
	cig, err := ParseCigar([]byte("5S10M1I2D20N3=1X4H"))
	c.Assert(err, check.Equals, nil)
	c.Check(cig.String(), check.Equals, "5S10M1I2D20N3=1X4H")
	c.Check(Cigar(nil).String(), check.Equals, "*")
}

func (s *S) TestSeq(c *check.C) {
	sq := NewSeq([]byte("ACGTN"))
	c.Check(sq.Length, check.Equals, 5)
	c.Check(string(sq.Expand()), check.Equals, "ACGTN")

	// Nybbles are packed high first; the unused low nybble of an
	// odd-length sequence is zero.
	c.Check(sq.Seq[2], check.Equals, Doublet(0xf0))

	packed, err := NewPackedSeq(3, []byte{0x01, 0x2f})
	c.Assert(err, check.Equals, nil)
	c.Check(string(packed.Expand()), check.Equals, "=AC")
	c.Check(packed.Seq[1], check.Equals, Doublet(0x20))

	_, err = NewPackedSeq(3, []byte{0x01})
	c.Check(err, check.Not(check.Equals), nil)
}

func (s *S) TestAuxValue(c *check.C) {
	for _, t := range []struct {
		typ   byte
		value interface{}
	}{
		{'A', byte('v')},
		{'c', int8(-5)},
		{'C', uint8(5)},
		{'s', int16(-300)},
		{'S', uint16(300)},
		{'i', int32(-70000)},
		{'I', uint32(70000)},
		{'f', float32(1.5)},
		{'Z', "lorem"},
	} {
		a, err := NewAux(NewTag("XX"), t.typ, t.value)
		c.Assert(err, check.Equals, nil)
		if t.typ == 'Z' {
			c.Check(a.Value(), check.Equals, t.value)
		} else {
			c.Check(a.Value(), check.DeepEquals, t.value)
		}
		c.Check(a.Type(), check.Equals, t.typ)
		c.Check(a.Tag(), check.Equals, NewTag("XX"))
	}

	a, err := NewAux(NewTag("XH"), 'H', []byte{0x1a, 0xe3, 0x01})
	c.Assert(err, check.Equals, nil)
	c.Check(a.Value(), check.Equals, "1ae301")

	b, err := NewAux(NewTag("XB"), 'B', []int16{1, -2, 3})
	c.Assert(err, check.Equals, nil)
	c.Check(b.Value(), check.DeepEquals, []int16{1, -2, 3})
	c.Check(samAux(b).String(), check.Equals, "XB:B:s,1,-2,3")
}

func (s *S) TestAuxWire(c *check.C) {
	a, err := NewAux(NewTag("NM"), 'i', int32(5))
	c.Assert(err, check.Equals, nil)
	c.Check([]byte(a), check.DeepEquals, []byte{'N', 'M', 'i', 0x05, 0x00, 0x00, 0x00})
}

func (s *S) TestPhred(c *check.C) {
	p, err := NewPhred(40)
	c.Assert(err, check.Equals, nil)
	c.Check(p.Int(), check.Equals, 40)
	c.Check(p.Char(), check.Equals, byte('I'))

	_, err = NewPhred(94)
	c.Check(err, check.Not(check.Equals), nil)
	_, err = NewPhred(-1)
	c.Check(err, check.Not(check.Equals), nil)

	r, err := NewRawPhred(255)
	c.Assert(err, check.Equals, nil)
	c.Check(r, check.Equals, MissingQual)

	q, err := PhredFromChar('I')
	c.Assert(err, check.Equals, nil)
	c.Check(q.Int(), check.Equals, 40)
}

var specSAM = []byte(`@HD	VN:1.5	SO:coordinate
@SQ	SN:ref	LN:45
r001	99	ref	7	30	8M2I4M1D3M	=	37	39	TTAGATAAAGGATACTG	*
r002	0	ref	9	30	3S6M1P1I4M	*	0	0	AAAAGATAAGGATA	*
r003	0	ref	9	30	5S6M	*	0	0	GCCTAAGCTAA	*	SA:Z:ref,29,-,6H5M,17,0;
r004	0	ref	16	30	6M14N5M	*	0	0	ATAGCTTCAGC	*
r001	147	ref	37	30	9M	=	7	-39	CAGCGGCAT	*	NM:i:1
`)

func (s *S) TestReaderWriter(c *check.C) {
	sr, err := NewReader(bytes.NewReader(specSAM))
	c.Assert(err, check.Equals, nil)
	h := sr.Header()
	c.Check(h.Version, check.Equals, "1.5")
	c.Check(h.SortOrder, check.Equals, Coordinate)

	var buf bytes.Buffer
	sw, err := NewWriter(&buf, h, FlagDecimal)
	c.Assert(err, check.Equals, nil)

	i := NewIterator(sr)
	n := 0
	for i.Next() {
		n++
		err = sw.Write(i.Record())
		c.Assert(err, check.Equals, nil)
	}
	c.Assert(i.Error(), check.Equals, nil)
	c.Check(n, check.Equals, 5)
	c.Check(buf.String(), check.Equals, string(specSAM))
}

func (s *S) TestRecordEnd(c *check.C) {
	cig, err := ParseCigar([]byte("8M2I4M1D3M"))
	c.Assert(err, check.Equals, nil)
	r := &Record{Pos: 6, Cigar: cig}
	c.Check(r.End(), check.Equals, 22)
	c.Check(r.Len(), check.Equals, 16)
}
