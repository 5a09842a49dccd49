// Copyright ©2021 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fastq

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbacarella/biocaml/transform"
)

const sampleFASTQ = "@SRR001/1 length=8\nACGTACGT\n+SRR001/1 length=8\nIIIIHHGG\n" +
	"@SRR001/2\nTTGCA\n+\nJJJJJ\n"

func TestScanner(t *testing.T) {
	sc := NewScanner(strings.NewReader(sampleFASTQ))
	var recs []Record
	var rec Record
	for sc.Scan(&rec) {
		recs = append(recs, rec)
	}
	require.NoError(t, sc.Err())
	assert.Equal(t, []Record{
		{Name: "SRR001/1 length=8", Sequence: "ACGTACGT", Comment: "SRR001/1 length=8", Qualities: "IIIIHHGG"},
		{Name: "SRR001/2", Sequence: "TTGCA", Comment: "", Qualities: "JJJJJ"},
	}, recs)
}

func TestWriterRoundTrip(t *testing.T) {
	sc := NewScanner(strings.NewReader(sampleFASTQ))
	var buf bytes.Buffer
	w := NewWriter(&buf)
	var rec Record
	for sc.Scan(&rec) {
		require.NoError(t, w.Write(&rec))
	}
	require.NoError(t, sc.Err())
	assert.Equal(t, sampleFASTQ, buf.String())
}

func TestCodecErrors(t *testing.T) {
	feed := func(c *Codec, lines ...string) error {
		for _, l := range lines {
			c.Feed(l)
		}
		_, _, err := c.Next(true)
		return err
	}

	err := feed(NewCodec(), "SRR001", "ACGT", "+", "IIII")
	assert.ErrorIs(t, err, ErrMissingAt)

	err = feed(NewCodec(), "@SRR001", "ACGT", "plus", "IIII")
	assert.ErrorIs(t, err, ErrMissingPlus)

	err = feed(NewCodec(), "@SRR001", "ACGT", "+", "III")
	var le *LengthError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, "SRR001", le.Name)

	err = feed(NewUncheckedCodec(), "@SRR001", "ACGT", "+", "III")
	assert.NoError(t, err)

	err = feed(NewCodec(), "@SRR001", "ACGT")
	assert.ErrorIs(t, err, ErrTruncated)

	// After an error only EndOfStream is returned.
	c := NewCodec()
	c.Feed("bad")
	c.Feed("ACGT")
	c.Feed("+")
	c.Feed("IIII")
	_, _, err = c.Next(false)
	require.Error(t, err)
	_, st, err := c.Next(false)
	assert.NoError(t, err)
	assert.Equal(t, transform.EndOfStream, st)
}

func TestParseQualities(t *testing.T) {
	q, err := ParseQualities("ACGT", "IIII")
	require.NoError(t, err)
	assert.Equal(t, "IIII", q)

	_, err = ParseQualities("ACGT", "III")
	assert.Error(t, err)

	// Without a reference sequence the check is skipped.
	q, err = ParseQualities("", "III")
	require.NoError(t, err)
	assert.Equal(t, "III", q)
}

func TestSplitName(t *testing.T) {
	id, rest, ok := SplitName("SRR1/1 extra")
	assert.True(t, ok)
	assert.Equal(t, "SRR1/1", id)
	assert.Equal(t, "extra", rest)

	id, rest, ok = SplitName("SRR1")
	assert.False(t, ok)
	assert.Equal(t, "SRR1", id)
	assert.Equal(t, "", rest)

	id, rest, ok = SplitName("a  b c")
	assert.True(t, ok)
	assert.Equal(t, "a", id)
	assert.Equal(t, "b c", rest)
}

func TestTile(t *testing.T) {
	tile, err := ParseTile("2304")
	require.NoError(t, err)
	assert.Equal(t, Tile{Surface: Bottom, Swath: 3, Number: 4}, tile)
	assert.Equal(t, "2304", tile.String())

	tile, err = ParseTile("1101")
	require.NoError(t, err)
	assert.Equal(t, Tile{Surface: Top, Swath: 1, Number: 1}, tile)

	for _, bad := range []string{"0304", "3304", "2404", "2300", "23", "abcd"} {
		_, err = ParseTile(bad)
		assert.Error(t, err, bad)
	}
}

func TestIlluminaName(t *testing.T) {
	const text = "EAS139:136:FC706VJ:2:2104:15343:197393 1:Y:18:ATCACG"
	n, err := ParseName(text)
	require.NoError(t, err)
	assert.Equal(t, Name{
		Instrument:    "EAS139",
		RunNumber:     136,
		FlowcellID:    "FC706VJ",
		Lane:          2,
		Tile:          Tile{Surface: Bottom, Swath: 1, Number: 4},
		X:             15343,
		Y:             197393,
		Read:          1,
		Filtered:      true,
		ControlNumber: 18,
		Index:         "ATCACG",
	}, n)
	assert.Equal(t, text, n.String())

	for _, bad := range []string{
		"EAS139:136:FC706VJ:2:2104:15343:197393",
		"EAS139:136:FC706VJ:2:2104:15343 1:Y:18:ATCACG",
		"EAS139:136:FC706VJ:2:2104:15343:197393 1:X:18:ATCACG",
	} {
		_, err = ParseName(bad)
		assert.Error(t, err, bad)
	}
}
