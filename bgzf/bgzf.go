// Copyright ©2021 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package bgzf provides streaming gzip decompression and compression
// for BAM data. BAM files are BGZF: a series of gzip members, each at
// most 64kB of uncompressed data, carrying the compressed member size
// in a BC extra subfield. The Inflater decodes BGZF member-at-a-time
// and falls back to plain gzip members without the BC subfield, so a
// conventionally gzipped stream is also accepted.
package bgzf

import (
	"encoding/binary"
	"errors"
)

const (
	BlockSize    = 0x0ff00 // Size of input data block.
	MaxBlockSize = 0x10000 // Maximum size of output block.
)

const (
	bgzfExtra = "BC\x02\x00\x00\x00"
	minFrame  = 20 + len(bgzfExtra) // Minimum bgzf header+footer length.

	// Magic EOF block.
	magicBlock = "\x1f\x8b\x08\x04\x00\x00\x00\x00\x00\xff\x06\x00\x42\x43\x02\x00\x1b\x00\x03\x00\x00\x00\x00\x00\x00\x00\x00\x00"
)

var (
	ErrClosed        = errors.New("bgzf: write to closed writer")
	ErrBlockOverflow = errors.New("bgzf: block overflow")
)

func compressBound(srcLen int) int {
	return srcLen + srcLen>>12 + srcLen>>14 + srcLen>>25 + 13 + minFrame
}

func init() {
	if compressBound(BlockSize) > MaxBlockSize {
		panic("bgzf: BlockSize too large")
	}
}

const (
	gzipID1    = 0x1f
	gzipID2    = 0x8b
	gzipCM     = 8
	flagFEXTRA = 1 << 2
)

// memberSize returns the total byte length of the BGZF member at the
// start of b, read from the BC extra subfield. ok is false when b
// does not start with a BGZF member; a zero size with ok true means
// more bytes are needed to make the determination.
func memberSize(b []byte) (size int, ok bool) {
	if len(b) < 4 {
		return 0, true
	}
	if b[0] != gzipID1 || b[1] != gzipID2 || b[2] != gzipCM || b[3]&flagFEXTRA == 0 {
		return 0, false
	}
	if len(b) < 12 {
		return 0, true
	}
	xlen := int(binary.LittleEndian.Uint16(b[10:12]))
	if len(b) < 12+xlen {
		return 0, true
	}
	extra := b[12 : 12+xlen]
	for len(extra) >= 4 {
		slen := int(binary.LittleEndian.Uint16(extra[2:4]))
		if extra[0] == 'B' && extra[1] == 'C' && slen == 2 {
			if len(extra) < 6 {
				return 0, false
			}
			return int(binary.LittleEndian.Uint16(extra[4:6])) + 1, true
		}
		if len(extra) < 4+slen {
			return 0, false
		}
		extra = extra[4+slen:]
	}
	return 0, false
}
