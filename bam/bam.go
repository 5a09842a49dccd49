// Copyright ©2021 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package bam implements BAM file format reading and writing. The BAM
// format is described in the SAM specification.
//
// http://samtools.github.io/hts-specs/SAMv1.pdf
//
// The codec is built from stoppable transforms: a gzip inflater feeds
// a raw record parser which feeds an expander raising raw records
// into the sam alignment model, and the downgrader, raw encoder and
// deflater perform the inverse. Reader and Writer compose the full
// pipelines behind conventional io interfaces.
package bam

import "errors"

// Expansion and downgrade bounds errors.
var (
	ErrQName         = errors.New("bam: query name absent or too long")
	ErrPos           = errors.New("bam: position out of range")
	ErrMatePos       = errors.New("bam: mate position out of range")
	ErrTempLen       = errors.New("bam: template length out of range")
	ErrReference     = errors.New("bam: reference id out of range")
	ErrMateReference = errors.New("bam: mate reference id out of range")
)

// A RefNameError is returned by the downgrader when an alignment
// names a reference that is not in the dictionary.
type RefNameError struct{ Name string }

func (e *RefNameError) Error() string {
	return "bam: reference name not found: " + e.Name
}
