// Copyright ©2021 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sam

import "fmt"

// A Phred is a Phred quality score. Scores are held numerically, not
// in their +33 text form. The value 0xff marks a missing score.
type Phred byte

// MissingQual is the quality value marking an unavailable score.
const MissingQual Phred = 0xff

const (
	maxPhred    = 93
	maxRawPhred = 255
	phredOffset = 33
)

// NewPhred returns the Phred score for i, which must lie in the
// standard range [0, 93].
func NewPhred(i int) (Phred, error) {
	if i < 0 || i > maxPhred {
		return 0, fmt.Errorf("sam: phred score out of range: %d", i)
	}
	return Phred(i), nil
}

// NewRawPhred returns the Phred score for i accepting the full raw
// byte range [0, 255].
func NewRawPhred(i int) (Phred, error) {
	if i < 0 || i > maxRawPhred {
		return 0, fmt.Errorf("sam: raw phred score out of range: %d", i)
	}
	return Phred(i), nil
}

// Int returns the integer value of the score.
func (p Phred) Int() int { return int(p) }

// Char returns the text form of the score, offset by 33.
func (p Phred) Char() byte { return byte(p) + phredOffset }

// PhredFromChar returns the score encoded by the text form c.
func PhredFromChar(c byte) (Phred, error) {
	if c < phredOffset {
		return 0, fmt.Errorf("sam: invalid phred character: %q", c)
	}
	return Phred(c - phredOffset), nil
}

// PhredScores returns the quality byte string q as a Phred score
// vector.
func PhredScores(q []byte) []Phred {
	s := make([]Phred, len(q))
	for i, v := range q {
		s[i] = Phred(v)
	}
	return s
}
