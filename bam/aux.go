// Copyright ©2021 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bam

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/mbacarella/biocaml/sam"
)

// Auxiliary arrays beyond this length are treated as corrupt.
const maxAuxArrayLen = 4000

// Auxiliary data errors.
var (
	ErrAuxOutOfBounds        = errors.New("bam: auxiliary data out of bounds")
	ErrAuxUnterminatedString = errors.New("bam: unterminated string in auxiliary data")
	ErrAuxUnterminatedHex    = errors.New("bam: unterminated hex string in auxiliary data")
)

// An AuxTypeError is returned for an unknown auxiliary field or array
// element type code.
type AuxTypeError byte

func (e AuxTypeError) Error() string {
	return fmt.Sprintf("bam: unknown auxiliary field type: %q", byte(e))
}

// An AuxArraySizeError is returned when an auxiliary array declares
// more than maxAuxArrayLen elements.
type AuxArraySizeError int

func (e AuxArraySizeError) Error() string {
	return fmt.Sprintf("bam: auxiliary array too long: %d", int(e))
}

var jumps = [256]int{
	'A': 1,
	'c': 1, 'C': 1,
	's': 2, 'S': 2,
	'i': 4, 'I': 4,
	'f': 4,
	'Z': -1,
	'H': -1,
	'B': -1,
}

// DecodeAux examines the data of a BAM record's optional field blob,
// returning a slice of sam.Aux that are backed by the original data.
func DecodeAux(aux []byte) ([]sam.Aux, error) {
	if len(aux) == 0 {
		return nil, nil
	}
	aa := make([]sam.Aux, 0, 4)
	for i := 0; i < len(aux); {
		if i+3 > len(aux) {
			return nil, ErrAuxOutOfBounds
		}
		t := aux[i+2]
		switch j := jumps[t]; {
		case j > 0:
			j += 3
			if i+j > len(aux) {
				return nil, ErrAuxOutOfBounds
			}
			aa = append(aa, sam.Aux(aux[i:i+j:i+j]))
			i += j
		case j < 0:
			switch t {
			case 'Z', 'H':
				end := bytes.IndexByte(aux[i+3:], 0)
				if end < 0 {
					if t == 'H' {
						return nil, ErrAuxUnterminatedHex
					}
					return nil, ErrAuxUnterminatedString
				}
				j = 3 + end
				aa = append(aa, sam.Aux(aux[i:i+j:i+j]))
				i += j + 1 // Skip the terminating zero.
			case 'B':
				if i+8 > len(aux) {
					return nil, ErrAuxOutOfBounds
				}
				sub := aux[i+3]
				if jumps[sub] <= 0 {
					return nil, AuxTypeError(sub)
				}
				length := int(binary.LittleEndian.Uint32(aux[i+4 : i+8]))
				if length > maxAuxArrayLen {
					return nil, AuxArraySizeError(length)
				}
				j = 8 + length*jumps[sub]
				if i+j > len(aux) {
					return nil, ErrAuxOutOfBounds
				}
				aa = append(aa, sam.Aux(aux[i:i+j:i+j]))
				i += j
			}
		default:
			return nil, AuxTypeError(t)
		}
	}
	return aa, nil
}

// EncodeAux constructs a single byte slice that represents a slice of
// sam.Aux. Z and H fields regain their wire null terminator.
func EncodeAux(aa []sam.Aux) []byte {
	var aux []byte
	for _, a := range aa {
		aux = append(aux, []byte(a)...)
		switch a.Type() {
		case 'Z', 'H':
			aux = append(aux, 0)
		}
	}
	return aux
}
