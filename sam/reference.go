// Copyright ©2021 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sam

import (
	"bytes"
	"errors"
	"fmt"
)

// Reference is a mapping reference: one entry of the reference
// dictionary, corresponding to an @SQ header line.
type Reference struct {
	id        int32
	name      string
	lRef      int32
	otherTags []tagPair
}

// NewReference returns a new Reference based on the given name and
// length. Length must be a valid reference length according to the
// SAM specification.
func NewReference(name string, length int) (*Reference, error) {
	if !ValidLen(length) {
		return nil, errors.New("sam: length out of range")
	}
	if name == "" {
		return nil, errors.New("sam: no name provided")
	}
	return &Reference{
		id:   -1, // This is altered by a Header when added.
		name: name,
		lRef: int32(length),
	}, nil
}

// ID returns the header ID of the Reference.
func (r *Reference) ID() int {
	if r == nil {
		return -1
	}
	return int(r.id)
}

// Name returns the reference name.
func (r *Reference) Name() string {
	if r == nil {
		return "*"
	}
	return r.name
}

// Len returns the length of the reference sequence.
func (r *Reference) Len() int {
	if r == nil {
		return -1
	}
	return int(r.lRef)
}

// SetLen sets the length of the reference sequence to l. The given
// length must be a valid SAM reference length.
func (r *Reference) SetLen(l int) error {
	if !ValidLen(l) {
		return errors.New("sam: length out of range")
	}
	r.lRef = int32(l)
	return nil
}

// Get returns the string representation of the value associated with
// the given reference line tag. If the tag is not present the empty
// string is returned.
func (r *Reference) Get(t Tag) string {
	switch t {
	case refNameTag:
		return r.Name()
	case refLengthTag:
		return fmt.Sprint(r.lRef)
	}
	for _, tp := range r.otherTags {
		if t == tp.tag {
			return tp.value
		}
	}
	return ""
}

// String returns a string representation of the Reference according
// to the SAM specification section 1.3.
func (r *Reference) String() string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "@SQ\tSN:%s\tLN:%d", r.name, r.lRef)
	for _, tp := range r.otherTags {
		fmt.Fprintf(&buf, "\t%s:%s", tp.tag, tp.value)
	}
	return buf.String()
}

// Clone returns a deep copy of the Reference.
func (r *Reference) Clone() *Reference {
	if r == nil {
		return nil
	}
	cr := *r
	cr.id = -1
	cr.otherTags = append([]tagPair(nil), r.otherTags...)
	return &cr
}

func equalRefs(a, b *Reference) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	if a.id != b.id && a.id != -1 && b.id != -1 {
		return false
	}
	if a.name != b.name || a.lRef != b.lRef {
		return false
	}
	// A reference without annotation tags matches an annotated one of
	// the same identity.
	if len(a.otherTags) == 0 || len(b.otherTags) == 0 {
		return true
	}
	if len(a.otherTags) != len(b.otherTags) {
		return false
	}
	for i, tp := range a.otherTags {
		if tp != b.otherTags[i] {
			return false
		}
	}
	return true
}
