// Copyright ©2021 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sam

import (
	"bytes"
	"errors"
	"fmt"
)

// A TagGroup is a header line holding an ordered list of field tags
// and values: @RG, @PG and any other tag-group line that is not @HD,
// @SQ or @CO. The field list is preserved verbatim.
type TagGroup struct {
	tag    Tag
	fields []tagPair
}

// NewTagGroup returns a TagGroup with the given line tag and fields.
func NewTagGroup(t Tag, fields ...[2]string) (*TagGroup, error) {
	g := &TagGroup{tag: t}
	for _, f := range fields {
		if len(f[0]) != 2 {
			return nil, errors.New("sam: illegal field tag length")
		}
		g.fields = append(g.fields, tagPair{tag: NewTag(f[0]), value: f[1]})
	}
	return g, nil
}

// LineTag returns the tag of the header line, for example RG.
func (g *TagGroup) LineTag() Tag { return g.tag }

// Get returns the string representation of the value associated with
// the given field tag. If the tag is not present the empty string is
// returned.
func (g *TagGroup) Get(t Tag) string {
	for _, tp := range g.fields {
		if t == tp.tag {
			return tp.value
		}
	}
	return ""
}

// Fields calls fn for each field of the group in order.
func (g *TagGroup) Fields(fn func(t Tag, value string)) {
	for _, tp := range g.fields {
		fn(tp.tag, tp.value)
	}
}

// String returns a string representation of the header line.
func (g *TagGroup) String() string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "@%s", g.tag)
	for _, tp := range g.fields {
		fmt.Fprintf(&buf, "\t%s:%s", tp.tag, tp.value)
	}
	return buf.String()
}

// Clone returns a deep copy of the TagGroup.
func (g *TagGroup) Clone() *TagGroup {
	if g == nil {
		return nil
	}
	return &TagGroup{tag: g.tag, fields: append([]tagPair(nil), g.fields...)}
}
