// Copyright ©2021 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fastq

import (
	"fmt"
	"strconv"
	"strings"
)

// Surface is the flowcell surface a tile lies on.
type Surface int

const (
	Top Surface = iota + 1
	Bottom
)

// String returns the string representation of a Surface.
func (s Surface) String() string {
	switch s {
	case Top:
		return "top"
	case Bottom:
		return "bottom"
	}
	return "unknown"
}

// A Tile is a decoded Illumina flowcell tile number: a four digit
// SWTT form holding surface, swath and a two digit tile number.
type Tile struct {
	Surface Surface
	Swath   int
	Number  int
}

// ParseTile decodes the four digit tile field.
func ParseTile(s string) (Tile, error) {
	if len(s) != 4 {
		return Tile{}, fmt.Errorf("fastq: invalid tile %q", s)
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return Tile{}, fmt.Errorf("fastq: invalid tile %q", s)
	}
	t := Tile{
		Surface: Surface(n / 1000),
		Swath:   n / 100 % 10,
		Number:  n % 100,
	}
	if t.Surface < Top || t.Surface > Bottom || t.Swath < 1 || t.Swath > 3 || t.Number < 1 {
		return Tile{}, fmt.Errorf("fastq: invalid tile %q", s)
	}
	return t, nil
}

// String returns the four digit form of the tile.
func (t Tile) String() string {
	return fmt.Sprintf("%d%d%02d", t.Surface, t.Swath, t.Number)
}

// A Name is a parsed Casava 1.8 or later Illumina read name:
//
//	instrument:run:flowcell:lane:tile:x:y read:filtered:control:index
type Name struct {
	Instrument string
	RunNumber  int
	FlowcellID string
	Lane       int
	Tile       Tile
	X, Y       int

	Read          int
	Filtered      bool
	ControlNumber int
	Index         string
}

// ParseName decodes a Casava 1.8 read name. Earlier name forms are
// not recognized.
func ParseName(s string) (Name, error) {
	var n Name
	halves := strings.Split(s, " ")
	if len(halves) != 2 {
		return n, fmt.Errorf("fastq: invalid read name %q", s)
	}
	loc := strings.Split(halves[0], ":")
	desc := strings.Split(halves[1], ":")
	if len(loc) != 7 || len(desc) != 4 {
		return n, fmt.Errorf("fastq: invalid read name %q", s)
	}

	var err error
	n.Instrument = loc[0]
	n.RunNumber, err = strconv.Atoi(loc[1])
	if err != nil {
		return n, fmt.Errorf("fastq: invalid run number in %q: %v", s, err)
	}
	n.FlowcellID = loc[2]
	n.Lane, err = strconv.Atoi(loc[3])
	if err != nil {
		return n, fmt.Errorf("fastq: invalid lane in %q: %v", s, err)
	}
	n.Tile, err = ParseTile(loc[4])
	if err != nil {
		return n, err
	}
	n.X, err = strconv.Atoi(loc[5])
	if err != nil {
		return n, fmt.Errorf("fastq: invalid x position in %q: %v", s, err)
	}
	n.Y, err = strconv.Atoi(loc[6])
	if err != nil {
		return n, fmt.Errorf("fastq: invalid y position in %q: %v", s, err)
	}

	n.Read, err = strconv.Atoi(desc[0])
	if err != nil {
		return n, fmt.Errorf("fastq: invalid read number in %q: %v", s, err)
	}
	switch desc[1] {
	case "Y":
		n.Filtered = true
	case "N":
		n.Filtered = false
	default:
		return n, fmt.Errorf("fastq: invalid filter flag in %q", s)
	}
	n.ControlNumber, err = strconv.Atoi(desc[2])
	if err != nil {
		return n, fmt.Errorf("fastq: invalid control number in %q: %v", s, err)
	}
	n.Index = desc[3]

	return n, nil
}

// String returns the Casava text form of the name.
func (n Name) String() string {
	filtered := "N"
	if n.Filtered {
		filtered = "Y"
	}
	return fmt.Sprintf("%s:%d:%s:%d:%s:%d:%d %d:%s:%d:%s",
		n.Instrument, n.RunNumber, n.FlowcellID, n.Lane, n.Tile, n.X, n.Y,
		n.Read, filtered, n.ControlNumber, n.Index,
	)
}
