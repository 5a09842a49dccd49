// Copyright ©2021 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package fastq implements FASTQ format reading and writing. A FASTQ
// record is four LF-terminated lines: an @-prefixed name, the
// sequence, a +-prefixed comment and the qualities. Lines do not span
// multiple physical lines.
package fastq

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/mbacarella/biocaml/transform"
)

// A Record is a single FASTQ read. Name is the text after the leading
// '@' and Comment the text after the leading '+'; both retain
// internal whitespace exactly.
type Record struct {
	Name      string
	Sequence  string
	Comment   string
	Qualities string
}

var (
	// ErrMissingAt is returned when a name line does not start with '@'.
	ErrMissingAt = errors.New(`fastq: name line missing leading "@"`)
	// ErrMissingPlus is returned when a comment line does not start with '+'.
	ErrMissingPlus = errors.New(`fastq: comment line missing leading "+"`)
	// ErrTruncated is returned when input stops inside a record.
	ErrTruncated = errors.New("fastq: truncated record")
)

// A LengthError is returned when a record's quality string length
// does not match its sequence length.
type LengthError struct{ Name string }

func (e *LengthError) Error() string {
	return fmt.Sprintf("fastq: sequence/quality length mismatch in record %q", e.Name)
}

// A Codec is a stoppable transform assembling Records from a stream
// of lines. Line splitting is left to the caller; fed lines carry no
// terminator.
type Codec struct {
	lines []string
	done  bool

	// skipLengthCheck disables the sequence/quality length
	// comparison.
	skipLengthCheck bool
}

// NewCodec returns a Codec that validates quality string lengths.
func NewCodec() *Codec { return &Codec{} }

// NewUncheckedCodec returns a Codec that does not compare quality and
// sequence lengths.
func NewUncheckedCodec() *Codec { return &Codec{skipLengthCheck: true} }

// Feed appends one input line.
func (c *Codec) Feed(line string) { c.lines = append(c.lines, line) }

// Next returns the next Record once four lines are buffered.
func (c *Codec) Next(stopped bool) (Record, transform.Status, error) {
	if c.done {
		return Record{}, transform.EndOfStream, nil
	}
	if len(c.lines) < 4 {
		if !stopped {
			return Record{}, transform.NotReady, nil
		}
		c.done = true
		if len(c.lines) != 0 {
			return Record{}, transform.EndOfStream, ErrTruncated
		}
		return Record{}, transform.EndOfStream, nil
	}
	name, seq, comment, qual := c.lines[0], c.lines[1], c.lines[2], c.lines[3]
	c.lines = c.lines[4:]
	if len(name) == 0 || name[0] != '@' {
		c.done = true
		return Record{}, transform.EndOfStream, ErrMissingAt
	}
	if len(comment) == 0 || comment[0] != '+' {
		c.done = true
		return Record{}, transform.EndOfStream, ErrMissingPlus
	}
	rec := Record{
		Name:      name[1:],
		Sequence:  seq,
		Comment:   comment[1:],
		Qualities: qual,
	}
	if !c.skipLengthCheck && len(rec.Qualities) != len(rec.Sequence) {
		c.done = true
		return Record{}, transform.EndOfStream, &LengthError{Name: rec.Name}
	}
	return rec, transform.Output, nil
}

// ParseQualities validates the quality line against the reference
// sequence. The length check is skipped when sequence is empty,
// mirroring a parse with no reference sequence available.
func ParseQualities(sequence, line string) (string, error) {
	if sequence != "" && len(line) != len(sequence) {
		return "", &LengthError{}
	}
	return line, nil
}

// SplitName splits a read name at its first whitespace run, returning
// the leading identifier and the remainder. ok is false when the name
// holds no whitespace.
func SplitName(s string) (id, rest string, ok bool) {
	i := strings.IndexFunc(s, unicode.IsSpace)
	if i < 0 {
		return s, "", false
	}
	return s[:i], strings.TrimLeftFunc(s[i:], unicode.IsSpace), true
}

// Scanner provides a convenient interface for reading FASTQ read
// data from an io.Reader. The Scan method reads the next record,
// returning a boolean indicating whether the read succeeded.
// Scanners are not threadsafe.
type Scanner struct {
	b   *bufio.Scanner
	c   *Codec
	err error
}

// NewScanner constructs a new Scanner that reads raw FASTQ data from
// the provided reader.
func NewScanner(r io.Reader) *Scanner {
	return &Scanner{b: bufio.NewScanner(r), c: NewCodec()}
}

// Scan the next read into the provided record. Scan returns a boolean
// indicating whether the scan succeeded. Once Scan returns false, it
// never returns true again. Upon completion, the user should check
// the Err method to determine whether scanning stopped because of an
// error or because the end of the stream was reached.
func (s *Scanner) Scan(rec *Record) bool {
	if s.err != nil {
		return false
	}
	stopped := false
	for {
		r, st, err := s.c.Next(stopped)
		if err != nil {
			s.err = err
			return false
		}
		switch st {
		case transform.Output:
			*rec = r
			return true
		case transform.EndOfStream:
			return false
		case transform.NotReady:
			if !s.b.Scan() {
				if s.err = s.b.Err(); s.err != nil {
					return false
				}
				stopped = true
				continue
			}
			s.c.Feed(s.b.Text())
		}
	}
}

// Err returns the first error encountered by the Scanner.
func (s *Scanner) Err() error { return s.err }

var newline = []byte{'\n'}

// Writer is a FASTQ file writer.
type Writer struct {
	w   io.Writer
	err error
}

// NewWriter constructs a new FASTQ writer that writes reads to the
// underlying writer w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Write writes the record r in FASTQ format: exactly
// @name\nseq\n+comment\nqual\n. An error is returned if the write
// failed.
func (w *Writer) Write(r *Record) error {
	w.writeln("@" + r.Name)
	w.writeln(r.Sequence)
	w.writeln("+" + r.Comment)
	w.writeln(r.Qualities)
	return w.err
}

func (w *Writer) writeln(line string) {
	if w.err != nil {
		return
	}
	_, w.err = io.WriteString(w.w, line)
	if w.err == nil {
		_, w.err = w.w.Write(newline)
	}
}
