// Copyright ©2021 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package transform provides stoppable streaming transforms.
//
// A Transform is a cooperative state object polled by its host. Feed
// appends a chunk of input; Next attempts to produce the next output
// item. A Transform never blocks and performs no I/O of its own; a
// driver loop feeds chunks and drains Next until NotReady, and after
// the input source is exhausted drains with stopped set until
// EndOfStream.
//
// Errors are values: a Transform that observes a decoding error
// returns it from Next once and yields EndOfStream thereafter.
package transform

import (
	"errors"
	"io"
)

// Status is the condition reported by a call to Next.
type Status int

const (
	Output      Status = iota // An output item was produced.
	NotReady                  // More input is required before an item can be produced.
	EndOfStream               // No further items will be produced.
)

// A Transform consumes a stream of In values and produces a stream of
// Out values. The stopped argument to Next is set by the driver when
// the producer has signalled end of input.
type Transform[In, Out any] interface {
	Feed(In)
	Next(stopped bool) (Out, Status, error)
}

// A LeftError wraps an error raised by the left side of a composed
// transform.
type LeftError struct{ Err error }

func (e *LeftError) Error() string { return "transform: left: " + e.Err.Error() }
func (e *LeftError) Unwrap() error { return e.Err }

// A RightError wraps an error raised by the right side of a composed
// transform.
type RightError struct{ Err error }

func (e *RightError) Error() string { return "transform: right: " + e.Err.Error() }
func (e *RightError) Unwrap() error { return e.Err }

// Compose returns a transform feeding the output stream of left into
// the input stream of right. Errors from either side are wrapped as
// LeftError or RightError.
func Compose[In, Mid, Out any](left Transform[In, Mid], right Transform[Mid, Out]) Transform[In, Out] {
	return &composed[In, Mid, Out]{left: left, right: right}
}

type composed[In, Mid, Out any] struct {
	left  Transform[In, Mid]
	right Transform[Mid, Out]

	leftDone bool
	failed   bool
}

func (t *composed[In, Mid, Out]) Feed(in In) { t.left.Feed(in) }

func (t *composed[In, Mid, Out]) Next(stopped bool) (Out, Status, error) {
	var zero Out
	if t.failed {
		return zero, EndOfStream, nil
	}
	for {
		out, st, err := t.right.Next(t.leftDone)
		if err != nil {
			t.failed = true
			return zero, st, &RightError{Err: err}
		}
		if st != NotReady {
			return out, st, nil
		}
		if t.leftDone {
			return zero, NotReady, nil
		}
		mid, st, err := t.left.Next(stopped)
		if err != nil {
			t.failed = true
			return zero, st, &LeftError{Err: err}
		}
		switch st {
		case Output:
			t.right.Feed(mid)
		case NotReady:
			return zero, NotReady, nil
		case EndOfStream:
			t.leftDone = true
		}
	}
}

// ErrStalled is returned by drivers when a transform reports NotReady
// after its input has been exhausted.
var ErrStalled = errors.New("transform: stalled before end of stream")

const defaultBufferSize = 0x8000

// Iterator drives a byte-fed Transform from an io.Reader to provide a
// convenient loop interface for reading streamed data. Successive
// calls to the Next method will step through the items of the
// transform's output stream. Iteration stops unrecoverably at end of
// stream or the first error.
type Iterator[Out any] struct {
	r io.Reader
	t Transform[[]byte, Out]

	buf     []byte
	stopped bool
	done    bool

	item Out
	err  error
}

// NewIterator returns an Iterator reading chunks from r and feeding
// them to t.
//
//	i := transform.NewIterator(r, t)
//	for i.Next() {
//		fn(i.Item())
//	}
//	return i.Error()
func NewIterator[Out any](r io.Reader, t Transform[[]byte, Out]) *Iterator[Out] {
	return NewIteratorSize(r, t, defaultBufferSize)
}

// NewIteratorSize returns an Iterator using a read buffer of the
// given size.
func NewIteratorSize[Out any](r io.Reader, t Transform[[]byte, Out], size int) *Iterator[Out] {
	return &Iterator[Out]{r: r, t: t, buf: make([]byte, size)}
}

// Next advances the Iterator past the next item, which will then be
// available through the Item method. It returns false when the
// iteration stops, either by reaching the end of the stream or an
// error. After Next returns false, the Error method will return any
// error that occurred during iteration.
func (i *Iterator[Out]) Next() bool {
	if i.done {
		return false
	}
	for {
		item, st, err := i.t.Next(i.stopped)
		if err != nil {
			i.err = err
			i.done = true
			return false
		}
		switch st {
		case Output:
			i.item = item
			return true
		case EndOfStream:
			i.done = true
			return false
		case NotReady:
			if i.stopped {
				i.err = ErrStalled
				i.done = true
				return false
			}
			n, err := i.r.Read(i.buf)
			if n > 0 {
				chunk := make([]byte, n)
				copy(chunk, i.buf[:n])
				i.t.Feed(chunk)
			}
			switch err {
			case nil:
			case io.EOF:
				i.stopped = true
			default:
				i.err = err
				i.done = true
				return false
			}
		}
	}
}

// Item returns the most recent item read by a call to Next.
func (i *Iterator[Out]) Item() Out { return i.item }

// Error returns the first error that was encountered by the Iterator.
func (i *Iterator[Out]) Error() error { return i.err }
