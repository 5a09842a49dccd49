// Copyright ©2021 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package transform

import "io"

// A Pump feeds items into a byte-emitting Transform and writes the
// produced bytes to an io.Writer. It is the encode-direction driver
// matching Iterator.
type Pump[In any] struct {
	w io.Writer
	t Transform[In, []byte]

	done bool
	err  error
}

// NewPump returns a Pump writing the output of t to w.
func NewPump[In any](w io.Writer, t Transform[In, []byte]) *Pump[In] {
	return &Pump[In]{w: w, t: t}
}

// Write feeds item to the transform and flushes any bytes it is ready
// to emit.
func (p *Pump[In]) Write(item In) error {
	if p.err != nil {
		return p.err
	}
	if p.done {
		return ErrStalled
	}
	p.t.Feed(item)
	return p.drain(false)
}

// Close signals end of input to the transform and flushes all
// remaining output.
func (p *Pump[In]) Close() error {
	if p.err != nil {
		return p.err
	}
	if p.done {
		return nil
	}
	return p.drain(true)
}

func (p *Pump[In]) drain(stopped bool) error {
	for {
		b, st, err := p.t.Next(stopped)
		if err != nil {
			p.err = err
			return err
		}
		switch st {
		case Output:
			if _, err := p.w.Write(b); err != nil {
				p.err = err
				return err
			}
		case NotReady:
			if !stopped {
				return nil
			}
			p.err = ErrStalled
			return p.err
		case EndOfStream:
			p.done = true
			return nil
		}
	}
}
