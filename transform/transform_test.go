// Copyright ©2021 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package transform

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// splitter emits one line per Next call from fed byte chunks.
type splitter struct {
	buf  []byte
	done bool
}

func (t *splitter) Feed(p []byte) { t.buf = append(t.buf, p...) }

func (t *splitter) Next(stopped bool) (string, Status, error) {
	if t.done {
		return "", EndOfStream, nil
	}
	if i := bytes.IndexByte(t.buf, '\n'); i >= 0 {
		line := string(t.buf[:i])
		t.buf = t.buf[i+1:]
		return line, Output, nil
	}
	if !stopped {
		return "", NotReady, nil
	}
	t.done = true
	if len(t.buf) != 0 {
		line := string(t.buf)
		t.buf = nil
		return line, Output, nil
	}
	return "", EndOfStream, nil
}

// upper uppercases lines, failing on a poisoned input.
type upper struct {
	queue []string
	done  bool
}

var errPoison = errors.New("poisoned input")

func (t *upper) Feed(s string) { t.queue = append(t.queue, s) }

func (t *upper) Next(stopped bool) (string, Status, error) {
	if t.done {
		return "", EndOfStream, nil
	}
	if len(t.queue) == 0 {
		if stopped {
			t.done = true
			return "", EndOfStream, nil
		}
		return "", NotReady, nil
	}
	s := t.queue[0]
	t.queue = t.queue[1:]
	if s == "poison" {
		t.done = true
		return "", EndOfStream, errPoison
	}
	return strings.ToUpper(s), Output, nil
}

func collect(t *testing.T, it *Iterator[string]) []string {
	var got []string
	for it.Next() {
		got = append(got, it.Item())
	}
	return got
}

func TestIterator(t *testing.T) {
	it := NewIteratorSize[string](strings.NewReader("one\ntwo\nthree"), &splitter{}, 2)
	got := collect(t, it)
	require.NoError(t, it.Error())
	assert.Equal(t, []string{"one", "two", "three"}, got)
}

func TestCompose(t *testing.T) {
	tr := Compose[[]byte, string, string](&splitter{}, &upper{})
	it := NewIterator[string](strings.NewReader("a\nb\nc\n"), tr)
	got := collect(t, it)
	require.NoError(t, it.Error())
	assert.Equal(t, []string{"A", "B", "C"}, got)
}

func TestComposeRightError(t *testing.T) {
	tr := Compose[[]byte, string, string](&splitter{}, &upper{})
	it := NewIterator[string](strings.NewReader("a\npoison\nb\n"), tr)
	got := collect(t, it)
	assert.Equal(t, []string{"A"}, got)

	var re *RightError
	require.ErrorAs(t, it.Error(), &re)
	assert.ErrorIs(t, it.Error(), errPoison)

	// After the error the composed transform is at end of stream.
	_, st, err := tr.Next(true)
	assert.NoError(t, err)
	assert.Equal(t, EndOfStream, st)
}

func TestComposeLeftError(t *testing.T) {
	failing := &failer{}
	tr := Compose[[]byte, string, string](failing, &upper{})
	tr.Feed([]byte("x"))
	_, _, err := tr.Next(false)
	var le *LeftError
	require.ErrorAs(t, err, &le)
	assert.ErrorIs(t, err, errPoison)
}

type failer struct{ done bool }

func (t *failer) Feed([]byte) {}

func (t *failer) Next(stopped bool) (string, Status, error) {
	if t.done {
		return "", EndOfStream, nil
	}
	t.done = true
	return "", EndOfStream, errPoison
}

func TestPump(t *testing.T) {
	var buf bytes.Buffer
	p := NewPump[string](&buf, &liner{})
	require.NoError(t, p.Write("one"))
	require.NoError(t, p.Write("two"))
	require.NoError(t, p.Close())
	assert.Equal(t, "one\ntwo\n", buf.String())
}

// liner emits each fed string as a newline-terminated chunk.
type liner struct {
	queue []string
	done  bool
}

func (t *liner) Feed(s string) { t.queue = append(t.queue, s) }

func (t *liner) Next(stopped bool) ([]byte, Status, error) {
	if t.done {
		return nil, EndOfStream, nil
	}
	if len(t.queue) == 0 {
		if stopped {
			t.done = true
			return nil, EndOfStream, nil
		}
		return nil, NotReady, nil
	}
	s := t.queue[0]
	t.queue = t.queue[1:]
	return append([]byte(s), '\n'), Output, nil
}
