// Package tokens reads and writes the flat whitespace-separated token streams used to suspend and resume searches.
package tokens

import (
	"bufio"
	"io"
	"strconv"

	"github.com/fine-structures/tricensus/tri3"
	"github.com/pkg/errors"
)

// Writer emits tokens; the first write error is kept and reported by Flush.
type Writer struct {
	out     *bufio.Writer
	lineLen int
	err     error
}

func NewWriter(out io.Writer) *Writer {
	return &Writer{
		out: bufio.NewWriter(out),
	}
}

func (w *Writer) sep() {
	if w.lineLen > 0 {
		w.out.WriteByte(' ')
	}
}

func (w *Writer) Int(v int) {
	w.sep()
	n, err := w.out.WriteString(strconv.Itoa(v))
	w.lineLen += n
	if err != nil && w.err == nil {
		w.err = err
	}
}

func (w *Writer) Ints(vals ...int) {
	for _, v := range vals {
		w.Int(v)
	}
}

func (w *Writer) Bool(b bool) {
	if b {
		w.Int(1)
	} else {
		w.Int(0)
	}
}

// Word writes a token that must not contain whitespace.
func (w *Writer) Word(str string) {
	w.sep()
	n, err := w.out.WriteString(str)
	w.lineLen += n
	if err != nil && w.err == nil {
		w.err = err
	}
}

func (w *Writer) EndLine() {
	if err := w.out.WriteByte('\n'); err != nil && w.err == nil {
		w.err = err
	}
	w.lineLen = 0
}

func (w *Writer) Flush() error {
	if err := w.out.Flush(); err != nil && w.err == nil {
		w.err = err
	}
	return w.err
}

// Reader consumes tokens with range checks.  After the first failure every read returns zero values and
// Err reports the failure, wrapped around tri3.ErrCorruptState.
type Reader struct {
	sc  *bufio.Scanner
	err error
}

func NewReader(in io.Reader) *Reader {
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 4096), 1<<20)
	sc.Split(bufio.ScanWords)
	return &Reader{
		sc: sc,
	}
}

func (r *Reader) Err() error {
	return r.err
}

// Fail records a validation failure found by the caller.
func (r *Reader) Fail(format string, args ...interface{}) {
	if r.err == nil {
		r.err = errors.Wrapf(tri3.ErrCorruptState, format, args...)
	}
}

func (r *Reader) next(what string) (string, bool) {
	if r.err != nil {
		return "", false
	}
	if !r.sc.Scan() {
		if err := r.sc.Err(); err != nil {
			r.err = errors.Wrapf(tri3.ErrCorruptState, "reading %s: %v", what, err)
		} else {
			r.err = errors.Wrapf(tri3.ErrCorruptState, "unexpected end of input reading %s", what)
		}
		return "", false
	}
	return r.sc.Text(), true
}

// Int reads an integer in [min, max].
func (r *Reader) Int(what string, min, max int) int {
	tok, ok := r.next(what)
	if !ok {
		return 0
	}
	v, err := strconv.Atoi(tok)
	if err != nil {
		r.Fail("%s: %q is not an integer", what, tok)
		return 0
	}
	if v < min || v > max {
		r.Fail("%s: %d is outside [%d, %d]", what, v, min, max)
		return 0
	}
	return v
}

// Bool reads a 0 or 1.
func (r *Reader) Bool(what string) bool {
	return r.Int(what, 0, 1) == 1
}

// Word reads the next token verbatim.
func (r *Reader) Word(what string) string {
	tok, _ := r.next(what)
	return tok
}
