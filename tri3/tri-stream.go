package tri3

import (
	"fmt"
	"io"
	"strings"

	"github.com/emirpasic/gods/trees/redblacktree"
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/pkg/errors"
)

// TriStream is a stage of a census pipeline; each stage owns a goroutine that drains its upstream.
type TriStream struct {
	Outlet chan TriState
}

func NewTriStream() *TriStream {
	stream := &TriStream{
		Outlet: make(chan TriState, 1),
	}
	return stream
}

func StreamTri(X TriState) *TriStream {
	next := NewTriStream()

	go func() {
		next.Outlet <- X.MakeCopy()
		next.Close()
	}()

	return next
}

func (stream *TriStream) Close() {
	if stream.Outlet != nil {
		close(stream.Outlet)
	}
}

func (stream *TriStream) PushTri(X TriState) {
	stream.Outlet <- X.MakeCopy()
}

func (stream *TriStream) PullTri() TriState {
	X := <-stream.Outlet
	return X
}

func (stream *TriStream) PullAll() int {
	count := int(0)
	for X := range stream.Outlet {
		count++
		X.Reclaim()
	}
	return count
}

func (stream *TriStream) Print(
	out io.WriteCloser,
	opts PrintOpts) *TriStream {

	next := NewTriStream()

	lineOpts := opts
	lineOpts.Label = ""

	go func() {
		buf := strings.Builder{}
		buf.Grow(256)

		count := 0
		for X := range stream.Outlet {
			if len(opts.Label) > 0 {
				buf.WriteString(opts.Label)
				buf.WriteByte(',')
			}

			count++
			fmt.Fprintf(&buf, "%06d,", count)
			X.WriteAsString(&buf, lineOpts)
			out.Write([]byte(buf.String()))
			buf.Reset()
			next.Outlet <- X
		}
		out.Close()
		next.Close()
	}()

	return next
}

func (stream *TriStream) AddTo(target TriAdder) *TriStream {
	next := NewTriStream()

	go func() {
		for X := range stream.Outlet {
			wasAdded := target.TryAddTri(X)
			if wasAdded {
				next.Outlet <- X
			} else {
				X.Reclaim()
			}
		}
		next.Close()
	}()

	return next
}

// Dedupe drops every triangulation whose isomorphism signature was already seen on this stream.
func (stream *TriStream) Dedupe() *TriStream {
	next := NewTriStream()

	go func() {
		seen := redblacktree.NewWithStringComparator()
		for X := range stream.Outlet {
			sig := X.IsoSig()
			if _, found := seen.Get(sig); found {
				X.Reclaim()
				continue
			}
			seen.Put(sig, nil)
			next.Outlet <- X
		}
		next.Close()
	}()

	return next
}

// CompileSieve compiles a boolean expression over the fields of TriInfo, e.g. "Orientable && NumVertices == 1".
func CompileSieve(sieveExpr string) (*vm.Program, error) {
	program, err := expr.Compile(sieveExpr, expr.Env(TriInfo{}), expr.AsBool())
	if err != nil {
		return nil, errors.Wrap(ErrBadSieve, err.Error())
	}
	return program, nil
}

// SieveAccepts runs a compiled sieve against the given triangulation.
func SieveAccepts(program *vm.Program, X TriState) bool {
	out, err := expr.Run(program, X.Info())
	if err != nil {
		return false
	}
	keep, _ := out.(bool)
	return keep
}

// Sieve passes only the triangulations for which sieveExpr evaluates to true.
// An empty expression passes everything.
func (stream *TriStream) Sieve(sieveExpr string) (*TriStream, error) {
	if strings.TrimSpace(sieveExpr) == "" {
		return stream, nil
	}
	program, err := CompileSieve(sieveExpr)
	if err != nil {
		return nil, err
	}

	next := NewTriStream()

	go func() {
		for X := range stream.Outlet {
			if SieveAccepts(program, X) {
				next.Outlet <- X
			} else {
				X.Reclaim()
			}
		}
		next.Close()
	}()

	return next, nil
}

func SelectFromCatalog(cat Catalog, sel TriSelector) *TriStream {
	next := NewTriStream()

	onHit := make(chan TriState, 4)

	go func() {
		cat.Select(sel, onHit)
		close(onHit)
	}()

	go func() {
		for X := range onHit {
			if sel.SelectsTri(X) {
				next.Outlet <- X
			} else {
				X.Reclaim()
			}
		}
		next.Close()
	}()

	return next
}

// Tally counts the triangulations passing through, keyed by tetrahedron count, and forwards them.
// The returned func blocks until the stream has drained, then reports the counts.
func (stream *TriStream) Tally() (*TriStream, func() map[int]int64) {
	next := NewTriStream()
	counts := make(map[int]int64)
	done := make(chan struct{})

	go func() {
		for X := range stream.Outlet {
			counts[X.NumTets()]++
			next.Outlet <- X
		}
		next.Close()
		close(done)
	}()

	return next, func() map[int]int64 {
		<-done
		return counts
	}
}
