package tri3

import (
	"io"
)

const (

	// MaxTets is the largest tetrahedron count a census or catalog accepts.
	MaxTets = 63
)

// BoolSet is a subset of {true, false}, used for census constraints that may be required, forbidden or either.
type BoolSet uint8

const (
	BoolNone  BoolSet = 0
	BoolTrue  BoolSet = 1
	BoolFalse BoolSet = 2
	BoolBoth  BoolSet = BoolTrue | BoolFalse
)

// TriState is a completed triangulation travelling through a census pipeline.
type TriState interface {

	// NumTets returns the number of tetrahedra.
	NumTets() int

	// IsoSig returns the isomorphism signature; two connected triangulations are isomorphic iff their signatures are equal.
	IsoSig() string

	// Returns info about this triangulation
	Info() TriInfo

	WriteAsString(out io.Writer, opts PrintOpts)

	// Returns a new copy of this instance.
	MakeCopy() TriState

	// Recycles this TriState instance into a pool for reuse.
	// Caller asserts that no more references to this instance will persist.
	Reclaim()
}

// TriInfo summarises a triangulation; its fields are the variables available to sieve expressions.
type TriInfo struct {
	NumTets       int
	NumVertices   int
	NumEdges      int
	NumBdryFacets int
	MinEdgeDegree int
	MaxEdgeDegree int
	Orientable    bool
	Finite        bool
	Closed        bool
	Valid         bool
}

// OnTriHit is a channel used to return triangulations meeting a set of selection criteria.
// Ownership of a TriState also travels through the channel.
type OnTriHit chan<- TriState

// CatalogContext is a container for open / active Catalog instances.
type CatalogContext interface {

	// Attaches the given Catalog to this context.
	AttachCatalog(cat Catalog)

	// Detaches the given Catalog from this context.
	DetachCatalog(cat Catalog)

	// Closes all open catalogs to be closed then closes.
	Close()

	// Signals when Close() completed and all open Catalogs have been closed
	Done() <-chan struct{}
}

// CatalogOpts specifies params for opening a census Catalog
type CatalogOpts struct {
	DbPathName string // omit or for in-memory db
	ReadOnly   bool   // open in read-only mode
}

type TriAdder interface {

	// Tries to add the given triangulation to this catalog.
	// If true is returned, X was not yet present (up to isomorphism) and was added.
	TryAddTri(X TriState) bool
}

// Catalog wraps a database of census triangulations keyed by isomorphism signature.
type Catalog interface {
	TriAdder

	// Returns true if this catalog was opened for read-only access.
	IsReadOnly() bool

	// NumTris returns the number of triangulations stored for a given tetrahedron count.
	// An out of bounds count returns 0.
	NumTris(forTets int) int64

	// Select sends each stored triangulation meeting the selection criteria to onHit.
	Select(sel TriSelector, onHit OnTriHit)

	Close() error
}

// TriSelector bounds the triangulations returned by Catalog.Select
type TriSelector struct {
	MinTets        int
	MaxTets        int
	OrientableOnly bool
}

// PrintOpts specifies what is printed for each triangulation
type PrintOpts struct {
	Label   string // Prefix label
	IsoSig  bool   // If set, prints the isomorphism signature
	Pairing bool   // If set, prints the facet pairing text
	Gluings bool   // If set, prints the gluing of every facet
	Info    bool   // If set, prints vertex / edge counts and flags
}

// DefaultPrintOpts{}
var DefaultPrintOpts = PrintOpts{
	IsoSig: true,
	Info:   true,
}

// DefaultTriSelector selects everything.
var DefaultTriSelector = TriSelector{
	MinTets: 1,
	MaxTets: MaxTets,
}
