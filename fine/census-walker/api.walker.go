package walker

import (
	"strings"

	"github.com/fine-structures/tricensus/libtri/gluing"
	"github.com/fine-structures/tricensus/libtri/pairing"
	"github.com/fine-structures/tricensus/tri3"
	"github.com/pkg/errors"
)

// Primary entry point for a census of 3-dimensional triangulations
func EnumTriangulations(opts CensusOpts) (*Census, error) {
	return enumTriangulations(opts)
}

// SearchPairing finds the triangulations of a single pairing, which is first put into canonical form.
//
// opts.NumTets, opts.Boundary and opts.BdryFacets are taken from p.
func SearchPairing(p *pairing.FacetPairing, opts CensusOpts) (*Census, error) {
	return searchPairing(p, opts)
}

// CensusOpts selects the triangulations a census produces and how the work is spread.
type CensusOpts struct {
	NumTets     int          // tetrahedra per triangulation (1..MaxTets)
	Boundary    tri3.BoolSet // BoolFalse: closed, BoolTrue: bounded, BoolBoth: either
	BdryFacets  int          // exact boundary facet count for bounded pairings; < 0 for any
	Orientable  tri3.BoolSet // BoolTrue: orientable only, BoolFalse: non-orientable only
	Finite      tri3.BoolSet // BoolTrue: no ideal vertices, BoolFalse: at least one ideal vertex
	Purge       gluing.PurgeFlags
	Oracle      gluing.Oracle
	Collapse    bool // search layered chains separately
	Workers     int  // search goroutines; <= 0 means 1
	SplitDepth  int  // if > 0, pairings are cut into fragments after this many gluing levels
	NoSkipping  bool // search pairings that SkipPairing would discard
	StreamDepth int  // Outlet buffer size
}

// DefaultCensusOpts is a closed, compact census.
var DefaultCensusOpts = CensusOpts{
	Boundary:   tri3.BoolFalse,
	BdryFacets: -1,
	Orientable: tri3.BoolBoth,
	Finite:     tri3.BoolTrue,
	Workers:    1,
}

// Summary reports the work done by a finished census.
type Summary struct {
	NumTets      int   `json:"tets"`
	Pairings     int64 `json:"pairings"`
	Skipped      int64 `json:"skipped_pairings"`
	Fragments    int64 `json:"fragments"`
	Found        int64 `json:"found"`
	Emitted      int64 `json:"emitted"`
	Orientable   int64 `json:"orientable"`
	Ideal        int64 `json:"ideal"`
	ElapsedMilli int64 `json:"elapsed_ms"`
}

// ParsePurge reads a comma separated list of "minimal", "prime", "p2" or "none".
func ParsePurge(str string) (gluing.PurgeFlags, error) {
	flags := gluing.PurgeFlags(0)
	for _, word := range strings.Split(str, ",") {
		switch strings.ToLower(strings.TrimSpace(word)) {
		case "", "none":
		case "minimal", "nonminimal":
			flags |= gluing.PurgeNonMinimal
		case "prime", "nonprime":
			flags |= gluing.PurgeNonPrime
		case "p2", "p2reducible":
			flags |= gluing.PurgeP2Reducible
		default:
			return 0, errors.Wrapf(tri3.ErrBadPurge, "unknown purge %q", word)
		}
	}
	return flags, nil
}

func (opts *CensusOpts) validate() error {
	switch {
	case opts.NumTets < 1 || opts.NumTets > tri3.MaxTets:
		return errors.Wrapf(tri3.ErrBadTetCount, "%d tetrahedra", opts.NumTets)
	case opts.Boundary == tri3.BoolNone, opts.Orientable == tri3.BoolNone, opts.Finite == tri3.BoolNone:
		return errors.Wrap(tri3.ErrBadCensusParam, "boundary, orientability and finiteness must each allow something")
	case opts.Purge > gluing.PurgeNonMinimalPrime|gluing.PurgeP2Reducible:
		return errors.Wrapf(tri3.ErrBadPurge, "flags %d", opts.Purge)
	case opts.Oracle > gluing.CompletionOracle:
		return errors.Wrapf(tri3.ErrBadCensusParam, "oracle %d", opts.Oracle)
	case opts.Collapse && opts.SplitDepth > 0:
		return errors.Wrap(tri3.ErrBadCensusParam, "chain collapsing cannot be split into fragments")
	}
	return nil
}

func (opts *CensusOpts) searchOpts() gluing.SearchOpts {
	return gluing.SearchOpts{
		OrientableOnly: opts.Orientable == tri3.BoolTrue,
		FiniteOnly:     opts.Finite == tri3.BoolTrue,
		Purge:          opts.Purge,
		Oracle:         opts.Oracle,
	}
}

// keeps applies the restrictions the search itself cannot express.
func (opts *CensusOpts) keeps(info tri3.TriInfo) bool {
	return opts.Orientable.Contains(info.Orientable) && opts.Finite.Contains(info.Finite)
}
