package walker

import (
	"bytes"
	"testing"

	"github.com/fine-structures/tricensus/libtri/gluing"
	"github.com/fine-structures/tricensus/tri3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func closedOpts(nTets int) CensusOpts {
	opts := DefaultCensusOpts
	opts.NumTets = nTets
	return opts
}

// collect drains a census into a set of signatures.
func collect(t *testing.T, c *Census) (map[string]bool, Summary) {
	sigs := make(map[string]bool)
	for X := range c.Outlet {
		sig := X.IsoSig()
		require.False(t, sigs[sig], "%v emitted twice", sig)
		sigs[sig] = true
		X.Reclaim()
	}
	sum, err := c.Wait()
	require.NoError(t, err)
	return sigs, sum
}

func runOpts(t *testing.T, opts CensusOpts) (map[string]bool, Summary) {
	c, err := EnumTriangulations(opts)
	require.NoError(t, err)
	return collect(t, c)
}

func TestClosedCensus(t *testing.T) {
	sigs, sum := runOpts(t, closedOpts(2))
	assert.Len(t, sigs, 17)
	assert.EqualValues(t, 17, sum.Emitted)
	assert.EqualValues(t, 16, sum.Orientable)
	assert.EqualValues(t, 2, sum.Pairings)
	assert.Zero(t, sum.Ideal)

	opts := closedOpts(2)
	opts.Orientable = tri3.BoolFalse
	sigs, sum = runOpts(t, opts)
	assert.Len(t, sigs, 1)
	assert.EqualValues(t, 17, sum.Found)

	opts = closedOpts(2)
	opts.Orientable = tri3.BoolTrue
	sigs, _ = runOpts(t, opts)
	assert.Len(t, sigs, 16)
}

func TestIdealCensus(t *testing.T) {
	opts := closedOpts(2)
	opts.Finite = tri3.BoolBoth
	all, sum := runOpts(t, opts)
	assert.Len(t, all, 61)
	assert.EqualValues(t, 44, sum.Ideal)

	opts.Finite = tri3.BoolFalse
	ideal, _ := runOpts(t, opts)
	assert.Len(t, ideal, 44)
	for sig := range ideal {
		assert.True(t, all[sig])
	}
}

func TestBoundedCensus(t *testing.T) {
	opts := closedOpts(2)
	opts.Boundary = tri3.BoolTrue
	sigs, _ := runOpts(t, opts)
	assert.Len(t, sigs, 17)

	opts.BdryFacets = 2
	sigs, _ = runOpts(t, opts)
	assert.Len(t, sigs, 10)

	opts.Boundary = tri3.BoolBoth
	opts.BdryFacets = -1
	sigs, _ = runOpts(t, opts)
	assert.Len(t, sigs, 17+17)
}

func TestWorkersAgree(t *testing.T) {
	want, _ := runOpts(t, closedOpts(3))
	require.Len(t, want, 81)

	for name, tweak := range map[string]func(*CensusOpts){
		"workers":  func(o *CensusOpts) { o.Workers = 4 },
		"split":    func(o *CensusOpts) { o.Workers = 4; o.SplitDepth = 2 },
		"deep":     func(o *CensusOpts) { o.Workers = 3; o.SplitDepth = 5 },
		"full":     func(o *CensusOpts) { o.Workers = 2; o.SplitDepth = 6 },
		"collapse": func(o *CensusOpts) { o.Workers = 2; o.Collapse = true },
		"oracle":   func(o *CensusOpts) { o.Oracle = gluing.CompletionOracle },
	} {
		opts := closedOpts(3)
		tweak(&opts)
		got, sum := runOpts(t, opts)
		assert.Equal(t, want, got, name)
		// a split at 2N facet pairs only reaches complete gluings
		switch {
		case opts.SplitDepth >= 2*opts.NumTets:
			assert.Zero(t, sum.Fragments, name)
		case opts.SplitDepth > 0:
			assert.NotZero(t, sum.Fragments, name)
		}
	}
}

func TestPurgeIsSubset(t *testing.T) {
	full, _ := runOpts(t, closedOpts(3))

	opts := closedOpts(3)
	opts.Purge = gluing.PurgeNonMinimalPrime | gluing.PurgeP2Reducible
	purged, sum := runOpts(t, opts)
	assert.NotEmpty(t, purged)
	assert.Less(t, len(purged), len(full))
	for sig := range purged {
		assert.True(t, full[sig], sig)
	}
	assert.EqualValues(t, sum.Found, sum.Emitted)
}

func TestFragmentFile(t *testing.T) {
	want, _ := runOpts(t, closedOpts(3))

	opts := closedOpts(3)
	opts.SplitDepth = 3
	buf := bytes.Buffer{}
	n, err := WriteFragments(opts, &buf)
	require.NoError(t, err)
	require.NotZero(t, n)

	frags, err := ReadFragments(&buf)
	require.NoError(t, err)
	require.Len(t, frags, int(n))

	c, err := EnumFragments(frags[:n/2], CensusOpts{Workers: 2, Orientable: tri3.BoolBoth, Finite: tri3.BoolBoth})
	require.NoError(t, err)
	first, _ := collect(t, c)
	c, err = EnumFragments(frags[n/2:], CensusOpts{Workers: 2, Orientable: tri3.BoolBoth, Finite: tri3.BoolBoth})
	require.NoError(t, err)
	second, _ := collect(t, c)

	for sig := range second {
		assert.False(t, first[sig], sig)
		first[sig] = true
	}
	assert.Equal(t, want, first)

	_, err = ReadFragments(bytes.NewBufferString(frags[0]))
	assert.ErrorIs(t, err, tri3.ErrCorruptState)

	_, err = EnumFragments(nil, DefaultCensusOpts)
	assert.ErrorIs(t, err, tri3.ErrBadCensusParam)
}

func TestBadOpts(t *testing.T) {
	for name, tc := range map[string]struct {
		tweak func(*CensusOpts)
		err   error
	}{
		"tets":     {func(o *CensusOpts) { o.NumTets = 0 }, tri3.ErrBadTetCount},
		"too many": {func(o *CensusOpts) { o.NumTets = tri3.MaxTets + 1 }, tri3.ErrBadTetCount},
		"boundary": {func(o *CensusOpts) { o.Boundary = tri3.BoolNone }, tri3.ErrBadCensusParam},
		"orient":   {func(o *CensusOpts) { o.Orientable = tri3.BoolNone }, tri3.ErrBadCensusParam},
		"purge":    {func(o *CensusOpts) { o.Purge = 8 }, tri3.ErrBadPurge},
		"split":    {func(o *CensusOpts) { o.Collapse = true; o.SplitDepth = 2 }, tri3.ErrBadCensusParam},
	} {
		opts := closedOpts(2)
		tc.tweak(&opts)
		_, err := EnumTriangulations(opts)
		assert.ErrorIs(t, err, tc.err, name)
	}

	// parameters admitting no pairing yield an empty census
	opts := closedOpts(2)
	opts.Boundary = tri3.BoolTrue
	opts.BdryFacets = 3
	sigs, sum := runOpts(t, opts)
	assert.Empty(t, sigs)
	assert.Zero(t, sum.Pairings)
}

func TestParsePurge(t *testing.T) {
	flags, err := ParsePurge("minimal, prime,p2")
	require.NoError(t, err)
	assert.Equal(t, gluing.PurgeNonMinimalPrime|gluing.PurgeP2Reducible, flags)

	flags, err = ParsePurge("")
	require.NoError(t, err)
	assert.Zero(t, flags)

	_, err = ParsePurge("maximal")
	assert.ErrorIs(t, err, tri3.ErrBadPurge)
}
