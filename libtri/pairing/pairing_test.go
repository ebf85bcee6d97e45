package pairing

import (
	"math/rand"
	"testing"

	"github.com/fine-structures/tricensus/libtri/perm"
	"github.com/fine-structures/tricensus/tri3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type found struct {
	p     *FacetPairing
	autos []Isomorphism
}

func collect(t *testing.T, nTets int, boundary tri3.BoolSet, nBdry int) []found {
	var out []found
	ended := false
	FindAllPairings(nTets, boundary, nBdry, func(p *FacetPairing, autos []Isomorphism) {
		if p == nil {
			ended = true
			return
		}
		require.False(t, ended, "pairing after the end sentinel")
		out = append(out, found{p, autos})
	}, false)
	require.True(t, ended, "missing end sentinel")
	return out
}

func TestPairingCounts(t *testing.T) {
	closed := []int{0, 1, 2, 4, 10, 28, 97}
	for n := 1; n < len(closed); n++ {
		assert.Len(t, collect(t, n, tri3.BoolFalse, 0), closed[n], "closed, %d tets", n)
	}

	twoBdry := []int{0, 1, 3, 8, 30, 118}
	for n := 1; n < len(twoBdry); n++ {
		assert.Len(t, collect(t, n, tri3.BoolTrue, 2), twoBdry[n], "2 boundary facets, %d tets", n)
	}

	anyBdry := []int{0, 2, 6, 21, 100, 521}
	for n := 1; n < len(anyBdry); n++ {
		assert.Len(t, collect(t, n, tri3.BoolTrue, -1), anyBdry[n], "bounded, %d tets", n)
	}

	// closed plus bounded
	assert.Len(t, collect(t, 3, tri3.BoolBoth, -1), 4+21)
}

func TestPairingDegenerateParams(t *testing.T) {
	for n := 0; n < 5; n++ {
		assert.Empty(t, collect(t, n, tri3.BoolTrue, 1), "odd boundary count")
	}
	assert.Empty(t, collect(t, 0, tri3.BoolFalse, 0))
	assert.Empty(t, collect(t, 2, tri3.BoolTrue, 8), "more boundary facets than attainable")
	assert.Empty(t, collect(t, 2, tri3.BoolTrue, 0), "zero boundary facets with closed pairings excluded")
	assert.Empty(t, collect(t, 2, tri3.BoolNone, -1))

	ok := FindAllPairings(0, tri3.BoolFalse, 0, func(*FacetPairing, []Isomorphism) {}, false)
	assert.False(t, ok)
}

func TestPairingThreaded(t *testing.T) {
	done := make(chan int)
	count := 0
	FindAllPairings(4, tri3.BoolFalse, 0, func(p *FacetPairing, autos []Isomorphism) {
		if p == nil {
			done <- count
			return
		}
		count++
	}, true)
	assert.Equal(t, 10, <-done)
}

func TestSingleTetPairing(t *testing.T) {
	all := collect(t, 1, tri3.BoolFalse, 0)
	require.Len(t, all, 1)
	p := all[0].p
	assert.Equal(t, "0 1 0 0 0 3 0 2", p.TextRep())
	assert.Equal(t, "0:1 0:0 0:3 0:2", p.String())
	assert.True(t, p.IsClosed())
	assert.True(t, p.IsConnected())
}

func TestPairingProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for n := 1; n <= 5; n++ {
		for _, bdry := range []tri3.BoolSet{tri3.BoolFalse, tri3.BoolTrue} {
			for _, fp := range collect(t, n, bdry, -1) {
				p := fp.p
				require.NoError(t, p.Validate())
				require.True(t, p.IsConnected())

				// the identity is always an automorphism, and every automorphism preserves p
				require.NotEmpty(t, fp.autos)
				hasIdentity := false
				for _, iso := range fp.autos {
					if iso.IsIdentity() {
						hasIdentity = true
					}
					require.True(t, iso.ApplyTo(p).Equal(p))
				}
				require.True(t, hasIdentity)

				// canonical form is idempotent and shared by relabellings
				canon, iso := p.Canonical()
				require.True(t, canon.Equal(p), canon.String())
				require.True(t, iso.ApplyTo(p).Equal(canon))

				relabelled := randomIso(rng, n).ApplyTo(p)
				canon2, iso2 := relabelled.Canonical()
				require.True(t, canon2.Equal(p))
				require.True(t, iso2.ApplyTo(relabelled).Equal(p))
				if !relabelled.Equal(p) {
					ok, _ := relabelled.IsCanonical()
					require.False(t, ok)
				}

				// text round trips
				q, err := ParseTextRep(p.TextRep())
				require.NoError(t, err)
				require.True(t, q.Equal(p))

				q, err = ParseString(p.String())
				require.NoError(t, err)
				require.True(t, q.Equal(p))
			}
		}
	}
}

func randomIso(rng *rand.Rand, n int) Isomorphism {
	iso := Isomorphism{
		TetImage:  rng.Perm(n),
		FacetPerm: make([]perm.Perm4, n),
	}
	for t := range iso.FacetPerm {
		iso.FacetPerm[t] = perm.S4[rng.Intn(24)]
	}
	return iso
}

func TestParseErrors(t *testing.T) {
	bad := []string{
		"",
		"0 1 0 0 0 3",
		"0 1 0 0 0 3 0 3", // not symmetric
		"0 0 0 1 0 3 0 2", // self-glued facet
		"0 1 0 0 0 3 0 x", // not a number
		"0 1 0 0 2 0 0 2", // out of range
		"0 1 0 0 1 1 0 2", // malformed boundary
	}
	for _, text := range bad {
		_, err := ParseTextRep(text)
		assert.Error(t, err, text)
	}

	_, err := ParseString("0:1 0:0 0:3")
	assert.ErrorIs(t, err, tri3.ErrBadPairingText)
	_, err = ParseString("0:1 0:0 0:3 0:3")
	assert.ErrorIs(t, err, tri3.ErrBadPairing)
	_, err = ParseString("0:1 0:0 | bdry")
	assert.Error(t, err)

	p, err := ParseString("0:1 0:0 bdry bdry")
	require.NoError(t, err)
	assert.Equal(t, 2, p.NumBoundaryFacets())
	assert.Equal(t, "0 1 0 0 1 0 1 0", p.TextRep())
}

func TestConnectivity(t *testing.T) {
	p, err := ParseString("0:1 0:0 0:3 0:2 | 1:1 1:0 1:3 1:2")
	require.NoError(t, err)
	assert.False(t, p.IsConnected())

	p, err = ParseString("1:0 0:3 0:3 0:1 | 0:0 1:3 1:3 1:1")
	assert.Error(t, err) // 0:2 and 0:1 both claim 0:3

	p, err = ParseString("1:0 0:2 0:1 1:3 | 0:0 1:2 1:1 0:3")
	require.NoError(t, err)
	assert.True(t, p.IsConnected())
}

func TestChainPredicates(t *testing.T) {
	triple := []int{0, 0, 1, 1, 3, 8, 29}
	broken := []int{0, 0, 0, 1, 3, 10, 36}
	handle := []int{0, 0, 0, 1, 2, 4, 12}
	for n := 1; n < len(triple); n++ {
		nTriple, nBroken, nHandle := 0, 0, 0
		for _, fp := range collect(t, n, tri3.BoolFalse, 0) {
			if fp.p.HasTripleEdge() {
				nTriple++
			}
			if fp.p.HasBrokenDoubleEndedChain() {
				nBroken++
			}
			if fp.p.HasOneEndedChainWithDoubleHandle() {
				nHandle++
			}
		}
		assert.Equal(t, triple[n], nTriple, "triple edges, %d tets", n)
		assert.Equal(t, broken[n], nBroken, "broken double-ended chains, %d tets", n)
		assert.Equal(t, handle[n], nHandle, "one-ended chains with double handles, %d tets", n)
	}
}

func TestFollowChain(t *testing.T) {
	// tet 0 is glued to itself along 0:1; facets 2,3 lead to tet 1 along 1:0, 1:1; tet 1 is then closed by 1:2 <-> 1:3
	p, err := ParseString("0:1 0:0 1:0 1:1 | 0:2 0:3 1:3 1:2")
	require.NoError(t, err)

	end, facets := p.FollowChain(0, NewFacetPair(2, 3))
	assert.Equal(t, 1, end)
	assert.Equal(t, FacetPair{2, 3}, facets)

	assert.Equal(t, FacetPair{0, 1}, NewFacetPair(3, 2).Complement())
	assert.False(t, p.HasTripleEdge())
}
