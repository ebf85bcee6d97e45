package triang

import (
	"bytes"
	"math/rand"
	"strings"
	"testing"

	"github.com/fine-structures/tricensus/libtri/perm"
	"github.com/fine-structures/tricensus/tri3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sphere2 is the 3-sphere made of two tetrahedra glued along all four facets by the identity.
func sphere2(t *testing.T) *Triangulation {
	X := New(2)
	for f := 0; f < 4; f++ {
		require.NoError(t, X.Join(0, f, 1, perm.Identity))
	}
	return X
}

// randomTri glues random facet pairs of nTets tetrahedra, leaving some boundary.
func randomTri(rnd *rand.Rand, nTets int) *Triangulation {
	X := New(nTets)
	for t := 0; t < nTets; t++ {
		for f := 0; f < 4; f++ {
			if X.adj[t][f] >= 0 || rnd.Intn(6) == 0 {
				continue
			}
			for try := 0; try < 8; try++ {
				u := rnd.Intn(nTets)
				g := perm.S4[rnd.Intn(24)]
				if X.Join(t, f, u, g) == nil {
					break
				}
			}
		}
	}
	return X
}

func TestJoinErrors(t *testing.T) {
	X := New(2)
	assert.ErrorIs(t, X.Join(0, 0, 2, perm.Identity), tri3.ErrBadGluing)
	assert.ErrorIs(t, X.Join(0, 4, 1, perm.Identity), tri3.ErrBadGluing)
	assert.ErrorIs(t, X.Join(0, 1, 0, perm.Identity), tri3.ErrBadGluing, "facet to itself")
	require.NoError(t, X.Join(0, 1, 1, perm.Transposition(1, 2)))
	assert.ErrorIs(t, X.Join(1, 2, 0, perm.Identity), tri3.ErrBadGluing, "already glued")

	u, g := X.Adjacent(1, 2)
	assert.Equal(t, 0, u)
	assert.Equal(t, perm.Transposition(1, 2), g)
	assert.Equal(t, 2, X.Pairing().DestOf(0, 1).Facet)
}

func TestSingleTetrahedron(t *testing.T) {
	X := New(1)
	info := X.Info()
	assert.Equal(t, tri3.TriInfo{
		NumTets:       1,
		NumVertices:   4,
		NumEdges:      6,
		NumBdryFacets: 4,
		MinEdgeDegree: 1,
		MaxEdgeDegree: 1,
		Orientable:    true,
		Finite:        true,
		Valid:         true,
	}, info)
	assert.Equal(t, []int{1, 1, 1, 1, 1, 1}, X.EdgeDegrees())
	assert.Equal(t, 4, X.Pairing().NumBoundaryFacets())
}

func TestSphere(t *testing.T) {
	X := sphere2(t)
	assert.True(t, X.IsValid())
	assert.True(t, X.IsFinite())
	assert.True(t, X.IsOrientable())
	assert.True(t, X.IsClosed())
	assert.Equal(t, 4, X.NumVertices())
	assert.Equal(t, 6, X.NumEdges())
	assert.Equal(t, []int{2, 2, 2, 2, 2, 2}, X.EdgeDegrees())

	assert.Equal(t, "1:0(0123) 1:1(0123) 1:2(0123) 1:3(0123) | 0:0(0123) 0:1(0123) 0:2(0123) 0:3(0123)", X.GluingsString())
	assert.Equal(t, "ofcv V=4 E=6 deg=2..2", FormatInfo(X.Info()))

	buf := bytes.Buffer{}
	X.WriteAsString(&buf, tri3.PrintOpts{Label: "S3", Info: true})
	assert.Equal(t, "S3  ofcv V=4 E=6 deg=2..2\n", buf.String())

	// an odd gluing on one facet breaks orientability
	Y := New(2)
	require.NoError(t, Y.Join(0, 0, 1, perm.Transposition(1, 2)))
	for f := 1; f < 4; f++ {
		require.NoError(t, Y.Join(0, f, 1, perm.Identity))
	}
	assert.False(t, Y.IsOrientable())
}

func TestReversedEdgeIsInvalid(t *testing.T) {
	// facet 2 onto facet 3 swapping vertices 0 and 1 reverses edge 01
	X := New(1)
	g := perm.Perm4{1, 0, 3, 2}
	require.NoError(t, X.Join(0, 2, 0, g))
	assert.False(t, X.IsValid())

	// the same facets glued fixing 0 and 1 are fine
	Y := New(1)
	require.NoError(t, Y.Join(0, 2, 0, perm.Transposition(2, 3)))
	assert.True(t, Y.IsValid())
	assert.True(t, Y.IsFinite())
	assert.Equal(t, 2, Y.Pairing().NumBoundaryFacets())
}

func TestIsoSigInvariant(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		n := 1 + rnd.Intn(5)
		X := randomTri(rnd, n)
		sig := X.IsoSig()

		tetPerm := rnd.Perm(n)
		vtxPerms := make([]perm.Perm4, n)
		for k := range vtxPerms {
			vtxPerms[k] = perm.S4[rnd.Intn(24)]
		}
		Y := X.Relabel(tetPerm, vtxPerms)
		require.Equal(t, sig, Y.IsoSig(), X.GluingsString())
		assert.Equal(t, X.Info(), Y.Info())

		Z, err := FromIsoSig(sig)
		require.NoError(t, err, sig)
		assert.Equal(t, sig, Z.IsoSig())
		assert.Equal(t, X.Info(), Z.Info())

		W := X.MakeCopy().(*Triangulation)
		assert.Equal(t, sig, W.IsoSig())
		for _, tri := range []*Triangulation{X, Y, Z, W} {
			tri.Reclaim()
		}
	}
}

func TestIsoSigDistinguishes(t *testing.T) {
	a := New(1)
	require.NoError(t, a.Join(0, 2, 0, perm.Transposition(2, 3)))
	b := New(1)
	require.NoError(t, b.Join(0, 2, 0, perm.Perm4{1, 0, 3, 2}))
	assert.NotEqual(t, a.IsoSig(), b.IsoSig())
	assert.NotEqual(t, a.IsoSig(), sphere2(t).IsoSig())
	assert.NotEqual(t, New(1).IsoSig(), New(2).IsoSig())

	// disconnected: components sorted and joined with '.'
	comps := []string{sphere2(t).IsoSig(), a.IsoSig()}
	X, err := FromIsoSig(comps[1] + "." + comps[0])
	require.NoError(t, err)
	assert.Equal(t, 3, X.NumTets())
	parts := strings.Split(X.IsoSig(), ".")
	assert.ElementsMatch(t, comps, parts)
	assert.True(t, parts[0] < parts[1])
}

func TestIsoSigErrors(t *testing.T) {
	for _, sig := range []string{"", "a", "b", "b*aaa", "baaaaa", "cbbaaaaa"} {
		_, err := FromIsoSig(sig)
		assert.ErrorIs(t, err, tri3.ErrBadRecord, "%q", sig)
	}
}
