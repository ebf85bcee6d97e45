package perm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTables(t *testing.T) {
	for i, p := range S4 {
		require.True(t, p.IsValid())
		require.Equal(t, i, p.S4Index())
		if i%2 == 0 {
			assert.Equal(t, 1, p.Sign(), "S4[%d]", i)
		} else {
			assert.Equal(t, -1, p.Sign(), "S4[%d]", i)
		}
	}

	s4idx := [6]int{0, 3, 8, 7, 12, 15}
	for k, p := range S3 {
		assert.Equal(t, S4[s4idx[k]], p)
		assert.Equal(t, 3, p.Apply(3))
		assert.Equal(t, S3[InvS3[k]], p.Inverse())
		if k%2 == 0 {
			assert.Equal(t, 1, p.Sign())
		} else {
			assert.Equal(t, -1, p.Sign())
		}
	}
}

func TestCompose(t *testing.T) {
	for _, p := range S4 {
		assert.Equal(t, Identity, p.Compose(p.Inverse()))
		assert.Equal(t, Identity, p.Inverse().Compose(p))
		for _, q := range S4 {
			pq := p.Compose(q)
			for i := 0; i < 4; i++ {
				assert.Equal(t, p.Apply(q.Apply(i)), pq.Apply(i))
			}
			assert.Equal(t, p.Sign()*q.Sign(), pq.Sign())
		}
	}

	sw := Transposition(1, 3)
	assert.Equal(t, Perm4{0, 3, 2, 1}, sw)
	assert.Equal(t, -1, sw.Sign())
	assert.Equal(t, Identity, Transposition(2, 2))
}

func TestCompareAndString(t *testing.T) {
	for i := 1; i < 24; i++ {
		// S4 is not sorted lexicographically everywhere, but the leading image is.
		assert.LessOrEqual(t, S4[i-1][0], S4[i][0])
	}
	assert.Equal(t, -1, S4[0].Compare(S4[1]))
	assert.Equal(t, 0, S4[5].Compare(S4[5]))
	assert.Equal(t, 1, S4[23].Compare(S4[0]))

	p, ok := ParsePerm4("2130")
	require.True(t, ok)
	assert.Equal(t, "2130", p.String())

	_, ok = ParsePerm4("2230")
	assert.False(t, ok)
	_, ok = ParsePerm4("21")
	assert.False(t, ok)
}
