package perm

import "strconv"

// Perm4 is a permutation of {0,1,2,3}, stored as its image tuple.
type Perm4 [4]uint8

// Identity is the identity permutation.
var Identity = Perm4{0, 1, 2, 3}

// S4 lists all 24 permutations, ordered so that even and odd permutations alternate.
var S4 = [24]Perm4{
	{0, 1, 2, 3}, {0, 1, 3, 2}, {0, 2, 3, 1}, {0, 2, 1, 3},
	{0, 3, 1, 2}, {0, 3, 2, 1}, {1, 0, 3, 2}, {1, 0, 2, 3},
	{1, 2, 0, 3}, {1, 2, 3, 0}, {1, 3, 2, 0}, {1, 3, 0, 2},
	{2, 0, 1, 3}, {2, 0, 3, 1}, {2, 1, 3, 0}, {2, 1, 0, 3},
	{2, 3, 0, 1}, {2, 3, 1, 0}, {3, 0, 2, 1}, {3, 0, 1, 2},
	{3, 1, 0, 2}, {3, 1, 2, 0}, {3, 2, 1, 0}, {3, 2, 0, 1},
}

// S3 lists the permutations fixing 3, S3[k] having sign (-1)^k.
var S3 = [6]Perm4{
	{0, 1, 2, 3}, {0, 2, 1, 3}, {1, 2, 0, 3},
	{1, 0, 2, 3}, {2, 0, 1, 3}, {2, 1, 0, 3},
}

// InvS3[k] is the index of the inverse of S3[k].
var InvS3 = [6]int{0, 1, 4, 3, 2, 5}

// Transposition returns the permutation swapping a and b.
func Transposition(a, b int) Perm4 {
	p := Identity
	p[a], p[b] = p[b], p[a]
	return p
}

// Compose returns p∘q, i.e. q applied first.
func (p Perm4) Compose(q Perm4) Perm4 {
	return Perm4{p[q[0]], p[q[1]], p[q[2]], p[q[3]]}
}

func (p Perm4) Inverse() Perm4 {
	var inv Perm4
	for i, pi := range p {
		inv[pi] = uint8(i)
	}
	return inv
}

// Apply returns the image of i.
func (p Perm4) Apply(i int) int {
	return int(p[i])
}

// Sign returns +1 for even permutations and -1 for odd ones.
func (p Perm4) Sign() int {
	sign := 1
	for i := 0; i < 4; i++ {
		for j := i + 1; j < 4; j++ {
			if p[i] > p[j] {
				sign = -sign
			}
		}
	}
	return sign
}

// Compare orders permutations lexicographically by their image tuples.
func (p Perm4) Compare(q Perm4) int {
	for i := 0; i < 4; i++ {
		if p[i] != q[i] {
			if p[i] < q[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

// S4Index returns the position of p in S4.
func (p Perm4) S4Index() int {
	for i := range S4 {
		if S4[i] == p {
			return i
		}
	}
	return -1
}

// IsValid reports whether p is a bijection of {0,1,2,3}.
func (p Perm4) IsValid() bool {
	var seen [4]bool
	for _, pi := range p {
		if pi > 3 || seen[pi] {
			return false
		}
		seen[pi] = true
	}
	return true
}

func (p Perm4) String() string {
	var buf [4]byte
	for i, pi := range p {
		buf[i] = '0' + pi
	}
	return string(buf[:])
}

// ParsePerm4 reads the image tuple form produced by String.
func ParsePerm4(str string) (Perm4, bool) {
	var p Perm4
	if len(str) != 4 {
		return p, false
	}
	for i := 0; i < 4; i++ {
		d, err := strconv.Atoi(str[i : i+1])
		if err != nil {
			return p, false
		}
		p[i] = uint8(d)
	}
	return p, p.IsValid()
}
