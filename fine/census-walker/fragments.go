package walker

import (
	"bufio"
	"io"
	"strings"

	"github.com/fine-structures/tricensus/libtri/gluing"
	"github.com/fine-structures/tricensus/libtri/pairing"
	"github.com/fine-structures/tricensus/tri3"
	"github.com/pkg/errors"
)

// fragmentEnd terminates each fragment in a fragment file.
const fragmentEnd = "."

// WriteFragments splits every pairing of the census to opts.SplitDepth and writes the suspended searches to out,
// returning how many were written.  EnumFragments resumes them, possibly split across several processes.
func WriteFragments(opts CensusOpts, out io.Writer) (int64, error) {
	if err := opts.validate(); err != nil {
		return 0, err
	}
	if opts.SplitDepth <= 0 || opts.Collapse {
		return 0, errors.Wrap(tri3.ErrBadCensusParam, "fragments need a split depth and no chain collapsing")
	}
	c := &Census{
		opts:  opts,
		sopts: opts.searchOpts(),
	}

	w := bufio.NewWriter(out)
	var err error
	pairing.FindAllPairings(opts.NumTets, opts.Boundary, opts.BdryFacets, func(p *pairing.FacetPairing, autos []pairing.Isomorphism) {
		if p == nil || err != nil {
			return
		}
		c.pairings.Add(1)
		if !opts.NoSkipping && gluing.SkipPairing(p, c.sopts) {
			c.skipped.Add(1)
			return
		}
		c.splitPairing(p, autos, true, func(frag string) {
			if err == nil {
				_, err = w.WriteString(frag)
			}
			if err == nil {
				_, err = w.WriteString(fragmentEnd + "\n")
			}
		})
	}, false)

	if err == nil {
		err = c.err
	}
	if err == nil {
		err = w.Flush()
	}
	return c.fragments.Load(), err
}

// ReadFragments splits the contents of a fragment file.
func ReadFragments(in io.Reader) ([]string, error) {
	var frags []string
	frag := strings.Builder{}
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == fragmentEnd {
			frags = append(frags, frag.String())
			frag.Reset()
			continue
		}
		frag.WriteString(line)
		frag.WriteByte('\n')
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(frag.String()) != "" {
		return nil, errors.Wrap(tri3.ErrCorruptState, "unterminated fragment")
	}
	return frags, nil
}

// EnumFragments resumes the given fragments on opts.Workers goroutines.
//
// Only the worker, output and orientability / finiteness filter options apply; the search options are those
// stored in each fragment.
func EnumFragments(frags []string, opts CensusOpts) (*Census, error) {
	if len(frags) == 0 {
		return nil, errors.Wrap(tri3.ErrBadCensusParam, "no fragments")
	}
	if opts.Orientable == tri3.BoolNone || opts.Finite == tri3.BoolNone {
		return nil, errors.Wrap(tri3.ErrBadCensusParam, "orientability and finiteness must each allow something")
	}
	c := newCensus(opts)
	go func() {
		for _, frag := range frags {
			c.fragments.Add(1)
			c.jobs <- job{frag: frag}
		}
		close(c.jobs)
	}()
	return c, nil
}
