package walker

import (
	"bytes"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fine-structures/tricensus/libtri/gluing"
	"github.com/fine-structures/tricensus/libtri/pairing"
	"github.com/fine-structures/tricensus/libtri/triang"
	"github.com/fine-structures/tricensus/tri3"
	"github.com/pkg/errors"
	"github.com/plan-systems/klog"
)

// Census is a running census; triangulations arrive on Outlet, which closes once every job is done.
type Census struct {
	*tri3.TriStream

	opts  CensusOpts
	sopts gluing.SearchOpts
	jobs  chan job
	start time.Time
	done  chan struct{}

	pairings   atomic.Int64
	skipped    atomic.Int64
	fragments  atomic.Int64
	found      atomic.Int64
	emitted    atomic.Int64
	orientable atomic.Int64
	ideal      atomic.Int64

	errOnce sync.Once
	err     error
	elapsed time.Duration
}

// job is a whole pairing or a suspended search fragment.
type job struct {
	p     *pairing.FacetPairing
	autos []pairing.Isomorphism
	frag  string
}

func enumTriangulations(opts CensusOpts) (*Census, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	c := newCensus(opts)
	go c.producePairings()
	return c, nil
}

func searchPairing(p *pairing.FacetPairing, opts CensusOpts) (*Census, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if !p.IsConnected() {
		return nil, errors.Wrap(tri3.ErrBadPairing, "pairing is not connected")
	}
	opts.NumTets = p.Size()
	opts.Boundary = tri3.BoolBoth
	opts.BdryFacets = -1
	if err := opts.validate(); err != nil {
		return nil, err
	}

	canon, _ := p.Canonical()
	autos := canon.FindAutomorphisms()
	c := newCensus(opts)
	c.pairings.Add(1)
	go func() {
		switch {
		case !opts.NoSkipping && gluing.SkipPairing(canon, c.sopts):
			c.skipped.Add(1)
		case opts.SplitDepth > 0:
			c.splitPairing(canon, autos, false, func(frag string) {
				c.jobs <- job{frag: frag}
			})
		default:
			c.jobs <- job{p: canon, autos: autos}
		}
		close(c.jobs)
	}()
	return c, nil
}

func newCensus(opts CensusOpts) *Census {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.StreamDepth <= 0 {
		opts.StreamDepth = 4 * opts.Workers
	}
	c := &Census{
		TriStream: &tri3.TriStream{
			Outlet: make(chan tri3.TriState, opts.StreamDepth),
		},
		opts:  opts,
		sopts: opts.searchOpts(),
		jobs:  make(chan job, 2*opts.Workers),
		start: time.Now(),
		done:  make(chan struct{}),
	}

	wg := &sync.WaitGroup{}
	for i := 0; i < opts.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range c.jobs {
				c.runJob(j)
			}
		}()
	}
	go func() {
		wg.Wait()
		c.elapsed = time.Since(c.start)
		klog.V(2).Infof("census: %d tetrahedra done, %d pairings, %d emitted in %v",
			opts.NumTets, c.pairings.Load(), c.emitted.Load(), c.elapsed)
		c.Close()
		close(c.done)
	}()
	return c
}

// producePairings feeds the workers, splitting pairings into fragments when asked.
func (c *Census) producePairings() {
	defer close(c.jobs)

	pairing.FindAllPairings(c.opts.NumTets, c.opts.Boundary, c.opts.BdryFacets, func(p *pairing.FacetPairing, autos []pairing.Isomorphism) {
		if p == nil {
			return
		}
		n := c.pairings.Add(1)
		klog.V(3).Infof("census: pairing %d: %v", n, p)
		if !c.opts.NoSkipping && gluing.SkipPairing(p, c.sopts) {
			c.skipped.Add(1)
			return
		}
		if c.opts.SplitDepth <= 0 {
			c.jobs <- job{p: p, autos: autos}
			return
		}
		c.splitPairing(p, autos, false, func(frag string) {
			c.jobs <- job{frag: frag}
		})
	}, false)
}

// splitPairing runs the search of p to SplitDepth and hands off the rest.
// Gluings completing early are emitted, or handed off too if dumpComplete is set.
func (c *Census) splitPairing(p *pairing.FacetPairing, autos []pairing.Isomorphism, dumpComplete bool, onFrag func(frag string)) {
	buf := bytes.Buffer{}
	var s *gluing.Searcher
	s = gluing.NewSearcher(p, autos, c.sopts, func(g gluing.Gluings) {
		switch {
		case g == nil:
		case g.IsComplete() && !dumpComplete:
			c.emit(g)
		default:
			buf.Reset()
			if err := s.DumpState(&buf); err != nil {
				c.fail(err)
				return
			}
			c.fragments.Add(1)
			onFrag(buf.String())
		}
	})
	s.RunSearch(c.opts.SplitDepth)
}

func (c *Census) runJob(j job) {
	use := func(g gluing.Gluings) {
		if g != nil {
			c.emit(g)
		}
	}
	switch {
	case j.frag != "":
		s, err := gluing.ReadSearcher(bytes.NewReader([]byte(j.frag)), use)
		if err != nil {
			c.fail(err)
			return
		}
		s.RunSearch(-1)
	case c.opts.Collapse:
		gluing.NewChainCollapser(j.p, j.autos, c.sopts, use).RunSearch()
	default:
		gluing.NewSearcher(j.p, j.autos, c.sopts, use).RunSearch(-1)
	}
}

func (c *Census) emit(g gluing.Gluings) {
	X := triang.FromGluings(g)
	info := X.Info()
	c.found.Add(1)
	if !c.opts.keeps(info) {
		X.Reclaim()
		return
	}
	c.emitted.Add(1)
	if info.Orientable {
		c.orientable.Add(1)
	}
	if !info.Finite {
		c.ideal.Add(1)
	}
	c.Outlet <- X
}

func (c *Census) fail(err error) {
	c.errOnce.Do(func() {
		c.err = err
		klog.Errorf("census: %v", err)
	})
}

// Wait blocks until the census completes, returning its summary and the first error met.
//
// Outlet must be drained concurrently, otherwise Wait never returns.
func (c *Census) Wait() (Summary, error) {
	<-c.done
	return c.Summary(), c.err
}

// Summary returns the counts so far.
func (c *Census) Summary() Summary {
	var elapsed time.Duration
	select {
	case <-c.done:
		elapsed = c.elapsed
	default:
		elapsed = time.Since(c.start)
	}
	return Summary{
		NumTets:      c.opts.NumTets,
		Pairings:     c.pairings.Load(),
		Skipped:      c.skipped.Load(),
		Fragments:    c.fragments.Load(),
		Found:        c.found.Load(),
		Emitted:      c.emitted.Load(),
		Orientable:   c.orientable.Load(),
		Ideal:        c.ideal.Load(),
		ElapsedMilli: elapsed.Milliseconds(),
	}
}

// Err returns the first error met, if any.
func (c *Census) Err() error {
	select {
	case <-c.done:
		return c.err
	default:
		return nil
	}
}
