package main

import (
	"fmt"

	"github.com/fine-structures/tricensus/libtri/pairing"
	"github.com/fine-structures/tricensus/tri3"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newPairingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pairings",
		Short: "List the facet pairings of n tetrahedra",
		Args:  cobra.NoArgs,
		RunE:  runPairings,
	}
	f := cmd.Flags()
	f.IntP("tets", "n", 0, "number of tetrahedra")
	f.String("boundary", "closed", "closed, bounded or both")
	f.Int("bdry-facets", -1, "exact number of boundary facets if bounded; -1 for any")
	f.Bool("text", false, "print the compact text form instead of the readable one")
	f.Bool("autos", false, "print the number of automorphisms of each pairing")
	f.BoolP("quiet", "q", false, "print only the count")
	return cmd
}

func runPairings(cmd *cobra.Command, args []string) error {
	nTets := viper.GetInt("tets")
	if nTets < 1 || nTets > tri3.MaxTets {
		return errors.Wrapf(tri3.ErrBadTetCount, "%d tetrahedra", nTets)
	}
	boundary, err := readBoundary()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	text := viper.GetBool("text")
	autos := viper.GetBool("autos")
	quiet := viper.GetBool("quiet")

	count := 0
	pairing.FindAllPairings(nTets, boundary, viper.GetInt("bdry-facets"), func(p *pairing.FacetPairing, isos []pairing.Isomorphism) {
		if p == nil {
			return
		}
		count++
		if quiet {
			return
		}
		str := p.String()
		if text {
			str = p.TextRep()
		}
		if autos {
			fmt.Fprintf(out, "%s  [%d]\n", str, len(isos))
		} else {
			fmt.Fprintln(out, str)
		}
	}, false)

	printTally(out, "pairings", map[int]int64{nTets: int64(count)})
	return nil
}
