package main

import (
	"strings"

	walker "github.com/fine-structures/tricensus/fine/census-walker"
	"github.com/fine-structures/tricensus/libtri/pairing"
	"github.com/spf13/cobra"
)

func newSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <pairing>",
		Short: "Find the triangulations of one facet pairing",
		Long: `search finds every triangulation whose facet pairing is the given one, up to
isomorphism.  The pairing is given either in the readable form printed by
"pairings", e.g. "0:1 0:0 0:3 0:2", or in the compact form printed by
"pairings --text".`,
		Args: cobra.ExactArgs(1),
		RunE: runSearch,
	}
	f := cmd.Flags()
	f.String("orientable", "both", "true, false or both")
	f.String("finite", "true", "true (no ideal vertices), false (some ideal vertex) or both")
	f.String("purge", "", "comma separated classes that may be dropped: minimal, prime, p2")
	f.String("oracle", "link", "link or completion")
	f.Bool("collapse", false, "search layered chains separately")
	f.Bool("no-skip", false, "search the pairing even if it cannot yield a purged census result")
	addOutputFlags(cmd)
	return cmd
}

func parsePairing(str string) (*pairing.FacetPairing, error) {
	str = strings.TrimSpace(str)
	if strings.Contains(str, ":") || strings.Contains(str, "bdry") {
		return pairing.ParseString(str)
	}
	return pairing.ParseTextRep(str)
}

func runSearch(cmd *cobra.Command, args []string) error {
	p, err := parsePairing(args[0])
	if err != nil {
		return err
	}
	opts := walker.DefaultCensusOpts
	if err = readSearchOpts(&opts); err != nil {
		return err
	}
	census, err := walker.SearchPairing(p, opts)
	if err != nil {
		return err
	}

	ctx, cat, err := openCatalog(false)
	if err != nil {
		census.PullAll()
		return err
	}
	defer closeCatalog(ctx)

	tally, err := drain(cmd, census.TriStream, cat)
	if err != nil {
		return err
	}
	if _, err = census.Wait(); err != nil {
		return err
	}
	printTally(cmd.OutOrStdout(), "triangulations", tally)
	return nil
}
