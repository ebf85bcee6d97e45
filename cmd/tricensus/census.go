package main

import (
	"fmt"
	"os"
	"strings"

	walker "github.com/fine-structures/tricensus/fine/census-walker"
	"github.com/fine-structures/tricensus/libtri/gluing"
	"github.com/fine-structures/tricensus/tri3"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newCensusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "census",
		Short: "Enumerate every triangulation of n tetrahedra",
		Long: `census finds every connected triangulation of n tetrahedra meeting the given
constraints, once per isomorphism class.

Large runs can be split: --write-fragments stores the searches suspended at
--split levels, and --fragments resumes such a file, or part of one, elsewhere.`,
		Args: cobra.NoArgs,
		RunE: runCensus,
	}

	f := cmd.Flags()
	f.IntP("tets", "n", 0, "number of tetrahedra")
	f.String("boundary", "closed", "closed, bounded or both")
	f.Int("bdry-facets", -1, "exact number of boundary facets if bounded; -1 for any")
	f.String("orientable", "both", "true, false or both")
	f.String("finite", "true", "true (no ideal vertices), false (some ideal vertex) or both")
	f.String("purge", "", "comma separated classes that may be dropped: minimal, prime, p2")
	f.String("oracle", "link", "link (prune with link tracking) or completion (judge completed gluings only)")
	f.Bool("collapse", false, "search layered chains separately")
	f.Int("workers", 1, "search goroutines")
	f.Int("split", 0, "split each pairing into fragments after this many gluing levels")
	f.Bool("no-skip", false, "search pairings that cannot yield a purged census result")
	f.String("write-fragments", "", "write the split searches to this file instead of running them")
	f.String("fragments", "", "resume the split searches in this file")
	f.String("report", "", "write a YAML summary to this file")
	addOutputFlags(cmd)
	return cmd
}

func readCensusOpts() (walker.CensusOpts, error) {
	opts := walker.DefaultCensusOpts
	opts.NumTets = viper.GetInt("tets")
	opts.BdryFacets = viper.GetInt("bdry-facets")
	opts.Workers = viper.GetInt("workers")
	opts.SplitDepth = viper.GetInt("split")

	var err error
	if opts.Boundary, err = readBoundary(); err != nil {
		return opts, err
	}
	err = readSearchOpts(&opts)
	return opts, err
}

// readSearchOpts reads the options shared by census and search.
func readSearchOpts(opts *walker.CensusOpts) error {
	opts.Collapse = viper.GetBool("collapse")
	opts.NoSkipping = viper.GetBool("no-skip")

	var err error
	if opts.Orientable, err = tri3.ParseBoolSet(viper.GetString("orientable")); err != nil {
		return err
	}
	if opts.Finite, err = tri3.ParseBoolSet(viper.GetString("finite")); err != nil {
		return err
	}
	if opts.Purge, err = walker.ParsePurge(viper.GetString("purge")); err != nil {
		return err
	}
	switch str := viper.GetString("oracle"); strings.ToLower(str) {
	case "link":
		opts.Oracle = gluing.LinkOracle
	case "completion":
		opts.Oracle = gluing.CompletionOracle
	default:
		return errors.Wrapf(tri3.ErrBadCensusParam, "oracle %q", str)
	}
	return nil
}

func readBoundary() (tri3.BoolSet, error) {
	switch str := viper.GetString("boundary"); strings.ToLower(str) {
	case "closed":
		return tri3.BoolFalse, nil
	case "bounded":
		return tri3.BoolTrue, nil
	case "both", "any":
		return tri3.BoolBoth, nil
	default:
		return tri3.BoolNone, errors.Wrapf(tri3.ErrBadCensusParam, "boundary %q", str)
	}
}

func runCensus(cmd *cobra.Command, args []string) error {
	opts, err := readCensusOpts()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if path := viper.GetString("write-fragments"); path != "" {
		file, err := os.Create(path)
		if err != nil {
			return err
		}
		n, err := walker.WriteFragments(opts, file)
		if closeErr := file.Close(); err == nil {
			err = closeErr
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%d fragments written to %s\n", n, path)
		return nil
	}

	var census *walker.Census
	if path := viper.GetString("fragments"); path != "" {
		file, err := os.Open(path)
		if err != nil {
			return err
		}
		frags, err := walker.ReadFragments(file)
		file.Close()
		if err != nil {
			return err
		}
		census, err = walker.EnumFragments(frags, opts)
		if err != nil {
			return err
		}
	} else {
		census, err = walker.EnumTriangulations(opts)
		if err != nil {
			return err
		}
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
	summary, err := census.Wait()
	if err != nil {
		return err
	}

	printTally(out, "triangulations", tally)
	return writeReport(viper.GetString("report"), &censusReport{
		Summary:  summary,
		Boundary: viper.GetString("boundary"),
		Purge:    viper.GetString("purge"),
		Tally:    tally,
	})
}

type censusReport struct {
	walker.Summary

	Boundary string        `json:"boundary"`
	Purge    string        `json:"purge,omitempty"`
	Tally    map[int]int64 `json:"kept_by_tets"`
}
