package main

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/fatih/color"
	"github.com/fine-structures/tricensus/libtri/catalog"
	"github.com/fine-structures/tricensus/tri3"
	"github.com/ghodss/yaml"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }

func addOutputFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("sieve", "", "only keep triangulations for which this expression holds, e.g. \"Orientable && NumVertices == 1\"")
	f.Bool("sig", true, "print isomorphism signatures")
	f.Bool("pairing", false, "print facet pairings")
	f.Bool("gluings", false, "print gluing permutations")
	f.Bool("info", true, "print vertex and edge counts and flags")
	f.String("label", "", "prefix for each printed line")
	f.BoolP("quiet", "q", false, "print only the summary")
}

func readPrintOpts() tri3.PrintOpts {
	return tri3.PrintOpts{
		Label:   viper.GetString("label"),
		IsoSig:  viper.GetBool("sig"),
		Pairing: viper.GetBool("pairing"),
		Gluings: viper.GetBool("gluings"),
		Info:    viper.GetBool("info"),
	}
}

// openCatalog opens the configured catalog, or returns nil if none is configured.
func openCatalog(readOnly bool) (tri3.CatalogContext, tri3.Catalog, error) {
	path, err := catalogPath()
	if err != nil || path == "" {
		return nil, nil, err
	}
	ctx := tri3.NewCatalogContext()
	cat, err := catalog.OpenCatalog(ctx, tri3.CatalogOpts{
		DbPathName: path,
		ReadOnly:   readOnly,
	})
	if err != nil {
		ctx.Close()
		return nil, nil, err
	}
	return ctx, cat, nil
}

func closeCatalog(ctx tri3.CatalogContext) {
	if ctx != nil {
		ctx.Close()
		<-ctx.Done()
	}
}

// drain runs stream through the output stages and returns the tally of what reached the end.
func drain(cmd *cobra.Command, stream *tri3.TriStream, cat tri3.Catalog) (map[int]int64, error) {
	sieved, err := stream.Sieve(viper.GetString("sieve"))
	if err != nil {
		stream.PullAll()
		return nil, err
	}
	stream = sieved
	if cat != nil {
		stream = stream.AddTo(cat)
	} else {
		stream = stream.Dedupe()
	}
	if !viper.GetBool("quiet") {
		stream = stream.Print(nopCloser{cmd.OutOrStdout()}, readPrintOpts())
	}
	stream, tally := stream.Tally()
	stream.PullAll()
	return tally(), nil
}

// printTally writes one summary line per tetrahedron count.
func printTally(w io.Writer, what string, tally map[int]int64) {
	counts := make([]int, 0, len(tally))
	for n := range tally {
		counts = append(counts, n)
	}
	sort.Ints(counts)

	label := fmt.Sprintf
	num := fmt.Sprintf
	if useColor(w) {
		label = color.CyanString
		num = color.New(color.Bold).SprintfFunc()
	}
	total := int64(0)
	for _, n := range counts {
		fmt.Fprintf(w, "%s %s\n", label("%s, %d tetrahedra:", what, n), num("%d", tally[n]))
		total += tally[n]
	}
	fmt.Fprintf(w, "%s %s\n", label("%s, total:", what), num("%d", total))
}

// writeReport writes v as YAML to path, or does nothing if path is empty.
func writeReport(path string, v interface{}) error {
	if path == "" {
		return nil
	}
	buf, err := yaml.Marshal(v)
	if err != nil {
		return err
	}
	return os.WriteFile(path, buf, 0644)
}
