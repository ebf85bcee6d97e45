package main

import (
	"fmt"

	"github.com/fine-structures/tricensus/tri3"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newCatalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "List the triangulations stored in a catalog",
		Long: `catalog lists the triangulations stored by earlier census or search runs made
with --catalog, in order of tetrahedron count and isomorphism signature.`,
		Args: cobra.NoArgs,
		RunE: runCatalog,
	}
	f := cmd.Flags()
	f.Int("min-tets", 1, "smallest tetrahedron count listed")
	f.Int("max-tets", tri3.MaxTets, "largest tetrahedron count listed")
	f.Bool("orientable-only", false, "list only orientable triangulations")
	f.Bool("counts", false, "print only the stored count per tetrahedron count")
	addOutputFlags(cmd)
	return cmd
}

func runCatalog(cmd *cobra.Command, args []string) error {
	ctx, cat, err := openCatalog(true)
	if err != nil {
		return err
	}
	if cat == nil {
		return errors.Wrap(tri3.ErrBadCatalogParam, "no catalog given (--catalog)")
	}
	defer closeCatalog(ctx)

	sel := tri3.TriSelector{
		MinTets:        viper.GetInt("min-tets"),
		MaxTets:        viper.GetInt("max-tets"),
		OrientableOnly: viper.GetBool("orientable-only"),
	}
	out := cmd.OutOrStdout()

	if viper.GetBool("counts") {
		stored := make(map[int]int64)
		for n := sel.MinTets; n <= sel.MaxTets; n++ {
			if count := cat.NumTris(n); count > 0 {
				stored[n] = count
			}
		}
		printTally(out, "stored", stored)
		return nil
	}

	tally, err := drain(cmd, tri3.SelectFromCatalog(cat, sel), nil)
	if err != nil {
		return err
	}
	if len(tally) == 0 {
		fmt.Fprintln(out, "no triangulations selected")
	}
	printTally(out, "selected", tally)
	return nil
}
