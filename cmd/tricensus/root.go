package main

import (
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"github.com/pkg/profile"
	"github.com/plan-systems/klog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "tricensus",
		Short: "Census of 3-dimensional triangulations",
		Long: `tricensus enumerates 3-manifold triangulations up to isomorphism: the facet
pairings of n tetrahedra, the gluing permutations that complete each of them,
and a catalog that keeps the results by isomorphism signature.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			bindFlags(cmd)
			return startProfile(viper.GetString("profile"))
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			stopProfile()
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.tricensus.yaml)")
	pf.String("profile", "", "write a cpu or mem profile to the current directory")
	pf.String("catalog", "", "catalog directory; empty for none")
	pf.Bool("color", false, "force coloured summaries")
	viper.BindPFlag("profile", pf.Lookup("profile"))
	viper.BindPFlag("catalog", pf.Lookup("catalog"))
	viper.BindPFlag("color", pf.Lookup("color"))

	rootCmd.AddCommand(
		newCensusCmd(),
		newPairingsCmd(),
		newSearchCmd(),
		newCatalogCmd(),
	)
	return rootCmd
}

func init() {
	cobra.OnInitialize(initConfig)
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			klog.Warningf("no home directory: %v", err)
		} else {
			viper.AddConfigPath(home)
		}
		viper.SetConfigName(".tricensus")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("tricensus")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		klog.V(1).Infof("using config file %s", viper.ConfigFileUsed())
	} else if cfgFile != "" {
		klog.Warningf("config %s: %v", cfgFile, err)
	}
}

// bindFlags makes the local flags of the running command readable through viper, so that each can also be set
// from the config file or the environment.
func bindFlags(cmd *cobra.Command) {
	viper.BindPFlags(cmd.LocalFlags())
}

// catalogPath expands a leading ~ in the configured catalog path.
func catalogPath() (string, error) {
	path := viper.GetString("catalog")
	if path == "" {
		return "", nil
	}
	return homedir.Expand(path)
}

var activeProfile interface{ Stop() }

func startProfile(mode string) error {
	switch strings.ToLower(mode) {
	case "":
	case "cpu":
		activeProfile = profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook)
	case "mem":
		activeProfile = profile.Start(profile.MemProfile, profile.ProfilePath("."), profile.NoShutdownHook)
	default:
		return errors.Errorf("unknown profile %q, expected cpu or mem", mode)
	}
	return nil
}

func stopProfile() {
	if activeProfile != nil {
		activeProfile.Stop()
		activeProfile = nil
	}
}

// useColor reports whether summaries written to w should be coloured.
func useColor(w io.Writer) bool {
	if viper.GetBool("color") {
		return true
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) && !color.NoColor
}
