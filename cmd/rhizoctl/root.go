// Package main implements rhizoctl, a thin manual-inspection CLI over a
// rhizo store: initializing the on-disk layout, putting/getting chunks,
// and inspecting branches. It is a demonstration surface only — spec.md §6
// explicitly leaves the CLI surface and its flag/exit-code contract out of
// scope for the core; rhizoctl exists so a human can poke at a store
// without writing Go.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/rhizodata/rhizo/common/logging"
	"github.com/rhizodata/rhizo/config"
)

var (
	rootFlags = flag.NewFlagSet("", flag.ContinueOnError)

	rootCmd = &cobra.Command{
		Use:           "rhizoctl",
		Short:         "manual inspection CLI for a rhizo store",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	logger = logging.Named(logging.Root("info"), "rhizoctl")
)

func init() {
	rootFlags.String("root", "", "store root directory (defaults to RHIZO_STORE_ROOT or ./rhizo-data)")
	rootFlags.String("config", "", "path to a config file merged over the defaults")
	rootCmd.PersistentFlags().AddFlagSet(rootFlags)
	_ = viper.BindPFlag(config.KeyRoot, rootFlags.Lookup("root"))
}

// loadConfig resolves the effective store configuration from --config plus
// any --root override and RHIZO_* environment variables.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}
	if root, _ := cmd.Flags().GetString("root"); root != "" {
		cfg.Root = root
	}
	return cfg, nil
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "rhizoctl:", err)
	os.Exit(1)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fail(err)
	}
}
