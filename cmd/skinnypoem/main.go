// Command skinnypoem runs the daily collaborative skinny poem service.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "skinnypoem",
		Short: "Daily collaborative skinny poem service",
		Long: `skinnypoem runs a once-a-day collaborative poem. Users vote on a key
line, then a key word, then mood values; the poem is composed and archived
in the evening.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (.yaml, .yml or .toml); defaults to $SKINNYPOEM_CONFIG")

	root.AddCommand(
		newServeCmd(&configPath),
		newShowCmd(&configPath),
		newHashTokenCmd(),
	)
	return root
}
