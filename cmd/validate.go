package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/clustercharge/simulation"
)

var validateStrict bool

var validateCmd = &cobra.Command{
	Use:   "validate <scenario>",
	Short: "Check a scenario file",
	Args:  cobra.ExactArgs(1),
	RunE:  runValidate,
}

func init() {
	validateCmd.Flags().BoolVar(&validateStrict, "strict", false, "treat power curve gaps as errors")
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	sc, err := simulation.Load(args[0])
	if err != nil {
		return err
	}
	warnings, err := sc.Validate(validateStrict)
	out := cmd.OutOrStdout()
	for _, w := range warnings {
		fmt.Fprintf(out, "warning: %s\n", w)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s: %d clusters, %d vehicles\n", args[0], len(sc.Clusters), len(sc.Vehicles))
	return nil
}
