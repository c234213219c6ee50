package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var compareJSON bool

var compareCmd = &cobra.Command{
	Use:   "compare <cityA> <cityB>",
	Short: "Compare two cities side by side",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		res, err := env.Engine.Compare(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		if compareJSON {
			return printJSON(cmd.OutOrStdout(), res)
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s vs %s\n", res.CityA.Name, res.CityB.Name)
		for _, line := range res.Comparison {
			fmt.Fprintf(out, "- %s\n", line)
		}
		return nil
	},
}

func init() {
	compareCmd.Flags().BoolVar(&compareJSON, "json", false, "print the full comparison as JSON")
	rootCmd.AddCommand(compareCmd)
}
