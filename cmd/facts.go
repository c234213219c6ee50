package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var factsCmd = &cobra.Command{
	Use:   "facts [place]",
	Short: "Resolve a place and print its aggregated facts as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		q, err := placeQuery(cmd, args)
		if err != nil {
			return err
		}

		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		place, rec, err := env.Engine.Facts(cmd.Context(), q)
		if err != nil {
			return err
		}
		zap.L().Debug("facts aggregated",
			zap.String("label", place.Label),
			zap.Stringer("scope", place.Scope),
		)
		return printJSON(cmd.OutOrStdout(), map[string]any{"place": place, "facts": rec})
	},
}

func init() {
	addPlaceFlags(factsCmd)
	rootCmd.AddCommand(factsCmd)
}
