package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/geoassist/internal/store"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the persistent response cache",
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete expired entries from the cache store",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := store.Open(cmd.Context(), cfg.Cache.Store)
		if err != nil {
			return eris.Wrap(err, "open cache store")
		}
		if st == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "cache store is in-memory; nothing to purge")
			return nil
		}
		defer func() { _ = st.Close() }()

		n, err := purgeExpired(cmd, st)
		if err != nil {
			return err
		}
		zap.L().Info("cache purged", zap.String("driver", cfg.Cache.Store.Driver), zap.Int64("deleted", n))
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %d expired entries\n", n)
		return nil
	},
}

func purgeExpired(cmd *cobra.Command, st store.Store) (int64, error) {
	n, err := st.DeleteExpired(cmd.Context())
	if err != nil {
		return 0, eris.Wrap(err, "delete expired cache entries")
	}
	return n, nil
}

func init() {
	cacheCmd.AddCommand(cachePurgeCmd)
	rootCmd.AddCommand(cacheCmd)
}
