package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bremersee/authman/internal/approval"
	"github.com/bremersee/authman/internal/config"
	"github.com/bremersee/authman/internal/observability/logger"
)

func newPurgeCmd(conf func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "purge-approvals",
		Short: "Delete expired approvals once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := conf()
			ctx := logger.ToContext(cmd.Context(), logger.L().With(logger.Component("purge")))

			st, err := openStorage(ctx, cfg)
			if err != nil {
				return err
			}
			defer st.close()

			n, err := approval.NewPurger(buildApprovalStore(cfg, st), 0).RunOnce(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "purged=%d\n", n)
			return nil
		},
	}
}
