package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	aggregationsvc "donorhub/internal/aggregation/service"
	"donorhub/pkg/requestcontext"
)

func recomputeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recompute",
		Short: "Rebuild every cause and campaign total from donations",
		Long: `Recompute derived totals for all causes and then all campaigns.

Each entity is rebuilt in its own transaction under its lock, so the
command is safe to run against a live deployment.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := requestcontext.WithTime(cmd.Context(), requestcontext.Now(cmd.Context()).UTC())
			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.close()

			engine, m, err := a.engine()
			if err != nil {
				return err
			}
			svc := aggregationsvc.New(a.db, engine,
				aggregationsvc.WithLogger(a.logger),
				aggregationsvc.WithMetrics(m),
			)
			report, err := svc.RecomputeAll(ctx)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}
}
