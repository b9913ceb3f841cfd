package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"github.com/aquaguardian/aquaboard/internal/daemon"
	"github.com/aquaguardian/aquaboard/internal/dashboard"
	"github.com/aquaguardian/aquaboard/internal/metric"
)

func snapshotCmd() *cobra.Command {
	var (
		summary bool
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Run one aggregation cycle and print the snapshot",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			snap, err := daemon.Once(ctx, log, cfg)
			if err != nil {
				return fmt.Errorf("collecting snapshot: %w", err)
			}

			if summary {
				return writeSummary(cmd.OutOrStdout(), snap)
			}

			enc := jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")

			return enc.Encode(snap)
		},
	}

	cmd.Flags().BoolVar(&summary, "summary", false, "print a table instead of JSON")
	cmd.Flags().DurationVar(&timeout, "timeout", time.Minute, "overall deadline for the cycle")

	return cmd
}

func writeSummary(out io.Writer, snap *dashboard.Snapshot) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)

	fmt.Fprintf(w, "snapshot #%d published %s\n\n",
		snap.Seq(), humanize.Time(snap.PublishedAt()))
	fmt.Fprintln(w, "KIND\tORIGIN\tFETCHED")

	for _, kind := range snap.Kinds() {
		r, _ := snap.Get(kind)
		fmt.Fprintf(w, "%s\t%s\t%s\n", kind, r.Origin, humanize.Time(r.FetchedAt))
	}

	if stats, ok := dashboard.Value[metric.Stats](snap, metric.KindStats); ok {
		fmt.Fprintf(w, "\nreports: %s total, %s resolved, %s active users, avg response %s\n",
			humanize.Comma(int64(stats.Value.TotalReports)),
			humanize.Comma(int64(stats.Value.ResolvedReports)),
			humanize.Comma(int64(stats.Value.ActiveUsers)),
			stats.Value.AvgResponseTime,
		)
	}

	return w.Flush()
}
