package main

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/quickbite/quickbite/client/internal/snapshot"
)

func newStatsCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show hub rooms, connections and event counters",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := setup(g)
			if err != nil {
				return err
			}
			rest, err := snapshot.New(*cfg)
			if err != nil {
				return err
			}

			s, err := rest.Stats(cmd.Context())
			if err != nil {
				return err
			}
			printf("rooms: %d  connections: %d\n", s.Rooms, s.Connections)

			mfs, err := rest.Metrics(cmd.Context())
			if err != nil {
				return fmt.Errorf("metrics: %w", err)
			}
			published := snapshot.ByLabel(mfs, "quickbite_events_published_total", "kind")
			delivered := snapshot.ByLabel(mfs, "quickbite_events_delivered_total", "kind")
			rejected := snapshot.ByLabel(mfs, "quickbite_events_rejected_total", "kind")

			kinds := make([]string, 0, len(published))
			for k := range published {
				kinds = append(kinds, k)
			}
			for k := range rejected {
				if _, ok := published[k]; !ok {
					kinds = append(kinds, k)
				}
			}
			sort.Strings(kinds)

			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "KIND\tPUBLISHED\tDELIVERED\tREJECTED")
			for _, k := range kinds {
				fmt.Fprintf(tw, "%s\t%.0f\t%.0f\t%.0f\n", k, published[k], delivered[k], rejected[k])
			}
			tw.Flush() //nolint:errcheck
			printf("send failures: %.0f\n", snapshot.Sum(mfs, "quickbite_send_failures_total"))
			return nil
		},
	}
}
