package cmd

import (
	"context"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/duesync/duesync/pkg/archive"
)

// statsCmd represents the stats command
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Prints statistics about active and archived assignments.",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.close()

		stats, err := archive.NewManager(e.store).Stats()
		if err != nil {
			return err
		}

		byStatus := make(map[string]int, len(stats.ActiveByStatus))
		for status, n := range stats.ActiveByStatus {
			byStatus[string(status)] = n
		}
		byReason := make(map[string]int, len(stats.ArchivedByReason))
		for reason, n := range stats.ArchivedByReason {
			byReason[string(reason)] = n
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.AlignRight)
		fmt.Fprintln(w, "STATUS\tCOUNT\t")
		for _, status := range sortedCountKeys(byStatus) {
			fmt.Fprintf(w, "%s\t%d\t\n", status, byStatus[status])
		}
		fmt.Fprintln(w, " \t \t")
		fmt.Fprintf(w, "ACTIVE\t%d\t\n", stats.ActiveCount)
		fmt.Fprintf(w, "ARCHIVED\t%d\t\n", stats.TotalArchived)
		for _, reason := range sortedCountKeys(byReason) {
			fmt.Fprintf(w, "  %s\t%d\t\n", reason, byReason[reason])
		}
		w.Flush()

		if stats.LastCleanup != "" {
			fmt.Printf("\nLast archive sweep: %s\n", stats.LastCleanup)
		}

		counts, err := e.journal.CountByKind(context.Background(), time.Now().AddDate(0, 0, -7))
		if err == nil && len(counts) > 0 {
			fmt.Println("\nLast 7 days:")
			for _, kind := range sortedCountKeys(counts) {
				fmt.Printf("  %-14s %d\n", kind, counts[kind])
			}
		}
		return nil
	},
}

func sortedCountKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
