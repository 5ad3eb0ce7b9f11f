package cmd

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/duesync/duesync/internal/utils"
	"github.com/duesync/duesync/pkg/assignment"
	"github.com/duesync/duesync/pkg/syncer"
)

// syncCmd represents the sync command
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run a full pass: ingest, merge, archive sweep, and push to all destinations",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.close()

		var candidates []assignment.Candidate
		if scraped, _ := cmd.Flags().GetStringSlice("scraped"); len(scraped) > 0 {
			candidates, err = collectScraped(scraped)
			if err != nil {
				return err
			}
		}

		retention, _ := cmd.Flags().GetInt("retention-days")
		if retention <= 0 {
			retention = viper.GetInt("archive.retention_days")
		}

		s := syncer.New(syncer.Config{
			Store:         e.store,
			Destinations:  e.configuredDestinations(),
			Journal:       e.journal,
			Log:           utils.Log,
			RetentionDays: retention,
		})
		sum, err := s.RunPass(context.Background(), candidates)
		if err != nil {
			return err
		}
		printSummary(sum)
		return nil
	},
}

func printSummary(sum *syncer.Summary) {
	fmt.Printf("Merged: %d new, %d updated, %d unchanged\n", sum.Inserted, sum.Updated, sum.Ignored)
	if sum.Archived > 0 {
		fmt.Printf("Archived: %d\n", sum.Archived)
	}
	for _, name := range sortedKeys(sum.Created, sum.Adopted, sum.Skipped) {
		fmt.Printf("%s: %d created, %d adopted, %d skipped\n",
			name, sum.Created[name], sum.Adopted[name], sum.Skipped[name])
	}
	if sum.StatusUpdated > 0 || sum.Restored > 0 {
		fmt.Printf("Status pull: %d updated, %d restored from archive\n", sum.StatusUpdated, sum.Restored)
	}
	if len(sum.Errors) > 0 {
		fmt.Printf("Finished with %d non-fatal errors (see log)\n", len(sum.Errors))
	}
}

func sortedKeys(maps ...map[string]int) []string {
	seen := make(map[string]bool)
	var keys []string
	for _, m := range maps {
		for k := range m {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	sort.Strings(keys)
	return keys
}

func init() {
	rootCmd.AddCommand(syncCmd)
	syncCmd.Flags().StringSlice("scraped", nil, "Course-page JSON export file(s) to ingest before syncing")
	syncCmd.Flags().Int("retention-days", 0, "Archive completed assignments older than this (default from config)")
}
