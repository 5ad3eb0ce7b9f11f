package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/duesync/duesync/pkg/archive"
	"github.com/duesync/duesync/pkg/assignment"
	"github.com/duesync/duesync/pkg/journal"
)

// archiveCmd represents the archive command
var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Archive completed assignments past retention, or one by title",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.close()

		manager := archive.NewManager(e.store)

		if title, _ := cmd.Flags().GetString("title"); title != "" {
			if err := manager.ArchiveByTitle(title, assignment.ReasonManual); err != nil {
				return err
			}
			e.journal.Record(context.Background(), journal.Event{Kind: journal.KindArchive, Title: title, Detail: string(assignment.ReasonManual)})
			fmt.Printf("Archived %q\n", title)
			return nil
		}

		retention, _ := cmd.Flags().GetInt("retention-days")
		if retention <= 0 {
			retention = viper.GetInt("archive.retention_days")
		}
		result, err := manager.Sweep(retention)
		if err != nil {
			return err
		}
		fmt.Printf("Archived %d assignments (%d active, %d archived total)\n",
			len(result.NewlyArchived), result.ActiveCount, result.TotalArchived)
		return nil
	},
}

// restoreCmd represents the restore command
var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Restore an archived assignment back to the active set",
	RunE: func(cmd *cobra.Command, args []string) error {
		title, _ := cmd.Flags().GetString("title")
		if title == "" {
			return fmt.Errorf("--title is required")
		}

		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.close()

		restored, err := archive.NewManager(e.store).Restore(title)
		if err != nil {
			return err
		}
		e.journal.Record(context.Background(), journal.Event{Kind: journal.KindRestore, Title: restored.Title, CourseCode: restored.CourseCode})
		fmt.Printf("Restored %q (status reset to %s)\n", restored.Title, restored.Status)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(archiveCmd)
	rootCmd.AddCommand(restoreCmd)
	archiveCmd.Flags().String("title", "", "Archive this assignment now instead of sweeping by age")
	archiveCmd.Flags().Int("retention-days", 0, "Archive completed assignments older than this (default from config)")
	restoreCmd.Flags().String("title", "", "Title of the archived assignment to restore")
}
