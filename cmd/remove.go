package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/duesync/duesync/internal/utils"
	"github.com/duesync/duesync/pkg/destinations"
	"github.com/duesync/duesync/pkg/journal"
)

// removeCmd drops an assignment from the active set and from every
// destination that supports deletion. Records that should merely stop
// showing up in lists belong in `archive` instead.
var removeCmd = &cobra.Command{
	Use:   "remove",
	Short: "Delete an assignment from the record file and from all destinations",
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

		active, err := e.store.LoadActive()
		if err != nil {
			return err
		}

		idx := -1
		for i, a := range active {
			if strings.EqualFold(a.Title, title) {
				idx = i
				break
			}
		}
		if idx == -1 {
			return fmt.Errorf("no active assignment titled %q", title)
		}
		target := active[idx]

		ctx := context.Background()
		for _, d := range e.configuredDestinations() {
			del, ok := d.(destinations.Deleter)
			if !ok {
				continue
			}
			if err := del.Delete(ctx, target); err != nil {
				utils.Log.Warnf("Could not delete %q from %s: %v", target.Title, d.Name(), err)
				continue
			}
			e.journal.Record(ctx, journal.Event{
				Kind:        journal.KindRemoteDelete,
				Title:       target.Title,
				CourseCode:  target.CourseCode,
				Destination: d.Name(),
			})
		}

		active = append(active[:idx], active[idx+1:]...)
		if err := e.store.SaveActive(active); err != nil {
			return err
		}
		fmt.Printf("Removed %q (%d active remaining)\n", target.Title, len(active))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(removeCmd)
	removeCmd.Flags().String("title", "", "Title of the assignment to delete everywhere")
}
