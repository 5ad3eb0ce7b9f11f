package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/duesync/duesync/internal/utils"
	"github.com/duesync/duesync/pkg/assignment"
	"github.com/duesync/duesync/pkg/ingest"
	"github.com/duesync/duesync/pkg/merge"
)

// ingestCmd merges new candidates into the local record file without
// touching any destination. Useful for inspecting what a sync would do.
var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Parse emails or scraped exports and merge them into the record file",
	RunE: func(cmd *cobra.Command, args []string) error {
		scraped, _ := cmd.Flags().GetStringSlice("scraped")
		emailDir, _ := cmd.Flags().GetString("email-dir")
		if len(scraped) == 0 && emailDir == "" {
			return fmt.Errorf("nothing to ingest: pass --scraped and/or --email-dir")
		}

		candidates, err := collectScraped(scraped)
		if err != nil {
			return err
		}
		if emailDir != "" {
			fromEmails, err := collectEmails(emailDir)
			if err != nil {
				return err
			}
			candidates = append(candidates, fromEmails...)
		}
		if len(candidates) == 0 {
			fmt.Println("No assignments found in the given inputs.")
			return nil
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
		engine := merge.NewEngine()
		var inserted, updated int
		for _, cand := range candidates {
			result, next := engine.Reconcile(cand, active)
			active = next
			switch result.Decision {
			case merge.DecisionInsert:
				inserted++
				fmt.Printf("new      %s\n", result.Record.Title)
			case merge.DecisionUpdate:
				updated++
				fmt.Printf("updated  %s\n", result.Record.Title)
			}
		}
		if err := e.store.SaveActive(active); err != nil {
			return err
		}
		fmt.Printf("Merged %d candidates: %d new, %d updated, %d unchanged\n",
			len(candidates), inserted, updated, len(candidates)-inserted-updated)
		return nil
	},
}

func collectScraped(paths []string) ([]assignment.Candidate, error) {
	var all []assignment.Candidate
	for _, path := range paths {
		cands, err := ingest.ImportScraped(path)
		if err != nil {
			return nil, err
		}
		all = append(all, cands...)
	}
	return all, nil
}

// collectEmails parses every .txt/.eml/.html file in dir as one message.
// The first line is treated as the subject, the rest as the body.
func collectEmails(dir string) ([]assignment.Candidate, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var cands []assignment.Candidate
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".txt", ".eml", ".html":
		default:
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		subject, body, _ := strings.Cut(string(data), "\n")
		id := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		cand, err := ingest.ParseEmail(ingest.Email{ID: id, Subject: subject, Body: body})
		if err != nil {
			utils.Log.Warnf("Skipping %s: %v", entry.Name(), err)
			continue
		}
		cands = append(cands, cand)
	}
	return cands, nil
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().StringSlice("scraped", nil, "Course-page JSON export file(s)")
	ingestCmd.Flags().String("email-dir", "", "Directory of saved notification emails")
}
