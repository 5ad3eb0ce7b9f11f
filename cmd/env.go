package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/duesync/duesync/internal/utils"
	"github.com/duesync/duesync/pkg/destinations"
	"github.com/duesync/duesync/pkg/destinations/localfile"
	"github.com/duesync/duesync/pkg/destinations/notion"
	"github.com/duesync/duesync/pkg/destinations/todoist"
	"github.com/duesync/duesync/pkg/journal"
	"github.com/duesync/duesync/pkg/store"
)

// env is the wired-up environment shared by the data-touching commands.
type env struct {
	store   *store.Store
	journal *journal.DB
	lock    *utils.DataLock
	dataDir string
}

// openEnv resolves the data directory, takes the process lock, and opens
// the record store and journal. Callers must defer close.
func openEnv(cmd *cobra.Command) (*env, error) {
	dataDir, _ := cmd.Flags().GetString("data-dir")
	if dataDir == "" {
		dataDir = viper.GetString("data.dir")
	}
	dataDir, err := utils.GetAbsDataDir(dataDir)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(dataDir)
	if err != nil {
		return nil, fmt.Errorf("open data dir %s: %w", dataDir, err)
	}

	lock, err := utils.NewDataLock(dataDir)
	if err != nil {
		return nil, err
	}
	if err := lock.Lock(); err != nil {
		return nil, err
	}

	jr, err := journal.Open(filepath.Join(dataDir, "journal.sqlite"))
	if err != nil {
		lock.Unlock()
		return nil, fmt.Errorf("open journal: %w", err)
	}

	return &env{store: st, journal: jr, lock: lock, dataDir: dataDir}, nil
}

func (e *env) close() {
	e.journal.Close()
	e.lock.Unlock()
}

// configuredDestinations builds a destination per configured backend. The
// local markdown board is always on; remote destinations switch on with
// their credentials.
func (e *env) configuredDestinations() []destinations.Destination {
	var dests []destinations.Destination
	if token := viper.GetString("todoist.token"); token != "" {
		dests = append(dests, todoist.New(token, viper.GetString("todoist.project")))
	}
	if token := viper.GetString("notion.token"); token != "" {
		if dbID := viper.GetString("notion.database_id"); dbID != "" {
			dests = append(dests, notion.New(token, dbID))
		} else {
			utils.Log.Warn("notion.token set but notion.database_id missing, skipping Notion")
		}
	}
	path := viper.GetString("localfile.path")
	if path == "" {
		path = filepath.Join(e.dataDir, "assignments.md")
	}
	dests = append(dests, localfile.New(path))
	return dests
}
