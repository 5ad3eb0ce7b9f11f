package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/duesync/duesync/internal/utils"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

var cfgFile string

const (
	LOGO = `	     _
	  __| |_   _  ___  ___ _   _ _ __   ___
	 / _` + "`" + ` | | | |/ _ \/ __| | | | '_ \ / __|
	| (_| | |_| |  __/\__ \ |_| | | | | (__
	 \__,_|\__,_|\___||___/\__, |_| |_|\___|
	                       |___/

`
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "duesync",
	Short: "Keep course assignments in sync across your task managers.",
	Long: LOGO + `duesync collects assignments from notification emails and course-page
exports, deduplicates them into a single record file, and mirrors each
one to Todoist, Notion, and a local markdown board, exactly once.`,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.duesync.yaml)")

	// Global flags
	rootCmd.PersistentFlags().StringP("data-dir", "d", "", "data directory (default is $HOME/.config/duesync)")
	rootCmd.PersistentFlags().StringP("loglevel", "l", "info", "Set log level. Available: debug, info, warn, error, fatal")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		viper.AddConfigPath(home)
		viper.SetConfigName(".duesync")
		viper.SetConfigType("yaml")
	}

	viper.AutomaticEnv()

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; create it with defaults.
			home, _ := homedir.Dir()
			configPath := home + "/.duesync.yaml"
			if err := viper.SafeWriteConfigAs(configPath); err != nil {
				fmt.Printf("Error creating config file: %s", err)
			}
		}
	}

	// Set default empty values for all keys
	viper.SetDefault("todoist.token", "")
	viper.SetDefault("todoist.project", "")
	viper.SetDefault("notion.token", "")
	viper.SetDefault("notion.database_id", "")
	viper.SetDefault("localfile.path", "")
	viper.SetDefault("data.dir", "")
	viper.SetDefault("archive.retention_days", 30)

	// Init log library
	levelString, _ := rootCmd.PersistentFlags().GetString("loglevel")
	utils.SetLogLevel(levelString)
}
