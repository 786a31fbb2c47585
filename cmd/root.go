package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/rift-rewind/internal/config"
	"github.com/pable/rift-rewind/internal/logging"
)

var (
	dbPath    string
	storeName string
	region    string

	// cfg is loaded once in PersistentPreRunE; flags override it.
	cfg config.Config
)

var rootCmd = &cobra.Command{
	Use:   "rewind",
	Short: "League of Legends season rewind",
	Long: `Fetch a player's ranked match history, aggregate a season summary and
generate a short narrative for it. Progress is checkpointed so interrupted
runs resume where they stopped.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if cmd.Flags().Changed("store") {
			loaded.Store = storeName
			if !cmd.Flags().Changed("db") {
				loaded.DB = ""
				if storeName == "sqlite" || storeName == "bolt" {
					loaded.DB = config.DefaultDBPath(storeName)
				}
			}
		}
		if cmd.Flags().Changed("db") {
			loaded.DB = dbPath
		}
		cfg = loaded
		logging.Init(cfg.Log)
		return nil
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "store location: file path, postgres DSN or s3:// URL (default from REWIND_DB)")
	rootCmd.PersistentFlags().StringVar(&storeName, "store", "", "store backend: sqlite, bolt, postgres, s3 or memory (default from REWIND_STORE)")
	rootCmd.PersistentFlags().StringVarP(&region, "region", "r", "", "platform code such as euw1, na1 or kr")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(invalidateCmd)
	rootCmd.AddCommand(sampleCmd)
	rootCmd.AddCommand(hashCmd)
}
