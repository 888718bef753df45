package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/d4l-data4life/ollama-chat/pkg/config"
	"github.com/d4l-data4life/ollama-chat/pkg/store"

	"github.com/d4l-data4life/go-svc/pkg/logging"
)

var rootCmd = &cobra.Command{
	Use:           config.Name,
	Short:         "Local chat client for Ollama with durable conversations",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadDotEnv(); err != nil {
			return err
		}
		config.SetupEnv()
		return nil
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logging.LogErrorf(err, "%s failed", config.Name)
		os.Exit(1)
	}
}

// openStore opens the configured database; the application cannot run without it
func openStore() (*store.Store, error) {
	cfg := config.GetDatabaseConfig()
	db, err := store.Open(cfg)
	if err != nil {
		return nil, err
	}
	logging.LogDebugf("Using %s store (debug=%t)", cfg.Type, viper.GetBool("DEBUG"))
	return store.New(db), nil
}
