package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"CadenzaFM/config"
	"CadenzaFM/logger"
	"CadenzaFM/server"
)

var rootCmd = &cobra.Command{
	Use:   "cadenzafm",
	Short: "CadenzaFM is a personal music player with synchronized lyrics.",
	Long: `CadenzaFM scans a local music library, serves a browser player UI
and plays audio with time-synchronized LRC lyrics. Running it with no
subcommand starts the server.`,
	Run: func(cmd *cobra.Command, args []string) {
		server.Start(loadConfig())
	},
}

// loadConfig loads configuration and initializes the global logger.
// Every subcommand goes through here.
func loadConfig() *config.Config {
	cfg := config.Load()
	logger.InitLogger(logger.Config{
		Level:      logger.LogLevel(cfg.LogLevel),
		OutputPath: cfg.LogPath,
		MaxSize:    cfg.LogMaxSize,
		MaxBackups: 5,
		MaxAge:     30,
		Compress:   true,
	})
	return cfg
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
