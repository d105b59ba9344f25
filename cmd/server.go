package cmd

import (
	"github.com/spf13/cobra"

	"CadenzaFM/server"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the CadenzaFM server",
	Long:  `Starts the HTTP server: catalog API, player transport, websocket state push and the web player UI.`,
	Run: func(cmd *cobra.Command, args []string) {
		server.Start(loadConfig())
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
