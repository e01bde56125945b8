// aiverse is the command-line client for an AIVERSE server: join the
// world, trade shares, use services and follow the news.
package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"aiverse/internal/client"
)

var serverURL string

func main() {
	root := &cobra.Command{
		Use:   "aiverse",
		Short: "AIVERSE command line client",
		Long: `aiverse talks to an AIVERSE daemon.

The server address comes from --server or the AIVERSE_SERVER environment
variable (default http://localhost:8000).`,
		SilenceUsage: true,
	}

	defaultServer := "http://localhost:8000"
	if s := os.Getenv("AIVERSE_SERVER"); s != "" {
		defaultServer = s
	}
	root.PersistentFlags().StringVar(&serverURL, "server", defaultServer, "AIVERSE server base URL")

	root.AddCommand(
		newJoinCmd(),
		newStatusCmd(),
		newBuyCmd(),
		newSellCmd(),
		newMarketCmd(),
		newCompaniesCmd(),
		newLeaderboardCmd(),
		newNewsCmd(),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// apiClient builds a client for the configured server. Logs go to stderr
// at warn and above so tables stay clean.
func apiClient() *client.Client {
	return client.New(serverURL, cliLogger())
}

func cliLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}
