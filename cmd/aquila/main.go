// Package main is the aquila command line client.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/NicoZweifel/aquila/pkg/client"
)

var (
	serverURL string
	authToken string
)

var rootCmd = &cobra.Command{
	Use:   "aquila",
	Short: "Client for the aquila asset and compute gateway",
	Long: `aquila talks to an aquila gateway: content-addressed asset uploads,
versioned manifests, scoped tokens and container jobs with live logs.

The server URL and token can also come from the environment:
  AQUILA_SERVER  gateway base URL
  AQUILA_TOKEN   bearer token`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "gateway base URL (default $AQUILA_SERVER or http://localhost:8080)")
	rootCmd.PersistentFlags().StringVar(&authToken, "token", "", "bearer token (default $AQUILA_TOKEN)")
}

// apiClient builds a client from flags and environment.
func apiClient() *client.Client {
	url := serverURL
	if url == "" {
		url = os.Getenv("AQUILA_SERVER")
	}
	if url == "" {
		url = "http://localhost:8080"
	}
	token := authToken
	if token == "" {
		token = os.Getenv("AQUILA_TOKEN")
	}
	return client.New(url, token)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
