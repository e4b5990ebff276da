package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/NicoZweifel/aquila/pkg/client"
)

var publishLatest bool

var publishCmd = &cobra.Command{
	Use:   "publish <manifest.json>",
	Short: "Publish a manifest version",
	Long: `Publish a manifest file. The manifests/latest alias is updated
unless --latest=false.

Example:
  aquila publish release-v3.json`,
	Args: cobra.ExactArgs(1),
	RunE: runPublish,
}

var fetchCmd = &cobra.Command{
	Use:   "fetch <version>",
	Short: "Fetch a manifest by version (or \"latest\")",
	Args:  cobra.ExactArgs(1),
	RunE:  runFetch,
}

func init() {
	publishCmd.Flags().BoolVar(&publishLatest, "latest", true, "also update the latest alias")

	rootCmd.AddCommand(publishCmd)
	rootCmd.AddCommand(fetchCmd)
}

func runPublish(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	var m client.Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("invalid manifest file: %w", err)
	}

	if err := apiClient().PublishManifest(cmd.Context(), &m, publishLatest); err != nil {
		return err
	}
	fmt.Printf("published %s\n", m.Version)
	return nil
}

func runFetch(cmd *cobra.Command, args []string) error {
	m, err := apiClient().FetchManifest(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
