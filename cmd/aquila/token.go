package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	tokenScopes   []string
	tokenDuration int64
)

var tokenCmd = &cobra.Command{
	Use:   "token <subject>",
	Short: "Mint a scoped bearer token",
	Long: `Mint a token for a subject. Requires a credential carrying the
write scope; minting write or admin scopes requires admin.

Examples:
  aquila token ci-bot --scopes asset:upload,manifest:publish --duration 86400
  aquila token viewer`,
	Args: cobra.ExactArgs(1),
	RunE: runToken,
}

func init() {
	tokenCmd.Flags().StringSliceVar(&tokenScopes, "scopes", nil, "scopes to grant (default read)")
	tokenCmd.Flags().Int64Var(&tokenDuration, "duration", 0, "lifetime in seconds (default one year)")

	rootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command, args []string) error {
	tok, err := apiClient().MintToken(cmd.Context(), args[0], tokenScopes, tokenDuration)
	if err != nil {
		return err
	}
	fmt.Println(tok.Token)
	return nil
}
