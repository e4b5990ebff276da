package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	uploadStream   bool
	downloadOutput string
)

var uploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Upload a file as a content-addressed blob",
	Long: `Upload a file and print its blob hash.

With --stream the file is hashed locally first and then streamed, so it
never resides in memory; the server verifies the stream against the
declared hash.

Examples:
  aquila upload textures.tar
  aquila upload --stream dataset.bin`,
	Args: cobra.ExactArgs(1),
	RunE: runUpload,
}

var downloadCmd = &cobra.Command{
	Use:   "download <hash>",
	Short: "Download a blob by hash",
	Args:  cobra.ExactArgs(1),
	RunE:  runDownload,
}

func init() {
	uploadCmd.Flags().BoolVar(&uploadStream, "stream", false, "stream the file instead of buffering it")
	downloadCmd.Flags().StringVarP(&downloadOutput, "output", "o", "", "write to file instead of stdout")

	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(downloadCmd)
}

func runUpload(cmd *cobra.Command, args []string) error {
	c := apiClient()

	var (
		hash    string
		created bool
		err     error
	)
	if uploadStream {
		hash, created, err = c.UploadFileStream(cmd.Context(), args[0])
	} else {
		hash, created, err = c.UploadFile(cmd.Context(), args[0])
	}
	if err != nil {
		return err
	}

	if created {
		fmt.Fprintln(os.Stderr, "uploaded")
	} else {
		fmt.Fprintln(os.Stderr, "already stored")
	}
	fmt.Println(hash)
	return nil
}

func runDownload(cmd *cobra.Command, args []string) error {
	c := apiClient()

	data, err := c.Download(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	if downloadOutput == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(downloadOutput, data, 0o644)
}
