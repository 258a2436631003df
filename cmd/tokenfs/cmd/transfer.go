package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/oneconcern/tokenfs/pkg/drive"
	"github.com/oneconcern/tokenfs/pkg/storage"
	"github.com/oneconcern/tokenfs/pkg/token"
)

var uploadCmd = &cobra.Command{
	Use:     "upload <file>",
	Short:   "Upload a local file to the index",
	Long:    `Upload a local file under the folder given by --parent or under the root folder. An indexed file with the same name is replaced.`,
	Example: `% tokenfs upload --owner alice --parent 2d6a7c... ./notes.txt`,
	Args:    cobra.ExactArgs(1),
	Run: driveCommand("upload", func(ctx context.Context, cmd *cobra.Command, d *drive.Drive, owner string, root token.Token, args []string) error {
		name := tokenfsFlags.node.name
		if name == "" {
			name = filepath.Base(args[0])
		}

		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer func() {
			_ = f.Close()
		}()

		n, err := d.Upload(ctx, owner, parentToken(tokenfsFlags.node.parent, root), name, f)
		if err != nil {
			return err
		}
		printNode(cmd.OutOrStdout(), n)
		return nil
	}),
}

var downloadCmd = &cobra.Command{
	Use:   "download <token>",
	Short: "Download a file from the index",
	Long:  `Download the content of a file to a local file, given by --output or named after the indexed file.`,
	Args:  cobra.ExactArgs(1),
	Run: driveCommand("download", func(ctx context.Context, cmd *cobra.Command, d *drive.Drive, owner string, _ token.Token, args []string) (err error) {
		n, rdr, err := d.Download(ctx, owner, token.Token(args[0]))
		if err != nil {
			return err
		}
		defer func() {
			err = multierr.Append(err, rdr.Close())
		}()

		output := tokenfsFlags.node.output
		if output == "" {
			output = n.Name
		}
		f, err := os.Create(output)
		if err != nil {
			return err
		}
		defer func() {
			err = multierr.Append(err, f.Close())
		}()

		written, err := storage.PipeIO(f, rdr)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "downloaded %s to %s (%d bytes)\n", n.Name, output, written)
		return nil
	}),
}

func init() {
	addParentFlag(uploadCmd)
	addNameFlag(uploadCmd)
	addOutputFlag(downloadCmd)

	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(downloadCmd)
}
