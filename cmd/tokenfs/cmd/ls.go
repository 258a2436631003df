package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oneconcern/tokenfs/pkg/drive"
	"github.com/oneconcern/tokenfs/pkg/token"
)

var lsCmd = &cobra.Command{
	Use:   "ls [token]",
	Short: "List a folder",
	Long:  `List the content of a folder of the owner: folders first, then files. Defaults to the root folder.`,
	Example: `% tokenfs ls --owner alice
2d6a7c...  Folder          -  2020-05-17 10:30:00  docs/
93b5e1...  File        1.2kB  2020-05-17 10:31:12  notes.txt`,
	Args: cobra.MaximumNArgs(1),
	Run: driveCommand("list folder", func(ctx context.Context, cmd *cobra.Command, d *drive.Drive, owner string, root token.Token, args []string) error {
		folder := root
		if len(args) > 0 {
			folder = token.Token(args[0])
		}

		nodes, err := d.List(ctx, owner, folder)
		if err != nil {
			return err
		}
		printNodes(cmd.OutOrStdout(), nodes)
		return nil
	}),
}

var searchCmd = &cobra.Command{
	Use:   "search <pattern>",
	Short: "Search names",
	Long: `Search the names of all the files and folders of the owner.

The pattern is a case-insensitive regular expression, or a plain string when it is not a valid expression.`,
	Example: `% tokenfs search --owner alice 'report-\d{4}\.pdf'`,
	Args:    cobra.ExactArgs(1),
	Run: driveCommand("search", func(ctx context.Context, cmd *cobra.Command, d *drive.Drive, owner string, _ token.Token, args []string) error {
		nodes, err := d.Search(ctx, owner, args[0])
		if err != nil {
			return err
		}
		printNodes(cmd.OutOrStdout(), nodes)
		return nil
	}),
}

var mkdirCmd = &cobra.Command{
	Use:   "mkdir <name>",
	Short: "Create a folder in the index",
	Long:  `Create a folder in the index of the owner, under the folder given by --parent or under the root folder.`,
	Args:  cobra.ExactArgs(1),
	Run: driveCommand("create folder", func(ctx context.Context, cmd *cobra.Command, d *drive.Drive, owner string, root token.Token, args []string) error {
		n, err := d.CreateFolder(ctx, owner, parentToken(tokenfsFlags.node.parent, root), args[0])
		if err != nil {
			return err
		}
		printNode(cmd.OutOrStdout(), n)
		return nil
	}),
}

var rmCmd = &cobra.Command{
	Use:   "rm <token>",
	Short: "Delete a file or a folder from the index",
	Long:  `Delete a file, or a folder and all its content, from the index of the owner.`,
	Args:  cobra.ExactArgs(1),
	Run: driveCommand("delete", func(ctx context.Context, cmd *cobra.Command, d *drive.Drive, owner string, _ token.Token, args []string) error {
		removed, err := d.Delete(ctx, owner, token.Token(args[0]))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "removed %d nodes\n", removed)
		return nil
	}),
}

func init() {
	addParentFlag(mkdirCmd)

	rootCmd.AddCommand(lsCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(mkdirCmd)
	rootCmd.AddCommand(rmCmd)
}
