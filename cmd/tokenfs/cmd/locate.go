package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oneconcern/tokenfs/pkg/metrics"
	"github.com/oneconcern/tokenfs/pkg/token"
)

var locateCmd = &cobra.Command{
	Use:   "locate <token>",
	Short: "Show where a node lives",
	Long: `Print the canonical path of a file or folder of the owner, and its location under the storage root.

Nodes created through the index only, such as uploads, have no file on disk at that location.`,
	Example: `% tokenfs locate --owner alice 93b5e1...
/docs/notes.txt	/srv/tokenfs/data/alice/docs/notes.txt`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		owner, err := config.owner()
		if err != nil {
			wrapFatalln("locate", err)
			return
		}

		s, err := openStores(config, metrics.Default())
		if err != nil {
			wrapFatalln("open stores", err)
			return
		}
		defer func() {
			_ = s.Close()
		}()

		canonical, err := s.idx.CanonicalPath(ctx, owner, token.Token(args[0]))
		if err != nil {
			wrapFatalln("locate", err)
			return
		}

		physical, err := s.res.ToPhysical(canonical, owner)
		if err != nil {
			wrapFatalln("locate", err)
			return
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", canonical, physical)
	},
}

func init() {
	rootCmd.AddCommand(locateCmd)
}
