package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	units "github.com/docker/go-units"
	"github.com/spf13/cobra"

	"github.com/oneconcern/tokenfs/pkg/drive"
	"github.com/oneconcern/tokenfs/pkg/metrics"
	"github.com/oneconcern/tokenfs/pkg/model"
	"github.com/oneconcern/tokenfs/pkg/token"
)

const timeForm = "2006-01-02 15:04:05"

// driveCommand runs fn with a drive for the configured owner
func driveCommand(intent string, fn func(context.Context, *cobra.Command, *drive.Drive, string, token.Token, []string) error) func(*cobra.Command, []string) {
	return func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		owner, err := config.owner()
		if err != nil {
			wrapFatalln(intent, err)
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

		d := drive.New(s.idx, drive.WithLogger(s.logger))
		root, err := d.RootToken(ctx, owner)
		if err != nil {
			wrapFatalln(intent, err)
			return
		}

		if err = fn(ctx, cmd, d, owner, root, args); err != nil {
			wrapFatalln(intent, err)
			return
		}
	}
}

func printNodes(w io.Writer, nodes []model.Node) {
	for _, n := range nodes {
		printNode(w, n)
	}
}

func printNode(w io.Writer, n model.Node) {
	size := "-"
	if !n.IsFolder() {
		size = units.HumanSize(float64(n.Size))
	}
	name := n.Name
	if n.IsFolder() && !n.IsRoot() {
		name += token.Separator
	}

	fmt.Fprintf(w, "%s  %-6s  %9s  %s  %s\n", n.Token, n.Kind, size, formatTime(n.ModTime), name)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(timeForm)
}
