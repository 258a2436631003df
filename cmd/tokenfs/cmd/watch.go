package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/oneconcern/tokenfs/pkg/fssync"
	"github.com/oneconcern/tokenfs/pkg/metrics"
)

var watchCmd = &cobra.Command{
	Use:   "watch [owner...]",
	Short: "Mirror the file trees of owners into the index",
	Long: `Watch the directories of owners under the storage root, and mirror every change into the index.

Without arguments, all the owners found under the storage root are watched.
Stop with SIGINT or SIGTERM.`,
	Example: `% tokenfs watch --storage-root /srv/files --index --metrics-addr :9090`,
	Run: func(cmd *cobra.Command, owners []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		m := metrics.Default()
		s, err := openStores(config, m)
		if err != nil {
			wrapFatalln("open stores", err)
			return
		}
		defer func() {
			_ = s.Close()
		}()

		if len(owners) == 0 && config.Owner != "" {
			owners = []string{config.Owner}
		}

		group := fssync.NewGroup(s.res, s.idx,
			fssync.WithLogger(s.logger),
			fssync.WithMetrics(m),
		)
		group.InitialIndex = tokenfsFlags.watch.initialIndex

		eg, gctx := errgroup.WithContext(ctx)
		if addr := tokenfsFlags.watch.metricsAddr; addr != "" {
			srv := &http.Server{
				Addr:              addr,
				Handler:           metricsHandler(),
				ReadHeaderTimeout: 5 * time.Second,
			}
			eg.Go(func() error {
				s.logger.Info("serving metrics", zap.String("addr", addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			eg.Go(func() error {
				<-gctx.Done()
				shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
				defer done()
				return srv.Shutdown(shutdownCtx)
			})
		}

		eg.Go(func() error {
			defer cancel()
			return group.Run(gctx, owners...)
		})

		if err = eg.Wait(); err != nil {
			wrapFatalln("watch", err)
			return
		}
	},
}

func metricsHandler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func init() {
	addMetricsAddrFlag(watchCmd)
	addInitialIndexFlag(watchCmd)
	rootCmd.AddCommand(watchCmd)
}
