package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/ukaji3/schedstruct-go/internal/ingest"
	"github.com/ukaji3/schedstruct-go/internal/logging"
	"github.com/ukaji3/schedstruct-go/internal/watch"
)

func newWatchCmd(a *app) *cobra.Command {
	var (
		dir          string
		scanExisting bool
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Ingest workbooks as they appear in an inbox directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			svcs, err := a.buildServices(ctx)
			if err != nil {
				return err
			}
			defer svcs.Close()

			if dir == "" {
				dir = a.cfg.Watch.Dir
			}
			handle := func(ctx context.Context, path string) error {
				res, err := svcs.ingest.Ingest(ctx, ingest.Source{Path: path})
				if err != nil {
					return err
				}
				a.log.Info("inbox workbook processed",
					logging.String("path", path),
					logging.String("outcome", string(res.Outcome)),
					logging.Int("changes", len(res.Changes)),
				)
				return nil
			}
			w := watch.New(dir, a.cfg.Watch.Debounce, handle, a.log)
			w.ScanExisting = scanExisting
			return w.Run(ctx)
		},
	}
	f := cmd.Flags()
	f.StringVar(&dir, "dir", "", "inbox directory (default: watch.dir)")
	f.BoolVar(&scanExisting, "scan-existing", true, "ingest workbooks already in the inbox on start")
	return cmd
}
