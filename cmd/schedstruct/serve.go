package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/ukaji3/schedstruct-go/internal/api"
	"github.com/ukaji3/schedstruct-go/internal/config"
	"github.com/ukaji3/schedstruct-go/internal/logging"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			svcs, err := a.buildServices(ctx)
			if err != nil {
				return err
			}
			defer svcs.Close()

			if a.configPath != "" {
				err := config.Watch(a.configPath, func(c *config.Config) {
					if a.logLevel == "" && logging.SetLevel(a.log, c.Log.Level) {
						a.log.Info("log level reloaded", logging.String("level", c.Log.Level))
					}
				}, func(err error) {
					a.log.Warn("config reload rejected", logging.Err(err))
				})
				if err != nil {
					return err
				}
			}

			gin.SetMode(gin.ReleaseMode)
			routerCfg := api.Config{MaxUploadBytes: a.cfg.Server.MaxUploadBytes}
			if svcs.metrics != nil {
				routerCfg.Metrics = svcs.metrics.Handler()
			}
			if addr == "" {
				addr = a.cfg.Server.Addr
			}
			srv := &http.Server{
				Addr:         addr,
				Handler:      api.NewRouter(routerCfg, svcs.ingest, svcs.store, a.log),
				ReadTimeout:  a.cfg.Server.ReadTimeout,
				WriteTimeout: a.cfg.Server.WriteTimeout,
			}

			errc := make(chan error, 1)
			go func() {
				a.log.Info("http server listening", logging.String("addr", addr))
				errc <- srv.ListenAndServe()
			}()

			select {
			case err := <-errc:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}

			a.log.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: server.addr)")
	return cmd
}
