package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"skh-agent/handler"
	"skh-agent/internal/devserver"
)

func newServeCmd(opts *options) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API locally with CORS for the site",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			svc, err := buildAssistant(ctx, opts)
			if err != nil {
				return err
			}
			h, err := handler.NewHandler(svc, handler.WithLogger(opts.logger))
			if err != nil {
				return err
			}
			if addr == "" {
				addr = opts.cfg.Addr
			}
			router, err := devserver.NewRouter(h, opts.cfg.AllowedOrigin, opts.logger)
			if err != nil {
				return err
			}
			return devserver.Serve(ctx, addr, router, opts.logger)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (or set SKH_ADDR)")
	return cmd
}
