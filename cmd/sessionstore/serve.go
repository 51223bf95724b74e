package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  `Serves the session routes, /healthz and the metrics endpoint until SIGINT or SIGTERM.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, logger, err := openStore(cmd, nil)
		if err != nil {
			return err
		}
		defer store.Close()

		addr, _ := cmd.Flags().GetString("addr")
		if addr == "" {
			addr = store.Config.Server.Address
		}

		server := &http.Server{
			Addr:    addr,
			Handler: store.Handler(),
		}

		serverErrors := make(chan error, 1)
		go func() {
			logger.Info("Starting session store server", "address", addr)
			serverErrors <- server.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

		select {
		case err := <-serverErrors:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Server error", "error", err)
				return err
			}
			return nil

		case sig := <-shutdown:
			logger.Info("Shutdown signal received", "signal", sig.String())
			ctx, cancel := context.WithTimeout(context.Background(), store.Config.Server.ShutdownTimeout)
			defer cancel()
			if err := server.Shutdown(ctx); err != nil {
				logger.Error("Server shutdown error", "error", err)
				return server.Close()
			}
			logger.Info("Server stopped")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Address to listen on (overrides server.address)")
}
