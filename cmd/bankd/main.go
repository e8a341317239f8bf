package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"kassa.org/internal/config"
	"kassa.org/internal/httpapi"
	"kassa.org/internal/obs"
	"kassa.org/internal/registry"
	"kassa.org/internal/stream"
)

// Overridden at build time via -ldflags.
var (
	version = "0.3.0"
	commit  = "none"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "bankd",
	Short: "Bank account service",
	Long:  "bankd serves bank accounts: deposits, withdrawals, history and month-end processing over HTTP.",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	RunE:  runServe,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("bankd %s (%s)\n", version, commit)
	},
}

func init() {
	serveCmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to bankd.toml")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	obs.Init()
	obs.InitBuildInfo(version, commit)

	reg := registry.NewInMemory()
	st := stream.New()
	api := httpapi.New(reg, st, version, cfg.Limits)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       config.Duration(cfg.Server.ReadTimeout, 15*time.Second),
		ReadHeaderTimeout: config.Duration(cfg.Server.ReadTimeout, 15*time.Second),
		WriteTimeout:      config.Duration(cfg.Server.WriteTimeout, 15*time.Second),
		IdleTimeout:       config.Duration(cfg.Server.IdleTimeout, 60*time.Second),
	}

	log.Printf("Starting bankd %s on %s", version, srv.Addr)

	// graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	log.Println("Stopped")
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
