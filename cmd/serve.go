package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/agentgw/internal/config"
	"github.com/ziadkadry99/agentgw/internal/httpapi"
	"github.com/ziadkadry99/agentgw/internal/service"
)

var serveAllowAllCORS bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the agentgw daemon",
	Long:  `Starts the HTTP façade, websocket chat transport, scheduler, and webhook dispatcher as one long-lived process.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		svc, err := service.New(cfg)
		if err != nil {
			return fmt.Errorf("starting service: %w", err)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		svc.Start(ctx)

		httpapi.Version = Version
		srv := httpapi.New(httpapi.Config{
			Port:     cfg.HTTP.Port,
			APIKey:   cfg.HTTP.APIKey,
			AllowAll: serveAllowAllCORS,
		}, svc)

		go func() {
			<-ctx.Done()
			fmt.Fprintln(os.Stderr, "\nShutting down agentgw...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				fmt.Fprintf(os.Stderr, "http shutdown: %v\n", err)
			}
			if err := svc.Shutdown(shutdownCtx); err != nil {
				fmt.Fprintf(os.Stderr, "service shutdown: %v\n", err)
			}
		}()

		fmt.Fprintf(os.Stderr, "agentgw v%s listening on port %d\n", Version, cfg.HTTP.Port)
		fmt.Fprintf(os.Stderr, "  skills loaded: %d\n", len(svc.Skills.List()))
		fmt.Fprintf(os.Stderr, "  tools registered: %d\n", len(svc.Tools.Names()))
		fmt.Fprintf(os.Stderr, "  documents indexed: %d\n", svc.Vector.Count("default"))

		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().BoolVar(&serveAllowAllCORS, "allow-all-origins", false, "allow all CORS origins (dev mode)")
	rootCmd.AddCommand(serveCmd)
}
